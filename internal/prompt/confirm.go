package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Confirmer asks before an existing report is replaced.
type Confirmer struct {
	In            io.Reader
	Out           io.Writer
	IsInteractive func() bool
}

// DefaultConfirmer reads from stdin and prompts on out.
func DefaultConfirmer(out io.Writer) Confirmer {
	return Confirmer{
		In:  os.Stdin,
		Out: out,
		IsInteractive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// ConfirmReplace reports whether path may be replaced. force skips the
// question; a non-interactive stdin without force is an error.
func (c Confirmer) ConfirmReplace(path string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	if c.IsInteractive == nil || !c.IsInteractive() {
		return false, fmt.Errorf("%s already exists and stdin is not interactive: use --yes to replace it", path)
	}
	if c.Out != nil {
		fmt.Fprintf(c.Out, "Report %s already exists. Replace it? (y/n): ", path)
	}
	answer, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
