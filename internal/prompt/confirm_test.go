package prompt

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfirmReplace(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		interactive bool
		force       bool
		want        bool
		wantErr     bool
	}{
		{name: "force skips question", input: "n\n", force: true, want: true},
		{name: "non-interactive without force", input: "y\n", wantErr: true},
		{name: "yes", input: "y\n", interactive: true, want: true},
		{name: "long yes", input: "YES\n", interactive: true, want: true},
		{name: "no", input: "n\n", interactive: true},
		{name: "eof", input: "", interactive: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := Confirmer{
				In:            strings.NewReader(tt.input),
				Out:           &out,
				IsInteractive: func() bool { return tt.interactive },
			}
			got, err := c.ConfirmReplace("report.md", tt.force)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			if tt.interactive && !tt.force && !strings.Contains(out.String(), "report.md") {
				t.Fatalf("question not shown: %q", out.String())
			}
		})
	}
}
