package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const maxNumberedSiblings = 9

// SafePath returns path if nothing exists there. Otherwise it returns the
// first free sibling name report_1.md .. report_9.md, falling back to a
// random suffix. changed reports whether the name differs from path.
func SafePath(path string) (free string, changed bool, err error) {
	if path == "" {
		return "", false, fmt.Errorf("path is empty")
	}
	taken, err := exists(path)
	if err != nil || !taken {
		return path, false, err
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; i <= maxNumberedSiblings; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		taken, err := exists(candidate)
		if err != nil {
			return "", false, err
		}
		if !taken {
			return candidate, true, nil
		}
	}
	return fmt.Sprintf("%s_%s%s", stem, uuid.NewString()[:8], ext), true, nil
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}
