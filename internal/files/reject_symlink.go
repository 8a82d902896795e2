package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RejectSymlinkPath fails when path, or any existing directory above it, is a
// symlink or reparse point. Components that do not exist yet are fine.
func RejectSymlinkPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	for _, dir := range ancestry(abs) {
		info, err := os.Lstat(dir)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to access path: %w", err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("refusing to write through symlink: %s (link at %s)", path, dir)
		}
		linked, err := isLinkLike(dir)
		if err != nil {
			return fmt.Errorf("failed to check reparse point: %w", err)
		}
		if linked {
			return fmt.Errorf("refusing to write through reparse point: %s (at %s)", path, dir)
		}
	}
	return nil
}

// ancestry lists abs and its parents from the root down, excluding the root.
func ancestry(abs string) []string {
	var chain []string
	for p := abs; ; p = filepath.Dir(p) {
		parent := filepath.Dir(p)
		if parent == p {
			break
		}
		chain = append(chain, p)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
