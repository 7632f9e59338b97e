package driver

import (
	"fmt"
	"path/filepath"
	"strings"
)

// relUnder returns child's slash-separated path relative to parent, or an
// error when child does not live under parent.
func relUnder(parent, child string) (string, error) {
	absParent, err := filepath.Abs(parent)
	if err != nil {
		return "", err
	}
	absChild, err := filepath.Abs(child)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(absParent, absChild)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not under %s", child, parent)
	}
	return filepath.ToSlash(rel), nil
}
