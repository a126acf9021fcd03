package util

import (
	"errors"
	"path/filepath"
	"strings"
)

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName strips any client-supplied directory part and rejects
// names that would escape a folder.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	s = filepath.Base(s)
	if s == "" || s == "." || s == ".." || s == "/" || strings.Contains(s, "\x00") {
		return "", ErrInvalidFileName
	}
	return s, nil
}
