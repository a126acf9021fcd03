package remote

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	// ErrNotFound is returned when a folder or file does not exist remotely.
	ErrNotFound = errors.New("remote: not found")
	// ErrInvalidName is returned for empty names or names containing path separators.
	ErrInvalidName = errors.New("remote: invalid name")
)

// FileDescriptor describes a file stored remotely.
type FileDescriptor struct {
	ID          string
	Name        string
	WebViewLink string
	MimeType    string
	Size        int64
}

// Gateway exposes folder-per-namespace semantics over a remote store.
// Folders are created lazily by name; files are addressed by name inside a folder.
type Gateway interface {
	EnsureFolder(ctx context.Context, name string) (string, error)
	SaveFile(ctx context.Context, filename string, content []byte, folderName string) (FileDescriptor, error)
	DeleteFiles(ctx context.Context, filename, folderName string) (int, error)
	DeleteFileByID(ctx context.Context, id string) error
	DownloadFile(ctx context.Context, filename, folderName string) ([]byte, error)
	PreviewURL(ctx context.Context, filename, folderName string) (string, error)
	UniqueName(ctx context.Context, filename, folderName string) (string, error)
}

const maxUniqueAttempts = 1000

// ResolveUniqueName returns filename if unused, otherwise the first free
// base_N.ext candidate according to exists.
func ResolveUniqueName(ctx context.Context, filename string, exists func(ctx context.Context, name string) (bool, error)) (string, error) {
	if err := ValidateName(filename); err != nil {
		return "", err
	}
	ext := path.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	candidate := filename
	for i := 1; i <= maxUniqueAttempts; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
	return "", fmt.Errorf("no free name for %q after %d attempts", filename, maxUniqueAttempts)
}

// ValidateName rejects names that cannot be used as a folder or file name.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == "." || trimmed == ".." {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "\x00") {
		return ErrInvalidName
	}
	return nil
}
