package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"docmanager-backend/internal/shared/storage/remote"
	"docmanager-backend/internal/shared/util"
)

// Gateway implements remote.Gateway on the local filesystem. Each folder is a
// directory named by the hash of the folder name.
type Gateway struct {
	baseDir string
}

// New creates a filesystem gateway rooted at baseDir.
func New(baseDir string) *Gateway {
	if strings.TrimSpace(baseDir) == "" {
		baseDir = "./data"
	}
	return &Gateway{baseDir: baseDir}
}

func (g *Gateway) folderDir(name string) string {
	return filepath.Join(g.baseDir, util.HashKey(name))
}

func (g *Gateway) EnsureFolder(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := remote.ValidateName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(g.folderDir(name), 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	return util.HashKey(name), nil
}

func (g *Gateway) SaveFile(ctx context.Context, filename string, content []byte, folderName string) (remote.FileDescriptor, error) {
	if err := remote.ValidateName(filename); err != nil {
		return remote.FileDescriptor{}, err
	}
	folderID, err := g.EnsureFolder(ctx, folderName)
	if err != nil {
		return remote.FileDescriptor{}, err
	}

	dir := g.folderDir(folderName)
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return remote.FileDescriptor{}, fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return remote.FileDescriptor{}, fmt.Errorf("write body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return remote.FileDescriptor{}, fmt.Errorf("close temp: %w", err)
	}
	fullPath := filepath.Join(dir, filename)
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return remote.FileDescriptor{}, fmt.Errorf("rename: %w", err)
	}

	link, err := fileURL(fullPath)
	if err != nil {
		return remote.FileDescriptor{}, err
	}
	return remote.FileDescriptor{
		ID:          folderID + "/" + filename,
		Name:        filename,
		WebViewLink: link,
		MimeType:    util.DetectMIME(content),
		Size:        int64(len(content)),
	}, nil
}

func (g *Gateway) DeleteFiles(ctx context.Context, filename, folderName string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := remote.ValidateName(filename); err != nil {
		return 0, err
	}
	if err := remote.ValidateName(folderName); err != nil {
		return 0, err
	}
	err := os.Remove(filepath.Join(g.folderDir(folderName), filename))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("remove: %w", err)
	}
	return 1, nil
}

func (g *Gateway) DeleteFileByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := filepath.Clean(id)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return remote.ErrInvalidName
	}
	err := os.Remove(filepath.Join(g.baseDir, clean))
	if errors.Is(err, fs.ErrNotExist) {
		return remote.ErrNotFound
	}
	return err
}

func (g *Gateway) DownloadFile(ctx context.Context, filename, folderName string) ([]byte, error) {
	fullPath, err := g.locate(ctx, filename, folderName)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, remote.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

func (g *Gateway) PreviewURL(ctx context.Context, filename, folderName string) (string, error) {
	fullPath, err := g.locate(ctx, filename, folderName)
	if err != nil {
		return "", err
	}
	return fileURL(fullPath)
}

func (g *Gateway) UniqueName(ctx context.Context, filename, folderName string) (string, error) {
	if err := remote.ValidateName(folderName); err != nil {
		return "", err
	}
	dir := g.folderDir(folderName)
	return remote.ResolveUniqueName(ctx, filename, func(_ context.Context, name string) (bool, error) {
		_, err := os.Stat(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return err == nil, err
	})
}

func (g *Gateway) locate(ctx context.Context, filename, folderName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := remote.ValidateName(filename); err != nil {
		return "", err
	}
	if err := remote.ValidateName(folderName); err != nil {
		return "", err
	}
	fullPath := filepath.Join(g.folderDir(folderName), filename)
	info, err := os.Stat(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", remote.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", remote.ErrNotFound
	}
	return fullPath, nil
}

func fileURL(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

var _ remote.Gateway = (*Gateway)(nil)
