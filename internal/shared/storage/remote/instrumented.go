package remote

import (
	"context"
	"errors"
	"time"

	"docmanager-backend/internal/shared/metrics"
	"docmanager-backend/internal/shared/telemetry"
)

// Instrumented wraps a Gateway with call latency metrics and error logging.
type Instrumented struct {
	Next Gateway
}

// Instrument returns g wrapped with metrics and logging.
func Instrument(g Gateway) Gateway {
	return &Instrumented{Next: g}
}

func (i *Instrumented) observe(op, folder string, start time.Time, err error) {
	metrics.ObserveRemoteCall(op, time.Since(start))
	if err == nil || errors.Is(err, ErrNotFound) {
		return
	}
	metrics.IncRemoteErrors(op)
	telemetry.Error("remote.call_failed", map[string]any{
		"op":     op,
		"folder": folder,
		"error":  err,
	})
}

func (i *Instrumented) EnsureFolder(ctx context.Context, name string) (string, error) {
	start := time.Now()
	id, err := i.Next.EnsureFolder(ctx, name)
	i.observe("ensure_folder", name, start, err)
	return id, err
}

func (i *Instrumented) SaveFile(ctx context.Context, filename string, content []byte, folderName string) (FileDescriptor, error) {
	start := time.Now()
	fd, err := i.Next.SaveFile(ctx, filename, content, folderName)
	i.observe("save_file", folderName, start, err)
	return fd, err
}

func (i *Instrumented) DeleteFiles(ctx context.Context, filename, folderName string) (int, error) {
	start := time.Now()
	n, err := i.Next.DeleteFiles(ctx, filename, folderName)
	i.observe("delete_files", folderName, start, err)
	return n, err
}

func (i *Instrumented) DeleteFileByID(ctx context.Context, id string) error {
	start := time.Now()
	err := i.Next.DeleteFileByID(ctx, id)
	i.observe("delete_file_by_id", "", start, err)
	return err
}

func (i *Instrumented) DownloadFile(ctx context.Context, filename, folderName string) ([]byte, error) {
	start := time.Now()
	data, err := i.Next.DownloadFile(ctx, filename, folderName)
	i.observe("download_file", folderName, start, err)
	return data, err
}

func (i *Instrumented) PreviewURL(ctx context.Context, filename, folderName string) (string, error) {
	start := time.Now()
	url, err := i.Next.PreviewURL(ctx, filename, folderName)
	i.observe("preview_url", folderName, start, err)
	return url, err
}

func (i *Instrumented) UniqueName(ctx context.Context, filename, folderName string) (string, error) {
	start := time.Now()
	name, err := i.Next.UniqueName(ctx, filename, folderName)
	i.observe("unique_name", folderName, start, err)
	return name, err
}

var _ Gateway = (*Instrumented)(nil)
