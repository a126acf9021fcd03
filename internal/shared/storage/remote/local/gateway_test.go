package local

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"docmanager-backend/internal/shared/storage/remote"
)

func TestSaveDownloadDelete(t *testing.T) {
	ctx := context.Background()
	g := New(t.TempDir())

	fd, err := g.SaveFile(ctx, "notes.txt", []byte("hello world"), "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "notes.txt", fd.Name)
	require.Equal(t, int64(11), fd.Size)
	require.True(t, strings.HasPrefix(fd.MimeType, "text/plain"))
	require.True(t, strings.HasPrefix(fd.WebViewLink, "file://"))

	data, err := g.DownloadFile(ctx, "notes.txt", "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))

	link, err := g.PreviewURL(ctx, "notes.txt", "a@x.com")
	require.NoError(t, err)
	require.Equal(t, fd.WebViewLink, link)

	n, err := g.DeleteFiles(ctx, "notes.txt", "a@x.com")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = g.DownloadFile(ctx, "notes.txt", "a@x.com")
	require.ErrorIs(t, err, remote.ErrNotFound)
}

func TestFoldersAreIsolated(t *testing.T) {
	ctx := context.Background()
	g := New(t.TempDir())

	_, err := g.SaveFile(ctx, "report.pdf", []byte("%PDF-1.4"), "a@x.com")
	require.NoError(t, err)

	_, err = g.DownloadFile(ctx, "report.pdf", "b@x.com")
	require.ErrorIs(t, err, remote.ErrNotFound)

	n, err := g.DeleteFiles(ctx, "report.pdf", "b@x.com")
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestDeleteFileByID(t *testing.T) {
	ctx := context.Background()
	g := New(t.TempDir())

	fd, err := g.SaveFile(ctx, "a.txt", []byte("x"), "project_notes")
	require.NoError(t, err)
	require.NoError(t, g.DeleteFileByID(ctx, fd.ID))
	require.ErrorIs(t, g.DeleteFileByID(ctx, fd.ID), remote.ErrNotFound)
	require.ErrorIs(t, g.DeleteFileByID(ctx, "../outside"), remote.ErrInvalidName)
}

func TestUniqueName(t *testing.T) {
	ctx := context.Background()
	g := New(t.TempDir())

	name, err := g.UniqueName(ctx, "plan.docx", "project_notes")
	require.NoError(t, err)
	require.Equal(t, "plan.docx", name)

	_, err = g.SaveFile(ctx, "plan.docx", []byte("x"), "project_notes")
	require.NoError(t, err)
	_, err = g.SaveFile(ctx, "plan_1.docx", []byte("x"), "project_notes")
	require.NoError(t, err)

	name, err = g.UniqueName(ctx, "plan.docx", "project_notes")
	require.NoError(t, err)
	require.Equal(t, "plan_2.docx", name)
}

func TestRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	g := New(t.TempDir())

	_, err := g.SaveFile(ctx, "../escape.txt", []byte("x"), "a@x.com")
	require.True(t, errors.Is(err, remote.ErrInvalidName))
	_, err = g.EnsureFolder(ctx, "")
	require.ErrorIs(t, err, remote.ErrInvalidName)
}
