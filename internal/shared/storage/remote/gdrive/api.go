package gdrive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"
	fileFields     = "id, name, mimeType, webViewLink, size, createdTime"
)

// driveAPI is the slice of the Drive v3 API the gateway relies on.
type driveAPI interface {
	FindFolders(ctx context.Context, name string) ([]*drive.File, error)
	FindFiles(ctx context.Context, folderID, name string) ([]*drive.File, error)
	CreateFolder(ctx context.Context, name string) (*drive.File, error)
	Upload(ctx context.Context, name, folderID, mimeType string, content []byte) (*drive.File, error)
	Share(ctx context.Context, fileID string, perm *drive.Permission) error
	Delete(ctx context.Context, fileID string) error
	Download(ctx context.Context, fileID string) ([]byte, error)
}

type serviceAPI struct {
	svc *drive.Service
}

func (s serviceAPI) list(ctx context.Context, q string) ([]*drive.File, error) {
	var out []*drive.File
	err := s.svc.Files.List().
		Q(q).
		Spaces("drive").
		OrderBy("createdTime").
		PageSize(100).
		Fields(googleapi.Field("nextPageToken, files(" + fileFields + ")")).
		Pages(ctx, func(page *drive.FileList) error {
			out = append(out, page.Files...)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s serviceAPI) FindFolders(ctx context.Context, name string) ([]*drive.File, error) {
	return s.list(ctx, folderQuery(name))
}

func (s serviceAPI) FindFiles(ctx context.Context, folderID, name string) ([]*drive.File, error) {
	return s.list(ctx, fileQuery(folderID, name))
}

func (s serviceAPI) CreateFolder(ctx context.Context, name string) (*drive.File, error) {
	return s.svc.Files.Create(&drive.File{Name: name, MimeType: folderMimeType}).
		Fields(googleapi.Field(fileFields)).
		Context(ctx).
		Do()
}

func (s serviceAPI) Upload(ctx context.Context, name, folderID, mimeType string, content []byte) (*drive.File, error) {
	meta := &drive.File{Name: name, Parents: []string{folderID}, MimeType: mimeType}
	return s.svc.Files.Create(meta).
		Media(bytes.NewReader(content), googleapi.ContentType(mimeType)).
		Fields(googleapi.Field(fileFields)).
		Context(ctx).
		Do()
}

func (s serviceAPI) Share(ctx context.Context, fileID string, perm *drive.Permission) error {
	call := s.svc.Permissions.Create(fileID, perm).Context(ctx)
	if perm.Type == "user" {
		call = call.SendNotificationEmail(false)
	}
	_, err := call.Do()
	return err
}

func (s serviceAPI) Delete(ctx context.Context, fileID string) error {
	return s.svc.Files.Delete(fileID).Context(ctx).Do()
}

func (s serviceAPI) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := s.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read drive media: %w", err)
	}
	return data, nil
}

func folderQuery(name string) string {
	return fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), folderMimeType)
}

func fileQuery(folderID, name string) string {
	return fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", escapeQuery(name), escapeQuery(folderID))
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}
