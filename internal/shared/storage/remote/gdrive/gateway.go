package gdrive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"docmanager-backend/internal/shared/storage/remote"
	"docmanager-backend/internal/shared/telemetry"
	"docmanager-backend/internal/shared/util"
)

// Gateway implements remote.Gateway on Google Drive with one folder per namespace.
type Gateway struct {
	api        driveAPI
	shareEmail string
	folders    singleflight.Group
}

// New builds a Drive gateway from a service-account credentials file.
// shareEmail, when set, is granted writer access to every folder the gateway creates.
func New(ctx context.Context, credentialsFile, shareEmail string) (*Gateway, error) {
	if strings.TrimSpace(credentialsFile) == "" {
		return nil, errors.New("drive credentials file is required")
	}
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read drive credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("parse drive credentials: %w", err)
	}
	svc, err := drive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return NewFromService(svc, shareEmail), nil
}

// NewFromService wraps an existing Drive client.
func NewFromService(svc *drive.Service, shareEmail string) *Gateway {
	return newWithAPI(serviceAPI{svc: svc}, shareEmail)
}

func newWithAPI(api driveAPI, shareEmail string) *Gateway {
	return &Gateway{api: api, shareEmail: strings.TrimSpace(shareEmail)}
}

// EnsureFolder returns the id of the non-trashed folder with exactly this name,
// creating and sharing it when absent. Concurrent callers in this process share
// one lookup; if another process created the same folder meanwhile, the oldest
// folder wins and the one just created is removed.
func (g *Gateway) EnsureFolder(ctx context.Context, name string) (string, error) {
	if err := remote.ValidateName(name); err != nil {
		return "", err
	}
	v, err, _ := g.folders.Do(name, func() (any, error) {
		return g.ensureFolder(ctx, name)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (g *Gateway) ensureFolder(ctx context.Context, name string) (string, error) {
	existing, err := g.api.FindFolders(ctx, name)
	if err != nil {
		return "", fmt.Errorf("find folder %q: %w", name, err)
	}
	if len(existing) > 0 {
		return existing[0].Id, nil
	}

	created, err := g.api.CreateFolder(ctx, name)
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}

	all, err := g.api.FindFolders(ctx, name)
	if err == nil && len(all) > 0 && all[0].Id != created.Id {
		if derr := g.api.Delete(ctx, created.Id); derr != nil {
			telemetry.Warn("drive.duplicate_folder_cleanup_failed", map[string]any{
				"folder":    name,
				"folder_id": created.Id,
				"error":     derr,
			})
		}
		return all[0].Id, nil
	}

	g.shareFolder(ctx, name, created.Id)
	return created.Id, nil
}

func (g *Gateway) shareFolder(ctx context.Context, name, folderID string) {
	perms := []*drive.Permission{
		{Type: "anyone", Role: "reader", AllowFileDiscovery: false, ForceSendFields: []string{"AllowFileDiscovery"}},
	}
	if g.shareEmail != "" {
		perms = append([]*drive.Permission{{Type: "user", Role: "writer", EmailAddress: g.shareEmail}}, perms...)
	}
	for _, p := range perms {
		if err := g.api.Share(ctx, folderID, p); err != nil {
			telemetry.Warn("drive.share_failed", map[string]any{
				"folder": name,
				"type":   p.Type,
				"role":   p.Role,
				"error":  err,
			})
		}
	}
}

// lookupFolder finds an existing folder without creating one.
func (g *Gateway) lookupFolder(ctx context.Context, name string) (string, bool, error) {
	if err := remote.ValidateName(name); err != nil {
		return "", false, err
	}
	folders, err := g.api.FindFolders(ctx, name)
	if err != nil {
		return "", false, fmt.Errorf("find folder %q: %w", name, err)
	}
	if len(folders) == 0 {
		return "", false, nil
	}
	return folders[0].Id, true, nil
}

func (g *Gateway) findFile(ctx context.Context, filename, folderName string) (*drive.File, error) {
	if err := remote.ValidateName(filename); err != nil {
		return nil, err
	}
	folderID, ok, err := g.lookupFolder(ctx, folderName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, remote.ErrNotFound
	}
	files, err := g.api.FindFiles(ctx, folderID, filename)
	if err != nil {
		return nil, fmt.Errorf("find file %q: %w", filename, err)
	}
	if len(files) == 0 {
		return nil, remote.ErrNotFound
	}
	return files[0], nil
}

func (g *Gateway) SaveFile(ctx context.Context, filename string, content []byte, folderName string) (remote.FileDescriptor, error) {
	if err := remote.ValidateName(filename); err != nil {
		return remote.FileDescriptor{}, err
	}
	folderID, err := g.EnsureFolder(ctx, folderName)
	if err != nil {
		return remote.FileDescriptor{}, err
	}
	mimeType := util.DetectMIME(content)
	f, err := g.api.Upload(ctx, filename, folderID, mimeType, content)
	if err != nil {
		return remote.FileDescriptor{}, fmt.Errorf("upload %q: %w", filename, err)
	}
	if f == nil || f.Id == "" {
		return remote.FileDescriptor{}, fmt.Errorf("upload %q: empty response", filename)
	}
	size := f.Size
	if size == 0 {
		size = int64(len(content))
	}
	mt := f.MimeType
	if mt == "" {
		mt = mimeType
	}
	return remote.FileDescriptor{
		ID:          f.Id,
		Name:        f.Name,
		WebViewLink: f.WebViewLink,
		MimeType:    mt,
		Size:        size,
	}, nil
}

// DeleteFiles removes every non-trashed file named filename in the folder and
// returns how many deletes succeeded. A missing folder counts as zero matches.
func (g *Gateway) DeleteFiles(ctx context.Context, filename, folderName string) (int, error) {
	if err := remote.ValidateName(filename); err != nil {
		return 0, err
	}
	folderID, ok, err := g.lookupFolder(ctx, folderName)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	files, err := g.api.FindFiles(ctx, folderID, filename)
	if err != nil {
		return 0, fmt.Errorf("find file %q: %w", filename, err)
	}
	deleted := 0
	for _, f := range files {
		if err := g.api.Delete(ctx, f.Id); err != nil {
			telemetry.Warn("drive.delete_failed", map[string]any{
				"folder":  folderName,
				"file_id": f.Id,
				"error":   err,
			})
			continue
		}
		deleted++
	}
	return deleted, nil
}

func (g *Gateway) DeleteFileByID(ctx context.Context, id string) error {
	if err := g.api.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return remote.ErrNotFound
		}
		return fmt.Errorf("delete %q: %w", id, err)
	}
	return nil
}

func (g *Gateway) DownloadFile(ctx context.Context, filename, folderName string) ([]byte, error) {
	f, err := g.findFile(ctx, filename, folderName)
	if err != nil {
		return nil, err
	}
	data, err := g.api.Download(ctx, f.Id)
	if err != nil {
		if isNotFound(err) {
			return nil, remote.ErrNotFound
		}
		return nil, fmt.Errorf("download %q: %w", filename, err)
	}
	return data, nil
}

func (g *Gateway) PreviewURL(ctx context.Context, filename, folderName string) (string, error) {
	f, err := g.findFile(ctx, filename, folderName)
	if err != nil {
		return "", err
	}
	return f.WebViewLink, nil
}

func (g *Gateway) UniqueName(ctx context.Context, filename, folderName string) (string, error) {
	folderID, ok, err := g.lookupFolder(ctx, folderName)
	if err != nil {
		return "", err
	}
	if !ok {
		if err := remote.ValidateName(filename); err != nil {
			return "", err
		}
		return filename, nil
	}
	return remote.ResolveUniqueName(ctx, filename, func(ctx context.Context, name string) (bool, error) {
		files, err := g.api.FindFiles(ctx, folderID, name)
		if err != nil {
			return false, err
		}
		return len(files) > 0, nil
	})
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

var _ remote.Gateway = (*Gateway)(nil)
