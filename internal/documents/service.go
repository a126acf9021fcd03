package documents

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docmanager-backend/internal/inspect"
	"docmanager-backend/internal/shared/metrics"
	"docmanager-backend/internal/shared/storage/remote"
	"docmanager-backend/internal/shared/telemetry"
	"docmanager-backend/internal/shared/util"
	"docmanager-backend/internal/users"
)

const (
	// MaxFileSize caps a single uploaded document.
	MaxFileSize = 10 << 20

	DefaultPerPage     = 5
	MaxPerPage         = 100
	DefaultRecentLimit = 10
	MaxRecentLimit     = 100
)

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
}

// UserDirectory resolves accounts by email or id.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (users.User, error)
	GetByID(ctx context.Context, userID string) (users.User, error)
}

// Service coordinates the registry, the remote store and account lookups.
type Service struct {
	Repo   Repo
	Users  UserDirectory
	Remote remote.Gateway
	// PublicFileLinks lets anyone download or preview without a token.
	PublicFileLinks bool
	MaxFileSize     int64

	now func() time.Time
}

func NewService(repo Repo, dir UserDirectory, gw remote.Gateway, publicLinks bool) *Service {
	return &Service{
		Repo:            repo,
		Users:           dir,
		Remote:          gw,
		PublicFileLinks: publicLinks,
		MaxFileSize:     MaxFileSize,
		now:             time.Now,
	}
}

// UploadInput is a parsed upload request.
type UploadInput struct {
	Filename      string
	DocumentType  string
	OwnerEmail    string
	UploaderEmail string
	Content       []byte
}

// Uploaded is the registered document along with its owner's email.
type Uploaded struct {
	Document
	OwnerEmail string
}

// Upload validates in, stores the file in the owner's folder and registers it.
// A file stored remotely whose registry insert fails is removed again.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Uploaded, error) {
	doc, owner, err := s.validateUpload(ctx, in)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			metrics.IncUploadsRejected(rejectReason(err))
		}
		return Uploaded{}, err
	}

	fd, err := s.Remote.SaveFile(ctx, doc.Filename, in.Content, owner.Email)
	if err != nil {
		return Uploaded{}, fmt.Errorf("save remote file: %w", err)
	}
	doc.RemoteID = fd.ID
	if fd.MimeType != "" {
		doc.MimeType = fd.MimeType
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		s.discardRemote(ctx, fd, owner.Email)
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrOwnerNotFound) {
			metrics.IncUploadsRejected(rejectReason(err))
		}
		return Uploaded{}, err
	}

	metrics.IncUploads()
	telemetry.Info("document.uploaded", map[string]any{
		"document_id": doc.ID,
		"owner":       owner.Email,
		"uploaded_by": doc.UploadedBy,
		"size_bytes":  doc.SizeBytes,
	})
	return Uploaded{Document: doc, OwnerEmail: owner.Email}, nil
}

func (s *Service) validateUpload(ctx context.Context, in UploadInput) (Document, users.User, error) {
	name, err := util.SanitizeFileName(in.Filename)
	if err != nil {
		return Document{}, users.User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !allowedExtensions[strings.ToLower(filepath.Ext(name))] {
		return Document{}, users.User{}, ErrUnsupportedType
	}

	ownerEmail := strings.TrimSpace(in.OwnerEmail)
	if ownerEmail == "" {
		return Document{}, users.User{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	owner, err := s.Users.GetByEmail(ctx, ownerEmail)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return Document{}, users.User{}, ErrOwnerNotFound
		}
		return Document{}, users.User{}, err
	}

	if _, err := s.Repo.GetByOwnerAndFilename(ctx, owner.ID, name); err == nil {
		return Document{}, users.User{}, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return Document{}, users.User{}, err
	}

	if int64(len(in.Content)) > s.maxFileSize() {
		return Document{}, users.User{}, ErrTooLarge
	}

	report, err := inspect.Inspect(ctx, in.Content, name)
	if err != nil {
		if errors.Is(err, inspect.ErrUnreadable) || errors.Is(err, inspect.ErrUnsupported) {
			return Document{}, users.User{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		return Document{}, users.User{}, err
	}

	return Document{
		ID:           uuid.NewString(),
		Filename:     name,
		DocumentType: strings.TrimSpace(in.DocumentType),
		UserID:       owner.ID,
		UploadedBy:   in.UploaderEmail,
		MimeType:     report.MIMEType,
		SizeBytes:    int64(len(in.Content)),
		CreatedAt:    s.clock().UTC(),
	}, owner, nil
}

func (s *Service) discardRemote(ctx context.Context, fd remote.FileDescriptor, folder string) {
	err := s.Remote.DeleteFileByID(context.WithoutCancel(ctx), fd.ID)
	fields := map[string]any{"remote_id": fd.ID, "folder": folder, "filename": fd.Name}
	if err != nil {
		fields["error"] = err
		telemetry.Error("document.orphaned_remote_file", fields)
		return
	}
	telemetry.Warn("document.remote_file_discarded", fields)
}

// DeleteResult reports what Delete removed.
type DeleteResult struct {
	Filename      string
	RemoteDeleted int
}

// Delete removes a document the caller owns, or any document for admins.
// Remote copies are removed first; a document whose remote file is already
// gone still has its registry row removed.
func (s *Service) Delete(ctx context.Context, documentID, callerEmail string) (DeleteResult, error) {
	if _, err := uuid.Parse(documentID); err != nil {
		return DeleteResult{}, ErrNotFound
	}
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return DeleteResult{}, err
	}
	owner, err := s.Users.GetByID(ctx, doc.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return DeleteResult{}, ErrUserNotFound
		}
		return DeleteResult{}, err
	}
	caller, err := s.caller(ctx, callerEmail)
	if err != nil {
		return DeleteResult{}, err
	}
	if !caller.IsAdmin() && caller.ID != owner.ID {
		return DeleteResult{}, ErrForbidden
	}

	removed, err := s.Remote.DeleteFiles(ctx, doc.Filename, owner.Email)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete remote files: %w", err)
	}
	if err := s.Repo.Delete(ctx, doc.ID); err != nil {
		return DeleteResult{}, err
	}

	metrics.IncDeletes()
	telemetry.Info("document.deleted", map[string]any{
		"document_id":    doc.ID,
		"owner":          owner.Email,
		"deleted_by":     caller.Email,
		"remote_deleted": removed,
	})
	return DeleteResult{Filename: doc.Filename, RemoteDeleted: removed}, nil
}

// Page is one page of a document listing.
type Page struct {
	Documents  []Listed
	Total      int
	Page       int
	PerPage    int
	TotalPages int
}

// List pages through documents visible to the caller. Admins see every
// document; other callers may only list their own.
func (s *Service) List(ctx context.Context, callerEmail, ownerEmail string, page, perPage int) (Page, error) {
	owner, err := s.Users.GetByEmail(ctx, ownerEmail)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return Page{}, ErrUserNotFound
		}
		return Page{}, err
	}
	caller, err := s.caller(ctx, callerEmail)
	if err != nil {
		return Page{}, err
	}
	if !caller.IsAdmin() && caller.ID != owner.ID {
		return Page{}, ErrForbidden
	}

	page, perPage = normalizePage(page, perPage)
	offset := (page - 1) * perPage

	var (
		rows  []Listed
		total int
	)
	if caller.IsAdmin() {
		rows, total, err = s.Repo.ListAll(ctx, perPage, offset)
	} else {
		rows, total, err = s.Repo.ListByOwner(ctx, owner.ID, perPage, offset)
	}
	if err != nil {
		return Page{}, err
	}
	return Page{
		Documents:  rows,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: (total + perPage - 1) / perPage,
	}, nil
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// File is a downloaded document.
type File struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Download fetches a registered document's bytes from its owner's folder.
func (s *Service) Download(ctx context.Context, callerEmail, ownerEmail, filename string) (File, error) {
	owner, err := s.Users.GetByEmail(ctx, ownerEmail)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return File{}, ErrUserNotFound
		}
		return File{}, err
	}
	if err := s.authorizeFileAccess(ctx, callerEmail, owner); err != nil {
		return File{}, err
	}
	doc, err := s.Repo.GetByOwnerAndFilename(ctx, owner.ID, filename)
	if err != nil {
		return File{}, err
	}

	content, err := s.Remote.DownloadFile(ctx, doc.Filename, owner.Email)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return File{}, ErrRemoteFileMissing
		}
		return File{}, fmt.Errorf("download remote file: %w", err)
	}
	metrics.IncDownloads()
	return File{
		Filename:    doc.Filename,
		ContentType: inspect.ContentTypeFor(doc.Filename),
		Content:     content,
	}, nil
}

// PreviewURL returns the remote view link for a file in the owner's folder.
func (s *Service) PreviewURL(ctx context.Context, callerEmail, ownerEmail, filename string) (string, error) {
	if !s.PublicFileLinks {
		owner, err := s.Users.GetByEmail(ctx, ownerEmail)
		if err != nil {
			if errors.Is(err, users.ErrNotFound) {
				return "", ErrUserNotFound
			}
			return "", err
		}
		if err := s.authorizeFileAccess(ctx, callerEmail, owner); err != nil {
			return "", err
		}
	}
	link, err := s.Remote.PreviewURL(ctx, filename, ownerEmail)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) || errors.Is(err, remote.ErrInvalidName) {
			return "", ErrRemoteFileMissing
		}
		return "", fmt.Errorf("preview remote file: %w", err)
	}
	return link, nil
}

// Recent returns the newest uploads across all owners.
func (s *Service) Recent(ctx context.Context, limit int) ([]Listed, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	return s.Repo.Recent(ctx, limit)
}

func (s *Service) authorizeFileAccess(ctx context.Context, callerEmail string, owner users.User) error {
	if s.PublicFileLinks {
		return nil
	}
	caller, err := s.caller(ctx, callerEmail)
	if err != nil {
		return err
	}
	if !caller.IsAdmin() && caller.ID != owner.ID {
		return ErrForbidden
	}
	return nil
}

func (s *Service) caller(ctx context.Context, email string) (users.User, error) {
	if strings.TrimSpace(email) == "" {
		return users.User{}, ErrUnauthorized
	}
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.User{}, ErrUnauthorized
		}
		return users.User{}, err
	}
	return u, nil
}

func (s *Service) maxFileSize() int64 {
	if s.MaxFileSize <= 0 {
		return MaxFileSize
	}
	return s.MaxFileSize
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedType):
		return "type"
	case errors.Is(err, ErrOwnerNotFound):
		return "owner"
	case errors.Is(err, ErrConflict):
		return "duplicate"
	case errors.Is(err, ErrTooLarge):
		return "size"
	case errors.Is(err, ErrUnreadable):
		return "content"
	default:
		return "invalid"
	}
}
