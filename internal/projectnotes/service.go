package projectnotes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"docmanager-backend/internal/inspect"
	"docmanager-backend/internal/shared/storage/remote"
	"docmanager-backend/internal/shared/telemetry"
	"docmanager-backend/internal/shared/util"
	"docmanager-backend/internal/users"
)

const maxAttachmentSize = 10 << 20

var (
	titlePolicy       = bluemonday.StrictPolicy()
	descriptionPolicy = bluemonday.UGCPolicy()
)

// UserDirectory resolves the caller's account.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (users.User, error)
}

// Service manages project notes. Every operation requires an admin caller.
type Service struct {
	Repo   Repo
	Users  UserDirectory
	Remote remote.Gateway

	now func() time.Time
}

func NewService(repo Repo, dir UserDirectory, gw remote.Gateway) *Service {
	return &Service{Repo: repo, Users: dir, Remote: gw, now: time.Now}
}

// Input carries the fields for Create.
type Input struct {
	Title       string
	Description string
	Attachment  *Attachment
}

// Patch carries optional fields for Update. A nil field is left unchanged.
type Patch struct {
	Title       *string
	Description *string
	Attachment  *Attachment
}

func (s *Service) Create(ctx context.Context, callerEmail string, in Input) (Note, error) {
	if err := s.requireAdmin(ctx, callerEmail); err != nil {
		return Note{}, err
	}
	title := cleanTitle(in.Title)
	if title == "" {
		return Note{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	now := s.clock().UTC()
	note := Note{
		ID:          uuid.NewString(),
		Title:       title,
		Description: cleanDescription(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if in.Attachment != nil {
		fd, fileType, err := s.store(ctx, *in.Attachment)
		if err != nil {
			return Note{}, err
		}
		note.FileID, note.FileName, note.FileType = fd.ID, fd.Name, fileType
	}

	if err := s.Repo.Create(ctx, note); err != nil {
		if note.HasAttachment() {
			s.discard(ctx, note.FileID)
		}
		return Note{}, err
	}
	telemetry.Info("project_note.created", map[string]any{"note_id": note.ID, "file_name": note.FileName})
	return note, nil
}

func (s *Service) List(ctx context.Context, callerEmail string) ([]Note, error) {
	if err := s.requireAdmin(ctx, callerEmail); err != nil {
		return nil, err
	}
	return s.Repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, callerEmail, id string) (Note, error) {
	if err := s.requireAdmin(ctx, callerEmail); err != nil {
		return Note{}, err
	}
	if !validID(id) {
		return Note{}, ErrNotFound
	}
	return s.Repo.Get(ctx, id)
}

// Update applies p. A new attachment replaces the old one, which is removed
// from the remote folder once the row points at the new file.
func (s *Service) Update(ctx context.Context, callerEmail, id string, p Patch) (Note, error) {
	if err := s.requireAdmin(ctx, callerEmail); err != nil {
		return Note{}, err
	}
	if !validID(id) {
		return Note{}, ErrNotFound
	}
	note, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Note{}, err
	}
	if p.Title != nil {
		title := cleanTitle(*p.Title)
		if title == "" {
			return Note{}, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		note.Title = title
	}
	if p.Description != nil {
		note.Description = cleanDescription(*p.Description)
	}

	previous := note
	if p.Attachment != nil {
		fd, fileType, err := s.store(ctx, *p.Attachment)
		if err != nil {
			return Note{}, err
		}
		note.FileID, note.FileName, note.FileType = fd.ID, fd.Name, fileType
	}
	note.UpdatedAt = s.clock().UTC()

	if err := s.Repo.Update(ctx, note); err != nil {
		if p.Attachment != nil {
			s.discard(ctx, note.FileID)
		}
		return Note{}, err
	}
	if p.Attachment != nil && previous.HasAttachment() {
		if _, err := s.Remote.DeleteFiles(ctx, previous.FileName, Folder); err != nil {
			telemetry.Warn("project_note.old_attachment_kept", map[string]any{
				"note_id":   note.ID,
				"file_name": previous.FileName,
				"error":     err,
			})
		}
	}
	return note, nil
}

// Delete removes the note and its attachment. It returns how many remote
// files were removed.
func (s *Service) Delete(ctx context.Context, callerEmail, id string) (int, error) {
	if err := s.requireAdmin(ctx, callerEmail); err != nil {
		return 0, err
	}
	if !validID(id) {
		return 0, ErrNotFound
	}
	note, err := s.Repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	removed := 0
	if note.HasAttachment() {
		removed, err = s.Remote.DeleteFiles(ctx, note.FileName, Folder)
		if err != nil {
			return 0, fmt.Errorf("delete attachment: %w", err)
		}
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return 0, err
	}
	telemetry.Info("project_note.deleted", map[string]any{"note_id": id, "remote_deleted": removed})
	return removed, nil
}

// File is a downloaded attachment.
type File struct {
	Filename    string
	ContentType string
	Content     []byte
}

func (s *Service) Download(ctx context.Context, callerEmail, id string) (File, error) {
	if err := s.requireAdmin(ctx, callerEmail); err != nil {
		return File{}, err
	}
	if !validID(id) {
		return File{}, ErrNotFound
	}
	note, err := s.Repo.Get(ctx, id)
	if err != nil {
		return File{}, err
	}
	if !note.HasAttachment() {
		return File{}, ErrNoAttachment
	}
	content, err := s.Remote.DownloadFile(ctx, note.FileName, Folder)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return File{}, fmt.Errorf("%w: remote file missing", ErrNoAttachment)
		}
		return File{}, fmt.Errorf("download attachment: %w", err)
	}
	return File{
		Filename:    note.FileName,
		ContentType: inspect.ContentTypeFor(note.FileName),
		Content:     content,
	}, nil
}

// store saves a under a name no other note uses.
func (s *Service) store(ctx context.Context, a Attachment) (remote.FileDescriptor, string, error) {
	name, err := util.SanitizeFileName(a.Filename)
	if err != nil {
		return remote.FileDescriptor{}, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(a.Content) > maxAttachmentSize {
		return remote.FileDescriptor{}, "", ErrTooLarge
	}
	name, err = s.Remote.UniqueName(ctx, name, Folder)
	if err != nil {
		return remote.FileDescriptor{}, "", fmt.Errorf("resolve attachment name: %w", err)
	}
	fd, err := s.Remote.SaveFile(ctx, name, a.Content, Folder)
	if err != nil {
		return remote.FileDescriptor{}, "", fmt.Errorf("save attachment: %w", err)
	}
	fileType := strings.TrimSpace(a.ContentType)
	if fileType == "" {
		fileType = fd.MimeType
	}
	return fd, fileType, nil
}

func (s *Service) discard(ctx context.Context, fileID string) {
	if err := s.Remote.DeleteFileByID(context.WithoutCancel(ctx), fileID); err != nil {
		telemetry.Error("project_note.orphaned_attachment", map[string]any{"remote_id": fileID, "error": err})
	}
}

func (s *Service) requireAdmin(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrUnauthorized
	}
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if !u.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// validID reports whether id can name a stored note; ids are UUIDs.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func cleanTitle(s string) string {
	return strings.TrimSpace(titlePolicy.Sanitize(s))
}

func cleanDescription(s string) string {
	return strings.TrimSpace(descriptionPolicy.Sanitize(s))
}
