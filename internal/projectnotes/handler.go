package projectnotes

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docmanager-backend/internal/shared/server/middleware"
	"docmanager-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes mounts the note routes; the group must already require a token.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.create)
	rg.GET("", h.list)
	rg.GET("/:note_id", h.get)
	rg.PUT("/:note_id", h.update)
	rg.DELETE("/:note_id", h.delete)
	rg.GET("/:note_id/download", h.download)
}

func (h *Handler) create(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAttachmentSize+1<<20)
	title, ok := c.GetPostForm("title")
	if !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "title is required", nil)
		return
	}
	attachment, err := readAttachment(c)
	if err != nil {
		writeError(c, err, "failed to read attachment")
		return
	}
	note, err := h.Svc.Create(c.Request.Context(), middleware.UserEmailFromContext(c), Input{
		Title:       title,
		Description: c.PostForm("description"),
		Attachment:  attachment,
	})
	if err != nil {
		writeError(c, err, "failed to create project note")
		return
	}
	respond.OK(c, toResponse(note))
}

func (h *Handler) list(c *gin.Context) {
	notes, err := h.Svc.List(c.Request.Context(), middleware.UserEmailFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list project notes")
		return
	}
	out := make([]NoteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, toResponse(n))
	}
	respond.OK(c, out)
}

func (h *Handler) get(c *gin.Context) {
	note, err := h.Svc.Get(c.Request.Context(), middleware.UserEmailFromContext(c), c.Param("note_id"))
	if err != nil {
		writeError(c, err, "failed to load project note")
		return
	}
	respond.OK(c, toResponse(note))
}

func (h *Handler) update(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAttachmentSize+1<<20)
	var req UpdateRequest
	if err := c.ShouldBind(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	attachment, err := readAttachment(c)
	if err != nil {
		writeError(c, err, "failed to read attachment")
		return
	}
	note, err := h.Svc.Update(c.Request.Context(), middleware.UserEmailFromContext(c), c.Param("note_id"), Patch{
		Title:       req.Title,
		Description: req.Description,
		Attachment:  attachment,
	})
	if err != nil {
		writeError(c, err, "failed to update project note")
		return
	}
	respond.OK(c, toResponse(note))
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("note_id")
	removed, err := h.Svc.Delete(c.Request.Context(), middleware.UserEmailFromContext(c), id)
	if err != nil {
		writeError(c, err, "Error deleting project note")
		return
	}
	respond.OK(c, DeleteResponse{
		Message:           "Project note deleted successfully",
		DriveFilesDeleted: removed,
		NoteID:            id,
	})
}

func (h *Handler) download(c *gin.Context) {
	f, err := h.Svc.Download(c.Request.Context(), middleware.UserEmailFromContext(c), c.Param("note_id"))
	if err != nil {
		writeError(c, err, "Error downloading file from storage")
		return
	}
	respond.Attachment(c, f.Filename, f.ContentType, f.Content)
}

// readAttachment returns nil when the request carries no file part.
func readAttachment(c *gin.Context) (*Attachment, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, nil
	}
	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, ErrTooLarge
		}
		return nil, ErrInvalidInput
	}
	return openAttachment(fh)
}

func openAttachment(fh *multipart.FileHeader) (*Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, ErrInvalidInput
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, maxAttachmentSize+1))
	if err != nil {
		return nil, ErrInvalidInput
	}
	return &Attachment{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

func writeError(c *gin.Context, err error, internalMsg string) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "Only admins can manage project notes", nil)
	case errors.Is(err, ErrNoAttachment):
		respond.Error(c, http.StatusNotFound, "not_found", "No file attached to this note", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Project note not found", nil)
	case errors.Is(err, ErrTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", "File too large", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Internal(c, internalMsg, err)
	}
}
