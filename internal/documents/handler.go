package documents

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"docmanager-backend/internal/shared/server/middleware"
	"docmanager-backend/internal/shared/server/respond"
)

// envelopeAllowance covers multipart framing and the metadata part on top of the file itself.
const envelopeAllowance = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes. authed guards every route except
// download and preview, which use fileAccess.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authed, fileAccess gin.HandlerFunc) {
	rg.POST("/upload", authed, h.upload)
	rg.DELETE("/delete/:document_id", authed, h.delete)
	rg.GET("/documents/:email", authed, h.list)
	rg.GET("/recent-uploads", authed, h.recent)
	rg.GET("/download/:email/:filename", fileAccess, h.download)
	rg.GET("/preview/:email/:filename", fileAccess, h.preview)
}

func (h *Handler) upload(c *gin.Context) {
	limit := h.Svc.maxFileSize()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+envelopeAllowance)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", "File too large", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	var meta UploadMetadata
	if err := json.Unmarshal([]byte(c.PostForm("document")), &meta); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid document data format", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	filename := fileHeader.Filename
	if strings.TrimSpace(filename) == "" {
		filename = meta.Filename
	}
	out, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		Filename:      filename,
		DocumentType:  meta.DocumentType,
		OwnerEmail:    meta.Email,
		UploaderEmail: middleware.UserEmailFromContext(c),
		Content:       content,
	})
	if err != nil {
		writeError(c, err, "Error adding file")
		return
	}
	c.Set(middleware.DocumentIDKey, out.ID)
	respond.OK(c, toResponse(out.Document, out.OwnerEmail))
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("document_id")
	c.Set(middleware.DocumentIDKey, id)

	res, err := h.Svc.Delete(c.Request.Context(), id, middleware.UserEmailFromContext(c))
	if err != nil {
		writeError(c, err, "Error deleting file")
		return
	}
	respond.OK(c, DeleteResponse{
		Message:           "File deleted successfully",
		DriveFilesDeleted: res.RemoteDeleted,
		Filename:          res.Filename,
	})
}

func (h *Handler) list(c *gin.Context) {
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", DefaultPerPage)

	p, err := h.Svc.List(c.Request.Context(), middleware.UserEmailFromContext(c), c.Param("email"), page, perPage)
	if err != nil {
		writeError(c, err, "failed to list documents")
		return
	}
	respond.OK(c, toListResponse(p))
}

func (h *Handler) download(c *gin.Context) {
	f, err := h.Svc.Download(c.Request.Context(), middleware.UserEmailFromContext(c), c.Param("email"), c.Param("filename"))
	if err != nil {
		writeError(c, err, "Error downloading file from storage")
		return
	}
	respond.Attachment(c, f.Filename, f.ContentType, f.Content)
}

func (h *Handler) preview(c *gin.Context) {
	link, err := h.Svc.PreviewURL(c.Request.Context(), middleware.UserEmailFromContext(c), c.Param("email"), c.Param("filename"))
	if err != nil {
		writeError(c, err, "failed to resolve preview link")
		return
	}
	respond.OK(c, PreviewResponse{PreviewURL: link})
}

func (h *Handler) recent(c *gin.Context) {
	items, err := h.Svc.Recent(c.Request.Context(), queryInt(c, "limit", DefaultRecentLimit))
	if err != nil {
		writeError(c, err, "Error fetching recent uploads")
		return
	}
	respond.OK(c, toRecentResponse(items))
}

func writeError(c *gin.Context, err error, internalMsg string) {
	switch {
	case errors.Is(err, ErrUnsupportedType):
		respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid file type", nil)
	case errors.Is(err, ErrOwnerNotFound):
		respond.Error(c, http.StatusBadRequest, "validation_error", "User does not exist", nil)
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusBadRequest, "conflict", "A file by that name is already loaded", nil)
	case errors.Is(err, ErrTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", "File too large", nil)
	case errors.Is(err, ErrUnreadable):
		respond.Error(c, http.StatusBadRequest, "validation_error", "File content does not match its type", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid document data format", nil)
	case errors.Is(err, ErrUnauthorized):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "Not authorized to access this file", nil)
	case errors.Is(err, ErrUserNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "User not found", nil)
	case errors.Is(err, ErrRemoteFileMissing):
		respond.Error(c, http.StatusNotFound, "not_found", "File not found in storage", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "File not found", nil)
	default:
		respond.Internal(c, internalMsg, err)
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
