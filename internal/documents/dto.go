package documents

import "time"

// UploadMetadata is the JSON envelope sent in the "document" form field.
type UploadMetadata struct {
	Filename     string `json:"filename"`
	DocumentType string `json:"document_type"`
	Email        string `json:"email"`
}

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	DocumentType string    `json:"document_type"`
	Email        string    `json:"email"`
	UploadedBy   string    `json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`
}

type ListResponse struct {
	Documents  []DocumentResponse `json:"documents"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PerPage    int                `json:"per_page"`
	TotalPages int                `json:"total_pages"`
}

type DeleteResponse struct {
	Message           string `json:"message"`
	DriveFilesDeleted int    `json:"drive_files_deleted"`
	Filename          string `json:"filename"`
}

type PreviewResponse struct {
	PreviewURL string `json:"preview_url"`
}

type UploaderResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullname"`
}

type RecentUploadResponse struct {
	ID           string           `json:"id"`
	Filename     string           `json:"filename"`
	DocumentType string           `json:"document_type"`
	CreatedAt    time.Time        `json:"created_at"`
	User         UploaderResponse `json:"user"`
}

func toResponse(doc Document, ownerEmail string) DocumentResponse {
	return DocumentResponse{
		ID:           doc.ID,
		Filename:     doc.Filename,
		DocumentType: doc.DocumentType,
		Email:        ownerEmail,
		UploadedBy:   doc.UploadedBy,
		CreatedAt:    doc.CreatedAt,
	}
}

func toListResponse(p Page) ListResponse {
	docs := make([]DocumentResponse, 0, len(p.Documents))
	for _, item := range p.Documents {
		email := item.Owner.Email
		if email == "" {
			email = "unknown"
		}
		docs = append(docs, toResponse(item.Document, email))
	}
	return ListResponse{
		Documents:  docs,
		Total:      p.Total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: p.TotalPages,
	}
}

func toRecentResponse(items []Listed) []RecentUploadResponse {
	out := make([]RecentUploadResponse, 0, len(items))
	for _, item := range items {
		out = append(out, RecentUploadResponse{
			ID:           item.ID,
			Filename:     item.Filename,
			DocumentType: item.DocumentType,
			CreatedAt:    item.CreatedAt,
			User: UploaderResponse{
				ID:       item.Owner.ID,
				Email:    item.Owner.Email,
				FullName: item.Owner.FullName,
			},
		})
	}
	return out
}
