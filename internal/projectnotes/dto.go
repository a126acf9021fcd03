package projectnotes

import "time"

// NoteResponse mirrors Note; attachment fields are null when absent.
type NoteResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FileID      *string   `json:"file_id"`
	FileName    *string   `json:"file_name"`
	FileType    *string   `json:"file_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpdateRequest accepts JSON or form fields; omitted fields are unchanged.
type UpdateRequest struct {
	Title       *string `json:"title" form:"title"`
	Description *string `json:"description" form:"description"`
}

type DeleteResponse struct {
	Message           string `json:"message"`
	DriveFilesDeleted int    `json:"drive_files_deleted"`
	NoteID            string `json:"note_id"`
}

func toResponse(n Note) NoteResponse {
	return NoteResponse{
		ID:          n.ID,
		Title:       n.Title,
		Description: n.Description,
		FileID:      optional(n.FileID),
		FileName:    optional(n.FileName),
		FileType:    optional(n.FileType),
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
