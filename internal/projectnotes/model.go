package projectnotes

import "time"

// Folder is the remote folder holding every note attachment.
const Folder = "project_notes"

// Note is an admin-only note with an optional attachment stored in Folder.
type Note struct {
	ID          string
	Title       string
	Description string
	FileID      string
	FileName    string
	FileType    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasAttachment reports whether the note carries a file.
func (n Note) HasAttachment() bool {
	return n.FileID != ""
}

// Attachment is a file supplied with a create or update.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}
