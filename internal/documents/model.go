package documents

import "time"

// Document is a registry row describing one file stored in its owner's
// remote folder. Filename is unique per owner.
type Document struct {
	ID           string
	Filename     string
	DocumentType string
	UserID       string
	UploadedBy   string
	MimeType     string
	SizeBytes    int64
	RemoteID     string
	CreatedAt    time.Time
}

// Owner is the user a document belongs to, as shown in listings.
type Owner struct {
	ID       string
	Email    string
	FullName string
}

// Listed is a document joined with its owner.
type Listed struct {
	Document
	Owner Owner
}
