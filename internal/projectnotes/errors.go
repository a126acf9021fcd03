package projectnotes

import "errors"

var (
	ErrNotFound     = errors.New("project note not found")
	ErrNoAttachment = errors.New("no file attached to this note")
	ErrInvalidInput = errors.New("invalid input")
	ErrTooLarge     = errors.New("file too large")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("only admins can manage project notes")
)
