package documents

import "errors"

var (
	ErrNotFound        = errors.New("document not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrConflict        = errors.New("a file by that name is already loaded")
	ErrInvalidInput    = errors.New("invalid document data format")
	ErrUnsupportedType = errors.New("invalid file type")
	ErrOwnerNotFound   = errors.New("user does not exist")
	ErrTooLarge        = errors.New("file too large")
	ErrUnreadable      = errors.New("file content does not match its type")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")

	// ErrRemoteFileMissing means the registry row exists but the remote store has no such file.
	ErrRemoteFileMissing = errors.New("file not found in storage")
)
