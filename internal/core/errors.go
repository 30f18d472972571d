package core

import "errors"

var (
	// ErrNotFound is wrapped by session errors for paths that do not exist.
	ErrNotFound = errors.New("file not found")

	// ErrNotRegular marks paths that exist but are not regular files.
	ErrNotRegular = errors.New("not a regular file")

	// ErrInvalidCredentials is returned before any network activity when
	// a credential field is missing.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrFileExists is returned when a local write would overwrite a file.
	ErrFileExists = errors.New("file already exists")

	// ErrSizeMismatch is returned when an upload cannot be confirmed.
	ErrSizeMismatch = errors.New("size mismatch after transfer")
)

// IsNotFound reports whether err means the path does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
