package core

import (
	"fmt"
	"io"
)

// ProgressFunc receives the number of bytes copied so far and the expected total.
type ProgressFunc func(transferred, total int64)

// Session is the set of file operations a reconciliation needs from a
// remote device. Implementations are not safe for concurrent use.
type Session interface {
	io.Closer

	// IsFile reports whether path exists and is a regular file.
	// A missing path yields false and an error wrapping ErrNotFound.
	IsFile(path string) (bool, error)

	// ReadAllBytes returns the whole content of path.
	ReadAllBytes(path string) ([]byte, error)

	// DownloadTo copies remotePath into a new local file at localPath.
	DownloadTo(remotePath, localPath string, progress ProgressFunc) (bool, error)

	// WriteFile uploads localPath to remotePath and confirms the result.
	WriteFile(localPath, remotePath string) (bool, error)
}

// Credentials holds what is needed to open an authenticated session.
type Credentials struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"-"`
}

// Validate rejects credentials with any missing field.
func (c Credentials) Validate() error {
	switch {
	case c.Host == "":
		return fmt.Errorf("%w: invalid host: %q", ErrInvalidCredentials, c.Host)
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidCredentials, c.Port)
	case c.Username == "":
		return fmt.Errorf("%w: invalid username: %q", ErrInvalidCredentials, c.Username)
	case c.Password == "":
		return fmt.Errorf("%w: password is required", ErrInvalidCredentials)
	}
	return nil
}

// Address returns host:port.
func (c Credentials) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
