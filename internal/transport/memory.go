package transport

import (
	"fmt"
	"os"

	"github.com/melih-ucgun/certsync/internal/core"
)

// MemorySession is an in-memory Session for tests. Errors registered per
// operation are returned instead of touching Files.
type MemorySession struct {
	Files map[string][]byte
	Dirs  map[string]bool

	StatErr     error
	ReadErr     error
	DownloadErr error
	WriteErr    error

	Reads     int
	Downloads int
	Writes    int
	Closed    bool
}

func NewMemorySession() *MemorySession {
	return &MemorySession{
		Files: make(map[string][]byte),
		Dirs:  make(map[string]bool),
	}
}

// AddFile stores content at path.
func (m *MemorySession) AddFile(path string, content []byte) *MemorySession {
	m.Files[path] = append([]byte(nil), content...)
	return m
}

func (m *MemorySession) Close() error {
	m.Closed = true
	return nil
}

func (m *MemorySession) IsFile(path string) (bool, error) {
	if m.StatErr != nil {
		return false, m.StatErr
	}
	if m.Dirs[path] {
		return false, fmt.Errorf("stat %s: %w", path, core.ErrNotRegular)
	}
	if _, ok := m.Files[path]; !ok {
		return false, fmt.Errorf("stat %s: %w", path, core.ErrNotFound)
	}
	return true, nil
}

func (m *MemorySession) ReadAllBytes(path string) ([]byte, error) {
	m.Reads++
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	data, ok := m.Files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, core.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemorySession) DownloadTo(remotePath, localPath string, progress core.ProgressFunc) (bool, error) {
	m.Downloads++
	if m.DownloadErr != nil {
		return false, m.DownloadErr
	}
	data, ok := m.Files[remotePath]
	if !ok {
		return false, fmt.Errorf("open %s: %w", remotePath, core.ErrNotFound)
	}
	if err := core.WriteNewFile(data, localPath); err != nil {
		return false, err
	}
	if progress != nil {
		progress(int64(len(data)), int64(len(data)))
	}
	return true, nil
}

func (m *MemorySession) WriteFile(localPath, remotePath string) (bool, error) {
	m.Writes++
	if m.WriteErr != nil {
		return false, m.WriteErr
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return false, err
	}
	m.Files[remotePath] = data
	return true, nil
}
