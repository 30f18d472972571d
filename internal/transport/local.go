package transport

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/melih-ucgun/certsync/internal/core"
)

// LocalSession treats a local directory as the device filesystem. Remote
// paths are resolved below Root, so "/certs/cacert.pem" maps to
// "<Root>/certs/cacert.pem".
type LocalSession struct {
	Root string
}

func NewLocalSession(root string) (*LocalSession, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("LocalSession could not be established: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("LocalSession could not be established: %s is not a directory", root)
	}
	return &LocalSession{Root: root}, nil
}

func (s *LocalSession) Close() error {
	return nil
}

func (s *LocalSession) resolve(remotePath string) string {
	return filepath.Join(s.Root, filepath.Clean("/"+remotePath))
}

func (s *LocalSession) IsFile(path string) (bool, error) {
	info, err := os.Stat(s.resolve(path))
	if err != nil {
		return false, remoteError("stat", path, err)
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("stat %s: %w", path, core.ErrNotRegular)
	}
	return true, nil
}

func (s *LocalSession) ReadAllBytes(path string) ([]byte, error) {
	data, err := os.ReadFile(s.resolve(path))
	if err != nil {
		return nil, remoteError("read", path, err)
	}
	return data, nil
}

func (s *LocalSession) DownloadTo(remotePath, localPath string, progress core.ProgressFunc) (bool, error) {
	src, err := os.Open(s.resolve(remotePath))
	if err != nil {
		return false, remoteError("open", remotePath, err)
	}
	defer src.Close()

	var total int64
	if info, err := src.Stat(); err == nil {
		total = info.Size()
	}
	if err := copyToNewFile(localPath, src, total, progress); err != nil {
		return false, err
	}
	return true, nil
}

func (s *LocalSession) WriteFile(localPath, remotePath string) (bool, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return false, err
	}
	defer src.Close()

	target := s.resolve(remotePath)
	dst, err := os.Create(target)
	if err != nil {
		return false, remoteError("create", remotePath, err)
	}
	n, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		return false, remoteError("write", remotePath, err)
	}
	if err := dst.Close(); err != nil {
		return false, remoteError("close", remotePath, err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return false, remoteError("stat", remotePath, err)
	}
	if info.Size() != n {
		return false, fmt.Errorf("%w: %s is %d bytes, expected %d", core.ErrSizeMismatch, remotePath, info.Size(), n)
	}
	return true, nil
}
