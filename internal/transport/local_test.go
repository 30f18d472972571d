package transport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/melih-ucgun/certsync/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeviceRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "certs"), 0o755))
	return root
}

func TestNewLocalSession(t *testing.T) {
	_, err := NewLocalSession(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "LocalSession could not be established")

	s, err := NewLocalSession(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestLocalSession_RoundTrip(t *testing.T) {
	root := newDeviceRoot(t)
	s, err := NewLocalSession(root)
	require.NoError(t, err)

	ok, err := s.IsFile("/certs/cacert.pem")
	assert.False(t, ok)
	assert.ErrorIs(t, err, core.ErrNotFound)

	ok, err = s.IsFile("/certs")
	assert.False(t, ok)
	assert.ErrorIs(t, err, core.ErrNotRegular)

	local := filepath.Join(t.TempDir(), "cacert.pem")
	require.NoError(t, os.WriteFile(local, []byte("AAA"), 0o644))

	ok, err = s.WriteFile(local, "/certs/cacert.pem")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.FileExists(t, filepath.Join(root, "certs", "cacert.pem"))

	ok, err = s.IsFile("/certs/cacert.pem")
	assert.True(t, ok)
	assert.NoError(t, err)

	data, err := s.ReadAllBytes("/certs/cacert.pem")
	require.NoError(t, err)
	assert.Equal(t, []byte("AAA"), data)

	backup := filepath.Join(t.TempDir(), "backup.pem")
	ok, err = s.DownloadTo("/certs/cacert.pem", backup, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.DownloadTo("/certs/cacert.pem", backup, nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, core.ErrFileExists)
}

func TestLocalSession_StaysBelowRoot(t *testing.T) {
	root := newDeviceRoot(t)
	s, err := NewLocalSession(root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "etc", "passwd"), s.resolve("../../etc/passwd"))
}

func TestMemorySession(t *testing.T) {
	m := NewMemorySession().AddFile("/certs/cacert.pem", []byte("AAA"))
	m.Dirs["/certs"] = true

	ok, err := m.IsFile("/certs/cacert.pem")
	assert.True(t, ok)
	assert.NoError(t, err)

	_, err = m.IsFile("/certs")
	assert.ErrorIs(t, err, core.ErrNotRegular)

	_, err = m.ReadAllBytes("/missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	local := filepath.Join(t.TempDir(), "new.pem")
	require.NoError(t, os.WriteFile(local, []byte("BBB"), 0o644))
	ok, err = m.WriteFile(local, "/certs/cacert.pem")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("BBB"), m.Files["/certs/cacert.pem"])
	assert.Equal(t, 1, m.Writes)

	require.NoError(t, m.Close())
	assert.True(t, m.Closed)
}
