package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// CertificateBlob is certificate content together with the path it was read from.
type CertificateBlob struct {
	Path    string
	Content []byte
}

// ReadAll reads a whole local file into memory. It never returns partial
// content: on failure the slice is nil.
func ReadAll(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// LoadCertificate reads a local certificate into a blob.
func LoadCertificate(path string) (*CertificateBlob, error) {
	data, err := ReadAll(path)
	if err != nil {
		return nil, err
	}
	return &CertificateBlob{Path: path, Content: data}, nil
}

// CreateExclusive creates path for writing and fails with ErrFileExists
// if something is already there.
func CreateExclusive(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("%w at %s", ErrFileExists, path)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// WriteNewFile writes content to a local path that must not exist yet.
// A failed write removes the partial file.
func WriteNewFile(content []byte, path string) error {
	f, err := CreateExclusive(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
