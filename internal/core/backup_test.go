package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackupFileName(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 123456000, time.UTC)

	got := BackupFileName("smp-01", at)
	want := "smp-01_2024-03-09T14:05:07.123456.pem"
	if got != want {
		t.Errorf("BackupFileName() = %s, want %s", got, want)
	}

	if got := BackupFileName("a/b", at); got != "a_b_2024-03-09T14:05:07.123456.pem" {
		t.Errorf("host with separator not sanitised: %s", got)
	}
}

func TestBackupPath_UniquePerMicrosecond(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	first := BackupPath("/tmp/backups", "smp", at)
	second := BackupPath("/tmp/backups", "smp", at.Add(time.Microsecond))
	if first == second {
		t.Errorf("expected distinct paths, both are %s", first)
	}
	if filepath.Dir(first) != "/tmp/backups" {
		t.Errorf("unexpected dir for %s", first)
	}
}

func TestCheckBackupDir(t *testing.T) {
	dir := t.TempDir()
	if err := CheckBackupDir(dir); err != nil {
		t.Errorf("existing dir rejected: %v", err)
	}
	if err := CheckBackupDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("missing dir accepted")
	}
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	if err := CheckBackupDir(file); err == nil {
		t.Error("regular file accepted as backup dir")
	}
}
