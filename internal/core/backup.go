package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BackupTimeLayout keeps microseconds so repeated runs on the same day
// never collide.
const BackupTimeLayout = "2006-01-02T15:04:05.000000"

// BackupFileName returns "<host>_<timestamp>.pem".
func BackupFileName(host string, at time.Time) string {
	safeHost := strings.NewReplacer("/", "_", `\`, "_").Replace(host)
	return fmt.Sprintf("%s_%s.pem", safeHost, at.Format(BackupTimeLayout))
}

// BackupPath joins the backup directory and BackupFileName.
func BackupPath(dir, host string, at time.Time) string {
	return filepath.Join(dir, BackupFileName(host, at))
}

// CheckBackupDir requires dir to exist already. It is never created.
func CheckBackupDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
