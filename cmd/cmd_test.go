package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/melih-ucgun/certsync/internal/core"
	"github.com/melih-ucgun/certsync/internal/state"
	"github.com/melih-ucgun/certsync/internal/transport"
)

const remoteCert = "/certs/cacert.pem"

func newDeviceRoot(t *testing.T, content string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "certs"), 0o755))
	if content != "" {
		require.NoError(t, os.WriteFile(filepath.Join(root, "certs", "cacert.pem"), []byte(content), 0o644))
	}
	return root
}

func TestFetchCertificate(t *testing.T) {
	session, err := transport.NewLocalSession(newDeviceRoot(t, "BBB"))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "smp.pem")
	data, err := fetchCertificate(session, remoteCert, out)
	require.NoError(t, err)
	assert.Equal(t, []byte("BBB"), data)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "BBB", string(got))
}

func TestFetchCertificate_NeverOverwrites(t *testing.T) {
	session, err := transport.NewLocalSession(newDeviceRoot(t, "BBB"))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "smp.pem")
	require.NoError(t, os.WriteFile(out, []byte("keep me"), 0o644))

	_, err = fetchCertificate(session, remoteCert, out)
	assert.ErrorIs(t, err, core.ErrFileExists)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(got))
}

func TestFetchCertificate_RemoteMissing(t *testing.T) {
	session, err := transport.NewLocalSession(newDeviceRoot(t, ""))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "smp.pem")
	_, err = fetchCertificate(session, remoteCert, out)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoFileExists(t, out)
}

func TestRollbackChanges(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "smp-1_backup.pem")
	require.NoError(t, os.WriteFile(backup, []byte("OLD"), 0o644))

	sessions := map[string]*transport.MemorySession{
		"smp-1": transport.NewMemorySession().AddFile(remoteCert, []byte("NEW")),
		"smp-2": transport.NewMemorySession().AddFile(remoteCert, []byte("SAME")),
	}
	var connected []string
	connect := func(ctx context.Context, hostName string) (core.Session, error) {
		connected = append(connected, hostName)
		return sessions[hostName], nil
	}

	changes := []state.TransactionChange{
		{Host: "smp-1", Target: remoteCert, Action: state.ActionUpdated, BackupPath: backup},
		{Host: "smp-2", Target: remoteCert, Action: state.ActionUnchanged, BackupPath: backup},
	}

	restored, err := rollbackChanges(context.Background(), changes, connect)
	require.NoError(t, err)
	require.Len(t, restored, 1)
	assert.Equal(t, "smp-1", restored[0].Host)
	assert.Equal(t, state.ActionRolledBack, restored[0].Action)

	assert.Equal(t, []string{"smp-1"}, connected, "only updated hosts are contacted")
	assert.Equal(t, []byte("OLD"), sessions["smp-1"].Files[remoteCert])
	assert.True(t, sessions["smp-1"].Closed)
	assert.Equal(t, []byte("SAME"), sessions["smp-2"].Files[remoteCert])
	assert.Equal(t, 0, sessions["smp-2"].Writes)
}

func TestRollbackChanges_MissingBackup(t *testing.T) {
	connect := func(ctx context.Context, hostName string) (core.Session, error) {
		t.Fatalf("connected to %s without a usable backup", hostName)
		return nil, nil
	}

	changes := []state.TransactionChange{
		{Host: "smp-1", Target: remoteCert, Action: state.ActionUpdated, BackupPath: filepath.Join(t.TempDir(), "gone.pem")},
		{Host: "smp-2", Target: remoteCert, Action: state.ActionUpdated},
	}

	restored, err := rollbackChanges(context.Background(), changes, connect)
	assert.Empty(t, restored)
	assert.ErrorContains(t, err, "backup file not found")
	assert.ErrorContains(t, err, "no backup available")
}

func TestRenderOutcomes(t *testing.T) {
	out := core.NewOutcome("smp")
	out.Changed = true
	out.Msg = "Wrote cacert.pem to smp:/certs/cacert.pem"
	outcomes := []*core.Outcome{out}

	var buf bytes.Buffer
	require.NoError(t, renderOutcomes(&buf, "", outcomes))
	assert.Empty(t, buf.String())

	require.NoError(t, renderOutcomes(&buf, "json", outcomes))
	var records []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "smp", records[0]["host"])
	assert.Equal(t, true, records[0]["changed"])

	buf.Reset()
	require.NoError(t, renderOutcomes(&buf, "YAML", outcomes))
	records = nil
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, out.Msg, records[0]["msg"])

	assert.Error(t, renderOutcomes(&buf, "xml", outcomes))
}

func TestSync_JSONOutputKeepsStdoutClean(t *testing.T) {
	root := newDeviceRoot(t, "BBB")
	cert := filepath.Join(t.TempDir(), "cacert.pem")
	require.NoError(t, os.WriteFile(cert, []byte("AAA"), 0o644))

	cfg := map[string]any{
		"certificate": cert,
		"history_dir": t.TempDir(),
		"hosts": []map[string]any{
			{"name": "bench", "connection": "local", "root": root},
		},
	}
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	cfgPath := filepath.Join(t.TempDir(), "certsync.yaml")
	require.NoError(t, os.WriteFile(cfgPath, data, 0o600))

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"sync", "-c", cfgPath, "-o", "json", "--no-history"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		setupConsole(os.Stdout, false)
	})

	require.NoError(t, rootCmd.Execute())

	var records []map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &records), "stdout: %s", stdout.String())
	require.Len(t, records, 1)
	assert.Equal(t, "bench", records[0]["host"])
	assert.Equal(t, true, records[0]["changed"])
	assert.Contains(t, stderr.String(), "bench")

	got, err := os.ReadFile(filepath.Join(root, "certs", "cacert.pem"))
	require.NoError(t, err)
	assert.Equal(t, "AAA", string(got))
}

func TestLoadConfig_RejectsDuplicateHosts(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "certsync.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
certificate: cacert.pem
hosts:
  - name: bench
    connection: local
    root: /srv/a
  - name: bench
    connection: local
    root: /srv/b
`), 0o600))

	cmd := &cobra.Command{}
	cmd.Flags().String("config", cfgPath, "")

	_, err := loadConfig(cmd)
	assert.ErrorContains(t, err, "bench is defined more than once")
}
