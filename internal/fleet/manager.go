package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pterm/pterm"

	"github.com/melih-ucgun/certsync/internal/config"
	"github.com/melih-ucgun/certsync/internal/core"
	"github.com/melih-ucgun/certsync/internal/reconcile"
	"github.com/melih-ucgun/certsync/internal/state"
	"github.com/melih-ucgun/certsync/internal/transport"
)

// Settings are the connection settings shared by every host.
type Settings struct {
	Timeout    time.Duration
	KnownHosts string
	Logger     *slog.Logger
}

// Dialer returns the session factory matching the host's connection type.
func (s Settings) Dialer(h config.Host) (reconcile.Dialer, error) {
	if h.Connection == config.ConnectionLocal {
		root := h.Root
		return func(ctx context.Context, _ core.Credentials) (core.Session, error) {
			session, err := transport.NewLocalSession(root)
			if err != nil {
				return nil, err
			}
			return session, nil
		}, nil
	}

	opts := []transport.Option{transport.WithTimeout(s.Timeout), transport.WithLogger(s.Logger)}
	if s.KnownHosts != "" {
		cb, err := transport.KnownHostsCallback(s.KnownHosts)
		if err != nil {
			return nil, err
		}
		opts = append(opts, transport.WithHostKeyCallback(cb))
	}
	return transport.SFTPDialer(opts...), nil
}

// Connect opens a session to a single host.
func (s Settings) Connect(ctx context.Context, h config.Host) (core.Session, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	dial, err := s.Dialer(h)
	if err != nil {
		return nil, err
	}
	return dial(ctx, h.Credentials())
}

// FleetManager reconciles the certificate on a list of hosts, one host
// after another.
type FleetManager struct {
	Hosts       []config.Host
	Settings    Settings
	Certificate string
	BackupDir   string
	RemotePath  string
	DryRun      bool

	// dialerFor is replaced in tests.
	dialerFor func(config.Host) (reconcile.Dialer, error)
}

// NewFleetManager creates a new FleetManager.
func NewFleetManager(hosts []config.Host, settings Settings) *FleetManager {
	if settings.Logger == nil {
		settings.Logger = slog.Default()
	}
	return &FleetManager{
		Hosts:     hosts,
		Settings:  settings,
		dialerFor: settings.Dialer,
	}
}

// Run reconciles every host and returns one outcome per host in order.
// The error reports how many hosts failed.
func (f *FleetManager) Run(ctx context.Context) ([]*core.Outcome, error) {
	mode := "Sync"
	if f.DryRun {
		mode = "Plan"
	}
	pterm.DefaultSection.Printf("%s: %d hosts", mode, len(f.Hosts))

	outcomes := make([]*core.Outcome, 0, len(f.Hosts))
	failed := 0
	for _, h := range f.Hosts {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		out := f.runHost(ctx, h)
		outcomes = append(outcomes, out)
		if out.Failed {
			failed++
		}
	}

	if failed > 0 {
		return outcomes, fmt.Errorf("certificate sync failed on %d hosts", failed)
	}
	return outcomes, nil
}

func (f *FleetManager) runHost(ctx context.Context, h config.Host) *core.Outcome {
	prefix := pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprintf("[%s] ", h.Name)
	logger := f.Settings.Logger.With("host", h.Name)

	if err := h.Validate(); err != nil {
		out := core.NewOutcome(h.Name)
		out.Abort(err.Error())
		pterm.Error.Println(prefix + out.Msg)
		return out
	}

	dial, err := f.dialerFor(h)
	if err != nil {
		out := core.NewOutcome(h.Name)
		out.Abort(err.Error())
		pterm.Error.Println(prefix + out.Msg)
		return out
	}

	pterm.Println(prefix + "Connecting...")
	wf := reconcile.New(dial,
		reconcile.WithRemotePath(f.RemotePath),
		reconcile.WithLogger(f.Settings.Logger),
		reconcile.WithProgress(func(transferred, total int64) {
			logger.Debug("backup progress", "bytes", transferred, "total", total)
		}),
	)
	out := wf.Run(ctx, reconcile.Request{
		Host:        h.Name,
		Credentials: h.Credentials(),
		Certificate: f.Certificate,
		BackupDir:   f.BackupDir,
		DryRun:      f.DryRun,
	})

	switch {
	case out.Failed:
		pterm.Error.Println(prefix + out.Msg)
	case out.Changed:
		pterm.Success.Println(prefix + out.Msg)
	default:
		pterm.Info.Println(prefix + out.Msg)
	}
	for _, key := range out.WarningKeys() {
		pterm.Warning.Println(prefix + out.Warnings[key])
	}
	return out
}

// Transaction converts outcomes into a history record.
func Transaction(outcomes []*core.Outcome, remotePath string, dryRun bool) state.Transaction {
	if remotePath == "" {
		remotePath = reconcile.DefaultRemotePath
	}
	tx := state.NewTransaction()
	tx.DryRun = dryRun
	for _, out := range outcomes {
		action := state.ActionUnchanged
		switch {
		case out.Failed:
			action = state.ActionFailed
			tx.Status = state.StatusFailed
		case out.Changed:
			action = state.ActionUpdated
		}
		tx.Changes = append(tx.Changes, state.TransactionChange{
			Host:        out.Host,
			Target:      remotePath,
			Action:      action,
			BackupPath:  out.BackupPath,
			Fingerprint: out.Fingerprint,
			Message:     out.Msg,
		})
	}
	return tx
}

// PrintSummary renders one table row per host.
func PrintSummary(outcomes []*core.Outcome) error {
	rows := [][]string{{"Host", "Status", "Remote", "Backup", "Message"}}
	for _, out := range outcomes {
		status := pterm.FgGray.Sprint("ok")
		switch {
		case out.Failed:
			status = pterm.FgRed.Sprint("failed")
		case out.Changed:
			status = pterm.FgGreen.Sprint("changed")
		}

		remote := "-"
		if out.RemoteCertExists != nil {
			remote = "absent"
			if out.RemoteExists() {
				remote = "present"
			}
		}

		backup := out.BackupPath
		if backup == "" {
			backup = "-"
		}
		rows = append(rows, []string{out.Host, status, remote, backup, out.Msg})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
