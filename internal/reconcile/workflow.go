// Package reconcile brings the certificate on one remote device in line
// with a local certificate file.
//
// A run walks LoadLocal, OpenSession, ProbeRemote, Backup, Compare and
// Upload in that order. Every step either advances or marks the outcome
// failed and returns it; after a failure nothing is written remotely.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/melih-ucgun/certsync/internal/core"
)

// DefaultRemotePath is where the device keeps its trust anchor.
const DefaultRemotePath = "/certs/cacert.pem"

// Dialer opens a session to the host described by creds.
type Dialer func(ctx context.Context, creds core.Credentials) (core.Session, error)

// Request is the input of a single run against one host.
type Request struct {
	// Host names the device in messages and backup file names.
	Host        string
	Credentials core.Credentials
	Certificate string
	BackupDir   string
	// DryRun reports what would change without downloading or uploading.
	DryRun bool
}

// Workflow runs reconciliations. It holds no per-run state and can be
// reused for any number of sequential runs.
type Workflow struct {
	remotePath string
	dial       Dialer
	now        func() time.Time
	logger     *slog.Logger
	progress   core.ProgressFunc
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithRemotePath overrides DefaultRemotePath.
func WithRemotePath(path string) Option {
	return func(w *Workflow) {
		if path != "" {
			w.remotePath = path
		}
	}
}

// WithClock replaces time.Now, used for backup names.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

// WithProgress receives backup download progress.
func WithProgress(fn core.ProgressFunc) Option {
	return func(w *Workflow) { w.progress = fn }
}

func New(dial Dialer, opts ...Option) *Workflow {
	w := &Workflow{
		remotePath: DefaultRemotePath,
		dial:       dial,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RemotePath returns the certificate path used on devices.
func (w *Workflow) RemotePath() string {
	return w.remotePath
}

// run carries the state of a single reconciliation.
type run struct {
	*Workflow
	req     Request
	out     *core.Outcome
	local   *core.CertificateBlob
	session core.Session
	logger  *slog.Logger
}

// Run performs one reconciliation and always returns an outcome. The
// session it opens is closed before Run returns.
func (w *Workflow) Run(ctx context.Context, req Request) *core.Outcome {
	r := &run{
		Workflow: w,
		req:      req,
		out:      core.NewOutcome(req.Host),
		logger:   w.logger.With("host", req.Host),
	}

	if !r.loadLocal() {
		return r.out
	}
	if !r.openSession(ctx) {
		return r.out
	}
	defer func() {
		if err := r.session.Close(); err != nil {
			r.logger.Warn("closing session", "error", err)
		}
	}()

	exists := r.probeRemote()
	if !r.backup(exists) {
		return r.out
	}
	if !r.compare(exists) {
		return r.out
	}
	r.upload()
	return r.out
}

func (r *run) loadLocal() bool {
	if r.req.Certificate == "" {
		r.out.Abort("certificate is required")
		return false
	}
	r.out.LocalCertPath = r.req.Certificate

	blob, err := core.LoadCertificate(r.req.Certificate)
	if err != nil {
		r.out.Abort(err.Error())
		return false
	}
	r.local = blob
	r.out.Fingerprint = core.Fingerprint(blob.Content)
	r.logger.Debug("loaded local certificate", "path", blob.Path, "bytes", len(blob.Content))
	return true
}

func (r *run) openSession(ctx context.Context) bool {
	session, err := r.dial(ctx, r.req.Credentials)
	if err != nil {
		r.out.Abort(err.Error())
		return false
	}
	r.session = session
	return true
}

// probeRemote never fails the run. Errors other than "not found" are
// surfaced as a warning and the certificate is treated as absent.
func (r *run) probeRemote() bool {
	exists, err := r.session.IsFile(r.remotePath)
	if err != nil && !core.IsNotFound(err) {
		r.out.Warn("probe", err.Error())
		r.logger.Warn("remote probe failed", "path", r.remotePath, "error", err)
	}
	r.out.SetRemoteExists(exists)
	return exists
}

func (r *run) backup(exists bool) bool {
	if r.req.BackupDir == "" {
		r.out.Warn("backup", "Because no backup directory was provided, there will be no backup of the remote certificate.")
		return true
	}
	if !exists {
		return true
	}

	path := core.BackupPath(r.req.BackupDir, r.req.Host, r.now())
	if err := core.CheckBackupDir(r.req.BackupDir); err != nil {
		r.out.Abort(fmt.Sprintf("The given backup directory does not exist: %s. File would have been %s.", r.req.BackupDir, path))
		return false
	}
	if r.req.DryRun {
		r.out.Warn("backup", fmt.Sprintf("[DryRun] Would back up the remote certificate to %s.", path))
		return true
	}

	r.out.BackupPath = path
	if _, err := r.session.DownloadTo(r.remotePath, path, r.progress); err != nil {
		r.out.Abort(fmt.Sprintf("error writing backup file: %v", err))
		return false
	}
	r.logger.Info("backed up remote certificate", "path", path)
	return true
}

// compare returns false when the run is finished: either the certificates
// already match or the remote certificate could not be read.
func (r *run) compare(exists bool) bool {
	if !exists {
		r.out.CertificateUpdateMsg = "No certificate detected on remote. Certificate will be updated."
		return true
	}

	remote, err := r.session.ReadAllBytes(r.remotePath)
	if err != nil {
		r.out.Abort(fmt.Sprintf("Error reading remote certificate: %v", err))
		return false
	}

	if core.DigestCompare(r.local.Content, remote) == core.Equal {
		r.out.Msg = "No changes necessary because the local certificate matches the remote certificate."
		return false
	}
	r.out.Notice = "Local certificate differs from remote certificate."
	return true
}

func (r *run) upload() {
	target := fmt.Sprintf("%s:%s", r.req.Host, r.remotePath)

	if r.req.DryRun {
		r.out.Changed = true
		r.out.Msg = fmt.Sprintf("[DryRun] Would write %s to %s", r.req.Certificate, target)
		return
	}

	if _, err := r.session.WriteFile(r.req.Certificate, r.remotePath); err != nil {
		r.out.Abort(fmt.Sprintf("Failed to write file to %s: %v", target, err))
		return
	}
	r.out.Changed = true
	r.out.Msg = fmt.Sprintf("Wrote %s to %s", r.req.Certificate, target)
	r.logger.Info("certificate updated", "remote", target)
}
