package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/melih-ucgun/certsync/internal/core"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const defaultDialTimeout = 10 * time.Second

// SFTPSession is a password-authenticated SSH connection with an SFTP
// subsystem bound to it.
type SFTPSession struct {
	creds  core.Credentials
	client *ssh.Client
	sftp   *sftp.Client
	logger *slog.Logger
}

type sessionOptions struct {
	timeout         time.Duration
	hostKeyCallback ssh.HostKeyCallback
	logger          *slog.Logger
}

// Option configures NewSFTPSession.
type Option func(*sessionOptions)

// WithTimeout bounds the TCP dial and SSH handshake.
func WithTimeout(d time.Duration) Option {
	return func(o *sessionOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithHostKeyCallback sets host key verification. Without it any host key
// is accepted.
func WithHostKeyCallback(cb ssh.HostKeyCallback) Option {
	return func(o *sessionOptions) { o.hostKeyCallback = cb }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *sessionOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// KnownHostsCallback builds a host key callback from an OpenSSH known_hosts file.
func KnownHostsCallback(path string) (ssh.HostKeyCallback, error) {
	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts %s: %w", path, err)
	}
	return cb, nil
}

// NewSFTPSession validates creds, connects, authenticates with the password
// and opens the SFTP subsystem. It returns either a usable session or an error.
func NewSFTPSession(ctx context.Context, creds core.Credentials, opts ...Option) (*SFTPSession, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	o := sessionOptions{
		timeout:         defaultDialTimeout,
		hostKeyCallback: ssh.InsecureIgnoreHostKey(),
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	sshConfig := &ssh.ClientConfig{
		User:            creds.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(creds.Password)},
		HostKeyCallback: o.hostKeyCallback,
		Timeout:         o.timeout,
	}

	addr := creds.Address()
	o.logger.Debug("connecting", "addr", addr, "user", creds.Username)

	client, err := dialSSH(ctx, addr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("SFTPSession could not be established: %w", err)
	}

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("SFTPSession could not be established: %w", err)
	}

	return &SFTPSession{creds: creds, client: client, sftp: sftpClient, logger: o.logger}, nil
}

func dialSSH(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	dialer := net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		conn.SetDeadline(time.Now().Add(cfg.Timeout))
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	// The deadline only covers the handshake.
	conn.SetDeadline(time.Time{})
	return ssh.NewClient(c, chans, reqs), nil
}

// Close releases the SFTP subsystem and the SSH connection.
func (s *SFTPSession) Close() error {
	var errs []error
	if s.sftp != nil {
		errs = append(errs, s.sftp.Close())
	}
	if s.client != nil {
		errs = append(errs, s.client.Close())
	}
	return errors.Join(errs...)
}

func (s *SFTPSession) IsFile(path string) (bool, error) {
	info, err := s.sftp.Stat(path)
	if err != nil {
		return false, remoteError("stat", path, err)
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("stat %s: %w", path, core.ErrNotRegular)
	}
	return true, nil
}

func (s *SFTPSession) ReadAllBytes(path string) ([]byte, error) {
	f, err := s.sftp.Open(path)
	if err != nil {
		return nil, remoteError("open", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, remoteError("read", path, err)
	}
	return data, nil
}

func (s *SFTPSession) DownloadTo(remotePath, localPath string, progress core.ProgressFunc) (bool, error) {
	src, err := s.sftp.Open(remotePath)
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
	s.logger.Debug("downloaded", "remote", remotePath, "local", localPath, "bytes", total)
	return true, nil
}

func (s *SFTPSession) WriteFile(localPath, remotePath string) (bool, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return false, err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return false, err
	}

	dst, err := s.sftp.Create(remotePath)
	if err != nil {
		return false, remoteError("create", remotePath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return false, remoteError("write", remotePath, err)
	}
	if err := dst.Close(); err != nil {
		return false, remoteError("close", remotePath, err)
	}

	// Confirm the remote side holds what we sent.
	remote, err := s.sftp.Stat(remotePath)
	if err != nil {
		return false, remoteError("stat", remotePath, err)
	}
	if remote.Size() != info.Size() {
		return false, fmt.Errorf("%w: %s is %d bytes, expected %d", core.ErrSizeMismatch, remotePath, remote.Size(), info.Size())
	}
	s.logger.Debug("uploaded", "local", localPath, "remote", remotePath, "bytes", info.Size())
	return true, nil
}

// remoteError maps "does not exist" onto core.ErrNotFound so callers can
// branch on it without knowing the transport.
func remoteError(op, path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s %s: %w", op, path, core.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, path, err)
}

// copyToNewFile streams src into a freshly created local file and removes
// it again if the copy fails.
func copyToNewFile(localPath string, src io.Reader, total int64, progress core.ProgressFunc) error {
	dst, err := core.CreateExclusive(localPath)
	if err != nil {
		return err
	}

	var w io.Writer = dst
	if progress != nil {
		w = &progressWriter{w: dst, total: total, fn: progress}
	}
	if _, err := io.Copy(w, src); err != nil {
		dst.Close()
		os.Remove(localPath)
		return fmt.Errorf("copy to %s: %w", localPath, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(localPath)
		return err
	}
	return nil
}

type progressWriter struct {
	w           io.Writer
	transferred int64
	total       int64
	fn          core.ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.transferred += int64(n)
	p.fn(p.transferred, p.total)
	return n, err
}

// SFTPDialer returns a session factory that opens SFTP sessions with opts.
func SFTPDialer(opts ...Option) func(context.Context, core.Credentials) (core.Session, error) {
	return func(ctx context.Context, creds core.Credentials) (core.Session, error) {
		s, err := NewSFTPSession(ctx, creds, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
