// Package ftp adapts github.com/secsy/goftp to the z/OS FTP server, covering
// the commands needed to maintain partitioned data sets: STOR, MKD, SITE and
// DELE against fully qualified ('QUOTED') data set names.
//
// Everything runs on one logged-in raw connection, since SITE allocation
// parameters only apply to the session that sent them.
package ftp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/secsy/goftp"

	zerrors "github.com/dl-alexandre/zsync/internal/errors"
	"github.com/dl-alexandre/zsync/internal/logging"
	"github.com/dl-alexandre/zsync/internal/utils"
)

// ReplyError is a negative or unexpected server reply.
type ReplyError struct {
	Code int
	Msg  string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("%d %s", e.Code, e.Msg)
}

// ReplyCode exposes the numeric reply for error classification.
func (e *ReplyError) ReplyCode() int { return e.Code }

// Is matches zerrors.ErrContainerMissing for the z/OS "nonexistent
// partitioned data set" rejection of a STOR.
func (e *ReplyError) Is(target error) bool {
	if target != zerrors.ErrContainerMissing {
		return false
	}
	return (e.Code == 550 || e.Code == 553) && strings.Contains(e.Msg, utils.MissingContainerReply)
}

type Options struct {
	// TransferMode is utils.TransferModeText (TYPE A) or utils.TransferModeBinary (TYPE I).
	TransferMode   string
	CommandTimeout time.Duration
	Logger         logging.Logger
	// Trace logs the goftp command and reply dialogue at debug level.
	Trace bool
}

// Client is one FTP session. It is not safe for concurrent use.
type Client struct {
	opts      Options
	logger    logging.Logger
	host      string
	pool      *goftp.Client
	raw       goftp.RawConn
	lastReply string
}

func NewClient(opts Options) *Client {
	if opts.TransferMode == "" {
		opts.TransferMode = utils.TransferModeText
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = utils.DefaultCommandTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Client{opts: opts, logger: logger}
}

// Connect resolves host (port 21 unless host carries one). The control
// connection itself is opened by Login, which goftp performs as one step.
func (c *Client) Connect(ctx context.Context, host string) error {
	if c.pool != nil {
		return fmt.Errorf("already connected to %s", c.host)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		addr = net.JoinHostPort(host, utils.DefaultFTPPort)
	}
	c.host = addr
	return nil
}

// Login opens the control connection and authenticates. A failure to reach
// the server is returned as a *zerrors.ConnectionError.
func (c *Client) Login(ctx context.Context, user, password string) error {
	if c.host == "" {
		return errors.New("not connected")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.lastReply = ""

	config := goftp.Config{
		User:               user,
		Password:           password,
		ConnectionsPerHost: 1,
		Timeout:            c.opts.CommandTimeout,
		// EPSV is refused by some z/OS stacks; PASV always works.
		DisableEPSV: true,
	}
	if c.opts.Trace {
		config.Logger = &traceWriter{logger: c.logger}
	}

	pool, err := goftp.DialConfig(config, c.host)
	if err != nil {
		return &zerrors.ConnectionError{Host: c.host, Err: err}
	}
	raw, err := pool.OpenRawConn()
	if err != nil {
		_ = pool.Close()
		var ftpErr goftp.Error
		if errors.As(err, &ftpErr) && ftpErr.Code() > 0 {
			return c.reject(ftpErr.Code(), ftpErr.Message())
		}
		return &zerrors.ConnectionError{Host: c.host, Err: err}
	}

	c.pool = pool
	c.raw = raw
	return nil
}

// Store uploads content as remoteName, e.g. USER.ROOT.SRC(PROG1).
func (c *Client) Store(ctx context.Context, remoteName string, content io.Reader) error {
	transferType := "A"
	if c.opts.TransferMode == utils.TransferModeBinary {
		transferType = "I"
	}
	if err := c.command(ctx, 2, "TYPE %s", transferType); err != nil {
		return err
	}

	dial, err := c.raw.PrepareDataConn()
	if err != nil {
		return err
	}
	if err := c.command(ctx, 1, "STOR %s", quote(remoteName)); err != nil {
		return err
	}

	data, err := dial()
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = data.SetDeadline(time.Now())
	})
	_, copyErr := io.Copy(data, content)
	stop()
	closeErr := data.Close()

	code, msg, err := c.raw.ReadResponse()
	if err != nil {
		return err
	}
	if err := c.check(2, code, msg); err != nil {
		return err
	}
	if copyErr != nil {
		return copyErr
	}
	return closeErr
}

// CreateContainer allocates a partitioned data set.
func (c *Client) CreateContainer(ctx context.Context, name string) error {
	return c.command(ctx, 2, "MKD %s", quote(name))
}

// SetAllocationParameters sends SITE parameters for the next allocation,
// e.g. "LRECL=80 RECFM=FB BLKSIZE=3120".
func (c *Client) SetAllocationParameters(ctx context.Context, params string) error {
	return c.command(ctx, 2, "SITE %s", params)
}

func (c *Client) Delete(ctx context.Context, remoteName string) error {
	return c.command(ctx, 2, "DELE %s", quote(remoteName))
}

// LastError returns the negative reply to the most recent command, code
// included, or "" if it succeeded.
func (c *Client) LastError() string {
	return c.lastReply
}

func (c *Client) IsConnected() bool {
	return c.raw != nil
}

// Logout sends QUIT and releases the session either way.
func (c *Client) Logout(ctx context.Context) error {
	var err error
	if c.raw != nil {
		err = c.raw.Close()
		c.raw = nil
	}
	if c.pool != nil {
		if closeErr := c.pool.Close(); err == nil {
			err = closeErr
		}
		c.pool = nil
	}
	c.host = ""
	return err
}

// command sends one control command and checks the reply class, as in
// textproto: 2 accepts any 2xx, 1 any 1xx.
func (c *Client) command(ctx context.Context, expect int, format string, args ...interface{}) error {
	if c.raw == nil {
		return errors.New("not connected")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.lastReply = ""

	code, msg, err := c.raw.SendCommand(format, args...)
	if err != nil {
		return err
	}
	return c.check(expect, code, msg)
}

func (c *Client) check(expect, code int, msg string) error {
	if code/100 == expect {
		return nil
	}
	return c.reject(code, msg)
}

func (c *Client) reject(code int, msg string) error {
	err := &ReplyError{Code: code, Msg: msg}
	c.lastReply = err.Error()
	return err
}

// traceWriter turns goftp's debug output into debug log lines.
type traceWriter struct {
	logger logging.Logger
}

func (w *traceWriter) Write(p []byte) (int, error) {
	scanner := bufio.NewScanner(strings.NewReader(string(p)))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			w.logger.Debug(line)
		}
	}
	return len(p), nil
}

// quote makes a data set name fully qualified, bypassing the session prefix.
func quote(name string) string {
	return "'" + name + "'"
}
