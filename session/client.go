package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// NoOutput is recorded in place of command output when the remote sends no
// bytes before quiescence. Keeping an explicit value means the snapshot key
// still exists for later reconciliation.
const NoOutput = "[no output received]\n"

// Timing bounds the session's synchronization heuristics. Network devices
// do not emit a reliable end-of-output marker, so command completion is
// approximated by waiting for the receive buffer to go quiet.
type Timing struct {
	ConnectTimeout    time.Duration // TCP connect + SSH handshake bound
	CommandDelay      time.Duration // settle time after transmitting a command
	FirstCommandDelay time.Duration // allowance for the first command of a session
	QuietWindow       time.Duration // how long the buffer must stay unchanged
	PollInterval      time.Duration // receive buffer poll cadence
	CommandTimeout    time.Duration // upper bound on waiting for quiescence
}

// DefaultTiming returns delays suitable for Cisco IOS/NX-OS class devices.
func DefaultTiming() Timing {
	return Timing{
		ConnectTimeout:    20 * time.Second,
		CommandDelay:      3 * time.Second,
		FirstCommandDelay: 6 * time.Second,
		QuietWindow:       500 * time.Millisecond,
		PollInterval:      100 * time.Millisecond,
		CommandTimeout:    30 * time.Second,
	}
}

// Client provides an SSH session to run diagnostic commands on one device.
type Client struct {
	Addr     string // Address of the device (host:port)
	User     string // SSH username
	Password string // SSH password

	timing Timing
	log    *slog.Logger

	conn    *ssh.Client
	session *ssh.Session
	stdin   io.Writer

	mu      sync.Mutex
	out     bytes.Buffer
	readErr error

	first bool
}

// NewClient returns a new initialized Client instance.
func NewClient(addr, user, password string, timing Timing, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		Addr:     addr,
		User:     user,
		Password: password,
		timing:   timing,
		log:      log,
		first:    true,
	}
}

// Connect establishes the SSH connection and interactive shell session,
// then lets the login banner settle and discards it so the first command's
// capture starts clean.
func (c *Client) Connect(ctx context.Context) error {
	cfg := &ssh.ClientConfig{
		User:            c.User,
		Auth:            []ssh.AuthMethod{ssh.Password(c.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.timing.ConnectTimeout,
	}

	conn, err := ssh.Dial("tcp", c.Addr, cfg)
	if err != nil {
		return classifyDialError(c.Addr, err)
	}
	c.conn = conn

	sess, err := conn.NewSession()
	if err != nil {
		c.Close()
		return &Error{Kind: KindShellInactive, Host: c.Addr, Err: err}
	}
	c.session = sess

	stdin, err := sess.StdinPipe()
	if err != nil {
		c.Close()
		return &Error{Kind: KindShellInactive, Host: c.Addr, Err: err}
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		c.Close()
		return &Error{Kind: KindShellInactive, Host: c.Addr, Err: err}
	}
	c.stdin = stdin

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty("xterm", 120, 40, modes); err != nil {
		c.Close()
		return &Error{Kind: KindShellInactive, Host: c.Addr, Err: err}
	}
	if err := sess.Shell(); err != nil {
		c.Close()
		return &Error{Kind: KindShellInactive, Host: c.Addr, Err: err}
	}

	go c.pump(stdout)

	c.waitQuiescent(c.timing.QuietWindow)
	banner := c.drain()
	if banner == "" {
		if err := c.readError(); err != nil {
			c.Close()
			return &Error{Kind: KindShellInactive, Host: c.Addr, Err: err}
		}
	}
	c.log.Info("connected", "host", c.Addr)
	return nil
}

// RunCommand sends a command to the device and returns its captured output.
// Commands run strictly in sequence: the previous command's leftovers are
// drained before transmission, and no caller may send again until this
// call's wait-then-drain has completed.
func (c *Client) RunCommand(ctx context.Context, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &Error{Kind: KindCommandIO, Host: c.Addr, Err: err}
	}

	if residual := c.drain(); residual != "" {
		c.log.Debug("dropped residual output", "host", c.Addr, "bytes", len(residual))
	}

	if _, err := fmt.Fprint(c.stdin, command+"\n"); err != nil {
		return "", &Error{Kind: KindCommandIO, Host: c.Addr, Err: err}
	}

	settle := c.timing.CommandDelay
	if c.first {
		settle = c.timing.FirstCommandDelay
		c.first = false
	}
	c.waitQuiescent(settle)

	out := c.drain()
	if out == "" {
		if err := c.readError(); err != nil {
			return "", &Error{Kind: KindCommandIO, Host: c.Addr, Err: err}
		}
		c.log.Warn("no output received", "host", c.Addr, "command", command)
		return NoOutput, nil
	}
	return out, nil
}

// Close terminates the SSH session and connection.
func (c *Client) Close() {
	if c.session != nil {
		c.session.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// pump copies shell output into the receive buffer until the stream ends.
func (c *Client) pump(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			c.mu.Lock()
			c.out.Write(buf[:n])
			c.mu.Unlock()
		}
		if err != nil {
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			return
		}
	}
}

// waitQuiescent blocks for the settle delay, then polls the receive buffer
// until no new bytes have arrived for a full quiet window. The wait is
// bounded by the command timeout and always runs to completion; a command
// already in flight is never abandoned mid-read.
func (c *Client) waitQuiescent(settle time.Duration) {
	time.Sleep(settle)
	deadline := time.Now().Add(c.timing.CommandTimeout)
	last := c.buffered()
	lastChange := time.Now()
	for time.Now().Before(deadline) {
		if c.readError() != nil {
			return
		}
		time.Sleep(c.timing.PollInterval)
		n := c.buffered()
		if n != last {
			last = n
			lastChange = time.Now()
			continue
		}
		if time.Since(lastChange) >= c.timing.QuietWindow {
			return
		}
	}
}

// drain returns and clears everything captured so far, scrubbed of ANSI
// escapes and carriage returns.
func (c *Client) drain() string {
	c.mu.Lock()
	raw := c.out.String()
	c.out.Reset()
	c.mu.Unlock()
	out := ansiEscape.ReplaceAllString(raw, "")
	return strings.ReplaceAll(out, "\r", "")
}

func (c *Client) buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Len()
}

func (c *Client) readError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr == io.EOF {
		return fmt.Errorf("shell closed: %w", c.readErr)
	}
	return c.readErr
}
