package spamc

import (
	"bufio"
	"context"
	"crypto/tls"
	"io"
	"net"
	"strings"
	"time"
)

// testConnHook is used by the tests to replace the dialled connection with a
// fake one.
var testConnHook net.Conn

// conn is a single-use connection to spamd: one request is written, one
// response is read, and the socket is discarded. All reads are bounded by
// both the per-read timeout and the overall call deadline.
type conn struct {
	sock        net.Conn
	br          *bufio.Reader
	readTimeout time.Duration
	deadline    time.Time
	closed      bool
}

// dial opens a fresh connection for one exchange.
func dial(ctx context.Context, cfg *Config) (*conn, error) {
	deadline := time.Now().Add(cfg.CallTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if testConnHook != nil {
		return &conn{
			sock:        testConnHook,
			br:          bufio.NewReader(testConnHook),
			readTimeout: cfg.ReadTimeout,
			deadline:    deadline,
		}, nil
	}

	d := net.Dialer{Timeout: cfg.ConnectTimeout}
	sock, err := d.DialContext(ctx, cfg.Network, cfg.Addr)
	if err != nil {
		return nil, wrapNetError(KindConnection, err,
			"could not connect to spamd at "+cfg.Addr)
	}

	if cfg.TLS != nil && cfg.Network == "tcp" {
		sock = tls.Client(sock, cfg.TLS)
	}

	if err := sock.SetDeadline(deadline); err != nil {
		sock.Close() // nolint: errcheck
		return nil, wrapError(KindConnection, err, "could not set deadline")
	}

	return &conn{
		sock:        sock,
		br:          bufio.NewReader(sock),
		readTimeout: cfg.ReadTimeout,
		deadline:    deadline,
	}, nil
}

// write sends the whole buffer to the daemon.
func (c *conn) write(p []byte) error {
	if _, err := c.sock.Write(p); err != nil {
		return wrapNetError(KindIO, err, "could not send to spamd")
	}
	return nil
}

// closeWrite half-closes the sending side after the request is written;
// spamd reads until EOF when no Content-length was given. TLS connections
// can't half-close (close-notify would end the read side too), so they rely
// on Content-length alone.
func (c *conn) closeWrite() error {
	switch s := c.sock.(type) {
	case *net.TCPConn:
		return s.CloseWrite()
	case *net.UnixConn:
		return s.CloseWrite()
	}
	return nil
}

// armRead sets the deadline for the next read: the per-read timeout, capped
// by the overall call deadline.
func (c *conn) armRead() {
	d := c.deadline
	if c.readTimeout > 0 {
		if r := time.Now().Add(c.readTimeout); r.Before(d) || d.IsZero() {
			d = r
		}
	}
	if !d.IsZero() {
		c.sock.SetReadDeadline(d) // nolint: errcheck
	}
}

// readLine reads up to and including a line terminator and returns the line
// without it. A stream that closes mid-line is a protocol violation.
func (c *conn) readLine() (string, error) {
	c.armRead()
	line, err := c.br.ReadString('\n')
	switch err {
	case nil:
		return strings.TrimRight(line, "\r\n"), nil
	case io.EOF:
		return "", newError(KindUnexpectedEOF,
			"stream closed mid-line: %q", line)
	default:
		return "", wrapNetError(KindIO, err, "could not read from spamd")
	}
}

// readFull reads exactly n bytes.
func (c *conn) readFull(n int) ([]byte, error) {
	c.armRead()
	buf := make([]byte, n)
	got, err := io.ReadFull(c.br, buf)
	switch err {
	case nil:
		return buf, nil
	case io.EOF, io.ErrUnexpectedEOF:
		return nil, newError(KindTruncatedBody,
			"wanted %v body bytes but the stream ended after %v", n, got)
	default:
		return nil, wrapNetError(KindIO, err, "could not read from spamd")
	}
}

// close releases the socket; it is safe to call more than once and is
// reached on every exit path, including errors.
func (c *conn) close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.sock.Close(); err != nil {
		return wrapError(KindIO, err, "could not close connection")
	}
	return nil
}
