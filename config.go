package spamc

import (
	"crypto/tls"
	"strings"
	"time"
)

// Default timeouts applied by NewConfig.
const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultReadTimeout    = 30 * time.Second
	DefaultCallTimeout    = 2 * time.Minute
)

// Config holds the connection settings for a Client. Treat it as immutable
// once handed to New; every call dials a fresh connection from it, so
// multiple clients with different targets can coexist in one process.
type Config struct {
	// Network is "tcp" or "unix".
	Network string

	// Addr is a host:port for TCP or a socket path for unix.
	Addr string

	// ConnectTimeout bounds establishing the connection.
	ConnectTimeout time.Duration

	// ReadTimeout bounds every single read from the daemon.
	ReadTimeout time.Duration

	// CallTimeout bounds a whole request/response exchange, so a daemon
	// that trickles the body cannot hold a call forever.
	CallTimeout time.Duration

	// Compress sends message bodies zlib-compressed with a
	// "Compress: zlib" header.
	Compress bool

	// TLS enables TLS on top of a TCP connection when non-nil.
	TLS *tls.Config

	// User is the default User header to send when a call doesn't set
	// one; spamd uses it to select per-user configuration.
	User string
}

// NewConfig returns a Config for addr with default timeouts. Addresses
// starting with "/" select a unix socket, anything else TCP.
func NewConfig(addr string) *Config {
	network := "tcp"
	if strings.HasPrefix(addr, "/") {
		network = "unix"
	}
	return &Config{
		Network:        network,
		Addr:           addr,
		ConnectTimeout: DefaultConnectTimeout,
		ReadTimeout:    DefaultReadTimeout,
		CallTimeout:    DefaultCallTimeout,
	}
}

// WithConnectTimeout sets the connect timeout.
func (c *Config) WithConnectTimeout(d time.Duration) *Config {
	c.ConnectTimeout = d
	return c
}

// WithReadTimeout sets the per-read timeout.
func (c *Config) WithReadTimeout(d time.Duration) *Config {
	c.ReadTimeout = d
	return c
}

// WithCallTimeout sets the overall per-call deadline.
func (c *Config) WithCallTimeout(d time.Duration) *Config {
	c.CallTimeout = d
	return c
}

// WithCompression enables or disables zlib body compression.
func (c *Config) WithCompression(enabled bool) *Config {
	c.Compress = enabled
	return c
}

// WithTLS sets the TLS configuration for TCP connections.
func (c *Config) WithTLS(tc *tls.Config) *Config {
	c.TLS = tc
	return c
}

// WithUser sets the default User header.
func (c *Config) WithUser(user string) *Config {
	c.User = user
	return c
}
