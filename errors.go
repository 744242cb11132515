package spamc

import (
	"fmt"
	"net"

	"github.com/pkg/errors"
)

// ErrorKind classifies an Error.
type ErrorKind int

// Error kinds.
const (
	// KindConnection means the connection to spamd could not be
	// established.
	KindConnection ErrorKind = iota

	// KindTimeout means a connect or read deadline expired.
	KindTimeout

	// KindIO is a write failure or an unexpected disconnect.
	KindIO

	// KindEncoding means the request could not be constructed, for
	// example a missing body on a command that requires one.
	KindEncoding

	// KindMalformedStatusLine means the first response line did not look
	// like "SPAMD/<version> <code> <text>".
	KindMalformedStatusLine

	// KindTruncatedBody means the stream ended before Content-length
	// bytes could be read.
	KindTruncatedBody

	// KindBadSpamHeader means the Spam response header had malformed
	// verdict or score fields.
	KindBadSpamHeader

	// KindBadCompression means a compressed response body could not be
	// decompressed.
	KindBadCompression

	// KindUnexpectedEOF means the stream closed in the middle of a line.
	KindUnexpectedEOF

	// KindBadHeader means a response header line did not parse, for
	// example a missing colon or a non-numeric Content-length.
	KindBadHeader
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection error"
	case KindTimeout:
		return "timeout"
	case KindIO:
		return "io error"
	case KindEncoding:
		return "encoding error"
	case KindMalformedStatusLine:
		return "protocol error: malformed status line"
	case KindTruncatedBody:
		return "protocol error: truncated body"
	case KindBadSpamHeader:
		return "protocol error: bad Spam header"
	case KindBadCompression:
		return "protocol error: bad compression"
	case KindUnexpectedEOF:
		return "protocol error: unexpected EOF"
	case KindBadHeader:
		return "protocol error: bad header line"
	default:
		return "unknown error"
	}
}

// Error is the error type returned for all failures talking to spamd. The
// Kind field tells callers what went wrong without string matching.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Cause }

// Timeout reports whether this error was caused by a deadline expiry; it
// makes *Error satisfy the net.Error timeout convention.
func (e *Error) Timeout() bool { return e.Kind == KindTimeout }

// IsProtocol reports whether the daemon violated the protocol contract, as
// opposed to a transport-level failure.
func (e *Error) IsProtocol() bool {
	switch e.Kind {
	case KindMalformedStatusLine, KindTruncatedBody, KindBadSpamHeader,
		KindBadCompression, KindUnexpectedEOF, KindBadHeader:
		return true
	}
	return false
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// wrapNetError classifies a transport error, upgrading the kind to
// KindTimeout when the cause is a net.Error deadline expiry.
func wrapNetError(kind ErrorKind, cause error, message string) *Error {
	var nerr net.Error
	if errors.As(cause, &nerr) && nerr.Timeout() {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}
