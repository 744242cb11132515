package spamc

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Learn types.
const (
	LearnSpam   = "SPAM"
	LearnHam    = "HAM"
	LearnForget = "FORGET"
)

// Client talks to a spamd daemon. Every call dials its own connection and
// tears it down when done, so a Client is safe for concurrent use; the only
// shared state is the immutable Config.
type Client struct {
	config *Config
}

// New returns a Client for the given Config. A nil Config connects to spamd
// on localhost with default timeouts.
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = NewConfig("127.0.0.1:783")
	}
	return &Client{config: cfg}
}

// CheckResponse is the response from the Check and Symbols commands.
type CheckResponse struct {
	// IsSpam reports if this message is considered spam.
	IsSpam bool

	// Score is the spam score of this message.
	Score float64

	// BaseScore is the "minimum spam score" configured on the server.
	// This is usually 5.0.
	BaseScore float64

	// Symbols that matched, in the order the server sent them; only set
	// by the Symbols command.
	Symbols []string
}

// ReportResponse is the response from the Report and ReportIfSpam commands.
type ReportResponse struct {
	IsSpam    bool
	Score     float64
	BaseScore float64

	// Report broken down in the matched rules and their descriptions.
	Report Report
}

// ProcessResponse is the response from the Process and Headers commands.
type ProcessResponse struct {
	IsSpam    bool
	Score     float64
	BaseScore float64

	// Message is the message as rewritten by SpamAssassin; for the
	// Headers command only the rewritten header block.
	Message []byte
}

// TellResponse is the response from the Tell command.
type TellResponse struct {
	// DidSet lists the databases the message was set in.
	DidSet []string

	// DidRemove lists the databases the message was removed from.
	DidRemove []string
}

// Ping checks that spamd is alive. Only the status line is read; PING never
// returns a body.
func (c *Client) Ping(ctx context.Context) error {
	frame, err := (&request{verb: CmdPing}).marshal(c.config.Compress)
	if err != nil {
		return err
	}

	conn, err := dial(ctx, c.config)
	if err != nil {
		return err
	}
	defer conn.close() // nolint: errcheck

	if err := conn.write(frame); err != nil {
		return err
	}
	if err := conn.closeWrite(); err != nil {
		return wrapError(KindIO, err, "could not close write side")
	}

	line, err := conn.readLine()
	if err != nil {
		return err
	}
	_, code, text, err := parseStatusLine(line)
	if err != nil {
		return err
	}
	if code != ExOK {
		return &DaemonError{Code: code, Text: text}
	}
	return nil
}

// Skip tells the daemon to ignore this connection: the client opened it and
// then changed its mind. The daemon sends no reply.
func (c *Client) Skip(ctx context.Context) error {
	frame, err := (&request{verb: CmdSkip}).marshal(c.config.Compress)
	if err != nil {
		return err
	}

	conn, err := dial(ctx, c.config)
	if err != nil {
		return err
	}
	defer conn.close() // nolint: errcheck

	return conn.write(frame)
}

// Check if the passed message is spam.
func (c *Client) Check(ctx context.Context, msg io.Reader, headers Header) (*CheckResponse, error) {
	resp, err := c.exchange(ctx, CmdCheck, msg, headers)
	if err != nil {
		return nil, err
	}
	if err := needSpamHeader(resp); err != nil {
		return nil, err
	}
	return &CheckResponse{
		IsSpam:    resp.IsSpam,
		Score:     resp.Score,
		BaseScore: resp.BaseScore,
	}, nil
}

// Symbols checks if the message is spam and returns the score plus the list
// of rules that were hit.
func (c *Client) Symbols(ctx context.Context, msg io.Reader, headers Header) (*CheckResponse, error) {
	// SPAMD/1.1 0 EX_OK
	// Content-length: 50
	// Spam: False ; 1.6 / 5.0
	//
	// INVALID_DATE,MISSING_HEADERS,NO_RECEIVED,NO_RELAYS
	resp, err := c.exchange(ctx, CmdSymbols, msg, headers)
	if err != nil {
		return nil, err
	}
	if err := needSpamHeader(resp); err != nil {
		return nil, err
	}
	return &CheckResponse{
		IsSpam:    resp.IsSpam,
		Score:     resp.Score,
		BaseScore: resp.BaseScore,
		Symbols:   parseSymbols(resp.Body),
	}, nil
}

// Report gives a detailed textual report for the message.
func (c *Client) Report(ctx context.Context, msg io.Reader, headers Header) (*ReportResponse, error) {
	return c.report(ctx, CmdReport, msg, headers)
}

// ReportIfSpam gives a detailed textual report for the message if it is
// considered spam. If it's not it will just set the spam score.
func (c *Client) ReportIfSpam(ctx context.Context, msg io.Reader, headers Header) (*ReportResponse, error) {
	return c.report(ctx, CmdReportIfspam, msg, headers)
}

func (c *Client) report(ctx context.Context, verb string, msg io.Reader, headers Header) (*ReportResponse, error) {
	resp, err := c.exchange(ctx, verb, msg, headers)
	if err != nil {
		return nil, err
	}
	if err := needSpamHeader(resp); err != nil {
		return nil, err
	}
	return &ReportResponse{
		IsSpam:    resp.IsSpam,
		Score:     resp.Score,
		BaseScore: resp.BaseScore,
		Report:    parseReport(resp.Body),
	}, nil
}

// Process this message and return a modified message.
func (c *Client) Process(ctx context.Context, msg io.Reader, headers Header) (*ProcessResponse, error) {
	return c.process(ctx, CmdProcess, msg, headers)
}

// Headers is the same as Process but returns only the modified headers, not
// the body (new in protocol 1.4).
func (c *Client) Headers(ctx context.Context, msg io.Reader, headers Header) (*ProcessResponse, error) {
	return c.process(ctx, CmdHeaders, msg, headers)
}

func (c *Client) process(ctx context.Context, verb string, msg io.Reader, headers Header) (*ProcessResponse, error) {
	resp, err := c.exchange(ctx, verb, msg, headers)
	if err != nil {
		return nil, err
	}
	if err := needSpamHeader(resp); err != nil {
		return nil, err
	}
	return &ProcessResponse{
		IsSpam:    resp.IsSpam,
		Score:     resp.Score,
		BaseScore: resp.BaseScore,
		Message:   resp.Body,
	}, nil
}

// Tell the daemon what type of message this is and what should be done with
// it: setting or removing a local or a remote database (learning,
// reporting, forgetting, revoking). Tell mutates server-side state and is
// never retried.
func (c *Client) Tell(ctx context.Context, msg io.Reader, headers Header) (*TellResponse, error) {
	resp, err := c.exchange(ctx, CmdTell, msg, headers)
	if err != nil {
		var derr *DaemonError
		if errors.As(err, &derr) && derr.Code == ExUnavailable {
			return nil, newError(KindEncoding,
				"TELL commands are not enabled, set the --allow-tell switch")
		}
		return nil, err
	}

	tell := &TellResponse{}
	if v, ok := resp.Headers.Get(HeaderDidSet); ok {
		tell.DidSet = parseTellHeader(v)
	}
	if v, ok := resp.Headers.Get(HeaderDidRemove); ok {
		tell.DidRemove = parseTellHeader(v)
	}
	return tell, nil
}

// Learn a message as spam or ham, or forget it. This is a convenience
// wrapper around Tell; use one of the Learn* constants as the learnType.
func (c *Client) Learn(ctx context.Context, learnType string, msg io.Reader, headers Header) (*TellResponse, error) {
	switch strings.ToUpper(learnType) {
	case LearnSpam:
		headers = headers.
			Set(HeaderMessageClass, MessageClassSpam).
			Set(HeaderSet, TellLocal)
	case LearnHam:
		headers = headers.
			Set(HeaderMessageClass, MessageClassHam).
			Set(HeaderSet, TellLocal)
	case LearnForget:
		headers = headers.Set(HeaderRemove, TellLocal)
	default:
		return nil, newError(KindEncoding, "unknown learn type: %v", learnType)
	}
	return c.Tell(ctx, msg, headers)
}

// ReportingSpam reports the message as spam to the local and remote
// databases.
func (c *Client) ReportingSpam(ctx context.Context, msg io.Reader, headers Header) (*TellResponse, error) {
	headers = headers.
		Set(HeaderMessageClass, MessageClassSpam).
		Set(HeaderSet, TellLocal+","+TellRemote)
	return c.Tell(ctx, msg, headers)
}

// RevokeSpam reports the message as a false positive: ham, learned in the
// local and remote databases.
func (c *Client) RevokeSpam(ctx context.Context, msg io.Reader, headers Header) (*TellResponse, error) {
	headers = headers.
		Set(HeaderMessageClass, MessageClassHam).
		Set(HeaderSet, TellLocal+","+TellRemote)
	return c.Tell(ctx, msg, headers)
}

// exchange runs one full round trip: frame the request, dial, send,
// half-close, and parse the reply. The connection is closed on every exit
// path.
func (c *Client) exchange(ctx context.Context, verb string, msg io.Reader, headers Header) (*response, error) {
	body, err := readMessage(msg)
	if err != nil {
		return nil, err
	}

	if _, ok := headers.Get(HeaderUser); !ok && c.config.User != "" {
		headers = headers.Set(HeaderUser, c.config.User)
	}

	req := &request{verb: verb, headers: headers, body: body}
	frame, err := req.marshal(c.config.Compress)
	if err != nil {
		return nil, err
	}

	conn, err := dial(ctx, c.config)
	if err != nil {
		return nil, err
	}
	defer conn.close() // nolint: errcheck

	if err := conn.write(frame); err != nil {
		return nil, err
	}
	if err := conn.closeWrite(); err != nil {
		return nil, wrapError(KindIO, err, "could not close write side")
	}

	return readResponse(conn)
}

// readMessage buffers the caller's message. A missing trailing CRLF is
// added; some daemon versions insist on it before end-of-message.
func readMessage(msg io.Reader) ([]byte, error) {
	if msg == nil {
		return nil, nil
	}
	body, err := io.ReadAll(msg)
	if err != nil {
		return nil, wrapError(KindIO, err, "could not read message")
	}
	if !bytes.HasSuffix(body, []byte("\r\n")) {
		body = append(body, '\r', '\n')
	}
	return body, nil
}

// needSpamHeader guards the scoring verbs, which must come back with a Spam
// header.
func needSpamHeader(resp *response) error {
	if !resp.spamSeen {
		return newError(KindBadSpamHeader, "response is missing the Spam header")
	}
	return nil
}
