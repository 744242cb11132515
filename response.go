package spamc

import (
	"fmt"
	"strconv"
	"strings"
)

// Exit codes spamd reports in the status line.
const (
	ExOK          = 0  // no problems
	ExUsage       = 64 // command line usage error
	ExDataErr     = 65 // data format error
	ExNoInput     = 66 // cannot open input
	ExNoUser      = 67 // addressee unknown
	ExNoHost      = 68 // host name unknown
	ExUnavailable = 69 // service unavailable
	ExSoftware    = 70 // internal software error
	ExOserr       = 71 // system error (e.g., can't fork)
	ExOsfile      = 72 // critical OS file missing
	ExCantcreat   = 73 // can't create (user) output file
	ExIoerr       = 74 // input/output error
	ExTempfail    = 75 // temp failure; user is invited to retry
	ExProtocol    = 76 // remote error in protocol
	ExNoperm      = 77 // permission denied
	ExConfig      = 78 // configuration error
	ExTimeout     = 79 // read timeout
)

// mapping of the exit codes to the error messages.
var exitCodeMessages = map[int]string{
	ExUsage:       "Command line usage error",
	ExDataErr:     "Data format error",
	ExNoInput:     "Cannot open input",
	ExNoUser:      "Addressee unknown",
	ExNoHost:      "Host name unknown",
	ExUnavailable: "Service unavailable",
	ExSoftware:    "Internal software error",
	ExOserr:       "System error",
	ExOsfile:      "Critical OS file missing",
	ExCantcreat:   "Can't create (user) output file",
	ExIoerr:       "Input/output error",
	ExTempfail:    "Temp failure; user is invited to retry",
	ExProtocol:    "Remote error in protocol",
	ExNoperm:      "Permission denied",
	ExConfig:      "Configuration error",
	ExTimeout:     "Read timeout",
}

// DaemonError is returned when spamd itself reports a failure through a
// non-zero status code. This is the daemon telling us something went wrong,
// as opposed to an *Error where the exchange itself failed.
type DaemonError struct {
	Code int
	Text string
}

func (e *DaemonError) Error() string {
	if msg, ok := exitCodeMessages[e.Code]; ok {
		return fmt.Sprintf("spamd returned code %v: %v: %v", e.Code, msg, e.Text)
	}
	return fmt.Sprintf("spamd returned code %v: %v", e.Code, e.Text)
}

// response is the decoded reply before the per-verb conversion.
type response struct {
	Version string
	Code    int
	Message string
	Headers Header

	// Body is nil when the reply carried no Content-length; a declared
	// length of zero gives an empty, non-nil body.
	Body []byte

	IsSpam    bool
	Score     float64
	BaseScore float64
	spamSeen  bool
}

// The spamd protocol is an HTTP-esque protocol; a response's first line is
// the status:
//
//	SPAMD/1.1 0 EX_OK\r\n
//
// then headers, a blank line, and for some commands a body of exactly
// Content-length bytes.
func readResponse(c *conn) (*response, error) {
	line, err := c.readLine()
	if err != nil {
		return nil, err
	}
	version, code, text, err := parseStatusLine(line)
	if err != nil {
		return nil, err
	}

	resp := &response{Version: version, Code: code, Message: text}
	if code != ExOK {
		return resp, &DaemonError{Code: code, Text: text}
	}

	for {
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, newError(KindBadHeader, "malformed header line: %q", line)
		}
		// Unknown headers are kept as-is; rejecting them would break
		// against newer daemons.
		resp.Headers = resp.Headers.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	if raw, ok := resp.Headers.Get(HeaderSpam); ok {
		resp.IsSpam, resp.Score, resp.BaseScore, err = parseSpamHeader(raw)
		if err != nil {
			return nil, err
		}
		resp.spamSeen = true
	}

	if cl, ok := resp.Headers.Get(HeaderContentLength); ok {
		n, err := strconv.Atoi(strings.TrimSpace(cl))
		if err != nil || n < 0 {
			return nil, newError(KindBadHeader, "bad Content-length: %q", cl)
		}
		body, err := c.readFull(n)
		if err != nil {
			return nil, err
		}
		if _, ok := resp.Headers.Get(HeaderCompress); ok {
			if body, err = decompressBody(body); err != nil {
				return nil, err
			}
		}
		resp.Body = body
	}

	return resp, nil
}

// parseStatusLine decodes "SPAMD/<version> <code> <text>". The version has
// to look like a version, the code has to be a number; the text is free-form
// and may be absent.
func parseStatusLine(line string) (version string, code int, text string, err error) {
	malformed := func() (string, int, string, error) {
		return "", 0, "", newError(KindMalformedStatusLine, "unrecognised response: %q", line)
	}

	rest, ok := strings.CutPrefix(line, "SPAMD/")
	if !ok {
		return malformed()
	}

	fields := strings.SplitN(rest, " ", 3)
	if len(fields) < 2 {
		return malformed()
	}

	version = fields[0]
	if version == "" || strings.Trim(version, "0123456789.") != "" {
		return malformed()
	}

	code, aerr := strconv.Atoi(fields[1])
	if aerr != nil {
		return malformed()
	}

	if len(fields) == 3 {
		text = strings.TrimSpace(fields[2])
	}
	return version, code, text, nil
}

// parseSpamHeader decodes the Spam response header:
//
//	Spam: <True|False|Yes|No> ; <score> / <base-score>
//
// for example "Spam: True ; 15.0 / 5.0". Whitespace around the separators
// varies between daemon versions and is ignored.
func parseSpamHeader(value string) (isSpam bool, score, baseScore float64, err error) {
	s := strings.Split(value, ";")
	if len(s) != 2 {
		return false, 0, 0, newError(KindBadSpamHeader, "unexpected data: %q", value)
	}

	switch strings.ToLower(strings.TrimSpace(s[0])) {
	case "true", "yes":
		isSpam = true
	case "false", "no":
		isSpam = false
	default:
		return false, 0, 0, newError(KindBadSpamHeader, "unknown spam status: %q", s[0])
	}

	split := strings.Split(s[1], "/")
	if len(split) != 2 {
		return false, 0, 0, newError(KindBadSpamHeader, "unexpected data: %q", s[1])
	}
	score, perr := strconv.ParseFloat(strings.TrimSpace(split[0]), 64)
	if perr != nil {
		return false, 0, 0, wrapError(KindBadSpamHeader, perr, "could not parse spam score")
	}
	baseScore, perr = strconv.ParseFloat(strings.TrimSpace(split[1]), 64)
	if perr != nil {
		return false, 0, 0, wrapError(KindBadSpamHeader, perr, "could not parse base spam score")
	}

	return isSpam, score, baseScore, nil
}

// parseSymbols splits a SYMBOLS body into the ordered list of rule names
// that were hit.
func parseSymbols(body []byte) []string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// parseTellHeader splits a DidSet/DidRemove value into the list of
// databases the daemon touched.
func parseTellHeader(value string) []string {
	var dbs []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			dbs = append(dbs, p)
		}
	}
	return dbs
}
