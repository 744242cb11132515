package spamc

import (
	"bufio"
	"bytes"
	"net/textproto"
	"strconv"
	"strings"
)

// Protocol version we talk.
const clientProtocolVersion = "1.5"

// Command verbs.
const (
	CmdCheck        = "CHECK"
	CmdSymbols      = "SYMBOLS"
	CmdReport       = "REPORT"
	CmdReportIfspam = "REPORT_IFSPAM"
	CmdProcess      = "PROCESS"
	CmdHeaders      = "HEADERS"
	CmdTell         = "TELL"
	CmdPing         = "PING"
	CmdSkip         = "SKIP"
)

// Which verbs must carry a message body, and which must not. Anything else
// is a caller bug we refuse to put on the wire.
var (
	bodyRequired = map[string]bool{
		CmdCheck:        true,
		CmdSymbols:      true,
		CmdReport:       true,
		CmdReportIfspam: true,
		CmdProcess:      true,
		CmdHeaders:      true,
		CmdTell:         true,
	}
	bodyForbidden = map[string]bool{
		CmdPing: true,
		CmdSkip: true,
	}
)

// request is a single outbound frame. The body is the raw message; a nil
// body means "no body", which is different from an empty one.
type request struct {
	verb    string
	headers Header
	body    []byte
}

// marshal serialises the request into the exact byte sequence spamd
// expects:
//
//	VERB SPAMC/1.5\r\n
//	Name: value\r\n
//	...
//	Content-length: <n>\r\n
//	\r\n
//	<body>
//
// Headers are written in the order the caller set them; Content-length is
// computed last, after optional compression, so it always matches the bytes
// that follow the blank line.
func (r *request) marshal(compress bool) ([]byte, error) {
	if strings.TrimSpace(r.verb) == "" {
		return nil, newError(KindEncoding, "empty command")
	}
	if bodyRequired[r.verb] && r.body == nil {
		return nil, newError(KindEncoding, "%v requires a message body", r.verb)
	}
	if bodyForbidden[r.verb] && r.body != nil {
		return nil, newError(KindEncoding, "%v does not take a message body", r.verb)
	}

	body := r.body
	headers := r.headers
	if compress && body != nil {
		var err error
		if body, err = compressBody(body); err != nil {
			return nil, err
		}
		headers = headers.Set(HeaderCompress, "zlib")
	}

	buf := new(bytes.Buffer)
	tp := textproto.NewWriter(bufio.NewWriter(buf))

	if err := tp.PrintfLine("%v SPAMC/%v", r.verb, clientProtocolVersion); err != nil {
		return nil, wrapError(KindEncoding, err, "could not write command line")
	}
	for _, f := range headers {
		if f.Name == HeaderContentLength {
			continue
		}
		if err := tp.PrintfLine("%v: %v", f.Name, f.Value); err != nil {
			return nil, wrapError(KindEncoding, err, "could not write header")
		}
	}
	if body != nil {
		err := tp.PrintfLine("%v: %v", HeaderContentLength, strconv.Itoa(len(body)))
		if err != nil {
			return nil, wrapError(KindEncoding, err, "could not write header")
		}
	}
	if err := tp.PrintfLine(""); err != nil {
		return nil, wrapError(KindEncoding, err, "could not finish header block")
	}
	if err := tp.W.Flush(); err != nil {
		return nil, wrapError(KindEncoding, err, "could not flush headers")
	}

	buf.Write(body)
	return buf.Bytes(), nil
}
