// Package spamc is a client library for SpamAssassin's spamd daemon. It
// provides functions for all the commands in the spamd protocol as specified
// here: http://svn.apache.org/repos/asf/spamassassin/trunk/spamd/PROTOCOL
//
// All Client functions accept the message as an io.Reader and an optional
// Header (which can be nil). The message is buffered and the Content-length
// header is always computed from the exact bytes that go on the wire, also
// when compression is enabled.
//
// Use Header.Set rather than building the list by hand; it normalises the
// header name capitalisation. spamd insists on "Content-length" with a
// lower-case "l", and Set takes care of that.
//
// Bodies can optionally be sent zlib-compressed by enabling compression on
// the Config; the response body is transparently decompressed when the
// daemon declares a Compress header.
package spamc // import "github.com/spamwatch/spamc"
