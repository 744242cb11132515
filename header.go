package spamc

import (
	"net/textproto"
	"strings"
)

// Header key constants.
const (
	HeaderCompress      = "Compress"
	HeaderContentLength = "Content-length"
	HeaderDidRemove     = "DidRemove"
	HeaderDidSet        = "DidSet"
	HeaderMessageClass  = "Message-class"
	HeaderRemove        = "Remove"
	HeaderSet           = "Set"
	HeaderSpam          = "Spam"
	HeaderUser          = "User"
)

// Message classes for the TELL command.
const (
	MessageClassSpam = "spam"
	MessageClassHam  = "ham"
)

// Databases a TELL command can operate on.
const (
	TellLocal  = "local"
	TellRemote = "remote"
)

// spamd wants some headers with a specific capitalisation; most notably
// "Content-Length" is a fatal error and has to be "Content-length".
var canonicalNames = map[string]string{
	"compress":       HeaderCompress,
	"content-length": HeaderContentLength,
	"didremove":      HeaderDidRemove,
	"didset":         HeaderDidSet,
	"message-class":  HeaderMessageClass,
	"remove":         HeaderRemove,
	"set":            HeaderSet,
	"spam":           HeaderSpam,
	"user":           HeaderUser,
}

// Field is a single header as a name/value pair.
type Field struct {
	Name  string
	Value string
}

// Header is an ordered list of headers for requests and responses. The zero
// value (or nil) is an empty usable header list.
//
// Lookups are case-insensitive; iteration order is insertion order, which is
// also the order headers are written on the wire.
type Header []Field

// Set the value for a header, replacing an existing one. The name is
// normalised to the capitalisation spamd expects. It returns the Header so
// calls can be chained:
//
//	Header{}.Set("Message-class", "spam").Set("Set", "local")
func (h Header) Set(name, value string) Header {
	name = normalName(name)
	for i := range h {
		if h[i].Name == name {
			h[i].Value = value
			return h
		}
	}
	return append(h, Field{Name: name, Value: value})
}

// Get the value for a header and report whether it was present at all.
func (h Header) Get(name string) (string, bool) {
	name = normalName(name)
	for i := range h {
		if h[i].Name == name {
			return h[i].Value, true
		}
	}
	return "", false
}

func normalName(name string) string {
	if c, ok := canonicalNames[strings.ToLower(name)]; ok {
		return c
	}
	return textproto.CanonicalMIMEHeaderKey(name)
}
