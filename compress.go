package spamc

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
)

// compressBody deflates a message body for a "Compress: zlib" request. The
// Content-length a request declares is the length of the compressed bytes.
func compressBody(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		zw.Close() // nolint: errcheck
		return nil, wrapError(KindBadCompression, err, "could not compress body")
	}
	if err := zw.Close(); err != nil {
		return nil, wrapError(KindBadCompression, err, "could not compress body")
	}
	return buf.Bytes(), nil
}

// decompressBody inflates a response body that the daemon declared as
// compressed. Failures are never passed through as body bytes.
func decompressBody(body []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, wrapError(KindBadCompression, err, "could not decompress body")
	}
	defer zr.Close() // nolint: errcheck

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, wrapError(KindBadCompression, err, "could not decompress body")
	}
	return out, nil
}
