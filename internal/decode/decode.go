// Package decode reverses the Content-Encoding of a fully buffered body.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// ErrCorrupt is wrapped by every decode failure.
var ErrCorrupt = errors.New("decode: corrupt body")

// Encoding is a Content-Encoding token.
type Encoding string

const (
	Identity Encoding = "identity"
	Gzip     Encoding = "gzip"
	Deflate  Encoding = "deflate"
	Brotli   Encoding = "br"
)

// ParseEncoding maps a single header token to an Encoding.
// Unknown tokens map to Identity.
func ParseEncoding(token string) Encoding {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "gzip", "x-gzip":
		return Gzip
	case "deflate":
		return Deflate
	case "br":
		return Brotli
	default:
		return Identity
	}
}

// Decode decodes body according to enc. Empty input and Identity return
// body unchanged.
func Decode(body []byte, enc Encoding) ([]byte, error) {
	if len(body) == 0 {
		return body, nil
	}

	switch enc {
	case Gzip:
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrCorrupt, err)
		}
		defer func() { _ = zr.Close() }()
		return readAll(zr, "gzip")
	case Deflate:
		return inflate(body)
	case Brotli:
		return readAll(brotli.NewReader(bytes.NewReader(body)), "br")
	default:
		return body, nil
	}
}

// DecodeHeader decodes body using a raw Content-Encoding header value.
// Codings listed in the header were applied in order, so they are undone
// last to first.
func DecodeHeader(body []byte, header string) ([]byte, error) {
	if header == "" {
		return body, nil
	}
	tokens := strings.Split(header, ",")
	out := body
	for i := len(tokens) - 1; i >= 0; i-- {
		var err error
		out, err = Decode(out, ParseEncoding(tokens[i]))
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// inflate accepts zlib-wrapped streams, which is what "deflate" means in
// HTTP, and falls back to raw DEFLATE which some servers send instead.
func inflate(body []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err == nil {
		defer func() { _ = zr.Close() }()
		return readAll(zr, "deflate")
	}
	if !errors.Is(err, zlib.ErrHeader) {
		return nil, fmt.Errorf("%w: deflate: %v", ErrCorrupt, err)
	}

	fr := flate.NewReader(bytes.NewReader(body))
	defer func() { _ = fr.Close() }()
	return readAll(fr, "deflate")
}

func readAll(r io.Reader, name string) ([]byte, error) {
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}
	return out, nil
}
