package httpcore

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"strings"
)

// decodeContentEncoding wraps wire in a decoder matching the request's
// Content-Encoding. An unrecognized encoding is rejected rather than
// passed through, since forwarding undecoded bytes to a sink expecting
// plain content would silently corrupt it.
func decodeContentEncoding(wire io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(encoding) {
	case "", "identity":
		return wire, nil
	case "gzip", "x-gzip":
		gr, err := gzip.NewReader(wire)
		if err != nil {
			return nil, WrapStatusError(400, "invalid gzip body", err)
		}
		return gr, nil
	case "deflate":
		return flate.NewReader(wire), nil
	default:
		return nil, NewStatusError(415, "unsupported content-encoding")
	}
}

// gzipEncoder wraps a downstream writer with gzip compression for
// outbound response bodies. The connection engine uses it whenever the
// client sent Accept-Encoding: gzip, the status is not 206 and the
// response's Content-Type is text/*, or contains "xml" or "json"
// (shouldGzip in conn.go); a handler has no per-response switch to turn
// it on or off.
type gzipEncoder struct {
	w  io.Writer
	gz *gzip.Writer
}

func newGzipEncoder(w io.Writer) *gzipEncoder {
	return &gzipEncoder{w: w, gz: gzip.NewWriter(w)}
}

func (g *gzipEncoder) Write(p []byte) (int, error) { return g.gz.Write(p) }
func (g *gzipEncoder) Close() error                { return g.gz.Close() }
