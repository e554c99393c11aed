package httpcore

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// BodySink is the destination a request body is written into as it is
// read off the wire, per spec.md §3. Open is called once before the
// first Write; Close is called once after the last Write (or if the
// exchange aborts before any bytes arrive).
type BodySink interface {
	Open() error
	Write(p []byte) (int, error)
	Close() error
}

// DiscardSink drops every byte written to it. Handlers that don't care
// about the request body (most WebDAV methods besides PUT) use this.
type DiscardSink struct {
	n int64
}

func (s *DiscardSink) Open() error                { return nil }
func (s *DiscardSink) Write(p []byte) (int, error) { s.n += int64(len(p)); return len(p), nil }
func (s *DiscardSink) Close() error                { return nil }

// MemorySink buffers the body in memory, bounded by MaxBytes (0 means
// unbounded), for handlers that want the whole body as one []byte. The
// webdav and uploader packages do not use it: PROPFIND bodies go to the
// default DiscardSink and uploader form posts to URLEncodedSink.
type MemorySink struct {
	MaxBytes int64
	buf      []byte
}

func (s *MemorySink) Open() error { s.buf = nil; return nil }

func (s *MemorySink) Write(p []byte) (int, error) {
	if s.MaxBytes > 0 && int64(len(s.buf))+int64(len(p)) > s.MaxBytes {
		return 0, ErrBodyTooLarge
	}
	s.buf = append(s.buf, p...)
	return len(p), nil
}

func (s *MemorySink) Close() error { return nil }

// Bytes returns the buffered body. Valid only after Close.
func (s *MemorySink) Bytes() []byte { return s.buf }

// ErrBodyTooLarge is returned by a bounded sink once its limit is
// exceeded mid-write.
var ErrBodyTooLarge = NewStatusError(413, "request body too large")

// TempFileSink spools the body to a file under Dir (os.TempDir() if
// empty), named with a random uuid so concurrent uploads never collide.
// The file is unlinked by Release, not by Close — Close only flushes and
// closes the descriptor so the file can still be reopened for reading
// (e.g. PUT streaming into WebDAV storage) before it is discarded.
type TempFileSink struct {
	Dir  string
	f    *os.File
	path string
}

func (s *TempFileSink) Open() error {
	dir := s.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	name := "lanternd-" + uuid.New().String() + ".tmp"
	f, err := os.OpenFile(dir+string(os.PathSeparator)+name, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		return errors.Wrap(err, "open temp body file")
	}
	s.f = f
	s.path = f.Name()
	return nil
}

func (s *TempFileSink) Write(p []byte) (int, error) { return s.f.Write(p) }

func (s *TempFileSink) Close() error {
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}

// Path returns the spooled file's path, valid after Open.
func (s *TempFileSink) Path() string { return s.path }

// Reopen reopens the spooled file for reading, for handlers that need to
// stream it back out (e.g. into WebDAV storage) after Close.
func (s *TempFileSink) Reopen() (*os.File, error) { return os.Open(s.path) }

// Release unlinks the spooled file. Safe to call more than once.
func (s *TempFileSink) Release() {
	if s.path != "" {
		os.Remove(s.path)
		s.path = ""
	}
}

// limitedReader is like io.LimitReader except it treats hitting EOF
// before N bytes have been read as io.ErrUnexpectedEOF instead of a
// clean end of stream, per spec.md §9 ("client closes before
// content-length bytes arrive: abort the exchange with 400").
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if err == io.EOF && l.remaining > 0 {
		return n, io.ErrUnexpectedEOF
	}
	return n, err
}

// ingestBody reads the wire-framed body of req from r (already
// positioned just past the header section) into req.Body, applying
// chunked decoding and content decoding in the order spec.md §4.2
// specifies: dechunk first, then inflate/gunzip, then hand the
// resulting bytes to the sink.
func ingestBody(r io.Reader, req *Request, maxBodyBytes int64) error {
	if !req.HasBody() {
		return nil
	}
	if req.Body == nil {
		req.Body = &DiscardSink{}
	}

	var wire io.Reader
	if req.Chunked {
		wire = newChunkedReader(r)
	} else {
		if maxBodyBytes > 0 && req.ContentLength > maxBodyBytes {
			return ErrBodyTooLarge
		}
		wire = &limitedReader{r: r, remaining: req.ContentLength}
	}

	decoded, err := decodeContentEncoding(wire, req.ContentEncoding)
	if err != nil {
		return err
	}

	if err := req.Body.Open(); err != nil {
		return errors.Wrap(err, "open body sink")
	}

	buf := make([]byte, 32*1024)
	var total int64
	for {
		n, rerr := decoded.Read(buf)
		if n > 0 {
			total += int64(n)
			if maxBodyBytes > 0 && total > maxBodyBytes {
				req.Body.Close()
				return ErrBodyTooLarge
			}
			if _, werr := req.Body.Write(buf[:n]); werr != nil {
				req.Body.Close()
				return werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr == io.ErrUnexpectedEOF {
			req.Body.Close()
			return ErrMalformedRequest
		}
		if rerr != nil {
			req.Body.Close()
			return errors.Wrap(rerr, "read request body")
		}
	}

	return req.Body.Close()
}
