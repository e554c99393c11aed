package httpcore

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MultipartPart is one decoded part of a multipart/form-data body. A
// part with a non-empty FileName is spooled to FilePath rather than
// buffered into Data, so an upload isn't held twice in memory (once in
// the sink's buffer, once again as a []byte) while its content is
// being routed to storage (spec.md §4.2.1).
type MultipartPart struct {
	Name     string
	FileName string
	Header   map[string][]string
	// Data holds a non-file field's value. Empty for file parts — read
	// FilePath instead.
	Data []byte
	// FilePath is the spooled temp file backing a file part. Empty for
	// non-file fields.
	FilePath string
}

// MultipartSink buffers a multipart/form-data body whole and parses it
// in Close using the boundary carried in the request's Content-Type
// parameter — the boundary-scanning itself (finding "--<boundary>"
// delimiters, final "--" terminator, per-part headers) is what
// mime/multipart already does correctly including edge cases around
// folded headers and trailing CRLF handling, so this sink is a thin
// buffering shim rather than a reimplementation. A nested
// multipart/mixed part (the form used historically for multi-file
// fields under one control name) is flattened: its inner parts are
// appended to Parts() under the outer part's form name, exactly as if
// they'd been posted as sibling file parts.
type MultipartSink struct {
	Boundary string
	MaxBytes int64
	// TempDir spools file parts under this directory; empty means
	// os.TempDir().
	TempDir string

	buf   bytes.Buffer
	parts []MultipartPart
}

func (s *MultipartSink) Open() error {
	s.buf.Reset()
	s.releaseSpooled()
	s.parts = nil
	return nil
}

func (s *MultipartSink) Write(p []byte) (int, error) {
	if s.MaxBytes > 0 && int64(s.buf.Len())+int64(len(p)) > s.MaxBytes {
		return 0, ErrBodyTooLarge
	}
	return s.buf.Write(p)
}

func (s *MultipartSink) Close() error {
	mr := multipart.NewReader(bytes.NewReader(s.buf.Bytes()), s.Boundary)
	return s.readParts(mr, "")
}

// readParts drains every part of mr into s.parts. nameOverride, when
// non-empty, is the control name of the multipart/mixed part mr is
// nested under — used to flatten an inner file part up to the outer
// field's name.
func (s *MultipartSink) readParts(mr *multipart.Reader, nameOverride string) error {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return WrapStatusError(400, "invalid multipart body", err)
		}

		formName, fileName := part.FormName(), part.FileName()
		contentType := part.Header.Get("Content-Type")

		if mediaType, params, err := mime.ParseMediaType(contentType); err == nil && mediaType == "multipart/mixed" {
			nested := multipart.NewReader(part, params["boundary"])
			nestErr := s.readParts(nested, formName)
			part.Close()
			if nestErr != nil {
				return nestErr
			}
			continue
		}

		name := formName
		if nameOverride != "" {
			name = nameOverride
		}
		header := map[string][]string(part.Header)

		if fileName == "" {
			data, err := io.ReadAll(part)
			part.Close()
			if err != nil {
				return errors.Wrap(err, "read multipart part")
			}
			s.parts = append(s.parts, MultipartPart{Name: name, Header: header, Data: data})
			continue
		}

		path, err := s.spoolPart(part)
		part.Close()
		if err != nil {
			return err
		}
		s.parts = append(s.parts, MultipartPart{Name: name, FileName: fileName, Header: header, FilePath: path})
	}
	return nil
}

// spoolPart copies a file part's content to a fresh temp file, mirroring
// TempFileSink's naming so a crashed process leaves identically
// recognizable droppings for cleanup tooling.
func (s *MultipartSink) spoolPart(part *multipart.Part) (string, error) {
	dir := s.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	name := "lanternd-upload-" + uuid.New().String() + ".tmp"
	f, err := os.OpenFile(dir+string(os.PathSeparator)+name, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		return "", errors.Wrap(err, "open temp file for multipart part")
	}
	defer f.Close()

	if _, err := io.Copy(f, part); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrap(err, "spool multipart part")
	}
	return f.Name(), nil
}

func (s *MultipartSink) releaseSpooled() {
	for _, p := range s.parts {
		if p.FilePath != "" {
			os.Remove(p.FilePath)
		}
	}
}

// Release unlinks every spooled file part. Request.Release calls this
// via the optional Release() interface BodySink implementations may
// satisfy.
func (s *MultipartSink) Release() {
	s.releaseSpooled()
}

// Parts returns the decoded parts, valid after Close.
func (s *MultipartSink) Parts() []MultipartPart { return s.parts }

// Part looks up the first part with the given form field name.
func (s *MultipartSink) Part(name string) (MultipartPart, bool) {
	for _, p := range s.parts {
		if p.Name == name {
			return p, true
		}
	}
	return MultipartPart{}, false
}
