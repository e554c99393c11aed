package httpcore

import (
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ContentLengthUnknown is the sentinel for "no Content-Length and not
// chunked" — a request in that state has no body (spec.md §3).
const ContentLengthUnknown int64 = -1

// ContentTypeKind distinguishes the three states spec.md §3 names for a
// request's content type.
type ContentTypeKind int

const (
	ContentTypeNone ContentTypeKind = iota
	ContentTypeOctetStreamDefault
	ContentTypeExplicit
)

// ContentType is the sum type spec.md §3 describes for a request's
// Content-Type header.
type ContentType struct {
	Kind  ContentTypeKind
	Value string // meaningful when Kind == ContentTypeExplicit
}

// MediaType returns the bare media type (no parameters) regardless of
// Kind, defaulting to application/octet-stream.
func (c ContentType) MediaType() string {
	switch c.Kind {
	case ContentTypeExplicit:
		if i := strings.IndexByte(c.Value, ';'); i >= 0 {
			return strings.TrimSpace(c.Value[:i])
		}
		return strings.TrimSpace(c.Value)
	default:
		return "application/octet-stream"
	}
}

// Param returns the value of a `; name=value` parameter of the
// Content-Type header, case-insensitive on name, with surrounding quotes
// stripped.
func (c ContentType) Param(name string) (string, bool) {
	if c.Kind != ContentTypeExplicit {
		return "", false
	}
	parts := strings.Split(c.Value, ";")
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(kv[0]), name) {
			continue
		}
		v := strings.TrimSpace(kv[1])
		v = strings.Trim(v, `"`)
		return v, true
	}
	return "", false
}

// Request is the parsed, immutable (except for body ingestion and Attrs)
// representation of an incoming HTTP request, per spec.md §3.
type Request struct {
	Method string
	URL    *url.URL // absolute: scheme+authority derived from bind+Host
	Path   string   // url-decoded, always begins with "/"
	Query  url.Values
	Header *Headers

	ContentType     ContentType
	ContentLength   int64 // ContentLengthUnknown when absent and !Chunked
	Chunked         bool
	ContentEncoding string // "", "gzip", "x-gzip", "deflate"

	IfModifiedSince time.Time // zero value means absent
	IfNoneMatch     string
	Range           ByteRange
	AcceptsGzip     bool

	LocalAddr  net.Addr
	RemoteAddr net.Addr

	// Attrs is a mutable attribute bag populated by match predicates
	// (e.g. the "regex-captures" key) and by handlers.
	Attrs map[string]interface{}

	Body BodySink
}

// HasBody reports whether the wire carries a body for this request, per
// spec.md §3: content-length known-present, or chunked.
func (r *Request) HasBody() bool {
	return r.Chunked || r.ContentLength != ContentLengthUnknown
}

// newRequest validates and assembles a Request from the already-parsed
// request line and header section. scheme/host give the absolute URL per
// spec.md §3 ("scheme+authority derived from server bind + Host header").
func newRequest(method, rawTarget, scheme, defaultHost string, h *Headers, local, remote net.Addr) (*Request, error) {
	rawPath, rawQuery, _ := strings.Cut(rawTarget, "?")

	path, err := url.PathUnescape(rawPath)
	if err != nil || !strings.HasPrefix(path, "/") {
		return nil, ErrMalformedRequest
	}

	query, err := parseQuery(rawQuery)
	if err != nil {
		return nil, ErrMalformedRequest
	}

	host := defaultHost
	if hv, ok := h.Get("Host"); ok && hv != "" {
		host = hv
	}

	u := &url.URL{Scheme: scheme, Host: host, Path: path, RawQuery: rawQuery}

	req := &Request{
		Method: method,
		URL:    u,
		Path:   path,
		Query:  query,
		Header: h,
		Attrs:  map[string]interface{}{},

		LocalAddr:  local,
		RemoteAddr: remote,
	}

	if err := req.parseBodyMetadata(); err != nil {
		return nil, err
	}
	req.parseConditionals()
	req.parseEncodingAndRange()

	return req, nil
}

func parseQuery(raw string) (url.Values, error) {
	vals := url.Values{}
	if raw == "" {
		return vals, nil
	}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		dk, err := url.QueryUnescape(k)
		if err != nil {
			return nil, err
		}
		dv, err := url.QueryUnescape(v)
		if err != nil {
			return nil, err
		}
		vals.Set(dk, dv)
	}
	return vals, nil
}

// parseBodyMetadata derives ContentType/ContentLength/Chunked, rejecting
// a negative Content-Length or Content-Length coexisting with chunked
// transfer-encoding, per spec.md §3/§9.
func (r *Request) parseBodyMetadata() error {
	r.ContentLength = ContentLengthUnknown

	if ct, ok := r.Header.Get("Content-Type"); ok && ct != "" {
		r.ContentType = ContentType{Kind: ContentTypeExplicit, Value: ct}
	} else {
		r.ContentType = ContentType{Kind: ContentTypeNone}
	}

	te, _ := r.Header.Get("Transfer-Encoding")
	r.Chunked = strings.EqualFold(strings.TrimSpace(te), "chunked")

	clStr, hasCL := r.Header.Get("Content-Length")
	if hasCL {
		if r.Chunked {
			// spec.md §9 open question: reject at construction rather
			// than silently preferring one framing.
			return ErrMalformedRequest
		}
		cl, err := strconv.ParseInt(strings.TrimSpace(clStr), 10, 64)
		if err != nil || cl < 0 {
			return ErrMalformedRequest
		}
		r.ContentLength = cl
	}

	if r.ContentType.Kind == ContentTypeNone && r.HasBody() {
		r.ContentType = ContentType{Kind: ContentTypeOctetStreamDefault}
	}

	return nil
}

func (r *Request) parseConditionals() {
	if v, ok := r.Header.Get("If-Modified-Since"); ok {
		if t, err := ParseDate(v); err == nil {
			r.IfModifiedSince = t
		}
	}
	if v, ok := r.Header.Get("If-None-Match"); ok {
		r.IfNoneMatch = v
	}
}

func (r *Request) parseEncodingAndRange() {
	if enc, ok := r.Header.Get("Content-Encoding"); ok {
		r.ContentEncoding = strings.ToLower(strings.TrimSpace(enc))
	}

	if rangeHeader, ok := r.Header.Get("Range"); ok {
		if rr, err := ParseRange(rangeHeader); err == nil {
			r.Range = rr
		}
	}

	if ae, ok := r.Header.Get("Accept-Encoding"); ok {
		for _, enc := range strings.Split(ae, ",") {
			if strings.EqualFold(strings.TrimSpace(stripQValue(enc)), "gzip") {
				r.AcceptsGzip = true
				break
			}
		}
	}
}

func stripQValue(enc string) string {
	if i := strings.IndexByte(enc, ';'); i >= 0 {
		return enc[:i]
	}
	return enc
}

// Release unlinks any temp-file-backed resources owned by the request's
// body sink. The connection engine calls this once the exchange
// completes, standing in for Go's lack of destructors.
func (r *Request) Release() {
	if r.Body == nil {
		return
	}
	if rel, ok := r.Body.(interface{ Release() }); ok {
		rel.Release()
	}
}
