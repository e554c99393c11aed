package httpcore

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/http/httpguts"
)

// connState names the states of the per-connection exchange loop spec.md
// §7 describes.
type connState int

const (
	stateReadRequestLine connState = iota
	stateReadHeaders
	stateAuthenticate
	stateMatch
	stateReadBody
	stateInvokeHandler
	stateWriteStatusHeaders
	stateWriteBody
	stateIdle
	stateClosed
)

// defaultMaxRequestLineLen and defaultMaxHeaderBytes bound the request-line and header
// section sizes, guarding against unbounded memory growth from a
// malicious or buggy client (spec.md §9).
const (
	defaultMaxRequestLineLen = 8 * 1024
	defaultMaxHeaderBytes    = 64 * 1024
)

// conn drives one accepted connection through the exchange state
// machine until the peer closes it, a non-keep-alive response is sent,
// or the server shuts down.
type conn struct {
	rwc    net.Conn
	br     *bufio.Reader
	bw     *bufio.Writer
	srv    *Server
	log    zerolog.Logger
	scheme string
}

func (c *conn) serve(ctx context.Context) {
	defer c.rwc.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if c.srv.conf.IdleTimeout > 0 {
			c.rwc.SetReadDeadline(time.Now().Add(c.srv.conf.IdleTimeout))
		}

		req, keepAliveWanted, err := c.readRequestHead()
		if err != nil {
			if err == io.EOF || isClosedConnError(err) {
				return
			}
			c.writeErrorAndClose(statusErrorOf(err))
			return
		}

		c.rwc.SetReadDeadline(time.Time{})

		// Authenticate, then Match, then ReadBody, then InvokeHandler —
		// the order spec.md §7 fixes, so a matched handler can choose
		// its own body sink (e.g. PUT spools to a temp file) before any
		// body bytes are read off the wire.
		resp, h := c.authenticateAndMatch(req)

		if resp == nil {
			if err := c.readBody(req); err != nil {
				req.Release()
				c.writeErrorAndClose(statusErrorOf(err))
				return
			}
			resp = c.invoke(ctx, req, h)
		}

		req.Release()

		keepAlive := keepAliveWanted && c.writeResponse(req, resp, keepAliveWanted)
		c.srv.observe(req, resp)

		if !keepAlive {
			return
		}
	}
}

// readRequestHead performs ReadRequestLine and ReadHeaders only — the
// body is read later, after Match, so a handler can choose its sink.
func (c *conn) readRequestHead() (*Request, bool, error) {
	method, target, version, err := c.readRequestLine()
	if err != nil {
		return nil, false, err
	}

	headers, err := c.readHeaders()
	if err != nil {
		return nil, false, err
	}

	req, err := newRequest(method, target, c.scheme, c.srv.conf.DefaultHost, headers, c.rwc.LocalAddr(), c.rwc.RemoteAddr())
	if err != nil {
		return nil, false, err
	}
	req.Attrs["httpcore.version"] = version

	keepAlive := connectionWantsKeepAlive(version, headers)
	return req, keepAlive, nil
}

func (c *conn) readRequestLine() (method, target, version string, err error) {
	limited := &limitedLineReader{r: c.br, max: defaultMaxRequestLineLen}
	line, err := limited.ReadLine()
	if err != nil {
		if err == errLineTooLong {
			return "", "", "", ErrURITooLong
		}
		return "", "", "", err
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return "", "", "", ErrMalformedRequest
	}
	method, target, version = parts[0], parts[1], parts[2]
	if version != "HTTP/1.0" && version != "HTTP/1.1" {
		return "", "", "", ErrUnsupportedVersion
	}
	if method == "" || target == "" {
		return "", "", "", ErrMalformedRequest
	}
	return method, target, version, nil
}

func (c *conn) readHeaders() (*Headers, error) {
	h := NewHeaders()
	limited := &limitedLineReader{r: c.br, max: defaultMaxHeaderBytes}
	total := 0
	for {
		line, err := limited.ReadLine()
		if err != nil {
			if err == errLineTooLong {
				return nil, ErrHeadersTooLarge
			}
			return nil, err
		}
		total += len(line)
		if total > defaultMaxHeaderBytes {
			return nil, ErrHeadersTooLarge
		}
		if line == "" {
			return h, nil
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, ErrMalformedRequest
		}
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		// Reject control characters and other field-value syntax
		// httpguts.ValidHeaderFieldValue flags — the same defensive
		// check net/http applies before a header reaches a handler.
		if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
			return nil, ErrMalformedRequest
		}
		h.Add(name, value)
	}
}

func (c *conn) readBody(req *Request) error {
	max := c.srv.conf.MaxBodyBytes
	return ingestBody(c.br, req, max)
}

func connectionWantsKeepAlive(version string, h *Headers) bool {
	cv, has := h.Get("Connection")
	if has {
		if strings.EqualFold(strings.TrimSpace(cv), "close") {
			return false
		}
		if strings.EqualFold(strings.TrimSpace(cv), "keep-alive") {
			return true
		}
	}
	return version == "HTTP/1.1"
}

// authenticateAndMatch runs Authenticate then Match. It returns a
// non-nil *Response only when the exchange should short-circuit
// (unauthenticated or no handler claimed the request); otherwise it
// returns the resolved handler for the caller to invoke after ReadBody.
func (c *conn) authenticateAndMatch(req *Request) (*Response, *Handler) {
	if c.srv.conf.Authenticator != nil && c.srv.conf.RequireAuth(req) {
		user, ok := c.srv.conf.Authenticator.Authenticate(req)
		if !ok {
			resp := NewErrorResponse(401, "authentication required", nil)
			resp.Header.Set("WWW-Authenticate", c.srv.conf.Authenticator.Challenge())
			return resp, nil
		}
		req.Attrs["httpcore.user"] = user
	}

	h, pathRecognized := c.srv.conf.Registry.Resolve(req)
	if h == nil && req.Method == "HEAD" && c.srv.conf.AutomaticallyMapHEADToGET {
		req.Method = "GET"
		if gh, gpr := c.srv.conf.Registry.Resolve(req); gh != nil {
			h, pathRecognized = gh, gpr
		} else {
			pathRecognized = pathRecognized || gpr
		}
		req.Method = "HEAD"
	}
	if h == nil {
		if pathRecognized {
			return NewErrorResponse(405, "method not allowed", nil), nil
		}
		return NewErrorResponse(501, "no handler for this request", nil), nil
	}
	return nil, h
}

func (c *conn) invoke(ctx context.Context, req *Request, h *Handler) *Response {
	resp, err := h.Process(ctx, req)
	if err != nil {
		return responseFromError(err)
	}
	return resp
}

func responseFromError(err error) *Response {
	if se, ok := err.(*StatusError); ok {
		return NewErrorResponse(se.Code, se.Message, se.Err)
	}
	return NewErrorResponse(500, "internal server error", err)
}

func statusErrorOf(err error) *StatusError {
	if se, ok := err.(*StatusError); ok {
		return se
	}
	return NewStatusError(400, "malformed request")
}

// writeResponse writes WriteStatusHeaders then WriteBody, returning
// whether the connection should remain open for another exchange.
// keepAliveWanted is whatever connectionWantsKeepAlive decided from the
// request's version and Connection header — the response's own
// Connection header must agree with it, since serve() closes the
// socket right after when it's false (spec.md §4.1).
func (c *conn) writeResponse(req *Request, resp *Response, keepAliveWanted bool) bool {
	version, _ := req.Attrs["httpcore.version"].(string)
	if version == "" {
		version = "HTTP/1.1"
	}

	bodyReader, useChunked, contentLength, encodeGzip := c.prepareBody(req, resp)

	if _, has := resp.Header.Get("Server"); !has {
		resp.Header.Set("Server", c.srv.conf.ServerName)
	}

	c.writeStatusLine(version, resp.Status)

	if useChunked {
		resp.Header.Set("Transfer-Encoding", "chunked")
		resp.Header.Del("Content-Length")
	} else if !noBodyStatus(resp.Status) {
		resp.Header.Set("Content-Length", strconv.FormatInt(contentLength, 10))
	}
	if encodeGzip {
		resp.Header.Set("Content-Encoding", "gzip")
	}

	keepAlive := keepAliveWanted
	if keepAlive {
		resp.Header.Set("Connection", "keep-alive")
	} else {
		resp.Header.Set("Connection", "close")
	}

	resp.Header.Range(func(name, value string) {
		c.bw.WriteString(headerCaseName(name))
		c.bw.WriteString(": ")
		c.bw.WriteString(value)
		c.bw.WriteString("\r\n")
	})
	c.bw.WriteString("\r\n")

	if req.Method != "HEAD" && !noBodyStatus(resp.Status) && bodyReader != nil {
		if !c.writeBodyOut(bodyReader, useChunked, encodeGzip) {
			keepAlive = false
		}
		bodyReader.Close()
	}

	if c.bw.Flush() != nil {
		keepAlive = false
	}
	return keepAlive
}

// prepareBody opens the response body (unless the method/status forbids
// one), applying gzip encoding when the client accepts it and the body's
// length isn't already fixed by a Range response semantics that would
// conflict with recompression.
func (c *conn) prepareBody(req *Request, resp *Response) (body io.ReadCloser, chunked bool, length int64, gz bool) {
	if resp.Body == nil || noBodyStatus(resp.Status) {
		return nil, false, 0, false
	}
	if req.Method == "HEAD" {
		// No body is sent, but the framing headers match what GET sends.
		if length = resp.Body.Len(); length < 0 {
			return nil, true, 0, false
		}
		return nil, false, length, false
	}

	reader, err := resp.Body.Open()
	if err != nil {
		return nil, false, 0, false
	}

	gz = req.AcceptsGzip && resp.Status != 206 && shouldGzip(resp)
	length = resp.Body.Len()

	if gz || length < 0 {
		return reader, true, 0, gz
	}
	return reader, false, length, false
}

func shouldGzip(resp *Response) bool {
	ct, _ := resp.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "text/") || strings.Contains(ct, "xml") || strings.Contains(ct, "json")
}

func (c *conn) writeBodyOut(r io.Reader, chunked, gz bool) bool {
	var w io.Writer = c.bw
	var enc *gzipEncoder
	// A gzip response is always sent chunked, so the compressed output
	// collects in gzOut and is framed as chunks as it is produced.
	var gzOut bytes.Buffer
	if gz {
		enc = newGzipEncoder(&gzOut)
		w = enc
	}

	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if chunked && !gz {
				if writeChunked(c.bw, buf[:n]) != nil {
					return false
				}
			} else {
				if _, werr := w.Write(buf[:n]); werr != nil {
					return false
				}
				if gz && gzOut.Len() > 0 {
					if writeChunked(c.bw, gzOut.Bytes()) != nil {
						return false
					}
					gzOut.Reset()
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return false
		}
	}

	if gz {
		enc.Close()
		if gzOut.Len() > 0 && writeChunked(c.bw, gzOut.Bytes()) != nil {
			return false
		}
	}
	if chunked {
		if writeChunkedTrailer(c.bw) != nil {
			return false
		}
	}
	return true
}

func (c *conn) writeStatusLine(version string, status int) {
	c.bw.WriteString(version)
	c.bw.WriteByte(' ')
	c.bw.WriteString(strconv.Itoa(status))
	c.bw.WriteByte(' ')
	c.bw.WriteString(ReasonPhrase(status))
	c.bw.WriteString("\r\n")
}

func (c *conn) writeErrorAndClose(se *StatusError) {
	resp := NewErrorResponse(se.Code, se.Message, se.Err)
	c.writeStatusLine("HTTP/1.1", resp.Status)
	resp.Header.Set("Connection", "close")
	resp.Header.Set("Content-Type", "text/html; charset=utf-8")
	body := resp.Body.(BytesBody).Data
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	resp.Header.Range(func(name, value string) {
		c.bw.WriteString(headerCaseName(name))
		c.bw.WriteString(": ")
		c.bw.WriteString(value)
		c.bw.WriteString("\r\n")
	})
	c.bw.WriteString("\r\n")
	c.bw.Write(body)
	c.bw.Flush()
}

// headerCaseName renders a lowercased header key in conventional
// Title-Case form for the wire, purely cosmetic.
func headerCaseName(name string) string {
	parts := strings.Split(name, "-")
	for i, p := range parts {
		if len(p) > 0 {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "-")
}

func isClosedConnError(err error) bool {
	return strings.Contains(err.Error(), "use of closed network connection")
}
