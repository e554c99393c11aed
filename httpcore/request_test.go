package httpcore

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeAddr string

func (f fakeAddr) Network() string { return "tcp" }
func (f fakeAddr) String() string  { return string(f) }

func buildRequest(t *testing.T, method, target string, headers map[string]string) (*Request, error) {
	t.Helper()
	h := NewHeaders()
	for k, v := range headers {
		h.Set(k, v)
	}
	return newRequest(method, target, "http", "example.test", h, fakeAddr("local"), fakeAddr("remote"))
}

func TestNewRequestBasics(t *testing.T) {
	req, err := buildRequest(t, "GET", "/a/b%20c?x=1&y=hello%20world", nil)
	require.NoError(t, err)
	require.Equal(t, "/a/b c", req.Path)
	require.Equal(t, "1", req.Query.Get("x"))
	require.Equal(t, "hello world", req.Query.Get("y"))
	require.False(t, req.HasBody())
}

func TestNewRequestRejectsNonAbsolutePath(t *testing.T) {
	_, err := buildRequest(t, "GET", "relative/path", nil)
	require.Error(t, err)
}

func TestParseBodyMetadataRejectsNegativeContentLength(t *testing.T) {
	_, err := buildRequest(t, "PUT", "/x", map[string]string{"Content-Length": "-5"})
	require.Error(t, err)
}

func TestParseBodyMetadataRejectsChunkedWithContentLength(t *testing.T) {
	_, err := buildRequest(t, "PUT", "/x", map[string]string{
		"Content-Length":    "10",
		"Transfer-Encoding": "chunked",
	})
	require.Error(t, err)
}

func TestParseBodyMetadataDefaultsContentType(t *testing.T) {
	req, err := buildRequest(t, "PUT", "/x", map[string]string{"Content-Length": "5"})
	require.NoError(t, err)
	require.Equal(t, ContentTypeOctetStreamDefault, req.ContentType.Kind)
	require.Equal(t, "application/octet-stream", req.ContentType.MediaType())
	require.True(t, req.HasBody())
	require.Equal(t, int64(5), req.ContentLength)
}

func TestContentTypeParam(t *testing.T) {
	req, err := buildRequest(t, "POST", "/x", map[string]string{
		"Content-Length": "0",
		"Content-Type":   `multipart/form-data; boundary="abc123"`,
	})
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", req.ContentType.MediaType())
	b, ok := req.ContentType.Param("boundary")
	require.True(t, ok)
	require.Equal(t, "abc123", b)
}

func TestParseConditionalsAndEncoding(t *testing.T) {
	req, err := buildRequest(t, "GET", "/x", map[string]string{
		"If-None-Match":   `"etag-1"`,
		"Accept-Encoding": "deflate, gzip;q=0.8",
	})
	require.NoError(t, err)
	require.Equal(t, `"etag-1"`, req.IfNoneMatch)
	require.True(t, req.AcceptsGzip)
}

func TestHostHeaderOverridesDefault(t *testing.T) {
	req, err := buildRequest(t, "GET", "/x", map[string]string{"Host": "override.test"})
	require.NoError(t, err)
	require.Equal(t, "override.test", req.URL.Host)
}

func TestReleaseCallsSinkRelease(t *testing.T) {
	req, err := buildRequest(t, "GET", "/x", nil)
	require.NoError(t, err)
	sink := &TempFileSink{Dir: t.TempDir()}
	require.NoError(t, sink.Open())
	req.Body = sink
	req.Release()
	_, statErr := sink.Reopen()
	require.Error(t, statErr)
}

var _ net.Addr = fakeAddr("")
