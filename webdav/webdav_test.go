package webdav

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lanterndav/lantern/httpcore"
)

func startWebdavServer(t *testing.T, root string) string {
	t.Helper()
	policy := NewPolicy(root)
	svc := New("/dav", policy, zerolog.Nop())
	reg := httpcore.NewRegistry()
	svc.Register(reg)

	conf := &httpcore.ServerConfig{
		Registry:     reg,
		MaxBodyBytes: 1 << 20,
		DrainTimeout: time.Second,
		Logger:       zerolog.Nop(),
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := httpcore.NewServer(conf)
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx, ln)

	t.Cleanup(func() {
		cancel()
		srv.Stop()
	})

	return ln.Addr().String()
}

// do issues a raw request against addr using net/http's client (reusing
// net/http only as a test client, not as the server under test) and
// returns the status code and body.
func do(t *testing.T, method, addr, path string, body []byte, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, "http://"+addr+path, reader)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestPutThenGetThenOverwrite(t *testing.T) {
	root := t.TempDir()
	addr := startWebdavServer(t, root)

	resp, _ := do(t, "PUT", addr, "/dav/hello.txt", []byte("Hello"), nil)
	require.Equal(t, 201, resp.StatusCode)

	resp, body := do(t, "GET", addr, "/dav/hello.txt", nil, nil)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "Hello", string(body))

	resp, _ = do(t, "PUT", addr, "/dav/hello.txt", []byte("Hi"), nil)
	require.Equal(t, 204, resp.StatusCode)

	resp, body = do(t, "GET", addr, "/dav/hello.txt", nil, nil)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "Hi", string(body))
}

func TestMkcolParentMissingIs409(t *testing.T) {
	root := t.TempDir()
	addr := startWebdavServer(t, root)

	resp, _ := do(t, "MKCOL", addr, "/dav/a/b", nil, nil)
	require.Equal(t, 409, resp.StatusCode)
}

func TestMkcolExistingTargetIs500(t *testing.T) {
	root := t.TempDir()
	addr := startWebdavServer(t, root)

	resp, _ := do(t, "MKCOL", addr, "/dav/col", nil, nil)
	require.Equal(t, 201, resp.StatusCode)

	resp, _ = do(t, "MKCOL", addr, "/dav/col", nil, nil)
	require.Equal(t, 500, resp.StatusCode)
}

func TestGetMissingIs404(t *testing.T) {
	root := t.TempDir()
	addr := startWebdavServer(t, root)

	resp, _ := do(t, "GET", addr, "/dav/nope.txt", nil, nil)
	require.Equal(t, 404, resp.StatusCode)
}

func TestMoveThenSourceGone(t *testing.T) {
	root := t.TempDir()
	addr := startWebdavServer(t, root)

	resp, _ := do(t, "PUT", addr, "/dav/a.txt", []byte("data"), nil)
	require.Equal(t, 201, resp.StatusCode)

	resp, _ = do(t, "MOVE", addr, "/dav/a.txt", nil, map[string]string{
		"Destination": "http://" + addr + "/dav/b.txt",
	})
	require.Equal(t, 201, resp.StatusCode)

	resp, _ = do(t, "GET", addr, "/dav/a.txt", nil, nil)
	require.Equal(t, 404, resp.StatusCode)

	resp, body := do(t, "GET", addr, "/dav/b.txt", nil, nil)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "data", string(body))
}

func TestCopyOverwriteFWithExistingTargetIs412(t *testing.T) {
	root := t.TempDir()
	addr := startWebdavServer(t, root)

	do(t, "PUT", addr, "/dav/src.txt", []byte("x"), nil)
	do(t, "PUT", addr, "/dav/dst.txt", []byte("y"), nil)

	resp, _ := do(t, "COPY", addr, "/dav/src.txt", nil, map[string]string{
		"Destination": "http://" + addr + "/dav/dst.txt",
		"Overwrite":   "F",
	})
	require.Equal(t, 412, resp.StatusCode)
}

func TestPropfindDepth0(t *testing.T) {
	root := t.TempDir()
	addr := startWebdavServer(t, root)

	do(t, "PUT", addr, "/dav/f.txt", []byte("12345"), nil)

	resp, body := do(t, "PROPFIND", addr, "/dav/f.txt", nil, map[string]string{"Depth": "0"})
	require.Equal(t, 207, resp.StatusCode)
	require.Contains(t, string(body), "f.txt")
	require.Contains(t, string(body), "<D:getcontentlength>5</D:getcontentlength>")
}

func TestPropfindMissingDepthIs400(t *testing.T) {
	root := t.TempDir()
	addr := startWebdavServer(t, root)

	resp, _ := do(t, "PROPFIND", addr, "/dav/", nil, nil)
	require.Equal(t, 400, resp.StatusCode)
}

func TestPropfindDepth1ListsChildren(t *testing.T) {
	root := t.TempDir()
	addr := startWebdavServer(t, root)

	do(t, "PUT", addr, "/dav/a.txt", []byte("a"), nil)
	do(t, "PUT", addr, "/dav/b.txt", []byte("b"), nil)

	resp, body := do(t, "PROPFIND", addr, "/dav/", nil, map[string]string{"Depth": "1"})
	require.Equal(t, 207, resp.StatusCode)
	require.Contains(t, string(body), "a.txt")
	require.Contains(t, string(body), "b.txt")
}

func TestPolicyHidesDotfilesAndDeniedExtensions(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".secret"), []byte("x"), 0644))

	policy := NewPolicy(root)
	policy.AllowedExtensions = map[string]bool{"txt": true}
	addr := func() string {
		svc := New("/dav", policy, zerolog.Nop())
		reg := httpcore.NewRegistry()
		svc.Register(reg)
		conf := &httpcore.ServerConfig{Registry: reg, MaxBodyBytes: 1 << 20, DrainTimeout: time.Second, Logger: zerolog.Nop()}
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		srv := httpcore.NewServer(conf)
		ctx, cancel := context.WithCancel(context.Background())
		go srv.Serve(ctx, ln)
		t.Cleanup(func() { cancel(); srv.Stop() })
		return ln.Addr().String()
	}()

	resp, _ := do(t, "GET", addr, "/dav/.secret", nil, nil)
	require.Equal(t, 403, resp.StatusCode)

	resp, _ = do(t, "PUT", addr, "/dav/a.jpg", []byte("x"), nil)
	require.Equal(t, 403, resp.StatusCode)

	resp, _ = do(t, "PUT", addr, "/dav/a.txt", []byte("x"), nil)
	require.Equal(t, 201, resp.StatusCode)
}

func TestGetOnDirectoryReturnsEmpty200(t *testing.T) {
	root := t.TempDir()
	addr := startWebdavServer(t, root)

	resp, _ := do(t, "MKCOL", addr, "/dav/col", nil, nil)
	require.Equal(t, 201, resp.StatusCode)

	resp, body := do(t, "GET", addr, "/dav/col", nil, nil)
	require.Equal(t, 200, resp.StatusCode)
	require.Empty(t, body)
}

func TestExtensionFilterAppliesToFilesOnly(t *testing.T) {
	root := t.TempDir()
	policy := NewPolicy(root)
	policy.AllowedExtensions = map[string]bool{"txt": true}
	svc := New("/dav", policy, zerolog.Nop())
	reg := httpcore.NewRegistry()
	svc.Register(reg)
	conf := &httpcore.ServerConfig{Registry: reg, MaxBodyBytes: 1 << 20, DrainTimeout: time.Second, Logger: zerolog.Nop()}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := httpcore.NewServer(conf)
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx, ln)
	t.Cleanup(func() { cancel(); srv.Stop() })
	addr := ln.Addr().String()

	resp, _ := do(t, "MKCOL", addr, "/dav/backup.old", nil, nil)
	require.Equal(t, 201, resp.StatusCode, "a collection name must not be extension-filtered")

	resp, body := do(t, "PROPFIND", addr, "/dav/", nil, map[string]string{"Depth": "1"})
	require.Equal(t, 207, resp.StatusCode)
	require.Contains(t, string(body), "backup.old", "directories must not be omitted from listings by extension")
}

func TestOptionsAdvertisesDAVClass1(t *testing.T) {
	root := t.TempDir()
	addr := startWebdavServer(t, root)

	resp, _ := do(t, "OPTIONS", addr, "/dav/", nil, nil)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "1", resp.Header.Get("DAV"))
}
