package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lanterndav/lantern/httpcore"
	"github.com/lanterndav/lantern/webdav"
)

func startUploaderServer(t *testing.T, root string) string {
	t.Helper()
	policy := webdav.NewPolicy(root)
	svc := New("", policy, zerolog.Nop())
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
	t.Cleanup(func() { cancel(); srv.Stop() })
	return ln.Addr().String()
}

func TestUploaderIndexAndList(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0644))
	addr := startUploaderServer(t, root)

	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get("http://" + addr + "/list?path=/")
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	var entries []listEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	resp.Body.Close()
	require.Len(t, entries, 1)
	require.Equal(t, "a.txt", entries[0].Name)
}

func TestUploaderUploadThenDownload(t *testing.T) {
	root := t.TempDir()
	addr := startUploaderServer(t, root)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("path", "/"))
	fw, err := mw.CreateFormFile("files[]", "doc.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("uploaded content"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest("POST", "http://"+addr+"/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get("http://" + addr + "/download?path=/doc.txt")
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	body := new(bytes.Buffer)
	body.ReadFrom(resp.Body)
	resp.Body.Close()
	require.Equal(t, "uploaded content", body.String())
}

func TestUploaderCreateMoveDelete(t *testing.T) {
	root := t.TempDir()
	addr := startUploaderServer(t, root)

	postForm := func(path string, vals url.Values) *http.Response {
		resp, err := http.PostForm("http://"+addr+path, vals)
		require.NoError(t, err)
		return resp
	}

	resp := postForm("/create", url.Values{"path": {"/sub"}})
	require.Equal(t, 201, resp.StatusCode)
	resp.Body.Close()

	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "old.txt"), []byte("z"), 0644))

	resp = postForm("/move", url.Values{"oldPath": {"/sub/old.txt"}, "newPath": {"/sub/new.txt"}})
	require.Equal(t, 204, resp.StatusCode)
	resp.Body.Close()
	_, err := os.Stat(filepath.Join(root, "sub", "new.txt"))
	require.NoError(t, err)

	resp = postForm("/delete", url.Values{"path": {"/sub/new.txt"}})
	require.Equal(t, 204, resp.StatusCode)
	resp.Body.Close()
	_, err = os.Stat(filepath.Join(root, "sub", "new.txt"))
	require.True(t, os.IsNotExist(err))
}

func TestUploaderUploadRejectsDeniedExtension(t *testing.T) {
	root := t.TempDir()
	policy := webdav.NewPolicy(root)
	policy.AllowedExtensions = map[string]bool{"txt": true}
	svc := New("", policy, zerolog.Nop())
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

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("path", "/"))
	fw, err := mw.CreateFormFile("files[]", "image.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("binary"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest("POST", "http://"+addr+"/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, 403, resp.StatusCode)
	resp.Body.Close()
}
