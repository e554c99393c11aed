package httpcore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryResolvesLIFO(t *testing.T) {
	reg := NewRegistry()
	first := &Handler{Name: "first", Match: Any, Process: func(ctx context.Context, req *Request) (*Response, error) {
		return NewResponse(200, EmptyBody{}), nil
	}}
	second := &Handler{Name: "second", Match: Any, Process: func(ctx context.Context, req *Request) (*Response, error) {
		return NewResponse(201, EmptyBody{}), nil
	}}

	reg.Register(first)
	reg.Register(second)

	req, err := buildRequest(t, "GET", "/x", nil)
	require.NoError(t, err)

	h, recognized := reg.Resolve(req)
	require.Equal(t, "second", h.Name, "most recently registered handler should be tried first")
	require.True(t, recognized)
}

func TestMethodPrefixMatch(t *testing.T) {
	match := MethodPrefix("/dav/", "PUT", "GET")

	req, err := buildRequest(t, "PUT", "/dav/file.txt", nil)
	require.NoError(t, err)
	require.True(t, match(req))

	req, err = buildRequest(t, "DELETE", "/dav/file.txt", nil)
	require.NoError(t, err)
	require.False(t, match(req))

	req, err = buildRequest(t, "PUT", "/other/file.txt", nil)
	require.NoError(t, err)
	require.False(t, match(req))
}

func TestRegistryResolveNoMatch(t *testing.T) {
	reg := NewRegistry()
	req, err := buildRequest(t, "GET", "/x", nil)
	require.NoError(t, err)
	h, recognized := reg.Resolve(req)
	require.Nil(t, h)
	require.False(t, recognized)
}

func TestRegistryResolvePathRecognizedMethodRejected(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Handler{
		Name:      "dav-put",
		Match:     MethodPrefix("/dav/", "PUT"),
		PathMatch: PathPrefix("/dav/"),
		Process: func(ctx context.Context, req *Request) (*Response, error) {
			return NewResponse(201, EmptyBody{}), nil
		},
	})

	req, err := buildRequest(t, "DELETE", "/dav/file.txt", nil)
	require.NoError(t, err)
	h, recognized := reg.Resolve(req)
	require.Nil(t, h)
	require.True(t, recognized, "a path a handler recognizes but rejects the method for should report pathRecognized")

	req, err = buildRequest(t, "DELETE", "/elsewhere/file.txt", nil)
	require.NoError(t, err)
	h, recognized = reg.Resolve(req)
	require.Nil(t, h)
	require.False(t, recognized, "a path no handler's PathMatch recognizes should not report pathRecognized")
}
