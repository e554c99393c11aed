package httpcore

import (
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func basicHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestAuthenticateBasicPlaintext(t *testing.T) {
	a := NewAuthenticator("Basic", "test", []Account{{Username: "alice", Secret: "s3cret"}}, 0, 0)

	req, err := buildRequest(t, "GET", "/x", map[string]string{"Authorization": basicHeader("alice", "s3cret")})
	require.NoError(t, err)
	user, ok := a.Authenticate(req)
	require.True(t, ok)
	require.Equal(t, "alice", user)
}

func TestAuthenticateBasicWrongPassword(t *testing.T) {
	a := NewAuthenticator("Basic", "test", []Account{{Username: "alice", Secret: "s3cret"}}, 0, 0)
	req, err := buildRequest(t, "GET", "/x", map[string]string{"Authorization": basicHeader("alice", "wrong")})
	require.NoError(t, err)
	_, ok := a.Authenticate(req)
	require.False(t, ok)
}

func TestAuthenticateBasicHashed(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	a := NewAuthenticator("Basic", "test", []Account{{Username: "alice", Secret: string(hash), Hashed: true}}, 0, 0)

	req, err := buildRequest(t, "GET", "/x", map[string]string{"Authorization": basicHeader("alice", "s3cret")})
	require.NoError(t, err)
	_, ok := a.Authenticate(req)
	require.True(t, ok)
}

func TestAuthenticateMissingAuthorizationHeader(t *testing.T) {
	a := NewAuthenticator("Basic", "test", []Account{{Username: "alice", Secret: "s3cret"}}, 0, 0)
	req, err := buildRequest(t, "GET", "/x", nil)
	require.NoError(t, err)
	_, ok := a.Authenticate(req)
	require.False(t, ok)
}

func digestResponse(user, realm, pass, method, uri, nonce, nc, cnonce, qop string) string {
	ha1 := fmt.Sprintf("%x", md5.Sum([]byte(user+":"+realm+":"+pass)))
	ha2 := fmt.Sprintf("%x", md5.Sum([]byte(method+":"+uri)))
	return fmt.Sprintf("%x", md5.Sum([]byte(ha1+":"+nonce+":"+nc+":"+cnonce+":"+qop+":"+ha2)))
}

func TestAuthenticateDigestValid(t *testing.T) {
	a := NewAuthenticator("Digest", "test-realm", []Account{{Username: "bob", Secret: "hunter2"}}, 16, time.Minute)
	nonce := a.nonces.Issue()

	resp := digestResponse("bob", "test-realm", "hunter2", "GET", "/x", nonce, "00000001", "abcd", "auth")
	hv := fmt.Sprintf(
		`Digest username="bob", realm="test-realm", nonce="%s", uri="/x", qop=auth, nc=00000001, cnonce="abcd", response="%s"`,
		nonce, resp,
	)

	req, err := buildRequest(t, "GET", "/x", map[string]string{"Authorization": hv})
	require.NoError(t, err)
	user, ok := a.Authenticate(req)
	require.True(t, ok)
	require.Equal(t, "bob", user)
}

func TestAuthenticateDigestRejectsReplayedNC(t *testing.T) {
	a := NewAuthenticator("Digest", "test-realm", []Account{{Username: "bob", Secret: "hunter2"}}, 16, time.Minute)
	nonce := a.nonces.Issue()

	resp := digestResponse("bob", "test-realm", "hunter2", "GET", "/x", nonce, "00000001", "abcd", "auth")
	hv := fmt.Sprintf(
		`Digest username="bob", realm="test-realm", nonce="%s", uri="/x", qop=auth, nc=00000001, cnonce="abcd", response="%s"`,
		nonce, resp,
	)
	req, err := buildRequest(t, "GET", "/x", map[string]string{"Authorization": hv})
	require.NoError(t, err)

	_, ok := a.Authenticate(req)
	require.True(t, ok)
	_, ok = a.Authenticate(req)
	require.False(t, ok, "replaying the same nc must be rejected")
}

func TestChallengeBasic(t *testing.T) {
	a := NewAuthenticator("Basic", "myrealm", nil, 0, 0)
	require.Equal(t, `Basic realm="myrealm"`, a.Challenge())
}
