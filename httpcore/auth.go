package httpcore

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Account is one entry of the pre-supplied account table Basic/Digest
// authentication checks against, per spec.md §6 ("auth beyond a
// pre-supplied account table is out of scope").
type Account struct {
	Username string
	// Secret is either the plaintext password (Digest needs the
	// plaintext to recompute HA1) or a bcrypt hash (Basic only, when
	// Hashed is true).
	Secret string
	Hashed bool
}

// Authenticator validates credentials on incoming requests using one of
// the two RFC 2617 schemes spec.md §6 names. Basic and Digest use the
// same Accounts table; Digest additionally needs a nonce ledger.
type Authenticator struct {
	Scheme   string // "Basic" or "Digest"
	Realm    string
	Accounts map[string]Account
	nonces   *nonceLedger
}

// NewAuthenticator builds an Authenticator. For Digest, nonceTTL bounds
// how long an issued nonce may be reused and nonceCapacity bounds the
// ledger's memory.
func NewAuthenticator(scheme, realm string, accounts []Account, nonceCapacity int, nonceTTL time.Duration) *Authenticator {
	m := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		m[a.Username] = a
	}
	a := &Authenticator{Scheme: scheme, Realm: realm, Accounts: m}
	if strings.EqualFold(scheme, "Digest") {
		a.nonces = newNonceLedger(nonceCapacity, nonceTTL)
	}
	return a
}

// Challenge returns the WWW-Authenticate header value to send on a 401.
func (a *Authenticator) Challenge() string {
	switch {
	case strings.EqualFold(a.Scheme, "Digest"):
		nonce := a.nonces.Issue()
		return fmt.Sprintf(`Digest realm="%s", qop="auth", nonce="%s", algorithm=MD5`, a.Realm, nonce)
	default:
		return fmt.Sprintf(`Basic realm="%s"`, a.Realm)
	}
}

// Authenticate validates the Authorization header on req, returning the
// authenticated username on success.
func (a *Authenticator) Authenticate(req *Request) (string, bool) {
	hv, ok := req.Header.Get("Authorization")
	if !ok {
		return "", false
	}
	if strings.EqualFold(a.Scheme, "Digest") {
		return a.authenticateDigest(req.Method, hv)
	}
	return a.authenticateBasic(hv)
}

func (a *Authenticator) authenticateBasic(hv string) (string, bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(hv, prefix) {
		return "", false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(hv, prefix))
	if err != nil {
		return "", false
	}
	user, pass, ok := strings.Cut(string(raw), ":")
	if !ok {
		return "", false
	}
	acct, ok := a.Accounts[user]
	if !ok {
		return "", false
	}
	if acct.Hashed {
		if bcrypt.CompareHashAndPassword([]byte(acct.Secret), []byte(pass)) != nil {
			return "", false
		}
		return user, true
	}
	if subtle.ConstantTimeCompare([]byte(acct.Secret), []byte(pass)) != 1 {
		return "", false
	}
	return user, true
}

// digestParams is the parsed set of key="value" pairs from an
// Authorization: Digest header.
type digestParams map[string]string

func parseDigestParams(hv string) digestParams {
	const prefix = "Digest "
	hv = strings.TrimPrefix(hv, prefix)
	out := digestParams{}
	for _, field := range splitDigestFields(hv) {
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		v = strings.Trim(v, `"`)
		out[k] = v
	}
	return out
}

// splitDigestFields splits a Digest header's comma-separated field list
// without breaking on commas embedded inside quoted values.
func splitDigestFields(s string) []string {
	var fields []string
	inQuotes := false
	start := 0
	for i, r := range s {
		switch r {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				fields = append(fields, s[start:i])
				start = i + 1
			}
		}
	}
	fields = append(fields, s[start:])
	return fields
}

func (a *Authenticator) authenticateDigest(method, hv string) (string, bool) {
	p := parseDigestParams(hv)
	user := p["username"]
	acct, ok := a.Accounts[user]
	if !ok || acct.Hashed {
		return "", false
	}

	nc, err := strconv.ParseUint(p["nc"], 16, 64)
	if err != nil {
		return "", false
	}
	if !a.nonces.Validate(p["nonce"], nc) {
		return "", false
	}

	ha1 := md5Hex(user + ":" + a.Realm + ":" + acct.Secret)
	ha2 := md5Hex(method + ":" + p["uri"])

	var expected string
	if p["qop"] != "" {
		expected = md5Hex(strings.Join([]string{ha1, p["nonce"], p["nc"], p["cnonce"], p["qop"], ha2}, ":"))
	} else {
		expected = md5Hex(strings.Join([]string{ha1, p["nonce"], ha2}, ":"))
	}

	if subtle.ConstantTimeCompare([]byte(expected), []byte(p["response"])) != 1 {
		return "", false
	}
	return user, true
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return fmt.Sprintf("%x", sum)
}
