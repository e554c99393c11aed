package httpcore

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServerConfig configures a Server, per spec.md §2/§6/§7. Fields mirror
// the dispatch/connection knobs the teacher's httpserver.config carries,
// generalized from a single gRPC/HTTP dual-stack server to this
// library's plain net.Listener wrapping.
type ServerConfig struct {
	Registry      *Registry
	Authenticator *Authenticator
	// RequireAuthFunc, when non-nil, decides per-request whether
	// Authenticator should run at all (e.g. WebDAV GET of a public
	// folder may be anonymous while PUT requires auth). A nil func
	// means "always required" when Authenticator is set.
	RequireAuthFunc func(req *Request) bool

	// Port is the TCP port Start binds to; zero means an OS-assigned
	// ephemeral port (spec.md §6).
	Port int
	// BindToLocalhost restricts Start's listener to 127.0.0.1 instead
	// of all interfaces.
	BindToLocalhost bool
	// ServerName is reported in the Server response header; empty
	// defaults to DefaultServerName.
	ServerName string
	// AutomaticallyMapHEADToGET lets a HEAD request fall through to a
	// registered GET handler when no handler claims HEAD directly.
	AutomaticallyMapHEADToGET bool
	// ConnectionClass is an opaque selector the teacher's config surface
	// carries for future connection tuning profiles; this library
	// recognizes exactly one class and otherwise ignores the value.
	ConnectionClass string
	// DispatchQueuePriority is accepted for configuration-surface parity
	// with spec.md §6 and ignored — this library schedules each
	// connection on its own goroutine rather than a priority dispatch
	// queue.
	DispatchQueuePriority int

	// AuthenticationMethod, AuthenticationRealm and
	// AuthenticationAccounts let a caller configure authentication
	// declaratively; NewServer builds an Authenticator from them when
	// Authenticator is nil. AuthenticationMethod is one of "", "none",
	// "Basic" or "DigestAccess".
	AuthenticationMethod   string
	AuthenticationRealm    string
	AuthenticationAccounts map[string]string

	DefaultHost  string
	MaxBodyBytes int64
	IdleTimeout  time.Duration
	DrainTimeout time.Duration

	// MaxConnections bounds concurrently served connections. Zero means
	// unbounded.
	MaxConnections int

	Logger  zerolog.Logger
	Metrics *Metrics
}

// DefaultServerName is reported in the Server response header when
// ServerConfig.ServerName is empty.
const DefaultServerName = "lantern"

// RequireAuth evaluates RequireAuthFunc, defaulting to true whenever an
// Authenticator is configured.
func (c *ServerConfig) RequireAuth(req *Request) bool {
	if c.Authenticator == nil {
		return false
	}
	if c.RequireAuthFunc == nil {
		return true
	}
	return c.RequireAuthFunc(req)
}

// authenticatorFromConfig builds an Authenticator from the declarative
// AuthenticationMethod/Realm/Accounts fields, or nil when the method
// names no scheme. DigestAccess maps to the "Digest" scheme
// Authenticator already implements; "none" and "" disable auth.
func authenticatorFromConfig(c *ServerConfig) *Authenticator {
	switch strings.ToLower(c.AuthenticationMethod) {
	case "", "none":
		return nil
	case "basic":
		return NewAuthenticator("Basic", c.AuthenticationRealm, accountsFromMap(c.AuthenticationAccounts), 0, 0)
	case "digestaccess", "digest":
		return NewAuthenticator("Digest", c.AuthenticationRealm, accountsFromMap(c.AuthenticationAccounts), 1024, 5*time.Minute)
	default:
		return nil
	}
}

func accountsFromMap(m map[string]string) []Account {
	accounts := make([]Account, 0, len(m))
	for name, secret := range m {
		accounts = append(accounts, Account{Username: name, Secret: secret})
	}
	return accounts
}

// Server accepts connections on a net.Listener and drives each one
// through the exchange state machine, per spec.md §7. It does not own
// TLS termination: callers wanting HTTPS wrap the net.Listener with
// tls.NewListener before calling Serve (spec.md §12 Non-goals).
type Server struct {
	conf *ServerConfig

	mu       sync.Mutex
	sem      chan struct{}
	conns    map[*conn]struct{}
	listener net.Listener
	closing  bool
	wg       sync.WaitGroup
}

// NewServer builds a Server from conf. conf.Registry must be non-nil. If
// conf.Authenticator is nil, it is derived from
// AuthenticationMethod/Realm/Accounts when those name a scheme.
func NewServer(conf *ServerConfig) *Server {
	if conf.Metrics == nil {
		conf.Metrics = NewMetrics()
	}
	if conf.Authenticator == nil {
		conf.Authenticator = authenticatorFromConfig(conf)
	}
	if conf.ServerName == "" {
		conf.ServerName = DefaultServerName
	}
	s := &Server{conf: conf, conns: map[*conn]struct{}{}}
	if conf.MaxConnections > 0 {
		s.sem = make(chan struct{}, conf.MaxConnections)
	}
	return s
}

// Start binds a listener per conf.Port/BindToLocalhost and begins
// serving on it in the background, returning once the listener is
// bound. It is the ok|error counterpart spec.md §6 describes; ctx
// cancellation or Stop tears the listener back down. Callers that need
// their own net.Listener (e.g. for TLS) should call Serve directly
// instead.
func (s *Server) Start(ctx context.Context) error {
	host := "0.0.0.0"
	if s.conf.BindToLocalhost {
		host = "127.0.0.1"
	}
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, s.conf.Port))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := s.Serve(ctx, ln); err != nil {
			s.conf.Logger.Error().Err(err).Msg("server stopped with error")
		}
	}()
	return nil
}

// IsRunning reports whether Start or Serve has bound a listener that
// hasn't been closed by Stop yet.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil && !s.closing
}

// Port returns the TCP port of the bound listener, or 0 if the server
// hasn't started — useful after Start with Port 0 requested an
// ephemeral port.
func (s *Server) Port() int {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return 0
	}
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		return tcpAddr.Port
	}
	return 0
}

// ServerURL returns the scheme+host+port+"/" base URL spec.md §6 names,
// using the bound listener's actual port.
func (s *Server) ServerURL() string {
	host := "localhost"
	if !s.conf.BindToLocalhost {
		host = "0.0.0.0"
	}
	return fmt.Sprintf("http://%s:%s/", host, strconv.Itoa(s.Port()))
}

// Serve accepts connections from ln until ctx is cancelled or Stop is
// called, serving each on its own goroutine — Go's netpoller gives each
// goroutine the cooperative, one-exchange-at-a-time scheduling spec.md
// §7 describes for a single connection, without this library needing to
// hand-roll an event loop.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		rwc, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing {
				s.wg.Wait()
				return nil
			}
			return err
		}

		if s.sem != nil {
			select {
			case s.sem <- struct{}{}:
			default:
				rwc.Close()
				continue
			}
		}

		c := &conn{
			rwc:    rwc,
			br:     bufio.NewReader(rwc),
			bw:     bufio.NewWriter(rwc),
			srv:    s,
			log:    s.conf.Logger.With().Str("remote", rwc.RemoteAddr().String()).Logger(),
			scheme: "http",
		}

		s.mu.Lock()
		s.conns[c] = struct{}{}
		s.mu.Unlock()
		s.conf.Metrics.ConnOpened()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.conns, c)
				s.mu.Unlock()
				s.conf.Metrics.ConnClosed()
				if s.sem != nil {
					<-s.sem
				}
			}()
			c.serve(ctx)
		}()
	}
}

// Stop closes the listener and waits up to conf.DrainTimeout for
// in-flight connections to finish on their own, then closes any
// connection still open before returning, mirroring the SIGQUIT
// graceful-drain countdown the teacher's process watcher implements.
func (s *Server) Stop() error {
	s.mu.Lock()
	s.closing = true
	ln := s.listener
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	timeout := s.conf.DrainTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	select {
	case <-done:
	case <-time.After(timeout):
		s.mu.Lock()
		for c := range s.conns {
			c.rwc.Close()
		}
		s.mu.Unlock()
	}
	return nil
}

func (s *Server) observe(req *Request, resp *Response) {
	if s.conf.Metrics == nil || resp == nil {
		return
	}
	s.conf.Metrics.Observe(req.Method, resp.Status)
}
