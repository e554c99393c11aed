// Command lanternd runs an embeddable HTTP/1.1 server with a WebDAV
// Class 1 extension, configured from a TOML file in the style of
// revad.toml: one top-level table per concern.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/lanterndav/lantern/httpcore"
	"github.com/lanterndav/lantern/internal/appctx"
	"github.com/lanterndav/lantern/internal/config"
	"github.com/lanterndav/lantern/internal/lifecycle"
	"github.com/lanterndav/lantern/internal/log"
	"github.com/lanterndav/lantern/uploader"
	"github.com/lanterndav/lantern/webdav"
)

var (
	versionFlag = flag.Bool("version", false, "show version and exit")
	configFlag  = flag.String("c", "/etc/lanternd/lanternd.toml", "configuration file")
	pidFlag     = flag.String("p", "", "pid file; empty defaults to a random file under the OS temp dir")

	gitCommit, buildDate, version string
)

// coreConf is the [core] table.
type coreConf struct {
	Address string `mapstructure:"address"`
	LogMode string `mapstructure:"log_mode"`
	LogLevel string `mapstructure:"log_level"`
}

// webdavConf is the [webdav] table.
type webdavConf struct {
	Enabled              bool     `mapstructure:"enabled"`
	Prefix               string   `mapstructure:"prefix"`
	Root                 string   `mapstructure:"root"`
	AllowHiddenItems     bool     `mapstructure:"allow_hidden_items"`
	AllowedFileExtensions []string `mapstructure:"allowed_file_extensions"`
}

// uploaderConf is the [uploader] table.
type uploaderConf struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

// authConf is the [auth] table.
type authConf struct {
	Scheme string `mapstructure:"scheme"` // "basic" or "digest"
	Realm  string `mapstructure:"realm"`
}

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Printf("lanternd %s (%s, built %s)\n", version, gitCommit, buildDate)
		os.Exit(0)
	}

	raw := handleConfigFlagOrDie()

	var core coreConf
	if err := config.Decode(raw, "core", &core); err != nil {
		die("invalid [core] configuration", err)
	}
	if core.Address == "" {
		core.Address = "127.0.0.1:8080"
	}

	log.Mode = core.LogMode
	logger := log.New("lanternd")
	if core.LogLevel != "" {
		if err := log.Level(core.LogLevel); err != nil {
			logger.Warn().Err(err).Msg("invalid log level, keeping default")
		}
	}

	registry := httpcore.NewRegistry()

	var wc webdavConf
	if err := config.Decode(raw, "webdav", &wc); err != nil {
		die("invalid [webdav] configuration", err)
	}
	if wc.Enabled {
		policy := webdav.NewPolicy(wc.Root)
		policy.HiddenPrefixes = hiddenPrefixesFor(wc.AllowHiddenItems)
		policy.AllowedExtensions = allowedExtensionsFor(wc.AllowedFileExtensions)
		svc := webdav.New(wc.Prefix, policy, logger)
		svc.Register(registry)
		logger.Info().Str("prefix", wc.Prefix).Str("root", wc.Root).Msg("webdav service registered")
	}

	var uc uploaderConf
	if err := config.Decode(raw, "uploader", &uc); err != nil {
		die("invalid [uploader] configuration", err)
	}
	if uc.Enabled && wc.Enabled {
		policy := webdav.NewPolicy(wc.Root)
		policy.HiddenPrefixes = hiddenPrefixesFor(wc.AllowHiddenItems)
		policy.AllowedExtensions = allowedExtensionsFor(wc.AllowedFileExtensions)
		up := uploader.New(uc.Prefix, policy, logger)
		up.Register(registry)
		logger.Info().Str("prefix", uc.Prefix).Msg("uploader service registered")
	}

	port, bindLocalhost := splitBindAddress(core.Address)
	srvConf := &httpcore.ServerConfig{
		Registry:                  registry,
		DefaultHost:               core.Address,
		Port:                      port,
		BindToLocalhost:           bindLocalhost,
		ServerName:                "lanternd/" + version,
		AutomaticallyMapHEADToGET: true,
		MaxBodyBytes:              1 << 30,
		IdleTimeout:               90 * time.Second,
		DrainTimeout:              10 * time.Second,
		Logger:                    logger,
	}

	var ac authConf
	if err := config.Decode(raw, "auth", &ac); err != nil {
		die("invalid [auth] configuration", err)
	}
	if ac.Scheme != "" {
		accounts := loadAccounts(raw)
		srvConf.Authenticator = httpcore.NewAuthenticator(schemeLabel(ac.Scheme), ac.Realm, accounts, 1024, 5*time.Minute)
	}

	server := httpcore.NewServer(srvConf)

	watcher := lifecycle.NewWatcher(*pidFlag, logger)
	if err := watcher.Acquire(); err != nil {
		die("failed to acquire pidfile lock", err)
	}
	defer watcher.Release()

	ctx := appctx.WithLogger(context.Background(), logger)

	if err := server.Start(ctx); err != nil {
		die("failed to bind listener", err)
	}
	logger.Info().Str("address", server.ServerURL()).Msg("lanternd listening")

	watcher.TrapSignals(server)
}

func handleConfigFlagOrDie() map[string]interface{} {
	f, err := os.Open(*configFlag)
	if err != nil {
		die("failed to open configuration file", err)
	}
	defer f.Close()

	raw, err := config.Read(f)
	if err != nil {
		die("failed to parse configuration file", err)
	}
	return raw
}

// loadAccounts reads the [[auth.accounts]] array-of-tables directly from
// the raw config tree, since mapstructure.Decode targets a single
// section at a time (internal/config.Decode) and this needs a slice of
// heterogeneous maps.
func loadAccounts(raw map[string]interface{}) []httpcore.Account {
	authSection, ok := raw["auth"].(map[string]interface{})
	if !ok {
		return nil
	}
	rawAccounts, ok := authSection["accounts"].([]map[string]interface{})
	if !ok {
		return nil
	}
	accounts := make([]httpcore.Account, 0, len(rawAccounts))
	for _, a := range rawAccounts {
		username, _ := a["username"].(string)
		secret, _ := a["secret"].(string)
		hashed, _ := a["hashed"].(bool)
		accounts = append(accounts, httpcore.Account{Username: username, Secret: secret, Hashed: hashed})
	}
	return accounts
}

func schemeLabel(s string) string {
	if s == "digest" {
		return "Digest"
	}
	return "Basic"
}

// splitBindAddress turns a "host:port" core.address into the Port/
// BindToLocalhost pair httpcore.ServerConfig wants, so the Server itself
// owns listener construction instead of main building one by hand.
func splitBindAddress(address string) (port int, bindToLocalhost bool) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return 0, false
	}
	p, _ := strconv.Atoi(portStr)
	return p, host == "127.0.0.1" || host == "localhost"
}

func hiddenPrefixesFor(allowHidden bool) []string {
	if allowHidden {
		return nil
	}
	return []string{"."}
}

// allowedExtensionsFor returns nil (allow everything) when the
// configuration names no restriction, matching Policy.AllowedExtensions'
// nullable-set semantics.
func allowedExtensionsFor(allowed []string) map[string]bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]bool, len(allowed))
	for _, ext := range allowed {
		set[strings.ToLower(ext)] = true
	}
	return set
}

func die(msg string, err error) {
	fmt.Fprintln(os.Stderr, errors.Wrap(err, msg))
	os.Exit(1)
}
