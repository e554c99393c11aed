// Package log provides the structured logger shared by every lantern
// package: one zerolog sub-logger per package name, switchable between a
// human console format (dev) and line-delimited JSON (prod).
package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Mode selects the log encoding. "dev" (the default), "console" and ""
// write a colored console format; anything else writes JSON.
var Mode = "dev"

// Out is the default destination for newly created loggers.
var Out io.Writer = os.Stderr

// New returns a logger scoped to pkg, tagged with the process pid.
func New(pkg string) zerolog.Logger {
	var w io.Writer = Out
	if Mode == "" || Mode == "dev" || Mode == "console" {
		w = zerolog.ConsoleWriter{Out: Out, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).With().
		Timestamp().
		Str("pkg", pkg).
		Int("pid", os.Getpid()).
		Logger()
}

// Level sets the minimum level logged globally.
func Level(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}
