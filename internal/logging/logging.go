// Package logging configures the shared logrus logger used for verbose
// tracing across the server lifecycle manager and the event loop — a
// runtime-level-controlled replacement for the original's compile-time
// DEBUG/DEBUG_MESSAGES flags.
package logging

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// New builds a logger writing to stderr (so stdout stays free for relayed
// tool output), at Debug level when verbose is set and Warn level
// otherwise.
func New(verbose bool) *log.Logger {
	l := log.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&log.TextFormatter{
		DisableTimestamp: !verbose,
		FullTimestamp:    verbose,
	})
	if verbose {
		l.SetLevel(log.DebugLevel)
	} else {
		l.SetLevel(log.WarnLevel)
	}
	return l
}

// LevelFromString maps a Preferences.LogLevel string to a logrus.Level,
// defaulting to Warn for anything it doesn't recognize.
func LevelFromString(s string) log.Level {
	lvl, err := log.ParseLevel(s)
	if err != nil {
		return log.WarnLevel
	}
	return lvl
}
