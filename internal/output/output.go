// Package output centralizes exit codes and JSON envelopes for the admin
// CLI (sj doctor, sj config, sj version), kept separate from the core
// invocation path's exit-status relay (which simply passes through
// whatever status the server sends in its "exit" message).
package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// Exit codes for admin subcommands. There is no ExitNetwork here — nothing
// in this domain makes a network call; the rendezvous is entirely local.
const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagJSON    bool
	flagQuiet   bool
	flagVerbose bool
)

// SetFlags is called by the root command's PersistentPreRun to propagate
// flag values to the rest of the admin CLI.
func SetFlags(jsonMode, quiet, verbose bool) {
	flagJSON = jsonMode
	flagQuiet = quiet
	flagVerbose = verbose
}

// IsJSON returns true when --json mode is active.
func IsJSON() bool { return flagJSON }

// PrintJSON marshals v as indented JSON and writes it to w.
func PrintJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
