// Command sj is a user-local JVM launcher: a long-lived background server
// process plus a short-lived native client for every invocation. See
// SPEC_FULL.md §4.8 for the pre-dispatch rule this main() implements.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sj-launcher/sj/internal/client"
	"github.com/sj-launcher/sj/internal/cmd"
	"github.com/sj-launcher/sj/internal/config"
	"github.com/sj-launcher/sj/internal/logging"
)

func main() {
	args := os.Args[1:]

	// Only the literal "sj" binary (no symlink) with a first argument
	// naming a registered admin subcommand goes through cobra; everything
	// else — including "sj" with core flags, and every symlink alias, even
	// one whose forwarded argument happens to match an admin name — takes
	// the core path and never touches it.
	isDirectInvocation := filepath.Base(os.Args[0]) == "sj"
	if isDirectInvocation && len(args) > 0 && cmd.AdminCommands[args[0]] {
		if err := cmd.Execute(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	inv, err := client.ParseArgs(os.Args[0], args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "usage: sj [-S|-K|-s] | sj [-j <path>]... [-R] <tool> [args...]")
		os.Exit(1)
	}

	sjHome, err := config.SjHome()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := client.EnsureHome(sjHome); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	verbose := os.Getenv("SJ_VERBOSE") != ""
	prefs, err := config.LoadPreferences(sjHome)
	if err == nil && prefs.LogLevel == "debug" {
		verbose = true
	}

	code, err := client.Run(sjHome, inv, logging.New(verbose))
	if err != nil {
		fmt.Fprintln(os.Stderr, "sj:", err)
		os.Exit(1)
	}
	os.Exit(code)
}
