//go:build linux

// Package client implements the core invocation path (§4.8): the
// spec-mandated pre-dispatch that decides a tool name and argument set from
// argv without ever touching cobra, then drives the full lease/negotiate/
// event-loop pipeline for one tool invocation. This is the Go analogue of
// scramjet.c's main(), restructured into testable pieces.
package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sj-launcher/sj/internal/eventloop"
	"github.com/sj-launcher/sj/internal/negotiate"
	"github.com/sj-launcher/sj/internal/rendezvous"
	"github.com/sj-launcher/sj/internal/serverlife"
	"github.com/sj-launcher/sj/internal/terminal"
)

// appName is the literal binary name main() checks argv[0]'s basename
// against to decide whether this is a direct invocation (eligible for
// -S/-K/-s/-j/-R) or a symlink alias (whose basename names the tool).
const appName = "sj"

// Mode is the single-shot administrative action requested in place of an
// ordinary tool invocation.
type Mode int

const (
	ModeRun Mode = iota
	ModeStart
	ModeStop
	ModeStatus
)

// Invocation is everything ParseArgs extracts from argv before any
// rendezvous or negotiation happens.
type Invocation struct {
	Mode       Mode
	Tool       string
	ToolArgs   []string
	Classpaths []string // from repeated -j flags; empty when invoked via symlink
	Restart    bool
}

// ErrUsage is returned when argv doesn't name a tool and isn't a
// recognized single-shot flag, mirroring the original's usage()+exit(1).
var ErrUsage = fmt.Errorf("client: no tool name given")

// ParseArgs reproduces main()'s argv triage: argv0's basename decides
// whether this is a direct "sj ..." invocation (eligible for -S/-K/-s/-j/-R
// scanning) or a symlink alias, whose basename (with an optional "sj-"
// prefix stripped) supplies the tool name and forwards every argument
// untouched.
func ParseArgs(argv0 string, args []string) (*Invocation, error) {
	cmd := filepath.Base(argv0)

	if cmd != appName {
		cmd = strings.TrimPrefix(cmd, "sj-")
		return &Invocation{Mode: ModeRun, Tool: cmd, ToolArgs: args}, nil
	}

	if len(args) == 1 {
		switch args[0] {
		case "--stop", "-K":
			return &Invocation{Mode: ModeStop}, nil
		case "--start", "-S":
			return &Invocation{Mode: ModeStart}, nil
		case "--status", "-s":
			return &Invocation{Mode: ModeStatus}, nil
		}
	}

	var classpaths []string
	restart := false
	i := 0
	for i < len(args) {
		if args[i] == "-j" && i+1 < len(args) {
			classpaths = append(classpaths, args[i+1])
			i += 2
			continue
		}
		if args[i] == "-R" {
			restart = true
			i++
			continue
		}
		break
	}

	if i >= len(args) || strings.HasPrefix(args[i], "-") {
		return nil, ErrUsage
	}
	tool := args[i]
	rest := args[i+1:]

	return &Invocation{
		Mode:       ModeRun,
		Tool:       tool,
		ToolArgs:   rest,
		Classpaths: classpaths,
		Restart:    restart,
	}, nil
}

// Run executes a parsed Invocation to completion, returning the exit code
// the caller's process should use.
func Run(sjHome string, inv *Invocation, logger *log.Logger) (int, error) {
	switch inv.Mode {
	case ModeStop:
		if err := serverlife.Stop(sjHome); err != nil {
			return 1, err
		}
		return 0, nil
	case ModeStart:
		if _, err := serverlife.ColdStart(sjHome, false, logger); err != nil {
			return 1, err
		}
		return 0, nil
	case ModeStatus:
		state, _, err := serverlife.Detect(sjHome)
		if err != nil {
			return 1, err
		}
		if state == serverlife.StateRunning {
			return 0, nil
		}
		return 1, nil
	}

	if inv.Restart {
		if err := serverlife.Stop(sjHome); err != nil {
			return 1, err
		}
	}

	lease, err := serverlife.ColdStart(sjHome, true, logger)
	if err != nil {
		return 1, err
	}
	if lease == nil {
		dir := rendezvous.New(sjHome)
		lease, err = dir.Grab()
		if err != nil {
			return 1, err
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		lease.Release()
		return 1, fmt.Errorf("client: getwd: %w", err)
	}

	if err := negotiate.Send(lease.Out, negotiate.Invocation{
		Classpaths: inv.Classpaths,
		Args:       inv.ToolArgs,
		Env:        os.Environ(),
		Cwd:        cwd,
		Command:    inv.Tool,
	}); err != nil {
		lease.Release()
		return 1, err
	}

	if err := lease.Open(); err != nil {
		lease.Release()
		return 1, err
	}

	term, err := terminal.New()
	if err != nil {
		lease.Release()
		return 1, err
	}

	loop := eventloop.New(lease.In, lease.Out, term, logger)
	code, err := loop.Run()
	termErr := term.Terminate()
	lease.Release()
	if err != nil {
		return 1, err
	}
	if termErr != nil {
		return 1, termErr
	}
	return code, nil
}

// EnsureHome creates the sj home directory if it does not exist yet,
// mirroring the original's implicit mkdir-on-first-use of $HOME/.APP.
func EnsureHome(sjHome string) error {
	return os.MkdirAll(sjHome, 0700)
}
