// Package negotiate sends the one-shot invocation handshake a client makes
// after leasing a slot: classpaths, then command-line args, then the
// environment, then the working directory, then the command to run. Order
// matters — the server consumes these as a flat message stream and the
// "run" message is what actually kicks off execution.
package negotiate

import (
	"fmt"
	"io"
	"os"

	"github.com/sj-launcher/sj/internal/framing"
)

// Invocation is everything a client needs to hand off to the server.
type Invocation struct {
	Classpaths []string
	Args       []string
	Env        []string // defaults to os.Environ() if nil
	Cwd        string   // defaults to os.Getwd() if empty
	Command    string
}

// Send writes the full negotiation sequence to w and flushes (the caller
// is expected to pass the lease's underlying *os.File, which has no
// internal buffering to flush beyond the OS pipe itself — this mirrors
// write_flush's fflush(out_pipe) by simply not holding anything back in a
// Go-side buffer).
func Send(w io.Writer, inv Invocation) error {
	env := inv.Env
	if env == nil {
		env = os.Environ()
	}
	cwd := inv.Cwd
	if cwd == "" {
		var err error
		cwd, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("negotiate: getwd: %w", err)
		}
	}

	for _, cp := range inv.Classpaths {
		if err := framing.WriteMsg(w, func(b *framing.Buffer) {
			b.WriteLiteral("classpath ")
			b.WriteString(cp)
		}); err != nil {
			return err
		}
	}
	for _, arg := range inv.Args {
		if err := framing.WriteMsg(w, func(b *framing.Buffer) {
			b.WriteLiteral("arg ")
			b.WriteString(arg)
		}); err != nil {
			return err
		}
	}
	for _, e := range env {
		if err := framing.WriteMsg(w, func(b *framing.Buffer) {
			b.WriteLiteral("env ")
			b.WriteString(e)
		}); err != nil {
			return err
		}
	}
	if err := framing.WriteMsg(w, func(b *framing.Buffer) {
		b.WriteLiteral("cwd ")
		b.WriteString(cwd)
	}); err != nil {
		return err
	}
	if err := framing.WriteMsg(w, func(b *framing.Buffer) {
		b.WriteLiteral("run ")
		b.WriteString(inv.Command)
	}); err != nil {
		return err
	}
	return nil
}

// SendColdStartConfig sends what start_server pushes into a freshly-spawned server
// before any client invocation is negotiated: the idle timeout, every
// configured alias, then the classpath list.
func SendColdStartConfig(w io.Writer, idleTimeout int, aliases, classpaths []string) error {
	if err := framing.WriteMsg(w, func(b *framing.Buffer) {
		b.WriteLiteral("idle_timeout ")
		b.WriteInt(uint32(idleTimeout))
	}); err != nil {
		return err
	}
	for _, alias := range aliases {
		if err := framing.WriteMsg(w, func(b *framing.Buffer) {
			b.WriteLiteral("alias ")
			b.WriteString(alias)
		}); err != nil {
			return err
		}
	}
	for _, cp := range classpaths {
		if err := framing.WriteMsg(w, func(b *framing.Buffer) {
			b.WriteLiteral("classpath ")
			b.WriteString(cp)
		}); err != nil {
			return err
		}
	}
	return nil
}
