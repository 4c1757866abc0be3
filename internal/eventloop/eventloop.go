//go:build linux

// Package eventloop runs the client's single-threaded, poll()-based
// message loop: it multiplexes stdin, the leased inbound FIFO, and the
// terminal controller's SIGWINCH self-pipe, relaying bytes and dispatching
// inbound control messages exactly as the original's main() loop and
// process_msg do.
package eventloop

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/sj-launcher/sj/internal/framing"
	"github.com/sj-launcher/sj/internal/terminal"
)

// Loop owns the three fds poll() waits on and the state needed to dispatch
// inbound messages.
type Loop struct {
	in       *os.File // leased inbound FIFO (server -> client)
	out      *os.File // leased outbound FIFO (client -> server), for replies
	term     *terminal.Controller
	logger   *log.Logger
	stdinEOF bool
	reader   *bufio.Reader

	// ExitCode is set once an "exit %i" message is processed; the caller's
	// main loop should stop and os.Exit with this value.
	ExitCode   int
	shouldExit bool
}

// New constructs a Loop over an already-leased rendezvous pair.
func New(in, out *os.File, term *terminal.Controller, logger *log.Logger) *Loop {
	return &Loop{
		in:     in,
		out:    out,
		term:   term,
		logger: logger,
		reader: bufio.NewReader(in),
	}
}

// Run drives the poll loop until an "exit" message arrives or an
// unrecoverable error occurs, then returns the exit code the server
// reported.
func (l *Loop) Run() (int, error) {
	stdinFD := int(os.Stdin.Fd())
	inFD := int(l.in.Fd())
	sigFD := l.term.SignalFD()

	stdinBuf := make([]byte, 1024)

	for {
		fds := []unix.PollFd{
			{Fd: int32(inFD), Events: unix.POLLIN},
			{Fd: int32(sigFD), Events: unix.POLLIN},
		}
		if !l.stdinEOF {
			fds = append(fds, unix.PollFd{Fd: int32(stdinFD), Events: unix.POLLIN})
		}

		_, err := unix.Poll(fds, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return 1, fmt.Errorf("eventloop: poll: %w", err)
		}

		if !l.stdinEOF {
			stdinFd := fds[2]
			if stdinFd.Revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
				return 1, fmt.Errorf("eventloop: error on stdin")
			}
			if stdinFd.Revents&unix.POLLHUP != 0 {
				if err := l.sendEOF(); err != nil {
					return 1, err
				}
			}
			if !l.stdinEOF && stdinFd.Revents&unix.POLLIN != 0 {
				n, rerr := os.Stdin.Read(stdinBuf)
				if n == 0 || rerr != nil {
					if err := l.sendEOF(); err != nil {
						return 1, err
					}
				} else {
					if err := l.sendStdin(stdinBuf[:n]); err != nil {
						return 1, err
					}
				}
			}
		}

		sigFd := fds[1]
		if sigFd.Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return 1, fmt.Errorf("eventloop: unexpected error on signal pipe")
		}
		if sigFd.Revents&unix.POLLIN != 0 {
			resized, err := l.term.DrainSignals()
			if err != nil {
				return 1, err
			}
			if resized {
				if err := l.sendWinSize(); err != nil {
					return 1, err
				}
			}
		}

		inFd := fds[0]
		if inFd.Revents&unix.POLLHUP != 0 {
			return 1, fmt.Errorf("eventloop: server hung up pipe")
		}
		if inFd.Revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
			return 1, fmt.Errorf("eventloop: error on incoming pipe")
		}
		if inFd.Revents&unix.POLLIN != 0 {
			// Drain every complete message currently buffered before
			// returning to poll, matching the original's inner
			// read_msg/process_msg loop guarded by in_off >= in_len.
			for {
				msg, err := framing.ReadMsg(l.reader)
				if err != nil {
					return 1, fmt.Errorf("eventloop: read message: %w", err)
				}
				if err := l.dispatch(msg); err != nil {
					return 1, err
				}
				if l.shouldExit {
					return l.ExitCode, nil
				}
				if l.reader.Buffered() == 0 {
					break
				}
			}
		}
	}
}

func (l *Loop) sendEOF() error {
	l.stdinEOF = true
	return framing.WriteMsg(l.out, func(b *framing.Buffer) {
		b.WriteLiteral("EOF")
	})
}

func (l *Loop) sendStdin(data []byte) error {
	return framing.WriteMsg(l.out, func(b *framing.Buffer) {
		b.WriteLiteral("0")
		b.WriteTail(data)
	})
}

func (l *Loop) sendWinSize() error {
	cols, rows, err := l.term.Size()
	if err != nil {
		return err
	}
	return framing.WriteMsg(l.out, func(b *framing.Buffer) {
		b.WriteLiteral("con-size ")
		b.WriteInt(uint32(cols))
		b.WriteByte(' ')
		b.WriteInt(uint32(rows))
	})
}

// dispatch implements process_msg's dispatch table.
func (l *Loop) dispatch(msg []byte) error {
	if l.logger != nil {
		l.logger.Debugf("message received: %q", msg)
	}

	var data []byte

	if framing.Match(msg, "1%t", &data) {
		_, err := os.Stdout.Write(data)
		return err
	}
	if framing.Match(msg, "2%t", &data) {
		_, err := os.Stderr.Write(data)
		return err
	}
	var status uint32
	if framing.Match(msg, "exit %i", &status) {
		l.ExitCode = int(status)
		l.shouldExit = true
		return nil
	}
	var cmdline string
	if framing.Match(msg, "run %s", &cmdline) {
		return l.runSubcommand(cmdline)
	}
	if len(msg) >= 4 && string(msg[:4]) == "con-" {
		return l.dispatchConsole(msg)
	}

	if l.logger != nil {
		l.logger.Warnf("invalid message received: %q", msg)
	}
	return nil
}

// dispatchConsole implements con_process_msg's table of terminal-control
// requests the server can make of the client.
func (l *Loop) dispatchConsole(msg []byte) error {
	if framing.Match(msg, "con-raw-on") {
		return l.term.SetRaw()
	}
	if framing.Match(msg, "con-raw-off") {
		return l.term.Restore()
	}
	var cleanup []byte
	if framing.Match(msg, "con-cleanup %t", &cleanup) {
		l.term.SetCleanup(cleanup)
		return nil
	}
	if framing.Match(msg, "con-req-size") {
		return l.sendWinSize()
	}
	if framing.Match(msg, "con-term") {
		return l.term.Terminate()
	}
	if l.logger != nil {
		l.logger.Warnf("unrecognized console message: %q", msg)
	}
	return nil
}

// runSubcommand implements the "run %s" handler: run an external command
// via the shell and wait for it, reporting its outcome as run-status.
func (l *Loop) runSubcommand(cmdline string) error {
	cmd := exec.Command("/bin/sh", "-c", cmdline)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	kind, code := classifyRunResult(err)
	return framing.WriteMsg(l.out, func(b *framing.Buffer) {
		b.WriteLiteral("run-status ")
		b.WriteInt(uint32(int32(kind)))
		b.WriteByte(' ')
		b.WriteInt(uint32(int32(code)))
	})
}

// classifyRunResult mirrors process_msg's encoding of a system() result:
// kind -1 = spawn errno, 0 = normal exit status, 1 = SIGINT/SIGQUIT,
// 2 = other signal, 3 = other (should not occur under os/exec).
func classifyRunResult(err error) (kind, code int) {
	if err == nil {
		return 0, 0
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		// The shell itself failed to start (ENOENT on /bin/sh etc.), not
		// the command it would have run; carry the underlying errno.
		var errno syscall.Errno
		if errors.As(err, &errno) {
			return -1, int(errno)
		}
		return -1, 0
	}
	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return 3, 0
	}
	if ws.Signaled() {
		sig := ws.Signal()
		if sig == syscall.SIGINT || sig == syscall.SIGQUIT {
			return 1, int(sig)
		}
		return 2, int(sig)
	}
	return 0, ws.ExitStatus()
}
