//go:build linux

// Package terminal manages the client's controlling terminal on behalf of
// the server: raw/cooked mode toggling, window-size queries, a final
// cleanup string to flush on exit, and SIGWINCH delivery via a self-pipe so
// the event loop's poll() can see it as an ordinary readable fd.
package terminal

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// Controller owns stdin's termios save-state and the SIGWINCH self-pipe.
// The zero value is not usable; construct with New.
type Controller struct {
	mu        sync.Mutex
	saved     *unix.Termios
	rawActive bool

	cleanup []byte

	sigwinchCh chan os.Signal
	pipeR      *os.File
	pipeW      *os.File
}

// New creates a Controller and arms the SIGWINCH handler, mirroring the
// original's con_init (lazily invoked the first time a con-* message
// arrives). The self-pipe's read end is exposed through SignalFD so the
// event loop can add it to its poll set alongside stdin and the inbound FIFO.
func New() (*Controller, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("terminal: create self-pipe: %w", err)
	}
	c := &Controller{
		pipeR:      r,
		pipeW:      w,
		sigwinchCh: make(chan os.Signal, 1),
	}
	signal.Notify(c.sigwinchCh, syscall.SIGWINCH)
	go c.bounceSIGWINCH()
	return c, nil
}

// bounceSIGWINCH forwards each SIGWINCH into the self-pipe as a single 'W'
// byte so the poll-based event loop — which cannot safely run Go signal
// handling logic directly inside a syscall-level poll() wait — observes it
// as ordinary input, exactly as the original's async-signal-safe
// console_resized() writing to signal_pipe[1].
func (c *Controller) bounceSIGWINCH() {
	for range c.sigwinchCh {
		if _, err := c.pipeW.Write([]byte("W")); err != nil {
			return
		}
	}
}

// SignalFD returns the self-pipe's read end for the event loop's poll set.
func (c *Controller) SignalFD() int {
	return int(c.pipeR.Fd())
}

// DrainSignals reads and discards pending bytes from the self-pipe after a
// poll wakeup, reporting whether a resize was among them.
func (c *Controller) DrainSignals() (resized bool, err error) {
	buf := make([]byte, 16)
	n, err := c.pipeR.Read(buf)
	if err != nil {
		return false, fmt.Errorf("terminal: read signal pipe: %w", err)
	}
	for _, b := range buf[:n] {
		if b == 'W' {
			resized = true
		} else {
			return resized, fmt.Errorf("terminal: unexpected flag in signal pipe: %c", b)
		}
	}
	return resized, nil
}

// SetRaw puts stdin into raw mode (cfmakeraw equivalent), saving the
// previous termios so Restore can undo it. A second call while already raw
// is a no-op, matching init_stdin's stdin_init guard.
func (c *Controller) SetRaw() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rawActive {
		return nil
	}

	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return fmt.Errorf("terminal: input is not a terminal")
	}

	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("terminal: get attributes: %w", err)
	}
	saved := *t
	c.saved = &saved

	raw := *t
	cfmakeraw(&raw)
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return fmt.Errorf("terminal: set raw attributes: %w", err)
	}
	c.rawActive = true
	return nil
}

// Restore undoes SetRaw, matching term_stdin. A no-op if not currently raw.
func (c *Controller) Restore() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restoreLocked()
}

func (c *Controller) restoreLocked() error {
	if !c.rawActive {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, c.saved); err != nil {
		return fmt.Errorf("terminal: restore attributes: %w", err)
	}
	c.rawActive = false
	return nil
}

// SetCleanup replaces the byte string con_term dumps to stdout on final
// cleanup (con-cleanup message).
func (c *Controller) SetCleanup(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanup = append([]byte(nil), data...)
}

// Terminate restores cooked mode and flushes the cleanup string to stdout,
// matching con_term. Safe to call more than once; must run at process exit
// regardless of how the event loop terminates (its Go analogue of atexit).
func (c *Controller) Terminate() error {
	c.mu.Lock()
	cleanup := c.cleanup
	c.cleanup = nil
	c.mu.Unlock()

	if err := c.Restore(); err != nil {
		return err
	}
	if len(cleanup) == 0 {
		return nil
	}
	if _, err := os.Stdout.Write(cleanup); err != nil {
		return fmt.Errorf("terminal: write cleanup string: %w", err)
	}
	return nil
}

// Size returns the terminal's current column/row count (TIOCGWINSZ).
func (c *Controller) Size() (cols, rows int, err error) {
	ws, err := unix.IoctlGetWinsize(int(os.Stdin.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, fmt.Errorf("terminal: get window size: %w", err)
	}
	return int(ws.Col), int(ws.Row), nil
}

func isTerminal(fd int) bool {
	_, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	return err == nil
}

// cfmakeraw reproduces glibc's cfmakeraw(3) field-by-field, since
// golang.org/x/sys/unix does not expose the C library helper directly.
func cfmakeraw(t *unix.Termios) {
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
}
