// Package rendezvous implements the numbered-slot directory that clients and
// the background server use to find each other: each slot is an owner flag
// file plus a pair of named pipes, created in a fixed order so a half-built
// slot can never look available.
package rendezvous

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/sj-launcher/sj/internal/framing"
)

// MinFreeSlots is the number of unused slots grab_proxy tops up to after a
// lease, matching the original's MIN_FREE_PROXIES.
const MinFreeSlots = 4

// Dir wraps the rendezvous directory path ($HOME/.sj).
type Dir struct {
	Path string
}

func New(path string) *Dir {
	return &Dir{Path: path}
}

func (d *Dir) slotPath(index int, suffix string) string {
	return filepath.Join(d.Path, fmt.Sprintf("%d-%s", index, suffix))
}

func (d *Dir) ownerPath(index int) string { return d.slotPath(index, "owner") }

// OwnerPath exposes a slot's owner-flag path for callers outside this
// package that need to poll it directly (the server lifecycle manager's
// cold-start readiness wait).
func (d *Dir) OwnerPath(index int) string { return d.ownerPath(index) }
func (d *Dir) inPath(index int) string    { return d.slotPath(index, "in") }
func (d *Dir) outPath(index int) string   { return d.slotPath(index, "out") }

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// CreateSlot creates one slot's owner flag and FIFO pair. The owner flag is
// created first so nobody can lease the slot before both pipes exist.
func (d *Dir) CreateSlot(index int) error {
	owner := d.ownerPath(index)
	f, err := os.OpenFile(owner, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("rendezvous: create owner flag %s: %w", owner, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("rendezvous: create owner flag %s: %w", owner, err)
	}

	in := d.inPath(index)
	if err := unix.Mkfifo(in, 0600); err != nil {
		return fmt.Errorf("rendezvous: create fifo %s: %w", in, err)
	}
	out := d.outPath(index)
	if err := unix.Mkfifo(out, 0600); err != nil {
		return fmt.Errorf("rendezvous: create fifo %s: %w", out, err)
	}
	return nil
}

// Lease is a granted, exclusively-owned slot. Out is the pipe the holder
// writes outbound messages to (the slot's "-in" FIFO, from the server's
// point of view); In is opened lazily by Open, only once the holder
// actually needs to read (the original's setup_in_fd, deferred until a
// command is run).
type Lease struct {
	dir   *Dir
	Index int
	Out   *os.File
	In    *os.File
}

// errAllSlotsInUse mirrors the original's "All proxies are in use" message;
// it can only happen if the top-up logic in Grab is not keeping pace.
var errAllSlotsInUse = fmt.Errorf("rendezvous: all slots in use")

// Grab scans slots from 0 upward, leasing the first one whose owner file is
// absent by appending this process's PID and reading the file back: if our
// PID comes out first, we won any race against a concurrent grabber on the
// same local filesystem (append is atomic for writes under PIPE_BUF, and a
// fresh read sees whichever append landed first). It then tops the
// directory up to MinFreeSlots free slots, creating new ones as needed and
// sending a "new_proxy" message per new slot on the granted lease so the
// server knows to start watching it.
func (d *Dir) Grab() (*Lease, error) {
	pid := os.Getpid()
	var lease *Lease
	nSlots := 0
	free := 0

	for index := 0; ; index++ {
		in := d.inPath(index)
		if !exists(in) {
			nSlots = index
			break
		}
		owner := d.ownerPath(index)
		if !isOwnerFree(owner) {
			continue
		}
		if lease != nil {
			free++
			continue
		}
		won, err := appendAndCheckWinner(owner, pid)
		if err != nil {
			return nil, err
		}
		if !won {
			continue
		}
		out, err := os.OpenFile(in, os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("rendezvous: open %s for writing: %w", in, err)
		}
		lease = &Lease{dir: d, Index: index, Out: out}
	}

	if lease == nil {
		return nil, errAllSlotsInUse
	}

	inUse := nSlots - free
	for inUse+MinFreeSlots > nSlots {
		if err := d.CreateSlot(nSlots); err != nil {
			return nil, err
		}
		if err := framing.WriteMsg(lease.Out, func(b *framing.Buffer) {
			b.WriteLiteral("new_proxy ")
			b.WriteInt(uint32(nSlots))
		}); err != nil {
			return nil, fmt.Errorf("rendezvous: send new_proxy %d: %w", nSlots, err)
		}
		nSlots++
	}
	return lease, nil
}

// isOwnerFree reports whether a slot is available to lease. The owner file
// exists for the whole time a slot is reserved (created up front by
// CreateSlot, deleted by the server once it is done watching the slot) so
// its mere presence, not its contents, marks the slot taken.
func isOwnerFree(owner string) bool {
	return !exists(owner)
}

func appendAndCheckWinner(owner string, pid int) (bool, error) {
	f, err := os.OpenFile(owner, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return false, fmt.Errorf("rendezvous: open owner flag %s: %w", owner, err)
	}
	_, werr := fmt.Fprintf(f, "%d\n", pid)
	cerr := f.Close()
	if werr != nil {
		return false, fmt.Errorf("rendezvous: append to owner flag %s: %w", owner, werr)
	}
	if cerr != nil {
		return false, fmt.Errorf("rendezvous: append to owner flag %s: %w", owner, cerr)
	}

	r, err := os.Open(owner)
	if err != nil {
		return false, fmt.Errorf("rendezvous: read back owner flag %s: %w", owner, err)
	}
	defer r.Close()
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	first, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return false, nil
	}
	return first == pid, nil
}

// Open lazily opens the slot's inbound FIFO for reading. This call blocks
// until the server opens its write end — the lazy-open rule is intentional
// (see DESIGN.md), not a missing timeout.
func (l *Lease) Open() error {
	f, err := os.OpenFile(l.dir.outPath(l.Index), os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("rendezvous: open %s for reading: %w", l.dir.outPath(l.Index), err)
	}
	l.In = f
	return nil
}

// Release closes the lease's pipes without unlinking the owner flag: owner
// flags are cleared by the server side once it is done with a slot, never
// by the client, matching the original's release_proxy.
func (l *Lease) Release() error {
	var firstErr error
	if l.In != nil {
		if err := l.In.Close(); err != nil {
			firstErr = err
		}
		l.In = nil
	}
	if l.Out != nil {
		if err := l.Out.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		l.Out = nil
	}
	return firstErr
}

// Sweep removes all slot files and PID files from a prior server
// generation, matching start_server's glob-and-unlink of "*.pid", "*-in",
// "*-out", "*-owner" before a cold start.
func (d *Dir) Sweep() error {
	patterns := []string{"*.pid", "*-in", "*-out", "*-owner"}
	for _, pat := range patterns {
		matches, err := filepath.Glob(filepath.Join(d.Path, pat))
		if err != nil {
			return fmt.Errorf("rendezvous: sweep glob %s: %w", pat, err)
		}
		for _, m := range matches {
			if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("rendezvous: sweep remove %s: %w", m, err)
			}
		}
	}
	return nil
}

// Slot describes one rendezvous slot as observed by a read-only directory
// scan, used by the health package and the monitor TUI.
type Slot struct {
	Index    int
	Occupied bool
	OwnerPID int // 0 if free or unparseable
}

// ScanSlots lists every slot currently present in the directory without
// leasing any of them.
func (d *Dir) ScanSlots() ([]Slot, error) {
	var slots []Slot
	for index := 0; ; index++ {
		in := d.inPath(index)
		if !exists(in) {
			break
		}
		owner := d.ownerPath(index)
		s := Slot{Index: index}
		if exists(owner) {
			s.Occupied = true
			if data, err := os.ReadFile(owner); err == nil {
				line := strings.SplitN(string(data), "\n", 2)[0]
				if pid, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
					s.OwnerPID = pid
				}
			}
		}
		slots = append(slots, s)
	}
	return slots, nil
}
