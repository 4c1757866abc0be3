// Package health provides read-only checks over a running (or not) server
// and its rendezvous directory: used by "sj doctor" and the monitor TUI.
// Adapted from the teacher's process-discovery package, repointed from
// "find a Deephaven server by listening port" to "is this slot's owner PID
// still alive, and is the server PID file's process actually alive".
package health

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/sj-launcher/sj/internal/rendezvous"
)

// ErrNoOwner mirrors the teacher's NotFoundError, describing a PID that
// names no live process. Nothing in this package returns it: CheckServer
// reports a dead server PID as ServerStatus.Stale, and StaleOwners lists
// slots whose owner PID is dead.
type ErrNoOwner struct {
	PID int
}

func (e *ErrNoOwner) Error() string {
	return fmt.Sprintf("no live process with PID %d", e.PID)
}

// ServerStatus is the result of checking the server PID file.
type ServerStatus struct {
	Running bool
	PID     int
	Stale   bool // PID file present but process is dead
}

// CheckServer reads <sjHome>/server.pid and classifies its state, mirroring
// server_not_running's four PID-file states (absent / unparseable / stale /
// alive) collapsed into a single struct for callers that want the detail
// rather than just a boolean.
func CheckServer(sjHome string) (ServerStatus, error) {
	path := sjHome + "/server.pid"
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ServerStatus{}, nil
		}
		return ServerStatus{}, fmt.Errorf("health: read %s: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return ServerStatus{Stale: true}, nil
	}
	if !ProcessAlive(pid) {
		return ServerStatus{PID: pid, Stale: true}, nil
	}
	return ServerStatus{Running: true, PID: pid}, nil
}

// ProcessAlive reports whether pid names a live process, via kill(pid, 0) —
// a signal-free liveness probe, same as server_not_running's kill() check.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	// EPERM means the process exists but we lack permission to signal it —
	// still alive. ESRCH means no such process.
	return err != unix.ESRCH
}

// ClassifyPID reports a short human label for what a PID's command line
// looks like, used by the monitor TUI's slot table. Adapted from
// ClassifyProcess/classifyCmdline, generalized past "is this dh serve" to
// "is this a live process at all, and does it look like a JVM".
func ClassifyPID(pid int) string {
	cmdline := readProcCmdline(pid)
	if cmdline == "" {
		if ProcessAlive(pid) {
			return "unknown"
		}
		return "dead"
	}
	lower := strings.ToLower(cmdline)
	if strings.Contains(lower, "java") {
		return "java"
	}
	return "unknown"
}

func readProcCmdline(pid int) string {
	path := fmt.Sprintf("/proc/%d/cmdline", pid)
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.ReplaceAll(string(data), "\x00", " ")
}

// StaleOwners scans the rendezvous directory and reports slots whose owner
// PID is no longer alive — these never get cleaned up by this tool (only
// the server clears an owner file), but doctor/monitor surface them so a
// stuck server can be noticed and restarted.
func StaleOwners(dir *rendezvous.Dir) ([]rendezvous.Slot, error) {
	slots, err := dir.ScanSlots()
	if err != nil {
		return nil, fmt.Errorf("health: scan slots: %w", err)
	}
	var stale []rendezvous.Slot
	for _, s := range slots {
		if s.Occupied && s.OwnerPID != 0 && !ProcessAlive(s.OwnerPID) {
			stale = append(stale, s)
		}
	}
	return stale, nil
}
