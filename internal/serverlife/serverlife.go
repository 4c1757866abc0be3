//go:build linux

// Package serverlife manages the background server's lifecycle: detecting
// whether it is running via its PID file, cold-starting it from the Config
// Record, stopping it gracefully, and restarting it.
package serverlife

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/sj-launcher/sj/internal/config"
	"github.com/sj-launcher/sj/internal/framing"
	"github.com/sj-launcher/sj/internal/java"
	"github.com/sj-launcher/sj/internal/negotiate"
	"github.com/sj-launcher/sj/internal/rendezvous"
)

func sendShutdown(lease *rendezvous.Lease) error {
	return framing.WriteMsg(lease.Out, func(b *framing.Buffer) {
		b.WriteLiteral("shutdown")
	})
}

// State is one of the four PID-file states server_not_running reports.
type State int

const (
	StateAbsent       State = iota // no PID file
	StateUnparseable               // PID file exists but doesn't contain a PID
	StateStale                     // PID file names a process that is no longer alive
	StateRunning                   // PID file names a live process
)

func pidFilePath(sjHome string) string {
	return sjHome + "/server.pid"
}

// Detect reproduces server_not_running's four-way classification.
func Detect(sjHome string) (State, int, error) {
	data, err := os.ReadFile(pidFilePath(sjHome))
	if err != nil {
		if os.IsNotExist(err) {
			return StateAbsent, 0, nil
		}
		return StateAbsent, 0, fmt.Errorf("serverlife: read pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return StateUnparseable, 0, nil
	}
	if err := unix.Kill(pid, 0); err == unix.ESRCH {
		return StateStale, pid, nil
	}
	return StateRunning, pid, nil
}

const (
	startupPollInterval = 100 * time.Millisecond
	startupTimeout      = 10 * time.Second
	shutdownTimeout     = 5 * time.Second
)

// ColdStart starts the server if it is not already running. If keepOpen is
// true, the returned Lease stays leased (its slot-0 grab) for the caller to
// reuse; otherwise it is released before returning. If the server is
// already running, ColdStart is a no-op and returns (nil, nil).
func ColdStart(sjHome string, keepOpen bool, logger *log.Logger) (*rendezvous.Lease, error) {
	state, _, err := Detect(sjHome)
	if err != nil {
		return nil, err
	}
	if state == StateRunning {
		return nil, nil
	}

	if info, err := java.Detect(); err != nil || !info.Found {
		return nil, fmt.Errorf("serverlife: no usable java found on JAVA_HOME or PATH; cannot cold-start server")
	}

	rec, err := config.Load(sjHome)
	if err != nil {
		return nil, err
	}

	dir := rendezvous.New(sjHome)
	if err := dir.Sweep(); err != nil {
		return nil, err
	}
	if err := dir.CreateSlot(0); err != nil {
		return nil, err
	}

	if err := spawn(sjHome, rec.StartupCmd); err != nil {
		return nil, err
	}

	if err := waitForOwnerGone(dir, 0, startupTimeout, logger); err != nil {
		return nil, err
	}

	lease, err := dir.Grab()
	if err != nil {
		return nil, err
	}

	if err := negotiate.SendColdStartConfig(lease.Out, rec.IdleTimeout, rec.Aliases, rec.Classpaths); err != nil {
		lease.Release()
		return nil, err
	}

	if !keepOpen {
		if err := lease.Release(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return lease, nil
}

// spawn forks the startup command via /bin/sh, writing its own PID into
// server.pid before exec'ing, as the original's
// `echo $$ >~/.APP/server.pid && exec <startup_cmd>` shell one-liner does.
// The child's stdio is redirected to /dev/null, it runs in its own session,
// and a leading trap with an empty action sets SIGHUP/SIGINT to ignored
// (inherited across the exec) so a client exiting (or being interrupted) never takes
// the server down with it.
func spawn(sjHome, startupCmd string) error {
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("serverlife: open /dev/null: %w", err)
	}
	defer devnull.Close()

	shellCmd := fmt.Sprintf("trap '' HUP INT; echo $$ >%s && exec %s", pidFilePath(sjHome), startupCmd)
	cmd := exec.Command("/bin/sh", "-c", shellCmd)
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("serverlife: fork to start server: %w", err)
	}
	// The shell's own exec replaces it with startup_cmd; we don't wait on
	// it (it's meant to outlive this client), but reap it asynchronously
	// so it never becomes a zombie under this process.
	go cmd.Wait()
	return nil
}

func waitForOwnerGone(dir *rendezvous.Dir, index int, timeout time.Duration, logger *log.Logger) error {
	owner := dir.OwnerPath(index)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(owner); os.IsNotExist(err) {
			return nil
		}
		time.Sleep(startupPollInterval)
	}
	if logger != nil {
		logger.Warnf("server did not start up after %s", timeout)
	}
	return fmt.Errorf("serverlife: server did not start up after %s", timeout)
}

// Stop gracefully shuts the server down: lease a slot, send "shutdown",
// release, then poll the PID file until the process is gone or the
// shutdown timeout elapses.
func Stop(sjHome string) error {
	state, _, err := Detect(sjHome)
	if err != nil {
		return err
	}
	if state != StateRunning {
		return nil
	}

	dir := rendezvous.New(sjHome)
	lease, err := dir.Grab()
	if err != nil {
		return err
	}
	if err := sendShutdown(lease); err != nil {
		lease.Release()
		return err
	}
	if err := lease.Release(); err != nil {
		return err
	}

	deadline := time.Now().Add(shutdownTimeout)
	for time.Now().Before(deadline) {
		state, _, err := Detect(sjHome)
		if err != nil {
			return err
		}
		if state != StateRunning {
			return nil
		}
		time.Sleep(startupPollInterval)
	}
	return fmt.Errorf("serverlife: server did not respond to shutdown after %s", shutdownTimeout)
}

// Restart stops then cold-starts the server.
func Restart(sjHome string, logger *log.Logger) error {
	if err := Stop(sjHome); err != nil {
		return err
	}
	_, err := ColdStart(sjHome, false, logger)
	return err
}
