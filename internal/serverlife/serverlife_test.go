package serverlife

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestDetectAbsent(t *testing.T) {
	dir := t.TempDir()
	state, _, err := Detect(dir)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if state != StateAbsent {
		t.Errorf("state = %v, want StateAbsent", state)
	}
}

func TestDetectUnparseable(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "server.pid"), []byte("not-a-pid\n"), 0600); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	state, _, err := Detect(dir)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if state != StateUnparseable {
		t.Errorf("state = %v, want StateUnparseable", state)
	}
}

func TestDetectStalePID(t *testing.T) {
	dir := t.TempDir()
	// PID 0 is never a real process to signal in userspace, and a huge
	// unused PID reliably reports ESRCH without depending on what else is
	// running on the test machine.
	const unusedPID = 1 << 30
	if err := os.WriteFile(filepath.Join(dir, "server.pid"), []byte(strconv.Itoa(unusedPID)+"\n"), 0600); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	state, pid, err := Detect(dir)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if state != StateStale {
		t.Errorf("state = %v, want StateStale", state)
	}
	if pid != unusedPID {
		t.Errorf("pid = %d, want %d", pid, unusedPID)
	}
}

func TestDetectRunningSelf(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "server.pid"), []byte(strconv.Itoa(os.Getpid())+"\n"), 0600); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	state, pid, err := Detect(dir)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if state != StateRunning {
		t.Errorf("state = %v, want StateRunning", state)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}
}
