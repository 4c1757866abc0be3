package rendezvous

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
)

// openReader opens a slot's "-in" FIFO for reading without blocking, standing
// in for the server's read end so Grab's blocking O_WRONLY open can complete.
func openReader(t *testing.T, path string) *os.File {
	t.Helper()
	r, err := os.OpenFile(path, os.O_RDONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("open reader on %s: %v", path, err)
	}
	return r
}

func TestCreateSlotOrdersOwnerBeforeFIFOs(t *testing.T) {
	dir := t.TempDir()
	d := New(dir)

	if err := d.CreateSlot(0); err != nil {
		t.Fatalf("CreateSlot: %v", err)
	}
	if !exists(d.ownerPath(0)) {
		t.Error("owner flag missing after CreateSlot")
	}
	if !exists(d.inPath(0)) {
		t.Error("in FIFO missing after CreateSlot")
	}
	if !exists(d.outPath(0)) {
		t.Error("out FIFO missing after CreateSlot")
	}
}

func TestGrabSkipsReservedSlotAndLeasesFree(t *testing.T) {
	dir := t.TempDir()
	d := New(dir)

	if err := d.CreateSlot(0); err != nil {
		t.Fatalf("CreateSlot(0): %v", err)
	}
	// Slot 0 stays reserved (owner file present) until the server frees it.
	if err := d.CreateSlot(1); err != nil {
		t.Fatalf("CreateSlot(1): %v", err)
	}
	if err := os.Remove(d.ownerPath(1)); err != nil {
		t.Fatalf("free slot 1: %v", err)
	}
	defer openReader(t, d.inPath(1)).Close()

	lease, err := d.Grab()
	if err != nil {
		t.Fatalf("Grab: %v", err)
	}
	defer lease.Release()

	if lease.Index != 1 {
		t.Errorf("leased slot %d, want 1 (slot 0 is reserved)", lease.Index)
	}
	if !exists(d.ownerPath(1)) {
		t.Error("owner flag should be recreated by Grab on lease")
	}
}

func TestGrabToppsUpToMinFreeSlots(t *testing.T) {
	dir := t.TempDir()
	d := New(dir)

	if err := d.CreateSlot(0); err != nil {
		t.Fatalf("CreateSlot(0): %v", err)
	}
	if err := os.Remove(d.ownerPath(0)); err != nil {
		t.Fatalf("free slot 0: %v", err)
	}
	defer openReader(t, d.inPath(0)).Close()

	lease, err := d.Grab()
	if err != nil {
		t.Fatalf("Grab: %v", err)
	}
	defer lease.Release()

	for i := 1; i <= MinFreeSlots; i++ {
		if !exists(filepath.Join(dir, itoa(i)+"-in")) {
			t.Errorf("slot %d should have been created by top-up", i)
		}
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := ""
	for i > 0 {
		digits = string(rune('0'+i%10)) + digits
		i /= 10
	}
	return digits
}

func TestSweepRemovesPriorGenerationFiles(t *testing.T) {
	dir := t.TempDir()
	d := New(dir)
	if err := d.CreateSlot(0); err != nil {
		t.Fatalf("CreateSlot: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "server.pid"), []byte("123\n"), 0600); err != nil {
		t.Fatalf("write server.pid: %v", err)
	}

	if err := d.Sweep(); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	for _, p := range []string{d.ownerPath(0), d.inPath(0), d.outPath(0), filepath.Join(dir, "server.pid")} {
		if exists(p) {
			t.Errorf("%s should have been swept", p)
		}
	}
}
