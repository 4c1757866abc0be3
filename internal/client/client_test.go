//go:build linux

package client

import (
	"reflect"
	"testing"
)

func TestParseArgsSymlinkStripsSjPrefix(t *testing.T) {
	inv, err := ParseArgs("/usr/local/bin/sj-mytool", []string{"a", "b"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if inv.Tool != "mytool" || !reflect.DeepEqual(inv.ToolArgs, []string{"a", "b"}) {
		t.Errorf("got %+v", inv)
	}
}

func TestParseArgsSymlinkWithoutSjPrefixIsUnchanged(t *testing.T) {
	inv, err := ParseArgs("/usr/local/bin/mytool", nil)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if inv.Tool != "mytool" {
		t.Errorf("Tool = %q, want %q", inv.Tool, "mytool")
	}
}

func TestParseArgsDirectStop(t *testing.T) {
	inv, err := ParseArgs("/usr/local/bin/sj", []string{"-K"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if inv.Mode != ModeStop {
		t.Errorf("Mode = %v, want ModeStop", inv.Mode)
	}
}

func TestParseArgsDirectStartLongForm(t *testing.T) {
	inv, err := ParseArgs("/usr/local/bin/sj", []string{"--start"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if inv.Mode != ModeStart {
		t.Errorf("Mode = %v, want ModeStart", inv.Mode)
	}
}

func TestParseArgsDirectWithClasspathsAndRestart(t *testing.T) {
	inv, err := ParseArgs("/usr/local/bin/sj", []string{"-j", "/a.jar", "-R", "-j", "/b.jar", "mytool", "x", "y"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if inv.Mode != ModeRun {
		t.Errorf("Mode = %v, want ModeRun", inv.Mode)
	}
	if inv.Tool != "mytool" {
		t.Errorf("Tool = %q, want %q", inv.Tool, "mytool")
	}
	if !inv.Restart {
		t.Error("Restart = false, want true")
	}
	if !reflect.DeepEqual(inv.Classpaths, []string{"/a.jar", "/b.jar"}) {
		t.Errorf("Classpaths = %v", inv.Classpaths)
	}
	if !reflect.DeepEqual(inv.ToolArgs, []string{"x", "y"}) {
		t.Errorf("ToolArgs = %v", inv.ToolArgs)
	}
}

func TestParseArgsDirectNoToolIsUsageError(t *testing.T) {
	_, err := ParseArgs("/usr/local/bin/sj", []string{"-j", "/a.jar"})
	if err != ErrUsage {
		t.Errorf("err = %v, want ErrUsage", err)
	}
}

func TestParseArgsDirectUnknownFlagIsUsageError(t *testing.T) {
	_, err := ParseArgs("/usr/local/bin/sj", []string{"--bogus"})
	if err != ErrUsage {
		t.Errorf("err = %v, want ErrUsage", err)
	}
}
