package java

import "testing"

func TestParseVersionOpenJDK(t *testing.T) {
	out := "openjdk version \"21.0.5\" 2024-10-15\nOpenJDK Runtime Environment\n"
	v, err := ParseVersion(out)
	if err != nil {
		t.Fatalf("ParseVersion: %v", err)
	}
	if v != "21.0.5" {
		t.Errorf("version = %q, want 21.0.5", v)
	}
}

func TestParseVersionRejectsGarbage(t *testing.T) {
	if _, err := ParseVersion("not java output"); err == nil {
		t.Fatal("expected error for unparseable output")
	}
}

func TestJavaHomeFromBin(t *testing.T) {
	got := javaHomeFromBin("/usr/lib/jvm/java-21/bin/java")
	if got != "/usr/lib/jvm/java-21" {
		t.Errorf("javaHomeFromBin = %q", got)
	}
}
