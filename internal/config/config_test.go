package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config"), []byte(body), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "startup java -jar server.jar\n")

	rec, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.StartupCmd != "java -jar server.jar" {
		t.Errorf("StartupCmd = %q", rec.StartupCmd)
	}
	if rec.IdleTimeout != DefaultIdleTimeout {
		t.Errorf("IdleTimeout = %d, want default %d", rec.IdleTimeout, DefaultIdleTimeout)
	}
	if rec.Charset != DefaultCharset {
		t.Errorf("Charset = %q, want default %q", rec.Charset, DefaultCharset)
	}
}

func TestLoadParsesAllDirectives(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `# comment line
startup java -jar server.jar
idle_timeout 30
alias foo com.example.Foo
alias bar com.example.Bar
classpath /opt/a.jar
classpath /opt/b.jar
charset UTF-8
`)

	rec, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.IdleTimeout != 30 {
		t.Errorf("IdleTimeout = %d, want 30", rec.IdleTimeout)
	}
	if len(rec.Aliases) != 2 || rec.Aliases[0] != "foo com.example.Foo" {
		t.Errorf("Aliases = %v", rec.Aliases)
	}
	if len(rec.Classpaths) != 2 {
		t.Errorf("Classpaths = %v", rec.Classpaths)
	}
	if rec.Charset != "UTF-8" {
		t.Errorf("Charset = %q", rec.Charset)
	}
}

func TestLoadJoinsBackslashContinuation(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "startup java -jar \\\n  server.jar --flag\n")

	rec, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.StartupCmd != "java -jar   server.jar --flag" {
		t.Errorf("StartupCmd = %q", rec.StartupCmd)
	}
}

func TestLoadRejectsDuplicateStartup(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "startup a\nstartup b\n")

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for duplicate startup line")
	}
}

func TestLoadRejectsDuplicateIdleTimeout(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "startup a\nidle_timeout 10\nidle_timeout 20\n")

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for duplicate idle_timeout line")
	}
}

func TestLoadRequiresStartup(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "idle_timeout 10\n")

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error when no startup command is present")
	}
}

func TestLoadRejectsUnknownDirective(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "startup a\nbogus directive\n")

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for unrecognized config line")
	}
}
