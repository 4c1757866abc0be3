package config

import "testing"

func TestLoadPreferencesDefaultsWhenAbsent(t *testing.T) {
	dir := t.TempDir()

	p, err := LoadPreferences(dir)
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if p.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", p.LogLevel)
	}
	if p.NoColor {
		t.Error("NoColor should default to false")
	}
}

func TestSetPreferenceRoundTrips(t *testing.T) {
	dir := t.TempDir()

	if err := SetPreference(dir, "no_color", "true"); err != nil {
		t.Fatalf("SetPreference: %v", err)
	}

	v, err := GetPreference(dir, "no_color")
	if err != nil {
		t.Fatalf("GetPreference: %v", err)
	}
	if v != "true" {
		t.Errorf("no_color = %q, want true", v)
	}

	p, err := LoadPreferences(dir)
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if !p.NoColor {
		t.Error("NoColor should be true after Set")
	}
}

func TestGetPreferenceRejectsUnknownKey(t *testing.T) {
	dir := t.TempDir()
	if _, err := GetPreference(dir, "bogus"); err == nil {
		t.Fatal("expected error for unknown preference key")
	}
}
