package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Preferences holds client-local display settings — never part of the wire
// contract, never sent to the server. Stored as TOML because this is pure
// client configuration, unlike the core Config Record above.
type Preferences struct {
	NoColor         bool   `toml:"no_color,omitempty" json:"no_color"`
	LogLevel        string `toml:"log_level,omitempty" json:"log_level"`
	Term256Override *bool  `toml:"term_256_override,omitempty" json:"term_256_override,omitempty"`
}

func prefsPath(sjHome string) string {
	return filepath.Join(sjHome, "prefs.toml")
}

// LoadPreferences reads prefs.toml, returning defaults if it does not exist.
func LoadPreferences(sjHome string) (*Preferences, error) {
	p := &Preferences{LogLevel: "warn"}
	data, err := os.ReadFile(prefsPath(sjHome))
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("config: read prefs.toml: %w", err)
	}
	if err := toml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("config: parse prefs.toml: %w", err)
	}
	return p, nil
}

// SavePreferences writes prefs.toml, creating sjHome if necessary.
func SavePreferences(sjHome string, p *Preferences) error {
	if err := os.MkdirAll(sjHome, 0o755); err != nil {
		return fmt.Errorf("config: create %s: %w", sjHome, err)
	}
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("config: marshal prefs.toml: %w", err)
	}
	return os.WriteFile(prefsPath(sjHome), data, 0o644)
}

// prefsValidKeys lists the dot-separated keys usable with "sj config get/set".
var prefsValidKeys = map[string]bool{
	"no_color":  true,
	"log_level": true,
}

// GetPreference retrieves a single preference by key.
func GetPreference(sjHome, key string) (string, error) {
	if !prefsValidKeys[key] {
		return "", fmt.Errorf("config: unknown preference key: %s", key)
	}
	p, err := LoadPreferences(sjHome)
	if err != nil {
		return "", err
	}
	switch key {
	case "no_color":
		return fmt.Sprintf("%v", p.NoColor), nil
	case "log_level":
		return p.LogLevel, nil
	default:
		return "", fmt.Errorf("config: unknown preference key: %s", key)
	}
}

// SetPreference sets a single preference by key and persists it.
func SetPreference(sjHome, key, value string) error {
	if !prefsValidKeys[key] {
		return fmt.Errorf("config: unknown preference key: %s", key)
	}
	p, err := LoadPreferences(sjHome)
	if err != nil {
		return err
	}
	switch key {
	case "no_color":
		p.NoColor = strings.EqualFold(value, "true") || value == "1"
	case "log_level":
		p.LogLevel = value
	}
	return SavePreferences(sjHome, p)
}
