// Package config loads the core Config Record: the "config" file under
// $HOME/.sj that tells a cold-started server how to launch itself. Its
// line grammar is part of the wire contract this repo implements and is
// deliberately not TOML/YAML/JSON — see prefs.go for the one place this
// repo's own settings do use a structured format.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultIdleTimeout is used when no "idle_timeout" line is present.
const DefaultIdleTimeout = 15

// DefaultCharset is used when no "charset" line is present.
const DefaultCharset = "ISO-8859-1"

// Record is the parsed contents of the config file.
type Record struct {
	StartupCmd  string // required, no default
	IdleTimeout int
	Aliases     []string
	Classpaths  []string
	Charset     string
}

// configDirOverride lets the admin CLI pin a directory for testing, mirroring
// the teacher's SetConfigDir/DHHome override pattern.
var configDirOverride string

// SetConfigDir overrides SjHome's result, taking precedence over SJ_HOME.
func SetConfigDir(dir string) {
	configDirOverride = dir
}

// SjHome resolves $HOME/.sj. Precedence: SetConfigDir > SJ_HOME env > ~/.sj,
// the same override chain the teacher's DHHome uses for DH_HOME.
func SjHome() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	if home := os.Getenv("SJ_HOME"); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".sj"), nil
}

// Load reads and parses the config file at <sjHome>/config.
func Load(sjHome string) (*Record, error) {
	path := filepath.Join(sjHome, "config")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return parse(f, path)
}

func parse(f *os.File, path string) (*Record, error) {
	rec := &Record{
		IdleTimeout: DefaultIdleTimeout,
		Charset:     DefaultCharset,
	}
	idleTimeoutSet := false
	lineNo := 0

	apply := func(line string) error {
		lineNo++
		if line == "" || strings.HasPrefix(line, "#") {
			return nil
		}
		switch {
		case strings.HasPrefix(line, "alias "):
			rec.Aliases = append(rec.Aliases, strings.TrimSpace(line[len("alias "):]))
		case strings.HasPrefix(line, "classpath "):
			rec.Classpaths = append(rec.Classpaths, strings.TrimSpace(line[len("classpath "):]))
		case strings.HasPrefix(line, "charset "):
			rec.Charset = strings.TrimSpace(line[len("charset "):])
		case strings.HasPrefix(line, "startup "):
			if rec.StartupCmd != "" {
				return fmt.Errorf("config: %s:%d: more than one 'startup' line specified", path, lineNo)
			}
			rec.StartupCmd = strings.TrimSpace(line[len("startup "):])
		case strings.HasPrefix(line, "idle_timeout "):
			if idleTimeoutSet {
				return fmt.Errorf("config: %s:%d: more than one 'idle_timeout' line specified", path, lineNo)
			}
			val, err := strconv.Atoi(strings.TrimSpace(line[len("idle_timeout "):]))
			if err != nil {
				return fmt.Errorf("config: %s:%d: invalid idle_timeout line: %s", path, lineNo, line)
			}
			rec.IdleTimeout = val
			idleTimeoutSet = true
		default:
			return fmt.Errorf("config: %s:%d: bad config line: %s", path, lineNo, line)
		}
		return nil
	}

	scanner := bufio.NewScanner(f)
	var pending strings.Builder
	for scanner.Scan() {
		// Backslash-terminated lines continue onto the next physical line,
		// with trailing whitespace and the backslash itself stripped first.
		trimmed := strings.TrimRight(scanner.Text(), " \t")
		if strings.HasSuffix(trimmed, "\\") {
			pending.WriteString(strings.TrimSuffix(trimmed, "\\"))
			continue
		}
		pending.WriteString(trimmed)
		line := pending.String()
		pending.Reset()
		if err := apply(line); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if pending.Len() > 0 {
		if err := apply(pending.String()); err != nil {
			return nil, err
		}
	}

	if rec.StartupCmd == "" {
		return nil, fmt.Errorf("config: %s: no 'startup' command specified", path)
	}
	return rec, nil
}
