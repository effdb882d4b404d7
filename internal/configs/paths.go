package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Paths holds every filesystem location dotvault reads or writes.
type Paths struct {
	Home      string
	ConfigDir string
	StateDir  string
	BackupDir string

	// LookupEnv resolves $VAR anchors in item paths. Nil means os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// ResolvePaths computes locations from the process environment, following
// the XDG base directory conventions.
func ResolvePaths() (Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("error getting home directory: %w", err)
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		stateHome = filepath.Join(home, ".local", "state")
	}

	configDir := filepath.Join(configHome, "dotvault")
	if dir := os.Getenv(EnvPrefix + "CONFIG_DIR"); dir != "" {
		configDir = dir
	}
	stateDir := filepath.Join(stateHome, "dotvault")
	if dir := os.Getenv(EnvPrefix + "STATE_DIR"); dir != "" {
		stateDir = dir
	}

	return Paths{
		Home:      home,
		ConfigDir: configDir,
		StateDir:  stateDir,
		BackupDir: filepath.Join(stateDir, "backups"),
	}, nil
}

// PathsUnder lays out every location beneath root. Used by tests and by
// --root style sandboxes.
func PathsUnder(root string) Paths {
	return Paths{
		Home:      filepath.Join(root, "home"),
		ConfigDir: filepath.Join(root, "config"),
		StateDir:  filepath.Join(root, "state"),
		BackupDir: filepath.Join(root, "state", "backups"),
	}
}

func (p Paths) ConfigFile() string      { return filepath.Join(p.ConfigDir, "config.toml") }
func (p Paths) DefaultManifest() string { return filepath.Join(p.ConfigDir, "items.yaml") }
func (p Paths) ChecksumFile() string    { return filepath.Join(p.StateDir, "checksums.json") }
func (p Paths) AuditFile() string       { return filepath.Join(p.StateDir, "audit.jsonl") }
func (p Paths) LogFile() string         { return filepath.Join(p.StateDir, "dotvault.log") }
func (p Paths) AgeStoreDir() string     { return filepath.Join(p.StateDir, "store") }

// HasAnchor reports whether raw starts with a recognized path anchor:
// "~/", "/", "$VAR/" or "${VAR}/". A bare "~" or "$VAR" also counts.
func HasAnchor(raw string) bool {
	switch {
	case raw == "~" || strings.HasPrefix(raw, "~/"):
		return true
	case strings.HasPrefix(raw, "/"):
		return true
	case strings.HasPrefix(raw, "$"):
		name, _ := splitVar(raw)
		return name != ""
	}
	return false
}

// Expand resolves the anchor of raw into an absolute, cleaned path.
func (p Paths) Expand(raw string) (string, error) {
	switch {
	case raw == "~":
		return p.Home, nil
	case strings.HasPrefix(raw, "~/"):
		return filepath.Join(p.Home, raw[2:]), nil
	case strings.HasPrefix(raw, "/"):
		return filepath.Clean(raw), nil
	case strings.HasPrefix(raw, "$"):
		name, rest := splitVar(raw)
		if name == "" {
			return "", fmt.Errorf("path %q: malformed variable anchor", raw)
		}
		value, ok := p.lookup(name)
		if !ok || value == "" {
			if name == "HOME" {
				value = p.Home
			} else {
				return "", fmt.Errorf("path %q: environment variable %s is not set", raw, name)
			}
		}
		return filepath.Clean(filepath.Join(value, rest)), nil
	}
	return "", fmt.Errorf("path %q: must start with ~/, / or $VAR/", raw)
}

func (p Paths) lookup(name string) (string, bool) {
	if p.LookupEnv != nil {
		return p.LookupEnv(name)
	}
	return os.LookupEnv(name)
}

// splitVar splits "$VAR/rest" or "${VAR}/rest" into ("VAR", "rest").
func splitVar(raw string) (string, string) {
	s := raw[1:]
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end <= 1 {
			return "", ""
		}
		name := s[1:end]
		rest := s[end+1:]
		if rest != "" && !strings.HasPrefix(rest, "/") {
			return "", ""
		}
		return name, strings.TrimPrefix(rest, "/")
	}

	end := strings.IndexByte(s, '/')
	if end == -1 {
		end = len(s)
	}
	name := s[:end]
	for i, r := range name {
		isLetter := r == '_' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
		isDigit := r >= '0' && r <= '9'
		if !isLetter && !(isDigit && i > 0) {
			return "", ""
		}
	}
	return name, strings.TrimPrefix(s[end:], "/")
}
