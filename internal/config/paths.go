package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths contains the standard XDG-style directories AXE uses for anything
// outside the workspace itself: data, the emergency mailbox default
// location, and cached state.
type Paths struct {
	Data   string // ~/.local/share/axe
	Config string // ~/.config/axe
	Cache  string // ~/.cache/axe
	State  string // ~/.local/state/axe
}

// GetPaths returns the standard paths for AXE's own data, honoring
// XDG_*_HOME overrides.
func GetPaths() *Paths {
	return &Paths{
		Data:   filepath.Join(getEnvOrDefault("XDG_DATA_HOME", defaultDataHome()), "axe"),
		Config: filepath.Join(getEnvOrDefault("XDG_CONFIG_HOME", defaultConfigHome()), "axe"),
		Cache:  filepath.Join(getEnvOrDefault("XDG_CACHE_HOME", defaultCacheHome()), "axe"),
		State:  filepath.Join(getEnvOrDefault("XDG_STATE_HOME", defaultStateHome()), "axe"),
	}
}

// EnsurePaths creates all required directories.
func (p *Paths) EnsurePaths() error {
	for _, dir := range []string{p.Data, p.Config, p.Cache, p.State} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// StorePath returns a SQLite database path under the data directory. The
// CLI's default store location is store.DefaultPath, next to the executable.
func (p *Paths) StorePath() string {
	return filepath.Join(p.Data, "axe.db")
}

// DefaultMailboxDir returns the default emergency-mailbox directory, kept
// under State rather than Data since it is append-only, operator-facing
// output, not session-resumable data.
func (p *Paths) DefaultMailboxDir() string {
	return filepath.Join(p.State, "emergency-mailbox")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func defaultDataHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share")
}

func defaultConfigHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".config")
}

func defaultCacheHome() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "cache")
	}
	return filepath.Join(os.Getenv("HOME"), ".cache")
}

func defaultStateHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "state")
}
