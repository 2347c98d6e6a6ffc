package storage

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultProfilePath returns the bookmark file of the default browser
// profile on this platform. It is computed on every call.
func DefaultProfilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(home, ".config")
	}
	return profilePathFor(runtime.GOOS, home, os.Getenv("LOCALAPPDATA"), configDir), nil
}

func profilePathFor(goos, home, localAppData, configDir string) string {
	switch goos {
	case "windows":
		if localAppData == "" {
			localAppData = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(localAppData, "Google", "Chrome", "User Data", "Default", "Bookmarks")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default", "Bookmarks")
	default:
		return filepath.Join(configDir, "google-chrome", "Default", "Bookmarks")
	}
}

// ResolveProfilePath picks the bookmark file for one call: the explicit
// argument, then the configured path, then the platform default.
func ResolveProfilePath(explicit, configured string) (string, error) {
	for _, p := range []string{explicit, configured} {
		if p = strings.TrimSpace(p); p != "" {
			return ExpandHome(p)
		}
	}
	return DefaultProfilePath()
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[1:]), nil
}
