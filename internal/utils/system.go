package utils

import (
	"os"
	"os/user"
	"regexp"
	"strings"
)

var (
	invalidMachineChars = regexp.MustCompile(`[^a-z0-9\-_]`)
	repeatedHyphens     = regexp.MustCompile(`-+`)
)

// GetUsername returns the current username.
func GetUsername() (string, error) {
	user, err := user.Current()
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

// GetHostname returns the system hostname.
func GetHostname() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}
	return hostname, nil
}

// SanitizeMachineName lowercases name, turns spaces into hyphens and drops
// anything that is not alphanumeric, a hyphen or an underscore.
func SanitizeMachineName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	name = invalidMachineChars.ReplaceAllString(name, "")
	name = repeatedHyphens.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")

	if name == "" {
		name = "machine"
	}
	return name
}

// MachineName identifies this machine in audit entries. It falls back to the
// username when the hostname is unavailable.
func MachineName() string {
	hostname, err := GetHostname()
	if err != nil {
		username, userErr := GetUsername()
		if userErr != nil {
			return "machine"
		}
		hostname = username
	}
	return SanitizeMachineName(hostname)
}
