package configs

import (
	"path/filepath"
	"testing"
)

func TestHasAnchor(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"~/.gitconfig", true},
		{"~", true},
		{"/etc/hosts", true},
		{"$HOME/.aws/config", true},
		{"${XDG_CONFIG_HOME}/git/config", true},
		{"$1/bad", false},
		{"${}/bad", false},
		{".gitconfig", false},
		{"relative/path", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := HasAnchor(tt.raw); got != tt.want {
				t.Errorf("HasAnchor(%q) = %t, want %t", tt.raw, got, tt.want)
			}
		})
	}
}

func TestExpand(t *testing.T) {
	root := t.TempDir()
	paths := PathsUnder(root)
	paths.LookupEnv = func(name string) (string, bool) {
		if name == "XDG_CONFIG_HOME" {
			return "/cfg", true
		}
		return "", false
	}

	tests := []struct {
		raw  string
		want string
	}{
		{"~/.gitconfig", filepath.Join(paths.Home, ".gitconfig")},
		{"/etc/../etc/hosts", "/etc/hosts"},
		{"${XDG_CONFIG_HOME}/git/config", "/cfg/git/config"},
		{"$XDG_CONFIG_HOME/git/config", "/cfg/git/config"},
		{"$HOME/.ssh/id_ed25519", filepath.Join(paths.Home, ".ssh", "id_ed25519")},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := paths.Expand(tt.raw)
			if err != nil {
				t.Fatalf("Expand(%q) failed: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestExpandUnsetVariable(t *testing.T) {
	paths := PathsUnder(t.TempDir())
	paths.LookupEnv = func(string) (string, bool) { return "", false }

	if _, err := paths.Expand("$DOTFILES_NOPE/x"); err == nil {
		t.Fatal("expected error for unset variable")
	}
}
