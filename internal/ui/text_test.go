package ui

import (
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestFormatterWithColor(t *testing.T) {
	os.Unsetenv("NO_COLOR")
	color.NoColor = false

	result := Code.Sprint("dotvault vault sync")
	if strings.Contains(result, "`") {
		t.Errorf("Code.Sprint should not contain backticks when color is enabled, got: %s", result)
	}
	if !strings.Contains(result, "\x1b[") {
		t.Errorf("Code.Sprint should contain ANSI escape codes when color is enabled, got: %s", result)
	}
}

func TestFormatterWithNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name      string
		formatter Formatter
		input     string
		want      string
	}{
		{"Code adds backticks", Code, "dotvault vault sync", "`dotvault vault sync`"},
		{"Path has no decoration", Path, "~/.gitconfig", "~/.gitconfig"},
		{"Flag has no decoration", Flag, "--force-local", "--force-local"},
		{"Success has no decoration", Success, "✓", "✓"},
		{"Error has no decoration", Error, "✗", "✗"},
		{"Highlight adds quotes", Highlight, "Git-Config", "'Git-Config'"},
		{"Muted adds parentheses", Muted, "never synced", "(never synced)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.formatter.Sprint(tt.input)
			if got != tt.want {
				t.Errorf("%s.Sprint(%q) = %q, want %q", tt.name, tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatterSprintf(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	result := Code.Sprintf("dotvault vault %s", "pull")
	want := "`dotvault vault pull`"
	if result != want {
		t.Errorf("Code.Sprintf() = %q, want %q", result, want)
	}
}

func TestMarksHonorNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	if MarkOK() != "✓" {
		t.Errorf("MarkOK() = %q", MarkOK())
	}
	if MarkFail() != "✗" {
		t.Errorf("MarkFail() = %q", MarkFail())
	}
	if MarkSkip() != "◌" {
		t.Errorf("MarkSkip() = %q", MarkSkip())
	}
}

func TestEnsureNewline(t *testing.T) {
	if got := EnsureNewline("done"); got != "done\n" {
		t.Errorf("EnsureNewline(done) = %q", got)
	}
	if got := EnsureNewline("done\n"); got != "done\n" {
		t.Errorf("EnsureNewline(done\\n) = %q", got)
	}
	if got := EnsureNewline(""); got != "\n" {
		t.Errorf("EnsureNewline(\"\") = %q", got)
	}
}

func TestPadRightIgnoresColorEscapes(t *testing.T) {
	os.Unsetenv("NO_COLOR")
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = true })

	colored := Warning.Sprint("modified")
	if Width(colored) != len("modified") {
		t.Errorf("Width(%q) = %d, want %d", colored, Width(colored), len("modified"))
	}
	padded := PadRight(colored, 10)
	if !strings.HasSuffix(padded, "  ") || Width(padded) != 10 {
		t.Errorf("PadRight(%q, 10) = %q", colored, padded)
	}
}

func TestPadRightPlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	if got := PadRight("✓ ok", 6); got != "✓ ok  " {
		t.Errorf("PadRight = %q", got)
	}
	if got := PadRight("already-long", 4); got != "already-long" {
		t.Errorf("PadRight should not truncate, got %q", got)
	}
}
