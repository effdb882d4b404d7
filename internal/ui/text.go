package ui

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Formatter renders one semantic kind of text. With color off the text is
// wrapped in plain delimiters instead, so the meaning survives NO_COLOR.
type Formatter struct {
	color *color.Color
	open  string
	close string
}

func style(attr color.Attribute, open, close string) Formatter {
	return Formatter{color: color.New(attr), open: open, close: close}
}

func (f Formatter) Sprint(a ...interface{}) string {
	return f.render(fmt.Sprint(a...))
}

func (f Formatter) Sprintf(format string, a ...interface{}) string {
	return f.render(fmt.Sprintf(format, a...))
}

func (f Formatter) render(text string) string {
	if !ColorEnabled() {
		return f.open + text + f.close
	}
	return f.color.Sprint(text)
}

// ColorEnabled reports whether output may carry ANSI colors. NO_COLOR
// (https://no-color.org/) and fatih/color's terminal detection both turn it off.
func ColorEnabled() bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return !color.NoColor
}

var (
	// Code formats runnable commands; `backticks` without color.
	Code = style(color.FgYellow, "`", "`")

	Path = style(color.FgYellow, "", "")
	Flag = style(color.FgYellow, "", "")

	Success = style(color.FgGreen, "", "")
	Error   = style(color.FgRed, "", "")
	Warning = style(color.FgYellow, "", "")
	Info    = style(color.FgCyan, "", "")

	// Highlight formats item names; 'quotes' without color.
	Highlight = style(color.FgCyan, "'", "'")

	// Muted formats secondary text; (parentheses) without color.
	Muted = style(color.FgHiBlack, "(", ")")
)

// mark is a status glyph. Glyphs are never wrapped in delimiters.
type mark struct {
	glyph string
	color *color.Color
}

func (m mark) String() string {
	if !ColorEnabled() {
		return m.glyph
	}
	return m.color.Sprint(m.glyph)
}

var (
	okMark       = mark{"✓", Success.color}
	failMark     = mark{"✗", Error.color}
	warnMark     = mark{"⚠", Warning.color}
	hintMark     = mark{"→", Info.color}
	skipMark     = mark{"◌", Muted.color}
	conflictMark = mark{"⇄", Warning.color}
)

func MarkOK() string       { return okMark.String() }
func MarkFail() string     { return failMark.String() }
func MarkWarn() string     { return warnMark.String() }
func MarkHint() string     { return hintMark.String() }
func MarkSkip() string     { return skipMark.String() }
func MarkConflict() string { return conflictMark.String() }

// EnsureNewline ensures the string ends with a newline character.
func EnsureNewline(s string) string {
	if !strings.HasSuffix(s, "\n") {
		return s + "\n"
	}
	return s
}

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// Width is the number of visible runes in s, ignoring color escapes.
func Width(s string) int {
	return utf8.RuneCountInString(ansi.ReplaceAllString(s, ""))
}

// PadRight pads s with spaces to width visible columns. Unlike %-*s it is
// not thrown off by color escapes.
func PadRight(s string, width int) string {
	if n := Width(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
