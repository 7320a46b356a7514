package hosts

import (
	"runtime"
	"strings"
)

// LineEnding selects the separator used when rendering lines to text.
type LineEnding string

const (
	LF   LineEnding = "\n"
	CRLF LineEnding = "\r\n"
)

// PlatformLineEnding returns CRLF on Windows and LF elsewhere.
func PlatformLineEnding() LineEnding {
	return LineEndingFor(runtime.GOOS == "windows")
}

// LineEndingFor maps a "windows style" flag to a line ending.
func LineEndingFor(windows bool) LineEnding {
	if windows {
		return CRLF
	}
	return LF
}

// Convert rewrites every line break in s to e.
func (e LineEnding) Convert(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if e == CRLF {
		s = strings.ReplaceAll(s, "\n", "\r\n")
	}
	return s
}

// String renders a single line without a terminator.
func (l Line) String() string {
	switch l.Kind {
	case LineValid:
		parts := make([]string, 0, len(l.Aliases)+3)
		if !l.Enabled {
			parts = append(parts, DisabledMarker)
		}
		parts = append(parts, l.Address)
		parts = append(parts, l.Aliases...)
		if l.HasComment {
			if l.Comment == "" {
				parts = append(parts, "#")
			} else {
				parts = append(parts, "# "+l.Comment)
			}
		}
		return strings.Join(parts, " ")
	case LineComment, LineOther:
		return l.Text
	case LineBlank:
		return ""
	default:
		return ""
	}
}

// Serialize renders lines joined by eol. No terminator is added after the
// last line; a trailing blank line produces the final newline.
func Serialize(lines []Line, eol LineEnding) string {
	if eol == "" {
		eol = LF
	}
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteString(string(eol))
		}
		b.WriteString(l.String())
	}
	return b.String()
}
