// Package hosts implements the hosts file document model: a lossless
// line-level representation, a deduplicated per-address view of it, and the
// reconciliation that writes edits to that view back into the lines.
package hosts

import (
	"net/netip"
	"strings"
)

// DisabledMarker prefixes a mapping line that has been switched off.
const DisabledMarker = "#(hed)"

// LineKind classifies a physical line of a hosts file.
type LineKind int

const (
	LineValid LineKind = iota
	LineComment
	LineBlank
	LineOther
)

// String returns the string representation of LineKind
func (k LineKind) String() string {
	switch k {
	case LineValid:
		return "valid"
	case LineComment:
		return "comment"
	case LineBlank:
		return "blank"
	case LineOther:
		return "other"
	default:
		return "unknown"
	}
}

// Line is one classified line. Address, Aliases, Comment, HasComment and
// Enabled are only meaningful for LineValid; Text holds the verbatim content
// of LineComment and LineOther.
type Line struct {
	Kind       LineKind
	Address    string
	Aliases    []string
	Comment    string
	HasComment bool
	Enabled    bool
	Text       string
}

// ValidLine builds an enabled or disabled mapping line without a comment.
func ValidLine(address string, aliases []string, enabled bool) Line {
	return Line{
		Kind:    LineValid,
		Address: address,
		Aliases: aliases,
		Enabled: enabled,
	}
}

// CommentLine builds a comment line holding text verbatim.
func CommentLine(text string) Line {
	return Line{Kind: LineComment, Text: text}
}

// BlankLine builds an empty line.
func BlankLine() Line {
	return Line{Kind: LineBlank}
}

// OtherLine builds an unrecognized line holding text verbatim.
func OtherLine(text string) Line {
	return Line{Kind: LineOther, Text: text}
}

func (l Line) clone() Line {
	if l.Aliases != nil {
		l.Aliases = append([]string(nil), l.Aliases...)
	}
	return l
}

// IsAddress reports whether s is an IPv4 or IPv6 literal.
func IsAddress(s string) bool {
	_, err := netip.ParseAddr(s)
	return err == nil
}

// ParseLine classifies a single raw line.
func ParseLine(raw string) Line {
	line := strings.TrimSpace(raw)
	if line == "" {
		return BlankLine()
	}

	rest, enabled := line, true
	if stripped, ok := strings.CutPrefix(line, DisabledMarker); ok {
		rest, enabled = stripped, false
	}

	if strings.HasPrefix(strings.TrimLeft(rest, " \t"), "#") {
		return CommentLine(line)
	}

	payload, comment, hasComment := strings.Cut(rest, "#")
	fields := strings.Fields(payload)
	if len(fields) < 2 || !IsAddress(fields[0]) {
		return OtherLine(line)
	}

	return Line{
		Kind:       LineValid,
		Address:    fields[0],
		Aliases:    fields[1:],
		Comment:    strings.TrimSpace(comment),
		HasComment: hasComment,
		Enabled:    enabled,
	}
}

// ParseLines splits text on newlines and classifies every line. Empty text
// yields no lines; text ending in a newline yields a trailing blank line.
func ParseLines(text string) []Line {
	if text == "" {
		return []Line{}
	}
	raw := strings.Split(text, "\n")
	lines := make([]Line, 0, len(raw))
	for _, r := range raw {
		lines = append(lines, ParseLine(r))
	}
	return lines
}
