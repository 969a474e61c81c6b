package compose

import (
	"fmt"
	"regexp"
	"strings"
)

// envValueIndent is the column at which block literal content starts. It
// matches the nesting of services.<name>.environment.<KEY> in the app template.
const envValueIndent = 8

// envKeyIndent is the column of the KEY itself.
const envKeyIndent = 6

var plainKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// Words a YAML 1.1 parser would read as something other than a string.
var ambiguousKeys = map[string]bool{
	"y": true, "n": true, "yes": true, "no": true, "on": true, "off": true,
	"true": true, "false": true, "null": true,
}

// quote renders s as a double-quoted YAML scalar. Line breaks and other
// control characters are escaped so the parser reads them back unchanged.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if needsEscape(r) {
				fmt.Fprintf(&b, `\u%04X`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// needsEscape reports runes YAML treats as line breaks or rejects as
// non-printable.
func needsEscape(r rune) bool {
	switch {
	case r < 0x20, r == 0x7f, r >= 0x80 && r <= 0x9f:
		return true
	case r == 0x2028, r == 0x2029, r == 0xfeff:
		return true
	}
	return false
}

// literalSafe reports whether s can be written as a block literal. Block
// content is normalized by the parser, so only newlines may appear as
// control characters.
func literalSafe(s string) bool {
	for _, r := range s {
		if r != '\n' && r != '\t' && needsEscape(r) {
			return false
		}
	}
	return true
}

// formatKey renders a mapping key, quoting it only when a plain key could
// be misread.
func formatKey(k string) string {
	if plainKeyPattern.MatchString(k) && !ambiguousKeys[strings.ToLower(k)] {
		return k
	}
	return quote(k)
}

// formatValue renders an environment value. Single-line values, and any
// value carrying a carriage return or other control character, are
// double-quoted. Other multi-line values become a literal block whose lines
// are indented to envValueIndent; "|+" keeps a trailing newline, "|-" strips
// the final line break otherwise.
func formatValue(s string) string {
	if !strings.Contains(s, "\n") || !literalSafe(s) {
		return quote(s)
	}

	chomp := "-"
	body := s
	if strings.HasSuffix(s, "\n") {
		chomp = "+"
		body = strings.TrimSuffix(s, "\n")
	}

	lines := strings.Split(body, "\n")

	// Content indentation is detected from the first non-empty line, so a
	// leading space there needs an explicit indentation indicator.
	indicator := ""
	for _, line := range lines {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, " ") {
			indicator = string(rune('0' + envValueIndent - envKeyIndent))
		}
		break
	}

	var b strings.Builder
	b.WriteString("|" + indicator + chomp)
	pad := strings.Repeat(" ", envValueIndent)
	for _, line := range lines {
		b.WriteString("\n")
		if line != "" {
			b.WriteString(pad)
			b.WriteString(line)
		}
	}
	return b.String()
}
