package nvmetest

import (
	"bytes"
	"regexp"
	"strings"
)

// LineMap is the normalized standard output of one command: non-empty lines
// with whitespace runs collapsed, indexed from 0 in output order. Blank lines
// are dropped, so indexes do not match the raw output line numbers.
type LineMap struct {
	lines []string
}

// NewLineMap builds a LineMap from already normalized lines. Empty entries are
// skipped so the contiguous-index invariant holds.
func NewLineMap(lines ...string) LineMap {
	lm := LineMap{lines: make([]string, 0, len(lines))}

	for _, l := range lines {
		if l != "" {
			lm.lines = append(lm.lines, l)
		}
	}

	return lm
}

// NormalizeOutput converts captured stdout into a LineMap. Each line has
// backspaces and trailing newline removed and internal whitespace collapsed
// to single spaces; lines that end up empty are dropped.
func NormalizeOutput(out []byte) LineMap {
	lm := LineMap{lines: []string{}}

	for _, raw := range bytes.Split(out, []byte("\n")) {
		line := strings.ReplaceAll(string(raw), "\b", "")
		line = strings.Join(strings.Fields(line), " ")

		if line == "" {
			continue
		}

		lm.lines = append(lm.lines, line)
	}

	return lm
}

// Len returns the number of lines.
func (lm LineMap) Len() int {
	return len(lm.lines)
}

// Line returns line i and whether it exists.
func (lm LineMap) Line(i int) (string, bool) {
	if i < 0 || i >= len(lm.lines) {
		return "", false
	}

	return lm.lines[i], true
}

// Lines returns a copy of all lines in index order.
func (lm LineMap) Lines() []string {
	return append([]string{}, lm.lines...)
}

// Text joins the lines back together with newlines.
func (lm LineMap) Text() string {
	return strings.Join(lm.lines, "\n")
}

// Find returns the index and text of the first line matching re.
func (lm LineMap) Find(re *regexp.Regexp) (int, string, bool) {
	for i, l := range lm.lines {
		if re.MatchString(l) {
			return i, l, true
		}
	}

	return -1, "", false
}

// Map returns the lines as an index -> text map.
func (lm LineMap) Map() map[int]string {
	m := make(map[int]string, len(lm.lines))
	for i, l := range lm.lines {
		m[i] = l
	}

	return m
}
