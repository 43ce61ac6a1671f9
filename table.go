package nvmetest

import (
	"regexp"
	"strings"
)

var dashLine = regexp.MustCompile(`^\s*-+(\s+-+)*\s*$`)

// SplitRawLines splits raw output into lines, removing carriage returns and
// backspaces but keeping the column alignment intact.
func SplitRawLines(raw string) []string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r", ""), "\n")
	for i := range lines {
		lines[i] = strings.ReplaceAll(lines[i], "\b", "")
	}

	return lines
}

// ParseTable parses column aligned tool output into one map per row keyed by
// the header text. Two layouts are handled:
//
//	Node          SN        Model          <- header
//	------------- --------- -------------  <- optional dash underline
//	/dev/nvme0n1  S4EWNX0R  Samsung 970    <- rows
//
// Column boundaries are taken from the gaps between dash groups of the
// underline, or between header words when there is none (wmic output), and
// placed where every row also has a space.
func ParseTable(lines []string) []map[string]string {
	dataLines := []string{}
	var underline string

	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}

		if dashLine.MatchString(l) {
			if len(dataLines) == 1 && underline == "" {
				underline = l
			}

			continue
		}

		dataLines = append(dataLines, strings.TrimRight(l, " \t"))
	}

	if len(dataLines) == 0 {
		return []map[string]string{}
	}

	layout := dataLines[0]
	if underline != "" {
		layout = underline
	}

	cuts := chooseCuts(gapCandidates(layout), dataLines[1:])

	return cutTableLines(dataLines, cuts)
}

type colCand struct {
	Left, Right int
}

// gapCandidates returns the runs of spaces between non-space text in line.
// Right is the index of the first character of the following column.
func gapCandidates(line string) []colCand {
	const space = ' '

	cands := []colCand{}
	left := -1
	leadingSpace := true

	for i, curChar := range line {
		if curChar == space {
			if left < 0 && !leadingSpace {
				left = i
			}
		} else {
			leadingSpace = false
			if left >= 0 {
				cands = append(cands, colCand{left, i})
				left = -1
			}
		}
	}

	return cands
}

// chooseCuts picks one cut per gap: just after the last column of the gap
// where every row has a space, so right aligned values that start mid-gap
// stay whole. If no column of the gap is clear the next column start is used.
func chooseCuts(cands []colCand, rows []string) []int {
	const space = ' '

	at := func(line string, i int) byte {
		if i >= len(line) {
			return space
		}

		return line[i]
	}

	cuts := []int{}

	for _, cand := range cands {
		cut := -1

		for column := cand.Left; column < cand.Right; column++ {
			clear := true

			for _, line := range rows {
				if at(line, column) != space {
					clear = false
					break
				}
			}

			if clear {
				cut = column + 1
			} else if cut >= 0 {
				break
			}
		}

		if cut < 0 {
			cut = cand.Right
		}

		cuts = append(cuts, cut)
	}

	return cuts
}

func cutTableLines(dataLines []string, cuts []int) []map[string]string {
	data := []map[string]string{}

	slice := func(line string, from, to int) string {
		if from >= len(line) {
			return ""
		}

		if to > len(line) || to < 0 {
			to = len(line)
		}

		return strings.TrimSpace(line[from:to])
	}

	split := func(line string) []string {
		fields := []string{}
		from := 0

		for _, c := range cuts {
			fields = append(fields, slice(line, from, c))
			from = c
		}

		return append(fields, slice(line, from, -1))
	}

	headers := split(dataLines[0])

	for _, line := range dataLines[1:] {
		row := map[string]string{}
		for i, v := range split(line) {
			row[headers[i]] = v
		}

		data = append(data, row)
	}

	return data
}

// SplitBlocks splits raw output into groups of non-blank lines separated by
// one or more blank lines.
func SplitBlocks(raw string) [][]string {
	blocks := [][]string{}
	cur := []string{}

	for _, l := range SplitRawLines(raw) {
		if strings.TrimSpace(l) == "" {
			if len(cur) != 0 {
				blocks = append(blocks, cur)
				cur = []string{}
			}

			continue
		}

		cur = append(cur, l)
	}

	if len(cur) != 0 {
		blocks = append(blocks, cur)
	}

	return blocks
}

// ParseKeyValues parses "key <sep> value" lines. Keys and values are trimmed.
// A line following a key is a wrapped continuation of that key's value when
// it has no sep, or when it is indented at least as far as the value column
// (Format-List wraps long values that way, colons included).
func ParseKeyValues(lines []string, sep string) map[string]string {
	const tokNum2 = 2

	data := map[string]string{}
	last := ""
	valueCol := 0

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		wrapped := last != "" && valueCol > 0 && indent >= valueCol

		toks := strings.SplitN(trimmed, sep, tokNum2)
		if wrapped || len(toks) != tokNum2 || strings.TrimSpace(toks[0]) == "" {
			if last != "" {
				data[last] = strings.TrimSpace(data[last] + " " + trimmed)
			}

			continue
		}

		last = strings.TrimSpace(toks[0])
		data[last] = strings.TrimSpace(toks[1])

		after := strings.Index(line, sep) + len(sep)
		valueCol = after + len(line[after:]) - len(strings.TrimLeft(line[after:], " \t"))
	}

	return data
}
