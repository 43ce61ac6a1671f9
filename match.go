package nvmetest

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Match applies re to text and returns the submatches. field names what the
// caller was looking for and is reported in the PatternNotMatchedError.
func Match(text string, re *regexp.Regexp, field string) ([]string, error) {
	toks := re.FindStringSubmatch(text)
	if toks == nil {
		return nil, &PatternNotMatchedError{Field: field, Pattern: re.String()}
	}

	return toks, nil
}

// MatchLine applies re to each line of lm in order and returns the submatches
// of the first matching line.
func MatchLine(lm LineMap, re *regexp.Regexp, field string) ([]string, error) {
	for _, l := range lm.lines {
		if toks := re.FindStringSubmatch(l); toks != nil {
			return toks, nil
		}
	}

	return nil, &PatternNotMatchedError{Field: field, Pattern: re.String()}
}

// MatchInt returns the first capture group of re in text as an int. Thousands
// separators are ignored.
func MatchInt(text string, re *regexp.Regexp, field string) (int, error) {
	toks, err := Match(text, re, field)
	if err != nil {
		return 0, err
	}

	return Atoi(toks[1], field)
}

// MatchFloat returns the first capture group of re in text as a float64.
func MatchFloat(text string, re *regexp.Regexp, field string) (float64, error) {
	toks, err := Match(text, re, field)
	if err != nil {
		return 0, err
	}

	return Atof(toks[1], field)
}

// MatchHex returns the first capture group of re in text parsed as a hex
// number, with or without a 0x prefix.
func MatchHex(text string, re *regexp.Regexp, field string) (uint64, error) {
	toks, err := Match(text, re, field)
	if err != nil {
		return 0, err
	}

	return ParseHex(toks[1], field)
}

// MatchSize returns the first capture group of re in text converted with
// ParseSize.
func MatchSize(text string, re *regexp.Regexp, field string) (float64, error) {
	toks, err := Match(text, re, field)
	if err != nil {
		return 0, err
	}

	v, err := ParseSize(toks[1])
	if err != nil {
		return 0, errors.Wrapf(err, "%s", field)
	}

	return v, nil
}

// Atoi converts a decimal string that may contain thousands separators.
func Atoi(s, field string) (int, error) {
	v, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return 0, &UnitConversionError{Text: s, Reason: field + ": " + err.Error()}
	}

	return v, nil
}

// Atof converts a decimal string that may contain thousands separators.
func Atof(s, field string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil {
		return 0, &UnitConversionError{Text: s, Reason: field + ": " + err.Error()}
	}

	return v, nil
}

// ParseHex converts "0x1B4B" or "1b4b" into a number.
func ParseHex(s, field string) (uint64, error) {
	t := strings.TrimSpace(s)
	t = strings.TrimPrefix(strings.TrimPrefix(t, "0x"), "0X")

	v, err := strconv.ParseUint(t, 16, 64)
	if err != nil {
		return 0, &UnitConversionError{Text: s, Reason: field + ": " + err.Error()}
	}

	return v, nil
}
