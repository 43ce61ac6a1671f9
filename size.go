package nvmetest

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	kib = 1024
	mib = kib * 1024
	gib = mib * 1024
	tib = gib * 1024
)

var unitFactors = map[string]float64{
	"k": kib,
	"K": kib,
	"M": mib,
	"G": gib,
	"T": tib,
}

// number, optional space, optional unit letter, optional B / iB suffix.
var sizeRe = regexp.MustCompile(`^([-+]?[0-9]*\.?[0-9]+)\s*([A-Za-z]?)(i?B)?$`)

// ParseSize converts a human readable size value such as "21.8k", "2.5M" or
// "931.5 GB" into a count of base units using powers of 1024. The unit letter
// is case-insensitive only for k. A value without a unit is returned as is.
func ParseSize(s string) (float64, error) {
	text := strings.TrimSpace(s)

	if text == "0" {
		return 0, nil
	}

	toks := sizeRe.FindStringSubmatch(text)
	if toks == nil {
		return 0, &UnitConversionError{Text: s, Reason: "not a number with unit"}
	}

	val, err := strconv.ParseFloat(toks[1], 64)
	if err != nil {
		return 0, &UnitConversionError{Text: s, Reason: err.Error()}
	}

	unit := toks[2]
	if unit == "" || (unit == "B" && toks[3] == "") {
		return val, nil
	}

	factor, ok := unitFactors[unit]
	if !ok {
		return 0, &UnitConversionError{Text: s, Reason: "unknown unit " + unit}
	}

	return val * factor, nil
}
