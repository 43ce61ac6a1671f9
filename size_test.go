package nvmetest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSize(t *testing.T) {
	for _, d := range []struct {
		input    string
		expected float64
	}{
		{"0", 0},
		{"1k", 1024},
		{"1K", 1024},
		{"2.5M", 2.5 * 1024 * 1024},
		{"21.8k", 21.8 * 1024},
		{"3G", 3 * 1024 * 1024 * 1024},
		{"1T", 1024 * 1024 * 1024 * 1024},
		{"931.5 GB", 931.5 * 1024 * 1024 * 1024},
		{"85.2MiB", 85.2 * 1024 * 1024},
		{"512B", 512},
		{"1234", 1234},
		{" 7k ", 7 * 1024},
	} {
		found, err := ParseSize(d.input)
		if assert.NoError(t, err, d.input) {
			assert.InDelta(t, d.expected, found, 0.0001, d.input)
		}
	}
}

func TestParseSizeErrors(t *testing.T) {
	for _, input := range []string{"", "abc", "1.2X", "5m", "1g", "k"} {
		_, err := ParseSize(input)

		var uce *UnitConversionError
		assert.True(t, errors.As(err, &uce), "input %q: %v", input, err)
	}
}
