package nvmetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var getPartitionTable = `
PartitionNumber  DriveLetter Offset                                        Size Type
---------------  ----------- ------                                        ---- ----
1                            17408                                       128 MB Reserved
2                E           135266304                                931.39 GB Basic
`

var wmicCPUTable = "NumberOfCores  NumberOfLogicalProcessors  \r\n\r\n8              16                         \r\n\r\n"

func TestParseTableUnderlined(t *testing.T) {
	found := ParseTable(SplitRawLines(getPartitionTable))

	assert.Equal(t, []map[string]string{
		{"PartitionNumber": "1", "DriveLetter": "", "Offset": "17408", "Size": "128 MB", "Type": "Reserved"},
		{"PartitionNumber": "2", "DriveLetter": "E", "Offset": "135266304", "Size": "931.39 GB", "Type": "Basic"},
	}, found)
}

func TestParseTableNoUnderline(t *testing.T) {
	found := ParseTable(SplitRawLines(wmicCPUTable))

	assert.Equal(t, []map[string]string{
		{"NumberOfCores": "8", "NumberOfLogicalProcessors": "16"},
	}, found)
}

func TestParseTableEmpty(t *testing.T) {
	assert.Empty(t, ParseTable([]string{"", "  "}))
}

func TestSplitBlocks(t *testing.T) {
	raw := "a : 1\nb : 2\n\n\nc : 3\r\n"

	assert.Equal(t, [][]string{{"a : 1", "b : 2"}, {"c : 3"}}, SplitBlocks(raw))
}

func TestParseKeyValues(t *testing.T) {
	lines := []string{
		"Source        : stornvme",
		"Message       : Reset to device, \\Device\\RaidPort1,",
		"                was issued.",
		"EventID       : 129",
		"Time: 10:01:02",
	}

	assert.Equal(t, map[string]string{
		"Source":  "stornvme",
		"Message": "Reset to device, \\Device\\RaidPort1, was issued.",
		"EventID": "129",
		"Time":    "10:01:02",
	}, ParseKeyValues(lines, ":"))
}

func TestParseKeyValuesWrappedWithSep(t *testing.T) {
	lines := []string{
		"EventID       : 11",
		"Message       : The driver detected a controller error on",
		"                \\Device\\RaidPort0: reset issued.",
		"Features:   Rebuild,",
		"            Media Patrol: on",
		"  Indented: key",
	}

	assert.Equal(t, map[string]string{
		"EventID":  "11",
		"Message":  "The driver detected a controller error on \\Device\\RaidPort0: reset issued.",
		"Features": "Rebuild, Media Patrol: on",
		"Indented": "key",
	}, ParseKeyValues(lines, ":"))
}
