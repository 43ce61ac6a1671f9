package perf

import (
	"fmt"
	"strings"

	"machinerun.io/nvmetest"
)

// Diskspd describes a diskspd.exe run against one target.
type Diskspd struct {
	// Target is a file path, a drive ("E:") or a physical drive ("#1").
	Target       string
	FileSize     string
	Duration     int
	BlockSize    string
	Threads      int
	Outstanding  int
	WritePercent int
	Random       bool
	// DisableCache disables software caching and hardware write caching (-Sh).
	DisableCache bool
	Latency      bool
}

// Command returns the diskspd command line.
func (d Diskspd) Command() string {
	args := []string{"diskspd.exe"}

	if d.FileSize != "" {
		args = append(args, "-c"+d.FileSize)
	}

	if d.Duration > 0 {
		args = append(args, fmt.Sprintf("-d%d", d.Duration))
	}

	if d.BlockSize != "" {
		args = append(args, "-b"+d.BlockSize)
	}

	if d.Threads > 0 {
		args = append(args, fmt.Sprintf("-t%d", d.Threads))
	}

	if d.Outstanding > 0 {
		args = append(args, fmt.Sprintf("-o%d", d.Outstanding))
	}

	args = append(args, fmt.Sprintf("-w%d", d.WritePercent))

	if d.Random {
		args = append(args, "-r")
	}

	if d.DisableCache {
		args = append(args, "-Sh")
	}

	if d.Latency {
		args = append(args, "-L")
	}

	return strings.Join(append(args, d.Target), " ")
}

// Parse parses a diskspd text report.
func (d Diskspd) Parse(raw string) (Result, error) {
	return ParseDiskspd(raw)
}

// ParseDiskspd extracts the "total:" rows of the Read IO and Write IO
// sections of a diskspd report:
//
//	Read IO
//	thread |       bytes     |     I/Os     |    MiB/s   |  I/O per s |  AvgLat  | ...
//	-----------------------------------------------------------------------------
//	total:        8963465216 |      2188346 |     284.80 |   72908.34 |    1.755 | ...
func ParseDiskspd(raw string) (Result, error) {
	res := Result{}
	section := ""
	found := map[string]bool{}

	for _, line := range nvmetest.SplitRawLines(raw) {
		trimmed := strings.TrimSpace(line)

		switch trimmed {
		case "Read IO", "Write IO":
			section = trimmed
			continue
		case "Total IO":
			section = ""
			continue
		}

		if section == "" || found[section] || !strings.HasPrefix(trimmed, "total:") {
			continue
		}

		t, err := parseDiskspdTotal(strings.TrimPrefix(trimmed, "total:"), section)
		if err != nil {
			return Result{}, err
		}

		if section == "Read IO" {
			res.Read = t
		} else {
			res.Write = t
		}

		found[section] = true
	}

	for _, s := range []string{"Read IO", "Write IO"} {
		if !found[s] {
			return Result{}, &nvmetest.PatternNotMatchedError{Field: "diskspd " + s + " total", Pattern: "total:"}
		}
	}

	return res, nil
}

func parseDiskspdTotal(row, section string) (Throughput, error) {
	const minFields = 4

	fields := strings.Split(row, "|")
	if len(fields) < minFields {
		return Throughput{}, &nvmetest.PatternNotMatchedError{Field: "diskspd " + section + " total", Pattern: "bytes | I/Os | MiB/s | I/O per s"}
	}

	t := Throughput{}

	bytes, err := nvmetest.Atoi(fields[0], section+" bytes")
	if err != nil {
		return t, err
	}

	ios, err := nvmetest.Atoi(fields[1], section+" I/Os")
	if err != nil {
		return t, err
	}

	t.Bytes, t.IOs = int64(bytes), int64(ios)

	if t.BW, err = nvmetest.Atof(fields[2], section+" MiB/s"); err != nil {
		return t, err
	}

	if t.IOPS, err = nvmetest.Atof(fields[3], section+" I/O per s"); err != nil {
		return t, err
	}

	if len(fields) > minFields {
		// latency is "N/A" when nothing was done in this direction
		if lat, err := nvmetest.Atof(fields[4], section+" AvgLat"); err == nil {
			t.AvgLatency = lat
		}
	}

	return t, nil
}
