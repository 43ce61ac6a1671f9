package perf

import (
	"fmt"
	"regexp"
	"strings"

	"machinerun.io/nvmetest"
)

const mib = 1024 * 1024

// Fio describes a fio run.
type Fio struct {
	Name      string
	Filename  string
	RW        string
	BlockSize string
	IODepth   int
	NumJobs   int
	Runtime   int
	Size      string
	IOEngine  string
	Direct    bool
}

// Command returns the fio command line. Job results are always aggregated
// with --group_reporting.
func (f Fio) Command() string {
	name := f.Name
	if name == "" {
		name = f.RW
	}

	args := []string{"fio", "--name=" + name, "--filename=" + f.Filename, "--rw=" + f.RW}

	if f.BlockSize != "" {
		args = append(args, "--bs="+f.BlockSize)
	}

	if f.IODepth > 0 {
		args = append(args, fmt.Sprintf("--iodepth=%d", f.IODepth))
	}

	if f.NumJobs > 0 {
		args = append(args, fmt.Sprintf("--numjobs=%d", f.NumJobs))
	}

	if f.Size != "" {
		args = append(args, "--size="+f.Size)
	}

	if f.Runtime > 0 {
		args = append(args, fmt.Sprintf("--runtime=%d", f.Runtime), "--time_based")
	}

	if f.IOEngine != "" {
		args = append(args, "--ioengine="+f.IOEngine)
	}

	if f.Direct {
		args = append(args, "--direct=1")
	}

	return strings.Join(append(args, "--group_reporting"), " ")
}

// Parse parses a fio normal output report.
func (f Fio) Parse(raw string) (Result, error) {
	return ParseFio(raw)
}

var fioLine = regexp.MustCompile(`^\s*(read|write)\s*: IOPS=([0-9.]+[kKMGT]?), BW=([0-9.]+[kKMGT]?i?B)/s`)

// ParseFio sums the per direction "IOPS=..., BW=..." lines of a fio report.
// IOPS may carry a k/M suffix and BW any binary unit; BW is returned in MiB/s.
func ParseFio(raw string) (Result, error) {
	res := Result{}
	matched := false

	for _, line := range nvmetest.SplitRawLines(raw) {
		toks := fioLine.FindStringSubmatch(line)
		if toks == nil {
			continue
		}

		iops, err := nvmetest.ParseSize(toks[2])
		if err != nil {
			return Result{}, err
		}

		bw, err := nvmetest.ParseSize(toks[3])
		if err != nil {
			return Result{}, err
		}

		t := &res.Read
		if toks[1] == "write" {
			t = &res.Write
		}

		t.IOPS += iops
		t.BW += bw / mib
		matched = true
	}

	if !matched {
		return Result{}, &nvmetest.PatternNotMatchedError{Field: "fio IOPS", Pattern: fioLine.String()}
	}

	return res, nil
}
