// Package sysinfo probes the CPU and network identity of the system under
// test.
package sysinfo

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"

	"machinerun.io/nvmetest"
)

// CPU is the processor topology of a system.
type CPU struct {
	Sockets        int `json:"sockets"`
	Cores          int `json:"cores"`
	Logical        int `json:"logical"`
	ThreadsPerCore int `json:"threads_per_core"`
}

// Hyperthreading reports whether more than one thread runs per core.
func (c CPU) Hyperthreading() bool {
	return c.Logical > c.Cores
}

const wmicCPU = "wmic cpu get NumberOfCores,NumberOfLogicalProcessors"

// ParseWindowsCores parses the wmic cpu table. wmic prints one row per
// socket; the counts are summed.
func ParseWindowsCores(raw string) (CPU, error) {
	c := CPU{}

	for _, row := range nvmetest.ParseTable(nvmetest.SplitRawLines(raw)) {
		cores, err := nvmetest.Atoi(row["NumberOfCores"], "NumberOfCores")
		if err != nil {
			return CPU{}, err
		}

		logical, err := nvmetest.Atoi(row["NumberOfLogicalProcessors"], "NumberOfLogicalProcessors")
		if err != nil {
			return CPU{}, err
		}

		c.Sockets++
		c.Cores += cores
		c.Logical += logical
	}

	if c.Sockets == 0 {
		return CPU{}, &nvmetest.PatternNotMatchedError{Field: "NumberOfCores", Pattern: wmicCPU}
	}

	if c.Cores > 0 {
		c.ThreadsPerCore = c.Logical / c.Cores
	}

	return c, nil
}

// ParseLscpu parses lscpu output.
func ParseLscpu(raw string) (CPU, error) {
	kv := nvmetest.ParseKeyValues(nvmetest.SplitRawLines(raw), ":")
	c := CPU{}

	for _, f := range []struct {
		key string
		val *int
	}{
		{"CPU(s)", &c.Logical},
		{"Thread(s) per core", &c.ThreadsPerCore},
		{"Core(s) per socket", &c.Cores},
		{"Socket(s)", &c.Sockets},
	} {
		v, ok := kv[f.key]
		if !ok {
			return CPU{}, &nvmetest.PatternNotMatchedError{Field: f.key, Pattern: f.key + ":"}
		}

		n, err := nvmetest.Atoi(v, f.key)
		if err != nil {
			return CPU{}, err
		}

		*f.val = n
	}

	c.Cores *= c.Sockets

	return c, nil
}

// QueryCPU reads the processor topology.
func QueryCPU(r nvmetest.Runner) (CPU, error) {
	switch r.OS() {
	case nvmetest.Windows:
		out, err := r.RunRaw(wmicCPU)
		if err != nil {
			return CPU{}, err
		}

		return ParseWindowsCores(out)
	case nvmetest.Linux:
		out, err := r.RunRaw("LC_ALL=C lscpu")
		if err != nil {
			return CPU{}, err
		}

		return ParseLscpu(out)
	}

	return CPU{}, fmt.Errorf("%w: cpu query on %s", nvmetest.ErrUnsupported, r.OS())
}

// Hyperthreading reports whether simultaneous multithreading is enabled.
// Any failure is logged and reported as false.
func Hyperthreading(r nvmetest.Runner) bool {
	c, err := QueryCPU(r)
	if err != nil {
		log.Warnf("hyperthreading probe failed: %s", err)
		return false
	}

	return c.Hyperthreading()
}

var macRe = regexp.MustCompile(`(?:[0-9A-Fa-f]{2}[-:]){5}[0-9A-Fa-f]{2}`)

// MACCommand returns the command printing the MAC address of ifName.
func MACCommand(os nvmetest.OSType, ifName string) (string, error) {
	switch os {
	case nvmetest.Windows:
		name := strings.ReplaceAll(ifName, "'", "''")
		return fmt.Sprintf(`powershell -Command "Get-NetAdapter -Name '%s' | Format-List -Property Name,MacAddress"`, name), nil
	case nvmetest.Linux:
		return "cat /sys/class/net/" + ifName + "/address", nil
	}

	return "", fmt.Errorf("%w: mac lookup on %s", nvmetest.ErrUnsupported, os)
}

// ParseMAC returns the first MAC address in lm, in lower case colon form.
func ParseMAC(lm nvmetest.LineMap) (string, error) {
	toks, err := nvmetest.MatchLine(lm, macRe, "MAC address")
	if err != nil {
		return "", err
	}

	hw, err := net.ParseMAC(toks[0])
	if err != nil {
		return "", &nvmetest.UnitConversionError{Text: toks[0], Reason: err.Error()}
	}

	return hw.String(), nil
}

// MAC returns the MAC address of ifName. Failures are logged and reported
// as not found.
func MAC(r nvmetest.Runner, ifName string) (string, bool) {
	cmd, err := MACCommand(r.OS(), ifName)
	if err != nil {
		log.Warnf("mac lookup: %s", err)
		return "", false
	}

	lm, err := r.RunLines(cmd)
	if err != nil {
		log.WithField("if", ifName).Warnf("mac lookup: %s", err)
		return "", false
	}

	mac, err := ParseMAC(lm)
	if err != nil {
		log.WithField("if", ifName).Warnf("mac lookup: %s", err)
		return "", false
	}

	return mac, true
}
