// Package nvme queries NVMe devices with nvme-cli on a Linux system under
// test.
package nvme

import (
	"fmt"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"

	"machinerun.io/nvmetest"
)

// Device is one row of "nvme list". Sizes are in bytes.
type Device struct {
	Node         string  `json:"node"`
	SerialNumber string  `json:"serial_number"`
	Model        string  `json:"model"`
	Namespace    int     `json:"namespace"`
	UsedBytes    float64 `json:"used_bytes"`
	TotalBytes   float64 `json:"total_bytes"`
	SectorSize   int     `json:"sector_size"`
	Firmware     string  `json:"firmware"`
}

var (
	usageRe  = regexp.MustCompile(`^([0-9.]+\s*[kKMGT]?i?B)\s*/\s*([0-9.]+\s*[kKMGT]?i?B)$`)
	formatRe = regexp.MustCompile(`^([0-9.]+\s*[kKMGT]?i?B)`)
)

// ParseList parses the table printed by "nvme list".
func ParseList(raw string) ([]Device, error) {
	devices := []Device{}

	for _, row := range nvmetest.ParseTable(nvmetest.SplitRawLines(raw)) {
		node, ok := row["Node"]
		if !ok {
			return nil, &nvmetest.PatternNotMatchedError{Field: "nvme list Node column", Pattern: "Node"}
		}

		d := Device{
			Node:         node,
			SerialNumber: row["SN"],
			Model:        row["Model"],
			Firmware:     row["FW Rev"],
		}

		var err error

		if ns := row["Namespace"]; ns != "" {
			if d.Namespace, err = nvmetest.Atoi(ns, "namespace"); err != nil {
				return nil, err
			}
		}

		usage := strings.Join(strings.Fields(row["Usage"]), " ")
		if toks := usageRe.FindStringSubmatch(usage); toks != nil {
			if d.UsedBytes, err = nvmetest.ParseSize(toks[1]); err != nil {
				return nil, err
			}

			if d.TotalBytes, err = nvmetest.ParseSize(toks[2]); err != nil {
				return nil, err
			}
		}

		if toks := formatRe.FindStringSubmatch(strings.TrimSpace(row["Format"])); toks != nil {
			size, err := nvmetest.ParseSize(toks[1])
			if err != nil {
				return nil, err
			}

			d.SectorSize = int(size)
		}

		devices = append(devices, d)
	}

	return devices, nil
}

func linuxOnly(r nvmetest.Runner) error {
	if r.OS() != nvmetest.Linux {
		return fmt.Errorf("%w: nvme-cli on %s", nvmetest.ErrUnsupported, r.OS())
	}

	return nil
}

// List runs "nvme list".
func List(r nvmetest.Runner) ([]Device, error) {
	if err := linuxOnly(r); err != nil {
		return nil, err
	}

	out, err := r.RunRaw("nvme list")
	if err != nil {
		return nil, err
	}

	devices, err := ParseList(out)
	if err != nil {
		log.Errorf("nvme list: %s", err)
		return nil, err
	}

	return devices, nil
}

// Find returns the device with the given serial number.
func Find(devices []Device, serial string) (Device, bool) {
	for _, d := range devices {
		if d.SerialNumber == serial {
			return d, true
		}
	}

	return Device{}, false
}
