// Package volume lists, creates and inspects partitions on the system under
// test.
package volume

import (
	"fmt"
	"regexp"
	"strconv"

	log "github.com/sirupsen/logrus"

	"machinerun.io/nvmetest"
)

// Partition is one partition as reported by the operating system. Size is
// in bytes; Windows reports it rounded to the printed unit.
type Partition struct {
	Number     int     `json:"number"`
	Name       string  `json:"name,omitempty"`
	Letter     string  `json:"letter,omitempty"`
	Offset     uint64  `json:"offset,omitempty"`
	Size       float64 `json:"size"`
	Type       string  `json:"type"`
	FSType     string  `json:"fstype,omitempty"`
	MountPoint string  `json:"mountpoint,omitempty"`
}

// ListCommand returns the command listing the partitions of disk: a disk
// number on Windows, a block device path on Linux.
func ListCommand(os nvmetest.OSType, disk string) (string, error) {
	switch os {
	case nvmetest.Windows:
		return fmt.Sprintf(`powershell -Command "Get-Partition -DiskNumber %s | `+
			`Format-Table -AutoSize PartitionNumber,DriveLetter,Offset,Size,Type"`, disk), nil
	case nvmetest.Linux:
		return "lsblk -b -P -o NAME,SIZE,TYPE,FSTYPE,MOUNTPOINT " + disk, nil
	}

	return "", fmt.Errorf("%w: partition listing on %s", nvmetest.ErrUnsupported, os)
}

// ParseWindowsPartitions parses the Get-Partition table.
func ParseWindowsPartitions(raw string) ([]Partition, error) {
	parts := []Partition{}

	for _, row := range nvmetest.ParseTable(nvmetest.SplitRawLines(raw)) {
		num, ok := row["PartitionNumber"]
		if !ok {
			return nil, &nvmetest.PatternNotMatchedError{Field: "PartitionNumber", Pattern: "Get-Partition table"}
		}

		p := Partition{Letter: row["DriveLetter"], Type: row["Type"]}

		var err error

		if p.Number, err = nvmetest.Atoi(num, "PartitionNumber"); err != nil {
			return nil, err
		}

		if p.Offset, err = strconv.ParseUint(row["Offset"], 10, 64); err != nil {
			return nil, &nvmetest.UnitConversionError{Text: row["Offset"], Reason: "Offset: " + err.Error()}
		}

		if p.Size, err = nvmetest.ParseSize(row["Size"]); err != nil {
			return nil, err
		}

		parts = append(parts, p)
	}

	return parts, nil
}

var (
	lsblkPair  = regexp.MustCompile(`([A-Z:-]+)="([^"]*)"`)
	trailingNo = regexp.MustCompile(`([0-9]+)$`)
)

// ParseLsblk parses "lsblk -P" pairs output, keeping partitions only.
func ParseLsblk(raw string) ([]Partition, error) {
	parts := []Partition{}

	for _, line := range nvmetest.SplitRawLines(raw) {
		kv := map[string]string{}
		for _, m := range lsblkPair.FindAllStringSubmatch(line, -1) {
			kv[m[1]] = m[2]
		}

		if kv["TYPE"] != "part" {
			continue
		}

		p := Partition{
			Name:       kv["NAME"],
			Type:       kv["TYPE"],
			FSType:     kv["FSTYPE"],
			MountPoint: kv["MOUNTPOINT"],
		}

		num, err := nvmetest.MatchInt(p.Name, trailingNo, "partition number")
		if err != nil {
			return nil, err
		}

		p.Number = num

		if p.Size, err = nvmetest.ParseSize(kv["SIZE"]); err != nil {
			return nil, err
		}

		parts = append(parts, p)
	}

	return parts, nil
}

// List returns the partitions of disk.
func List(r nvmetest.Runner, disk string) ([]Partition, error) {
	cmd, err := ListCommand(r.OS(), disk)
	if err != nil {
		return nil, err
	}

	out, err := r.RunRaw(cmd)
	if err != nil {
		return nil, err
	}

	var parts []Partition

	if r.OS() == nvmetest.Windows {
		parts, err = ParseWindowsPartitions(out)
	} else {
		parts, err = ParseLsblk(out)
	}

	if err != nil {
		log.WithField("disk", disk).Errorf("partition list: %s", err)
		return nil, err
	}

	return parts, nil
}

// ByLetter returns the partition with drive letter l.
func ByLetter(parts []Partition, l string) (Partition, bool) {
	for _, p := range parts {
		if p.Letter == l {
			return p, true
		}
	}

	return Partition{}, false
}
