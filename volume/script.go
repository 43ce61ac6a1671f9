package volume

import (
	"fmt"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"

	"machinerun.io/nvmetest"
)

// Spec describes a partition to create. SizeMiB zero takes the rest of the
// disk, and must only be used for the last partition.
type Spec struct {
	SizeMiB int
	FS      string
	Label   string
	// Letter is the drive letter to assign on Windows. Empty lets Windows
	// pick one.
	Letter string
}

// DiskpartScript returns a diskpart script wiping disk, converting it to GPT
// and creating specs in order.
func DiskpartScript(disk string, specs []Spec) []string {
	lines := []string{"select disk " + disk, "clean", "convert gpt"}

	for _, s := range specs {
		create := "create partition primary"
		if s.SizeMiB > 0 {
			create += fmt.Sprintf(" size=%d", s.SizeMiB)
		}

		lines = append(lines, create)

		if s.FS != "" {
			format := "format fs=" + s.FS + " quick"
			if s.Label != "" {
				format += " label=" + s.Label
			}

			lines = append(lines, format)
		}

		if s.Letter != "" {
			lines = append(lines, "assign letter="+s.Letter)
		} else {
			lines = append(lines, "assign")
		}
	}

	return lines
}

// DiskpartCommand feeds script to diskpart through cmd.exe echo.
func DiskpartCommand(script []string) string {
	echoes := make([]string, len(script))
	for i, l := range script {
		echoes[i] = "echo " + l
	}

	return "(" + strings.Join(echoes, "&") + ") | diskpart"
}

var endsWithNum = regexp.MustCompile("[0-9]$")

// PartName returns the kernel name of partition num of disk: nvme0n1 -> nvme0n1p1,
// sda -> sda1.
func PartName(disk string, num int) string {
	sep := ""

	if endsWithNum.MatchString(disk) {
		sep = "p"
	}

	return fmt.Sprintf("%s%s%d", disk, sep, num)
}

// PartedCommands returns the commands labelling dev GPT, creating specs in
// order starting at 1MiB and creating their filesystems.
func PartedCommands(dev string, specs []Spec) []string {
	args := []string{"parted", "-s", dev, "mklabel", "gpt"}
	start := 1

	for i, s := range specs {
		name := s.Label
		if name == "" {
			name = fmt.Sprintf("part%d", i+1)
		}

		end := "100%"
		if s.SizeMiB > 0 {
			end = fmt.Sprintf("%dMiB", start+s.SizeMiB)
		}

		args = append(args, "mkpart", name, fmt.Sprintf("%dMiB", start), end)
		start += s.SizeMiB
	}

	cmds := []string{strings.Join(args, " ")}

	for i, s := range specs {
		if s.FS == "" {
			continue
		}

		mkfs := fmt.Sprintf("mkfs.%s", strings.ToLower(s.FS))
		if s.Label != "" {
			mkfs += " -L " + s.Label
		}

		cmds = append(cmds, mkfs+" "+PartName(dev, i+1))
	}

	return cmds
}

var diskpartError = regexp.MustCompile(`(?i)(DiskPart has encountered an error|Virtual Disk Service error|is not valid)`)
var partedError = regexp.MustCompile(`(?i)^(Error|parted: invalid|mkfs\.\w+: )`)

// Create wipes disk and creates specs on it.
func Create(r nvmetest.Runner, disk string, specs []Spec) error {
	var cmds []string

	errRe := partedError

	switch r.OS() {
	case nvmetest.Windows:
		cmds = []string{DiskpartCommand(DiskpartScript(disk, specs))}
		errRe = diskpartError
	case nvmetest.Linux:
		for _, c := range PartedCommands(disk, specs) {
			cmds = append(cmds, c+" 2>&1")
		}
	default:
		return fmt.Errorf("%w: partitioning on %s", nvmetest.ErrUnsupported, r.OS())
	}

	for _, cmd := range cmds {
		lm, err := r.RunLines(cmd)
		if err != nil {
			return err
		}

		if _, line, failed := lm.Find(errRe); failed {
			log.WithFields(log.Fields{"disk": disk, "cmd": cmd}).Error(line)
			return fmt.Errorf("partitioning %s failed: %s", disk, line)
		}
	}

	return nil
}
