package volume

import (
	"os"

	"golang.org/x/sys/unix"
)

// deviceSectorSize returns the logical sector size of a block device.
func deviceSectorSize(fp *os.File) (uint, bool) {
	info, err := fp.Stat()
	if err != nil || info.Mode()&os.ModeDevice == 0 {
		return 0, false
	}

	ss, err := unix.IoctlGetInt(int(fp.Fd()), unix.BLKSSZGET)
	if err != nil || ss <= 0 {
		return 0, false
	}

	return uint(ss), true
}
