//go:build !linux

package volume

import "os"

func deviceSectorSize(_ *os.File) (uint, bool) {
	return 0, false
}
