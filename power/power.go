// Package power reboots and power cycles the system under test and waits
// for it to come back.
package power

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"machinerun.io/nvmetest"
	"machinerun.io/nvmetest/ping"
)

// ssh exits 255 when the remote side drops the connection, which a reboot
// does.
const sshDropped = 255

// RebootCommand returns the command rebooting os immediately.
func RebootCommand(os nvmetest.OSType) (string, error) {
	switch os {
	case nvmetest.Windows:
		return "shutdown /r /t 0", nil
	case nvmetest.Linux:
		return "shutdown -r now", nil
	}

	return "", fmt.Errorf("%w: reboot on %s", nvmetest.ErrUnsupported, os)
}

// WarmReboot reboots the system r runs commands on. A dropped ssh connection
// is expected and not an error.
func WarmReboot(r nvmetest.Runner) error {
	cmd, err := RebootCommand(r.OS())
	if err != nil {
		return err
	}

	_, err = r.RunRaw(cmd)

	var terr *nvmetest.TransportError
	if errors.As(err, &terr) && terr.RC == sshDropped {
		log.Debug("connection dropped by reboot")
		return nil
	}

	return err
}

// Button is a momentary power button.
type Button interface {
	Press(d time.Duration) error
}

// ColdBoot holds the power button for hold to force the system off, waits
// for off, then presses it for press to power on again.
func ColdBoot(b Button, hold, off, press time.Duration) error {
	if err := b.Press(hold); err != nil {
		return fmt.Errorf("power off press failed: %w", err)
	}

	time.Sleep(off)

	if err := b.Press(press); err != nil {
		return fmt.Errorf("power on press failed: %w", err)
	}

	return nil
}

// ErrHostTimeout - the host did not reach the expected state in time.
var ErrHostTimeout = errors.New("timed out waiting for host")

func waitFor(r nvmetest.Runner, ip string, up bool, attempts int, interval time.Duration) error {
	for i := 0; i < attempts; i++ {
		if ping.Reachable(r, ip, 1) == up {
			log.WithFields(log.Fields{"ip": ip, "up": up, "attempt": i + 1}).Info("host state reached")
			return nil
		}

		if i+1 < attempts {
			time.Sleep(interval)
		}
	}

	return fmt.Errorf("%w: %s up=%t after %d attempts", ErrHostTimeout, ip, up, attempts)
}

// WaitForHost pings ip from r until it answers, at most attempts times.
func WaitForHost(r nvmetest.Runner, ip string, attempts int, interval time.Duration) error {
	return waitFor(r, ip, true, attempts, interval)
}

// WaitForDown pings ip from r until it stops answering.
func WaitForDown(r nvmetest.Runner, ip string, attempts int, interval time.Duration) error {
	return waitFor(r, ip, false, attempts, interval)
}
