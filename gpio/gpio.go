// Package gpio drives a relay wired to a GPIO pin of the harness host
// through the sysfs GPIO interface. The relay closes the power button of the
// system under test.
package gpio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultRoot is the sysfs GPIO class directory.
const DefaultRoot = "/sys/class/gpio"

// ErrClosed - the relay was used after Close.
var ErrClosed = errors.New("gpio relay is closed")

// exportWait bounds how long Open waits for udev to create the pin
// directory after export.
var exportWait = 2 * time.Second

// Relay is an exported output pin. It is not safe for concurrent use.
type Relay struct {
	root   string
	pin    int
	closed bool
}

func (r *Relay) pinPath(name string) string {
	return filepath.Join(r.root, fmt.Sprintf("gpio%d", r.pin), name)
}

func writeFile(path, value string) error {
	return os.WriteFile(path, []byte(value), 0644) //nolint:gosec
}

// Open exports pin under root (DefaultRoot when empty) and makes it an
// output driven low. A pin that is already exported is reused.
func Open(root string, pin int) (*Relay, error) {
	if root == "" {
		root = DefaultRoot
	}

	r := &Relay{root: root, pin: pin}
	direction := r.pinPath("direction")

	if _, err := os.Stat(direction); err != nil {
		if err := writeFile(filepath.Join(root, "export"), strconv.Itoa(pin)); err != nil {
			return nil, fmt.Errorf("failed to export gpio %d: %s", pin, err)
		}

		deadline := time.Now().Add(exportWait)
		for {
			if _, err := os.Stat(direction); err == nil {
				break
			}

			if time.Now().After(deadline) {
				return nil, fmt.Errorf("gpio %d did not appear under %s", pin, root)
			}

			time.Sleep(50 * time.Millisecond) //nolint:gomnd
		}
	}

	// "low" sets the direction and the initial value at once.
	if err := writeFile(direction, "low"); err != nil {
		return nil, fmt.Errorf("failed to set gpio %d direction: %s", pin, err)
	}

	log.WithField("pin", pin).Debug("gpio relay opened")

	return r, nil
}

// Pin returns the board pin number.
func (r *Relay) Pin() int {
	return r.pin
}

// Set drives the relay.
func (r *Relay) Set(on bool) error {
	if r.closed {
		return ErrClosed
	}

	v := "0"
	if on {
		v = "1"
	}

	return writeFile(r.pinPath("value"), v)
}

// Press closes the relay for d, like holding a button down.
func (r *Relay) Press(d time.Duration) error {
	if err := r.Set(true); err != nil {
		return err
	}

	time.Sleep(d)

	return r.Set(false)
}

// Close releases the relay and unexports the pin.
func (r *Relay) Close() error {
	if r.closed {
		return nil
	}

	r.closed = true

	if err := writeFile(filepath.Join(r.root, "unexport"), strconv.Itoa(r.pin)); err != nil {
		return fmt.Errorf("failed to unexport gpio %d: %s", r.pin, err)
	}

	return nil
}
