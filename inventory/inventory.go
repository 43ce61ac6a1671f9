// Package inventory loads the device inventory describing the harness host
// and the system under test, and resolves the TransportContext for the
// machine the harness is running on.
package inventory

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"machinerun.io/nvmetest"
)

// Device is one inventory record: a harness host and the system it drives.
type Device struct {
	Local  Machine `json:"Local"`
	Remote Machine `json:"Remote"`
}

// Machine describes one side of a Device.
type Machine struct {
	OperatingSystem OperatingSystem   `json:"Operating System"`
	Hardware        Hardware          `json:"Hardware"`
	Software        map[string]string `json:"Software,omitempty"`
}

// OperatingSystem holds the OS identity and login of a machine.
type OperatingSystem struct {
	Type     string `json:"Type"`
	Version  string `json:"Version,omitempty"`
	IP       string `json:"IP"`
	Port     int    `json:"Port,omitempty"`
	Account  string `json:"Account,omitempty"`
	Password string `json:"Password,omitempty"`
	Script   Script `json:"Script"`
}

// Script - where the harness scripts live on the machine.
type Script struct {
	Path string `json:"Path"`
}

// OS returns the OS family named by Type.
func (o OperatingSystem) OS() nvmetest.OSType {
	return nvmetest.ParseOSType(o.Type)
}

type Hardware struct {
	CPU            CPU            `json:"CPU"`
	System         System         `json:"System"`
	Network        Network        `json:"Network"`
	NVMeController NVMeController `json:"NVMe Controller"`
}

type CPU struct {
	Model   string `json:"Model"`
	Sockets int    `json:"Sockets,omitempty"`
	Cores   int    `json:"Cores"`
	Threads int    `json:"Threads"`
}

type System struct {
	Manufacturer string `json:"Manufacturer"`
	Model        string `json:"Model"`
	BIOS         string `json:"BIOS,omitempty"`
}

type Network struct {
	Interface string `json:"Interface"`
	MAC       string `json:"MAC,omitempty"`
}

// NVMeController describes the controller under test and what it is
// expected to report.
type NVMeController struct {
	Model     string   `json:"Model"`
	Firmware  string   `json:"Firmware"`
	PCIe      PCIe     `json:"PCIe Configuration"`
	RAIDModes []string `json:"RAID Modes"`
	Features  []string `json:"Features"`
}

// PCIe is the expected PCI configuration space identity, as hex strings
// without the 0x prefix ("1B4B").
type PCIe struct {
	VID  string `json:"VID"`
	DID  string `json:"DID"`
	SVID string `json:"SVID"`
	SDID string `json:"SDID"`
	Rev  string `json:"Rev"`
}

// Load reads the inventory at path.
func Load(path string) ([]Device, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(nvmetest.ErrConfigNotFound, "%s: %s", path, err)
	}

	devices := []Device{}
	if err := json.Unmarshal(content, &devices); err != nil {
		return nil, errors.Wrapf(err, "failed to parse inventory %s", path)
	}

	return devices, nil
}
