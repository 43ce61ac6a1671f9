package main

import (
	"github.com/urfave/cli/v2"

	"machinerun.io/nvmetest/inventory"
)

//nolint:gochecknoglobals
var inventoryCommand = cli.Command{
	Name:   "inventory",
	Usage:  "Show the inventory record and connection resolved for this host",
	Action: showInventory,
}

type resolved struct {
	Mode      string            `json:"mode" yaml:"mode"`
	LocalIP   string            `json:"local_ip" yaml:"local_ip"`
	LocalDir  string            `json:"local_dir" yaml:"local_dir"`
	RemoteIP  string            `json:"remote_ip,omitempty" yaml:"remote_ip,omitempty"`
	Port      int               `json:"port,omitempty" yaml:"port,omitempty"`
	Account   string            `json:"account,omitempty" yaml:"account,omitempty"`
	RemoteDir string            `json:"remote_dir,omitempty" yaml:"remote_dir,omitempty"`
	Device    *inventory.Device `json:"device,omitempty" yaml:"device,omitempty"`
}

func showInventory(c *cli.Context) error {
	cfg, err := resolve(c)
	if err != nil {
		return err
	}

	tc := cfg.Context
	res := resolved{
		Mode:      string(tc.Mode),
		LocalIP:   cfg.LocalIP,
		LocalDir:  tc.LocalDir,
		RemoteIP:  tc.RemoteIP,
		Port:      tc.Port,
		Account:   tc.Account,
		RemoteDir: tc.RemoteDir,
	}

	if cfg.Device != nil {
		// a copy, so the password can be masked
		d := *cfg.Device
		d.Local.OperatingSystem.Password = mask(d.Local.OperatingSystem.Password)
		d.Remote.OperatingSystem.Password = mask(d.Remote.OperatingSystem.Password)
		res.Device = &d
	}

	return emit(c, res, func() [][]string {
		data := [][]string{
			{"Field", "Value"},
			{"mode", res.Mode},
			{"local ip", res.LocalIP},
			{"local dir", res.LocalDir},
		}

		if cfg.Device == nil {
			return data
		}

		nc := cfg.Device.Remote.Hardware.NVMeController

		return append(data,
			[]string{"remote", tc.Target()},
			[]string{"remote os", cfg.RemoteOS().String()},
			[]string{"remote dir", res.RemoteDir},
			[]string{"controller", nc.Model},
			[]string{"firmware", nc.Firmware})
	})
}

func mask(s string) string {
	if s == "" {
		return ""
	}

	return "****"
}
