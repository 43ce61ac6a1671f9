package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/urfave/cli/v2"

	"machinerun.io/nvmetest"
	"machinerun.io/nvmetest/dispatch"
	"machinerun.io/nvmetest/inventory"
	"machinerun.io/nvmetest/mockos"
)

// resolve returns the inventory view for the global flags.
func resolve(c *cli.Context) (*inventory.Config, error) {
	mode, err := nvmetest.ParseMode(c.String("mode"))
	if err != nil {
		return nil, err
	}

	path := inventory.Path(c.String("config_dir"), c.String("config_file"))

	return inventory.Resolve(mode, c.String("if_name"), path)
}

func targetOS(c *cli.Context, cfg *inventory.Config) (nvmetest.OSType, error) {
	if name := c.String("target_os"); name != "" {
		if t := nvmetest.ParseOSType(name); t != nvmetest.UnknownOS {
			return t, nil
		}

		return nvmetest.UnknownOS, fmt.Errorf("%w: target os %q", nvmetest.ErrUnsupported, name)
	}

	if cfg.Context.Mode == nvmetest.Local {
		return nvmetest.ParseOSType(runtime.GOOS), nil
	}

	if cfg.Device == nil {
		return nvmetest.UnknownOS, fmt.Errorf("%w: no inventory record for %s",
			nvmetest.ErrNetworkUnavailable, cfg.LocalIP)
	}

	return cfg.RemoteOS(), nil
}

// runner returns the command runner selected by the global flags: a replay
// of recorded output, or a dispatcher for the resolved inventory record.
func runner(c *cli.Context) (nvmetest.IORunner, error) {
	if layout := c.String("replay"); layout != "" {
		if _, err := os.Stat(layout); err != nil {
			return nil, err
		}

		return mockos.System(layout), nil
	}

	cfg, err := resolve(c)
	if err != nil {
		return nil, err
	}

	sut, err := targetOS(c, cfg)
	if err != nil {
		return nil, err
	}

	return dispatch.New(cfg.Context, sut), nil
}
