package main

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"machinerun.io/nvmetest"
	"machinerun.io/nvmetest/console"
	"machinerun.io/nvmetest/dispatch"
	"machinerun.io/nvmetest/gpio"
	"machinerun.io/nvmetest/inventory"
	"machinerun.io/nvmetest/power"
)

//nolint:gochecknoglobals
var rebootCommand = cli.Command{
	Name:  "reboot",
	Usage: "Reboot the system under test and wait for it to answer pings",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "cold", Usage: "power cycle with the relay instead of a shutdown command"},
		&cli.StringFlag{Name: "pin-map", Value: "pins.json", Usage: "pin map file in the config dir"},
		&cli.StringFlag{Name: "pin-group", Value: "power_button"},
		&cli.StringFlag{Name: "gpio-root", Value: gpio.DefaultRoot},
		&cli.DurationFlag{Name: "hold", Value: defaultHold, Usage: "power button hold to force off"},
		&cli.DurationFlag{Name: "off", Value: defaultOff, Usage: "time to stay off"},
		&cli.DurationFlag{Name: "press", Value: defaultPress, Usage: "power button press to power on"},
		&cli.StringFlag{Name: "host", Usage: "address to wait for, defaults to the inventory remote ip"},
		&cli.IntFlag{Name: "attempts", Value: 60},
		&cli.DurationFlag{Name: "interval", Value: defaultInterval},
	},
	Action: reboot,
}

// localRunner runs commands on the harness host itself.
func localRunner(c *cli.Context) (nvmetest.Runner, error) {
	if c.String("replay") != "" {
		return runner(c)
	}

	return dispatch.New(nvmetest.TransportContext{Mode: nvmetest.Local},
		nvmetest.ParseOSType(runtime.GOOS)), nil
}

func coldBoot(c *cli.Context) error {
	pins, err := inventory.LoadPinMap(inventory.Path(c.String("config_dir"), c.String("pin-map")))
	if err != nil {
		return err
	}

	pin, err := pins.Pin(c.String("pin-group"))
	if err != nil {
		return err
	}

	relay, err := gpio.Open(c.String("gpio-root"), pin)
	if err != nil {
		return err
	}

	defer relay.Close()

	return power.ColdBoot(relay, c.Duration("hold"), c.Duration("off"), c.Duration("press"))
}

func reboot(c *cli.Context) error {
	host := c.String("host")
	if host == "" && c.String("replay") == "" {
		cfg, err := resolve(c)
		if err != nil {
			return err
		}

		host = cfg.Context.RemoteIP
	}

	if c.Bool("cold") {
		if err := coldBoot(c); err != nil {
			return err
		}
	} else {
		r, err := runner(c)
		if err != nil {
			return err
		}

		if err := power.WarmReboot(r); err != nil {
			return err
		}
	}

	if host == "" {
		log.Warn("no host address to wait for")
		return nil
	}

	local, err := localRunner(c)
	if err != nil {
		return err
	}

	attempts, interval := c.Int("attempts"), c.Duration("interval")

	if err := power.WaitForDown(local, host, attempts, interval); err != nil {
		log.Warnf("host never went down: %s", err)
	}

	if err := power.WaitForHost(local, host, attempts, interval); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%s is up\n", host)

	return nil
}

//nolint:gochecknoglobals
var consoleCommands = cli.Command{
	Name:  "console",
	Usage: "UART console capture sessions",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "List console sessions",
			Action: func(c *cli.Context) error {
				r, err := localRunner(c)
				if err != nil {
					return err
				}

				sessions, err := console.List(r)
				if err != nil {
					return err
				}

				return emit(c, sessions, func() [][]string {
					data := [][]string{{"PID", "Name", "State"}}
					for _, s := range sessions {
						data = append(data, []string{strconv.Itoa(s.PID), s.Name, s.State})
					}

					return data
				})
			},
		},
		{
			Name:      "open",
			Usage:     "Start capturing a serial port",
			ArgsUsage: "port",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "baud", Value: 115200},
				&cli.StringFlag{Name: "log-to", Usage: "capture file, defaults to <port>.log"},
			},
			Action: func(c *cli.Context) error {
				port := c.Args().First()
				if port == "" {
					return fmt.Errorf("a serial port is required")
				}

				logFile := c.String("log-to")
				if logFile == "" {
					logFile = filepath.Base(port) + ".log"
				}

				r, err := localRunner(c)
				if err != nil {
					return err
				}

				return console.Open(r, port, c.Int("baud"), logFile)
			},
		},
		{
			Name:      "close",
			Usage:     "Quit the session capturing a serial port",
			ArgsUsage: "port",
			Action: func(c *cli.Context) error {
				port := c.Args().First()
				if port == "" {
					return fmt.Errorf("a serial port is required")
				}

				r, err := localRunner(c)
				if err != nil {
					return err
				}

				pid, err := console.CloseSession(r, port)
				if err != nil {
					return err
				}

				fmt.Fprintf(c.App.Writer, "%d\n", pid)

				return nil
			},
		},
	},
}
