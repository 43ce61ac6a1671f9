package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"machinerun.io/nvmetest/nvme"
	"machinerun.io/nvmetest/ping"
	"machinerun.io/nvmetest/sysinfo"
)

//nolint:gochecknoglobals
var pingCommand = cli.Command{
	Name:      "ping",
	Usage:     "Ping a host from the system under test",
	ArgsUsage: "ip",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "count", Value: 4},
	},
	Action: func(c *cli.Context) error {
		ip := c.Args().First()
		if ip == "" {
			return fmt.Errorf("an ip address is required")
		}

		r, err := runner(c)
		if err != nil {
			return err
		}

		s, err := ping.Query(r, ip, c.Int("count"))
		if err != nil {
			return err
		}

		return emit(c, s, func() [][]string {
			return [][]string{
				{"Sent", "Received", "Lost", "Loss%", "Min", "Avg", "Max"},
				{strconv.Itoa(s.Sent), strconv.Itoa(s.Received), strconv.Itoa(s.Lost),
					fmt.Sprintf("%.0f", s.LossPercent), fmt.Sprintf("%.1f", s.Minimum),
					fmt.Sprintf("%.1f", s.Average), fmt.Sprintf("%.1f", s.Maximum)},
			}
		})
	},
}

//nolint:gochecknoglobals
var smartCommand = cli.Command{
	Name:      "smart",
	Usage:     "Show the SMART log of an NVMe device",
	ArgsUsage: "device",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "baseline",
			Usage: "json smart log to compare against, ignoring counters that move on their own",
		},
	},
	Action: smartLog,
}

func smartLog(c *cli.Context) error {
	dev := c.Args().First()
	if dev == "" {
		return fmt.Errorf("a device is required")
	}

	r, err := runner(c)
	if err != nil {
		return err
	}

	s, err := nvme.Smart(r, dev)
	if err != nil {
		return err
	}

	if path := c.String("baseline"); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		base := nvme.SmartLog{}
		if err := json.Unmarshal(content, &base); err != nil {
			return errors.Wrapf(err, "failed to parse baseline %s", path)
		}

		if !s.IsEqual(base) {
			return fmt.Errorf("smart log of %s changed (-baseline +now):\n%s", dev, base.Diff(s))
		}
	}

	return emit(c, s, func() [][]string {
		return [][]string{
			{"Field", "Value"},
			{"critical_warning", strconv.Itoa(s.CriticalWarning)},
			{"temperature", strconv.Itoa(s.Temperature)},
			{"available_spare", strconv.Itoa(s.AvailableSpare)},
			{"percentage_used", strconv.Itoa(s.PercentageUsed)},
			{"power_cycles", strconv.FormatInt(s.PowerCycles, 10)},
			{"power_on_hours", strconv.FormatInt(s.PowerOnHours, 10)},
			{"unsafe_shutdowns", strconv.FormatInt(s.UnsafeShutdowns, 10)},
			{"media_errors", strconv.FormatInt(s.MediaErrors, 10)},
			{"healthy", strconv.FormatBool(s.Healthy())},
		}
	})
}

//nolint:gochecknoglobals
var nvmeListCommand = cli.Command{
	Name:  "nvme-list",
	Usage: "List NVMe namespaces",
	Action: func(c *cli.Context) error {
		r, err := runner(c)
		if err != nil {
			return err
		}

		devs, err := nvme.List(r)
		if err != nil {
			return err
		}

		return emit(c, devs, func() [][]string {
			data := [][]string{{"Node", "SN", "Model", "NS", "Size", "FW"}}
			for _, d := range devs {
				data = append(data, []string{d.Node, d.SerialNumber, d.Model,
					strconv.Itoa(d.Namespace), fmt.Sprintf("%.0f", d.TotalBytes), d.Firmware})
			}

			return data
		})
	},
}

//nolint:gochecknoglobals
var cpuCommand = cli.Command{
	Name:  "cpu",
	Usage: "Show CPU topology and hyperthreading state",
	Action: func(c *cli.Context) error {
		r, err := runner(c)
		if err != nil {
			return err
		}

		cpu, err := sysinfo.CachingProber(r).CPU()
		if err != nil {
			return err
		}

		return emit(c, cpu, func() [][]string {
			return [][]string{
				{"Sockets", "Cores", "Logical", "Threads/Core", "HT"},
				{strconv.Itoa(cpu.Sockets), strconv.Itoa(cpu.Cores), strconv.Itoa(cpu.Logical),
					strconv.Itoa(cpu.ThreadsPerCore), strconv.FormatBool(cpu.Hyperthreading())},
			}
		})
	},
}

//nolint:gochecknoglobals
var macCommand = cli.Command{
	Name:      "mac",
	Usage:     "Show the MAC address of an interface on the system under test",
	ArgsUsage: "interface",
	Action: func(c *cli.Context) error {
		ifName := c.Args().First()
		if ifName == "" {
			return fmt.Errorf("an interface name is required")
		}

		r, err := runner(c)
		if err != nil {
			return err
		}

		mac, ok := sysinfo.MAC(r, ifName)
		if !ok {
			return fmt.Errorf("no MAC address found for %s", ifName)
		}

		return emit(c, map[string]string{"interface": ifName, "mac": mac}, func() [][]string {
			return [][]string{{"Interface", "MAC"}, {ifName, mac}}
		})
	},
}
