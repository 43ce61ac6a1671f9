package main

import (
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"machinerun.io/nvmetest/mnvcli"
)

//nolint:gochecknoglobals
var hbaCommand = cli.Command{
	Name:  "hba",
	Usage: "Show the RAID adapter and check it against the inventory",
	Action: func(c *cli.Context) error {
		r, err := runner(c)
		if err != nil {
			return err
		}

		hba, err := mnvcli.QueryHBA(r)
		if err != nil {
			return err
		}

		if c.String("replay") == "" {
			if cfg, err := resolve(c); err == nil && cfg.Device != nil {
				want := cfg.Device.Remote.Hardware.NVMeController.PCIe
				if !hba.PCIe.Matches(want) {
					return fmt.Errorf("adapter PCIe ids %+v do not match inventory %+v", hba.PCIe, want)
				}

				log.Info("adapter PCIe ids match inventory")
			}
		}

		return emit(c, hba, func() [][]string {
			p := hba.PCIe

			return [][]string{
				{"VID", "DID", "SVID", "SDID", "Rev", "Firmware", "Max VD"},
				{fmt.Sprintf("%04x", p.VID), fmt.Sprintf("%04x", p.DID), fmt.Sprintf("%04x", p.SVID),
					fmt.Sprintf("%04x", p.SDID), p.Rev, hba.Firmware, strconv.Itoa(hba.MaxVD)},
			}
		})
	},
}

//nolint:gochecknoglobals
var vdCommand = cli.Command{
	Name:   "vd",
	Usage:  "RAID virtual disk commands (lists by default)",
	Action: listVDs,
	Subcommands: []*cli.Command{
		{
			Name:   "list",
			Usage:  "List virtual disks",
			Action: listVDs,
		},
		{
			Name:  "create",
			Usage: "Create a virtual disk",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "raid", Value: string(mnvcli.RAID1), Usage: "RAID0, RAID1, RAID10 or JBOD"},
				&cli.StringFlag{Name: "name", Value: "vd0"},
				&cli.IntSliceFlag{Name: "pd", Usage: "physical disk id, repeat for each member", Required: true},
			},
			Action: func(c *cli.Context) error {
				r, err := runner(c)
				if err != nil {
					return err
				}

				mode := mnvcli.RAIDMode(strings.ToUpper(c.String("raid")))

				vds, err := mnvcli.CreateVD(r, mode, c.String("name"), c.IntSlice("pd"))
				if err != nil {
					return err
				}

				return emitVDs(c, vds)
			},
		},
		{
			Name:      "delete",
			Usage:     "Delete a virtual disk",
			ArgsUsage: "id",
			Action: func(c *cli.Context) error {
				id, err := strconv.Atoi(c.Args().First())
				if err != nil {
					return fmt.Errorf("could not convert to integer: %s", err)
				}

				r, err := runner(c)
				if err != nil {
					return err
				}

				return mnvcli.DeleteVD(r, id)
			},
		},
		{
			Name:  "rebuild",
			Usage: "Start a rebuild of a virtual disk onto a physical disk, or show its progress",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "vd", Required: true},
				&cli.IntFlag{Name: "pd", Value: -1, Usage: "start a rebuild onto this disk"},
			},
			Action: rebuild,
		},
	},
}

func rebuild(c *cli.Context) error {
	r, err := runner(c)
	if err != nil {
		return err
	}

	vd := c.Int("vd")

	if pd := c.Int("pd"); pd >= 0 {
		if err := mnvcli.StartRebuild(r, vd, pd); err != nil {
			return err
		}
	}

	pct, running, err := mnvcli.RebuildProgress(r, vd)
	if err != nil {
		return err
	}

	status := map[string]interface{}{"vd": vd, "progress": pct, "running": running}

	return emit(c, status, func() [][]string {
		return [][]string{
			{"VD", "Progress", "Running"},
			{strconv.Itoa(vd), fmt.Sprintf("%.0f%%", pct), strconv.FormatBool(running)},
		}
	})
}

func listVDs(c *cli.Context) error {
	r, err := runner(c)
	if err != nil {
		return err
	}

	vds, err := mnvcli.QueryVDs(r)
	if err != nil {
		return err
	}

	return emitVDs(c, vds)
}

func emitVDs(c *cli.Context, vds []mnvcli.VirtualDisk) error {
	return emit(c, vds, func() [][]string {
		data := [][]string{{"ID", "Name", "RAID", "Status", "Size", "PDs"}}

		for _, vd := range vds {
			pds := make([]string, len(vd.PDs))
			for i, pd := range vd.PDs {
				pds[i] = strconv.Itoa(pd)
			}

			data = append(data, []string{strconv.Itoa(vd.ID), vd.Name, string(vd.RAIDMode),
				vd.Status, fmt.Sprintf("%.0f", vd.SizeBytes), strings.Join(pds, ",")})
		}

		return data
	})
}

//nolint:gochecknoglobals
var pdCommand = cli.Command{
	Name:  "pd",
	Usage: "List physical disks behind the RAID adapter",
	Action: func(c *cli.Context) error {
		r, err := runner(c)
		if err != nil {
			return err
		}

		pds, err := mnvcli.QueryPDs(r)
		if err != nil {
			return err
		}

		return emit(c, pds, func() [][]string {
			data := [][]string{{"ID", "Model", "Serial", "Firmware", "Status", "VD"}}
			for _, pd := range pds {
				data = append(data, []string{strconv.Itoa(pd.ID), pd.Model, pd.Serial,
					pd.Firmware, pd.Status, strconv.Itoa(pd.VDID)})
			}

			return data
		})
	},
}
