package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"machinerun.io/nvmetest/volume"
)

//nolint:gochecknoglobals
var partitionsCommand = cli.Command{
	Name:      "partitions",
	Usage:     "List the partitions of a disk on the system under test",
	ArgsUsage: "disk (number on Windows, device path on Linux)",
	Action: func(c *cli.Context) error {
		disk := c.Args().First()
		if disk == "" {
			return fmt.Errorf("a disk is required")
		}

		r, err := runner(c)
		if err != nil {
			return err
		}

		parts, err := volume.List(r, disk)
		if err != nil {
			return err
		}

		return emit(c, parts, func() [][]string {
			data := [][]string{{"#", "Name", "Letter", "Size", "Type", "FS", "Mount"}}
			for _, p := range parts {
				data = append(data, []string{strconv.Itoa(p.Number), p.Name, p.Letter,
					fmt.Sprintf("%.0f", p.Size), p.Type, p.FSType, p.MountPoint})
			}

			return data
		})
	},
}

//nolint:gochecknoglobals
var imageCommands = cli.Command{
	Name:  "image",
	Usage: "Partition table commands on local devices and image files",
	Subcommands: []*cli.Command{
		{
			Name:      "read",
			Usage:     "Show the partition table of a device or image",
			ArgsUsage: "path",
			Action:    imageRead,
		},
		{
			Name:      "create",
			Usage:     "Write a GPT disk image for partition table tests",
			ArgsUsage: "path",
			Flags: []cli.Flag{
				&cli.Uint64Flag{Name: "size-mib", Value: 64},
				&cli.UintFlag{Name: "sector-size", Value: 512},
				&cli.StringSliceFlag{
					Name:  "part",
					Usage: "type:start-mib:size-mib[:name], type is efi, basic, linux, lvm, raid or a GUID",
				},
			},
			Action: imageCreate,
		},
	},
}

//nolint:gochecknoglobals
var partTypes = map[string]string{
	"efi":   volume.EFISystem,
	"basic": volume.MSBasicData,
	"linux": volume.LinuxFS,
	"lvm":   volume.LinuxLVM,
	"raid":  volume.LinuxRAIDType,
}

// parsePartArg parses "linux:1:16:root" into a partition of 16MiB at 1MiB.
func parsePartArg(arg string) (volume.ImagePartition, error) {
	const mib = 1024 * 1024

	toks := strings.SplitN(arg, ":", 4)
	if len(toks) < 3 {
		return volume.ImagePartition{}, fmt.Errorf("bad partition %q: want type:start-mib:size-mib[:name]", arg)
	}

	ptype, ok := partTypes[strings.ToLower(toks[0])]
	if !ok {
		ptype = strings.ToUpper(toks[0])
	}

	start, err := strconv.ParseUint(toks[1], 10, 64)
	if err != nil {
		return volume.ImagePartition{}, fmt.Errorf("bad start in %q: %s", arg, err)
	}

	size, err := strconv.ParseUint(toks[2], 10, 64)
	if err != nil || size == 0 {
		return volume.ImagePartition{}, fmt.Errorf("bad size in %q", arg)
	}

	p := volume.ImagePartition{Start: start * mib, Last: (start+size)*mib - 1, Type: ptype}
	if len(toks) == 4 {
		p.Name = toks[3]
	}

	return p, nil
}

func imageCreate(c *cli.Context) error {
	const mib = 1024 * 1024

	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("an image path is required")
	}

	parts := []volume.ImagePartition{}

	for _, arg := range c.StringSlice("part") {
		p, err := parsePartArg(arg)
		if err != nil {
			return err
		}

		parts = append(parts, p)
	}

	if err := volume.CreateImage(path, c.Uint64("size-mib")*mib, c.Uint("sector-size"), parts); err != nil {
		return err
	}

	return imageRead(c)
}

func imageRead(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("a device or image path is required")
	}

	table, err := volume.ReadTable(path)
	if err != nil {
		return err
	}

	return emit(c, table, func() [][]string {
		data := [][]string{{"#", "Start", "Last", "Type", "Name"}}
		for _, p := range table.Partitions {
			data = append(data, []string{strconv.Itoa(int(p.Number)),
				strconv.FormatUint(p.Start, 10), strconv.FormatUint(p.Last, 10),
				volume.TypeName(p.Type), p.Name})
		}

		return data
	})
}
