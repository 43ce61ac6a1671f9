package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"machinerun.io/nvmetest/perf"
)

//nolint:gochecknoglobals
var perfCommands = cli.Command{
	Name:  "perf",
	Usage: "Run an I/O benchmark on the system under test",
	Subcommands: []*cli.Command{
		{
			Name:      "diskspd",
			Usage:     "Run diskspd (Windows)",
			ArgsUsage: "target",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "size", Value: "1G"},
				&cli.IntFlag{Name: "duration", Value: 30},
				&cli.StringFlag{Name: "block-size", Value: "4K"},
				&cli.IntFlag{Name: "threads", Value: 4},
				&cli.IntFlag{Name: "outstanding", Value: 32},
				&cli.IntFlag{Name: "write", Usage: "write percentage"},
				&cli.BoolFlag{Name: "random"},
			},
			Action: func(c *cli.Context) error {
				return runJob(c, perf.Diskspd{
					Target:       c.Args().First(),
					FileSize:     c.String("size"),
					Duration:     c.Int("duration"),
					BlockSize:    c.String("block-size"),
					Threads:      c.Int("threads"),
					Outstanding:  c.Int("outstanding"),
					WritePercent: c.Int("write"),
					Random:       c.Bool("random"),
					DisableCache: true,
					Latency:      true,
				})
			},
		},
		{
			Name:      "fio",
			Usage:     "Run fio (Linux)",
			ArgsUsage: "filename",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "rw", Value: "randread"},
				&cli.StringFlag{Name: "block-size", Value: "4k"},
				&cli.IntFlag{Name: "iodepth", Value: 32},
				&cli.IntFlag{Name: "numjobs", Value: 4},
				&cli.IntFlag{Name: "runtime", Value: 30},
				&cli.StringFlag{Name: "size", Value: "1G"},
			},
			Action: func(c *cli.Context) error {
				return runJob(c, perf.Fio{
					Name:      "hwcli",
					Filename:  c.Args().First(),
					RW:        c.String("rw"),
					BlockSize: c.String("block-size"),
					IODepth:   c.Int("iodepth"),
					NumJobs:   c.Int("numjobs"),
					Runtime:   c.Int("runtime"),
					Size:      c.String("size"),
					IOEngine:  "libaio",
					Direct:    true,
				})
			},
		},
	},
}

func runJob(c *cli.Context, job perf.Job) error {
	if c.Args().First() == "" {
		return fmt.Errorf("a target is required")
	}

	r, err := runner(c)
	if err != nil {
		return err
	}

	res, err := perf.Run(r, job)
	if err != nil {
		return err
	}

	return emit(c, res, func() [][]string {
		row := func(name string, t perf.Throughput) []string {
			return []string{name, fmt.Sprintf("%.2f", t.BW), fmt.Sprintf("%.2f", t.IOPS),
				fmt.Sprintf("%.3f", t.AvgLatency)}
		}

		return [][]string{
			{"", "MiB/s", "IOPS", "Lat ms"},
			row("read", res.Read),
			row("write", res.Write),
			row("total", res.Total()),
		}
	})
}
