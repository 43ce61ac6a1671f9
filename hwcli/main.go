package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"machinerun.io/nvmetest/logging"
)

var version string

func printTextTable(w io.Writer, data [][]string) {
	if len(data) == 0 {
		return
	}

	var lengths = make([]int, len(data[0]))

	for _, line := range data {
		for i, field := range line {
			if len(field) > lengths[i] {
				lengths[i] = len(field)
			}
		}
	}

	fmts := make([]string, len(lengths))

	for i, l := range lengths {
		fmts[i] = fmt.Sprintf("%%-%ds", l)
	}

	pfmt := strings.Join(fmts, " | ") + " |\n"

	for _, line := range data {
		s := make([]interface{}, len(line))
		for i, v := range line {
			s[i] = v
		}

		fmt.Fprintf(w, pfmt, s...)
	}
}

// emit writes v as json or yaml when asked to, otherwise the table built by
// rows.
func emit(c *cli.Context, v interface{}, rows func() [][]string) error {
	w := c.App.Writer

	switch {
	case c.Bool("json"):
		content, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%s\n", string(content))
	case c.Bool("yaml"):
		content, err := yaml.Marshal(v)
		if err != nil {
			return err
		}

		fmt.Fprint(w, string(content))
	default:
		printTextTable(w, rows())
	}

	return nil
}

//nolint:gochecknoglobals
var globalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "mode",
		Value:   "remote",
		Usage:   "where commands run: local or remote",
		EnvVars: []string{"NVMETEST_MODE"},
	},
	&cli.StringFlag{
		Name:  "if_name",
		Value: "eth0",
		Usage: "interface whose address selects the inventory record",
	},
	&cli.StringFlag{
		Name:  "config_file",
		Value: "app_map.json",
		Usage: "inventory file name",
	},
	&cli.StringFlag{
		Name:    "config_dir",
		Value:   "config",
		Usage:   "directory holding the inventory and pin map",
		EnvVars: []string{"NVMETEST_CONFIG_DIR"},
	},
	&cli.StringFlag{
		Name:  "target_os",
		Usage: "windows or linux, defaults to the inventory's remote OS",
	},
	&cli.StringFlag{
		Name:  "private_token",
		Usage: "issue tracker token (accepted, not used)",
	},
	&cli.StringFlag{
		Name:  "replay",
		Usage: "answer commands from a recorded JSON layout instead of running them",
	},
	&cli.StringFlag{Name: "log-level", Value: "info"},
	&cli.StringFlag{Name: "log-format", Value: "text"},
	&cli.StringFlag{Name: "log-file", Usage: "rotate logs into this file instead of stderr"},
	&cli.BoolFlag{Name: "json", Usage: "print results as json"},
	&cli.BoolFlag{Name: "yaml", Usage: "print results as yaml"},
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "hwcli",
		Version: version,
		Usage:   "Run NVMe validation harness operations against a system under test",
		Flags:   globalFlags,
		Before: func(c *cli.Context) error {
			return logging.Setup(logging.Config{
				Level:      c.String("log-level"),
				Format:     c.String("log-format"),
				File:       c.String("log-file"),
				MaxSizeMB:  50,
				MaxBackups: 5,
				MaxAgeDays: 30,
			})
		},
		Commands: []*cli.Command{
			&runCommand,
			&rawCommand,
			&ioCommand,
			&inventoryCommand,
			&pingCommand,
			&smartCommand,
			&nvmeListCommand,
			&hbaCommand,
			&vdCommand,
			&pdCommand,
			&perfCommands,
			&cpuCommand,
			&macCommand,
			&partitionsCommand,
			&imageCommands,
			&eventsCommands,
			&rebootCommand,
			&consoleCommands,
			&artifactCommands,
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

const (
	defaultHold     = 6 * time.Second
	defaultOff      = 5 * time.Second
	defaultPress    = 500 * time.Millisecond
	defaultInterval = 5 * time.Second
)
