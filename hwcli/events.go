package main

import (
	"strconv"

	"github.com/urfave/cli/v2"

	"machinerun.io/nvmetest/eventlog"
)

//nolint:gochecknoglobals
var eventsCommands = cli.Command{
	Name:  "events",
	Usage: "Read or clear the system event log",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "log", Value: "System", Usage: "event log name (Windows) or syslog identifier (Linux)"},
	},
	Subcommands: []*cli.Command{
		{
			Name:  "get",
			Usage: "Show the newest entries",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "newest", Value: 20},
				&cli.StringFlag{Name: "source"},
				&cli.StringFlag{Name: "level"},
			},
			Action: eventsGet,
		},
		{
			Name:  "clear",
			Usage: "Clear the log",
			Action: func(c *cli.Context) error {
				r, err := runner(c)
				if err != nil {
					return err
				}

				return eventlog.Clear(r, c.String("log"))
			},
		},
	},
}

func eventsGet(c *cli.Context) error {
	r, err := runner(c)
	if err != nil {
		return err
	}

	entries, err := eventlog.Get(r, c.String("log"), c.Int("newest"))
	if err != nil {
		return err
	}

	entries = eventlog.Filter(entries, c.String("source"), c.String("level"))

	return emit(c, entries, func() [][]string {
		data := [][]string{{"Time", "Level", "Source", "ID", "Message"}}
		for _, e := range entries {
			data = append(data, []string{e.TimeText, e.Level, e.Source, strconv.Itoa(e.ID), e.Message})
		}

		return data
	})
}
