package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"machinerun.io/nvmetest/artifact"
)

//nolint:gochecknoglobals
var artifactCommands = cli.Command{
	Name:  "artifact",
	Usage: "Test run artifact commands",
	Subcommands: []*cli.Command{
		{
			Name:      "push",
			Usage:     "Store a run log and its report in MongoDB",
			ArgsUsage: "log-file",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "suite", Required: true, Usage: "collection to insert into"},
				&cli.StringFlag{Name: "report", Usage: "report file, defaults to <log>.report.json"},
				&cli.StringFlag{
					Name:    "mongo-uri",
					Value:   "mongodb://localhost:27017",
					EnvVars: []string{"NVMETEST_MONGO_URI"},
				},
				&cli.StringFlag{Name: "database", Value: "nvmetest"},
			},
			Action: artifactPush,
		},
	},
}

func artifactPush(c *cli.Context) error {
	logPath := c.Args().First()
	if logPath == "" {
		return fmt.Errorf("a log file is required")
	}

	rec, err := artifact.NewRecord(c.String("suite"), logPath, c.String("report"))
	if err != nil {
		return err
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := artifact.Connect(ctx, c.String("mongo-uri"), c.String("database"))
	if err != nil {
		return err
	}

	defer store.Close(context.Background())

	id, err := store.Insert(ctx, rec)
	if err != nil {
		return err
	}

	return emit(c, map[string]string{"run_id": rec.RunID, "id": id}, func() [][]string {
		return [][]string{{"Run", "Document"}, {rec.RunID, id}}
	})
}
