package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"machinerun.io/nvmetest"
)

//nolint:gochecknoglobals
var runCommand = cli.Command{
	Name:      "run",
	Usage:     "Run a command and show its normalized output lines",
	ArgsUsage: "command...",
	Action:    runLines,
}

//nolint:gochecknoglobals
var rawCommand = cli.Command{
	Name:      "raw",
	Usage:     "Run a command and print its output unmodified",
	ArgsUsage: "command...",
	Action:    runRaw,
}

//nolint:gochecknoglobals
var ioCommand = cli.Command{
	Name:      "io",
	Usage:     "Run a long command in an ssh pty session and print its report",
	ArgsUsage: "command...",
	Action:    runIO,
}

func commandArg(c *cli.Context) (string, error) {
	cmd := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(cmd) == "" {
		return "", fmt.Errorf("a command is required")
	}

	return cmd, nil
}

func runLines(c *cli.Context) error {
	cmd, err := commandArg(c)
	if err != nil {
		return err
	}

	r, err := runner(c)
	if err != nil {
		return err
	}

	lm, err := r.RunLines(cmd)
	if err != nil {
		return err
	}

	return emit(c, lm.Map(), func() [][]string {
		data := [][]string{{"Index", "Line"}}
		for i, l := range lm.Lines() {
			data = append(data, []string{strconv.Itoa(i), l})
		}

		return data
	})
}

func runRaw(c *cli.Context) error {
	cmd, err := commandArg(c)
	if err != nil {
		return err
	}

	r, err := runner(c)
	if err != nil {
		return err
	}

	out, err := r.RunRaw(cmd)
	if err != nil {
		return err
	}

	fmt.Fprint(c.App.Writer, out)

	return nil
}

func runIO(c *cli.Context) error {
	cmd, err := commandArg(c)
	if err != nil {
		return err
	}

	r, err := runner(c)
	if err != nil {
		return err
	}

	out, rc, err := r.RunIO(cmd)
	if err != nil {
		return err
	}

	fmt.Fprint(c.App.Writer, out)

	if rc != 0 {
		return &nvmetest.TransportError{Cmd: cmd, RC: rc}
	}

	return nil
}
