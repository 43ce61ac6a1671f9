// Package mockos provides a Runner that replays canned tool output instead
// of running commands, for tests and offline replay.
package mockos

import (
	"encoding/json"
	"os"
	"strings"

	"machinerun.io/nvmetest"
)

// Reply is the canned result of one command.
type Reply struct {
	Cmd    string   `json:"cmd"`
	Output string   `json:"output,omitempty"`
	Lines  []string `json:"lines,omitempty"`
	RC     int      `json:"rc,omitempty"`
}

func (r Reply) text() string {
	if len(r.Lines) != 0 {
		return strings.Join(r.Lines, "\n") + "\n"
	}

	return r.Output
}

type model struct {
	OS      string  `json:"os"`
	Replies []Reply `json:"commands"`
}

// System returns a Runner replaying the replies described by the JSON file
// layout. It panics if the file cannot be read.
func System(layout string) *Runner {
	file, err := os.ReadFile(layout)
	if err != nil {
		panic(err)
	}

	m := model{}

	if err := json.Unmarshal(file, &m); err != nil {
		panic(err)
	}

	return New(nvmetest.ParseOSType(m.OS), m.Replies...)
}

// New returns a Runner for os answering with replies.
func New(os nvmetest.OSType, replies ...Reply) *Runner {
	return &Runner{os: os, replies: replies}
}

// Runner is a fake nvmetest.IORunner. Commands are answered by the reply
// with the same command text, or failing that, the longest reply command
// that prefixes it. Every command run is recorded in Calls. As with the
// dispatcher, a reply whose RC means the command could not be run fails
// RunLines and RunRaw with a TransportError.
type Runner struct {
	os      nvmetest.OSType
	replies []Reply
	Calls   []string
}

// Add registers another reply.
func (r *Runner) Add(cmd, output string) *Runner {
	r.replies = append(r.replies, Reply{Cmd: cmd, Output: output})
	return r
}

func (r *Runner) OS() nvmetest.OSType {
	return r.os
}

func (r *Runner) lookup(cmd string) (Reply, error) {
	r.Calls = append(r.Calls, cmd)

	cmd = strings.TrimSpace(cmd)
	best := -1

	for i, rep := range r.replies {
		if rep.Cmd == cmd {
			return rep, nil
		}

		if strings.HasPrefix(cmd, rep.Cmd) && (best < 0 || len(rep.Cmd) > len(r.replies[best].Cmd)) {
			best = i
		}
	}

	if best < 0 {
		return Reply{}, &nvmetest.TransportError{Cmd: cmd, RC: 127, Stderr: "no canned reply"}
	}

	return r.replies[best], nil
}

// result is the reply to cmd as RunLines and RunRaw see it.
func (r *Runner) result(cmd string) (Reply, error) {
	rep, err := r.lookup(cmd)
	if err != nil {
		return Reply{}, err
	}

	if nvmetest.CommandNotFound(rep.RC) {
		return Reply{}, &nvmetest.TransportError{Cmd: cmd, RC: rep.RC, Stderr: rep.text()}
	}

	return rep, nil
}

func (r *Runner) RunLines(cmd string) (nvmetest.LineMap, error) {
	rep, err := r.result(cmd)
	if err != nil {
		return nvmetest.LineMap{}, err
	}

	return nvmetest.NormalizeOutput([]byte(rep.text())), nil
}

func (r *Runner) RunRaw(cmd string) (string, error) {
	rep, err := r.result(cmd)
	if err != nil {
		return "", err
	}

	return rep.text(), nil
}

func (r *Runner) RunIO(cmd string) (string, int, error) {
	rep, err := r.lookup(cmd)
	if err != nil {
		return "", -1, err
	}

	return rep.text(), rep.RC, nil
}
