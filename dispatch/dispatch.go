// Package dispatch runs textual commands on a system under test, either as a
// local subprocess or wrapped in an ssh invocation, and normalizes their
// output into a nvmetest.LineMap.
//
// Each call composes "<cd dir> <sep> <command>" for the target OS, spawns one
// process, waits for it and returns. Nothing is cached between calls and
// there is no retry or timeout.
package dispatch

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"machinerun.io/nvmetest"
)

// errEmptyCommand - RunLines/RunRaw/RunIO called with a blank command.
var errEmptyCommand = errors.New("empty command")

// Dispatcher runs commands for one TransportContext and target OS.
type Dispatcher struct {
	ctx       nvmetest.TransportContext
	transport Transport
	spawn     spawnFunc
	dial      dialFunc
	pty       PTYConfig
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithPTY sets the pseudo-terminal requested by RunIO.
func WithPTY(p PTYConfig) Option {
	return func(d *Dispatcher) { d.pty = p }
}

// New returns a Dispatcher for ctx whose commands target os. The mode is
// checked on every call, not here, so a bad mode fails before each spawn.
func New(ctx nvmetest.TransportContext, os nvmetest.OSType, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		ctx:       ctx,
		transport: ForOS(os),
		spawn:     runCommandWithOutputErrorRc,
		dial:      dialSSH,
		pty:       DefaultPTYConfig(),
	}

	for _, o := range opts {
		o(d)
	}

	return d
}

// OS returns the target OS family.
func (d *Dispatcher) OS() nvmetest.OSType {
	return d.transport.OS()
}

// Context returns the TransportContext the dispatcher was built with.
func (d *Dispatcher) Context() nvmetest.TransportContext {
	return d.ctx
}

func (d *Dispatcher) separator() string {
	if d.ctx.Separator != "" {
		return d.ctx.Separator
	}

	return d.transport.Separator()
}

// join prefixes cmd with a change into dir.
func (d *Dispatcher) join(dir, cmd string) string {
	if dir == "" {
		return cmd
	}

	return d.transport.ChangeDir(dir) + " " + d.separator() + " " + cmd
}

// Compose returns the shell command string that will be run for cmd. In local
// mode this is the directory change joined with cmd. In remote mode it is an
// ssh invocation of account@remote_ip, with host key checking disabled, whose
// remote command is the directory change joined with cmd.
func (d *Dispatcher) Compose(cmd string) (string, error) {
	if strings.TrimSpace(cmd) == "" {
		return "", errEmptyCommand
	}

	switch d.ctx.Mode {
	case nvmetest.Local:
		return d.join(d.ctx.LocalDir, cmd), nil
	case nvmetest.Remote:
		inner := d.join(d.ctx.RemoteDir, cmd)

		parts := []string{}
		if d.ctx.Password != "" {
			parts = append(parts, "sshpass", "-p", shellQuote(d.ctx.Password))
		}

		parts = append(parts, "ssh",
			"-o", "StrictHostKeyChecking=no",
			"-o", "UserKnownHostsFile=/dev/null",
			"-o", "LogLevel=ERROR",
			"-p", strconv.Itoa(d.ctx.SSHPort()),
			shellQuote(d.ctx.Target()),
			shellQuote(inner))

		return strings.Join(parts, " "), nil
	}

	return "", fmt.Errorf("%w: %q", nvmetest.ErrInvalidMode, d.ctx.Mode)
}

// argv returns the process arguments for cmd. Remote invocations are always
// started by the harness host's POSIX shell.
func (d *Dispatcher) argv(cmd string) ([]string, error) {
	composed, err := d.Compose(cmd)
	if err != nil {
		return nil, err
	}

	shell := d.transport.Shell()
	if d.ctx.Mode == nvmetest.Remote {
		shell = linuxTransport{}.Shell()
	}

	return append(append([]string{}, shell...), composed), nil
}

func (d *Dispatcher) run(cmd string) ([]byte, error) {
	argv, err := d.argv(cmd)
	if err != nil {
		log.WithField("cmd", cmd).Errorf("cannot dispatch: %s", err)
		return nil, err
	}

	fields := log.Fields{"cmd": cmd, "mode": d.ctx.Mode, "os": d.transport.OS()}
	log.WithFields(fields).Debug("dispatching")

	stdout, stderr, rc, err := d.spawn(argv)
	if err != nil {
		terr := &nvmetest.TransportError{Cmd: cmd, RC: rc, Stderr: string(stderr), Err: err}
		log.WithFields(fields).Error(terr)

		return nil, terr
	}

	if len(stderr) != 0 {
		log.WithFields(fields).Debugf("stderr: %s", bytes.TrimSpace(stderr))
	}

	if (rc == sshFailureRC && d.ctx.Mode == nvmetest.Remote) || nvmetest.CommandNotFound(rc) {
		terr := &nvmetest.TransportError{Cmd: cmd, RC: rc, Stderr: string(stderr)}
		log.WithFields(fields).Error(terr)

		return nil, terr
	}

	if rc != 0 {
		log.WithFields(fields).Warnf("command exited %d", rc)
	}

	return bytes.ToValidUTF8(stdout, []byte("\uFFFD")), nil
}

// RunLines runs cmd and returns its normalized output.
func (d *Dispatcher) RunLines(cmd string) (nvmetest.LineMap, error) {
	out, err := d.run(cmd)
	if err != nil {
		return nvmetest.LineMap{}, err
	}

	return nvmetest.NormalizeOutput(out), nil
}

// RunRaw runs cmd and returns its output as text with alignment preserved.
func (d *Dispatcher) RunRaw(cmd string) (string, error) {
	out, err := d.run(cmd)
	if err != nil {
		return "", err
	}

	return string(out), nil
}
