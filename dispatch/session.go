package dispatch

import (
	"errors"
	"net"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"machinerun.io/nvmetest"
)

// PTYConfig describes the pseudo-terminal requested for RunIO.
type PTYConfig struct {
	Term    string
	Columns int
	Rows    int
}

// DefaultPTYConfig is wide enough that diskspd and fio do not wrap their
// result tables.
func DefaultPTYConfig() PTYConfig {
	return PTYConfig{Term: "xterm", Columns: 250, Rows: 50}
}

// session is the subset of *ssh.Session used by RunIO.
type session interface {
	RequestPty(term string, h, w int, modes ssh.TerminalModes) error
	Output(cmd string) ([]byte, error)
	Close() error
}

// sessionClient is the subset of *ssh.Client used by RunIO.
type sessionClient interface {
	NewSession() (session, error)
	Close() error
}

type dialFunc func(addr string, cfg *ssh.ClientConfig) (sessionClient, error)

// sshClientWrapper adapts *ssh.Client to sessionClient.
type sshClientWrapper struct {
	c *ssh.Client
}

func (w sshClientWrapper) NewSession() (session, error) {
	s, err := w.c.NewSession()
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (w sshClientWrapper) Close() error {
	return w.c.Close()
}

func dialSSH(addr string, cfg *ssh.ClientConfig) (sessionClient, error) {
	c, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, err
	}

	return sshClientWrapper{c}, nil
}

// RunIO runs cmd on the remote system in a pseudo-terminal and returns the
// raw output and the command's exit status. It is meant for benchmarking
// tools whose multi-section reports are scanned as a whole. A fresh
// connection is opened and closed for every call. RunIO requires remote mode.
func (d *Dispatcher) RunIO(cmd string) (string, int, error) {
	if d.ctx.Mode != nvmetest.Remote {
		if _, err := nvmetest.ParseMode(string(d.ctx.Mode)); err != nil {
			return "", -1, err
		}

		return "", -1, nvmetest.ErrUnsupported
	}

	if strings.TrimSpace(cmd) == "" {
		return "", -1, errEmptyCommand
	}

	fields := log.Fields{"cmd": cmd, "host": d.ctx.RemoteIP}

	cfg := &ssh.ClientConfig{
		User:            d.ctx.Account,
		Auth:            []ssh.AuthMethod{ssh.Password(d.ctx.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
	}

	addr := net.JoinHostPort(d.ctx.RemoteIP, strconv.Itoa(d.ctx.SSHPort()))

	client, err := d.dial(addr, cfg)
	if err != nil {
		log.WithFields(fields).Errorf("ssh dial failed: %s", err)
		return "", -1, &nvmetest.TransportError{Cmd: cmd, RC: -1, Err: err}
	}
	defer client.Close()

	sess, err := client.NewSession()
	if err != nil {
		log.WithFields(fields).Errorf("ssh session failed: %s", err)
		return "", -1, &nvmetest.TransportError{Cmd: cmd, RC: -1, Err: err}
	}
	defer sess.Close()

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}

	if err := sess.RequestPty(d.pty.Term, d.pty.Rows, d.pty.Columns, modes); err != nil {
		log.WithFields(fields).Errorf("pty request failed: %s", err)
		return "", -1, &nvmetest.TransportError{Cmd: cmd, RC: -1, Err: err}
	}

	log.WithFields(fields).Debug("running io command")

	out, err := sess.Output(d.join(d.ctx.RemoteDir, cmd))
	if err == nil {
		return string(out), 0, nil
	}

	var ee *ssh.ExitError
	if errors.As(err, &ee) {
		log.WithFields(fields).Warnf("io command exited %d", ee.ExitStatus())
		return string(out), ee.ExitStatus(), nil
	}

	log.WithFields(fields).Errorf("io command failed: %s", err)

	return string(out), -1, &nvmetest.TransportError{Cmd: cmd, RC: -1, Err: err}
}
