package nvmetest

import (
	"fmt"
	"strings"
)

// Mode is the execution mode of the harness: commands either run on the
// machine hosting the harness or on the remote system under test.
type Mode string

const (
	// Local - run commands on this machine.
	Local Mode = "local"

	// Remote - run commands on the system under test over ssh.
	Remote Mode = "remote"
)

// ParseMode converts s into a Mode. Anything other than "local" or "remote"
// returns ErrInvalidMode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Local, Remote:
		return m, nil
	}

	return Mode(s), fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// OSType enumerates the operating system families of a system under test.
type OSType int

const (
	// UnknownOS - the OS family could not be determined.
	UnknownOS OSType = iota

	// Windows - Microsoft Windows (cmd.exe / PowerShell tooling).
	Windows

	// Linux - Linux (POSIX shell tooling).
	Linux
)

func (t OSType) String() string {
	switch t {
	case Windows:
		return "windows"
	case Linux:
		return "linux"
	}

	return "unknown"
}

// ParseOSType maps free-form names found in the inventory ("Windows 10",
// "Ubuntu 22.04", "linux") to an OSType.
func ParseOSType(s string) OSType {
	l := strings.ToLower(s)

	switch {
	case strings.Contains(l, "windows"):
		return Windows
	case strings.Contains(l, "linux"), strings.Contains(l, "ubuntu"),
		strings.Contains(l, "centos"), strings.Contains(l, "rhel"),
		strings.Contains(l, "debian"), strings.Contains(l, "fedora"):
		return Linux
	}

	return UnknownOS
}

// MarshalText lets OSType render as its name in json and yaml output.
func (t OSType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// TransportContext holds the resolved connection parameters used to run
// commands. It is built once per session and treated as read-only.
type TransportContext struct {
	Mode      Mode
	Account   string
	Password  string
	LocalDir  string
	RemoteDir string
	RemoteIP  string
	// Port of the remote ssh server. Zero means the default (22).
	Port int
	// Separator overrides the directory-change/command joiner chosen by the
	// target OS transport when non-empty.
	Separator string
}

// Target returns the "account@host" ssh destination.
func (tc TransportContext) Target() string {
	return tc.Account + "@" + tc.RemoteIP
}

// SSHPort returns the remote ssh port, defaulting to 22.
func (tc TransportContext) SSHPort() int {
	if tc.Port == 0 {
		return 22
	}

	return tc.Port
}

// Runner runs textual commands against a system under test.
type Runner interface {
	// OS returns the operating system family commands are executed on.
	OS() OSType

	// RunLines runs cmd and returns its normalized standard output.
	RunLines(cmd string) (LineMap, error)

	// RunRaw runs cmd and returns its standard output unmodified.
	RunRaw(cmd string) (string, error)
}

// IORunner is a Runner that can also run long running I/O tools on the
// remote system in a pseudo-terminal, returning raw output and exit status.
type IORunner interface {
	Runner

	RunIO(cmd string) (string, int, error)
}
