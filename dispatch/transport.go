package dispatch

import (
	"strings"

	"machinerun.io/nvmetest"
)

// Transport captures how commands are composed for one operating system
// family: how to change directory, how to join that with the command and
// which shell runs the result when executed locally.
type Transport interface {
	// OS returns the OS family this transport composes commands for.
	OS() nvmetest.OSType

	// Separator joins the directory change and the user command.
	Separator() string

	// ChangeDir returns the command that changes into dir.
	ChangeDir(dir string) string

	// Shell returns the argv prefix that runs a command string locally.
	Shell() []string
}

// ForOS returns the Transport for the given OS family. Unknown families get
// the Linux transport since the harness host itself is a POSIX system.
func ForOS(os nvmetest.OSType) Transport {
	if os == nvmetest.Windows {
		return windowsTransport{}
	}

	return linuxTransport{}
}

type linuxTransport struct{}

func (linuxTransport) OS() nvmetest.OSType { return nvmetest.Linux }

// commands run after the cd even if it fails, matching an interactive shell.
func (linuxTransport) Separator() string { return ";" }

func (linuxTransport) ChangeDir(dir string) string {
	return "cd " + shellQuote(dir)
}

func (linuxTransport) Shell() []string { return []string{"sh", "-c"} }

type windowsTransport struct{}

func (windowsTransport) OS() nvmetest.OSType { return nvmetest.Windows }

// cmd.exe has no ';' separator.
func (windowsTransport) Separator() string { return "&&" }

func (windowsTransport) ChangeDir(dir string) string {
	return `cd /d "` + strings.ReplaceAll(dir, `"`, ``) + `"`
}

func (windowsTransport) Shell() []string { return []string{"cmd", "/C"} }
