package dispatch

import (
	"bytes"
	"os/exec"
	"syscall"
)

// noStartRC mirrors the shell's "command not found" code and is reported when
// the process could not be started at all.
const noStartRC = 127

// sshFailureRC is what ssh exits with when the connection or authentication
// fails, as opposed to the remote command failing.
const sshFailureRC = 255

// spawnFunc runs argv to completion and returns its captured output, exit
// code and, when the process could not be run, an error.
type spawnFunc func(argv []string) (stdout []byte, stderr []byte, rc int, err error)

func getCommandErrorRCDefault(err error, rcError int) int {
	if err == nil {
		return 0
	}

	exitError, ok := err.(*exec.ExitError)
	if ok {
		if status, ok := exitError.Sys().(syscall.WaitStatus); ok {
			return status.ExitStatus()
		}
	}

	return rcError
}

// runCommandWithOutputErrorRc is the default spawnFunc. A non-zero exit is
// only reported through rc; err is set when the process did not run.
func runCommandWithOutputErrorRc(argv []string) ([]byte, []byte, int, error) {
	cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	rc := getCommandErrorRCDefault(err, noStartRC)
	if _, exited := err.(*exec.ExitError); err != nil && !exited {
		return stdout.Bytes(), stderr.Bytes(), rc, err
	}

	return stdout.Bytes(), stderr.Bytes(), rc, nil
}
