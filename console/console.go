// Package console manages detached screen sessions capturing the UART
// console of the system under test.
package console

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"

	"machinerun.io/nvmetest"
)

// Session is one screen session.
type Session struct {
	PID   int    `json:"pid"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// ID returns the "pid.name" session id screen accepts for -S.
func (s Session) ID() string {
	return fmt.Sprintf("%d.%s", s.PID, s.Name)
}

var sessionLine = regexp.MustCompile(`^\s*(\d+)\.(\S+)\s+(?:\(.*?\)\s+)*?\((Attached|Detached|Dead[^)]*|Multi[^)]*)\)`)

// ParseScreenList parses "screen -ls". No sessions is an empty list.
func ParseScreenList(lm nvmetest.LineMap) ([]Session, error) {
	sessions := []Session{}

	for _, line := range lm.Lines() {
		toks := sessionLine.FindStringSubmatch(line)
		if toks == nil {
			continue
		}

		pid, err := nvmetest.Atoi(toks[1], "screen pid")
		if err != nil {
			return nil, err
		}

		sessions = append(sessions, Session{PID: pid, Name: toks[2], State: toks[3]})
	}

	return sessions, nil
}

// OpenCommand returns the command starting a detached session named after
// port, logging the console to logFile.
func OpenCommand(port string, baud int, logFile string) string {
	name := path.Base(port)
	dev := port

	if !strings.HasPrefix(dev, "/") {
		dev = "/dev/" + port
	}

	return fmt.Sprintf("screen -dmS %s -L -Logfile %s %s %d", name, logFile, dev, baud)
}

// List returns the screen sessions.
func List(r nvmetest.Runner) ([]Session, error) {
	// screen -ls exits 1 when there are no sessions; only the text matters.
	lm, err := r.RunLines("screen -ls")
	if err != nil {
		return nil, err
	}

	return ParseScreenList(lm)
}

// Open starts capturing port.
func Open(r nvmetest.Runner, port string, baud int, logFile string) error {
	_, err := r.RunRaw(OpenCommand(port, baud, logFile))
	return err
}

// CloseSession quits the session attached to port and returns its pid. It
// returns -1 when no session matches.
func CloseSession(r nvmetest.Runner, port string) (int, error) {
	sessions, err := List(r)
	if err != nil {
		return -1, err
	}

	name := path.Base(port)

	for _, s := range sessions {
		if s.Name != name {
			continue
		}

		if _, err := r.RunRaw(fmt.Sprintf("screen -S %s -X quit", s.ID())); err != nil {
			return -1, err
		}

		log.WithField("session", s.ID()).Debug("console session closed")

		return s.PID, nil
	}

	log.WithField("port", port).Info("no console session to close")

	return -1, nil
}
