// Package eventlog reads and clears the system event log of the system
// under test: the Windows event log or the systemd journal.
package eventlog

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"machinerun.io/nvmetest"
)

// Entry is one event log record. Time is zero when the timestamp could not
// be parsed; TimeText always holds the printed value.
type Entry struct {
	Time     time.Time `json:"time"`
	TimeText string    `json:"time_text"`
	Level    string    `json:"level"`
	Source   string    `json:"source"`
	ID       int       `json:"id"`
	Message  string    `json:"message"`
}

// GetCommand returns the command printing the newest entries of logName.
// On Linux logName is a syslog identifier, with "kernel" meaning the kernel
// ring buffer and "" the whole journal.
func GetCommand(os nvmetest.OSType, logName string, newest int) (string, error) {
	switch os {
	case nvmetest.Windows:
		return fmt.Sprintf(`powershell -Command "Get-EventLog -LogName %s -Newest %d | `+
			`Format-List -Property TimeGenerated,EntryType,Source,EventID,Message"`, logName, newest), nil
	case nvmetest.Linux:
		cmd := fmt.Sprintf("journalctl --no-pager -o short-iso -n %d", newest)

		switch logName {
		case "":
		case "kernel":
			cmd += " -k"
		default:
			cmd += " -t " + logName
		}

		return cmd, nil
	}

	return "", fmt.Errorf("%w: event log on %s", nvmetest.ErrUnsupported, os)
}

// ClearCommand returns the command clearing logName. The journal cannot be
// cleared per identifier, so on Linux the whole journal is rotated away.
func ClearCommand(os nvmetest.OSType, logName string) (string, error) {
	switch os {
	case nvmetest.Windows:
		return fmt.Sprintf(`powershell -Command "Clear-EventLog -LogName %s"`, logName), nil
	case nvmetest.Linux:
		return "journalctl --rotate ; journalctl --vacuum-time=1s", nil
	}

	return "", fmt.Errorf("%w: event log on %s", nvmetest.ErrUnsupported, os)
}

var windowsTimeLayouts = []string{"1/2/2006 3:04:05 PM", "2/1/2006 15:04:05", "2006-01-02 15:04:05"}

// ParseWindows parses Get-EventLog records printed by Format-List.
func ParseWindows(raw string) ([]Entry, error) {
	entries := []Entry{}

	for _, block := range nvmetest.SplitBlocks(raw) {
		kv := nvmetest.ParseKeyValues(block, ":")

		when, ok := kv["TimeGenerated"]
		if !ok {
			continue
		}

		e := Entry{
			TimeText: when,
			Level:    kv["EntryType"],
			Source:   kv["Source"],
			Message:  kv["Message"],
		}

		for _, layout := range windowsTimeLayouts {
			if t, err := time.ParseInLocation(layout, when, time.Local); err == nil {
				e.Time = t
				break
			}
		}

		var err error

		if e.ID, err = nvmetest.Atoi(kv["EventID"], "EventID"); err != nil {
			return nil, err
		}

		entries = append(entries, e)
	}

	return entries, nil
}

var journalLine = regexp.MustCompile(`^(\S+) (\S+) ([^:\[]+?)(?:\[(\d+)\])?: (.*)$`)

// ParseJournal parses "journalctl -o short-iso" output. Source is the syslog
// identifier and ID the pid when printed. The journal does not print the
// priority in this format, so Level is empty.
func ParseJournal(raw string) ([]Entry, error) {
	entries := []Entry{}

	for _, line := range nvmetest.SplitRawLines(raw) {
		if strings.HasPrefix(line, "-- ") || strings.TrimSpace(line) == "" {
			continue
		}

		toks := journalLine.FindStringSubmatch(line)
		if toks == nil {
			// continuation of a multi-line message
			if n := len(entries); n != 0 {
				entries[n-1].Message += "\n" + strings.TrimSpace(line)
			}

			continue
		}

		e := Entry{TimeText: toks[1], Source: toks[3], Message: toks[5]}

		for _, layout := range []string{"2006-01-02T15:04:05-0700", time.RFC3339} {
			if t, err := time.Parse(layout, toks[1]); err == nil {
				e.Time = t
				break
			}
		}

		if toks[4] != "" {
			e.ID, _ = nvmetest.Atoi(toks[4], "pid")
		}

		entries = append(entries, e)
	}

	return entries, nil
}

// Get returns the newest entries of logName.
func Get(r nvmetest.Runner, logName string, newest int) ([]Entry, error) {
	cmd, err := GetCommand(r.OS(), logName, newest)
	if err != nil {
		return nil, err
	}

	out, err := r.RunRaw(cmd)
	if err != nil {
		return nil, err
	}

	var entries []Entry

	if r.OS() == nvmetest.Windows {
		entries, err = ParseWindows(out)
	} else {
		entries, err = ParseJournal(out)
	}

	if err != nil {
		log.WithField("log", logName).Errorf("event log: %s", err)
		return nil, err
	}

	return entries, nil
}

// Clear empties logName.
func Clear(r nvmetest.Runner, logName string) error {
	cmd, err := ClearCommand(r.OS(), logName)
	if err != nil {
		return err
	}

	_, err = r.RunRaw(cmd)

	return err
}

// Filter returns the entries whose source and level match, ignoring case.
// An empty source or level matches everything.
func Filter(entries []Entry, source, level string) []Entry {
	out := []Entry{}

	for _, e := range entries {
		if source != "" && !strings.EqualFold(e.Source, source) {
			continue
		}

		if level != "" && !strings.EqualFold(e.Level, level) {
			continue
		}

		out = append(out, e)
	}

	return out
}
