package nvme

import (
	"regexp"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	log "github.com/sirupsen/logrus"

	"machinerun.io/nvmetest"
)

// SmartLog is the SMART / health information log page of a controller.
// Temperature is in degrees Celsius; the percentages are 0-100.
type SmartLog struct {
	CriticalWarning   int   `json:"critical_warning"`
	Temperature       int   `json:"temperature"`
	AvailableSpare    int   `json:"available_spare"`
	SpareThreshold    int   `json:"available_spare_threshold"`
	PercentageUsed    int   `json:"percentage_used"`
	DataUnitsRead     int64 `json:"data_units_read"`
	DataUnitsWritten  int64 `json:"data_units_written"`
	HostReadCommands  int64 `json:"host_read_commands"`
	HostWriteCommands int64 `json:"host_write_commands"`
	ControllerBusy    int64 `json:"controller_busy_time"`
	PowerCycles       int64 `json:"power_cycles"`
	PowerOnHours      int64 `json:"power_on_hours"`
	UnsafeShutdowns   int64 `json:"unsafe_shutdowns"`
	MediaErrors       int64 `json:"media_errors"`
	ErrorLogEntries   int64 `json:"num_err_log_entries"`
}

var (
	leadingInt  = regexp.MustCompile(`^(0x[0-9a-fA-F]+|[0-9,]+)`)
	temperature = regexp.MustCompile(`^([0-9]+)\s*(?:°\s*)?C`)
)

type smartField struct {
	key   string
	int   *int
	int64 *int64
}

func (s *SmartLog) fields() []smartField {
	return []smartField{
		{key: "critical_warning", int: &s.CriticalWarning},
		{key: "available_spare", int: &s.AvailableSpare},
		{key: "available_spare_threshold", int: &s.SpareThreshold},
		{key: "percentage_used", int: &s.PercentageUsed},
		{key: "data_units_read", int64: &s.DataUnitsRead},
		{key: "data_units_written", int64: &s.DataUnitsWritten},
		{key: "host_read_commands", int64: &s.HostReadCommands},
		{key: "host_write_commands", int64: &s.HostWriteCommands},
		{key: "controller_busy_time", int64: &s.ControllerBusy},
		{key: "power_cycles", int64: &s.PowerCycles},
		{key: "power_on_hours", int64: &s.PowerOnHours},
		{key: "unsafe_shutdowns", int64: &s.UnsafeShutdowns},
		{key: "media_errors", int64: &s.MediaErrors},
		{key: "num_err_log_entries", int64: &s.ErrorLogEntries},
	}
}

// ParseSmartLog parses the output of "nvme smart-log <dev>". Every field of
// SmartLog must be present.
func ParseSmartLog(raw string) (SmartLog, error) {
	s := SmartLog{}
	kv := nvmetest.ParseKeyValues(nvmetest.SplitRawLines(raw), ":")

	t, err := nvmetest.MatchInt(kv["temperature"], temperature, "temperature")
	if err != nil {
		return s, err
	}

	s.Temperature = t

	for _, f := range s.fields() {
		toks, err := nvmetest.Match(kv[f.key], leadingInt, f.key)
		if err != nil {
			return s, err
		}

		var v int64

		if len(toks[1]) > 2 && toks[1][:2] == "0x" {
			u, err := nvmetest.ParseHex(toks[1], f.key)
			if err != nil {
				return s, err
			}

			v = int64(u)
		} else {
			i, err := nvmetest.Atoi(toks[1], f.key)
			if err != nil {
				return s, err
			}

			v = int64(i)
		}

		if f.int != nil {
			*f.int = int(v)
		} else {
			*f.int64 = v
		}
	}

	return s, nil
}

// volatile fields change during normal operation.
var volatile = cmpopts.IgnoreFields(SmartLog{},
	"Temperature", "DataUnitsRead", "DataUnitsWritten", "HostReadCommands",
	"HostWriteCommands", "ControllerBusy", "PowerOnHours", "PowerCycles", "UnsafeShutdowns")

// IsEqual reports whether the health of s and o is the same, ignoring the
// counters that grow with normal use.
func (s SmartLog) IsEqual(o SmartLog) bool {
	return cmp.Equal(s, o, volatile)
}

// Diff returns a human readable difference of the health fields of s and o,
// or "" when IsEqual.
func (s SmartLog) Diff(o SmartLog) string {
	return cmp.Diff(s, o, volatile)
}

// Healthy reports whether no critical warning is raised and no media errors
// were logged.
func (s SmartLog) Healthy() bool {
	return s.CriticalWarning == 0 && s.MediaErrors == 0 && s.AvailableSpare >= s.SpareThreshold
}

// Smart runs "nvme smart-log" for dev.
func Smart(r nvmetest.Runner, dev string) (SmartLog, error) {
	if err := linuxOnly(r); err != nil {
		return SmartLog{}, err
	}

	out, err := r.RunRaw("nvme smart-log " + dev)
	if err != nil {
		return SmartLog{}, err
	}

	s, err := ParseSmartLog(out)
	if err != nil {
		log.WithField("dev", dev).Errorf("smart-log: %s", err)
		return SmartLog{}, err
	}

	return s, nil
}
