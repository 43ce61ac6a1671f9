package nvmetest

import (
	"errors"
	"fmt"
)

// ErrInvalidMode - the execution mode is neither "local" nor "remote".
var ErrInvalidMode = errors.New("invalid execution mode")

// ErrNetworkUnavailable - the named network interface has no usable address.
var ErrNetworkUnavailable = errors.New("network interface has no address")

// ErrConfigNotFound - an inventory or pin-map file is missing or unreadable.
var ErrConfigNotFound = errors.New("configuration file not found")

// ErrUnsupported - the operation is not available for the target OS or mode.
var ErrUnsupported = errors.New("operation unsupported for target")

// ErrNoMatch - base error for output that did not contain an expected field.
var ErrNoMatch = errors.New("pattern not matched")

// TransportError reports a failure to run a command: the process could not
// be started or the ssh transport itself failed.
type TransportError struct {
	Cmd    string
	RC     int
	Stderr string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("command failed [%d]: %s: %s", e.RC, e.Cmd, e.Err)
	}

	return fmt.Sprintf("command failed [%d]: %s\nerr:%s", e.RC, e.Cmd, e.Stderr)
}

// CommandNotFound reports whether rc is a shell's "could not run the
// command" status: 126 not executable or 127 not found from sh, 9009 not
// recognized from cmd.exe.
func CommandNotFound(rc int) bool {
	return rc == 126 || rc == 127 || rc == 9009
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PatternNotMatchedError is returned when tool output lacks a field that a
// parser requires.
type PatternNotMatchedError struct {
	Field   string
	Pattern string
}

func (e *PatternNotMatchedError) Error() string {
	return fmt.Sprintf("%s not found in output (pattern %q)", e.Field, e.Pattern)
}

// Is reports PatternNotMatchedError as ErrNoMatch.
func (e *PatternNotMatchedError) Is(target error) bool {
	return target == ErrNoMatch
}

// UnitConversionError reports a number/unit pair that could not be converted.
type UnitConversionError struct {
	Text   string
	Reason string
}

func (e *UnitConversionError) Error() string {
	return fmt.Sprintf("cannot convert %q: %s", e.Text, e.Reason)
}
