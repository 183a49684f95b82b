package domain

import (
	"fmt"
	"strings"
)

// InvalidModeError reports a mode that is neither "hist" nor "future".
type InvalidModeError struct {
	Mode string
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid mode %q: valid modes are %q and %q", e.Mode, ModeHist, ModeFuture)
}

// InvalidYearRangeError reports a year range that is empty or implausible for
// the requested mode.
type InvalidYearRangeError struct {
	Mode   Mode
	From   int
	To     int
	Reason string
	Min    int
	Max    int
}

func (e *InvalidYearRangeError) Error() string {
	msg := fmt.Sprintf("invalid year range %d-%d for mode %q: %s", e.From, e.To, e.Mode, e.Reason)
	if e.Min != 0 || e.Max != 0 {
		msg += fmt.Sprintf(" (valid years are %d-%d)", e.Min, e.Max)
	}
	return msg
}

// UnknownIdentifierError reports requested identifiers that are not in the
// catalog for the given kind and mode.
type UnknownIdentifierError struct {
	Mode Mode
	Kind IdentifierKind
	IDs  []string
}

func (e *UnknownIdentifierError) Error() string {
	return fmt.Sprintf("unknown %s identifier(s) for mode %q: %s", e.Kind, e.Mode, strings.Join(e.IDs, ", "))
}
