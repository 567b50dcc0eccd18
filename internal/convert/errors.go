package convert

import "fmt"

// ConversionError indicates the persisted tree holds malformed state: a
// bad enum value or a structurally invalid entry. Per spec.md §7 this is
// surfaced as a tick failure — the caller aborts its transactions and
// logs, the engine stays in Running state.
type ConversionError struct {
	msg string
}

func (e *ConversionError) Error() string { return e.msg }

func conversionError(format string, args ...any) error {
	return &ConversionError{msg: fmt.Sprintf(format, args...)}
}
