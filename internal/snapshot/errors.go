package snapshot

import "fmt"

// InvariantError indicates a Snapshot violated one of the cross-set
// invariants documented in spec.md §3. This should never happen for
// snapshots built exclusively through the algebra in this package; its
// presence indicates a bug in a caller that bypassed the algebra (e.g. by
// constructing a Snapshot's maps directly, which the package does not
// expose).
type InvariantError struct {
	msg string
}

func (e *InvariantError) Error() string { return e.msg }

func invariantError(format string, args ...any) error {
	return &InvariantError{msg: fmt.Sprintf(format, args...)}
}
