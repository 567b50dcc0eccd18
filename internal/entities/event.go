package entities

// EventKind tags the variant carried by an Event.
type EventKind int

const (
	EventPR EventKind = iota
	EventStatus
	EventRef
	EventOther
)

// Event is a tagged union of {PR, Status, Ref, Other(string)}, as reported
// by the Hub's events endpoint. Only Kind and the field matching it are
// meaningful; this mirrors a sum type via a discriminated struct, the
// idiomatic Go encoding for the tagged unions spec.md's pseudocode assumes.
type Event struct {
	Kind   EventKind
	PR     PullRequest
	Status Status
	Ref    Ref
	Other  string
}
