package entities

import (
	"fmt"
	"strings"
)

// RefName is a non-empty ordered sequence of path segments, e.g.
// ["heads", "main"] or ["tags", "v1.0"].
type RefName []string

func (n RefName) Path() string {
	return strings.Join(n, "/")
}

func (n RefName) Equal(other RefName) bool {
	if len(n) != len(other) {
		return false
	}
	for i := range n {
		if n[i] != other[i] {
			return false
		}
	}
	return true
}

// Ref is (head, name). Identity within a repo is name.
type Ref struct {
	Head Commit
	Name RefName
}

func (r Ref) Repo() Repo {
	return r.Head.Repo
}

// Validate enforces the non-empty name invariant.
func (r Ref) Validate() error {
	if len(r.Name) == 0 {
		return fmt.Errorf("ref: name must be non-empty")
	}
	return nil
}

// Less provides the canonical total order over refs, by (repo, name path).
func (r Ref) Less(other Ref) bool {
	if r.Repo() != other.Repo() {
		return r.Repo().Less(other.Repo())
	}
	return r.Name.Path() < other.Name.Path()
}
