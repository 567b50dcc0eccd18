// Package entities holds the immutable value types shared by the
// snapshot, conversion, and sync layers: Repo, Commit, PullRequest,
// Status, Ref, Event, and the tree-diff classification types.
package entities

import "fmt"

// Repo identifies a repository by its (user, repo) pair. Identity is
// pair equality.
type Repo struct {
	User string
	Name string
}

// NewRepo constructs a Repo, requiring both parts to be non-empty.
func NewRepo(user, name string) (Repo, error) {
	if user == "" || name == "" {
		return Repo{}, fmt.Errorf("repo: user and name must be non-empty (got %q/%q)", user, name)
	}
	return Repo{User: user, Name: name}, nil
}

// String renders the repo as "user/name".
func (r Repo) String() string {
	return r.User + "/" + r.Name
}

// Less provides the canonical total order over repos, by (user, name).
func (r Repo) Less(other Repo) bool {
	if r.User != other.User {
		return r.User < other.User
	}
	return r.Name < other.Name
}
