// Package store implements the Store client contract from spec.md §6: a
// transactional, Git-like versioned filesystem with branches, open
// transactions, trees, and three-way merge.
//
// Unlike the teacher's internal/git (which drives the user's real checkout
// via the git(1) CLI), this Store is not the user's working copy — it is
// an independent, content-addressed object database built directly on
// go-git/v5's object model (blobs, trees, commits) backed by an in-memory
// storer. Branches are ordinary Git references into that object store;
// "checking out" a branch never touches disk.
package store

import (
	"fmt"
	"sync"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
)

// CommitID is the Store's notion of a commit identifier: the content hash
// of a real go-git commit object. It satisfies entities.Commit's
// "opaque, never parsed" contract while still being genuinely
// content-addressed.
type CommitID = plumbing.Hash

// ZeroCommitID is the distinguished empty/absent commit ID.
var ZeroCommitID = plumbing.ZeroHash

// Repository is the root object database shared by every branch opened
// against it. It corresponds to the single underlying Git object store
// the spec's "Store" names informally.
type Repository struct {
	mu      sync.Mutex
	storer  *memory.Storage
	refs    map[string]CommitID // branch name -> head commit id
	watches map[string][]chan<- struct{}
}

// NewRepository creates an empty in-memory Store.
func NewRepository() *Repository {
	return &Repository{
		storer:  memory.NewStorage(),
		refs:    make(map[string]CommitID),
		watches: make(map[string][]chan<- struct{}),
	}
}

// BranchExists reports whether a branch has ever been created (including
// one whose head is ZeroCommitID, which should not happen in practice
// once the engine's initSync has run).
func (r *Repository) BranchExists(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.refs[name]
	return ok
}

// Branch returns a handle to a named branch. Creating the handle records
// nothing in the repository: the branch does not "exist" in the
// BranchExists sense until a commit or fast-forward sets its head.
func (r *Repository) Branch(name string) *Branch {
	return &Branch{repo: r, name: name}
}

func (r *Repository) headOf(name string) (CommitID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.refs[name]
	if !ok || id == ZeroCommitID {
		return ZeroCommitID, false
	}
	return id, true
}

func (r *Repository) setHead(name string, id CommitID) {
	r.mu.Lock()
	watchers := append([]chan<- struct{}(nil), r.watches[name]...)
	r.refs[name] = id
	r.mu.Unlock()
	for _, ch := range watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (r *Repository) watch(name string, ch chan<- struct{}) (cancel func()) {
	r.mu.Lock()
	r.watches[name] = append(r.watches[name], ch)
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		list := r.watches[name]
		for i, w := range list {
			if w == ch {
				r.watches[name] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
}

func fmtHash(id CommitID) string {
	if id == ZeroCommitID {
		return "<none>"
	}
	return fmt.Sprintf("%.12s", id.String())
}
