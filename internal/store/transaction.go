package store

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/bjulian5/syncbridge/internal/entities"
)

// Transaction is a single in-flight write against a Branch's staging
// overlay. Exactly one Transaction may be open per BranchView at a time
// (spec.md §6); its writes are invisible to other branch readers until
// Commit.
type Transaction struct {
	repo   *Repository
	branch string

	base        CommitID
	parents     []CommitID
	mergeParent *CommitID // set by Merge; folded into parents at Commit

	overlay  map[string][]byte // current staged content, fully resolved
	original map[string][]byte // content as of transaction open, for Diff

	closed bool
}

// Parents returns the commit(s) this transaction will record as parents
// if committed right now.
func (tx *Transaction) Parents() []CommitID {
	out := append([]CommitID(nil), tx.parents...)
	if tx.mergeParent != nil {
		out = append(out, *tx.mergeParent)
	}
	return out
}

// Closed reports whether Commit or Abort has already been called.
func (tx *Transaction) Closed() bool { return tx.closed }

// MakeDirs is a no-op placeholder for directory creation: directories in
// this tree model exist implicitly wherever a file path places them, so
// there is nothing to materialize ahead of writing files into them.
func (tx *Transaction) MakeDirs(pathSegs ...string) error {
	if tx.closed {
		return fmt.Errorf("store: transaction on %q already closed", tx.branch)
	}
	return nil
}

// CreateOrReplaceFile stages content at path, creating or overwriting it.
func (tx *Transaction) CreateOrReplaceFile(p string, content []byte) error {
	if tx.closed {
		return fmt.Errorf("store: transaction on %q already closed", tx.branch)
	}
	p = clean(p)
	if p == "" {
		return fmt.Errorf("store: cannot write to root path")
	}
	tx.overlay[p] = append([]byte(nil), content...)
	return nil
}

// Remove deletes path and, if it names a directory prefix, every file
// staged beneath it.
func (tx *Transaction) Remove(p string) error {
	if tx.closed {
		return fmt.Errorf("store: transaction on %q already closed", tx.branch)
	}
	p = clean(p)
	if p == "" {
		tx.overlay = map[string][]byte{}
		return nil
	}
	if _, ok := tx.overlay[p]; ok {
		delete(tx.overlay, p)
	}
	prefix := p + "/"
	for k := range tx.overlay {
		if strings.HasPrefix(k, prefix) {
			delete(tx.overlay, k)
		}
	}
	return nil
}

// Exists reports whether path names a staged file or directory prefix.
func (tx *Transaction) Exists(p string) (bool, error) {
	p = clean(p)
	if p == "" {
		return true, nil
	}
	if _, ok := tx.overlay[p]; ok {
		return true, nil
	}
	prefix := p + "/"
	for k := range tx.overlay {
		if strings.HasPrefix(k, prefix) {
			return true, nil
		}
	}
	return false, nil
}

// tree returns a Tree view over the transaction's current staged state.
func (tx *Transaction) tree() *transactionTree {
	return &transactionTree{overlay: tx.overlay}
}

// Tree exposes the transaction's current staged state as a read-only
// Tree, satisfying the capability interface of spec.md §9 so Conversion
// can read a transaction's pending writes the same way it reads a
// committed tree.
func (tx *Transaction) Tree() Tree {
	return tx.tree()
}

// Diff reports the path-level differences between this transaction's
// current staged state and the tree at commit against.
func (tx *Transaction) Diff(ctx context.Context, against CommitID) ([]entities.PathChange, error) {
	treeHash, err := treeHashOf(tx.repo.storer, against)
	if err != nil {
		return nil, fmt.Errorf("store: diff: %w", err)
	}
	other, err := newCommitTree(tx.repo.storer, treeHash)
	if err != nil {
		return nil, fmt.Errorf("store: diff: %w", err)
	}
	return diffFileSets(other.files, tx.overlay)
}

// Merge three-way merges theirs into this transaction's staged state,
// using the merge base of tx's base commit and theirs. Paths that
// changed on only one side are applied automatically; paths that
// changed differently on both sides are reported as conflicts and left
// for the caller to resolve via the returned ThreeWay (spec.md §4.7 —
// the Store reports conflicts, it does not pick a winner).
func (tx *Transaction) Merge(ctx context.Context, theirs CommitID) (ThreeWay, []string, error) {
	base, err := mergeBase(tx.repo.storer, tx.base, theirs)
	if err != nil {
		return ThreeWay{}, nil, fmt.Errorf("store: merge: find base: %w", err)
	}

	baseTreeHash, err := treeHashOf(tx.repo.storer, base)
	if err != nil {
		return ThreeWay{}, nil, fmt.Errorf("store: merge: %w", err)
	}
	baseTree, err := newCommitTree(tx.repo.storer, baseTreeHash)
	if err != nil {
		return ThreeWay{}, nil, fmt.Errorf("store: merge: %w", err)
	}

	theirTreeHash, err := treeHashOf(tx.repo.storer, theirs)
	if err != nil {
		return ThreeWay{}, nil, fmt.Errorf("store: merge: %w", err)
	}
	theirTree, err := newCommitTree(tx.repo.storer, theirTreeHash)
	if err != nil {
		return ThreeWay{}, nil, fmt.Errorf("store: merge: %w", err)
	}

	ours := tx.overlay
	baseFiles := baseTree.files
	their := theirTree.files

	paths := map[string]struct{}{}
	for p := range baseFiles {
		paths[p] = struct{}{}
	}
	for p := range ours {
		paths[p] = struct{}{}
	}
	for p := range their {
		paths[p] = struct{}{}
	}

	var conflicts []string
	merged := cloneFiles(ours)

	for p := range paths {
		baseContent, inBase := baseFiles[p]
		ourContent, inOurs := ours[p]
		theirContent, inTheirs := their[p]

		ourChanged := inOurs != inBase || (inOurs && inBase && !bytesEqual(ourContent, baseContent))
		theirChanged := inTheirs != inBase || (inTheirs && inBase && !bytesEqual(theirContent, baseContent))

		switch {
		case !theirChanged:
			// ours wins trivially, already in merged.
		case !ourChanged:
			if inTheirs {
				merged[p] = append([]byte(nil), theirContent...)
			} else {
				delete(merged, p)
			}
		case inOurs && inTheirs && bytesEqual(ourContent, theirContent):
			// identical change on both sides, no conflict.
		default:
			conflicts = append(conflicts, p)
		}
	}
	sort.Strings(conflicts)

	tw := ThreeWay{ours: cloneFiles(ours), theirs: cloneFiles(their)}

	// Non-conflicting changes are applied unconditionally; conflicting
	// paths keep their current "ours" content, matching the default
	// ours-wins policy the sync engine layers on top of this report. The
	// caller may override individual conflicting paths with
	// CreateOrReplaceFile before committing.
	tx.overlay = merged
	mp := theirs
	tx.mergeParent = &mp

	return tw, conflicts, nil
}

// Commit finalizes the staged overlay into a real commit object and
// advances the branch head to it.
func (tx *Transaction) Commit(ctx context.Context, message string) (CommitID, error) {
	if tx.closed {
		return ZeroCommitID, fmt.Errorf("store: transaction on %q already closed", tx.branch)
	}
	treeHash, err := buildTreeFromFiles(tx.repo.storer, tx.overlay)
	if err != nil {
		return ZeroCommitID, fmt.Errorf("store: commit on %q: %w", tx.branch, err)
	}
	commitHash, err := writeCommit(tx.repo.storer, treeHash, tx.Parents(), message)
	if err != nil {
		return ZeroCommitID, fmt.Errorf("store: commit on %q: %w", tx.branch, err)
	}
	tx.repo.setHead(tx.branch, commitHash)
	tx.closed = true
	return commitHash, nil
}

// Abort discards the transaction's staged changes without touching the
// branch head.
func (tx *Transaction) Abort(ctx context.Context) error {
	tx.closed = true
	return nil
}

// transactionTree is the Tree view over a Transaction's live staging
// overlay — the mutable counterpart to commitTree in the capability
// interface described by spec.md §9.
type transactionTree struct {
	overlay map[string][]byte
}

func (t *transactionTree) files() map[string][]byte { return t.overlay }

func (t *transactionTree) ExistsFile(p string) (bool, error) {
	_, ok := t.overlay[clean(p)]
	return ok, nil
}

func (t *transactionTree) ExistsDir(p string) (bool, error) {
	p = clean(p)
	if p == "" {
		return true, nil
	}
	prefix := p + "/"
	for f := range t.overlay {
		if strings.HasPrefix(f, prefix) {
			return true, nil
		}
	}
	return false, nil
}

func (t *transactionTree) ReadFile(p string) ([]byte, error) {
	content, ok := t.overlay[clean(p)]
	if !ok {
		return nil, fmt.Errorf("store: file not found: %s", p)
	}
	return content, nil
}

func (t *transactionTree) ReadDir(p string) ([]string, error) {
	dirs := map[string]struct{}{}
	for f := range t.overlay {
		dir := path.Dir(f)
		if dir == "." {
			dir = ""
		}
		dirs[dir] = struct{}{}
	}
	return immediateChildren(t.overlay, dirs, clean(p)), nil
}

func (t *transactionTree) Diff(other Tree) ([]entities.PathChange, error) {
	return diffFileSets(t.overlay, flatten(other))
}
