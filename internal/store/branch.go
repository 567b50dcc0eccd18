package store

import (
	"context"
	"fmt"
)

// Branch is a named, mutable pointer into a Repository's commit graph —
// the Store's notion of "branch" from spec.md §6.
type Branch struct {
	repo *Repository
	name string
}

// Name returns the branch's name.
func (b *Branch) Name() string { return b.name }

// Exists reports whether this branch currently has a head commit.
func (b *Branch) Exists() bool {
	_, ok := b.repo.headOf(b.name)
	return ok
}

// Head returns the branch's current head commit. It errors if the branch
// has no commits yet — callers that need to tell "empty" from "missing"
// apart should check Exists first (see init_sync in the sync engine).
func (b *Branch) Head(ctx context.Context) (CommitID, error) {
	id, ok := b.repo.headOf(b.name)
	if !ok {
		return ZeroCommitID, fmt.Errorf("store: branch %q has no head", b.name)
	}
	return id, nil
}

// Transaction opens a new transaction against this branch's current head.
// Exactly one transaction may be open per BranchView at a time; the caller
// must Commit or Abort it before dropping the handle.
func (b *Branch) Transaction(ctx context.Context) (*Transaction, error) {
	head, _ := b.repo.headOf(b.name) // ok==false means ZeroCommitID, a valid empty-branch parent
	treeHash, err := treeHashOf(b.repo.storer, head)
	if err != nil {
		return nil, fmt.Errorf("store: open transaction on %q: %w", b.name, err)
	}
	overlay, err := newCommitTree(b.repo.storer, treeHash)
	if err != nil {
		return nil, fmt.Errorf("store: open transaction on %q: %w", b.name, err)
	}
	var parents []CommitID
	if head != ZeroCommitID {
		parents = []CommitID{head}
	}
	if len(parents) > 1 {
		panic("store: newly opened transaction has more than one parent")
	}
	return &Transaction{
		repo:     b.repo,
		branch:   b.name,
		base:     head,
		parents:  parents,
		overlay:  cloneFiles(overlay.files),
		original: cloneFiles(overlay.files),
	}, nil
}

// WithTransaction opens a transaction, runs fn, and guarantees the
// transaction is aborted if fn returns without having committed or
// aborted it itself (including on panic-free early returns via error).
func (b *Branch) WithTransaction(ctx context.Context, fn func(*Transaction) error) error {
	tx, err := b.Transaction(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if !tx.Closed() {
			_ = tx.Abort(ctx)
		}
	}()
	return fn(tx)
}

// FastForward moves the branch head to target, which must be the current
// head itself, a descendant of it, or the branch must currently be empty.
func (b *Branch) FastForward(ctx context.Context, target CommitID) error {
	current, ok := b.repo.headOf(b.name)
	if !ok {
		b.repo.setHead(b.name, target)
		return nil
	}
	if current == target {
		return nil
	}
	isDescendant, err := isAncestor(b.repo.storer, current, target)
	if err != nil {
		return fmt.Errorf("store: fast-forward %q: %w", b.name, err)
	}
	if !isDescendant {
		return fmt.Errorf("store: fast-forward %q: %s is not a descendant of %s", b.name, fmtHash(target), fmtHash(current))
	}
	b.repo.setHead(b.name, target)
	return nil
}

// WaitForHead blocks until this branch's head changes or ctx is done,
// sending on notify (non-blocking) when it does. It returns nil on a
// head change, or ctx.Err() if cancelled first.
func (b *Branch) WaitForHead(ctx context.Context, notify chan<- struct{}) error {
	ch := make(chan struct{}, 1)
	cancel := b.repo.watch(b.name, ch)
	defer cancel()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		if notify != nil {
			select {
			case notify <- struct{}{}:
			default:
			}
		}
		return nil
	}
}

// Tree returns a read-only Tree view over the given commit, so callers
// can read a branch's history (e.g. the previous head, for incremental
// Conversion) without opening a transaction against it.
func (b *Branch) Tree(ctx context.Context, id CommitID) (Tree, error) {
	treeHash, err := treeHashOf(b.repo.storer, id)
	if err != nil {
		return nil, fmt.Errorf("store: tree of %s: %w", fmtHash(id), err)
	}
	return newCommitTree(b.repo.storer, treeHash)
}

func treeHashOf(storer encodedObjectStorer, id CommitID) (CommitID, error) {
	if id == ZeroCommitID {
		return ZeroCommitID, nil
	}
	c, err := readCommit(storer, id)
	if err != nil {
		return ZeroCommitID, err
	}
	return c.TreeHash, nil
}
