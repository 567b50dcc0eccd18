// Package branchview implements spec.md §4.6's BranchView: the pairing of
// an open Store transaction with the Snapshot Conversion derives from it.
package branchview

import (
	"context"
	"fmt"

	"github.com/bjulian5/syncbridge/internal/convert"
	"github.com/bjulian5/syncbridge/internal/entities"
	"github.com/bjulian5/syncbridge/internal/snapshot"
	"github.com/bjulian5/syncbridge/internal/store"
)

// Prior carries the previous tick's snapshot and head commit for a
// branch, so a new View can be built incrementally (via Conversion's
// diff-apply path) instead of doing a full tree rebuild every tick.
type Prior struct {
	Snapshot snapshot.Snapshot
	Head     store.CommitID
}

// View is one (branch, open transaction, head commit, derived snapshot)
// tuple. It exists only for the duration of one sync tick; the caller
// must Commit or Abort exactly once before dropping it (spec.md §3).
type View struct {
	Branch *store.Branch
	Tx     *store.Transaction
	Head   store.CommitID

	Snapshot snapshot.Snapshot
}

// Open starts a transaction against br and computes its snapshot, either
// by full rebuild (old == nil) or by incremental diff-apply against
// old.Head (spec.md §4.3's snapshot(old?, tree)). It resolves the
// transaction's single parent as Head, per spec.md §4.6 — erroring (not
// panicking: see DESIGN.md's Open Questions) if the branch has zero or
// more than one parent, since by the time any View is opened init_sync
// must already have given every branch exactly one ancestor commit.
func Open(ctx context.Context, br *store.Branch, old *Prior) (*View, error) {
	tx, err := br.Transaction(ctx)
	if err != nil {
		return nil, fmt.Errorf("branchview: open %q: %w", br.Name(), err)
	}

	parents := tx.Parents()
	if len(parents) != 1 {
		_ = tx.Abort(ctx)
		return nil, fmt.Errorf("branchview: branch %q has %d parents at open, want exactly 1", br.Name(), len(parents))
	}
	head := parents[0]

	var oldSnap *snapshot.Snapshot
	var changes []entities.PathChange
	if old != nil {
		oldSnap = &old.Snapshot
		changes, err = tx.Diff(ctx, old.Head)
		if err != nil {
			_ = tx.Abort(ctx)
			return nil, fmt.Errorf("branchview: diff %q against %s: %w", br.Name(), old.Head, err)
		}
	}
	snap, err := convert.Snapshot(oldSnap, tx.Tree(), changes)
	if err != nil {
		_ = tx.Abort(ctx)
		return nil, fmt.Errorf("branchview: snapshot %q: %w", br.Name(), err)
	}

	return &View{Branch: br, Tx: tx, Head: head, Snapshot: snap}, nil
}

// Abort discards the view's transaction if it hasn't already been
// closed. Safe to call unconditionally during cleanup.
func (v *View) Abort(ctx context.Context) error {
	if v.Tx.Closed() {
		return nil
	}
	return v.Tx.Abort(ctx)
}

// Commit finalizes the view's transaction.
func (v *View) Commit(ctx context.Context, message string) (store.CommitID, error) {
	return v.Tx.Commit(ctx, message)
}

// AsPrior captures this view's snapshot and head for use as the next
// tick's incremental-diff baseline.
func (v *View) AsPrior() Prior {
	return Prior{Snapshot: v.Snapshot, Head: v.Head}
}
