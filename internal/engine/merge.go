package engine

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/bjulian5/syncbridge/internal/branchview"
	"github.com/bjulian5/syncbridge/internal/convert"
	"github.com/bjulian5/syncbridge/internal/entities"
	"github.com/bjulian5/syncbridge/internal/snapshot"
	"github.com/bjulian5/syncbridge/internal/store"
)

// merge implements spec.md §4.7's merge step: merge theirsHead (priv's new
// head) into pub's open transaction. If the two branch snapshots already
// compare equal there is nothing to do. Otherwise the Store's three-way
// merge applies non-conflicting changes automatically; conflicting paths
// are resolved here with "ours wins over theirs when either exists, both
// deletions drop the directory."
//
// Returns the resulting snapshot and head for pub — unchanged from pub's
// current values if nothing needed committing.
func merge(ctx context.Context, pub *branchview.View, theirsHead store.CommitID, theirsSnapshot snapshot.Snapshot, theirsBranchName string) (snapshot.Snapshot, store.CommitID, error) {
	defer pub.Abort(ctx) // no-op once committed; guarantees closure on every early return

	if snapshot.Equal(pub.Snapshot, theirsSnapshot) {
		return pub.Snapshot, pub.Head, nil
	}

	three, conflicts, err := pub.Tx.Merge(ctx, theirsHead)
	if err != nil {
		return snapshot.Snapshot{}, store.ZeroCommitID, fmt.Errorf("engine: merge: %w", err)
	}

	for _, p := range conflicts {
		oursContent, oursOK := three.Ours(p)
		theirsContent, theirsOK := three.Theirs(p)
		switch {
		case !oursOK && !theirsOK:
			if err := pub.Tx.Remove(path.Dir(p)); err != nil {
				return snapshot.Snapshot{}, store.ZeroCommitID, fmt.Errorf("engine: merge: resolve %s: %w", p, err)
			}
		case oursOK:
			if err := pub.Tx.CreateOrReplaceFile(p, oursContent); err != nil {
				return snapshot.Snapshot{}, store.ZeroCommitID, fmt.Errorf("engine: merge: resolve %s: %w", p, err)
			}
		default:
			if err := pub.Tx.CreateOrReplaceFile(p, theirsContent); err != nil {
				return snapshot.Snapshot{}, store.ZeroCommitID, fmt.Errorf("engine: merge: resolve %s: %w", p, err)
			}
		}
	}

	diff, err := pub.Tx.Diff(ctx, pub.Head)
	if err != nil {
		return snapshot.Snapshot{}, store.ZeroCommitID, fmt.Errorf("engine: merge: diff: %w", err)
	}
	if len(diff) == 0 {
		return pub.Snapshot, pub.Head, nil
	}

	merged, err := convert.ReadSnapshot(pub.Tx.Tree())
	if err != nil {
		return snapshot.Snapshot{}, store.ZeroCommitID, fmt.Errorf("engine: merge: read merged tree: %w", err)
	}

	head, err := pub.Commit(ctx, mergeMessage(theirsBranchName, diff, conflicts))
	if err != nil {
		return snapshot.Snapshot{}, store.ZeroCommitID, fmt.Errorf("engine: merge: commit pub: %w", err)
	}
	return merged, head, nil
}

func mergeMessage(branchName string, diff []entities.PathChange, conflicts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Merge %s\n", branchName)
	for _, d := range diff {
		fmt.Fprintf(&b, "%s %s\n", d.Kind, d.Path)
	}
	if len(conflicts) > 0 {
		b.WriteString("\nConflicts:\n")
		for _, c := range conflicts {
			fmt.Fprintf(&b, "  %s\n", c)
		}
	}
	return b.String()
}
