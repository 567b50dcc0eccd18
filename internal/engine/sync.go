package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bjulian5/syncbridge/internal/branchview"
	"github.com/bjulian5/syncbridge/internal/convert"
	"github.com/bjulian5/syncbridge/internal/entities"
	"github.com/bjulian5/syncbridge/internal/hub"
	"github.com/bjulian5/syncbridge/internal/hubexport"
	"github.com/bjulian5/syncbridge/internal/hubimport"
	"github.com/bjulian5/syncbridge/internal/snapshot"
	"github.com/bjulian5/syncbridge/internal/store"
)

// Result is the engine's state between ticks: each branch's snapshot and
// head commit as of the end of the last tick, used as the next tick's
// incremental-diff baseline (branchview.Prior) and as the "old" side of
// the next outbound export delta.
type Result struct {
	Pub  branchview.Prior
	Priv branchview.Prior
}

// firstSync implements spec.md §4.7's first_sync: build both branch views
// from a full rebuild, compute the combined repo set, and either return
// immediately (nothing to sync) or run sync_repos followed by the
// outbound export.
func firstSync(ctx context.Context, client hub.Client, token string, pubBranch, privBranch *store.Branch, dryUpdates bool) (Result, error) {
	pubView, err := branchview.Open(ctx, pubBranch, nil)
	if err != nil {
		return Result{}, fmt.Errorf("engine: first sync: %w", err)
	}
	defer pubView.Abort(ctx) // no-op once committed; guarantees closure on every early return
	privView, err := branchview.Open(ctx, privBranch, nil)
	if err != nil {
		return Result{}, fmt.Errorf("engine: first sync: %w", err)
	}
	defer privView.Abort(ctx)

	repos := unionRepos(pubView.Snapshot.Repos(), privView.Snapshot.Repos())
	if len(repos) == 0 {
		return Result{Pub: pubView.AsPrior(), Priv: privView.AsPrior()}, nil
	}

	result, err := syncRepos(ctx, client, token, pubBranch, privBranch, pubView, privView, repos)
	if err != nil {
		return Result{}, fmt.Errorf("engine: first sync: %w", err)
	}

	if err := hubexport.CallAPI(ctx, client, token, result.Priv.Snapshot, result.Pub.Snapshot, dryUpdates); err != nil {
		return Result{}, fmt.Errorf("engine: first sync: export: %w", err)
	}
	return result, nil
}

// syncOnce implements spec.md §4.7's sync_once: push whatever the user
// changed on pub directly since the last tick, then re-derive the repo
// set that needs a Hub round trip from what changed on either branch.
func syncOnce(ctx context.Context, client hub.Client, token string, pubBranch, privBranch *store.Branch, old Result, dryUpdates bool) (Result, error) {
	pubView, err := branchview.Open(ctx, pubBranch, &old.Pub)
	if err != nil {
		return Result{}, fmt.Errorf("engine: sync once: %w", err)
	}
	defer pubView.Abort(ctx)
	privView, err := branchview.Open(ctx, privBranch, &old.Priv)
	if err != nil {
		return Result{}, fmt.Errorf("engine: sync once: %w", err)
	}
	defer privView.Abort(ctx)

	if err := hubexport.CallAPI(ctx, client, token, old.Pub.Snapshot, pubView.Snapshot, dryUpdates); err != nil {
		return Result{}, fmt.Errorf("engine: sync once: export: %w", err)
	}

	repos := symmetricDifferenceUnion(
		old.Pub.Snapshot.Repos(), pubView.Snapshot.Repos(),
		old.Priv.Snapshot.Repos(), privView.Snapshot.Repos(),
	)

	result, err := syncRepos(ctx, client, token, pubBranch, privBranch, pubView, privView, repos)
	if err != nil {
		return Result{}, fmt.Errorf("engine: sync once: %w", err)
	}
	return result, nil
}

// syncRepos is spec.md §4.7's central operation, steps 1-9: import into
// priv, prune, write, commit-or-abort priv, merge priv into pub, prune
// pub, and return both branches' resulting state.
func syncRepos(ctx context.Context, client hub.Client, token string, pubBranch, privBranch *store.Branch, pub, priv *branchview.View, repos []entities.Repo) (Result, error) {
	logger := slog.Default().With("component", "engine")

	// 1. import into priv's snapshot.
	privImported, err := hubimport.Import(ctx, client, token, priv.Snapshot, repos)
	if err != nil {
		return Result{}, fmt.Errorf("engine: sync repos: import: %w", err)
	}

	// 2. prune.
	prunedResult := snapshot.Prune(privImported)
	prunedPriv := prunedResult.Kept

	// 3. apply cleanups to priv's transaction.
	if !prunedResult.IsClean {
		if err := applyCleanups(priv.Tx, prunedResult.RemovedPRs, prunedResult.RemovedCommits); err != nil {
			return Result{}, fmt.Errorf("engine: sync repos: priv cleanup: %w", err)
		}
	}

	// 4. write the pruned snapshot into priv's transaction.
	if err := convert.WriteSnapshot(priv.Tx, prunedPriv); err != nil {
		return Result{}, fmt.Errorf("engine: sync repos: write priv: %w", err)
	}

	// 5. commit priv unless nothing changed.
	privDiff, err := priv.Tx.Diff(ctx, priv.Head)
	if err != nil {
		return Result{}, fmt.Errorf("engine: sync repos: diff priv: %w", err)
	}
	privHead := priv.Head
	if prunedResult.IsClean && len(privDiff) == 0 {
		if err := priv.Abort(ctx); err != nil {
			return Result{}, fmt.Errorf("engine: sync repos: abort priv: %w", err)
		}
	} else {
		privHead, err = priv.Commit(ctx, fmt.Sprintf("Sync with %s", repoListString(repos)))
		if err != nil {
			return Result{}, fmt.Errorf("engine: sync repos: commit priv: %w", err)
		}
	}

	// 6. abort pub (unmodified so far); re-open both views against the
	// latest committed state.
	if err := pub.Abort(ctx); err != nil {
		return Result{}, fmt.Errorf("engine: sync repos: abort pub: %w", err)
	}
	pubPrior := pub.AsPrior()
	privPrior := branchview.Prior{Snapshot: prunedPriv, Head: privHead}

	pub2, err := branchview.Open(ctx, pubBranch, &pubPrior)
	if err != nil {
		return Result{}, fmt.Errorf("engine: sync repos: reopen pub: %w", err)
	}
	defer pub2.Abort(ctx) // merge() closes pub2 itself on every path; this only guards a return before that
	priv2, err := branchview.Open(ctx, privBranch, &privPrior)
	if err != nil {
		return Result{}, fmt.Errorf("engine: sync repos: reopen priv: %w", err)
	}
	defer priv2.Abort(ctx)

	// 7. priv2 only exists to supply the "theirs" side of the merge
	// comparison; it was already committed under a different handle.
	theirsSnapshot := priv2.Snapshot

	mergedSnapshot, mergedHead, err := merge(ctx, pub2, privHead, theirsSnapshot, privBranch.Name())
	if err != nil {
		return Result{}, fmt.Errorf("engine: sync repos: merge: %w", err)
	}

	// 8. re-open pub against the merge result and prune it.
	pub3, err := branchview.Open(ctx, pubBranch, &branchview.Prior{Snapshot: mergedSnapshot, Head: mergedHead})
	if err != nil {
		return Result{}, fmt.Errorf("engine: sync repos: reopen pub for prune: %w", err)
	}
	defer pub3.Abort(ctx)
	pubPruned := snapshot.Prune(pub3.Snapshot)

	finalPub := branchview.Prior{Snapshot: mergedSnapshot, Head: mergedHead}
	if !pubPruned.IsClean {
		if err := applyCleanups(pub3.Tx, pubPruned.RemovedPRs, pubPruned.RemovedCommits); err != nil {
			return Result{}, fmt.Errorf("engine: sync repos: pub cleanup: %w", err)
		}
		newHead, err := pub3.Commit(ctx, "Prune")
		if err != nil {
			return Result{}, fmt.Errorf("engine: sync repos: commit pub prune: %w", err)
		}
		finalPub = branchview.Prior{Snapshot: pubPruned.Kept, Head: newHead}
	}

	logger.Info("sync tick complete", "repos", len(repos), "pub_head", finalPub.Head, "priv_head", privHead)

	// 9. both transactions are now closed; return the final state.
	return Result{Pub: finalPub, Priv: privPrior}, nil
}

// applyCleanups removes the PR and commit subtrees a prune pass reported
// as no longer reachable.
func applyCleanups(w convert.Writer, removedPRs []entities.PullRequest, removedCommits []entities.Commit) error {
	for _, pr := range removedPRs {
		if err := convert.RemovePR(w, pr.Repo(), pr.Number); err != nil {
			return err
		}
	}
	for _, c := range removedCommits {
		if err := convert.RemoveCommit(w, c.Repo, c.ID); err != nil {
			return err
		}
	}
	return nil
}

func repoListString(repos []entities.Repo) string {
	names := make([]string, len(repos))
	for i, r := range repos {
		names[i] = r.String()
	}
	return strings.Join(names, ", ")
}
