// Package hubimport implements spec.md §4.4's import operation: fetching
// open PRs, refs, and statuses from the Hub for a given repo set and
// folding them into a snapshot.
package hubimport

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bjulian5/syncbridge/internal/entities"
	"github.com/bjulian5/syncbridge/internal/hub"
	"github.com/bjulian5/syncbridge/internal/snapshot"
)

type prKey struct {
	repo   entities.Repo
	number int
}

// Import fetches open PRs, refs, and statuses for repos and folds the
// result into old, applying closed-PR synthesis along the way (spec.md
// §4.4 steps 1-6). Per-repo and per-commit fetch failures are logged and
// contribute the empty set rather than aborting the whole import.
func Import(ctx context.Context, client hub.Client, token string, old snapshot.Snapshot, repos []entities.Repo) (snapshot.Snapshot, error) {
	logger := slog.Default().With("component", "hub-import")

	prsByRepo := fetchPerRepo(ctx, logger, repos, "prs", func(ctx context.Context, r entities.Repo) ([]entities.PullRequest, error) {
		return client.PRs(ctx, token, r)
	})
	refsByRepo := fetchPerRepo(ctx, logger, repos, "refs", func(ctx context.Context, r entities.Repo) ([]entities.Ref, error) {
		return client.Refs(ctx, token, r)
	})

	commitSet := map[entities.Commit]struct{}{}
	for _, prs := range prsByRepo {
		for _, pr := range prs {
			commitSet[pr.Head] = struct{}{}
		}
	}
	for _, refs := range refsByRepo {
		for _, r := range refs {
			commitSet[r.Head] = struct{}{}
		}
	}
	commits := make([]entities.Commit, 0, len(commitSet))
	for c := range commitSet {
		commits = append(commits, c)
	}

	statusesByCommit := fetchPerCommit(ctx, logger, commits, func(ctx context.Context, c entities.Commit) ([]entities.Status, error) {
		return client.Status(ctx, token, c)
	})

	result := synthesizeClosures(old, repos, prsByRepo)

	for _, prs := range prsByRepo {
		for _, pr := range prs {
			result = result.ReplacePR(pr)
		}
	}
	for _, refs := range refsByRepo {
		for _, r := range refs {
			result = result.ReplaceRef(r)
		}
	}
	for _, c := range commits {
		result = result.AddCommit(c)
	}
	for _, statuses := range statusesByCommit {
		for _, st := range statuses {
			result = result.ReplaceStatus(st)
		}
	}

	return result, nil
}

// synthesizeClosures marks every PR in old that is Open, belongs to a
// repo we just queried, and did not come back in the fetched open set,
// as Closed (spec.md §4.4 step 5 — the Hub API only reports open PRs;
// closure is inferred by absence).
func synthesizeClosures(old snapshot.Snapshot, repos []entities.Repo, fetched map[entities.Repo][]entities.PullRequest) snapshot.Snapshot {
	queried := make(map[entities.Repo]struct{}, len(repos))
	for _, r := range repos {
		queried[r] = struct{}{}
	}
	stillOpen := map[prKey]struct{}{}
	for _, prs := range fetched {
		for _, pr := range prs {
			stillOpen[prKey{repo: pr.Repo(), number: pr.Number}] = struct{}{}
		}
	}

	result := old
	for _, p := range old.PRs() {
		if p.State != entities.PROpen {
			continue
		}
		if _, inScope := queried[p.Repo()]; !inScope {
			continue
		}
		if _, open := stillOpen[prKey{repo: p.Repo(), number: p.Number}]; open {
			continue
		}
		closed := p
		closed.State = entities.PRClosed
		result = result.ReplacePR(closed)
	}
	return result
}

// fetchPerRepo runs fn for every repo concurrently via errgroup, keyed by
// repo. A failing call is logged under what and contributes no entries;
// it never aborts the group (spec.md §4.4: "per-repo failures... do not
// abort" — each goroutine recovers its own error rather than returning it
// to the group, since errgroup.Wait aborts on first returned error).
func fetchPerRepo[T any](ctx context.Context, logger *slog.Logger, repos []entities.Repo, what string, fn func(context.Context, entities.Repo) ([]T, error)) map[entities.Repo][]T {
	out := make(map[entities.Repo][]T, len(repos))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range repos {
		r := r
		g.Go(func() error {
			items, err := fn(gctx, r)
			if err != nil {
				logger.Warn("fetch failed", "what", what, "repo", r, "err", err)
				return nil
			}
			mu.Lock()
			out[r] = items
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// fetchPerCommit mirrors fetchPerRepo for the per-commit status fan-out
// (spec.md §4.4 step 4).
func fetchPerCommit[T any](ctx context.Context, logger *slog.Logger, commits []entities.Commit, fn func(context.Context, entities.Commit) ([]T, error)) map[entities.Commit][]T {
	out := make(map[entities.Commit][]T, len(commits))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range commits {
		c := c
		g.Go(func() error {
			items, err := fn(gctx, c)
			if err != nil {
				logger.Warn("fetch failed", "what", "statuses", "commit", c, "err", err)
				return nil
			}
			mu.Lock()
			out[c] = items
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
