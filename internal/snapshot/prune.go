package snapshot

import (
	"sort"

	"github.com/bjulian5/syncbridge/internal/entities"
)

// CleanupKind tags the result of pruning a single repo.
type CleanupKind int

const (
	Clean CleanupKind = iota
	Closed
)

// RepoCleanup describes what a single repo's prune pass removed.
type RepoCleanup struct {
	Repo           entities.Repo
	Kind           CleanupKind
	RemovedPRs     []entities.PullRequest
	RemovedCommits []entities.Commit
}

// Result is the aggregate outcome of pruning a whole snapshot: the kept
// snapshot, plus the union of every repo's removed PRs and commits.
// IsClean is true iff every repo pruned clean (kept == input, structurally).
type Result struct {
	Kept           Snapshot
	IsClean        bool
	RemovedPRs     []entities.PullRequest
	RemovedCommits []entities.Commit
}

// Prune discards, per repo, PRs and commits reachable only through closed
// pull requests. See spec.md §4.2 for the exact reachability rules;
// summarized:
//
//  1. Partition PRs into open/closed by state.
//  2. A status is reachable iff its commit is some open PR's head, or some
//     ref's head.
//  3. A commit is reachable iff it is the subject of some *open* status —
//     note this intentionally ignores ref reachability (spec.md §9's
//     documented, preserved quirk): a commit that is
//     only a ref head, with no status pointing at it, is pruned from the
//     commit set even though the ref itself survives untouched.
//
// Statuses are never reported as removed in RepoCleanup: the Hub API has
// no status-deletion call, so dropping a status is purely a Store-side
// effect, invisible to HubExport.
func Prune(s Snapshot) Result {
	cleanups := make(map[entities.Repo]RepoCleanup)
	kept := Empty()

	for _, repo := range s.Repos() {
		cleanups[repo] = pruneRepo(s, repo)
	}

	allClean := true
	var removedPRs []entities.PullRequest
	var removedCommits []entities.Commit
	for _, repo := range s.Repos() {
		c := cleanups[repo]
		kept = Union(kept, c.keptSnapshotFor(s, repo))
		if c.Kind != Clean {
			allClean = false
			removedPRs = append(removedPRs, c.RemovedPRs...)
			removedCommits = append(removedCommits, c.RemovedCommits...)
		}
	}

	sort.Slice(removedPRs, func(i, j int) bool { return removedPRs[i].Less(removedPRs[j]) })
	sort.Slice(removedCommits, func(i, j int) bool { return removedCommits[i].Less(removedCommits[j]) })

	if allClean {
		// Clean post-condition: kept == input, structurally.
		return Result{Kept: s, IsClean: true}
	}
	return Result{Kept: kept, IsClean: false, RemovedPRs: removedPRs, RemovedCommits: removedCommits}
}

// pruneRepo computes the per-repo partition described in spec.md §4.2,
// steps 1-6, returning only the bookkeeping (which PRs/commits survive and
// which are removed); the caller reassembles the kept snapshot.
func pruneRepo(s Snapshot, repo entities.Repo) RepoCleanup {
	var openPRs, closedPRs []entities.PullRequest
	for _, p := range s.PRs() {
		if p.Repo() != repo {
			continue
		}
		if p.State == entities.PROpen {
			openPRs = append(openPRs, p)
		} else {
			closedPRs = append(closedPRs, p)
		}
	}

	openHeads := make(map[entities.Commit]struct{}, len(openPRs))
	for _, p := range openPRs {
		openHeads[p.Head] = struct{}{}
	}
	refHeads := make(map[entities.Commit]struct{})
	for _, r := range s.Refs() {
		if r.Repo() == repo {
			refHeads[r.Head] = struct{}{}
		}
	}

	var openStatuses, closedStatuses []entities.Status
	for _, st := range s.Statuses() {
		if st.Commit.Repo != repo {
			continue
		}
		_, isOpenHead := openHeads[st.Commit]
		_, isRefHead := refHeads[st.Commit]
		if isOpenHead || isRefHead {
			openStatuses = append(openStatuses, st)
		} else {
			closedStatuses = append(closedStatuses, st)
		}
	}

	// A commit is reachable iff it is the subject of some open status.
	// (See spec.md §9: this intentionally does not consider refs.)
	openCommitSubjects := make(map[entities.Commit]struct{}, len(openStatuses))
	for _, st := range openStatuses {
		openCommitSubjects[st.Commit] = struct{}{}
	}

	var removedCommits []entities.Commit
	for _, c := range s.Commits() {
		if c.Repo != repo {
			continue
		}
		if _, reachable := openCommitSubjects[c]; !reachable {
			removedCommits = append(removedCommits, c)
		}
	}

	_ = closedStatuses // statuses are never reported as removed (see doc comment)

	if len(closedPRs) == 0 && len(removedCommits) == 0 {
		return RepoCleanup{Repo: repo, Kind: Clean}
	}
	return RepoCleanup{
		Repo:           repo,
		Kind:           Closed,
		RemovedPRs:     closedPRs,
		RemovedCommits: removedCommits,
	}
}

// keptSnapshotFor rebuilds this repo's surviving slice of the snapshot:
// open PRs, reachable statuses, refs, and reachable commits.
func (c RepoCleanup) keptSnapshotFor(s Snapshot, repo entities.Repo) Snapshot {
	out := Empty()
	out = out.addRepo(repo)
	removedCommitSet := make(map[entities.Commit]struct{}, len(c.RemovedCommits))
	for _, rc := range c.RemovedCommits {
		removedCommitSet[rc] = struct{}{}
	}
	removedPRSet := make(map[int]struct{}, len(c.RemovedPRs))
	for _, rp := range c.RemovedPRs {
		removedPRSet[rp.Number] = struct{}{}
	}

	for _, p := range s.PRs() {
		if p.Repo() != repo {
			continue
		}
		if _, removed := removedPRSet[p.Number]; removed {
			continue
		}
		out = out.AddPR(p)
	}
	for _, r := range s.Refs() {
		if r.Repo() != repo {
			continue
		}
		out = out.AddRef(r)
	}
	for _, st := range s.Statuses() {
		if st.Commit.Repo != repo {
			continue
		}
		if _, removed := removedCommitSet[st.Commit]; removed {
			continue
		}
		out = out.AddStatus(st)
	}
	for _, cm := range s.Commits() {
		if cm.Repo != repo {
			continue
		}
		if _, removed := removedCommitSet[cm]; removed {
			continue
		}
		out = out.AddCommit(cm)
	}
	return out
}
