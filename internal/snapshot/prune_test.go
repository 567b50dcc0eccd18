package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjulian5/syncbridge/internal/entities"
)

func TestPruneClosedPRAndUnreferencedCommit(t *testing.T) {
	r := repo(t, "alice", "proj")
	head := entities.Commit{Repo: r, ID: "deadbeef"}
	pr := entities.PullRequest{Head: head, Number: 7, State: entities.PRClosed, Title: "add x"}

	s := Empty().AddPR(pr)

	res := Prune(s)
	require.False(t, res.IsClean)
	assert.ElementsMatch(t, []entities.PullRequest{pr}, res.RemovedPRs)
	assert.ElementsMatch(t, []entities.Commit{head}, res.RemovedCommits)

	_, ok := res.Kept.LookupPR(r, 7)
	assert.False(t, ok)
	assert.False(t, res.Kept.HasCommit(head))
	assert.True(t, res.Kept.HasRepo(r), "prune never drops the repo itself")
}

func TestPruneKeepsOpenPRHeadAndStatus(t *testing.T) {
	r := repo(t, "alice", "proj")
	head := entities.Commit{Repo: r, ID: "deadbeef"}
	pr := entities.PullRequest{Head: head, Number: 7, State: entities.PROpen, Title: "add x"}
	st := entities.Status{Commit: head, Context: entities.Context{"ci", "build"}, State: entities.StatusSuccess}

	s := Empty().AddPR(pr).AddStatus(st)

	res := Prune(s)
	assert.True(t, res.IsClean)
	assert.True(t, Equal(res.Kept, s))
}

func TestPruneCommitReachabilityIgnoresRefs(t *testing.T) {
	// spec.md §9: a commit that is a ref head but carries no status is
	// pruned from `commits`; the ref itself is untouched because ref
	// heads are tracked independently of the commit set.
	r := repo(t, "alice", "proj")
	head := entities.Commit{Repo: r, ID: "deadbeef"}
	ref := entities.Ref{Head: head, Name: entities.RefName{"heads", "main"}}

	s := Empty().AddRef(ref).AddCommit(head)

	res := Prune(s)
	require.False(t, res.IsClean, "the bare commit has no open status, so it should be removed")
	assert.ElementsMatch(t, []entities.Commit{head}, res.RemovedCommits)

	got, ok := res.Kept.LookupRef(r, ref.Name)
	assert.True(t, ok)
	assert.Equal(t, head, got.Head, "the ref itself survives pruning")
	assert.False(t, res.Kept.HasCommit(head))
}

func TestPruneIdempotent(t *testing.T) {
	r := repo(t, "alice", "proj")
	head := entities.Commit{Repo: r, ID: "deadbeef"}
	pr := entities.PullRequest{Head: head, Number: 7, State: entities.PRClosed, Title: "add x"}

	s := Empty().AddPR(pr)

	first := Prune(s)
	second := Prune(first.Kept)
	assert.True(t, second.IsClean)
	assert.True(t, Equal(second.Kept, first.Kept))
}

func TestPruneClosedStatusesAreNotReportedButDropped(t *testing.T) {
	r := repo(t, "alice", "proj")
	openHead := entities.Commit{Repo: r, ID: "open"}
	closedHead := entities.Commit{Repo: r, ID: "closed"}
	openPR := entities.PullRequest{Head: openHead, Number: 1, State: entities.PROpen, Title: "open"}
	openSt := entities.Status{Commit: openHead, Context: entities.Context{"ci"}, State: entities.StatusSuccess}
	closedSt := entities.Status{Commit: closedHead, Context: entities.Context{"ci"}, State: entities.StatusFailure}

	s := Empty().AddPR(openPR).AddStatus(openSt).AddStatus(closedSt)

	res := Prune(s)
	require.False(t, res.IsClean)
	assert.Empty(t, res.RemovedPRs, "only the closed status's commit should be pruned here")
	assert.ElementsMatch(t, []entities.Commit{closedHead}, res.RemovedCommits)

	_, ok := res.Kept.LookupStatus(closedHead, entities.Context{"ci"})
	assert.False(t, ok, "statuses for pruned commits are dropped from the Store representation")
}
