package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjulian5/syncbridge/internal/entities"
)

func repo(t *testing.T, user, name string) entities.Repo {
	r, err := entities.NewRepo(user, name)
	require.NoError(t, err)
	return r
}

func TestAddPRInsertsCommitAndRepo(t *testing.T) {
	r := repo(t, "alice", "proj")
	head := entities.Commit{Repo: r, ID: "deadbeef"}
	pr := entities.PullRequest{Head: head, Number: 7, State: entities.PROpen, Title: "add x"}

	s := Empty().AddPR(pr)

	require.NoError(t, s.Validate())
	assert.True(t, s.HasRepo(r))
	assert.True(t, s.HasCommit(head))
	got, ok := s.LookupPR(r, 7)
	assert.True(t, ok)
	assert.Equal(t, pr, got)
}

func TestAddRefDoesNotInsertCommit(t *testing.T) {
	r := repo(t, "alice", "proj")
	head := entities.Commit{Repo: r, ID: "deadbeef"}
	ref := entities.Ref{Head: head, Name: entities.RefName{"heads", "main"}}

	s := Empty().AddRef(ref)

	require.NoError(t, s.Validate())
	assert.True(t, s.HasRepo(r))
	assert.False(t, s.HasCommit(head), "ref heads are tracked via the ref, not via commits")
}

func TestReplacePREnforcesUniqueIdentity(t *testing.T) {
	r := repo(t, "alice", "proj")
	head1 := entities.Commit{Repo: r, ID: "one"}
	head2 := entities.Commit{Repo: r, ID: "two"}

	s := Empty().AddPR(entities.PullRequest{Head: head1, Number: 7, State: entities.PROpen, Title: "v1"})
	s = s.ReplacePR(entities.PullRequest{Head: head2, Number: 7, State: entities.PRClosed, Title: "v2"})

	assert.Len(t, s.PRs(), 1)
	got, ok := s.LookupPR(r, 7)
	require.True(t, ok)
	assert.Equal(t, "v2", got.Title)
	assert.Equal(t, entities.PRClosed, got.State)
}

func TestUnionIsSetWise(t *testing.T) {
	r := repo(t, "alice", "proj")
	head := entities.Commit{Repo: r, ID: "deadbeef"}
	a := Empty().AddCommit(head)
	b := Empty().AddPR(entities.PullRequest{Head: head, Number: 1, State: entities.PROpen, Title: "t"})

	u := Union(a, b)
	assert.True(t, u.HasCommit(head))
	_, ok := u.LookupPR(r, 1)
	assert.True(t, ok)
}

func TestEqualIgnoresInsertionOrder(t *testing.T) {
	r := repo(t, "alice", "proj")
	c1 := entities.Commit{Repo: r, ID: "one"}
	c2 := entities.Commit{Repo: r, ID: "two"}

	a := Empty().AddCommit(c1).AddCommit(c2)
	b := Empty().AddCommit(c2).AddCommit(c1)

	assert.True(t, Equal(a, b))
}

func TestStatusAndPRDifference(t *testing.T) {
	r := repo(t, "alice", "proj")
	head := entities.Commit{Repo: r, ID: "deadbeef"}
	st := entities.Status{Commit: head, Context: entities.Context{"ci", "build"}, State: entities.StatusSuccess}
	pr := entities.PullRequest{Head: head, Number: 7, State: entities.PROpen, Title: "add x"}

	oldS := Empty()
	newS := Empty().AddStatus(st).AddPR(pr)

	assert.ElementsMatch(t, []entities.Status{st}, StatusDifference(oldS, newS))
	assert.ElementsMatch(t, []entities.PullRequest{pr}, PRDifference(oldS, newS))

	// No difference once old catches up.
	assert.Empty(t, StatusDifference(newS, newS))
	assert.Empty(t, PRDifference(newS, newS))
}

func TestRemoveCommitDoesNotTouchDependents(t *testing.T) {
	r := repo(t, "alice", "proj")
	head := entities.Commit{Repo: r, ID: "deadbeef"}
	pr := entities.PullRequest{Head: head, Number: 7, State: entities.PROpen, Title: "add x"}

	s := Empty().AddPR(pr)
	s = s.RemoveCommit(r, "deadbeef")

	assert.False(t, s.HasCommit(head))
	_, ok := s.LookupPR(r, 7)
	assert.True(t, ok, "remove_commit must not cascade to dependents")
	// Snapshot invariant is now (intentionally) violated; Validate should say so.
	assert.Error(t, s.Validate())
}
