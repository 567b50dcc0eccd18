package convert

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjulian5/syncbridge/internal/entities"
	"github.com/bjulian5/syncbridge/internal/snapshot"
	"github.com/bjulian5/syncbridge/internal/store"
)

func newRepo(t *testing.T) entities.Repo {
	r, err := entities.NewRepo("alice", "proj")
	require.NoError(t, err)
	return r
}

func commitHeadOf(t *testing.T, ctx context.Context, br *store.Branch) (store.Tree, store.CommitID) {
	t.Helper()
	head, err := br.Head(ctx)
	require.NoError(t, err)
	tree, err := br.Tree(ctx, head)
	require.NoError(t, err)
	return tree, head
}

func TestRoundTripOpenPRAndStatus(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	pr := entities.PullRequest{Head: entities.Commit{Repo: repo, ID: "deadbeef"}, Number: 7, State: entities.PROpen, Title: "add x"}
	st := entities.Status{Commit: pr.Head, Context: entities.Context{"ci", "build"}, State: entities.StatusSuccess}
	want := snapshot.Empty().AddPR(pr).AddStatus(st)

	repository := store.NewRepository()
	br := repository.Branch("priv")
	tx, err := br.Transaction(ctx)
	require.NoError(t, err)
	require.NoError(t, WriteSnapshot(tx, want))
	_, err = tx.Commit(ctx, "sync")
	require.NoError(t, err)

	tree, _ := commitHeadOf(t, ctx, br)
	got, err := ReadSnapshot(tree)
	require.NoError(t, err)
	assert.True(t, snapshot.Equal(want, got))
}

func TestClosedPRsAreNotPersisted(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	openPR := entities.PullRequest{Head: entities.Commit{Repo: repo, ID: "one"}, Number: 1, State: entities.PROpen, Title: "open one"}
	closedPR := entities.PullRequest{Head: entities.Commit{Repo: repo, ID: "two"}, Number: 2, State: entities.PRClosed, Title: "closed two"}
	s := snapshot.Empty().AddPR(openPR).AddPR(closedPR)

	repository := store.NewRepository()
	br := repository.Branch("priv")
	tx, err := br.Transaction(ctx)
	require.NoError(t, err)
	require.NoError(t, WriteSnapshot(tx, s))
	_, err = tx.Commit(ctx, "sync")
	require.NoError(t, err)

	tree, _ := commitHeadOf(t, ctx, br)
	got, err := ReadSnapshot(tree)
	require.NoError(t, err)

	_, ok := got.LookupPR(repo, 2)
	assert.False(t, ok, "closed PRs must not survive a write/read round trip")
	_, ok = got.LookupPR(repo, 1)
	assert.True(t, ok)
}

func TestRefHeadNotRequiredInCommits(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	ref := entities.Ref{Head: entities.Commit{Repo: repo, ID: "feedface"}, Name: entities.RefName{"heads", "main"}}
	s := snapshot.Empty().AddRef(ref)

	repository := store.NewRepository()
	br := repository.Branch("priv")
	tx, err := br.Transaction(ctx)
	require.NoError(t, err)
	require.NoError(t, WriteSnapshot(tx, s))
	_, err = tx.Commit(ctx, "sync")
	require.NoError(t, err)

	tree, _ := commitHeadOf(t, ctx, br)
	got, err := ReadSnapshot(tree)
	require.NoError(t, err)

	require.Len(t, got.Refs(), 1)
	assert.False(t, got.HasCommit(ref.Head))
}

func TestInvalidStatusStateAbortsRebuild(t *testing.T) {
	ctx := context.Background()
	repository := store.NewRepository()
	br := repository.Branch("priv")
	tx, err := br.Transaction(ctx)
	require.NoError(t, err)

	require.NoError(t, tx.CreateOrReplaceFile("alice/proj/commit/deadbeef/status/ci/build/state", []byte("bogus\n")))
	_, err = tx.Commit(ctx, "bad state")
	require.NoError(t, err)

	tree, _ := commitHeadOf(t, ctx, br)
	_, err = ReadSnapshot(tree)
	require.Error(t, err)
	var convErr *ConversionError
	assert.ErrorAs(t, err, &convErr)
}

func TestApplyDiffMatchesFullRebuild(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	repository := store.NewRepository()
	br := repository.Branch("priv")

	tx1, err := br.Transaction(ctx)
	require.NoError(t, err)
	pr := entities.PullRequest{Head: entities.Commit{Repo: repo, ID: "deadbeef"}, Number: 7, State: entities.PROpen, Title: "add x"}
	st := entities.Status{Commit: pr.Head, Context: entities.Context{"ci", "build"}, State: entities.StatusPending}
	old := snapshot.Empty().AddPR(pr).AddStatus(st)
	require.NoError(t, WriteSnapshot(tx1, old))
	oldHead, err := tx1.Commit(ctx, "first")
	require.NoError(t, err)

	tx2, err := br.Transaction(ctx)
	require.NoError(t, err)
	st2 := entities.Status{Commit: pr.Head, Context: entities.Context{"ci", "build"}, State: entities.StatusSuccess}
	require.NoError(t, UpdateStatus(tx2, repo, st2))
	diffs, err := tx2.Diff(ctx, oldHead)
	require.NoError(t, err)
	_, err = tx2.Commit(ctx, "second")
	require.NoError(t, err)

	newTree, _ := commitHeadOf(t, ctx, br)

	incremental, err := ApplyDiff(old, newTree, diffs)
	require.NoError(t, err)

	full, err := ReadSnapshot(newTree)
	require.NoError(t, err)

	assert.True(t, snapshot.Equal(incremental, full))
	gotSt, ok := incremental.LookupStatus(pr.Head, entities.Context{"ci", "build"})
	require.True(t, ok)
	assert.Equal(t, entities.StatusSuccess, gotSt.State)
}

func TestClassifyCommitMarkerIsUnknownNotCommitMutation(t *testing.T) {
	c := classify("alice/proj/commit/deadbeef/exists")
	assert.Equal(t, changeUnknown, c.kind)
}

func TestClassifyShallowerThanRepoIsIgnored(t *testing.T) {
	c := classify("alice")
	assert.Equal(t, changeIgnored, c.kind)
}

func TestClassifyPRStatusRef(t *testing.T) {
	assert.Equal(t, changePR, classify("alice/proj/pr/7/state").kind)
	assert.Equal(t, changeStatus, classify("alice/proj/commit/deadbeef/status/ci/build/state").kind)
	assert.Equal(t, changeRef, classify("alice/proj/ref/heads/main/head").kind)
	assert.Equal(t, changeUnknown, classify("alice/proj/misc/foo").kind)
}
