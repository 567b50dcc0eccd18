package branchview

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bjulian5/syncbridge/internal/convert"
	"github.com/bjulian5/syncbridge/internal/entities"
	"github.com/bjulian5/syncbridge/internal/store"
)

func bootstrapBranch(t *testing.T, ctx context.Context, br *store.Branch) {
	tx, err := br.Transaction(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateOrReplaceFile("README.md", []byte("hello\n")))
	_, err = tx.Commit(ctx, "initial")
	require.NoError(t, err)
}

func TestOpenErrorsOnZeroParents(t *testing.T) {
	ctx := context.Background()
	repo := store.NewRepository()
	br := repo.Branch("priv")

	_, err := Open(ctx, br, nil)
	require.Error(t, err)
}

func TestOpenFullRebuildReadsExistingPR(t *testing.T) {
	ctx := context.Background()
	repo := store.NewRepository()
	br := repo.Branch("priv")
	bootstrapBranch(t, ctx, br)

	r, err := entities.NewRepo("alice", "proj")
	require.NoError(t, err)
	head := entities.Commit{Repo: r, ID: "deadbeef"}
	pr := entities.PullRequest{Head: head, Number: 7, State: entities.PROpen, Title: "add x"}

	tx, err := br.Transaction(ctx)
	require.NoError(t, err)
	require.NoError(t, convert.UpdatePR(tx, r, pr))
	_, err = tx.Commit(ctx, "add pr")
	require.NoError(t, err)

	view, err := Open(ctx, br, nil)
	require.NoError(t, err)
	defer view.Abort(ctx)

	got, ok := view.Snapshot.LookupPR(r, 7)
	require.True(t, ok)
	require.Equal(t, pr, got)
}

func TestOpenIncrementalAppliesDiffFromPrior(t *testing.T) {
	ctx := context.Background()
	repo := store.NewRepository()
	br := repo.Branch("priv")
	bootstrapBranch(t, ctx, br)

	first, err := Open(ctx, br, nil)
	require.NoError(t, err)
	prior := first.AsPrior()
	require.NoError(t, first.Abort(ctx))

	r, err := entities.NewRepo("alice", "proj")
	require.NoError(t, err)
	head := entities.Commit{Repo: r, ID: "deadbeef"}
	pr := entities.PullRequest{Head: head, Number: 7, State: entities.PROpen, Title: "add x"}

	tx, err := br.Transaction(ctx)
	require.NoError(t, err)
	require.NoError(t, convert.UpdatePR(tx, r, pr))
	_, err = tx.Commit(ctx, "add pr")
	require.NoError(t, err)

	view, err := Open(ctx, br, &prior)
	require.NoError(t, err)
	defer view.Abort(ctx)

	got, ok := view.Snapshot.LookupPR(r, 7)
	require.True(t, ok)
	require.Equal(t, pr, got)
}

func TestCommitAdvancesHead(t *testing.T) {
	ctx := context.Background()
	repo := store.NewRepository()
	br := repo.Branch("priv")
	bootstrapBranch(t, ctx, br)

	view, err := Open(ctx, br, nil)
	require.NoError(t, err)
	require.NoError(t, view.Tx.CreateOrReplaceFile("x/y", []byte("z\n")))

	newHead, err := view.Commit(ctx, "add file")
	require.NoError(t, err)
	require.NotEqual(t, view.Head, newHead)

	branchHead, err := br.Head(ctx)
	require.NoError(t, err)
	require.Equal(t, newHead, branchHead)
}
