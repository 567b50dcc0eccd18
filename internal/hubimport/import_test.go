package hubimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjulian5/syncbridge/internal/entities"
	"github.com/bjulian5/syncbridge/internal/snapshot"
)

func testRepo(t *testing.T, name string) entities.Repo {
	r, err := entities.NewRepo("alice", name)
	require.NoError(t, err)
	return r
}

func TestSynthesizeClosuresClosesAbsentOpenPR(t *testing.T) {
	r := testRepo(t, "proj")
	head := entities.Commit{Repo: r, ID: "deadbeef"}
	pr := entities.PullRequest{Head: head, Number: 7, State: entities.PROpen, Title: "add x"}
	old := snapshot.Empty().AddPR(pr)

	result := synthesizeClosures(old, []entities.Repo{r}, map[entities.Repo][]entities.PullRequest{})

	got, ok := result.LookupPR(r, 7)
	require.True(t, ok)
	assert.Equal(t, entities.PRClosed, got.State)
}

func TestSynthesizeClosuresLeavesStillOpenPR(t *testing.T) {
	r := testRepo(t, "proj")
	head := entities.Commit{Repo: r, ID: "deadbeef"}
	pr := entities.PullRequest{Head: head, Number: 7, State: entities.PROpen, Title: "add x"}
	old := snapshot.Empty().AddPR(pr)

	result := synthesizeClosures(old, []entities.Repo{r}, map[entities.Repo][]entities.PullRequest{r: {pr}})

	got, ok := result.LookupPR(r, 7)
	require.True(t, ok)
	assert.Equal(t, entities.PROpen, got.State)
}

func TestSynthesizeClosuresIgnoresReposNotQueried(t *testing.T) {
	r := testRepo(t, "proj")
	other := testRepo(t, "other")
	head := entities.Commit{Repo: other, ID: "deadbeef"}
	pr := entities.PullRequest{Head: head, Number: 3, State: entities.PROpen, Title: "untouched"}
	old := snapshot.Empty().AddPR(pr)

	// only r was queried this round; other's PR must be left alone.
	result := synthesizeClosures(old, []entities.Repo{r}, map[entities.Repo][]entities.PullRequest{})

	got, ok := result.LookupPR(other, 3)
	require.True(t, ok)
	assert.Equal(t, entities.PROpen, got.State)
}
