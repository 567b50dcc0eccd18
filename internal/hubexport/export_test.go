package hubexport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjulian5/syncbridge/internal/entities"
	"github.com/bjulian5/syncbridge/internal/snapshot"
)

func testRepo(t *testing.T) entities.Repo {
	r, err := entities.NewRepo("alice", "proj")
	require.NoError(t, err)
	return r
}

func TestPlanEmitsOnlyChangedStatusesAndPRs(t *testing.T) {
	r := testRepo(t)
	head := entities.Commit{Repo: r, ID: "deadbeef"}
	pr := entities.PullRequest{Head: head, Number: 7, State: entities.PROpen, Title: "add x"}
	st := entities.Status{Commit: head, Context: entities.Context{"ci"}, State: entities.StatusPending}

	old := snapshot.Empty().AddPR(pr).AddStatus(st)

	stUpdated := st
	stUpdated.State = entities.StatusSuccess
	new := snapshot.Empty().AddPR(pr).AddStatus(stUpdated)

	statuses, prs := Plan(old, new)
	require.Len(t, statuses, 1)
	assert.Equal(t, entities.StatusSuccess, statuses[0].State)
	assert.Empty(t, prs)
}

func TestPlanNoChangesEmitsNothing(t *testing.T) {
	r := testRepo(t)
	head := entities.Commit{Repo: r, ID: "deadbeef"}
	pr := entities.PullRequest{Head: head, Number: 7, State: entities.PROpen, Title: "add x"}

	s := snapshot.Empty().AddPR(pr)

	statuses, prs := Plan(s, s)
	assert.Empty(t, statuses)
	assert.Empty(t, prs)
}

type fakeClient struct {
	statusCalls []entities.Status
	prCalls     []entities.PullRequest
	failStatus  bool
}

func (f *fakeClient) UserExists(ctx context.Context, token, user string) (bool, error) { return true, nil }
func (f *fakeClient) RepoExists(ctx context.Context, token string, r entities.Repo) (bool, error) {
	return true, nil
}
func (f *fakeClient) Repos(ctx context.Context, token, user string) ([]entities.Repo, error) {
	return nil, nil
}
func (f *fakeClient) Status(ctx context.Context, token string, c entities.Commit) ([]entities.Status, error) {
	return nil, nil
}
func (f *fakeClient) SetStatus(ctx context.Context, token string, st entities.Status) error {
	if f.failStatus {
		return assert.AnError
	}
	f.statusCalls = append(f.statusCalls, st)
	return nil
}
func (f *fakeClient) SetPR(ctx context.Context, token string, pr entities.PullRequest) error {
	f.prCalls = append(f.prCalls, pr)
	return nil
}
func (f *fakeClient) PRs(ctx context.Context, token string, r entities.Repo) ([]entities.PullRequest, error) {
	return nil, nil
}
func (f *fakeClient) Refs(ctx context.Context, token string, r entities.Repo) ([]entities.Ref, error) {
	return nil, nil
}
func (f *fakeClient) Events(ctx context.Context, token string, r entities.Repo) ([]entities.Event, error) {
	return nil, nil
}

func TestCallAPIDryRunSkipsWrites(t *testing.T) {
	r := testRepo(t)
	head := entities.Commit{Repo: r, ID: "deadbeef"}
	st := entities.Status{Commit: head, Context: entities.Context{"ci"}, State: entities.StatusSuccess}
	new := snapshot.Empty().AddStatus(st)

	client := &fakeClient{}
	err := CallAPI(context.Background(), client, "token", snapshot.Empty(), new, true)
	require.NoError(t, err)
	assert.Empty(t, client.statusCalls)
}

func TestCallAPIPushesStatusesAndContinuesOnFailure(t *testing.T) {
	r := testRepo(t)
	head := entities.Commit{Repo: r, ID: "deadbeef"}
	st := entities.Status{Commit: head, Context: entities.Context{"ci"}, State: entities.StatusSuccess}
	pr := entities.PullRequest{Head: head, Number: 1, State: entities.PROpen, Title: "x"}
	new := snapshot.Empty().AddStatus(st).AddPR(pr)

	client := &fakeClient{failStatus: true}
	err := CallAPI(context.Background(), client, "token", snapshot.Empty(), new, false)
	require.NoError(t, err)
	assert.Empty(t, client.statusCalls)
	require.Len(t, client.prCalls, 1)
}
