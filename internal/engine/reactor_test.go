package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bjulian5/syncbridge/internal/store"
)

// TestRunReactorTicksThenStopsOnCancel drives the Repeat policy's watcher
// loop end to end: it must run one tick on startup (dirty starts true)
// and then return once its context is cancelled, without a branch head
// ever changing.
func TestRunReactorTicksThenStopsOnCancel(t *testing.T) {
	repo := store.NewRepository()
	pub, priv := repo.Branch("pub"), repo.Branch("priv")
	require.NoError(t, initSync(context.Background(), pub, priv))

	eng := New(Config{Policy: PolicyRepeat, Pub: pub, Priv: priv}, &fakeHubClient{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- eng.Run(ctx) }()

	require.Eventually(t, func() bool {
		return eng.State() == Running
	}, time.Second, time.Millisecond, "engine never completed its first tick")

	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("reactor did not stop after cancel")
	}
	require.Equal(t, Terminated, eng.State())
}
