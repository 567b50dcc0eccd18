package engine

import (
	"context"
	"sync"

	"github.com/bjulian5/syncbridge/internal/store"
)

// runReactor implements spec.md §5's Repeat policy: two branch-head
// watchers and a reactor loop sharing one mutex-guarded "dirty" flag and
// condition variable, generalizing the ticker-driven poll loop this
// package's daemon-style ancestor used into a loop that wakes only when
// a branch actually changed.
func (e *Engine) runReactor(ctx context.Context) error {
	var mu sync.Mutex
	cond := sync.NewCond(&mu)
	dirty := true // run first_sync immediately on startup
	done := false

	watch := func(br *store.Branch) {
		for {
			if err := br.WaitForHead(ctx, nil); err != nil {
				return
			}
			mu.Lock()
			dirty = true
			cond.Signal()
			mu.Unlock()
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); watch(e.cfg.Pub) }()
	go func() { defer wg.Done(); watch(e.cfg.Priv) }()

	go func() {
		<-ctx.Done()
		mu.Lock()
		done = true
		cond.Broadcast()
		mu.Unlock()
	}()

	for {
		mu.Lock()
		for !dirty && !done {
			cond.Wait()
		}
		if done {
			mu.Unlock()
			break
		}
		dirty = false
		mu.Unlock()

		if err := e.tickOnce(ctx); err != nil {
			e.logger.Error("reactor tick failed, will retry on next signal", "err", err)
		}
	}

	e.setState(Terminated)
	wg.Wait()
	return ctx.Err()
}
