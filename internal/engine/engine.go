// Package engine implements spec.md §4.7's SyncEngine: branch
// initialization, the first-sync and per-tick sync algorithms, merge and
// prune, and the Once/Repeat run loop that drives them against a Hub
// client and a pair of Store branches.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bjulian5/syncbridge/internal/hub"
	"github.com/bjulian5/syncbridge/internal/store"
)

// Policy selects how Run drives the engine: a single tick, or a
// long-running reactor that ticks on every branch-head change.
type Policy int

const (
	PolicyRepeat Policy = iota
	PolicyOnce
)

// EngineState is the engine's position in spec.md §4.7's state machine.
type EngineState int

const (
	Starting EngineState = iota
	Running
	Terminated
)

func (s EngineState) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Config is the engine's input: which branches to sync, how, and against
// which Hub credential.
type Config struct {
	Policy     Policy
	DryUpdates bool
	Token      string
	Pub        *store.Branch
	Priv       *store.Branch
}

// Engine drives first_sync/sync_once against a Config's two branches. The
// zero value is not usable; construct with New.
type Engine struct {
	cfg    Config
	client hub.Client
	logger *slog.Logger

	mu     sync.Mutex
	state  EngineState
	result Result
}

// New constructs an Engine in the Starting state.
func New(cfg Config, client hub.Client) *Engine {
	return &Engine{
		cfg:    cfg,
		client: client,
		logger: slog.Default().With("component", "engine"),
		state:  Starting,
	}
}

// State reports the engine's current state machine position.
func (e *Engine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Run dispatches to the Once or Repeat run policy after ensuring both
// branches exist and share an ancestor (spec.md §4.7's init_sync). ctx
// cancellation is the "switch" of spec.md §5: it stops the Repeat
// reactor's watchers and wait, and aborts a Once tick in flight via its
// Store transactions unwinding.
func (e *Engine) Run(ctx context.Context) error {
	if err := initSync(ctx, e.cfg.Pub, e.cfg.Priv); err != nil {
		return fmt.Errorf("engine: run: %w", err)
	}

	switch e.cfg.Policy {
	case PolicyOnce:
		err := e.tickOnce(ctx)
		e.setState(Terminated)
		return err
	default:
		return e.runReactor(ctx)
	}
}

// tickOnce runs exactly one sync tick: first_sync while Starting,
// sync_once once Running. On success the engine's state advances to
// Running and its Result baseline is updated for the next tick.
func (e *Engine) tickOnce(ctx context.Context) error {
	e.mu.Lock()
	state := e.state
	old := e.result
	e.mu.Unlock()

	var result Result
	var err error
	if state == Starting {
		result, err = firstSync(ctx, e.client, e.cfg.Token, e.cfg.Pub, e.cfg.Priv, e.cfg.DryUpdates)
	} else {
		result, err = syncOnce(ctx, e.client, e.cfg.Token, e.cfg.Pub, e.cfg.Priv, old, e.cfg.DryUpdates)
	}
	if err != nil {
		e.logger.Error("sync tick failed", "state", state, "err", err)
		return err
	}

	e.mu.Lock()
	e.result = result
	e.state = Running
	e.mu.Unlock()
	return nil
}

func (e *Engine) setState(s EngineState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}
