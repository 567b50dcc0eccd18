package engine

import (
	"context"
	"fmt"

	"github.com/bjulian5/syncbridge/internal/store"
)

const readmeContent = "This branch mirrors Hub state maintained by the sync bridge.\n"

// initSync implements spec.md §4.7's init_sync: ensure both branches
// exist and share an ancestor before any tick runs.
func initSync(ctx context.Context, pub, priv *store.Branch) error {
	pubExists := pub.Exists()
	privExists := priv.Exists()

	switch {
	case !pubExists && !privExists:
		tx, err := priv.Transaction(ctx)
		if err != nil {
			return fmt.Errorf("engine: init sync: open priv: %w", err)
		}
		if err := tx.CreateOrReplaceFile("README.md", []byte(readmeContent)); err != nil {
			_ = tx.Abort(ctx)
			return fmt.Errorf("engine: init sync: write readme: %w", err)
		}
		head, err := tx.Commit(ctx, "Initial commit")
		if err != nil {
			return fmt.Errorf("engine: init sync: commit priv: %w", err)
		}
		if err := pub.FastForward(ctx, head); err != nil {
			return fmt.Errorf("engine: init sync: fast-forward pub: %w", err)
		}
		return nil

	case !pubExists && privExists:
		head, err := priv.Head(ctx)
		if err != nil {
			return fmt.Errorf("engine: init sync: %w", err)
		}
		return pub.FastForward(ctx, head)

	case pubExists && !privExists:
		head, err := pub.Head(ctx)
		if err != nil {
			return fmt.Errorf("engine: init sync: %w", err)
		}
		return priv.FastForward(ctx, head)

	default:
		return nil
	}
}
