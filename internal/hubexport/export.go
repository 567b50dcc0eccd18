// Package hubexport implements spec.md §4.5's call_api outbound phase:
// diffing a new snapshot against an old one and issuing the resulting
// Hub write calls.
package hubexport

import (
	"context"
	"log/slog"

	"github.com/bjulian5/syncbridge/internal/entities"
	"github.com/bjulian5/syncbridge/internal/hub"
	"github.com/bjulian5/syncbridge/internal/snapshot"
)

// Plan computes the outbound delta without issuing any calls, so dry-run
// visibility (SPEC_FULL's supplemented status/plan feature) and CallAPI
// itself share one definition of "what would be sent."
func Plan(old, new snapshot.Snapshot) (statuses []entities.Status, prs []entities.PullRequest) {
	return snapshot.StatusDifference(old, new), snapshot.PRDifference(old, new)
}

// CallAPI pushes new's delta against old to the Hub: every changed
// status, then every changed PR. Refs are never pushed outward (spec.md
// §4.5). When dry is true the delta is still computed and logged but no
// write call is made. Per-call failures are logged and do not abort the
// rest of the delta (spec.md §4.5: "Failures are logged, not retried in
// this tick").
func CallAPI(ctx context.Context, client hub.Client, token string, old, new snapshot.Snapshot, dry bool) error {
	logger := slog.Default().With("component", "hub-export")

	statuses, prs := Plan(old, new)
	if dry {
		logger.Info("dry run: skipping outbound calls", "statuses", len(statuses), "prs", len(prs))
		return nil
	}

	for _, st := range statuses {
		if err := client.SetStatus(ctx, token, st); err != nil {
			logger.Error("set status failed", "commit", st.Commit, "context", st.Context.Path(), "err", err)
		}
	}
	for _, pr := range prs {
		if err := client.SetPR(ctx, token, pr); err != nil {
			logger.Error("set pr failed", "repo", pr.Repo(), "number", pr.Number, "err", err)
		}
	}
	return nil
}
