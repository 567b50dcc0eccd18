package once

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bjulian5/syncbridge/internal/config"
	"github.com/bjulian5/syncbridge/internal/engine"
	"github.com/bjulian5/syncbridge/internal/hub"
	"github.com/bjulian5/syncbridge/internal/store"
	"github.com/bjulian5/syncbridge/internal/ui"
)

// Command runs exactly one sync tick (first_sync, since every invocation
// starts the engine fresh in the Starting state) and terminates. Intended
// for cron-driven invocation rather than the long-running Repeat policy.
type Command struct {
	ConfigPath string
	DryRun     bool
}

func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single sync tick and exit",
		Long: `Once runs exactly one sync tick under the Once policy and then exits,
regardless of the configured policy in the config file. Useful for
cron-driven invocation where a long-running process isn't wanted.`,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return c.Run(cobraCmd)
		},
	}
	cmd.Flags().StringVar(&c.ConfigPath, "config", "syncbridge.yaml", "path to the bridge config file")
	cmd.Flags().BoolVar(&c.DryRun, "dry-run", false, "override dry_updates from the config file")
	parent.AddCommand(cmd)
}

func (c *Command) Run(cobraCmd *cobra.Command) error {
	ctx := cobraCmd.Context()
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return err
	}
	if cobraCmd.Flags().Changed("dry-run") {
		cfg.DryUpdates = c.DryRun
	}
	token, err := cfg.Token()
	if err != nil {
		return err
	}

	repo := store.NewRepository()
	eng := engine.New(engine.Config{
		Policy:     engine.PolicyOnce,
		DryUpdates: cfg.DryUpdates,
		Token:      token,
		Pub:        repo.Branch(cfg.PubBranch),
		Priv:       repo.Branch(cfg.PrivBranch),
	}, hub.NewCLIClient())

	if err := eng.Run(ctx); err != nil {
		return fmt.Errorf("once: %w", err)
	}
	ui.Success("sync tick complete")
	return nil
}
