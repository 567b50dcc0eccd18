package run

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bjulian5/syncbridge/internal/config"
	"github.com/bjulian5/syncbridge/internal/engine"
	"github.com/bjulian5/syncbridge/internal/hub"
	"github.com/bjulian5/syncbridge/internal/store"
	"github.com/bjulian5/syncbridge/internal/ui"
)

// Command starts the sync engine under the Repeat policy: it runs until
// its context is cancelled, ticking on every pub/priv branch-head change.
type Command struct {
	ConfigPath string
	DryRun     bool
}

func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sync engine continuously",
		Long: `Run starts the sync engine under the Repeat policy and blocks until
cancelled (Ctrl-C). It reacts to changes on either the public or private
branch, running one sync tick per change with no overlap.`,
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
		// mergo's empty-value semantics can't tell an explicit --dry-run=false
		// apart from an unset flag, so a boolean CLI override is applied
		// directly rather than round-tripped through mergo.Merge.
		cfg.DryUpdates = c.DryRun
	}
	token, err := cfg.Token()
	if err != nil {
		return err
	}

	repo := store.NewRepository()
	eng := engine.New(engine.Config{
		Policy:     engine.PolicyRepeat,
		DryUpdates: cfg.DryUpdates,
		Token:      token,
		Pub:        repo.Branch(cfg.PubBranch),
		Priv:       repo.Branch(cfg.PrivBranch),
	}, hub.NewCLIClient())

	ui.Infof("starting sync engine (pub=%s priv=%s)", cfg.PubBranch, cfg.PrivBranch)
	if err := eng.Run(ctx); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}
