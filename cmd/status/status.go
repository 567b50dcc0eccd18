package status

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bjulian5/syncbridge/internal/config"
	"github.com/bjulian5/syncbridge/internal/entities"
	"github.com/bjulian5/syncbridge/internal/hub"
	"github.com/bjulian5/syncbridge/internal/hubexport"
	"github.com/bjulian5/syncbridge/internal/hubimport"
	"github.com/bjulian5/syncbridge/internal/snapshot"
	"github.com/bjulian5/syncbridge/internal/ui"
)

// Command renders a read-only view of the Hub-side state the engine
// would import, without opening any Store branch or committing anything.
type Command struct {
	ConfigPath string
	Repos      []string
	DryRun     bool
}

func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current Hub-side snapshot",
		Long: `Status imports the current state of the given repos from the Hub and
renders it, without touching any Store branch.

With --dry-run, it instead prints the size of the outbound delta of the
imported state against an empty snapshot (every imported PR and status
counts as new), using the same Plan function the engine uses internally.

Example:
  syncbridge status --repo octocat/hello-world
  syncbridge status --repo octocat/hello-world --dry-run`,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return c.Run(cobraCmd.Context())
		},
	}
	cmd.Flags().StringVar(&c.ConfigPath, "config", "syncbridge.yaml", "path to the bridge config file")
	cmd.Flags().StringSliceVar(&c.Repos, "repo", nil, "repo to inspect, as user/name (repeatable)")
	cmd.Flags().BoolVar(&c.DryRun, "dry-run", false, "show the outbound delta instead of the full snapshot")
	parent.AddCommand(cmd)
}

func (c *Command) Run(ctx context.Context) error {
	if len(c.Repos) == 0 {
		return fmt.Errorf("status: at least one --repo user/name is required")
	}

	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return err
	}
	token, err := cfg.Token()
	if err != nil {
		return err
	}

	repos := make([]entities.Repo, 0, len(c.Repos))
	for _, s := range c.Repos {
		parts := strings.SplitN(s, "/", 2)
		if len(parts) != 2 {
			return fmt.Errorf("status: --repo %q must be user/name", s)
		}
		repo, err := entities.NewRepo(parts[0], parts[1])
		if err != nil {
			return fmt.Errorf("status: --repo %q: %w", s, err)
		}
		repos = append(repos, repo)
	}

	client := hub.NewCLIClient()
	imported, err := hubimport.Import(ctx, client, token, snapshot.Snapshot{}, repos)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	if c.DryRun {
		statuses, prs := hubexport.Plan(snapshot.Snapshot{}, imported)
		ui.Printf("delta against an empty snapshot: %d status update(s), %d PR update(s)\n", len(statuses), len(prs))
		return nil
	}

	ui.Print(ui.RenderSnapshot(imported))
	return nil
}
