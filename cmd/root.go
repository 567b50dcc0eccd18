package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/bjulian5/syncbridge/cmd/once"
	"github.com/bjulian5/syncbridge/cmd/run"
	"github.com/bjulian5/syncbridge/cmd/status"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "syncbridge",
	Short: "Bidirectional sync bridge between a Hub and a Store",
	Long: `syncbridge keeps a Store's pub/priv branches in sync with pull
requests, refs, and commit statuses on a remote Hub, resolving conflicts
between local edits and imported Hub state on every tick.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		log.Fatal(err)
	}
}

func init() {
	// Register all commands
	commands := []Command{
		&run.Command{},
		&once.Command{},
		&status.Command{},
	}

	for _, cmd := range commands {
		cmd.Register(rootCmd)
	}
}
