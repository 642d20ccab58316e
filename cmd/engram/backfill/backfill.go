// Package backfillcmder provides the `engram backfill` CLI command.
package backfillcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kimbleai/engram/cmd/engram/deps"
	"github.com/kimbleai/engram/pkg/backfill"
	"github.com/kimbleai/engram/pkg/cliui"
	"github.com/kimbleai/engram/pkg/memory"
)

const backfillLongDesc string = `Embed memory items stored while the embedding provider was down.

Scans the owner's items that have no embedding, re-embeds their
canonical text, and writes the embeddings back so the items become
visible to similarity search again.

Examples:
  engram backfill --owner alice
  engram backfill --owner alice --project taxes
  engram backfill --owner alice --dry-run
  engram backfill --owner alice --batch 100`

const backfillShortDesc string = "Embed items stored while the provider was down"

type backfillCommander struct {
	owner   string
	project string
	batch   int
	dryRun  bool
	debug   bool
}

// NewBackfillCmd creates the backfill cobra command.
func NewBackfillCmd() *cobra.Command {
	cmder := &backfillCommander{}

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: backfillShortDesc,
		Long:  backfillLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			configDir, _ := cmd.Flags().GetString("config-dir")

			return cmder.run(cmd.Context(), configDir, cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.owner, "owner", "o", "", "Owner whose items are backfilled (required)")
	cmd.Flags().StringVarP(&cmder.project, "project", "p", "", "Project to scope the backfill to")
	cmd.Flags().IntVar(&cmder.batch, "batch", 0, "Max candidates per run (0 = no limit)")
	cmd.Flags().BoolVar(&cmder.dryRun, "dry-run", false, "Preview candidates without writing")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func (c *backfillCommander) run(ctx context.Context, configDir string, cmd *cobra.Command) error {
	if c.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "Dry run mode, no changes will be written")
	}

	d, err := deps.Build(ctx, configDir, c.debug)
	if err != nil {
		return err
	}
	defer d.Close()

	b, err := backfill.NewBackfiller(d.Store, d.Embedder, backfill.Options{
		BatchSize: c.batch,
		DryRun:    c.dryRun,
	}, d.Logger)
	if err != nil {
		return err
	}

	scope := memory.Scope{OwnerID: c.owner, ProjectID: c.project}
	result, err := b.Run(ctx, scope)
	if err != nil {
		return err
	}

	mark := cliui.SuccessMark
	if result.Failed > 0 {
		mark = cliui.FailMark
	}
	fmt.Fprintf(cmd.OutOrStdout(),
		"%s Scanned %d, backfilled %d, skipped %d, failed %d\n",
		mark, result.Scanned, result.Backfilled, result.Skipped, result.Failed,
	)
	return nil
}
