// Package recordcmder provides the `engram record` CLI command.
package recordcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kimbleai/engram/cmd/engram/deps"
	"github.com/kimbleai/engram/pkg/cliui"
	"github.com/kimbleai/engram/pkg/memory"
	"github.com/kimbleai/engram/pkg/record"
)

const recordLongDesc string = `Store a completed conversation exchange as a memory item.

The exchange is embedded against the query text so that future similar
questions retrieve it; the response is stored as the item's body. If the
embedding provider is down the exchange is stored without an embedding
and picked up by a later backfill.

Examples:
  engram record --owner alice --query "What was my 2025 deduction?" --response "You claimed the standard deduction."
  engram record --owner alice --project taxes -q "Filing deadline?" -r "April 15."`

const recordShortDesc string = "Store a conversation exchange"

type recordCommander struct {
	owner    string
	project  string
	query    string
	response string
	debug    bool
}

// NewRecordCmd creates the record cobra command.
func NewRecordCmd() *cobra.Command {
	cmder := &recordCommander{}

	cmd := &cobra.Command{
		Use:   "record",
		Short: recordShortDesc,
		Long:  recordLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			configDir, _ := cmd.Flags().GetString("config-dir")

			return cmder.run(cmd.Context(), configDir)
		},
	}

	cmd.Flags().StringVarP(&cmder.owner, "owner", "o", "", "Owner the exchange belongs to (required)")
	cmd.Flags().StringVarP(&cmder.project, "project", "p", "", "Project the exchange belongs to")
	cmd.Flags().StringVarP(&cmder.query, "query", "q", "", "Query text of the exchange (required)")
	cmd.Flags().StringVarP(&cmder.response, "response", "r", "", "Response text of the exchange")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

func (c *recordCommander) run(ctx context.Context, configDir string) error {
	d, err := deps.Build(ctx, configDir, c.debug)
	if err != nil {
		return err
	}
	defer d.Close()

	recorder, err := record.NewRecorder(record.Config{
		Store:     d.Store,
		Embedder:  d.Embedder,
		Publisher: d.Publisher,
		Logger:    d.Logger,
	})
	if err != nil {
		return err
	}

	scope := memory.Scope{OwnerID: c.owner, ProjectID: c.project}
	item, err := recorder.RecordExchange(ctx, scope, c.query, c.response)
	if err != nil {
		return err
	}

	fmt.Printf("%s Stored exchange %s (%s)\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(item.Title),
		cliui.DimStyle.Render(item.ID),
	)
	if !item.HasEmbedding() {
		fmt.Println(cliui.DimStyle.Render("  Embedding provider unavailable; run `engram backfill` later."))
	}

	return nil
}
