// Package retrievecmder provides the `engram retrieve` CLI command.
package retrievecmder

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kimbleai/engram/cmd/engram/deps"
	"github.com/kimbleai/engram/pkg/assemble"
	"github.com/kimbleai/engram/pkg/cliui"
	"github.com/kimbleai/engram/pkg/memory"
	"github.com/kimbleai/engram/pkg/recall"
	"github.com/kimbleai/engram/pkg/search"
)

const retrieveLongDesc string = `Retrieve the most relevant memory for a query.

Embeds the query, ranks the owner's stored memory by similarity, and
prints an assembled context block with the titles it was built from.
Use --quiet to print only the context text, for piping into a prompt.

If the embedding provider is unavailable the command reports a degraded
(empty) result rather than failing.

Examples:
  engram retrieve "What was my 2025 deduction?" --owner alice
  engram retrieve "carbonara recipe" --owner alice --project cooking
  engram retrieve "filing deadline" --owner alice --quiet`

const retrieveShortDesc string = "Retrieve relevant memory for a query"

type retrieveCommander struct {
	owner     string
	project   string
	threshold float64
	topK      int
	maxItems  int
	maxChars  int
	quiet     bool
	debug     bool
}

// NewRetrieveCmd creates the retrieve cobra command.
func NewRetrieveCmd() *cobra.Command {
	cmder := &retrieveCommander{}

	cmd := &cobra.Command{
		Use:   "retrieve <query>",
		Short: retrieveShortDesc,
		Long:  retrieveLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			configDir, _ := cmd.Flags().GetString("config-dir")

			return cmder.run(cmd.Context(), configDir, cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.owner, "owner", "o", "", "Owner whose memory is searched (required)")
	cmd.Flags().StringVarP(&cmder.project, "project", "p", "", "Project to scope the search to")
	cmd.Flags().Float64Var(&cmder.threshold, "threshold", 0, "Minimum similarity score (default from config)")
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 0, "Number of results to rank (default from config)")
	cmd.Flags().IntVar(&cmder.maxItems, "max-items", 0, "Context block cap (default from config)")
	cmd.Flags().IntVar(&cmder.maxChars, "max-chars", 0, "Context character budget (default from config)")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only the context text (for piping)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func (c *retrieveCommander) run(ctx context.Context, configDir string, cmd *cobra.Command, query string) error {
	d, err := deps.Build(ctx, configDir, c.debug)
	if err != nil {
		return err
	}
	defer d.Close()

	searchOpts := search.Options{
		Threshold: d.Cfg.Search.Threshold,
		TopK:      d.Cfg.Search.TopK,
	}
	if cmd.Flags().Changed("threshold") {
		searchOpts.Threshold = c.threshold
	}
	if cmd.Flags().Changed("top") {
		searchOpts.TopK = c.topK
	}

	assembleOpts := assemble.Options{
		MaxItems: d.Cfg.Assemble.MaxItems,
		MaxChars: d.Cfg.Assemble.MaxChars,
	}
	if cmd.Flags().Changed("max-items") {
		assembleOpts.MaxItems = c.maxItems
	}
	if cmd.Flags().Changed("max-chars") {
		assembleOpts.MaxChars = c.maxChars
	}

	recaller, err := recall.NewRecaller(recall.Config{
		Embedder:        d.Embedder,
		Engine:          search.NewEngine(d.Store, d.Logger),
		SearchOptions:   searchOpts,
		AssembleOptions: assembleOpts,
		Logger:          d.Logger,
	})
	if err != nil {
		return err
	}

	scope := memory.Scope{OwnerID: c.owner, ProjectID: c.project}
	start := time.Now()
	result, err := recaller.Retrieve(ctx, scope, query)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if c.quiet {
		if result.Context != "" {
			fmt.Println(result.Context)
		}
		return nil
	}

	if result.Degraded {
		fmt.Println(cliui.DimStyle.Render("Embedding provider unavailable; proceeding without memory."))
		return nil
	}

	if result.UsedCount == 0 {
		fmt.Println("No relevant memory found.")
		return nil
	}

	fmt.Printf("\n%s\n\n%s\n\n",
		cliui.HeaderStyle.Render("Context:"),
		result.Context,
	)

	fmt.Println(cliui.HeaderStyle.Render("Sources:"))
	for i, title := range result.Provenance {
		fmt.Printf("  %s %s\n",
			cliui.RankStyle.Render(fmt.Sprintf("#%d", i+1)),
			cliui.ValueStyle.Render(title),
		)
	}
	fmt.Println()
	fmt.Println(cliui.DimStyle.Render("Retrieved in " + cliui.FormatDuration(elapsed)))

	return nil
}
