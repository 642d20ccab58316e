// Package ingestcmder provides the `engram ingest` CLI command.
package ingestcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kimbleai/engram/cmd/engram/deps"
	"github.com/kimbleai/engram/pkg/cliui"
	"github.com/kimbleai/engram/pkg/memory"
	"github.com/kimbleai/engram/pkg/record"
	"github.com/kimbleai/engram/pkg/worker"
)

const ingestLongDesc string = `Store documents as memory items.

Document bodies are read from files or from stdin. The title defaults
to the file name when --title is not given. Documents are embedded and
become retrievable immediately; if the embedding provider is down they
are stored without an embedding and picked up by a later backfill.

With multiple files the documents are written through the async worker
pool; per-document failures are logged without stopping the run.

Examples:
  engram ingest notes.md --owner alice
  engram ingest report.txt --owner alice --project taxes --title "2025 filing"
  engram ingest docs/*.md --owner alice --project taxes
  cat notes.md | engram ingest - --owner alice --title "Meeting notes"`

const ingestShortDesc string = "Store one or more documents"

type ingestCommander struct {
	owner   string
	project string
	title   string
	debug   bool
}

// NewIngestCmd creates the ingest cobra command.
func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			configDir, _ := cmd.Flags().GetString("config-dir")

			return cmder.run(cmd.Context(), configDir, args)
		},
	}

	cmd.Flags().StringVarP(&cmder.owner, "owner", "o", "", "Owner the documents belong to (required)")
	cmd.Flags().StringVarP(&cmder.project, "project", "p", "", "Project the documents belong to")
	cmd.Flags().StringVarP(&cmder.title, "title", "t", "", "Document title (single file only; default: file name)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func (c *ingestCommander) run(ctx context.Context, configDir string, files []string) error {
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

	if len(files) == 1 {
		return c.ingestOne(ctx, recorder, files[0])
	}
	return c.ingestBulk(recorder, files, d)
}

// ingestOne stores a single document synchronously and reports its id.
func (c *ingestCommander) ingestOne(ctx context.Context, recorder *record.Recorder, file string) error {
	text, title, err := c.readDocument(file)
	if err != nil {
		return err
	}

	scope := memory.Scope{OwnerID: c.owner, ProjectID: c.project}
	item, err := recorder.RecordDocument(ctx, scope, title, text)
	if err != nil {
		return err
	}

	fmt.Printf("%s Stored document %s (%s)\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(item.Title),
		cliui.DimStyle.Render(item.ID),
	)
	if !item.HasEmbedding() {
		fmt.Println(cliui.DimStyle.Render("  Embedding provider unavailable; run `engram backfill` later."))
	}

	return nil
}

// ingestBulk fans the documents out to the async write pool and waits
// for the queue to drain before returning.
func (c *ingestCommander) ingestBulk(recorder *record.Recorder, files []string, d *deps.Deps) error {
	if c.title != "" {
		return fmt.Errorf("--title applies to a single document; bulk titles default to file names")
	}

	pool, err := worker.NewPool(&worker.Config{
		Recorder: recorder,
		Logger:   d.Logger,
	})
	if err != nil {
		return err
	}

	scope := memory.Scope{OwnerID: c.owner, ProjectID: c.project}

	queued := 0
	for _, file := range files {
		err := c.enqueueFile(pool, scope, file)
		fmt.Printf("%s %s\n", cliui.Mark(err), cliui.ValueStyle.Render(file))
		if err != nil {
			fmt.Println(cliui.DimStyle.Render("  " + err.Error()))
			continue
		}
		queued++
	}

	// Close drains the queue; every queued document is written (or its
	// failure logged) before the summary prints.
	pool.Close()

	fmt.Printf("\n%s Processed %d of %d documents\n", cliui.SuccessMark, queued, len(files))
	return nil
}

func (c *ingestCommander) enqueueFile(pool *worker.Pool, scope memory.Scope, file string) error {
	if file == "-" {
		return fmt.Errorf("stdin is only supported for a single document")
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}

	queued := pool.Enqueue(worker.Job{
		Kind:  memory.KindDocument,
		Scope: scope,
		Title: strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)),
		Text:  string(data),
	})
	if !queued {
		return fmt.Errorf("write queue full, document dropped")
	}
	return nil
}

// readDocument returns the document body and resolved title. A file
// argument of "-" reads from stdin and requires --title.
func (c *ingestCommander) readDocument(file string) (text, title string, err error) {
	title = c.title

	if file == "-" {
		if title == "" {
			return "", "", fmt.Errorf("--title is required when reading from stdin")
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), title, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", "", fmt.Errorf("reading document: %w", err)
	}

	if title == "" {
		title = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}

	return string(data), title, nil
}
