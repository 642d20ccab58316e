// Package engramcmder
package engramcmder

import (
	backfillcmder "github.com/kimbleai/engram/cmd/engram/backfill"
	configcmder "github.com/kimbleai/engram/cmd/engram/config"
	ingestcmder "github.com/kimbleai/engram/cmd/engram/ingest"
	initcmder "github.com/kimbleai/engram/cmd/engram/init"
	recordcmder "github.com/kimbleai/engram/cmd/engram/record"
	retrievecmder "github.com/kimbleai/engram/cmd/engram/retrieve"
	versioncmder "github.com/kimbleai/engram/cmd/version"
	"github.com/spf13/cobra"
)

const engramLongDesc string = `Engram is a retrieval-augmented memory engine.

Record what your assistant reads and says, then retrieve the most
relevant memory as grounding context for the next question:
  engram ingest       Store a document
  engram record       Store a conversation exchange
  engram retrieve     Retrieve relevant memory for a query
  engram backfill     Embed items stored while the provider was down`

const engramShortDesc string = "Engram - Conversational Memory"

func NewEngramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engram",
		Short: engramShortDesc,
		Long:  engramLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .engram/ config directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(recordcmder.NewRecordCmd())
	cmd.AddCommand(retrievecmder.NewRetrieveCmd())
	cmd.AddCommand(backfillcmder.NewBackfillCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
