package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/registrypulse/registrypulse/internal/registry"
)

var ingestFlags struct {
	name string
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <source-url>",
	Short: "Queue a model for ingestion from a source URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFlags.name, "name", "", "override the artifact name derived from the URL")
}

func runIngest(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	receipt, err := client.Ingest(cmd.Context(), registry.IngestRequest{
		URL:  args[0],
		Name: ingestFlags.name,
	})
	if err != nil {
		if errors.Is(err, registry.ErrDuplicate) {
			return fmt.Errorf("already ingested: %s", args[0])
		}
		return err
	}

	out := cmd.OutOrStdout()
	if receipt.ID != "" {
		fmt.Fprintf(out, "Queued: id=%s status=%s\n", receipt.ID, receipt.Status)
	} else {
		fmt.Fprintln(out, "Queued")
	}
	return nil
}
