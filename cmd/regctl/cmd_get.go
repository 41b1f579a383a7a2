package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/registrypulse/registrypulse/internal/registry"
)

var getCmd = &cobra.Command{
	Use:   "get <type> <id>",
	Short: "Show one artifact's full record",
	Args:  cobra.ExactArgs(2),
	RunE:  runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	typ := registry.ArtifactType(args[0])
	if !registry.ValidType(typ) {
		return fmt.Errorf("unknown artifact type %q", args[0])
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	detail, err := client.Get(cmd.Context(), typ, args[1])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:       %s\n", detail.ID)
	fmt.Fprintf(out, "Name:     %s\n", detail.Name)
	fmt.Fprintf(out, "Type:     %s\n", detail.Type)
	if detail.SourceURL != "" {
		fmt.Fprintf(out, "Source:   %s\n", detail.SourceURL)
	}
	if detail.URL != "" {
		fmt.Fprintf(out, "URL:      %s\n", detail.URL)
	}
	if detail.DownloadURL != "" {
		fmt.Fprintf(out, "Download: %s\n", detail.DownloadURL)
	}
	if len(detail.Lineage) > 0 {
		fmt.Fprintf(out, "Lineage:\n")
		for _, l := range detail.Lineage {
			if l.Relation != "" {
				fmt.Fprintf(out, "  %s (%s)\n", l.ID, l.Relation)
			} else {
				fmt.Fprintf(out, "  %s\n", l.ID)
			}
		}
	}
	return nil
}
