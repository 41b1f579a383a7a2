package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/registrypulse/registrypulse/internal/ratings"
	"github.com/registrypulse/registrypulse/internal/registry"
)

var searchFlags struct {
	name   string
	regex  string
	types  []string
	scores bool
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "List artifacts by name, regex or wildcard",
	Long: "Without --name or --regex the whole directory is listed.\n" +
		"--scores additionally fetches each model's canonical score.",
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchFlags.name, "name", "", "exact artifact name to match")
	f.StringVar(&searchFlags.regex, "regex", "", "regular expression over names and READMEs")
	f.StringSliceVar(&searchFlags.types, "type", nil, "restrict to artifact types (model, dataset, code)")
	f.BoolVar(&searchFlags.scores, "scores", false, "fetch canonical scores for model artifacts")
}

func runSearch(cmd *cobra.Command, _ []string) error {
	if searchFlags.name != "" && searchFlags.regex != "" {
		return fmt.Errorf("--name and --regex are mutually exclusive")
	}

	filter := registry.Filter{Name: searchFlags.name, Regex: searchFlags.regex}
	for _, s := range searchFlags.types {
		t := registry.ArtifactType(strings.TrimSpace(s))
		if !registry.ValidType(t) {
			return fmt.Errorf("unknown artifact type %q", s)
		}
		filter.Types = append(filter.Types, t)
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	arts, err := client.List(cmd.Context(), filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(arts) == 0 {
		fmt.Fprintln(out, "no artifacts matched")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if !searchFlags.scores {
		fmt.Fprintln(w, "ID\tTYPE\tNAME")
		for _, a := range arts {
			fmt.Fprintf(w, "%s\t%s\t%s\n", a.ID, a.Type, a.Name)
		}
		return w.Flush()
	}

	rated := ratings.AttachRatings(cmd.Context(), client, arts)
	fmt.Fprintln(w, "ID\tTYPE\tNAME\tSCORE")
	for _, r := range rated {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Type, r.Name, scoreCell(r))
	}
	return w.Flush()
}

// scoreCell renders one row's rating outcome for the listing table.
func scoreCell(r ratings.Rated) string {
	switch {
	case r.Degraded:
		return "unavailable"
	case !r.HasRating:
		return "-"
	default:
		return fmt.Sprintf("%.1f/5", r.Score.Overall)
	}
}
