package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/registrypulse/registrypulse/internal/score"
)

var rateCmd = &cobra.Command{
	Use:   "rate <model-id>",
	Short: "Show a model's canonical score",
	Args:  cobra.ExactArgs(1),
	RunE:  runRate,
}

func runRate(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	raw, err := client.Rating(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if raw == nil {
		fmt.Fprintf(out, "model %s has no rating yet\n", args[0])
		return nil
	}

	s := score.Normalize(raw)
	fmt.Fprintf(out, "Overall:         %.1f/5\n", s.Overall)
	fmt.Fprintf(out, "Quality:         %.1f/5\n", s.Quality)
	fmt.Fprintf(out, "Tree score:      %.1f/5\n", s.TreeScore)
	fmt.Fprintf(out, "Documentation:   %.1f/5\n", s.Documentation)
	fmt.Fprintf(out, "Reproducibility: %.0f%%\n", s.Reproducibility*100)
	fmt.Fprintf(out, "Reviewedness:    %.0f%%\n", s.Reviewedness*100)
	return nil
}
