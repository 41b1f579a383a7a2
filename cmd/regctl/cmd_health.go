package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/registrypulse/registrypulse/internal/config"
	"github.com/registrypulse/registrypulse/internal/health"
)

var healthFlags struct {
	window     int
	components bool
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show registry health",
	RunE:  runHealth,
}

func init() {
	f := healthCmd.Flags()
	f.IntVar(&healthFlags.window, "window", config.DefaultWindowMinutes, "trailing window in minutes (15, 30 or 60)")
	f.BoolVar(&healthFlags.components, "components", false, "include the per-component breakdown")
}

func runHealth(cmd *cobra.Command, _ []string) error {
	if !config.ValidWindow(healthFlags.window) {
		return fmt.Errorf("unsupported window %d minutes", healthFlags.window)
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	snap, err := client.Health(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	cls := health.Classify(snap.Status)
	fmt.Fprintf(out, "Status:   %s (%s)\n", snap.Status, cls.Tier)
	if snap.UptimeSeconds != nil {
		fmt.Fprintf(out, "Uptime:   %.0fs\n", *snap.UptimeSeconds)
	}
	fmt.Fprintf(out, "Requests: %d total, %d clients\n",
		snap.RequestSummary.TotalRequests, snap.RequestSummary.UniqueClients)

	if !healthFlags.components {
		return nil
	}

	report, err := client.HealthComponents(cmd.Context(), healthFlags.window, false)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nComponents (last %d minutes):\n", report.WindowMinutes)
	for _, c := range report.Components {
		name := c.DisplayName
		if name == "" {
			name = c.ID
		}
		fmt.Fprintf(out, "  %-24s %s (%s)\n", name, c.Status, health.Classify(c.Status).Tier)
		for _, issue := range c.Issues {
			fmt.Fprintf(out, "    [%s] %s\n", issue.Severity, issue.Summary)
		}
	}
	return nil
}
