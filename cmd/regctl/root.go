package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/registrypulse/registrypulse/internal/config"
	"github.com/registrypulse/registrypulse/internal/registry"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	baseURL string
	timeout time.Duration
	keyEnv  string
}

var rootCmd = &cobra.Command{
	Use:   "regctl",
	Short: "Query and manage artifacts in the model registry",
	Long: "regctl talks to the artifact registry the dashboard monitors:\n" +
		"search listings, inspect single artifacts with their canonical scores,\n" +
		"queue model ingests and check registry health from the terminal.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.baseURL, "base-url", envOr("REGCTL_BASE_URL", "http://localhost:9090"), "registry API base URL")
	pf.DurationVar(&rootFlags.timeout, "timeout", 15*time.Second, "per-request timeout")
	pf.StringVar(&rootFlags.keyEnv, "api-key-env", "REGCTL_API_KEY", "environment variable holding the registry API key")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.Version = version
}

// newClient builds a registry client from the persistent flags. API key auth
// is enabled only when the key variable is actually set.
func newClient() (*registry.Client, error) {
	cfg := config.RegistryConfig{
		BaseURL: rootFlags.baseURL,
		Timeout: rootFlags.timeout,
	}
	if os.Getenv(rootFlags.keyEnv) != "" {
		cfg.Auth = config.AuthConfig{Mode: "apikey", KeyEnv: rootFlags.keyEnv}
	}
	return registry.New(cfg)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
