package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mlserve/internal/manager"
)

var version = "dev"

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mlserve",
		Short:         "Serve registry-resolved models over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Path to config file (.yaml, .yml, .json, .toml)")
	root.PersistentFlags().String("models", "", "Comma-separated model names (overrides MODEL_NAMES)")
	root.PersistentFlags().String("cache-dir", "", "Base directory for downloaded artifacts")
	root.PersistentFlags().String("tracking-uri", "", "MLflow tracking server URI")
	root.PersistentFlags().String("registry-dir", "", "Read versions from a local directory instead of MLflow")
	root.PersistentFlags().String("log-level", "", "Log level: debug|info|warn|error")

	root.AddCommand(newServeCmd(), newResolveCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build features",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mlserve %s (llama built: %t)\n", version, manager.LlamaBuilt())
		},
	}
}
