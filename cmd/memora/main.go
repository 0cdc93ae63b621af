package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Harshitk-cp/memora/internal/client"
	"github.com/Harshitk-cp/memora/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose bool
	output  string
	apiURL  string
	apiKey  string
	timeout time.Duration

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "memora",
	Short: "Command line client for the Memora memory service",
	Long: `memora talks to a running Memora server.

Store facts for an agent, search them, and ask the agent questions that are
answered from its memory. Opinions formed while answering are stored by the
server in the background and show up in later answers.

The server address and API key come from MEMORA_API_URL and MEMORA_API_KEY
unless --api-url and --api-key are given.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if apiURL == "" {
			apiURL = config.APIURL()
		}
		if apiKey == "" {
			apiKey = config.APIKey()
		}
		if !validOutput(output) {
			return fmt.Errorf("unknown output format %q (valid: pretty, json, yaml)", output)
		}

		cfg := zap.NewProductionConfig()
		cfg.OutputPaths = []string{"stderr"}
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", outputPretty, "output format: pretty, json or yaml")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "server URL (default $MEMORA_API_URL)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key (default $MEMORA_API_KEY)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "request timeout")

	rootCmd.AddCommand(
		searchCmd(),
		thinkCmd(),
		putCmd(),
		putFilesCmd(),
		agentsCmd(),
		versionCmd(),
	)
}

func newClient() *client.Client {
	logger.Debug("using server", zap.String("url", apiURL))
	return client.New(apiURL, apiKey)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
