// Package cli implements the ragctl operator commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/arturoeanton/go-rag-qa/internal/bootstrap"
	"github.com/arturoeanton/go-rag-qa/internal/service"
	"github.com/arturoeanton/go-rag-qa/pkg/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

// engine bundles what the commands operate on.
type engine struct {
	rag   *service.RAGService
	batch *service.BatchService
	close func() error
}

// openEngine wires the store, index and gateways from cfg. It is a variable so
// tests can substitute a fake.
var openEngine = func(ctx context.Context, cfg *config.Config) (*engine, error) {
	a, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &engine{rag: a.RAG, batch: a.Batch, close: a.Close}, nil
}

// NewRootCmd builds the ragctl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ragctl",
		Short: "Operate the RAG question-answering store",
		Long: `ragctl ingests documents, asks questions and manages stored data
using the same database and Ollama endpoints as the server.

Example usage:
  ragctl ingest --url https://example.com/a --url https://example.com/b
  ragctl ingest --file notes.txt
  ragctl ask "Are cats mammals?"
  ragctl history --limit 10
  ragctl purge --yes`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			if cfgFile != "" {
				os.Setenv("CONFIG_FILE", cfgFile)
			}
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (overrides CONFIG_FILE)")

	root.AddCommand(newIngestCmd(), newAskCmd(), newHistoryCmd(), newPurgeCmd())
	return root
}

// Execute runs ragctl.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func withEngine(cmd *cobra.Command, fn func(*engine) error) error {
	e, err := openEngine(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer e.close()
	return fn(e)
}
