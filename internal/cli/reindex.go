package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kodesmith/searchcore/internal/config"
	"github.com/kodesmith/searchcore/internal/index"
	"github.com/kodesmith/searchcore/internal/metadata"
	"github.com/kodesmith/searchcore/internal/store"
)

// reindexCmd rebuilds the bleve index from the Document Store, per §4.6's
// "Index must tolerate being rebuilt from Store" requirement. It never runs
// from a request path, only as an operator-triggered maintenance step.
var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from the document store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReindex()
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex() error {
	logger := newLogger()
	serverCfg := config.LoadServerConfig(logger)
	ctx := context.Background()

	metadataSink := metadata.NewRecorder(logger, "reindex")

	st, err := store.NewPostgresStore(ctx, serverCfg.StoreDSN(), &metadataSink)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	idx, err := index.OpenBleveIndex(serverCfg.IndexPath(), &metadataSink)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer idx.Close()

	count, err := index.ReconcileFromStore(ctx, idx, st, 500)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	logger.Info("reindex complete", "documents", count)
	return nil
}
