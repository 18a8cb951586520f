package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kodesmith/searchcore/internal/config"
	"github.com/kodesmith/searchcore/internal/fetcher"
	"github.com/kodesmith/searchcore/internal/httpapi"
	"github.com/kodesmith/searchcore/internal/index"
	"github.com/kodesmith/searchcore/internal/metadata"
	"github.com/kodesmith/searchcore/internal/requestlog"
	"github.com/kodesmith/searchcore/internal/search"
	"github.com/kodesmith/searchcore/internal/session"
	"github.com/kodesmith/searchcore/internal/store"
)

// newSPAFetcher builds the one-off Fetcher used directly by
// /api/spa/detect and /api/spa/render, independent of any crawl session's
// own Fetcher instance.
func newSPAFetcher(metadataSink metadata.MetadataSink) fetcher.Fetcher {
	f := fetcher.NewHtmlFetcher(metadataSink)
	f.Init(&http.Client{Timeout: 30 * time.Second})
	return &f
}

// serveCmd is the session-manager-construction-time dependency-injection
// root (§9): it builds the Store, Index, and metadata sink exactly once and
// hands the same handles to the Session Manager, Search Service, and
// httpapi.Server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the crawl/search HTTP server.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	logger := newLogger()
	serverCfg := config.LoadServerConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metadataSink := metadata.NewRecorder(logger, "server")

	st, err := store.NewPostgresStore(ctx, serverCfg.StoreDSN(), &metadataSink)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.Migrate(logger); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	idx, err := index.OpenBleveIndex(serverCfg.IndexPath(), &metadataSink)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer idx.Close()

	reqLog := requestlog.NewWriter(st, &metadataSink, logger)
	go reqLog.Run(ctx)

	manager := session.NewManager(serverCfg.MaxConcurrentSessions(), st, idx, &metadataSink)
	searchSvc := search.NewService(idx, st, &metadataSink)
	spaFetcher := newSPAFetcher(&metadataSink)

	server := httpapi.NewServer(manager, searchSvc, st, idx, spaFetcher, reqLog, &metadataSink, "searchcore/1.0")

	httpServer := &http.Server{
		Addr:         serverCfg.ListenAddr(),
		Handler:      server.Router(),
		ReadTimeout:  serverCfg.DefaultRequestTimeout(),
		WriteTimeout: serverCfg.DefaultRequestTimeout(),
	}

	go func() {
		logger.Info("listening", "addr", serverCfg.ListenAddr())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server exited", "error", err.Error())
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
