package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"tradelens/internal/adapter/memstore"
	"tradelens/internal/server"
	"tradelens/internal/usecase"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the query API server",
	Long: `Load all data artifacts into memory and serve the read-only query API.

The dataset is loaded once at startup and held immutable for the process
lifetime; rerun the batch stages and restart to pick up new data.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	paths := cfg.ArtifactPaths(GetRootDir())

	logger := newLogger(cfg.Logging.Level)

	logger.Info("loading data files")
	st, err := memstore.Load(paths)
	if err != nil {
		return fmt.Errorf("failed to load data: %w", err)
	}
	logger.Info("data loaded",
		"naics_codes", len(st.Concordance),
		"trade_records", len(st.Trade),
		"china_deficits", len(st.China),
		"defense_scores", len(st.Defense),
	)

	explore := usecase.NewExploreUseCase(st)
	srv := server.New(explore, logger, cfg.Server.ProductLimit)

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}
