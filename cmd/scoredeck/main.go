package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/afero"

	"scoredeck/config"
	"scoredeck/handlers"
	"scoredeck/internal/database"
	"scoredeck/services/dashboard"
	"scoredeck/services/importer"
	"scoredeck/services/scoreboard"
	"scoredeck/services/scores"
	"scoredeck/services/session"
	"scoredeck/utils"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	utils.SetupLogging(settings.LogLevel, settings.LogFile)

	client, err := scoreboard.NewClient(settings.BackendURL)
	if err != nil {
		slog.Error("failed to create backend client", "error", err)
		os.Exit(1)
	}

	// Boot-time reachability wait only; individual requests never retry.
	if err := waitForBackend(settings.BackendURL); err != nil {
		slog.Warn("backend not reachable yet, continuing anyway", "url", settings.BackendURL, "error", err)
	}

	db, err := database.NewDB(database.Config{DatabasePath: settings.DBPath})
	if err != nil {
		slog.Error("failed to open local database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	sess := session.NewStore(client)
	scoreStore := scores.NewStore(client, settings.PageSize)
	dash := dashboard.NewService(client, sess)
	imp := importer.NewService(afero.NewOsFs(), client, db.History)

	ui, err := handlers.NewUIHandler(sess, scoreStore, dash, imp, client, db.History)
	if err != nil {
		slog.Error("failed to build page handler", "error", err)
		os.Exit(1)
	}

	router := utils.NewRouter()
	ui.Register(router)

	// Session restore runs in the background; the guard renders the
	// waiting page until the probe settles.
	go sess.Restore(context.Background())

	srv := &http.Server{
		Addr:              settings.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("scoredeck listening", "addr", settings.ListenAddr, "backend", settings.BackendURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}

// waitForBackend polls the backend until it answers anything at all; only
// connection-level failures are retried.
func waitForBackend(baseURL string) error {
	httpClient := &http.Client{Timeout: 3 * time.Second}
	return retry.Do(
		func() error {
			resp, err := httpClient.Get(baseURL)
			if err != nil {
				return err
			}
			resp.Body.Close()
			return nil
		},
		retry.Attempts(10),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxDelay(5*time.Second),
		retry.OnRetry(func(n uint, err error) {
			slog.Debug("waiting for backend", "attempt", n+1, "error", err)
		}),
	)
}
