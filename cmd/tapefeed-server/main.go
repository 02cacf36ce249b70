package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"tapefeed/internal/config"
	"tapefeed/internal/httpapi"
	"tapefeed/internal/store"
	"tapefeed/internal/util"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if *cfgPath == "" {
		if p := os.Getenv("TAPEFEED_CONFIG"); p != "" {
			*cfgPath = p
		}
	}

	var cfg *config.Config
	var err error
	if *cfgPath != "" {
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg = config.Default()
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	dbPath := cfg.Storage.SQLitePath
	if dbPath == "" {
		dbPath = "tapefeed.db"
	}
	events, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Error("opening event store", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer events.Close()

	// Optional Alpaca trading client for watchlist support.
	var alpacaClient *alpacaapi.Client
	if cfg.Alpaca.APIKey != "" {
		alpacaClient = alpacaapi.NewClient(alpacaapi.ClientOpts{
			APIKey:    cfg.Alpaca.APIKey,
			APISecret: cfg.Alpaca.APISecret,
			BaseURL:   cfg.Alpaca.BaseURL,
		})
		logger.Info("alpaca client initialized for watchlist")
	}

	srv := httpapi.NewFeedServer(events, logger, alpacaClient)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("tapefeed-server listening", "addr", addr, "db", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", "error", err)
	}
}
