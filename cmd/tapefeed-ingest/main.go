package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tapefeed/internal/config"
	"tapefeed/internal/ingest"
	"tapefeed/internal/news"
	"tapefeed/internal/store"
	"tapefeed/internal/util"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML config file")
	days := flag.Int("days", 0, "recency cutoff in days (default from config)")
	pages := flag.Int("pages", 0, "pages to fetch per feed (default from config)")
	perPage := flag.Int("per-page", 0, "rows per page (default from config)")
	noArchive := flag.Bool("no-archive", false, "skip writing parquet archives")
	newsSymbols := flag.String("news-symbols", "", "comma-separated symbols to gather news for")
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

	if cfg.Upstream.APIKey == "" {
		fmt.Fprintln(os.Stderr, "upstream API key not set (config upstream.api_key or FMP_API_KEY)")
		os.Exit(1)
	}

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

	var archive ingest.Archiver
	if !*noArchive && cfg.Storage.DataDir != "" {
		archive = store.NewArchiveStore(cfg.Storage.DataDir)
	}

	client := ingest.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.APIKey, cfg.Upstream.RateLimitPerMin)
	runner := ingest.NewRunner(client, events, archive, logger)

	opts := ingest.Options{Days: cfg.Ingest.Days, Pages: cfg.Ingest.Pages, PerPage: cfg.Ingest.PerPage}
	if *days > 0 {
		opts.Days = *days
	}
	if *pages > 0 {
		opts.Pages = *pages
	}
	if *perPage > 0 {
		opts.PerPage = *perPage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := runner.Run(ctx, opts)
	if stats != nil {
		logger.Info("ingest finished",
			"scanned", stats.Scanned, "inserted", stats.Inserted, "skipped", stats.Skipped)
	}
	if err != nil {
		logger.Error("ingest", "error", err)
		os.Exit(1)
	}

	if *newsSymbols != "" {
		var mdc *marketdata.Client
		if cfg.Alpaca.APIKey != "" {
			mdc = marketdata.NewClient(marketdata.ClientOpts{
				APIKey:    cfg.Alpaca.APIKey,
				APISecret: cfg.Alpaca.APISecret,
			})
		}
		gatherer := news.NewGatherer(mdc, logger)

		symbols := strings.Split(*newsSymbols, ",")
		for i := range symbols {
			symbols[i] = strings.TrimSpace(symbols[i])
		}

		newsStats, err := runner.RunNews(ctx, gatherer, symbols)
		if newsStats != nil {
			logger.Info("news ingest finished",
				"scanned", newsStats.Scanned, "inserted", newsStats.Inserted, "skipped", newsStats.Skipped)
		}
		if err != nil {
			logger.Error("news ingest", "error", err)
			os.Exit(1)
		}
	}
}
