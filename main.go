package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"card-pricer/cache"
	"card-pricer/config"
	"card-pricer/metrics"
	"card-pricer/scraper/ebay"
	"card-pricer/server"
	"card-pricer/services"
	"card-pricer/storage"
	"card-pricer/utils"
)

func main() {
	serve := flag.Bool("serve", false, "run the HTTP API instead of a batch")
	input := flag.String("input", "", "batch input CSV (defaults to INPUT_CSV_PATH)")
	output := flag.String("output", "", "batch output .csv or .xlsx (defaults to OUTPUT_PATH)")
	flag.Parse()

	logger := utils.NewLogger()
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}
	logger.SetLevel(utils.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("=== Card Pricer starting ===")
	logger.Info("Config — sold source: %s | lookback: %dd | concurrency: %d | rate: %.1f calls/s",
		cfg.SoldSource, cfg.LookbackDays, cfg.MaxConcurrency, cfg.CallsPerSecond)

	client, err := ebay.New(ebay.Config{
		AppID:             cfg.EbayAppID,
		CertID:            cfg.EbayCertID,
		BaseURL:           cfg.EbayBaseURL,
		MarketplaceID:     cfg.EbayMarketplaceID,
		CallsPerSecond:    cfg.CallsPerSecond,
		RequestTimeout:    cfg.RequestTimeout,
		TokenExpiryMargin: cfg.TokenExpiryMargin,
		SearchLimit:       cfg.SearchLimit,
	}, logger)
	if err != nil {
		logger.Error("Failed to create marketplace client: %v", err)
		os.Exit(1)
	}

	var market services.Marketplace = client
	if cfg.SoldSource == "browser" {
		market = ebay.NewBrowserSource(client, cfg.ChromeBin, logger)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	opts := []services.PricerOption{
		services.WithMetrics(m),
		services.WithLookback(cfg.Lookback()),
	}
	var redisCache *cache.RedisCache
	if cfg.RedisAddr != "" {
		redisCache, err = cache.NewRedisCache(ctx, cache.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		}, logger)
		if err != nil {
			logger.Warn("Result cache disabled: %v", err)
		} else {
			defer redisCache.Close()
			opts = append(opts, services.WithCache(redisCache))
		}
	}
	pricer := services.NewPricer(market, logger, opts...)

	if *serve {
		serverOpts := []server.Option{
			server.WithMetrics(m, registry),
			server.WithMaxConcurrency(cfg.MaxConcurrency),
		}
		if redisCache != nil {
			serverOpts = append(serverOpts, server.WithHealthCheck("redis", redisCache.Ping))
		}
		if err := server.New(pricer, logger, serverOpts...).ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
			logger.Error("HTTP server stopped: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := runBatch(ctx, cfg, pricer, m, logger, pick(*input, cfg.InputCSVPath), pick(*output, cfg.OutputPath)); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func runBatch(ctx context.Context, cfg *config.Config, pricer services.CardPricer, m *metrics.Metrics,
	logger *utils.Logger, input, output string) error {
	cards, err := storage.ReadCards(input)
	if err != nil {
		return fmt.Errorf("read batch input: %w", err)
	}
	if len(cards) == 0 {
		return fmt.Errorf("no cards found in %s", input)
	}
	logger.Info("Loaded %d cards from %s", len(cards), input)

	fileWriter, err := storage.NewFileWriter(output)
	if err != nil {
		return fmt.Errorf("create output writer: %w", err)
	}
	writers := []storage.RecordWriter{fileWriter}

	if cfg.PostgresEnabled {
		pgWriter, err := storage.NewPostgresWriter(ctx, cfg.DSN(), logger)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			logger.Error("Make sure Docker is running: docker compose up -d")
		} else {
			writers = append(writers, pgWriter)
		}
	}

	sink := storage.NewMultiWriter(writers...)
	processor := services.NewBatchProcessor(pricer, sink, cfg.MaxConcurrency, logger, m)
	result := processor.ProcessMany(ctx, cards)

	if err := sink.Close(); err != nil {
		logger.Error("Failed to finish writing results: %v", err)
	}

	services.PrintSummary(os.Stdout, result, output)
	return nil
}

func pick(flagValue, fallback string) string {
	if flagValue != "" {
		return flagValue
	}
	return fallback
}
