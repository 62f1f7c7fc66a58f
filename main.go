package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"intrinsicvalue/internal/alphavantage"
	"intrinsicvalue/internal/config"
	"intrinsicvalue/internal/coordinator"
	"intrinsicvalue/internal/directory"
	"intrinsicvalue/internal/logger"
	"intrinsicvalue/internal/ratelimit"
	"intrinsicvalue/internal/refdata"
	"intrinsicvalue/internal/server"
	"intrinsicvalue/internal/valuation"
	"intrinsicvalue/internal/wikipedia"
	"intrinsicvalue/internal/yahoo"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env file is not an error
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received interrupt signal, shutting down")
		cancel()
	}()

	srv, err := newServer(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start")
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errChan:
		log.Error().Err(err).Msg("HTTP server failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// newServer loads the constituent table once and wires every component
// behind the HTTP server
func newServer(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*server.Server, error) {
	limiter := ratelimit.New(map[ratelimit.API]ratelimit.Limit{
		ratelimit.APIWikipedia:    {Rate: cfg.WikipediaRateLimit, Burst: 1},
		ratelimit.APIYahoo:        {Rate: cfg.YahooRateLimit, Burst: 2},
		ratelimit.APIAlphaVantage: {Rate: cfg.AlphavantageRateLimit, Burst: 1},
	})

	loadCtx, loadCancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer loadCancel()

	constituents := wikipedia.NewConstituentsFetcher(cfg.ConstituentsURL, cfg.HTTPTimeout, limiter, log)
	dir, err := directory.Load(loadCtx, constituents)
	if err != nil {
		return nil, err
	}

	riskFree := yahoo.NewRiskFreeRateFetcher(cfg.BondsURL, cfg.HTTPTimeout, limiter, log)

	var fundamentals refdata.FundamentalsSource
	switch cfg.FundamentalsProvider {
	case config.ProviderAlphaVantage:
		fundamentals = alphavantage.NewClient(cfg.AlphavantageAPIKey, cfg.AlphavantageBaseURL, cfg.HTTPTimeout, limiter, log)
	default:
		fundamentals = yahoo.NewClient(yahoo.Config{
			BaseURL:   cfg.YahooBaseURL,
			CookieURL: cfg.YahooCookieURL,
			Timeout:   cfg.HTTPTimeout,
		}, limiter, log)
	}

	pipeline := valuation.NewPipeline(dir, riskFree, fundamentals, valuation.Params{
		ExpectedMarketReturn: cfg.ExpectedMarketReturn,
		PerpetualGrowthRate:  cfg.PerpetualGrowthRate,
	}, log)

	log.Info().
		Int("constituents", dir.Len()).
		Str("fundamentals", cfg.FundamentalsProvider).
		Str("risk_free", riskFree.Key()).
		Msg("Valuation pipeline ready")

	return server.New(server.Config{
		Addr:           cfg.ListenAddr,
		RequestTimeout: cfg.RequestTimeout,
		Log:            log,
		Coordinator:    coordinator.New(dir, pipeline, cfg.SampleSize, log),
	}), nil
}
