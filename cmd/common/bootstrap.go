// Package common holds bootstrap helpers shared by the bot entrypoints.
package common

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/jaewoo-dev/upbit-trading-bot/internal/allocation"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/config"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/exchange/upbit"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/executor"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/monitoring"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/notifications"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/orders"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/risk"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/signal"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/trader"
)

// LoadEnv loads a .env file when present. A missing file is not an error;
// variables may come straight from the environment.
func LoadEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load %s: %v\n", path, err)
	}
}

// NewLogger builds the process logger with console output.
func NewLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}

// NewNotifier returns the Slack notifier when a webhook is configured, or a
// no-op otherwise.
func NewNotifier(cfg config.SlackConfig) notifications.Notifier {
	if cfg.Enabled {
		return notifications.NewSlackNotifier(cfg.WebhookURL)
	}
	return notifications.NopNotifier{}
}

// BuildTrader wires the exchange client and all cycle components.
func BuildTrader(cfg *config.Config, decider signal.Decider, log zerolog.Logger) *trader.Trader {
	client := upbit.NewClient(upbit.Config{
		AccessKey: cfg.Upbit.AccessKey,
		SecretKey: cfg.Upbit.SecretKey,
		BaseURL:   cfg.Upbit.BaseURL,
	})

	return trader.New(
		client,
		cfg,
		risk.NewCalculator(cfg.Risk, client, log),
		allocation.NewAllocator(cfg.Trading, log),
		signal.NewScanner(client, decider, log),
		executor.NewMarketExecutor(client, cfg.Trading, log),
		orders.NewMonitor(client, cfg.Monitor, log),
		NewNotifier(cfg.Slack),
		log,
	)
}

// ServeMetrics exposes the Prometheus endpoint in the background. An empty
// address disables it.
func ServeMetrics(addr string, log zerolog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())
	go func() {
		log.Info().Str("addr", addr).Msg("metrics endpoint listening")
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error().Err(err).Msg("metrics endpoint failed")
		}
	}()
}
