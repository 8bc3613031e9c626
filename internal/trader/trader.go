// Package trader orchestrates the trading cycles: scanning, capital
// allocation, order execution and risk monitoring. All cycle state is
// rebuilt from the exchange on every run; nothing carries over between
// cycles.
package trader

import (
	"github.com/rs/zerolog"

	"github.com/jaewoo-dev/upbit-trading-bot/internal/allocation"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/config"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/exchange"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/executor"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/notifications"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/orders"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/risk"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/signal"
	"github.com/jaewoo-dev/upbit-trading-bot/pkg/reporting"
)

// baseScanCount is how many top markets by trading value enter each scan
// before momentum and owned extras are appended.
const baseScanCount = 20

// Trader wires the cycle components together. Cycles run one at a time on
// the caller's goroutine; the exchange client is the only shared resource.
type Trader struct {
	client   exchange.Client
	cfg      *config.Config
	calc     *risk.Calculator
	alloc    *allocation.Allocator
	scanner  *signal.Scanner
	exec     executor.Strategy
	monitor  *orders.Monitor
	notifier notifications.Notifier
	console  *reporting.ConsoleReporter
	log      zerolog.Logger
}

// New assembles a trader from its components.
func New(
	client exchange.Client,
	cfg *config.Config,
	calc *risk.Calculator,
	alloc *allocation.Allocator,
	scanner *signal.Scanner,
	exec executor.Strategy,
	monitor *orders.Monitor,
	notifier notifications.Notifier,
	log zerolog.Logger,
) *Trader {
	return &Trader{
		client:   client,
		cfg:      cfg,
		calc:     calc,
		alloc:    alloc,
		scanner:  scanner,
		exec:     exec,
		monitor:  monitor,
		notifier: notifier,
		console:  reporting.NewConsoleReporter(),
		log:      log.With().Str("component", "trader").Logger(),
	}
}
