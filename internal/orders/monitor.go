package orders

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jaewoo-dev/upbit-trading-bot/internal/config"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/exchange"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/retry"
)

// Result is the terminal outcome of monitoring one order. Once returned it
// is read-only; Order holds the last observed exchange snapshot when one
// was seen.
type Result struct {
	OrderID string
	State   exchange.OrderState
	Order   *exchange.Order
	Err     error
	Elapsed time.Duration
}

// Filled reports whether the order reached the exchange's done state.
func (r Result) Filled() bool {
	return r.State == exchange.StateDone
}

// BatchSummary aggregates the outcomes of a batch wait.
type BatchSummary struct {
	Filled    int
	Cancelled int
	TimedOut  int
	Errored   int
}

// Monitor polls submitted orders to a terminal state with bounded retries
// and a hard per-order deadline. Orders are processed one at a time; the
// poll sleep is the only suspension point.
type Monitor struct {
	client        exchange.AccountProvider
	cfg           config.MonitorConfig
	backoff       retry.Policy
	statusRetries retry.Policy
	log           zerolog.Logger
}

// NewMonitor creates an order monitor.
func NewMonitor(client exchange.AccountProvider, cfg config.MonitorConfig, log zerolog.Logger) *Monitor {
	return &Monitor{
		client: client,
		cfg:    cfg,
		backoff: retry.Policy{
			MaxAttempts:   cfg.MaxPollFailures,
			InitialDelay:  cfg.PollInterval * 2,
			MaxDelay:      cfg.MaxPollBackoff,
			BackoffFactor: 2.0,
		},
		statusRetries: retry.FixedPolicy(3, time.Second),
		log:           log.With().Str("component", "order_monitor").Logger(),
	}
}

// Monitor polls an order until it reaches a terminal state, the
// consecutive-failure budget is exhausted, or the default timeout elapses.
func (m *Monitor) Monitor(ctx context.Context, orderID string) Result {
	return m.MonitorWithTimeout(ctx, orderID, m.cfg.OrderTimeout)
}

// MonitorWithTimeout is Monitor with an explicit deadline, used by batch
// waits that share a shrinking deadline across orders.
func (m *Monitor) MonitorWithTimeout(ctx context.Context, orderID string, timeout time.Duration) Result {
	start := time.Now()
	deadline := start.Add(timeout)
	m.log.Info().Str("order_id", orderID).Dur("timeout", timeout).Msg("monitoring order")

	consecutiveFailures := 0
	var lastOrder *exchange.Order
	var lastErr error
	lastState := exchange.OrderState("")

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return Result{OrderID: orderID, State: exchange.StateError, Order: lastOrder,
				Err: ctx.Err(), Elapsed: time.Since(start)}
		}

		order, err := m.client.GetOrder(ctx, orderID)
		if err != nil {
			consecutiveFailures++
			lastErr = err
			m.log.Warn().Err(err).Str("order_id", orderID).
				Int("attempt", consecutiveFailures).Msg("order status poll failed")

			if consecutiveFailures >= m.cfg.MaxPollFailures {
				m.log.Error().Str("order_id", orderID).Int("failures", consecutiveFailures).
					Msg("too many consecutive poll failures, abandoning order")
				return Result{OrderID: orderID, State: exchange.StateError, Order: lastOrder,
					Err: lastErr, Elapsed: time.Since(start)}
			}

			m.sleep(ctx, m.backoff.Delay(consecutiveFailures))
			continue
		}

		consecutiveFailures = 0
		lastOrder = order
		if order.State != lastState {
			lastState = order.State
			m.log.Info().Str("order_id", orderID).Str("state", string(order.State)).
				Msg("order state changed")
		}

		switch order.State {
		case exchange.StateDone:
			m.log.Info().Str("order_id", orderID).Msg("order completed")
			return Result{OrderID: orderID, State: exchange.StateDone, Order: order,
				Elapsed: time.Since(start)}
		case exchange.StateCancelled:
			m.log.Warn().Str("order_id", orderID).Msg("order was cancelled")
			return Result{OrderID: orderID, State: exchange.StateCancelled, Order: order,
				Elapsed: time.Since(start)}
		case exchange.StateWait:
			if pct := order.FilledPercent(); pct > 0 {
				m.log.Info().Str("order_id", orderID).Float64("filled_pct", pct).
					Msg("order partially filled")
			}
		}

		m.sleep(ctx, m.cfg.PollInterval)
	}

	// Deadline reached: one final status check catches late fills.
	elapsed := time.Since(start)
	m.log.Warn().Str("order_id", orderID).Dur("elapsed", elapsed).
		Msg("order monitoring timed out, performing final check")

	if final, err := m.client.GetOrder(ctx, orderID); err == nil {
		lastOrder = final
		if final.State == exchange.StateDone {
			m.log.Info().Str("order_id", orderID).Msg("final check: order actually completed")
			return Result{OrderID: orderID, State: exchange.StateDone, Order: final, Elapsed: elapsed}
		}
	}

	return Result{OrderID: orderID, State: exchange.StateTimeout, Order: lastOrder,
		Err: lastErr, Elapsed: elapsed}
}

// WaitForBatch monitors multiple orders sequentially, allocating each the
// remaining portion of a shared deadline (at least one second each), and
// returns per-order results plus aggregate counts.
func (m *Monitor) WaitForBatch(ctx context.Context, orderIDs []string, totalTimeout time.Duration) (map[string]Result, BatchSummary) {
	start := time.Now()
	results := make(map[string]Result, len(orderIDs))
	var summary BatchSummary

	m.log.Info().Int("orders", len(orderIDs)).Dur("timeout", totalTimeout).
		Msg("waiting for order batch")

	for i, orderID := range orderIDs {
		remaining := totalTimeout - time.Since(start)
		if remaining < time.Second {
			remaining = time.Second
		}

		m.log.Info().Str("order_id", orderID).Int("index", i+1).Int("total", len(orderIDs)).
			Dur("remaining", remaining).Msg("monitoring batch order")

		result := m.MonitorWithTimeout(ctx, orderID, remaining)
		results[orderID] = result

		switch result.State {
		case exchange.StateDone:
			summary.Filled++
		case exchange.StateCancelled:
			summary.Cancelled++
		case exchange.StateTimeout:
			summary.TimedOut++
		case exchange.StateError:
			summary.Errored++
		}
	}

	m.log.Info().
		Int("filled", summary.Filled).
		Int("cancelled", summary.Cancelled).
		Int("timed_out", summary.TimedOut).
		Int("errored", summary.Errored).
		Dur("elapsed", time.Since(start)).
		Msg("order batch completed")

	return results, summary
}

// Cancel cancels an order, retrying up to 3 times with a fixed pause.
func (m *Monitor) Cancel(ctx context.Context, orderID string) error {
	err := retry.Do(ctx, m.statusRetries, func() error {
		return m.client.CancelOrder(ctx, orderID)
	})
	if err != nil {
		m.log.Error().Err(err).Str("order_id", orderID).Msg("failed to cancel order")
		return err
	}
	m.log.Info().Str("order_id", orderID).Msg("order cancelled")
	return nil
}

// GetStatus fetches the current order state, retrying up to 3 times with a
// fixed pause. After exhausting retries it reports the unknown state rather
// than an error, so callers can record the outcome for reconciliation.
func (m *Monitor) GetStatus(ctx context.Context, orderID string) Result {
	var order *exchange.Order
	err := retry.Do(ctx, m.statusRetries, func() error {
		var getErr error
		order, getErr = m.client.GetOrder(ctx, orderID)
		return getErr
	})
	if err != nil {
		m.log.Error().Err(err).Str("order_id", orderID).Msg("failed to get order status")
		return Result{OrderID: orderID, State: exchange.StateUnknown, Err: err}
	}
	return Result{OrderID: orderID, State: order.State, Order: order}
}

func (m *Monitor) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
