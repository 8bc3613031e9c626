package upbit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jaewoo-dev/upbit-trading-bot/internal/exchange"
	"github.com/jaewoo-dev/upbit-trading-bot/pkg/types"
)

type accountResponse struct {
	Currency     string `json:"currency"`
	Balance      string `json:"balance"`
	Locked       string `json:"locked"`
	AvgBuyPrice  string `json:"avg_buy_price"`
	UnitCurrency string `json:"unit_currency"`
}

type orderResponse struct {
	UUID            string `json:"uuid"`
	Market          string `json:"market"`
	Side            string `json:"side"`
	OrdType         string `json:"ord_type"`
	State           string `json:"state"`
	Price           string `json:"price"`
	Volume          string `json:"volume"`
	RemainingVolume string `json:"remaining_volume"`
	ExecutedVolume  string `json:"executed_volume"`
	PaidFee         string `json:"paid_fee"`
	CreatedAt       string `json:"created_at"`
	Trades          []struct {
		Price  string `json:"price"`
		Volume string `json:"volume"`
		Funds  string `json:"funds"`
	} `json:"trades"`
}

// GetBalances returns every non-zero balance on the account.
func (c *Client) GetBalances(ctx context.Context) ([]types.Balance, error) {
	var accounts []accountResponse
	if err := c.doPrivate(ctx, http.MethodGet, "/v1/accounts", nil, &accounts); err != nil {
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}

	balances := make([]types.Balance, 0, len(accounts))
	for _, acc := range accounts {
		free := parseFloat(acc.Balance)
		locked := parseFloat(acc.Locked)
		if free+locked <= 0 {
			continue
		}
		balances = append(balances, types.Balance{
			Currency: acc.Currency,
			Free:     free,
			Locked:   locked,
		})
	}
	return balances, nil
}

// GetAveragePurchasePrice returns the exchange-reported average buy price
// for a ticker like "KRW-BTC". Advisory only.
func (c *Client) GetAveragePurchasePrice(ctx context.Context, ticker string) (float64, error) {
	currency := ticker
	if len(ticker) > 4 && ticker[:4] == "KRW-" {
		currency = ticker[4:]
	}

	var accounts []accountResponse
	if err := c.doPrivate(ctx, http.MethodGet, "/v1/accounts", nil, &accounts); err != nil {
		return 0, fmt.Errorf("failed to get average purchase price: %w", err)
	}
	for _, acc := range accounts {
		if acc.Currency == currency {
			return parseFloat(acc.AvgBuyPrice), nil
		}
	}
	return 0, fmt.Errorf("no holdings for %s", ticker)
}

// PlaceMarketBuy submits a market buy spending krwAmount of quote currency.
// Order placement is never retried to avoid double submission.
func (c *Client) PlaceMarketBuy(ctx context.Context, ticker string, krwAmount float64) (*exchange.Order, error) {
	query := url.Values{}
	query.Set("market", ticker)
	query.Set("side", "bid")
	query.Set("ord_type", "price")
	query.Set("price", formatFloat(krwAmount))

	var resp orderResponse
	if err := c.doPrivateOnce(ctx, http.MethodPost, "/v1/orders", query, &resp); err != nil {
		return nil, fmt.Errorf("failed to place market buy for %s: %w", ticker, err)
	}
	return resp.toOrder(), nil
}

// PlaceMarketSell submits a market sell of volume base asset.
func (c *Client) PlaceMarketSell(ctx context.Context, ticker string, volume float64) (*exchange.Order, error) {
	query := url.Values{}
	query.Set("market", ticker)
	query.Set("side", "ask")
	query.Set("ord_type", "market")
	query.Set("volume", formatFloat(volume))

	var resp orderResponse
	if err := c.doPrivateOnce(ctx, http.MethodPost, "/v1/orders", query, &resp); err != nil {
		return nil, fmt.Errorf("failed to place market sell for %s: %w", ticker, err)
	}
	return resp.toOrder(), nil
}

// PlaceLimitBuy submits a limit buy order.
func (c *Client) PlaceLimitBuy(ctx context.Context, ticker string, volume, price float64) (*exchange.Order, error) {
	return c.placeLimit(ctx, ticker, "bid", volume, price)
}

// PlaceLimitSell submits a limit sell order.
func (c *Client) PlaceLimitSell(ctx context.Context, ticker string, volume, price float64) (*exchange.Order, error) {
	return c.placeLimit(ctx, ticker, "ask", volume, price)
}

func (c *Client) placeLimit(ctx context.Context, ticker, side string, volume, price float64) (*exchange.Order, error) {
	query := url.Values{}
	query.Set("market", ticker)
	query.Set("side", side)
	query.Set("ord_type", "limit")
	query.Set("volume", formatFloat(volume))
	query.Set("price", formatFloat(price))

	var resp orderResponse
	if err := c.doPrivateOnce(ctx, http.MethodPost, "/v1/orders", query, &resp); err != nil {
		return nil, fmt.Errorf("failed to place limit %s for %s: %w", side, ticker, err)
	}
	return resp.toOrder(), nil
}

// GetOrder returns the current state of an order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*exchange.Order, error) {
	query := url.Values{}
	query.Set("uuid", orderID)

	var resp orderResponse
	if err := c.doPrivate(ctx, http.MethodGet, "/v1/order", query, &resp); err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}
	return resp.toOrder(), nil
}

// CancelOrder cancels an open order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	query := url.Values{}
	query.Set("uuid", orderID)

	if err := c.doPrivateOnce(ctx, http.MethodDelete, "/v1/order", query, nil); err != nil {
		return fmt.Errorf("failed to cancel order %s: %w", orderID, err)
	}
	return nil
}

func (r *orderResponse) toOrder() *exchange.Order {
	order := &exchange.Order{
		ID:              r.UUID,
		Market:          r.Market,
		Side:            exchange.OrderSide(r.Side),
		State:           exchange.OrderState(r.State),
		Price:           parseFloat(r.Price),
		Volume:          parseFloat(r.Volume),
		RemainingVolume: parseFloat(r.RemainingVolume),
		ExecutedVolume:  parseFloat(r.ExecutedVolume),
		PaidFee:         parseFloat(r.PaidFee),
	}
	if ts, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
		order.CreatedAt = ts
	}

	// Upbit reports fills as individual trades; derive the volume-weighted
	// average fill price from them.
	var totalFunds, totalVolume float64
	for _, trade := range r.Trades {
		totalFunds += parseFloat(trade.Funds)
		totalVolume += parseFloat(trade.Volume)
	}
	if totalVolume > 0 {
		order.AvgPrice = totalFunds / totalVolume
	}

	return order
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
