package upbit

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jaewoo-dev/upbit-trading-bot/pkg/types"
)

type tickerResponse struct {
	Market           string  `json:"market"`
	TradePrice       float64 `json:"trade_price"`
	AccTradePrice24h float64 `json:"acc_trade_price_24h"`
	Timestamp        int64   `json:"timestamp"`
}

type candleResponse struct {
	Market             string  `json:"market"`
	CandleDateTimeUTC  string  `json:"candle_date_time_utc"`
	OpeningPrice       float64 `json:"opening_price"`
	HighPrice          float64 `json:"high_price"`
	LowPrice           float64 `json:"low_price"`
	TradePrice         float64 `json:"trade_price"`
	CandleAccTradeVol  float64 `json:"candle_acc_trade_volume"`
}

type marketResponse struct {
	Market      string `json:"market"`
	KoreanName  string `json:"korean_name"`
	EnglishName string `json:"english_name"`
}

// GetCurrentPrice returns the last traded price for a ticker.
func (c *Client) GetCurrentPrice(ctx context.Context, ticker string) (float64, error) {
	query := url.Values{}
	query.Set("markets", ticker)

	var tickers []tickerResponse
	if err := c.doPublic(ctx, "/v1/ticker", query, &tickers); err != nil {
		return 0, fmt.Errorf("failed to get price for %s: %w", ticker, err)
	}
	if len(tickers) == 0 {
		return 0, fmt.Errorf("no ticker data for %s", ticker)
	}
	return tickers[0].TradePrice, nil
}

// GetDailyCandles returns up to count daily OHLCV bars, oldest first.
// Upbit reports candles newest first; the order is reversed here so that
// indicator code can treat the last element as the latest bar.
func (c *Client) GetDailyCandles(ctx context.Context, ticker string, count int) ([]types.OHLCV, error) {
	if count <= 0 {
		count = 1
	}
	if count > 200 {
		count = 200
	}

	query := url.Values{}
	query.Set("market", ticker)
	query.Set("count", strconv.Itoa(count))

	var candles []candleResponse
	if err := c.doPublic(ctx, "/v1/candles/days", query, &candles); err != nil {
		return nil, fmt.Errorf("failed to get candles for %s: %w", ticker, err)
	}

	bars := make([]types.OHLCV, 0, len(candles))
	for i := len(candles) - 1; i >= 0; i-- {
		candle := candles[i]
		ts, _ := time.Parse("2006-01-02T15:04:05", candle.CandleDateTimeUTC)
		bars = append(bars, types.OHLCV{
			Open:      candle.OpeningPrice,
			High:      candle.HighPrice,
			Low:       candle.LowPrice,
			Close:     candle.TradePrice,
			Volume:    candle.CandleAccTradeVol,
			Timestamp: ts,
		})
	}
	return bars, nil
}

// GetMarkets returns all tradable KRW market tickers.
func (c *Client) GetMarkets(ctx context.Context) ([]string, error) {
	var markets []marketResponse
	if err := c.doPublic(ctx, "/v1/market/all", nil, &markets); err != nil {
		return nil, fmt.Errorf("failed to get market list: %w", err)
	}

	tickers := make([]string, 0, len(markets))
	for _, m := range markets {
		if strings.HasPrefix(m.Market, "KRW-") {
			tickers = append(tickers, m.Market)
		}
	}
	return tickers, nil
}
