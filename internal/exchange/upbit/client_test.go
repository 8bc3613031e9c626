package upbit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaewoo-dev/upbit-trading-bot/internal/exchange"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/retry"
)

func newTestClient(serverURL string) *Client {
	c := NewClient(Config{
		AccessKey: "test-access",
		SecretKey: "test-secret",
		BaseURL:   serverURL,
	})
	c.retryPolicy = retry.FixedPolicy(3, time.Millisecond)
	return c
}

func TestGetCurrentPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/ticker", r.URL.Path)
		assert.Equal(t, "KRW-BTC", r.URL.Query().Get("markets"))
		w.Write([]byte(`[{"market":"KRW-BTC","trade_price":91500000.0}]`))
	}))
	defer server.Close()

	price, err := newTestClient(server.URL).GetCurrentPrice(context.Background(), "KRW-BTC")
	require.NoError(t, err)
	assert.InDelta(t, 91_500_000, price, 1e-9)
}

func TestGetDailyCandles_ReversedOldestFirst(t *testing.T) {
	// Upbit reports newest first; the client must flip the order.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/candles/days", r.URL.Path)
		w.Write([]byte(`[
			{"market":"KRW-BTC","candle_date_time_utc":"2026-08-30T00:00:00","opening_price":3,"high_price":3,"low_price":3,"trade_price":3,"candle_acc_trade_volume":1},
			{"market":"KRW-BTC","candle_date_time_utc":"2026-08-29T00:00:00","opening_price":2,"high_price":2,"low_price":2,"trade_price":2,"candle_acc_trade_volume":1},
			{"market":"KRW-BTC","candle_date_time_utc":"2026-08-28T00:00:00","opening_price":1,"high_price":1,"low_price":1,"trade_price":1,"candle_acc_trade_volume":1}
		]`))
	}))
	defer server.Close()

	bars, err := newTestClient(server.URL).GetDailyCandles(context.Background(), "KRW-BTC", 3)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, 1.0, bars[0].Close)
	assert.Equal(t, 3.0, bars[2].Close)
	assert.True(t, bars[0].Timestamp.Before(bars[2].Timestamp))
}

func TestGetMarkets_FiltersKRWPairs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"market":"KRW-BTC"},
			{"market":"BTC-ETH"},
			{"market":"KRW-XRP"},
			{"market":"USDT-TRX"}
		]`))
	}))
	defer server.Close()

	markets, err := newTestClient(server.URL).GetMarkets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"KRW-BTC", "KRW-XRP"}, markets)
}

func TestGetBalances_SkipsEmptyAccounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`[
			{"currency":"KRW","balance":"150000.5","locked":"0"},
			{"currency":"BTC","balance":"0","locked":"0"},
			{"currency":"ETH","balance":"0.5","locked":"0.1"}
		]`))
	}))
	defer server.Close()

	balances, err := newTestClient(server.URL).GetBalances(context.Background())
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, "KRW", balances[0].Currency)
	assert.InDelta(t, 150_000.5, balances[0].Free, 1e-9)
	assert.InDelta(t, 0.6, balances[1].Total(), 1e-9)
}

func TestPlaceMarketBuy_SignedFormRequest(t *testing.T) {
	var authHeader, contentType, body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseForm())
		body = r.PostForm.Encode()
		w.Write([]byte(`{"uuid":"abc-123","market":"KRW-BTC","side":"bid","state":"wait",
			"price":"10000","executed_volume":"0"}`))
	}))
	defer server.Close()

	order, err := newTestClient(server.URL).PlaceMarketBuy(context.Background(), "KRW-BTC", 10_000)
	require.NoError(t, err)

	assert.Equal(t, "abc-123", order.ID)
	assert.Equal(t, exchange.StateWait, order.State)
	assert.Equal(t, "application/x-www-form-urlencoded", contentType)
	assert.Contains(t, body, "ord_type=price")
	assert.Contains(t, body, "side=bid")

	// The bearer token must be an HS256 JWT carrying the access key, a
	// nonce, and the SHA-512 hash of the submitted query.
	require.True(t, len(authHeader) > len("Bearer "))
	token, err := jwt.Parse(authHeader[len("Bearer "):], func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "test-access", claims["access_key"])
	assert.NotEmpty(t, claims["nonce"])
	assert.Equal(t, "SHA512", claims["query_hash_alg"])
	assert.NotEmpty(t, claims["query_hash"])
}

func TestGetOrder_DerivesAvgPriceFromTrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/order", r.URL.Path)
		w.Write([]byte(`{"uuid":"abc-123","market":"KRW-BTC","side":"bid","state":"done",
			"executed_volume":"0.002",
			"trades":[
				{"price":"50000000","volume":"0.001","funds":"50000"},
				{"price":"50100000","volume":"0.001","funds":"50100"}
			]}`))
	}))
	defer server.Close()

	order, err := newTestClient(server.URL).GetOrder(context.Background(), "abc-123")
	require.NoError(t, err)
	assert.Equal(t, exchange.StateDone, order.State)
	assert.InDelta(t, 50_050_000, order.AvgPrice, 1)
}

func TestDoPublic_RetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"name":"server_error","message":"try later"}}`))
			return
		}
		w.Write([]byte(`[{"market":"KRW-BTC","trade_price":100.0}]`))
	}))
	defer server.Close()

	price, err := newTestClient(server.URL).GetCurrentPrice(context.Background(), "KRW-BTC")
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.InDelta(t, 100, price, 1e-9)
}

func TestAPIError_Surfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"name":"invalid_access_key","message":"bad key"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetBalances(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_access_key")
}
