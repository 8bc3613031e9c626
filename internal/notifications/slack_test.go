package notifications

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackNotifier_PostsJSONPayload(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	err := notifier.SendAlert("warning", "ATR above volatility threshold")

	require.NoError(t, err)
	assert.Contains(t, received["text"], "⚠️")
	assert.Contains(t, received["text"], "ATR above volatility threshold")
}

func TestSlackNotifier_NonOKStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	err := NewSlackNotifier(server.URL).SendAlert("error", "boom")
	assert.ErrorContains(t, err, "403")
}

func TestNopNotifierSwallowsEverything(t *testing.T) {
	assert.NoError(t, NopNotifier{}.SendAlert("error", "ignored"))
}
