package pull

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/connector/internal/domain/connection"
	"github.com/erp/connector/internal/infrastructure/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings(baseURL string) connection.Source {
	return connection.StaticSource{Settings: connection.Settings{
		InstanceID:       "inst-1",
		SharedSecret:     "0123456789abcdef0123456789abcdef",
		ManagerBaseURL:   baseURL,
		EnableManualPull: true,
	}}
}

func TestService_Request(t *testing.T) {
	var captured *http.Request
	var capturedBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(context.Background())
		capturedBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"queued"}`))
	}))
	defer server.Close()

	now := time.Unix(1700000000, 0)
	service := NewService(ServiceConfig{
		Settings: testSettings(server.URL),
		Now:      func() time.Time { return now },
	})

	receipt, err := service.Request(context.Background(), Criteria{
		StoreID:     "1001",
		EntityTypes: []string{"product", "order"},
		Limit:       100,
	})
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Len(t, receipt.IdempotencyKey, 32)
	assert.JSONEq(t, `{"message":"queued"}`, string(receipt.Response))

	require.NotNil(t, captured)
	assert.Equal(t, "/api/method/salla_manager.api.client.request_pull", captured.URL.Path)
	assert.Equal(t, "application/json", captured.Header.Get("Content-Type"))
	assert.Equal(t, "inst-1", captured.Header.Get("X-Instance-ID"))
	assert.Equal(t, "1700000000", captured.Header.Get("X-Timestamp"))
	assert.Len(t, captured.Header.Get("X-Nonce"), 32)
	assert.Equal(t, receipt.IdempotencyKey, captured.Header.Get("X-Idempotency-Key"))

	// The signature covers the exact body bytes that were sent.
	assert.NoError(t, signature.Verify(
		"0123456789abcdef0123456789abcdef",
		captured.Header.Get("X-Timestamp"),
		captured.Header.Get("X-Nonce"),
		capturedBody,
		captured.Header.Get("X-Signature"),
	))

	// Compact JSON with empty fields omitted.
	var sent map[string]any
	require.NoError(t, json.Unmarshal(capturedBody, &sent))
	assert.Equal(t, "1001", sent["store_id"])
	assert.NotContains(t, sent, "since")
}

func TestService_Request_RemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	service := NewService(ServiceConfig{Settings: testSettings(server.URL)})

	_, err := service.Request(context.Background(), Criteria{})
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusForbidden, remote.Status)
	assert.Contains(t, remote.Body, "nope")
}

func TestService_Request_Gating(t *testing.T) {
	t.Run("manual pull disabled", func(t *testing.T) {
		settings := connection.StaticSource{Settings: connection.Settings{
			InstanceID:     "inst-1",
			SharedSecret:   "secret",
			ManagerBaseURL: "http://manager.local",
		}}
		service := NewService(ServiceConfig{Settings: settings})

		_, err := service.Request(context.Background(), Criteria{})
		assert.ErrorIs(t, err, ErrManualPullDisabled)
	})

	t.Run("missing manager url", func(t *testing.T) {
		settings := connection.StaticSource{Settings: connection.Settings{
			InstanceID:       "inst-1",
			SharedSecret:     "secret",
			EnableManualPull: true,
		}}
		service := NewService(ServiceConfig{Settings: settings})

		_, err := service.Request(context.Background(), Criteria{})
		assert.ErrorIs(t, err, ErrManagerURLMissing)
	})

	t.Run("unconfigured connection", func(t *testing.T) {
		service := NewService(ServiceConfig{Settings: connection.StaticSource{}})
		_, err := service.Request(context.Background(), Criteria{})
		assert.Error(t, err)
	})
}
