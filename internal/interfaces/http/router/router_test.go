package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erp/connector/internal/application/intake"
	"github.com/erp/connector/internal/domain/command"
	"github.com/erp/connector/internal/domain/connection"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/infrastructure/cache"
	"github.com/erp/connector/internal/infrastructure/signature"
	"github.com/erp/connector/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type memoryLedger struct {
	mu   sync.Mutex
	rows map[string]*command.IncomingCommand
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{rows: make(map[string]*command.IncomingCommand)}
}

func (l *memoryLedger) Lookup(ctx context.Context, idempotencyKey string) (*command.IncomingCommand, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cmd, ok := l.rows[idempotencyKey]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cmd, nil
}

func (l *memoryLedger) Create(ctx context.Context, cmd *command.IncomingCommand) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.rows[cmd.IdempotencyKey]; ok {
		return command.ErrDuplicateKey
	}
	l.rows[cmd.IdempotencyKey] = cmd
	return nil
}

func (l *memoryLedger) Finalize(ctx context.Context, cmd *command.IncomingCommand) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows[cmd.IdempotencyKey] = cmd
	return nil
}

func testEngine(t *testing.T, maxBody int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	nonces := cache.NewInMemoryNonceStore()
	t.Cleanup(func() { _ = nonces.Close() })

	registry := intake.NewRegistry()
	registry.Register("ping", func(ctx context.Context, storeID string, payload command.Fields) *command.ApplyResult {
		result := command.NewApplyResult(command.StatusApplied)
		result.Message = "pong"
		return result
	})

	service := intake.NewService(intake.ServiceConfig{
		Settings: connection.StaticSource{Settings: connection.Settings{
			InstanceID:   "inst-1",
			SharedSecret: testSecret,
		}},
		Nonces:   nonces,
		Ledger:   newMemoryLedger(),
		Registry: registry,
	})

	engine, err := New(Config{MaxBodySize: maxBody}, zap.NewNop(), Handlers{
		Command: handler.NewCommandHandler(service),
		Pull:    nil,
		System:  handler.NewSystemHandler(nil, nil),
	})
	require.NoError(t, err)
	return engine
}

var nonceSeq int

func signedDelivery(t *testing.T, key string, body []byte) *http.Request {
	t.Helper()
	nonceSeq++
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	nonce := fmt.Sprintf("nonce-%d", nonceSeq)

	req, err := http.NewRequest("POST", "/api/v1/commands/receive", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Instance-ID", "inst-1")
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Nonce", nonce)
	req.Header.Set("X-Signature", signature.Sign(testSecret, timestamp, nonce, body))
	req.Header.Set("X-Idempotency-Key", key)
	return req
}

func TestRouter_CommandDelivery(t *testing.T) {
	engine := testEngine(t, 1<<20)

	body := []byte(`{"command_type":"ping","store_id":"1001","payload":{}}`)
	req := signedDelivery(t, "delivery-1", body)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var ack intake.Ack
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.True(t, ack.OK)
	assert.Equal(t, "applied", ack.Status)
	assert.Equal(t, "delivery-1", ack.IdempotencyKey)
}

func TestRouter_CommandDelivery_BadSignature(t *testing.T) {
	engine := testEngine(t, 1<<20)

	body := []byte(`{"command_type":"ping","payload":{}}`)
	req := signedDelivery(t, "delivery-2", body)
	req.Header.Set("X-Signature", strings.Repeat("0", 64))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	// Rejected, but still HTTP 200 with the envelope verdict.
	assert.Equal(t, http.StatusOK, w.Code)

	var ack intake.Ack
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.False(t, ack.OK)
	assert.Equal(t, intake.AckStatusRejected, ack.AckStatus)
}

func TestRouter_CommandDelivery_BodyTooLarge(t *testing.T) {
	engine := testEngine(t, 64)

	body := []byte(`{"command_type":"ping","payload":"` + strings.Repeat("x", 512) + `"}`)
	req := signedDelivery(t, "delivery-3", body)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "REQUEST_TOO_LARGE")
}

func TestRouter_HealthEndpoints(t *testing.T) {
	engine := testEngine(t, 1<<20)

	for _, path := range []string{"/healthz", "/readyz"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", path, nil)
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
