package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/connector/internal/application/intake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReceiver struct {
	ack *intake.Ack
	err error

	received intake.Request
}

func (s *stubReceiver) Handle(ctx context.Context, req intake.Request) (*intake.Ack, error) {
	s.received = req
	return s.ack, s.err
}

func commandRouter(receiver *stubReceiver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/receive", NewCommandHandler(receiver).Receive)
	return router
}

func TestCommandHandler_Receive(t *testing.T) {
	receiver := &stubReceiver{ack: &intake.Ack{
		OK:             true,
		IdempotencyKey: "key-1",
		Status:         "applied",
		AckStatus:      "applied",
		Errors:         []string{},
	}}
	router := commandRouter(receiver)

	body := []byte(`{"command_type":"push_product","payload":{}}`)
	req, _ := http.NewRequest("POST", "/receive", bytes.NewReader(body))
	req.Header.Set("X-Instance-ID", "inst-1")
	req.Header.Set("X-Timestamp", "1700000000")
	req.Header.Set("X-Nonce", "nonce-1")
	req.Header.Set("X-Signature", "sig-1")
	req.Header.Set("X-Idempotency-Key", "key-1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var ack intake.Ack
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.True(t, ack.OK)
	assert.Equal(t, "applied", ack.Status)

	// Every wire detail reaches the pipeline untouched.
	assert.Equal(t, "inst-1", receiver.received.InstanceID)
	assert.Equal(t, "1700000000", receiver.received.Timestamp)
	assert.Equal(t, "nonce-1", receiver.received.Nonce)
	assert.Equal(t, "sig-1", receiver.received.Signature)
	assert.Equal(t, "key-1", receiver.received.IdempotencyKey)
	assert.Equal(t, body, receiver.received.Body)
	assert.NotEmpty(t, receiver.received.RemoteAddr)
}

func TestCommandHandler_Receive_RejectedAckPassesThrough(t *testing.T) {
	receiver := &stubReceiver{ack: &intake.Ack{
		OK:             false,
		IdempotencyKey: "key-2",
		Status:         intake.AckStatusRejected,
		AckStatus:      intake.AckStatusRejected,
		Errors:         []string{"authentication failed"},
	}}
	router := commandRouter(receiver)

	req, _ := http.NewRequest("POST", "/receive", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Rejections are still HTTP 200; the envelope carries the verdict.
	assert.Equal(t, http.StatusOK, w.Code)

	var ack intake.Ack
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.False(t, ack.OK)
	assert.Equal(t, intake.AckStatusRejected, ack.AckStatus)
	assert.Equal(t, []string{"authentication failed"}, ack.Errors)
}

func TestCommandHandler_Receive_InfrastructureFailure(t *testing.T) {
	receiver := &stubReceiver{err: errors.New("ledger down")}
	router := commandRouter(receiver)

	req, _ := http.NewRequest("POST", "/receive", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("X-Idempotency-Key", "key-3")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var ack intake.Ack
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.False(t, ack.OK)
	assert.Equal(t, "failed", ack.Status)
	assert.Equal(t, "key-3", ack.IdempotencyKey)
}
