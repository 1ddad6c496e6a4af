// Package handler contains the gin handlers for the connector's HTTP surface.
package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/erp/connector/internal/application/intake"
	"github.com/erp/connector/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CommandReceiver runs one delivery through the intake pipeline.
type CommandReceiver interface {
	Handle(ctx context.Context, req intake.Request) (*intake.Ack, error)
}

// CommandHandler handles inbound command deliveries from the Manager
type CommandHandler struct {
	receiver CommandReceiver
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(receiver CommandReceiver) *CommandHandler {
	return &CommandHandler{receiver: receiver}
}

// Receive accepts one pushed command. The response is always the ack envelope;
// rejected deliveries come back with ok=false rather than an HTTP error, so
// the Manager can tell a refused delivery from a dead endpoint.
func (h *CommandHandler) Receive(c *gin.Context) {
	log := logger.GetGinLogger(c)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		// Oversized or truncated body. Same rejected envelope as any other
		// malformed delivery.
		log.Warn("command body unreadable", zap.Error(err))
		c.JSON(http.StatusOK, rejectedAck(c.GetHeader("X-Idempotency-Key"), "request body unreadable"))
		return
	}

	req := intake.Request{
		InstanceID:     c.GetHeader("X-Instance-ID"),
		Timestamp:      c.GetHeader("X-Timestamp"),
		Nonce:          c.GetHeader("X-Nonce"),
		Signature:      c.GetHeader("X-Signature"),
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
		RemoteAddr:     c.ClientIP(),
		Body:           body,
	}

	ack, err := h.receiver.Handle(c.Request.Context(), req)
	if err != nil {
		// Infrastructure failure: the delivery was neither stored nor
		// rejected. A 5xx tells the Manager to retry with the same key.
		log.Error("intake failed", zap.Error(err),
			zap.String("idempotency_key", req.IdempotencyKey))
		c.JSON(http.StatusInternalServerError, failedAck(req.IdempotencyKey))
		return
	}

	c.JSON(http.StatusOK, ack)
}

func rejectedAck(idempotencyKey, message string) *intake.Ack {
	return &intake.Ack{
		OK:             false,
		IdempotencyKey: idempotencyKey,
		Status:         intake.AckStatusRejected,
		AckStatus:      intake.AckStatusRejected,
		Errors:         []string{message},
	}
}

func failedAck(idempotencyKey string) *intake.Ack {
	return &intake.Ack{
		OK:             false,
		IdempotencyKey: idempotencyKey,
		Status:         "failed",
		AckStatus:      "failed",
		Errors:         []string{"internal error"},
	}
}
