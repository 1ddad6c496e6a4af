package command

import (
	"strings"
	"time"

	"github.com/erp/connector/internal/domain/shared"
	"github.com/google/uuid"
)

// Status is the lifecycle status of an incoming command.
type Status string

const (
	StatusReceived Status = "received"
	StatusApplied  Status = "applied"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// Well-known skip reasons surfaced to operators.
const (
	SkipReasonDisabled    = "disabled_by_client_settings"
	SkipReasonUnsupported = "unsupported_command"
	SkipReasonMissingSKU  = "missing_sku"
)

// WarningCodeSKUMissing is promoted to SkipReasonMissingSKU during finalize.
const WarningCodeSKUMissing = "sku_missing"

// ApplyRecord is one persisted handler invocation outcome. Commands keep an
// append-only sequence of these rather than a single slot.
type ApplyRecord struct {
	Seq        int
	ERPDoctype string
	ERPDoc     string
	Status     Status
	Message    string
	Warnings   []ApplyMessage
	Errors     []ApplyMessage
}

// IncomingCommand is the durable record of one accepted webhook delivery,
// keyed by the caller-supplied idempotency key. It is created exactly once
// per key at "received" and transitions exactly once to a terminal status.
type IncomingCommand struct {
	ID             uuid.UUID
	IdempotencyKey string
	ReceivedAt     time.Time
	StoreID        string
	StoreAccountID string
	CommandType    string
	EntityType     string
	// Payload holds the envelope verbatim as received, for audit and replay.
	Payload      []byte
	Status       Status
	SkipReason   string
	ErrorDetails string
	ApplyResults []ApplyRecord
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewIncomingCommand creates a command log entry in the "received" state
// from a decoded envelope and the raw body it was decoded from.
func NewIncomingCommand(idempotencyKey string, env Envelope, rawBody []byte) *IncomingCommand {
	now := time.Now()
	body := make([]byte, len(rawBody))
	copy(body, rawBody)
	return &IncomingCommand{
		ID:             uuid.New(),
		IdempotencyKey: idempotencyKey,
		ReceivedAt:     now,
		StoreID:        env.StoreValue(),
		StoreAccountID: env.StoreAccountValue(),
		CommandType:    env.CommandType,
		EntityType:     env.EntityType,
		Payload:        body,
		Status:         StatusReceived,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsTerminal reports whether the command has reached its final status.
// Failed is terminal: redelivery of a failed key returns the stored failure
// instead of re-running a handler whose side effects may have partially
// applied.
func (c *IncomingCommand) IsTerminal() bool {
	return c.Status == StatusApplied || c.Status == StatusSkipped || c.Status == StatusFailed
}

// MarkSkipped finalizes the command as skipped with the given reason.
func (c *IncomingCommand) MarkSkipped(reason, details string) error {
	if err := c.transition(StatusSkipped); err != nil {
		return err
	}
	c.SkipReason = reason
	c.ErrorDetails = details
	return nil
}

// MarkFailed finalizes the command as failed with the captured error text.
func (c *IncomingCommand) MarkFailed(details string) error {
	if err := c.transition(StatusFailed); err != nil {
		return err
	}
	c.ErrorDetails = details
	return nil
}

// RecordApplyResult appends the handler's outcome and finalizes the command
// to the result's status. Well-known warning codes are promoted to the skip
// reason for operational filtering.
func (c *IncomingCommand) RecordApplyResult(result *ApplyResult) error {
	status := result.Status
	if status == "" {
		status = StatusApplied
	}
	if err := c.transition(status); err != nil {
		return err
	}
	c.ApplyResults = append(c.ApplyResults, ApplyRecord{
		Seq:        len(c.ApplyResults) + 1,
		ERPDoctype: result.ERPDoctype,
		ERPDoc:     result.ERPDoc,
		Status:     status,
		Message:    result.Message,
		Warnings:   result.Warnings,
		Errors:     result.Errors,
	})
	if status == StatusSkipped {
		switch {
		case result.HasWarningCode(WarningCodeSKUMissing):
			c.SkipReason = SkipReasonMissingSKU
		case result.Message != "":
			c.SkipReason = strings.ToLower(result.Message)
		default:
			c.SkipReason = string(StatusSkipped)
		}
	}
	if len(result.Errors) > 0 {
		c.ErrorDetails = result.Errors[0].Message
	}
	return nil
}

// transition enforces the single received→terminal state change.
func (c *IncomingCommand) transition(to Status) error {
	if c.Status != StatusReceived {
		return shared.ErrInvalidState
	}
	c.Status = to
	c.UpdatedAt = time.Now()
	return nil
}
