package intake

import "github.com/erp/connector/internal/domain/command"

// Request is one delivery as it arrived on the wire: the five auth headers,
// the caller address, and the raw body bytes the signature covers.
type Request struct {
	InstanceID     string
	Timestamp      string
	Nonce          string
	Signature      string
	IdempotencyKey string
	RemoteAddr     string
	Body           []byte
}

// Complete reports whether all required headers are present.
func (r Request) Complete() bool {
	return r.InstanceID != "" && r.Timestamp != "" && r.Nonce != "" &&
		r.Signature != "" && r.IdempotencyKey != ""
}

// Ack statuses beyond the command's own lifecycle statuses.
const (
	AckStatusRejected  = "rejected"
	AckStatusDuplicate = "duplicate"
)

// Ack is the response envelope returned for every delivery, accepted or not.
// AckStatus mirrors Status except for duplicate deliveries, where Status
// carries the stored outcome and AckStatus says why no work was done.
type Ack struct {
	OK             bool     `json:"ok"`
	IdempotencyKey string   `json:"idempotency_key"`
	Status         string   `json:"status"`
	AckStatus      string   `json:"ack_status"`
	Errors         []string `json:"errors"`
}

// ackFor builds the Ack for a command that went through the pipeline.
func ackFor(cmd *command.IncomingCommand) *Ack {
	ack := &Ack{
		OK:             cmd.Status != command.StatusFailed,
		IdempotencyKey: cmd.IdempotencyKey,
		Status:         string(cmd.Status),
		AckStatus:      string(cmd.Status),
		Errors:         []string{},
	}
	if cmd.ErrorDetails != "" {
		ack.Errors = append(ack.Errors, cmd.ErrorDetails)
	}
	return ack
}

// ackDuplicate builds the Ack for a repeat delivery: the stored outcome with
// a duplicate marker, always ok.
func ackDuplicate(cmd *command.IncomingCommand) *Ack {
	return &Ack{
		OK:             true,
		IdempotencyKey: cmd.IdempotencyKey,
		Status:         string(cmd.Status),
		AckStatus:      AckStatusDuplicate,
		Errors:         []string{},
	}
}

// ackRejected builds the Ack for a delivery turned away before the ledger.
func ackRejected(idempotencyKey string, rej *Rejection) *Ack {
	return &Ack{
		OK:             false,
		IdempotencyKey: idempotencyKey,
		Status:         AckStatusRejected,
		AckStatus:      AckStatusRejected,
		Errors:         []string{rej.Public()},
	}
}
