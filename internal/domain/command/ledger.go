package command

import (
	"context"

	"github.com/erp/connector/internal/domain/shared"
)

// ErrDuplicateKey is returned by Ledger.Create when another delivery already
// created the idempotency key. Two concurrent deliveries can race between
// Lookup and Create; the unique constraint is the arbiter.
var ErrDuplicateKey = shared.NewDomainError("DUPLICATE_KEY", "Idempotency key already recorded")

// Ledger is the durable idempotency ledger. It guarantees the handler's side
// effect runs at most once per idempotency key: a repeat delivery
// short-circuits at Lookup and returns the stored outcome.
type Ledger interface {
	// Lookup returns the command stored under the key, or shared.ErrNotFound.
	Lookup(ctx context.Context, idempotencyKey string) (*IncomingCommand, error)

	// Create persists a freshly received command. Returns ErrDuplicateKey
	// when the key already exists.
	Create(ctx context.Context, cmd *IncomingCommand) error

	// Finalize writes the command's terminal status, skip reason, error
	// details and apply results. Called exactly once per command.
	Finalize(ctx context.Context, cmd *IncomingCommand) error
}
