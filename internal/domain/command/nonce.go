package command

import (
	"context"
	"time"

	"github.com/erp/connector/internal/domain/shared"
)

// ErrNonceReplayed is returned when a nonce is seen a second time within its
// validity window.
var ErrNonceReplayed = shared.NewDomainError("NONCE_REPLAYED", "Nonce replay detected")

// NonceStore tracks seen (instance, nonce) pairs within a sliding window.
// CheckAndRecord is atomic: of two concurrent requests carrying the same
// nonce, exactly one passes. Entries expire after the window; a nonce
// reused later would fail the timestamp check anyway, so records need not
// outlive it. Implementations must be shared across all request-handling
// processes of the service.
type NonceStore interface {
	CheckAndRecord(ctx context.Context, instanceID, nonce string, window time.Duration) error
	Close() error
}
