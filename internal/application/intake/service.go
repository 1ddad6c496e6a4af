package intake

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/erp/connector/internal/domain/command"
	"github.com/erp/connector/internal/domain/connection"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/infrastructure/signature"
	"go.uber.org/zap"
)

// Service runs the intake pipeline. Every step before the ledger write is
// side-effect-free on the ERP and the ledger; recording the nonce is the one
// acceptable side effect, since its semantics are idempotent and expiring.
type Service struct {
	settings connection.Source
	nonces   command.NonceStore
	ledger   command.Ledger
	registry *Registry
	logger   *zap.Logger

	now      func() time.Time
	lastSeen func(time.Time)
}

// ServiceConfig holds the dependencies for creating a Service
type ServiceConfig struct {
	Settings connection.Source
	Nonces   command.NonceStore
	Ledger   command.Ledger
	Registry *Registry
	Logger   *zap.Logger

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
	// LastSeen, when set, is called with the receive time of every
	// authenticated delivery.
	LastSeen func(time.Time)
}

// NewService creates a new intake Service
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		settings: cfg.Settings,
		nonces:   cfg.Nonces,
		ledger:   cfg.Ledger,
		registry: cfg.Registry,
		logger:   logger,
		now:      now,
		lastSeen: cfg.LastSeen,
	}
}

// Handle runs one delivery through the pipeline and returns its Ack. A
// non-nil error means an infrastructure failure, not a rejected delivery;
// rejections come back as an Ack with ok=false.
func (s *Service) Handle(ctx context.Context, req Request) (*Ack, error) {
	settings := s.settings.Current()
	receivedAt := s.now().UTC()

	if rej := s.authenticate(ctx, req, settings, receivedAt); rej != nil {
		s.logger.Warn("delivery rejected",
			zap.String("kind", string(rej.Kind)),
			zap.String("detail", rej.Detail),
			zap.String("remote_addr", req.RemoteAddr),
			zap.String("idempotency_key", req.IdempotencyKey))
		return ackRejected(req.IdempotencyKey, rej), nil
	}

	if s.lastSeen != nil {
		s.lastSeen(receivedAt)
	}

	env, err := command.DecodeEnvelope(req.Body)
	if err != nil {
		rej := rejectMalformed(err.Error())
		s.logger.Warn("delivery rejected",
			zap.String("kind", string(rej.Kind)),
			zap.String("detail", rej.Detail),
			zap.String("idempotency_key", req.IdempotencyKey))
		return ackRejected(req.IdempotencyKey, rej), nil
	}

	// Repeat deliveries short-circuit to the stored outcome; the handler's
	// side effect never runs twice for one idempotency key.
	if stored, err := s.ledger.Lookup(ctx, req.IdempotencyKey); err == nil {
		return ackDuplicate(stored), nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("ledger lookup: %w", err)
	}

	cmd := command.NewIncomingCommand(req.IdempotencyKey, env, req.Body)
	cmd.ReceivedAt = receivedAt
	if err := s.ledger.Create(ctx, cmd); err != nil {
		if errors.Is(err, command.ErrDuplicateKey) {
			// Lost the race to a concurrent delivery of the same key. The
			// winner's row may still be in flight; its status answers either way.
			stored, lookupErr := s.ledger.Lookup(ctx, req.IdempotencyKey)
			if lookupErr != nil {
				return nil, fmt.Errorf("ledger lookup after duplicate create: %w", lookupErr)
			}
			return ackDuplicate(stored), nil
		}
		return nil, fmt.Errorf("ledger create: %w", err)
	}

	s.decide(ctx, cmd, env, settings)

	if err := s.ledger.Finalize(ctx, cmd); err != nil {
		return nil, fmt.Errorf("ledger finalize: %w", err)
	}

	s.logger.Info("command processed",
		zap.String("command_type", cmd.CommandType),
		zap.String("store_id", cmd.StoreID),
		zap.String("status", string(cmd.Status)),
		zap.String("idempotency_key", cmd.IdempotencyKey))
	return ackFor(cmd), nil
}

// authenticate runs the pre-ledger checks in their fixed order. A nil return
// means the delivery is authenticated.
func (s *Service) authenticate(ctx context.Context, req Request, settings connection.Settings, receivedAt time.Time) *Rejection {
	if !req.Complete() {
		return rejectMalformed("missing required headers")
	}
	if err := settings.Validate(); err != nil {
		return rejectAuth("connection not configured")
	}
	if !settings.IPAllowed(req.RemoteAddr) {
		return rejectAuth("address not in allow-list")
	}
	if req.InstanceID != settings.InstanceID {
		return rejectAuth("instance mismatch")
	}

	ts, err := strconv.ParseInt(req.Timestamp, 10, 64)
	if err != nil {
		return rejectMalformed("invalid timestamp header")
	}
	drift := receivedAt.Unix() - ts
	if drift < 0 {
		drift = -drift
	}
	window := settings.Window()
	if time.Duration(drift)*time.Second > window {
		return rejectAuth("timestamp outside window")
	}

	if err := s.nonces.CheckAndRecord(ctx, req.InstanceID, req.Nonce, window); err != nil {
		if errors.Is(err, command.ErrNonceReplayed) {
			return rejectAuth("nonce replay")
		}
		s.logger.Error("nonce store failure", zap.Error(err))
		return rejectAuth("nonce check unavailable")
	}

	if err := signature.Verify(settings.SharedSecret, req.Timestamp, req.Nonce, req.Body, req.Signature); err != nil {
		return rejectAuth("signature mismatch")
	}
	return nil
}

// decide routes an authenticated, ledgered command to its terminal status:
// toggle gate, handler resolution, then dispatch.
func (s *Service) decide(ctx context.Context, cmd *command.IncomingCommand, env command.Envelope, settings connection.Settings) {
	if !settings.CommandEnabled(cmd.CommandType) {
		_ = cmd.MarkSkipped(command.SkipReasonDisabled, "")
		return
	}

	handler, ok := s.registry.Resolve(cmd.CommandType)
	if !ok {
		_ = cmd.MarkSkipped(command.SkipReasonUnsupported, "")
		return
	}

	result := s.dispatch(ctx, handler, cmd, env)
	if err := cmd.RecordApplyResult(result); err != nil {
		s.logger.Error("apply result rejected",
			zap.String("idempotency_key", cmd.IdempotencyKey),
			zap.Error(err))
	}
}

// dispatch invokes the handler, converting a panic into a failed result so
// one bad payload cannot take the worker down. A nil result is a handler bug
// and finalizes as failed; the command must still reach a terminal status.
func (s *Service) dispatch(ctx context.Context, handler Handler, cmd *command.IncomingCommand, env command.Envelope) (result *command.ApplyResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panicked",
				zap.String("command_type", cmd.CommandType),
				zap.String("idempotency_key", cmd.IdempotencyKey),
				zap.Any("panic", r))
			result = command.Failed("handler_panic", fmt.Sprintf("handler panicked: %v", r))
		}
	}()
	result = handler(ctx, env.StoreIdentity(), env.EntityPayload())
	if result == nil {
		s.logger.Error("handler returned no result",
			zap.String("command_type", cmd.CommandType),
			zap.String("idempotency_key", cmd.IdempotencyKey))
		result = command.Failed("nil_result", "handler returned no result")
	}
	return result
}
