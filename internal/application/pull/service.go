// Package pull implements the outbound pull requester: the local ERP asking
// the Manager to re-send data it may have missed.
package pull

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erp/connector/internal/domain/connection"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/infrastructure/signature"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const pullPath = "/api/method/salla_manager.api.client.request_pull"

// ErrManualPullDisabled is returned when the manual-pull toggle is off.
var ErrManualPullDisabled = shared.NewDomainError("MANUAL_PULL_DISABLED",
	"Manual pull is disabled in connection settings")

// ErrManagerURLMissing is returned when no Manager base URL is configured.
var ErrManagerURLMissing = shared.NewDomainError("MANAGER_URL_MISSING",
	"Manager base URL is not configured")

// RemoteError carries a non-2xx Manager response.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("manager responded with %d", e.Status)
}

// Criteria narrows what the Manager should re-send. The zero value asks for
// everything.
type Criteria struct {
	StoreID     string   `json:"store_id,omitempty" binding:"omitempty,max=128"`
	EntityTypes []string `json:"entity_types,omitempty" binding:"omitempty,dive,oneof=product variant customer order order_status category store product_quantities"`
	Since       string   `json:"since,omitempty" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Limit       int      `json:"limit,omitempty" binding:"omitempty,min=1,max=1000"`
}

// Receipt reports a dispatched pull request.
type Receipt struct {
	IdempotencyKey string          `json:"idempotency_key"`
	Response       json.RawMessage `json:"response"`
}

// Service signs and posts pull requests to the Manager.
type Service struct {
	settings connection.Source
	client   *http.Client
	logger   *zap.Logger
	now      func() time.Time
}

// ServiceConfig holds the dependencies for creating a pull Service
type ServiceConfig struct {
	Settings connection.Source
	// Client overrides the HTTP client, for tests. Defaults to a 30s-timeout client.
	Client *http.Client
	Logger *zap.Logger
	Now    func() time.Time
}

// NewService creates a new pull Service
func NewService(cfg ServiceConfig) *Service {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{settings: cfg.Settings, client: client, logger: logger, now: now}
}

// Request asks the Manager to re-send data matching the criteria. Single
// attempt; a non-2xx answer comes back as a *RemoteError.
func (s *Service) Request(ctx context.Context, criteria Criteria) (*Receipt, error) {
	settings := s.settings.Current()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if !settings.EnableManualPull {
		return nil, ErrManualPullDisabled
	}
	baseURL := strings.TrimRight(settings.ManagerBaseURL, "/")
	if baseURL == "" {
		return nil, ErrManagerURLMissing
	}

	body, err := json.Marshal(criteria)
	if err != nil {
		return nil, fmt.Errorf("encode pull criteria: %w", err)
	}

	timestamp := strconv.FormatInt(s.now().Unix(), 10)
	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}
	idempotencyKey := strings.ReplaceAll(uuid.NewString(), "-", "")
	sig := signature.Sign(settings.SharedSecret, timestamp, nonce, body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+pullPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build pull request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Instance-ID", settings.InstanceID)
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Nonce", nonce)
	req.Header.Set("X-Signature", sig)
	req.Header.Set("X-Idempotency-Key", idempotencyKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pull request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read pull response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("pull request refused",
			zap.Int("status", resp.StatusCode),
			zap.String("idempotency_key", idempotencyKey))
		return nil, &RemoteError{Status: resp.StatusCode, Body: string(respBody)}
	}

	s.logger.Info("pull requested",
		zap.String("idempotency_key", idempotencyKey),
		zap.Strings("entity_types", criteria.EntityTypes))

	receipt := &Receipt{IdempotencyKey: idempotencyKey}
	if json.Valid(respBody) {
		receipt.Response = respBody
	}
	return receipt, nil
}

// newNonce returns a 32-char random hex string.
func newNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
