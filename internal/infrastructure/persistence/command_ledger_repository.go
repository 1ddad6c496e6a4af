package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erp/connector/internal/domain/command"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCommandLedger implements command.Ledger using GORM. The unique index
// on idempotency_key arbitrates concurrent deliveries of the same key.
type GormCommandLedger struct {
	db *gorm.DB
}

// NewGormCommandLedger creates a new GormCommandLedger
func NewGormCommandLedger(db *gorm.DB) *GormCommandLedger {
	return &GormCommandLedger{db: db}
}

// Lookup returns the command stored under the idempotency key
func (r *GormCommandLedger) Lookup(ctx context.Context, idempotencyKey string) (*command.IncomingCommand, error) {
	var model models.IncomingCommandModel
	if err := r.db.WithContext(ctx).
		Preload("ApplyResults", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		Where("idempotency_key = ?", idempotencyKey).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create persists a freshly received command, translating the unique
// constraint violation into command.ErrDuplicateKey
func (r *GormCommandLedger) Create(ctx context.Context, cmd *command.IncomingCommand) error {
	model := models.IncomingCommandModelFromDomain(cmd)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKeyError(err) {
			return command.ErrDuplicateKey
		}
		return err
	}
	return nil
}

// Finalize writes the command's terminal state and its apply results in one
// transaction.
func (r *GormCommandLedger) Finalize(ctx context.Context, cmd *command.IncomingCommand) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.IncomingCommandModel{}).
			Where("id = ?", cmd.ID).
			Updates(map[string]any{
				"status":        string(cmd.Status),
				"skip_reason":   cmd.SkipReason,
				"error_details": cmd.ErrorDetails,
				"updated_at":    time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}

		for _, rec := range cmd.ApplyResults {
			model := models.ApplyResultModelFromDomain(cmd.ID, rec)
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// isDuplicateKeyError recognizes unique constraint violations across the
// supported drivers.
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || // postgres 23505
		strings.Contains(msg, "UNIQUE constraint failed") // sqlite
}

// Ensure GormCommandLedger implements Ledger
var _ command.Ledger = (*GormCommandLedger)(nil)
