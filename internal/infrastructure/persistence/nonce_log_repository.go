package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/erp/connector/internal/domain/command"
	"github.com/erp/connector/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormNonceStore implements command.NonceStore on the nonce_log table. The
// composite unique index on (instance_id, nonce) makes the check-and-record
// atomic across worker processes without advisory locks.
type GormNonceStore struct {
	db *gorm.DB

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewGormNonceStore creates a database-backed nonce store and starts the
// expired-row reaper.
func NewGormNonceStore(db *gorm.DB) *GormNonceStore {
	store := &GormNonceStore{
		db:       db,
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.reapLoop()

	return store
}

// CheckAndRecord inserts the (instance, nonce) pair. A duplicate row whose
// window has lapsed is reclaimed in place; a live duplicate is a replay.
func (s *GormNonceStore) CheckAndRecord(ctx context.Context, instanceID, nonce string, window time.Duration) error {
	now := time.Now().UTC()
	row := models.NonceLogModel{
		InstanceID: instanceID,
		Nonce:      nonce,
		SeenAt:     now,
		ExpiresAt:  now.Add(window),
	}

	err := s.db.WithContext(ctx).Create(&row).Error
	if err == nil {
		return nil
	}
	if !isDuplicateKeyError(err) {
		return err
	}

	// The pair exists. Take it over only if its window has lapsed; the
	// conditional UPDATE keeps the takeover atomic under concurrency.
	result := s.db.WithContext(ctx).Model(&models.NonceLogModel{}).
		Where("instance_id = ? AND nonce = ? AND expires_at <= ?", instanceID, nonce, now).
		Updates(map[string]any{
			"seen_at":    now,
			"expires_at": now.Add(window),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return command.ErrNonceReplayed
	}
	return nil
}

// Purge deletes expired nonce rows and returns how many were removed.
func (s *GormNonceStore) Purge(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", time.Now().UTC()).
		Delete(&models.NonceLogModel{})
	return result.RowsAffected, result.Error
}

// Close stops the reaper goroutine. Safe to call multiple times.
func (s *GormNonceStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// reapLoop periodically purges expired rows
func (s *GormNonceStore) reapLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			_, _ = s.Purge(ctx)
			cancel()
		}
	}
}

// Ensure GormNonceStore implements NonceStore
var _ command.NonceStore = (*GormNonceStore)(nil)
