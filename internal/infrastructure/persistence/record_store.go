package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/connector/internal/domain/erp"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRecordStore implements erp.RecordStore on the erp_records table. Every
// doctype shares one table; the doctype column partitions the keyspace.
type GormRecordStore struct {
	db *gorm.DB
}

// NewGormRecordStore creates a new GormRecordStore
func NewGormRecordStore(db *gorm.DB) *GormRecordStore {
	return &GormRecordStore{db: db}
}

// Find returns the first record matching the lookup
func (r *GormRecordStore) Find(ctx context.Context, doctype string, by erp.Lookup) (*erp.Record, error) {
	query, err := r.lookupQuery(ctx, doctype, by)
	if err != nil {
		return nil, err
	}

	var model models.ERPRecordModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Exists reports whether any record matches the lookup
func (r *GormRecordStore) Exists(ctx context.Context, doctype string, by erp.Lookup) (bool, error) {
	query, err := r.lookupQuery(ctx, doctype, by)
	if err != nil {
		return false, err
	}

	var count int64
	if err := query.Model(&models.ERPRecordModel{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Insert stores a new record, generating a Name when the caller left it empty
func (r *GormRecordStore) Insert(ctx context.Context, doctype string, rec *erp.Record) error {
	if rec.Name == "" {
		rec.Name = generateName(doctype)
	}

	model := models.ERPRecordModelFromDomain(doctype, rec)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKeyError(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update rewrites the record stored under rec.Name, merging Fields over the
// existing document.
func (r *GormRecordStore) Update(ctx context.Context, doctype string, rec *erp.Record) error {
	if rec.Name == "" {
		return shared.NewDomainError("MISSING_NAME", "Record name is required for update")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.ERPRecordModel
		if err := tx.Where("doctype = ? AND name = ?", doctype, rec.Name).
			First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		merged := existing.ToDomain()
		for k, v := range rec.Fields {
			merged.Fields[k] = v
		}
		if rec.ExternalID != "" {
			merged.ExternalID = rec.ExternalID
		}
		if rec.StoreID != "" {
			merged.StoreID = rec.StoreID
		}
		if rec.Code != "" {
			merged.Code = rec.Code
		}

		updated := models.ERPRecordModelFromDomain(doctype, merged)
		return tx.Model(&models.ERPRecordModel{}).
			Where("doctype = ? AND name = ?", doctype, rec.Name).
			Updates(map[string]any{
				"external_id": updated.ExternalID,
				"store_id":    updated.StoreID,
				"code":        updated.Code,
				"fields":      updated.Fields,
				"updated_at":  time.Now().UTC(),
			}).Error
	})
}

// Rename changes a record's Name
func (r *GormRecordStore) Rename(ctx context.Context, doctype, oldName, newName string) error {
	if newName == "" {
		return shared.NewDomainError("MISSING_NAME", "New record name is required for rename")
	}

	result := r.db.WithContext(ctx).Model(&models.ERPRecordModel{}).
		Where("doctype = ? AND name = ?", doctype, oldName).
		Update("name", newName)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return shared.ErrAlreadyExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// lookupQuery builds the WHERE clause for a lookup; zero-valued keys are
// ignored and an all-zero lookup is rejected.
func (r *GormRecordStore) lookupQuery(ctx context.Context, doctype string, by erp.Lookup) (*gorm.DB, error) {
	if by.Name == "" && by.ExternalID == "" && by.StoreID == "" && by.Code == "" {
		return nil, shared.NewDomainError("EMPTY_LOOKUP", "At least one lookup key is required")
	}

	query := r.db.WithContext(ctx).Where("doctype = ?", doctype)
	if by.Name != "" {
		query = query.Where("name = ?", by.Name)
	}
	if by.ExternalID != "" {
		query = query.Where("external_id = ?", by.ExternalID)
	}
	if by.StoreID != "" {
		query = query.Where("store_id = ?", by.StoreID)
	}
	if by.Code != "" {
		query = query.Where("code = ?", by.Code)
	}
	return query, nil
}

// generateName derives a document name in the ERP's naming convention,
// e.g. "SALLA-STORE-5f3a2b1c".
func generateName(doctype string) string {
	prefix := strings.ToUpper(strings.ReplaceAll(doctype, " ", "-"))
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

// Ensure GormRecordStore implements RecordStore
var _ erp.RecordStore = (*GormRecordStore)(nil)
