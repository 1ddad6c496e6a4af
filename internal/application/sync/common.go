package sync

import (
	"context"
	"errors"

	"github.com/erp/connector/internal/domain/command"
	"github.com/erp/connector/internal/domain/erp"
	"github.com/erp/connector/internal/domain/shared"
	"go.uber.org/zap"
)

// inactiveStatuses are the Manager statuses that disable a product locally.
var inactiveStatuses = map[string]bool{
	"inactive": true,
	"hidden":   true,
	"draft":    true,
	"deleted":  true,
}

const (
	defaultItemGroup     = "All Item Groups"
	defaultCustomerGroup = "All Customer Groups"
	defaultTerritory     = "All Territories"
)

// upsert finds the record matching the lookup and updates it, or inserts a
// new one. Returns the record name and whether it was created.
func (h *Handlers) upsert(ctx context.Context, doctype string, by erp.Lookup, rec *erp.Record) (string, bool, error) {
	existing, err := h.store.Find(ctx, doctype, by)
	if errors.Is(err, shared.ErrNotFound) {
		if err := h.store.Insert(ctx, doctype, rec); err != nil {
			return "", false, err
		}
		return rec.Name, true, nil
	}
	if err != nil {
		return "", false, err
	}

	rec.Name = existing.Name
	if err := h.store.Update(ctx, doctype, rec); err != nil {
		return "", false, err
	}
	return existing.Name, false, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}

// findName resolves a record name by external id, returning "" when absent.
func (h *Handlers) findName(ctx context.Context, doctype, externalID string) (string, error) {
	if externalID == "" {
		return "", nil
	}
	rec, err := h.store.Find(ctx, doctype, erp.Lookup{ExternalID: externalID})
	if errors.Is(err, shared.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return rec.Name, nil
}

// applied builds the standard successful result for an upserted record.
func applied(doctype, name string, created bool) *command.ApplyResult {
	result := command.Applied(doctype)
	result.ERPDoc = name
	if created {
		result.Message = "Created"
	} else {
		result.Message = "Updated"
	}
	return result
}

// storeFailed wraps a record-store error as a failed result.
func storeFailed(err error) *command.ApplyResult {
	return command.Failed("erp_error", err.Error())
}

// skuMissing logs the skipped entity for operator follow-up and builds the
// skipped result carrying the sku_missing warning the pipeline promotes.
func (h *Handlers) skuMissing(ctx context.Context, storeID, entityType, externalID string) *command.ApplyResult {
	logEntry := &erp.Record{
		StoreID:    storeID,
		ExternalID: externalID,
		Fields: map[string]any{
			"entity_type": entityType,
			"reason":      "Missing SKU",
		},
	}
	if err := h.store.Insert(ctx, erp.DoctypeSKUSkipLog, logEntry); err != nil {
		h.logger.Warn("sku skip log write failed",
			zap.String("store_id", storeID),
			zap.String("entity_type", entityType),
			zap.Error(err))
	}

	result := command.NewApplyResult(command.StatusSkipped)
	result.Message = "Missing SKU; entry skipped."
	result.AddWarning(command.WarningCodeSKUMissing,
		"SKU is mandatory and missing; entity skipped.",
		map[string]any{
			"store_id":    storeID,
			"entity_type": entityType,
			"external_id": externalID,
		})
	return result
}
