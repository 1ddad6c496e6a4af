package sync

import (
	"context"
	"strings"

	"github.com/erp/connector/internal/domain/command"
	"github.com/erp/connector/internal/domain/erp"
	"go.uber.org/zap"
)

// UpsertStore maps a store payload onto the store document, repairing
// documents older Manager builds created under the store-account id instead
// of the numeric store id.
func (h *Handlers) UpsertStore(ctx context.Context, storeID string, payload command.Fields) *command.ApplyResult {
	storeExternalID := payload.StringOr("store_id", storeID)
	if storeExternalID == "" {
		result := command.NewApplyResult(command.StatusFailed)
		result.AddError("missing_store_id", "store_id is required.", nil)
		return result
	}

	h.repairStoreIdentity(ctx, storeID, storeExternalID)

	rec := &erp.Record{
		ExternalID: storeExternalID,
		StoreID:    storeExternalID,
		Fields:     map[string]any{"store_id": storeExternalID},
	}
	setIfPresent(rec.Fields, "store_name", payload, "store_name")
	setIfPresent(rec.Fields, "store_domain", payload, "store_domain")
	setIfPresent(rec.Fields, "status", payload, "status")
	setIfPresent(rec.Fields, "merchant_id", payload, "merchant_id")
	if payload.Has("is_authorized") {
		rec.Fields["is_authorized"] = payload.Bool("is_authorized")
	}
	setIfPresent(rec.Fields, "plan", payload, "plan")
	setIfPresent(rec.Fields, "company", payload, "company")
	setIfPresent(rec.Fields, "warehouse", payload, "warehouse")
	setIfPresent(rec.Fields, "price_list", payload, "price_list")
	setIfPresent(rec.Fields, "default_customer_group", payload, "default_customer_group")
	setIfPresent(rec.Fields, "default_territory", payload, "default_territory")
	setIfPresent(rec.Fields, "shipping_cost_item", payload, "shipping_cost_item")
	setIfPresent(rec.Fields, "cash_on_delivery_fee_item", payload, "cash_on_delivery_fee_item")
	rec.Fields["taxes"] = buildStoreTaxes(payload.Maps("taxes"))
	rec.Fields["warehouses_and_branches"] = buildStoreBranches(payload.Maps("warehouses_and_branches"))

	name, created, err := h.upsert(ctx, erp.DoctypeStore, erp.Lookup{ExternalID: storeExternalID}, rec)
	if err != nil {
		return storeFailed(err)
	}
	return applied(erp.DoctypeStore, name, created)
}

// repairStoreIdentity renames a store document created under an SM-STORE-
// account id to the real numeric store id. Best-effort; the normal upsert
// proceeds either way.
func (h *Handlers) repairStoreIdentity(ctx context.Context, storeID, storeExternalID string) {
	if storeID == "" || storeID == storeExternalID {
		return
	}
	if !strings.HasPrefix(storeID, "SM-STORE-") || !isDigits(storeExternalID) {
		return
	}

	wrong, err := h.store.Find(ctx, erp.DoctypeStore, erp.Lookup{ExternalID: storeID})
	if err != nil {
		return
	}
	correctExists, err := h.store.Exists(ctx, erp.DoctypeStore, erp.Lookup{ExternalID: storeExternalID})
	if err != nil || correctExists {
		return
	}
	if err := h.store.Rename(ctx, erp.DoctypeStore, wrong.Name, storeExternalID); err != nil {
		h.logger.Warn("store identity repair failed",
			zap.String("wrong_name", wrong.Name),
			zap.String("store_id", storeExternalID),
			zap.Error(err))
		return
	}
	// The renamed document keeps the wrong external id until the upsert
	// below rewrites it.
	_ = h.store.Update(ctx, erp.DoctypeStore, &erp.Record{
		Name:       storeExternalID,
		ExternalID: storeExternalID,
		StoreID:    storeExternalID,
		Fields:     map[string]any{"store_id": storeExternalID},
	})
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func buildStoreTaxes(rows []command.Fields) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, map[string]any{
			"tax_id":  row.String("tax_id"),
			"status":  row.StringOr("status", "active"),
			"tax":     row.String("tax"),
			"country": row.String("country"),
			"sales_taxes_and_charges_template": row.String("sales_taxes_and_charges_template"),
		})
	}
	return out
}

func buildStoreBranches(rows []command.Fields) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, map[string]any{
			"salla_id":         row.FirstString("branch_id", "id"),
			"branch_name":      row.FirstString("branch_name", "name"),
			"type":             row.String("type"),
			"status":           row.String("status"),
			"is_default":       row.Bool("is_default"),
			"is_cod_available": row.Bool("is_cod_available"),
			"cod_cost":         row.String("cod_cost"),
			"country":          row.String("country"),
			"city":             row.String("city"),
			"postal_code":      row.String("postal_code"),
			"street":           row.String("street"),
			"phone":            row.String("phone"),
			"erp_branch":       row.String("erp_branch"),
			"erp_warehouse":    row.String("erp_warehouse"),
		})
	}
	return out
}

// UpsertCategory stores a category keyed by (store_id, category_id).
func (h *Handlers) UpsertCategory(ctx context.Context, storeID string, payload command.Fields) *command.ApplyResult {
	categoryID := payload.FirstString("external_id", "category_id")
	if categoryID == "" {
		result := command.NewApplyResult(command.StatusFailed)
		result.AddError("missing_category_id", "Category external_id/category_id is required.", nil)
		return result
	}

	categoryName := payload.FirstString("category_name", "name")
	if categoryName == "" {
		categoryName = categoryID
	}

	rec := &erp.Record{
		ExternalID: categoryID,
		StoreID:    storeID,
		Code:       categoryID,
		Fields: map[string]any{
			"category_id":        categoryID,
			"category_name":      categoryName,
			"parent_category_id": payload.String("parent_category_id"),
			"path":               payload.String("path"),
			"is_active":          payload.BoolOr("is_active", true),
		},
	}
	if level, ok := payload.Int("level"); ok {
		rec.Fields["level"] = level
	}
	if sort, ok := payload.Int("sort_order"); ok {
		rec.Fields["sort_order"] = sort
	}
	if raw := payload.JSON("raw"); raw != "" {
		rec.Fields["raw"] = raw
	}

	name, created, err := h.upsert(ctx, erp.DoctypeCategory,
		erp.Lookup{Code: categoryID, StoreID: storeID}, rec)
	if err != nil {
		return storeFailed(err)
	}
	return applied(erp.DoctypeCategory, name, created)
}
