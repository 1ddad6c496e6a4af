package sync

import (
	"context"
	"fmt"

	"github.com/erp/connector/internal/domain/command"
	"github.com/erp/connector/internal/domain/erp"
)

// Ping is the non-mutating connectivity check.
func (h *Handlers) Ping(_ context.Context, storeID string, _ command.Fields) *command.ApplyResult {
	result := command.NewApplyResult(command.StatusApplied)
	result.Message = "pong"
	_ = storeID
	return result
}

// UpsertProduct maps a product payload onto an Item. SKU is mandatory:
// without it the entity is skipped and logged for follow-up.
func (h *Handlers) UpsertProduct(ctx context.Context, storeID string, payload command.Fields) *command.ApplyResult {
	externalID := payload.String("external_id")
	sku := payload.String("sku")
	if sku == "" {
		return h.skuMissing(ctx, storeID, "product", externalID)
	}

	rec := &erp.Record{
		ExternalID: externalID,
		StoreID:    storeID,
		Code:       sku,
		Fields: map[string]any{
			"item_code":  sku,
			"item_name":  payload.StringOr("name", sku),
			"item_group": payload.StringOr("item_group", defaultItemGroup),
			"disabled":   inactiveStatuses[payload.String("status")],
		},
	}
	setIfPresent(rec.Fields, "description", payload, "description")
	setIfPresent(rec.Fields, "salla_url", payload, "url")
	setIfPresent(rec.Fields, "salla_brand_id", payload, "brand_id")
	setIfPresent(rec.Fields, "salla_category_ids", payload, "category_ids")
	setIfPresent(rec.Fields, "salla_images", payload, "images")

	by := erp.Lookup{ExternalID: externalID}
	if externalID == "" {
		by = erp.Lookup{Code: sku}
	}
	name, created, err := h.upsert(ctx, erp.DoctypeItem, by, rec)
	if err != nil {
		return storeFailed(err)
	}
	return applied(erp.DoctypeItem, name, created)
}

// UpsertVariant maps a variant payload onto an Item linked to its template.
// The template item must already exist.
func (h *Handlers) UpsertVariant(ctx context.Context, storeID string, payload command.Fields) *command.ApplyResult {
	externalID := payload.String("external_id")
	sku := payload.String("sku")
	if sku == "" {
		return h.skuMissing(ctx, storeID, "variant", externalID)
	}

	productExternalID := payload.String("product_id")
	templateName, err := h.findName(ctx, erp.DoctypeItem, productExternalID)
	if err != nil {
		return storeFailed(err)
	}
	if templateName == "" {
		result := command.NewApplyResult(command.StatusFailed)
		result.AddError("missing_template", "Variant template item not found for product.",
			map[string]any{"product_id": productExternalID})
		return result
	}

	rec := &erp.Record{
		ExternalID: externalID,
		StoreID:    storeID,
		Code:       sku,
		Fields: map[string]any{
			"item_code":  sku,
			"item_name":  payload.StringOr("name", sku),
			"variant_of": templateName,
			"disabled":   inactiveStatuses[payload.String("status")],
		},
	}
	setIfPresent(rec.Fields, "salla_options", payload, "options")

	name, created, err := h.upsert(ctx, erp.DoctypeItem, erp.Lookup{ExternalID: externalID}, rec)
	if err != nil {
		return storeFailed(err)
	}
	return applied(erp.DoctypeItem, name, created)
}

// UpsertBrand acknowledges the command without touching any record; brand
// metadata has no local representation.
func (h *Handlers) UpsertBrand(_ context.Context, _ string, _ command.Fields) *command.ApplyResult {
	result := command.NewApplyResult(command.StatusApplied)
	result.Message = "Brand acknowledged; no local record."
	return result
}

// UpsertProductOption stores a product option document keyed by
// (product_id, option_id).
func (h *Handlers) UpsertProductOption(ctx context.Context, storeID string, payload command.Fields) *command.ApplyResult {
	optionID := payload.FirstString("option_id", "id")
	productID := payload.FirstString("product_id", "product_external_id")
	if optionID == "" || productID == "" {
		result := command.NewApplyResult(command.StatusFailed)
		result.AddError("missing_ids", "option_id and product_id are required.", nil)
		return result
	}

	targetStore := payload.StringOr("store_id", storeID)
	rec := &erp.Record{
		ExternalID: fmt.Sprintf("%s:%s", productID, optionID),
		StoreID:    targetStore,
		Code:       optionID,
		Fields: map[string]any{
			"product_id":  productID,
			"option_id":   optionID,
			"option_name": payload.FirstString("option_name", "name"),
			"values":      normalizeOptionValues(payload.Maps("values")),
			"raw":         payload.JSON("raw"),
		},
	}
	if rec.Fields["option_name"] == "" {
		rec.Fields["option_name"] = optionID
	}
	if pos, ok := payload.Int("position"); ok {
		rec.Fields["position"] = pos
	}

	name, created, err := h.upsert(ctx, erp.DoctypeProductOption,
		erp.Lookup{ExternalID: rec.ExternalID}, rec)
	if err != nil {
		return storeFailed(err)
	}
	return applied(erp.DoctypeProductOption, name, created)
}

// normalizeOptionValues flattens the Manager's divergent value naming into
// one shape.
func normalizeOptionValues(values []command.Fields) []map[string]any {
	out := make([]map[string]any, 0, len(values))
	for _, val := range values {
		out = append(out, map[string]any{
			"value_id":   val.FirstString("value_id", "id"),
			"label":      val.FirstString("label", "name", "display_value", "value_label"),
			"is_default": val.Bool("is_default"),
		})
	}
	return out
}

// UpsertProductQuantities stores a stock-level snapshot keyed by
// (external_id, store_id), linking it to the Item when the SKU resolves.
func (h *Handlers) UpsertProductQuantities(ctx context.Context, storeID string, payload command.Fields) *command.ApplyResult {
	externalID := payload.String("external_id")
	targetStore := payload.StringOr("store_id", storeID)
	sku := payload.String("sku")

	itemName, err := h.resolveItemBySKU(ctx, sku)
	if err != nil {
		return storeFailed(err)
	}

	rec := &erp.Record{
		ExternalID: externalID,
		StoreID:    targetStore,
		Code:       sku,
		Fields: map[string]any{
			"sku":                sku,
			"sku_id":             payload.String("sku_id"),
			"item":               itemName,
			"product_name":       payload.String("name"),
			"variant":            payload.String("variant"),
			"image":              payload.String("image"),
			"unlimited_quantity": payload.Bool("unlimited_quantity"),
			"raw":                payload.JSON("raw"),
		},
	}
	if qty, ok := payload.Float("quantity"); ok {
		rec.Fields["quantity"] = qty
	}
	if sold, ok := payload.Float("sold_quantity"); ok {
		rec.Fields["sold_quantity"] = sold
	}
	if price, ok := payload.Float("price"); ok {
		rec.Fields["price"] = price
	}

	name, created, err := h.upsert(ctx, erp.DoctypeProductQuantities,
		erp.Lookup{ExternalID: externalID, StoreID: targetStore}, rec)
	if err != nil {
		return storeFailed(err)
	}
	return applied(erp.DoctypeProductQuantities, name, created)
}

// UpsertQuantityTransaction stores one stock movement event keyed by
// (external_id, store_id).
func (h *Handlers) UpsertQuantityTransaction(ctx context.Context, storeID string, payload command.Fields) *command.ApplyResult {
	externalID := payload.String("external_id")
	targetStore := payload.StringOr("store_id", storeID)
	sku := payload.String("sku")

	itemName, err := h.resolveItemBySKU(ctx, sku)
	if err != nil {
		return storeFailed(err)
	}

	rec := &erp.Record{
		ExternalID: externalID,
		StoreID:    targetStore,
		Code:       sku,
		Fields: map[string]any{
			"sku":                sku,
			"item":               itemName,
			"product_name":       payload.String("name"),
			"variant":            payload.String("variant"),
			"image":              payload.String("image"),
			"created_at":         payload.String("created_at"),
			"unlimited_quantity": payload.Bool("unlimited_quantity"),
			"reason":             payload.String("reason"),
			"user_id":            payload.String("user_id"),
			"user_type":          payload.String("user_type"),
			"user_first_name":    payload.String("user_first_name"),
			"raw":                payload.JSON("raw"),
		},
	}
	if old, ok := payload.Float("old_quantity"); ok {
		rec.Fields["old_quantity"] = old
	}
	if next, ok := payload.Float("new_quantity"); ok {
		rec.Fields["new_quantity"] = next
	}

	name, created, err := h.upsert(ctx, erp.DoctypeQuantityTransaction,
		erp.Lookup{ExternalID: externalID, StoreID: targetStore}, rec)
	if err != nil {
		return storeFailed(err)
	}
	return applied(erp.DoctypeQuantityTransaction, name, created)
}

// resolveItemBySKU returns the Item name for a SKU, or "" when unknown.
func (h *Handlers) resolveItemBySKU(ctx context.Context, sku string) (string, error) {
	if sku == "" {
		return "", nil
	}
	rec, err := h.store.Find(ctx, erp.DoctypeItem, erp.Lookup{Code: sku})
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return rec.Name, nil
}

// setIfPresent copies a payload value into the record fields only when the
// payload actually provides one.
func setIfPresent(fields map[string]any, target string, payload command.Fields, key string) {
	if !payload.Has(key) || payload[key] == nil {
		return
	}
	fields[target] = payload[key]
}
