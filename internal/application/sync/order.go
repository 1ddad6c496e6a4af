package sync

import (
	"context"
	"time"

	"github.com/erp/connector/internal/domain/command"
	"github.com/erp/connector/internal/domain/erp"
	"github.com/shopspring/decimal"
)

// UpsertOrder maps an order payload onto a Sales Order. The nested customer
// is resolved first, creating it from the embedded payload when unknown; an
// order without a resolvable customer fails. Item lines that cannot be
// matched to existing Items are dropped with per-line warnings.
func (h *Handlers) UpsertOrder(ctx context.Context, storeID string, payload command.Fields) *command.ApplyResult {
	externalID := payload.String("external_id")
	result := command.Applied(erp.DoctypeSalesOrder)

	customerName, err := h.resolveCustomer(ctx, storeID, payload, result)
	if err != nil {
		return storeFailed(err)
	}
	if customerName == "" {
		failed := command.NewApplyResult(command.StatusFailed)
		failed.Warnings = result.Warnings
		failed.AddError("missing_customer", "Customer not resolved for order.", nil)
		return failed
	}

	items, total, err := h.buildOrderItems(ctx, payload.Maps("items"), result)
	if err != nil {
		return storeFailed(err)
	}

	rec := &erp.Record{
		ExternalID: externalID,
		StoreID:    storeID,
		Fields: map[string]any{
			"customer":         customerName,
			"transaction_date": orderDate(payload.String("created_at")),
			"items":            items,
			"grand_total":      total.String(),
		},
	}
	setIfPresent(rec.Fields, "currency", payload, "currency")
	setIfPresent(rec.Fields, "salla_status", payload, "status")
	if raw := payload.JSON("raw"); raw != "" {
		rec.Fields["salla_raw"] = raw
	}

	name, created, err := h.upsert(ctx, erp.DoctypeSalesOrder, erp.Lookup{ExternalID: externalID}, rec)
	if err != nil {
		return storeFailed(err)
	}

	result.ERPDoc = name
	if created {
		result.Message = "Created"
	} else {
		result.Message = "Updated"
	}
	return result
}

// resolveCustomer returns the customer record name for the order, upserting
// it from the embedded customer payload when not already known.
func (h *Handlers) resolveCustomer(ctx context.Context, storeID string, payload command.Fields, result *command.ApplyResult) (string, error) {
	customerPayload := payload.Map("customer")
	externalID := customerPayload.String("external_id")

	name, err := h.findName(ctx, erp.DoctypeCustomer, externalID)
	if err != nil || name != "" {
		return name, err
	}

	if len(customerPayload) == 0 {
		return "", nil
	}
	customerResult := h.UpsertCustomer(ctx, storeID, customerPayload)
	if customerResult.Status == command.StatusApplied {
		return customerResult.ERPDoc, nil
	}
	result.AddWarning("customer_not_applied",
		"Customer payload provided but could not be applied.",
		map[string]any{"customer": map[string]any(customerPayload)})
	return "", nil
}

// buildOrderItems filters the payload lines down to those matching existing
// Items, normalizing quantity and rate. The dropped lines become warnings.
func (h *Handlers) buildOrderItems(ctx context.Context, lines []command.Fields, result *command.ApplyResult) ([]map[string]any, decimal.Decimal, error) {
	items := make([]map[string]any, 0, len(lines))
	total := decimal.Zero

	for _, line := range lines {
		sku := line.FirstString("sku", "item_code")
		itemCode, err := h.findName(ctx, erp.DoctypeItem, line.String("external_id"))
		if err != nil {
			return nil, decimal.Zero, err
		}
		if itemCode == "" {
			itemCode = sku
		}
		if itemCode == "" {
			result.AddWarning("missing_sku", "Order item missing SKU; skipped.",
				map[string]any{"item": map[string]any(line)})
			continue
		}

		exists, err := h.itemExists(ctx, itemCode)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if !exists {
			result.AddWarning("missing_item", "Item not found in ERP; skipped.",
				map[string]any{"item_code": itemCode})
			continue
		}

		qty := decimal.NewFromInt(1)
		if n, ok := line.Float("quantity"); ok {
			qty = decimal.NewFromFloat(n)
		} else if n, ok := line.Float("qty"); ok {
			qty = decimal.NewFromFloat(n)
		}
		rate := decimal.Zero
		if n, ok := line.Float("price"); ok {
			rate = decimal.NewFromFloat(n)
		} else if n, ok := line.Float("rate"); ok {
			rate = decimal.NewFromFloat(n)
		}
		amount := rate.Mul(qty)
		total = total.Add(amount)

		items = append(items, map[string]any{
			"item_code": itemCode,
			"item_name": line.StringOr("name", itemCode),
			"qty":       qty.String(),
			"rate":      rate.String(),
			"amount":    amount.String(),
		})
	}
	return items, total, nil
}

// itemExists checks for an Item by name or by SKU code.
func (h *Handlers) itemExists(ctx context.Context, itemCode string) (bool, error) {
	ok, err := h.store.Exists(ctx, erp.DoctypeItem, erp.Lookup{Name: itemCode})
	if err != nil || ok {
		return ok, err
	}
	return h.store.Exists(ctx, erp.DoctypeItem, erp.Lookup{Code: itemCode})
}

// orderDate normalizes the Manager's created_at into a date string,
// defaulting to today.
func orderDate(createdAt string) string {
	if createdAt != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, createdAt); err == nil {
				return t.Format("2006-01-02")
			}
		}
	}
	return time.Now().UTC().Format("2006-01-02")
}

// UpsertOrderStatus stores an order status definition keyed by
// (store_id, status_id), including the workflow action flags.
func (h *Handlers) UpsertOrderStatus(ctx context.Context, storeID string, payload command.Fields) *command.ApplyResult {
	statusID := payload.FirstString("external_id", "salla_status_id")
	if statusID == "" {
		result := command.NewApplyResult(command.StatusFailed)
		result.AddError("missing_status_id", "salla_status_id/external_id is required.", nil)
		return result
	}

	statusName := payload.FirstString("status_name", "name")
	if statusName == "" {
		statusName = statusID
	}

	rec := &erp.Record{
		ExternalID: statusID,
		StoreID:    storeID,
		Code:       statusID,
		Fields: map[string]any{
			"salla_status_id": statusID,
			"status_name":     statusName,
			"status_type":     payload.FirstString("status_type", "type"),
			"slug":            payload.String("slug"),
			"sort_order":      payload.FirstString("sort_order", "sort"),
			"icon":            payload.String("icon"),
			"is_active":       payload.BoolOr("is_active", true),
		},
	}
	setIfPresent(rec.Fields, "message", payload, "message")
	if payload.Has("translations") {
		rec.Fields["translations_json"] = payload.JSON("translations")
	}
	setIfPresent(rec.Fields, "parent_status_id", payload, "parent_status_id")
	setIfPresent(rec.Fields, "parent_status_name", payload, "parent_status_name")
	setIfPresent(rec.Fields, "original_status_id", payload, "original_status_id")
	setIfPresent(rec.Fields, "original_status_name", payload, "original_status_name")

	for _, flag := range []string{
		"create_sales_order",
		"submit_sales_order",
		"create_sales_invoice",
		"submit_sales_invoice",
		"create_delivery_note",
		"submit_sales_delivery_note",
		"cancel_sales_order",
		"cancel_sales_invoice",
		"cancel_delivery_note",
		"make_return",
	} {
		rec.Fields[flag] = payload.Bool(flag)
	}

	name, created, err := h.upsert(ctx, erp.DoctypeOrderStatus,
		erp.Lookup{Code: statusID, StoreID: storeID}, rec)
	if err != nil {
		return storeFailed(err)
	}
	return applied(erp.DoctypeOrderStatus, name, created)
}
