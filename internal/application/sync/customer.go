package sync

import (
	"context"

	"github.com/erp/connector/internal/domain/command"
	"github.com/erp/connector/internal/domain/erp"
)

// UpsertCustomer maps a customer payload onto a Customer record. The
// customer name falls back to email, then phone.
func (h *Handlers) UpsertCustomer(ctx context.Context, storeID string, payload command.Fields) *command.ApplyResult {
	externalID := payload.String("external_id")

	status := payload.String("status")
	rec := &erp.Record{
		ExternalID: externalID,
		StoreID:    storeID,
		Fields: map[string]any{
			"customer_name":  payload.FirstString("name", "email", "phone"),
			"customer_group": payload.StringOr("group_id", defaultCustomerGroup),
			"territory":      payload.StringOr("territory", defaultTerritory),
			"customer_type":  payload.StringOr("customer_type", "Individual"),
			"disabled":       status == "inactive" || status == "disabled",
		},
	}
	setIfPresent(rec.Fields, "email_id", payload, "email")
	setIfPresent(rec.Fields, "mobile_no", payload, "phone")
	setIfPresent(rec.Fields, "salla_addresses", payload, "addresses")

	name, created, err := h.upsert(ctx, erp.DoctypeCustomer, erp.Lookup{ExternalID: externalID}, rec)
	if err != nil {
		return storeFailed(err)
	}
	return applied(erp.DoctypeCustomer, name, created)
}

// UpsertCustomerGroup stores the group document for observability, then
// mirrors it into the Customer Group tree under a per-store root node.
func (h *Handlers) UpsertCustomerGroup(ctx context.Context, storeID string, payload command.Fields) *command.ApplyResult {
	groupID := payload.FirstString("external_id", "group_id", "id")
	if groupID == "" {
		result := command.NewApplyResult(command.StatusFailed)
		result.AddError("missing_group_id", "group_id/external_id is required.", nil)
		return result
	}

	groupName := payload.FirstString("group_name", "name")
	if groupName == "" {
		groupName = groupID
	}
	description := payload.FirstString("description", "note")

	mirror := &erp.Record{
		ExternalID: groupID,
		StoreID:    storeID,
		Fields: map[string]any{
			"group_id":    groupID,
			"group_name":  groupName,
			"description": description,
		},
	}
	setIfPresent(mirror.Fields, "status", payload, "status")
	if _, _, err := h.upsert(ctx, erp.DoctypeSallaCustomerGroup,
		erp.Lookup{ExternalID: groupID, StoreID: storeID}, mirror); err != nil {
		return storeFailed(err)
	}

	rootName, err := h.ensureStoreGroupRoot(ctx, storeID)
	if err != nil {
		return storeFailed(err)
	}

	node := &erp.Record{
		ExternalID: groupID,
		StoreID:    storeID,
		Code:       groupID,
		Fields: map[string]any{
			"customer_group_name":   groupName,
			"parent_customer_group": rootName,
			"is_group":              false,
			"description":           description,
		},
	}
	name, created, err := h.upsert(ctx, erp.DoctypeCustomerGroup,
		erp.Lookup{Code: groupID, StoreID: storeID}, node)
	if err != nil {
		return storeFailed(err)
	}
	return applied(erp.DoctypeCustomerGroup, name, created)
}

// ensureStoreGroupRoot creates the store's top-level Customer Group node on
// first use.
func (h *Handlers) ensureStoreGroupRoot(ctx context.Context, storeID string) (string, error) {
	existing, err := h.store.Find(ctx, erp.DoctypeCustomerGroup, erp.Lookup{Name: storeID})
	if err == nil {
		return existing.Name, nil
	}
	if !isNotFound(err) {
		return "", err
	}

	root := &erp.Record{
		Name:    storeID,
		StoreID: storeID,
		Fields: map[string]any{
			"customer_group_name":   storeID,
			"parent_customer_group": defaultCustomerGroup,
			"is_group":              true,
		},
	}
	if err := h.store.Insert(ctx, erp.DoctypeCustomerGroup, root); err != nil {
		return "", err
	}
	return root.Name, nil
}
