// Package sync contains the per-entity command handlers: mechanical
// payload-to-record glue over erp.RecordStore. All interesting control flow
// lives in the intake pipeline; handlers only map fields and report an
// ApplyResult.
package sync

import (
	"github.com/erp/connector/internal/application/intake"
	"github.com/erp/connector/internal/domain/erp"
	"go.uber.org/zap"
)

// Handlers bundles the command handlers over one record store.
type Handlers struct {
	store  erp.RecordStore
	logger *zap.Logger
}

// NewHandlers creates the handler set
func NewHandlers(store erp.RecordStore, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{store: store, logger: logger}
}

// RegisterAll binds every supported command type into the registry.
func (h *Handlers) RegisterAll(registry *intake.Registry) {
	registry.Register("ping", h.Ping)
	registry.Register("upsert_product", h.UpsertProduct)
	registry.Register("upsert_variant", h.UpsertVariant)
	registry.Register("upsert_brand", h.UpsertBrand)
	registry.Register("upsert_product_option", h.UpsertProductOption)
	registry.Register("upsert_product_quantities", h.UpsertProductQuantities)
	registry.Register("upsert_product_quantity_transaction", h.UpsertQuantityTransaction)
	registry.Register("upsert_customer", h.UpsertCustomer)
	registry.Register("upsert_customer_group", h.UpsertCustomerGroup)
	registry.Register("upsert_order", h.UpsertOrder)
	registry.Register("upsert_order_status", h.UpsertOrderStatus)
	registry.Register("upsert_category", h.UpsertCategory)
	registry.Register("upsert_store", h.UpsertStore)
}
