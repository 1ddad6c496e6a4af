// Package erp defines the narrow capability through which command handlers
// touch the local ERP record store. Handlers never see the storage engine;
// they upsert documents by doctype and identity keys.
package erp

import "context"

// Doctypes the connector maintains in the ERP store.
const (
	DoctypeItem                string = "Item"
	DoctypeCustomer            string = "Customer"
	DoctypeSalesOrder          string = "Sales Order"
	DoctypeCustomerGroup       string = "Customer Group"
	DoctypeStore               string = "Salla Store"
	DoctypeCategory            string = "Salla Category"
	DoctypeOrderStatus         string = "Salla Order Status"
	DoctypeProductQuantities   string = "Salla Product Quantities"
	DoctypeQuantityTransaction string = "Salla Product Quantity Transaction"
	DoctypeProductOption       string = "Salla Product Option"
	DoctypeSallaCustomerGroup  string = "Salla Customer Group"
	DoctypeSKUSkipLog          string = "SKU Skip Log"
)

// Record is one ERP document. Name is the record's primary identity within
// its doctype; ExternalID, StoreID and Code are the indexed lookup keys the
// sync handlers match on; everything else lives in Fields.
type Record struct {
	Name       string
	ExternalID string
	StoreID    string
	// Code is the doctype-specific secondary key: item SKU, category id,
	// order status id, and so on.
	Code   string
	Fields map[string]any
}

// Lookup selects a record by any combination of keys; zero-valued keys are
// ignored. At least one key must be set.
type Lookup struct {
	Name       string
	ExternalID string
	StoreID    string
	Code       string
}

// RecordStore is the ERP record capability consumed by command handlers:
// get-by-key, insert, update, and the rare administrative rename. The store
// behind it is an external collaborator; its consistency discipline under
// concurrent writes to the same record is its own concern.
type RecordStore interface {
	// Find returns the first record matching the lookup, or
	// shared.ErrNotFound.
	Find(ctx context.Context, doctype string, by Lookup) (*Record, error)

	// Exists reports whether any record matches the lookup.
	Exists(ctx context.Context, doctype string, by Lookup) (bool, error)

	// Insert stores a new record. A missing Name is generated from the
	// doctype.
	Insert(ctx context.Context, doctype string, rec *Record) error

	// Update rewrites the record stored under rec.Name, merging Fields over
	// the existing document.
	Update(ctx context.Context, doctype string, rec *Record) error

	// Rename changes a record's Name, used to repair documents created
	// under a wrong identity by older Manager builds.
	Rename(ctx context.Context, doctype, oldName, newName string) error
}
