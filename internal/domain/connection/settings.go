package connection

import (
	"time"

	"github.com/erp/connector/internal/domain/shared"
)

// DefaultTimestampWindowSeconds bounds how far a request timestamp may drift
// from the receiver's clock.
const DefaultTimestampWindowSeconds = 300

// Settings is the Manager connection configuration, read-only to the intake
// pipeline. It is injected as a value, never consulted as a mutable global.
type Settings struct {
	InstanceID             string
	SharedSecret           string
	ManagerBaseURL         string
	AllowedManagerIPs      []string
	TimestampWindowSeconds int

	EnablePushReceiveProducts bool
	EnablePushReceiveOrders   bool
	EnableManualPull          bool
}

// Source yields the current connection settings. Implementations may cache
// with explicit invalidation; the pipeline reads once per request.
type Source interface {
	Current() Settings
}

// StaticSource is a Source over a fixed Settings value.
type StaticSource struct {
	Settings Settings
}

// Current implements Source
func (s StaticSource) Current() Settings {
	return s.Settings
}

// commandToggles maps command types to the setting that gates them. Command
// types absent from the map are not gated (the router decides whether they
// are supported at all).
var commandToggles = map[string]func(Settings) bool{
	"upsert_product":                      productsEnabled,
	"upsert_variant":                      productsEnabled,
	"upsert_category":                     productsEnabled,
	"upsert_brand":                        productsEnabled,
	"upsert_product_option":               productsEnabled,
	"upsert_product_quantity_transaction": productsEnabled,
	"upsert_product_quantities":           productsEnabled,
	"upsert_customer_group":               productsEnabled,
	"upsert_store":                        productsEnabled,
	"upsert_order":                        ordersEnabled,
	"upsert_order_status":                 ordersEnabled,
	"manual_pull":                         pullEnabled,
}

func productsEnabled(s Settings) bool { return s.EnablePushReceiveProducts }
func ordersEnabled(s Settings) bool   { return s.EnablePushReceiveOrders }
func pullEnabled(s Settings) bool     { return s.EnableManualPull }

// Validate checks that the settings can authenticate anything at all.
func (s Settings) Validate() error {
	if s.InstanceID == "" || s.SharedSecret == "" {
		return shared.NewDomainError("CONNECTION_UNCONFIGURED",
			"Instance ID and shared secret must be configured")
	}
	return nil
}

// Window returns the timestamp/nonce validity window as a duration.
func (s Settings) Window() time.Duration {
	seconds := s.TimestampWindowSeconds
	if seconds <= 0 {
		seconds = DefaultTimestampWindowSeconds
	}
	return time.Duration(seconds) * time.Second
}

// CommandEnabled reports whether the command type's feature family is
// switched on. Unknown command types are not gated here.
func (s Settings) CommandEnabled(commandType string) bool {
	toggle, ok := commandToggles[commandType]
	if !ok {
		return true
	}
	return toggle(s)
}

// IPAllowed reports whether the caller's address passes the allow-list. An
// empty list allows every address.
func (s Settings) IPAllowed(remoteAddr string) bool {
	if len(s.AllowedManagerIPs) == 0 {
		return true
	}
	if remoteAddr == "" {
		return false
	}
	for _, ip := range s.AllowedManagerIPs {
		if ip == remoteAddr {
			return true
		}
	}
	return false
}
