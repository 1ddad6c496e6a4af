package connection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSettings_Validate(t *testing.T) {
	assert.Error(t, Settings{}.Validate())
	assert.Error(t, Settings{InstanceID: "inst"}.Validate())
	assert.NoError(t, Settings{InstanceID: "inst", SharedSecret: "secret"}.Validate())
}

func TestSettings_Window(t *testing.T) {
	assert.Equal(t, 300*time.Second, Settings{}.Window())
	assert.Equal(t, 60*time.Second, Settings{TimestampWindowSeconds: 60}.Window())
}

func TestSettings_CommandEnabled(t *testing.T) {
	settings := Settings{
		EnablePushReceiveProducts: true,
		EnablePushReceiveOrders:   false,
		EnableManualPull:          true,
	}

	tests := []struct {
		commandType string
		want        bool
	}{
		{"upsert_product", true},
		{"upsert_variant", true},
		{"upsert_store", true},
		{"upsert_customer_group", true},
		{"upsert_order", false},
		{"upsert_order_status", false},
		{"manual_pull", true},
		{"ping", true},            // never gated
		{"future_command", true},  // unknown types are not gated here
		{"upsert_customer", true}, // ungated in the toggle map
	}

	for _, tt := range tests {
		t.Run(tt.commandType, func(t *testing.T) {
			assert.Equal(t, tt.want, settings.CommandEnabled(tt.commandType))
		})
	}
}

func TestSettings_IPAllowed(t *testing.T) {
	t.Run("empty list allows everyone", func(t *testing.T) {
		assert.True(t, Settings{}.IPAllowed("203.0.113.7"))
		assert.True(t, Settings{}.IPAllowed(""))
	})

	t.Run("non-empty list is exact match", func(t *testing.T) {
		s := Settings{AllowedManagerIPs: []string{"203.0.113.7", "198.51.100.2"}}
		assert.True(t, s.IPAllowed("198.51.100.2"))
		assert.False(t, s.IPAllowed("203.0.113.8"))
		assert.False(t, s.IPAllowed(""))
	})
}
