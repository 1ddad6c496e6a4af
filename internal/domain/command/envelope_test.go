package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	t.Run("decodes a full envelope", func(t *testing.T) {
		env, err := DecodeEnvelope([]byte(`{"command_type":"upsert_order","entity_type":"order","store_id":"77","payload":{"external_id":"o-1"}}`))
		require.NoError(t, err)
		assert.Equal(t, "upsert_order", env.CommandType)
		assert.Equal(t, "order", env.EntityType)
		assert.Equal(t, "77", env.StoreValue())
	})

	t.Run("empty body decodes to zero envelope", func(t *testing.T) {
		env, err := DecodeEnvelope(nil)
		require.NoError(t, err)
		assert.Empty(t, env.CommandType)
	})

	t.Run("invalid JSON is a descriptive error", func(t *testing.T) {
		_, err := DecodeEnvelope([]byte(`{"command_type":`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid JSON payload")
	})
}

func TestEnvelope_EntityPayload(t *testing.T) {
	t.Run("structured payload object wins", func(t *testing.T) {
		env, err := DecodeEnvelope([]byte(`{"command_type":"upsert_product","payload":{"sku":"A-1","name":"Widget"}}`))
		require.NoError(t, err)
		fields := env.EntityPayload()
		assert.Equal(t, "A-1", fields.String("sku"))
		assert.Equal(t, "Widget", fields.String("name"))
	})

	t.Run("JSON-encoded string payload is parsed", func(t *testing.T) {
		env, err := DecodeEnvelope([]byte(`{"command_type":"upsert_product","payload":"{\"sku\":\"B-2\"}"}`))
		require.NoError(t, err)
		fields := env.EntityPayload()
		assert.Equal(t, "B-2", fields.String("sku"))
	})

	t.Run("unparseable string payload falls back to the envelope", func(t *testing.T) {
		env, err := DecodeEnvelope([]byte(`{"command_type":"upsert_store","store_id":"55","payload":"not json"}`))
		require.NoError(t, err)
		fields := env.EntityPayload()
		assert.Equal(t, "55", fields.String("store_id"))
		assert.Equal(t, "upsert_store", fields.String("command_type"))
	})

	t.Run("missing payload falls back to the envelope", func(t *testing.T) {
		env, err := DecodeEnvelope([]byte(`{"command_type":"ping","store_id":"9"}`))
		require.NoError(t, err)
		fields := env.EntityPayload()
		assert.Equal(t, "9", fields.String("store_id"))
	})
}

func TestFields_Accessors(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{
		"payload": {
			"sku": "A-1",
			"quantity": 12,
			"price": "19.90",
			"unlimited_quantity": true,
			"is_active": 0,
			"customer": {"external_id": "c-1"},
			"items": [{"sku": "A-1"}, "junk", {"sku": "B-2"}],
			"raw": {"nested": [1, 2]}
		}
	}`))
	require.NoError(t, err)
	f := env.EntityPayload()

	assert.Equal(t, "A-1", f.String("sku"))
	assert.Equal(t, "12", f.String("quantity"))
	assert.Equal(t, "fallback", f.StringOr("missing", "fallback"))
	assert.Equal(t, "A-1", f.FirstString("missing", "sku"))

	qty, ok := f.Int("quantity")
	require.True(t, ok)
	assert.Equal(t, 12, qty)

	price, ok := f.Float("price")
	require.True(t, ok)
	assert.InDelta(t, 19.90, price, 0.0001)

	assert.True(t, f.Bool("unlimited_quantity"))
	assert.False(t, f.Bool("is_active"))
	assert.True(t, f.BoolOr("missing", true))

	require.NotNil(t, f.Map("customer"))
	assert.Equal(t, "c-1", f.Map("customer").String("external_id"))

	items := f.Maps("items")
	require.Len(t, items, 2)
	assert.Equal(t, "B-2", items[1].String("sku"))

	assert.Equal(t, `{"nested":[1,2]}`, f.JSON("raw"))
	assert.Empty(t, f.JSON("missing"))
}
