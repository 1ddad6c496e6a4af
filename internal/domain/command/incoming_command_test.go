package command

import (
	"testing"

	"github.com/erp/connector/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeTestEnvelope(t *testing.T, raw string) Envelope {
	t.Helper()
	env, err := DecodeEnvelope([]byte(raw))
	require.NoError(t, err)
	return env
}

func TestNewIncomingCommand(t *testing.T) {
	env := decodeTestEnvelope(t, `{"command_type":"upsert_product","entity_type":"product","store_id":"12345","payload":{"sku":"A-1"}}`)
	cmd := NewIncomingCommand("key-1", env, []byte(`{"command_type":"upsert_product"}`))

	assert.Equal(t, "key-1", cmd.IdempotencyKey)
	assert.Equal(t, StatusReceived, cmd.Status)
	assert.Equal(t, "upsert_product", cmd.CommandType)
	assert.Equal(t, "product", cmd.EntityType)
	assert.Equal(t, "12345", cmd.StoreID)
	assert.False(t, cmd.IsTerminal())
	assert.NotEmpty(t, cmd.Payload)
}

func TestIncomingCommand_StoreFallback(t *testing.T) {
	t.Run("uses store_account when store_id absent", func(t *testing.T) {
		env := decodeTestEnvelope(t, `{"command_type":"ping","store_account":"SM-STORE-00002"}`)
		cmd := NewIncomingCommand("k", env, nil)
		assert.Equal(t, "SM-STORE-00002", cmd.StoreID)
		assert.Equal(t, "SM-STORE-00002", cmd.StoreAccountID)
	})

	t.Run("defaults to unknown", func(t *testing.T) {
		env := decodeTestEnvelope(t, `{"command_type":"ping"}`)
		cmd := NewIncomingCommand("k", env, nil)
		assert.Equal(t, "unknown", cmd.StoreID)
	})
}

func TestIncomingCommand_Transitions(t *testing.T) {
	newCmd := func(t *testing.T) *IncomingCommand {
		env := decodeTestEnvelope(t, `{"command_type":"ping"}`)
		return NewIncomingCommand("k", env, nil)
	}

	t.Run("skip is terminal", func(t *testing.T) {
		cmd := newCmd(t)
		require.NoError(t, cmd.MarkSkipped(SkipReasonDisabled, ""))
		assert.Equal(t, StatusSkipped, cmd.Status)
		assert.Equal(t, SkipReasonDisabled, cmd.SkipReason)
		assert.True(t, cmd.IsTerminal())
	})

	t.Run("fail is terminal", func(t *testing.T) {
		cmd := newCmd(t)
		require.NoError(t, cmd.MarkFailed("boom"))
		assert.Equal(t, StatusFailed, cmd.Status)
		assert.Equal(t, "boom", cmd.ErrorDetails)
		assert.True(t, cmd.IsTerminal())
	})

	t.Run("second transition is rejected", func(t *testing.T) {
		cmd := newCmd(t)
		require.NoError(t, cmd.MarkFailed("boom"))
		err := cmd.MarkSkipped(SkipReasonDisabled, "")
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.Equal(t, StatusFailed, cmd.Status)
	})
}

func TestIncomingCommand_RecordApplyResult(t *testing.T) {
	newCmd := func(t *testing.T) *IncomingCommand {
		env := decodeTestEnvelope(t, `{"command_type":"upsert_product","store_id":"1"}`)
		return NewIncomingCommand("k", env, nil)
	}

	t.Run("applied result", func(t *testing.T) {
		cmd := newCmd(t)
		result := Applied("Item")
		result.ERPDoc = "ITEM-0001"
		result.Message = "Created"

		require.NoError(t, cmd.RecordApplyResult(result))
		assert.Equal(t, StatusApplied, cmd.Status)
		require.Len(t, cmd.ApplyResults, 1)
		assert.Equal(t, 1, cmd.ApplyResults[0].Seq)
		assert.Equal(t, "ITEM-0001", cmd.ApplyResults[0].ERPDoc)
	})

	t.Run("empty status defaults to applied", func(t *testing.T) {
		cmd := newCmd(t)
		require.NoError(t, cmd.RecordApplyResult(&ApplyResult{Message: "noop"}))
		assert.Equal(t, StatusApplied, cmd.Status)
	})

	t.Run("sku_missing warning promoted to skip reason", func(t *testing.T) {
		cmd := newCmd(t)
		result := NewApplyResult(StatusSkipped)
		result.Message = "Missing SKU; entry skipped."
		result.AddWarning(WarningCodeSKUMissing, "SKU is mandatory and missing; entity skipped.", nil)

		require.NoError(t, cmd.RecordApplyResult(result))
		assert.Equal(t, StatusSkipped, cmd.Status)
		assert.Equal(t, SkipReasonMissingSKU, cmd.SkipReason)
	})

	t.Run("skip without known warning uses lowercased message", func(t *testing.T) {
		cmd := newCmd(t)
		result := NewApplyResult(StatusSkipped)
		result.Message = "Nothing To Do"

		require.NoError(t, cmd.RecordApplyResult(result))
		assert.Equal(t, "nothing to do", cmd.SkipReason)
	})

	t.Run("failed result captures first error", func(t *testing.T) {
		cmd := newCmd(t)
		result := Failed("missing_customer", "Customer not resolved for order.")

		require.NoError(t, cmd.RecordApplyResult(result))
		assert.Equal(t, StatusFailed, cmd.Status)
		assert.Equal(t, "Customer not resolved for order.", cmd.ErrorDetails)
	})
}

func TestApplyResult_Helpers(t *testing.T) {
	result := Applied("Item")
	result.AddWarning("missing_item", "Item not found in ERP; skipped.", map[string]any{"item_code": "X"})
	result.AddError("e1", "first", nil)
	result.AddError("e2", "second", nil)

	assert.True(t, result.HasWarningCode("missing_item"))
	assert.False(t, result.HasWarningCode(WarningCodeSKUMissing))
	assert.Equal(t, []string{"first", "second"}, result.ErrorMessages())
}
