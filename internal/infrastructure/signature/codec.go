// Package signature implements the HMAC-SHA256 envelope signature shared
// with the Manager. The canonical signing string is "timestamp.nonce.body"
// over the exact bytes received on the wire; re-serializing the body would
// desynchronize the signature from what was actually sent.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrInvalidSignature is the single error for any verification mismatch.
// The codec never reveals which part of the signing string differed.
var ErrInvalidSignature = errors.New("invalid signature")

// Sign computes the hex HMAC-SHA256 signature for the given parts.
func Sign(secret, timestamp, nonce string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write([]byte(nonce))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a hex signature against the expected MAC in constant time.
func Verify(secret, timestamp, nonce string, body []byte, signature string) error {
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write([]byte(nonce))
	mac.Write([]byte{'.'})
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), provided) {
		return ErrInvalidSignature
	}
	return nil
}
