package command

import (
	"encoding/json"
	"fmt"
)

// Envelope is the decoded command envelope the Manager posts to the intake
// endpoint. Payload stays raw until EntityPayload normalizes it.
type Envelope struct {
	CommandType    string          `json:"command_type"`
	EntityType     string          `json:"entity_type"`
	StoreID        string          `json:"store_id"`
	StoreAccount   string          `json:"store_account"`
	StoreAccountID string          `json:"store_account_id"`
	Payload        json.RawMessage `json:"payload"`

	raw []byte
}

// DecodeEnvelope parses the raw request body into an Envelope. Parsing
// happens after authentication, so a decode failure here is a descriptive
// client error rather than a probe surface.
func DecodeEnvelope(rawBody []byte) (Envelope, error) {
	var env Envelope
	if len(rawBody) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return env, fmt.Errorf("invalid JSON payload: %w", err)
	}
	env.raw = rawBody
	return env, nil
}

// StoreValue resolves the store identity with the envelope's documented
// field precedence, defaulting to "unknown".
func (e Envelope) StoreValue() string {
	switch {
	case e.StoreID != "":
		return e.StoreID
	case e.StoreAccount != "":
		return e.StoreAccount
	case e.StoreAccountID != "":
		return e.StoreAccountID
	}
	return "unknown"
}

// StoreAccountValue returns the store account identity, if any.
func (e Envelope) StoreAccountValue() string {
	if e.StoreAccount != "" {
		return e.StoreAccount
	}
	return e.StoreAccountID
}

// StoreIdentity returns the store value used for handler dispatch: the
// first non-empty of store_id, store_account, store_account_id.
func (e Envelope) StoreIdentity() string {
	switch {
	case e.StoreID != "":
		return e.StoreID
	case e.StoreAccount != "":
		return e.StoreAccount
	}
	return e.StoreAccountID
}

// EntityPayload normalizes the entity payload into structured fields with a
// fixed fallback order: a structured payload object, then a JSON-encoded
// string payload (older Manager builds), then the whole envelope.
func (e Envelope) EntityPayload() Fields {
	if len(e.Payload) > 0 {
		var obj map[string]any
		if err := json.Unmarshal(e.Payload, &obj); err == nil && obj != nil {
			return Fields(obj)
		}
		var encoded string
		if err := json.Unmarshal(e.Payload, &encoded); err == nil {
			var parsed map[string]any
			if err := json.Unmarshal([]byte(encoded), &parsed); err == nil && parsed != nil {
				return Fields(parsed)
			}
		}
	}
	return e.envelopeFields()
}

// envelopeFields exposes the whole envelope as fields, for handlers that
// predate the structured payload field.
func (e Envelope) envelopeFields() Fields {
	if len(e.raw) == 0 {
		return Fields{}
	}
	var obj map[string]any
	if err := json.Unmarshal(e.raw, &obj); err != nil || obj == nil {
		return Fields{}
	}
	return Fields(obj)
}
