package models

import (
	"encoding/json"

	"github.com/erp/connector/internal/domain/command"
)

func encodeMessages(msgs []command.ApplyMessage) []byte {
	if len(msgs) == 0 {
		return nil
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil
	}
	return data
}

func decodeMessages(data []byte) []command.ApplyMessage {
	if len(data) == 0 {
		return nil
	}
	var msgs []command.ApplyMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil
	}
	return msgs
}

func encodeFields(fields map[string]any) []byte {
	if len(fields) == 0 {
		return nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return data
}

func decodeFields(data []byte) map[string]any {
	if len(data) == 0 {
		return map[string]any{}
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return map[string]any{}
	}
	return fields
}
