package message

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UnmarshalJSON decodes an envelope, matching variant names exactly.
// encoding/json alone would also accept "clientonconnect".
func (m *ClientMessage) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out ClientMessage
	for key, val := range raw {
		var err error
		switch key {
		case "ClientOnConnect":
			out.OnConnect, err = decodeVariant[ClientOnConnect](key, val)
		case "ClientCommandResponse":
			out.CommandResponse, err = decodeVariant[ClientCommandResponse](key, val)
		case "Failed":
			out.Failed, err = decodeVariant[ClientFailed](key, val)
		default:
			err = fmt.Errorf("%w: unknown client variant %q", ErrInvalidEnvelope, key)
		}

		if err != nil {
			return err
		}
	}

	*m = out
	return nil
}

// UnmarshalJSON decodes an envelope, matching variant names exactly.
func (m *ServerMessage) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out ServerMessage
	for key, val := range raw {
		var err error
		switch key {
		case "OnConnect":
			out.OnConnect, err = decodeVariant[ServerOnConnect](key, val)
		case "ServerMoveCommand":
			out.MoveCommand, err = decodeVariant[Point](key, val)
		case "ServerFailed":
			out.Failed, err = decodeVariant[string](key, val)
		default:
			err = fmt.Errorf("%w: unknown server variant %q", ErrInvalidEnvelope, key)
		}

		if err != nil {
			return err
		}
	}

	*m = out
	return nil
}

func decodeVariant[T any](key string, val json.RawMessage) (*T, error) {
	if bytes.Equal(bytes.TrimSpace(val), []byte("null")) {
		return nil, fmt.Errorf("%w: %s is null", ErrInvalidEnvelope, key)
	}

	v := new(T)
	if err := json.Unmarshal(val, v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}

	return v, nil
}
