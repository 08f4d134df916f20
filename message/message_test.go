package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientMessage_WireFormat(t *testing.T) {
	t.Run("on connect is externally tagged", func(t *testing.T) {
		msg := NewClientOnConnect(ClientOnConnect{ClientName: "bot", Message: "hello"})
		data, err := json.Marshal(msg)
		require.NoError(t, err)
		assert.JSONEq(t,
			`{"ClientOnConnect":{"client_name":"bot","message":"hello","current_position":{"x":0,"y":0,"z":0}}}`,
			string(data))
	})

	t.Run("failed uses server_command", func(t *testing.T) {
		var msg ClientMessage
		err := json.Unmarshal([]byte(`{"Failed":{"server_command":"move","current_position":{"x":1,"y":2,"z":3}}}`), &msg)
		require.NoError(t, err)
		require.NoError(t, msg.Validate())
		assert.Equal(t, "Failed", msg.Kind())
		assert.Equal(t, Point{X: 1, Y: 2, Z: 3}, msg.Failed.CurrentPosition)
	})
}

func TestServerMessage_WireFormat(t *testing.T) {
	t.Run("move command carries the bare point", func(t *testing.T) {
		data, err := json.Marshal(NewServerMoveCommand(Point{Z: 0.2}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"ServerMoveCommand":{"x":0,"y":0,"z":0.2}}`, string(data))
	})

	t.Run("failed carries a bare string", func(t *testing.T) {
		data, err := json.Marshal(NewServerFailed("boom"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"ServerFailed":"boom"}`, string(data))
	})

	t.Run("on connect decodes", func(t *testing.T) {
		var msg ServerMessage
		err := json.Unmarshal([]byte(`{"OnConnect":{"client_name":"bot","message":"hello"}}`), &msg)
		require.NoError(t, err)
		assert.Equal(t, "OnConnect", msg.Kind())
		assert.Equal(t, "bot", msg.OnConnect.ClientName)
	})
}

func TestValidate(t *testing.T) {
	t.Run("empty envelope is rejected", func(t *testing.T) {
		assert.ErrorIs(t, ClientMessage{}.Validate(), ErrInvalidEnvelope)
		assert.ErrorIs(t, ServerMessage{}.Validate(), ErrInvalidEnvelope)
		assert.Equal(t, "", ClientMessage{}.Kind())
	})

	t.Run("two variants are rejected", func(t *testing.T) {
		var msg ClientMessage
		err := json.Unmarshal([]byte(`{"ClientOnConnect":{},"Failed":{}}`), &msg)
		require.NoError(t, err)
		assert.ErrorIs(t, msg.Validate(), ErrInvalidEnvelope)
	})
}

func TestClientMessage_State(t *testing.T) {
	pos := Point{X: 1, Y: 2, Z: 3}

	tests := []struct {
		name string
		msg  ClientMessage
		want ClientState
	}{
		{"on connect", NewClientOnConnect(ClientOnConnect{ClientName: "a", Message: "hello", CurrentPosition: pos}), ClientState{"hello", pos}},
		{"command response", NewClientCommandResponse(ClientCommandResponse{Message: "success", CurrentPosition: pos}), ClientState{"success", pos}},
		{"failed", NewClientFailed(ClientFailed{ServerCommand: "move", CurrentPosition: pos}), ClientState{"move", pos}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.msg.State()
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := ClientMessage{}.State()
	assert.False(t, ok)
}

func TestPoint_String(t *testing.T) {
	assert.Equal(t, "Point { x: 0.0, y: 0.0, z: 0.6 }", Point{Z: 0.6}.String())
	assert.Equal(t, "Point { x: -2.0, y: 1.25, z: 100.0 }", Point{X: -2, Y: 1.25, Z: 100}.String())
}

func TestEnvelope_UnmarshalJSON(t *testing.T) {
	t.Run("variant names are case sensitive", func(t *testing.T) {
		var msg ClientMessage
		err := json.Unmarshal([]byte(`{"clientonconnect":{"client_name":"bot","message":"hello"}}`), &msg)
		assert.ErrorIs(t, err, ErrInvalidEnvelope)

		var srv ServerMessage
		err = json.Unmarshal([]byte(`{"servermovecommand":{"x":0,"y":0,"z":0}}`), &srv)
		assert.ErrorIs(t, err, ErrInvalidEnvelope)
	})

	t.Run("null variant is rejected", func(t *testing.T) {
		var msg ClientMessage
		assert.ErrorIs(t, json.Unmarshal([]byte(`{"Failed":null}`), &msg), ErrInvalidEnvelope)
	})

	t.Run("wrong payload type is a decode error", func(t *testing.T) {
		var msg ClientMessage
		err := json.Unmarshal([]byte(`{"ClientOnConnect":5}`), &msg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode ClientOnConnect")
	})

	t.Run("server failed decodes bare string", func(t *testing.T) {
		var srv ServerMessage
		require.NoError(t, json.Unmarshal([]byte(`{"ServerFailed":"boom"}`), &srv))
		require.NotNil(t, srv.Failed)
		assert.Equal(t, "boom", *srv.Failed)
	})

	t.Run("empty object leaves envelope empty", func(t *testing.T) {
		msg := NewClientFailed(ClientFailed{ServerCommand: "x"})
		require.NoError(t, json.Unmarshal([]byte(`{}`), &msg))
		assert.Equal(t, "", msg.Kind())
	})
}
