// Package message defines the request and response shapes exchanged between
// the command server and its clients. The JSON layout uses externally tagged
// envelopes: every message is an object with exactly one key naming the
// variant, e.g. {"ServerMoveCommand":{"x":0,"y":0,"z":0.2}}.
package message

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidEnvelope is returned by Validate when an envelope carries zero or
// more than one variant.
var ErrInvalidEnvelope = errors.New("invalid message envelope")

// Point is a position in 3D space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// String formats the point the way it appears in server reports. Whole
// numbers keep a trailing ".0", e.g. Point { x: 0.0, y: 0.0, z: 0.6 }.
func (p Point) String() string {
	return fmt.Sprintf("Point { x: %s, y: %s, z: %s }", formatCoord(p.X), formatCoord(p.Y), formatCoord(p.Z))
}

func formatCoord(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".nN") {
		s += ".0"
	}

	return s
}

// ClientOnConnect is the first message a client sends after connecting.
type ClientOnConnect struct {
	ClientName      string `json:"client_name"`
	Message         string `json:"message"`
	CurrentPosition Point  `json:"current_position"`
}

// ClientCommandResponse acknowledges a server command.
type ClientCommandResponse struct {
	Message         string `json:"message"`
	CurrentPosition Point  `json:"current_position"`
}

// ClientFailed reports that the client could not carry out a command.
type ClientFailed struct {
	ServerCommand   string `json:"server_command"`
	CurrentPosition Point  `json:"current_position"`
}

// ClientMessage is the envelope for everything a client sends.
type ClientMessage struct {
	OnConnect       *ClientOnConnect       `json:"ClientOnConnect,omitempty"`
	CommandResponse *ClientCommandResponse `json:"ClientCommandResponse,omitempty"`
	Failed          *ClientFailed          `json:"Failed,omitempty"`
}

// NewClientOnConnect wraps an OnConnect payload in an envelope.
func NewClientOnConnect(m ClientOnConnect) ClientMessage {
	return ClientMessage{OnConnect: &m}
}

// NewClientCommandResponse wraps a command response in an envelope.
func NewClientCommandResponse(m ClientCommandResponse) ClientMessage {
	return ClientMessage{CommandResponse: &m}
}

// NewClientFailed wraps a failure report in an envelope.
func NewClientFailed(m ClientFailed) ClientMessage {
	return ClientMessage{Failed: &m}
}

// Kind returns the variant name, or "" when the envelope is empty.
func (m ClientMessage) Kind() string {
	switch {
	case m.OnConnect != nil:
		return "ClientOnConnect"
	case m.CommandResponse != nil:
		return "ClientCommandResponse"
	case m.Failed != nil:
		return "Failed"
	default:
		return ""
	}
}

// Validate checks that exactly one variant is set.
func (m ClientMessage) Validate() error {
	if n := countSet(m.OnConnect != nil, m.CommandResponse != nil, m.Failed != nil); n != 1 {
		return fmt.Errorf("%w: client message has %d variants", ErrInvalidEnvelope, n)
	}

	return nil
}

// State derives the server-side client state from whichever variant is set.
// The boolean is false for an empty envelope.
func (m ClientMessage) State() (ClientState, bool) {
	switch {
	case m.OnConnect != nil:
		return ClientState{LastMessage: m.OnConnect.Message, CurrentPosition: m.OnConnect.CurrentPosition}, true
	case m.CommandResponse != nil:
		return ClientState{LastMessage: m.CommandResponse.Message, CurrentPosition: m.CommandResponse.CurrentPosition}, true
	case m.Failed != nil:
		return ClientState{LastMessage: m.Failed.ServerCommand, CurrentPosition: m.Failed.CurrentPosition}, true
	default:
		return ClientState{}, false
	}
}

// ServerOnConnect answers a client's OnConnect.
type ServerOnConnect struct {
	ClientName string `json:"client_name"`
	Message    string `json:"message"`
}

// ServerMessage is the envelope for everything the server sends.
type ServerMessage struct {
	OnConnect   *ServerOnConnect `json:"OnConnect,omitempty"`
	MoveCommand *Point           `json:"ServerMoveCommand,omitempty"`
	Failed      *string          `json:"ServerFailed,omitempty"`
}

// NewServerOnConnect wraps a greeting in an envelope.
func NewServerOnConnect(m ServerOnConnect) ServerMessage {
	return ServerMessage{OnConnect: &m}
}

// NewServerMoveCommand wraps a move target in an envelope.
func NewServerMoveCommand(p Point) ServerMessage {
	return ServerMessage{MoveCommand: &p}
}

// NewServerFailed wraps a failure reason in an envelope.
func NewServerFailed(reason string) ServerMessage {
	return ServerMessage{Failed: &reason}
}

// Kind returns the variant name, or "" when the envelope is empty.
func (m ServerMessage) Kind() string {
	switch {
	case m.OnConnect != nil:
		return "OnConnect"
	case m.MoveCommand != nil:
		return "ServerMoveCommand"
	case m.Failed != nil:
		return "ServerFailed"
	default:
		return ""
	}
}

// Validate checks that exactly one variant is set.
func (m ServerMessage) Validate() error {
	if n := countSet(m.OnConnect != nil, m.MoveCommand != nil, m.Failed != nil); n != 1 {
		return fmt.Errorf("%w: server message has %d variants", ErrInvalidEnvelope, n)
	}

	return nil
}

// ClientState is the last known state of a client as recorded by the server.
type ClientState struct {
	LastMessage     string `json:"last_message"`
	CurrentPosition Point  `json:"current_position"`
}

func countSet(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}

	return n
}
