package commandclient

import (
	"sync"

	"github.com/cyberinferno/movectl/message"
)

// Agent is the thing being moved. It only remembers where it is.
type Agent struct {
	mu       sync.RWMutex
	position message.Point
}

// NewAgent returns an Agent at the origin.
func NewAgent() *Agent {
	return &Agent{}
}

// UpdatePosition moves the agent to p.
func (a *Agent) UpdatePosition(p message.Point) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.position = p
}

// Position returns the agent's current position.
func (a *Agent) Position() message.Point {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.position
}
