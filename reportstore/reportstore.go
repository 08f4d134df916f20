// Package reportstore archives the final report of each server session so it
// can be looked up after the client has gone. Reports are kept for a
// retention TTL in memory (go-cache) or in Redis.
package reportstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cyberinferno/movectl/message"
	"github.com/cyberinferno/movectl/utils"
)

// ErrReportNotFound is returned by Get when no report is archived for a client.
var ErrReportNotFound = errors.New("report not found")

// Report is the server's final record of one client session.
type Report struct {
	Session       string        `json:"session"`
	ClientName    string        `json:"client_name"`
	Position      message.Point `json:"position"`
	LastMessage   string        `json:"last_message"`
	CommandsAcked int           `json:"commands_acked"`
	CommandsTotal int           `json:"commands_total"`
	Completed     bool          `json:"completed"`
	Error         string        `json:"error,omitempty"`
	Duration      time.Duration `json:"duration"`
	EndedAt       time.Time     `json:"ended_at"`
}

// String renders the report as printed by the server when a client leaves.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "client connection dropped, \n position: %s\n last message\n%q\n", r.Position, r.LastMessage)
	fmt.Fprintf(&b, " client: %s\n commands acknowledged: %d/%d\n completed: %s\n duration: %s\n",
		r.ClientName, r.CommandsAcked, r.CommandsTotal, utils.BoolToYesNo(r.Completed), r.Duration.Round(time.Microsecond))
	if r.Error != "" {
		fmt.Fprintf(&b, " error: %s\n", r.Error)
	}

	return b.String()
}

// Store archives reports keyed by client name. A newer report for the same
// client replaces the older one.
type Store interface {
	// Save archives r under r.ClientName for the store's retention TTL.
	Save(ctx context.Context, r Report) error

	// Get returns the archived report for clientName or ErrReportNotFound.
	Get(ctx context.Context, clientName string) (Report, error)

	// Delete removes the report for clientName. Deleting a missing report is
	// not an error.
	Delete(ctx context.Context, clientName string) error

	// Count returns the number of archived reports.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}
