// Package contacts queries the external contact directory over the bus.
package contacts

import (
	"context"
	"fmt"
	"time"

	"github.com/centralino/centralino/internal/bus"
)

// lookupTimeout keeps the directory round trip inside the decision path's
// budget.
const lookupTimeout = 500 * time.Millisecond

type lookupRequest struct {
	Number string `json:"number"`
}

type lookupReply struct {
	Known       bool   `json:"known"`
	DisplayName string `json:"display_name"`
}

// Requester is the request/reply slice of the bus client.
type Requester interface {
	Request(ctx context.Context, subject string, req any, out any) error
}

// Client resolves numbers against the contact directory collaborator.
type Client struct {
	bus Requester
}

func NewClient(b Requester) *Client {
	return &Client{bus: b}
}

// IsKnownContact reports whether e164 belongs to a saved contact and, if so,
// its display name.
func (c *Client) IsKnownContact(ctx context.Context, e164 string) (bool, string, error) {
	if e164 == "" {
		return false, "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	var reply lookupReply
	if err := c.bus.Request(ctx, bus.SubjectContactsLookup, lookupRequest{Number: e164}, &reply); err != nil {
		return false, "", fmt.Errorf("contacts lookup: %w", err)
	}
	return reply.Known, reply.DisplayName, nil
}
