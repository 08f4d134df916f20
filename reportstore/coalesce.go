package reportstore

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// CoalescingStore wraps a Store so that concurrent Get calls for the same
// client share one backend lookup.
type CoalescingStore struct {
	Store
	group singleflight.Group
}

// Coalesce wraps s.
func Coalesce(s Store) *CoalescingStore {
	return &CoalescingStore{Store: s}
}

// Get implements Store. The shared lookup ignores the cancellation of
// whichever caller started it; each caller stops waiting when its own ctx is
// done.
func (c *CoalescingStore) Get(ctx context.Context, clientName string) (Report, error) {
	ch := c.group.DoChan(clientName, func() (interface{}, error) {
		return c.Store.Get(context.WithoutCancel(ctx), clientName)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return Report{}, ctx.Err()
	case res = <-ch:
	}

	if res.Err != nil {
		return Report{}, res.Err
	}

	r, ok := res.Val.(Report)
	if !ok {
		return Report{}, fmt.Errorf("unexpected lookup result for %s", clientName)
	}

	return r, nil
}
