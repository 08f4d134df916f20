package reportstore

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps reports in process memory using go-cache.
type MemoryStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewMemoryStore returns an in-memory store.
//
// Parameters:
//   - ttl: How long each report is kept (use cache.NoExpiration to keep forever)
//   - cleanupInterval: How often expired reports are purged; 0 disables the
//     background janitor and expired reports are only hidden on read
func NewMemoryStore(ttl, cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: cache.New(ttl, cleanupInterval),
		ttl:   ttl,
	}
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, r Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if r.ClientName == "" {
		return fmt.Errorf("save report: empty client name")
	}

	s.cache.Set(r.ClientName, r, cache.DefaultExpiration)
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, clientName string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	val, found := s.cache.Get(clientName)
	if !found {
		return Report{}, fmt.Errorf("%w: %s", ErrReportNotFound, clientName)
	}

	r, ok := val.(Report)
	if !ok {
		return Report{}, fmt.Errorf("unexpected type in report cache for %s", clientName)
	}

	return r, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, clientName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.cache.Delete(clientName)
	return nil
}

// Count implements Store. Expired reports not yet purged are not counted.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	return len(s.cache.Items()), nil
}

// Close implements Store. The go-cache janitor stops when the cache is
// garbage collected, so there is nothing to release.
func (s *MemoryStore) Close() error {
	return nil
}
