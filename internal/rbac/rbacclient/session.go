package rbacclient

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/muniadmin/muniadmin/internal/rbac"
)

// DefaultStaleAfter is the staleness window used when none is configured.
const DefaultStaleAfter = 5 * time.Minute

// Fetcher loads a capability snapshot.
type Fetcher interface {
	FetchSnapshot(ctx context.Context) (rbac.SnapshotResponse, error)
}

// Session holds one principal's resolver and refetches it on first use after
// the staleness window. Failed fetches yield a resolver that denies everything.
type Session struct {
	fetcher    Fetcher
	staleAfter time.Duration
	logger     *slog.Logger
	now        func() time.Time

	mu        sync.Mutex
	resolver  *rbac.Resolver
	fetchedAt time.Time
	group     singleflight.Group
}

// NewSession builds a Session.
func NewSession(fetcher Fetcher, staleAfter time.Duration, logger *slog.Logger) *Session {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{fetcher: fetcher, staleAfter: staleAfter, logger: logger, now: time.Now}
}

// Resolver returns a fresh resolver; it never returns nil.
func (s *Session) Resolver(ctx context.Context) *rbac.Resolver {
	s.mu.Lock()
	if s.resolver != nil && s.now().Sub(s.fetchedAt) < s.staleAfter {
		r := s.resolver
		s.mu.Unlock()
		return r
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do("snapshot", func() (interface{}, error) {
		snap, err := s.fetcher.FetchSnapshot(ctx)
		if err != nil {
			return nil, err
		}
		r := rbac.NewResolver(&rbac.Principal{
			UserID:       snap.UserID,
			Role:         snap.Role,
			Capabilities: rbac.NewCapabilities(snap.Modules),
		})
		s.mu.Lock()
		s.resolver = r
		s.fetchedAt = s.now()
		s.mu.Unlock()
		return r, nil
	})
	if err != nil {
		s.logger.Warn("rbacclient fetch snapshot", slog.Any("error", err))
		return rbac.NewResolver(nil)
	}
	return v.(*rbac.Resolver)
}

// Invalidate forces the next Resolver call to refetch.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.resolver = nil
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}
