package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
)

const (
	defaultIdleTTL       = 10 * time.Minute
	defaultSweepInterval = time.Minute
)

// Store is the registry of active calls, keyed by call id. Different calls
// are fully independent; the map is safe for concurrent use and a janitor
// evicts sessions that went idle (abandoned or failed calls that never sent a
// completion event).
type Store struct {
	calls *haxmap.Map[string, *Call]

	idleTTL time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIdleTTL overrides how long a silent session survives before eviction.
func WithIdleTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.idleTTL = ttl }
}

// NewStore creates a call registry and starts its eviction janitor.
func NewStore(options ...StoreOption) *Store {
	s := &Store{
		calls:   haxmap.New[string, *Call](),
		idleTTL: defaultIdleTTL,
		stop:    make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	go s.janitor(defaultSweepInterval)
	return s
}

// GetOrCreate returns the session for the call id, creating it on first use.
func (s *Store) GetOrCreate(id string) *Call {
	call, _ := s.calls.GetOrCompute(id, func() *Call {
		return newCall(id)
	})
	return call
}

// Get returns the session for the call id if one exists.
func (s *Store) Get(id string) (*Call, bool) {
	return s.calls.Get(id)
}

// Delete destroys the session. All per-call state is released; a recurring
// call id starts from scratch.
func (s *Store) Delete(id string) {
	s.calls.Del(id)
}

// Len reports the number of active sessions.
func (s *Store) Len() int {
	return int(s.calls.Len())
}

// Close stops the eviction janitor. Sessions already in the map remain until
// deleted explicitly.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

// sweep evicts sessions idle beyond the TTL.
func (s *Store) sweep(now time.Time) {
	var expired []string
	s.calls.ForEach(func(id string, call *Call) bool {
		if now.Sub(call.IdleSince()) > s.idleTTL {
			expired = append(expired, id)
		}
		return true
	})
	for _, id := range expired {
		s.calls.Del(id)
		slog.Info("evicted idle call session", slog.String("call_id", id))
	}
}
