package selection

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"concert-booking/internal/domain/seat"
	"concert-booking/internal/pkg/clock"
)

const DefaultSessionTTL = 30 * time.Minute

// Record is a persisted booking session: which seats were selected
// on which schedule, and when. A record older than the store TTL is
// discarded whole; partial restores would desync the price summary
// from the seat list.
type Record struct {
	ScheduleID uuid.UUID   `json:"scheduleId"`
	SeatIDs    []uuid.UUID `json:"seatIds"`
	SavedAt    time.Time   `json:"savedAt"`
}

// Store persists booking sessions across page reloads.
type Store interface {
	Load(ctx context.Context, key string) (Record, bool, error)
	Save(ctx context.Context, key string, rec Record) error
	Clear(ctx context.Context, key string) error
}

// MemoryStore is the in-process Store used by the booking client and
// by tests. Expiry is checked on Load against the injected clock.
type MemoryStore struct {
	clk clock.Clock
	ttl time.Duration

	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore(clk clock.Clock, ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemoryStore{
		clk:     clk,
		ttl:     ttl,
		records: make(map[string]Record),
	}
}

func (s *MemoryStore) Load(_ context.Context, key string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return Record{}, false, nil
	}
	if s.clk.Now().Sub(rec.SavedAt) > s.ttl {
		delete(s.records, key)
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, rec Record) error {
	if rec.SavedAt.IsZero() {
		rec.SavedAt = s.clk.Now()
	}
	s.mu.Lock()
	s.records[key] = rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

// SaveTo snapshots the machine's current selection into the store.
func (m *Machine) SaveTo(ctx context.Context, store Store, key string, scheduleID uuid.UUID) error {
	return store.Save(ctx, key, Record{
		ScheduleID: scheduleID,
		SeatIDs:    m.SelectedIDs(),
	})
}

// RestoreFrom rebuilds the selection from a stored session. Seats are
// resolved against the given authoritative list; ids that are gone or
// no longer available are dropped silently. A record for a different
// schedule is ignored.
func (m *Machine) RestoreFrom(ctx context.Context, store Store, key string, scheduleID uuid.UUID, seats []seat.Seat) (int, error) {
	rec, ok, err := store.Load(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok || rec.ScheduleID != scheduleID {
		return 0, nil
	}

	byID := make(map[uuid.UUID]seat.Seat, len(seats))
	for _, s := range seats {
		byID[s.ID] = s
	}

	restored := 0
	for _, id := range rec.SeatIDs {
		s, found := byID[id]
		if !found {
			continue
		}
		if err := m.Select(s); err == nil {
			restored++
		}
	}
	return restored, nil
}
