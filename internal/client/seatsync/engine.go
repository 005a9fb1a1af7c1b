// Package seatsync keeps a client-side snapshot of a schedule's seat
// statuses in sync with the server and reports conflicts against the
// locally selected set.
package seatsync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"concert-booking/internal/domain/seat"
	"concert-booking/internal/pkg/clock"
	"concert-booking/internal/pkg/errs"
)

var (
	ErrEmptyPayload = errs.New("seat payload empty or malformed")
	ErrFetchFailed  = errs.New("seat status fetch failed")
)

// SeatPage is one authoritative fetch result.
type SeatPage struct {
	ScheduleID uuid.UUID
	Seats      []seat.Seat
	Timestamp  time.Time
}

// Fetcher retrieves the full seat-status list for a schedule.
type Fetcher interface {
	FetchSeatStatus(ctx context.Context, scheduleID uuid.UUID) (SeatPage, error)
}

// SelectionSource exposes the caller's currently selected seat ids.
// Conflicts are computed against this set, not against the snapshot.
type SelectionSource interface {
	SelectedIDs() []uuid.UUID
}

// Snapshot is the last applied authoritative state. It is replaced
// wholesale on every applied fetch, never patched.
type Snapshot struct {
	Seats     []seat.Seat
	Statuses  map[uuid.UUID]seat.Status
	FetchedAt time.Time
}

type ConnectionState string

const (
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
	StateError        ConnectionState = "error"
)

type ConnectionStatus struct {
	State       ConnectionState
	RetryCount  int
	LastSuccess time.Time
}

type Config struct {
	ScheduleID   uuid.UUID
	FetchTimeout time.Duration
}

// Engine fetches, diffs and publishes seat state for one schedule.
// Switching schedules means tearing the engine down and building a
// new one.
type Engine struct {
	cfg       Config
	fetcher   Fetcher
	selection SelectionSource
	clk       clock.Clock

	onUpdate   func(Snapshot)
	onConflict func(seatIDs []uuid.UUID)

	mu      sync.Mutex
	snap    Snapshot
	hasSnap bool
	conn    ConnectionStatus

	// issued/applied generations order fetch completions; a response
	// whose generation is older than the last applied one is stale
	// and discarded.
	issued  uint64
	applied uint64
}

type Option func(*Engine)

func WithUpdateHandler(fn func(Snapshot)) Option {
	return func(e *Engine) { e.onUpdate = fn }
}

func WithConflictHandler(fn func(seatIDs []uuid.UUID)) Option {
	return func(e *Engine) { e.onConflict = fn }
}

func NewEngine(cfg Config, fetcher Fetcher, selection SelectionSource, clk clock.Clock, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		fetcher:   fetcher,
		selection: selection,
		clk:       clk,
		conn:      ConnectionStatus{State: StateDisconnected},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sync runs one fetch-diff-apply cycle. It satisfies poller.Task.
func (e *Engine) Sync(ctx context.Context) error {
	e.mu.Lock()
	e.issued++
	gen := e.issued
	e.mu.Unlock()

	fctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	page, err := e.fetcher.FetchSeatStatus(fctx, e.cfg.ScheduleID)
	if err != nil {
		e.recordFailure()
		return errs.Mark(err, ErrFetchFailed)
	}
	// An empty list is indistinguishable from a broken response and
	// must not wipe a valid snapshot.
	if len(page.Seats) == 0 {
		e.recordFailure()
		return ErrEmptyPayload
	}

	return e.apply(gen, page)
}

func (e *Engine) apply(gen uint64, page SeatPage) error {
	statuses := make(map[uuid.UUID]seat.Status, len(page.Seats))
	for _, s := range page.Seats {
		statuses[s.ID] = s.Status
	}

	conflicts := e.conflictSet(statuses)

	e.mu.Lock()
	if gen <= e.applied {
		e.mu.Unlock()
		return nil
	}
	e.applied = gen

	changed := e.changedLocked(statuses)
	var snap Snapshot
	if changed {
		snap = Snapshot{
			Seats:     append([]seat.Seat(nil), page.Seats...),
			Statuses:  statuses,
			FetchedAt: e.clk.Now(),
		}
		e.snap = snap
		e.hasSnap = true
	}
	e.conn = ConnectionStatus{
		State:       StateConnected,
		RetryCount:  0,
		LastSuccess: e.clk.Now(),
	}
	e.mu.Unlock()

	if changed && e.onUpdate != nil {
		e.onUpdate(snap)
	}
	// Conflicts fire even when the change test saw nothing new: the
	// local selection may collide with state already in the snapshot.
	if len(conflicts) > 0 && e.onConflict != nil {
		e.onConflict(conflicts)
	}
	return nil
}

// changedLocked is the change test: first fetch always counts, after
// that a differing seat count or any differing status.
func (e *Engine) changedLocked(next map[uuid.UUID]seat.Status) bool {
	if !e.hasSnap {
		return true
	}
	if len(next) != len(e.snap.Statuses) {
		return true
	}
	for id, st := range next {
		prev, ok := e.snap.Statuses[id]
		if !ok || prev != st {
			return true
		}
	}
	return false
}

func (e *Engine) conflictSet(statuses map[uuid.UUID]seat.Status) []uuid.UUID {
	if e.selection == nil {
		return nil
	}
	var conflicts []uuid.UUID
	for _, id := range e.selection.SelectedIDs() {
		st, ok := statuses[id]
		if !ok || st != seat.StatusAvailable {
			conflicts = append(conflicts, id)
		}
	}
	return conflicts
}

func (e *Engine) recordFailure() {
	e.mu.Lock()
	e.conn.State = StateError
	e.conn.RetryCount++
	e.mu.Unlock()
}

// SetDisconnected marks the transport offline, typically from a
// network trigger or a terminal poller failure.
func (e *Engine) SetDisconnected() {
	e.mu.Lock()
	e.conn.State = StateDisconnected
	e.mu.Unlock()
}

func (e *Engine) Connection() ConnectionStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn
}

// Snapshot returns the last applied state; ok is false before the
// first successful fetch.
func (e *Engine) Snapshot() (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap, e.hasSnap
}
