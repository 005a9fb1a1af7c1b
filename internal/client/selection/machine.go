// Package selection holds the client-side selected-seat set and its
// transition rules. The machine never talks to the server; conflicts
// arrive from the sync engine and the final check happens at commit.
package selection

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"concert-booking/internal/domain/seat"
	"concert-booking/internal/pkg/errs"
)

const DefaultMaxSeats = 4

var (
	ErrSelectionFull     = errs.New("selection limit reached")
	ErrAlreadySelected   = errs.New("seat already selected")
	ErrSeatNotSelectable = errs.New("seat not selectable")
)

// AlertKind classifies user-facing selection alerts.
type AlertKind string

const (
	AlertConflict    AlertKind = "conflict"
	AlertCapacity    AlertKind = "capacity"
	AlertUnavailable AlertKind = "unavailable"
	AlertDuplicate   AlertKind = "duplicate"
)

type Alert struct {
	Kind    AlertKind
	Message string
	Seats   []seat.Seat
}

// Summary is derived from the selected set on every read; it is never
// stored.
type Summary struct {
	Count        int
	TotalCents   int64
	CountByGrade map[seat.Grade]int
	CanProceed   bool
}

// Machine is the seat-selection state machine. All mutations hold the
// lock; callbacks run outside it.
type Machine struct {
	mu       sync.Mutex
	limit    int
	selected map[uuid.UUID]seat.Seat
	order    []uuid.UUID

	onAlert func(Alert)
}

type Option func(*Machine)

func WithMaxSeats(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.limit = n
		}
	}
}

func WithAlertHandler(fn func(Alert)) Option {
	return func(m *Machine) { m.onAlert = fn }
}

func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		limit:    DefaultMaxSeats,
		selected: make(map[uuid.UUID]seat.Seat),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Select adds a seat to the set. Only available seats enter, the set
// never exceeds the limit, and a seat is never held twice. Every
// rejection raises an alert alongside the returned error.
func (m *Machine) Select(s seat.Seat) error {
	m.mu.Lock()
	if _, ok := m.selected[s.ID]; ok {
		m.mu.Unlock()
		m.emit(Alert{
			Kind:    AlertDuplicate,
			Message: fmt.Sprintf("座席 %s はすでに選択されています", s.Label()),
			Seats:   []seat.Seat{s},
		})
		return ErrAlreadySelected
	}
	if len(m.selected) >= m.limit {
		limit := m.limit
		m.mu.Unlock()
		m.emit(Alert{
			Kind:    AlertCapacity,
			Message: fmt.Sprintf("選択できる座席は%d席までです", limit),
		})
		return ErrSelectionFull
	}
	if !s.Available() {
		m.mu.Unlock()
		m.emit(Alert{
			Kind:    AlertUnavailable,
			Message: fmt.Sprintf("座席 %s は現在選択できません", s.Label()),
			Seats:   []seat.Seat{s},
		})
		return ErrSeatNotSelectable
	}
	m.selected[s.ID] = s
	m.order = append(m.order, s.ID)
	m.mu.Unlock()
	return nil
}

// Deselect removes a seat; removing an unselected seat is a no-op.
func (m *Machine) Deselect(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.selected[id]; !ok {
		return false
	}
	delete(m.selected, id)
	m.dropFromOrder(id)
	return true
}

func (m *Machine) Clear() {
	m.mu.Lock()
	m.selected = make(map[uuid.UUID]seat.Seat)
	m.order = nil
	m.mu.Unlock()
}

// ApplyConflicts evicts the given seats from the selection and raises
// one conflict alert naming them. Ids outside the selection are
// ignored. Returns the evicted seats.
func (m *Machine) ApplyConflicts(ids []uuid.UUID) []seat.Seat {
	m.mu.Lock()
	var evicted []seat.Seat
	for _, id := range ids {
		s, ok := m.selected[id]
		if !ok {
			continue
		}
		delete(m.selected, id)
		m.dropFromOrder(id)
		evicted = append(evicted, s)
	}
	m.mu.Unlock()

	if len(evicted) > 0 {
		labels := make([]string, len(evicted))
		for i, s := range evicted {
			labels[i] = s.Label()
		}
		m.emit(Alert{
			Kind: AlertConflict,
			Message: fmt.Sprintf("座席 %s は他のお客様に確保されたため選択を解除しました",
				strings.Join(labels, ", ")),
			Seats: evicted,
		})
	}
	return evicted
}

// SelectedIDs returns the selected ids in selection order. It also
// serves as the sync engine's selection source.
func (m *Machine) SelectedIDs() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.order...)
}

func (m *Machine) SelectedSeats() []seat.Seat {
	m.mu.Lock()
	defer m.mu.Unlock()
	seats := make([]seat.Seat, 0, len(m.order))
	for _, id := range m.order {
		seats = append(seats, m.selected[id])
	}
	return seats
}

func (m *Machine) Selected(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.selected[id]
	return ok
}

func (m *Machine) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	sum := Summary{
		Count:        len(m.selected),
		CountByGrade: make(map[seat.Grade]int),
	}
	for _, s := range m.selected {
		sum.TotalCents += int64(s.PriceCents)
		sum.CountByGrade[s.Grade]++
	}
	sum.CanProceed = sum.Count > 0 && sum.Count <= m.limit
	return sum
}

// Refresh overlays fresh authoritative seat data onto the selection,
// keeping prices and positions current without changing membership.
func (m *Machine) Refresh(seats []seat.Seat) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range seats {
		if _, ok := m.selected[s.ID]; ok {
			m.selected[s.ID] = s
		}
	}
}

func (m *Machine) dropFromOrder(id uuid.UUID) {
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

func (m *Machine) emit(a Alert) {
	if m.onAlert != nil {
		m.onAlert(a)
	}
}
