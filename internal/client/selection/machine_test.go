//go:build unit

package selection_test

import (
	"testing"

	"concert-booking/internal/client/selection"
	"concert-booking/internal/domain/seat"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func availableSeat(row string, number int, price int32, grade seat.Grade) seat.Seat {
	return seat.Seat{
		ID:         uuid.New(),
		ScheduleID: uuid.New(),
		Row:        row,
		Number:     number,
		Grade:      grade,
		PriceCents: price,
		Status:     seat.StatusAvailable,
	}
}

func TestMachineSelect(t *testing.T) {
	t.Run("select and deselect", func(t *testing.T) {
		m := selection.NewMachine()
		s := availableSeat("A", 1, 5000, seat.GradeS)

		require.NoError(t, m.Select(s))
		assert.True(t, m.Selected(s.ID))
		assert.Equal(t, []uuid.UUID{s.ID}, m.SelectedIDs())

		assert.True(t, m.Deselect(s.ID))
		assert.False(t, m.Selected(s.ID))
		assert.False(t, m.Deselect(s.ID), "deselecting twice is a no-op")
	})

	t.Run("selecting the same seat twice is rejected with an alert", func(t *testing.T) {
		var alerts []selection.Alert
		m := selection.NewMachine(
			selection.WithAlertHandler(func(a selection.Alert) { alerts = append(alerts, a) }),
		)
		s := availableSeat("A", 1, 5000, seat.GradeS)

		require.NoError(t, m.Select(s))
		assert.ErrorIs(t, m.Select(s), selection.ErrAlreadySelected)
		assert.Len(t, m.SelectedIDs(), 1)
		require.Len(t, alerts, 1)
		assert.Equal(t, selection.AlertDuplicate, alerts[0].Kind)
		assert.Contains(t, alerts[0].Message, "A-1")
	})

	t.Run("unavailable seats never enter the set and raise an alert", func(t *testing.T) {
		var alerts []selection.Alert
		m := selection.NewMachine(
			selection.WithAlertHandler(func(a selection.Alert) { alerts = append(alerts, a) }),
		)
		s := availableSeat("A", 1, 5000, seat.GradeS)
		s.Status = seat.StatusReserved

		assert.ErrorIs(t, m.Select(s), selection.ErrSeatNotSelectable)
		assert.Empty(t, m.SelectedIDs())
		require.Len(t, alerts, 1)
		assert.Equal(t, selection.AlertUnavailable, alerts[0].Kind)
	})

	t.Run("capacity limit holds and raises an alert", func(t *testing.T) {
		var alerts []selection.Alert
		m := selection.NewMachine(
			selection.WithMaxSeats(4),
			selection.WithAlertHandler(func(a selection.Alert) { alerts = append(alerts, a) }),
		)
		for i := 1; i <= 4; i++ {
			require.NoError(t, m.Select(availableSeat("A", i, 5000, seat.GradeS)))
		}

		err := m.Select(availableSeat("B", 1, 5000, seat.GradeS))
		assert.ErrorIs(t, err, selection.ErrSelectionFull)
		assert.Len(t, m.SelectedIDs(), 4)
		require.Len(t, alerts, 1)
		assert.Equal(t, selection.AlertCapacity, alerts[0].Kind)

		// Freeing one slot allows selecting again.
		m.Deselect(m.SelectedIDs()[0])
		assert.NoError(t, m.Select(availableSeat("B", 1, 5000, seat.GradeS)))
	})

	t.Run("clear empties the set", func(t *testing.T) {
		m := selection.NewMachine()
		require.NoError(t, m.Select(availableSeat("A", 1, 5000, seat.GradeS)))
		require.NoError(t, m.Select(availableSeat("A", 2, 5000, seat.GradeS)))

		m.Clear()
		assert.Empty(t, m.SelectedIDs())
		assert.Equal(t, 0, m.Summary().Count)
	})
}

func TestMachineApplyConflicts(t *testing.T) {
	t.Run("evicts exactly the conflicting seats", func(t *testing.T) {
		var alerts []selection.Alert
		m := selection.NewMachine(
			selection.WithAlertHandler(func(a selection.Alert) { alerts = append(alerts, a) }),
		)
		seatA := availableSeat("A", 1, 5000, seat.GradeS)
		seatB := availableSeat("A", 2, 5000, seat.GradeS)
		seatC := availableSeat("A", 3, 5000, seat.GradeS)
		require.NoError(t, m.Select(seatA))
		require.NoError(t, m.Select(seatB))
		require.NoError(t, m.Select(seatC))

		evicted := m.ApplyConflicts([]uuid.UUID{seatB.ID})

		require.Len(t, evicted, 1)
		assert.Equal(t, seatB.ID, evicted[0].ID)
		assert.Equal(t, []uuid.UUID{seatA.ID, seatC.ID}, m.SelectedIDs())

		require.Len(t, alerts, 1)
		assert.Equal(t, selection.AlertConflict, alerts[0].Kind)
		require.Len(t, alerts[0].Seats, 1)
		assert.Contains(t, alerts[0].Message, "A-2")
	})

	t.Run("ids outside the selection are ignored", func(t *testing.T) {
		var alerts []selection.Alert
		m := selection.NewMachine(
			selection.WithAlertHandler(func(a selection.Alert) { alerts = append(alerts, a) }),
		)
		seatA := availableSeat("A", 1, 5000, seat.GradeS)
		require.NoError(t, m.Select(seatA))

		evicted := m.ApplyConflicts([]uuid.UUID{uuid.New()})
		assert.Empty(t, evicted)
		assert.Empty(t, alerts)
		assert.Equal(t, []uuid.UUID{seatA.ID}, m.SelectedIDs())
	})
}

func TestMachineSummary(t *testing.T) {
	m := selection.NewMachine()
	assert.False(t, m.Summary().CanProceed, "empty selection cannot proceed")

	require.NoError(t, m.Select(availableSeat("A", 1, 12000, seat.GradeR)))
	require.NoError(t, m.Select(availableSeat("B", 1, 8000, seat.GradeS)))
	require.NoError(t, m.Select(availableSeat("C", 1, 8000, seat.GradeS)))

	want := selection.Summary{
		Count:      3,
		TotalCents: 28000,
		CountByGrade: map[seat.Grade]int{
			seat.GradeR: 1,
			seat.GradeS: 2,
		},
		CanProceed: true,
	}
	if diff := cmp.Diff(want, m.Summary()); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestMachineRefresh(t *testing.T) {
	m := selection.NewMachine()
	s := availableSeat("A", 1, 5000, seat.GradeS)
	require.NoError(t, m.Select(s))

	s.PriceCents = 6000
	m.Refresh([]seat.Seat{s})

	assert.Equal(t, int64(6000), m.Summary().TotalCents)
	assert.Equal(t, []uuid.UUID{s.ID}, m.SelectedIDs(), "membership unchanged")
}
