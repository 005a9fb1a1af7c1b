package seat

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInvalidGrade  = errors.New("invalid seat grade")
	ErrInvalidStatus = errors.New("invalid seat status")
)

type Grade string

const (
	GradeR Grade = "R"
	GradeS Grade = "S"
	GradeA Grade = "A"
)

func NewGrade(s string) (Grade, error) {
	switch Grade(s) {
	case GradeR, GradeS, GradeA:
		return Grade(s), nil
	default:
		return "", ErrInvalidGrade
	}
}

// Status is mutated only by the server; clients treat it as read-mostly
// and overlay a local "selected" flag that never reaches the server
// before commit.
type Status string

const (
	StatusAvailable Status = "available"
	StatusHeld      Status = "held"
	StatusReserved  Status = "reserved"
)

func NewStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusAvailable, StatusHeld, StatusReserved:
		return Status(s), nil
	default:
		return "", ErrInvalidStatus
	}
}

type Seat struct {
	ID         uuid.UUID
	ScheduleID uuid.UUID
	Row        string
	Number     int
	Grade      Grade
	PriceCents int32
	PosX       int
	PosY       int
	Accessible bool
	Status     Status
}

func (s Seat) Available() bool {
	return s.Status == StatusAvailable
}

// Label is the human-readable position, e.g. "C-12".
func (s Seat) Label() string {
	return fmt.Sprintf("%s-%d", s.Row, s.Number)
}
