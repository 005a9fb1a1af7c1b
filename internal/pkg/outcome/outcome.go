// Package outcome is the shared vocabulary of typed booking outcomes.
// Server handlers serialize these codes into error responses and the
// booking client parses them back, so both sides agree on what is
// retryable and what needs user action.
package outcome

import "net/http"

type Code string

const (
	CodeValidationError      Code = "validation_error"
	CodeSeatsNotAvailable    Code = "seats_not_available"
	CodeDuplicateReservation Code = "duplicate_reservation"
	CodeScheduleNotFound     Code = "schedule_not_found"
	CodeScheduleExpired      Code = "schedule_expired"
	CodeReservationNotFound  Code = "reservation_not_found"
	CodeCancellationClosed   Code = "cancellation_closed"
	CodeInternalError        Code = "internal_error"
)

// HTTPStatus maps a code to its HTTP-equivalent status. Unknown codes
// fall back to 500 rather than leaking a misleading 4xx.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidationError:
		return http.StatusBadRequest
	case CodeSeatsNotAvailable, CodeDuplicateReservation, CodeCancellationClosed, CodeScheduleExpired:
		return http.StatusConflict
	case CodeScheduleNotFound, CodeReservationNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether polling/backoff logic may retry the failed
// operation automatically. Conflicts and validation failures need user
// action and must never be retried blindly.
func (c Code) Retryable() bool {
	switch c {
	case CodeValidationError, CodeSeatsNotAvailable, CodeDuplicateReservation,
		CodeCancellationClosed, CodeScheduleExpired, CodeScheduleNotFound, CodeReservationNotFound:
		return false
	default:
		return true
	}
}

func (c Code) String() string {
	return string(c)
}
