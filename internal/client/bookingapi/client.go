// Package bookingapi is the HTTP client for the booking endpoints.
// It shares the wire DTOs and the outcome taxonomy with the server
// handlers so both sides agree on every payload and error code.
package bookingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"concert-booking/internal/client/seatsync"
	"concert-booking/internal/domain/seat"
	"concert-booking/internal/handler/dto/request"
	"concert-booking/internal/handler/dto/response"
	"concert-booking/internal/pkg/errs"
	"concert-booking/internal/pkg/outcome"
	"concert-booking/internal/usecase/queries"
)

// APIError is a typed non-2xx outcome from the server.
type APIError struct {
	StatusCode   int
	Code         outcome.Code
	Message      string
	InvalidSeats []uuid.UUID
}

func (e *APIError) Error() string {
	return fmt.Sprintf("booking api: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// CodeOf extracts the outcome code from an error returned by this
// client; transport-level failures map to internal_error.
func CodeOf(err error) outcome.Code {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return outcome.CodeInternalError
}

type Client struct {
	base string
	hc   *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{Timeout: timeout},
	}
}

// FetchSeatStatus implements seatsync.Fetcher.
func (c *Client) FetchSeatStatus(ctx context.Context, scheduleID uuid.UUID) (seatsync.SeatPage, error) {
	var view queries.SeatStatusView
	err := c.do(ctx, http.MethodGet,
		fmt.Sprintf("/api/schedules/%s/seats/status", scheduleID), nil, &view)
	if err != nil {
		return seatsync.SeatPage{}, err
	}

	seats := make([]seat.Seat, 0, len(view.Seats))
	for _, v := range view.Seats {
		grade, err := seat.NewGrade(v.Grade)
		if err != nil {
			return seatsync.SeatPage{}, errs.Wrap(err, "invalid grade in seat payload")
		}
		status, err := seat.NewStatus(v.Status)
		if err != nil {
			return seatsync.SeatPage{}, errs.Wrap(err, "invalid status in seat payload")
		}
		seats = append(seats, seat.Seat{
			ID:         v.ID,
			ScheduleID: view.ScheduleID,
			Row:        v.Row,
			Number:     v.Number,
			Grade:      grade,
			PriceCents: v.PriceCents,
			PosX:       v.PosX,
			PosY:       v.PosY,
			Accessible: v.Accessible,
			Status:     status,
		})
	}
	return seatsync.SeatPage{
		ScheduleID: view.ScheduleID,
		Seats:      seats,
		Timestamp:  view.Timestamp,
	}, nil
}

func (c *Client) FetchSeatCounts(ctx context.Context, scheduleID uuid.UUID) (queries.SeatCountView, error) {
	var view queries.SeatCountView
	err := c.do(ctx, http.MethodGet,
		fmt.Sprintf("/api/schedules/%s/seats/count", scheduleID), nil, &view)
	return view, err
}

// ValidateSeats is the advisory pre-flight; a false result reports
// which seats are gone but a true result guarantees nothing.
func (c *Client) ValidateSeats(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID) (response.ValidateSeatsResponse, error) {
	req := request.ValidateSeatsRequest{ScheduleID: scheduleID, SeatIDs: seatIDs}
	var resp response.ValidateSeatsResponse
	err := c.do(ctx, http.MethodPost, "/api/booking/validate-seats", req, &resp)
	return resp, err
}

func (c *Client) CreateReservation(ctx context.Context, req request.CreateReservationRequest) (response.ReservationResponse, error) {
	var resp response.ReservationResponse
	err := c.do(ctx, http.MethodPost, "/api/reservations", req, &resp)
	return resp, err
}

func (c *Client) GetReservation(ctx context.Context, id uuid.UUID) (response.ReservationResponse, error) {
	var resp response.ReservationResponse
	err := c.do(ctx, http.MethodGet, "/api/reservations/"+id.String(), nil, &resp)
	return resp, err
}

func (c *Client) CancelReservation(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/reservations/"+id.String(), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errs.Wrap(err, "failed to encode request body")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return errs.Wrap(err, "failed to build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return errs.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.decodeError(resp)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return errs.Wrap(err, "failed to decode response body")
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Code:       outcome.CodeInternalError,
		Message:    resp.Status,
	}
	var body response.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Code != "" {
		apiErr.Code = outcome.Code(body.Code)
		apiErr.Message = body.Error
		apiErr.InvalidSeats = body.InvalidSeats
	}
	return apiErr
}
