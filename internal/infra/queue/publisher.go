// Package queue publishes reservation lifecycle events to RabbitMQ.
// Publishing is best effort: a broker outage must never fail a commit
// that already succeeded against the database.
package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"concert-booking/internal/domain/reservation"
	"concert-booking/internal/pkg/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	queueReservationConfirmed = "reservation.confirmed"
	queueReservationCancelled = "reservation.cancelled"
)

type ReservationEvent struct {
	ReservationID     string   `json:"reservationId"`
	ReservationNumber string   `json:"reservationNumber"`
	ScheduleID        string   `json:"scheduleId"`
	SeatIDs           []string `json:"seatIds"`
	TotalPriceCents   int64    `json:"totalPriceCents"`
	OccurredAt        string   `json:"occurredAt"`
}

type Publisher struct {
	cfg config.QueueConfig
}

func NewPublisher(cfg config.QueueConfig) *Publisher {
	return &Publisher{cfg: cfg}
}

func (p *Publisher) PublishConfirmed(ctx context.Context, res *reservation.Reservation) {
	p.publish(ctx, queueReservationConfirmed, toEvent(res))
}

func (p *Publisher) PublishCancelled(ctx context.Context, res *reservation.Reservation) {
	p.publish(ctx, queueReservationCancelled, toEvent(res))
}

func toEvent(res *reservation.Reservation) ReservationEvent {
	seatIDs := make([]string, 0, len(res.SeatIDs()))
	for _, id := range res.SeatIDs() {
		seatIDs = append(seatIDs, id.String())
	}
	return ReservationEvent{
		ReservationID:     res.ID().String(),
		ReservationNumber: res.Number().String(),
		ScheduleID:        res.ScheduleID().String(),
		SeatIDs:           seatIDs,
		TotalPriceCents:   res.TotalPrice().Cents(),
		OccurredAt:        time.Now().UTC().Format(time.RFC3339),
	}
}

func (p *Publisher) publish(ctx context.Context, queueName string, event ReservationEvent) {
	if !p.cfg.Enabled {
		return
	}

	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		slog.Warn("rabbitmq dial failed", "queue", queueName, "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		slog.Warn("rabbitmq channel open failed", "queue", queueName, "error", err)
		return
	}
	defer func() { _ = ch.Close() }()

	// Durable so events survive broker restarts; declare is idempotent.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		slog.Warn("rabbitmq queue declare failed", "queue", queueName, "error", err)
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		slog.Warn("rabbitmq event marshal failed", "queue", queueName, "error", err)
		return
	}

	err = ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		slog.Warn("rabbitmq publish failed", "queue", queueName, "error", err)
	}
}
