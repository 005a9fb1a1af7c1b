package components

import (
	"concert-booking/internal/domain/reservation"
	"concert-booking/internal/pkg/clock"
	"concert-booking/internal/pkg/config"
	"concert-booking/internal/usecase/commands"
	"concert-booking/internal/usecase/queries"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseCommandsModule,
	usecaseQueriesModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	func(clk clock.Clock, cfg config.Config) *reservation.Factory {
		return reservation.NewFactory(clk, cfg.Booking.MaxSeatsPerReservation)
	},
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		NewReservationCommands,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewSeatQueries,
		queries.NewReservationQueries,
	),
)

func NewReservationCommands(
	tx commands.TxRunner,
	seatRepo commands.SeatRepository,
	resRepo commands.ReservationRepository,
	factory *reservation.Factory,
	publisher commands.EventPublisher,
	invalidator commands.SeatCountInvalidator,
	clk clock.Clock,
	cfg config.Config,
) commands.ReservationCommands {
	return commands.NewReservationUseCase(
		tx, seatRepo, resRepo, factory, publisher, invalidator, clk,
		cfg.Booking.CancelCutoff,
	)
}
