package components

import (
	"concert-booking/internal/handler"
	"concert-booking/internal/handler/api"
	"concert-booking/internal/pkg/config"
	"concert-booking/internal/usecase/queries"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		NewSeatHandler,
		api.NewBookingHandler,
	),
	fx.Invoke(handler.NewRouter),
)

func NewSeatHandler(seatQueries queries.SeatQueries, cfg config.Config) *api.SeatHandler {
	return api.NewSeatHandler(seatQueries, int(cfg.Booking.SeatCountCacheTTL.Seconds()))
}
