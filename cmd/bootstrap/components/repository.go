package components

import (
	"concert-booking/internal/infra/cache"
	"concert-booking/internal/infra/queue"
	repo_impl "concert-booking/internal/infra/repository"
	"concert-booking/internal/pkg/config"
	"concert-booking/internal/usecase/commands"
	"concert-booking/internal/usecase/queries"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var RepositoryModule = fx.Module("repository",
	fx.Provide(
		fx.Annotate(
			repo_impl.NewTxRunner,
			fx.As(new(commands.TxRunner)),
		),
		fx.Annotate(
			repo_impl.NewSeatRepository,
			fx.As(new(commands.SeatRepository)),
			fx.As(new(queries.SeatReader)),
		),
		fx.Annotate(
			repo_impl.NewReservationRepository,
			fx.As(new(commands.ReservationRepository)),
			fx.As(new(queries.ReservationReader)),
		),
		fx.Annotate(
			NewSeatCountCache,
			fx.As(new(queries.SeatCountCache)),
			fx.As(new(commands.SeatCountInvalidator)),
		),
		fx.Annotate(
			NewEventPublisher,
			fx.As(new(commands.EventPublisher)),
		),
	),
)

func NewSeatCountCache(client *redis.Client, cfg config.Config) *cache.SeatCountCache {
	return cache.NewSeatCountCache(client, cfg.Booking.SeatCountCacheTTL)
}

func NewEventPublisher(cfg config.Config) *queue.Publisher {
	return queue.NewPublisher(cfg.Queue)
}
