package bootstrap

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/spa-line-booking/internal/bookings"
	"github.com/wolfman30/spa-line-booking/internal/catalog"
	appconfig "github.com/wolfman30/spa-line-booking/internal/config"
	"github.com/wolfman30/spa-line-booking/internal/events"
	"github.com/wolfman30/spa-line-booking/internal/users"
	"github.com/wolfman30/spa-line-booking/pkg/logging"
)

// Repositories groups the data stores the booking flow reads and writes.
type Repositories struct {
	Users    users.Repository
	Catalog  catalog.Repository
	Bookings bookings.Repository
	// Processed is nil without a database; redeliveries are then handled again.
	Processed *events.ProcessedStore
}

// BuildRepositories uses Postgres when a pool is given and seeded in-memory
// stores otherwise.
func BuildRepositories(pool *pgxpool.Pool, cfg *appconfig.Config, loc *time.Location, logger *logging.Logger) Repositories {
	if logger == nil {
		logger = logging.Default()
	}
	prefix := bookings.DefaultPrefix
	if cfg != nil && cfg.BookingNumberPrefix != "" {
		prefix = cfg.BookingNumberPrefix
	}
	numbering := []bookings.Option{bookings.WithPrefix(prefix), bookings.WithLocation(loc)}

	if pool == nil {
		logger.Warn("DATABASE_URL not set; using in-memory repositories with the default service menu")
		return Repositories{
			Users:    users.NewInMemoryRepository(),
			Catalog:  catalog.NewInMemoryRepository(catalog.SeedServices()...),
			Bookings: bookings.NewInMemoryRepository(numbering...),
		}
	}
	return Repositories{
		Users:     users.NewPostgresRepository(pool),
		Catalog:   catalog.NewPostgresRepository(pool),
		Bookings:  bookings.NewPostgresRepository(pool, numbering...),
		Processed: events.NewProcessedStore(pool),
	}
}
