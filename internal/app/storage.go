package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	sharedApplication "github.com/felixgeelhaar/featureboard/internal/shared/application"
	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/database/postgres" // Register PostgreSQL driver
	_ "github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/slots"
	"github.com/felixgeelhaar/featureboard/pkg/config"
)

// RedisSlotPrefix namespaces slot keys in Redis.
const RedisSlotPrefix = "featureboard:slot:"

// Storage is the opened slot backend.
type Storage struct {
	Backend string
	Slots   slots.Store

	// UnitOfWork is set for SQL backends only.
	UnitOfWork sharedApplication.UnitOfWork

	DBConn database.Connection
	Redis  *redis.Client
}

// OpenStorage opens the slot backend selected by cfg.StorageBackend. SQL
// backends are migrated before use.
func OpenStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Storage, error) {
	s := &Storage{Backend: cfg.StorageBackend}

	switch cfg.StorageBackend {
	case config.StorageMemory:
		s.Slots = slots.NewMemoryStore()

	case config.StorageSQLite, config.StoragePostgres:
		dbCfg := database.Config{
			Driver:     database.Driver(cfg.StorageBackend),
			URL:        cfg.DatabaseURL,
			SQLitePath: cfg.SQLitePath,
		}
		if dbCfg.Driver == database.DriverSQLite && dbCfg.SQLitePath == "" {
			dbCfg.SQLitePath = database.DefaultSQLitePath()
		}
		if dbCfg.Driver == database.DriverPostgres && dbCfg.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the %s backend", cfg.StorageBackend)
		}

		conn, err := database.NewConnection(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", cfg.StorageBackend, err)
		}
		if err := migrations.Run(ctx, conn, cfg.SlotTable); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		s.DBConn = conn
		s.Slots = slots.NewSQLStore(conn, cfg.SlotTable)
		s.UnitOfWork = database.NewUnitOfWork(conn)
		logger.Info("connected to database", "driver", conn.Driver().String())

	case config.StorageRedis:
		client, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		s.Redis = client
		s.Slots = slots.NewRedisStore(client, RedisSlotPrefix)
		logger.Info("connected to Redis slot store")

	default:
		return nil, fmt.Errorf("unsupported storage backend: %q", cfg.StorageBackend)
	}
	return s, nil
}

// Close releases the backend connections.
func (s *Storage) Close() error {
	var err error
	if s.DBConn != nil {
		err = s.DBConn.Close()
	}
	if s.Redis != nil {
		if rerr := s.Redis.Close(); err == nil {
			err = rerr
		}
	}
	return err
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
