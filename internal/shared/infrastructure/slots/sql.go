package slots

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/migrations"
)

// SQLStore keeps slots as rows of a key/value table in SQLite or PostgreSQL.
// Writes join the unit of work carried by the context, if any.
type SQLStore struct {
	conn  database.Connection
	table string
}

// NewSQLStore binds a store to table (migrations.DefaultTable when empty).
// The table must exist; see migrations.Run.
func NewSQLStore(conn database.Connection, table string) *SQLStore {
	if table == "" {
		table = migrations.DefaultTable
	}
	return &SQLStore{conn: conn, table: pq.QuoteIdentifier(table)}
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	d := s.conn.Driver()
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = %s`, s.table, d.Placeholder(1))

	var value string
	err := database.ExecutorFromContext(ctx, s.conn).QueryRow(ctx, query, key).Scan(&value)
	if database.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	d := s.conn.Driver()
	query := fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES (%s, %s, %s)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.table, d.Placeholder(1), d.Placeholder(2), d.Placeholder(3))

	var updatedAt any = time.Now().UTC()
	if d == database.DriverSQLite {
		updatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}

	if _, err := database.ExecutorFromContext(ctx, s.conn).Exec(ctx, query, key, string(value), updatedAt); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", key, err)
	}
	return nil
}
