// Package migrations creates the slot table for the configured backend.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/database"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// DefaultTable is the slot table name used when none is configured.
const DefaultTable = "storage_slots"

// Run applies every *.up.sql file for the connection's driver in name order.
// Statements are idempotent, so Run is safe on every start.
func Run(ctx context.Context, conn database.Connection, table string) error {
	if table == "" {
		table = DefaultTable
	}
	dir := conn.Driver().String()

	entries, err := files.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations for %s: %w", dir, err)
	}

	var ups []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			ups = append(ups, e.Name())
		}
	}
	sort.Strings(ups)

	for _, name := range ups {
		raw, err := files.ReadFile(dir + "/" + name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		stmt := strings.ReplaceAll(string(raw), "{{table}}", pq.QuoteIdentifier(table))
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
	}
	return nil
}
