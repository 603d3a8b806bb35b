package sqlindex

import (
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Dialect selects the SQL flavour and database/sql driver of a store.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// ParseDialect accepts the driver names plus a few common aliases.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported index driver: %q", s)
	}
}

// DriverName is the name registered with database/sql.
func (d Dialect) DriverName() string {
	return string(d)
}

// rebind rewrites ? placeholders into $n for postgres.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) schema() []string {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if d == Postgres {
		pk = "BIGSERIAL PRIMARY KEY"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS packages (
			id ` + pk + `,
			package_id TEXT NOT NULL,
			normalized_id TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS manifests (
			id ` + pk + `,
			package_rowid BIGINT NOT NULL REFERENCES packages(id),
			version TEXT NOT NULL,
			channel TEXT NOT NULL DEFAULT '',
			UNIQUE (package_rowid, version, channel)
		)`,
		`CREATE TABLE IF NOT EXISTS dependencies (
			id ` + pk + `,
			manifest_rowid BIGINT NOT NULL REFERENCES manifests(id),
			target_id TEXT NOT NULL,
			target_normalized TEXT NOT NULL,
			min_version TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_manifests_package ON manifests(package_rowid)`,
		`CREATE INDEX IF NOT EXISTS idx_dependencies_manifest ON dependencies(manifest_rowid)`,
		`CREATE INDEX IF NOT EXISTS idx_dependencies_target ON dependencies(target_normalized)`,
	}
}
