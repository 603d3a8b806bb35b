package sqlindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/pkgindex/pkg/index"
	"github.com/platinummonkey/pkgindex/pkg/manifest"
	"github.com/platinummonkey/pkgindex/pkg/version"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// reader implements index.Index over a querier.
type reader struct {
	q       querier
	dialect Dialect
}

var _ index.Index = reader{}

func (r reader) FindPackage(ctx context.Context, id manifest.PackageID) (index.PackageHandle, bool, error) {
	var handle int64
	err := r.q.QueryRowContext(ctx, r.dialect.rebind(
		`SELECT id FROM packages WHERE normalized_id = ?`),
		id.Normalize(),
	).Scan(&handle)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to find package: %w", err)
	}
	return index.PackageHandle(handle), true, nil
}

func (r reader) ListVersions(ctx context.Context, pkg index.PackageHandle) ([]index.VersionAndChannel, error) {
	rows, err := r.manifestRows(ctx, pkg)
	if err != nil {
		return nil, err
	}

	out := make([]index.VersionAndChannel, 0, len(rows))
	for _, row := range rows {
		out = append(out, index.VersionAndChannel{Version: row.version, Channel: row.channel})
	}
	return out, nil
}

func (r reader) ResolveManifest(ctx context.Context, pkg index.PackageHandle, v version.Version, channel string) (index.ManifestHandle, bool, error) {
	rows, err := r.manifestRows(ctx, pkg)
	if err != nil {
		return 0, false, err
	}

	// Versions are matched by ordering, so "1.0" and "1.0.0" name the same manifest.
	for _, row := range rows {
		if row.version.Equal(v) && strings.EqualFold(row.channel, channel) {
			return row.handle, true, nil
		}
	}
	return 0, false, nil
}

func (r reader) GetDeclaredDependencies(ctx context.Context, m index.ManifestHandle) ([]index.StoredDependency, error) {
	rows, err := r.q.QueryContext(ctx, r.dialect.rebind(
		`SELECT target_id, min_version FROM dependencies WHERE manifest_rowid = ? ORDER BY id`),
		int64(m),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependencies: %w", err)
	}
	defer rows.Close()

	var out []index.StoredDependency
	for rows.Next() {
		var target, minVersion string
		if err := rows.Scan(&target, &minVersion); err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		v, err := version.ParseOptional(minVersion)
		if err != nil {
			return nil, fmt.Errorf("stored dependency %s of manifest %d: %w", target, m, err)
		}
		out = append(out, index.StoredDependency{Target: manifest.PackageID(target), MinVersion: v})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dependencies: %w", err)
	}
	return out, nil
}

func (r reader) GetDependents(ctx context.Context, id manifest.PackageID) ([]index.DependentEdge, error) {
	rows, err := r.q.QueryContext(ctx, r.dialect.rebind(
		`SELECT manifest_rowid, min_version FROM dependencies WHERE target_normalized = ? ORDER BY manifest_rowid, id`),
		id.Normalize(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependents: %w", err)
	}
	defer rows.Close()

	var out []index.DependentEdge
	for rows.Next() {
		var handle int64
		var minVersion string
		if err := rows.Scan(&handle, &minVersion); err != nil {
			return nil, fmt.Errorf("failed to scan dependent: %w", err)
		}
		v, err := version.ParseOptional(minVersion)
		if err != nil {
			return nil, fmt.Errorf("stored dependency on %s of manifest %d: %w", id, handle, err)
		}
		out = append(out, index.DependentEdge{Manifest: index.ManifestHandle(handle), MinVersion: v})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dependents: %w", err)
	}
	return out, nil
}

func (r reader) GetProperty(ctx context.Context, m index.ManifestHandle, p index.Property) (string, bool, error) {
	var id, ver, channel string
	err := r.q.QueryRowContext(ctx, r.dialect.rebind(`
		SELECT p.package_id, m.version, m.channel
		FROM manifests m
		JOIN packages p ON p.id = m.package_rowid
		WHERE m.id = ?`),
		int64(m),
	).Scan(&id, &ver, &channel)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read manifest %d: %w", m, err)
	}

	switch p {
	case index.PropertyID:
		return id, true, nil
	case index.PropertyVersion:
		return ver, true, nil
	case index.PropertyChannel:
		return channel, true, nil
	default:
		return "", false, fmt.Errorf("unsupported property: %s", p)
	}
}

type manifestRow struct {
	handle  index.ManifestHandle
	version version.Version
	channel string
}

func (r reader) manifestRows(ctx context.Context, pkg index.PackageHandle) ([]manifestRow, error) {
	rows, err := r.q.QueryContext(ctx, r.dialect.rebind(
		`SELECT id, version, channel FROM manifests WHERE package_rowid = ? ORDER BY id`),
		int64(pkg),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query manifests: %w", err)
	}
	defer rows.Close()

	var out []manifestRow
	for rows.Next() {
		var handle int64
		var raw, channel string
		if err := rows.Scan(&handle, &raw, &channel); err != nil {
			return nil, fmt.Errorf("failed to scan manifest: %w", err)
		}
		v, err := version.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("stored version of manifest %d: %w", handle, err)
		}
		out = append(out, manifestRow{handle: index.ManifestHandle(handle), version: v, channel: channel})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate manifests: %w", err)
	}
	return out, nil
}

// formatVersion is the stored form of v. Unknown is stored as the empty string.
func formatVersion(v version.Version) string {
	if v.IsUnknown() {
		return ""
	}
	return v.String()
}
