// Package index defines the package index contract consumed by the dependency checks.
//
// # Overview
//
// The checks in pkg/dependencies only read from an index: they look packages up
// by identifier, list their stored versions, map a version back to a manifest,
// and read the dependency edges recorded for manifests in both directions.
// The Index interface captures exactly those reads. Writes go through Writer.
//
// # Implementations
//
//   - pkg/index/memory: in-memory index for tests and dry runs
//   - pkg/index/sqlindex: SQLite or PostgreSQL backed index
//   - pkg/index/cache: read-through LRU + Redis decorator around any Index
//
// # Consistency
//
// A check issues several reads and assumes they observe one snapshot. The
// SQL index provides that through Store.View, which runs every read of a
// check inside a single transaction.
package index
