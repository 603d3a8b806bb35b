// Package sqlindex stores a package index in PostgreSQL or SQLite.
//
// The schema has three tables: packages, manifests and dependencies. Package
// identifiers are stored twice, as written and case-folded, and every lookup
// goes through the folded form. Versions are stored as their original text and
// compared in Go, so "1.0" and "1.0.0" are the same manifest.
//
// Open a store:
//
//	store, err := sqlindex.Open(ctx, sqlindex.Config{
//		Dialect: sqlindex.SQLite,
//		DSN:     "file:index.db?_busy_timeout=5000",
//	}, log)
//	err = store.EnsureSchema(ctx)
//
// Run a dependency check against one consistent snapshot:
//
//	err = store.View(ctx, func(idx index.Index) error {
//		return dependencies.CanDeleteManifest(ctx, idx, m)
//	})
package sqlindex
