// Package memory provides an in-memory implementation of index.Index and index.Writer.
//
// It is used by tests and by the CLI's dry-run mode, where manifests are loaded
// from files instead of a database.
package memory
