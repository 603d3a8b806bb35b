// Package cli implements the pkgindex command-line interface.
//
// Every command opens the index described by the PKGINDEX_* environment (see
// package config), runs, and closes it again. The persistent flags --driver,
// --dsn, --log-level, --log-format, --metrics-file and --cache override the
// environment for one invocation.
//
// # Commands
//
// init: create the index schema
//
//	pkgindex init --driver postgres --dsn postgres://localhost/pkgindex
//
// validate: check manifests against the index without changing it
//
//	pkgindex validate --concurrency 8 manifests/*.yaml
//
// add: validate manifests and add them in order
//
//	pkgindex add contoso.lib.yaml contoso.app.yaml
//
// check-delete: report what removing a manifest would do to its dependents
//
//	pkgindex check-delete Contoso.Lib 2.0
//
// remove: check-delete, then remove when safe (--force skips the check)
//
//	pkgindex remove Contoso.Lib 1.0
//
// graph: print the dependency graph of a manifest as DOT or Cytoscape.js JSON
//
//	pkgindex graph --format dot contoso.app.yaml | dot -Tsvg > app.svg
//
// health: report database and Redis health as JSON
//
//	pkgindex health
//
// watch: validate the manifests under a directory and again on every change
//
//	pkgindex watch --delay 1s manifests/
//
// Failed checks exit non-zero with the validation errors on stdout.
package cli
