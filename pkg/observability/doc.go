// Package observability provides structured logging, Prometheus metrics, and backend health checks.
//
// # Structured Logging
//
// Create logger:
//
//	log := observability.NewLogger(observability.InfoLevel, "json", os.Stderr)
//	log.WithField("package", id).Info("manifest validated")
//
// Check-scoped logging:
//
//	ctx = observability.WithCheckID(ctx, uuid.NewString())
//	observability.FromContext(ctx, log).Warn("dependency missing")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.ChecksTotal.WithLabelValues("validate", "ok").Inc()
//
// The CLI is short-lived, so metrics are written once at exit for the node
// exporter textfile collector:
//
//	observability.WriteTextfile(registry, "/var/lib/node_exporter/pkgindex.prom")
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	status := checker.Check(ctx)
//
// A failed database makes the index unhealthy. A failed Redis only degrades it,
// since Redis backs the shared cache and not the index itself.
package observability
