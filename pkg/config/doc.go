// Package config loads pkgindex configuration from environment variables.
//
// Every setting has a default, so an empty environment yields a working
// SQLite-backed index with caching disabled.
//
// Index settings:
//
//	PKGINDEX_INDEX_DRIVER="sqlite3"            # sqlite3 or postgres
//	PKGINDEX_INDEX_DSN="file:pkgindex.db?_busy_timeout=5000"
//	PKGINDEX_INDEX_MAX_OPEN_CONNS="10"
//	PKGINDEX_INDEX_MAX_IDLE_CONNS="2"
//	PKGINDEX_INDEX_CONN_MAX_LIFETIME="1h"
//	PKGINDEX_INDEX_TIMEOUT="10s"
//
// Cache settings:
//
//	PKGINDEX_CACHE_ENABLED="true"
//	PKGINDEX_CACHE_MAX_ENTRIES="10000"
//	PKGINDEX_CACHE_TTL="5m"
//	PKGINDEX_CACHE_KEY_PREFIX="pkgindex:"
//	PKGINDEX_REDIS_URL="redis://localhost:6379/0"
//	PKGINDEX_REDIS_PASSWORD=""
//	PKGINDEX_REDIS_DB="0"
//	PKGINDEX_REDIS_MAX_RETRIES="3"
//	PKGINDEX_REDIS_POOL_SIZE="10"
//
// Observability settings:
//
//	PKGINDEX_LOG_LEVEL="info"                  # debug, info, warn, error
//	PKGINDEX_LOG_FORMAT="json"                 # json or text
//	PKGINDEX_METRICS_ENABLED="true"
//	PKGINDEX_METRICS_FILE="/var/lib/node_exporter/pkgindex.prom"
//
// Validation settings:
//
//	PKGINDEX_VALIDATE_CONCURRENCY="4"
//
// Usage:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	sqlCfg, err := cfg.Index.SQLConfig()
package config
