// Package version provides the total order over package versions used by the
// dependency checks.
//
// Versions are parsed leniently ("1", "1.2", "v1.2.3", "2.0.0-beta.1") and
// compared by semantic version precedence. The zero Version is the Unknown
// sentinel: it sorts below every parsed version, which makes it a safe
// starting accumulator when searching for the latest version of a package.
//
//	latest := version.Unknown
//	for _, v := range candidates {
//		if v.Greater(latest) {
//			latest = v
//		}
//	}
//	if latest.IsUnknown() {
//		// nothing indexed
//	}
package version
