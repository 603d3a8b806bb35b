// Package manifest models package manifests and their declared dependencies.
//
// # Overview
//
// A manifest describes one version of a package. Dependencies may be declared
// at the manifest level (applying to every installer) or per installer; the
// dependency checks treat all installer variants as agreeing and collapse them
// into a single DependencyList with one entry per (kind, identifier).
//
// # Manifest format
//
//	PackageIdentifier: Contoso.App
//	PackageVersion: 2.1.0
//	Dependencies:
//	  PackageDependencies:
//	    - PackageIdentifier: Contoso.Runtime
//	      MinimumVersion: 1.4.0
//	Installers:
//	  - Architecture: x64
//	    Dependencies:
//	      WindowsFeatures:
//	        - NetFx3
//
// # Usage Example
//
//	m, err := manifest.Load("contoso.app.yaml")
//	if err != nil {
//		return err
//	}
//	if errs := manifest.Validate(m); len(errs) > 0 {
//		// report schema problems
//	}
//	deps, err := m.PackageDependencies()
//
// Package identifiers compare case-insensitively through PackageID.Normalize.
package manifest
