// Package domain defines the core business entities for sitrep.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Observation: A structured fact about an account entity at a point in time
//   - Snapshot: The most recently accepted Observation per entity key
//   - Change: A detected difference between successive Snapshots
//   - AlertRecord: A delivered alert, keyed by fingerprint for deduplication
//   - Digest: A periodic, word-budgeted rollup of recent Changes
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
