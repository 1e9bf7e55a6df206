// Package driving defines the interfaces adapters call IN through.
//
// These are the "driving" or "primary" ports in hexagonal architecture.
// The CLI and watcher adapters depend on these interfaces; core services
// implement them.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or service package
package driving
