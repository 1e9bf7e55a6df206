// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - SnapshotStore: Latest-state persistence per entity key
//   - ChangeStore: Change record persistence and window queries
//   - AlertStore: Alert record persistence with atomic dedup reservation
//   - DigestStore: Digest audit-trail persistence
//   - RunStore: Ingestion cycle audit-trail persistence
//   - SettingsStore: Typed application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Notifier: Outbound message delivery. Without it, alerts and digests
//     are computed and persisted but nothing is sent.
//   - ObservationProducer: Supplies observation batches. The core never
//     fetches data itself; any extraction technique (scrapers, AI, manual
//     export) hides behind this interface.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
