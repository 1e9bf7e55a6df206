// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO dependencies; the diff engine, scorer
// and digest renderer are deterministic for identical inputs.
package services
