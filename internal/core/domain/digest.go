package domain

import "time"

// AccountStatus is the overall account health classification for a digest
// window.
type AccountStatus string

// Account status values.
const (
	StatusGreen  AccountStatus = "Green"
	StatusYellow AccountStatus = "Yellow"
	StatusRed    AccountStatus = "Red"
)

// Momentum classifies the direction the account is trending over a window.
type Momentum string

// Momentum values.
const (
	MomentumImproving     Momentum = "Improving"
	MomentumFlat          Momentum = "Flat"
	MomentumDeteriorating Momentum = "Deteriorating"
)

// Digest is a periodic rollup of recent changes. Digests are created per
// invocation, never mutated, and persisted as an audit trail.
type Digest struct {
	// ID is the unique identifier for the digest.
	ID string

	// WindowStart is the inclusive start of the aggregation window.
	WindowStart time.Time

	// WindowEnd is the exclusive end of the aggregation window.
	WindowEnd time.Time

	// Status is the overall account classification for the window.
	Status AccountStatus

	// Momentum is the trend classification for the window.
	Momentum Momentum

	// Body is the rendered digest text.
	Body string

	// WordCount is the actual word count of Body. It is reported for
	// monitoring and is always accurate, including after degradation.
	WordCount int

	// GeneratedAt is when the digest was built.
	GeneratedAt time.Time
}
