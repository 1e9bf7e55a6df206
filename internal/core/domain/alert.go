package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// AlertOutcome describes what happened when a change was considered for
// alerting. Only Sent has a user-visible side effect.
type AlertOutcome string

// Possible alert outcomes.
const (
	// AlertSent means a message was delivered and recorded.
	AlertSent AlertOutcome = "sent"

	// AlertSkippedLowSignificance means the change scored below threshold.
	AlertSkippedLowSignificance AlertOutcome = "skipped_low_significance"

	// AlertSkippedDuplicate means an alert with the same fingerprint was
	// already sent within the dedup window.
	AlertSkippedDuplicate AlertOutcome = "skipped_duplicate"

	// AlertSkippedRateLimited means the daily alert budget was exhausted.
	AlertSkippedRateLimited AlertOutcome = "skipped_rate_limited"

	// AlertDeliveryFailed means the messaging collaborator rejected the send.
	// No alert record is kept, so a retry is not treated as a duplicate.
	AlertDeliveryFailed AlertOutcome = "delivery_failed"
)

// AlertRecord is the audit record of a delivered alert. Records are also the
// dedup source of truth: a record with a matching fingerprint inside the
// dedup window suppresses re-alerting.
type AlertRecord struct {
	// ID is the unique identifier for the record.
	ID string

	// Fingerprint is the coarse change identity used for deduplication.
	Fingerprint string

	// ChangeID links to the Change that triggered the alert.
	ChangeID string

	// Channel is the messaging channel the alert was sent to.
	Channel string

	// SentAt is when the alert was delivered.
	SentAt time.Time
}

// Fingerprint derives the dedup identity for a change. It is deliberately
// coarser than the full change content: re-detection of the same kind of
// change to the same entity within the window is suppressed even if the
// wording or attribute payload differs.
func Fingerprint(entityType EntityType, entityID string, changeType ChangeType) string {
	h := sha256.New()
	h.Write([]byte(string(entityType)))
	h.Write([]byte{0})
	h.Write([]byte(entityID))
	h.Write([]byte{0})
	h.Write([]byte(string(changeType)))
	return hex.EncodeToString(h.Sum(nil))
}
