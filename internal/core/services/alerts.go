package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/sitrep/internal/core/domain"
	"github.com/custodia-labs/sitrep/internal/core/ports/driven"
	"github.com/custodia-labs/sitrep/internal/logger"
)

// AlertService decides, per change, whether to alert and delivers the
// message. The decision order is threshold, dedup reservation, daily
// budget, delivery; a reservation is released whenever the alert does not
// go out, so the fingerprint stays free for retries.
type AlertService struct {
	changeStore driven.ChangeStore
	alertStore  driven.AlertStore
	notifier    driven.Notifier
	settings    domain.Settings

	// limiter enforces the daily alert budget in-process. The dedup window
	// in the store is the cross-process guard; the limiter only smooths
	// bursts within one process lifetime.
	limiter *rate.Limiter

	now func() time.Time
}

// NewAlertService creates an alert service.
func NewAlertService(
	changeStore driven.ChangeStore,
	alertStore driven.AlertStore,
	notifier driven.Notifier,
	settings domain.Settings,
) *AlertService {
	perDay := settings.MaxAlertsPerDay
	if perDay < 1 {
		// Settings.Validate rejects this; the limiter interval must still
		// be well defined for callers that skipped validation.
		perDay = 1
	}
	return &AlertService{
		changeStore: changeStore,
		alertStore:  alertStore,
		notifier:    notifier,
		settings:    settings,
		limiter:     rate.NewLimiter(rate.Every(24*time.Hour/time.Duration(perDay)), perDay),
		now:         time.Now,
	}
}

// Consider evaluates one change against the alert policy and delivers an
// alert if it qualifies. The returned outcome is always meaningful; the
// error is non-nil only for store or delivery failures.
func (s *AlertService) Consider(ctx context.Context, change domain.Change) (domain.AlertOutcome, error) {
	// 1. Threshold gate. Changes below the configured score never alert.
	if change.Score < s.settings.SignificanceThreshold {
		return domain.AlertSkippedLowSignificance, nil
	}

	// 2. Reserve the fingerprint. The reservation is the atomic dedup
	// arbiter: if it fails, another alert for the same kind of change to
	// the same entity already went out within the window.
	record := domain.AlertRecord{
		ID:          uuid.New().String(),
		Fingerprint: domain.Fingerprint(change.EntityType, change.EntityID, change.ChangeType),
		ChangeID:    change.ID,
		Channel:     s.settings.Channel,
		SentAt:      s.now(),
	}
	reserved, err := s.alertStore.Reserve(ctx, record, s.settings.DedupWindow)
	if err != nil {
		return domain.AlertDeliveryFailed, fmt.Errorf("reserve alert: %w", err)
	}
	if !reserved {
		logger.Debug("Alert suppressed as duplicate: %s %s %s",
			change.EntityType, change.EntityID, change.ChangeType)
		return domain.AlertSkippedDuplicate, nil
	}

	// 3. Daily budget. Checked after the reservation so duplicates never
	// consume budget; the reservation is released so a later cycle can
	// still alert on this change.
	if !s.limiter.Allow() {
		if relErr := s.alertStore.Release(ctx, record.ID); relErr != nil {
			logger.Warn("Failed to release rate-limited reservation: %v", relErr)
		}
		logger.Warn("Daily alert budget exhausted, suppressing %s %s", change.EntityType, change.EntityID)
		return domain.AlertSkippedRateLimited, nil
	}

	// 4. Deliver. On failure the reservation is released so the retry on
	// the next cycle is not treated as a duplicate.
	if err := s.notifier.Send(ctx, s.settings.Channel, FormatAlert(change)); err != nil {
		if relErr := s.alertStore.Release(ctx, record.ID); relErr != nil {
			logger.Warn("Failed to release reservation after delivery failure: %v", relErr)
		}
		return domain.AlertDeliveryFailed, fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}

	// 5. Flag the change. Best-effort: the alert went out either way.
	if err := s.changeStore.MarkAlertSent(ctx, change.ID); err != nil {
		logger.Warn("Failed to mark change %s as alerted: %v", change.ID, err)
	}

	logger.Info("Alert sent for %s %s (score %d)", change.EntityType, change.EntityID, change.Score)
	return domain.AlertSent, nil
}
