// Package quota enforces the per-admin monthly publish limit. The limit
// is a soft, cost-protection measure: the check and the increment are
// separate store round-trips with no compare-and-swap, so two publishes
// racing in different tabs can both pass. That is accepted; the actors
// are trusted admins and the limiter guards spend, not data integrity.
package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ornata/vitrine/docstore"
)

// DefaultMonthlyLimit is the number of publishes allowed per admin per
// calendar month.
const DefaultMonthlyLimit = 10

// quotaPathPrefix is the document store namespace for quota records.
const quotaPathPrefix = "publish_limits/"

// Record is the persisted per-user quota state. Count is only
// meaningful for the stored month; a stale month reads as count zero.
type Record struct {
	Count         int    `json:"count"`
	Month         string `json:"month"` // "YYYY-MM"
	LastPublished string `json:"last_published,omitempty"`
}

// Decision is the outcome of a limit check.
type Decision struct {
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining"`
	Message   string `json:"message,omitempty"`
}

// Limiter tracks monthly publish counts in the document store.
type Limiter struct {
	store docstore.Store
	limit int
	now   func() time.Time
}

// NewLimiter creates a Limiter with the given monthly limit.
func NewLimiter(store docstore.Store, limit int) *Limiter {
	if limit <= 0 {
		limit = DefaultMonthlyLimit
	}
	return &Limiter{
		store: store,
		limit: limit,
		now:   time.Now,
	}
}

// Limit returns the configured monthly publish limit.
func (l *Limiter) Limit() int {
	return l.limit
}

func quotaPath(userID string) string {
	return quotaPathPrefix + userID
}

func monthOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// nextReset returns the first day of the month after t.
func nextReset(t time.Time) string {
	u := t.UTC()
	first := time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, 0).Format("2006-01-02")
}

// CheckLimit reads the user's quota and decides whether another publish
// is allowed. Read-only: no quota state is written here. A record whose
// month differs from the current calendar month counts as zero (lazy
// rollover). Store failures fail open with a logged warning.
func (l *Limiter) CheckLimit(ctx context.Context, userID string) Decision {
	current := monthOf(l.now())

	raw, err := l.store.Get(ctx, quotaPath(userID))
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			log.Warn().Err(err).Str("user", userID).Msg("Quota read failed, allowing publish unchecked")
		}
		return Decision{Allowed: true, Remaining: l.limit - 1}
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("Corrupt quota record, allowing publish unchecked")
		return Decision{Allowed: true, Remaining: l.limit - 1}
	}

	if rec.Month != current {
		return Decision{Allowed: true, Remaining: l.limit - 1}
	}

	if rec.Count >= l.limit {
		return Decision{
			Allowed:   false,
			Remaining: 0,
			Message: fmt.Sprintf("Monthly publish limit reached (%d/%d). Limit resets on %s.",
				rec.Count, l.limit, nextReset(l.now())),
		}
	}

	return Decision{Allowed: true, Remaining: l.limit - rec.Count - 1}
}

// IncrementCount records one publish against the current month. Called
// only after a successful publish. A stale-month record restarts at 1.
// Failures are logged and swallowed: the publish already happened, and
// the limiter never blocks a completed publish retroactively.
func (l *Limiter) IncrementCount(ctx context.Context, userID string) {
	now := l.now()
	current := monthOf(now)

	rec := Record{Count: 0, Month: current}
	if raw, err := l.store.Get(ctx, quotaPath(userID)); err == nil {
		var stored Record
		if err := json.Unmarshal(raw, &stored); err == nil && stored.Month == current {
			rec.Count = stored.Count
		}
	}

	rec.Count++
	rec.Month = current
	rec.LastPublished = now.UTC().Format(time.RFC3339)

	data, err := json.Marshal(rec)
	if err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("Failed to encode quota record")
		return
	}

	if err := l.store.Put(ctx, quotaPath(userID), data); err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("Quota increment failed")
	}
}
