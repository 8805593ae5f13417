package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"ratewatcher/internal/alerting"
	"ratewatcher/internal/fetcher"
	"ratewatcher/internal/offers"
	"ratewatcher/internal/rates"
	"ratewatcher/internal/storage"
)

// ErrNoRate is returned by per-user operations when the subscriber has not
// stored a rate yet.
var ErrNoRate = errors.New("no stored rate")

// Options tune the evaluation engine.
type Options struct {
	// MonthlyUsageKWh is the assumed consumption for savings estimates.
	MonthlyUsageKWh int64
	// MaxCheaperOffers caps how many cheaper offers a daily notification
	// lists, best first.
	MaxCheaperOffers int
}

// Engine ties rate parsing, offer ranking and the notification
// de-duplication state machine into the daily evaluation pass. A single
// mutex serializes every pass and on-demand check; no two evaluations
// overlap.
type Engine struct {
	source   fetcher.Source
	store    storage.Store
	notifier alerting.Notifier
	logger   zerolog.Logger
	opts     Options
	now      func() time.Time

	mu sync.Mutex
}

// New constructs the engine.
func New(source fetcher.Source, store storage.Store, notifier alerting.Notifier, opts Options, logger zerolog.Logger) *Engine {
	if opts.MonthlyUsageKWh <= 0 {
		opts.MonthlyUsageKWh = rates.DefaultMonthlyUsageKWh
	}
	if opts.MaxCheaperOffers <= 0 {
		opts.MaxCheaperOffers = 3
	}

	return &Engine{
		source:   source,
		store:    store,
		notifier: notifier,
		logger:   logger.With().Str("component", "engine").Logger(),
		opts:     opts,
		now:      time.Now,
	}
}

// SetRate validates a user-entered rate, stores it along with the chat
// context the command came from, and unconditionally resets the
// de-duplication state — even when the new rate equals the old one, so the
// subscriber can re-arm notifications on demand.
func (e *Engine) SetRate(userID string, channelID, guildID int64, raw string) (decimal.Decimal, error) {
	d, err := rates.ParseUserRate(raw)
	if err != nil {
		return decimal.Decimal{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot, err := e.store.Load()
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("load subscriptions: %w", err)
	}

	sub := snapshot[userID]
	sub.Rate = rates.Display(d)
	sub.NotifyChannelID = channelID
	sub.NotifyGuildID = guildID
	sub.ResetNotified()
	snapshot[userID] = sub

	if err := e.store.Save(snapshot); err != nil {
		return decimal.Decimal{}, fmt.Errorf("save subscriptions: %w", err)
	}
	return d, nil
}

// StoredRate returns the subscriber's canonical rate string, if one is set.
func (e *Engine) StoredRate(userID string) (string, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot, err := e.store.Load()
	if err != nil {
		return "", false, fmt.Errorf("load subscriptions: %w", err)
	}
	sub, ok := snapshot[userID]
	if !ok || !sub.HasRate() {
		return "", false, nil
	}
	return sub.Rate, true, nil
}

// RunDailyPass executes one fetch → rank → per-user evaluate → persist
// cycle. A fetch failure or an empty offer set aborts the whole pass before
// any state changes. A delivery failure for one user is logged and swallowed;
// that user's de-duplication state still advances, and remaining users are
// still processed. The updated snapshot is saved once, after all users.
func (e *Engine) RunDailyPass(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.now()

	snapshot, err := e.store.Load()
	if err != nil {
		return fmt.Errorf("load subscriptions: %w", err)
	}
	if len(snapshot) == 0 {
		e.logger.Debug().Msg("no subscribers; skipping pass")
		return nil
	}

	ranked, err := e.source.FetchOffers(ctx)
	if err != nil {
		return fmt.Errorf("fetch offers: %w", err)
	}
	if len(ranked) == 0 {
		return errors.New("feed returned no usable offers")
	}

	notified := 0
	for userID, sub := range snapshot {
		if !sub.HasRate() {
			continue
		}
		userRate, err := decimal.NewFromString(sub.Rate)
		if err != nil {
			e.logger.Warn().Str("user_id", userID).Str("rate", sub.Rate).Msg("stored rate unparseable; skipping user")
			continue
		}

		cheaper := offers.CheaperThan(ranked, userRate)
		if len(cheaper) == 0 {
			continue
		}
		best := cheaper[0]
		if sub.AlreadyNotified(best.ID, best.RateDisplay) {
			continue
		}

		text := e.renderAlert(userRate, cheaper)
		if err := e.notifier.Notify(ctx, userID, sub.NotifyChannelID, text); err != nil {
			e.logger.Warn().Err(err).Str("user_id", userID).Msg("notification dropped")
		}

		sub.MarkNotified(best.ID, best.RateDisplay)
		snapshot[userID] = sub
		notified++
	}

	if err := e.store.Save(snapshot); err != nil {
		return fmt.Errorf("save subscriptions: %w", err)
	}

	e.logger.Info().
		Int("subscribers", len(snapshot)).
		Int("offers", len(ranked)).
		Int("notified", notified).
		Dur("elapsed", time.Since(start)).
		Msg("evaluation pass complete")
	return nil
}

// Report summarises an on-demand check for one subscriber.
type Report struct {
	// Best is the globally cheapest offer in the current feed.
	Best offers.Offer
	// UserRate is the subscriber's stored canonical rate.
	UserRate decimal.Decimal
	// CheaperRate is the display rate of the best offer strictly below the
	// user's rate, or empty when no offer beats it.
	CheaperRate string
}

// CheckNow runs the on-demand variant of the evaluation: same fetch and
// ranking, but it reports the single best offer plus whether the user's rate
// is beaten, and never touches persisted de-duplication state.
func (e *Engine) CheckNow(ctx context.Context, userID string) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot, err := e.store.Load()
	if err != nil {
		return Report{}, fmt.Errorf("load subscriptions: %w", err)
	}
	sub, ok := snapshot[userID]
	if !ok || !sub.HasRate() {
		return Report{}, ErrNoRate
	}
	userRate, err := decimal.NewFromString(sub.Rate)
	if err != nil {
		return Report{}, fmt.Errorf("stored rate %q unparseable: %w", sub.Rate, err)
	}

	ranked, err := e.source.FetchOffers(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("fetch offers: %w", err)
	}
	best, ok := offers.Best(ranked)
	if !ok {
		return Report{}, errors.New("no offers returned from the feed")
	}

	report := Report{Best: best, UserRate: userRate}
	if cheaper := offers.CheaperThan(ranked, userRate); len(cheaper) > 0 {
		report.CheaperRate = cheaper[0].RateDisplay
	}
	return report, nil
}
