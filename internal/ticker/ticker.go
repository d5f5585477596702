// Package ticker drives running timers forward without a client watching.
package ticker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "focusjournal/backend/internal/errors"
	"focusjournal/backend/internal/service"
)

const DefaultInterval = time.Second

// Timers is the part of the timer service the ticker needs.
type Timers interface {
	ListRunningUsers(ctx context.Context) ([]string, error)
	Tick(ctx context.Context, userID string) (*service.StateView, *apperrors.APIError)
}

type Ticker struct {
	timers   Timers
	interval time.Duration
}

func New(timers Timers, interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Ticker{timers: timers, interval: interval}
}

// Run ticks every interval until ctx is done.
func (t *Ticker) Run(ctx context.Context) error {
	clock := time.NewTicker(t.interval)
	defer clock.Stop()

	log.Info().Dur("interval", t.interval).Msg("timer ticker started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("timer ticker stopped")
			return nil
		case <-clock.C:
			t.TickOnce(ctx)
		}
	}
}

// TickOnce settles every running timer once.
func (t *Ticker) TickOnce(ctx context.Context) {
	userIDs, err := t.timers.ListRunningUsers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list running timers")
		return
	}
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return
		}
		if _, apiErr := t.timers.Tick(ctx, userID); apiErr != nil {
			log.Warn().Str("userId", userID).Str("code", apiErr.Code).Msg("timer tick failed")
		}
	}
}
