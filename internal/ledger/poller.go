package ledger

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartPolling begins the fixed-interval guest fetch used while an
// order-status screen is mounted. Starting twice is a no-op; a manual
// FetchForGuest may freely race a poll tick, the later-completing
// response wins under the merge rules.
func (l *Ledger) StartPolling(interval time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.scheduler != nil {
		return nil
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if _, err := l.FetchForGuest(ctx); err != nil {
				l.log.Warn().Err(err).Msg("poll tick failed")
			}
		}),
	)
	if err != nil {
		_ = s.Shutdown()
		return err
	}
	s.Start()
	l.scheduler = s
	l.log.Debug().Dur("interval", interval).Msg("polling started")
	return nil
}

// StopPolling shuts the scheduler down. Called on screen unmount so no
// orphaned timers survive.
func (l *Ledger) StopPolling() {
	l.mu.Lock()
	s := l.scheduler
	l.scheduler = nil
	l.mu.Unlock()
	if s != nil {
		if err := s.Shutdown(); err != nil {
			l.log.Warn().Err(err).Msg("scheduler shutdown")
		}
	}
}
