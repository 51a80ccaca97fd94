// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"play-llm-server/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// SessionSweeper periodically flags sessions older than the TTL as expired.
type SessionSweeper struct {
	DB       *gorm.DB
	TTL      time.Duration
	Interval time.Duration

	sched gocron.Scheduler
}

func NewSessionSweeper(db *gorm.DB, ttl, interval time.Duration) *SessionSweeper {
	return &SessionSweeper{DB: db, TTL: ttl, Interval: interval}
}

func (s *SessionSweeper) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(s.Interval),
		gocron.NewTask(func() {
			n, err := s.Sweep(context.Background(), time.Now().UTC())
			if err != nil {
				log.Printf("[Scheduler] session sweep failed: %v", err)
				return
			}
			if n > 0 {
				log.Printf("[Scheduler] expired %d sessions", n)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule session sweep: %w", err)
	}

	sched.Start()
	s.sched = sched
	return nil
}

// Sweep expires every live session created before now-TTL and returns how
// many rows changed.
func (s *SessionSweeper) Sweep(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-s.TTL)
	res := s.DB.WithContext(ctx).Model(&models.Session{}).
		Where("is_expired = ? AND created_at < ?", false, cutoff).
		Update("is_expired", true)
	return res.RowsAffected, res.Error
}

func (s *SessionSweeper) Stop() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}
