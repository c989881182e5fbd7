package livesync

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"klinik/antrian/internal/announce"
	"klinik/antrian/internal/logging"
	"klinik/antrian/internal/models"
)

var ErrNetwork = errors.New("display source unreachable")

type Source interface {
	Fetch(ctx context.Context) (models.QueueDisplaySnapshot, error)
}

type Enqueuer interface {
	Enqueue(job announce.Job) bool
}

type Options struct {
	Interval    time.Duration
	RepeatCount int
}

// Loop polls the display snapshot and hands each new call to the
// announcement pipeline exactly once.
type Loop struct {
	source      Source
	pipeline    Enqueuer
	interval    time.Duration
	repeatCount int

	running int32
	cursor  Cursor
}

func NewLoop(source Source, pipeline Enqueuer, options Options) *Loop {
	interval := options.Interval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	repeat := options.RepeatCount
	if repeat <= 0 {
		repeat = 2
	}
	return &Loop{
		source:      source,
		pipeline:    pipeline,
		interval:    interval,
		repeatCount: repeat,
	}
}

// Tick performs one poll and returns how many jobs were enqueued. A tick that
// starts while another is still running is skipped.
func (l *Loop) Tick(ctx context.Context) (int, error) {
	if !atomic.CompareAndSwapInt32(&l.running, 0, 1) {
		return 0, nil
	}
	defer atomic.StoreInt32(&l.running, 0)

	snapshot, err := l.source.Fetch(ctx)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, entry := range l.cursor.Observe(snapshot) {
		if l.pipeline.Enqueue(announce.Job{
			QueueCode:      entry.QueueCode,
			CounterNumber:  entry.CounterNumber,
			DepartmentName: entry.DepartmentName,
			RepeatCount:    l.repeatCount,
		}) {
			enqueued++
		}
	}
	return enqueued, nil
}

// Run ticks immediately and then every interval until ctx ends. Fetch errors
// are logged and the tick is skipped; the next one recovers.
func (l *Loop) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	tick := func() {
		count, err := l.Tick(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn().Err(err).Msg("display poll failed")
			}
			return
		}
		if count > 0 {
			logger.Info().Int("jobs", count).Msg("announcements queued")
		}
	}

	tick()
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			tick()
		}
	}
}
