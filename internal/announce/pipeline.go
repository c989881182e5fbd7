package announce

import (
	"context"
	"sync"
	"time"

	"klinik/antrian/internal/logging"

	"github.com/rs/zerolog"
)

// Job is one announcement: a chime followed by the phrase RepeatCount times.
type Job struct {
	QueueCode      string
	CounterNumber  *int
	DepartmentName string
	RepeatCount    int
}

type Options struct {
	Locale      Locale
	RepeatPause time.Duration
	Volume      float64
	Muted       bool
}

// Pipeline plays announcements strictly one at a time in enqueue order.
// Enqueue never blocks; a single drain goroutine runs while the FIFO is
// non-empty.
type Pipeline struct {
	speaker Speaker
	locale  Locale
	pause   time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	queue      []Job
	processing bool
	muted      bool
	closed     bool
	volume     float64
	idle       chan struct{}
}

func NewPipeline(speaker Speaker, options Options) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)
	locale := options.Locale
	if locale == "" {
		locale = LocaleID
	}
	return &Pipeline{
		speaker: speaker,
		locale:  locale,
		pause:   options.RepeatPause,
		ctx:     ctx,
		cancel:  cancel,
		muted:   options.Muted,
		volume:  clampVolume(options.Volume),
		idle:    idle,
	}
}

// Enqueue appends a job. It reports false when the job was dropped because
// the pipeline is muted or closed.
func (p *Pipeline) Enqueue(job Job) bool {
	if job.RepeatCount < 1 {
		job.RepeatCount = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.muted || p.closed {
		return false
	}
	p.queue = append(p.queue, job)
	if !p.processing {
		p.processing = true
		p.idle = make(chan struct{})
		go p.drain(p.idle)
	}
	return true
}

// SetMuted stops future playback. Muting flushes pending jobs; enqueues are
// dropped until unmuted.
func (p *Pipeline) SetMuted(muted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = muted
	if muted {
		p.queue = nil
	}
}

// ToggleMuted flips the mute state and returns the new one.
func (p *Pipeline) ToggleMuted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = !p.muted
	if p.muted {
		p.queue = nil
	}
	return p.muted
}

func (p *Pipeline) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

func (p *Pipeline) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *Pipeline) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = clampVolume(volume)
}

// Pending is the number of jobs waiting behind the one being played.
func (p *Pipeline) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// WaitIdle blocks until the FIFO is drained or ctx ends.
func (p *Pipeline) WaitIdle(ctx context.Context) error {
	p.mu.Lock()
	idle := p.idle
	p.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drops pending jobs and waits for the current one to finish. If ctx
// ends first the audio layer is interrupted.
func (p *Pipeline) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.queue = nil
	p.mu.Unlock()

	err := p.WaitIdle(ctx)
	p.cancel()
	return err
}

func (p *Pipeline) drain(idle chan struct{}) {
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.processing = false
			close(idle)
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.play(job)
	}
}

func (p *Pipeline) play(job Job) {
	ctx := p.ctx
	logger := logging.FromContext(ctx).With().Str("queue_code", job.QueueCode).Logger()
	text := Phrase(job, p.locale)

	if volume, ok := p.audible(); ok {
		outcome, err := p.speaker.Chime(ctx, volume)
		report(logger, "chime", outcome, err)
	}

	for i := 0; i < job.RepeatCount; i++ {
		if i > 0 && !p.sleep(ctx) {
			return
		}
		volume, ok := p.audible()
		if !ok {
			return
		}
		outcome, err := p.speaker.Speak(ctx, Utterance{Text: text, Locale: p.locale, Volume: volume})
		report(logger, "speak", outcome, err)
	}
}

func report(logger zerolog.Logger, step string, outcome Outcome, err error) {
	switch outcome {
	case Interrupted:
		logger.Debug().Err(err).Str("step", step).Msg("announcement interrupted")
	case Failed:
		logger.Error().Err(err).Str("step", step).Msg("announcement failed")
	}
}

func (p *Pipeline) audible() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume, !p.muted
}

func (p *Pipeline) sleep(ctx context.Context) bool {
	if p.pause <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(p.pause)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func clampVolume(volume float64) float64 {
	switch {
	case volume < 0:
		return 0
	case volume > 1:
		return 1
	}
	return volume
}
