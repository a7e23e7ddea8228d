// Package telemetry records fuzzy-match observations so the allowlist
// can learn real-world typos. The channel is deliberately anonymous:
// no authentication, no identifiers, nothing a downstream system could
// join back to a household. Delivery is strictly best-effort and never
// touches the decision hot path.
package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/havengate/havengate/internal/haven/common/clock"
	"github.com/havengate/havengate/internal/haven/common/log"
	"github.com/havengate/havengate/internal/haven/domain"
	"github.com/havengate/havengate/internal/haven/services/gate"
)

const (
	// defaultQueueSize bounds the in-flight queue; a full queue drops.
	defaultQueueSize = 64
	// defaultPerHour is the sustained record rate per process.
	defaultPerHour = 30
	// defaultBurst allows a short run of distinct typos before the
	// sustained rate applies.
	defaultBurst = 5
	// closeTimeout bounds how long Close waits for the drain worker.
	closeTimeout = 3 * time.Second
)

// Poster delivers one report to wherever telemetry lands.
type Poster interface {
	Post(ctx context.Context, rec domain.FuzzyMatchReport) error
}

// Sink is a rate-limited, bounded, fire-and-forget recorder. Record
// enqueues and returns immediately; a single worker goroutine drains the
// queue and posts. Every failure mode - rate limit, full queue, post
// error - drops the record and at most logs.
type Sink struct {
	queue   chan domain.FuzzyMatchReport
	limiter *rate.Limiter
	poster  Poster
	device  domain.DeviceType
	clk     clock.Clock
	logger  log.Logger

	done      chan struct{}
	drained   chan struct{}
	closeOnce sync.Once

	dropped uint64
}

// Options configures a Sink. Poster is required.
type Options struct {
	Poster     Poster
	DeviceType domain.DeviceType
	QueueSize  int
	PerHour    int
	Burst      int
	Clock      clock.Clock
	Logger     log.Logger
}

// New constructs a Sink and starts its drain worker.
func New(opts Options) *Sink {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.PerHour <= 0 {
		opts.PerHour = defaultPerHour
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}

	s := &Sink{
		queue:   make(chan domain.FuzzyMatchReport, opts.QueueSize),
		limiter: rate.NewLimiter(rate.Limit(float64(opts.PerHour)/3600.0), opts.Burst),
		poster:  opts.Poster,
		device:  opts.DeviceType,
		clk:     opts.Clock,
		logger:  opts.Logger,
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}
	go s.drain()
	return s
}

// Record enqueues one observation. Non-blocking under every condition:
// rate-limited, closed, and full-queue records are dropped and counted.
func (s *Sink) Record(inputDomain, matchedDomain string, distance uint8) {
	select {
	case <-s.done:
		return
	default:
	}
	if !s.limiter.Allow() {
		atomic.AddUint64(&s.dropped, 1)
		s.logger.Debug(nil, "telemetry record rate-limited")
		return
	}
	rec := domain.NewFuzzyMatchReport(inputDomain, matchedDomain, distance, s.device, s.clk.Now())
	select {
	case s.queue <- rec:
	default:
		atomic.AddUint64(&s.dropped, 1)
		s.logger.Debug(nil, "telemetry queue full, record dropped")
	}
}

// Dropped returns how many records were discarded before posting.
func (s *Sink) Dropped() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

// Close stops accepting records, lets the worker flush what is already
// queued, and returns once drained or after a bounded wait.
func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		select {
		case <-s.drained:
		case <-time.After(closeTimeout):
			s.logger.Warn(nil, "telemetry drain timed out")
		}
	})
}

// drain is the single worker: it posts queued records until closed, then
// flushes whatever remains without blocking on new arrivals.
func (s *Sink) drain() {
	defer close(s.drained)
	for {
		select {
		case rec := <-s.queue:
			s.post(rec)
		case <-s.done:
			for {
				select {
				case rec := <-s.queue:
					s.post(rec)
				default:
					return
				}
			}
		}
	}
}

// post delivers one record. Failures are logged at debug and dropped;
// there are no retries.
func (s *Sink) post(rec domain.FuzzyMatchReport) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.poster.Post(ctx, rec); err != nil {
		atomic.AddUint64(&s.dropped, 1)
		s.logger.Debug(map[string]any{"error": err.Error()}, "telemetry post failed, record dropped")
	}
}

var _ gate.TelemetrySink = (*Sink)(nil)
