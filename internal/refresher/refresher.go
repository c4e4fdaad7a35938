// Package refresher runs the periodic interest sweep: it marks
// instruments past maturity as MATURED and refreshes the persisted
// accrued-interest snapshot in bounded chunks. The snapshot is a cache
// for reporting; request-time reads always recompute interest live.
package refresher

import (
	"sync"
	"time"

	"captable/internal/logger"
	"captable/internal/services"
)

// Refresher periodically sweeps convertible instruments.
type Refresher struct {
	service   services.ConvertibleServicer
	interval  time.Duration
	chunkSize int

	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates a Refresher. interval must be positive; chunkSize bounds
// how many instruments one update batch touches.
func New(service services.ConvertibleServicer, interval time.Duration, chunkSize int) *Refresher {
	return &Refresher{
		service:   service,
		interval:  interval,
		chunkSize: chunkSize,
		stop:      make(chan struct{}),
	}
}

// Start launches the background sweep goroutine. Calling Start twice is
// a no-op.
func (r *Refresher) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return
	}
	r.started = true

	r.ticker = time.NewTicker(r.interval)
	r.wg.Add(1)
	go r.run()

	logger.Get().Infow("interest refresher started", "interval", r.interval, "chunk_size", r.chunkSize)
}

// Stop halts the sweep and waits for an in-flight run to finish. The
// ticker stays non-nil so the run goroutine can drain its final select.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.started || r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.ticker.Stop()
	r.mu.Unlock()

	close(r.stop)
	r.wg.Wait()

	logger.Get().Infow("interest refresher stopped")
}

func (r *Refresher) run() {
	defer r.wg.Done()

	// Sweep once at startup so a long interval does not delay the first
	// refresh after a deploy.
	r.RunOnce(time.Now())

	for {
		select {
		case <-r.ticker.C:
			r.RunOnce(time.Now())
		case <-r.stop:
			return
		}
	}
}

// RunOnce performs a single sweep. Exported so an operator endpoint or a
// test can trigger it outside the ticker.
func (r *Refresher) RunOnce(asOf time.Time) {
	matured, err := r.service.MarkMatured(asOf)
	if err != nil {
		logger.Get().Errorw("maturity sweep failed", "error", err)
	} else if matured > 0 {
		logger.Get().Infow("instruments marked matured", "count", matured)
	}

	updated, err := r.service.RefreshAccruedInterest(asOf, r.chunkSize)
	if err != nil {
		logger.Get().Errorw("interest refresh failed", "updated_before_error", updated, "error", err)
		return
	}
	logger.Get().Infow("interest snapshots refreshed", "count", updated)
}
