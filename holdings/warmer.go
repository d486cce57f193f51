/*
warmer.go - Background account summary warmer

PURPOSE:
  Periodically recomputes the account-wide holdings summary of every
  account so the dashboard reads from a hot cache. Writes flush the
  cache; the next tick fills it again.

DESIGN:
  - Runs a background goroutine with a configurable interval
  - Runs once immediately on Start
  - One warm-up at a time; RunNow waits for a running one to finish
  - A failing account is logged and counted, the run continues

USAGE:
  warmer := holdings.NewWarmer(svc, 10*time.Minute)
  warmer.Start()
  // ... later
  warmer.Stop()

SEE ALSO:
  - service.go: Summary, which owns the cache
*/
package holdings

import (
	"context"
	"sync"
	"time"

	"github.com/warp/holdings-engine/fifo"
)

// WarmerStatus describes the last completed warm-up.
type WarmerStatus struct {
	Running  bool
	Interval time.Duration
	LastRun  time.Time
	Duration time.Duration
	Accounts int
	Failures int
}

type Warmer struct {
	Service  *Service
	Interval time.Duration

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex // guards ticker and stop
	runMu  sync.Mutex // one warm-up at a time

	statusMu sync.RWMutex
	status   WarmerStatus
}

func NewWarmer(svc *Service, interval time.Duration) *Warmer {
	return &Warmer{Service: svc, Interval: interval}
}

// Start begins the warm-up loop. A non-positive interval disables it.
// Calling Start twice is a no-op.
func (w *Warmer) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.Interval <= 0 {
		w.Service.Logger.Info("Summary warmer disabled")
		return
	}
	if w.ticker != nil {
		return
	}

	w.ticker = time.NewTicker(w.Interval)
	w.stop = make(chan struct{})
	w.wg.Add(1)
	go w.run(w.ticker, w.stop)

	w.statusMu.Lock()
	w.status.Running = true
	w.status.Interval = w.Interval
	w.statusMu.Unlock()

	w.Service.Logger.Info("Summary warmer started", "interval", w.Interval.String())
}

// Stop halts the loop and waits for an in-flight warm-up.
func (w *Warmer) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ticker == nil {
		return
	}
	w.ticker.Stop()
	close(w.stop)
	w.wg.Wait()
	w.ticker = nil

	w.statusMu.Lock()
	w.status.Running = false
	w.statusMu.Unlock()

	w.Service.Logger.Info("Summary warmer stopped")
}

func (w *Warmer) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer w.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	w.RunNow(ctx)
	for {
		select {
		case <-ticker.C:
			w.RunNow(ctx)
		case <-stop:
			return
		}
	}
}

// RunNow warms every account once and returns the outcome.
func (w *Warmer) RunNow(ctx context.Context) WarmerStatus {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	start := time.Now()
	log := w.Service.Logger

	accounts, err := w.Service.Accounts(ctx)
	if err != nil {
		log.Error("Summary warmer could not list accounts", "error", err)
		return w.record(start, 0, 1)
	}

	failures := 0
	for _, account := range accounts {
		if ctx.Err() != nil {
			break
		}
		if _, err := w.Service.Summary(ctx, account, fifo.Date{}); err != nil {
			failures++
			log.Warn("Summary warmer failed for account", "account", account, "error", err)
		}
	}

	status := w.record(start, len(accounts), failures)
	log.Debug("Summary warmer completed",
		"accounts", status.Accounts,
		"failures", status.Failures,
		"duration", status.Duration.String())
	return status
}

func (w *Warmer) record(start time.Time, accounts, failures int) WarmerStatus {
	w.statusMu.Lock()
	defer w.statusMu.Unlock()

	w.status.LastRun = start
	w.status.Duration = time.Since(start)
	w.status.Accounts = accounts
	w.status.Failures = failures
	return w.status
}

// Status returns the last recorded run.
func (w *Warmer) Status() WarmerStatus {
	w.statusMu.RLock()
	defer w.statusMu.RUnlock()
	return w.status
}
