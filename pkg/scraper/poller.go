package scraper

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"price-tracker-go/pkg/metrics"
	"price-tracker-go/pkg/models"
)

const (
	DefaultInterval    = 3 * time.Second
	DefaultMaxAttempts = 20
)

var (
	// ErrNoTask is returned by Wait when no task was ever started.
	ErrNoTask = errors.New("no scraping task")
	// ErrStopped is returned by Wait when polling was stopped before the task
	// reached a terminal status.
	ErrStopped = errors.New("polling stopped before the task finished")
)

// Backend is the scraping API the poller drives.
type Backend interface {
	StartPriceScrape(ctx context.Context, productID int, req models.ScrapeStartRequest) (*models.ScrapeStartResponse, error)
	ScrapeStatus(ctx context.Context, taskID string) (*models.ScrapeStatusResponse, error)
}

// Config controls poll timing and observers. Zero values use the defaults.
type Config struct {
	Interval    time.Duration
	MaxAttempts int
	Logger      *zap.SugaredLogger
	Metrics     *metrics.Metrics
	// OnUpdate receives a snapshot after every state change. It is called
	// without the poller lock held.
	OnUpdate func(Snapshot)
}

// Poller tracks one scraping task at a time from start to a terminal status.
type Poller struct {
	backend Backend
	cfg     Config
	log     *zap.SugaredLogger

	mu      sync.Mutex
	gen     uint64
	state   Snapshot
	handle  *Handle
	done    chan struct{}
	started time.Time
}

// NewPoller creates a poller for the given backend
func NewPoller(backend Backend, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Poller{
		backend: backend,
		cfg:     cfg,
		log:     log.Named("poller"),
	}
}

// StartScraping stops any running poll, starts a new task for productID and
// begins polling unless the start response is already terminal.
func (p *Poller) StartScraping(ctx context.Context, productID int, opts StartOptions) error {
	p.mu.Lock()
	p.stopLocked()
	p.gen++
	gen := p.gen
	p.state = Snapshot{}
	p.mu.Unlock()

	resp, err := p.backend.StartPriceScrape(ctx, productID, opts.request())

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		p.log.Debugw("discarding superseded start response", "product_id", productID)
		return nil
	}

	if err != nil {
		p.state.Err = newStartFailedError(err)
		snap := p.state.clone()
		p.mu.Unlock()

		p.cfg.Metrics.IncTask("start_failed")
		p.log.Warnw("scrape start failed", "product_id", productID, "error", err)
		p.notify(snap)
		return snap.Err
	}

	p.state.TaskID = resp.TaskID
	p.state.Task = &TaskState{
		ProductID: productID,
		Status:    resp.Status,
		Message:   resp.Message,
	}
	p.started = time.Now()
	p.log.Infow("scrape task started", "product_id", productID, "task_id", resp.TaskID, "status", resp.Status)

	if resp.Status.Terminal() {
		p.recordTerminal(resp.Status)
		snap := p.state.clone()
		p.mu.Unlock()
		p.notify(snap)
		return nil
	}

	p.state.Polling = true
	p.done = make(chan struct{})
	taskID := resp.TaskID
	p.handle = Every(p.cfg.Interval, func(ctx context.Context) bool {
		return p.poll(ctx, gen, taskID)
	})
	snap := p.state.clone()
	p.mu.Unlock()

	p.notify(snap)
	return nil
}

// poll issues one status request. It returns true when polling should end.
func (p *Poller) poll(ctx context.Context, gen uint64, taskID string) bool {
	resp, err := p.backend.ScrapeStatus(ctx, taskID)

	p.mu.Lock()
	if gen != p.gen || !p.state.Polling {
		p.mu.Unlock()
		p.log.Debugw("discarding stale poll response", "task_id", taskID)
		return true
	}

	if err != nil {
		p.state.Attempts++
		attempt := p.state.Attempts
		if attempt >= p.cfg.MaxAttempts {
			p.state.Err = newExhaustedError(err, p.cfg.MaxAttempts)
			p.stopLocked()
			snap := p.state.clone()
			p.mu.Unlock()

			p.cfg.Metrics.IncPoll("exhausted")
			p.cfg.Metrics.IncTask("exhausted")
			p.log.Errorw("polling exhausted", "task_id", taskID, "attempts", attempt, "error", err)
			p.notify(snap)
			return true
		}

		p.state.Err = newTransientError(err, attempt, p.cfg.MaxAttempts)
		snap := p.state.clone()
		p.mu.Unlock()

		p.cfg.Metrics.IncPoll("error")
		p.log.Warnw("poll failed", "task_id", taskID, "attempt", attempt, "max", p.cfg.MaxAttempts, "error", err)
		p.notify(snap)
		return false
	}

	task := p.state.Task
	task.Status = resp.Status
	task.Message = resp.Message
	task.ElapsedSeconds = resp.ElapsedSeconds
	task.FoundPrice = resp.FoundPrice
	if resp.ProgressPercent != nil {
		task.ProgressPercent = *resp.ProgressPercent
	}
	p.state.Err = nil
	p.cfg.Metrics.IncPoll("ok")

	finished := resp.Status.Terminal()
	if finished {
		p.recordTerminal(resp.Status)
		p.stopLocked()
	}
	snap := p.state.clone()
	p.mu.Unlock()

	p.log.Debugw("poll", "task_id", taskID, "status", resp.Status, "progress", snap.Task.ProgressPercent)
	p.notify(snap)
	return finished
}

func (p *Poller) recordTerminal(status models.TaskStatus) {
	result := "completed"
	if status == models.TaskError {
		result = "error"
	}
	p.cfg.Metrics.IncTask(result)
	p.cfg.Metrics.ObserveTask(time.Since(p.started))
}

// stopLocked cancels the schedule and wakes any Wait callers. The task
// snapshot is left untouched.
func (p *Poller) stopLocked() {
	if p.handle != nil {
		p.handle.Cancel()
		p.handle = nil
	}
	p.state.Polling = false
	p.state.Attempts = 0
	if p.done != nil {
		close(p.done)
		p.done = nil
	}
}

// StopPolling stops future polls and keeps the last known task state.
// Responses already in flight are discarded.
func (p *Poller) StopPolling() {
	p.mu.Lock()
	wasPolling := p.state.Polling
	p.stopLocked()
	p.gen++
	snap := p.state.clone()
	p.mu.Unlock()

	if wasPolling {
		p.notify(snap)
	}
}

// Reset stops polling and clears the task, the task ID and any error.
func (p *Poller) Reset() {
	p.mu.Lock()
	p.stopLocked()
	p.gen++
	p.state = Snapshot{}
	p.mu.Unlock()

	p.notify(Snapshot{})
}

// Snapshot returns a copy of the current state
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.clone()
}

// Wait blocks until polling ends and returns the final snapshot. The error
// is nil only when the task completed.
func (p *Poller) Wait(ctx context.Context) (Snapshot, error) {
	for {
		p.mu.Lock()
		if !p.state.Polling {
			snap := p.state.clone()
			p.mu.Unlock()
			return snap, finalError(snap)
		}
		done := p.done
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return p.Snapshot(), ctx.Err()
		case <-done:
		}
	}
}

func finalError(s Snapshot) error {
	if s.Err != nil && s.Err.IsFinal() {
		return s.Err
	}
	if s.Task == nil {
		return ErrNoTask
	}
	switch s.Task.Status {
	case models.TaskCompleted:
		return nil
	case models.TaskError:
		return newTaskFailedError(s.Task.Message)
	default:
		return ErrStopped
	}
}

func (p *Poller) notify(s Snapshot) {
	if p.cfg.OnUpdate != nil {
		p.cfg.OnUpdate(s)
	}
}
