package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/taskdeck/taskdeck/internal/api"
)

// Refresher periodically reloads the task list and session metrics over
// REST. The event stream keeps the dashboard current in between; the
// periodic pull reconciles anything missed while disconnected.
type Refresher struct {
	interval     time.Duration
	stop         chan struct{}
	wg           sync.WaitGroup
	fetch        func() ([]api.Task, error)
	fetchMetrics func() (*api.SessionMetrics, error)
	onTasks      func([]api.Task)
	onMetrics    func(api.SessionMetrics)
	logger       *slog.Logger
}

func New(client *api.Client, interval time.Duration, onTasks func([]api.Task), onMetrics func(api.SessionMetrics), logger *slog.Logger) *Refresher {
	return &Refresher{
		interval: interval,
		stop:     make(chan struct{}),
		fetch: func() ([]api.Task, error) {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return client.ListTasks(ctx)
		},
		fetchMetrics: func() (*api.SessionMetrics, error) {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return client.GetSessionMetrics(ctx)
		},
		onTasks:   onTasks,
		onMetrics: onMetrics,
		logger:    logger,
	}
}

// NewWithFetch creates a Refresher with an injectable fetch function and no
// metrics poll. Used in tests.
func NewWithFetch(interval time.Duration, onTasks func([]api.Task), logger *slog.Logger, fetch func() ([]api.Task, error)) *Refresher {
	return &Refresher{
		interval: interval,
		stop:     make(chan struct{}),
		fetch:    fetch,
		onTasks:  onTasks,
		logger:   logger,
	}
}

// SetMetrics installs the session-metrics poll with an injectable fetch.
// Used in tests.
func (r *Refresher) SetMetrics(fetch func() (*api.SessionMetrics, error), on func(api.SessionMetrics)) {
	r.fetchMetrics = fetch
	r.onMetrics = on
}

func (r *Refresher) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.refresh()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				r.refresh()
			}
		}
	}()
}

func (r *Refresher) Stop() {
	close(r.stop)
	r.wg.Wait()
}

// RunOnce runs a single refresh cycle synchronously. Used in tests.
func (r *Refresher) RunOnce() {
	r.refresh()
}

func (r *Refresher) refresh() {
	tasks, err := r.fetch()
	if err != nil {
		r.logger.Warn("refresh: task list failed", "err", err)
		return
	}
	r.onTasks(tasks)

	if r.fetchMetrics == nil || r.onMetrics == nil {
		return
	}
	metrics, err := r.fetchMetrics()
	if err != nil {
		// The pushed session updates usually cover this; not worth a warn.
		r.logger.Debug("refresh: session metrics failed", "err", err)
		return
	}
	r.onMetrics(*metrics)
}
