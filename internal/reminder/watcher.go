package reminder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Reloader refreshes the task list from persistent storage
type Reloader interface {
	Reload(ctx context.Context)
}

// Reloaders refreshes each member in order
type Reloaders []Reloader

func (rs Reloaders) Reload(ctx context.Context) {
	for _, r := range rs {
		r.Reload(ctx)
	}
}

// Watcher drives an Evaluator on a fixed period without a UI. Ticks never
// overlap: a tick still running when the next is due causes that one to be skipped.
type Watcher struct {
	evaluator *Evaluator
	reloader  Reloader
	clock     Clock
	interval  time.Duration

	cron *cron.Cron
}

// NewWatcher builds a watcher. reloader may be nil when the store is not
// shared with other processes.
func NewWatcher(evaluator *Evaluator, reloader Reloader, clock Clock, interval time.Duration) *Watcher {
	logger := cron.PrintfLogger(log.Default())
	return &Watcher{
		evaluator: evaluator,
		reloader:  reloader,
		clock:     clock,
		interval:  interval,
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(logger)), cron.WithLogger(logger)),
	}
}

// Run evaluates once immediately, then every interval until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	job := cron.FuncJob(func() { w.tick(ctx) })
	if _, err := w.cron.AddJob(fmt.Sprintf("@every %s", w.interval), job); err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}

	w.tick(ctx)
	w.cron.Start()
	<-ctx.Done()

	// Wait for a running tick to finish
	<-w.cron.Stop().Done()
	return nil
}

func (w *Watcher) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if w.reloader != nil {
		w.reloader.Reload(ctx)
	}
	firings := w.evaluator.Tick(ctx, w.clock.Now())
	if len(firings) > 0 {
		log.Printf("reminder: %d notification(s) sent", len(firings))
	}
}
