// Package reminder decides which task reminders are due and hands them to a
// notification dispatcher.
package reminder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tgienger/nudge/internal/models"
	"github.com/tgienger/nudge/internal/notify"
)

// Policy controls whether an elapsed reminder fires again on later ticks
type Policy int

const (
	// Repeat re-fires every elapsed offset on every tick until the task is due
	Repeat Policy = iota
	// Once fires each offset a single time, tracked in Task.FiredOffsets
	Once
)

// ParsePolicy maps the config names "repeat" and "once"
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "repeat":
		return Repeat, nil
	case "once":
		return Once, nil
	}
	return Repeat, fmt.Errorf("unknown reminder policy %q", name)
}

func (p Policy) String() string {
	if p == Once {
		return "once"
	}
	return "repeat"
}

// Firing is a (task, offset) pair whose reminder is due at a tick
type Firing struct {
	Task   models.Task
	Offset int
}

// Notification renders the firing for a dispatcher
func (f Firing) Notification() notify.Notification {
	return notify.Notification{
		Title: f.Task.Title,
		Body: fmt.Sprintf("Due in %s · %s",
			models.OffsetLabel(f.Offset),
			f.Task.ScheduledAt.Format("Mon Jan 2 15:04")),
		Color: f.Task.Color.Hex(),
	}
}

// Fires reports whether offset m of t should fire at now.
// The reminder instant R = scheduledAt - m must have arrived while the task
// itself is still in the future and not completed.
func Fires(t models.Task, m int, now time.Time, policy Policy) bool {
	if t.IsCompleted {
		return false
	}
	if !t.ScheduledAt.After(now) {
		return false
	}
	if t.ReminderAt(m).After(now) {
		return false
	}
	if policy == Once && t.HasFired(m) {
		return false
	}
	return true
}

// Due returns every firing pair at now, in task then offset order
func Due(tasks []models.Task, now time.Time, policy Policy) []Firing {
	var firings []Firing
	for _, t := range tasks {
		for _, m := range t.ReminderOffsets {
			if Fires(t, m, now, policy) {
				firings = append(firings, Firing{Task: t, Offset: m})
			}
		}
	}
	return firings
}

// Source is the task list the evaluator reads and, under Once, annotates
type Source interface {
	List() []models.Task
	MarkFired(ctx context.Context, id string, offset int) error
}

// Evaluator runs one reminder pass per Tick
type Evaluator struct {
	source     Source
	dispatcher notify.Dispatcher
	policy     Policy
}

func NewEvaluator(source Source, dispatcher notify.Dispatcher, policy Policy) *Evaluator {
	return &Evaluator{source: source, dispatcher: dispatcher, policy: policy}
}

// Evaluate computes the firings at now and, under Once, records them.
// It does not dispatch.
func (e *Evaluator) Evaluate(ctx context.Context, now time.Time) []Firing {
	firings := Due(e.source.List(), now, e.policy)
	if e.policy == Once {
		for _, f := range firings {
			if err := e.source.MarkFired(ctx, f.Task.ID, f.Offset); err != nil {
				log.Printf("reminder: mark %s/%d fired: %v", f.Task.ID, f.Offset, err)
			}
		}
	}
	return firings
}

// Dispatch hands each firing to the dispatcher. Failures are logged and dropped.
func (e *Evaluator) Dispatch(ctx context.Context, firings []Firing) {
	for _, f := range firings {
		if err := e.dispatcher.Dispatch(ctx, f.Notification()); err != nil {
			log.Printf("reminder: dispatch %q: %v", f.Task.Title, err)
		}
	}
}

// Tick evaluates and dispatches in one step
func (e *Evaluator) Tick(ctx context.Context, now time.Time) []Firing {
	firings := e.Evaluate(ctx, now)
	e.Dispatch(ctx, firings)
	return firings
}
