// Package notify delivers reminder notifications on a best-effort basis.
package notify

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/gen2brain/beeep"
)

// Notification is one reminder to present to the user
type Notification struct {
	Title string
	Body  string
	Color string // hex hint, used where the surface supports it
}

// Dispatcher presents notifications
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// Func adapts a function to Dispatcher
type Func func(ctx context.Context, n Notification) error

func (f Func) Dispatch(ctx context.Context, n Notification) error { return f(ctx, n) }

// Desktop sends system notifications through the host notification daemon
type Desktop struct {
	AppIcon string
}

func (d Desktop) Dispatch(ctx context.Context, n Notification) error {
	return beeep.Notify(n.Title, n.Body, d.AppIcon)
}

// Multi fans a notification out to every dispatcher. A failing dispatcher
// does not stop the others. The joined errors are returned.
type Multi []Dispatcher

func (m Multi) Dispatch(ctx context.Context, n Notification) error {
	var errs []error
	for _, d := range m {
		if err := d.Dispatch(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Gate only forwards notifications while permission is granted
type Gate struct {
	Permissions PermissionSource
	Next        Dispatcher
}

func (g Gate) Dispatch(ctx context.Context, n Notification) error {
	if g.Permissions.Permission() != Granted {
		return nil
	}
	return g.Next.Dispatch(ctx, n)
}

// Recorder keeps every notification it receives. Handy for tests and dry runs.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) Dispatch(ctx context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

// Sent returns a copy of the recorded notifications
func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

// Logger writes each notification to the std logger
type Logger struct{}

func (Logger) Dispatch(ctx context.Context, n Notification) error {
	log.Printf("reminder: %s (%s)", n.Title, n.Body)
	return nil
}
