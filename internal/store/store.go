package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tgienger/nudge/internal/models"
)

var (
	ErrNotFound    = errors.New("task not found")
	ErrInvalidTask = errors.New("invalid task")
)

// TaskInput holds the user-editable fields of a task.
// A nil ScheduledAt means the date/time was not provided.
type TaskInput struct {
	Title           string       `validate:"required"`
	ScheduledAt     *time.Time   `validate:"required"`
	Details         string
	Color           models.Color `validate:"omitempty,palette"`
	ReminderOffsets []int        `validate:"dive,gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("palette", func(fl validator.FieldLevel) bool {
		return models.Color(fl.Field().String()).Valid()
	}); err != nil {
		panic(fmt.Sprintf("store: register palette validation: %v", err))
	}
	return v
}

func (in TaskInput) normalize() TaskInput {
	in.Title = strings.TrimSpace(in.Title)
	if in.Color == "" {
		in.Color = models.DefaultColor
	}
	in.ReminderOffsets = models.UniqueOffsets(in.ReminderOffsets)
	return in
}

func (in TaskInput) check() error {
	if in.ScheduledAt != nil && in.ScheduledAt.IsZero() {
		in.ScheduledAt = nil
	}
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidTask, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.StructField() {
	case "Title":
		return "title is required"
	case "ScheduledAt":
		return "date and time are required"
	case "Color":
		return fmt.Sprintf("unknown color %q", fe.Value())
	}
	if strings.HasPrefix(fe.StructNamespace(), "TaskInput.ReminderOffsets") {
		return "reminder offsets must not be negative"
	}
	return fe.Error()
}

// Store is the ordered in-memory task list, mirrored to a Slot after every change
type Store struct {
	mu    sync.RWMutex
	slot  Slot
	tasks []models.Task
}

// New creates an empty store backed by slot. Call Load to read saved tasks.
func New(slot Slot) *Store {
	return &Store{slot: slot, tasks: []models.Task{}}
}

// Load replaces the in-memory list with the slot contents. A missing key or
// unreadable snapshot leaves the store empty rather than failing.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = s.read(ctx)
}

// Reload is Load for a store that is already in use
func (s *Store) Reload(ctx context.Context) {
	s.Load(ctx)
}

func (s *Store) read(ctx context.Context) []models.Task {
	data, ok, err := s.slot.Get(ctx)
	if err != nil {
		log.Printf("store: read saved tasks: %v", err)
		return []models.Task{}
	}
	if !ok {
		return []models.Task{}
	}
	tasks, err := Decode(data)
	if err != nil {
		log.Printf("store: parse saved tasks: %v", err)
		return []models.Task{}
	}
	return repair(tasks)
}

// repair makes a decoded snapshot satisfy the list invariants. Later tasks
// reusing an id are dropped, and a completed task without a completion time
// is treated as completed when it was due.
func repair(tasks []models.Task) []models.Task {
	seen := make(map[string]bool, len(tasks))
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID == "" || seen[t.ID] {
			log.Printf("store: dropping saved task with duplicate or empty id %q", t.ID)
			continue
		}
		seen[t.ID] = true

		switch {
		case t.IsCompleted && t.CompletedAt == nil:
			completedAt := t.ScheduledAt
			t.CompletedAt = &completedAt
		case !t.IsCompleted:
			t.CompletedAt = nil
		}
		if !t.Color.Valid() {
			t.Color = models.DefaultColor
		}
		t.ReminderOffsets = models.UniqueOffsets(t.ReminderOffsets)
		if t.FiredOffsets != nil {
			t.FiredOffsets = models.UniqueOffsets(t.FiredOffsets)
		}
		out = append(out, t)
	}
	return out
}

// List returns a copy of all tasks in insertion order
func (s *Store) List() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

// Get returns the task with id
func (s *Store) Get(id string) (models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.tasks[i].Clone(), nil
	}
	return models.Task{}, ErrNotFound
}

// Create validates in and appends a new task with a fresh id
func (s *Store) Create(ctx context.Context, in TaskInput) (models.Task, error) {
	in = in.normalize()
	if err := in.check(); err != nil {
		return models.Task{}, err
	}

	t := models.Task{
		ID:              uuid.NewString(),
		Title:           in.Title,
		ScheduledAt:     *in.ScheduledAt,
		Details:         in.Details,
		Color:           in.Color,
		ReminderOffsets: in.ReminderOffsets,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := append(s.snapshot(), t)
	if err := s.commit(ctx, next); err != nil {
		return models.Task{}, err
	}
	return t.Clone(), nil
}

// Update replaces every editable field of the task with id. Completion state
// is kept. Moving the schedule forgets which reminders already fired.
func (s *Store) Update(ctx context.Context, id string, in TaskInput) (models.Task, error) {
	in = in.normalize()
	if err := in.check(); err != nil {
		return models.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return models.Task{}, ErrNotFound
	}

	next := s.snapshot()
	t := next[i]
	rescheduled := !t.ScheduledAt.Equal(*in.ScheduledAt)
	t.Title = in.Title
	t.ScheduledAt = *in.ScheduledAt
	t.Details = in.Details
	t.Color = in.Color
	t.ReminderOffsets = in.ReminderOffsets

	var fired []int
	if !rescheduled {
		for _, m := range t.FiredOffsets {
			if t.HasOffset(m) {
				fired = append(fired, m)
			}
		}
	}
	t.FiredOffsets = fired
	next[i] = t

	if err := s.commit(ctx, next); err != nil {
		return models.Task{}, err
	}
	return t.Clone(), nil
}

// Complete marks the task done at the given instant. Completing twice keeps
// the first completion time.
func (s *Store) Complete(ctx context.Context, id string, at time.Time) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return models.Task{}, ErrNotFound
	}
	if s.tasks[i].IsCompleted {
		return s.tasks[i].Clone(), nil
	}

	next := s.snapshot()
	completedAt := at
	next[i].IsCompleted = true
	next[i].CompletedAt = &completedAt

	if err := s.commit(ctx, next); err != nil {
		return models.Task{}, err
	}
	return next[i].Clone(), nil
}

// Delete removes the task with id. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return nil
	}

	next := make([]models.Task, 0, len(s.tasks)-1)
	next = append(next, s.tasks[:i]...)
	next = append(next, s.tasks[i+1:]...)
	return s.commit(ctx, next)
}

// MarkFired records that the reminder at offset went out for task id
func (s *Store) MarkFired(ctx context.Context, id string, offset int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return ErrNotFound
	}
	if s.tasks[i].HasFired(offset) {
		return nil
	}

	next := s.snapshot()
	next[i].FiredOffsets = append(next[i].FiredOffsets, offset)
	return s.commit(ctx, next)
}

func (s *Store) index(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// snapshot copies the current list so a failed write can be discarded
func (s *Store) snapshot() []models.Task {
	next := make([]models.Task, len(s.tasks), len(s.tasks)+1)
	for i, t := range s.tasks {
		next[i] = t.Clone()
	}
	return next
}

// commit writes next to the slot and only then makes it current
func (s *Store) commit(ctx context.Context, next []models.Task) error {
	data, err := Encode(next)
	if err != nil {
		return err
	}
	if err := s.slot.Put(ctx, data); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	s.tasks = next
	return nil
}
