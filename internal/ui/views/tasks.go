package views

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/nudge/internal/models"
	"github.com/tgienger/nudge/internal/reminder"
	"github.com/tgienger/nudge/internal/store"
	"github.com/tgienger/nudge/internal/ui/keys"
	"github.com/tgienger/nudge/internal/ui/styles"
)

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// Tab selects which tasks the list shows
type Tab int

const (
	TabUpcoming Tab = iota
	TabCompleted
)

func (t Tab) String() string {
	if t == TabCompleted {
		return "completed"
	}
	return "upcoming"
}

// ParseTab is the inverse of Tab.String. Unknown names map to TabUpcoming.
func ParseTab(name string) Tab {
	if name == TabCompleted.String() {
		return TabCompleted
	}
	return TabUpcoming
}

// TabChanged is emitted when the user switches tabs
type TabChanged struct {
	Tab Tab
}

// TasksView lists tasks and hosts the task editor
type TasksView struct {
	store  *store.Store
	clock  reminder.Clock
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int

	tab     Tab
	tasks   []models.Task // tasks visible in the current tab
	cursor  int
	scrollY int

	// status line under the list; statusErr colors it as an error
	status    string
	statusErr bool

	form *taskForm

	// Delete confirmation
	confirmingDelete bool
	deleteTargetID   string
	deleteTargetName string

	// Help popup
	showHelpPopup bool
}

// NewTasksView creates the task list view
func NewTasksView(s *store.Store, clock reminder.Clock, tab Tab) *TasksView {
	st := styles.NewStyles()
	return &TasksView{
		store:  s,
		clock:  clock,
		styles: st,
		keys:   keys.DefaultKeyMap(),
		tab:    tab,
		form:   newTaskForm(st),
	}
}

type tasksLoadedMsg struct {
	tasks []models.Task
}

// Init initializes the view
func (v *TasksView) Init() tea.Cmd {
	return v.loadTasks
}

func (v *TasksView) loadTasks() tea.Msg {
	return tasksLoadedMsg{tasks: v.store.List()}
}

// visible filters and orders tasks for the current tab
func (v *TasksView) visible(all []models.Task) []models.Task {
	var out []models.Task
	for _, t := range all {
		if t.IsCompleted == (v.tab == TabCompleted) {
			out = append(out, t)
		}
	}
	if v.tab == TabCompleted {
		sort.SliceStable(out, func(i, j int) bool {
			return completedAt(out[i]).After(completedAt(out[j]))
		})
	} else {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		})
	}
	return out
}

// Tasks returns the tasks shown in the current tab
func (v *TasksView) Tasks() []models.Task {
	return v.tasks
}

// Tab returns the active tab
func (v *TasksView) Tab() Tab {
	return v.tab
}

// Editing reports whether the task editor is open
func (v *TasksView) Editing() bool {
	return v.form.open
}

// Status returns the current status line and whether it reports an error
func (v *TasksView) Status() (string, bool) {
	return v.status, v.statusErr
}

// Update handles messages
func (v *TasksView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(v.width)
		v.form.setWidth(clamp(contentWidth-10, 20, 50))
		return v, nil

	case tasksLoadedMsg:
		v.tasks = v.visible(msg.tasks)
		if v.cursor >= len(v.tasks) {
			v.cursor = max(0, len(v.tasks)-1)
		}
		v.ensureVisible()
		return v, nil

	case tea.KeyMsg:
		// Handle help popup first - any key closes it
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}

		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}

		if v.form.open {
			return v.updateEditing(msg)
		}

		return v.updateNormal(msg)
	}

	return v, nil
}

func (v *TasksView) setStatus(msg string, isErr bool) {
	v.status = msg
	v.statusErr = isErr
}

func (v *TasksView) selected() (models.Task, bool) {
	if v.cursor < 0 || v.cursor >= len(v.tasks) {
		return models.Task{}, false
	}
	return v.tasks[v.cursor], true
}

func (v *TasksView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Tab), key.Matches(msg, v.keys.ShiftTab):
		if v.tab == TabUpcoming {
			v.tab = TabCompleted
		} else {
			v.tab = TabUpcoming
		}
		v.cursor = 0
		v.scrollY = 0
		tab := v.tab
		return v, tea.Batch(v.loadTasks, func() tea.Msg { return TabChanged{Tab: tab} })

	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.tasks)-1 {
			v.cursor++
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.New):
		v.form.startNew(v.clock.Now())
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Edit), key.Matches(msg, v.keys.Enter):
		if task, ok := v.selected(); ok {
			v.form.startEdit(task)
			return v, textinput.Blink
		}
		return v, nil

	case key.Matches(msg, v.keys.Complete):
		task, ok := v.selected()
		if !ok || task.IsCompleted {
			return v, nil
		}
		if _, err := v.store.Complete(context.Background(), task.ID, v.clock.Now()); err != nil {
			v.setStatus(err.Error(), true)
			return v, nil
		}
		v.setStatus(fmt.Sprintf("Completed %q", task.Title), false)
		return v, v.loadTasks

	case key.Matches(msg, v.keys.Delete):
		if task, ok := v.selected(); ok {
			v.confirmingDelete = true
			v.deleteTargetID = task.ID
			v.deleteTargetName = task.Title
		}
		return v, nil

	case key.Matches(msg, v.keys.Help):
		v.showHelpPopup = true
		return v, nil
	}

	return v, nil
}

func (v *TasksView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDelete = false
		if err := v.store.Delete(context.Background(), v.deleteTargetID); err != nil {
			v.setStatus(err.Error(), true)
			return v, nil
		}
		v.setStatus(fmt.Sprintf("Deleted %q", v.deleteTargetName), false)
		return v, v.loadTasks
	case "n", "N", "esc":
		v.confirmingDelete = false
		return v, nil
	}
	return v, nil
}

func (v *TasksView) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.form.close()
		return v, nil

	case key.Matches(msg, v.keys.Save):
		return v, v.saveTask()

	case key.Matches(msg, v.keys.Enter) && v.form.focus == fieldSave:
		return v, v.saveTask()
	}

	return v, v.form.update(msg, v.keys)
}

func (v *TasksView) saveTask() tea.Cmd {
	in, err := v.form.input()
	if err != nil {
		v.form.err = err.Error()
		return nil
	}

	ctx := context.Background()
	var task models.Task
	if v.form.editingID == "" {
		task, err = v.store.Create(ctx, in)
	} else {
		task, err = v.store.Update(ctx, v.form.editingID, in)
	}
	if err != nil {
		v.form.err = err.Error()
		return nil
	}

	v.form.close()
	v.setStatus(fmt.Sprintf("Saved %q", task.Title), false)
	return v.loadTasks
}

func (v *TasksView) ensureVisible() {
	visibleItems := v.visibleItems()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visibleItems {
		v.scrollY = v.cursor - visibleItems + 1
	}
}

// visibleItems is how many two-line task rows (plus margin) fit on screen
func (v *TasksView) visibleItems() int {
	availableHeight := v.height - 12
	if availableHeight < 3 {
		availableHeight = 3
	}
	return max(availableHeight/3, 1)
}

// View renders the view
func (v *TasksView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	if v.confirmingDelete {
		return v.renderDeleteConfirm()
	}

	if v.form.open {
		return v.renderEditForm()
	}

	var b strings.Builder

	b.WriteString(v.renderTabs())
	b.WriteString("\n\n")
	b.WriteString(v.renderTaskList())
	b.WriteString("\n")
	if v.status != "" {
		if v.statusErr {
			b.WriteString(v.styles.StatusErr.Render(v.status))
		} else {
			b.WriteString(v.styles.StatusBar.Render(v.status))
		}
		b.WriteString("\n")
	}
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *TasksView) renderTabs() string {
	s := v.styles
	upcoming, completed := s.Tab, s.Tab
	if v.tab == TabCompleted {
		completed = s.TabActive
	} else {
		upcoming = s.TabActive
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom,
		upcoming.Render("Upcoming"),
		" ",
		completed.Render("Completed"),
	)
}

func (v *TasksView) renderTaskList() string {
	s := v.styles

	if len(v.tasks) == 0 {
		if v.tab == TabCompleted {
			return s.TitleMuted.Render("Nothing completed yet.")
		}
		return s.TitleMuted.Render("No tasks. Press 'n' to create one.")
	}

	var items []string
	endIdx := min(v.scrollY+v.visibleItems(), len(v.tasks))
	for i := v.scrollY; i < endIdx; i++ {
		items = append(items, v.renderTaskItem(v.tasks[i], i == v.cursor))
	}
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

// completedAt is the completion time, or the zero time when it is unknown
func completedAt(t models.Task) time.Time {
	if t.CompletedAt == nil {
		return time.Time{}
	}
	return *t.CompletedAt
}

// dueText describes when a task is due relative to now
func dueText(t models.Task, now time.Time) string {
	when := t.ScheduledAt.Format("Mon Jan 2 15:04")
	if t.IsCompleted {
		if t.CompletedAt == nil {
			return "done"
		}
		return "done " + t.CompletedAt.Format("Mon Jan 2 15:04")
	}
	if !t.ScheduledAt.After(now) {
		return when + " (overdue)"
	}
	return when
}

func (v *TasksView) renderTaskItem(task models.Task, selected bool) string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	width := max(contentWidth-4, 20)
	now := v.clock.Now()

	dot := styles.TagColor(task.Color).Render("●")
	title := task.Title
	if task.IsCompleted {
		title = s.TaskDone.Render(title)
	}
	titleLine := dot + " " + title

	dueStyle := s.TaskDue
	switch {
	case task.IsCompleted:
		dueStyle = s.TitleMuted
	case !task.ScheduledAt.After(now):
		dueStyle = s.TaskOverdue
	}
	detailLine := dueStyle.Render(dueText(task, now))
	if len(task.ReminderOffsets) > 0 {
		labels := make([]string, len(task.ReminderOffsets))
		for i, m := range task.ReminderOffsets {
			labels[i] = models.OffsetLabel(m)
		}
		detailLine += s.TitleMuted.Render("  ⏰ " + strings.Join(labels, ", "))
	}

	rowStyle := s.ListItem
	if selected {
		rowStyle = s.ListSelected
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		rowStyle.Width(width).Render(titleLine),
		rowStyle.Width(width).Render(detailLine),
	) + "\n"
}

func (v *TasksView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	// At narrow widths, show hint to press ? for help
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}

	s := v.styles
	hints := []struct{ key, desc string }{
		{"n", "new"},
		{"e", "edit"},
		{"x", "done"},
		{"d", "del"},
		{"tab", "tab"},
		{"q", "quit"},
	}
	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = s.HelpKey.Render(h.key) + " " + s.HelpDesc.Render(h.desc)
	}
	return s.Help.Render(strings.Join(parts, s.HelpDesc.Render(" • ")))
}

func (v *TasksView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("n") + "      new task",
		s.HelpKey.Render("e/↵") + "    edit task",
		s.HelpKey.Render("x") + "      mark done",
		s.HelpKey.Render("d") + "      delete task",
		s.HelpKey.Render("tab") + "    upcoming / completed",
		s.HelpKey.Render("↑/↓") + "    move",
		s.HelpKey.Render("q") + "      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, helpItems...)...,
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Panel.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TasksView) renderDeleteConfirm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Delete Task?"),
		"",
		s.TitleMuted.Render(fmt.Sprintf("%q will be removed.", v.deleteTargetName)),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}
