package ui

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/nudge/internal/notify"
	"github.com/tgienger/nudge/internal/reminder"
	"github.com/tgienger/nudge/internal/store"
	"github.com/tgienger/nudge/internal/ui/styles"
	"github.com/tgienger/nudge/internal/ui/views"
)

const lastTabKey = "last_tab"

// maxToasts caps how many reminders the banner shows at once
const maxToasts = 3

// Settings is the key-value store used for UI preferences
type Settings interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// Options wires the application's collaborators
type Options struct {
	Store       *store.Store
	Evaluator   *reminder.Evaluator
	Permissions *notify.Permissions
	Settings    Settings
	Clock       reminder.Clock
	Interval    time.Duration
}

type App struct {
	opts   Options
	styles *styles.Styles
	tasks  *views.TasksView

	askingPermission bool
	toasts           []reminder.Firing

	width  int
	height int
}

// tickMsg triggers one reminder evaluation
type tickMsg struct{}

// Creates a new application
func NewApp(opts Options) *App {
	if opts.Clock == nil {
		opts.Clock = reminder.RealClock{}
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}

	tab := views.TabUpcoming
	if last, err := opts.Settings.GetSetting(lastTabKey); err == nil {
		tab = views.ParseTab(last)
	}

	return &App{
		opts:             opts,
		styles:           styles.NewStyles(),
		tasks:            views.NewTasksView(opts.Store, opts.Clock, tab),
		askingPermission: opts.Permissions.NeedsPrompt(),
	}
}

func (a *App) Init() tea.Cmd {
	// Evaluate right away, later ticks are scheduled from Update
	return tea.Batch(
		a.tasks.Init(),
		func() tea.Msg { return tickMsg{} },
	)
}

func (a *App) scheduleTick() tea.Cmd {
	return tea.Tick(a.opts.Interval, func(time.Time) tea.Msg { return tickMsg{} })
}

// evaluate runs one reminder pass. Dispatch happens off the update loop.
func (a *App) evaluate() tea.Cmd {
	ctx := context.Background()
	firings := a.opts.Evaluator.Evaluate(ctx, a.opts.Clock.Now())
	a.toasts = firings

	cmds := []tea.Cmd{a.scheduleTick()}
	if len(firings) > 0 {
		cmds = append(cmds, func() tea.Msg {
			a.opts.Evaluator.Dispatch(ctx, firings)
			return nil
		})
	}
	return tea.Batch(cmds...)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case tickMsg:
		return a, a.evaluate()

	case views.TabChanged:
		if err := a.opts.Settings.SetSetting(lastTabKey, msg.Tab.String()); err != nil {
			log.Printf("ui: save last tab: %v", err)
		}
		return a, nil

	case tea.KeyMsg:
		if a.askingPermission {
			return a, a.answerPermission(msg)
		}
	}

	_, cmd := a.tasks.Update(msg)
	return a, cmd
}

func (a *App) answerPermission(msg tea.KeyMsg) tea.Cmd {
	var perm notify.Permission
	switch msg.String() {
	case "y", "Y":
		perm = notify.Granted
	case "n", "N":
		perm = notify.Denied
	case "esc":
		// ask again next launch
		a.askingPermission = false
		return nil
	case "ctrl+c":
		return tea.Quit
	default:
		return nil
	}

	a.askingPermission = false
	if err := a.opts.Permissions.Set(perm); err != nil {
		log.Printf("ui: save notification permission: %v", err)
	}
	return nil
}

func (a *App) View() string {
	if a.askingPermission {
		return a.renderPermissionPrompt()
	}

	content := a.tasks.View()
	if len(a.toasts) > 0 && !a.tasks.Editing() {
		content = lipgloss.JoinVertical(lipgloss.Left, a.renderToasts(), content)
	}
	return content
}

func (a *App) renderToasts() string {
	s := a.styles
	shown := a.toasts
	if len(shown) > maxToasts {
		shown = shown[:maxToasts]
	}

	var lines []string
	for _, f := range shown {
		n := f.Notification()
		line := s.ToastTitle.Render("⏰ "+n.Title) + " " + s.TitleMuted.Render(n.Body)
		lines = append(lines, s.Toast.BorderForeground(lipgloss.Color(n.Color)).Render(line))
	}
	if extra := len(a.toasts) - len(shown); extra > 0 {
		lines = append(lines, s.TitleMuted.Render(fmt.Sprintf("  …and %d more", extra)))
	}
	return strings.Join(lines, "\n") + "\n"
}

func (a *App) renderPermissionPrompt() string {
	s := a.styles
	contentWidth := styles.ContentWidth(a.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Render("Allow reminder notifications?"),
		"",
		s.TitleMuted.Render("nudge shows a desktop notification when a reminder is due."),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Allow "),
			"  ",
			s.Button.Render(" N - Don't allow "),
		),
		"",
		s.TitleMuted.Render("Esc: decide later"),
	)

	centered := lipgloss.Place(contentWidth, a.height,
		lipgloss.Center, lipgloss.Center,
		s.Panel.Render(content),
	)
	return styles.CenterView(centered, a.width, a.height)
}
