package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/nudge/internal/models"
	"github.com/tgienger/nudge/internal/store"
	"github.com/tgienger/nudge/internal/ui/keys"
	"github.com/tgienger/nudge/internal/ui/styles"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type formField int

const (
	fieldTitle formField = iota
	fieldDate
	fieldTime
	fieldDetails
	fieldColor
	fieldReminders
	fieldSave
	fieldCount
)

// taskForm is the create/edit surface for a single task
type taskForm struct {
	styles *styles.Styles

	open      bool
	editingID string // empty when creating
	focus     formField
	err       string

	title   textinput.Model
	date    textinput.Model
	clock   textinput.Model
	details textarea.Model
	color   models.Color

	offsets      []int // selected reminder offsets, in selection order
	offsetCursor int
}

func newTaskForm(s *styles.Styles) *taskForm {
	title := textinput.New()
	title.Placeholder = "Task title"
	title.CharLimit = 200

	date := textinput.New()
	date.Placeholder = "YYYY-MM-DD"
	date.CharLimit = 10

	clock := textinput.New()
	clock.Placeholder = "HH:MM"
	clock.CharLimit = 5

	details := textarea.New()
	details.Placeholder = "Details"
	details.CharLimit = 2000
	details.SetWidth(50)
	details.SetHeight(3)
	details.ShowLineNumbers = false

	return &taskForm{
		styles:  s,
		title:   title,
		date:    date,
		clock:   clock,
		details: details,
		color:   models.DefaultColor,
	}
}

func (f *taskForm) setWidth(w int) {
	f.details.SetWidth(w)
}

// startNew opens an empty form scheduled for the next full hour
func (f *taskForm) startNew(now time.Time) {
	next := now.Truncate(time.Hour).Add(time.Hour)
	f.open = true
	f.editingID = ""
	f.err = ""
	f.title.Reset()
	f.date.SetValue(next.Format(dateLayout))
	f.clock.SetValue(next.Format(timeLayout))
	f.details.Reset()
	f.color = models.DefaultColor
	f.offsets = nil
	f.offsetCursor = 0
	f.setFocus(fieldTitle)
}

func (f *taskForm) startEdit(t models.Task) {
	f.open = true
	f.editingID = t.ID
	f.err = ""
	f.title.SetValue(t.Title)
	local := t.ScheduledAt.Local()
	f.date.SetValue(local.Format(dateLayout))
	f.clock.SetValue(local.Format(timeLayout))
	f.details.SetValue(t.Details)
	f.color = t.Color
	if !f.color.Valid() {
		f.color = models.DefaultColor
	}
	f.offsets = append([]int(nil), t.ReminderOffsets...)
	f.offsetCursor = 0
	f.setFocus(fieldTitle)
}

func (f *taskForm) close() {
	f.open = false
	f.err = ""
	f.setFocus(fieldTitle)
	f.title.Blur()
}

func (f *taskForm) setFocus(field formField) {
	f.focus = field
	f.title.Blur()
	f.date.Blur()
	f.clock.Blur()
	f.details.Blur()

	switch field {
	case fieldTitle:
		f.title.Focus()
	case fieldDate:
		f.date.Focus()
	case fieldTime:
		f.clock.Focus()
	case fieldDetails:
		f.details.Focus()
	}
}

func (f *taskForm) hasOffset(m int) bool {
	for _, o := range f.offsets {
		if o == m {
			return true
		}
	}
	return false
}

func (f *taskForm) toggleOffset(m int) {
	for i, o := range f.offsets {
		if o == m {
			f.offsets = append(f.offsets[:i], f.offsets[i+1:]...)
			return
		}
	}
	f.offsets = append(f.offsets, m)
}

// input converts the form into a store input. Both date and time must be
// filled for the task to count as scheduled.
func (f *taskForm) input() (store.TaskInput, error) {
	in := store.TaskInput{
		Title:           f.title.Value(),
		Details:         f.details.Value(),
		Color:           f.color,
		ReminderOffsets: append([]int(nil), f.offsets...),
	}

	date := strings.TrimSpace(f.date.Value())
	clock := strings.TrimSpace(f.clock.Value())
	if date == "" || clock == "" {
		return in, nil
	}

	at, err := time.ParseInLocation(dateLayout+" "+timeLayout, date+" "+clock, time.Local)
	if err != nil {
		return in, fmt.Errorf("%w: date must look like 2026-01-31 and time like 09:30", store.ErrInvalidTask)
	}
	in.ScheduledAt = &at
	return in, nil
}

func (f *taskForm) update(msg tea.KeyMsg, km keys.KeyMap) tea.Cmd {
	switch {
	case key.Matches(msg, km.Tab):
		f.setFocus((f.focus + 1) % fieldCount)
		return nil

	case key.Matches(msg, km.ShiftTab):
		f.setFocus((f.focus + fieldCount - 1) % fieldCount)
		return nil

	case key.Matches(msg, km.Enter):
		// Enter on single-line fields moves on; details keeps newlines
		switch f.focus {
		case fieldTitle, fieldDate, fieldTime, fieldColor:
			f.setFocus(f.focus + 1)
			return nil
		case fieldReminders:
			f.toggleOffset(models.PresetOffsets[f.offsetCursor])
			return nil
		}
	}

	switch f.focus {
	case fieldTitle:
		var cmd tea.Cmd
		f.title, cmd = f.title.Update(msg)
		return cmd
	case fieldDate:
		var cmd tea.Cmd
		f.date, cmd = f.date.Update(msg)
		return cmd
	case fieldTime:
		var cmd tea.Cmd
		f.clock, cmd = f.clock.Update(msg)
		return cmd
	case fieldDetails:
		var cmd tea.Cmd
		f.details, cmd = f.details.Update(msg)
		return cmd
	case fieldColor:
		switch {
		case key.Matches(msg, km.Left), key.Matches(msg, km.Up):
			f.color = f.color.Next(-1)
		case key.Matches(msg, km.Right), key.Matches(msg, km.Down), key.Matches(msg, km.Toggle):
			f.color = f.color.Next(1)
		}
	case fieldReminders:
		switch {
		case key.Matches(msg, km.Up):
			if f.offsetCursor > 0 {
				f.offsetCursor--
			}
		case key.Matches(msg, km.Down):
			if f.offsetCursor < len(models.PresetOffsets)-1 {
				f.offsetCursor++
			}
		case key.Matches(msg, km.Toggle):
			f.toggleOffset(models.PresetOffsets[f.offsetCursor])
		}
	}
	return nil
}

func (v *TasksView) renderEditForm() string {
	f := v.form
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	formTitle := "New Task"
	if f.editingID != "" {
		formTitle = "Edit Task"
	}

	inputStyle := func(field formField) lipgloss.Style {
		if f.focus == field {
			return s.InputFocused
		}
		return s.Input
	}
	btnStyle := s.Button
	if f.focus == fieldSave {
		btnStyle = s.ButtonFocused
	}

	// Dynamic input width based on content width
	inputWidth := clamp(contentWidth-6, 20, 50)

	rows := []string{
		s.Title.Render(formTitle),
		"",
		"Title:",
		inputStyle(fieldTitle).Width(inputWidth).Render(f.title.View()),
		"",
		"When:",
		lipgloss.JoinHorizontal(lipgloss.Top,
			inputStyle(fieldDate).Width(14).Render(f.date.View()),
			" ",
			inputStyle(fieldTime).Width(9).Render(f.clock.View()),
		),
		"",
		"Details:",
		inputStyle(fieldDetails).Render(f.details.View()),
		"",
		"Color:",
		inputStyle(fieldColor).Width(inputWidth).Render(v.renderColorPicker()),
		"",
		"Remind me:",
		inputStyle(fieldReminders).Width(inputWidth).Render(v.renderOffsetPicker()),
		"",
		btnStyle.Render(" Save "),
	}
	if f.err != "" {
		rows = append(rows, "", s.StatusErr.Render(f.err))
	}
	rows = append(rows, "",
		s.TitleMuted.Render("Tab: next • ←/→: color • Space: toggle • Ctrl+S: save • Esc: cancel"))

	form := lipgloss.JoinVertical(lipgloss.Left, rows...)

	// Center within content width, then center that in terminal
	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TasksView) renderColorPicker() string {
	var swatches []string
	for _, c := range models.Palette {
		mark := "○"
		if c == v.form.color {
			mark = "●"
		}
		swatches = append(swatches, styles.TagColor(c).Render(mark))
	}
	return strings.Join(swatches, " ") + "  " + string(v.form.color)
}

func (v *TasksView) renderOffsetPicker() string {
	s := v.styles
	var items []string
	for i, m := range models.PresetOffsets {
		checkbox := "[ ]"
		if v.form.hasOffset(m) {
			checkbox = "[x]"
		}
		text := checkbox + " " + models.OffsetLabel(m) + " before"

		// Highlight current cursor position when the picker is focused
		if v.form.focus == fieldReminders && i == v.form.offsetCursor {
			items = append(items, s.ListSelected.Render(text))
		} else {
			items = append(items, s.ListItem.Render(text))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}
