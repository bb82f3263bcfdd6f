package models

import (
	"fmt"
	"time"
)

// Color is a named entry of the fixed task color palette
type Color string

const (
	ColorBlue   Color = "blue"
	ColorPurple Color = "purple"
	ColorCyan   Color = "cyan"
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorRed    Color = "red"
)

// Palette lists every color a task can carry, in display order.
// The first entry is the default.
var Palette = []Color{ColorBlue, ColorPurple, ColorCyan, ColorGreen, ColorYellow, ColorRed}

// DefaultColor is the color given to tasks created without one
var DefaultColor = Palette[0]

var paletteHex = map[Color]string{
	ColorBlue:   "#7aa2f7",
	ColorPurple: "#bb9af7",
	ColorCyan:   "#7dcfff",
	ColorGreen:  "#9ece6a",
	ColorYellow: "#e0af68",
	ColorRed:    "#f7768e",
}

// Valid reports whether c is part of the palette
func (c Color) Valid() bool {
	_, ok := paletteHex[c]
	return ok
}

// Hex returns the hex value used to render c, falling back to the default color
func (c Color) Hex() string {
	if hex, ok := paletteHex[c]; ok {
		return hex
	}
	return paletteHex[DefaultColor]
}

// Next returns the palette entry after c, wrapping around. dir may be negative.
func (c Color) Next(dir int) Color {
	idx := 0
	for i, p := range Palette {
		if p == c {
			idx = i
			break
		}
	}
	n := len(Palette)
	return Palette[((idx+dir)%n+n)%n]
}

// PresetOffsets are the reminder offsets, in minutes, offered by the editor
var PresetOffsets = []int{15, 30, 60, 120, 1440}

// OffsetLabel renders a reminder offset for humans
func OffsetLabel(minutes int) string {
	switch {
	case minutes > 0 && minutes%1440 == 0:
		if minutes == 1440 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", minutes/1440)
	case minutes > 0 && minutes%60 == 0:
		if minutes == 60 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", minutes/60)
	case minutes == 1:
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

// Task is a single scheduled item with reminders
type Task struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	ScheduledAt     time.Time  `json:"scheduledAt"`
	Details         string     `json:"details"`
	Color           Color      `json:"colorTag"`
	ReminderOffsets []int      `json:"reminderOffsets"`
	IsCompleted     bool       `json:"isCompleted"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	FiredOffsets    []int      `json:"firedOffsets,omitempty"` // only used by the "once" reminder policy
}

// ReminderAt returns the instant at which the reminder for offset fires
func (t Task) ReminderAt(offset int) time.Time {
	return t.ScheduledAt.Add(-time.Duration(offset) * time.Minute)
}

// HasFired reports whether offset was already recorded as fired
func (t Task) HasFired(offset int) bool {
	for _, m := range t.FiredOffsets {
		if m == offset {
			return true
		}
	}
	return false
}

// HasOffset reports whether the task carries a reminder at offset
func (t Task) HasOffset(offset int) bool {
	for _, m := range t.ReminderOffsets {
		if m == offset {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of t
func (t Task) Clone() Task {
	c := t
	c.ReminderOffsets = cloneInts(t.ReminderOffsets)
	c.FiredOffsets = cloneInts(t.FiredOffsets)
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return c
}

func cloneInts(src []int) []int {
	if src == nil {
		return nil
	}
	dst := make([]int, len(src))
	copy(dst, src)
	return dst
}

// UniqueOffsets drops duplicate offsets, keeping first-seen order
func UniqueOffsets(offsets []int) []int {
	out := make([]int, 0, len(offsets))
	seen := make(map[int]bool, len(offsets))
	for _, m := range offsets {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
