package domain

import (
	"fmt"
	"strings"
	"time"
)

// WindowMode selects the time window of a report
type WindowMode string

const (
	WindowYesterday WindowMode = "yesterday"
	WindowToday     WindowMode = "today"
	WindowLast24h   WindowMode = "last24h"
)

// ParseWindowMode maps a config value to a mode; unknown values mean yesterday
func ParseWindowMode(s string) WindowMode {
	switch WindowMode(strings.ToLower(strings.TrimSpace(s))) {
	case WindowToday:
		return WindowToday
	case WindowLast24h:
		return WindowLast24h
	default:
		return WindowYesterday
	}
}

// ReportWindow is the time range a report covers
type ReportWindow struct {
	Mode  WindowMode
	Label string
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls in [Start, End]
func (w ReportWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// SelectWindow computes the report window for mode relative to now.
// Day boundaries are taken in now's location.
func SelectWindow(mode WindowMode, now time.Time) ReportWindow {
	loc := now.Location()
	switch mode {
	case WindowToday:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		return ReportWindow{
			Mode:  mode,
			Label: start.Format("2006/01/02") + "(本日)",
			Start: start,
			End:   now,
		}
	case WindowLast24h:
		start := now.Add(-24 * time.Hour)
		return ReportWindow{
			Mode:  mode,
			Label: fmt.Sprintf("%s–%s", start.Format("2006/01/02 15:04"), now.Format("01/02 15:04")),
			Start: start,
			End:   now,
		}
	default:
		y := now.AddDate(0, 0, -1)
		start := time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, loc)
		end := time.Date(y.Year(), y.Month(), y.Day(), 23, 59, 59, 0, loc)
		return ReportWindow{
			Mode:  WindowYesterday,
			Label: start.Format("2006/01/02"),
			Start: start,
			End:   end,
		}
	}
}

// Yesterday returns the "2006-01-02" date string of the day before now
func Yesterday(now time.Time) string {
	return now.AddDate(0, 0, -1).Format("2006-01-02")
}
