package engine

import (
	"fmt"
	"strings"
)

// milestones are the key checkpoints of each close day.
var milestones = map[int][]string{
	1: {"All subledgers processed", "Payroll entries posted"},
	2: {"Bank reconciliation complete", "Revenue recognized"},
	3: {"All balance sheet accounts reconciled", "Preliminary TB ready"},
	4: {"Tax provision booked", "Draft financials ready for review"},
	5: {"Hard close complete", "Reporting package distributed"},
}

// dependencyPreview caps how many dependencies the text calendar lists per task.
const dependencyPreview = 2

// CalendarTask is a task line on the close calendar.
type CalendarTask struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Dependencies []string `json:"dependencies"`
}

// CalendarDay is one day block of the close calendar.
type CalendarDay struct {
	Day        string         `json:"day"`
	Date       Date           `json:"date"`
	DayOfWeek  string         `json:"day_of_week"`
	TaskCount  int            `json:"task_count"`
	Tasks      []CalendarTask `json:"tasks"`
	Milestones []string       `json:"milestones"`
}

// CloseCalendar is the day-by-day close schedule for a period.
type CloseCalendar struct {
	Period          string        `json:"period"`
	PeriodEndDate   Date          `json:"period_end_date"`
	CloseStartDate  Date          `json:"close_start_date"`
	TargetCloseDate Date          `json:"target_close_date"`
	Days            []CalendarDay `json:"days"`
	TextFormat      string        `json:"text_format"`
}

// BuildCalendar lays the catalog onto business days after periodEndDate.
func BuildCalendar(catalog *Catalog, period, periodEndDate string, closeDays int) (*CloseCalendar, error) {
	end, err := ParseDate(periodEndDate)
	if err != nil {
		return nil, NewValidationError("invalid period_end_date", err).
			WithCode(ErrCodeInvalidDate).
			WithPeriod(period)
	}
	if closeDays < 1 {
		return nil, NewValidationError(fmt.Sprintf("close_days must be at least 1, got %d", closeDays), nil).
			WithPeriod(period)
	}

	days := ComputeBusinessDays(end, closeDays)
	start, _ := days.Date(1)
	target, _ := days.Last()

	cal := &CloseCalendar{
		Period:          period,
		PeriodEndDate:   end,
		CloseStartDate:  start,
		TargetCloseDate: target,
		Days:            make([]CalendarDay, 0, closeDays),
	}
	for day := 1; day <= closeDays; day++ {
		date, _ := days.Date(day)
		templates := catalog.TemplatesOnDay(day)

		entry := CalendarDay{
			Day:        DayLabel(day),
			Date:       date,
			DayOfWeek:  date.Weekday().String(),
			TaskCount:  len(templates),
			Tasks:      make([]CalendarTask, 0, len(templates)),
			Milestones: DayMilestones(day),
		}
		for _, t := range templates {
			entry.Tasks = append(entry.Tasks, CalendarTask{
				Name:         t.Name,
				Category:     t.Category,
				Dependencies: t.DependsOn,
			})
		}
		cal.Days = append(cal.Days, entry)
	}

	cal.TextFormat = RenderText(cal)
	return cal, nil
}

// DayMilestones returns the milestones for a close day, or an empty list.
func DayMilestones(day int) []string {
	return append([]string{}, milestones[day]...)
}

// RenderText formats a close calendar as a plain-text checklist.
func RenderText(cal *CloseCalendar) string {
	lines := []string{
		fmt.Sprintf("CLOSE CALENDAR: %s", cal.Period),
		fmt.Sprintf("Period End: %s", cal.PeriodEndDate),
		fmt.Sprintf("Target Close: %s", cal.TargetCloseDate),
		strings.Repeat("=", 70),
		"",
	}

	for _, day := range cal.Days {
		lines = append(lines,
			fmt.Sprintf("%s - %s (%s)", day.Day, day.Date, day.DayOfWeek),
			strings.Repeat("-", 40),
		)

		for _, task := range day.Tasks {
			lines = append(lines, fmt.Sprintf("  [ ] %s", task.Name))
			if len(task.Dependencies) > 0 {
				deps := task.Dependencies
				if len(deps) > dependencyPreview {
					deps = deps[:dependencyPreview]
				}
				lines = append(lines, fmt.Sprintf("      Depends on: %s", strings.Join(deps, ", ")))
			}
		}

		if len(day.Milestones) > 0 {
			lines = append(lines, fmt.Sprintf("  Milestones: %s", strings.Join(day.Milestones, ", ")))
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
