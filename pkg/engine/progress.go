package engine

// Health thresholds.
const (
	// atRiskLateThreshold is the late-task count above which a close is at risk.
	atRiskLateThreshold = 3

	// attentionCompletionPct is the completion percentage below which a close needs attention.
	attentionCompletionPct = 50.0

	// targetCompletionPct is the informational completion target.
	targetCompletionPct = 80.0
)

// ProgressTask is a task row annotated with its lateness.
type ProgressTask struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Category     string     `json:"category"`
	ScheduledDay int        `json:"scheduled_day"`
	Status       TaskStatus `json:"status"`
	DueDate      *Date      `json:"due_date"`
	CompletedAt  *string    `json:"completed_at"`
	AssignedTo   *string    `json:"assigned_to"`
	IsLate       bool       `json:"is_late"`
}

// ProgressCounts holds the status counts and completion percentage.
type ProgressCounts struct {
	TotalTasks           int     `json:"total_tasks"`
	Completed            int     `json:"completed"`
	InProgress           int     `json:"in_progress"`
	NotStarted           int     `json:"not_started"`
	Blocked              int     `json:"blocked"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

// RiskFactors are the inputs behind a health verdict.
type RiskFactors struct {
	BlockedTasks          int  `json:"blocked_tasks"`
	LateTasks             int  `json:"late_tasks"`
	CompletionBelowTarget bool `json:"completion_below_target"`
}

// Health is the overall verdict for a close period.
type Health struct {
	Status      HealthStatus `json:"status"`
	Message     string       `json:"message"`
	RiskFactors RiskFactors  `json:"risk_factors"`
}

// Progress is the completion report for a close period.
type Progress struct {
	Period          string         `json:"period"`
	Progress        ProgressCounts `json:"progress"`
	StatusBreakdown map[string]int `json:"status_breakdown"`
	LateTasks       []ProgressTask `json:"late_tasks"`
	LateTaskCount   int            `json:"late_task_count"`
	Tasks           []ProgressTask `json:"tasks"`
	Health          Health         `json:"health"`
}

// GetProgress aggregates task rows into completion metrics and a health verdict.
// A task is late when its due date is before today and it is not completed.
func GetProgress(period string, rows []TaskRow, today Date) *Progress {
	breakdown := make(map[string]int, len(AllTaskStatuses))
	for _, s := range AllTaskStatuses {
		breakdown[string(s)] = 0
	}

	p := &Progress{
		Period:          period,
		StatusBreakdown: breakdown,
		LateTasks:       []ProgressTask{},
		Tasks:           make([]ProgressTask, 0, len(rows)),
	}

	for _, row := range rows {
		breakdown[string(row.Status)]++

		task := ProgressTask{
			ID:           row.ID,
			Name:         row.Name,
			Category:     row.Category,
			ScheduledDay: row.ScheduledDay,
			Status:       row.Status,
			DueDate:      row.DueDate,
			CompletedAt:  row.CompletedAt,
			AssignedTo:   row.AssignedTo,
			IsLate:       isLate(row, today),
		}
		p.Tasks = append(p.Tasks, task)
		if task.IsLate {
			p.LateTasks = append(p.LateTasks, task)
		}
	}

	total := len(rows)
	completed := breakdown[string(TaskStatusCompleted)]
	p.Progress = ProgressCounts{
		TotalTasks:           total,
		Completed:            completed,
		InProgress:           breakdown[string(TaskStatusInProgress)],
		NotStarted:           breakdown[string(TaskStatusNotStarted)],
		Blocked:              breakdown[string(TaskStatusBlocked)],
		CompletionPercentage: CompletionPercentage(completed, total),
	}
	p.LateTaskCount = len(p.LateTasks)
	p.Health = AssessHealth(p.Progress.Blocked, p.LateTaskCount, total, p.Progress.CompletionPercentage)
	return p
}

func isLate(row TaskRow, today Date) bool {
	return row.DueDate != nil && row.DueDate.Before(today) && row.Status != TaskStatusCompleted
}

// CompletionPercentage returns completed/total*100, or 0 when total is 0.
func CompletionPercentage(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// AssessHealth derives the health verdict. Rules apply in priority order:
// blocked tasks or more than three late tasks put the close at risk; any late
// task or completion under half needs attention; otherwise it is on track.
//
// A period with no tasks has nothing behind schedule and is on track.
func AssessHealth(blocked, late, total int, completionPct float64) Health {
	h := Health{
		RiskFactors: RiskFactors{
			BlockedTasks:          blocked,
			LateTasks:             late,
			CompletionBelowTarget: completionPct < targetCompletionPct,
		},
	}

	switch {
	case blocked > 0 || late > atRiskLateThreshold:
		h.Status = HealthAtRisk
	case late > 0 || (total > 0 && completionPct < attentionCompletionPct):
		h.Status = HealthNeedsAttention
	default:
		h.Status = HealthOnTrack
	}
	h.Message = h.Status.Message()
	return h
}
