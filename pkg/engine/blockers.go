package engine

import (
	"fmt"
	"sort"
)

// blockedVolumeThreshold is the blocked-task count above which extra resources are recommended.
const blockedVolumeThreshold = 3

// reconciliationCategory is called out when reconciliation tasks are blocked.
const reconciliationCategory = "RECONCILIATION"

// BlockingTask is an incomplete dependency of a blocked task.
type BlockingTask struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Status TaskStatus `json:"status"`
}

// BlockedTask is a task marked BLOCKED together with its unresolved dependencies.
type BlockedTask struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Category      string         `json:"category"`
	ScheduledDay  int            `json:"scheduled_day"`
	Status        TaskStatus     `json:"status"`
	DependencyIDs []string       `json:"dependency_ids"`
	Notes         *string        `json:"notes"`
	BlockingTasks []BlockingTask `json:"blocking_tasks"`
	BlockerCount  int            `json:"blocker_count"`
}

// WaitingTask is a not-started task with incomplete dependencies.
// It is an annotation only; the task's status is left alone.
type WaitingTask struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	WaitingOn []string `json:"waiting_on"`
}

// CriticalBlocker is an incomplete task cited by more than one blocked task.
type CriticalBlocker struct {
	TaskID        string     `json:"task_id"`
	TaskName      string     `json:"task_name"`
	Status        TaskStatus `json:"status"`
	BlockingCount int        `json:"blocking_count"`
}

// BlockerReport is the blocker analysis for a close period.
type BlockerReport struct {
	Period           string            `json:"period"`
	BlockedTasks     []BlockedTask     `json:"blocked_tasks"`
	BlockedCount     int               `json:"blocked_count"`
	WaitingTasks     []WaitingTask     `json:"waiting_tasks"`
	CriticalBlockers []CriticalBlocker `json:"critical_blockers"`
	Recommendations  []string          `json:"recommendations"`
}

// IdentifyBlockers walks the dependency graph of a close instance.
//
// Only dependencies present in rows are considered; identifiers that do not
// resolve to a row are ignored. Rows keep their given order in the report.
func IdentifyBlockers(period string, rows []TaskRow) *BlockerReport {
	lookup := make(map[string]TaskRow, len(rows))
	for _, row := range rows {
		if _, exists := lookup[row.ID]; !exists {
			lookup[row.ID] = row
		}
	}

	report := &BlockerReport{
		Period:           period,
		BlockedTasks:     []BlockedTask{},
		WaitingTasks:     []WaitingTask{},
		CriticalBlockers: []CriticalBlocker{},
	}

	for _, row := range rows {
		switch row.Status {
		case TaskStatusBlocked:
			blocking := incompleteDependencies(row, lookup)
			deps := row.DependencyIDs
			if deps == nil {
				deps = []string{}
			}
			report.BlockedTasks = append(report.BlockedTasks, BlockedTask{
				ID:            row.ID,
				Name:          row.Name,
				Category:      row.Category,
				ScheduledDay:  row.ScheduledDay,
				Status:        row.Status,
				DependencyIDs: deps,
				Notes:         row.Notes,
				BlockingTasks: blocking,
				BlockerCount:  len(blocking),
			})

		case TaskStatusNotStarted:
			pending := incompleteDependencies(row, lookup)
			if len(pending) == 0 {
				continue
			}
			names := make([]string, len(pending))
			for i, p := range pending {
				names[i] = p.Name
			}
			report.WaitingTasks = append(report.WaitingTasks, WaitingTask{
				ID:        row.ID,
				Name:      row.Name,
				WaitingOn: names,
			})
		}
	}

	report.BlockedCount = len(report.BlockedTasks)
	report.CriticalBlockers = criticalBlockers(report.BlockedTasks, lookup)
	report.Recommendations = blockerRecommendations(report.BlockedTasks, report.CriticalBlockers)
	return report
}

// incompleteDependencies returns the resolvable dependencies of row that are not completed.
func incompleteDependencies(row TaskRow, lookup map[string]TaskRow) []BlockingTask {
	out := []BlockingTask{}
	for _, depID := range row.DependencyIDs {
		dep, ok := lookup[depID]
		if !ok || dep.Status.IsDone() {
			continue
		}
		out = append(out, BlockingTask{ID: dep.ID, Name: dep.Name, Status: dep.Status})
	}
	return out
}

// criticalBlockers counts how many distinct blocked tasks cite each blocker and
// keeps those cited more than once, most cited first. Ties keep first-citation order.
func criticalBlockers(blocked []BlockedTask, lookup map[string]TaskRow) []CriticalBlocker {
	counts := make(map[string]int)
	var order []string
	for _, task := range blocked {
		cited := make(map[string]bool, len(task.BlockingTasks))
		for _, b := range task.BlockingTasks {
			if cited[b.ID] {
				continue
			}
			cited[b.ID] = true
			if counts[b.ID] == 0 {
				order = append(order, b.ID)
			}
			counts[b.ID]++
		}
	}

	out := []CriticalBlocker{}
	for _, id := range order {
		if counts[id] <= 1 {
			continue
		}
		row := lookup[id]
		out = append(out, CriticalBlocker{
			TaskID:        id,
			TaskName:      row.Name,
			Status:        row.Status,
			BlockingCount: counts[id],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BlockingCount > out[j].BlockingCount
	})
	return out
}

func blockerRecommendations(blocked []BlockedTask, critical []CriticalBlocker) []string {
	var recs []string

	if len(critical) > 0 {
		top := critical[0]
		recs = append(recs, fmt.Sprintf("Priority: Complete '%s' - it is blocking %d other tasks",
			top.TaskName, top.BlockingCount))
	}

	if len(blocked) > blockedVolumeThreshold {
		recs = append(recs, "Consider parallel processing or additional resources to accelerate blocked tasks")
	}

	for _, task := range blocked {
		if task.Category == reconciliationCategory {
			recs = append(recs, "Multiple reconciliation tasks blocked - consider expediting data availability")
			break
		}
	}

	if len(recs) == 0 {
		recs = append(recs, "No significant blockers identified")
	}
	return recs
}
