package engine

// accelerationOpportunities are the standing suggestions for shortening a close.
var accelerationOpportunities = []string{
	"Automate depreciation and amortization entries",
	"Pre-reconcile accounts during the month",
	"Implement continuous close practices",
	"Parallel process independent reconciliations",
}

// AccelerationOpportunities returns a copy of the standing suggestions for
// shortening a close.
func AccelerationOpportunities() []string {
	return append([]string{}, accelerationOpportunities...)
}

// CriticalPathTask is one step of the critical path.
type CriticalPathTask struct {
	Sequence     int    `json:"sequence"`
	TaskName     string `json:"task_name"`
	ScheduledDay int    `json:"scheduled_day"`
	Category     string `json:"category"`
}

// CriticalPathReport describes the longest dependency chain through the catalog.
//
// Length is measured in tasks, not elapsed time.
type CriticalPathReport struct {
	Period                    string             `json:"period"`
	CriticalPath              []string           `json:"critical_path"`
	PathLength                int                `json:"path_length"`
	MinimumCloseDays          int                `json:"minimum_close_days"`
	CriticalPathTasks         []CriticalPathTask `json:"critical_path_tasks"`
	AccelerationOpportunities []string           `json:"acceleration_opportunities"`
}

// CriticalPath computes the longest dependency chain ending at a template on
// the catalog's final day. The period is only echoed; the result depends on
// the catalog alone.
//
// When several chains tie, the first one found wins: final-day templates are
// tried in catalog order and dependencies in declared order.
func (c *Catalog) CriticalPath(period string) *CriticalPathReport {
	memo := make(map[string][]string, len(c.templates))

	var longest []string
	for _, t := range c.templates {
		if t.Day != c.maxDay {
			continue
		}
		if path := c.longestTrace(t.Name, memo); len(path) > len(longest) {
			longest = path
		}
	}

	report := &CriticalPathReport{
		Period:                    period,
		CriticalPath:              append([]string{}, longest...),
		PathLength:                len(longest),
		MinimumCloseDays:          c.maxDay,
		CriticalPathTasks:         make([]CriticalPathTask, 0, len(longest)),
		AccelerationOpportunities: AccelerationOpportunities(),
	}
	for i, name := range longest {
		t := c.templates[c.index[name]]
		report.CriticalPathTasks = append(report.CriticalPathTasks, CriticalPathTask{
			Sequence:     i + 1,
			TaskName:     t.Name,
			ScheduledDay: t.Day,
			Category:     t.Category,
		})
	}
	return report
}

// longestTrace returns the longest chain of dependencies ending at name, root first.
// Results are memoized per template; the catalog is acyclic so recursion terminates.
func (c *Catalog) longestTrace(name string, memo map[string][]string) []string {
	if path, ok := memo[name]; ok {
		return path
	}

	var longestDep []string
	for _, dep := range c.templates[c.index[name]].DependsOn {
		if path := c.longestTrace(dep, memo); len(path) > len(longestDep) {
			longestDep = path
		}
	}

	path := make([]string, 0, len(longestDep)+1)
	path = append(path, longestDep...)
	path = append(path, name)
	memo[name] = path
	return path
}
