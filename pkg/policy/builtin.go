package policy

// GetBuiltinPolicies returns all built-in close controls.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		lockBeforeReconciliationsPolicy(),
		lateReviewPolicy(),
		blockedOnFinalDayPolicy(),
	}
}

// lockBeforeReconciliationsPolicy flags a period locked while reconciliations are open.
func lockBeforeReconciliationsPolicy() Policy {
	return Policy{
		Name:        "lock-before-reconciliations",
		Description: "The period must not be locked while any reconciliation is incomplete",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"controls", "reconciliation"},
		Source:      SourceBuiltin,
		Rego: `package closeflow.controls.lock

import rego.v1

deny contains violation if {
	some lock in input.progress.tasks
	lock.category == "CLOSE"
	lock.status == "COMPLETED"

	some rec in input.progress.tasks
	rec.category == "RECONCILIATION"
	rec.status != "COMPLETED"

	violation := {
		"message": sprintf("'%s' is completed while '%s' is %s", [lock.name, rec.name, rec.status]),
		"severity": "error",
		"task_id": rec.id,
		"remediation": "Reopen the period lock and finish the reconciliation",
	}
}
`,
	}
}

// lateReviewPolicy flags management review tasks that slipped past their due date.
func lateReviewPolicy() Policy {
	return Policy{
		Name:        "late-review",
		Description: "Review tasks must not run past their due date",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"controls", "review"},
		Source:      SourceBuiltin,
		Rego: `package closeflow.controls.review

import rego.v1

deny contains violation if {
	some task in input.progress.tasks
	task.category == "REVIEW"
	task.is_late

	violation := {
		"message": sprintf("'%s' was due %s and is %s", [task.name, task.due_date, task.status]),
		"severity": "warning",
		"task_id": task.id,
		"remediation": "Schedule the review with the controller today",
	}
}
`,
	}
}

// blockedOnFinalDayPolicy flags blocked tasks scheduled on the last close day.
func blockedOnFinalDayPolicy() Policy {
	return Policy{
		Name:        "blocked-on-final-day",
		Description: "Tasks scheduled on the final close day must not be blocked",
		Severity:    SeverityCritical,
		Enabled:     true,
		Tags:        []string{"controls", "schedule"},
		Source:      SourceBuiltin,
		Rego: `package closeflow.controls.schedule

import rego.v1

final_day := max({task.scheduled_day | some task in input.progress.tasks})

deny contains violation if {
	some task in input.blockers.blocked_tasks
	task.scheduled_day == final_day

	violation := {
		"message": sprintf("'%s' is blocked on the final close day (T+%d)", [task.name, task.scheduled_day]),
		"severity": "critical",
		"task_id": task.id,
		"remediation": "Escalate the blocking dependencies or move the target close date",
	}
}
`,
	}
}
