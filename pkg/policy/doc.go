// Package policy evaluates close controls written in Rego with Open Policy Agent.
//
// Each policy defines a deny set. The engine evaluates every enabled policy
// against a PolicyInput holding the period's progress and blocker reports and
// collects the entries as violations. An entry may be a plain string or an
// object with message, severity, task_id and remediation fields.
//
// Built-in controls:
//
//   - lock-before-reconciliations: the period lock is completed while a
//     reconciliation is still open (error)
//   - late-review: a REVIEW task is past its due date (warning)
//   - blocked-on-final-day: a task due on the last close day is blocked (critical)
//
// Violations are advisory. They are reported next to progress and blocker
// results and never change the health verdict.
//
// # Usage
//
//	eng, err := policy.NewEngine(logger)
//	if err != nil {
//	    return err
//	}
//	if err := eng.LoadPolicies(ctx, []string{"./policies"}); err != nil {
//	    return err
//	}
//
//	result, err := eng.Evaluate(ctx, &policy.PolicyInput{
//	    Period:   "2025-01",
//	    Today:    today.String(),
//	    Progress: progress,
//	    Blockers: blockers,
//	})
//
// Custom policies are .rego files (named after the file, warning severity) or
// .json files holding one policy or a bundle. Loader.Watch reloads them on
// change:
//
//	loader := policy.NewLoader(logger)
//	err := loader.Watch(ctx, dirs, func(p []policy.Policy) error {
//	    return eng.ReplaceCustomPolicies(ctx, p)
//	})
package policy
