package policy

import (
	"time"

	"github.com/ledgerworks/closeflow/pkg/engine"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError is for control breaches that must be fixed before sign-off.
	SeverityError Severity = "error"

	// SeverityCritical is for breaches that put the close date at risk.
	SeverityCritical Severity = "critical"
)

// SourceBuiltin marks policies compiled into the binary.
const SourceBuiltin = "builtin"

// Policy represents a close-control rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code. It must define a deny set.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Source is SourceBuiltin or the file the policy was loaded from.
	Source string `json:"source,omitempty"`
}

// PolicyViolation represents a single policy violation.
type PolicyViolation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// TaskID is the task the violation is about, if any.
	TaskID string `json:"task_id,omitempty"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`

	// Remediation provides a suggested fix.
	Remediation string `json:"remediation,omitempty"`
}

// PolicyResult represents the result of policy evaluation.
type PolicyResult struct {
	// Allowed is false when any violation is error or critical.
	Allowed bool `json:"allowed"`

	// Violations lists all policy violations.
	Violations []PolicyViolation `json:"violations"`

	// Errors lists policies that failed to evaluate.
	Errors []string `json:"errors,omitempty"`

	// EvaluatedAt is when the policies were evaluated.
	EvaluatedAt time.Time `json:"evaluated_at"`

	// EvaluatedPolicies lists the names of policies that were evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// PolicyInput is the document policies see as input.
type PolicyInput struct {
	// Period is the close period under evaluation.
	Period string `json:"period"`

	// Today is the evaluation date (YYYY-MM-DD).
	Today string `json:"today"`

	// Progress is the progress report for the period.
	Progress *engine.Progress `json:"progress,omitempty"`

	// Blockers is the blocker report for the period.
	Blockers *engine.BlockerReport `json:"blockers,omitempty"`

	// Context provides additional evaluation context.
	Context *PolicyContext `json:"context"`
}

// PolicyContext provides context information for policy evaluation.
type PolicyContext struct {
	// Operation is the close operation being performed (e.g., "get_close_progress").
	Operation string `json:"operation,omitempty"`

	// Environment is the deployment environment (e.g., "production").
	Environment string `json:"environment,omitempty"`

	// Timestamp is when the evaluation is occurring.
	Timestamp time.Time `json:"timestamp"`

	// Metadata contains additional context metadata.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// PolicyBundle represents a collection of related policies shipped as one JSON file.
type PolicyBundle struct {
	// Name is the unique name of the bundle.
	Name string `json:"name"`

	// Version is the bundle version.
	Version string `json:"version"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Policies are the policies in this bundle.
	Policies []Policy `json:"policies"`
}

// CountBySeverity tallies violations per severity.
func (r *PolicyResult) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	if r == nil {
		return counts
	}
	for i := range r.Violations {
		counts[r.Violations[i].Severity]++
	}
	return counts
}
