package closeops

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ledgerworks/closeflow/pkg/engine"
)

// Operation names accepted in the invocation input.
const (
	OpInitializeCloseTasks  = "initialize_close_tasks"
	OpUpdateTaskStatus      = "update_task_status"
	OpGetCloseProgress      = "get_close_progress"
	OpIdentifyBlockers      = "identify_blockers"
	OpGenerateCloseCalendar = "generate_close_calendar"
	OpGetCriticalPath       = "get_critical_path"
)

// Operations lists every operation in the order they are advertised.
var Operations = []string{
	OpInitializeCloseTasks,
	OpUpdateTaskStatus,
	OpGetCloseProgress,
	OpIdentifyBlockers,
	OpGenerateCloseCalendar,
	OpGetCriticalPath,
}

type operationHeader struct {
	Operation string `json:"operation"`
}

// Dispatch routes an operation input to its handler and returns the
// operation name together with its result.
func (s *Service) Dispatch(ctx context.Context, input json.RawMessage) (string, interface{}, error) {
	var header operationHeader
	if len(input) > 0 {
		if err := json.Unmarshal(input, &header); err != nil {
			return "", nil, engine.NewValidationError("invalid input", err)
		}
	}
	if header.Operation == "" {
		return "", nil, engine.NewValidationError("Missing required field: operation", nil).
			WithCode(engine.ErrCodeMissingField)
	}

	op := header.Operation
	var (
		result interface{}
		err    error
	)

	switch op {
	case OpInitializeCloseTasks:
		var p InitializeParams
		if err = decodeParams(input, &p); err == nil {
			result, err = s.InitializeCloseTasks(ctx, p)
		}
	case OpUpdateTaskStatus:
		var p UpdateStatusParams
		if err = decodeParams(input, &p); err == nil {
			result, err = s.UpdateTaskStatus(ctx, p)
		}
	case OpGetCloseProgress:
		var p PeriodParams
		if err = decodeParams(input, &p); err == nil {
			result, err = s.GetCloseProgress(ctx, p)
		}
	case OpIdentifyBlockers:
		var p PeriodParams
		if err = decodeParams(input, &p); err == nil {
			result, err = s.IdentifyBlockers(ctx, p)
		}
	case OpGenerateCloseCalendar:
		var p CalendarParams
		if err = decodeParams(input, &p); err == nil {
			result, err = s.GenerateCloseCalendar(ctx, p)
		}
	case OpGetCriticalPath:
		var p PeriodParams
		if err = decodeParams(input, &p); err == nil {
			result, err = s.GetCriticalPath(ctx, p)
		}
	default:
		return op, nil, engine.NewValidationError(
			fmt.Sprintf("Unknown operation: %s. Valid operations: %s", op, strings.Join(Operations, ", ")), nil).
			WithDetail("operation", op)
	}

	if err != nil {
		return op, nil, err
	}
	return op, result, nil
}
