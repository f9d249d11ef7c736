package closeops

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ledgerworks/closeflow/pkg/engine"
)

// InitializeParams are the inputs of initialize_close_tasks.
type InitializeParams struct {
	Period        string            `json:"period" validate:"required"`
	PeriodEndDate string            `json:"period_end_date" validate:"required"`
	CloseDays     *int              `json:"close_days,omitempty"`
	Assignees     map[string]string `json:"assignees,omitempty"`
}

// UpdateStatusParams are the inputs of update_task_status.
type UpdateStatusParams struct {
	TaskID      string  `json:"task_id" validate:"required"`
	NewStatus   string  `json:"new_status" validate:"required"`
	Notes       *string `json:"notes,omitempty"`
	CompletedBy *string `json:"completed_by,omitempty"`
}

// PeriodParams are the inputs of the period-scoped read operations.
type PeriodParams struct {
	Period string `json:"period" validate:"required"`
}

// CalendarParams are the inputs of generate_close_calendar.
type CalendarParams struct {
	Period        string `json:"period" validate:"required"`
	PeriodEndDate string `json:"period_end_date" validate:"required"`
	CloseDays     *int   `json:"close_days,omitempty"`
}

// closeDaysOrDefault returns the requested close length or the default.
func closeDaysOrDefault(days *int) int {
	if days == nil {
		return engine.DefaultCloseDays
	}
	return *days
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeParams unmarshals the operation input into dst and checks required fields.
func decodeParams(raw json.RawMessage, dst interface{}) error {
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, dst); err != nil {
			return engine.NewValidationError("invalid input", err)
		}
	}
	return validateParams(dst)
}

// validateParams reports every missing required field in one error.
func validateParams(params interface{}) error {
	err := validate.Struct(params)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return engine.NewValidationError("invalid input", err)
	}

	var missing, invalid []string
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		invalid = append(invalid, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}

	if len(missing) > 0 {
		return engine.NewValidationError(
			fmt.Sprintf("Missing required fields: %s", strings.Join(missing, ", ")), nil).
			WithCode(engine.ErrCodeMissingField)
	}
	return engine.NewValidationError(fmt.Sprintf("Invalid fields: %s", strings.Join(invalid, ", ")), nil)
}
