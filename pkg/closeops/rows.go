package closeops

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/ledgerworks/closeflow/pkg/engine"
)

const (
	// periodQuery resolves a period name to its identifier.
	periodQuery = `SELECT id FROM fiscal_periods WHERE period_name = ?`

	// progressQuery lists a period's tasks by day, then name.
	progressQuery = `
		SELECT ct.id, ct.task_name, ct.task_category, ct.scheduled_day, ct.status,
		       ct.due_date, ct.completed_at, ct.assigned_to, ct.dependency_task_ids, ct.notes
		FROM close_tasks ct
		JOIN fiscal_periods fp ON ct.fiscal_period_id = fp.id
		WHERE fp.period_name = ?
		ORDER BY ct.scheduled_day, ct.task_name`

	// blockersQuery lists a period's tasks by day, keeping insertion order within a day.
	blockersQuery = `
		SELECT ct.id, ct.task_name, ct.task_category, ct.scheduled_day, ct.status,
		       ct.due_date, ct.completed_at, ct.assigned_to, ct.dependency_task_ids, ct.notes
		FROM close_tasks ct
		JOIN fiscal_periods fp ON ct.fiscal_period_id = fp.id
		WHERE fp.period_name = ?
		ORDER BY ct.scheduled_day`
)

// Column names understood by decodeTaskRows. Aliases cover the short names
// some workspace schemas use.
var columnAliases = map[string]string{
	"id":                  "id",
	"task_name":           "name",
	"name":                "name",
	"task_category":       "category",
	"category":            "category",
	"scheduled_day":       "day",
	"day":                 "day",
	"status":              "status",
	"due_date":            "due_date",
	"completed_at":        "completed_at",
	"assigned_to":         "assigned_to",
	"dependency_task_ids": "dependencies",
	"notes":               "notes",
}

// requiredColumns must be present in every task result.
var requiredColumns = []string{"id", "name", "category", "day", "status"}

// decodeTaskRows maps a store result onto task rows by column name.
func decodeTaskRows(result *engine.QueryResult) ([]engine.TaskRow, error) {
	index := make(map[string]int, len(result.Columns))
	for i, col := range result.Columns {
		if key, ok := columnAliases[col]; ok {
			index[key] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, engine.NewInternalError(fmt.Sprintf("task result is missing column %q", col), nil)
		}
	}

	rows := make([]engine.TaskRow, 0, len(result.Rows))
	for n, values := range result.Rows {
		row, err := decodeTaskRow(index, values)
		if err != nil {
			return nil, engine.NewInternalError(fmt.Sprintf("malformed task row %d", n+1), err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeTaskRow(index map[string]int, values []interface{}) (engine.TaskRow, error) {
	get := func(key string) interface{} {
		i, ok := index[key]
		if !ok || i >= len(values) {
			return nil
		}
		return values[i]
	}

	var row engine.TaskRow
	var err error

	if row.ID, err = asString(get("id")); err != nil {
		return row, fmt.Errorf("id: %w", err)
	}
	if row.Name, err = asString(get("name")); err != nil {
		return row, fmt.Errorf("name: %w", err)
	}
	if row.Category, err = asString(get("category")); err != nil {
		return row, fmt.Errorf("category: %w", err)
	}
	if row.ScheduledDay, err = asInt(get("day")); err != nil {
		return row, fmt.Errorf("scheduled_day: %w", err)
	}

	status, err := asString(get("status"))
	if err != nil {
		return row, fmt.Errorf("status: %w", err)
	}
	if row.Status, err = engine.ParseTaskStatus(status); err != nil {
		return row, err
	}

	if due := optionalString(get("due_date")); due != nil {
		raw := *due
		if len(raw) > len(engine.DateLayout) {
			raw = raw[:len(engine.DateLayout)]
		}
		d, err := engine.ParseDate(raw)
		if err != nil {
			return row, fmt.Errorf("due_date: %w", err)
		}
		row.DueDate = &d
	}

	row.CompletedAt = optionalString(get("completed_at"))
	row.AssignedTo = optionalString(get("assigned_to"))
	row.Notes = optionalString(get("notes"))

	if row.DependencyIDs, err = asStringList(get("dependencies")); err != nil {
		return row, fmt.Errorf("dependency_task_ids: %w", err)
	}

	return row, nil
}

func asString(v interface{}) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case nil:
		return "", fmt.Errorf("unexpected null")
	default:
		return fmt.Sprint(x), nil
	}
}

func optionalString(v interface{}) *string {
	if v == nil {
		return nil
	}
	s, _ := asString(v)
	return &s
}

func asInt(v interface{}) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("non-integer value %v", x)
		}
		return int(x), nil
	case json.Number:
		n, err := x.Int64()
		return int(n), err
	case string:
		return strconv.Atoi(x)
	default:
		return 0, fmt.Errorf("unexpected value %v (%T)", v, v)
	}
}

// asStringList accepts a JSON array, its string encoding, or null.
func asStringList(v interface{}) ([]string, error) {
	switch x := v.(type) {
	case nil:
		return []string{}, nil
	case string:
		if x == "" {
			return []string{}, nil
		}
		var ids []string
		if err := json.Unmarshal([]byte(x), &ids); err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []string{}
		}
		return ids, nil
	case []string:
		return x, nil
	case []interface{}:
		ids := make([]string, 0, len(x))
		for _, item := range x {
			s, err := asString(item)
			if err != nil {
				return nil, err
			}
			ids = append(ids, s)
		}
		return ids, nil
	default:
		return nil, fmt.Errorf("unexpected value %v (%T)", v, v)
	}
}
