package stores

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// InlineArgs renders a parameterized statement as a self-contained one by
// replacing each ? placeholder outside quoted text with the SQL literal of the
// matching argument. Strings are single-quoted with embedded quotes doubled.
func InlineArgs(statement string, args ...interface{}) (string, error) {
	if len(args) == 0 {
		return statement, nil
	}

	var b strings.Builder
	b.Grow(len(statement) + 16*len(args))

	next := 0
	var quote rune
	for _, r := range statement {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '?':
			if next >= len(args) {
				return "", fmt.Errorf("statement has more placeholders than the %d arguments given", len(args))
			}
			lit, err := sqlLiteral(args[next])
			if err != nil {
				return "", fmt.Errorf("argument %d: %w", next+1, err)
			}
			b.WriteString(lit)
			next++
			continue
		}
		b.WriteRune(r)
	}

	if next != len(args) {
		return "", fmt.Errorf("statement has %d placeholders for %d arguments", next, len(args))
	}
	return b.String(), nil
}

func sqlLiteral(v interface{}) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return quoteString(x), nil
	case *string:
		if x == nil {
			return "NULL", nil
		}
		return quoteString(*x), nil
	case []byte:
		return quoteString(string(x)), nil
	case bool:
		if x {
			return "1", nil
		}
		return "0", nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", fmt.Errorf("non-finite number %v", x)
		}
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case time.Time:
		return quoteString(x.UTC().Format(time.RFC3339)), nil
	case fmt.Stringer:
		return quoteString(x.String()), nil
	default:
		return "", fmt.Errorf("unsupported argument type %T", v)
	}
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
