package harness

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/roach88/dbfuel/internal/pipeline"
	"github.com/roach88/dbfuel/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Output   []string // Captured output for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Output) > 0 {
		fmt.Fprintf(&buf, "\nOutput:\n")
		for _, line := range e.Output {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Ctx     context.Context
	Store   *store.Store
	Payload *pipeline.Payload
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database and payload access.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertOutputContains:
			err = assertOutputContains(result.Output, assertion)
		case AssertOutputOrder:
			err = assertOutputOrder(result.Output, assertion)
		case AssertRegisterCount:
			if actx == nil || actx.Payload == nil {
				err = fmt.Errorf("assertion[%d]: register_count requires a payload", i)
			} else {
				err = assertRegisterCount(actx.Payload, assertion)
			}
		case AssertRowCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: row_count requires database context", i)
			} else {
				err = assertRowCount(actx.Ctx, actx.Store, assertion)
			}
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires database context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertOutputContains checks that some output line contains the text.
func assertOutputContains(output []string, assertion Assertion) error {
	for _, line := range output {
		if strings.Contains(line, assertion.Line) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertOutputContains,
		Expected: fmt.Sprintf("output line containing %q", assertion.Line),
		Actual:   "no matching line",
		Output:   output,
	}
}

// assertOutputOrder checks that each text appears on a later line than the
// one before it.
func assertOutputOrder(output []string, assertion Assertion) error {
	next := 0
	for _, want := range assertion.Lines {
		found := false
		for next < len(output) {
			line := output[next]
			next++
			if strings.Contains(line, want) {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertOutputOrder,
				Expected: fmt.Sprintf("lines in order: %q", assertion.Lines),
				Actual:   fmt.Sprintf("%q not found after the previous match", want),
				Output:   output,
			}
		}
	}
	return nil
}

// assertRegisterCount checks the number of rows a register holds.
func assertRegisterCount(payload *pipeline.Payload, assertion Assertion) error {
	rows, err := payload.Rows(assertion.Register)
	if err != nil {
		return &AssertionError{
			Type:     AssertRegisterCount,
			Expected: fmt.Sprintf("register %s to hold rows", assertion.Register),
			Actual:   err.Error(),
		}
	}
	if len(rows) != assertion.Count {
		return &AssertionError{
			Type:     AssertRegisterCount,
			Expected: fmt.Sprintf("%d row(s) in register %s", assertion.Count, assertion.Register),
			Actual:   fmt.Sprintf("%d row(s)", len(rows)),
		}
	}
	return nil
}

// assertRowCount counts the rows of a table matching where.
func assertRowCount(ctx context.Context, st *store.Store, assertion Assertion) error {
	query, args, err := selectQuery(st, "COUNT(*) AS n", assertion)
	if err != nil {
		return err
	}

	rows, err := store.QueryRows(ctx, st, query, args...)
	if err != nil {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	var n int64
	if len(rows) == 1 {
		n, _ = rows[0]["n"].(int64)
	}
	if n != int64(assertion.Count) {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d row(s) in %s where %s", assertion.Count, assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   fmt.Sprintf("%d row(s)", n),
		}
	}
	return nil
}

// assertFinalState checks that exactly one row matches where and carries
// the expected values (subset semantics).
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	query, args, err := selectQuery(st, "*", assertion)
	if err != nil {
		return err
	}

	rows, err := store.QueryRows(ctx, st, query, args...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	whereDesc := formatWhereClause(assertion.Where)
	switch len(rows) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, whereDesc),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, whereDesc),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := rows[0]
	for _, key := range sortedKeys(assertion.Expect) {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, sortedKeys(actualRow)),
			}
		}

		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}

	return nil
}

// selectQuery builds "SELECT <what> FROM table [WHERE ...]" for an
// assertion. Table and column names are validated since identifiers can't
// be parameterized.
func selectQuery(st *store.Store, what string, assertion Assertion) (string, []any, error) {
	if !validIdentifier.MatchString(assertion.Table) {
		return "", nil, fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(st, assertion.Where)
	if err != nil {
		return "", nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s", what, st.Dialect().QuoteIdent(assertion.Table))
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}
	return query, whereArgs, nil
}

// buildWhereClause constructs a parameterized WHERE clause. Keys are sorted
// for determinism; nil values compare with IS NULL.
func buildWhereClause(st *store.Store, where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	d := st.Dialect()
	clauses := make([]string, 0, len(where))
	args := make([]any, 0, len(where))

	for _, key := range sortedKeys(where) {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		if where[key] == nil {
			clauses = append(clauses, fmt.Sprintf("%s IS NULL", d.QuoteIdent(key)))
			continue
		}
		args = append(args, where[key])
		clauses = append(clauses, fmt.Sprintf("%s = %s", d.QuoteIdent(key), d.Placeholder(len(args))))
	}

	return strings.Join(clauses, " AND "), args, nil
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares a YAML value with a scanned column value.
// SQLite returns int64 for integers and time.Time for DATETIME columns.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if exp, ok := toInt64(expected); ok {
		if act, ok := toInt64(actual); ok {
			return exp == act
		}
		if act, ok := actual.(float64); ok {
			return float64(exp) == act
		}
		return false
	}

	switch exp := expected.(type) {
	case string:
		switch act := actual.(type) {
		case string:
			return exp == act
		case time.Time:
			return timeMatches(exp, act)
		}
		return false
	case bool:
		if act, ok := actual.(bool); ok {
			return exp == act
		}
		// SQLite stores booleans as integers
		if act, ok := actual.(int64); ok {
			return exp == (act != 0)
		}
		return false
	case float64:
		if act, ok := actual.(float64); ok {
			return exp == act
		}
		if act, ok := toInt64(actual); ok {
			return exp == float64(act)
		}
		return false
	case time.Time:
		if act, ok := actual.(time.Time); ok {
			return exp.Equal(act)
		}
		return false
	}

	return reflect.DeepEqual(expected, actual)
}

// timeMatches compares an RFC 3339 string with a scanned time.
func timeMatches(expected string, actual time.Time) bool {
	t, err := time.Parse(time.RFC3339Nano, expected)
	if err != nil {
		return false
	}
	return t.Equal(actual)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
