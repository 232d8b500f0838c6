// Package querysql compiles queryir Select nodes into parameterized SQL for
// a target dialect.
package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/dbfuel/internal/dialect"
	"github.com/roach88/dbfuel/internal/queryir"
)

// SQLCompiler compiles queryir to parameterized SQL for one dialect.
//
// All values are bound as parameters, never interpolated.
type SQLCompiler struct {
	dialect dialect.Dialect
}

// NewSQLCompiler creates a compiler for the given dialect.
func NewSQLCompiler(d dialect.Dialect) *SQLCompiler {
	return &SQLCompiler{dialect: d}
}

// Dialect returns the target dialect.
func (c *SQLCompiler) Dialect() dialect.Dialect {
	return c.dialect
}

// CompileQuery lowers a model and query and compiles the result.
func (c *SQLCompiler) CompileQuery(m queryir.Model, q queryir.Query) (string, []any, error) {
	sel, err := q.Select(m)
	if err != nil {
		return "", nil, err
	}
	return c.Compile(sel)
}

// Compile converts a Select to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(sel queryir.Select) (string, []any, error) {
	if sel.From == "" {
		return "", nil, fmt.Errorf("cannot compile select without a source table")
	}

	st := &compileState{c: c}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(c.compileColumns(sel.Columns))
	sb.WriteString(" FROM ")
	sb.WriteString(c.dialect.QuoteIdent(sel.From))

	if sel.Filter != nil {
		where, err := st.compilePredicate(sel.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}

	if len(sel.OrderBy) > 0 {
		terms := make([]string, len(sel.OrderBy))
		for i, o := range sel.OrderBy {
			dir := "ASC"
			if o.Descending {
				dir = "DESC"
			}
			terms[i] = c.dialect.QuoteIdent(o.Column) + " " + dir
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}

	if sel.Limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(sel.Limit))
	}

	return sb.String(), st.params, nil
}

// compileColumns renders the select list. Columns keep their declared order.
func (c *SQLCompiler) compileColumns(cols []queryir.Column) string {
	if len(cols) == 0 {
		return "*"
	}

	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = c.dialect.QuoteIdent(col.Name)
		if col.Alias != "" {
			parts[i] += " AS " + c.dialect.QuoteIdent(col.Alias)
		}
	}
	return strings.Join(parts, ", ")
}

// compileState carries the parameter list so numbered placeholders line up
// with their position in the statement.
type compileState struct {
	c      *SQLCompiler
	params []any
}

func (st *compileState) bind(v any) string {
	st.params = append(st.params, v)
	return st.c.dialect.Placeholder(len(st.params))
}

func (st *compileState) column(name string) string {
	return st.c.dialect.QuoteIdent(name)
}

// compilePredicate compiles a predicate to a WHERE clause fragment.
func (st *compileState) compilePredicate(p queryir.Predicate) (string, error) {
	if p == nil {
		return "1 = 1", nil // Always true
	}

	switch pred := p.(type) {
	case queryir.Equals:
		return st.compileEquals(pred)
	case *queryir.Equals:
		return st.compileEquals(*pred)
	case queryir.In:
		return st.compileIn(pred)
	case *queryir.In:
		return st.compileIn(*pred)
	case queryir.IsNull:
		return st.compileIsNull(pred), nil
	case *queryir.IsNull:
		return st.compileIsNull(*pred), nil
	case queryir.Compare:
		return st.compileCompare(pred)
	case *queryir.Compare:
		return st.compileCompare(*pred)
	case queryir.Like:
		return st.compileLike(pred), nil
	case *queryir.Like:
		return st.compileLike(*pred), nil
	case queryir.And:
		return st.compileJunction(pred.Predicates, " AND ", "1 = 1")
	case *queryir.And:
		return st.compileJunction(pred.Predicates, " AND ", "1 = 1")
	case queryir.Or:
		return st.compileJunction(pred.Predicates, " OR ", "1 = 0")
	case *queryir.Or:
		return st.compileJunction(pred.Predicates, " OR ", "1 = 0")
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (st *compileState) compileEquals(eq queryir.Equals) (string, error) {
	if eq.Value == nil {
		return st.compileIsNull(queryir.IsNull{Field: eq.Field, Negate: eq.Negate}), nil
	}
	op := " = "
	if eq.Negate {
		op = " <> "
	}
	return st.column(eq.Field) + op + st.bind(eq.Value), nil
}

func (st *compileState) compileIn(in queryir.In) (string, error) {
	if len(in.Values) == 0 {
		if in.Negate {
			return "1 = 1", nil
		}
		return "1 = 0", nil
	}

	holders := make([]string, len(in.Values))
	for i, v := range in.Values {
		if v == nil {
			return "", fmt.Errorf("IN list for %q contains NULL", in.Field)
		}
		holders[i] = st.bind(v)
	}

	op := " IN ("
	if in.Negate {
		op = " NOT IN ("
	}
	return st.column(in.Field) + op + strings.Join(holders, ", ") + ")", nil
}

func (st *compileState) compileIsNull(n queryir.IsNull) string {
	if n.Negate {
		return st.column(n.Field) + " IS NOT NULL"
	}
	return st.column(n.Field) + " IS NULL"
}

func (st *compileState) compileCompare(cmp queryir.Compare) (string, error) {
	switch cmp.Op {
	case queryir.OpGreater, queryir.OpGreaterOrEqual, queryir.OpLess, queryir.OpLessOrEqual:
	default:
		return "", fmt.Errorf("unsupported comparison operator %q", cmp.Op)
	}
	return st.column(cmp.Field) + " " + string(cmp.Op) + " " + st.bind(cmp.Value), nil
}

func (st *compileState) compileLike(l queryir.Like) string {
	op := " LIKE "
	if l.Negate {
		op = " NOT LIKE "
	}
	return st.column(l.Field) + op + st.bind(l.Pattern)
}

// compileJunction joins sub-predicates. Nested junctions are parenthesized.
func (st *compileState) compileJunction(preds []queryir.Predicate, sep, empty string) (string, error) {
	if len(preds) == 0 {
		return empty, nil
	}

	parts := make([]string, 0, len(preds))
	for _, pred := range preds {
		sql, err := st.compilePredicate(pred)
		if err != nil {
			return "", err
		}
		if len(preds) > 1 && isJunction(pred) {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
	}
	return strings.Join(parts, sep), nil
}

func isJunction(p queryir.Predicate) bool {
	switch p.(type) {
	case queryir.And, *queryir.And, queryir.Or, *queryir.Or:
		return true
	default:
		return false
	}
}
