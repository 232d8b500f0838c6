// Package dbprovider builds and executes single-table statements.
//
// A Provider generates three statement shapes against one table:
//
//	SELECT * FROM t WHERE a = ? AND b = ? LIMIT 1
//	INSERT INTO t (a, b) VALUES (?, ?)
//	UPDATE t SET a = ?, b = ? WHERE c = ?
//
// Column lists are emitted in sorted order so generated SQL is
// deterministic. Filters are equalities joined with AND; a nil filter value
// renders as IS NULL. Values are always bound, never interpolated, except in
// Statement.String which exists for debug output.
package dbprovider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/dbfuel/internal/dialect"
	"github.com/roach88/dbfuel/internal/objectpath"
	"github.com/roach88/dbfuel/internal/store"
)

// Statement is generated SQL with its bind arguments.
type Statement struct {
	SQL  string
	Args []any

	dialect dialect.Dialect
}

// String renders the statement with arguments inlined. For display only.
func (s Statement) String() string {
	return s.dialect.Interpolate(s.SQL, s.Args)
}

// Provider generates and runs statements for one table.
type Provider struct {
	table   string
	dialect dialect.Dialect
	db      store.ExecQuerier
}

// New creates a provider for table. db may be nil when the provider is only
// used to generate SQL.
func New(table string, d dialect.Dialect, db store.ExecQuerier) (*Provider, error) {
	if table == "" {
		return nil, errors.New("table name is required")
	}
	return &Provider{table: table, dialect: d, db: db}, nil
}

// Table returns the target table name.
func (p *Provider) Table() string {
	return p.table
}

// FirstSQL builds a select of at most one row matching every entry of where.
func (p *Provider) FirstSQL(where map[string]any) Statement {
	b := p.builder()
	b.WriteString("SELECT * FROM ")
	b.WriteString(p.dialect.QuoteIdent(p.table))
	b.where(where)
	b.WriteString(" LIMIT 1")
	return b.statement()
}

// InsertSQL builds an insert of values. When the dialect reports generated
// keys through RETURNING and pkColumn is set, the statement returns it.
func (p *Provider) InsertSQL(values map[string]any, pkColumn string) Statement {
	b := p.builder()
	b.WriteString("INSERT INTO ")
	b.WriteString(p.dialect.QuoteIdent(p.table))

	if len(values) == 0 {
		b.WriteString(" ")
		b.WriteString(p.dialect.EmptyInsert)
	} else {
		columns := objectpath.SortedKeys(values)
		quoted := make([]string, len(columns))
		markers := make([]string, len(columns))
		for i, col := range columns {
			quoted[i] = p.dialect.QuoteIdent(col)
			markers[i] = b.bind(values[col])
		}
		fmt.Fprintf(b, " (%s) VALUES (%s)", strings.Join(quoted, ", "), strings.Join(markers, ", "))
	}

	if p.dialect.Returning && pkColumn != "" {
		b.WriteString(" RETURNING ")
		b.WriteString(p.dialect.QuoteIdent(pkColumn))
	}
	return b.statement()
}

// UpdateSQL builds an update assigning set to every row matching where.
func (p *Provider) UpdateSQL(set, where map[string]any) Statement {
	b := p.builder()
	b.WriteString("UPDATE ")
	b.WriteString(p.dialect.QuoteIdent(p.table))
	b.WriteString(" SET ")

	columns := objectpath.SortedKeys(set)
	assignments := make([]string, len(columns))
	for i, col := range columns {
		assignments[i] = p.dialect.QuoteIdent(col) + " = " + b.bind(set[col])
	}
	b.WriteString(strings.Join(assignments, ", "))

	b.where(where)
	return b.statement()
}

// First returns the first row matching where. found is false when no row
// matches.
func (p *Provider) First(ctx context.Context, where map[string]any) (row map[string]any, found bool, err error) {
	stmt := p.FirstSQL(where)

	rows, err := store.QueryRows(ctx, p.db, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, false, fmt.Errorf("select %s: %w", p.table, err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

// Insert writes values and returns the primary key of the new row.
//
// When values already carries pkColumn the supplied key is returned.
// Otherwise the key comes from RETURNING or the driver's LastInsertId,
// depending on the dialect. Without a pkColumn the result is nil on
// RETURNING dialects.
func (p *Provider) Insert(ctx context.Context, values map[string]any, pkColumn string) (any, error) {
	stmt := p.InsertSQL(values, pkColumn)

	if p.dialect.Returning && pkColumn != "" {
		rows, err := store.QueryRows(ctx, p.db, stmt.SQL, stmt.Args...)
		if err != nil {
			return nil, fmt.Errorf("insert %s: %w", p.table, err)
		}
		if len(rows) == 0 {
			return nil, nil
		}
		return rows[0][pkColumn], nil
	}

	res, err := p.db.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", p.table, err)
	}

	if supplied, ok := values[pkColumn]; ok && pkColumn != "" && supplied != nil {
		return supplied, nil
	}
	if p.dialect.Returning {
		return nil, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert %s: last insert id: %w", p.table, err)
	}
	return id, nil
}

// Update assigns set to every row matching where and returns the number of
// rows affected. An empty set issues no statement.
func (p *Provider) Update(ctx context.Context, set, where map[string]any) (int64, error) {
	if len(set) == 0 {
		return 0, nil
	}

	stmt := p.UpdateSQL(set, where)

	res, err := p.db.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", p.table, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update %s: rows affected: %w", p.table, err)
	}
	return affected, nil
}

// sqlBuilder accumulates SQL text and bind arguments.
type sqlBuilder struct {
	strings.Builder
	dialect dialect.Dialect
	args    []any
}

func (p *Provider) builder() *sqlBuilder {
	return &sqlBuilder{dialect: p.dialect}
}

// bind records v and returns its placeholder.
func (b *sqlBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return b.dialect.Placeholder(len(b.args))
}

// where appends an AND-ed equality filter. nil values match IS NULL.
func (b *sqlBuilder) where(filter map[string]any) {
	if len(filter) == 0 {
		return
	}

	columns := objectpath.SortedKeys(filter)
	conditions := make([]string, len(columns))
	for i, col := range columns {
		ident := b.dialect.QuoteIdent(col)
		if filter[col] == nil {
			conditions[i] = ident + " IS NULL"
			continue
		}
		conditions[i] = ident + " = " + b.bind(filter[col])
	}

	b.WriteString(" WHERE ")
	b.WriteString(strings.Join(conditions, " AND "))
}

func (b *sqlBuilder) statement() Statement {
	return Statement{SQL: b.String(), Args: b.args, dialect: b.dialect}
}
