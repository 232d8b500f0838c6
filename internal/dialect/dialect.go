// Package dialect describes the SQL flavours statements are generated for.
//
// A Dialect decides identifier quoting, placeholder style and whether
// inserts report generated keys through RETURNING. Drivers registered with
// database/sql map onto a dialect through ForDriver.
package dialect

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect is a target SQL flavour.
type Dialect struct {
	// Name identifies the dialect ("sqlite", "postgres", "mysql").
	Name string

	// Quote is the identifier quote character.
	Quote byte

	// Numbered selects $1, $2, ... placeholders instead of ?.
	Numbered bool

	// Returning reports generated keys via INSERT ... RETURNING instead of
	// the driver's LastInsertId.
	Returning bool

	// EmptyInsert is the column/value clause used for an INSERT without
	// columns.
	EmptyInsert string
}

// Supported dialects.
var (
	SQLite   = Dialect{Name: "sqlite", Quote: '"', EmptyInsert: "DEFAULT VALUES"}
	Postgres = Dialect{Name: "postgres", Quote: '"', Numbered: true, Returning: true, EmptyInsert: "DEFAULT VALUES"}
	MySQL    = Dialect{Name: "mysql", Quote: '`', EmptyInsert: "() VALUES ()"}
)

// ForDriver maps a database/sql driver name to its dialect.
func ForDriver(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return SQLite, nil
	case "postgres", "pgx":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported driver %q", driver)
	}
}

// QuoteIdent quotes a single identifier, doubling embedded quote characters.
func (d Dialect) QuoteIdent(name string) string {
	q := string(d.Quote)
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// Placeholder returns the bind marker for the n-th parameter (1-based).
func (d Dialect) Placeholder(n int) string {
	if d.Numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Interpolate renders query with args inlined as SQL literals.
//
// The result is for display only (debug output) and must never be executed.
// Placeholders inside quoted identifiers or string literals are left alone.
func (d Dialect) Interpolate(query string, args []any) string {
	var b strings.Builder
	next := 0
	var quote byte

	for i := 0; i < len(query); i++ {
		c := query[i]

		if quote != 0 {
			b.WriteByte(c)
			if c == quote {
				quote = 0
			}
			continue
		}

		switch {
		case c == d.Quote || c == '\'':
			quote = c
			b.WriteByte(c)
		case !d.Numbered && c == '?':
			if next < len(args) {
				b.WriteString(Literal(args[next]))
				next++
			} else {
				b.WriteByte(c)
			}
		case d.Numbered && c == '$':
			j := i + 1
			for j < len(query) && query[j] >= '0' && query[j] <= '9' {
				j++
			}
			n, err := strconv.Atoi(query[i+1 : j])
			if err != nil || n < 1 || n > len(args) {
				b.WriteByte(c)
				continue
			}
			b.WriteString(Literal(args[n-1]))
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

// Literal renders a bind value as a SQL literal for display.
func Literal(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quoteString(val)
	case []byte:
		return quoteString(string(val))
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return quoteString(val.Format("2006-01-02 15:04:05.999999999Z07:00"))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return quoteString(fmt.Sprint(val))
	}
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
