// Package queryir describes read queries against a single relational model
// and lowers them into a small predicate tree that backends compile to SQL.
//
// There are two layers:
//
//	[Model + Query] → [Select + Predicate tree] → [querysql backend]
//
// Model and Query are the declarative shapes decoded from pipeline
// configuration (model name/table, fields, filters, sorters, limit).
// Query.Select lowers them into a Select node whose Filter is built from the
// sealed Predicate types defined here.
//
// SEALED INTERFACES:
//
// Predicate is a sealed interface using the marker method pattern. Only types
// in this package implement it, so backends can switch over it exhaustively:
//
//	switch p := pred.(type) {
//	case Equals, *Equals:
//	case In, *In:
//	...
//	}
//
// FILTER LOWERING:
//
//	equals      scalar → Equals, nil → IsNull, list → In (+ OR IS NULL for nil members)
//	not_equals  the negation of equals, nil members become IS NOT NULL
//	greater_than, greater_than_or_equal_to,
//	less_than, less_than_or_equal_to → Compare (lists OR together)
//	contains, starts_with, ends_with → Like (lists OR together)
//	not_contain, not_start_with, not_end_with → negated Like (lists AND together)
//
// Key paths address columns of the model's own table. Dotted key paths
// (association traversal) are rejected by Validate.
package queryir
