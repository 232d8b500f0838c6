// Package modeling turns source rows into column/value maps.
//
// An Attribute names a destination key and an ordered transformer chain.
// A Renderer is an attribute bound to a key resolver; a RendererSet owns the
// renderers of one job and renders rows, optionally prefixed with the
// synthesized created_at/updated_at timestamps and restricted to a KeySet.
//
// Transformer types are looked up in a process-wide registry. Built-in types:
//
//	r/value/now           invocation timestamp, ignores the row
//	r/value/static        options.value
//	r/value/default       options.value when the prior value is nil
//	r/value/resolve       row value at options.key
//	r/value/blank_to_nil  nil for blank strings
//	r/format/string       fmt.Sprint of non-nil values
//	r/format/upcase       upper-case strings
//	r/format/downcase     lower-case strings
//	r/format/titleize     title-case strings
//	r/format/trim         trim surrounding whitespace
//
// Unknown types are rejected when renderers are built, never while rows are
// being rendered.
package modeling
