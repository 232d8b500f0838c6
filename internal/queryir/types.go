package queryir

// Predicate represents a filter condition in a Select.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select is the lowered form of a Model plus Query.
//
//	SELECT <columns> FROM <from> WHERE <filter> ORDER BY <order> LIMIT <limit>
//
// Empty Columns selects every column. A nil Filter means no WHERE clause and
// a zero Limit means no LIMIT clause.
type Select struct {
	From    string
	Columns []Column
	Filter  Predicate
	OrderBy []Order
	Limit   int
}

// Column is a selected column with an optional output alias.
type Column struct {
	Name  string
	Alias string
}

// Order is one ORDER BY term.
type Order struct {
	Column     string
	Descending bool
}

// Equals is <field> = <value> (or <> when Negate is set). Value is never nil;
// nil comparisons lower to IsNull.
type Equals struct {
	Field  string
	Value  any
	Negate bool
}

func (Equals) predicateNode() {}

// In is <field> IN (<values>) (or NOT IN when Negate is set). An empty
// Values list matches nothing, or everything when negated.
type In struct {
	Field  string
	Values []any
	Negate bool
}

func (In) predicateNode() {}

// IsNull is <field> IS NULL (or IS NOT NULL when Negate is set).
type IsNull struct {
	Field  string
	Negate bool
}

func (IsNull) predicateNode() {}

// CompareOp is an ordering operator.
type CompareOp string

const (
	OpGreater        CompareOp = ">"
	OpGreaterOrEqual CompareOp = ">="
	OpLess           CompareOp = "<"
	OpLessOrEqual    CompareOp = "<="
)

// Compare is <field> <op> <value>.
type Compare struct {
	Field string
	Op    CompareOp
	Value any
}

func (Compare) predicateNode() {}

// Like is <field> LIKE <pattern> (or NOT LIKE when Negate is set).
type Like struct {
	Field   string
	Pattern string
	Negate  bool
}

func (Like) predicateNode() {}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or is a disjunction. An empty Or is always false.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}
