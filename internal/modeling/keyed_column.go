package modeling

import "fmt"

// KeyedColumn pairs an in-memory row key with a SQL column.
// Used to carry primary keys from the database back into rows.
type KeyedColumn struct {
	Key    string `yaml:"key" json:"key"`
	Column string `yaml:"column,omitempty" json:"column,omitempty"`
}

// NewKeyedColumn validates key and defaults column to key.
func NewKeyedColumn(key, column string) (KeyedColumn, error) {
	if key == "" {
		return KeyedColumn{}, fmt.Errorf("key is required")
	}
	if column == "" {
		column = key
	}
	return KeyedColumn{Key: key, Column: column}, nil
}
