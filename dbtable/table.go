package dbtable

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/errors"
)

// Name is a schema-qualified table name.
type Name struct {
	Schema tree.Name
	Table  tree.Name
}

// ParseName parses a "schema.table" identifier. Both parts are required.
func ParseName(s string) (Name, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Name{}, errors.Newf("table %q must be of the form schema.table", s)
	}
	return Name{Schema: tree.Name(parts[0]), Table: tree.Name(parts[1])}, nil
}

func (n Name) MakeTableName() tree.TableName {
	return tree.MakeTableNameFromPrefix(tree.ObjectNamePrefix{
		SchemaName:     n.Schema,
		ExplicitSchema: true,
	}, n.Table)
}

func (n Name) SafeString() string {
	return fmt.Sprintf("%s.%s", n.Schema, n.Table)
}

func (n Name) String() string {
	return n.SafeString()
}
