// Package coltype decides whether a value read back from a table is of the
// SQL type a column is expected to hold.
package coltype

import (
	"math"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
)

// ExpectedType is the name of the SQL type a column is expected to hold, as
// PostgreSQL spells it in information_schema.columns.data_type.
type ExpectedType string

const (
	CharacterVarying         ExpectedType = "character varying"
	Text                     ExpectedType = "text"
	Integer                  ExpectedType = "integer"
	SmallInt                 ExpectedType = "smallint"
	BigInt                   ExpectedType = "bigint"
	Numeric                  ExpectedType = "numeric"
	Real                     ExpectedType = "real"
	DoublePrecision          ExpectedType = "double precision"
	Date                     ExpectedType = "date"
	TimestampWithoutTimeZone ExpectedType = "timestamp without time zone"
)

// All lists every supported expected type.
var All = []ExpectedType{
	CharacterVarying,
	Text,
	Integer,
	SmallInt,
	BigInt,
	Numeric,
	Real,
	DoublePrecision,
	Date,
	TimestampWithoutTimeZone,
}

// ParseExpectedType returns the expected type with the given name, and whether
// it is supported.
func ParseExpectedType(s string) (ExpectedType, bool) {
	t := ExpectedType(s)
	return t, t.Supported()
}

// Supported returns whether t is one of the types IsValid knows about.
func (t ExpectedType) Supported() bool {
	for _, s := range All {
		if s == t {
			return true
		}
	}
	return false
}

func (t ExpectedType) String() string {
	return string(t)
}

// IsValid returns whether d is a value of type t. The check is on the kind of
// datum rather than on numeric compatibility: an integer never passes for a
// float column or vice versa, a boolean is never an integer and NULL is never
// valid. Unsupported types are never valid.
func IsValid(d tree.Datum, t ExpectedType) bool {
	switch t {
	case CharacterVarying, Text:
		_, ok := d.(*tree.DString)
		return ok
	case Integer:
		_, ok := d.(*tree.DInt)
		return ok
	case SmallInt:
		i, ok := d.(*tree.DInt)
		return ok && *i >= math.MinInt16 && *i <= math.MaxInt16
	case BigInt:
		// DInt is 64 bits wide, so any DInt is within the bigint range.
		// Wider whole numbers come back as decimals.
		_, ok := d.(*tree.DInt)
		return ok
	case Numeric:
		switch d.(type) {
		case *tree.DInt, *tree.DFloat, *tree.DDecimal:
			return true
		}
		return false
	case Real, DoublePrecision:
		_, ok := d.(*tree.DFloat)
		return ok
	case Date:
		_, ok := d.(*tree.DDate)
		return ok
	case TimestampWithoutTimeZone:
		_, ok := d.(*tree.DTimestamp)
		return ok
	}
	return false
}
