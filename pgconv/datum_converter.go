package pgconv

import (
	"fmt"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/cockroachdb-parser/pkg/util/timeutil/pgdate"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lib/pq/oid"
)

// ConvertRowValue converts a value decoded by pgx into a datum whose concrete
// type reflects the column type the server reported. Values of types that are
// not translated here are wrapped with their OID so they never pass for one of
// the translated types.
func ConvertRowValue(val any, typOID oid.Oid) (tree.Datum, error) {
	if val == nil {
		return tree.DNull, nil
	}
	switch typOID {
	case pgtype.BoolOID:
		b, ok := val.(bool)
		if !ok {
			return nil, unexpectedValue(val, typOID)
		}
		return tree.MakeDBool(tree.DBool(b)), nil
	case pgtype.VarcharOID, pgtype.TextOID, pgtype.BPCharOID, pgtype.NameOID:
		s, ok := val.(string)
		if !ok {
			return nil, unexpectedValue(val, typOID)
		}
		return tree.NewDString(s), nil
	case pgtype.Float4OID:
		f, ok := val.(float32)
		if !ok {
			return nil, unexpectedValue(val, typOID)
		}
		return tree.NewDFloat(tree.DFloat(f)), nil
	case pgtype.Float8OID:
		f, ok := val.(float64)
		if !ok {
			return nil, unexpectedValue(val, typOID)
		}
		return tree.NewDFloat(tree.DFloat(f)), nil
	case pgtype.Int2OID:
		i, ok := val.(int16)
		if !ok {
			return nil, unexpectedValue(val, typOID)
		}
		return tree.NewDInt(tree.DInt(i)), nil
	case pgtype.Int4OID:
		i, ok := val.(int32)
		if !ok {
			return nil, unexpectedValue(val, typOID)
		}
		return tree.NewDInt(tree.DInt(i)), nil
	case pgtype.Int8OID:
		i, ok := val.(int64)
		if !ok {
			return nil, unexpectedValue(val, typOID)
		}
		return tree.NewDInt(tree.DInt(i)), nil
	case pgtype.NumericOID:
		n, ok := val.(pgtype.Numeric)
		if !ok {
			return nil, unexpectedValue(val, typOID)
		}
		return convertNumeric(n)
	case pgtype.DateOID:
		t, ok := val.(time.Time)
		if !ok {
			// Infinite dates are not representable as a time.Time.
			return wrapWithOid(val, typOID), nil
		}
		d, err := pgdate.MakeDateFromTime(t)
		if err != nil {
			return nil, errors.Wrapf(err, "error converting date %v", val)
		}
		return tree.NewDDate(d), nil
	case pgtype.TimestampOID:
		t, ok := val.(time.Time)
		if !ok {
			return wrapWithOid(val, typOID), nil
		}
		return tree.MakeDTimestamp(t, time.Microsecond)
	case pgtype.TimestamptzOID:
		t, ok := val.(time.Time)
		if !ok {
			return wrapWithOid(val, typOID), nil
		}
		return tree.MakeDTimestampTZ(t.UTC(), time.Microsecond)
	}
	return wrapWithOid(val, typOID), nil
}

func wrapWithOid(val any, typOID oid.Oid) tree.Datum {
	return &tree.DOidWrapper{
		Wrapped: tree.NewDString(fmt.Sprintf("%v", val)),
		Oid:     typOID,
	}
}

func unexpectedValue(val any, typOID oid.Oid) error {
	return errors.AssertionFailedf("unexpected value %v (%T) for type OID %d", val, val, typOID)
}

func convertNumeric(val pgtype.Numeric) (*tree.DDecimal, error) {
	if val.NaN {
		return tree.ParseDDecimal("NaN")
	} else if val.InfinityModifier == pgtype.Infinity {
		return tree.ParseDDecimal("Inf")
	} else if val.InfinityModifier == pgtype.NegativeInfinity {
		return tree.ParseDDecimal("-Inf")
	}
	if val.Int == nil {
		return nil, errors.AssertionFailedf("numeric %v has no coefficient", val)
	}
	coeff := new(apd.BigInt).SetMathBigInt(val.Int)
	return &tree.DDecimal{Decimal: *apd.NewWithBigInt(coeff, val.Exp)}, nil
}

// ConvertRowValues converts a full row, pairing each value with the OID of its
// result column.
func ConvertRowValues(vals []any, typOIDs []oid.Oid) (tree.Datums, error) {
	ret := make(tree.Datums, len(vals))
	if len(vals) != len(typOIDs) {
		return nil, errors.AssertionFailedf("val length != oid length: %v vs %v", vals, typOIDs)
	}
	for i := range vals {
		var err error
		if ret[i], err = ConvertRowValue(vals[i], typOIDs[i]); err != nil {
			return nil, errors.Wrapf(err, "error converting column %d", i)
		}
	}
	return ret, nil
}
