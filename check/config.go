package check

import (
	"os"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/typecheck/coltype"
	"github.com/cockroachdb/typecheck/dbtable"
	"github.com/cockroachdb/typecheck/rowiterator"
	"gopkg.in/yaml.v3"
)

const DefaultLimit = 1000

const DefaultReferenceDateColumn tree.Name = "ref_date"

type ColumnSpec struct {
	Name tree.Name
	Type coltype.ExpectedType
}

// TableSpec is a table and the types its columns are expected to hold, in
// the order they are selected.
type TableSpec struct {
	dbtable.Name
	// ReferenceDateColumn orders rows so the most recent ones are checked.
	ReferenceDateColumn tree.Name
	Columns             []ColumnSpec
}

func (t TableSpec) ColumnNames() []tree.Name {
	ret := make([]tree.Name, len(t.Columns))
	for i, col := range t.Columns {
		ret[i] = col.Name
	}
	return ret
}

func (t TableSpec) scanTable() rowiterator.Table {
	return rowiterator.Table{
		Name:          t.Name,
		ColumnNames:   t.ColumnNames(),
		OrderByColumn: t.ReferenceDateColumn,
	}
}

// Query returns the statement used to read the table's most recent rows.
func (t TableSpec) Query(limit int) (string, error) {
	return rowiterator.NewRecentRowsQuery(t.scanTable(), limit)
}

// Config is the set of tables a run checks.
type Config struct {
	Tables []TableSpec
}

func (c Config) Verify() error {
	if len(c.Tables) == 0 {
		return errors.Newf("at least one table is required")
	}
	seenTables := make(map[string]struct{}, len(c.Tables))
	for _, tbl := range c.Tables {
		if tbl.Schema == "" || tbl.Table == "" {
			return errors.Newf("table %q must be of the form schema.table", tbl.SafeString())
		}
		if _, ok := seenTables[tbl.SafeString()]; ok {
			return errors.Newf("table %s is defined more than once", tbl.SafeString())
		}
		seenTables[tbl.SafeString()] = struct{}{}
		if tbl.ReferenceDateColumn == "" {
			return errors.Newf("table %s must define a reference date column", tbl.SafeString())
		}
		if len(tbl.Columns) == 0 {
			return errors.Newf("table %s must define at least one column", tbl.SafeString())
		}
		seenCols := make(map[tree.Name]struct{}, len(tbl.Columns))
		for _, col := range tbl.Columns {
			if col.Name == "" {
				return errors.Newf("table %s has a column with no name", tbl.SafeString())
			}
			if _, ok := seenCols[col.Name]; ok {
				return errors.Newf("column %s is defined more than once in table %s", col.Name, tbl.SafeString())
			}
			seenCols[col.Name] = struct{}{}
		}
	}
	return nil
}

type yamlConfig struct {
	Tables []yamlTable `yaml:"tables"`
}

type yamlTable struct {
	Name                string       `yaml:"name"`
	ReferenceDateColumn string       `yaml:"reference_date_column"`
	Columns             []yamlColumn `yaml:"columns"`
}

type yamlColumn struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// LoadConfig reads a tables file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "error reading tables config %s", path)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "error parsing tables config %s", path)
	}
	return cfg, nil
}

// ParseConfig parses a tables file of the form
//
//	tables:
//	  - name: schema.table
//	    reference_date_column: ref_date
//	    columns:
//	      - name: id
//	        type: integer
//
// reference_date_column defaults to ref_date.
func ParseConfig(data []byte) (Config, error) {
	var in yamlConfig
	if err := yaml.Unmarshal(data, &in); err != nil {
		return Config{}, err
	}
	var cfg Config
	for _, t := range in.Tables {
		name, err := dbtable.ParseName(t.Name)
		if err != nil {
			return Config{}, err
		}
		tbl := TableSpec{
			Name:                name,
			ReferenceDateColumn: tree.Name(t.ReferenceDateColumn),
		}
		if tbl.ReferenceDateColumn == "" {
			tbl.ReferenceDateColumn = DefaultReferenceDateColumn
		}
		for _, c := range t.Columns {
			typ, ok := coltype.ParseExpectedType(c.Type)
			if !ok {
				return Config{}, errors.Newf("column %s of table %s has unsupported type %q", c.Name, name, c.Type)
			}
			tbl.Columns = append(tbl.Columns, ColumnSpec{Name: tree.Name(c.Name), Type: typ})
		}
		cfg.Tables = append(cfg.Tables, tbl)
	}
	if err := cfg.Verify(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultConfig checks the card and pix transaction summary datamart tables.
func DefaultConfig() Config {
	return Config{
		Tables: []TableSpec{
			{
				Name: dbtable.Name{
					Schema: "datamart_test_main",
					Table:  "card_transaction_summary",
				},
				ReferenceDateColumn: DefaultReferenceDateColumn,
				Columns: []ColumnSpec{
					{Name: "transaction_id", Type: coltype.Integer},
					{Name: "seller_id", Type: coltype.Integer},
					{Name: "seller_name", Type: coltype.CharacterVarying},
					{Name: "buyer_id", Type: coltype.Integer},
					{Name: "buyer_name", Type: coltype.CharacterVarying},
					{Name: "buyer_email", Type: coltype.CharacterVarying},
					{Name: "transaction_date", Type: coltype.Date},
					{Name: "transaction_time", Type: coltype.TimestampWithoutTimeZone},
					{Name: "transaction_amount", Type: coltype.Numeric},
					{Name: "card_number", Type: coltype.CharacterVarying},
					{Name: "card_type", Type: coltype.CharacterVarying},
					{Name: "payment_status", Type: coltype.Text},
					{Name: "authorization_code", Type: coltype.CharacterVarying},
					{Name: "installments", Type: coltype.Integer},
					{Name: "ref_date", Type: coltype.Date},
				},
			},
			{
				Name: dbtable.Name{
					Schema: "datamart_test_main",
					Table:  "pix_transaction_summary",
				},
				ReferenceDateColumn: DefaultReferenceDateColumn,
				Columns: []ColumnSpec{
					{Name: "transaction_id", Type: coltype.Integer},
					{Name: "seller_id", Type: coltype.Integer},
					{Name: "seller_name", Type: coltype.CharacterVarying},
					{Name: "buyer_id", Type: coltype.Integer},
					{Name: "buyer_name", Type: coltype.CharacterVarying},
					{Name: "buyer_email", Type: coltype.CharacterVarying},
					{Name: "transaction_date", Type: coltype.Date},
					{Name: "transaction_time", Type: coltype.TimestampWithoutTimeZone},
					{Name: "transaction_amount", Type: coltype.Numeric},
					{Name: "pix_key", Type: coltype.CharacterVarying},
					{Name: "payment_status", Type: coltype.Text},
					{Name: "reference_code", Type: coltype.CharacterVarying},
					{Name: "ref_date", Type: coltype.Date},
				},
			},
		},
	}
}
