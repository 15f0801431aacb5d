package check

import (
	"regexp"

	"github.com/cockroachdb/errors"
)

const DefaultFilterString = ".*"

type FilterConfig struct {
	SchemaFilter string
	TableFilter  string
}

func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		SchemaFilter: DefaultFilterString,
		TableFilter:  DefaultFilterString,
	}
}

// FilterTables returns the tables whose schema and table names match the
// POSIX regexps in cfg, keeping their order.
func FilterTables(cfg FilterConfig, tables []TableSpec) ([]TableSpec, error) {
	if cfg.SchemaFilter == DefaultFilterString && cfg.TableFilter == DefaultFilterString {
		return tables, nil
	}
	schemaRe, err := regexp.CompilePOSIX(cfg.SchemaFilter)
	if err != nil {
		return nil, errors.Wrapf(err, "error compiling schema filter %q", cfg.SchemaFilter)
	}
	tableRe, err := regexp.CompilePOSIX(cfg.TableFilter)
	if err != nil {
		return nil, errors.Wrapf(err, "error compiling table filter %q", cfg.TableFilter)
	}
	ret := make([]TableSpec, 0, len(tables))
	for _, t := range tables {
		if schemaRe.MatchString(string(t.Schema)) && tableRe.MatchString(string(t.Table)) {
			ret = append(ret, t)
		}
	}
	return ret, nil
}
