package dbconn

import (
	"context"
	"net/url"
	"strings"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/lexbase"
	"github.com/cockroachdb/errors"
)

type ID string

type Conn interface {
	ID() ID
	// Close closes the connection.
	Close(ctx context.Context) error
	Dialect() string
}

func Connect(ctx context.Context, preferredID ID, connStr string) (Conn, error) {
	id := preferredID
	if len(connStr) == 0 {
		return nil, errors.Newf("empty connection string")
	}

	before := strings.SplitN(connStr, "://", 2)

	switch {
	case strings.Contains(before[0], "postgres"):
		u, err := url.Parse(connStr)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to parse url: %s", RedactConnStr(connStr))
		}

		if id == "" {
			id = ID(u.Hostname() + ":" + u.Port())
		}
		conn, err := ConnectPG(ctx, id, connStr)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return nil, errors.Newf("unrecognised scheme %s from %s", before[0], RedactConnStr(connStr))
}

// RedactConnStr strips the password from a connection URL so it can be
// logged.
func RedactConnStr(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil || u.User == nil {
		return connStr
	}
	return u.Redacted()
}

// TestOnlyCleanDatabase returns a connection to a clean database.
// This is recommended for test use only
func TestOnlyCleanDatabase(ctx context.Context, id ID, url string, dbName string) (Conn, error) {
	c, err := Connect(ctx, id, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.Close(ctx) }()

	switch c := c.(type) {
	case *PGConn:
		if _, err := c.Exec(ctx, "DROP DATABASE IF EXISTS "+lexbase.EscapeSQLIdent(dbName)); err != nil {
			return nil, err
		}
		if _, err := c.Exec(ctx, "CREATE DATABASE "+lexbase.EscapeSQLIdent(dbName)); err != nil {
			return nil, err
		}
		cfgCopy := c.Config().Copy()
		cfgCopy.Database = dbName
		return ConnectPGConfig(ctx, c.id, c.connStr, cfgCopy)
	}
	return nil, errors.AssertionFailedf("clean database not supported for %T", c)
}
