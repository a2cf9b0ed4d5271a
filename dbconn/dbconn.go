// Package dbconn provides live connection handles for the source and target
// databases. It owns connection establishment and dialect identification
// only; query execution against a pair of handles lives in queryexec.
package dbconn

import (
	"context"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
)

type ID string

// OrderedConns is the (source, target) connection pair. Index 0 is always the
// source of truth side.
type OrderedConns [2]Conn

type Conn interface {
	ID() ID
	// Close closes the connection.
	Close(ctx context.Context) error
	// Clone creates a new Conn with the same underlying connection arguments.
	Clone(ctx context.Context) (Conn, error)

	ConnStr() string
	Dialect() string
}

// Connect establishes a connection from a URL-style connection string,
// dispatching on the scheme.
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
			return nil, errors.Wrapf(err, "unable to parse url: %s", connStr)
		}

		if id == "" {
			id = ID(u.Hostname() + ":" + u.Port())
		}
		return ConnectPG(ctx, id, connStr)
	case strings.Contains(before[0], "mysql"):
		return ConnectMySQL(ctx, id, connStr)
	}
	return nil, errors.Newf("unrecognised scheme %s from %s", before[0], connStr)
}
