package dbconn

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
)

type PGConn struct {
	id ID
	*pgx.Conn
	version     string
	connStr     string
	isCockroach bool
}

var _ Conn = (*PGConn)(nil)

func ConnectPG(ctx context.Context, id ID, connStr string) (*PGConn, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, err
	}
	var version string
	if err := conn.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}
	return NewPGConn(id, conn, connStr, version), nil
}

func NewPGConn(id ID, conn *pgx.Conn, connStr string, version string) *PGConn {
	return &PGConn{
		id:          id,
		Conn:        conn,
		version:     version,
		connStr:     connStr,
		isCockroach: strings.Contains(version, "CockroachDB"),
	}
}

func (c *PGConn) ID() ID {
	return c.id
}

func (c *PGConn) IsCockroach() bool {
	return c.isCockroach
}

func (c *PGConn) Clone(ctx context.Context) (Conn, error) {
	conn, err := pgx.ConnectConfig(ctx, c.Config())
	if err != nil {
		return nil, err
	}
	return NewPGConn(c.id, conn, c.connStr, c.version), nil
}

func (c *PGConn) ConnStr() string {
	return c.connStr
}

func (c *PGConn) Dialect() string {
	if c.IsCockroach() {
		return "CockroachDB"
	}
	return "PostgreSQL"
}
