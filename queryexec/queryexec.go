// Package queryexec runs the two sides of a validation. The sides execute
// concurrently and independently: a dialect error, timeout or cancellation on
// one side never aborts the other, and failures are captured as values rather
// than returned as errors.
package queryexec

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"
	"github.com/qvet/qvet/dbconn"
	"github.com/qvet/qvet/querydef"
	"golang.org/x/sync/errgroup"
)

// ExecutePair runs def's source query against conns[0] and its target query
// against conns[1] in parallel. Read-only: the executor never mutates source
// or target state. Per-side wall-clock duration is recorded for both
// successes and failures.
func ExecutePair(
	ctx context.Context, conns dbconn.OrderedConns, def *querydef.QueryDefinition,
) (source SideResult, target SideResult) {
	queries := [2]string{def.SourceQuery, def.TargetQuery}
	var results [2]SideResult

	g, gCtx := errgroup.WithContext(ctx)
	for i := range conns {
		i := i
		g.Go(func() error {
			results[i] = executeSide(gCtx, conns[i], queries[i])
			return nil
		})
	}
	// Neither side returns an error; failures are captured per side.
	_ = g.Wait()
	return results[0], results[1]
}

func executeSide(ctx context.Context, conn dbconn.Conn, query string) SideResult {
	start := time.Now()
	raw, err := queryConn(ctx, conn, query)
	duration := time.Since(start)
	if err != nil {
		return SideResult{
			Failure: &ExecutionFailure{
				Dialect: conn.Dialect(),
				Message: err.Error(),
			},
			Duration: duration,
		}
	}
	return SideResult{Raw: raw, Duration: duration}
}

func queryConn(ctx context.Context, conn dbconn.Conn, query string) (*RawResultSet, error) {
	switch conn := conn.(type) {
	case *dbconn.PGConn:
		return queryPG(ctx, conn, query)
	case *dbconn.MySQLConn:
		return queryMySQL(ctx, conn, query)
	case *dbconn.FakeConn:
		res, err := conn.QueryRaw(ctx, query)
		if err != nil {
			return nil, err
		}
		return &RawResultSet{Columns: res.Columns, Rows: res.Rows}, nil
	}
	return nil, errors.Newf("unsupported conn type %T", conn)
}

func queryPG(ctx context.Context, conn *dbconn.PGConn, query string) (*RawResultSet, error) {
	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	ret := &RawResultSet{
		Columns: make([]string, len(fds)),
		OIDs:    make([]oid.Oid, len(fds)),
	}
	for i, fd := range fds {
		ret.Columns[i] = string(fd.Name)
		ret.OIDs[i] = oid.Oid(fd.DataTypeOID)
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, errors.Wrap(err, "error decoding row values")
		}
		ret.Rows = append(ret.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func queryMySQL(ctx context.Context, conn *dbconn.MySQLConn, query string) (*RawResultSet, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	ret := &RawResultSet{
		Columns:   cols,
		TypeNames: make([]string, len(colTypes)),
	}
	for i, ct := range colTypes {
		ret.TypeNames[i] = ct.DatabaseTypeName()
	}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, "error scanning row values")
		}
		ret.Rows = append(ret.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
