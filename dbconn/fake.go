package dbconn

import (
	"context"

	"github.com/cockroachdb/errors"
)

// FakeResult is a canned raw result for tests: ordered column names plus rows
// of driver-style Go values (int64, float64, string, bool, time.Time, nil).
type FakeResult struct {
	Columns []string
	Rows    [][]any
}

// FakeConn is a test connection that serves canned results per query text.
type FakeConn struct {
	id ID

	// Results maps exact query text to its result.
	Results map[string]FakeResult
	// Errs maps exact query text to an execution error.
	Errs map[string]error
}

var _ Conn = (*FakeConn)(nil)

func MakeFakeConn(id ID) *FakeConn {
	return &FakeConn{
		id:      id,
		Results: make(map[string]FakeResult),
		Errs:    make(map[string]error),
	}
}

// QueryRaw serves the canned result for the given query text.
func (f *FakeConn) QueryRaw(ctx context.Context, query string) (FakeResult, error) {
	if err := ctx.Err(); err != nil {
		return FakeResult{}, err
	}
	if err, ok := f.Errs[query]; ok {
		return FakeResult{}, err
	}
	res, ok := f.Results[query]
	if !ok {
		return FakeResult{}, errors.Newf("no canned result for query %q", query)
	}
	return res, nil
}

func (f *FakeConn) ID() ID {
	return f.id
}

func (f *FakeConn) Close(ctx context.Context) error {
	return nil
}

func (f *FakeConn) Clone(ctx context.Context) (Conn, error) {
	return f, nil
}

func (f *FakeConn) ConnStr() string {
	return "fake://"
}

func (f *FakeConn) Dialect() string {
	return "fake"
}
