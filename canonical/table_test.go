package canonical

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableGet(t *testing.T) {
	tbl := &Table{
		Columns: []string{"id", "amt"},
		Rows: []Row{
			{"id": Int(1), "amt": Int(10)},
			{"id": Int(2)},
		},
	}

	v, ok := tbl.Get(0, "amt")
	require.True(t, ok)
	require.True(t, v.Equal(Int(10)))

	// Row 1 never produced a value for amt.
	_, ok = tbl.Get(1, "amt")
	require.False(t, ok)

	_, ok = tbl.Get(0, "nope")
	require.False(t, ok)
}

func TestTableHasColumn(t *testing.T) {
	tbl := &Table{Columns: []string{"id", "amt"}}
	require.True(t, tbl.HasColumn("id"))
	require.True(t, tbl.HasColumn("amt"))
	require.False(t, tbl.HasColumn("total"))
}
