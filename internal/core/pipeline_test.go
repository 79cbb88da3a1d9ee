package core

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datasweeper/internal/table"
)

func mustTable(t *testing.T, data string) *table.Table {
	t.Helper()
	tbl, err := table.Load(strings.NewReader(data), table.FileCSV)
	require.NoError(t, err)
	return tbl
}

func csvString(t *testing.T, tbl *table.Table) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))
	return buf.String()
}

func ptr(f float64) *float64 { return &f }

func TestRunEmptyPipelineReturnsInput(t *testing.T) {
	tbl := mustTable(t, "a,b\n1,x\n1,x\n")

	out, err := Run(context.Background(), tbl, Pipeline{})
	require.NoError(t, err)
	assert.Same(t, tbl, out.Table)
	assert.Empty(t, out.Notices)
	assert.Equal(t, 2, out.RowsIn)
	assert.Equal(t, 2, out.RowsOut)
}

func TestRunDedupThenFilter(t *testing.T) {
	tbl := mustTable(t, "a,b\n1,x\n1,x\n2,y\n")

	out, err := Run(context.Background(), tbl, Pipeline{
		Clean: CleanConfig{RemoveDuplicates: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,x\n2,y\n", csvString(t, out.Table))
	require.Len(t, out.Notices, 1)
	assert.Equal(t, Notice{Step: StepDedup, Level: LevelSuccess, Message: "Duplicates removed: 1 row"}, out.Notices[0])

	out, err = Run(context.Background(), tbl, Pipeline{
		Clean:  CleanConfig{RemoveDuplicates: true},
		Filter: FilterConfig{Column: "a", Threshold: ptr(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, "a,b\n2,y\n", csvString(t, out.Table))
	assert.Equal(t, 3, out.RowsIn)
	assert.Equal(t, 1, out.RowsOut)
	assert.Equal(t, "1 of 2 rows have a ≥ 2", out.Notices[len(out.Notices)-1].Message)

	// The original is untouched.
	assert.Equal(t, 3, tbl.Len())
}

func TestRunFilterableIsTheFilterInput(t *testing.T) {
	tbl := mustTable(t, "a\n100\n300\n500\n")

	out, err := Run(context.Background(), tbl, Pipeline{
		Normalize: NormalizeConfig{Enabled: true},
		Filter:    FilterConfig{Column: "a", Threshold: ptr(0.5)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Table.Len())
	require.Equal(t, 3, out.Filterable.Len())
	lo, hi, err := out.Filterable.Range("a")
	require.NoError(t, err)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)

	out, err = Run(context.Background(), tbl, Pipeline{})
	require.NoError(t, err)
	assert.Same(t, out.Table, out.Filterable)
}

func TestRunIsDeterministic(t *testing.T) {
	tbl := mustTable(t, "name,score,city\nann,10,Oslo\nbob,,Bergen\nann,10,Oslo\ncid,30,Oslo\n")
	p := Pipeline{
		Clean:     CleanConfig{RemoveDuplicates: true, FillMissing: true},
		Project:   ProjectConfig{Remove: []string{"city"}},
		Normalize: NormalizeConfig{Enabled: true},
	}

	first, err := Run(context.Background(), tbl, p)
	require.NoError(t, err)
	second, err := Run(context.Background(), tbl, p)
	require.NoError(t, err)

	assert.Equal(t, csvString(t, first.Table), csvString(t, second.Table))
	assert.Equal(t, first.Notices, second.Notices)
}

func TestRunStepOrder(t *testing.T) {
	tbl := mustTable(t, "name,score,city\nann,10,Oslo\nbob,,Bergen\nann,10,Oslo\ncid,30,Oslo\n")

	out, err := Run(context.Background(), tbl, Pipeline{
		Clean:     CleanConfig{RemoveDuplicates: true, FillMissing: true},
		Project:   ProjectConfig{Keep: []string{"name", "score", "city"}, Remove: []string{"city"}},
		Search:    SearchConfig{Term: "N"},
		Normalize: NormalizeConfig{Enabled: true},
		Filter:    FilterConfig{Column: "score", Threshold: ptr(0.5)},
	})
	require.NoError(t, err)

	steps := make([]string, 0, len(out.Notices))
	for _, n := range out.Notices {
		steps = append(steps, n.Step)
	}
	assert.Equal(t, []string{StepDedup, StepFill, StepRemove, StepSearch, StepNormalize, StepFilter}, steps)
	assert.Equal(t, []string{"name", "score"}, out.Table.Columns())

	// After dedup: ann 10, bob NaN, cid 30. Fill gives bob 20. Search "n"
	// matches ann only. Normalizing a single row leaves score constant.
	assert.Equal(t, "name,score\nann,10\n", csvString(t, out.Table))
}

func TestRunNotices(t *testing.T) {
	tbl := mustTable(t, "a,b,c\n1,x,5\n,y,5\n3,z,5\n")

	t.Run("fill", func(t *testing.T) {
		out, err := Run(context.Background(), tbl, Pipeline{Clean: CleanConfig{FillMissing: true}})
		require.NoError(t, err)
		require.Len(t, out.Notices, 1)
		assert.Equal(t, LevelSuccess, out.Notices[0].Level)
		assert.Equal(t, "Missing values have been filled: 1 cell in a", out.Notices[0].Message)
	})

	t.Run("nothing to dedup", func(t *testing.T) {
		out, err := Run(context.Background(), tbl, Pipeline{Clean: CleanConfig{RemoveDuplicates: true}})
		require.NoError(t, err)
		assert.Equal(t, Notice{Step: StepDedup, Level: LevelInfo, Message: "No duplicate rows found"}, out.Notices[0])
		assert.Same(t, tbl, out.Table)
	})

	t.Run("normalize reports constant columns", func(t *testing.T) {
		out, err := Run(context.Background(), tbl, Pipeline{Normalize: NormalizeConfig{Enabled: true}})
		require.NoError(t, err)
		require.Len(t, out.Notices, 2)
		assert.Equal(t, "Normalized a", out.Notices[0].Message)
		assert.Equal(t, "Left unchanged (constant): c", out.Notices[1].Message)
	})

	t.Run("normalize warns when every column is constant", func(t *testing.T) {
		flat := mustTable(t, "a,b\n5,x\n5,y\n")
		out, err := Run(context.Background(), flat, Pipeline{Normalize: NormalizeConfig{Enabled: true}})
		require.NoError(t, err)
		require.Len(t, out.Notices, 1)
		assert.Equal(t, LevelWarning, out.Notices[0].Level)
	})

	t.Run("search", func(t *testing.T) {
		out, err := Run(context.Background(), tbl, Pipeline{Search: SearchConfig{Term: "Y"}})
		require.NoError(t, err)
		assert.Equal(t, "Found 1 matching row", out.Notices[0].Message)
	})
}

func TestRunErrors(t *testing.T) {
	tbl := mustTable(t, "name,city\nann,Oslo\n")

	tests := []struct {
		name    string
		p       Pipeline
		wantErr error
		prefix  string
	}{
		{
			name:    "normalize without numeric columns",
			p:       Pipeline{Normalize: NormalizeConfig{Enabled: true}},
			wantErr: table.ErrNoNumericColumns,
			prefix:  StepNormalize,
		},
		{
			name:    "filter on text column",
			p:       Pipeline{Filter: FilterConfig{Column: "city", Threshold: ptr(1)}},
			wantErr: table.ErrUnsupportedColumn,
			prefix:  StepFilter,
		},
		{
			name:    "keep unknown column",
			p:       Pipeline{Project: ProjectConfig{Keep: []string{"age"}}},
			wantErr: table.ErrColumnNotFound,
			prefix:  StepKeep,
		},
		{
			name:    "remove every column",
			p:       Pipeline{Project: ProjectConfig{Remove: []string{"name", "city"}}},
			wantErr: table.ErrNoColumnsSelected,
			prefix:  StepRemove,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(context.Background(), tbl, tt.p)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, strings.HasPrefix(err.Error(), tt.prefix+": "), err.Error())
		})
	}
}

func TestRunCancelled(t *testing.T) {
	tbl := mustTable(t, "a\n1\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, tbl, Pipeline{Clean: CleanConfig{RemoveDuplicates: true}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilterConfigActive(t *testing.T) {
	assert.False(t, FilterConfig{}.Active())
	assert.False(t, FilterConfig{Column: "a"}.Active())
	assert.False(t, FilterConfig{Threshold: ptr(1)}.Active())
	assert.True(t, FilterConfig{Column: "a", Threshold: ptr(0)}.Active())
}
