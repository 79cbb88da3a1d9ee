package table

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func loadCSV(t *testing.T, data string) *Table {
	t.Helper()
	tbl, err := Load(strings.NewReader(data), FileCSV)
	require.NoError(t, err)
	return tbl
}

func csvOf(t *testing.T, tbl *Table) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))
	return buf.String()
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name    string
		want    FileKind
		wantErr bool
	}{
		{"sales.csv", FileCSV, false},
		{"SALES.CSV", FileCSV, false},
		{"report.xlsx", FileXLSX, false},
		{"Report.XLSX", FileXLSX, false},
		{"notes.txt", "", true},
		{"legacy.xls", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectKind(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFileType)
				assert.ErrorIs(t, err, ErrParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileKindContentType(t *testing.T) {
	assert.Equal(t, "text/csv", FileCSV.ContentType())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", FileXLSX.ContentType())
	assert.Equal(t, ".xlsx", FileXLSX.Extension())
}

func TestLoadCSV(t *testing.T) {
	t.Run("detects column kinds", func(t *testing.T) {
		tbl := loadCSV(t, "id,price,name,active\n1,9.5,apple,true\n2,3,pear,false\n")
		assert.Equal(t, []string{"id", "price", "name", "active"}, tbl.Columns())
		assert.Equal(t, 2, tbl.Len())
		assert.Equal(t, []Kind{KindNumeric, KindNumeric, KindText, KindBool}, tbl.Kinds())
		assert.Equal(t, []string{"id", "price"}, tbl.NumericColumns())
		assert.Equal(t, []string{"name"}, tbl.CategoricalColumns())
	})

	t.Run("strips byte order mark", func(t *testing.T) {
		tbl := loadCSV(t, "\ufeffa,b\n1,2\n")
		assert.Equal(t, []string{"a", "b"}, tbl.Columns())
	})

	t.Run("pads short rows", func(t *testing.T) {
		tbl := loadCSV(t, "a,b,c\n1,2\n3,4,5\n")
		assert.Equal(t, [][]string{{"a", "b", "c"}, {"1", "2", ""}, {"3", "4", "5"}}, tbl.Records())
	})

	t.Run("skips blank lines", func(t *testing.T) {
		tbl := loadCSV(t, "a\n1\n\n2\n")
		assert.Equal(t, 2, tbl.Len())
	})

	t.Run("names empty and repeated headers", func(t *testing.T) {
		tbl := loadCSV(t, "a,a,,a\n1,2,3,4\n")
		assert.Equal(t, []string{"a", "a.1", "Unnamed: 2", "a.2"}, tbl.Columns())
	})

	t.Run("missing markers load as missing", func(t *testing.T) {
		tbl := loadCSV(t, "n,s\n1,x\nNA,\n3,N/A\n")
		kind, err := tbl.Kind("n")
		require.NoError(t, err)
		assert.Equal(t, KindNumeric, kind)
		assert.Equal(t, []string{"", ""}, tbl.Records()[2])
	})
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		kind    FileKind
		wantErr error
	}{
		{"empty input", "", FileCSV, ErrEmptyFile},
		{"header only", "a,b\n", FileCSV, ErrEmptyFile},
		{"long row", "a,b\n1,2,3\n", FileCSV, ErrParse},
		{"broken workbook", "not a zip archive", FileXLSX, ErrParse},
		{"unknown kind", "a\n1\n", FileKind("json"), ErrUnsupportedFileType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.data), tt.kind)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"city", "visits"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Oslo", 12}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"Lima", 7}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	tbl, err := Load(&buf, FileXLSX)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"city", "visits"}, {"Oslo", "12"}, {"Lima", "7"}}, tbl.Records())
	assert.Equal(t, []string{"visits"}, tbl.NumericColumns())
}

func TestLoadXLSXNumberFormats(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"region", "revenue", "share", "day"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"North", 1234.5, 0.25, 45293}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"South", 2500.75, 0.75, 45294}))
	for col, numFmt := range map[string]int{"B": 4, "C": 9, "D": 14} {
		style, err := f.NewStyle(&excelize.Style{NumFmt: numFmt})
		require.NoError(t, err)
		require.NoError(t, f.SetCellStyle("Sheet1", col+"2", col+"3", style))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	tbl, err := Load(&buf, FileXLSX)
	require.NoError(t, err)
	assert.Equal(t, []string{"revenue", "share"}, tbl.NumericColumns())

	revenue, err := tbl.NumericSeries("revenue")
	require.NoError(t, err)
	assert.Equal(t, []float64{1234.5, 2500.75}, revenue)
	share, err := tbl.NumericSeries("share")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.75}, share)

	kind, err := tbl.Kind("day")
	require.NoError(t, err)
	assert.Equal(t, KindText, kind)
	assert.NotContains(t, tbl.Records()[1][3], "45293")

	filtered, err := tbl.FilterAtLeast("revenue", 2000)
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.Len())
}

func TestStoredNumbers(t *testing.T) {
	formatted := [][]string{
		{"a", "b", "c", "d", "e"},
		{"1,234.50", "25%", "$(1,000)", "01-02-24", "TRUE"},
	}
	raw := [][]string{
		{"a", "b", "c", "d", "e"},
		{"1234.5", "0.25", "-1000", "45293", "1"},
	}
	got := storedNumbers(formatted, raw)
	assert.Equal(t, []string{"1234.5", "0.25", "-1000", "01-02-24", "TRUE"}, got[1])
}

func TestCSVRoundTrip(t *testing.T) {
	in := "id,score,label\n1,0.25,a\n2,1.5,b\n3,,c\n"
	tbl := loadCSV(t, in)

	out := csvOf(t, tbl)
	assert.Equal(t, in, out)

	again := loadCSV(t, out)
	assert.Equal(t, tbl.Columns(), again.Columns())
	assert.Equal(t, tbl.Len(), again.Len())
}

func TestXLSXRoundTrip(t *testing.T) {
	tbl := loadCSV(t, "id,score,label\n1,0.25,a\n2,1.5,b\n3,,c\n")

	var buf bytes.Buffer
	require.NoError(t, tbl.Write(&buf, FileXLSX))

	back, err := Load(&buf, FileXLSX)
	require.NoError(t, err)
	assert.Equal(t, tbl.Records(), back.Records())
}

func TestRemoveDuplicates(t *testing.T) {
	t.Run("example", func(t *testing.T) {
		tbl := loadCSV(t, "a,b\n1,x\n1,x\n2,y\n")
		got, removed := tbl.RemoveDuplicates()
		assert.Equal(t, 1, removed)
		assert.Equal(t, "a,b\n1,x\n2,y\n", csvOf(t, got))
	})

	t.Run("n minus d distinct rows", func(t *testing.T) {
		tbl := loadCSV(t, "k,v\n1,a\n2,b\n1,a\n3,c\n2,b\n1,a\n")
		got, removed := tbl.RemoveDuplicates()
		assert.Equal(t, 3, removed)
		assert.Equal(t, 6-3, got.Len())

		seen := map[string]bool{}
		for _, rec := range got.Records()[1:] {
			key := strings.Join(rec, "|")
			assert.False(t, seen[key], "row %q repeated", key)
			seen[key] = true
		}
	})

	t.Run("no duplicates returns same table", func(t *testing.T) {
		tbl := loadCSV(t, "a\n1\n2\n")
		got, removed := tbl.RemoveDuplicates()
		assert.Zero(t, removed)
		assert.Same(t, tbl, got)
	})

	t.Run("original is untouched", func(t *testing.T) {
		tbl := loadCSV(t, "a\n1\n1\n")
		_, _ = tbl.RemoveDuplicates()
		assert.Equal(t, 2, tbl.Len())
	})
}

func TestFillMissingMean(t *testing.T) {
	tbl := loadCSV(t, "a,b,c\n1,x,10\n,y,\n3,,20\n5,z,\n")

	before, err := tbl.NumericSeries("a")
	require.NoError(t, err)
	meanBefore := meanOfPresent(before)

	got, filled, err := tbl.FillMissingMean()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1, "c": 2}, filled)

	after, err := got.NumericSeries("a")
	require.NoError(t, err)
	for _, v := range after {
		assert.False(t, math.IsNaN(v))
	}
	assert.InDelta(t, meanBefore, meanOfPresent(after), 1e-9)
	assert.Equal(t, []string{"3", "y", "15"}, got.Records()[2])

	// text columns keep their gaps
	assert.Equal(t, "", got.Records()[3][1])
}

func meanOfPresent(xs []float64) float64 {
	var sum float64
	n := 0
	for _, x := range xs {
		if !math.IsNaN(x) {
			sum += x
			n++
		}
	}
	return sum / float64(n)
}

func TestSelectAndDrop(t *testing.T) {
	tbl := loadCSV(t, "a,b,c\n1,2,3\n")

	got, err := tbl.Select([]string{"c", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, got.Columns())

	got, err = tbl.Drop([]string{"b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, got.Columns())

	got, err = tbl.Drop(nil)
	require.NoError(t, err)
	assert.Same(t, tbl, got)

	_, err = tbl.Select([]string{"missing"})
	assert.ErrorIs(t, err, ErrColumnNotFound)

	_, err = tbl.Select(nil)
	assert.ErrorIs(t, err, ErrNoColumnsSelected)

	_, err = tbl.Drop([]string{"a", "b", "c"})
	assert.ErrorIs(t, err, ErrNoColumnsSelected)
}

func TestSearch(t *testing.T) {
	tbl := loadCSV(t, "name,city,zip\nAlice,Paris,75001\nbob,LONDON,10001\nCarol,Rome,00100\n")

	tests := []struct {
		term string
		want []string
	}{
		{"lon", []string{"bob"}},
		{"ALI", []string{"Alice"}},
		{"a", []string{"Alice", "Carol"}},
		{"100", []string{"bob", "Carol"}},
		{"zzz", nil},
		{"", []string{"Alice", "bob", "Carol"}},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got := tbl.Search(tt.term)
			var names []string
			for _, rec := range got.Records()[1:] {
				names = append(names, rec[0])
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestSearchFloatText(t *testing.T) {
	tbl := loadCSV(t, "id,v\nx,2.0\ny,2.5\nz,3\nw,\n")
	assert.Equal(t, "id,v\nx,2\ny,2.5\nz,3\nw,\n", csvOf(t, tbl))

	tests := []struct {
		term string
		want []string
	}{
		{"2.0", []string{"x"}},
		{"3.0", []string{"z"}},
		{"2", []string{"x", "y"}},
		{".5", []string{"y"}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			var ids []string
			for _, rec := range tbl.Search(tt.term).Records()[1:] {
				ids = append(ids, rec[0])
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFilterAtLeast(t *testing.T) {
	dedup, _ := loadCSV(t, "a,b\n1,x\n1,x\n2,y\n").RemoveDuplicates()

	got, err := dedup.FilterAtLeast("a", 2)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"2", "y"}}, got.Records())

	tbl := loadCSV(t, "v,w\n3,a\n-1.5,b\n7,c\n,d\n")
	lo, hi, err := tbl.Range("v")
	require.NoError(t, err)
	assert.Equal(t, -1.5, lo)
	assert.Equal(t, 7.0, hi)

	t.Run("minimum keeps every present row", func(t *testing.T) {
		got, err := tbl.FilterAtLeast("v", lo)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Len())
	})

	t.Run("above maximum keeps nothing", func(t *testing.T) {
		got, err := tbl.FilterAtLeast("v", hi+0.001)
		require.NoError(t, err)
		assert.Zero(t, got.Len())
		assert.Equal(t, [][]string{{"v", "w"}}, got.Records())
	})

	t.Run("every kept row satisfies the bound", func(t *testing.T) {
		got, err := tbl.FilterAtLeast("v", 2.5)
		require.NoError(t, err)
		values, err := got.NumericSeries("v")
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 7}, values)
	})

	t.Run("int column with fractional threshold", func(t *testing.T) {
		ints := loadCSV(t, "n\n1\n2\n3\n")
		got, err := ints.FilterAtLeast("n", 1.5)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Len())
	})

	t.Run("text column is unsupported", func(t *testing.T) {
		_, err := tbl.FilterAtLeast("w", 1)
		assert.ErrorIs(t, err, ErrUnsupportedColumn)
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := tbl.FilterAtLeast("nope", 1)
		assert.ErrorIs(t, err, ErrColumnNotFound)
	})
}

func TestNormalize(t *testing.T) {
	tbl := loadCSV(t, "a,b,c,d\n1,5,x,\n3,5,y,2\n2,5,z,4\n")

	got, report, err := tbl.Normalize()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d"}, report.Scaled)
	assert.Equal(t, []string{"b"}, report.Constant)

	a, err := got.NumericSeries("a")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0.5}, a)

	d, err := got.NumericSeries("d")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(d[0]))
	assert.Equal(t, []float64{0, 1}, d[1:])

	b, err := got.NumericSeries("b")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5, 5}, b)

	_, _, err = loadCSV(t, "s\nx\n").Normalize()
	assert.ErrorIs(t, err, ErrNoNumericColumns)
}

func TestDescribe(t *testing.T) {
	t.Run("numeric", func(t *testing.T) {
		tbl := loadCSV(t, "x,label\n1,a\n2,b\n3,c\n4,d\n,e\n")
		summaries := tbl.Describe()
		require.Len(t, summaries, 1)

		s := summaries[0]
		assert.Equal(t, "x", s.Name)
		assert.Equal(t, 4, s.Count)
		assert.Equal(t, 2.5, s.Mean)
		assert.InDelta(t, math.Sqrt(5.0/3.0), s.Std, 1e-9)
		assert.Equal(t, 1.0, s.Min)
		assert.Equal(t, 4.0, s.Max)
		assert.Equal(t, 2.5, s.Median)
		assert.LessOrEqual(t, s.Min, s.Q1)
		assert.LessOrEqual(t, s.Q1, s.Median)
		assert.LessOrEqual(t, s.Median, s.Q3)
		assert.LessOrEqual(t, s.Q3, s.Max)
	})

	t.Run("text only", func(t *testing.T) {
		tbl := loadCSV(t, "fruit\napple\npear\napple\n")
		summaries := tbl.Describe()
		require.Len(t, summaries, 1)
		assert.Equal(t, KindText, summaries[0].Kind)
		assert.Equal(t, 3, summaries[0].Count)
		assert.Equal(t, 2, summaries[0].Unique)
		assert.Equal(t, "apple", summaries[0].Top)
		assert.Equal(t, 2, summaries[0].Freq)
	})
}

func TestValueCounts(t *testing.T) {
	tbl := loadCSV(t, "c,n\nb,1\na,2\nb,3\nNA,4\na,5\nc,6\nb,7\n")

	counts, err := tbl.ValueCounts("c")
	require.NoError(t, err)
	require.Len(t, counts, 3)
	assert.Equal(t, ValueCount{Value: "b", Count: 3, Percent: 50}, counts[0])
	assert.Equal(t, "a", counts[1].Value)
	assert.Equal(t, "c", counts[2].Value)
	assert.InDelta(t, 100.0/6.0, counts[2].Percent, 1e-9)

	_, err = tbl.ValueCounts("n")
	assert.ErrorIs(t, err, ErrUnsupportedColumn)
}

func TestHead(t *testing.T) {
	tbl := loadCSV(t, "a\n1\n2\n3\n")
	assert.Equal(t, 2, tbl.Head(2).Len())
	assert.Equal(t, 3, tbl.Head(10).Len())
	assert.Zero(t, tbl.Head(-1).Len())
}
