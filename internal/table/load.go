package table

// load.go turns an uploaded byte stream into a Table.
//
// CSV input is decoded as UTF-8 with an optional byte order mark; invalid
// byte sequences become U+FFFD instead of failing the whole file. XLSX input
// reads the first worksheet. Both paths end in FromRecords so header cleanup,
// missing-value markers and type detection are identical for either format.

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// FileKind is the declared format of an upload.
type FileKind string

const (
	FileCSV  FileKind = "csv"
	FileXLSX FileKind = "xlsx"
)

// Extension returns the file extension including the dot.
func (k FileKind) Extension() string { return "." + string(k) }

// ContentType returns the MIME type for the format.
func (k FileKind) ContentType() string {
	if k == FileXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// DetectKind returns the format declared by a file name's extension.
func DetectKind(name string) (FileKind, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".csv":
		return FileCSV, nil
	case ".xlsx":
		return FileXLSX, nil
	}
	if ext == "" {
		ext = "(none)"
	}
	return "", fmt.Errorf("%w: %w %s", ErrParse, ErrUnsupportedFileType, ext)
}

// missingMarkers are cell values loaded as NA.
var missingMarkers = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"#N/A": {},
}

func isMissing(v string) bool {
	_, ok := missingMarkers[strings.TrimSpace(v)]
	return ok
}

// Load parses r according to kind.
func Load(r io.Reader, kind FileKind) (*Table, error) {
	var (
		records [][]string
		err     error
	)
	switch kind {
	case FileCSV:
		records, err = readCSV(r)
	case FileXLSX:
		records, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %w %q", ErrParse, ErrUnsupportedFileType, string(kind))
	}
	if err != nil {
		return nil, err
	}
	return FromRecords(records)
}

func readCSV(r io.Reader) ([][]string, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrEmptyFile)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %w", ErrParse, sheet, err)
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %w", ErrParse, sheet, err)
	}
	return storedNumbers(rows, raw), nil
}

// storedNumbers replaces number-formatted cells ("1,234.50", "25%", "$9")
// with the value stored in the workbook. Dates, booleans and text keep
// their formatted form.
func storedNumbers(formatted, raw [][]string) [][]string {
	for i, row := range formatted {
		if i >= len(raw) {
			break
		}
		for j, v := range row {
			if j >= len(raw[i]) {
				break
			}
			stored := raw[i][j]
			if stored == v {
				continue
			}
			if _, err := strconv.ParseFloat(stored, 64); err != nil {
				continue
			}
			if displaysNumber(v) {
				row[j] = stored
			}
		}
	}
	return formatted
}

var numberDecorations = strings.NewReplacer(
	",", "", "%", "", "(", "", ")", "", " ", "", "\u00a0", "",
	"$", "", "€", "", "£", "", "¥", "",
)

func displaysNumber(s string) bool {
	s = strings.TrimLeft(numberDecorations.Replace(strings.TrimSpace(s)), "+-")
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// FromRecords builds a Table from a header row followed by data rows.
//
// Short rows are padded with missing cells; a row longer than the header is
// a parse error unless the extra cells are blank. Rows with no values at all
// are skipped.
func FromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}
	header := normalizeHeader(records[0])
	if len(header) == 0 {
		return nil, ErrEmptyFile
	}

	rows := make([][]string, 0, len(records))
	rows = append(rows, header)
	for i, rec := range records[1:] {
		if blankRow(rec) {
			continue
		}
		if len(rec) > len(header) && !blankRow(rec[len(header):]) {
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d",
				ErrParse, i+2, len(rec), len(header))
		}
		row := make([]string, len(header))
		for j := range row {
			row[j] = "NaN"
			if j < len(rec) && !isMissing(rec[j]) {
				row[j] = rec[j]
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 1 {
		return nil, ErrEmptyFile
	}

	df := dataframe.LoadRecords(rows,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
	)
	t, err := wrap(df)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return t, nil
}

// normalizeHeader names empty header cells "Unnamed: <i>" and suffixes
// repeats with ".<n>".
func normalizeHeader(raw []string) []string {
	if blankRow(raw) {
		return nil
	}

	header := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i := range raw {
		name := strings.TrimSpace(raw[i])
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		base := name
		for n := 1; used[name]; n++ {
			name = base + "." + strconv.Itoa(n)
		}
		used[name] = true
		header[i] = name
	}
	return header
}

func blankRow(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
