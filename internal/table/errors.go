package table

import "errors"

var (
	// ErrParse is returned when an upload cannot be read as a table.
	ErrParse = errors.New("could not parse file")

	// ErrUnsupportedFileType wraps ErrParse for extensions other than .csv and .xlsx.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrEmptyFile is returned when a file parses to zero data rows.
	ErrEmptyFile = errors.New("file is empty")

	ErrColumnNotFound       = errors.New("column not found")
	ErrUnsupportedColumn    = errors.New("unsupported column")
	ErrNoColumnsSelected    = errors.New("no columns selected")
	ErrNoNumericColumns     = errors.New("no numeric columns")
	ErrNoCategoricalColumns = errors.New("no categorical columns")
	ErrNoValues             = errors.New("column has no values")
)
