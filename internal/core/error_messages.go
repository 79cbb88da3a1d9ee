package core

// error_messages.go maps technical errors to messages shown inline next to
// the file they concern.
//
// # Error Codes Reference
//
// File errors (FILE001-FILE099):
//
//	FILE001 - File too large           Action: Split the file or remove unused columns
//	FILE002 - Unsupported file type    Action: Upload a .csv or .xlsx file
//	FILE003 - File could not be parsed Action: Check delimiters, quoting and row lengths
//	FILE004 - File has no data rows    Action: Upload a file with a header and at least one row
//	FILE005 - No file selected         Action: Choose one or more files to upload
//	FILE006 - Too many files           Action: Upload fewer files at once
//
// Column errors (COL001-COL099):
//
//	COL001 - Wrong column type         Action: Numeric for filters, text for pie charts
//	COL002 - Column not found          Action: Pick a column from the list
//	COL003 - No columns selected       Action: Keep at least one column
//	COL004 - No numeric columns        Action: This step needs a column of numbers
//	COL005 - No categorical columns    Action: This step needs a column of text values
//	COL006 - Column has no values      Action: Choose a column with at least one value
//
// Input errors (INPUT001-INPUT099), chart errors (CHART001-CHART099),
// session errors (SES001-SES099), upload errors (UPL001-UPL099) and
// rate limiting (RATE001) follow the same shape. ERR000 is the fallback;
// check the logs for the technical error when a user reports it.
//
// # Matching
//
// Sentinel errors are matched with errors.Is first, in table order. Errors
// that arrive as plain text from libraries fall through to case-insensitive
// substring patterns.

import (
	"context"
	"errors"
	"strings"

	"github.com/JonMunkholm/datasweeper/internal/charts"
	"github.com/JonMunkholm/datasweeper/internal/table"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

type errorKind struct {
	target error
	msg    UserMessage
}

// errorKinds is ordered: ErrUnsupportedFileType wraps alongside ErrParse, so
// it has to be checked first.
var errorKinds = []errorKind{
	{ErrFileTooLarge, UserMessage{"File exceeds the maximum upload size", "Split the file or remove unused columns", "FILE001"}},
	{table.ErrUnsupportedFileType, UserMessage{"Unsupported file type", "Upload a .csv or .xlsx file", "FILE002"}},
	{table.ErrEmptyFile, UserMessage{"The file has no data rows", "Upload a file with a header and at least one row", "FILE004"}},
	{table.ErrParse, UserMessage{"The file could not be parsed", "Check delimiters, quoting and row lengths", "FILE003"}},
	{ErrNoFiles, UserMessage{"No file was selected", "Choose one or more files to upload", "FILE005"}},
	{ErrTooManyFiles, UserMessage{"Too many files in one upload", "Upload fewer files at once", "FILE006"}},

	{table.ErrUnsupportedColumn, UserMessage{"Column type does not fit this step", "Use a numeric column for filters and a text column for pie charts", "COL001"}},
	{table.ErrColumnNotFound, UserMessage{"Column not found", "Pick a column from the list", "COL002"}},
	{table.ErrNoColumnsSelected, UserMessage{"No columns selected", "Keep at least one column", "COL003"}},
	{table.ErrNoNumericColumns, UserMessage{"No numeric columns available", "This step needs a column of numbers", "COL004"}},
	{table.ErrNoCategoricalColumns, UserMessage{"No categorical columns available", "This step needs a column of text values", "COL005"}},
	{table.ErrNoValues, UserMessage{"Column has no values", "Choose a column with at least one value", "COL006"}},

	{ErrInvalidNumber, UserMessage{"Invalid number", "Enter a plain number such as 42 or 3.5", "INPUT001"}},
	{ErrUnknownFormat, UserMessage{"Unknown export format", "Choose CSV or Excel", "INPUT002"}},
	{ErrUnknownChart, UserMessage{"Unknown chart type", "Choose a bar, line or pie chart", "INPUT003"}},
	{ErrInvalidRequest, UserMessage{"The request could not be read", "Check the request fields and try again", "INPUT004"}},

	{charts.ErrNotEnoughData, UserMessage{"Not enough data to draw this chart", "Loosen the search or filter", "CHART001"}},

	{ErrSessionNotFound, UserMessage{"Your session has expired", "Upload your files again", "SES001"}},
	{ErrFileNotFound, UserMessage{"File not found", "It may have been removed or your session expired", "SES002"}},

	{ErrTooManyUploads, UserMessage{"System is busy processing other uploads", "Please wait a moment and try again", "UPL001"}},
	{context.Canceled, UserMessage{"Request was cancelled", "Please try again", "UPL002"}},
	{context.DeadlineExceeded, UserMessage{"Request timed out", "Try a smaller file or try again later", "UPL003"}},
}

// errorPattern matches raw error text from libraries that do not expose
// sentinels.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{"request body too large", UserMessage{"File exceeds the maximum upload size", "Split the file or remove unused columns", "FILE001"}},
	{"multipart", UserMessage{"The upload could not be read", "Please select the files again", "FILE005"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is the ERR000 fallback.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. A nil
// error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}
