package core

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/datasweeper/internal/table"
)

// ParseExportFormat accepts "csv", "xlsx" and "excel".
func ParseExportFormat(s string) (table.FileKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return table.FileCSV, nil
	case "xlsx", "excel":
		return table.FileXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// OutputFileName swaps the extension of an uploaded file's name for the
// export format's.
func OutputFileName(name string, format table.FileKind) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "data"
	}
	return base + format.Extension()
}
