package core

// convert.go parses numbers typed into the filter threshold box.
//
// People paste values the way their spreadsheet shows them, so the parser
// accepts currency symbols, thousands separators, a trailing percent sign
// and accounting negatives "(1,234.50)".

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// numericRegex validates a number after cleanup: integers, decimals and
// scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

var currencyReplacer = strings.NewReplacer(
	"$", "",
	"€", "",
	"£", "",
	"¥", "",
	",", "",
	" ", "",
	"_", "",
)

// ParseNumber converts user input to a float. A trailing % is stripped
// without scaling, so "15%" filters a column holding 15.
func ParseNumber(s string) (float64, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidNumber)
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.TrimSuffix(s, "%")
	s = currencyReplacer.Replace(s)

	if negative {
		s = "-" + strings.TrimPrefix(s, "-")
	}

	if !numericRegex.MatchString(s) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}
	return f, nil
}

// ParseOptionalNumber returns nil for blank input.
func ParseOptionalNumber(s string) (*float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	f, err := ParseNumber(s)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
