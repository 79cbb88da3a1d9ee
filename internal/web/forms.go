package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/JonMunkholm/datasweeper/internal/web/templates"
)

// Query keys of the pipeline form.
const (
	keyDedup     = "dedup"
	keyFill      = "fill"
	keyNormalize = "normalize"
	keyStats     = "stats"
	keyCharts    = "charts"
	keyKeep      = "keep"
	keyRemove    = "remove"
	keySearch    = "q"
	keyFilterCol = "filter_col"
	keyMin       = "min"
	keyPieCol    = "pie_col"
	keyFormat    = "format"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkRequest validates v and tags failures as bad requests.
func (s *Server) checkRequest(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidRequest, err)
	}
	return nil
}

// formFromQuery reads the pipeline form as submitted.
func formFromQuery(q url.Values) templates.Form {
	return templates.Form{
		Dedup:     flag(q, keyDedup),
		Fill:      flag(q, keyFill),
		Normalize: flag(q, keyNormalize),
		Stats:     flag(q, keyStats),
		Charts:    flag(q, keyCharts),
		Keep:      nonEmpty(q[keyKeep]),
		Remove:    nonEmpty(q[keyRemove]),
		Search:    strings.TrimSpace(q.Get(keySearch)),
		FilterCol: q.Get(keyFilterCol),
		Min:       strings.TrimSpace(q.Get(keyMin)),
		PieCol:    q.Get(keyPieCol),
		Format:    q.Get(keyFormat),
	}
}

// pipeline converts the form to a Pipeline. The filter only applies when
// both a column and a threshold are given.
func (s *Server) pipeline(f templates.Form) (core.Pipeline, error) {
	p := core.Pipeline{
		Clean:     core.CleanConfig{RemoveDuplicates: f.Dedup, FillMissing: f.Fill},
		Project:   core.ProjectConfig{Keep: f.Keep, Remove: f.Remove},
		Search:    core.SearchConfig{Term: f.Search},
		Normalize: core.NormalizeConfig{Enabled: f.Normalize},
	}
	if f.FilterCol != "" {
		threshold, err := core.ParseOptionalNumber(f.Min)
		if err != nil {
			return core.Pipeline{}, err
		}
		p.Filter = core.FilterConfig{Column: f.FilterCol, Threshold: threshold}
	}
	if err := s.checkRequest(p); err != nil {
		return core.Pipeline{}, err
	}
	return p, nil
}

// encodeForm is the inverse of formFromQuery, for chart and export links.
func encodeForm(f templates.Form) string {
	q := url.Values{}
	for key, on := range map[string]bool{
		keyDedup: f.Dedup, keyFill: f.Fill, keyNormalize: f.Normalize,
		keyStats: f.Stats, keyCharts: f.Charts,
	} {
		if on {
			q.Set(key, "1")
		}
	}
	for key, values := range map[string][]string{keyKeep: f.Keep, keyRemove: f.Remove} {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	for key, v := range map[string]string{
		keySearch: f.Search, keyFilterCol: f.FilterCol, keyMin: f.Min,
		keyPieCol: f.PieCol, keyFormat: f.Format,
	} {
		if v != "" {
			q.Set(key, v)
		}
	}
	return q.Encode()
}

func flag(q url.Values, key string) bool {
	switch strings.ToLower(q.Get(key)) {
	case "", "0", "false", "off":
		return false
	}
	return true
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// decodeJSON reads an optional JSON body into v and validates it.
func (s *Server) decodeJSON(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", core.ErrInvalidRequest, err)
	}
	return s.checkRequest(v)
}
