package server

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gorilla/schema"
	"github.com/matst80/slask-facets/pkg/types"
)

var ErrEmptyFilter = errors.New("filter needs a value or a min/max bound")

type FacetRequest struct {
	Limit int `schema:"limit"`
}

// FilterRequest is either a list of values (?value=a&value=b) or a numeric
// range (?min=1&max=5), not both.
type FilterRequest struct {
	Value []string `schema:"value"`
	Min   *float64 `schema:"min"`
	Max   *float64 `schema:"max"`
}

type GlobalFilterRequest struct {
	Value string `schema:"value"`
}

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

func decodeQuery[T any](query url.Values) (*T, error) {
	result := new(T)
	if err := decoder.Decode(result, query); err != nil {
		return nil, err
	}
	return result, nil
}

func FacetRequestFromQuery(query url.Values, defaultLimit int) (*FacetRequest, error) {
	req, err := decodeQuery[FacetRequest](query)
	if err != nil {
		return nil, err
	}
	if req.Limit <= 0 {
		req.Limit = defaultLimit
	}
	return req, nil
}

// Predicate turns the request into a column filter.
func (f *FilterRequest) Predicate() (types.Predicate, error) {
	values := make([]string, 0, len(f.Value))
	for _, v := range f.Value {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	hasRange := f.Min != nil || f.Max != nil
	switch {
	case len(values) > 0 && hasRange:
		return nil, errors.New("filter can not have both values and a range")
	case len(values) > 0:
		return types.StringFilter{Values: values}, nil
	case hasRange:
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			return nil, errors.New("filter min is larger than max")
		}
		return types.RangeFilter{Min: f.Min, Max: f.Max}, nil
	}
	return nil, ErrEmptyFilter
}
