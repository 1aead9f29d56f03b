package server

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mercator-hq/chronicle/pkg/history"
)

// params reads typed query parameters. The first malformed value is kept
// and every later read is a no-op, like the query builders.
type params struct {
	values url.Values
	err    error
}

func newParams(values url.Values) *params {
	return &params{values: values}
}

func (p *params) has(name string) bool {
	return p.values.Has(name)
}

func (p *params) str(name string) (string, bool) {
	if p.err != nil || !p.values.Has(name) {
		return "", false
	}
	return p.values.Get(name), true
}

// list splits a comma-separated parameter. Empty items are kept so the
// builders can reject them with the parameter's name.
func (p *params) list(name string) ([]string, bool) {
	v, ok := p.str(name)
	if !ok {
		return nil, false
	}
	return strings.Split(v, ","), true
}

func (p *params) boolean(name string) bool {
	v, ok := p.str(name)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.err = history.NewInvalidArgumentError(name, fmt.Sprintf("cannot parse %q as boolean", v))
		return false
	}
	return b
}

func (p *params) integer(name string, def int) int {
	v, ok := p.str(name)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		p.err = history.NewInvalidArgumentError(name, fmt.Sprintf("cannot parse %q as integer", v))
		return def
	}
	return i
}

func (p *params) time(name string) (time.Time, bool) {
	v, ok := p.str(name)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		p.err = history.NewInvalidArgumentError(name, fmt.Sprintf("cannot parse %q as an RFC 3339 date", v))
		return time.Time{}, false
	}
	return t, true
}

// page reads firstResult and maxResults. A missing maxResults falls back to
// the configured page size.
func (p *params) page(defaultSize int) history.Page {
	return history.Page{
		FirstResult: p.integer("firstResult", 0),
		MaxResults:  p.integer("maxResults", defaultSize),
	}
}

// sorting returns sortBy and its direction. Both must be given together.
func (p *params) sorting() (string, history.Direction, bool) {
	sortBy, hasBy := p.str("sortBy")
	sortOrder, hasOrder := p.str("sortOrder")
	if p.err != nil || (!hasBy && !hasOrder) {
		return "", history.Ascending, false
	}
	if hasBy != hasOrder {
		p.err = history.NewInvalidArgumentError("sortBy",
			"only a single sorting parameter specified. sortBy and sortOrder required")
		return "", history.Ascending, false
	}
	dir, err := history.ParseDirection(sortOrder)
	if err != nil {
		p.err = err
		return "", history.Ascending, false
	}
	return sortBy, dir, true
}
