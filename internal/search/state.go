// Package search keeps the search query and page in sync with URL query
// parameters so search results stay shareable and bookmarkable.
package search

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

const (
	// QueryParam is the URL parameter holding the search text.
	QueryParam = "q"
	// PageParam is the URL parameter holding the 1-based page number.
	PageParam = "page"
)

// ErrEmptyQuery is returned when a search is attempted with a blank query.
var ErrEmptyQuery = errors.New("please enter a search term")

// State is the search state carried in the URL.
type State struct {
	Query string
	Page  int
}

// FromValues reads q and page. Malformed pages silently fall back to 1.
func FromValues(values url.Values) State {
	return State{
		Query: values.Get(QueryParam),
		Page:  ParsePage(values.Get(PageParam)),
	}
}

// Parse reads the state from a raw query string such as "q=soup&page=2".
// An unparsable query string yields the zero state with page 1.
func Parse(rawQuery string) State {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return State{Page: 1}
	}
	return FromValues(values)
}

// ParsePage converts a raw page value to a page number. Missing, non-numeric,
// zero and negative values resolve to 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// WithQuery returns the state with a new query. The page resets to 1 unless
// an explicit page is given.
func (s State) WithQuery(query string, page ...int) State {
	s.Query = query
	s.Page = 1
	if len(page) > 0 {
		s.Page = normalizePage(page[0])
	}
	return s
}

// WithPage returns the state moved to page n.
func (s State) WithPage(n int) State {
	s.Page = normalizePage(n)
	return s
}

// Values encodes the state. Empty queries and page 1 are omitted so that
// equivalent states produce the same link.
func (s State) Values() url.Values {
	values := url.Values{}
	if s.Query != "" {
		values.Set(QueryParam, s.Query)
	}
	if p := normalizePage(s.Page); p > 1 {
		values.Set(PageParam, strconv.Itoa(p))
	}
	return values
}

// Encode returns the canonical query string for the state.
func (s State) Encode() string {
	return s.Values().Encode()
}

// ValidateQuery rejects blank queries before any request is made.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// TotalPages returns the number of pages needed for total results.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

func normalizePage(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
