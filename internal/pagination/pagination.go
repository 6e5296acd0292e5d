// Package pagination implements page-number pagination over ordered result sets.
package pagination

import (
	"strconv"
	"strings"
)

// PostsPerPage is the page size of every post listing.
const PostsPerPage = 10

// Window locates one page inside a result set of Count rows.
type Window struct {
	Number   int
	NumPages int
	Count    int64
	PerPage  int
}

// Offset is the number of rows to skip for this page.
func (w Window) Offset() int {
	return (w.Number - 1) * w.PerPage
}

// Limit is the maximum number of rows on this page.
func (w Window) Limit() int {
	return w.PerPage
}

// Paginate resolves the raw page parameter against count rows.
//
// A missing or non-numeric parameter selects page 1. Numbers below 1 or past the
// end select the last page. An empty result still has one (empty) page.
func Paginate(count int64, raw string, perPage int) Window {
	if perPage <= 0 {
		perPage = PostsPerPage
	}

	numPages := 1
	if count > 0 {
		numPages = int((count + int64(perPage) - 1) / int64(perPage))
	}

	number, err := strconv.Atoi(strings.TrimSpace(raw))
	switch {
	case err != nil:
		number = 1
	case number < 1 || number > numPages:
		number = numPages
	}

	return Window{Number: number, NumPages: numPages, Count: count, PerPage: perPage}
}

// Page is one page of items together with navigation metadata.
type Page[T any] struct {
	Items       []T   `json:"items"`
	Number      int   `json:"number"`
	NumPages    int   `json:"num_pages"`
	Count       int64 `json:"count"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// NewPage wraps items fetched for w.
func NewPage[T any](items []T, w Window) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:       items,
		Number:      w.Number,
		NumPages:    w.NumPages,
		Count:       w.Count,
		HasNext:     w.Number < w.NumPages,
		HasPrevious: w.Number > 1,
	}
}
