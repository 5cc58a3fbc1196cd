package paginate

import (
	"math"
	"strconv"
	"strings"
)

// Page is one window over a result set. Number is 1-based.
type Page[T any] struct {
	Items       []T   `json:"items"`
	Number      int   `json:"number"`
	NumPages    int   `json:"num_pages"`
	Count       int64 `json:"count"`
	PerPage     int   `json:"per_page"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// Window is the row range one page covers.
type Window struct {
	Number   int
	NumPages int
	Offset   int
	Limit    int
}

// Resolve maps a raw page parameter onto count rows split into pages of
// perPage. A parameter that is not an integer yields the first page, one that
// is out of range yields the last page. Zero rows still produce page 1 of 1.
func Resolve(raw string, count int64, perPage int) Window {
	if perPage < 1 {
		perPage = 1
	}
	numPages := 1
	if count > 0 {
		numPages = int(math.Ceil(float64(count) / float64(perPage)))
	}

	number, ok := parseNumber(raw)
	switch {
	case !ok:
		number = 1
	case number < 1 || number > numPages:
		number = numPages
	}
	return Window{
		Number:   number,
		NumPages: numPages,
		Offset:   (number - 1) * perPage,
		Limit:    perPage,
	}
}

// NewPage wraps items fetched for w.
func NewPage[T any](items []T, w Window, count int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:       items,
		Number:      w.Number,
		NumPages:    w.NumPages,
		Count:       count,
		PerPage:     w.Limit,
		HasNext:     w.Number < w.NumPages,
		HasPrevious: w.Number > 1,
	}
}

// An absent parameter means page 1; "2.0" is accepted as 2.
func parseNumber(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, true
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}
