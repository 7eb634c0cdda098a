// Package pager does the pagination math shared by every list view: 1-based
// UI pages, 0-based wire pages and the five-button page window.
package pager

import (
	"math"
	"strconv"
	"strings"
)

// WindowSize is the maximum number of page buttons shown at once.
const WindowSize = 5

// WireIndex converts a UI page (1-based, possibly fractional or out of range)
// to the backend's 0-based index: max(floor(p), 1) - 1.
func WireIndex(uiPage float64) int {
	if math.IsNaN(uiPage) {
		return 0
	}
	p := math.Floor(uiPage)
	if p < 1 {
		p = 1
	}
	if p > math.MaxInt32 {
		p = math.MaxInt32
	}
	return int(p) - 1
}

// Controls is everything a pagination bar renders.
type Controls struct {
	Current       int
	Total         int
	PrevDisabled  bool
	NextDisabled  bool
	First         bool // show the "1" shortcut
	LeadingEllip  bool
	Pages         []int
	TrailingEllip bool
	Last          bool // show the last-page shortcut
}

// Build computes the controls for current (1-based) out of total pages.
func Build(current, total int) Controls {
	if total < 1 {
		return Controls{Current: 1, Total: 0, PrevDisabled: true, NextDisabled: true}
	}
	if current < 1 {
		current = 1
	}
	if current > total {
		current = total
	}

	start, end := window(current, total)
	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return Controls{
		Current:       current,
		Total:         total,
		PrevDisabled:  current <= 1,
		NextDisabled:  current >= total,
		First:         start > 1,
		LeadingEllip:  start > 2,
		Pages:         pages,
		TrailingEllip: end < total-1,
		Last:          end < total,
	}
}

func window(current, total int) (int, int) {
	switch {
	case total <= WindowSize:
		return 1, total
	case current <= 3:
		return 1, WindowSize
	case current >= total-2:
		return total - WindowSize + 1, total
	default:
		return current - 2, current + 2
	}
}

// String renders the bar, e.g. "‹ 1 … 5 6 [7] 8 9 10 ›".
func (c Controls) String() string {
	if c.Total == 0 {
		return ""
	}
	var parts []string
	if c.PrevDisabled {
		parts = append(parts, "·")
	} else {
		parts = append(parts, "‹")
	}
	if c.First {
		parts = append(parts, "1")
	}
	if c.LeadingEllip {
		parts = append(parts, "…")
	}
	for _, p := range c.Pages {
		s := strconv.Itoa(p)
		if p == c.Current {
			s = "[" + s + "]"
		}
		parts = append(parts, s)
	}
	if c.TrailingEllip {
		parts = append(parts, "…")
	}
	if c.Last {
		parts = append(parts, strconv.Itoa(c.Total))
	}
	if c.NextDisabled {
		parts = append(parts, "·")
	} else {
		parts = append(parts, "›")
	}
	return strings.Join(parts, " ")
}
