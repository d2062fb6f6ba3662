package pagination

// WindowSize is the number of consecutive page buttons shown when pages overflow.
const WindowSize = 7

// Link is a navigable control pointing at a target page.
type Link struct {
	Page     int
	Disabled bool
}

// Control describes the page buttons for one render. It carries no state beyond
// the target page of each button.
type Control struct {
	Current int
	Total   int

	Prev Link
	Next Link

	// First is set when the window does not start at page 1.
	First *Link
	// LeadingEllipsis is set when pages are skipped between First and the window.
	LeadingEllipsis bool
	Pages           []int
	// TrailingEllipsis is set when pages are skipped between the window and Last.
	TrailingEllipsis bool
	// Last is set when the window does not end at the final page.
	Last *Link
}

// Multiple reports whether there is more than one page to choose from.
func (c Control) Multiple() bool {
	return c.Total > 1
}

// Build computes the visible buttons for current within total pages. Total
// values below 1 are treated as 1 and current is clamped into range.
func Build(current, total int) Control {
	if total < 1 {
		total = 1
	}
	current = Clamp(current, total)

	start, end := 1, total
	if total > WindowSize {
		start = current - WindowSize/2
		if start < 1 {
			start = 1
		}
		end = start + WindowSize - 1
		if end > total {
			end = total
			start = end - WindowSize + 1
		}
	}

	ctrl := Control{
		Current: current,
		Total:   total,
		Prev:    Link{Page: max(current-1, 1), Disabled: current == 1},
		Next:    Link{Page: min(current+1, total), Disabled: current == total},
		Pages:   make([]int, 0, end-start+1),
	}
	for p := start; p <= end; p++ {
		ctrl.Pages = append(ctrl.Pages, p)
	}
	if start > 1 {
		ctrl.First = &Link{Page: 1}
		ctrl.LeadingEllipsis = start > 2
	}
	if end < total {
		ctrl.Last = &Link{Page: total}
		ctrl.TrailingEllipsis = end < total-1
	}
	return ctrl
}

// TotalPages returns ceil(items/size), never less than 1.
func TotalPages(items, size int) int {
	if size <= 0 || items <= 0 {
		return 1
	}
	return (items + size - 1) / size
}

// Clamp bounds page into [1, total].
func Clamp(page, total int) int {
	if total < 1 {
		total = 1
	}
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}
