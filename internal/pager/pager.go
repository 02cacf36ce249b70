// Package pager tracks result-set position for a feed view. It supports
// two navigation modes: cursor continuation ("load more", forward-only
// append) and page-indexed jumps. A cursor is only valid for the exact
// filter set that produced it, so any filter change invalidates it.
package pager

// Mode selects the navigation style.
type Mode string

const (
	ModeCursor Mode = "cursor"
	ModePaged  Mode = "paged"
)

// TotalUnknown marks an unknown result count. While the total is unknown,
// last-page and past-the-end navigation stay disabled rather than guessed.
const TotalUnknown = -1

// Pager is a synchronous, in-memory position tracker. It issues no
// requests itself; the view reads the pager to build query parameters and
// feeds response metadata back in.
type Pager struct {
	mode     Mode
	pageSize int
	page     int
	cursor   string
	hasMore  bool
	total    int
}

// New creates a pager at the first page with no continuation.
func New(mode Mode, pageSize int) *Pager {
	return &Pager{
		mode:     mode,
		pageSize: pageSize,
		page:     1,
		total:    TotalUnknown,
	}
}

// Mode returns the navigation style.
func (p *Pager) Mode() Mode { return p.mode }

// PageSize returns the page size.
func (p *Pager) PageSize() int { return p.pageSize }

// Page returns the current 1-based page number. Meaningful in paged mode.
func (p *Pager) Page() int { return p.page }

// Cursor returns the continuation token for the next fetch, empty when
// starting from the top.
func (p *Pager) Cursor() string { return p.cursor }

// Offset returns the row offset of the current page for paged mode.
func (p *Pager) Offset() int { return (p.page - 1) * p.pageSize }

// HasMore reports whether a further continuation exists in cursor mode.
func (p *Pager) HasMore() bool { return p.hasMore }

// Total returns the known result count, or TotalUnknown.
func (p *Pager) Total() int { return p.total }

// TotalPages returns the page count, or TotalUnknown when the total is not
// known.
func (p *Pager) TotalPages() int {
	if p.total == TotalUnknown {
		return TotalUnknown
	}
	if p.total == 0 {
		return 1
	}
	return (p.total + p.pageSize - 1) / p.pageSize
}

// Invalidate drops all continuation state. Called on any filter change:
// the next result set is not a continuation of the old query.
func (p *Pager) Invalidate() {
	p.cursor = ""
	p.hasMore = false
	p.page = 1
	p.total = TotalUnknown
}

// SetPageSize changes the page size and resets to page 1.
func (p *Pager) SetPageSize(n int) {
	if n <= 0 || n == p.pageSize {
		return
	}
	p.pageSize = n
	p.page = 1
	p.cursor = ""
	p.hasMore = false
}

// Advance records the continuation token from a response. An empty token
// means the result set is exhausted.
func (p *Pager) Advance(nextCursor string) {
	p.cursor = nextCursor
	p.hasMore = nextCursor != ""
}

// SetTotal records the result count reported by the server.
func (p *Pager) SetTotal(n int) {
	if n < 0 {
		p.total = TotalUnknown
		return
	}
	p.total = n
	if last := p.TotalPages(); p.page > last {
		p.page = last
	}
}

// CanNext reports whether forward navigation is allowed. In cursor mode
// that means a continuation exists; in paged mode the next page must be
// within the known total.
func (p *Pager) CanNext() bool {
	if p.mode == ModeCursor {
		return p.hasMore
	}
	if p.total == TotalUnknown {
		return false
	}
	return p.page < p.TotalPages()
}

// CanPrev reports whether backward navigation is allowed. Cursor mode is
// forward-only.
func (p *Pager) CanPrev() bool {
	return p.mode == ModePaged && p.page > 1
}

// CanLast reports whether a jump to the last page is allowed. Disabled
// whenever the total is unknown.
func (p *Pager) CanLast() bool {
	return p.mode == ModePaged && p.total != TotalUnknown && p.page < p.TotalPages()
}

// Next moves forward one page in paged mode. It reports whether the move
// happened.
func (p *Pager) Next() bool {
	if !p.CanNext() || p.mode != ModePaged {
		return false
	}
	p.page++
	return true
}

// Prev moves back one page.
func (p *Pager) Prev() bool {
	if !p.CanPrev() {
		return false
	}
	p.page--
	return true
}

// First jumps to page 1.
func (p *Pager) First() {
	p.page = 1
}

// Last jumps to the final page. It reports whether the jump happened; it
// cannot while the total is unknown.
func (p *Pager) Last() bool {
	if p.mode != ModePaged || p.total == TotalUnknown {
		return false
	}
	p.page = p.TotalPages()
	return true
}

// SetPage jumps to an arbitrary page, clamped to the known range. Out of
// range without a known total is rejected.
func (p *Pager) SetPage(n int) bool {
	if p.mode != ModePaged || n < 1 {
		return false
	}
	if last := p.TotalPages(); last != TotalUnknown && n > last {
		return false
	}
	if n > 1 && p.total == TotalUnknown {
		return false
	}
	p.page = n
	return true
}
