package pager

import "testing"

func TestCursorModeLoadMore(t *testing.T) {
	p := New(ModeCursor, 50)
	if p.Cursor() != "" || p.HasMore() {
		t.Fatalf("fresh pager has continuation: cursor=%q hasMore=%v", p.Cursor(), p.HasMore())
	}

	p.Advance("2024-06-01T00:00:00Z|917")
	if !p.HasMore() || !p.CanNext() {
		t.Error("continuation not recorded")
	}
	if p.Cursor() != "2024-06-01T00:00:00Z|917" {
		t.Errorf("Cursor() = %q", p.Cursor())
	}

	// Exhausted result set.
	p.Advance("")
	if p.HasMore() || p.CanNext() {
		t.Error("exhausted pager still offers more")
	}
}

func TestCursorModeIsForwardOnly(t *testing.T) {
	p := New(ModeCursor, 50)
	p.Advance("tok")
	if p.CanPrev() {
		t.Error("cursor mode allows backward navigation")
	}
	if p.Next() {
		t.Error("Next page-step succeeded in cursor mode")
	}
}

func TestInvalidateDropsContinuation(t *testing.T) {
	p := New(ModeCursor, 50)
	p.Advance("tok")
	p.SetTotal(500)

	p.Invalidate()
	if p.Cursor() != "" || p.HasMore() {
		t.Error("cursor survived invalidation")
	}
	if p.Page() != 1 || p.Total() != TotalUnknown {
		t.Errorf("page=%d total=%d after invalidation, want 1 and unknown", p.Page(), p.Total())
	}
}

func TestPageSizeChangeResetsToFirstPage(t *testing.T) {
	p := New(ModePaged, 50)
	p.SetTotal(500)
	p.SetPage(4)

	p.SetPageSize(25)
	if p.Page() != 1 {
		t.Errorf("Page() = %d after page-size change, want 1", p.Page())
	}
	if p.PageSize() != 25 {
		t.Errorf("PageSize() = %d, want 25", p.PageSize())
	}

	// Same size is a no-op.
	p.SetPage(3)
	p.SetPageSize(25)
	if p.Page() != 3 {
		t.Errorf("Page() = %d, want 3 after no-op size change", p.Page())
	}
}

func TestUnknownTotalDisablesForwardJumps(t *testing.T) {
	p := New(ModePaged, 50)
	if p.CanNext() || p.CanLast() {
		t.Error("forward navigation enabled with unknown total")
	}
	if p.Last() {
		t.Error("Last() succeeded with unknown total")
	}
	if p.SetPage(3) {
		t.Error("SetPage(3) succeeded with unknown total")
	}

	p.SetTotal(120)
	if !p.CanNext() || !p.CanLast() {
		t.Error("forward navigation disabled with known total")
	}
}

func TestPagedNavigation(t *testing.T) {
	p := New(ModePaged, 50)
	p.SetTotal(120)

	if got := p.TotalPages(); got != 3 {
		t.Fatalf("TotalPages() = %d, want 3", got)
	}
	if !p.Next() || p.Page() != 2 {
		t.Errorf("after Next: page = %d, want 2", p.Page())
	}
	if p.Offset() != 50 {
		t.Errorf("Offset() = %d, want 50", p.Offset())
	}
	if !p.Last() || p.Page() != 3 {
		t.Errorf("after Last: page = %d, want 3", p.Page())
	}
	if p.Next() {
		t.Error("Next succeeded past the last page")
	}
	if !p.Prev() || p.Page() != 2 {
		t.Errorf("after Prev: page = %d, want 2", p.Page())
	}
	p.First()
	if p.Page() != 1 || p.CanPrev() {
		t.Errorf("after First: page = %d", p.Page())
	}
	if p.SetPage(4) {
		t.Error("SetPage past the end succeeded")
	}
}

func TestSetTotalClampsCurrentPage(t *testing.T) {
	p := New(ModePaged, 50)
	p.SetTotal(500)
	p.SetPage(10)

	// The result set shrank under us.
	p.SetTotal(120)
	if p.Page() != 3 {
		t.Errorf("Page() = %d after shrink, want clamp to 3", p.Page())
	}

	p.SetTotal(0)
	if p.TotalPages() != 1 || p.Page() != 1 {
		t.Errorf("empty set: pages=%d page=%d, want 1 and 1", p.TotalPages(), p.Page())
	}
}
