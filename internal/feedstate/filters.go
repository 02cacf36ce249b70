// Package feedstate holds the filter selection for one feed view and keeps
// it consistent with a shareable URL query string. Edits apply immediately
// to local state; after a quiet period with no further edits the state is
// committed exactly once per window.
package feedstate

import (
	"net/url"
	"strconv"
)

// Mode selects which tape the view shows.
type Mode string

const (
	ModeCongress Mode = "congress"
	ModeInsider  Mode = "insider"
	ModeAll      Mode = "all"
)

// FilterState is the full filter selection for a view. String-typed fields
// hold the wire value verbatim so encoding to URL parameters and back is
// idempotent.
type FilterState struct {
	Mode       Mode
	Symbol     string
	Member     string
	Chamber    string
	Party      string
	TradeType  string
	Role       string
	Ownership  string
	MinAmount  string
	RecentDays int
}

// Default returns the initial filter state: the combined tape with nothing
// filtered.
func Default() FilterState {
	return FilterState{Mode: ModeAll}
}

// Values encodes the state as URL query parameters. Defaults are omitted so
// a pristine view produces an empty query string.
func (s FilterState) Values() url.Values {
	v := url.Values{}
	if s.Mode != "" && s.Mode != ModeAll {
		v.Set("tape", string(s.Mode))
	}
	setIf := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	setIf("symbol", s.Symbol)
	setIf("member", s.Member)
	setIf("chamber", s.Chamber)
	setIf("party", s.Party)
	setIf("trade_type", s.TradeType)
	setIf("role", s.Role)
	setIf("ownership", s.Ownership)
	setIf("min_amount", s.MinAmount)
	if s.RecentDays > 0 {
		v.Set("recent_days", strconv.Itoa(s.RecentDays))
	}
	return v
}

// ParseValues decodes URL query parameters into a filter state. Unknown
// modes and malformed integers degrade to the default values.
func ParseValues(v url.Values) FilterState {
	s := Default()
	switch Mode(v.Get("tape")) {
	case ModeCongress:
		s.Mode = ModeCongress
	case ModeInsider:
		s.Mode = ModeInsider
	}
	s.Symbol = v.Get("symbol")
	s.Member = v.Get("member")
	s.Chamber = v.Get("chamber")
	s.Party = v.Get("party")
	s.TradeType = v.Get("trade_type")
	s.Role = v.Get("role")
	s.Ownership = v.Get("ownership")
	s.MinAmount = v.Get("min_amount")
	if days, err := strconv.Atoi(v.Get("recent_days")); err == nil && days > 0 {
		s.RecentDays = days
	}
	return s
}

// WithMode returns a copy switched to the given mode with filters that are
// not meaningful to it cleared. Symbol, trade type, minimum amount, and the
// recency window apply to every mode and are left untouched.
func (s FilterState) WithMode(m Mode) FilterState {
	next := s
	next.Mode = m
	switch m {
	case ModeInsider:
		next.Member = ""
		next.Chamber = ""
		next.Party = ""
	case ModeCongress:
		next.Role = ""
		next.Ownership = ""
	}
	return next
}
