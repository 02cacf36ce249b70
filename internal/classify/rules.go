package classify

import (
	"strings"

	"tapefeed/internal/domain"
)

// Rule tables for the classifier. Each table is an ordered list evaluated
// top to bottom; the first matching rule wins. Adding or reordering rules
// changes behavior without touching the matching code.

type codeOutcome int

const (
	outcomeUnknown codeOutcome = iota
	outcomePurchase
	outcomeSale
	outcomeExcluded
)

type matchKind int

const (
	matchExact matchKind = iota
	matchPrefix
	matchSubstr
)

type codeRule struct {
	kind    matchKind
	pattern string
	outcome codeOutcome
}

// insiderCodeRules resolves a coded insider transaction type. Exclusion
// rules catch non-economic transaction subtypes (grants, awards, option
// exercises, vesting, exempt and in-kind transfers): those never default
// to a guessed side.
var insiderCodeRules = []codeRule{
	{matchPrefix, "p-", outcomePurchase},
	{matchExact, "p", outcomePurchase},
	{matchSubstr, "purchase", outcomePurchase},
	{matchSubstr, "buy", outcomePurchase},
	{matchPrefix, "s-", outcomeSale},
	{matchExact, "s", outcomeSale},
	{matchSubstr, "sale", outcomeSale},
	{matchSubstr, "sell", outcomeSale},
	{matchSubstr, "grant", outcomeExcluded},
	{matchSubstr, "award", outcomeExcluded},
	{matchSubstr, "gift", outcomeExcluded},
	{matchSubstr, "exempt", outcomeExcluded},
	{matchSubstr, "exercise", outcomeExcluded},
	{matchSubstr, "option", outcomeExcluded},
	{matchSubstr, "rsu", outcomeExcluded},
	{matchSubstr, "vest", outcomeExcluded},
	{matchSubstr, "in-kind", outcomeExcluded},
	{matchSubstr, "in kind", outcomeExcluded},
	{matchSubstr, "conversion", outcomeExcluded},
	{matchSubstr, "tax", outcomeExcluded},
}

// matchCode runs a rule table against a lowercased code string.
func matchCode(rules []codeRule, code string) codeOutcome {
	s := strings.ToLower(strings.TrimSpace(code))
	if s == "" {
		return outcomeUnknown
	}
	for _, r := range rules {
		switch r.kind {
		case matchExact:
			if s == r.pattern {
				return r.outcome
			}
		case matchPrefix:
			if strings.HasPrefix(s, r.pattern) {
				return r.outcome
			}
		case matchSubstr:
			if strings.Contains(s, r.pattern) {
				return r.outcome
			}
		}
	}
	return outcomeUnknown
}

type rolePattern struct {
	substr string
	label  string
}

// rolePatterns maps free-text insider titles to canonical tags. Specific
// titles come before generic ones so "Chief Financial Officer" resolves to
// CFO rather than the catch-all OFFICER match.
var rolePatterns = []rolePattern{
	{"chief executive officer", "CEO"},
	{"ceo", "CEO"},
	{"chief financial officer", "CFO"},
	{"cfo", "CFO"},
	{"chief operating officer", "COO"},
	{"coo", "COO"},
	{"chief accounting officer", "CAO"},
	{"general counsel", "GC"},
	{"chairman", "CHAIR"},
	{"chairwoman", "CHAIR"},
	{"president", "PRES"},
	{"director", "DIR"},
	{"10%", "TENPCT"},
	{"ten percent", "TENPCT"},
	{"officer", "OFFICER"},
}

// roleFields is the fixed fallback order of payload keys searched for a
// title; the first non-empty source wins.
var roleFields = []string{"officerTitle", "role", "title", "position", "insiderRole"}

// matchRole resolves a title string to a canonical role tag. Non-empty
// titles that match no pattern fall back to the generic INSIDER tag;
// empty input yields no tag at all.
func matchRole(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	if s == "" {
		return ""
	}
	for _, p := range rolePatterns {
		if strings.Contains(s, p.substr) {
			return p.label
		}
	}
	return "INSIDER"
}

type securityClassRule struct {
	substr string
	label  string
}

// securityClassRules normalizes security-name synonyms; unrecognized
// names pass through verbatim.
var securityClassRules = []securityClassRule{
	{"common", "Common"},
	{"ordinary share", "Common"},
	{"preferred", "Preferred"},
	{"preference share", "Preferred"},
}

// normalizeSecurityClass maps a free-text security name to its canonical
// class label. Empty input reports absent (empty string).
func normalizeSecurityClass(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	lower := strings.ToLower(trimmed)
	for _, r := range securityClassRules {
		if strings.Contains(lower, r.substr) {
			return r.label
		}
	}
	return trimmed
}

// NormalizeCongressTradeType canonicalizes a congress transaction-type
// label to one of purchase/sale/exchange/received. Unrecognized labels
// yield "".
func NormalizeCongressTradeType(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	switch s {
	case "purchase", "sale", "exchange", "received":
		return s
	}
	switch {
	case strings.Contains(s, "purchase"), strings.Contains(s, "buy"), strings.Contains(s, "acquisition"):
		return "purchase"
	case strings.Contains(s, "sale"), strings.Contains(s, "sell"), strings.Contains(s, "dispose"):
		return "sale"
	case strings.Contains(s, "exchange"):
		return "exchange"
	case strings.Contains(s, "receive"), strings.Contains(s, "gift"), strings.Contains(s, "award"):
		return "received"
	}
	return ""
}

// directionForTradeType maps a canonical trade-type label to a feed
// direction. Labels outside purchase/sale keep the unknown direction but
// are still shown for congress events.
func directionForTradeType(tradeType string) domain.Direction {
	switch strings.ToLower(strings.TrimSpace(tradeType)) {
	case "purchase", "p-purchase":
		return domain.DirectionPurchase
	case "sale", "s-sale":
		return domain.DirectionSale
	}
	return domain.DirectionUnknown
}
