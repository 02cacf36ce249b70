// Package classify turns raw, inconsistently shaped tape events into a
// canonical transaction classification: direction, counted monetary value,
// share count, unit price, actor role tag, security class, and disclosure
// lag. It is the single authority for these rules; heuristics live in
// ordered rule tables (rules.go) rather than branching code.
//
// Classification never fails with an error. Numeric derivations that cannot
// be completed degrade to absent, and an insider event whose direction
// cannot be resolved classifies to nil so the mapper drops it.
package classify

import (
	"math"
	"strings"
	"time"

	"tapefeed/internal/domain"
)

// MinMaterialValue is the materiality floor for insider counted values.
// Derived or reported values below it are treated as absent rather than
// shown as trivially small amounts.
const MinMaterialValue = 1001

// Classification is the derived transaction model for one raw event. It is
// recomputed on every render and never persisted.
type Classification struct {
	Direction domain.Direction
	TradeType string

	CountedValue float64
	HasValue     bool
	Shares       float64
	HasShares    bool
	Price        float64
	HasPrice     bool

	RoleLabel     string
	SecurityClass string

	LagDays int
	HasLag  bool
}

// Classify derives the transaction classification for a raw event. A nil
// result means the event has no place on the feed: insider records whose
// direction cannot be resolved, or whose transaction subtype is a
// non-economic exclusion (grant, award, exercise, vesting).
func Classify(ev *domain.RawEvent) *Classification {
	switch ev.EventType {
	case domain.EventTypeCongress:
		return classifyCongress(ev)
	case domain.EventTypeInsider:
		return classifyInsider(ev)
	default:
		// Other event types carry no transaction semantics; pass through
		// with everything absent.
		return &Classification{Direction: domain.DirectionUnknown}
	}
}

// --- Congress ---

func classifyCongress(ev *domain.RawEvent) *Classification {
	c := &Classification{
		TradeType: ev.TradeType,
		Direction: directionForTradeType(ev.TradeType),
	}

	// Disclosed amount range, used as-is. The counted value is the range
	// ceiling, matching how the feed's minimum-amount filter reads it.
	if ev.AmountMax != nil {
		setCounted(c, *ev.AmountMax)
	} else if ev.AmountMin != nil {
		setCounted(c, *ev.AmountMin)
	}

	payload := ev.PayloadMap()
	c.SecurityClass = normalizeSecurityClass(firstString(payload, "security_name", "securityName", "asset_description", "description"))
	c.LagDays, c.HasLag = lagDays(payload)
	return c
}

// lagDays computes the whole-day gap between trade and disclosure dates.
// Missing or malformed dates yield absent, as do negative gaps: a report
// dated before its trade is an upstream data error and is suppressed
// rather than displayed.
func lagDays(payload map[string]any) (int, bool) {
	trade, ok := ParseDate(firstString(payload, "trade_date", "tradeDate", "transaction_date", "transactionDate"))
	if !ok {
		return 0, false
	}
	report, ok := ParseDate(firstString(payload, "report_date", "reportDate", "filing_date", "filingDate"))
	if !ok {
		return 0, false
	}
	days := int(report.Sub(trade) / (24 * time.Hour))
	if days < 0 {
		return 0, false
	}
	return days, true
}

// --- Insider ---

func classifyInsider(ev *domain.RawEvent) *Classification {
	payload := ev.PayloadMap()

	dir, ok := insiderDirection(ev, payload)
	if !ok {
		return nil
	}

	c := &Classification{
		Direction: dir,
		TradeType: string(dir),
	}

	if shares, ok := ParseAmount(firstValue(payload, "shares", "securitiesTransacted", "securities_transacted")); ok && shares > 0 {
		c.Shares = shares
		c.HasShares = true
	}
	if price, ok := ParseAmount(firstValue(payload, "price", "transactionPrice", "transaction_price")); ok && price > 0 {
		c.Price = price
		c.HasPrice = true
	}

	// Reported range wins over the shares x price derivation.
	switch {
	case ev.AmountMax != nil && *ev.AmountMax > 0:
		setCounted(c, *ev.AmountMax)
	case ev.AmountMin != nil && *ev.AmountMin > 0:
		setCounted(c, *ev.AmountMin)
	case c.HasShares && c.HasPrice:
		setCounted(c, c.Shares*c.Price)
	}
	if c.HasValue && c.CountedValue < MinMaterialValue {
		c.CountedValue = 0
		c.HasValue = false
	}

	c.RoleLabel = insiderRole(payload)
	c.SecurityClass = normalizeSecurityClass(firstString(payload, "securityName", "security_name", "securityTitle", "security_title"))
	return c
}

// insiderDirection resolves the transaction direction for an insider event.
// Decision order: coded transaction type against the rule table, then the
// acquisition/disposition flag when the code is absent or unrecognized.
// Exclusion codes and unresolvable records report !ok.
func insiderDirection(ev *domain.RawEvent, payload map[string]any) (domain.Direction, bool) {
	codes := []string{
		ev.TransactionType,
		ev.TradeType,
		firstString(payload, "transactionType", "transaction_type"),
	}
	for _, code := range codes {
		switch matchCode(insiderCodeRules, code) {
		case outcomePurchase:
			return domain.DirectionPurchase, true
		case outcomeSale:
			return domain.DirectionSale, true
		case outcomeExcluded:
			return domain.DirectionUnknown, false
		}
	}

	flag := strings.TrimSpace(firstString(payload, "acquisitionDisposition", "acquisition_disposition", "acquistionOrDisposition", "acquisitionOrDisposition"))
	switch flag {
	case "A", "a":
		return domain.DirectionPurchase, true
	case "D", "d":
		return domain.DirectionSale, true
	}
	return domain.DirectionUnknown, false
}

// insiderRole picks the first non-empty title-like payload field and runs
// it through the role pattern table.
func insiderRole(payload map[string]any) string {
	for _, key := range roleFields {
		if title := stringValue(payload[key]); title != "" {
			return matchRole(title)
		}
	}
	return ""
}

// --- helpers ---

func setCounted(c *Classification, v float64) {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	c.CountedValue = v
	c.HasValue = true
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// firstString returns the first non-empty string among the given payload
// keys.
func firstString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := stringValue(payload[key]); s != "" {
			return s
		}
	}
	return ""
}

// firstValue returns the first present value among the given payload keys.
func firstValue(payload map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := payload[key]; ok && v != nil {
			return v
		}
	}
	return nil
}
