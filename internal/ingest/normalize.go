package ingest

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tapefeed/internal/classify"
	"tapefeed/internal/domain"
)

// NormalizeCongressRow converts one upstream congress filing into a tape
// event. The second return is false for rows with no symbol and no member,
// which carry nothing worth showing.
func NormalizeCongressRow(row Row, chamber string, now time.Time) (*domain.RawEvent, bool) {
	symbol := domain.CanonicalSymbol(rowString(row, "symbol", "ticker"))
	member := memberName(row)
	if symbol == "" && member == "" {
		return nil, false
	}

	tradeDate, hasTrade := rowDate(row, "transactionDate", "transaction_date")
	reportDate, hasReport := rowDate(row, "disclosureDate", "disclosure_date", "filingDate", "filing_date")

	ts := now.UTC()
	if hasReport {
		ts = reportDate
	} else if hasTrade {
		ts = tradeDate
	}

	ev := &domain.RawEvent{
		EventType:  domain.EventTypeCongress,
		TS:         ts,
		Symbol:     symbol,
		Source:     chamber,
		Chamber:    chamber,
		MemberName: member,
		TradeType:  classify.NormalizeCongressTradeType(rowString(row, "type", "transactionType")),
	}
	if hasTrade {
		ev.EventDate = &tradeDate
	}

	lo, hi := parseAmountRange(row["amount"])
	ev.AmountMin = lo
	ev.AmountMax = hi

	ev.ExternalID = externalID(
		symbol,
		chamber,
		rowString(row, "transactionDate", "transaction_date"),
		rowString(row, "disclosureDate", "disclosure_date", "filingDate", "filing_date"),
		member,
		rowString(row, "type", "transactionType"),
		rowString(row, "amount"),
	)

	payload := map[string]any{
		"external_id": ev.ExternalID,
		"symbol":      nilIfEmpty(symbol),
		"member_name": nilIfEmpty(member),
		"chamber":     chamber,
		"district":    nilIfEmpty(rowString(row, "district")),
		"owner":       nilIfEmpty(rowString(row, "owner")),
		"asset":       nilIfEmpty(rowString(row, "assetDescription", "asset_description")),
		"trade_type":  nilIfEmpty(ev.TradeType),
		"raw":         map[string]any(row),
	}
	if hasTrade {
		payload["trade_date"] = tradeDate.Format("2006-01-02")
	}
	if hasReport {
		payload["report_date"] = reportDate.Format("2006-01-02")
	}
	ev.Payload, _ = json.Marshal(payload)

	return ev, true
}

// NormalizeInsiderRow converts one upstream insider filing into a tape
// event. The dedup key covers the fields that identify a transaction, so a
// refiled page does not duplicate events.
func NormalizeInsiderRow(row Row, now time.Time) (*domain.RawEvent, bool) {
	symbol := domain.CanonicalSymbol(rowString(row, "symbol", "ticker"))
	insider := rowString(row, "insiderName", "reportingName", "insider_name")
	if symbol == "" && insider == "" {
		return nil, false
	}

	tradeDate, hasTrade := rowDate(row, "transactionDate", "transaction_date")
	filingDate, hasFiling := rowDate(row, "filingDate", "filing_date")

	ts := now.UTC()
	if hasTrade {
		ts = tradeDate
	} else if hasFiling {
		ts = filingDate
	}

	transactionType := rowString(row, "transactionType", "transaction_type")
	shares := rowFloat(row, "securitiesTransacted", "shares")
	price := rowFloat(row, "price")

	ev := &domain.RawEvent{
		EventType:       domain.EventTypeInsider,
		TS:              ts,
		Symbol:          symbol,
		Source:          "form4",
		TradeType:       strings.ToLower(transactionType),
		TransactionType: transactionType,
	}
	if hasTrade {
		ev.EventDate = &tradeDate
	}

	ev.ExternalID = externalID(
		symbol,
		rowString(row, "filingDate", "filing_date"),
		rowString(row, "transactionDate", "transaction_date"),
		rowString(row, "reportingCik", "reporting_cik"),
		insider,
		transactionType,
		floatKey(shares),
		floatKey(price),
	)

	payload := map[string]any{
		"external_id":      ev.ExternalID,
		"symbol":           nilIfEmpty(symbol),
		"insider_name":     nilIfEmpty(insider),
		"reporting_cik":    nilIfEmpty(rowString(row, "reportingCik", "reporting_cik")),
		"transaction_type": nilIfEmpty(transactionType),
		"role":             nilIfEmpty(rowString(row, "officerTitle", "insiderRole", "position", "role", "title")),
		"ownership":        nilIfEmpty(rowString(row, "ownershipType", "ownership")),
		"shares":           shares,
		"price":            price,
		"source":           "form4",
		"raw":              map[string]any(row),
	}
	if flag := rowString(row, "acquisitionOrDisposition", "acquistionOrDisposition"); flag != "" {
		payload["acquisitionDisposition"] = flag
	}
	if hasTrade {
		payload["transaction_date"] = tradeDate.Format("2006-01-02")
	}
	if hasFiling {
		payload["filing_date"] = filingDate.Format("2006-01-02")
	}
	ev.Payload, _ = json.Marshal(payload)

	return ev, true
}

// ReferenceDate is the recency cutoff key for a filing: the trade date
// when present, else the ingest timestamp.
func ReferenceDate(ev *domain.RawEvent) time.Time {
	return ev.SortTime()
}

// --- Row field helpers ---

// rowString returns the first non-empty string value among keys.
func rowString(row Row, keys ...string) string {
	for _, key := range keys {
		switch v := row[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// rowDate parses the first parseable date among keys, normalized to
// midnight UTC.
func rowDate(row Row, keys ...string) (time.Time, bool) {
	for _, key := range keys {
		raw, _ := row[key].(string)
		if raw == "" {
			continue
		}
		if t, ok := classify.ParseDate(raw); ok {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func rowFloat(row Row, keys ...string) *float64 {
	for _, key := range keys {
		if v, ok := classify.ParseAmount(row[key]); ok {
			return &v
		}
	}
	return nil
}

func memberName(row Row) string {
	if name := rowString(row, "representative", "memberName", "member_name", "senator"); name != "" {
		return name
	}
	first := rowString(row, "firstName", "first_name")
	last := rowString(row, "lastName", "last_name")
	return strings.TrimSpace(first + " " + last)
}

// parseAmountRange parses disclosed value ranges like "$1,001 - $15,000".
// A single number yields a collapsed range.
func parseAmountRange(v any) (*float64, *float64) {
	switch amount := v.(type) {
	case float64:
		return &amount, &amount
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(amount, ",", ""), "$", ""))
		if s == "" {
			return nil, nil
		}
		if lo, hi, ok := strings.Cut(s, "-"); ok {
			return parsedFloat(lo), parsedFloat(hi)
		}
		single := parsedFloat(s)
		return single, single
	}
	return nil, nil
}

func parsedFloat(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &v
}

// externalID builds the stable dedup key for a filing: a sha1 over its
// identifying fields.
func externalID(parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func floatKey(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%g", *v)
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
