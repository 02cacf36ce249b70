package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tapefeed/internal/config"
	"tapefeed/internal/domain"
	"tapefeed/internal/feed"
	"tapefeed/internal/feedstate"
	"tapefeed/internal/pager"
	"tapefeed/internal/suggest"
	"tapefeed/pkg/tapefeed"
)

// Styles.
var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	purchaseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	saleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	symbolStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	symbolWlStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	valueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	focusStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	suggestStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	suggestHlStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11"))
	highlightBG    = lipgloss.Color("236")
)

const (
	suggestLimit = 8
	placeholder  = "—"
)

// Focus targets. The feed list is focused by default; tab cycles through
// the filter inputs and back.
type focus int

const (
	focusFeed focus = iota
	focusSymbol
	focusMember
	focusRole
	focusAmount
	focusCount
)

// Messages.
type commitMsg struct {
	state feedstate.FilterState
	gen   uint64
}

type suggestReqMsg struct {
	req suggest.Request
}

type feedLoadedMsg struct {
	gen      uint64
	cursor   string
	appended bool
	page     *tapefeed.EventsPage
	err      error
}

type suggestLoadedMsg struct {
	kind  suggest.Kind
	seq   uint64
	items []string
	err   error
}

type watchlistLoadedMsg struct {
	symbols map[string]bool
	err     error
}

type watchlistToggleMsg struct {
	symbol string
	added  bool
	err    error
}

// fetchSpec remembers the last fetch so a failed one can be retried.
type fetchSpec struct {
	gen      uint64
	cursor   string
	appended bool
}

// Model.
type model struct {
	client  *tapefeed.Client
	filters *feedstate.Store
	engines map[focus]*suggest.Engine
	pages   *pager.Pager
	logger  *slog.Logger

	// Callback-to-message bridge: debounce timers fire on their own
	// goroutines and deliver through this channel.
	ch chan tea.Msg

	inputs   map[focus]*textinput.Model
	focus    focus
	items    []domain.FeedItem
	selected int
	loading  bool
	lastErr  string
	retry    *fetchSpec
	pageSize int

	watchlist map[string]bool

	viewport      viewport.Model
	ready         bool
	width, height int
}

func newModel(client *tapefeed.Client, cfg *config.Config, initial url.Values, logger *slog.Logger) *model {
	m := &model{
		client:    client,
		logger:    logger,
		ch:        make(chan tea.Msg, 32),
		pages:     pager.New(pager.ModeCursor, cfg.Feed.PageSize),
		pageSize:  cfg.Feed.PageSize,
		watchlist: make(map[string]bool),
		inputs:    make(map[focus]*textinput.Model),
		engines:   make(map[focus]*suggest.Engine),
	}

	commitQuiet := time.Duration(cfg.Feed.CommitQuietMS) * time.Millisecond
	suggestQuiet := time.Duration(cfg.Feed.SuggestQuietMS) * time.Millisecond

	m.filters = feedstate.NewStore(commitQuiet, func(s feedstate.FilterState, gen uint64) {
		m.ch <- commitMsg{state: s, gen: gen}
	}, nil, "feed")
	m.filters.Hydrate(initial)

	dispatch := func(req suggest.Request) {
		m.ch <- suggestReqMsg{req: req}
	}
	m.engines[focusSymbol] = suggest.NewEngine(suggest.KindSymbol, suggestQuiet, suggestLimit, dispatch)
	m.engines[focusMember] = suggest.NewEngine(suggest.KindMember, suggestQuiet, suggestLimit, dispatch)
	m.engines[focusRole] = suggest.NewEngine(suggest.KindRole, suggestQuiet, suggestLimit, dispatch)

	st := m.filters.State()
	for f, label := range map[focus]struct{ prompt, value string }{
		focusSymbol: {"symbol: ", st.Symbol},
		focusMember: {"member: ", st.Member},
		focusRole:   {"role: ", st.Role},
		focusAmount: {"min$: ", st.MinAmount},
	} {
		ti := textinput.New()
		ti.Prompt = label.prompt
		ti.SetValue(label.value)
		ti.CharLimit = 64
		ti.Width = 18
		m.inputs[f] = &ti
	}

	return m
}

func waitForEvent(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.ch),
		func() tea.Msg {
			// Commit the hydrated state to drive the initial fetch.
			m.filters.CommitNow(nil)
			return nil
		},
		m.loadWatchlistCmd(),
	)
}

func (m *model) loadWatchlistCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		symbols, err := client.GetWatchlist(ctx)
		if err != nil {
			return watchlistLoadedMsg{err: err}
		}
		set := make(map[string]bool, len(symbols))
		for _, s := range symbols {
			set[s] = true
		}
		return watchlistLoadedMsg{symbols: set}
	}
}

// queryFromState translates the committed filter state into API parameters.
func queryFromState(st feedstate.FilterState) tapefeed.Query {
	q := tapefeed.Query{
		Member:     st.Member,
		Chamber:    st.Chamber,
		Party:      st.Party,
		TradeType:  st.TradeType,
		Role:       st.Role,
		Ownership:  st.Ownership,
		MinAmount:  st.MinAmount,
		RecentDays: st.RecentDays,
	}
	if st.Mode != feedstate.ModeAll && st.Mode != "" {
		q.Tape = string(st.Mode)
	}
	if st.Symbol != "" {
		q.Symbols = []string{st.Symbol}
	}
	return q
}

func (m *model) fetchCmd(gen uint64, cursor string, appended bool) tea.Cmd {
	st := m.filters.Committed()
	client := m.client
	pageSize := m.pageSize
	return func() tea.Msg {
		q := queryFromState(st)
		q.Cursor = cursor
		q.Limit = pageSize
		q.IncludeTotal = cursor == ""

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		page, err := client.ListEvents(ctx, q)
		return feedLoadedMsg{gen: gen, cursor: cursor, appended: appended, page: page, err: err}
	}
}

func (m *model) suggestCmd(req suggest.Request) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		items, err := client.Suggest(ctx, string(req.Kind), req.Query, req.Tape, req.Limit)
		return suggestLoadedMsg{kind: req.Kind, seq: req.Seq, items: items, err: err}
	}
}

func (m *model) tapeParam() string {
	st := m.filters.State()
	if st.Mode == feedstate.ModeAll || st.Mode == "" {
		return ""
	}
	return string(st.Mode)
}

func (m *model) focusedEngine() *suggest.Engine {
	return m.engines[m.focus]
}

func (m *model) engineForKind(kind suggest.Kind) *suggest.Engine {
	switch kind {
	case suggest.KindSymbol:
		return m.engines[focusSymbol]
	case suggest.KindMember:
		return m.engines[focusMember]
	case suggest.KindRole:
		return m.engines[focusRole]
	}
	return nil
}

func (m *model) dismissEngines() {
	for _, e := range m.engines {
		e.Dismiss()
	}
}

func (m *model) shutdown() {
	for _, e := range m.engines {
		e.Close()
	}
	m.filters.Close()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(m.width, 1)
			m.ready = true
		}
		m.resize()
		m.refreshContent()
		return m, nil

	case commitMsg:
		// A new filter generation: restart pagination from the top.
		m.pages.Invalidate()
		m.loading = true
		m.lastErr = ""
		return m, tea.Batch(waitForEvent(m.ch), m.fetchCmd(msg.gen, "", false))

	case suggestReqMsg:
		return m, tea.Batch(waitForEvent(m.ch), m.suggestCmd(msg.req))

	case feedLoadedMsg:
		m.loading = false
		if msg.gen != m.filters.Generation() {
			// Filters moved on while this fetch was in flight.
			m.logger.Info("dropping stale page", "gen", msg.gen, "current", m.filters.Generation())
			return m, nil
		}
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			m.retry = &fetchSpec{gen: msg.gen, cursor: msg.cursor, appended: msg.appended}
			m.logger.Error("loading events", "error", msg.err)
			m.refreshContent()
			return m, nil
		}
		m.lastErr = ""
		m.retry = nil
		mapped := feed.MapAll(toRawEvents(msg.page.Items))
		if msg.appended {
			m.items = append(m.items, mapped...)
		} else {
			m.items = mapped
			m.selected = 0
			if m.ready {
				m.viewport.GotoTop()
			}
		}
		m.pages.Advance(msg.page.NextCursor)
		if msg.page.Total != nil {
			m.pages.SetTotal(*msg.page.Total)
		}
		m.refreshContent()
		return m, nil

	case suggestLoadedMsg:
		if msg.err != nil {
			m.logger.Warn("loading suggestions", "kind", msg.kind, "error", msg.err)
			return m, nil
		}
		if eng := m.engineForKind(msg.kind); eng != nil {
			eng.Apply(msg.seq, msg.items)
		}
		m.resize()
		m.refreshContent()
		return m, nil

	case watchlistLoadedMsg:
		if msg.err != nil {
			m.logger.Warn("loading watchlist", "error", msg.err)
		} else {
			m.watchlist = msg.symbols
			m.refreshContent()
		}
		return m, nil

	case watchlistToggleMsg:
		if msg.err != nil {
			m.logger.Warn("watchlist toggle failed", "symbol", msg.symbol, "error", msg.err)
			// Revert optimistic update.
			if msg.added {
				delete(m.watchlist, msg.symbol)
			} else {
				m.watchlist[msg.symbol] = true
			}
			m.refreshContent()
		}
		return m, nil
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.shutdown()
		return m, tea.Quit

	case "tab":
		if eng := m.focusedEngine(); eng != nil {
			eng.Dismiss()
		}
		if ti := m.inputs[m.focus]; ti != nil {
			ti.Blur()
		}
		m.focus = (m.focus + 1) % focusCount
		if ti := m.inputs[m.focus]; ti != nil {
			ti.Focus()
		}
		m.resize()
		m.refreshContent()
		return m, nil

	case "esc":
		if eng := m.focusedEngine(); eng != nil && eng.Open() {
			eng.Dismiss()
			m.resize()
			m.refreshContent()
			return m, nil
		}
		if m.focus != focusFeed {
			if ti := m.inputs[m.focus]; ti != nil {
				ti.Blur()
			}
			m.focus = focusFeed
			m.refreshContent()
		}
		return m, nil

	case "up", "down":
		if eng := m.focusedEngine(); eng != nil && eng.Open() {
			if msg.String() == "up" {
				eng.Prev()
			} else {
				eng.Next()
			}
			m.refreshContent()
			return m, nil
		}
		if msg.String() == "up" && m.selected > 0 {
			m.selected--
		}
		if msg.String() == "down" && m.selected < len(m.items)-1 {
			m.selected++
		}
		m.refreshContent()
		m.ensureVisible()
		return m, nil

	case "enter":
		eng := m.focusedEngine()
		if eng == nil || !eng.Open() {
			return m, nil
		}
		choice, ok := eng.Select()
		if !ok {
			return m, nil
		}
		if ti := m.inputs[m.focus]; ti != nil {
			ti.SetValue(choice)
		}
		field := m.focus
		m.filters.CommitNow(func(st *feedstate.FilterState) {
			switch field {
			case focusSymbol:
				st.Symbol = choice
			case focusMember:
				st.Member = choice
			case focusRole:
				st.Role = choice
			}
		})
		m.resize()
		m.refreshContent()
		return m, nil

	case "pgdown":
		return m, m.loadMore()
	}

	if m.focus == focusFeed {
		return m.handleFeedKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m *model) handleFeedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.shutdown()
		return m, tea.Quit

	case "m":
		st := m.filters.State()
		var next feedstate.Mode
		switch st.Mode {
		case feedstate.ModeAll, "":
			next = feedstate.ModeCongress
		case feedstate.ModeCongress:
			next = feedstate.ModeInsider
		default:
			next = feedstate.ModeAll
		}
		m.dismissEngines()
		m.filters.SetMode(next)
		m.syncInputs()
		m.refreshContent()
		return m, nil

	case "w":
		// Whale shorthand: floor the feed at $250k.
		m.filters.Apply(func(st *feedstate.FilterState) {
			if st.MinAmount == "250000" {
				st.MinAmount = ""
			} else {
				st.MinAmount = "250000"
			}
		})
		m.syncInputs()
		m.refreshContent()
		return m, nil

	case "c":
		m.dismissEngines()
		m.filters.Reset()
		m.syncInputs()
		m.refreshContent()
		return m, nil

	case "r":
		if m.retry != nil {
			spec := *m.retry
			m.retry = nil
			m.lastErr = ""
			m.loading = true
			m.refreshContent()
			return m, m.fetchCmd(spec.gen, spec.cursor, spec.appended)
		}
		return m, nil

	case "L":
		return m, m.loadMore()

	case " ":
		return m, m.toggleWatchlist()
	}
	return m, nil
}

func (m *model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ti := m.inputs[m.focus]
	if ti == nil {
		return m, nil
	}
	before := ti.Value()
	updated, cmd := ti.Update(msg)
	*ti = updated
	text := ti.Value()
	if text == before {
		return m, cmd
	}

	field := m.focus
	if field == focusSymbol {
		text = strings.ToUpper(text)
		ti.SetValue(text)
	}
	m.filters.Apply(func(st *feedstate.FilterState) {
		switch field {
		case focusSymbol:
			st.Symbol = text
		case focusMember:
			st.Member = text
		case focusRole:
			st.Role = text
		case focusAmount:
			st.MinAmount = text
		}
	})
	if eng := m.focusedEngine(); eng != nil {
		eng.Input(text, m.tapeParam())
	}
	m.resize()
	m.refreshContent()
	return m, cmd
}

func (m *model) loadMore() tea.Cmd {
	if m.loading || !m.pages.CanNext() {
		return nil
	}
	m.loading = true
	m.refreshContent()
	return m.fetchCmd(m.filters.Generation(), m.pages.Cursor(), true)
}

func (m *model) toggleWatchlist() tea.Cmd {
	if m.selected >= len(m.items) {
		return nil
	}
	sym := m.items[m.selected].Symbol
	if sym == "" {
		return nil
	}
	client := m.client
	if m.watchlist[sym] {
		delete(m.watchlist, sym)
		m.refreshContent()
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := client.RemoveFromWatchlist(ctx, sym)
			return watchlistToggleMsg{symbol: sym, added: false, err: err}
		}
	}
	m.watchlist[sym] = true
	m.refreshContent()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := client.AddToWatchlist(ctx, sym)
		return watchlistToggleMsg{symbol: sym, added: true, err: err}
	}
}

// syncInputs pushes the store's state back into the text inputs after a
// programmatic change (mode switch, reset, whale toggle).
func (m *model) syncInputs() {
	st := m.filters.State()
	m.inputs[focusSymbol].SetValue(st.Symbol)
	m.inputs[focusMember].SetValue(st.Member)
	m.inputs[focusRole].SetValue(st.Role)
	m.inputs[focusAmount].SetValue(st.MinAmount)
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

func (m *model) dropdownHeight() int {
	if eng := m.focusedEngine(); eng != nil && eng.Open() {
		n := len(eng.Items())
		if n > suggestLimit {
			n = suggestLimit
		}
		return n
	}
	return 0
}

func (m *model) resize() {
	if !m.ready {
		return
	}
	// header + filter row + dropdown + footer
	vpHeight := m.height - 2 - m.dropdownHeight() - 1
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = vpHeight
}

func (m *model) refreshContent() {
	if m.ready {
		m.viewport.SetContent(m.renderItems())
	}
}

func (m *model) ensureVisible() {
	if !m.ready {
		return
	}
	line := m.selected
	yOff := m.viewport.YOffset
	vpH := m.viewport.Height
	if line < yOff {
		m.viewport.SetYOffset(line)
	} else if line >= yOff+vpH {
		m.viewport.SetYOffset(line - vpH + 1)
	}
}

func (m *model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderFilters())
	b.WriteString("\n")
	if dd := m.renderDropdown(); dd != "" {
		b.WriteString(dd)
	}
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m *model) renderHeader() string {
	st := m.filters.State()
	mode := string(st.Mode)
	if mode == "" {
		mode = string(feedstate.ModeAll)
	}
	total := ""
	if t := m.pages.Total(); t != pager.TotalUnknown {
		total = fmt.Sprintf("    total: %d", t)
	}
	state := ""
	switch {
	case m.loading:
		state = "    loading..."
	case m.pages.HasMore():
		state = "    more available"
	}
	text := fmt.Sprintf(" tapefeed  mode: %s    shown: %d%s%s ", strings.ToUpper(mode), len(m.items), total, state)
	return headerStyle.Render(padOrTrunc(text, m.width))
}

func (m *model) renderFilters() string {
	var parts []string
	for _, f := range []focus{focusSymbol, focusMember, focusRole, focusAmount} {
		ti := m.inputs[f]
		view := ti.Prompt + ti.Value()
		if f == m.focus {
			view = ti.View()
			parts = append(parts, focusStyle.Render("["+view+"]"))
		} else {
			parts = append(parts, labelStyle.Render(view))
		}
	}
	return " " + strings.Join(parts, "   ")
}

func (m *model) renderDropdown() string {
	eng := m.focusedEngine()
	if eng == nil || !eng.Open() {
		return ""
	}
	items := eng.Items()
	cursor := eng.Cursor()
	var b strings.Builder
	for i, it := range items {
		if i >= suggestLimit {
			break
		}
		line := "   " + it
		if i == cursor {
			b.WriteString(suggestHlStyle.Render(line))
		} else {
			b.WriteString(suggestStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *model) renderItems() string {
	if len(m.items) == 0 {
		if m.loading {
			return dimStyle.Render("  loading...")
		}
		return dimStyle.Render("  (no matching events)")
	}

	var b strings.Builder
	for i := range m.items {
		b.WriteString(m.renderItem(&m.items[i], i == m.selected && m.focus == focusFeed))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *model) renderItem(it *domain.FeedItem, selected bool) string {
	hl := func(s lipgloss.Style) lipgloss.Style {
		if selected {
			return s.Background(highlightBG)
		}
		return s
	}

	var arrow string
	var arrowStyle lipgloss.Style
	switch it.Direction {
	case domain.DirectionPurchase:
		arrow, arrowStyle = "▲", purchaseStyle
	case domain.DirectionSale:
		arrow, arrowStyle = "▼", saleStyle
	default:
		arrow, arrowStyle = "•", dimStyle
	}

	sym := it.Symbol
	if sym == "" {
		sym = placeholder
	}
	symStyle := symbolStyle
	wlMark := " "
	if m.watchlist[it.Symbol] {
		symStyle = symbolWlStyle
		wlMark = "*"
	}

	value := placeholder
	if it.HasValue {
		value = formatValue(it.CountedValue)
	}

	lag := placeholder
	if it.HasLag {
		lag = fmt.Sprintf("+%dd", it.LagDays)
	}

	var who string
	switch it.EventType {
	case domain.EventTypeCongress:
		who = it.MemberName
		if tag := congressTag(it); tag != "" {
			who += " (" + tag + ")"
		}
	case domain.EventTypeInsider:
		who = it.RoleLabel
	default:
		who = it.Headline
	}
	if who == "" {
		who = placeholder
	}

	var b strings.Builder
	b.WriteString(hl(arrowStyle).Render(" " + arrow + " "))
	b.WriteString(hl(dimStyle).Render(it.Timestamp.Format("2006-01-02") + " "))
	b.WriteString(hl(symStyle).Render(fmt.Sprintf("%s%-8s", wlMark, sym)))
	b.WriteString(hl(valueStyle).Render(fmt.Sprintf(" %9s", value)))
	b.WriteString(hl(dimStyle).Render(fmt.Sprintf("  %5s  ", lag)))
	b.WriteString(hl(lipgloss.NewStyle()).Render(who))
	return b.String()
}

// congressTag renders the "(D-House)" style annotation, omitting pieces the
// filing did not carry.
func congressTag(it *domain.FeedItem) string {
	var parts []string
	if it.Party != "" {
		parts = append(parts, strings.ToUpper(it.Party[:1]))
	}
	if it.Chamber != "" {
		parts = append(parts, strings.ToUpper(it.Chamber[:1])+it.Chamber[1:])
	}
	return strings.Join(parts, "-")
}

func (m *model) renderFooter() string {
	if m.lastErr != "" {
		return errorStyle.Render(padOrTrunc(" error: "+m.lastErr+"  (r to retry) ", m.width))
	}
	keys := " q quit  tab field  m mode  up/dn select  enter pick  L more  w whale  c clear  space watch"
	return footerStyle.Render(padOrTrunc(keys, m.width))
}

func formatValue(v float64) string {
	switch {
	case v >= 1e6:
		return fmt.Sprintf("$%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("$%.1fK", v/1e3)
	default:
		return fmt.Sprintf("$%.0f", v)
	}
}

// padOrTrunc pads s with spaces to width, or truncates if longer.
func padOrTrunc(s string, width int) string {
	n := len(s)
	if n >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-n)
}

func toRawEvents(events []tapefeed.Event) []domain.RawEvent {
	out := make([]domain.RawEvent, len(events))
	for i, e := range events {
		out[i] = domain.RawEvent{
			ID:               e.ID,
			ExternalID:       e.ExternalID,
			EventType:        domain.EventType(e.EventType),
			TS:               e.TS,
			EventDate:        e.EventDate,
			Symbol:           e.Symbol,
			Source:           e.Source,
			Headline:         e.Headline,
			Summary:          e.Summary,
			URL:              e.URL,
			MemberName:       e.MemberName,
			MemberBioguideID: e.MemberBioguideID,
			Chamber:          e.Chamber,
			Party:            e.Party,
			TradeType:        e.TradeType,
			TransactionType:  e.TransactionType,
			AmountMin:        e.AmountMin,
			AmountMax:        e.AmountMax,
			ImpactScore:      e.ImpactScore,
			Payload:          e.Payload,
		}
	}
	return out
}

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "tapefeed-server base URL")
	cfgPath := flag.String("config", "", "path to YAML config file")
	initialFilters := flag.String("filters", "", "initial filter query string, e.g. tape=congress&symbol=NVDA")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *cfgPath != "" {
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg = config.Default()
	}

	values, err := url.ParseQuery(*initialFilters)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parsing -filters: %v\n", err)
		os.Exit(1)
	}

	logPath := fmt.Sprintf("/tmp/tapefeed-client-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelInfo}))

	client := tapefeed.NewClient(*serverURL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := client.Health(ctx); err != nil {
		cancel()
		fmt.Fprintf(os.Stderr, "server not reachable at %s: %v\n", *serverURL, err)
		os.Exit(1)
	}
	cancel()

	p := tea.NewProgram(
		newModel(client, cfg, values, logger),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
