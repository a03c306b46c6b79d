package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/folio/backend/internal/contracts"
)

// MaxMovers caps the significant movers listed in a report
const MaxMovers = 5

// OtherSector groups positions without a sector
const OtherSector = "Other"

var hundred = decimal.NewFromInt(100)

// holding is a symbol's merged position valued at today's quote
type holding struct {
	symbol    string
	sector    string
	quantity  decimal.Decimal
	price     decimal.Decimal
	change    decimal.Decimal // per share
	changePct decimal.Decimal
	quoted    bool
	cost      decimal.Decimal // sum of quantity × avg cost over merged lots
}

// value is market value when quoted, otherwise the lots' cost basis
func (h holding) value() decimal.Decimal {
	if !h.quoted {
		return h.cost
	}
	return h.quantity.Mul(h.price)
}

func (h holding) valueChange() decimal.Decimal { return h.quantity.Mul(h.change) }

// Build computes a daily report from positions and quotes.
// Positions whose symbol has no quote are valued at average cost with no change.
func Build(userID string, date time.Time, threshold float64, positions []contracts.Position, quotes []contracts.Quote) *contracts.DailyReport {
	holdings := merge(positions, quotes)

	total := decimal.Zero
	totalChange := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.value())
		totalChange = totalChange.Add(h.valueChange())
	}

	r := &contracts.DailyReport{
		UserID:            userID,
		ReportDate:        date,
		PortfolioValue:    money2(total),
		Change:            money2(totalChange),
		ChangePercent:     money2(percentOf(totalChange, total.Sub(totalChange))),
		SignificantMovers: movers(holdings, decimal.NewFromFloat(threshold)),
		SectorPerformance: sectors(holdings, total),
	}
	r.Summary = summarize(r, threshold, len(holdings))
	return r
}

func merge(positions []contracts.Position, quotes []contracts.Quote) []holding {
	bySymbol := make(map[string]contracts.Quote, len(quotes))
	for _, q := range quotes {
		bySymbol[strings.ToUpper(q.Symbol)] = q
	}

	index := make(map[string]int)
	var out []holding
	for _, p := range positions {
		symbol := strings.ToUpper(strings.TrimSpace(p.Symbol))
		qty := decimal.NewFromFloat(p.Quantity)
		cost := qty.Mul(decimal.NewFromFloat(p.AvgCost))

		if i, ok := index[symbol]; ok {
			h := &out[i]
			h.quantity = h.quantity.Add(qty)
			h.cost = h.cost.Add(cost)
			if !h.quoted && !h.quantity.IsZero() {
				h.price = h.cost.Div(h.quantity)
			}
			continue
		}

		h := holding{
			symbol:   symbol,
			sector:   p.Sector,
			quantity: qty,
			price:    decimal.NewFromFloat(p.AvgCost),
			cost:     cost,
		}
		if h.sector == "" {
			h.sector = OtherSector
		}
		if q, ok := bySymbol[symbol]; ok {
			h.price = decimal.NewFromFloat(q.Price)
			h.change = decimal.NewFromFloat(q.Change)
			h.changePct = decimal.NewFromFloat(q.ChangePercent)
			h.quoted = true
		}

		index[symbol] = len(out)
		out = append(out, h)
	}
	return out
}

// movers keeps quoted holdings with |change%| >= threshold, largest first
func movers(holdings []holding, threshold decimal.Decimal) []contracts.Mover {
	var picked []holding
	for _, h := range holdings {
		if h.quoted && h.changePct.Abs().GreaterThanOrEqual(threshold) {
			picked = append(picked, h)
		}
	}

	sort.SliceStable(picked, func(i, j int) bool {
		a, b := picked[i].changePct.Abs(), picked[j].changePct.Abs()
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return picked[i].symbol < picked[j].symbol
	})
	if len(picked) > MaxMovers {
		picked = picked[:MaxMovers]
	}

	out := make([]contracts.Mover, 0, len(picked))
	for _, h := range picked {
		out = append(out, contracts.Mover{
			Symbol:        h.symbol,
			Price:         money2(h.price),
			Change:        money2(h.change),
			ChangePercent: money2(h.changePct),
			Value:         money2(h.value()),
		})
	}
	return out
}

// sectors groups holdings by sector, ordered by value descending
func sectors(holdings []holding, total decimal.Decimal) []contracts.SectorPerformance {
	type agg struct {
		value, change decimal.Decimal
	}
	groups := make(map[string]*agg)
	var names []string
	for _, h := range holdings {
		g, ok := groups[h.sector]
		if !ok {
			g = &agg{value: decimal.Zero, change: decimal.Zero}
			groups[h.sector] = g
			names = append(names, h.sector)
		}
		g.value = g.value.Add(h.value())
		g.change = g.change.Add(h.valueChange())
	}

	out := make([]contracts.SectorPerformance, 0, len(names))
	for _, name := range names {
		g := groups[name]
		weight := decimal.Zero
		if !total.IsZero() {
			weight = g.value.Div(total)
		}
		out = append(out, contracts.SectorPerformance{
			Sector:        name,
			Value:         money2(g.value),
			Change:        money2(g.change),
			ChangePercent: money2(percentOf(g.change, g.value.Sub(g.change))),
			Weight:        weight.Round(4).InexactFloat64(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Sector < out[j].Sector
	})
	return out
}

func summarize(r *contracts.DailyReport, threshold float64, holdings int) string {
	if holdings == 0 {
		return "You have no open positions."
	}

	var b strings.Builder
	direction := "unchanged"
	switch {
	case r.Change > 0:
		direction = "up"
	case r.Change < 0:
		direction = "down"
	}

	if r.Change == 0 {
		fmt.Fprintf(&b, "Your portfolio is worth %s, %s today.", FormatMoney(r.PortfolioValue), direction)
	} else {
		fmt.Fprintf(&b, "Your portfolio is worth %s, %s %s (%s) today.",
			FormatMoney(r.PortfolioValue), direction, FormatMoney(math.Abs(r.Change)), FormatPercent(r.ChangePercent))
	}

	switch n := len(r.SignificantMovers); n {
	case 0:
		fmt.Fprintf(&b, " No position moved more than %s%%.", decimal.NewFromFloat(threshold).String())
	case 1:
		m := r.SignificantMovers[0]
		fmt.Fprintf(&b, " %s moved %s.", m.Symbol, FormatPercent(m.ChangePercent))
	default:
		m := r.SignificantMovers[0]
		fmt.Fprintf(&b, " %d positions moved significantly, led by %s (%s).", n, m.Symbol, FormatPercent(m.ChangePercent))
	}

	if len(r.SectorPerformance) > 1 {
		best := r.SectorPerformance[0]
		for _, s := range r.SectorPerformance[1:] {
			if s.ChangePercent > best.ChangePercent {
				best = s
			}
		}
		fmt.Fprintf(&b, " Best sector: %s (%s).", best.Sector, FormatPercent(best.ChangePercent))
	}
	return b.String()
}

// percentOf returns part/base*100, 0 when base is zero
func percentOf(part, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return part.Div(base).Mul(hundred)
}

func money2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
