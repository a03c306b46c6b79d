package report

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the reporting currency of portfolio values
const Currency = money.USD

// FormatMoney renders amount in the reporting currency, e.g. "$1,234.50"
func FormatMoney(amount float64) string {
	cur := money.GetCurrency(Currency)
	factor := decimal.New(1, int32(cur.Fraction))
	minor := decimal.NewFromFloat(amount).Mul(factor).Round(0).IntPart()
	return money.New(minor, Currency).Display()
}

// FormatSignedMoney is FormatMoney with an explicit sign for gains
func FormatSignedMoney(amount float64) string {
	if amount > 0 {
		return "+" + FormatMoney(amount)
	}
	return FormatMoney(amount)
}

// FormatPercent renders a percent with two decimals and a sign, e.g. "+5.25%"
func FormatPercent(pct float64) string {
	d := decimal.NewFromFloat(pct).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2) + "%"
	}
	return d.StringFixed(2) + "%"
}
