package assistant

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// title renders a normalised medicine name for display: "dolo 650" -> "Dolo 650".
// Casers are stateful, so one is built per call.
func title(medicine string) string {
	return cases.Title(language.English).String(medicine)
}

// rupees formats an amount with thousands separators: 1234.5 -> "₹1,234.50"
func rupees(amount decimal.Decimal) string {
	p := message.NewPrinter(language.English)
	return "₹" + p.Sprintf("%.2f", amount.Round(2).InexactFloat64())
}
