package ledger

import (
	"fmt"
	"math"
	"time"
)

// RoundCents rounds v to two decimal places using round-half-away-from-zero.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeTax returns the tax amount and tax-inclusive total for a base amount
// at the given percentage rate, both rounded to cents.
//
// This is the single authority for the derived-field invariant
// totalWithTax == amount + round(amount * taxRate / 100): every tool calls it
// at apply time so a stale preview can never persist an inconsistent record.
func ComputeTax(amount, taxRate float64) (taxAmount, totalWithTax float64) {
	taxAmount = RoundCents(amount * taxRate / 100)
	return taxAmount, RoundCents(amount + taxAmount)
}

// LineAmount returns the rounded amount for an invoice line.
func LineAmount(quantity, unitPrice float64) float64 {
	return RoundCents(quantity * unitPrice)
}

// InvoiceTotals recomputes subtotal, tax, total and balance for inv from its
// line items, authoritative tax rate, and amount paid. It mutates inv in
// place and fixes each line's derived Amount as well.
func InvoiceTotals(inv *Invoice) {
	subtotal := 0.0
	for i := range inv.Items {
		inv.Items[i].Amount = LineAmount(inv.Items[i].Quantity, inv.Items[i].UnitPrice)
		subtotal += inv.Items[i].Amount
	}
	inv.Subtotal = RoundCents(subtotal)
	inv.TaxAmount = RoundCents(inv.Subtotal * inv.TaxRate / 100)
	inv.Total = RoundCents(inv.Subtotal + inv.TaxAmount)
	inv.BalanceDue = RoundCents(inv.Total - inv.AmountPaid)
}

// TimeEntryAmount returns the derived billable amount for a time entry:
// hours * hourlyRate when billable, nil otherwise.
func TimeEntryAmount(hours, hourlyRate float64, billable bool) *float64 {
	if !billable {
		return nil
	}
	amount := RoundCents(hours * hourlyRate)
	return &amount
}

// FormatMoney renders an amount with its currency code, e.g. "1,250.00 EUR".
// Unknown or empty currency codes fall back to a bare number.
func FormatMoney(amount float64, currency string) string {
	s := formatThousands(amount)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

// FormatDate renders a date the way confirmations read it back to the user.
func FormatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

// formatThousands renders a float with two decimals and comma separators.
func formatThousands(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	whole := int64(v)
	frac := int64(math.Round((v - float64(whole)) * 100))
	if frac == 100 {
		whole++
		frac = 0
	}

	s := fmt.Sprintf("%d", whole)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		s = "-" + s
	}
	return fmt.Sprintf("%s.%02d", s, frac)
}
