package settlement

import "github.com/shopspring/decimal"

var (
	dcdShare      = decimal.NewFromFloat(0.60)
	companyShare  = decimal.NewFromFloat(0.30)
	referrerShare = decimal.NewFromFloat(0.10)
)

// Split is the three-way division of a scan payout
type Split struct {
	DCD      decimal.Decimal
	Company  decimal.Decimal
	Referrer decimal.Decimal
}

// Total returns the sum of the three shares
func (s Split) Total() decimal.Decimal {
	return s.DCD.Add(s.Company).Add(s.Referrer)
}

// SplitPayout divides pay 60/30/10, each share rounded to cents. Pay is
// rounded to cents first and any remainder goes to the DCD, so the shares
// always sum to the rounded pay.
func SplitPayout(pay decimal.Decimal) Split {
	pay = pay.Round(2)
	split := Split{
		DCD:      pay.Mul(dcdShare).Round(2),
		Company:  pay.Mul(companyShare).Round(2),
		Referrer: pay.Mul(referrerShare).Round(2),
	}

	if residual := pay.Sub(split.Total()); !residual.IsZero() {
		split.DCD = split.DCD.Add(residual)
	}
	return split
}
