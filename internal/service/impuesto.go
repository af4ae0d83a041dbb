package service

import "github.com/shopspring/decimal"

// desglosarImpuesto splits a tax-inclusive amount into base and tax.
// base = round(total / (1 + tasa), 2), tax = total - base, so base + tax
// always equals total to the cent.
func desglosarImpuesto(total, tasa decimal.Decimal) (base, impuesto decimal.Decimal) {
	base = total.Div(decimal.NewFromInt(1).Add(tasa)).Round(2)
	return base, total.Sub(base)
}

func maxCero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// dentroDeTolerancia reports |a - b| <= tol.
func dentroDeTolerancia(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}
