package ledger

import (
	"fmt"

	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/firmledger/internal/errs"
)

// AmountScale is the number of fractional digits kept for every stored amount.
const AmountScale = 2

var hundred = decimal.MustNew(100, 0)

// Zero is 0.00.
var Zero = decimal.MustNew(0, AmountScale)

// FromMinor converts minor units (cents) to a decimal of scale 2.
func FromMinor(units int64) decimal.Decimal {
	return decimal.MustNew(units, AmountScale)
}

// ToMinor converts d to minor units, rounding half-to-even to two places.
func ToMinor(d decimal.Decimal) (int64, error) {
	a, err := money.NewAmountFromDecimal(money.USD, d.Round(AmountScale))
	if err != nil {
		return 0, err
	}
	units, ok := a.MinorUnits()
	if !ok {
		return 0, fmt.Errorf("amount %s overflows minor units", d)
	}
	return units, nil
}

// AmountMinor returns a at scale 2 in minor units. Stores keep every amount
// at that scale whatever the currency, so sums never mix scales.
func AmountMinor(a money.Amount) (int64, error) {
	return ToMinor(a.Decimal())
}

// ParseCurrency returns the canonical code of a known currency that uses
// exactly AmountScale fractional digits.
func ParseCurrency(code string) (string, error) {
	curr, err := money.ParseCurr(code)
	if err != nil {
		return "", errs.Validationf("invalid currency %q", code)
	}
	if curr.Scale() != AmountScale {
		return "", errs.Validationf("currency %s uses %d decimal places, only %d are supported", curr.Code(), curr.Scale(), AmountScale)
	}
	return curr.Code(), nil
}

// NewAmount builds a money amount from a decimal in the given currency.
func NewAmount(currency string, d decimal.Decimal) (money.Amount, error) {
	curr, err := money.ParseCurr(currency)
	if err != nil {
		return money.Amount{}, errs.Validationf("invalid currency %q", currency)
	}
	return money.NewAmountFromDecimal(curr, d)
}

// ZeroAmount returns 0 in the given currency.
func ZeroAmount(currency string) (money.Amount, error) {
	return money.NewAmountFromMinorUnits(currency, 0)
}

// ValidatePostingAmount rejects non-positive amounts and amounts with more
// than two fractional digits.
func ValidatePostingAmount(d decimal.Decimal) error {
	if !d.IsPos() {
		return errs.Validationf("amount must be > 0, got %s", d)
	}
	if d.Round(AmountScale).Cmp(d) != 0 {
		return errs.Validationf("amount %s has more than %d decimal places", d, AmountScale)
	}
	return nil
}

// FormatAmount renders d with exactly two fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.Round(AmountScale).Pad(AmountScale).String()
}

// ExpectedShare returns net * share / 100 rounded half-to-even to two places.
// A share of zero or less yields zero regardless of the sign of net.
func ExpectedShare(net, share decimal.Decimal) (decimal.Decimal, error) {
	if !share.IsPos() {
		return Zero, nil
	}
	prod, err := net.Mul(share)
	if err != nil {
		return decimal.Decimal{}, err
	}
	q, err := prod.Quo(hundred)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return q.Round(AmountScale), nil
}

// NetIncome is income - expenses - salaries.
func NetIncome(income, expenses, salaries decimal.Decimal) (decimal.Decimal, error) {
	net, err := income.Sub(expenses)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return net.Sub(salaries)
}
