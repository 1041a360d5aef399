package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/govalues/decimal"
	"github.com/tinoosan/firmledger/internal/errs"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func TestTransactionType_SignTable(t *testing.T) {
	cases := []struct {
		typ  TransactionType
		sign int
		name string
	}{
		{TransactionIncome, 1, "income"},
		{TransactionExpense, -1, "expense"},
		{TransactionSettlement, -1, "settlement"},
		{0, 0, "transaction_type(0)"},
		{9, 0, "transaction_type(9)"},
	}
	for _, c := range cases {
		if got := c.typ.Sign(); got != c.sign {
			t.Fatalf("%v: sign = %d, want %d", c.typ, got, c.sign)
		}
		if got := c.typ.String(); got != c.name {
			t.Fatalf("String() = %q, want %q", got, c.name)
		}
	}
}

func TestTransactionType_TextRoundTrip(t *testing.T) {
	var typ TransactionType
	if err := typ.UnmarshalText([]byte("Expense")); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if typ != TransactionExpense {
		t.Fatalf("got %v", typ)
	}
	if err := typ.UnmarshalText([]byte("refund")); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if _, err := TransactionType(7).MarshalText(); err == nil {
		t.Fatalf("expected error marshalling invalid type")
	}
}

func TestPeriod_Validate(t *testing.T) {
	bad := []Period{{0, 2024}, {13, 2024}, {1, 1899}, {1, 2101}}
	for _, p := range bad {
		if err := p.Validate(); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("%+v: expected validation error, got %v", p, err)
		}
	}
	if _, err := NewPeriod(2, 2024); err != nil {
		t.Fatalf("valid period rejected: %v", err)
	}
}

func TestPeriod_BoundsAreHalfOpen(t *testing.T) {
	p := Period{Month: 12, Year: 2023}
	if !p.Start().Equal(time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v", p.Start())
	}
	if !p.End().Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end = %v", p.End())
	}
	if !p.Contains(time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("last second of december should be contained")
	}
	if p.Contains(p.End()) {
		t.Fatalf("end must be exclusive")
	}
	if got := PeriodOf(time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)); got != (Period{3, 2024}) {
		t.Fatalf("PeriodOf = %+v", got)
	}
	if p.String() != "2023-12" {
		t.Fatalf("String() = %s", p)
	}
}

func TestValidatePostingAmount(t *testing.T) {
	for _, s := range []string{"0", "-5", "0.001", "10.125"} {
		if err := ValidatePostingAmount(dec(t, s)); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", s, err)
		}
	}
	for _, s := range []string{"0.01", "1", "1500.50", "2.10"} {
		if err := ValidatePostingAmount(dec(t, s)); err != nil {
			t.Fatalf("%s: unexpected error %v", s, err)
		}
	}
}

func TestExpectedShare(t *testing.T) {
	cases := []struct {
		net, share, want string
	}{
		{"10000", "60", "6000.00"},
		{"10000", "40", "4000.00"},
		{"-2000", "50", "-1000.00"},
		{"5000", "0", "0.00"},
		{"-5000", "0", "0.00"},
		// half-to-even: 50.025 -> 50.02
		{"100.05", "50", "50.02"},
		// 50.035 -> 50.04
		{"100.07", "50", "50.04"},
		{"333.33", "33.33", "111.10"},
	}
	for _, c := range cases {
		got, err := ExpectedShare(dec(t, c.net), dec(t, c.share))
		if err != nil {
			t.Fatalf("ExpectedShare(%s, %s): %v", c.net, c.share, err)
		}
		if FormatAmount(got) != c.want {
			t.Fatalf("ExpectedShare(%s, %s) = %s, want %s", c.net, c.share, FormatAmount(got), c.want)
		}
	}
}

func TestMinorConversion(t *testing.T) {
	units, err := ToMinor(dec(t, "1234.5"))
	if err != nil || units != 123450 {
		t.Fatalf("ToMinor = %d, %v", units, err)
	}
	units, err = ToMinor(dec(t, "-0.07"))
	if err != nil || units != -7 {
		t.Fatalf("ToMinor negative = %d, %v", units, err)
	}
	if FormatAmount(FromMinor(123450)) != "1234.50" {
		t.Fatalf("FromMinor = %s", FromMinor(123450))
	}
}

func TestAmountMinor_FixedScale(t *testing.T) {
	jpy, err := NewAmount("JPY", dec(t, "10000"))
	if err != nil {
		t.Fatalf("NewAmount: %v", err)
	}
	units, err := AmountMinor(jpy)
	if err != nil || units != 1000000 {
		t.Fatalf("AmountMinor(JPY 10000) = %d, %v", units, err)
	}
	if got := FormatAmount(FromMinor(units)); got != "10000.00" {
		t.Fatalf("round trip = %s", got)
	}
}

func TestParseCurrency(t *testing.T) {
	for _, code := range []string{"USD", "EUR", "INR"} {
		if _, err := ParseCurrency(code); err != nil {
			t.Fatalf("ParseCurrency(%q): %v", code, err)
		}
	}
	for _, code := range []string{"JPY", "BHD", "NOPE", ""} {
		if _, err := ParseCurrency(code); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("ParseCurrency(%q) = %v, want validation error", code, err)
		}
	}
}

func TestParseSettlementStatus(t *testing.T) {
	for _, s := range []string{"pending", "completed", "failed"} {
		st, err := ParseSettlementStatus(s)
		if err != nil || string(st) != s {
			t.Fatalf("ParseSettlementStatus(%q) = %q, %v", s, st, err)
		}
	}
	if _, err := ParseSettlementStatus("PENDING"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestPartnerDisplayName(t *testing.T) {
	if got := (Partner{}).DisplayName(); got != UnknownPartnerName {
		t.Fatalf("got %q", got)
	}
	p := Partner{User: &User{FirstName: "Ada", LastName: "Lovelace"}}
	if got := p.DisplayName(); got != "Ada Lovelace" {
		t.Fatalf("got %q", got)
	}
}

func TestMonthlyExpenseApproved(t *testing.T) {
	blank := " "
	who := "cfo"
	if (MonthlyExpense{}).Approved() || (MonthlyExpense{ApprovedBy: &blank}).Approved() {
		t.Fatalf("unapproved expense reported as approved")
	}
	if !(MonthlyExpense{ApprovedBy: &who}).Approved() {
		t.Fatalf("approved expense not reported")
	}
}
