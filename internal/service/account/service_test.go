package account

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/firmledger/internal/errs"
	"github.com/tinoosan/firmledger/internal/ledger"
	"github.com/tinoosan/firmledger/internal/service/posting"
	"github.com/tinoosan/firmledger/internal/service/report"
	"github.com/tinoosan/firmledger/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestCreate_WithOpeningBalanceKeepsInvariant(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, "usd", testLogger())

	a, err := svc.Create(ctx, CreateInput{HolderName: "Firm LLP", BankName: "First Bank", AccountNumber: "0001", RoutingCode: "fb0001", OpeningBalance: decimal.MustParse("1000")})
	require.NoError(t, err)
	assert.Equal(t, "USD", a.Currency)
	assert.Equal(t, "FB0001", a.RoutingCode)
	assert.True(t, a.Active)
	assert.Equal(t, "1000.00", ledger.FormatAmount(a.Balance.Decimal()))

	check, err := svc.VerifyBalance(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent)
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, "USD", testLogger())

	cases := []CreateInput{
		{BankName: "B", AccountNumber: "1"},
		{HolderName: "H", AccountNumber: "1"},
		{HolderName: "H", BankName: "B"},
		{HolderName: "H", BankName: "B", AccountNumber: "1", Currency: "NOPE"},
		{HolderName: "H", BankName: "B", AccountNumber: "1", Currency: "EUR"},
		{HolderName: "H", BankName: "B", AccountNumber: "1", Currency: "JPY"},
		{HolderName: "H", BankName: "B", AccountNumber: "1", Currency: "BHD"},
		{HolderName: "H", BankName: "B", AccountNumber: "1", OpeningBalance: decimal.MustParse("-1")},
		{HolderName: "H", BankName: "B", AccountNumber: "1", OpeningBalance: decimal.MustParse("1.001")},
	}
	for i, in := range cases {
		_, err := svc.Create(ctx, in)
		assert.ErrorIs(t, err, errs.ErrValidation, "case %d", i)
	}
}

func TestCreate_DuplicateAccountNumber(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, "USD", testLogger())
	in := CreateInput{HolderName: "Firm", BankName: "Bank", AccountNumber: "42"}
	_, err := svc.Create(ctx, in)
	require.NoError(t, err)
	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, errs.ErrDuplicate)
}

func TestDeactivate_SoftDeletesAndStillAcceptsPostings(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, "USD", testLogger())
	a, err := svc.Create(ctx, CreateInput{HolderName: "Firm", BankName: "Bank", AccountNumber: "7"})
	require.NoError(t, err)

	off, err := svc.Deactivate(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, off.Active)
	again, err := svc.Deactivate(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, off.Version, again.Version)

	active, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	poster := posting.New(store, store, testLogger())
	_, err = poster.Post(ctx, posting.Input{AccountID: a.ID, Amount: decimal.MustParse("5"), Type: ledger.TransactionIncome, Date: time.Now()})
	require.NoError(t, err)

	_, err = svc.Deactivate(ctx, uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestVerifyBalance_DetectsDrift(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, "USD", testLogger())
	a, err := svc.Create(ctx, CreateInput{HolderName: "Firm", BankName: "Bank", AccountNumber: "9", OpeningBalance: decimal.MustParse("10")})
	require.NoError(t, err)

	// Tamper with the cached balance behind the ledger's back.
	drifted := a
	drifted.Balance, err = ledger.NewAmount("USD", decimal.MustParse("11"))
	require.NoError(t, err)
	store.SeedAccount(drifted)

	check, err := svc.VerifyBalance(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, check.Consistent)
	assert.Equal(t, "10.00", ledger.FormatAmount(check.Derived))
}

func TestCreate_RejectsCurrencyWithoutTwoDecimals(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, "JPY", testLogger())
	_, err := svc.Create(ctx, CreateInput{HolderName: "Firm", BankName: "Bank", AccountNumber: "1"})
	assert.ErrorIs(t, err, errs.ErrValidation)
	all, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNonUSDAccount_AmountsKeepTheirValue(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, "EUR", testLogger())
	a, err := svc.Create(ctx, CreateInput{HolderName: "Firm", BankName: "Bank", AccountNumber: "EU-1"})
	require.NoError(t, err)
	assert.Equal(t, "EUR", a.Currency)

	poster := posting.New(store, store, testLogger())
	march := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err = poster.Post(ctx, posting.Input{AccountID: a.ID, Amount: decimal.MustParse("10000"), Type: ledger.TransactionIncome, Date: march})
	require.NoError(t, err)
	_, err = poster.Post(ctx, posting.Input{AccountID: a.ID, Amount: decimal.MustParse("0.05"), Type: ledger.TransactionExpense, Date: march})
	require.NoError(t, err)

	check, err := svc.VerifyBalance(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent)
	assert.Equal(t, "9999.95", ledger.FormatAmount(check.Cached))
	assert.Equal(t, "9999.95", ledger.FormatAmount(check.Derived))

	totals, err := report.New(store).Totals(ctx, ledger.Period{Month: 3, Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, "10000.00", ledger.FormatAmount(totals.Income))
	assert.Equal(t, "0.05", ledger.FormatAmount(totals.Expenses))
}
