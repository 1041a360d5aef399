package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/firmledger/internal/errs"
	"github.com/tinoosan/firmledger/internal/ledger"
	"github.com/tinoosan/firmledger/internal/service/posting"
	"github.com/tinoosan/firmledger/internal/storage/memory"
)

func setup(t *testing.T) (*memory.Store, posting.Service, ledger.Account) {
	t.Helper()
	store := memory.New()
	zero, err := ledger.ZeroAmount("USD")
	require.NoError(t, err)
	acc := ledger.Account{ID: uuid.New(), HolderName: "Firm", AccountNumber: "1", Currency: "USD", Balance: zero, Active: true}
	store.SeedAccount(acc)
	return store, posting.New(store, store, nil), acc
}

func TestTotals_IncomeForPeriod(t *testing.T) {
	ctx := context.Background()
	store, poster, acc := setup(t)
	_, err := poster.Post(ctx, posting.Input{AccountID: acc.ID, Amount: decimal.MustParse("10000"), Type: ledger.TransactionIncome, Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	totals, err := New(store).Totals(ctx, ledger.Period{Month: 3, Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, "10000.00", ledger.FormatAmount(totals.Income))
	assert.Equal(t, "0.00", ledger.FormatAmount(totals.Expenses))
	assert.Equal(t, "10000.00", ledger.FormatAmount(totals.NetIncome))
}

func TestTotals_NetSubtractsExpensesAndSalariesOnly(t *testing.T) {
	ctx := context.Background()
	store, poster, acc := setup(t)
	p := ledger.Period{Month: 6, Year: 2024}
	require.NoError(t, store.Seed(ctx, ledger.Directory{
		Employees: []ledger.Employee{
			{ID: uuid.New(), MonthlySalary: decimal.MustParse("3000"), Active: true},
			{ID: uuid.New(), MonthlySalary: decimal.MustParse("2500.50"), Active: true},
			{ID: uuid.New(), MonthlySalary: decimal.MustParse("9999"), Active: false},
		},
		// Overheads are listed in reports but never summed.
		Expenses: []ledger.MonthlyExpense{{ID: uuid.New(), Description: "Rent", Amount: decimal.MustParse("1200"), Category: ledger.ExpenseOffice, Period: p}},
	}))
	in := func(amt string, typ ledger.TransactionType, day int) {
		_, err := poster.Post(ctx, posting.Input{AccountID: acc.ID, Amount: decimal.MustParse(amt), Type: typ, Date: time.Date(2024, 6, day, 12, 0, 0, 0, time.UTC)})
		require.NoError(t, err)
	}
	in("20000", ledger.TransactionIncome, 1)
	in("1200", ledger.TransactionExpense, 2)
	in("700", ledger.TransactionSettlement, 3)
	// Outside the period.
	_, err := poster.Post(ctx, posting.Input{AccountID: acc.ID, Amount: decimal.MustParse("999"), Type: ledger.TransactionIncome, Date: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	totals, err := New(store).Totals(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "20000.00", ledger.FormatAmount(totals.Income))
	assert.Equal(t, "1200.00", ledger.FormatAmount(totals.Expenses))
	assert.Equal(t, "5500.50", ledger.FormatAmount(totals.Salaries))
	assert.Equal(t, "13299.50", ledger.FormatAmount(totals.NetIncome))
}

func TestTotals_InvalidPeriod(t *testing.T) {
	_, err := New(memory.New()).Totals(context.Background(), ledger.Period{Month: 13, Year: 2024})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

type failingRepo struct{}

func (failingRepo) SumTransactions(context.Context, ledger.TransactionType, ledger.Period) (decimal.Decimal, error) {
	return ledger.Zero, nil
}

func (failingRepo) SumActiveSalaries(context.Context) (decimal.Decimal, error) {
	return decimal.Decimal{}, errors.New("db down")
}

func TestNetIncome_PropagatesStoreErrors(t *testing.T) {
	repo := failingRepo{}
	_, err := New(repo).NetIncome(context.Background(), ledger.Period{Month: 1, Year: 2024})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum salaries")
}
