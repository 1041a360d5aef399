package statement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/firmledger/internal/ledger"
	"github.com/tinoosan/firmledger/internal/service/partner"
	"github.com/tinoosan/firmledger/internal/service/posting"
	"github.com/tinoosan/firmledger/internal/service/report"
	"github.com/tinoosan/firmledger/internal/storage/memory"
)

func TestMonthly_CombinesTotalsPartnersAndExpenses(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p := ledger.Period{Month: 4, Year: 2024}
	who := "cfo"
	main := ledger.Partner{ID: uuid.New(), UserID: uuid.New(), IsMainPartner: true, SharePercentage: decimal.MustParse("100")}
	require.NoError(t, store.Seed(ctx, ledger.Directory{
		Partners: []ledger.Partner{main},
		Expenses: []ledger.MonthlyExpense{
			{ID: uuid.New(), Description: "Rent", Amount: decimal.MustParse("900"), Category: ledger.ExpenseOffice, Period: p, Recurring: true, ApprovedBy: &who},
			{ID: uuid.New(), Description: "Ads", Amount: decimal.MustParse("150"), Category: ledger.ExpenseMarketing, Period: p},
			{ID: uuid.New(), Description: "Old", Amount: decimal.MustParse("1"), Category: ledger.ExpenseOther, Period: ledger.Period{Month: 3, Year: 2024}},
		},
	}))
	zero, err := ledger.ZeroAmount("USD")
	require.NoError(t, err)
	acc := ledger.Account{ID: uuid.New(), HolderName: "Firm", AccountNumber: "1", Currency: "USD", Balance: zero, Active: true}
	store.SeedAccount(acc)
	_, err = posting.New(store, store, nil).Post(ctx, posting.Input{AccountID: acc.ID, Amount: decimal.MustParse("5000"), Type: ledger.TransactionIncome, Date: time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	reports := report.New(store)
	rep, err := New(store, reports, partner.New(store, reports)).Monthly(ctx, p)
	require.NoError(t, err)

	// Overheads are listed but not subtracted.
	assert.Equal(t, "5000.00", ledger.FormatAmount(rep.Totals.NetIncome))
	require.Len(t, rep.Partners, 1)
	assert.Equal(t, "5000.00", ledger.FormatAmount(rep.Partners[0].Expected))
	require.Len(t, rep.Expenses, 2)
	approved := 0
	for _, e := range rep.Expenses {
		if e.Approved() {
			approved++
		}
	}
	assert.Equal(t, 1, approved)
}
