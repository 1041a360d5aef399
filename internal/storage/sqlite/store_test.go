package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/firmledger/internal/errs"
	"github.com/tinoosan/firmledger/internal/ledger"
	"github.com/tinoosan/firmledger/internal/service/account"
	"github.com/tinoosan/firmledger/internal/service/partner"
	"github.com/tinoosan/firmledger/internal/service/posting"
	"github.com/tinoosan/firmledger/internal/service/report"
	"github.com/tinoosan/firmledger/internal/service/settlement"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_PostingAndAggregates(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	main := ledger.Partner{ID: uuid.New(), UserID: uuid.New(), IsMainPartner: true, SharePercentage: decimal.MustParse("50")}
	proj := ledger.Project{ID: uuid.New(), Name: "Alpha", ManagedByPartnerID: &main.ID, Status: "active"}
	approver := "ops"
	require.NoError(t, s.Seed(ctx, ledger.Directory{
		Users:     []ledger.User{{ID: main.UserID, FirstName: "Ada", LastName: "Byron"}},
		Partners:  []ledger.Partner{main},
		Projects:  []ledger.Project{proj},
		Employees: []ledger.Employee{{ID: uuid.New(), UserID: uuid.New(), MonthlySalary: decimal.MustParse("1000"), Active: true}},
		Expenses: []ledger.MonthlyExpense{
			{ID: uuid.New(), Description: "Rent", Amount: decimal.MustParse("800"), Category: ledger.ExpenseOffice, Period: ledger.Period{Month: 3, Year: 2024}, ApprovedBy: &approver},
		},
	}))

	accounts := account.New(s, s, "USD", nil)
	acc, err := accounts.Create(ctx, account.CreateInput{HolderName: "Firm", BankName: "Bank", AccountNumber: "SQ-1", OpeningBalance: decimal.MustParse("1000")})
	require.NoError(t, err)
	_, err = accounts.Create(ctx, account.CreateInput{HolderName: "Firm", BankName: "Bank", AccountNumber: "SQ-1"})
	assert.ErrorIs(t, err, errs.ErrDuplicate)

	poster := posting.New(s, s, nil)
	march := time.Date(2024, 3, 12, 9, 30, 0, 0, time.UTC)
	_, err = poster.Post(ctx, posting.Input{AccountID: acc.ID, ProjectID: &proj.ID, Amount: decimal.MustParse("12000"), Type: ledger.TransactionIncome, Date: march})
	require.NoError(t, err)
	_, err = poster.Post(ctx, posting.Input{AccountID: acc.ID, Amount: decimal.MustParse("1000"), Type: ledger.TransactionExpense, Date: march})
	require.NoError(t, err)
	// The first instant of April belongs to April only.
	_, err = poster.Post(ctx, posting.Input{AccountID: acc.ID, Amount: decimal.MustParse("5"), Type: ledger.TransactionExpense, Date: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	check, err := accounts.VerifyBalance(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent)
	assert.Equal(t, "11995.00", ledger.FormatAmount(check.Cached))

	p := ledger.Period{Month: 3, Year: 2024}
	txs, err := s.ListTransactions(ctx, p)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	attributed := 0
	for _, tr := range txs {
		assert.True(t, tr.Date.Equal(march))
		if tr.ProjectID != nil {
			assert.Equal(t, proj.ID, *tr.ProjectID)
			attributed++
		}
	}
	assert.Equal(t, 1, attributed)

	totals, err := report.New(s).Totals(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "12000.00", ledger.FormatAmount(totals.Income))
	assert.Equal(t, "1000.00", ledger.FormatAmount(totals.Expenses))
	assert.Equal(t, "10000.00", ledger.FormatAmount(totals.NetIncome))

	incomes, err := partner.New(s, report.New(s)).Incomes(ctx, p)
	require.NoError(t, err)
	require.Len(t, incomes, 1)
	assert.Equal(t, "Ada Byron", incomes[0].PartnerName)
	assert.Equal(t, "7000.00", ledger.FormatAmount(incomes[0].Settlement))
	assert.Equal(t, 1, incomes[0].ProjectsManaged)

	expenses, err := s.MonthlyExpenses(ctx, p)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.True(t, expenses[0].Approved())
	assert.Equal(t, "800.00", ledger.FormatAmount(expenses[0].Amount))
}

func TestStore_PartnerWithoutUser(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	p := ledger.Partner{ID: uuid.New(), UserID: uuid.New(), IsMainPartner: true, SharePercentage: decimal.MustParse("12.5")}
	require.NoError(t, s.Seed(ctx, ledger.Directory{Partners: []ledger.Partner{p}}))

	got, err := s.GetPartner(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.User)
	assert.Equal(t, ledger.UnknownPartnerName, got.DisplayName())
	assert.Equal(t, 0, got.SharePercentage.Cmp(decimal.MustParse("12.5")))

	_, err = s.GetPartner(ctx, uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStore_VersionConflict(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	acc, err := account.New(s, s, "USD", nil).Create(ctx, account.CreateInput{HolderName: "Firm", BankName: "Bank", AccountNumber: "SQ-2"})
	require.NoError(t, err)

	require.NoError(t, s.Do(ctx, func(tx ledger.Tx) error {
		_, err := tx.SaveAccount(ctx, acc, acc.Version)
		return err
	}))
	err = s.Do(ctx, func(tx ledger.Tx) error {
		_, err := tx.SaveAccount(ctx, acc, acc.Version)
		return err
	})
	assert.ErrorIs(t, err, errs.ErrConcurrencyConflict)
}

func TestStore_SettlementsOncePerPeriod(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	partners := []ledger.Partner{
		{ID: uuid.New(), UserID: uuid.New(), IsMainPartner: true, SharePercentage: decimal.MustParse("60")},
		{ID: uuid.New(), UserID: uuid.New(), IsMainPartner: true, SharePercentage: decimal.MustParse("40")},
	}
	require.NoError(t, s.Seed(ctx, ledger.Directory{Partners: partners}))
	reports := report.New(s)
	svc := settlement.New(s, s, reports, partner.New(s, reports), nil, nil)
	p := ledger.Period{Month: 5, Year: 2025}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Process(ctx, p); err != nil {
				t.Errorf("process: %v", err)
			}
		}()
	}
	wg.Wait()
	list, err := s.ListSettlements(ctx, p)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	err = s.Do(ctx, func(tx ledger.Tx) error {
		_, err := tx.InsertSettlement(ctx, ledger.Settlement{ID: uuid.New(), PartnerID: partners[0].ID, Period: p, Expected: ledger.Zero, Actual: ledger.Zero, Amount: ledger.Zero, Status: ledger.SettlementPending, CreatedAt: time.Now()})
		return err
	})
	assert.ErrorIs(t, err, errs.ErrDuplicate)
}

func TestDo_RollsBackWhenStatementFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewWithDB(db)

	balance, err := money.NewAmountFromMinorUnits("USD", 1500)
	require.NoError(t, err)
	acc := ledger.Account{ID: uuid.New(), Currency: "USD", Balance: balance, Version: 3}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(1500), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(3)).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = s.Do(context.Background(), func(tx ledger.Tx) error {
		_, err := tx.SaveAccount(context.Background(), acc, acc.Version)
		return err
	})
	assert.EqualError(t, err, "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDo_NoRowsUpdatedIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewWithDB(db)

	balance, err := money.NewAmountFromMinorUnits("USD", 0)
	require.NoError(t, err)
	acc := ledger.Account{ID: uuid.New(), Currency: "USD", Balance: balance}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = s.Do(context.Background(), func(tx ledger.Tx) error {
		_, err := tx.SaveAccount(context.Background(), acc, 0)
		return err
	})
	assert.ErrorIs(t, err, errs.ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_EURAccountRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	accounts := account.New(s, s, "EUR", nil)
	acc, err := accounts.Create(ctx, account.CreateInput{HolderName: "Firm", BankName: "Bank", AccountNumber: "EU-1", OpeningBalance: decimal.MustParse("250.10")})
	require.NoError(t, err)

	_, err = posting.New(s, s, nil).Post(ctx, posting.Input{AccountID: acc.ID, Amount: decimal.MustParse("10000"), Type: ledger.TransactionIncome, Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	got, err := s.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "EUR", got.Currency)
	assert.Equal(t, "10250.10", ledger.FormatAmount(got.Balance.Decimal()))
	check, err := accounts.VerifyBalance(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent)

	_, err = accounts.Create(ctx, account.CreateInput{HolderName: "Firm", BankName: "Bank", AccountNumber: "JP-1", Currency: "JPY"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestListSettlements_UnknownStatusFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewWithDB(db)

	rows := sqlmock.NewRows([]string{"id", "partner_id", "month", "year", "expected_minor", "actual_minor", "settlement_minor", "status", "processed_at", "notes", "created_at"}).
		AddRow(uuid.NewString(), uuid.NewString(), 3, 2024, int64(100), int64(200), int64(100), "paid", nil, "", "2024-04-01T00:00:00.000000000Z")
	mock.ExpectQuery("FROM settlements").WithArgs(3, 2024).WillReturnRows(rows)

	_, err = s.ListSettlements(context.Background(), ledger.Period{Month: 3, Year: 2024})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown settlement status "paid"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}
