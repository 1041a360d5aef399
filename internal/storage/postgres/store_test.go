package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/firmledger/internal/errs"
	"github.com/tinoosan/firmledger/internal/ledger"
	"github.com/tinoosan/firmledger/internal/service/account"
	"github.com/tinoosan/firmledger/internal/service/partner"
	"github.com/tinoosan/firmledger/internal/service/posting"
	"github.com/tinoosan/firmledger/internal/service/report"
	"github.com/tinoosan/firmledger/internal/service/settlement"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

// mustOpen opens a migrated, empty store.
func mustOpen(t *testing.T) *Store {
	t.Helper()
	dsn := getTestDSN(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := s.pool.Exec(ctx, `truncate table settlements, monthly_expenses, transactions, accounts, employees, projects, partners, users cascade`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestStore_PostingAndAggregates(t *testing.T) {
	s := mustOpen(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	main := ledger.Partner{ID: uuid.New(), UserID: uuid.New(), IsMainPartner: true, SharePercentage: decimal.MustParse("50")}
	user := ledger.User{ID: main.UserID, FirstName: "Ada", LastName: "Byron"}
	proj := ledger.Project{ID: uuid.New(), Name: "Alpha", ManagedByPartnerID: &main.ID, Status: "active"}
	if err := s.Seed(ctx, ledger.Directory{
		Users:     []ledger.User{user},
		Partners:  []ledger.Partner{main},
		Projects:  []ledger.Project{proj},
		Employees: []ledger.Employee{{ID: uuid.New(), UserID: uuid.New(), MonthlySalary: decimal.MustParse("1000"), Active: true}},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	accounts := account.New(s, s, "USD", nil)
	acc, err := accounts.Create(ctx, account.CreateInput{HolderName: "Firm", BankName: "Bank", AccountNumber: "PG-1", OpeningBalance: decimal.MustParse("1000")})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if _, err := accounts.Create(ctx, account.CreateInput{HolderName: "Firm", BankName: "Bank", AccountNumber: "PG-1"}); !errors.Is(err, errs.ErrDuplicate) {
		t.Fatalf("expected duplicate account number, got %v", err)
	}

	poster := posting.New(s, s, nil)
	march := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	if _, err := poster.Post(ctx, posting.Input{AccountID: acc.ID, ProjectID: &proj.ID, Amount: decimal.MustParse("12000"), Type: ledger.TransactionIncome, Date: march}); err != nil {
		t.Fatalf("post income: %v", err)
	}
	if _, err := poster.Post(ctx, posting.Input{AccountID: acc.ID, Amount: decimal.MustParse("1000"), Type: ledger.TransactionExpense, Date: march}); err != nil {
		t.Fatalf("post expense: %v", err)
	}
	ghost := uuid.New()
	if _, err := poster.Post(ctx, posting.Input{AccountID: acc.ID, ProjectID: &ghost, Amount: decimal.MustParse("1"), Type: ledger.TransactionIncome, Date: march}); !errors.Is(err, errs.ErrReference) {
		t.Fatalf("expected reference error, got %v", err)
	}

	check, err := accounts.VerifyBalance(ctx, acc.ID)
	if err != nil || !check.Consistent {
		t.Fatalf("balance check = %+v, %v", check, err)
	}
	if ledger.FormatAmount(check.Cached) != "12000.00" {
		t.Fatalf("cached balance = %s", check.Cached)
	}

	p := ledger.Period{Month: 3, Year: 2024}
	totals, err := report.New(s).Totals(ctx, p)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if ledger.FormatAmount(totals.NetIncome) != "10000.00" {
		t.Fatalf("net income = %s", totals.NetIncome)
	}

	incomes, err := partner.New(s, report.New(s)).Incomes(ctx, p)
	if err != nil {
		t.Fatalf("incomes: %v", err)
	}
	if len(incomes) != 1 || incomes[0].PartnerName != "Ada Byron" || ledger.FormatAmount(incomes[0].Settlement) != "7000.00" || incomes[0].ProjectsManaged != 1 {
		t.Fatalf("unexpected incomes %+v", incomes)
	}
}

func TestStore_VersionConflict(t *testing.T) {
	s := mustOpen(t)
	ctx := context.Background()
	acc, err := account.New(s, s, "USD", nil).Create(ctx, account.CreateInput{HolderName: "Firm", BankName: "Bank", AccountNumber: "PG-2"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Bump the version underneath a stale copy.
	if err := s.Do(ctx, func(tx ledger.Tx) error {
		_, err := tx.SaveAccount(ctx, acc, acc.Version)
		return err
	}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	err = s.Do(ctx, func(tx ledger.Tx) error {
		_, err := tx.SaveAccount(ctx, acc, acc.Version)
		return err
	})
	if !errors.Is(err, errs.ErrConcurrencyConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestStore_SettlementsOncePerPeriod(t *testing.T) {
	s := mustOpen(t)
	ctx := context.Background()
	partners := []ledger.Partner{
		{ID: uuid.New(), UserID: uuid.New(), IsMainPartner: true, SharePercentage: decimal.MustParse("60")},
		{ID: uuid.New(), UserID: uuid.New(), IsMainPartner: true, SharePercentage: decimal.MustParse("40")},
	}
	if err := s.Seed(ctx, ledger.Directory{Partners: partners}); err != nil {
		t.Fatalf("seed: %v", err)
	}
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
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 settlements, got %d", len(list))
	}

	// The unique index rejects a second row even without the service's checks.
	err = s.Do(ctx, func(tx ledger.Tx) error {
		_, err := tx.InsertSettlement(ctx, ledger.Settlement{ID: uuid.New(), PartnerID: partners[0].ID, Period: p, Expected: ledger.Zero, Actual: ledger.Zero, Amount: ledger.Zero, Status: ledger.SettlementPending, CreatedAt: time.Now()})
		return err
	})
	if !errors.Is(err, errs.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}
