// Package report aggregates a calendar month of ledger activity.
package report

import (
	"context"
	"fmt"

	"github.com/govalues/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tinoosan/firmledger/internal/ledger"
)

// Repo defines the store-side aggregates the service needs. Each call must be
// a single aggregate query, not a scan in the caller.
type Repo interface {
	SumTransactions(ctx context.Context, typ ledger.TransactionType, p ledger.Period) (decimal.Decimal, error)
	SumActiveSalaries(ctx context.Context) (decimal.Decimal, error)
}

type Service interface {
	// Totals returns income, expenses, salaries and net income for p.
	// Expenses are expense-type transactions only; monthly expense records are
	// not added, since their payments are already posted as transactions.
	Totals(ctx context.Context, p ledger.Period) (ledger.PeriodTotals, error)
	NetIncome(ctx context.Context, p ledger.Period) (decimal.Decimal, error)
}

type service struct {
	repo Repo
}

func New(repo Repo) Service { return &service{repo: repo} }

func (s *service) Totals(ctx context.Context, p ledger.Period) (ledger.PeriodTotals, error) {
	if err := p.Validate(); err != nil {
		return ledger.PeriodTotals{}, err
	}
	var income, expenses, salaries decimal.Decimal
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.repo.SumTransactions(gctx, ledger.TransactionIncome, p)
		if err != nil {
			return fmt.Errorf("sum income: %w", err)
		}
		income = v
		return nil
	})
	g.Go(func() error {
		v, err := s.repo.SumTransactions(gctx, ledger.TransactionExpense, p)
		if err != nil {
			return fmt.Errorf("sum expenses: %w", err)
		}
		expenses = v
		return nil
	})
	// Current salaries of active employees; not a point-in-time figure for past periods.
	g.Go(func() error {
		v, err := s.repo.SumActiveSalaries(gctx)
		if err != nil {
			return fmt.Errorf("sum salaries: %w", err)
		}
		salaries = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return ledger.PeriodTotals{}, err
	}
	net, err := ledger.NetIncome(income, expenses, salaries)
	if err != nil {
		return ledger.PeriodTotals{}, err
	}
	return ledger.PeriodTotals{Period: p, Income: income, Expenses: expenses, Salaries: salaries, NetIncome: net}, nil
}

func (s *service) NetIncome(ctx context.Context, p ledger.Period) (decimal.Decimal, error) {
	t, err := s.Totals(ctx, p)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return t.NetIncome, nil
}
