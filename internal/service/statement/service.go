// Package statement assembles the monthly financial report.
package statement

import (
	"context"
	"fmt"

	"github.com/govalues/decimal"

	"github.com/tinoosan/firmledger/internal/ledger"
)

type Repo interface {
	MonthlyExpenses(ctx context.Context, p ledger.Period) ([]ledger.MonthlyExpense, error)
}

type Totals interface {
	Totals(ctx context.Context, p ledger.Period) (ledger.PeriodTotals, error)
}

type Incomes interface {
	IncomesForNet(ctx context.Context, p ledger.Period, net decimal.Decimal) ([]ledger.PartnerIncome, error)
}

// Report is the monthly statement: totals, partner incomes and the period's
// overhead lines. The overheads are informational and already reflected in
// expense transactions.
type Report struct {
	Totals   ledger.PeriodTotals
	Partners []ledger.PartnerIncome
	Expenses []ledger.MonthlyExpense
}

type Service interface {
	Monthly(ctx context.Context, p ledger.Period) (Report, error)
}

type service struct {
	repo    Repo
	totals  Totals
	incomes Incomes
}

func New(repo Repo, totals Totals, incomes Incomes) Service {
	return &service{repo: repo, totals: totals, incomes: incomes}
}

func (s *service) Monthly(ctx context.Context, p ledger.Period) (Report, error) {
	if err := p.Validate(); err != nil {
		return Report{}, err
	}
	totals, err := s.totals.Totals(ctx, p)
	if err != nil {
		return Report{}, fmt.Errorf("totals: %w", err)
	}
	partners, err := s.incomes.IncomesForNet(ctx, p, totals.NetIncome)
	if err != nil {
		return Report{}, fmt.Errorf("partner incomes: %w", err)
	}
	expenses, err := s.repo.MonthlyExpenses(ctx, p)
	if err != nil {
		return Report{}, fmt.Errorf("monthly expenses: %w", err)
	}
	return Report{Totals: totals, Partners: partners, Expenses: expenses}, nil
}
