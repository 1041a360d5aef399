// Package partner derives each main partner's expected and actual income for
// a period and the settlement that balances the two.
package partner

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tinoosan/firmledger/internal/errs"
	"github.com/tinoosan/firmledger/internal/ledger"
)

// Repo defines the directory and ledger queries used by the calculator.
// The plural methods answer for the whole roster in one query each.
type Repo interface {
	MainPartners(ctx context.Context) ([]ledger.Partner, error)
	GetPartner(ctx context.Context, id uuid.UUID) (ledger.Partner, error)
	PartnerIncomes(ctx context.Context, p ledger.Period) (map[uuid.UUID]decimal.Decimal, error)
	PartnerIncome(ctx context.Context, partnerID uuid.UUID, p ledger.Period) (decimal.Decimal, error)
	ProjectsManagedByPartner(ctx context.Context) (map[uuid.UUID]int, error)
	ProjectsManaged(ctx context.Context, partnerID uuid.UUID) (int, error)
}

// NetIncomer supplies the period's net income.
type NetIncomer interface {
	NetIncome(ctx context.Context, p ledger.Period) (decimal.Decimal, error)
}

type Service interface {
	// Incomes returns one entry per main partner, ordered as the store lists them.
	Incomes(ctx context.Context, p ledger.Period) ([]ledger.PartnerIncome, error)
	// IncomesForNet is Incomes with a net income the caller already computed.
	IncomesForNet(ctx context.Context, p ledger.Period, net decimal.Decimal) ([]ledger.PartnerIncome, error)
	// Income computes one partner's figures for p, main partner or not.
	// Unknown partners yield errs.ErrNotFound.
	Income(ctx context.Context, partnerID uuid.UUID, p ledger.Period) (ledger.PartnerIncome, error)
	// SettlementPreview returns actual - expected for one partner without
	// persisting anything. Unknown partners yield errs.ErrNotFound.
	SettlementPreview(ctx context.Context, partnerID uuid.UUID, p ledger.Period) (decimal.Decimal, error)
}

type service struct {
	repo Repo
	net  NetIncomer
}

func New(repo Repo, net NetIncomer) Service { return &service{repo: repo, net: net} }

func (s *service) Incomes(ctx context.Context, p ledger.Period) ([]ledger.PartnerIncome, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	net, err := s.net.NetIncome(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("net income: %w", err)
	}
	return s.IncomesForNet(ctx, p, net)
}

func (s *service) IncomesForNet(ctx context.Context, p ledger.Period, net decimal.Decimal) ([]ledger.PartnerIncome, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var (
		partners []ledger.Partner
		actuals  map[uuid.UUID]decimal.Decimal
		projects map[uuid.UUID]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		partners, err = s.repo.MainPartners(gctx)
		return err
	})
	g.Go(func() (err error) {
		actuals, err = s.repo.PartnerIncomes(gctx, p)
		return err
	})
	g.Go(func() (err error) {
		projects, err = s.repo.ProjectsManagedByPartner(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]ledger.PartnerIncome, 0, len(partners))
	for _, pt := range partners {
		actual, ok := actuals[pt.ID]
		if !ok {
			actual = ledger.Zero
		}
		inc, err := Calculate(pt, net, actual, projects[pt.ID])
		if err != nil {
			return nil, fmt.Errorf("partner %s: %w", pt.ID, err)
		}
		out = append(out, inc)
	}
	return out, nil
}

func (s *service) Income(ctx context.Context, partnerID uuid.UUID, p ledger.Period) (ledger.PartnerIncome, error) {
	if partnerID == uuid.Nil {
		return ledger.PartnerIncome{}, errs.Validationf("partner id is required")
	}
	if err := p.Validate(); err != nil {
		return ledger.PartnerIncome{}, err
	}
	pt, err := s.repo.GetPartner(ctx, partnerID)
	if err != nil {
		return ledger.PartnerIncome{}, err
	}
	net, err := s.net.NetIncome(ctx, p)
	if err != nil {
		return ledger.PartnerIncome{}, fmt.Errorf("net income: %w", err)
	}
	actual, err := s.repo.PartnerIncome(ctx, partnerID, p)
	if err != nil {
		return ledger.PartnerIncome{}, err
	}
	projects, err := s.repo.ProjectsManaged(ctx, partnerID)
	if err != nil {
		return ledger.PartnerIncome{}, err
	}
	return Calculate(pt, net, actual, projects)
}

func (s *service) SettlementPreview(ctx context.Context, partnerID uuid.UUID, p ledger.Period) (decimal.Decimal, error) {
	inc, err := s.Income(ctx, partnerID, p)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return inc.Settlement, nil
}

// Calculate applies the share formula to one partner:
// expected = round2(net * share / 100), or zero for a non-positive share,
// and settlement = actual - expected.
func Calculate(pt ledger.Partner, net, actual decimal.Decimal, projectsManaged int) (ledger.PartnerIncome, error) {
	expected, err := ledger.ExpectedShare(net, pt.SharePercentage)
	if err != nil {
		return ledger.PartnerIncome{}, err
	}
	settlement, err := actual.Sub(expected)
	if err != nil {
		return ledger.PartnerIncome{}, err
	}
	return ledger.PartnerIncome{
		PartnerID:       pt.ID,
		PartnerName:     pt.DisplayName(),
		Share:           pt.SharePercentage,
		Expected:        expected,
		Actual:          actual,
		Settlement:      settlement,
		ProjectsManaged: projectsManaged,
	}, nil
}
