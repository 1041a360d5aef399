// Package settlement persists each main partner's monthly settlement exactly
// once per period.
package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/firmledger/internal/ledger"
	"github.com/tinoosan/firmledger/internal/metrics"
	"github.com/tinoosan/firmledger/internal/notify"
)

type Repo interface {
	ListSettlements(ctx context.Context, p ledger.Period) ([]ledger.Settlement, error)
}

type NetIncomer interface {
	NetIncome(ctx context.Context, p ledger.Period) (decimal.Decimal, error)
}

// Calculator computes partner incomes for a known net income.
type Calculator interface {
	IncomesForNet(ctx context.Context, p ledger.Period, net decimal.Decimal) ([]ledger.PartnerIncome, error)
}

// Result reports what one processing run did.
type Result struct {
	Period  ledger.Period
	Created []ledger.Settlement
	// Skipped counts partners that already had a settlement for the period.
	Skipped int
}

type Service interface {
	// Process inserts a pending settlement for every main partner that does
	// not have one for p yet. The batch commits atomically; running it again
	// for the same period creates nothing.
	Process(ctx context.Context, p ledger.Period) (Result, error)
	List(ctx context.Context, p ledger.Period) ([]ledger.Settlement, error)
}

type service struct {
	uow      ledger.UnitOfWork
	repo     Repo
	net      NetIncomer
	calc     Calculator
	notifier notify.Notifier
	log      *slog.Logger
	now      func() time.Time
	locks    periodLocks
}

func New(uow ledger.UnitOfWork, repo Repo, net NetIncomer, calc Calculator, notifier notify.Notifier, logger *slog.Logger) Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &service{uow: uow, repo: repo, net: net, calc: calc, notifier: notifier, log: logger, now: time.Now}
}

func (s *service) Process(ctx context.Context, p ledger.Period) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	unlock := s.locks.lock(p)
	defer unlock()

	res, err := s.process(ctx, p)
	if err != nil {
		metrics.SettlementRuns.WithLabelValues(metrics.OutcomeError).Inc()
		s.log.Error("settlement run failed", "period", p.String(), "err", err)
		return Result{}, err
	}
	metrics.SettlementRuns.WithLabelValues(metrics.OutcomeOK).Inc()
	metrics.SettlementsCreated.Add(float64(len(res.Created)))
	metrics.SettlementsSkipped.Add(float64(res.Skipped))
	s.log.Info("settlement run complete", "period", p.String(), "created", len(res.Created), "skipped", res.Skipped)

	if len(res.Created) > 0 {
		if err := s.notifier.SettlementsCreated(ctx, p, res.Created); err != nil {
			metrics.NotificationFailures.Inc()
			s.log.Error("settlement notification failed", "period", p.String(), "err", err)
		}
	}
	return res, nil
}

func (s *service) process(ctx context.Context, p ledger.Period) (Result, error) {
	net, err := s.net.NetIncome(ctx, p)
	if err != nil {
		return Result{}, fmt.Errorf("net income: %w", err)
	}
	incomes, err := s.calc.IncomesForNet(ctx, p, net)
	if err != nil {
		return Result{}, fmt.Errorf("partner incomes: %w", err)
	}
	now := s.now().UTC()
	var res Result
	err = s.uow.Do(ctx, func(tx ledger.Tx) error {
		res = Result{Period: p}
		if err := tx.LockPeriod(ctx, p); err != nil {
			return fmt.Errorf("lock period: %w", err)
		}
		for _, inc := range incomes {
			exists, err := tx.ExistsSettlement(ctx, inc.PartnerID, p)
			if err != nil {
				return fmt.Errorf("check settlement for partner %s: %w", inc.PartnerID, err)
			}
			if exists {
				res.Skipped++
				s.log.Debug("settlement exists, skipping", "partner_id", inc.PartnerID.String(), "period", p.String())
				continue
			}
			st := ledger.Settlement{
				ID:        uuid.New(),
				PartnerID: inc.PartnerID,
				Period:    p,
				Expected:  inc.Expected,
				Actual:    inc.Actual,
				Amount:    inc.Settlement,
				Status:    ledger.SettlementPending,
				CreatedAt: now,
			}
			if _, err := tx.InsertSettlement(ctx, st); err != nil {
				return fmt.Errorf("insert settlement for partner %s: %w", inc.PartnerID, err)
			}
			res.Created = append(res.Created, st)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (s *service) List(ctx context.Context, p ledger.Period) ([]ledger.Settlement, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListSettlements(ctx, p)
}

// periodLocks hands out one mutex per period so runs for the same month
// serialize inside this process.
type periodLocks struct {
	mu sync.Mutex
	m  map[ledger.Period]*periodLock
}

type periodLock struct {
	mu   sync.Mutex
	refs int
}

func (l *periodLocks) lock(p ledger.Period) (unlock func()) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[ledger.Period]*periodLock)
	}
	pl, ok := l.m[p]
	if !ok {
		pl = &periodLock{}
		l.m[p] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()
		l.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.m, p)
		}
		l.mu.Unlock()
	}
}
