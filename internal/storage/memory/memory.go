// Package memory provides an in-memory ledger store used for development and tests.
// Units of work buffer their writes and validate account versions when they
// commit, so concurrent posts behave like they do against a database.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/firmledger/internal/errs"
	"github.com/tinoosan/firmledger/internal/ledger"
)

type settlementKey struct {
	partnerID uuid.UUID
	period    ledger.Period
}

// Store is guarded by an RWMutex; all methods are safe for concurrent use.
type Store struct {
	mu             sync.RWMutex
	accounts       map[uuid.UUID]ledger.Account
	accountNumbers map[string]uuid.UUID
	transactions   []ledger.Transaction
	users          map[uuid.UUID]ledger.User
	partners       map[uuid.UUID]ledger.Partner
	projects       map[uuid.UUID]ledger.Project
	employees      map[uuid.UUID]ledger.Employee
	expenses       []ledger.MonthlyExpense
	settlements    map[settlementKey]ledger.Settlement
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		accounts:       make(map[uuid.UUID]ledger.Account),
		accountNumbers: make(map[string]uuid.UUID),
		users:          make(map[uuid.UUID]ledger.User),
		partners:       make(map[uuid.UUID]ledger.Partner),
		projects:       make(map[uuid.UUID]ledger.Project),
		employees:      make(map[uuid.UUID]ledger.Employee),
		settlements:    make(map[settlementKey]ledger.Settlement),
	}
}

// Ready always succeeds.
func (s *Store) Ready(context.Context) error { return nil }

// Seed loads directory data, replacing rows with the same id.
func (s *Store) Seed(_ context.Context, d ledger.Directory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range d.Users {
		s.users[u.ID] = u
	}
	for _, p := range d.Partners {
		p.User = nil
		s.partners[p.ID] = p
	}
	for _, p := range d.Projects {
		s.projects[p.ID] = p
	}
	for _, e := range d.Employees {
		s.employees[e.ID] = e
	}
	for _, e := range d.Expenses {
		replaced := false
		for i := range s.expenses {
			if s.expenses[i].ID == e.ID {
				s.expenses[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			s.expenses = append(s.expenses, e)
		}
	}
	return nil
}

// SeedAccount stores a as-is. Callers are responsible for the balance matching
// the account's transactions.
func (s *Store) SeedAccount(a ledger.Account) {
	s.mu.Lock()
	s.accounts[a.ID] = a
	s.accountNumbers[a.AccountNumber] = a.ID
	s.mu.Unlock()
}

// --- Account reads ---

// ListAccounts returns accounts ordered by holder name then account number.
func (s *Store) ListAccounts(_ context.Context, includeInactive bool) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		if a.Active || includeInactive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HolderName != out[j].HolderName {
			return out[i].HolderName < out[j].HolderName
		}
		return out[i].AccountNumber < out[j].AccountNumber
	})
	return out, nil
}

func (s *Store) GetAccount(_ context.Context, id uuid.UUID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

// AccountTransactionSum derives an account balance from its transactions.
func (s *Store) AccountTransactionSum(_ context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, t := range s.transactions {
		if t.AccountID != accountID {
			continue
		}
		units, err := ledger.AmountMinor(t.Amount)
		if err != nil {
			return decimal.Decimal{}, err
		}
		total += int64(t.Type.Sign()) * units
	}
	return ledger.FromMinor(total), nil
}

// --- Transaction reads ---

// ListTransactions returns the period's transactions ordered by (Date, ID).
func (s *Store) ListTransactions(_ context.Context, p ledger.Period) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Transaction, 0)
	for _, t := range s.transactions {
		if p.Contains(t.Date) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) SumTransactions(_ context.Context, typ ledger.TransactionType, p ledger.Period) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, t := range s.transactions {
		if t.Type != typ || !p.Contains(t.Date) {
			continue
		}
		units, err := ledger.AmountMinor(t.Amount)
		if err != nil {
			return decimal.Decimal{}, err
		}
		total += units
	}
	return ledger.FromMinor(total), nil
}

// --- Directory reads ---

func (s *Store) SumActiveSalaries(_ context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := ledger.Zero
	for _, e := range s.employees {
		if !e.Active {
			continue
		}
		var err error
		if total, err = total.Add(e.MonthlySalary); err != nil {
			return decimal.Decimal{}, err
		}
	}
	return total, nil
}

// MainPartners returns main partners ordered by id, each with its user snapshot.
func (s *Store) MainPartners(_ context.Context) ([]ledger.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Partner, 0)
	for _, p := range s.partners {
		if p.IsMainPartner {
			out = append(out, s.withUserLocked(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *Store) GetPartner(_ context.Context, id uuid.UUID) (ledger.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.partners[id]
	if !ok {
		return ledger.Partner{}, errs.ErrNotFound
	}
	return s.withUserLocked(p), nil
}

func (s *Store) withUserLocked(p ledger.Partner) ledger.Partner {
	if u, ok := s.users[p.UserID]; ok {
		p.User = &u
	}
	return p
}

// PartnerIncomes sums the period's income transactions per managing partner.
func (s *Store) PartnerIncomes(_ context.Context, p ledger.Period) (map[uuid.UUID]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	minor := make(map[uuid.UUID]int64)
	for _, t := range s.transactions {
		partnerID, ok := s.managingPartnerLocked(t, p)
		if !ok {
			continue
		}
		units, err := ledger.AmountMinor(t.Amount)
		if err != nil {
			return nil, err
		}
		minor[partnerID] += units
	}
	out := make(map[uuid.UUID]decimal.Decimal, len(minor))
	for id, units := range minor {
		out[id] = ledger.FromMinor(units)
	}
	return out, nil
}

func (s *Store) PartnerIncome(ctx context.Context, partnerID uuid.UUID, p ledger.Period) (decimal.Decimal, error) {
	all, err := s.PartnerIncomes(ctx, p)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if v, ok := all[partnerID]; ok {
		return v, nil
	}
	return ledger.Zero, nil
}

func (s *Store) managingPartnerLocked(t ledger.Transaction, p ledger.Period) (uuid.UUID, bool) {
	if t.Type != ledger.TransactionIncome || t.ProjectID == nil || !p.Contains(t.Date) {
		return uuid.Nil, false
	}
	proj, ok := s.projects[*t.ProjectID]
	if !ok || proj.ManagedByPartnerID == nil {
		return uuid.Nil, false
	}
	return *proj.ManagedByPartnerID, true
}

func (s *Store) ProjectsManagedByPartner(_ context.Context) (map[uuid.UUID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]int)
	for _, p := range s.projects {
		if p.ManagedByPartnerID != nil {
			out[*p.ManagedByPartnerID]++
		}
	}
	return out, nil
}

func (s *Store) ProjectsManaged(ctx context.Context, partnerID uuid.UUID) (int, error) {
	all, err := s.ProjectsManagedByPartner(ctx)
	if err != nil {
		return 0, err
	}
	return all[partnerID], nil
}

func (s *Store) MonthlyExpenses(_ context.Context, p ledger.Period) ([]ledger.MonthlyExpense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.MonthlyExpense, 0)
	for _, e := range s.expenses {
		if e.Period == p {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- Settlement reads ---

// ListSettlements returns the period's settlements ordered by partner id.
func (s *Store) ListSettlements(_ context.Context, p ledger.Period) ([]ledger.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Settlement, 0)
	for k, st := range s.settlements {
		if k.period == p {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartnerID.String() < out[j].PartnerID.String() })
	return out, nil
}
