package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/tinoosan/firmledger/internal/errs"
	"github.com/tinoosan/firmledger/internal/ledger"
)

type accountWrite struct {
	acc      ledger.Account
	expected int64
	create   bool
}

// unit buffers the writes of one unit of work until commit.
type unit struct {
	s           *Store
	accounts    map[uuid.UUID]accountWrite
	order       []uuid.UUID
	txs         []ledger.Transaction
	settlements map[settlementKey]ledger.Settlement
}

// Do implements ledger.UnitOfWork.
func (s *Store) Do(ctx context.Context, fn func(tx ledger.Tx) error) error {
	u := &unit{
		s:           s,
		accounts:    make(map[uuid.UUID]accountWrite),
		settlements: make(map[settlementKey]ledger.Settlement),
	}
	if err := fn(u); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(u)
}

// commit validates every buffered write against the current state and applies
// all of them, or none.
func (s *Store) commit(u *unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range u.order {
		w := u.accounts[id]
		cur, exists := s.accounts[id]
		if w.create {
			if exists {
				return errs.ErrDuplicate
			}
			if _, taken := s.accountNumbers[w.acc.AccountNumber]; taken {
				return errs.ErrDuplicate
			}
			continue
		}
		if !exists || cur.Version != w.expected {
			return errs.ErrConcurrencyConflict
		}
	}
	for k := range u.settlements {
		if _, ok := s.settlements[k]; ok {
			return errs.ErrDuplicate
		}
	}
	for _, id := range u.order {
		a := u.accounts[id].acc
		s.accounts[id] = a
		s.accountNumbers[a.AccountNumber] = id
	}
	s.transactions = append(s.transactions, u.txs...)
	for k, st := range u.settlements {
		s.settlements[k] = st
	}
	return nil
}

func (u *unit) GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	if w, ok := u.accounts[id]; ok {
		return w.acc, nil
	}
	return u.s.GetAccount(ctx, id)
}

func (u *unit) AccountNumberTaken(_ context.Context, number string) (bool, error) {
	for _, w := range u.accounts {
		if w.create && w.acc.AccountNumber == number {
			return true, nil
		}
	}
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	_, ok := u.s.accountNumbers[number]
	return ok, nil
}

func (u *unit) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	if _, err := u.GetAccount(ctx, a.ID); err == nil {
		return ledger.Account{}, errs.ErrDuplicate
	}
	a.Version = 0
	u.accounts[a.ID] = accountWrite{acc: a, create: true}
	u.order = append(u.order, a.ID)
	return a, nil
}

func (u *unit) SaveAccount(ctx context.Context, a ledger.Account, expectedVersion int64) (ledger.Account, error) {
	cur, err := u.GetAccount(ctx, a.ID)
	if err != nil {
		return ledger.Account{}, err
	}
	if cur.Version != expectedVersion {
		return ledger.Account{}, errs.ErrConcurrencyConflict
	}
	a.Version = expectedVersion + 1
	if w, ok := u.accounts[a.ID]; ok {
		w.acc = a
		u.accounts[a.ID] = w
		return a, nil
	}
	u.accounts[a.ID] = accountWrite{acc: a, expected: expectedVersion}
	u.order = append(u.order, a.ID)
	return a, nil
}

func (u *unit) AppendTransaction(_ context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	u.txs = append(u.txs, t)
	return t, nil
}

func (u *unit) ProjectExists(_ context.Context, id uuid.UUID) (bool, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	_, ok := u.s.projects[id]
	return ok, nil
}

func (u *unit) ExistsSettlement(_ context.Context, partnerID uuid.UUID, p ledger.Period) (bool, error) {
	k := settlementKey{partnerID: partnerID, period: p}
	if _, ok := u.settlements[k]; ok {
		return true, nil
	}
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	_, ok := u.s.settlements[k]
	return ok, nil
}

func (u *unit) InsertSettlement(ctx context.Context, st ledger.Settlement) (ledger.Settlement, error) {
	if !st.Status.Valid() {
		return ledger.Settlement{}, errs.Validationf("unknown settlement status %q", st.Status)
	}
	exists, err := u.ExistsSettlement(ctx, st.PartnerID, st.Period)
	if err != nil {
		return ledger.Settlement{}, err
	}
	if exists {
		return ledger.Settlement{}, errs.ErrDuplicate
	}
	u.settlements[settlementKey{partnerID: st.PartnerID, period: st.Period}] = st
	return st, nil
}

// LockPeriod is a no-op; commit re-checks settlement uniqueness under the store lock.
func (u *unit) LockPeriod(context.Context, ledger.Period) error { return nil }
