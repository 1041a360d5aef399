// Package account implements account administration: creation with an
// optional opening balance, soft-deletes, and balance verification against
// the transaction ledger.
package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/firmledger/internal/errs"
	"github.com/tinoosan/firmledger/internal/ledger"
	"github.com/tinoosan/firmledger/internal/service/posting"
)

type Repo interface {
	ListAccounts(ctx context.Context, includeInactive bool) ([]ledger.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	AccountTransactionSum(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
}

// CreateInput describes a new bank account.
type CreateInput struct {
	HolderName    string
	BankName      string
	AccountNumber string
	RoutingCode   string
	// Currency defaults to the service's reporting currency.
	Currency string
	// OpeningBalance, when positive, is posted as an income transaction in
	// the same unit of work as the account row.
	OpeningBalance decimal.Decimal
	OpeningDate    time.Time
}

// BalanceCheck compares the cached balance of an account with the signed sum
// of its transactions.
type BalanceCheck struct {
	AccountID  uuid.UUID
	Cached     decimal.Decimal
	Derived    decimal.Decimal
	Consistent bool
}

type Service interface {
	ValidateCreate(in CreateInput) error
	Create(ctx context.Context, in CreateInput) (ledger.Account, error)
	Get(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	List(ctx context.Context, includeInactive bool) ([]ledger.Account, error)
	// Deactivate soft-deletes the account. Deactivating twice is a no-op.
	Deactivate(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	VerifyBalance(ctx context.Context, id uuid.UUID) (BalanceCheck, error)
}

type service struct {
	uow      ledger.UnitOfWork
	repo     Repo
	currency string
	log      *slog.Logger
	now      func() time.Time
}

func New(uow ledger.UnitOfWork, repo Repo, currency string, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{uow: uow, repo: repo, currency: strings.ToUpper(currency), log: logger, now: time.Now}
}

func (s *service) normalize(in CreateInput) CreateInput {
	in.HolderName = strings.TrimSpace(in.HolderName)
	in.BankName = strings.TrimSpace(in.BankName)
	in.AccountNumber = strings.TrimSpace(in.AccountNumber)
	in.RoutingCode = strings.ToUpper(strings.TrimSpace(in.RoutingCode))
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = s.currency
	}
	return in
}

func (s *service) ValidateCreate(in CreateInput) error {
	in = s.normalize(in)
	if in.HolderName == "" {
		return errs.Validationf("holder_name is required")
	}
	if in.BankName == "" {
		return errs.Validationf("bank_name is required")
	}
	if in.AccountNumber == "" {
		return errs.Validationf("account_number is required")
	}
	if _, err := ledger.ParseCurrency(in.Currency); err != nil {
		return err
	}
	if in.Currency != s.currency {
		return errs.Validationf("currency must be the reporting currency %s, got %s", s.currency, in.Currency)
	}
	if in.OpeningBalance.IsNeg() {
		return errs.Validationf("opening_balance must be >= 0")
	}
	if in.OpeningBalance.IsPos() {
		return ledger.ValidatePostingAmount(in.OpeningBalance)
	}
	return nil
}

func (s *service) Create(ctx context.Context, in CreateInput) (ledger.Account, error) {
	if err := s.ValidateCreate(in); err != nil {
		return ledger.Account{}, err
	}
	in = s.normalize(in)
	zero, err := ledger.ZeroAmount(in.Currency)
	if err != nil {
		return ledger.Account{}, errs.Validationf("invalid currency %q", in.Currency)
	}
	now := s.now().UTC()
	a := ledger.Account{
		ID:            uuid.New(),
		HolderName:    in.HolderName,
		BankName:      in.BankName,
		AccountNumber: in.AccountNumber,
		RoutingCode:   in.RoutingCode,
		Currency:      in.Currency,
		Balance:       zero,
		Active:        true,
		CreatedAt:     now,
	}
	var created ledger.Account
	err = s.uow.Do(ctx, func(tx ledger.Tx) error {
		taken, err := tx.AccountNumberTaken(ctx, a.AccountNumber)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: account number %s already exists", errs.ErrDuplicate, a.AccountNumber)
		}
		if created, err = tx.CreateAccount(ctx, a); err != nil {
			return err
		}
		if !in.OpeningBalance.IsPos() {
			return nil
		}
		date := in.OpeningDate
		if date.IsZero() {
			date = now
		}
		if _, err := posting.Apply(ctx, tx, posting.Input{
			AccountID:   a.ID,
			Amount:      in.OpeningBalance,
			Type:        ledger.TransactionIncome,
			Date:        date,
			Description: "Opening balance",
		}, now); err != nil {
			return err
		}
		created, err = tx.GetAccount(ctx, a.ID)
		return err
	})
	if err != nil {
		return ledger.Account{}, err
	}
	s.log.Info("account created", "account_id", created.ID.String(), "currency", created.Currency)
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	if id == uuid.Nil {
		return ledger.Account{}, errs.Validationf("account id is required")
	}
	return s.repo.GetAccount(ctx, id)
}

func (s *service) List(ctx context.Context, includeInactive bool) ([]ledger.Account, error) {
	return s.repo.ListAccounts(ctx, includeInactive)
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	if id == uuid.Nil {
		return ledger.Account{}, errs.Validationf("account id is required")
	}
	var out ledger.Account
	err := s.uow.Do(ctx, func(tx ledger.Tx) error {
		a, err := tx.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if !a.Active {
			out = a
			return nil
		}
		expected := a.Version
		a.Active = false
		out, err = tx.SaveAccount(ctx, a, expected)
		return err
	})
	if err != nil {
		return ledger.Account{}, err
	}
	s.log.Info("account deactivated", "account_id", id.String())
	return out, nil
}

func (s *service) VerifyBalance(ctx context.Context, id uuid.UUID) (BalanceCheck, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return BalanceCheck{}, err
	}
	derived, err := s.repo.AccountTransactionSum(ctx, id)
	if err != nil {
		return BalanceCheck{}, err
	}
	cached := a.Balance.Decimal()
	check := BalanceCheck{AccountID: id, Cached: cached, Derived: derived, Consistent: cached.Cmp(derived) == 0}
	if !check.Consistent {
		s.log.Warn("balance drift", "account_id", id.String(), "cached", cached.String(), "derived", derived.String())
	}
	return check, nil
}
