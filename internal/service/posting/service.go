// Package posting records bank transactions and keeps account balances in
// step with them. A post is one unit of work: the transaction row and the
// balance update commit together or not at all.
package posting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/firmledger/internal/errs"
	"github.com/tinoosan/firmledger/internal/ledger"
	"github.com/tinoosan/firmledger/internal/metrics"
)

const maxDescriptionLen = 500

// Repo defines read operations needed by the service.
type Repo interface {
	ListTransactions(ctx context.Context, p ledger.Period) ([]ledger.Transaction, error)
}

// Input is a transaction to post.
type Input struct {
	AccountID   uuid.UUID
	ProjectID   *uuid.UUID
	Amount      decimal.Decimal
	Type        ledger.TransactionType
	Date        time.Time
	Description string
	Reference   string
}

// Service records transactions against accounts.
type Service interface {
	// Validate checks the input without touching the store.
	Validate(in Input) error
	// Post records in once. A concurrent balance change yields errs.ErrConcurrencyConflict
	// and nothing is written.
	Post(ctx context.Context, in Input) (ledger.Transaction, error)
	// PostWithRetry re-runs Post on version conflicts, up to attempts times in total.
	PostWithRetry(ctx context.Context, in Input, attempts int) (ledger.Transaction, error)
	List(ctx context.Context, p ledger.Period) ([]ledger.Transaction, error)
}

type service struct {
	uow  ledger.UnitOfWork
	repo Repo
	log  *slog.Logger
	now  func() time.Time
}

func New(uow ledger.UnitOfWork, repo Repo, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{uow: uow, repo: repo, log: logger, now: time.Now}
}

func (s *service) Validate(in Input) error {
	if in.AccountID == uuid.Nil {
		return errs.Validationf("account_id is required")
	}
	if in.ProjectID != nil && *in.ProjectID == uuid.Nil {
		return errs.Validationf("project_id must not be the nil uuid")
	}
	if !in.Type.Valid() {
		return errs.Validationf("invalid transaction type %d", uint8(in.Type))
	}
	if in.Date.IsZero() {
		return errs.Validationf("date is required")
	}
	if len(in.Description) > maxDescriptionLen {
		return errs.Validationf("description exceeds %d characters", maxDescriptionLen)
	}
	return ledger.ValidatePostingAmount(in.Amount)
}

func (s *service) Post(ctx context.Context, in Input) (ledger.Transaction, error) {
	if err := s.Validate(in); err != nil {
		return ledger.Transaction{}, err
	}
	var posted ledger.Transaction
	err := s.uow.Do(ctx, func(tx ledger.Tx) error {
		t, err := Apply(ctx, tx, in, s.now().UTC())
		if err != nil {
			return err
		}
		posted = t
		return nil
	})
	if errors.Is(err, errs.ErrConcurrencyConflict) {
		metrics.PostingConflicts.Inc()
		s.log.Warn("posting conflict", "account_id", in.AccountID.String(), "type", in.Type.String())
	}
	if err != nil {
		return ledger.Transaction{}, err
	}
	metrics.TransactionsPosted.WithLabelValues(posted.Type.String()).Inc()
	s.log.Info("transaction posted",
		"transaction_id", posted.ID.String(),
		"account_id", posted.AccountID.String(),
		"type", posted.Type.String(),
		"amount", posted.Amount.Decimal().String(),
	)
	return posted, nil
}

func (s *service) PostWithRetry(ctx context.Context, in Input, attempts int) (ledger.Transaction, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return ledger.Transaction{}, err
		}
		t, err := s.Post(ctx, in)
		if !errors.Is(err, errs.ErrConcurrencyConflict) {
			return t, err
		}
		lastErr = err
	}
	return ledger.Transaction{}, lastErr
}

func (s *service) List(ctx context.Context, p ledger.Period) ([]ledger.Transaction, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, p)
}

// Apply records in inside an existing unit of work: it checks references,
// appends the transaction and saves the account against the version it read.
// Callers validate in first.
func Apply(ctx context.Context, tx ledger.Tx, in Input, createdAt time.Time) (ledger.Transaction, error) {
	if in.ProjectID != nil {
		ok, err := tx.ProjectExists(ctx, *in.ProjectID)
		if err != nil {
			return ledger.Transaction{}, fmt.Errorf("check project: %w", err)
		}
		if !ok {
			return ledger.Transaction{}, errs.Referencef("project %s not found", in.ProjectID)
		}
	}
	acc, err := tx.GetAccount(ctx, in.AccountID)
	if errors.Is(err, errs.ErrNotFound) {
		return ledger.Transaction{}, errs.Referencef("account %s not found", in.AccountID)
	}
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("load account: %w", err)
	}
	amount, err := ledger.NewAmount(acc.Currency, in.Amount)
	if err != nil {
		return ledger.Transaction{}, err
	}
	var balance money.Amount
	if in.Type.Sign() > 0 {
		balance, err = acc.Balance.Add(amount)
	} else {
		balance, err = acc.Balance.Sub(amount)
	}
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("apply amount: %w", err)
	}

	t := ledger.Transaction{
		ID:          uuid.New(),
		AccountID:   acc.ID,
		ProjectID:   in.ProjectID,
		Amount:      amount,
		Type:        in.Type,
		Description: strings.TrimSpace(in.Description),
		Reference:   strings.TrimSpace(in.Reference),
		Date:        in.Date.UTC(),
		CreatedAt:   createdAt,
	}
	if _, err := tx.AppendTransaction(ctx, t); err != nil {
		return ledger.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}
	expected := acc.Version
	acc.Balance = balance
	if _, err := tx.SaveAccount(ctx, acc, expected); err != nil {
		return ledger.Transaction{}, fmt.Errorf("save account: %w", err)
	}
	return t, nil
}
