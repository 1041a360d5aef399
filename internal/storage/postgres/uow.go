package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/firmledger/internal/errs"
	"github.com/tinoosan/firmledger/internal/ledger"
)

// settlementLockClass namespaces the advisory locks taken for settlement runs.
const settlementLockClass int32 = 0x5e71

// Do implements ledger.UnitOfWork on a single database transaction.
func (s *Store) Do(ctx context.Context, fn func(tx ledger.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapErr(err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	return getAccount(ctx, t.tx, id)
}

func (t *pgTx) AccountNumberTaken(ctx context.Context, number string) (bool, error) {
	var ok bool
	err := t.tx.QueryRow(ctx, `select exists(select 1 from accounts where account_number = $1)`, number).Scan(&ok)
	return ok, err
}

func (t *pgTx) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	balance, err := ledger.AmountMinor(a.Balance)
	if err != nil {
		return ledger.Account{}, err
	}
	a.Version = 0
	_, err = t.tx.Exec(ctx, `
        insert into accounts (id, holder_name, bank_name, account_number, routing_code, currency, balance_minor, active, version, created_at)
        values ($1,$2,$3,$4,$5,$6,$7,$8,0,$9)
    `, a.ID, a.HolderName, a.BankName, a.AccountNumber, a.RoutingCode, a.Currency, balance, a.Active, a.CreatedAt)
	if err != nil {
		return ledger.Account{}, mapErr(err)
	}
	return a, nil
}

// SaveAccount updates the mutable columns only while the stored version still
// matches. Account number and currency never change.
func (t *pgTx) SaveAccount(ctx context.Context, a ledger.Account, expectedVersion int64) (ledger.Account, error) {
	balance, err := ledger.AmountMinor(a.Balance)
	if err != nil {
		return ledger.Account{}, err
	}
	tag, err := t.tx.Exec(ctx, `
        update accounts
        set holder_name = $2, bank_name = $3, routing_code = $4, balance_minor = $5, active = $6, version = version + 1
        where id = $1 and version = $7
    `, a.ID, a.HolderName, a.BankName, a.RoutingCode, balance, a.Active, expectedVersion)
	if err != nil {
		return ledger.Account{}, mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.Account{}, errs.ErrConcurrencyConflict
	}
	a.Version = expectedVersion + 1
	return a, nil
}

func (t *pgTx) AppendTransaction(ctx context.Context, tr ledger.Transaction) (ledger.Transaction, error) {
	amount, err := ledger.AmountMinor(tr.Amount)
	if err != nil {
		return ledger.Transaction{}, err
	}
	_, err = t.tx.Exec(ctx, `
        insert into transactions (id, account_id, project_id, amount_minor, type, description, reference, tx_date, processed, created_at)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `, tr.ID, tr.AccountID, tr.ProjectID, amount, int16(tr.Type), tr.Description, tr.Reference, tr.Date, tr.Processed, tr.CreatedAt)
	if err != nil {
		return ledger.Transaction{}, mapErr(err)
	}
	return tr, nil
}

func (t *pgTx) ProjectExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := t.tx.QueryRow(ctx, `select exists(select 1 from projects where id = $1)`, id).Scan(&ok)
	return ok, err
}

func (t *pgTx) ExistsSettlement(ctx context.Context, partnerID uuid.UUID, p ledger.Period) (bool, error) {
	var ok bool
	err := t.tx.QueryRow(ctx, `
        select exists(select 1 from settlements where partner_id = $1 and month = $2 and year = $3)
    `, partnerID, p.Month, p.Year).Scan(&ok)
	return ok, err
}

func (t *pgTx) InsertSettlement(ctx context.Context, st ledger.Settlement) (ledger.Settlement, error) {
	if !st.Status.Valid() {
		return ledger.Settlement{}, errs.Validationf("unknown settlement status %q", st.Status)
	}
	expected, err := ledger.ToMinor(st.Expected)
	if err != nil {
		return ledger.Settlement{}, err
	}
	actual, err := ledger.ToMinor(st.Actual)
	if err != nil {
		return ledger.Settlement{}, err
	}
	amount, err := ledger.ToMinor(st.Amount)
	if err != nil {
		return ledger.Settlement{}, err
	}
	_, err = t.tx.Exec(ctx, `
        insert into settlements (id, partner_id, month, year, expected_minor, actual_minor, settlement_minor, status, processed_at, notes, created_at)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    `, st.ID, st.PartnerID, st.Period.Month, st.Period.Year, expected, actual, amount, string(st.Status), st.ProcessedAt, st.Notes, st.CreatedAt)
	if err != nil {
		return ledger.Settlement{}, mapErr(err)
	}
	return st, nil
}

// LockPeriod takes a transaction-scoped advisory lock keyed by the period.
func (t *pgTx) LockPeriod(ctx context.Context, p ledger.Period) error {
	_, err := t.tx.Exec(ctx, `select pg_advisory_xact_lock($1, $2)`, settlementLockClass, int32(p.Year*100+p.Month))
	return err
}
