package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/tinoosan/firmledger/internal/errs"
	"github.com/tinoosan/firmledger/internal/ledger"
)

// Do implements ledger.UnitOfWork on a single database transaction.
func (s *Store) Do(ctx context.Context, fn func(tx ledger.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(&sqlTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapErr(err)
	}
	return nil
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	return getAccount(ctx, t.tx, id)
}

func (t *sqlTx) AccountNumberTaken(ctx context.Context, number string) (bool, error) {
	var ok bool
	err := t.tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE account_number = ?)`, number).Scan(&ok)
	return ok, err
}

func (t *sqlTx) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	balance, err := ledger.AmountMinor(a.Balance)
	if err != nil {
		return ledger.Account{}, err
	}
	a.Version = 0
	_, err = t.tx.ExecContext(ctx, `
        INSERT INTO accounts (id, holder_name, bank_name, account_number, routing_code, currency, balance_minor, active, version, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
    `, a.ID, a.HolderName, a.BankName, a.AccountNumber, a.RoutingCode, a.Currency, balance, a.Active, formatTime(a.CreatedAt))
	if err != nil {
		return ledger.Account{}, mapErr(err)
	}
	return a, nil
}

func (t *sqlTx) SaveAccount(ctx context.Context, a ledger.Account, expectedVersion int64) (ledger.Account, error) {
	balance, err := ledger.AmountMinor(a.Balance)
	if err != nil {
		return ledger.Account{}, err
	}
	res, err := t.tx.ExecContext(ctx, `
        UPDATE accounts
        SET holder_name = ?, bank_name = ?, routing_code = ?, balance_minor = ?, active = ?, version = version + 1
        WHERE id = ? AND version = ?
    `, a.HolderName, a.BankName, a.RoutingCode, balance, a.Active, a.ID, expectedVersion)
	if err != nil {
		return ledger.Account{}, mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ledger.Account{}, err
	}
	if n == 0 {
		return ledger.Account{}, errs.ErrConcurrencyConflict
	}
	a.Version = expectedVersion + 1
	return a, nil
}

func (t *sqlTx) AppendTransaction(ctx context.Context, tr ledger.Transaction) (ledger.Transaction, error) {
	amount, err := ledger.AmountMinor(tr.Amount)
	if err != nil {
		return ledger.Transaction{}, err
	}
	_, err = t.tx.ExecContext(ctx, `
        INSERT INTO transactions (id, account_id, project_id, amount_minor, type, description, reference, tx_date, processed, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, tr.ID, tr.AccountID, tr.ProjectID, amount, int(tr.Type), tr.Description, tr.Reference, formatTime(tr.Date), tr.Processed, formatTime(tr.CreatedAt))
	if err != nil {
		return ledger.Transaction{}, mapErr(err)
	}
	return tr, nil
}

func (t *sqlTx) ProjectExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := t.tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM projects WHERE id = ?)`, id).Scan(&ok)
	return ok, err
}

func (t *sqlTx) ExistsSettlement(ctx context.Context, partnerID uuid.UUID, p ledger.Period) (bool, error) {
	var ok bool
	err := t.tx.QueryRowContext(ctx, `
        SELECT EXISTS(SELECT 1 FROM settlements WHERE partner_id = ? AND month = ? AND year = ?)
    `, partnerID, p.Month, p.Year).Scan(&ok)
	return ok, err
}

func (t *sqlTx) InsertSettlement(ctx context.Context, st ledger.Settlement) (ledger.Settlement, error) {
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
	var processed *string
	if st.ProcessedAt != nil {
		v := formatTime(*st.ProcessedAt)
		processed = &v
	}
	_, err = t.tx.ExecContext(ctx, `
        INSERT INTO settlements (id, partner_id, month, year, expected_minor, actual_minor, settlement_minor, status, processed_at, notes, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, st.ID, st.PartnerID, st.Period.Month, st.Period.Year, expected, actual, amount, string(st.Status), processed, st.Notes, formatTime(st.CreatedAt))
	if err != nil {
		return ledger.Settlement{}, mapErr(err)
	}
	return st, nil
}

// LockPeriod is a no-op: the store's single connection already serializes
// units of work.
func (t *sqlTx) LockPeriod(context.Context, ledger.Period) error { return nil }
