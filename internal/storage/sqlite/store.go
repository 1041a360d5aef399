// Package sqlite provides a single-file ledger store on the pure-Go modernc
// SQLite driver. It uses one connection, so units of work are serialized.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/tinoosan/firmledger/internal/errs"
	"github.com/tinoosan/firmledger/internal/ledger"
)

// timeLayout is fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(timeLayout, s) }

type Store struct {
	db *sql.DB
}

// Open creates the database file if needed, applies migrations and returns the store.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if err := RunMigrations(dsn); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewWithDB(db), nil
}

// NewWithDB wraps an already configured database handle.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Ready(ctx context.Context) error { return s.db.PingContext(ctx) }

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errs.ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", errs.ErrDuplicate, se.Error())
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return errs.Referencef("%s", se.Error())
		}
	}
	return err
}

// --- Accounts ---

const accountColumns = `id, holder_name, bank_name, account_number, routing_code, currency, balance_minor, active, version, created_at`

func scanAccount(row scanner) (ledger.Account, error) {
	var a ledger.Account
	var balance int64
	var created string
	if err := row.Scan(&a.ID, &a.HolderName, &a.BankName, &a.AccountNumber, &a.RoutingCode, &a.Currency, &balance, &a.Active, &a.Version, &created); err != nil {
		return ledger.Account{}, err
	}
	amt, err := ledger.NewAmount(a.Currency, ledger.FromMinor(balance))
	if err != nil {
		return ledger.Account{}, err
	}
	a.Balance = amt
	if a.CreatedAt, err = parseTime(created); err != nil {
		return ledger.Account{}, err
	}
	return a, nil
}

func getAccount(ctx context.Context, q querier, id uuid.UUID) (ledger.Account, error) {
	a, err := scanAccount(q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if err != nil {
		return ledger.Account{}, mapErr(err)
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context, includeInactive bool) ([]ledger.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+accountColumns+`
        FROM accounts
        WHERE active = 1 OR ?
        ORDER BY holder_name, account_number
    `, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	return getAccount(ctx, s.db, id)
}

func (s *Store) AccountTransactionSum(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
        SELECT COALESCE(SUM(CASE WHEN type = ? THEN amount_minor ELSE -amount_minor END), 0)
        FROM transactions
        WHERE account_id = ?
    `, int(ledger.TransactionIncome), accountID).Scan(&total)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return ledger.FromMinor(total), nil
}

// --- Transactions ---

func (s *Store) ListTransactions(ctx context.Context, p ledger.Period) ([]ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT t.id, t.account_id, t.project_id, t.amount_minor, t.type, t.description, t.reference, t.tx_date, t.processed, t.created_at, a.currency
        FROM transactions t
        JOIN accounts a ON a.id = t.account_id
        WHERE t.tx_date >= ? AND t.tx_date < ?
        ORDER BY t.tx_date, t.id
    `, formatTime(p.Start()), formatTime(p.End()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Transaction, 0)
	for rows.Next() {
		var t ledger.Transaction
		var amount int64
		var typ int
		var date, created, currency string
		if err := rows.Scan(&t.ID, &t.AccountID, &t.ProjectID, &amount, &typ, &t.Description, &t.Reference, &date, &t.Processed, &created, &currency); err != nil {
			return nil, err
		}
		t.Type = ledger.TransactionType(typ)
		if t.Amount, err = ledger.NewAmount(currency, ledger.FromMinor(amount)); err != nil {
			return nil, err
		}
		if t.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) SumTransactions(ctx context.Context, typ ledger.TransactionType, p ledger.Period) (decimal.Decimal, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
        SELECT COALESCE(SUM(amount_minor), 0)
        FROM transactions
        WHERE type = ? AND tx_date >= ? AND tx_date < ?
    `, int(typ), formatTime(p.Start()), formatTime(p.End())).Scan(&total)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return ledger.FromMinor(total), nil
}

// --- Directory ---

func (s *Store) SumActiveSalaries(ctx context.Context) (decimal.Decimal, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(monthly_salary_minor), 0) FROM employees WHERE active = 1`).Scan(&total); err != nil {
		return decimal.Decimal{}, err
	}
	return ledger.FromMinor(total), nil
}

const partnerSelect = `
    SELECT p.id, p.user_id, p.share_percentage, p.is_main_partner, p.partnership_type,
           u.id, u.first_name, u.last_name, u.email
    FROM partners p
    LEFT JOIN users u ON u.id = p.user_id
`

func scanPartner(row scanner) (ledger.Partner, error) {
	var p ledger.Partner
	var share string
	var userID *uuid.UUID
	var first, last, email sql.NullString
	if err := row.Scan(&p.ID, &p.UserID, &share, &p.IsMainPartner, &p.PartnershipType, &userID, &first, &last, &email); err != nil {
		return ledger.Partner{}, err
	}
	d, err := decimal.Parse(share)
	if err != nil {
		return ledger.Partner{}, fmt.Errorf("parse share %q: %w", share, err)
	}
	p.SharePercentage = d
	if userID != nil {
		p.User = &ledger.User{ID: *userID, FirstName: first.String, LastName: last.String, Email: email.String}
	}
	return p, nil
}

func (s *Store) MainPartners(ctx context.Context) ([]ledger.Partner, error) {
	rows, err := s.db.QueryContext(ctx, partnerSelect+` WHERE p.is_main_partner = 1 ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Partner, 0)
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPartner(ctx context.Context, id uuid.UUID) (ledger.Partner, error) {
	p, err := scanPartner(s.db.QueryRowContext(ctx, partnerSelect+` WHERE p.id = ?`, id))
	if err != nil {
		return ledger.Partner{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) PartnerIncomes(ctx context.Context, p ledger.Period) (map[uuid.UUID]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT pr.managed_by_partner_id, SUM(t.amount_minor)
        FROM transactions t
        JOIN projects pr ON pr.id = t.project_id
        WHERE t.type = ? AND t.tx_date >= ? AND t.tx_date < ?
          AND pr.managed_by_partner_id IS NOT NULL
        GROUP BY pr.managed_by_partner_id
    `, int(ledger.TransactionIncome), formatTime(p.Start()), formatTime(p.End()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]decimal.Decimal)
	for rows.Next() {
		var id uuid.UUID
		var total int64
		if err := rows.Scan(&id, &total); err != nil {
			return nil, err
		}
		out[id] = ledger.FromMinor(total)
	}
	return out, rows.Err()
}

func (s *Store) PartnerIncome(ctx context.Context, partnerID uuid.UUID, p ledger.Period) (decimal.Decimal, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
        SELECT COALESCE(SUM(t.amount_minor), 0)
        FROM transactions t
        JOIN projects pr ON pr.id = t.project_id
        WHERE pr.managed_by_partner_id = ?
          AND t.type = ? AND t.tx_date >= ? AND t.tx_date < ?
    `, partnerID, int(ledger.TransactionIncome), formatTime(p.Start()), formatTime(p.End())).Scan(&total)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return ledger.FromMinor(total), nil
}

func (s *Store) ProjectsManagedByPartner(ctx context.Context) (map[uuid.UUID]int, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT managed_by_partner_id, COUNT(*)
        FROM projects
        WHERE managed_by_partner_id IS NOT NULL
        GROUP BY managed_by_partner_id
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

func (s *Store) ProjectsManaged(ctx context.Context, partnerID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE managed_by_partner_id = ?`, partnerID).Scan(&n)
	return n, err
}

func (s *Store) MonthlyExpenses(ctx context.Context, p ledger.Period) ([]ledger.MonthlyExpense, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, description, amount_minor, category, month, year, recurring, approved_by
        FROM monthly_expenses
        WHERE month = ? AND year = ?
        ORDER BY description, id
    `, p.Month, p.Year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.MonthlyExpense, 0)
	for rows.Next() {
		var e ledger.MonthlyExpense
		var amount int64
		var category string
		var approvedBy sql.NullString
		if err := rows.Scan(&e.ID, &e.Description, &amount, &category, &e.Period.Month, &e.Period.Year, &e.Recurring, &approvedBy); err != nil {
			return nil, err
		}
		e.Amount = ledger.FromMinor(amount)
		e.Category = ledger.ExpenseCategory(category)
		if approvedBy.Valid {
			v := approvedBy.String
			e.ApprovedBy = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Settlements ---

func (s *Store) ListSettlements(ctx context.Context, p ledger.Period) ([]ledger.Settlement, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, partner_id, month, year, expected_minor, actual_minor, settlement_minor, status, processed_at, notes, created_at
        FROM settlements
        WHERE month = ? AND year = ?
        ORDER BY partner_id
    `, p.Month, p.Year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Settlement, 0)
	for rows.Next() {
		var st ledger.Settlement
		var expected, actual, amount int64
		var status, created string
		var processed sql.NullString
		if err := rows.Scan(&st.ID, &st.PartnerID, &st.Period.Month, &st.Period.Year, &expected, &actual, &amount, &status, &processed, &st.Notes, &created); err != nil {
			return nil, err
		}
		st.Expected = ledger.FromMinor(expected)
		st.Actual = ledger.FromMinor(actual)
		st.Amount = ledger.FromMinor(amount)
		if st.Status, err = ledger.ParseSettlementStatus(status); err != nil {
			return nil, fmt.Errorf("settlement %s: %w", st.ID, err)
		}
		if st.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if processed.Valid {
			t, err := parseTime(processed.String)
			if err != nil {
				return nil, err
			}
			st.ProcessedAt = &t
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
