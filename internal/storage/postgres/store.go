// Package postgres provides a pgx-backed ledger store.
//
// Sums are computed by the database, balances are saved with a version
// compare-and-swap, and settlement runs for one period are serialized with a
// transaction-scoped advisory lock. The schema lives in migrations/ and is
// applied with golang-migrate.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/tinoosan/firmledger/internal/errs"
	"github.com/tinoosan/firmledger/internal/ledger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// Migrate applies pending schema migrations.
func (s *Store) Migrate() error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("create pgx migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// querier is satisfied by both the pool and a pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// mapErr translates constraint violations into domain sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", errs.ErrDuplicate, pgErr.ConstraintName)
		case "23503":
			return errs.Referencef("%s", pgErr.ConstraintName)
		case "40001":
			return errs.ErrConcurrencyConflict
		}
	}
	return err
}

// --- Accounts ---

const accountColumns = `id, holder_name, bank_name, account_number, routing_code, currency, balance_minor, active, version, created_at`

func scanAccount(row scanner) (ledger.Account, error) {
	var a ledger.Account
	var balance int64
	if err := row.Scan(&a.ID, &a.HolderName, &a.BankName, &a.AccountNumber, &a.RoutingCode, &a.Currency, &balance, &a.Active, &a.Version, &a.CreatedAt); err != nil {
		return ledger.Account{}, err
	}
	amt, err := ledger.NewAmount(a.Currency, ledger.FromMinor(balance))
	if err != nil {
		return ledger.Account{}, err
	}
	a.Balance = amt
	return a, nil
}

func getAccount(ctx context.Context, q querier, id uuid.UUID) (ledger.Account, error) {
	a, err := scanAccount(q.QueryRow(ctx, `select `+accountColumns+` from accounts where id = $1`, id))
	if err != nil {
		return ledger.Account{}, mapErr(err)
	}
	return a, nil
}

// ListAccounts returns accounts ordered by holder name then account number.
func (s *Store) ListAccounts(ctx context.Context, includeInactive bool) ([]ledger.Account, error) {
	rows, err := s.pool.Query(ctx, `
        select `+accountColumns+`
        from accounts
        where active or $1
        order by holder_name, account_number
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
	return getAccount(ctx, s.pool, id)
}

// AccountTransactionSum derives an account balance from its transactions.
func (s *Store) AccountTransactionSum(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	var total int64
	err := s.pool.QueryRow(ctx, `
        select coalesce(sum(case when type = $2 then amount_minor else -amount_minor end), 0)::bigint
        from transactions
        where account_id = $1
    `, accountID, int16(ledger.TransactionIncome)).Scan(&total)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return ledger.FromMinor(total), nil
}

// --- Transactions ---

const transactionColumns = `id, account_id, project_id, amount_minor, type, description, reference, tx_date, processed, created_at, currency`

func scanTransaction(row scanner) (ledger.Transaction, error) {
	var t ledger.Transaction
	var amount int64
	var typ int16
	var currency string
	if err := row.Scan(&t.ID, &t.AccountID, &t.ProjectID, &amount, &typ, &t.Description, &t.Reference, &t.Date, &t.Processed, &t.CreatedAt, &currency); err != nil {
		return ledger.Transaction{}, err
	}
	t.Type = ledger.TransactionType(typ)
	amt, err := ledger.NewAmount(currency, ledger.FromMinor(amount))
	if err != nil {
		return ledger.Transaction{}, err
	}
	t.Amount = amt
	t.Date = t.Date.UTC()
	return t, nil
}

// ListTransactions returns the period's transactions ordered by (Date, ID).
func (s *Store) ListTransactions(ctx context.Context, p ledger.Period) ([]ledger.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
        select t.id, t.account_id, t.project_id, t.amount_minor, t.type, t.description, t.reference, t.tx_date, t.processed, t.created_at, a.currency
        from transactions t
        join accounts a on a.id = t.account_id
        where t.tx_date >= $1 and t.tx_date < $2
        order by t.tx_date, t.id
    `, p.Start(), p.End())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) SumTransactions(ctx context.Context, typ ledger.TransactionType, p ledger.Period) (decimal.Decimal, error) {
	var total int64
	err := s.pool.QueryRow(ctx, `
        select coalesce(sum(amount_minor), 0)::bigint
        from transactions
        where type = $1 and tx_date >= $2 and tx_date < $3
    `, int16(typ), p.Start(), p.End()).Scan(&total)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return ledger.FromMinor(total), nil
}

// --- Directory ---

func (s *Store) SumActiveSalaries(ctx context.Context) (decimal.Decimal, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `select coalesce(sum(monthly_salary_minor), 0)::bigint from employees where active`).Scan(&total); err != nil {
		return decimal.Decimal{}, err
	}
	return ledger.FromMinor(total), nil
}

const partnerSelect = `
    select p.id, p.user_id, p.share_percentage::text, p.is_main_partner, p.partnership_type,
           u.id, u.first_name, u.last_name, u.email
    from partners p
    left join users u on u.id = p.user_id
`

func scanPartner(row scanner) (ledger.Partner, error) {
	var p ledger.Partner
	var share string
	var userID *uuid.UUID
	var first, last, email *string
	if err := row.Scan(&p.ID, &p.UserID, &share, &p.IsMainPartner, &p.PartnershipType, &userID, &first, &last, &email); err != nil {
		return ledger.Partner{}, err
	}
	d, err := decimal.Parse(share)
	if err != nil {
		return ledger.Partner{}, fmt.Errorf("parse share %q: %w", share, err)
	}
	p.SharePercentage = d
	if userID != nil {
		p.User = &ledger.User{ID: *userID, FirstName: deref(first), LastName: deref(last), Email: deref(email)}
	}
	return p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// MainPartners returns main partners ordered by id, each with its user snapshot.
func (s *Store) MainPartners(ctx context.Context) ([]ledger.Partner, error) {
	rows, err := s.pool.Query(ctx, partnerSelect+` where p.is_main_partner order by p.id`)
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
	p, err := scanPartner(s.pool.QueryRow(ctx, partnerSelect+` where p.id = $1`, id))
	if err != nil {
		return ledger.Partner{}, mapErr(err)
	}
	return p, nil
}

// PartnerIncomes sums the period's income per managing partner in one grouped join.
func (s *Store) PartnerIncomes(ctx context.Context, p ledger.Period) (map[uuid.UUID]decimal.Decimal, error) {
	rows, err := s.pool.Query(ctx, `
        select pr.managed_by_partner_id, sum(t.amount_minor)::bigint
        from transactions t
        join projects pr on pr.id = t.project_id
        where t.type = $1 and t.tx_date >= $2 and t.tx_date < $3
          and pr.managed_by_partner_id is not null
        group by pr.managed_by_partner_id
    `, int16(ledger.TransactionIncome), p.Start(), p.End())
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
	err := s.pool.QueryRow(ctx, `
        select coalesce(sum(t.amount_minor), 0)::bigint
        from transactions t
        join projects pr on pr.id = t.project_id
        where pr.managed_by_partner_id = $1
          and t.type = $2 and t.tx_date >= $3 and t.tx_date < $4
    `, partnerID, int16(ledger.TransactionIncome), p.Start(), p.End()).Scan(&total)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return ledger.FromMinor(total), nil
}

func (s *Store) ProjectsManagedByPartner(ctx context.Context) (map[uuid.UUID]int, error) {
	rows, err := s.pool.Query(ctx, `
        select managed_by_partner_id, count(*)
        from projects
        where managed_by_partner_id is not null
        group by managed_by_partner_id
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = int(n)
	}
	return out, rows.Err()
}

func (s *Store) ProjectsManaged(ctx context.Context, partnerID uuid.UUID) (int, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `select count(*) from projects where managed_by_partner_id = $1`, partnerID).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Store) MonthlyExpenses(ctx context.Context, p ledger.Period) ([]ledger.MonthlyExpense, error) {
	rows, err := s.pool.Query(ctx, `
        select id, description, amount_minor, category, month, year, recurring, approved_by
        from monthly_expenses
        where month = $1 and year = $2
        order by description, id
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
		if err := rows.Scan(&e.ID, &e.Description, &amount, &category, &e.Period.Month, &e.Period.Year, &e.Recurring, &e.ApprovedBy); err != nil {
			return nil, err
		}
		e.Amount = ledger.FromMinor(amount)
		e.Category = ledger.ExpenseCategory(category)
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Settlements ---

// ListSettlements returns the period's settlements ordered by partner id.
func (s *Store) ListSettlements(ctx context.Context, p ledger.Period) ([]ledger.Settlement, error) {
	rows, err := s.pool.Query(ctx, `
        select id, partner_id, month, year, expected_minor, actual_minor, settlement_minor, status, processed_at, notes, created_at
        from settlements
        where month = $1 and year = $2
        order by partner_id
    `, p.Month, p.Year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Settlement, 0)
	for rows.Next() {
		var st ledger.Settlement
		var expected, actual, amount int64
		var status string
		if err := rows.Scan(&st.ID, &st.PartnerID, &st.Period.Month, &st.Period.Year, &expected, &actual, &amount, &status, &st.ProcessedAt, &st.Notes, &st.CreatedAt); err != nil {
			return nil, err
		}
		st.Expected = ledger.FromMinor(expected)
		st.Actual = ledger.FromMinor(actual)
		st.Amount = ledger.FromMinor(amount)
		if st.Status, err = ledger.ParseSettlementStatus(status); err != nil {
			return nil, fmt.Errorf("settlement %s: %w", st.ID, err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
