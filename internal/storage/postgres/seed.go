package postgres

import (
	"context"
	"fmt"

	"github.com/tinoosan/firmledger/internal/ledger"
)

// Seed inserts directory rows, skipping ids that already exist.
func (s *Store) Seed(ctx context.Context, d ledger.Directory) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for _, u := range d.Users {
		if _, err := tx.Exec(ctx, `
            insert into users (id, first_name, last_name, email) values ($1,$2,$3,$4)
            on conflict (id) do nothing
        `, u.ID, u.FirstName, u.LastName, u.Email); err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
	}
	for _, p := range d.Partners {
		if _, err := tx.Exec(ctx, `
            insert into partners (id, user_id, share_percentage, is_main_partner, partnership_type)
            values ($1,$2,$3::text::numeric,$4,$5)
            on conflict (id) do nothing
        `, p.ID, p.UserID, p.SharePercentage.String(), p.IsMainPartner, p.PartnershipType); err != nil {
			return fmt.Errorf("seed partner: %w", err)
		}
	}
	for _, p := range d.Projects {
		if _, err := tx.Exec(ctx, `
            insert into projects (id, name, client_name, managed_by_partner_id, status)
            values ($1,$2,$3,$4,$5)
            on conflict (id) do nothing
        `, p.ID, p.Name, p.ClientName, p.ManagedByPartnerID, p.Status); err != nil {
			return fmt.Errorf("seed project: %w", err)
		}
	}
	for _, e := range d.Employees {
		salary, err := ledger.ToMinor(e.MonthlySalary)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
            insert into employees (id, user_id, monthly_salary_minor, active) values ($1,$2,$3,$4)
            on conflict (id) do nothing
        `, e.ID, e.UserID, salary, e.Active); err != nil {
			return fmt.Errorf("seed employee: %w", err)
		}
	}
	for _, e := range d.Expenses {
		amount, err := ledger.ToMinor(e.Amount)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
            insert into monthly_expenses (id, description, amount_minor, category, month, year, recurring, approved_by)
            values ($1,$2,$3,$4,$5,$6,$7,$8)
            on conflict (id) do nothing
        `, e.ID, e.Description, amount, string(e.Category), e.Period.Month, e.Period.Year, e.Recurring, e.ApprovedBy); err != nil {
			return fmt.Errorf("seed monthly expense: %w", err)
		}
	}
	return tx.Commit(ctx)
}
