package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/firmledger/internal/errs"
	"github.com/tinoosan/firmledger/internal/ledger"
	"github.com/tinoosan/firmledger/internal/service/account"
)

// seedNamespace makes dev seed ids stable across restarts so persistent
// backends skip rows they already have.
var seedNamespace = uuid.MustParse("6f1c2a4e-3b7d-4d0e-9a51-2f8e7c1b9d30")

func seedID(name string) uuid.UUID { return uuid.NewSHA1(seedNamespace, []byte(name)) }

type seedResult struct {
	Partners  []ledger.Partner
	Projects  []ledger.Project
	AccountID uuid.UUID
}

func devSeed(ctx context.Context, st store, accounts account.Service, currency string) (seedResult, error) {
	users := []ledger.User{
		{ID: seedID("user:ana"), FirstName: "Ana", LastName: "Ruiz", Email: "ana@example.com"},
		{ID: seedID("user:ben"), FirstName: "Ben", LastName: "Okafor", Email: "ben@example.com"},
		{ID: seedID("user:cleo"), FirstName: "Cleo", LastName: "Park", Email: "cleo@example.com"},
		{ID: seedID("user:dev"), FirstName: "Dev", LastName: "Shah", Email: "dev@example.com"},
	}
	partners := []ledger.Partner{
		{ID: seedID("partner:ana"), UserID: users[0].ID, SharePercentage: decimal.MustParse("60"), IsMainPartner: true, PartnershipType: "equity"},
		{ID: seedID("partner:ben"), UserID: users[1].ID, SharePercentage: decimal.MustParse("40"), IsMainPartner: true, PartnershipType: "equity"},
		{ID: seedID("partner:cleo"), UserID: users[2].ID, SharePercentage: decimal.MustParse("0"), PartnershipType: "associate"},
	}
	projects := []ledger.Project{
		{ID: seedID("project:atlas"), Name: "Atlas", ClientName: "Northwind", ManagedByPartnerID: &partners[0].ID, Status: "active"},
		{ID: seedID("project:beacon"), Name: "Beacon", ClientName: "Contoso", ManagedByPartnerID: &partners[1].ID, Status: "active"},
	}
	now := ledger.PeriodOf(time.Now())
	approver := users[0].FullName()
	d := ledger.Directory{
		Users:    users,
		Partners: partners,
		Projects: projects,
		Employees: []ledger.Employee{
			{ID: seedID("employee:dev"), UserID: users[3].ID, MonthlySalary: decimal.MustParse("4500"), Active: true},
		},
		Expenses: []ledger.MonthlyExpense{
			{ID: seedID("expense:rent:" + now.String()), Description: "Office rent", Amount: decimal.MustParse("1800"), Category: ledger.ExpenseOffice, Period: now, Recurring: true, ApprovedBy: &approver},
			{ID: seedID("expense:tools:" + now.String()), Description: "Design tools", Amount: decimal.MustParse("240"), Category: ledger.ExpenseTools, Period: now, Recurring: true},
		},
	}
	if err := st.Seed(ctx, d); err != nil {
		return seedResult{}, err
	}

	res := seedResult{Partners: partners, Projects: projects}
	const number = "DEV-OPERATING-001"
	acc, err := accounts.Create(ctx, account.CreateInput{
		HolderName:    "Firm Operating",
		BankName:      "Dev Bank",
		AccountNumber: number,
		Currency:      currency,
	})
	switch {
	case err == nil:
		res.AccountID = acc.ID
	case errors.Is(err, errs.ErrDuplicate):
		list, lerr := accounts.List(ctx, true)
		if lerr != nil {
			return seedResult{}, lerr
		}
		for _, a := range list {
			if a.AccountNumber == number {
				res.AccountID = a.ID
			}
		}
	default:
		return seedResult{}, err
	}
	return res, nil
}

// logDevSeed emits structured logs with useful IDs
func logDevSeed(l *slog.Logger, backend string, s seedResult) {
	ids := map[string]string{"operating_account_id": s.AccountID.String()}
	for _, p := range s.Partners {
		if p.IsMainPartner {
			ids["partner_"+p.ID.String()[:8]] = p.ID.String()
		}
	}
	for _, p := range s.Projects {
		ids["project_"+p.Name] = p.ID.String()
	}
	l.Info("DEV seed ("+backend+")", "ids", ids)
}

// printDevSeedBanner prints a simple banner to stdout for easy copy/paste of IDs
func printDevSeedBanner(s seedResult) {
	title := color.New(color.FgGreen, color.Bold)
	key := color.New(color.FgCyan)
	title.Println("==================== DEV SEED ====================")
	fmt.Printf("%s %s\n", key.Sprint("operating_account_id:"), s.AccountID)
	for _, p := range s.Partners {
		if !p.IsMainPartner {
			continue
		}
		fmt.Printf("%s %s (%s%%)\n", key.Sprint("main_partner_id:"), p.ID, p.SharePercentage)
	}
	for _, p := range s.Projects {
		fmt.Printf("%s %s (%s)\n", key.Sprint("project_id:"), p.ID, p.Name)
	}
	title.Println("==================================================")
}
