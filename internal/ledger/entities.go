package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"
)

// UnknownPartnerName is reported for partners whose user record is missing.
const UnknownPartnerName = "Unknown Partner"

// Account is a bank account whose balance is a cached derivation of the
// transactions posted against it.
type Account struct {
	ID            uuid.UUID
	HolderName    string
	BankName      string
	AccountNumber string
	// RoutingCode carries the IFSC/sort/routing code of the branch.
	RoutingCode string
	Currency    string
	Balance     money.Amount
	// Active is false once the account is soft-deleted. Inactive accounts still accept postings.
	Active bool
	// Version is the optimistic concurrency token, bumped on every save.
	Version   int64
	CreatedAt time.Time
}

// Transaction is an append-only posting against an account.
type Transaction struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	// ProjectID attributes income to a project (and through it to a partner).
	ProjectID   *uuid.UUID
	Amount      money.Amount
	Type        TransactionType
	Description string
	Reference   string
	Date        time.Time
	Processed   bool
	CreatedAt   time.Time
}

// User is the directory snapshot of a person.
type User struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Partner is a firm partner entitled to a share of monthly net income.
type Partner struct {
	ID     uuid.UUID
	UserID uuid.UUID
	// User is nil when the linked user record no longer exists.
	User *User
	// SharePercentage is in [0, 100]; zero excludes the partner from income sharing.
	SharePercentage decimal.Decimal
	IsMainPartner   bool
	PartnershipType string
}

// DisplayName returns the partner's full name or UnknownPartnerName.
func (p Partner) DisplayName() string {
	if p.User == nil {
		return UnknownPartnerName
	}
	if n := p.User.FullName(); n != "" {
		return n
	}
	return UnknownPartnerName
}

type Project struct {
	ID                 uuid.UUID
	Name               string
	ClientName         string
	ManagedByPartnerID *uuid.UUID
	Status             string
}

type Employee struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	MonthlySalary decimal.Decimal
	Active        bool
}

// MonthlyExpense is an approved-or-pending overhead line. It is listed in
// reports but never summed into period totals.
type MonthlyExpense struct {
	ID          uuid.UUID
	Description string
	Amount      decimal.Decimal
	Category    ExpenseCategory
	Period      Period
	Recurring   bool
	ApprovedBy  *string
}

// Approved reports whether someone signed off the expense.
func (e MonthlyExpense) Approved() bool {
	return e.ApprovedBy != nil && strings.TrimSpace(*e.ApprovedBy) != ""
}

// Settlement records what a partner was owed against what their projects earned
// in one period. At most one exists per (PartnerID, Period).
type Settlement struct {
	ID        uuid.UUID
	PartnerID uuid.UUID
	Period    Period
	Expected  decimal.Decimal
	Actual    decimal.Decimal
	// Amount is Actual - Expected.
	Amount      decimal.Decimal
	Status      SettlementStatus
	ProcessedAt *time.Time
	Notes       string
	CreatedAt   time.Time
}

// PeriodTotals are the aggregated figures of one calendar month.
type PeriodTotals struct {
	Period    Period
	Income    decimal.Decimal
	Expenses  decimal.Decimal
	Salaries  decimal.Decimal
	NetIncome decimal.Decimal
}

// PartnerIncome is the computed income picture of one main partner.
type PartnerIncome struct {
	PartnerID       uuid.UUID
	PartnerName     string
	Share           decimal.Decimal
	Expected        decimal.Decimal
	Actual          decimal.Decimal
	Settlement      decimal.Decimal
	ProjectsManaged int
}

// Directory bundles the read-only inputs owned by other subsystems. Stores
// accept it for seeding local environments and tests.
type Directory struct {
	Users     []User
	Partners  []Partner
	Projects  []Project
	Employees []Employee
	Expenses  []MonthlyExpense
}
