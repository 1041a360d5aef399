package httpapi

import (
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/firmledger/internal/dictionary"
	"github.com/tinoosan/firmledger/internal/ledger"
	"github.com/tinoosan/firmledger/internal/service/account"
	"github.com/tinoosan/firmledger/internal/service/statement"
)

// Amounts travel as decimal strings with two fractional digits.

type postTransactionRequest struct {
	AccountID   string    `json:"account_id" validate:"required,uuid"`
	ProjectID   *string   `json:"project_id,omitempty" validate:"omitempty,uuid"`
	Amount      string    `json:"amount" validate:"required,numeric"`
	Type        string    `json:"type" validate:"required,oneof=income expense settlement"`
	Date        time.Time `json:"date"`
	Description string    `json:"description" validate:"max=500"`
	Reference   string    `json:"reference" validate:"max=100"`
}

type transactionResponse struct {
	ID          uuid.UUID              `json:"id"`
	AccountID   uuid.UUID              `json:"account_id"`
	ProjectID   *uuid.UUID             `json:"project_id,omitempty"`
	Amount      string                 `json:"amount"`
	Currency    string                 `json:"currency"`
	Type        ledger.TransactionType `json:"type"`
	Description string                 `json:"description"`
	Reference   string                 `json:"reference,omitempty"`
	Date        time.Time              `json:"date"`
	Processed   bool                   `json:"processed"`
	CreatedAt   time.Time              `json:"created_at"`
}

func toTransactionResponse(t ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		AccountID:   t.AccountID,
		ProjectID:   t.ProjectID,
		Amount:      ledger.FormatAmount(t.Amount.Decimal()),
		Currency:    t.Amount.Curr().Code(),
		Type:        t.Type,
		Description: t.Description,
		Reference:   t.Reference,
		Date:        t.Date,
		Processed:   t.Processed,
		CreatedAt:   t.CreatedAt,
	}
}

type postAccountRequest struct {
	HolderName     string     `json:"holder_name" validate:"required,max=200"`
	BankName       string     `json:"bank_name" validate:"required,max=200"`
	AccountNumber  string     `json:"account_number" validate:"required,max=34"`
	RoutingCode    string     `json:"routing_code" validate:"max=20"`
	Currency       string     `json:"currency" validate:"omitempty,len=3"`
	OpeningBalance string     `json:"opening_balance" validate:"omitempty,numeric"`
	OpeningDate    *time.Time `json:"opening_date,omitempty"`
}

type accountResponse struct {
	ID            uuid.UUID `json:"id"`
	HolderName    string    `json:"holder_name"`
	BankName      string    `json:"bank_name"`
	AccountNumber string    `json:"account_number"`
	RoutingCode   string    `json:"routing_code,omitempty"`
	Currency      string    `json:"currency"`
	Balance       string    `json:"balance"`
	Active        bool      `json:"active"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	return accountResponse{
		ID:            a.ID,
		HolderName:    a.HolderName,
		BankName:      a.BankName,
		AccountNumber: a.AccountNumber,
		RoutingCode:   a.RoutingCode,
		Currency:      a.Currency,
		Balance:       ledger.FormatAmount(a.Balance.Decimal()),
		Active:        a.Active,
		Version:       a.Version,
		CreatedAt:     a.CreatedAt,
	}
}

type balanceCheckResponse struct {
	AccountID  uuid.UUID `json:"account_id"`
	Cached     string    `json:"cached_balance"`
	Derived    string    `json:"derived_balance"`
	Consistent bool      `json:"consistent"`
}

func toBalanceCheckResponse(c account.BalanceCheck) balanceCheckResponse {
	return balanceCheckResponse{
		AccountID:  c.AccountID,
		Cached:     ledger.FormatAmount(c.Cached),
		Derived:    ledger.FormatAmount(c.Derived),
		Consistent: c.Consistent,
	}
}

type totalsResponse struct {
	Month     int    `json:"month"`
	Year      int    `json:"year"`
	Income    string `json:"income"`
	Expenses  string `json:"expenses"`
	Salaries  string `json:"salaries"`
	NetIncome string `json:"net_income"`
}

func toTotalsResponse(t ledger.PeriodTotals) totalsResponse {
	return totalsResponse{
		Month:     t.Period.Month,
		Year:      t.Period.Year,
		Income:    ledger.FormatAmount(t.Income),
		Expenses:  ledger.FormatAmount(t.Expenses),
		Salaries:  ledger.FormatAmount(t.Salaries),
		NetIncome: ledger.FormatAmount(t.NetIncome),
	}
}

type partnerIncomeResponse struct {
	PartnerID       uuid.UUID `json:"partner_id"`
	PartnerName     string    `json:"partner_name"`
	SharePercentage string    `json:"share_percentage"`
	ExpectedIncome  string    `json:"expected_income"`
	ActualIncome    string    `json:"actual_income"`
	Settlement      string    `json:"settlement_amount"`
	ProjectsManaged int       `json:"projects_managed"`
}

func toPartnerIncomeResponses(in []ledger.PartnerIncome) []partnerIncomeResponse {
	out := make([]partnerIncomeResponse, 0, len(in))
	for _, p := range in {
		out = append(out, partnerIncomeResponse{
			PartnerID:       p.PartnerID,
			PartnerName:     p.PartnerName,
			SharePercentage: p.Share.String(),
			ExpectedIncome:  ledger.FormatAmount(p.Expected),
			ActualIncome:    ledger.FormatAmount(p.Actual),
			Settlement:      ledger.FormatAmount(p.Settlement),
			ProjectsManaged: p.ProjectsManaged,
		})
	}
	return out
}

type monthlyExpenseResponse struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Category    string    `json:"category"`
	Label       string    `json:"category_label"`
	Recurring   bool      `json:"recurring"`
	Approved    bool      `json:"approved"`
	ApprovedBy  *string   `json:"approved_by,omitempty"`
}

type reportResponse struct {
	Totals   totalsResponse           `json:"totals"`
	Partners []partnerIncomeResponse  `json:"partners"`
	Expenses []monthlyExpenseResponse `json:"monthly_expenses"`
}

func toReportResponse(r statement.Report) reportResponse {
	expenses := make([]monthlyExpenseResponse, 0, len(r.Expenses))
	for _, e := range r.Expenses {
		expenses = append(expenses, monthlyExpenseResponse{
			ID:          e.ID,
			Description: e.Description,
			Amount:      ledger.FormatAmount(e.Amount),
			Category:    string(e.Category),
			Label:       dictionary.ExpenseCategoryLabel(e.Category),
			Recurring:   e.Recurring,
			Approved:    e.Approved(),
			ApprovedBy:  e.ApprovedBy,
		})
	}
	return reportResponse{
		Totals:   toTotalsResponse(r.Totals),
		Partners: toPartnerIncomeResponses(r.Partners),
		Expenses: expenses,
	}
}

type settlementResponse struct {
	ID          uuid.UUID  `json:"id"`
	PartnerID   uuid.UUID  `json:"partner_id"`
	Month       int        `json:"month"`
	Year        int        `json:"year"`
	Expected    string     `json:"expected_amount"`
	Actual      string     `json:"actual_amount"`
	Amount      string     `json:"settlement_amount"`
	Status      string     `json:"status"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toSettlementResponses(in []ledger.Settlement) []settlementResponse {
	out := make([]settlementResponse, 0, len(in))
	for _, st := range in {
		out = append(out, settlementResponse{
			ID:          st.ID,
			PartnerID:   st.PartnerID,
			Month:       st.Period.Month,
			Year:        st.Period.Year,
			Expected:    ledger.FormatAmount(st.Expected),
			Actual:      ledger.FormatAmount(st.Actual),
			Amount:      ledger.FormatAmount(st.Amount),
			Status:      string(st.Status),
			ProcessedAt: st.ProcessedAt,
			Notes:       st.Notes,
			CreatedAt:   st.CreatedAt,
		})
	}
	return out
}

type processSettlementsResponse struct {
	Month   int                  `json:"month"`
	Year    int                  `json:"year"`
	Created []settlementResponse `json:"created"`
	Skipped int                  `json:"skipped"`
}
