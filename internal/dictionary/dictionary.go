// Package dictionary holds the curated labels clients use to render ledger codes.
package dictionary

import "github.com/tinoosan/firmledger/internal/ledger"

type Entry struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

var expenseCategories = []Entry{
	{Code: string(ledger.ExpenseOffice), Label: "Office"},
	{Code: string(ledger.ExpenseTools), Label: "Tools & Software"},
	{Code: string(ledger.ExpenseMarketing), Label: "Marketing"},
	{Code: string(ledger.ExpenseTravel), Label: "Travel"},
	{Code: string(ledger.ExpenseUtilities), Label: "Utilities"},
	{Code: string(ledger.ExpenseOther), Label: "Other"},
}

var transactionTypes = map[ledger.TransactionType]string{
	ledger.TransactionIncome:     "Income",
	ledger.TransactionExpense:    "Expense",
	ledger.TransactionSettlement: "Partner Settlement",
}

// ExpenseCategories returns the known categories in display order.
func ExpenseCategories() []Entry {
	out := make([]Entry, len(expenseCategories))
	copy(out, expenseCategories)
	return out
}

// ExpenseCategoryLabel returns the label for c, or the raw code when unknown.
func ExpenseCategoryLabel(c ledger.ExpenseCategory) string {
	for _, e := range expenseCategories {
		if e.Code == string(c) {
			return e.Label
		}
	}
	return string(c)
}

// TransactionTypes returns every transaction type with its label.
func TransactionTypes() []Entry {
	out := make([]Entry, 0, len(transactionTypes))
	for _, t := range ledger.TransactionTypes() {
		out = append(out, Entry{Code: t.String(), Label: transactionTypes[t]})
	}
	return out
}
