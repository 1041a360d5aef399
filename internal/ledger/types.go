package ledger

import (
	"fmt"
	"strings"
)

// TransactionType is the tagged kind of a posting.
type TransactionType uint8

const (
	TransactionIncome TransactionType = iota + 1
	TransactionExpense
	TransactionSettlement
)

var transactionTypeNames = [...]string{
	TransactionIncome:     "income",
	TransactionExpense:    "expense",
	TransactionSettlement: "settlement",
}

// transactionSigns holds the effect of each type on an account balance.
var transactionSigns = [...]int{
	TransactionIncome:     1,
	TransactionExpense:    -1,
	TransactionSettlement: -1,
}

// TransactionTypes lists every valid type in declaration order.
func TransactionTypes() []TransactionType {
	return []TransactionType{TransactionIncome, TransactionExpense, TransactionSettlement}
}

func (t TransactionType) Valid() bool {
	return t >= TransactionIncome && t <= TransactionSettlement
}

// Sign returns +1 or -1 for valid types and 0 otherwise.
func (t TransactionType) Sign() int {
	if !t.Valid() {
		return 0
	}
	return transactionSigns[t]
}

func (t TransactionType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("transaction_type(%d)", uint8(t))
	}
	return transactionTypeNames[t]
}

// ParseTransactionType accepts the lowercase names (case-insensitive).
func ParseTransactionType(s string) (TransactionType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range TransactionTypes() {
		if transactionTypeNames[t] == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown transaction type %q", s)
}

func (t TransactionType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid transaction type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *TransactionType) UnmarshalText(b []byte) error {
	v, err := ParseTransactionType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// SettlementStatus tracks the payout lifecycle of a settlement.
type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "pending"
	SettlementCompleted SettlementStatus = "completed"
	SettlementFailed    SettlementStatus = "failed"
)

func (s SettlementStatus) Valid() bool {
	switch s {
	case SettlementPending, SettlementCompleted, SettlementFailed:
		return true
	}
	return false
}

// ParseSettlementStatus rejects anything but the three known statuses.
func ParseSettlementStatus(s string) (SettlementStatus, error) {
	st := SettlementStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown settlement status %q", s)
	}
	return st, nil
}

// ExpenseCategory classifies monthly overheads.
type ExpenseCategory string

const (
	ExpenseOffice    ExpenseCategory = "office"
	ExpenseTools     ExpenseCategory = "tools"
	ExpenseMarketing ExpenseCategory = "marketing"
	ExpenseTravel    ExpenseCategory = "travel"
	ExpenseUtilities ExpenseCategory = "utilities"
	ExpenseOther     ExpenseCategory = "other"
)
