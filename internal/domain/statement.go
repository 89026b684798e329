package domain

import (
	"errors"
	"fmt"
	"strings"
)

// StatementType selects the prompt template and the result schema.
type StatementType string

const (
	StatementTypeBank       StatementType = "bank"
	StatementTypeCreditCard StatementType = "credit_card"
)

// ErrUnsupportedStatementType is returned for anything other than bank or credit_card.
var ErrUnsupportedStatementType = errors.New("unsupported statement type")

// ParseStatementType parses a user supplied statement type.
func ParseStatementType(s string) (StatementType, error) {
	switch StatementType(strings.ToLower(strings.TrimSpace(s))) {
	case StatementTypeBank:
		return StatementTypeBank, nil
	case StatementTypeCreditCard:
		return StatementTypeCreditCard, nil
	default:
		return "", fmt.Errorf("%w: %q (want %q or %q)", ErrUnsupportedStatementType, s, StatementTypeBank, StatementTypeCreditCard)
	}
}

// Valid reports whether t is one of the known statement types.
func (t StatementType) Valid() bool {
	return t == StatementTypeBank || t == StatementTypeCreditCard
}

// StatementData is the model payload after schema validation.
// Bank statements fill the income/expense totals and StatementMonth,
// credit card bills fill TotalAmount and BillMonth.
type StatementData struct {
	Transactions []Transaction `json:"transactions"`

	TotalIncome    int64  `json:"total_income"`
	TotalExpense   int64  `json:"total_expense"` // negative as reported by the model
	NetBalance     int64  `json:"net_balance"`
	StatementMonth string `json:"statement_month,omitempty"`

	TotalAmount int64  `json:"total_amount"`
	BillMonth   string `json:"bill_month,omitempty"`
}

// Month returns the month the statement covers ("YYYY-MM"), whichever field carries it.
func (d StatementData) Month() string {
	if d.StatementMonth != "" {
		return d.StatementMonth
	}
	return d.BillMonth
}

// Insights holds the derived summary for one statement. Exactly one of
// Bank or CreditCard is set, matching Type.
type Insights struct {
	Type       StatementType `json:"type"`
	Bank       *BankInsights `json:"bank,omitempty"`
	CreditCard *CardInsights `json:"credit_card,omitempty"`
}

// BankInsights summarises a bank account statement.
type BankInsights struct {
	TotalIncome     int64    `json:"total_income"`
	TotalExpense    int64    `json:"total_expense"` // absolute value
	NetSavings      int64    `json:"net_savings"`
	SavingsRate     float64  `json:"savings_rate"` // percent, one decimal
	Recommendations []string `json:"recommendations"`
}

// CardInsights summarises a credit card bill.
type CardInsights struct {
	TotalSpending       int64           `json:"total_spending"`
	TopSpendingCategory string          `json:"top_spending_category"`
	PotentialSavings    float64         `json:"potential_savings"`
	CategoryBreakdown   []CategorySpend `json:"category_breakdown"`
}

// CategorySpend is one row of the credit card category breakdown.
type CategorySpend struct {
	Category   string  `json:"category"`
	Amount     int64   `json:"amount"`
	Percentage float64 `json:"percentage"` // share of total spending, one decimal
	Tip        string  `json:"tip"`
}

// AnalysisResult is what one successful analysis produces.
type AnalysisResult struct {
	StatementType StatementType `json:"statement_type"`
	BillData      StatementData `json:"bill_data"`
	Insights      Insights      `json:"insights"`
}
