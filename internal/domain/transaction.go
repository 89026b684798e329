package domain

import (
	"cloud.google.com/go/civil"
)

// TransactionType tags a bank statement line as money in or money out.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Transaction represents one line extracted by the model.
// Amounts are whole yen; bank statements use the sign for direction
// (positive = income, negative = expense), credit card lines are positive.
type Transaction struct {
	Merchant string          `json:"merchant"`
	Amount   int64           `json:"amount"`
	Date     *civil.Date     `json:"date,omitempty"` // nil when absent or not YYYY-MM-DD
	Category string          `json:"category"`
	Type     TransactionType `json:"type,omitempty"` // bank statements only
}

// Category labels the prompts ask the model to choose from.
const (
	CategorySalary         = "salary"
	CategoryDining         = "dining"
	CategoryShopping       = "shopping"
	CategoryEntertainment  = "entertainment"
	CategoryTransport      = "transport"
	CategorySubscriptions  = "subscriptions"
	CategoryOnlineShopping = "online_shopping"
	CategoryCafe           = "cafe"
	CategoryFitness        = "fitness"
	CategoryBeauty         = "beauty"
	CategoryRent           = "rent"
	CategoryUtilities      = "utilities"

	// CategoryOther is used for transactions without a category.
	CategoryOther = "other"

	// CategoryUnknown is reported as the top category when there is nothing to rank.
	CategoryUnknown = "unknown"
)

// BankCategories is the label set offered for bank statements.
var BankCategories = []string{
	CategorySalary, CategoryDining, CategoryShopping, CategoryEntertainment,
	CategoryTransport, CategorySubscriptions, CategoryOnlineShopping, CategoryCafe,
	CategoryFitness, CategoryBeauty, CategoryRent, CategoryUtilities, CategoryOther,
}

// CardCategories is the label set offered for credit card statements.
var CardCategories = []string{
	CategoryDining, CategoryShopping, CategoryEntertainment, CategoryTransport,
	CategorySubscriptions, CategoryOnlineShopping, CategoryCafe, CategoryFitness,
	CategoryBeauty, CategoryOther,
}

// CategoriesFor returns the label set offered for the given statement type.
func CategoriesFor(t StatementType) []string {
	if t == StatementTypeBank {
		return BankCategories
	}
	return CardCategories
}
