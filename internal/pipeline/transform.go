package pipeline

import (
	"context"
	"math"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/logger"
)

// TransformStatementData converts the decoded model payload into StatementData.
// Every field is optional: missing or mistyped values fall back to zero values,
// and transaction entries that are not objects are skipped.
func TransformStatementData(ctx context.Context, payload map[string]interface{}, t domain.StatementType) domain.StatementData {
	log := logger.FromContext(ctx)
	validator := NewCategoryValidator(domain.CategoriesFor(t))

	data := domain.StatementData{
		Transactions: []domain.Transaction{},
	}

	txAny, _ := payload["transactions"].([]interface{})
	for i, item := range txAny {
		obj, ok := item.(map[string]interface{})
		if !ok {
			log.Warn().Int("index", i).Str("type", typeName(item)).Msg("Skipping transaction that is not an object")
			continue
		}

		tx := domain.Transaction{
			Merchant: getString(obj, "merchant"),
			Amount:   getAmount(obj, "amount"),
			Date:     getDate(obj, "date"),
			Category: validator.Normalize(getString(obj, "category")),
		}
		if t == domain.StatementTypeBank {
			tx.Type = getTransactionType(obj, tx.Amount)
		}
		data.Transactions = append(data.Transactions, tx)
	}

	if t == domain.StatementTypeBank {
		data.TotalIncome = getAmount(payload, "total_income")
		data.TotalExpense = getAmount(payload, "total_expense")
		data.NetBalance = getAmount(payload, "net_balance")
		data.StatementMonth = getString(payload, "statement_month")
	} else {
		data.TotalAmount = getAmount(payload, "total_amount")
		data.BillMonth = getString(payload, "bill_month")
	}

	log.Debug().
		Int("transactions", len(data.Transactions)).
		Int("skipped", len(txAny)-len(data.Transactions)).
		Str("month", data.Month()).
		Msg("Transformed model output")

	return data
}

func getString(m map[string]interface{}, key string) string {
	switch val := m[key].(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

// getAmount reads a whole-yen amount. Floats are rounded, numeric strings
// such as "1,200" or "¥1,200" are accepted, anything else is 0.
func getAmount(m map[string]interface{}, key string) int64 {
	switch val := m[key].(type) {
	case float64:
		return roundAmount(val)
	case string:
		cleaned := strings.NewReplacer(",", "", "¥", "", "円", "", " ", "").Replace(val)
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0
		}
		return roundAmount(f)
	default:
		return 0
	}
}

// roundAmount rounds f to whole yen. NaN, infinities and values outside the
// int64 range are 0.
func roundAmount(f float64) int64 {
	r := math.Round(f)
	if math.IsNaN(r) || r < math.MinInt64 || r >= math.MaxInt64 {
		return 0
	}
	return int64(r)
}

// getDate parses "YYYY-MM-DD"; anything else is nil.
func getDate(m map[string]interface{}, key string) *civil.Date {
	s, ok := m[key].(string)
	if !ok {
		return nil
	}
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &d
}

// getTransactionType reads the income/expense tag, inferring it from the
// amount sign when the model omitted it or used another label.
func getTransactionType(m map[string]interface{}, amount int64) domain.TransactionType {
	switch domain.TransactionType(strings.ToLower(getString(m, "type"))) {
	case domain.TransactionTypeIncome:
		return domain.TransactionTypeIncome
	case domain.TransactionTypeExpense:
		return domain.TransactionTypeExpense
	}
	switch {
	case amount > 0:
		return domain.TransactionTypeIncome
	case amount < 0:
		return domain.TransactionTypeExpense
	default:
		return ""
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	case []interface{}:
		return "array"
	default:
		return "unknown"
	}
}
