package pipeline

import (
	"context"
	"math"
	"testing"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/statement-insights/internal/domain"
)

func TestTransformStatementData_Bank(t *testing.T) {
	payload, err := DecodeModelJSON(`{
		"transactions": [
			{"merchant": "ACME Corp Salary", "amount": 300000, "date": "2024-05-25", "type": "income", "category": "Salary"},
			{"merchant": "Lawson", "amount": -580.4, "date": "2024-05-03", "type": "expense", "category": "dining"},
			{"merchant": "Card payment", "amount": "-12,000", "date": "05/10", "category": "utility bills"},
			"garbage line",
			{"merchant": "Refund", "amount": 1500}
		],
		"total_income": 301500,
		"total_expense": -12580,
		"net_balance": 288920,
		"statement_month": "2024-05"
	}`)
	if err != nil {
		t.Fatalf("DecodeModelJSON failed: %v", err)
	}

	data := TransformStatementData(context.Background(), payload, domain.StatementTypeBank)

	if len(data.Transactions) != 4 {
		t.Fatalf("got %d transactions, want 4 (non-object skipped)", len(data.Transactions))
	}
	if data.TotalIncome != 301500 || data.TotalExpense != -12580 || data.NetBalance != 288920 {
		t.Errorf("totals = %d/%d/%d", data.TotalIncome, data.TotalExpense, data.NetBalance)
	}
	if data.Month() != "2024-05" {
		t.Errorf("Month() = %q", data.Month())
	}

	salary := data.Transactions[0]
	wantDate := civil.Date{Year: 2024, Month: 5, Day: 25}
	if salary.Date == nil || *salary.Date != wantDate {
		t.Errorf("salary date = %v, want %v", salary.Date, wantDate)
	}
	if salary.Category != domain.CategorySalary || salary.Type != domain.TransactionTypeIncome {
		t.Errorf("salary = %+v", salary)
	}

	if got := data.Transactions[1].Amount; got != -580 {
		t.Errorf("rounded amount = %d, want -580", got)
	}

	payment := data.Transactions[2]
	if payment.Amount != -12000 {
		t.Errorf("string amount = %d, want -12000", payment.Amount)
	}
	if payment.Date != nil {
		t.Errorf("unparseable date = %v, want nil", payment.Date)
	}
	if payment.Type != domain.TransactionTypeExpense {
		t.Errorf("inferred type = %q, want expense", payment.Type)
	}
	if payment.Category != "utility bills" {
		t.Errorf("unknown category = %q, want verbatim", payment.Category)
	}

	refund := data.Transactions[3]
	if refund.Category != "" || refund.Date != nil || refund.Type != domain.TransactionTypeIncome {
		t.Errorf("refund = %+v", refund)
	}
}

func TestTransformStatementData_CreditCard(t *testing.T) {
	payload := map[string]interface{}{
		"transactions": []interface{}{
			map[string]interface{}{"merchant": "Starbucks", "amount": 650.0, "date": "2024-06-02", "category": "Cafe", "type": "expense"},
			map[string]interface{}{"merchant": "Netflix", "amount": 1490.0, "category": "subscription"},
		},
		"total_amount": 2140.0,
		"bill_month":   "2024-06",
		"total_income": 99.0,
	}

	data := TransformStatementData(context.Background(), payload, domain.StatementTypeCreditCard)

	if data.TotalAmount != 2140 || data.BillMonth != "2024-06" {
		t.Errorf("card totals = %d/%q", data.TotalAmount, data.BillMonth)
	}
	if data.TotalIncome != 0 || data.StatementMonth != "" {
		t.Errorf("bank fields should stay empty for card bills: %+v", data)
	}
	if data.Transactions[0].Category != domain.CategoryCafe || data.Transactions[0].Type != "" {
		t.Errorf("first tx = %+v", data.Transactions[0])
	}
	if data.Transactions[1].Category != domain.CategorySubscriptions {
		t.Errorf("snapped category = %q", data.Transactions[1].Category)
	}
}

func TestTransformStatementData_MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]interface{}
	}{
		{name: "empty object", payload: map[string]interface{}{}},
		{name: "transactions not a list", payload: map[string]interface{}{"transactions": "none"}},
		{name: "totals mistyped", payload: map[string]interface{}{"total_amount": true, "bill_month": 5.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := TransformStatementData(context.Background(), tt.payload, domain.StatementTypeCreditCard)
			if data.Transactions == nil || len(data.Transactions) != 0 {
				t.Errorf("Transactions = %v, want empty non-nil", data.Transactions)
			}
			if data.TotalAmount != 0 {
				t.Errorf("TotalAmount = %d, want 0", data.TotalAmount)
			}
		})
	}
}

func TestGetAmount(t *testing.T) {
	tests := []struct {
		value interface{}
		want  int64
	}{
		{1200.0, 1200},
		{1200.5, 1201},
		{-0.4, 0},
		{"¥1,200", 1200},
		{"3,000円", 3000},
		{"abc", 0},
		{nil, 0},
		{true, 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{"NaN", 0},
		{"-Inf", 0},
		{1e19, 0},
		{-1e19, 0},
		{"99999999999999999999", 0},
		{9e15, 9000000000000000},
		{-9e15, -9000000000000000},
	}
	for _, tt := range tests {
		if got := getAmount(map[string]interface{}{"amount": tt.value}, "amount"); got != tt.want {
			t.Errorf("getAmount(%v) = %d, want %d", tt.value, got, tt.want)
		}
	}
}
