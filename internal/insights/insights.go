// Package insights turns normalised statement data into summary metrics.
package insights

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/dvloznov/statement-insights/internal/domain"
)

const (
	// HealthySavingsRate is the savings rate (percent) at or above which a month is reported as healthy.
	HealthySavingsRate = 20.0

	// SavingsFactor is the share of the top categories assumed to be avoidable.
	SavingsFactor = 0.3

	// TopCategoryCount is how many leading categories feed the potential savings estimate.
	TopCategoryCount = 3

	// CategoryTip is attached to every credit card breakdown row.
	CategoryTip = "Tip: review spending in this category"
)

// Derive computes insights for a statement. It is pure and deterministic.
func Derive(data domain.StatementData, statementType domain.StatementType) domain.Insights {
	if statementType == domain.StatementTypeBank {
		bank := deriveBank(data)
		return domain.Insights{Type: domain.StatementTypeBank, Bank: &bank}
	}
	card := deriveCard(data)
	return domain.Insights{Type: domain.StatementTypeCreditCard, CreditCard: &card}
}

func deriveBank(data domain.StatementData) domain.BankInsights {
	income := data.TotalIncome
	expense := abs(data.TotalExpense)
	net := income - expense

	exact := 0.0
	if income > 0 {
		exact = float64(net) / float64(income) * 100
	}
	rate := round1(exact)

	return domain.BankInsights{
		TotalIncome:     income,
		TotalExpense:    expense,
		NetSavings:      net,
		SavingsRate:     rate,
		Recommendations: bankRecommendations(exact, net),
	}
}

// bankRecommendations judges the unrounded rate; the text shows it rounded.
func bankRecommendations(rate float64, net int64) []string {
	verdict := "(room for improvement)"
	if rate >= HealthySavingsRate {
		verdict = "(healthy)"
	}
	return []string{
		fmt.Sprintf("Savings rate: %.1f%% %s", round1(rate), verdict),
		fmt.Sprintf("Monthly net savings: %s", FormatYen(net)),
	}
}

type categoryTotal struct {
	label  string
	amount int64
}

func deriveCard(data domain.StatementData) domain.CardInsights {
	totals := groupByCategory(data.Transactions)

	// Ties keep first-encounter order.
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].amount > totals[j].amount
	})

	top := domain.CategoryUnknown
	if len(totals) > 0 {
		top = totals[0].label
	}

	var topSum, categorySum int64
	for i, c := range totals {
		if i < TopCategoryCount {
			topSum += c.amount
		}
		categorySum += c.amount
	}

	spending := data.TotalAmount
	if spending == 0 {
		spending = categorySum
	}

	breakdown := make([]domain.CategorySpend, 0, len(totals))
	for _, c := range totals {
		breakdown = append(breakdown, domain.CategorySpend{
			Category:   c.label,
			Amount:     c.amount,
			Percentage: Percentage(c.amount, spending),
			Tip:        CategoryTip,
		})
	}

	return domain.CardInsights{
		TotalSpending:       spending,
		TopSpendingCategory: top,
		PotentialSavings:    SavingsFactor * float64(topSum),
		CategoryBreakdown:   breakdown,
	}
}

// groupByCategory sums amounts per category label in first-encounter order.
func groupByCategory(txs []domain.Transaction) []categoryTotal {
	index := make(map[string]int)
	var totals []categoryTotal
	for _, tx := range txs {
		label := strings.TrimSpace(tx.Category)
		if label == "" {
			label = domain.CategoryOther
		}
		i, ok := index[label]
		if !ok {
			i = len(totals)
			index[label] = i
			totals = append(totals, categoryTotal{label: label})
		}
		totals[i].amount += tx.Amount
	}
	return totals
}

// Percentage returns part/total*100 rounded to one decimal, or 0 when total is 0.
func Percentage(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}

// FormatYen renders a whole-yen amount with thousands separators, e.g. "¥1,234,567".
func FormatYen(amount int64) string {
	if amount < 0 {
		return "-¥" + humanize.Comma(-amount)
	}
	return "¥" + humanize.Comma(amount)
}

// round1 rounds half up to one decimal place.
func round1(x float64) float64 {
	return math.Floor(x*10+0.5) / 10
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
