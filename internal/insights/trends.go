package insights

import (
	"errors"

	"github.com/dvloznov/statement-insights/internal/domain"
)

const (
	// MaxTrendPoints is the number of most recent bank statements shown in a trend.
	MaxTrendPoints = 6

	// MinTrendPoints is the smallest number of bank statements that makes a trend.
	MinTrendPoints = 2
)

// ErrInsufficientData is returned by BuildTrend when there are fewer than MinTrendPoints bank entries.
var ErrInsufficientData = errors.New("insufficient data for a trend")

// Trend holds parallel series in chronological (oldest first) order.
type Trend struct {
	Labels     []string `json:"labels"`
	Income     []int64  `json:"income"`
	Expense    []int64  `json:"expense"`
	NetSavings []int64  `json:"net_savings"`

	// Available is the number of bank entries in the history, including those beyond MaxTrendPoints.
	Available int `json:"available"`
}

// BuildTrend prepares chart series from a newest-first history.
// Only bank entries are used; their stored bank insights are the data source.
func BuildTrend(history []domain.HistoryEntry) (Trend, error) {
	var bank []domain.HistoryEntry
	for _, e := range history {
		if e.Type == domain.StatementTypeBank {
			bank = append(bank, e)
		}
	}

	trend := Trend{Available: len(bank)}
	if len(bank) < MinTrendPoints {
		return trend, ErrInsufficientData
	}
	if len(bank) > MaxTrendPoints {
		bank = bank[:MaxTrendPoints]
	}

	for i := len(bank) - 1; i >= 0; i-- {
		e := bank[i]
		b := bankInsightsOf(e)
		trend.Labels = append(trend.Labels, monthLabel(e.Month))
		trend.Income = append(trend.Income, b.TotalIncome)
		trend.Expense = append(trend.Expense, b.TotalExpense)
		trend.NetSavings = append(trend.NetSavings, b.NetSavings)
	}
	return trend, nil
}

// bankInsightsOf returns the stored bank insights, recomputing them for
// entries persisted without an insights block.
func bankInsightsOf(e domain.HistoryEntry) domain.BankInsights {
	if e.Data.Insights.Bank != nil {
		return *e.Data.Insights.Bank
	}
	return deriveBank(e.Data.BillData)
}

// monthLabel keeps the last two characters of a "YYYY-MM" month.
func monthLabel(month string) string {
	r := []rune(month)
	if len(r) <= 2 {
		return month
	}
	return string(r[len(r)-2:])
}
