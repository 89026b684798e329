package insights

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/dvloznov/statement-insights/internal/domain"
)

// bankEntry builds a bank history entry for month 2024-MM with income/expense scaled by month.
func bankEntry(month int) domain.HistoryEntry {
	data := domain.StatementData{
		TotalIncome:    int64(month) * 1000,
		TotalExpense:   -int64(month) * 100,
		StatementMonth: fmt.Sprintf("2024-%02d", month),
	}
	return domain.HistoryEntry{
		ID:    fmt.Sprint(month),
		Type:  domain.StatementTypeBank,
		Month: data.StatementMonth,
		Data: domain.AnalysisResult{
			StatementType: domain.StatementTypeBank,
			BillData:      data,
			Insights:      Derive(data, domain.StatementTypeBank),
		},
	}
}

func cardEntry(month int) domain.HistoryEntry {
	return domain.HistoryEntry{
		ID:    fmt.Sprintf("card-%d", month),
		Type:  domain.StatementTypeCreditCard,
		Month: fmt.Sprintf("2024-%02d", month),
	}
}

// newestFirst returns bank entries for the given months, newest month first.
func newestFirst(months ...int) []domain.HistoryEntry {
	var out []domain.HistoryEntry
	for i := len(months) - 1; i >= 0; i-- {
		out = append(out, bankEntry(months[i]))
	}
	return out
}

func TestBuildTrend_InsufficientData(t *testing.T) {
	tests := []struct {
		name    string
		history []domain.HistoryEntry
		want    int
	}{
		{name: "empty", history: nil, want: 0},
		{name: "single bank entry", history: newestFirst(1), want: 1},
		{name: "card entries do not count", history: []domain.HistoryEntry{cardEntry(2), bankEntry(1), cardEntry(1)}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trend, err := BuildTrend(tt.history)
			if !errors.Is(err, ErrInsufficientData) {
				t.Fatalf("BuildTrend() error = %v, want ErrInsufficientData", err)
			}
			if trend.Available != tt.want {
				t.Errorf("Available = %d, want %d", trend.Available, tt.want)
			}
		})
	}
}

func TestBuildTrend_ChronologicalOrder(t *testing.T) {
	history := newestFirst(3, 4, 5)
	history = append([]domain.HistoryEntry{cardEntry(6)}, history...)

	trend, err := BuildTrend(history)
	if err != nil {
		t.Fatalf("BuildTrend() error = %v", err)
	}

	if want := []string{"03", "04", "05"}; !reflect.DeepEqual(trend.Labels, want) {
		t.Errorf("Labels = %v, want %v", trend.Labels, want)
	}
	if want := []int64{3000, 4000, 5000}; !reflect.DeepEqual(trend.Income, want) {
		t.Errorf("Income = %v, want %v", trend.Income, want)
	}
	if want := []int64{300, 400, 500}; !reflect.DeepEqual(trend.Expense, want) {
		t.Errorf("Expense = %v, want %v", trend.Expense, want)
	}
	if want := []int64{2700, 3600, 4500}; !reflect.DeepEqual(trend.NetSavings, want) {
		t.Errorf("NetSavings = %v, want %v", trend.NetSavings, want)
	}
}

func TestBuildTrend_KeepsMostRecentSix(t *testing.T) {
	trend, err := BuildTrend(newestFirst(1, 2, 3, 4, 5, 6, 7, 8))
	if err != nil {
		t.Fatalf("BuildTrend() error = %v", err)
	}

	if want := []string{"03", "04", "05", "06", "07", "08"}; !reflect.DeepEqual(trend.Labels, want) {
		t.Errorf("Labels = %v, want %v", trend.Labels, want)
	}
	if trend.Available != 8 {
		t.Errorf("Available = %d, want 8", trend.Available)
	}
	if len(trend.Income) != MaxTrendPoints || len(trend.Expense) != MaxTrendPoints || len(trend.NetSavings) != MaxTrendPoints {
		t.Errorf("series lengths = %d/%d/%d, want %d", len(trend.Income), len(trend.Expense), len(trend.NetSavings), MaxTrendPoints)
	}
}

func TestBuildTrend_RecomputesMissingInsights(t *testing.T) {
	a, b := bankEntry(1), bankEntry(2)
	a.Data.Insights = domain.Insights{}

	trend, err := BuildTrend([]domain.HistoryEntry{b, a})
	if err != nil {
		t.Fatalf("BuildTrend() error = %v", err)
	}
	if trend.Income[0] != 1000 || trend.Expense[0] != 100 {
		t.Errorf("recomputed point = %d/%d, want 1000/100", trend.Income[0], trend.Expense[0])
	}
}

func TestMonthLabel(t *testing.T) {
	tests := map[string]string{
		"2024-05": "05",
		"12":      "12",
		"5":       "5",
		"":        "",
	}
	for in, want := range tests {
		if got := monthLabel(in); got != want {
			t.Errorf("monthLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
