package mapping

import (
	"testing"

	"github.com/fieldmap/fieldmap/pkg/errors"
)

func TestEvalExpr(t *testing.T) {
	row := map[string]float64{"Rate": 2.5, "Miles": 100, "Fuel": 30}

	tests := []struct {
		expr string
		want float64
	}{
		{"[Rate] * [Miles]", 250},
		{"[Rate] * [Miles] + [Fuel]", 280},
		{"([Rate] + 0.5) * [Miles]", 300},
		{"-[Fuel]", -30},
		{"[Miles] / 4", 25},
		{"1 + 2 * 3", 7},
		{"10 - 2 - 3", 5},
		{"2.5", 2.5},
	}
	for _, tt := range tests {
		got, err := EvalExpr(tt.expr, row)
		if err != nil {
			t.Errorf("EvalExpr(%q) failed: %v", tt.expr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("EvalExpr(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestEvalExprMissingColumn(t *testing.T) {
	_, err := EvalExpr("[Rate] * [Miles]", map[string]float64{"Rate": 2})
	if !errors.IsNotFound(err) {
		t.Fatalf("Expected not-found error for missing column, got %v", err)
	}
}

func TestEvalExprDivisionByZero(t *testing.T) {
	_, err := EvalExpr("[Total] / [Count]", map[string]float64{"Total": 10, "Count": 0})
	if err == nil {
		t.Fatal("Expected division-by-zero error")
	}
}

func TestParseExprSyntaxErrors(t *testing.T) {
	bad := []string{
		"",
		"[Rate",
		"[]",
		"[Rate] +",
		"(1 + 2",
		"1 ** 2",
		"func(1)",
		"[Rate] 5",
	}
	for _, expr := range bad {
		if _, err := ParseExpr(expr); !errors.IsValidationError(err) {
			t.Errorf("ParseExpr(%q): expected validation error, got %v", expr, err)
		}
	}
}

func TestExprColumns(t *testing.T) {
	cols, err := ExpressionColumns("[Rate] * [Miles] + [Rate]")
	if err != nil {
		t.Fatalf("ExpressionColumns failed: %v", err)
	}
	if len(cols) != 2 || cols[0] != "Rate" || cols[1] != "Miles" {
		t.Errorf("Expected distinct columns [Rate Miles] in first-reference order, got %v", cols)
	}
}

func TestColumnRef(t *testing.T) {
	if got := ColumnRef("Total Miles"); got != "[Total Miles]" {
		t.Errorf("ColumnRef = %q", got)
	}
}
