package tool

import (
	"context"
	"reflect"
	"testing"
)

// Every mock tool must yield a byte-identical result for identical
// parameters, date fields included — the whole map is compared, not a
// cherry-picked key.
func TestMockTools_FullyDeterministic(t *testing.T) {
	invocations := []struct {
		tool   Tool
		params map[string]any
	}{
		{NewMockCurrentPriceTool(), map[string]any{"ticker": "AAPL"}},
		{NewMockHistoricalPricesTool(), map[string]any{"ticker": "AAPL", "days": float64(7)}},
		{NewMockFinancialStatementsTool(), map[string]any{"ticker": "MSFT"}},
		{NewMockKeyMetricsTool(), map[string]any{"ticker": "AMZN"}},
		{NewMockAnalystRecommendationsTool(), map[string]any{"ticker": "NVDA"}},
		{NewMockNewsSearchTool(), map[string]any{"query": "Apple", "max_results": float64(3)}},
		{NewMockMacroIndicatorTool(), map[string]any{"series": "cpi"}},
	}

	for _, inv := range invocations {
		out1, err := inv.tool.Invoke(context.Background(), inv.params)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", inv.tool.Name(), err)
		}
		out2, err := inv.tool.Invoke(context.Background(), inv.params)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", inv.tool.Name(), err)
		}
		if !reflect.DeepEqual(out1, out2) {
			t.Errorf("%s: repeated invocation differs:\n%v\n%v", inv.tool.Name(), out1, out2)
		}
	}
}

func TestMockCurrentPriceTool_Name(t *testing.T) {
	tool := NewMockCurrentPriceTool()
	if tool.Name() != "get_current_price" {
		t.Fatalf("Name() = %q, want get_current_price", tool.Name())
	}
}

func TestMockCurrentPriceTool_MissingTicker(t *testing.T) {
	tool := NewMockCurrentPriceTool()
	if _, err := tool.Invoke(context.Background(), map[string]any{}); err == nil {
		t.Error("expected an error when ticker is missing")
	}
}

func TestMockCurrentPriceTool_VariesByTicker(t *testing.T) {
	tool := NewMockCurrentPriceTool()
	aapl, _ := tool.Invoke(context.Background(), map[string]any{"ticker": "AAPL"})
	msft, _ := tool.Invoke(context.Background(), map[string]any{"ticker": "MSFT"})
	if aapl.(map[string]any)["price"] == msft.(map[string]any)["price"] {
		t.Error("distinct tickers should not collide to the same mock price")
	}
}

func TestMockHistoricalPricesTool_RespectsDaysParameter(t *testing.T) {
	tool := NewMockHistoricalPricesTool()
	out, err := tool.Invoke(context.Background(), map[string]any{"ticker": "AAPL", "days": float64(5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	series := out.(map[string]any)["prices"].([]map[string]any)
	if len(series) != 5 {
		t.Errorf("len(prices) = %d, want 5", len(series))
	}
}

func TestMockHistoricalPricesTool_DefaultsDays(t *testing.T) {
	tool := NewMockHistoricalPricesTool()
	out, err := tool.Invoke(context.Background(), map[string]any{"ticker": "AAPL"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	series := out.(map[string]any)["prices"].([]map[string]any)
	if len(series) != 30 {
		t.Errorf("len(prices) = %d, want default of 30", len(series))
	}
}

func TestMockFinancialStatementsTool_MissingTicker(t *testing.T) {
	tool := NewMockFinancialStatementsTool()
	if _, err := tool.Invoke(context.Background(), map[string]any{}); err == nil {
		t.Error("expected an error when ticker is missing")
	}
}

func TestMockKeyMetricsTool_ReturnsRatios(t *testing.T) {
	tool := NewMockKeyMetricsTool()
	out, err := tool.Invoke(context.Background(), map[string]any{"ticker": "AMZN"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := out.(map[string]any)
	if _, ok := m["pe_ratio"]; !ok {
		t.Error("expected pe_ratio in result")
	}
}

func TestMockAnalystRecommendationsTool_ConsensusIsOneOfKnownRatings(t *testing.T) {
	tool := NewMockAnalystRecommendationsTool()
	out, err := tool.Invoke(context.Background(), map[string]any{"ticker": "MSFT"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	consensus := out.(map[string]any)["consensus"].(string)
	valid := map[string]bool{"strong_buy": true, "buy": true, "hold": true, "sell": true}
	if !valid[consensus] {
		t.Errorf("consensus %q is not a recognized rating", consensus)
	}
}

func TestMockNewsSearchTool_RespectsMaxResults(t *testing.T) {
	tool := NewMockNewsSearchTool()
	out, err := tool.Invoke(context.Background(), map[string]any{"query": "Apple", "max_results": float64(2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	results := out.(map[string]any)["results"].([]map[string]any)
	if len(results) != 2 {
		t.Errorf("len(results) = %d, want 2", len(results))
	}
}

func TestMockNewsSearchTool_MissingQuery(t *testing.T) {
	tool := NewMockNewsSearchTool()
	if _, err := tool.Invoke(context.Background(), map[string]any{}); err == nil {
		t.Error("expected an error when query is missing")
	}
}

func TestMockMacroIndicatorTool_UnknownSeriesStillResolves(t *testing.T) {
	tool := NewMockMacroIndicatorTool()
	out, err := tool.Invoke(context.Background(), map[string]any{"series": "not_a_listed_series"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(map[string]any)["series"] != "not_a_listed_series" {
		t.Error("expected series echoed back in result")
	}
}

func TestMockMacroIndicatorTool_MissingSeries(t *testing.T) {
	tool := NewMockMacroIndicatorTool()
	if _, err := tool.Invoke(context.Background(), map[string]any{}); err == nil {
		t.Error("expected an error when series is missing")
	}
}

func TestMockTools_SatisfyRegistryRoundTrip(t *testing.T) {
	r := NewRegistry()
	r.Register(NewMockCurrentPriceTool())
	r.Register(NewMockHistoricalPricesTool())

	got, err := r.Invoke(context.Background(), "get_current_price", map[string]any{"ticker": "AAPL"})
	if err != nil {
		t.Fatalf("unexpected error invoking through the registry: %v", err)
	}
	if got.(map[string]any)["ticker"] != "AAPL" {
		t.Error("expected ticker to round-trip through registry.Invoke's schema validation")
	}
}
