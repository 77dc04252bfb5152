package tool

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"
)

// Mock tools cover the engine's tool categories (market quotes,
// historical prices, financial statements, key metrics, analyst
// recommendations, company news, macroeconomic indicators). Concrete
// vendor bindings live outside this repository; these stand-ins are
// deterministic functions of their ticker argument (seeded by hash/fnv)
// so cmd/finagent has something real to dispatch DATA steps against end
// to end, with byte-identical results across runs.

// tickerSeed derives a small positive int from a ticker symbol so mock
// values vary by ticker but stay stable across runs.
func tickerSeed(ticker string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ticker))
	return int64(h.Sum32() % 1000)
}

// seedDate derives a stable reference date from a seed. Date-bearing
// fields go through this instead of time.Now so a fixed input always
// yields byte-identical output, regardless of wall clock.
func seedDate(seed int64) time.Time {
	return time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(seed%365))
}

// MockCurrentPriceTool stands in for a real-time market-quote vendor.
type MockCurrentPriceTool struct{}

func NewMockCurrentPriceTool() *MockCurrentPriceTool { return &MockCurrentPriceTool{} }

func (t *MockCurrentPriceTool) Name() string { return "get_current_price" }
func (t *MockCurrentPriceTool) Description() string {
	return "Returns the current quoted price and day change for a stock ticker."
}
func (t *MockCurrentPriceTool) ParameterSchema() ParameterSchema {
	return ParameterSchema{
		{Name: "ticker", Type: ParamString, Required: true, Description: "Stock ticker symbol, e.g. AAPL."},
	}
}
func (t *MockCurrentPriceTool) Init(_ context.Context) error { return nil }
func (t *MockCurrentPriceTool) Close() error                  { return nil }

func (t *MockCurrentPriceTool) Invoke(_ context.Context, params map[string]any) (any, error) {
	ticker, _ := params["ticker"].(string)
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	seed := tickerSeed(ticker)
	price := 50.0 + float64(seed)/4.0
	return map[string]any{
		"ticker":         ticker,
		"price":          price,
		"change_percent": float64(seed%40-20) / 10.0,
		"currency":       "USD",
		"as_of":          seedDate(seed).Format(time.RFC3339),
	}, nil
}

// MockHistoricalPricesTool stands in for a historical-price vendor. It
// returns a daily series only, sized by the days parameter; it has no
// interval parameter and does no resampling.
type MockHistoricalPricesTool struct{}

func NewMockHistoricalPricesTool() *MockHistoricalPricesTool { return &MockHistoricalPricesTool{} }

func (t *MockHistoricalPricesTool) Name() string { return "get_historical_stock_prices" }
func (t *MockHistoricalPricesTool) Description() string {
	return "Returns a daily close-price series for a ticker over a trailing window."
}
func (t *MockHistoricalPricesTool) ParameterSchema() ParameterSchema {
	return ParameterSchema{
		{Name: "ticker", Type: ParamString, Required: true, Description: "Stock ticker symbol."},
		{Name: "days", Type: ParamInteger, Required: false, Default: float64(30), Description: "Number of trailing trading days to return."},
	}
}
func (t *MockHistoricalPricesTool) Init(_ context.Context) error { return nil }
func (t *MockHistoricalPricesTool) Close() error                 { return nil }

func (t *MockHistoricalPricesTool) Invoke(_ context.Context, params map[string]any) (any, error) {
	ticker, _ := params["ticker"].(string)
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	days := 30
	if d, ok := params["days"].(float64); ok && d > 0 {
		days = int(d)
	}
	seed := tickerSeed(ticker)
	base := 50.0 + float64(seed)/4.0
	series := make([]map[string]any, 0, days)
	today := seedDate(seed)
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		drift := float64((seed+int64(i))%17-8) / 10.0
		series = append(series, map[string]any{
			"date":  day.Format("2006-01-02"),
			"close": base + drift*float64(days-i),
		})
	}
	return map[string]any{"ticker": ticker, "prices": series}, nil
}

// MockFinancialStatementsTool stands in for SEC EDGAR / YFinance
// income-statement retrieval (structured filing data, key metrics).
type MockFinancialStatementsTool struct{}

func NewMockFinancialStatementsTool() *MockFinancialStatementsTool {
	return &MockFinancialStatementsTool{}
}

func (t *MockFinancialStatementsTool) Name() string { return "get_income_statement" }
func (t *MockFinancialStatementsTool) Description() string {
	return "Returns the most recent annual income statement for a ticker (revenue, net income, EPS)."
}
func (t *MockFinancialStatementsTool) ParameterSchema() ParameterSchema {
	return ParameterSchema{
		{Name: "ticker", Type: ParamString, Required: true, Description: "Stock ticker symbol."},
	}
}
func (t *MockFinancialStatementsTool) Init(_ context.Context) error { return nil }
func (t *MockFinancialStatementsTool) Close() error                 { return nil }

func (t *MockFinancialStatementsTool) Invoke(_ context.Context, params map[string]any) (any, error) {
	ticker, _ := params["ticker"].(string)
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	seed := tickerSeed(ticker)
	revenue := float64(10_000_000_000 + seed*50_000_000)
	netIncome := revenue * 0.18
	return map[string]any{
		"ticker":        ticker,
		"fiscal_year":   seedDate(seed).Year() - 1,
		"revenue":       revenue,
		"net_income":    netIncome,
		"eps_diluted":   netIncome / 1.6e9,
	}, nil
}

// MockKeyMetricsTool stands in for FMP's key-metrics / ratings endpoints.
type MockKeyMetricsTool struct{}

func NewMockKeyMetricsTool() *MockKeyMetricsTool { return &MockKeyMetricsTool{} }

func (t *MockKeyMetricsTool) Name() string { return "get_key_metrics" }
func (t *MockKeyMetricsTool) Description() string {
	return "Returns valuation ratios (P/E, P/S, debt-to-equity) for a ticker."
}
func (t *MockKeyMetricsTool) ParameterSchema() ParameterSchema {
	return ParameterSchema{
		{Name: "ticker", Type: ParamString, Required: true, Description: "Stock ticker symbol."},
	}
}
func (t *MockKeyMetricsTool) Init(_ context.Context) error { return nil }
func (t *MockKeyMetricsTool) Close() error                 { return nil }

func (t *MockKeyMetricsTool) Invoke(_ context.Context, params map[string]any) (any, error) {
	ticker, _ := params["ticker"].(string)
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	seed := tickerSeed(ticker)
	return map[string]any{
		"ticker":          ticker,
		"pe_ratio":        12.0 + float64(seed%300)/10.0,
		"price_to_sales":  1.0 + float64(seed%50)/10.0,
		"debt_to_equity":  float64(seed%120) / 100.0,
	}, nil
}

// MockAnalystRecommendationsTool stands in for FMP's analyst-consensus
// estimates and recommendation-trend endpoints.
type MockAnalystRecommendationsTool struct{}

func NewMockAnalystRecommendationsTool() *MockAnalystRecommendationsTool {
	return &MockAnalystRecommendationsTool{}
}

func (t *MockAnalystRecommendationsTool) Name() string { return "get_analyst_recommendations" }
func (t *MockAnalystRecommendationsTool) Description() string {
	return "Returns the consensus analyst rating and price target for a ticker."
}
func (t *MockAnalystRecommendationsTool) ParameterSchema() ParameterSchema {
	return ParameterSchema{
		{Name: "ticker", Type: ParamString, Required: true, Description: "Stock ticker symbol."},
	}
}
func (t *MockAnalystRecommendationsTool) Init(_ context.Context) error { return nil }
func (t *MockAnalystRecommendationsTool) Close() error                 { return nil }

func (t *MockAnalystRecommendationsTool) Invoke(_ context.Context, params map[string]any) (any, error) {
	ticker, _ := params["ticker"].(string)
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	seed := tickerSeed(ticker)
	ratings := []string{"strong_buy", "buy", "hold", "sell"}
	return map[string]any{
		"ticker":       ticker,
		"consensus":    ratings[seed%int64(len(ratings))],
		"price_target": 60.0 + float64(seed)/3.0,
		"analyst_count": 10 + int(seed%30),
	}, nil
}

// MockNewsSearchTool stands in for a web/news search vendor.
type MockNewsSearchTool struct{}

func NewMockNewsSearchTool() *MockNewsSearchTool { return &MockNewsSearchTool{} }

func (t *MockNewsSearchTool) Name() string { return "search_company_news" }
func (t *MockNewsSearchTool) Description() string {
	return "Searches recent news headlines mentioning a company or ticker."
}
func (t *MockNewsSearchTool) ParameterSchema() ParameterSchema {
	return ParameterSchema{
		{Name: "query", Type: ParamString, Required: true, Description: "Search terms, typically a company name or ticker."},
		{Name: "max_results", Type: ParamInteger, Required: false, Default: float64(5), Description: "Maximum number of headlines to return."},
	}
}
func (t *MockNewsSearchTool) Init(_ context.Context) error { return nil }
func (t *MockNewsSearchTool) Close() error                 { return nil }

func (t *MockNewsSearchTool) Invoke(_ context.Context, params map[string]any) (any, error) {
	query, _ := params["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	max := 5
	if m, ok := params["max_results"].(float64); ok && m > 0 {
		max = int(m)
	}
	seed := tickerSeed(query)
	headlines := make([]map[string]any, 0, max)
	for i := 0; i < max; i++ {
		headlines = append(headlines, map[string]any{
			"title":   fmt.Sprintf("%s headline #%d", query, int(seed)+i+1),
			"source":  "mock-wire",
			"published_at": seedDate(seed).AddDate(0, 0, -i).Format("2006-01-02"),
		})
	}
	return map[string]any{"query": query, "results": headlines}, nil
}

// MockMacroIndicatorTool stands in for a FRED-backed macroeconomic
// indicator lookup (interest rates, GDP, inflation, unemployment).
type MockMacroIndicatorTool struct{}

func NewMockMacroIndicatorTool() *MockMacroIndicatorTool { return &MockMacroIndicatorTool{} }

func (t *MockMacroIndicatorTool) Name() string { return "get_macro_indicator" }
func (t *MockMacroIndicatorTool) Description() string {
	return "Returns the latest reading for a named macroeconomic series (e.g. fed_funds_rate, cpi, unemployment_rate)."
}
func (t *MockMacroIndicatorTool) ParameterSchema() ParameterSchema {
	return ParameterSchema{
		{Name: "series", Type: ParamString, Required: true,
			Enum:        []string{"fed_funds_rate", "cpi", "gdp_growth", "unemployment_rate", "10y_treasury_yield"},
			Description: "Named macroeconomic series to look up."},
	}
}
func (t *MockMacroIndicatorTool) Init(_ context.Context) error { return nil }
func (t *MockMacroIndicatorTool) Close() error                 { return nil }

func (t *MockMacroIndicatorTool) Invoke(_ context.Context, params map[string]any) (any, error) {
	series, _ := params["series"].(string)
	if series == "" {
		return nil, fmt.Errorf("series is required")
	}
	seed := tickerSeed(series)
	return map[string]any{
		"series": series,
		"value":  float64(seed%800) / 100.0,
		"as_of":  seedDate(seed).Format("2006-01"),
	}, nil
}
