package ticker_test

import (
	"context"
	"sort"
	"testing"

	"github.com/quiver-labs/finagent/internal/ticker"
)

func TestStaticCatalog_CompanyName(t *testing.T) {
	e := ticker.NewStaticCatalog()
	got, err := e.ExtractTickers(context.Background(), "What is Apple's current stock price?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != "AAPL" {
		t.Errorf("got %v, want [AAPL]", got)
	}
}

func TestStaticCatalog_BareSymbols(t *testing.T) {
	e := ticker.NewStaticCatalog()
	got, err := e.ExtractTickers(context.Background(), "Compare AMZN and MSFT revenue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sort.Strings(got)
	if len(got) != 2 || got[0] != "AMZN" || got[1] != "MSFT" {
		t.Errorf("got %v, want [AMZN MSFT]", got)
	}
}

func TestStaticCatalog_NoMatch(t *testing.T) {
	e := ticker.NewStaticCatalog()
	got, err := e.ExtractTickers(context.Background(), "What is a P/E ratio?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no tickers, got %v", got)
	}
}
