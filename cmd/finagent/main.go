// Command finagent is the CLI entry point for the financial-analysis
// agent runtime. It assembles the one true Engine — model provider, tool
// registry, ticker extractor, safety budgets, tracer — and runs either a
// single query or an interactive REPL.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/quiver-labs/finagent/internal/config"
	"github.com/quiver-labs/finagent/internal/graph"
	"github.com/quiver-labs/finagent/internal/model"
	"github.com/quiver-labs/finagent/internal/model/anthropic"
	"github.com/quiver-labs/finagent/internal/model/openai"
	"github.com/quiver-labs/finagent/internal/state"
	"github.com/quiver-labs/finagent/internal/ticker"
	"github.com/quiver-labs/finagent/internal/tool"
	"github.com/quiver-labs/finagent/internal/trace"
	"github.com/quiver-labs/finagent/internal/trace/promexport"
	pkgconfig "github.com/quiver-labs/finagent/pkg/config"
)

// Exit codes: success, configuration error, runtime error (graph
// aborted on budget), cancelled.
const (
	exitOK           = 0
	exitConfigError  = 1
	exitRuntimeError = 2
	exitCancelled    = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	pkgconfig.LoadEnv()

	queryFlag := flag.String("query", "", "run a single query and exit (single-shot mode)")
	debugFlag := flag.Bool("debug", false, "emit all node trace lines to standard error and serve /metrics")
	metricsAddr := flag.String("metrics-addr", ":9090", "address to serve Prometheus /metrics on when --debug is set")
	configFlag := flag.String("config", "", "optional YAML file layering budgets/tool-catalog toggles under the environment")
	flag.Parse()

	if positional := flag.Arg(0); positional != "" && *queryFlag == "" {
		*queryFlag = positional
	}

	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║            finagent v0.1             ║")
	fmt.Println("║  financial-analysis agent runtime    ║")
	fmt.Println("╚══════════════════════════════════════╝")

	cfg, err := config.FromEnvAndFile(*configFlag)
	if err != nil {
		log.Printf("❌ config error: %v", err)
		return exitConfigError
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		log.Printf("❌ model provider error: %v", err)
		return exitConfigError
	}
	fmt.Printf("🤖 Model: %s\n", provider.Name())

	registry := buildRegistry()
	if len(cfg.DisabledTools) > 0 {
		registry.Disable(cfg.DisabledTools...)
	}
	if err := registry.InitAll(context.Background()); err != nil {
		log.Printf("❌ failed to initialize tools: %v", err)
		return exitConfigError
	}
	defer registry.CloseAll()
	fmt.Printf("🛠️  Tools: %d registered\n", len(registry.List()))

	var tracer *trace.Tracer
	if *debugFlag {
		if addr := *metricsAddr; addr != "" {
			serveMetrics(addr)
		}
		tracer = trace.New()
	}

	engine := graph.NewEngine(
		provider,
		registry,
		ticker.NewStaticCatalog(),
		graph.WithSafety(cfg.Safety),
		graph.WithTracer(tracer),
		graph.WithTruncationBytes(cfg.TruncationBytes),
		graph.WithDefaultDataTool("get_current_price"),
		graph.WithCallTimeout(time.Duration(cfg.CallTimeoutSeconds)*time.Second),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *queryFlag != "" {
		return runOnce(ctx, engine, *queryFlag, *debugFlag)
	}
	return runREPL(ctx, engine, *debugFlag)
}

// buildProvider selects the single model.Provider adapter per
// cfg.ModelProvider — the one place in the process where a concrete
// model is chosen.
func buildProvider(cfg *config.Config) (model.Provider, error) {
	switch cfg.ModelProvider {
	case config.ProviderAnthropic:
		return anthropic.NewClient(anthropic.Config{
			APIKey: os.Getenv("ANTHROPIC_API_KEY"),
			Model:  envOrDefault("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		})
	default:
		return openai.NewClientFromEnv()
	}
}

// buildRegistry assembles the tool registry. Concrete vendor bindings
// (market quotes, filings, macro series, web search) live outside this
// repository; the mock tools below stand in for those categories so the
// graph has something real to dispatch DATA steps against end to end.
func buildRegistry() *tool.Registry {
	r := tool.NewRegistry()
	r.Register(tool.NewMockCurrentPriceTool())
	r.Register(tool.NewMockHistoricalPricesTool())
	r.Register(tool.NewMockFinancialStatementsTool())
	r.Register(tool.NewMockKeyMetricsTool())
	r.Register(tool.NewMockAnalystRecommendationsTool())
	r.Register(tool.NewMockNewsSearchTool())
	r.Register(tool.NewMockMacroIndicatorTool())
	return r
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func serveMetrics(addr string) {
	provider, registry, err := promexport.NewMeterProvider()
	if err != nil {
		log.Printf("⚠️  metrics disabled: %v", err)
		return
	}
	otel.SetMeterProvider(provider)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promexport.Handler(registry))
	go func() {
		log.Printf("📈 metrics: http://%s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("⚠️  metrics server error: %v", err)
		}
	}()
}

func runOnce(ctx context.Context, engine *graph.Engine, query string, debug bool) int {
	s, err := engine.Run(ctx, query)
	printResult(s, debug)
	return exitCodeFor(err)
}

func runREPL(ctx context.Context, engine *graph.Engine, debug bool) int {
	fmt.Println("📟 interactive mode — enter a question, or Ctrl-D to quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if ctx.Err() != nil {
			return exitCancelled
		}

		s, err := engine.Run(ctx, query)
		printResult(s, debug)
		if code := exitCodeFor(err); code != exitOK {
			return code
		}
	}
	return exitOK
}

func printResult(s *state.FinanceState, debug bool) {
	if debug {
		for _, line := range s.DebugMessages {
			fmt.Fprintln(os.Stderr, "[debug]", line)
		}
	}
	if s.StructuredOutput == nil {
		fmt.Println("(no output produced)")
		return
	}
	fmt.Println("\n" + s.StructuredOutput.Summary)
	for _, block := range s.StructuredOutput.ContentBlocks {
		fmt.Printf("- [%s] %v\n", block.Kind, block.Data)
	}
}

func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, graph.ErrCancelled):
		return exitCancelled
	case errors.Is(err, graph.ErrGraphStepLimitExceeded):
		return exitRuntimeError
	default:
		return exitRuntimeError
	}
}
