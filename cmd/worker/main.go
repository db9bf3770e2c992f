// Command worker consumes analysis requests from NATS, runs them against
// the registry, and publishes result events. It also serves /healthz and
// /metrics for operations.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/carbonlens/carbonlens/engine/connexion"
	"github.com/carbonlens/carbonlens/engine/domain"
	"github.com/carbonlens/carbonlens/engine/identity"
	"github.com/carbonlens/carbonlens/engine/registry"
	"github.com/carbonlens/carbonlens/pkg/fn"
	"github.com/carbonlens/carbonlens/pkg/metrics"
	"github.com/carbonlens/carbonlens/pkg/mid"
	"github.com/carbonlens/carbonlens/pkg/natsutil"
	"github.com/carbonlens/carbonlens/pkg/resilience"
)

const (
	subjectAnalyze = "registry.analyze"
	subjectResult  = "registry.analyze.result"
)

// AnalyzeRequest asks for one analysis of one focal entity.
type AnalyzeRequest struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// AnalyzeResult reports the outcome of one analysis run.
type AnalyzeResult struct {
	RunID        string   `json:"run_id"`
	Kind         string   `json:"kind"`
	ID           string   `json:"id"`
	Name         string   `json:"name,omitempty"`
	Status       string   `json:"status"` // ok, not_found, too_large, error
	Error        string   `json:"error,omitempty"`
	Accounts     int      `json:"accounts"`
	Transactions int      `json:"transactions"`
	Nodes        int      `json:"nodes"`
	Edges        int      `json:"edges"`
	Warnings     []string `json:"warnings,omitempty"`
}

// Config holds all environment-based configuration.
type Config struct {
	NATSURL   string
	Neo4jURL  string
	Neo4jUser string
	Neo4jPass string
	OpsPort   string
	QueryQPS  float64
}

func loadConfig() Config {
	qps, err := strconv.ParseFloat(envOr("NEO4J_QPS", "10"), 64)
	if err != nil || qps <= 0 {
		qps = 10
	}
	return Config{
		NATSURL:   envOr("NATS_URL", nats.DefaultURL),
		Neo4jURL:  envOr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser: envOr("NEO4J_USER", "neo4j"),
		Neo4jPass: envOr("NEO4J_PASS", "password"),
		OpsPort:   envOr("OPS_PORT", "9090"),
		QueryQPS:  qps,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(loadConfig(), logger); err != nil {
		logger.Error("worker exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer driver.Close(ctx)

	store := registry.NewNeo4jStore(driver, registry.WithRateLimit(cfg.QueryQPS, 1))
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("neo4j connect: %w", err)
	}

	// NATS may come up after the worker in compose environments.
	nc, err := fn.Retry(ctx, fn.DefaultRetry, func(context.Context) fn.Result[*nats.Conn] {
		return fn.FromPair(nats.Connect(cfg.NATSURL))
	}).Unwrap()
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Drain()

	met := metrics.NewAnalysis()
	holders := identity.NewCache(store, logger)
	breaker := resilience.NewBreaker(resilience.DefaultBreakerOpts)

	wk := &worker{
		store:   store,
		holders: holders,
		breaker: breaker,
		nc:      nc,
		met:     met,
		logger:  logger,
	}

	sub, err := natsutil.Subscribe(nc, subjectAnalyze, logger, wk.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subjectAnalyze, err)
	}
	defer sub.Unsubscribe()
	logger.Info("worker listening", "subject", subjectAnalyze)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})
	mux.Handle("GET /metrics", met.Registry().Handler())

	srv := &http.Server{
		Addr: ":" + cfg.OpsPort,
		Handler: mid.Chain(mux,
			mid.Recover(logger),
			mid.Logger(logger),
			mid.Trace("carbonlens-worker"),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ops server starting", "port", cfg.OpsPort)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

type worker struct {
	store   registry.Store
	holders *identity.Cache
	breaker *resilience.Breaker
	nc      *nats.Conn
	met     *metrics.Analysis
	logger  *slog.Logger
}

// handle runs one analysis request end to end and publishes the result.
func (w *worker) handle(ctx context.Context, req AnalyzeRequest) {
	start := time.Now()
	res := AnalyzeResult{
		RunID: uuid.NewString(),
		Kind:  req.Kind,
		ID:    req.ID,
	}
	logger := w.logger.With("run_id", res.RunID, "kind", req.Kind, "id", req.ID)

	report, err := w.analyze(ctx, req)
	switch {
	case err == nil && report.Graph == nil:
		// The analysis succeeded but the diagram was skipped; the counts
		// are still worth publishing.
		res.Status = "too_large"
		res.Name = report.Name
		res.Accounts = report.Accounts
		res.Transactions = report.Transactions
		res.Warnings = report.Warnings
		w.met.TooLarge.Inc()
	case err == nil:
		res.Status = "ok"
		res.Name = report.Name
		res.Accounts = report.Accounts
		res.Transactions = report.Transactions
		res.Nodes = len(report.Graph.Nodes)
		res.Edges = len(report.Graph.Edges)
		res.Warnings = report.Warnings
	case errors.Is(err, domain.ErrNotFound):
		res.Status = "not_found"
		res.Error = err.Error()
	default:
		res.Status = "error"
		res.Error = err.Error()
	}

	w.met.Observe(start, res.Status, len(res.Warnings))
	if err != nil {
		logger.Error("analysis failed", "status", res.Status, "err", err)
	} else {
		logger.Info("analysis done",
			"name", res.Name, "transactions", res.Transactions, "nodes", res.Nodes)
	}

	if err := natsutil.Publish(ctx, w.nc, subjectResult, res); err != nil {
		logger.Error("publish result failed", "err", err)
	}
}

func (w *worker) analyze(ctx context.Context, req AnalyzeRequest) (*connexion.Report, error) {
	kind, err := domain.ParseEntityKind(req.Kind)
	if err != nil {
		return nil, err
	}
	session, err := connexion.NewSession(kind, req.ID, connexion.Deps{
		Store:   w.store,
		Holders: w.holders,
		Logger:  w.logger,
	})
	if err != nil {
		return nil, err
	}

	// The breaker shields the registry when analyses fail back to back.
	// Caller-input failures, such as an unknown entity, say nothing about
	// registry health and never count against it.
	var report *connexion.Report
	var runErr error
	brkErr := w.breaker.Call(ctx, func(ctx context.Context) error {
		report, runErr = session.Run(ctx)
		if runErr != nil && callerFault(runErr) {
			return nil
		}
		return runErr
	})
	if runErr != nil {
		return nil, runErr
	}
	return report, brkErr
}

// callerFault reports whether err was caused by the request rather than the
// registry backend.
func callerFault(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidEntityKind) ||
		errors.Is(err, domain.ErrCompanyAggregation)
}
