// Command connexion runs one trading-connection analysis against the
// registry and writes the diagram artifacts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/carbonlens/carbonlens/engine/connexion"
	"github.com/carbonlens/carbonlens/engine/domain"
	"github.com/carbonlens/carbonlens/engine/identity"
	"github.com/carbonlens/carbonlens/engine/registry"
	"github.com/carbonlens/carbonlens/render"
)

// Config holds all environment-based configuration.
type Config struct {
	Neo4jURL  string
	Neo4jUser string
	Neo4jPass string
	QueryQPS  float64
}

func loadConfig() Config {
	return Config{
		Neo4jURL:  envOr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser: envOr("NEO4J_USER", "neo4j"),
		Neo4jPass: envOr("NEO4J_PASS", "password"),
		QueryQPS:  10,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	var (
		kindFlag = flag.String("kind", "AccountHolder", "focal entity kind: Account, AccountHolder or Company")
		idFlag   = flag.String("id", "", "focal entity id (numeric, or a registration number for Company)")
		outFlag  = flag.String("out", ".", "output directory for diagram artifacts")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(loadConfig(), *kindFlag, *idFlag, *outFlag, logger); err != nil {
		logger.Error("analysis failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, kindName, id, outDir string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kind, err := domain.ParseEntityKind(kindName)
	if err != nil {
		return err
	}

	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer driver.Close(ctx)

	store := registry.NewNeo4jStore(driver, registry.WithRateLimit(cfg.QueryQPS, 1))
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("neo4j connect: %w", err)
	}

	session, err := connexion.NewSession(kind, id, connexion.Deps{
		Store:   store,
		Holders: identity.NewCache(store, logger),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	report, err := session.Run(ctx)
	if err != nil {
		return err
	}

	if report.Graph == nil {
		logger.Warn("diagram skipped, graph over the node limit; narrow the entity or the period")
		fmt.Println(report.Summary())
		return nil
	}

	ref := domain.EntityRef{Kind: kind, ID: id}
	bundle := render.FromGraph(report.Graph, render.Title(ref, report.Name))
	for _, r := range []render.Renderer{render.DOT{}, render.SVG{}} {
		name := filepath.Join(outDir, render.Filename(ref, r.Ext()))
		if err := writeArtifact(name, r, bundle); err != nil {
			return err
		}
		logger.Info("artifact written", "path", name)
	}

	fmt.Println(report.Summary())
	return nil
}

func writeArtifact(path string, r render.Renderer, b render.Bundle) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := r.Render(f, b); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}
