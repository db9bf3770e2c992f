// Package connexion runs a full trading-connection analysis for one focal
// entity: resolve the entity to its accounts, aggregate and normalize its
// transactions at the requested granularity, and build the trading graph.
package connexion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/carbonlens/carbonlens/engine/domain"
	"github.com/carbonlens/carbonlens/engine/graph"
	"github.com/carbonlens/carbonlens/engine/identity"
	"github.com/carbonlens/carbonlens/engine/registry"
	"github.com/carbonlens/carbonlens/pkg/fn"
)

// Deps carries the collaborators an analysis session needs.
type Deps struct {
	Store   registry.Store
	Holders *identity.Cache
	Logger  *slog.Logger
}

// Period restricts the analysis to transactions with From <= datetime < To.
// A zero bound is open on that side.
type Period struct {
	From time.Time
	To   time.Time
}

func (p Period) contains(t time.Time) bool {
	if !p.From.IsZero() && t.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && !t.Before(p.To) {
		return false
	}
	return true
}

// Session is one analysis of one focal entity. Sessions are single-use.
type Session struct {
	ref       domain.EntityRef
	numericID int64 // parsed ref.ID for Account and AccountHolder
	period    Period
	deps      Deps
	warnings  []string
}

// NewSession validates the focal entity reference before any repository
// access. Account and AccountHolder ids must be numeric; Company ids are
// registration numbers and stay opaque.
func NewSession(kind domain.EntityKind, id string, deps Deps) (*Session, error) {
	ref := domain.EntityRef{Kind: kind, ID: id}
	if err := domain.ValidateEntityRef(ref); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Session{ref: ref, deps: deps}
	if kind == domain.KindAccount || kind == domain.KindAccountHolder {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s id %q is not numeric: %w", kind, id, err)
		}
		s.numericID = n
	}
	return s, nil
}

// WithPeriod restricts the session to the given period.
func (s *Session) WithPeriod(p Period) *Session {
	s.period = p
	return s
}

// Report is the outcome of one analysis.
type Report struct {
	Ref          domain.EntityRef
	Name         string
	Accounts     int
	Transactions int
	Warnings     []string
	Table        []domain.NormalizedTransaction
	Graph        *graph.Graph // nil when the graph exceeded the node limit
}

// Summary formats the one-line console summary for the analysis.
func (r *Report) Summary() string {
	return fmt.Sprintf("kind=%s id=%s name=%q accounts=%d transactions=%d",
		r.Ref.Kind, r.Ref.ID, r.Name, r.Accounts, r.Transactions)
}

// runState threads the intermediate analysis products through the pipeline.
type runState struct {
	res    resolution
	table  []domain.NormalizedTransaction
	graphb *graph.Graph
}

// Run executes the analysis pipeline: resolve, aggregate, build graph.
func (s *Session) Run(ctx context.Context) (*Report, error) {
	pipe := fn.Pipeline(
		fn.TracedStage("connexion.resolve", s.resolveStage()),
		fn.TracedStage("connexion.aggregate", s.aggregateStage()),
		fn.TracedStage("connexion.graph", s.graphStage()),
	)

	st, err := pipe(ctx, &runState{}).Unwrap()
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Ref:          s.ref,
		Name:         st.res.name,
		Accounts:     len(st.res.accounts),
		Transactions: len(st.table),
		Warnings:     s.warnings,
		Table:        st.table,
		Graph:        st.graphb,
	}
	s.deps.Logger.Info("analysis complete",
		"entity", s.ref.String(),
		"accounts", rep.Accounts,
		"transactions", rep.Transactions,
		"warnings", len(rep.Warnings))
	return rep, nil
}

func (s *Session) resolveStage() fn.Stage[*runState, *runState] {
	return func(ctx context.Context, st *runState) fn.Result[*runState] {
		res, err := s.resolve(ctx)
		if err != nil {
			return fn.Err[*runState](err)
		}
		st.res = res
		return fn.Ok(st)
	}
}

func (s *Session) aggregateStage() fn.Stage[*runState, *runState] {
	return func(ctx context.Context, st *runState) fn.Result[*runState] {
		table, err := s.aggregate(ctx, st.res)
		if err != nil {
			return fn.Err[*runState](err)
		}
		st.table = table
		return fn.Ok(st)
	}
}

// graphStage builds the trading graph. An oversized graph is not a failure:
// the analysis still counts and reports transactions, only the diagram is
// dropped. The report carries a nil Graph and a warning in that case.
func (s *Session) graphStage() fn.Stage[*runState, *runState] {
	return func(_ context.Context, st *runState) fn.Result[*runState] {
		opts := graph.DefaultOptions()
		opts.FocalName = st.res.name
		opts.FocalType = st.res.focalType
		g, err := graph.Build(st.table, st.res.focalID, opts)
		if errors.Is(err, domain.ErrGraphTooLarge) {
			s.warn("graph too large, diagram skipped",
				"entity", s.ref.String(), "detail", err.Error())
			return fn.Ok(st)
		}
		if err != nil {
			return fn.Err[*runState](err)
		}
		st.graphb = g
		return fn.Ok(st)
	}
}

func (s *Session) warn(msg string, args ...any) {
	s.warnings = append(s.warnings, msg)
	s.deps.Logger.Warn(msg, args...)
}
