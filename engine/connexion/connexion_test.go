package connexion

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carbonlens/carbonlens/engine/domain"
	"github.com/carbonlens/carbonlens/engine/graph"
	"github.com/carbonlens/carbonlens/engine/identity"
	"github.com/carbonlens/carbonlens/engine/registry"
)

func i64(v int64) *int64 { return &v }

func rawTx(from, to *int64, amount int64, at time.Time) domain.RawTransaction {
	return domain.RawTransaction{
		Timestamp:             at,
		Amount:                decimal.NewFromInt(amount),
		TransferringAccountID: from,
		AcquiringAccountID:    to,
		TransactionTypeMain:   "10-0",
		UnitType:              "EUA",
	}
}

func page(rows ...domain.RawTransaction) registry.TransactionPage {
	return registry.TransactionPage{
		Columns: domain.RequiredTransactionColumns(),
		Rows:    rows,
	}
}

// seedStore sets up the registry used by most tests: holder 81 owns accounts
// 501 and 502, holder 90 owns account 900. 501 sends 100 to 900, 900 sends
// 50 to 502, and 501 sends 30 to 502 (an intra-holder transfer).
func seedStore(t *testing.T) *registry.MemStore {
	t.Helper()
	store := registry.NewMemStore()
	store.AddHolder(domain.AccountHolder{ID: 81, Name: "Wien Energie GmbH"})
	store.AddHolder(domain.AccountHolder{ID: 90, Name: "Verbund AG"})
	store.AddAccount(domain.Account{ID: 501, Name: "WE Operator A", Type: "100-7", HolderID: i64(81)})
	store.AddAccount(domain.Account{ID: 502, Name: "WE Operator B", Type: "100-7", HolderID: i64(81)})
	store.AddAccount(domain.Account{ID: 900, Name: "Verbund Trading", Type: "120-0", HolderID: i64(90)})

	base := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
	toVerbund := rawTx(i64(501), i64(900), 100, base)
	fromVerbund := rawTx(i64(900), i64(502), 50, base.Add(24*time.Hour))
	internal := rawTx(i64(501), i64(502), 30, base.Add(48*time.Hour))

	store.AddTransactions(501, page(toVerbund, internal))
	store.AddTransactions(502, page(internal, fromVerbund))
	store.AddTransactions(900, page(toVerbund, fromVerbund))
	return store
}

func deps(store *registry.MemStore) Deps {
	logger := slog.Default()
	return Deps{
		Store:   store,
		Holders: identity.NewCache(store, logger),
		Logger:  logger,
	}
}

func TestNewSessionValidation(t *testing.T) {
	// Validation happens before any repository access, so a nil store must
	// not be touched.
	if _, err := NewSession(domain.KindUnknown, "81", Deps{}); !errors.Is(err, domain.ErrInvalidEntityKind) {
		t.Fatalf("unknown kind: %v", err)
	}
	if _, err := NewSession(domain.KindAccount, "", Deps{}); !errors.Is(err, domain.ErrEmptyEntityID) {
		t.Fatalf("empty id: %v", err)
	}
	if _, err := NewSession(domain.KindAccountHolder, "not-a-number", Deps{}); err == nil {
		t.Fatal("non-numeric holder id must fail")
	}
	// Company registration numbers are opaque strings.
	if _, err := NewSession(domain.KindCompany, "FN 999999x", Deps{}); err != nil {
		t.Fatalf("company id: %v", err)
	}
}

func TestRunHolderWorkedExample(t *testing.T) {
	store := seedStore(t)
	s, err := NewSession(domain.KindAccountHolder, "81", deps(store))
	if err != nil {
		t.Fatal(err)
	}
	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if rep.Name != "Wien Energie GmbH" || rep.Accounts != 2 {
		t.Fatalf("report = %+v", rep)
	}
	// The internal 501->502 transfer collapses to holder 81 on both sides
	// and is removed; both copies of it.
	if rep.Transactions != 2 {
		t.Fatalf("transactions = %d, want 2", rep.Transactions)
	}
	for _, tr := range rep.Table {
		if tr.TransferringType != domain.SentinelEntityName || tr.AcquiringType != domain.SentinelEntityName {
			t.Fatalf("holder granularity entity types = %+v", tr)
		}
	}

	g := rep.Graph
	if len(g.Nodes) != 2 || g.FocalID != 81 {
		t.Fatalf("graph = %+v", g)
	}
	roles := map[int64]graph.Role{}
	names := map[int64]string{}
	for _, n := range g.Nodes {
		roles[n.ID] = n.Role
		names[n.ID] = n.Name
	}
	if roles[81] != graph.RoleThis || roles[90] != graph.RoleTrader {
		t.Fatalf("roles = %v", roles)
	}
	if names[90] != "Verbund AG" {
		t.Fatalf("names = %v", names)
	}

	if len(g.Edges) != 2 {
		t.Fatalf("edges = %+v", g.Edges)
	}
	if !g.Edges[0].Weight.Equal(decimal.NewFromInt(100)) || !g.Edges[1].Weight.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("edge weights = %s, %s", g.Edges[0].Weight, g.Edges[1].Weight)
	}

	sum := rep.Summary()
	for _, want := range []string{"AccountHolder", "81", "Wien Energie GmbH", "accounts=2", "transactions=2"} {
		if !strings.Contains(sum, want) {
			t.Fatalf("summary %q missing %q", sum, want)
		}
	}
}

func TestRunAccountGranularity(t *testing.T) {
	store := seedStore(t)
	s, err := NewSession(domain.KindAccount, "501", deps(store))
	if err != nil {
		t.Fatal(err)
	}
	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// Account granularity keeps account ids, so the internal transfer to
	// the sibling account 502 stays.
	if rep.Name != "WE Operator A" || rep.Accounts != 1 || rep.Transactions != 2 {
		t.Fatalf("report = %+v", rep)
	}
	roles := map[int64]graph.Role{}
	for _, n := range rep.Graph.Nodes {
		roles[n.ID] = n.Role
	}
	if roles[501] != graph.RoleThis || roles[900] != graph.RoleReceiver || roles[502] != graph.RoleReceiver {
		t.Fatalf("roles = %v", roles)
	}
}

func TestRunNotFound(t *testing.T) {
	store := seedStore(t)
	for _, tc := range []struct {
		kind domain.EntityKind
		id   string
	}{
		{domain.KindAccount, "777"},
		{domain.KindAccountHolder, "777"},
		{domain.KindCompany, "FN 000000z"},
	} {
		s, err := NewSession(tc.kind, tc.id, deps(store))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.Run(context.Background()); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("%s %s: %v", tc.kind, tc.id, err)
		}
	}
}

func TestRunCompanyAggregationUnsupported(t *testing.T) {
	store := seedStore(t)
	store.AddAccount(domain.Account{ID: 600, Name: "OMV Plant", CompanyRegistration: "FN 123456a"})

	s, err := NewSession(domain.KindCompany, "FN 123456a", deps(store))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Run(context.Background()); !errors.Is(err, domain.ErrCompanyAggregation) {
		t.Fatalf("company aggregation: %v", err)
	}
}

func TestNoTransactionsIsValid(t *testing.T) {
	store := seedStore(t)
	store.AddHolder(domain.AccountHolder{ID: 95, Name: "Idle Holdings"})
	store.AddAccount(domain.Account{ID: 950, Name: "Idle Account", HolderID: i64(95)})

	s, err := NewSession(domain.KindAccountHolder, "95", deps(store))
	if err != nil {
		t.Fatal(err)
	}
	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Transactions != 0 || len(rep.Warnings) != 0 {
		t.Fatalf("report = %+v", rep)
	}
	// The diagram still exists: the focal node alone.
	if len(rep.Graph.Nodes) != 1 || rep.Graph.Nodes[0].Name != "Idle Holdings" {
		t.Fatalf("graph = %+v", rep.Graph)
	}
}

func TestSchemaDriftDegradesToEmpty(t *testing.T) {
	store := seedStore(t)
	drifted := page(rawTx(i64(501), i64(900), 10, time.Now()))
	drifted.Columns = []string{domain.ColDatetime, domain.ColTransferringAccountID, domain.ColAcquiringAccountID}
	store.AddTransactions(501, drifted)

	s, err := NewSession(domain.KindAccount, "501", deps(store))
	if err != nil {
		t.Fatal(err)
	}
	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Transactions != 0 {
		t.Fatalf("drifted page must degrade to empty, got %d rows", rep.Transactions)
	}
	if len(rep.Warnings) == 0 {
		t.Fatal("schema drift must be reported as a warning")
	}
}

func TestMissingEndpointBecomesSentinel(t *testing.T) {
	store := seedStore(t)
	store.AddTransactions(501, page(rawTx(i64(501), nil, 10, time.Now())))
	store.AddTransactions(502, registry.TransactionPage{})

	s, err := NewSession(domain.KindAccountHolder, "81", deps(store))
	if err != nil {
		t.Fatal(err)
	}
	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Transactions != 1 {
		t.Fatalf("transactions = %d", rep.Transactions)
	}
	tr := rep.Table[0]
	if tr.AcquiringID != domain.SentinelEntityID || tr.AcquiringName != domain.SentinelEntityName {
		t.Fatalf("sentinel endpoint = %+v", tr)
	}
	if len(rep.Warnings) == 0 {
		t.Fatal("sentinel substitution must be reported as a warning")
	}
}

func TestUnmappedAccountIsIntegrityFailure(t *testing.T) {
	store := seedStore(t)
	// Account 777 exists in a transaction but not in the account table, so
	// the holder index cannot resolve it.
	store.AddTransactions(501, page(rawTx(i64(501), i64(777), 10, time.Now())))

	s, err := NewSession(domain.KindAccountHolder, "81", deps(store))
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.Run(context.Background())
	if !errors.Is(err, domain.ErrIntegrity) {
		t.Fatalf("expected integrity failure, got %v", err)
	}
	var ie *domain.IntegrityError
	if !errors.As(err, &ie) || ie.AccountID != 777 || ie.Side != "acquiring" {
		t.Fatalf("integrity error detail: %v", err)
	}
}

func TestPeriodFilter(t *testing.T) {
	store := seedStore(t)
	s, err := NewSession(domain.KindAccountHolder, "81", deps(store))
	if err != nil {
		t.Fatal(err)
	}
	// Only the first day: keeps 501->900, drops 900->502 and the internal
	// transfer.
	s.WithPeriod(Period{
		From: time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2023, 4, 2, 0, 0, 0, 0, time.UTC),
	})
	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Transactions != 1 {
		t.Fatalf("transactions = %d, want 1", rep.Transactions)
	}
	if rep.Table[0].TransferringID != 81 || rep.Table[0].AcquiringID != 90 {
		t.Fatalf("row = %+v", rep.Table[0])
	}
}

func TestOversizedGraphDegradesToReport(t *testing.T) {
	// A focal holder with more counterparties than the diagram can hold
	// still gets a full report; only the graph is dropped, with a warning.
	store := registry.NewMemStore()
	store.AddHolder(domain.AccountHolder{ID: 70, Name: "OMV AG"})
	store.AddAccount(domain.Account{ID: 700, Name: "OMV Trading", Type: "120-0", HolderID: i64(70)})

	at := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	var rows []domain.RawTransaction
	for i := int64(1); i <= 41; i++ {
		store.AddHolder(domain.AccountHolder{ID: 1000 + i})
		store.AddAccount(domain.Account{ID: 2000 + i, HolderID: i64(1000 + i)})
		rows = append(rows, rawTx(i64(700), i64(2000+i), i, at))
	}
	store.AddTransactions(700, page(rows...))

	s, err := NewSession(domain.KindAccountHolder, "70", deps(store))
	if err != nil {
		t.Fatal(err)
	}
	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Graph != nil {
		t.Fatal("graph must be dropped when over the node limit")
	}
	if rep.Transactions != 41 {
		t.Fatalf("transactions = %d, want 41", rep.Transactions)
	}
	if rep.Name != "OMV AG" || rep.Accounts != 1 {
		t.Fatalf("report = %+v", rep)
	}
	found := false
	for _, w := range rep.Warnings {
		if strings.Contains(w, "graph too large") {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing too-large warning, got %v", rep.Warnings)
	}
}
