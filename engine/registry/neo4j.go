package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/carbonlens/carbonlens/engine/domain"
	"github.com/carbonlens/carbonlens/pkg/repo"
)

// cypherResult is the minimal interface needed from a neo4j result.
type cypherResult interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
}

// cypherSession is the minimal interface needed from a neo4j session.
type cypherSession interface {
	Run(ctx context.Context, cypher string, params map[string]any) (cypherResult, error)
	Close(ctx context.Context) error
}

// sessionOpener opens one session per store call; the session is released on
// every exit path.
type sessionOpener interface {
	openSession(ctx context.Context) cypherSession
}

type driverOpener struct {
	driver neo4j.DriverWithContext
}

type driverSession struct {
	sess neo4j.SessionWithContext
}

func (s *driverSession) Run(ctx context.Context, cypher string, params map[string]any) (cypherResult, error) {
	return s.sess.Run(ctx, cypher, params)
}

func (s *driverSession) Close(ctx context.Context) error { return s.sess.Close(ctx) }

func (o *driverOpener) openSession(ctx context.Context) cypherSession {
	return &driverSession{sess: o.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})}
}

// Neo4jStore is the registry Store backed by a Neo4j property graph:
// (:Account) and (:Holder) nodes, (:Transaction) nodes keyed by the
// transferring/acquiring account id properties.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	opener   sessionOpener
	limiter  *rate.Limiter
	accounts *repo.Neo4jRepo[domain.Account, int64]
	holders  *repo.Neo4jRepo[domain.AccountHolder, int64]
}

// Neo4jOption configures a Neo4jStore.
type Neo4jOption func(*Neo4jStore)

// WithRateLimit throttles store queries to qps queries per second with the
// given burst. Zero qps disables throttling.
func WithRateLimit(qps float64, burst int) Neo4jOption {
	return func(s *Neo4jStore) {
		if qps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(qps), burst)
		}
	}
}

// NewNeo4jStore creates a registry store over an existing driver.
func NewNeo4jStore(driver neo4j.DriverWithContext, opts ...Neo4jOption) *Neo4jStore {
	s := &Neo4jStore{
		driver:   driver,
		opener:   &driverOpener{driver: driver},
		accounts: repo.NewNeo4jRepo[domain.Account, int64](driver, "Account", accountFromRecord),
		holders:  repo.NewNeo4jRepo[domain.AccountHolder, int64](driver, "Holder", holderFromRecord),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ping verifies connectivity to the backing database.
func (s *Neo4jStore) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

func (s *Neo4jStore) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

// AccountByID returns the single account with the given id.
func (s *Neo4jStore) AccountByID(ctx context.Context, id int64) (domain.Account, error) {
	if err := s.wait(ctx); err != nil {
		return domain.Account{}, err
	}
	acc, err := s.accounts.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Account{}, &domain.NotFoundError{Entity: domain.EntityRef{Kind: domain.KindAccount, ID: strconv.FormatInt(id, 10)}}
	}
	return acc, err
}

// HolderByID returns the account holder with the given id.
func (s *Neo4jStore) HolderByID(ctx context.Context, id int64) (domain.AccountHolder, error) {
	if err := s.wait(ctx); err != nil {
		return domain.AccountHolder{}, err
	}
	h, err := s.holders.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.AccountHolder{}, &domain.NotFoundError{Entity: domain.EntityRef{Kind: domain.KindAccountHolder, ID: strconv.FormatInt(id, 10)}}
	}
	return h, err
}

// AccountsByHolder returns all accounts owned by the holder.
func (s *Neo4jStore) AccountsByHolder(ctx context.Context, holderID int64) ([]domain.Account, error) {
	cypher := `MATCH (a:Account {holder_id: $id}) RETURN a ORDER BY a.id`
	return s.collectAccounts(ctx, cypher, map[string]any{"id": holderID})
}

// AccountsByCompany returns all accounts registered to the company.
func (s *Neo4jStore) AccountsByCompany(ctx context.Context, registration string) ([]domain.Account, error) {
	cypher := `MATCH (a:Account {company_registration: $reg}) RETURN a ORDER BY a.id`
	return s.collectAccounts(ctx, cypher, map[string]any{"reg": registration})
}

// AllAccountsWithHolder returns every account that has a holder id.
func (s *Neo4jStore) AllAccountsWithHolder(ctx context.Context) ([]domain.Account, error) {
	cypher := `MATCH (a:Account) WHERE a.holder_id IS NOT NULL RETURN a ORDER BY a.id`
	return s.collectAccounts(ctx, cypher, nil)
}

// AllHolders returns every account holder.
func (s *Neo4jStore) AllHolders(ctx context.Context) ([]domain.AccountHolder, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	sess := s.opener.openSession(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, `MATCH (h:Holder) RETURN h ORDER BY h.id`, nil)
	if err != nil {
		return nil, err
	}
	var holders []domain.AccountHolder
	for result.Next(ctx) {
		h, err := holderFromRecord(result.Record())
		if err != nil {
			return nil, err
		}
		holders = append(holders, h)
	}
	return holders, nil
}

// TransactionsForAccount returns every transaction with the account on
// either endpoint. The page's column set reflects the properties actually
// present on the stored transaction nodes.
func (s *Neo4jStore) TransactionsForAccount(ctx context.Context, accountID int64) (TransactionPage, error) {
	if err := s.wait(ctx); err != nil {
		return TransactionPage{}, err
	}
	sess := s.opener.openSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (t:Transaction)
		WHERE t.transferringAccount_id = $id OR t.acquiringAccount_id = $id
		RETURN t ORDER BY t.datetime`
	result, err := sess.Run(ctx, cypher, map[string]any{"id": accountID})
	if err != nil {
		return TransactionPage{}, err
	}

	var page TransactionPage
	colSet := make(map[string]struct{})
	for result.Next(ctx) {
		node, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "t")
		if err != nil {
			return TransactionPage{}, err
		}
		for k := range node.Props {
			colSet[k] = struct{}{}
		}
		tx, err := transactionFromProps(node.Props)
		if err != nil {
			return TransactionPage{}, fmt.Errorf("account %d: %w", accountID, err)
		}
		page.Rows = append(page.Rows, tx)
	}
	page.Columns = orderedColumns(colSet)
	return page, nil
}

func (s *Neo4jStore) collectAccounts(ctx context.Context, cypher string, params map[string]any) ([]domain.Account, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	sess := s.opener.openSession(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	var accounts []domain.Account
	for result.Next(ctx) {
		acc, err := accountFromRecord(result.Record())
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// --- record conversion ---

func accountFromRecord(rec *neo4j.Record) (domain.Account, error) {
	node, err := firstNode(rec)
	if err != nil {
		return domain.Account{}, err
	}
	props := node.Props
	acc := domain.Account{
		ID:                  intProp(props, "id"),
		Name:                strProp(props, "name"),
		Type:                strProp(props, "type"),
		CompanyRegistration: strProp(props, "company_registration"),
	}
	if v, ok := props["holder_id"]; ok {
		if h, ok := v.(int64); ok {
			acc.HolderID = &h
		}
	}
	return acc, nil
}

func holderFromRecord(rec *neo4j.Record) (domain.AccountHolder, error) {
	node, err := firstNode(rec)
	if err != nil {
		return domain.AccountHolder{}, err
	}
	return domain.AccountHolder{
		ID:   intProp(node.Props, "id"),
		Name: strProp(node.Props, "name"),
	}, nil
}

func transactionFromProps(props map[string]any) (domain.RawTransaction, error) {
	amount, err := decimalProp(props, domain.ColAmount)
	if err != nil {
		return domain.RawTransaction{}, err
	}
	tx := domain.RawTransaction{
		Timestamp:               timeProp(props, domain.ColDatetime),
		Amount:                  amount,
		TransferringAccountName: strProp(props, domain.ColTransferringAccountName),
		TransferringAccountType: strProp(props, domain.ColTransferringAccountType),
		AcquiringAccountName:    strProp(props, domain.ColAcquiringAccountName),
		AcquiringAccountType:    strProp(props, domain.ColAcquiringAccountType),
		TransactionTypeMain:     strProp(props, domain.ColTransactionTypeMain),
		TransactionTypeSupp:     strProp(props, domain.ColTransactionTypeSupp),
		UnitType:                strProp(props, domain.ColUnitType),
	}
	tx.TransferringAccountID = intPtrProp(props, domain.ColTransferringAccountID)
	tx.AcquiringAccountID = intPtrProp(props, domain.ColAcquiringAccountID)
	return tx, nil
}

func firstNode(rec *neo4j.Record) (dbtype.Node, error) {
	if len(rec.Keys) == 0 {
		return dbtype.Node{}, errors.New("empty record")
	}
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, rec.Keys[0])
	return node, err
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func intProp(props map[string]any, key string) int64 {
	if v, ok := props[key]; ok {
		if n, ok := v.(int64); ok {
			return n
		}
	}
	return 0
}

func intPtrProp(props map[string]any, key string) *int64 {
	if v, ok := props[key]; ok {
		if n, ok := v.(int64); ok {
			return &n
		}
	}
	return nil
}

func timeProp(props map[string]any, key string) time.Time {
	switch v := props[key].(type) {
	case time.Time:
		return v
	case dbtype.LocalDateTime:
		return v.Time()
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func decimalProp(props map[string]any, key string) (decimal.Decimal, error) {
	switch v := props[key].(type) {
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		return decimal.NewFromString(v)
	case nil:
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported %s type %T", key, v)
	}
}

// orderedColumns returns the observed columns in canonical order, with any
// unexpected extras appended alphabetically.
func orderedColumns(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	var out []string
	for _, c := range domain.RequiredTransactionColumns() {
		if _, ok := set[c]; ok {
			out = append(out, c)
			delete(set, c)
		}
	}
	var extras []string
	for c := range set {
		extras = append(extras, c)
	}
	sort.Strings(extras)
	return append(out, extras...)
}
