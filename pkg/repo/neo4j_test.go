package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// fakeResult replays canned records.
type fakeResult struct {
	records []*neo4j.Record
	pos     int
}

func (f *fakeResult) Next(_ context.Context) bool {
	if f.pos >= len(f.records) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeResult) Record() *neo4j.Record { return f.records[f.pos-1] }

// fakeSession captures queries and returns a canned result.
type fakeSession struct {
	lastCypher string
	lastParams map[string]any
	result     *fakeResult
	runErr     error
	closed     bool
}

func (f *fakeSession) Run(_ context.Context, cypher string, params map[string]any) (result, error) {
	f.lastCypher = cypher
	f.lastParams = params
	if f.runErr != nil {
		return nil, f.runErr
	}
	return f.result, nil
}

func (f *fakeSession) Close(_ context.Context) error {
	f.closed = true
	return nil
}

func record(keys []string, values []any) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}

func newTestRepo(sess *fakeSession) *Neo4jRepo[string, string] {
	r := NewNeo4jRepo[string, string](
		nil,
		"Account",
		func(rec *neo4j.Record) (string, error) {
			s, ok := rec.Values[0].(string)
			if !ok {
				return "", errors.New("not a string")
			}
			return s, nil
		},
	)
	r.newSession = func(_ context.Context) runner { return sess }
	return r
}

func TestNeo4jRepoDefaults(t *testing.T) {
	r := NewNeo4jRepo[string, string](nil, "Account", nil)
	if r.idKey != "id" {
		t.Fatalf("expected default idKey=id, got %s", r.idKey)
	}
	r = NewNeo4jRepo[string, string](nil, "Account", nil, WithIDKey[string, string]("account_id"))
	if r.idKey != "account_id" {
		t.Fatalf("expected idKey=account_id, got %s", r.idKey)
	}
}

func TestNeo4jRepoGet(t *testing.T) {
	sess := &fakeSession{result: &fakeResult{records: []*neo4j.Record{
		record([]string{"n"}, []any{"acct-1"}),
	}}}
	r := newTestRepo(sess)

	got, err := r.Get(context.Background(), "1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "acct-1" {
		t.Fatalf("Get = %q", got)
	}
	if sess.lastParams["id"] != "1" {
		t.Fatalf("id param = %v", sess.lastParams["id"])
	}
	if !sess.closed {
		t.Fatal("session not closed")
	}
}

func TestNeo4jRepoGetMissing(t *testing.T) {
	sess := &fakeSession{result: &fakeResult{}}
	r := newTestRepo(sess)

	_, err := r.Get(context.Background(), "404")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNeo4jRepoList(t *testing.T) {
	sess := &fakeSession{result: &fakeResult{records: []*neo4j.Record{
		record([]string{"n"}, []any{"a"}),
		record([]string{"n"}, []any{"b"}),
	}}}
	r := newTestRepo(sess)

	items, err := r.List(context.Background(), ListOpts{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[1] != "b" {
		t.Fatalf("List = %v", items)
	}
	if sess.lastParams["limit"] != 10 {
		t.Fatalf("limit param = %v", sess.lastParams["limit"])
	}
}

func TestNeo4jRepoListDefaultLimit(t *testing.T) {
	sess := &fakeSession{result: &fakeResult{}}
	r := newTestRepo(sess)

	if _, err := r.List(context.Background(), ListOpts{}); err != nil {
		t.Fatal(err)
	}
	if sess.lastParams["limit"] != 100 {
		t.Fatalf("default limit = %v", sess.lastParams["limit"])
	}
}
