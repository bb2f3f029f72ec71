package query

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/boardrag/internal/domain"
	"github.com/kailas-cloud/boardrag/internal/domain/answer"
	"github.com/kailas-cloud/boardrag/internal/domain/prompt"
	"github.com/kailas-cloud/boardrag/internal/domain/relevance"
	"github.com/kailas-cloud/boardrag/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterQueryMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockIndex struct {
	docs  []domain.ScoredDocument
	err   error
	lastK int
	calls int
}

func (m *mockIndex) Search(_ context.Context, _ string, k int) ([]domain.ScoredDocument, error) {
	m.calls++
	m.lastK = k
	if m.err != nil {
		return nil, m.err
	}
	return m.docs, nil
}

type mockCompleter struct {
	text       string
	err        error
	lastPrompt string
	calls      int
}

func (m *mockCompleter) Complete(_ context.Context, p string) (domain.CompletionResult, error) {
	m.calls++
	m.lastPrompt = p
	if m.err != nil {
		return domain.CompletionResult{}, m.err
	}
	return domain.CompletionResult{Text: m.text}, nil
}

// --- Helpers ---

func doc(id, source string, score float64, content string) domain.ScoredDocument {
	return domain.ScoredDocument{
		Document: domain.Document{ID: id, Source: source, Content: content},
		Score:    score,
	}
}

func newService(t *testing.T, idx Index, c Completer) *Service {
	t.Helper()
	f, err := relevance.New(domain.DefaultGames())
	if err != nil {
		t.Fatalf("relevance.New: %v", err)
	}
	return New(idx, f, c, Options{})
}

func sourceNames(r answer.Response) []string {
	out := make([]string, len(r.Sources))
	for i, s := range r.Sources {
		out[i] = s.Source
	}
	return out
}

// --- Tests ---

func TestQuery_MonopolyJail(t *testing.T) {
	const (
		mono = "data/monopoly.pdf"
		ttr  = "data/ticket_to_ride.pdf"
	)
	idx := &mockIndex{docs: []domain.ScoredDocument{
		doc("data/monopoly.pdf:3:0", mono, 0.91, "If you are in Jail you may pay $50."),
		doc("data/ticket_to_ride.pdf:1:0", ttr, 0.88, "Trains are placed on routes."),
		doc("data/monopoly.pdf:3:1", mono, 0.85, "Roll doubles to get out of Jail."),
		doc("data/ticket_to_ride.pdf:2:0", ttr, 0.80, "Destination tickets."),
		doc("data/monopoly.pdf:4:0", mono, 0.79, "Go to Jail square."),
		doc("data/monopoly.pdf:5:0", mono, 0.70, "Get Out of Jail Free card."),
		doc("data/ticket_to_ride.pdf:3:0", ttr, 0.65, "Longest route bonus."),
		doc("data/monopoly.pdf:6:0", mono, 0.60, "Jail rules continued."),
	}}
	comp := &mockCompleter{text: "Pay $50 or roll doubles."}
	svc := newService(t, idx, comp)

	before := testutil.ToFloat64(metrics.FilterOutcomeTotal.WithLabelValues("filtered"))

	resp, err := svc.Query(context.Background(), "How do you get out of jail?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.lastK != DefaultFanOut {
		t.Errorf("expected fan-out %d, got %d", DefaultFanOut, idx.lastK)
	}
	if len(resp.Sources) != 5 {
		t.Fatalf("expected 5 sources, got %d", len(resp.Sources))
	}
	for _, s := range sourceNames(resp) {
		if s != mono {
			t.Errorf("unexpected source %q", s)
		}
	}
	wantIDs := []string{
		"data/monopoly.pdf:3:0", "data/monopoly.pdf:3:1", "data/monopoly.pdf:4:0",
		"data/monopoly.pdf:5:0", "data/monopoly.pdf:6:0",
	}
	if got := resp.SourceIDs(); !reflect.DeepEqual(got, wantIDs) {
		t.Errorf("ids = %v, expected %v", got, wantIDs)
	}
	if resp.Answer != "Pay $50 or roll doubles." || resp.Question != "How do you get out of jail?" {
		t.Errorf("unexpected response %+v", resp)
	}
	if strings.Contains(comp.lastPrompt, "Trains are placed") {
		t.Error("prompt must not contain filtered-out passages")
	}
	if !strings.Contains(comp.lastPrompt, "If you are in Jail you may pay $50.\n\n---\n\nRoll doubles") {
		t.Error("prompt context should join kept passages with the separator")
	}
	if after := testutil.ToFloat64(metrics.FilterOutcomeTotal.WithLabelValues("filtered")); after != before+1 {
		t.Errorf("filtered outcome counter = %v, expected %v", after, before+1)
	}
}

func TestQuery_TicketToRideFallback(t *testing.T) {
	var docs []domain.ScoredDocument
	for i := range 8 {
		docs = append(docs, doc(fmt.Sprintf("m%d", i), "data/monopoly.pdf", 0.9-float64(i)/100, "monopoly text"))
	}
	idx := &mockIndex{docs: docs}
	svc := newService(t, idx, &mockCompleter{text: "not enough information"})

	resp, err := svc.Query(context.Background(), "How many trains does each player get?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"m0", "m1", "m2", "m3", "m4"}
	if got := resp.SourceIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, expected %v", got, want)
	}
}

func TestQuery_IdentityPath(t *testing.T) {
	idx := &mockIndex{docs: []domain.ScoredDocument{
		doc("a", "data/ticket_to_ride.pdf", 0.9, "a"),
		doc("b", "data/monopoly.pdf", 0.8, "b"),
		doc("c", "data/ticket_to_ride.pdf", 0.7, "c"),
	}}
	svc := newService(t, idx, &mockCompleter{text: "answer"})

	resp, err := svc.Query(context.Background(), "What is the setup?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resp.SourceIDs(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("identity path should keep order, got %v", got)
	}
}

func TestQuery_SnippetTruncation(t *testing.T) {
	long := strings.Repeat("x", 250)
	idx := &mockIndex{docs: []domain.ScoredDocument{doc("a", "data/monopoly.pdf", 0.5, long)}}
	comp := &mockCompleter{text: "answer"}
	svc := newService(t, idx, comp)

	resp, err := svc.Query(context.Background(), "monopoly rules?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resp.Sources[0].Content; got != strings.Repeat("x", 200)+"..." {
		t.Errorf("unexpected snippet length %d", len(got))
	}
	if !strings.Contains(comp.lastPrompt, long) {
		t.Error("prompt should carry the full passage")
	}
}

func TestQuery_IndexUnavailable(t *testing.T) {
	idx := &mockIndex{err: fmt.Errorf("%w: collection missing", domain.ErrIndexUnavailable)}
	comp := &mockCompleter{text: "never"}
	svc := newService(t, idx, comp)

	resp, err := svc.Query(context.Background(), "How do you get out of jail?")
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	if !reflect.DeepEqual(resp, answer.Response{}) {
		t.Errorf("expected zero-value response, got %+v", resp)
	}
	if comp.calls != 0 {
		t.Error("completion must not be called when search fails")
	}
}

func TestQuery_IndexErrorWithoutSentinel(t *testing.T) {
	svc := newService(t, &mockIndex{err: errors.New("dial tcp: refused")}, &mockCompleter{})

	if _, err := svc.Query(context.Background(), "q?"); !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestQuery_CompletionFailure(t *testing.T) {
	idx := &mockIndex{docs: []domain.ScoredDocument{doc("a", "data/monopoly.pdf", 0.5, "a")}}
	comp := &mockCompleter{err: errors.New("model not loaded")}
	svc := newService(t, idx, comp)

	resp, err := svc.Query(context.Background(), "jail?")
	if !errors.Is(err, domain.ErrCompletion) {
		t.Fatalf("expected ErrCompletion, got %v", err)
	}
	if !reflect.DeepEqual(resp, answer.Response{}) {
		t.Errorf("expected zero-value response, got %+v", resp)
	}
	if comp.calls != 1 {
		t.Errorf("expected a single completion attempt, got %d", comp.calls)
	}
}

func TestQuery_EmptyQuestion(t *testing.T) {
	idx := &mockIndex{}
	svc := newService(t, idx, &mockCompleter{})

	for _, q := range []string{"", "   ", "\n\t"} {
		if _, err := svc.Query(context.Background(), q); !errors.Is(err, domain.ErrInvalidQuery) {
			t.Errorf("Query(%q): expected ErrInvalidQuery, got %v", q, err)
		}
	}
	if idx.calls != 0 {
		t.Error("index must not be searched for an empty question")
	}
}

func TestQuery_CustomOptions(t *testing.T) {
	tmpl, err := prompt.New("C={context} Q={question}")
	if err != nil {
		t.Fatalf("prompt.New: %v", err)
	}
	f, _ := relevance.New(domain.DefaultGames())
	idx := &mockIndex{docs: []domain.ScoredDocument{
		doc("a", "s", 0.9, "alpha"), doc("b", "s", 0.8, "beta"), doc("c", "s", 0.7, "gamma"),
	}}
	comp := &mockCompleter{text: "ok"}
	svc := New(idx, f, comp, Options{FanOut: 3, ContextCap: 2, SnippetChars: 3, Template: &tmpl})

	resp, err := svc.Query(context.Background(), "what?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.lastK != 3 {
		t.Errorf("expected fan-out 3, got %d", idx.lastK)
	}
	if comp.lastPrompt != "C=alpha\n\n---\n\nbeta Q=what?" {
		t.Errorf("unexpected prompt %q", comp.lastPrompt)
	}
	if len(resp.Sources) != 2 || resp.Sources[0].Content != "alp..." {
		t.Errorf("unexpected sources %+v", resp.Sources)
	}
}
