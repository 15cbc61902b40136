package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/overlordausritter/thematicbeast/internal/domain"
	"github.com/overlordausritter/thematicbeast/internal/domain/query/mode"
	"github.com/overlordausritter/thematicbeast/internal/domain/query/payload"
)

// --- Mocks ---

// mockRetriever returns errs in order, then nodes.
type mockRetriever struct {
	nodes []domain.Node
	errs  []error
	calls int
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string) ([]domain.Node, error) {
	m.calls++
	if m.calls <= len(m.errs) {
		return nil, m.errs[m.calls-1]
	}
	return m.nodes, nil
}

type recordingSleeper struct {
	delays []time.Duration
	err    error
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return r.err
}

func newTestService(r Retriever, sl *recordingSleeper) *Service {
	return New(r, Options{MaxAttempts: 3, Backoff: 2 * time.Second, Sleep: sl.sleep}, nil)
}

func readTimeout() error {
	return domain.NewTransient(domain.ErrReadTimeout, errors.New("timed out"))
}

func remoteProtocol() error {
	return domain.NewTransient(domain.ErrRemoteProtocol, errors.New("Server disconnected without sending a response."))
}

func chunk(text string, meta map[string]any) domain.Node {
	return domain.NewScoredNode(domain.NewTextNode(text, meta), 1)
}

func sampleNodes() []domain.Node {
	return []domain.Node{
		chunk("Blue Ocean raised a round", map[string]any{"file_name": "q1.pdf"}),
		chunk("Unrelated market note", map[string]any{"file_name": "notes.pdf"}),
		chunk("Portfolio review", map[string]any{"web_url": "https://sp/sites/Blue%20Ocean/review.docx"}),
		chunk("Other", map[string]any{"filename": "blue_ocean_memo.txt"}),
	}
}

// --- Validation ---

func TestQuery_MissingQuery_NoRetrieval(t *testing.T) {
	for _, q := range []string{"", "   "} {
		r := &mockRetriever{}
		svc := newTestService(r, &recordingSleeper{})

		_, err := svc.Query(context.Background(), &payload.Payload{Query: q, Company: "Acme"}, mode.Filtered)
		if !errors.Is(err, domain.ErrMissingQuery) {
			t.Errorf("query %q: expected ErrMissingQuery, got %v", q, err)
		}
		if r.calls != 0 {
			t.Errorf("query %q: retriever must not be called", q)
		}
	}
}

func TestQuery_MissingCompany_NoRetrieval(t *testing.T) {
	r := &mockRetriever{}
	svc := newTestService(r, &recordingSleeper{})

	_, err := svc.Query(context.Background(), &payload.Payload{Query: "growth"}, mode.Filtered)
	if !errors.Is(err, domain.ErrMissingCompany) {
		t.Fatalf("expected ErrMissingCompany, got %v", err)
	}
	if err.Error() != "Missing 'company' name in payload" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if r.calls != 0 {
		t.Fatal("retriever must not be called")
	}
}

func TestQuery_InvalidMode(t *testing.T) {
	r := &mockRetriever{}
	svc := newTestService(r, &recordingSleeper{})

	_, err := svc.Query(context.Background(), &payload.Payload{Query: "x"}, mode.Mode("fuzzy"))
	if !errors.Is(err, domain.ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
	if r.calls != 0 {
		t.Fatal("retriever must not be called")
	}
}

func TestQuery_Unfiltered_IgnoresCompany(t *testing.T) {
	r := &mockRetriever{nodes: sampleNodes()}
	svc := newTestService(r, &recordingSleeper{})

	res, err := svc.Query(context.Background(), &payload.Payload{Query: "growth"}, mode.Unfiltered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Records) != 4 || res.Retrieved != 4 {
		t.Fatalf("expected 4 records, got %d", len(res.Records))
	}
	if res.Company != "" || res.Message != "" {
		t.Errorf("unfiltered result must not carry company or message: %+v", res)
	}
	if res.Records[0].Text != "Blue Ocean raised a round" || res.Records[3].Text != "Other" {
		t.Error("records must keep retrieval order")
	}
}

// --- Filtering ---

func TestQuery_Filtered_MatchesVariantsInOrder(t *testing.T) {
	r := &mockRetriever{nodes: sampleNodes()}
	svc := newTestService(r, &recordingSleeper{})

	res, err := svc.Query(context.Background(), &payload.Payload{Query: "growth", Company: "Blue Ocean"}, mode.Filtered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Company != "Blue Ocean" {
		t.Errorf("expected company echoed, got %q", res.Company)
	}
	want := []string{"Blue Ocean raised a round", "Portfolio review", "Other"}
	if len(res.Records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(res.Records))
	}
	for i, w := range want {
		if res.Records[i].Text != w {
			t.Errorf("record[%d] = %q, want %q", i, res.Records[i].Text, w)
		}
	}
	if res.Message != "" {
		t.Errorf("unexpected message %q", res.Message)
	}
	if res.Retrieved != 4 {
		t.Errorf("expected 4 retrieved, got %d", res.Retrieved)
	}
}

func TestQuery_Filtered_NoMatches(t *testing.T) {
	r := &mockRetriever{nodes: sampleNodes()}
	svc := newTestService(r, &recordingSleeper{})

	res, err := svc.Query(context.Background(), &payload.Payload{Query: "growth", Company: "Zeta"}, mode.Filtered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Records == nil || len(res.Records) != 0 {
		t.Fatalf("expected empty non-nil records, got %#v", res.Records)
	}
	if res.Message != "No relevant chunks found for 'Zeta'." {
		t.Errorf("unexpected message %q", res.Message)
	}
}

func TestQuery_Filtered_EchoesCompanyAsSent(t *testing.T) {
	r := &mockRetriever{nodes: sampleNodes()}
	svc := newTestService(r, &recordingSleeper{})

	res, err := svc.Query(context.Background(), &payload.Payload{Query: "growth", Company: " Blue Ocean "}, mode.Filtered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Company != " Blue Ocean " {
		t.Errorf("expected company echoed untrimmed, got %q", res.Company)
	}
	if len(res.Records) != 3 {
		t.Errorf("expected 3 matches with trimmed variants, got %d", len(res.Records))
	}

	res, err = svc.Query(context.Background(), &payload.Payload{Query: "growth", Company: " Zeta "}, mode.Filtered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "No relevant chunks found for ' Zeta '." {
		t.Errorf("unexpected message %q", res.Message)
	}
}

func TestQuery_Filtered_CompanyPriority(t *testing.T) {
	r := &mockRetriever{nodes: sampleNodes()}
	svc := newTestService(r, &recordingSleeper{})

	p := &payload.Payload{
		Query:      "growth",
		Filters:    &payload.FilterGroup{Filters: []payload.Filter{{Key: "company", Value: "Blue Ocean"}}},
		PreFilters: &payload.FilterGroup{Filters: []payload.Filter{{Key: "company", Value: "Zeta"}}},
		Company:    "Acme",
	}
	res, err := svc.Query(context.Background(), p, mode.Filtered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Company != "Blue Ocean" {
		t.Errorf("filters value must win, got %q", res.Company)
	}
}

// --- Retry ---

func TestQuery_RetriesExhausted(t *testing.T) {
	r := &mockRetriever{errs: []error{readTimeout(), remoteProtocol(), readTimeout()}}
	sl := &recordingSleeper{}
	svc := newTestService(r, sl)

	_, err := svc.Query(context.Background(), &payload.Payload{Query: "growth", Company: "Acme"}, mode.Filtered)
	if !errors.Is(err, domain.ErrRetrievalExhausted) {
		t.Fatalf("expected ErrRetrievalExhausted, got %v", err)
	}
	if r.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", r.calls)
	}
	if len(sl.delays) != 2 {
		t.Fatalf("expected exactly 2 delays, got %d", len(sl.delays))
	}
	for _, d := range sl.delays {
		if d != 2*time.Second {
			t.Errorf("expected fixed 2s backoff, got %v", d)
		}
	}
	if err.Error() != "Llama Cloud connection failed: timed out" {
		t.Errorf("unexpected message %q", err.Error())
	}

	var ex *domain.ExhaustedError
	if !errors.As(err, &ex) || ex.Attempts != 3 {
		t.Errorf("expected ExhaustedError with 3 attempts, got %#v", err)
	}
}

func TestQuery_RecoversAfterOneFault(t *testing.T) {
	r := &mockRetriever{errs: []error{remoteProtocol()}, nodes: sampleNodes()}
	sl := &recordingSleeper{}
	svc := newTestService(r, sl)

	res, err := svc.Query(context.Background(), &payload.Payload{Query: "growth"}, mode.Unfiltered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Records) != 4 {
		t.Errorf("expected results of the second attempt, got %d", len(res.Records))
	}
	if r.calls != 2 || len(sl.delays) != 1 {
		t.Errorf("expected 2 attempts and 1 delay, got %d and %d", r.calls, len(sl.delays))
	}
}

func TestQuery_NonTransientNotRetried(t *testing.T) {
	authErr := errors.New("401 Unauthorized")
	r := &mockRetriever{errs: []error{authErr}}
	sl := &recordingSleeper{}
	svc := newTestService(r, sl)

	_, err := svc.Query(context.Background(), &payload.Payload{Query: "growth"}, mode.Unfiltered)
	if !errors.Is(err, authErr) {
		t.Fatalf("expected original error, got %v", err)
	}
	if errors.Is(err, domain.ErrRetrievalExhausted) {
		t.Error("non-transient error must not be reported as exhausted")
	}
	if r.calls != 1 || len(sl.delays) != 0 {
		t.Errorf("expected 1 attempt and no delay, got %d and %d", r.calls, len(sl.delays))
	}
}

func TestQuery_BackoffCancelled(t *testing.T) {
	r := &mockRetriever{errs: []error{readTimeout(), readTimeout(), readTimeout()}}
	sl := &recordingSleeper{err: context.Canceled}
	svc := newTestService(r, sl)

	_, err := svc.Query(context.Background(), &payload.Payload{Query: "growth"}, mode.Unfiltered)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if r.calls != 1 {
		t.Errorf("expected to stop after the first attempt, got %d", r.calls)
	}
}

func TestQuery_SingleAttemptConfig(t *testing.T) {
	r := &mockRetriever{errs: []error{readTimeout()}}
	sl := &recordingSleeper{}
	svc := New(r, Options{MaxAttempts: 1, Backoff: time.Second, Sleep: sl.sleep}, nil)

	_, err := svc.Query(context.Background(), &payload.Payload{Query: "growth"}, mode.Unfiltered)
	if !errors.Is(err, domain.ErrRetrievalExhausted) {
		t.Fatalf("expected exhausted, got %v", err)
	}
	if len(sl.delays) != 0 {
		t.Errorf("expected no delay, got %d", len(sl.delays))
	}
}

func TestSleepCtx(t *testing.T) {
	if err := sleepCtx(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sleepCtx(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	svc := New(&mockRetriever{}, Options{}, nil)
	if svc.maxAttempts != 3 || svc.backoff != 2*time.Second {
		t.Errorf("unexpected defaults: attempts=%d backoff=%v", svc.maxAttempts, svc.backoff)
	}
	if svc.sleep == nil || svc.logger == nil {
		t.Error("expected default sleep and logger")
	}
}
