package thematicbeast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// newFakeLlamaCloud serves project/pipeline lookup and a fixed retrieval.
func newFakeLlamaCloud(t *testing.T, retrieves *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/projects", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]string{{"id": "p1", "name": "The BEAST"}})
	})
	mux.HandleFunc("GET /api/v1/pipelines", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]string{{"id": "pl1", "name": r.URL.Query().Get("pipeline_name")}})
	})
	mux.HandleFunc("POST /api/v1/pipelines/pl1/retrieve", func(w http.ResponseWriter, _ *http.Request) {
		retrieves.Add(1)
		_, _ = w.Write([]byte(`{"retrieval_nodes":[
			{"node":{"text":"Blue Ocean closes fund","metadata":{"file_name":"bo.pdf","web_url":"https://sp/bo.pdf"}},"score":0.7},
			{"node":{"text":"Rates outlook","metadata":{"document_title":"Macro"}},"score":0.3}
		]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_NoAPIKey(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatal("expected error when no API key provided")
	}
}

func TestNew_InvalidMode(t *testing.T) {
	_, err := New(WithAPIKey("llx"), WithMode("fuzzy"))
	if !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "unknown", addrs: []string{"localhost:1234"}}
	if _, err := createStore(cfg); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestClient_QueryFiltered(t *testing.T) {
	var retrieves atomic.Int32
	srv := newFakeLlamaCloud(t, &retrieves)

	c, err := New(WithAPIKey("llx"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	resp, err := c.Query(context.Background(), Request{Query: "funds", Company: "Blue Ocean"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.Company != "Blue Ocean" || len(resp.Results) != 1 || resp.Retrieved != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Results[0].FileName != "bo.pdf" || resp.Results[0].WebURL != "https://sp/bo.pdf" {
		t.Errorf("unexpected result: %+v", resp.Results[0])
	}
}

func TestClient_QueryUnfilteredOverride(t *testing.T) {
	var retrieves atomic.Int32
	srv := newFakeLlamaCloud(t, &retrieves)

	c, err := New(WithAPIKey("llx"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	resp, err := c.Query(context.Background(), Request{Query: "rates", Mode: "unfiltered"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(resp.Results) != 2 || resp.Results[1].FileName != "Macro" || resp.Results[1].WebURL != "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestClient_MissingCompany(t *testing.T) {
	var retrieves atomic.Int32
	srv := newFakeLlamaCloud(t, &retrieves)

	c, err := New(WithAPIKey("llx"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	_, err = c.Query(context.Background(), Request{Query: "funds"})
	if !errors.Is(err, ErrMissingCompany) {
		t.Fatalf("expected ErrMissingCompany, got %v", err)
	}
	if retrieves.Load() != 0 {
		t.Error("retrieval must not be attempted")
	}
}

func TestClient_BoltCache(t *testing.T) {
	var retrieves atomic.Int32
	srv := newFakeLlamaCloud(t, &retrieves)

	c, err := New(
		WithAPIKey("llx"),
		WithBaseURL(srv.URL),
		WithBolt(filepath.Join(t.TempDir(), "cache.db"), time.Minute),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	for i := 0; i < 3; i++ {
		if _, err := c.Query(context.Background(), Request{Query: "funds", Company: "Blue Ocean"}); err != nil {
			t.Fatalf("Query #%d: %v", i, err)
		}
	}
	if retrieves.Load() != 1 {
		t.Errorf("expected one upstream retrieval, got %d", retrieves.Load())
	}
}

func TestClient_Ping(t *testing.T) {
	var retrieves atomic.Int32
	srv := newFakeLlamaCloud(t, &retrieves)

	c, err := New(WithAPIKey("llx"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
