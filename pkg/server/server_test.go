package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	temporal "github.com/semantalytics/jena-temporal"
	"github.com/semantalytics/jena-temporal/pkg/config"
	"github.com/semantalytics/jena-temporal/pkg/entity"
	"github.com/semantalytics/jena-temporal/pkg/index"
	"github.com/semantalytics/jena-temporal/pkg/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	def := entity.NewDefinition("uri", "text")
	def.GraphField = "graph"
	def.LangField = "lang"
	def.UIDField = "uid"
	def.Map("http://example/label", "text")

	idx, err := index.Open(index.Options{InMemory: true, Definition: def})
	require.NoError(t, err)

	ds, err := temporal.New(temporal.Options{
		Store:      store.NewMemStore(nil),
		Index:      idx,
		Definition: def,
		CloseIndex: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })

	cfg := &config.Config{}
	cfg.Server.Mode = "test"

	srv := New(cfg, ds, nil)
	srv.Setup()
	return srv
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/health", "/live", "/ready"} {
		w := do(t, srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestQuadIngestAndSearch(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/api/v1/quads", []handlersQuad{
		{Subject: "http://example/s", Predicate: "http://example/label", Object: "hello world"},
		{Subject: "http://example/t", Predicate: "http://example/label", Object: "something else"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, srv, http.MethodPost, "/api/v1/search", map[string]any{"query": "hello"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Hits []struct {
			Subject string `json:"subject"`
		} `json:"hits"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "http://example/s", resp.Hits[0].Subject)
}

func TestSearchGetParams(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/api/v1/quads", []handlersQuad{
		{Subject: "http://example/en", Predicate: "http://example/label", Object: "gift", Lang: "en"},
		{Subject: "http://example/de", Predicate: "http://example/label", Object: "gift", Lang: "de"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, srv, http.MethodGet, "/api/v1/search?q=gift&lang=de", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}

func TestSearchMalformedQuery(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/api/v1/search", map[string]any{"query": "[[malformed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Escaped, the same input is plain text.
	w = do(t, srv, http.MethodPost, "/api/v1/search", map[string]any{"query": "[[malformed", "escape": true})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestQuadDelete(t *testing.T) {
	srv := newTestServer(t)

	q := handlersQuad{Subject: "http://example/s", Predicate: "http://example/label", Object: "transient"}
	w := do(t, srv, http.MethodPost, "/api/v1/quads", []handlersQuad{q})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, srv, http.MethodDelete, "/api/v1/quads", []handlersQuad{q})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, srv, http.MethodGet, "/api/v1/search?q=transient", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
}

func TestQuadValidation(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/api/v1/quads", []handlersQuad{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodPost, "/api/v1/quads", []map[string]string{{"subject": "http://example/s"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// handlersQuad mirrors the JSON quad shape accepted by the API.
type handlersQuad struct {
	Graph     string `json:"graph,omitempty"`
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	Lang      string `json:"lang,omitempty"`
	Datatype  string `json:"datatype,omitempty"`
}
