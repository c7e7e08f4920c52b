package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/recetario/recetario/internal/metrics"
	"github.com/recetario/recetario/internal/recetario"
	"github.com/recetario/recetario/internal/server"
	"github.com/recetario/recetario/internal/store"
	"github.com/recetario/recetario/internal/store/memstore"
)

type response struct {
	Data   map[string]json.RawMessage
	Errors []struct {
		Message    string
		Path       []interface{}
		Extensions map[string]interface{}
	}
}

func newServer(t *testing.T, s store.Store, logger *zap.Logger, opt server.Options) http.Handler {
	t.Helper()
	if logger == nil {
		logger = zap.NewNop()
	}
	schema, err := recetario.NewSchema(s, logger)
	require.NoError(t, err)
	return server.New(schema, s, logger, opt)
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, response) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var resp response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func postJSON(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRequestEncodings(t *testing.T) {
	s := memstore.New()
	require.NoError(t, s.InsertAuthor(context.Background(), &store.Author{Name: "Ana", Email: "ana@example.com"}))
	h := newServer(t, s, nil, server.Options{})

	form := url.Values{"query": {`query($all: Boolean!) { getAuthors @include(if: $all) { name } }`}, "variables": {`{"all": true}`}}
	formReq := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	formReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	gqlReq := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{ getAuthors { name } }`))
	gqlReq.Header.Set("Content-Type", "application/graphql")

	tests := map[string]*http.Request{
		"get":              httptest.NewRequest(http.MethodGet, "/?query="+url.QueryEscape(`{ getAuthors { name } }`), nil),
		"json":             postJSON(`{"query": "{ getAuthors { name } }"}`),
		"json charset":     postJSON(`{"query": "{ getAuthors { name } }"}`),
		"string variables": postJSON(`{"query": "query($all: Boolean!) { getAuthors @include(if: $all) { name } }", "variables": "{\"all\": true}"}`),
		"get variables": httptest.NewRequest(http.MethodGet, "/?"+url.Values{
			"query":     {`query($all: Boolean!) { getAuthors @include(if: $all) { name } }`},
			"variables": {`{"all": true}`},
		}.Encode(), nil),
		"graphql":          gqlReq,
		"form":             formReq,
	}
	tests["json charset"].Header.Set("Content-Type", "application/json; charset=utf-8")

	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			w, resp := do(t, h, req)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Empty(t, resp.Errors)
			assert.JSONEq(t, `[{"name": "Ana"}]`, string(resp.Data["getAuthors"]))
		})
	}
}

func TestVariablesReachTheQuery(t *testing.T) {
	s := memstore.New()
	require.NoError(t, s.InsertAuthor(context.Background(), &store.Author{Name: "Ana", Email: "ana@example.com"}))
	h := newServer(t, s, nil, server.Options{})

	const query = `query($all: Boolean!) { getAuthors @include(if: $all) { name } }`
	form := url.Values{"query": {query}, "variables": {`{"all": false}`}}
	formReq := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	formReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	tests := map[string]*http.Request{
		"form":             formReq,
		"string variables": postJSON(`{"query": "` + query + `", "variables": "{\"all\": false}"}`),
		"object variables": postJSON(`{"query": "` + query + `", "variables": {"all": false}}`),
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			w, resp := do(t, h, req)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Empty(t, resp.Errors)
			_, ok := resp.Data["getAuthors"]
			assert.False(t, ok)
		})
	}

	_, resp := do(t, h, postJSON(`{"query": "`+query+`"}`))
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Message, "all")
}

func TestMutationOverHTTP(t *testing.T) {
	s := memstore.New()
	h := newServer(t, s, nil, server.Options{})

	w, resp := do(t, h, postJSON(`{
		"query": "mutation Add($name: String!, $email: String!) { addAuthor(name: $name, email: $email) { name email } }",
		"operationName": "Add",
		"variables": {"name": "Ana", "email": "ana@example.com"}
	}`))
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"name": "Ana", "email": "ana@example.com"}`, string(resp.Data["addAuthor"]))

	authors, err := s.Authors(context.Background())
	require.NoError(t, err)
	require.Len(t, authors, 1)
	assert.Equal(t, "Ana", authors[0].Name)
}

func TestBadRequests(t *testing.T) {
	h := newServer(t, memstore.New(), nil, server.Options{})

	tests := map[string]struct {
		req    *http.Request
		status int
	}{
		"missing query":   {httptest.NewRequest(http.MethodGet, "/", nil), http.StatusBadRequest},
		"empty json":      {postJSON(`{}`), http.StatusBadRequest},
		"invalid json":    {postJSON(`{"query": `), http.StatusBadRequest},
		"bad variables":   {httptest.NewRequest(http.MethodGet, "/?query=%7Bx%7D&variables=nope", nil), http.StatusBadRequest},
		"method":          {httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{}`)), http.StatusMethodNotAllowed},
		"unknown content": {func() *http.Request { r := postJSON(`{}`); r.Header.Set("Content-Type", "text/plain"); return r }(), http.StatusBadRequest},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w, resp := do(t, h, tt.req)
			assert.Equal(t, tt.status, w.Code)
			require.Len(t, resp.Errors, 1)
			assert.NotEmpty(t, resp.Errors[0].Message)
		})
	}
}

func TestUnknownPath(t *testing.T) {
	h := newServer(t, memstore.New(), nil, server.Options{})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope?query=%7BgetAuthors%7Bname%7D%7D", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCustomEndpoint(t *testing.T) {
	h := newServer(t, memstore.New(), nil, server.Options{Endpoint: "/graphql"})

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query": "{ getAuthors { name } }"}`))
	w, resp := do(t, h, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(resp.Data["getAuthors"]))

	w, _ = do(t, h, postJSON(`{"query": "{ getAuthors { name } }"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPlayground(t *testing.T) {
	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Accept", "text/html,application/xhtml+xml")
		return r
	}

	h := newServer(t, memstore.New(), nil, server.Options{Playground: true})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "GraphQLPlayground.init")
	assert.Contains(t, w.Body.String(), "<title>Recetario</title>")

	h = newServer(t, memstore.New(), nil, server.Options{Playground: true, Endpoint: "/graphql"})
	w = httptest.NewRecorder()
	r := req()
	r.URL.Path = "/graphql"
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Regexp(t, `endpoint: window\.location\.origin \+ '\\?/graphql'`, w.Body.String())

	h = newServer(t, memstore.New(), nil, server.Options{Playground: false})
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestID(t *testing.T) {
	h := newServer(t, memstore.New(), nil, server.Options{})

	w1, _ := do(t, h, postJSON(`{"query": "{ getAuthors { name } }"}`))
	w2, _ := do(t, h, postJSON(`{"query": "{ getAuthors { name } }"}`))

	id1 := w1.Header().Get(server.RequestIDHeader)
	id2 := w2.Header().Get(server.RequestIDHeader)
	_, err := ksuid.Parse(id1)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

type brokenStore struct {
	*memstore.Store
}

var errDown = errors.New("connection refused")

func (brokenStore) Authors(context.Context) ([]*store.Author, error) { return nil, errDown }
func (brokenStore) Ping(context.Context) error                       { return errDown }

func TestStoreFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := newServer(t, brokenStore{memstore.New()}, zap.New(core), server.Options{})

	w, resp := do(t, h, postJSON(`{"query": "{ getAuthors { name } }"}`))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, recetario.CodeInternal, resp.Errors[0].Extensions["code"])
	assert.Equal(t, []interface{}{"getAuthors"}, resp.Errors[0].Path)
	assert.Contains(t, resp.Errors[0].Message, "connection refused")

	failed := logs.FilterMessage("store call failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, w.Header().Get(server.RequestIDHeader), failed[0].ContextMap()["request_id"])
	assert.Equal(t, "getAuthors", failed[0].ContextMap()["op"])
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	newServer(t, memstore.New(), nil, server.Options{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	newServer(t, brokenStore{memstore.New()}, nil, server.Options{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	h := newServer(t, memstore.New(), nil, server.Options{Metrics: m})

	do(t, h, postJSON(`{"query": "{ getAuthors { name } }"}`))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `recetario_http_requests_total{code="200",method="post"} 1`)
}

func TestCORS(t *testing.T) {
	preflight := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodOptions, "/", nil)
		r.Header.Set("Origin", origin)
		r.Header.Set("Access-Control-Request-Method", "POST")
		r.Header.Set("Access-Control-Request-Headers", "content-type")
		return r
	}

	t.Run("wildcard", func(t *testing.T) {
		h := newServer(t, memstore.New(), nil, server.Options{CORSOrigins: []string{"*"}})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, preflight("https://app.example.com"))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "content-type", w.Header().Get("Access-Control-Allow-Headers"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	})

	t.Run("listed origin", func(t *testing.T) {
		h := newServer(t, memstore.New(), nil, server.Options{CORSOrigins: []string{"https://app.example.com"}})

		req := postJSON(`{"query": "{ getAuthors { name } }"}`)
		req.Header.Set("Origin", "https://app.example.com")
		w, _ := do(t, h, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))

		w = httptest.NewRecorder()
		h.ServeHTTP(w, preflight("https://evil.example.com"))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("disabled", func(t *testing.T) {
		h := newServer(t, memstore.New(), nil, server.Options{})
		req := postJSON(`{"query": "{ getAuthors { name } }"}`)
		req.Header.Set("Origin", "https://app.example.com")
		w, _ := do(t, h, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
