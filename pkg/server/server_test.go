package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/quercus/internal/storage"
	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	backing, err := storage.NewInMemoryStorage()
	require.NoError(t, err)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	ts := store.NewTripleStore(backing, log)
	t.Cleanup(func() { _ = ts.Close() })

	dg := rdf.NewDefaultGraph()
	name := rdf.NewNamedNode("http://example.org/name")
	require.NoError(t, ts.InsertQuads([]*rdf.Quad{
		rdf.NewQuad(rdf.NewNamedNode("http://example.org/alice"), name, rdf.NewLiteral("Alice"), dg),
		rdf.NewQuad(rdf.NewNamedNode("http://example.org/bob"), name, rdf.NewLiteral("Bob"), dg),
	}))

	return &Server{store: ts, log: log, addr: "localhost:0"}
}

const selectNames = `
	PREFIX ex: <http://example.org/>
	SELECT ?name WHERE { ?p ex:name ?name } ORDER BY ?name`

type jsonResults struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"bindings"`
	} `json:"results"`
}

func TestHandleQueryGet(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/sparql?query="+url.QueryEscape(selectNames), nil)
	w := httptest.NewRecorder()
	s.handleQuery(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/sparql-results+json")

	var doc jsonResults
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, []string{"name"}, doc.Head.Vars)
	require.Len(t, doc.Results.Bindings, 2)
	assert.Equal(t, "Alice", doc.Results.Bindings[0]["name"].Value)
	assert.Equal(t, "Bob", doc.Results.Bindings[1]["name"].Value)
}

func TestHandleQueryPostForm(t *testing.T) {
	s := newTestServer(t)

	form := url.Values{"query": {selectNames}}
	req := httptest.NewRequest(http.MethodPost, "/sparql", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.handleQuery(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleQueryPostRawBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/sparql", strings.NewReader(selectNames))
	req.Header.Set("Content-Type", "application/sparql-query")
	w := httptest.NewRecorder()
	s.handleQuery(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleQueryContentNegotiation(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/sparql?query="+url.QueryEscape(selectNames), nil)
	req.Header.Set("Accept", "text/csv")
	w := httptest.NewRecorder()
	s.handleQuery(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\r\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "name", lines[0])
	assert.Equal(t, "Alice", lines[1])
}

func TestHandleQueryMissingQuery(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/sparql", nil)
	w := httptest.NewRecorder()
	s.handleQuery(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing")
}

func TestHandleQueryBadQuery(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/sparql?query="+url.QueryEscape("SELECT WHERE"), nil)
	w := httptest.NewRecorder()
	s.handleQuery(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleQueryOptionsPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/sparql", nil)
	w := httptest.NewRecorder()
	s.handleQuery(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandleDataUploadNQuads(t *testing.T) {
	s := newTestServer(t)

	body := `<http://example.org/carol> <http://example.org/name> "Carol" .
`
	req := httptest.NewRequest(http.MethodPost, "/data", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/n-quads")
	w := httptest.NewRecorder()
	s.handleDataUpload(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp["inserted"])

	count, err := s.store.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestHandleDataUploadTurtle(t *testing.T) {
	s := newTestServer(t)

	body := `@prefix ex: <http://example.org/> .
ex:dave ex:name "Dave" ; ex:age 41 .
`
	req := httptest.NewRequest(http.MethodPost, "/data", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/turtle")
	w := httptest.NewRecorder()
	s.handleDataUpload(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp["inserted"])
}

func TestHandleDataUploadRejectsUnknownType(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/data", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.handleDataUpload(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestHandleDataUploadRejectsGet(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/data", nil)
	w := httptest.NewRecorder()
	s.handleDataUpload(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleRoot(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	s.handleRoot(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/sparql")

	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	w = httptest.NewRecorder()
	s.handleRoot(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
