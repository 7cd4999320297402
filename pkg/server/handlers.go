package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aleksaelezovic/quercus/internal/rdfio"
	"github.com/aleksaelezovic/quercus/pkg/server/results"
	"github.com/aleksaelezovic/quercus/pkg/sparql/engine"
)

// handleRoot serves a minimal landing page naming the endpoint.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	count, _ := s.store.Count()
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Quercus SPARQL Endpoint</title></head>
<body>
<h1>Quercus</h1>
<p>SPARQL endpoint: <code>%s://%s/sparql</code> (GET ?query=... or POST)</p>
<p>Data upload: <code>POST %s://%s/data</code> with an RDF content type</p>
<p>Stored quads: %d</p>
</body>
</html>
`, scheme, r.Host, scheme, r.Host, count)
}

// handleQuery implements the SPARQL 1.1 protocol query operation.
// https://www.w3.org/TR/sparql11-protocol/
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	allowCORS(w, "GET, POST, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	queryText, ok := s.extractQuery(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, err := engine.Run(queryText, s.store, s.service, s.log)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("query failed: %v", err))
		return
	}
	s.log.WithFields(map[string]any{
		"rows":    len(result.Rows),
		"elapsed": time.Since(start),
	}).Debug("query served")

	formatter := results.Negotiate(r.Header.Get("Accept"))
	data, err := formatter.Format(results.FromResult(result))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("formatting failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", formatter.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// extractQuery pulls the query string out of a GET parameter, a form body,
// or a raw application/sparql-query body.
func (s *Server) extractQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	var queryText string

	switch r.Method {
	case http.MethodGet:
		queryText = r.URL.Query().Get("query")

	case http.MethodPost:
		contentType := r.Header.Get("Content-Type")
		switch {
		case strings.Contains(contentType, "application/x-www-form-urlencoded"):
			if err := r.ParseForm(); err != nil {
				s.writeError(w, http.StatusBadRequest, "cannot parse form body")
				return "", false
			}
			queryText = r.FormValue("query")
		default:
			// application/sparql-query, or a bare body.
			body, err := io.ReadAll(r.Body)
			if err != nil {
				s.writeError(w, http.StatusBadRequest, "cannot read request body")
				return "", false
			}
			queryText = string(body)
		}

	default:
		s.writeError(w, http.StatusMethodNotAllowed, "use GET or POST")
		return "", false
	}

	if strings.TrimSpace(queryText) == "" {
		s.writeError(w, http.StatusBadRequest, "missing 'query' parameter")
		return "", false
	}
	return queryText, true
}

// handleDataUpload bulk-loads RDF documents into the store.
func (s *Server) handleDataUpload(w http.ResponseWriter, r *http.Request) {
	allowCORS(w, "POST, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	contentType := r.Header.Get("Content-Type")
	decoder, err := rdfio.ForContentType(contentType)
	if err != nil {
		s.writeError(w, http.StatusUnsupportedMediaType,
			fmt.Sprintf("unsupported content type %q, supported: %v", contentType, rdfio.ContentTypes()))
		return
	}

	start := time.Now()
	quads, err := decoder.Decode(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("parse failed: %v", err))
		return
	}
	if err := s.store.InsertQuads(quads); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("insert failed: %v", err))
		return
	}
	elapsed := time.Since(start)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"inserted":   len(quads),
		"durationMs": elapsed.Milliseconds(),
	})
}

func allowCORS(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
}
