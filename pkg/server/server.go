// Package server exposes the query engine over the SPARQL 1.1 protocol:
// query requests on /sparql with content-negotiated result formats, and bulk
// RDF uploads on /data.
package server

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aleksaelezovic/quercus/internal/service"
	"github.com/aleksaelezovic/quercus/pkg/sparql/engine"
	"github.com/aleksaelezovic/quercus/pkg/store"
)

// Server is the HTTP SPARQL endpoint over one triple store.
type Server struct {
	store   *store.TripleStore
	service engine.ServiceClient
	log     *logrus.Logger
	addr    string
}

func NewServer(ts *store.TripleStore, addr string, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	return &Server{
		store:   ts,
		service: service.NewClient(log),
		log:     log,
		addr:    addr,
	}
}

// Start blocks serving HTTP until the listener fails.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/sparql", s.handleQuery)
	mux.HandleFunc("/data", s.handleDataUpload)
	mux.HandleFunc("/", s.handleRoot)

	srv := &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.WithField("addr", s.addr).Info("starting SPARQL endpoint")
	return srv.ListenAndServe()
}
