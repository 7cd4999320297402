// Package service implements the remote endpoint client behind SERVICE
// clauses: it posts a serialized query to a SPARQL endpoint and decodes the
// application/sparql-results+json response.
package service

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
)

const resultsMediaType = "application/sparql-results+json"

// Client queries remote SPARQL endpoints over HTTP. It implements
// engine.ServiceClient.
type Client struct {
	http *http.Client
	log  *logrus.Logger
}

func NewClient(log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.WarnLevel)
	}
	return &Client{
		http: &http.Client{Timeout: 30 * time.Second},
		log:  log,
	}
}

// resultsDocument mirrors the SPARQL 1.1 JSON results format.
type resultsDocument struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]resultTerm `json:"bindings"`
	} `json:"results"`
}

type resultTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Language string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// Query posts queryText to the endpoint and returns the result variable
// names plus one term slice per solution, with nil for unbound slots.
func (c *Client) Query(endpoint, queryText string) ([]string, [][]rdf.Term, error) {
	form := url.Values{"query": {queryText}}

	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, fmt.Errorf("bad service endpoint %q: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", resultsMediaType)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, nil, fmt.Errorf("service endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var doc resultsDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("invalid service response: %w", err)
	}

	rows := make([][]rdf.Term, 0, len(doc.Results.Bindings))
	for _, binding := range doc.Results.Bindings {
		row := make([]rdf.Term, len(doc.Head.Vars))
		for i, name := range doc.Head.Vars {
			rt, ok := binding[name]
			if !ok {
				continue
			}
			term, err := decodeTerm(rt)
			if err != nil {
				return nil, nil, err
			}
			row[i] = term
		}
		rows = append(rows, row)
	}

	c.log.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"rows":     len(rows),
		"elapsed":  time.Since(start),
	}).Debug("service query")

	return doc.Head.Vars, rows, nil
}

func decodeTerm(rt resultTerm) (rdf.Term, error) {
	switch rt.Type {
	case "uri":
		return rdf.NewNamedNode(rt.Value), nil
	case "bnode":
		return rdf.NewBlankNode(rt.Value), nil
	case "literal", "typed-literal":
		if rt.Language != "" {
			return rdf.NewLiteralWithLanguage(rt.Value, rt.Language), nil
		}
		if rt.Datatype != "" {
			return rdf.NewLiteralWithDatatype(rt.Value, rdf.NewNamedNode(rt.Datatype)), nil
		}
		return rdf.NewLiteral(rt.Value), nil
	default:
		return nil, fmt.Errorf("unknown result term type %q", rt.Type)
	}
}
