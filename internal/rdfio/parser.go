// Package rdfio decodes RDF documents into quads, dispatching on content
// type or file extension. Turtle and N-Triples statements land in the
// default graph; N-Quads may name their graph.
package rdfio

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aleksaelezovic/quercus/internal/nquads"
	"github.com/aleksaelezovic/quercus/internal/turtle"
	"github.com/aleksaelezovic/quercus/pkg/rdf"
)

// Decoder turns one serialized RDF document into quads.
type Decoder interface {
	Decode(r io.Reader) ([]*rdf.Quad, error)
	ContentType() string
}

// ForContentType returns the decoder for a MIME type, ignoring parameters
// such as charset.
func ForContentType(contentType string) (Decoder, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}

	switch ct {
	case "application/n-quads":
		return nquadsDecoder{}, nil
	case "application/n-triples", "text/plain":
		return turtleDecoder{contentType: "application/n-triples"}, nil
	case "text/turtle", "application/x-turtle":
		return turtleDecoder{contentType: "text/turtle"}, nil
	default:
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}
}

// ForPath returns the decoder implied by a file name extension.
func ForPath(path string) (Decoder, error) {
	switch filepath.Ext(path) {
	case ".nq", ".nquads":
		return nquadsDecoder{}, nil
	case ".nt":
		return turtleDecoder{contentType: "application/n-triples"}, nil
	case ".ttl", ".turtle":
		return turtleDecoder{contentType: "text/turtle"}, nil
	default:
		return nil, fmt.Errorf("cannot infer RDF format from %q", path)
	}
}

// ContentTypes lists every MIME type ForContentType accepts.
func ContentTypes() []string {
	return []string{
		"application/n-quads",
		"application/n-triples",
		"text/turtle",
		"application/x-turtle",
		"text/plain",
	}
}

type nquadsDecoder struct{}

func (nquadsDecoder) ContentType() string { return "application/n-quads" }

func (nquadsDecoder) Decode(r io.Reader) ([]*rdf.Quad, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	quads, err := nquads.NewReader(string(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing N-Quads: %w", err)
	}
	return quads, nil
}

type turtleDecoder struct {
	contentType string
}

func (d turtleDecoder) ContentType() string { return d.contentType }

func (d turtleDecoder) Decode(r io.Reader) ([]*rdf.Quad, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	triples, err := turtle.NewReader(string(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing Turtle: %w", err)
	}
	quads := make([]*rdf.Quad, len(triples))
	for i, tr := range triples {
		quads[i] = rdf.NewQuad(tr.Subject, tr.Predicate, tr.Object, rdf.NewDefaultGraph())
	}
	return quads, nil
}
