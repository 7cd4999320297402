package results

import (
	"encoding/json"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
)

// JSON renders the SPARQL 1.1 JSON results format.
// https://www.w3.org/TR/sparql11-results-json/
type JSON struct{}

func (JSON) ContentType() string { return "application/sparql-results+json; charset=utf-8" }

type jsonDocument struct {
	Head    jsonHead     `json:"head"`
	Results jsonBindings `json:"results"`
}

type jsonHead struct {
	Vars []string `json:"vars"`
}

type jsonBindings struct {
	Bindings []map[string]jsonValue `json:"bindings"`
}

type jsonValue struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	XMLLang  string `json:"xml:lang,omitempty"`
}

func (JSON) Format(s *Solutions) ([]byte, error) {
	doc := jsonDocument{
		Head:    jsonHead{Vars: s.Vars},
		Results: jsonBindings{Bindings: make([]map[string]jsonValue, 0, len(s.Rows))},
	}
	if doc.Head.Vars == nil {
		doc.Head.Vars = []string{}
	}

	for _, row := range s.Rows {
		binding := make(map[string]jsonValue, len(s.Vars))
		for i, name := range s.Vars {
			if i >= len(row) || row[i] == nil {
				continue
			}
			binding[name] = encodeJSONValue(row[i])
		}
		doc.Results.Bindings = append(doc.Results.Bindings, binding)
	}

	return json.MarshalIndent(doc, "", "  ")
}

func encodeJSONValue(term rdf.Term) jsonValue {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return jsonValue{Type: "uri", Value: t.IRI}
	case *rdf.BlankNode:
		return jsonValue{Type: "bnode", Value: t.ID}
	case *rdf.Literal:
		v := jsonValue{Type: "literal", Value: t.Value}
		if t.Language != "" {
			v.XMLLang = t.Language
		} else if t.Datatype != nil {
			v.Datatype = t.Datatype.IRI
		}
		return v
	default:
		return jsonValue{Type: "literal", Value: term.String()}
	}
}
