package results

import (
	"bytes"
	"encoding/xml"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
)

// XML renders the SPARQL 1.1 XML results format.
// https://www.w3.org/TR/rdf-sparql-XMLres/
type XML struct{}

func (XML) ContentType() string { return "application/sparql-results+xml; charset=utf-8" }

type xmlDocument struct {
	XMLName xml.Name     `xml:"sparql"`
	XMLNS   string       `xml:"xmlns,attr"`
	Head    xmlHead      `xml:"head"`
	Results xmlResultSet `xml:"results"`
}

type xmlHead struct {
	Variables []xmlVariable `xml:"variable"`
}

type xmlVariable struct {
	Name string `xml:"name,attr"`
}

type xmlResultSet struct {
	Results []xmlResult `xml:"result"`
}

type xmlResult struct {
	Bindings []xmlBinding `xml:"binding"`
}

type xmlBinding struct {
	Name    string      `xml:"name,attr"`
	URI     string      `xml:"uri,omitempty"`
	BNode   string      `xml:"bnode,omitempty"`
	Literal *xmlLiteral `xml:"literal,omitempty"`
}

type xmlLiteral struct {
	Lang     string `xml:"xml:lang,attr,omitempty"`
	Datatype string `xml:"datatype,attr,omitempty"`
	Value    string `xml:",chardata"`
}

func (XML) Format(s *Solutions) ([]byte, error) {
	doc := xmlDocument{XMLNS: "http://www.w3.org/2005/sparql-results#"}
	for _, name := range s.Vars {
		doc.Head.Variables = append(doc.Head.Variables, xmlVariable{Name: name})
	}

	for _, row := range s.Rows {
		var result xmlResult
		for i, name := range s.Vars {
			if i >= len(row) || row[i] == nil {
				continue
			}
			result.Bindings = append(result.Bindings, encodeXMLBinding(name, row[i]))
		}
		doc.Results.Results = append(doc.Results.Results, result)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func encodeXMLBinding(name string, term rdf.Term) xmlBinding {
	b := xmlBinding{Name: name}
	switch t := term.(type) {
	case *rdf.NamedNode:
		b.URI = t.IRI
	case *rdf.BlankNode:
		b.BNode = t.ID
	case *rdf.Literal:
		lit := &xmlLiteral{Value: t.Value, Lang: t.Language}
		if t.Language == "" && t.Datatype != nil {
			lit.Datatype = t.Datatype.IRI
		}
		b.Literal = lit
	default:
		b.Literal = &xmlLiteral{Value: term.String()}
	}
	return b
}
