package eval

import (
	"fmt"
	"strings"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// Accumulator computes one aggregate function over the rows of one group.
// The aggregation operator creates one accumulator per (group, aggregate
// expression) pair, feeds it one value per row, and reads the result when the
// group ends.
type Accumulator struct {
	fn       query.AggregateFunc
	distinct bool
	sep      string

	count   int64
	sum     float64
	numeric bool // all stepped values were numeric
	minTerm rdf.Term
	maxTerm rdf.Term
	sample  rdf.Term
	parts   []string
	seen    map[string]bool
}

// NewAccumulator creates an accumulator for the given aggregate expression.
func NewAccumulator(agg *query.AggregateExpression) *Accumulator {
	a := &Accumulator{
		fn:       agg.Function,
		distinct: agg.Distinct,
		sep:      agg.Separator,
		numeric:  true,
	}
	if a.sep == "" {
		a.sep = " "
	}
	if a.distinct {
		a.seen = make(map[string]bool)
	}
	return a
}

// StepRow counts one row regardless of any argument value. Used for COUNT(*).
func (a *Accumulator) StepRow() {
	a.count++
}

// Step feeds one evaluated argument value. Unbound or failed evaluations pass
// nil, which every aggregate skips.
func (a *Accumulator) Step(t rdf.Term) {
	if t == nil {
		return
	}
	if a.distinct {
		key := t.String()
		if a.seen[key] {
			return
		}
		a.seen[key] = true
	}

	a.count++

	if lit, ok := t.(*rdf.Literal); ok {
		if v, ok := lit.NumericValue(); ok {
			a.sum += v
		} else {
			a.numeric = false
		}
		a.parts = append(a.parts, lit.Value)
	} else {
		a.numeric = false
		a.parts = append(a.parts, t.String())
	}

	if a.minTerm == nil || rdf.Compare(t, a.minTerm) < 0 {
		a.minTerm = t
	}
	if a.maxTerm == nil || rdf.Compare(t, a.maxTerm) > 0 {
		a.maxTerm = t
	}
	if a.sample == nil {
		a.sample = t
	}
}

// Result returns the aggregate value for the finished group.
func (a *Accumulator) Result() (rdf.Term, error) {
	switch a.fn {
	case query.AggCount:
		return rdf.NewIntegerLiteral(a.count), nil
	case query.AggSum:
		if !a.numeric {
			return nil, fmt.Errorf("SUM over non-numeric values")
		}
		return numericResult(a.sum), nil
	case query.AggAvg:
		if !a.numeric {
			return nil, fmt.Errorf("AVG over non-numeric values")
		}
		if a.count == 0 {
			return rdf.NewIntegerLiteral(0), nil
		}
		return rdf.NewDoubleLiteral(a.sum / float64(a.count)), nil
	case query.AggMin:
		if a.minTerm == nil {
			return nil, fmt.Errorf("MIN over empty group")
		}
		return a.minTerm, nil
	case query.AggMax:
		if a.maxTerm == nil {
			return nil, fmt.Errorf("MAX over empty group")
		}
		return a.maxTerm, nil
	case query.AggSample:
		if a.sample == nil {
			return nil, fmt.Errorf("SAMPLE over empty group")
		}
		return a.sample, nil
	case query.AggGroupConcat:
		return rdf.NewLiteral(strings.Join(a.parts, a.sep)), nil
	default:
		return nil, fmt.Errorf("unsupported aggregate: %s", a.fn)
	}
}

// numericResult keeps integer sums integral.
func numericResult(v float64) rdf.Term {
	if v == float64(int64(v)) {
		return rdf.NewIntegerLiteral(int64(v))
	}
	return rdf.NewDoubleLiteral(v)
}
