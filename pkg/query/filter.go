package query

import (
	"github.com/ssargent/dltview/pkg/codec"
	"github.com/ssargent/dltview/pkg/store"
)

// Filter selects records that satisfy every one of its queries. A nil or
// empty Filter matches everything.
type Filter struct {
	Queries   []FieldQuery
	Extractor FieldExtractor
}

// ParseFilter parses each expression with ParseFieldQuery. It returns nil
// when exprs is empty.
func ParseFilter(exprs []string) (*Filter, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	f := &Filter{Extractor: &RecordFieldExtractor{}}
	for _, expr := range exprs {
		q, err := ParseFieldQuery(expr)
		if err != nil {
			return nil, err
		}
		f.Queries = append(f.Queries, q)
	}
	return f, nil
}

// Match reports whether rec satisfies all queries.
func (f *Filter) Match(rec *codec.Record) bool {
	if f == nil {
		return true
	}
	extractor := f.Extractor
	if extractor == nil {
		extractor = &RecordFieldExtractor{}
	}
	for i := range f.Queries {
		if !f.Queries[i].Match(rec, extractor) {
			return false
		}
	}
	return true
}

// Iterator wraps it so that only matching records are returned.
func (f *Filter) Iterator(it store.RecordIterator) store.RecordIterator {
	if f == nil {
		return it
	}
	return &filterIterator{it: it, filter: f}
}

// filterIterator implements store.RecordIterator over another iterator
type filterIterator struct {
	it     store.RecordIterator
	filter *Filter
}

func (fi *filterIterator) Next() bool {
	for fi.it.Next() {
		if fi.filter.Match(fi.it.Record()) {
			return true
		}
	}
	return false
}

func (fi *filterIterator) Record() *codec.Record { return fi.it.Record() }

func (fi *filterIterator) Err() error { return fi.it.Err() }

func (fi *filterIterator) Close() error { return fi.it.Close() }
