package collection

import (
	"context"
	"time"
)

// Query creates a fluent search builder over vector. Sugar over Search; the
// Search method remains the primary entry point (spec §4.8).
//
// Example:
//
//	hits, err := c.Query(vec).
//	    KNN(10).
//	    Where(MetadataFilter{Key: "source", Op: "==", Value: "notion"}).
//	    CreatedBetween(start, end).
//	    Execute()
func (c *Collection) Query(vector []float32) *SearchBuilder {
	return &SearchBuilder{c: c, vector: vector, k: 10}
}

// QueryText is the text-embedding counterpart of Query, using the
// collection's configured embedder.
func (c *Collection) QueryText(ctx context.Context, text string) *SearchBuilder {
	return &SearchBuilder{c: c, ctx: ctx, text: text, hasText: true, k: 10}
}

// SearchBuilder is a fluent builder over Collection.Search/SearchAsync.
type SearchBuilder struct {
	c *Collection

	vector  []float32
	ctx     context.Context
	text    string
	hasText bool

	k        int
	filters  []MetadataFilter
	created  *DateRange
	modified *DateRange
}

// KNN sets the number of nearest neighbours to return.
func (sb *SearchBuilder) KNN(k int) *SearchBuilder {
	sb.k = k
	return sb
}

// Where appends a metadata predicate, conjoined with every other filter.
func (sb *SearchBuilder) Where(f MetadataFilter) *SearchBuilder {
	sb.filters = append(sb.filters, f)
	return sb
}

// CreatedBetween restricts results to documents created within [start, end].
func (sb *SearchBuilder) CreatedBetween(start, end time.Time) *SearchBuilder {
	sb.created = &DateRange{Start: start, End: end}
	return sb
}

// ModifiedBetween restricts results to documents modified within [start, end].
func (sb *SearchBuilder) ModifiedBetween(start, end time.Time) *SearchBuilder {
	sb.modified = &DateRange{Start: start, End: end}
	return sb
}

// Execute runs the search and returns the results.
func (sb *SearchBuilder) Execute() ([]SearchHit, error) {
	if sb.hasText {
		return sb.c.SearchAsync(sb.ctx, sb.text, sb.k, sb.filters, sb.created, sb.modified)
	}
	return sb.c.Search(sb.vector, sb.k, sb.filters, sb.created, sb.modified)
}

// First runs the search with k forced to 1, overriding any KNN value, and
// returns that single hit, or ErrNotFound if it does not pass the filters.
// A matching document further from the query is not returned.
func (sb *SearchBuilder) First() (SearchHit, error) {
	sb.k = 1
	hits, err := sb.Execute()
	if err != nil {
		return SearchHit{}, err
	}
	if len(hits) == 0 {
		return SearchHit{}, ErrNotFound
	}
	return hits[0], nil
}
