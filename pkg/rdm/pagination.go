package rdm

import (
	"context"
	"iter"
	"net/url"
	"strconv"
)

// DefaultSort is the sort order used when SearchParams.Sort is empty.
const DefaultSort = "newest"

// DefaultPageSize is the page size used when SearchParams.Size is zero.
const DefaultPageSize = 10

// SearchParams are the query parameters shared by all search endpoints.
type SearchParams struct {
	Query       string
	Page        int
	Size        int
	Sort        string
	AllVersions bool
	// Filters are sent as-is, e.g. {"f": ["resource_type:dataset"]}.
	Filters url.Values
}

// WithDefaults fills in page 1, DefaultPageSize and DefaultSort where unset.
func (p SearchParams) WithDefaults() SearchParams {
	if p.Page == 0 {
		p.Page = 1
	}

	if p.Size == 0 {
		p.Size = DefaultPageSize
	}

	if p.Sort == "" {
		p.Sort = DefaultSort
	}

	return p
}

// WithPage returns a copy of p for another page. The page is not
// bounds-checked.
func (p SearchParams) WithPage(page int) SearchParams {
	p.Page = page

	return p
}

// ToValues converts params to URL query values.
func (p SearchParams) ToValues() url.Values {
	values := url.Values{}

	for key, vals := range p.Filters {
		values[key] = append([]string(nil), vals...)
	}

	values.Set("q", p.Query)
	values.Set("page", strconv.Itoa(p.Page))
	values.Set("size", strconv.Itoa(p.Size))

	if p.Sort != "" {
		values.Set("sort", p.Sort)
	}

	if p.AllVersions {
		values.Set("allversions", "1")
	}

	return values
}

// HitFactory builds a resource from one search hit.
type HitFactory[T any] func(hit *Metadata) T

// PageFunc fetches another page of the same search.
type PageFunc[T any] func(ctx context.Context) (*Pagination[T], error)

// Pagination is one page of search results. Resources are built from the
// hits lazily on every traversal.
type Pagination[T any] struct {
	list     *ListMetadata
	factory  HitFactory[T]
	previous PageFunc[T]
	next     PageFunc[T]
}

// NewPagination wraps list with factory and the page continuations.
func NewPagination[T any](list *ListMetadata, factory HitFactory[T], previous, next PageFunc[T]) *Pagination[T] {
	return &Pagination[T]{list: list, factory: factory, previous: previous, next: next}
}

// All yields one resource per hit in server order. It can be ranged over
// any number of times.
func (p *Pagination[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, hit := range p.list.Hits {
			if !yield(p.factory(hit)) {
				return
			}
		}
	}
}

// Items materializes the whole page.
func (p *Pagination[T]) Items() []T {
	items := make([]T, 0, len(p.list.Hits))
	for item := range p.All() {
		items = append(items, item)
	}

	return items
}

// Hits returns the raw hit metadata of the page.
func (p *Pagination[T]) Hits() []*Metadata {
	return p.list.Hits
}

// Len returns the number of hits on this page, not the total.
func (p *Pagination[T]) Len() int {
	return len(p.list.Hits)
}

// Total returns the number of matches across all pages.
func (p *Pagination[T]) Total() int {
	return p.list.Total
}

// Aggregations returns the facets payload as sent by the server.
func (p *Pagination[T]) Aggregations() interface{} {
	return p.list.Aggregations
}

// PreviousPage re-runs the search for the page before this one. It
// returns ErrNoPreviousPage when the page was built without that
// continuation.
func (p *Pagination[T]) PreviousPage(ctx context.Context) (*Pagination[T], error) {
	if p.previous == nil {
		return nil, ErrNoPreviousPage
	}

	return p.previous(ctx)
}

// NextPage re-runs the search for the page after this one. It returns
// ErrNoNextPage when the page was built without that continuation.
func (p *Pagination[T]) NextPage(ctx context.Context) (*Pagination[T], error) {
	if p.next == nil {
		return nil, ErrNoNextPage
	}

	return p.next(ctx)
}

// Search issues a GET on r with params, decodes the page with contract and
// returns it as a Pagination built with factory, previous and next.
func Search[T any](
	ctx context.Context,
	r *Resource,
	params url.Values,
	contract ListContract,
	factory HitFactory[T],
	previous, next PageFunc[T],
	opts ...RequestOption,
) (*Pagination[T], error) {
	options := append([]RequestOption{WithQuery(params)}, opts...)

	resp, err := r.Raw(ctx, contract, options...)
	if err != nil {
		return nil, err
	}

	m, err := contract.Decode(resp.Body)
	if err != nil {
		return nil, err
	}

	list, err := contract.List(m)
	if err != nil {
		return nil, err
	}

	return NewPagination(list, factory, previous, next), nil
}

// paginate runs search for params and wires the continuations to the
// neighbouring pages.
func paginate[T any](
	ctx context.Context,
	r *Resource,
	params SearchParams,
	contract ListContract,
	factory HitFactory[T],
	opts ...RequestOption,
) (*Pagination[T], error) {
	var search func(ctx context.Context, params SearchParams) (*Pagination[T], error)

	search = func(ctx context.Context, params SearchParams) (*Pagination[T], error) {
		previous := func(ctx context.Context) (*Pagination[T], error) {
			return search(ctx, params.WithPage(params.Page-1))
		}
		next := func(ctx context.Context) (*Pagination[T], error) {
			return search(ctx, params.WithPage(params.Page+1))
		}

		return Search(ctx, r, params.ToValues(), contract, factory, previous, next, opts...)
	}

	return search(ctx, params)
}
