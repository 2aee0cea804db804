package humastar

import "fmt"

// Pager is implemented by response bodies that carry pagination metadata.
// LinkTransformer turns its links into first/prev/next/last Link headers.
type Pager interface {
	PaginationLinks(basePath string) []string
}

// PageBody is a paginated response envelope.
type PageBody[T any] struct {
	Total  int `json:"total" doc:"Total number of items"`
	Offset int `json:"offset" doc:"Current offset"`
	Limit  int `json:"limit" doc:"Page size"`
	Data   []T `json:"data" doc:"Items"`
}

// NewPage builds a page, substituting an empty slice for nil data so the
// body always encodes "data" as an array.
func NewPage[T any](data []T, total, offset, limit int) PageBody[T] {
	if data == nil {
		data = []T{}
	}
	return PageBody[T]{Total: total, Offset: max(offset, 0), Limit: limit, Data: data}
}

// PaginationLinks returns the pagination rels for basePath. A page without a
// positive limit has no links.
func (p PageBody[T]) PaginationLinks(basePath string) []string {
	if p.Limit <= 0 {
		return nil
	}
	link := func(offset int, rel string) string {
		return fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="%s"`, basePath, offset, p.Limit, rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(p.Offset-p.Limit, 0), "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}
	last := 0
	if p.Total > 0 {
		last = ((p.Total - 1) / p.Limit) * p.Limit
	}
	return append(links, link(last, "last"))
}
