package humastar

import (
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

// SSETag marks Datastar SSE operations. They are left out of link discovery.
const SSETag = "view"

const healthPath = "/health"

type link struct {
	href string
	rel  string
}

func (l link) header() string {
	return fmt.Sprintf(`<%s>; rel="%s"`, l.href, l.rel)
}

// Links holds the static RFC 8288 links of each JSON operation path.
type Links struct {
	mu sync.RWMutex
	m  map[string][]link
}

// AutoLinks derives links from the registered JSON operations: items point
// up to their collection, collections to their items and child collections,
// and /health to every top-level collection and the API description. The
// links are also recorded on each operation's success response in the
// OpenAPI document. Call after all routes are registered.
func AutoLinks(api huma.API) *Links {
	oapi := api.OpenAPI()
	l := &Links{m: map[string][]link{}}

	var collections, items []string
	for p, pi := range oapi.Paths {
		switch {
		case slices.Contains(tagsOf(pi), SSETag):
		case strings.Contains(p, "{"):
			items = append(items, p)
		default:
			collections = append(collections, p)
		}
	}
	slices.Sort(collections)
	slices.Sort(items)

	for _, item := range items {
		parent := path.Dir(item)
		if _, ok := oapi.Paths[parent]; ok {
			l.add(item, parent, "collection")
			l.add(item, parent, "up")
		}
	}

	for _, coll := range collections {
		for _, item := range items {
			if path.Dir(item) == coll {
				l.add(coll, item, "item")
			}
		}
		for _, child := range collections {
			if child != coll && path.Dir(child) == coll {
				l.add(coll, child, path.Base(child))
			}
		}
		if coll == healthPath {
			continue
		}
		l.add(coll, healthPath, "up")
		if _, nested := oapi.Paths[path.Dir(coll)]; !nested {
			l.add(healthPath, coll, path.Base(coll))
		}
	}
	l.add(healthPath, "/openapi.json", "describedby")
	l.add(healthPath, "/openapi.json", "service-desc")
	l.add(healthPath, "/docs", "service-doc")

	for p, pi := range oapi.Paths {
		links := l.m[p]
		if len(links) == 0 {
			continue
		}
		for _, op := range operationsOf(pi) {
			documentLinks(op, links)
		}
	}
	return l
}

// For returns the Link header values of an operation path.
func (l *Links) For(opPath string) []string {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.m[opPath]))
	for _, lk := range l.m[opPath] {
		out = append(out, lk.header())
	}
	return out
}

func (l *Links) add(from, to, rel string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk := link{href: to, rel: rel}
	if !slices.Contains(l.m[from], lk) {
		l.m[from] = append(l.m[from], lk)
	}
}

// LinkTransformer returns a Huma transformer that writes Link headers for
// every response: the static links of the operation, a self link on item
// paths, then pagination and action links from the body. links may return
// nil until AutoLinks has run.
func LinkTransformer(links func() *Links) huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}
		self := ctx.URL().Path

		for _, h := range links().For(op.Path) {
			ctx.AppendHeader("Link", h)
		}
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", link{href: self, rel: "self"}.header())
		}
		if p, ok := v.(Pager); ok {
			for _, h := range p.PaginationLinks(self) {
				ctx.AppendHeader("Link", h)
			}
		}
		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}
		return v, nil
	}
}

func tagsOf(pi *huma.PathItem) []string {
	for _, op := range operationsOf(pi) {
		if len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

// operationsOf returns the non-nil operations of a path.
func operationsOf(pi *huma.PathItem) []*huma.Operation {
	var ops []*huma.Operation
	for _, op := range []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete} {
		if op != nil {
			ops = append(ops, op)
		}
	}
	return ops
}

// documentLinks records links as OpenAPI Link objects on the first 2xx
// response of op.
func documentLinks(op *huma.Operation, links []link) {
	for code, resp := range op.Responses {
		if !strings.HasPrefix(code, "2") || resp == nil {
			continue
		}
		if resp.Links == nil {
			resp.Links = map[string]*huma.Link{}
		}
		for _, lk := range links {
			resp.Links[lk.rel] = &huma.Link{
				OperationRef: lk.href,
				Description:  "Related: " + lk.rel,
			}
		}
		return
	}
}
