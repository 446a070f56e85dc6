package humastar

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

// Links holds RFC 8288 link headers generated from an API's OpenAPI paths,
// keyed by operation path.
type Links struct {
	mu    sync.RWMutex
	links map[string][]string
}

// NewLinks returns an empty link set. Install its Transformer in the Huma
// config, then call Build once routes are registered.
func NewLinks() *Links {
	return &Links{links: map[string][]string{}}
}

// Build walks the OpenAPI spec and generates hypermedia links.
// Editor (Datastar SSE) endpoints are skipped.
func (l *Links) Build(api huma.API) {
	oapi := api.OpenAPI()

	var collections, items []string
	for p, pi := range oapi.Paths {
		if hasTag(primaryTags(pi), "editor") {
			continue
		}
		if pi.Put != nil || pi.Patch != nil {
			l.add(p, p, "edit")
		}
		if ref := responseSchemaRef(pi); ref != "" {
			l.add(p, "/openapi.json#/components/schemas/"+ref, "describedby")
		}
		if strings.Contains(p, "{") {
			items = append(items, p)
		} else {
			collections = append(collections, p)
		}
	}
	sort.Strings(collections)
	sort.Strings(items)

	// Item → nearest parameter-free ancestor (rel="collection" + "up").
	for _, item := range items {
		if parent := ancestor(oapi, item); parent != "" {
			l.add(item, parent, "collection")
			l.add(item, parent, "up")
			l.add(parent, item, "item")
		}
	}

	// Sub-resources: /api/v1/style/layers is "layers" of /api/v1/style.
	for _, c := range collections {
		if parent := ancestor(oapi, c); parent != "" {
			l.add(c, parent, "up")
			l.add(parent, c, lastSegment(c))
		} else if c != "/health" {
			l.add(c, "/health", "up")
		}
	}

	// Entry point: /health links every top-level collection and the docs.
	for _, c := range collections {
		if c != "/health" && ancestor(oapi, c) == "" {
			l.add("/health", c, lastSegment(c))
		}
	}
	l.add("/health", "/openapi.json", "describedby")
	l.add("/health", "/openapi.json", "service-desc")
	l.add("/health", "/docs", "service-doc")

	// Document the links in the spec itself.
	for p, pi := range oapi.Paths {
		for _, op := range operationsOf(pi) {
			if op != nil {
				injectResponseLinks(op, l.For(p))
			}
		}
	}
}

// For returns the link headers for an operation path.
func (l *Links) For(opPath string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.links[opPath]
}

// Transformer returns a Huma Transformer that injects the links at runtime.
func (l *Links) Transformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}
		for _, link := range l.For(op.Path) {
			ctx.AppendHeader("Link", link)
		}
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}
		return v, nil
	}
}

func (l *Links) add(from, to, rel string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	for _, existing := range l.links[from] {
		if existing == val {
			return
		}
	}
	l.links[from] = append(l.links[from], val)
}

// ancestor returns the closest registered parameter-free parent of p.
func ancestor(oapi *huma.OpenAPI, p string) string {
	for dir := path.Dir(p); dir != "/" && dir != "."; dir = path.Dir(dir) {
		if strings.Contains(dir, "{") {
			continue
		}
		if _, ok := oapi.Paths[dir]; ok {
			return dir
		}
	}
	return ""
}

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range operationsOf(pi) {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func operationsOf(pi *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete}
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func lastSegment(p string) string {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}

// injectResponseLinks adds OpenAPI Link objects to the operation's success response.
func injectResponseLinks(op *huma.Operation, headers []string) {
	if op.Responses == nil || len(headers) == 0 {
		return
	}
	var resp *huma.Response
	for code, r := range op.Responses {
		if strings.HasPrefix(code, "2") {
			resp = r
			break
		}
	}
	if resp == nil {
		return
	}
	if resp.Links == nil {
		resp.Links = map[string]*huma.Link{}
	}
	for _, h := range headers {
		rel, href := parseLinkHeader(h)
		if rel == "" {
			continue
		}
		resp.Links[rel] = &huma.Link{
			OperationRef: href,
			Description:  fmt.Sprintf("Related: %s", rel),
		}
	}
}

func responseSchemaRef(pi *huma.PathItem) string {
	if pi.Get == nil || pi.Get.Responses == nil {
		return ""
	}
	for code, resp := range pi.Get.Responses {
		if !strings.HasPrefix(code, "2") || resp.Content == nil {
			continue
		}
		for _, mt := range resp.Content {
			if mt.Schema != nil && mt.Schema.Ref != "" {
				return path.Base(mt.Schema.Ref)
			}
		}
	}
	return ""
}

func parseLinkHeader(h string) (rel, href string) {
	parts := strings.SplitN(h, ";", 2)
	if len(parts) < 2 {
		return "", ""
	}
	href = strings.Trim(strings.TrimSpace(parts[0]), "<>")
	relPart := strings.TrimSpace(parts[1])
	if strings.HasPrefix(relPart, `rel="`) {
		rel = strings.Trim(relPart[4:], `"`)
	}
	return rel, href
}
