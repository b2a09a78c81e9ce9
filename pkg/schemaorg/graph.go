package schemaorg

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/dtnitsch/org-remark/pkg/meta"
)

// Node is one decoded JSON-LD or microdata object.
type Node = map[string]any

// TypePriorities ranks root types when looking for the main entity of a
// page. Types with priority 0 are known but never chosen.
var TypePriorities = map[string]int{
	"Product":        40,
	"Article":        30,
	"NewsArticle":    30,
	"BlogPosting":    30,
	"WebPage":        20,
	"WebSite":        10,
	"BreadcrumbList": 0,
}

// StripSchemaOrg removes the vocabulary prefix from a type name.
func StripSchemaOrg(typ string) string {
	for _, prefix := range []string{"http://schema.org/", "https://schema.org/"} {
		if strings.HasPrefix(typ, prefix) {
			return typ[len(prefix):]
		}
	}
	return typ
}

// nodeType returns the @type of n. For a list of types the first one wins.
func nodeType(n Node) string {
	switch t := n["@type"].(type) {
	case string:
		return StripSchemaOrg(t)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				return StripSchemaOrg(s)
			}
		}
	}
	return ""
}

func nodeID(n Node) string {
	id, _ := n["@id"].(string)
	return id
}

type graphEntry struct {
	node    Node
	keys    []string
	backRef bool
}

type rootItem struct {
	node Node
	keys []string
}

// Root is a candidate top-level entity together with the source keys of
// the descriptor it was found in.
type Root struct {
	Node Node
	Keys []string
}

// Graph unifies every structured-data descriptor of a page: nodes are
// indexed by @id and top-level nodes are kept as root candidates.
type Graph struct {
	entries []*graphEntry
	ids     map[string]int
	roots   []rootItem
	logger  *slog.Logger
}

// NewGraph creates an empty graph.
func NewGraph(logger *slog.Logger) *Graph {
	if logger == nil {
		logger = slog.Default()
	}
	return &Graph{ids: make(map[string]int), logger: logger}
}

// BuildGraph adds the value of every schema_org descriptor of m.
func BuildGraph(m *meta.Meta, logger *slog.Logger) *Graph {
	g := NewGraph(logger)
	for _, d := range m.Get("schema_org") {
		g.Add(d.Value, d.Keys)
	}
	return g
}

func (g *Graph) entry(id string) *graphEntry {
	if i, ok := g.ids[id]; ok {
		return g.entries[i]
	}
	return nil
}

func (g *Graph) setEntry(id string, e *graphEntry) {
	if i, ok := g.ids[id]; ok {
		g.entries[i] = e
		return
	}
	g.ids[id] = len(g.entries)
	g.entries = append(g.entries, e)
}

// Add walks value breadth of nested objects without recursion. Objects
// with @id and no own @type are references: the entity they point to is
// marked as a back-reference and loses root candidacy.
func (g *Graph) Add(value any, keys []string) {
	type item struct {
		node   any
		parent Node
		keys   []string
	}
	stack := []item{{node: value, keys: keys}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n := it.node.(type) {
		case []any:
			for _, child := range n {
				stack = append(stack, item{node: child, parent: it.parent, keys: it.keys})
			}
		case Node:
			id := nodeID(n)
			typed := n["@type"] != nil
			if it.parent == nil && (id != "" || typed) {
				g.roots = append(g.roots, rootItem{node: n, keys: it.keys})
			}
			if id != "" {
				existing := g.entry(id)
				if typed {
					if existing != nil && existing.node != nil {
						g.logger.Warn("schemaorg: replacing node", "id", id, "type", nodeType(n))
					}
					e := &graphEntry{node: n, keys: it.keys}
					if existing != nil {
						e.backRef = existing.backRef
					}
					g.setEntry(id, e)
				} else if existing != nil {
					existing.backRef = true
				} else {
					g.setEntry(id, &graphEntry{backRef: true})
				}
			}
			for _, k := range sortedKeys(n) {
				switch {
				case k == "@unnamed" || k == "@graph":
					stack = append(stack, item{node: n[k], parent: it.parent, keys: it.keys})
				case !strings.HasPrefix(k, "@"):
					stack = append(stack, item{node: n[k], parent: n, keys: it.keys})
				}
			}
		}
	}
}

func sortedKeys(n Node) []string {
	keys := make([]string, 0, len(n))
	for k := range n {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Roots returns root candidates. An entity reachable under the same @id
// from several sources is reported once.
func (g *Graph) Roots() []Root {
	var out []Root
	seen := make(map[*graphEntry]bool)
	for _, r := range g.roots {
		id := nodeID(r.node)
		if id == "" {
			out = append(out, Root{Node: r.node, Keys: r.keys})
			continue
		}
		e := g.entry(id)
		if e == nil || e.backRef || e.node == nil || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, Root{Node: e.node, Keys: e.keys})
	}
	return out
}

// FindMainEntity picks the root of the highest priority type. A priority
// level with several candidates is ambiguous and skipped.
func (g *Graph) FindMainEntity() (Root, bool) {
	byPriority := make(map[int][]Root)
	for _, r := range g.Roots() {
		typ := nodeType(r.Node)
		priority, ok := TypePriorities[typ]
		if !ok {
			g.logger.Debug("schemaorg: unknown root type", "type", typ)
		}
		if priority > 0 {
			byPriority[priority] = append(byPriority[priority], r)
		}
	}
	priorities := make([]int, 0, len(byPriority))
	for p := range byPriority {
		priorities = append(priorities, p)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(priorities)))
	for _, p := range priorities {
		candidates := byPriority[p]
		if len(candidates) == 1 {
			return candidates[0], true
		}
		g.logger.Debug("schemaorg: ambiguous main entity ignored", "priority", p, "count", len(candidates))
	}
	return Root{}, false
}

// byID resolves a reference {"@id": ...} to the indexed node.
func (g *Graph) byID(v any) any {
	if g == nil {
		return v
	}
	n, ok := v.(Node)
	if !ok {
		return v
	}
	id := nodeID(n)
	if id == "" {
		return v
	}
	if e := g.entry(id); e != nil && e.node != nil {
		return e.node
	}
	return v
}
