package graph

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"codemap/internal/extract"
)

// Kind is the type of a relationship
type Kind string

const (
	Inherits Kind = "inherits"
	Imports  Kind = "imports"
	Uses     Kind = "uses"
	Injects  Kind = "injects"
)

// CoreAngularModules are framework modules left out of module graphs
var CoreAngularModules = map[string]bool{
	"BrowserModule":           true,
	"CommonModule":            true,
	"FormsModule":             true,
	"ReactiveFormsModule":     true,
	"HttpClientModule":        true,
	"RouterModule":            true,
	"BrowserAnimationsModule": true,
}

// IsCoreAngularModule reports whether name is a core framework module
func IsCoreAngularModule(name string) bool {
	return CoreAngularModules[name]
}

// EntityRef identifies the source entity of a relationship
type EntityRef struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	FilePath string `json:"file_path"`
}

// Relationship is a directed edge between entities. External targets
// have no ToKey.
type Relationship struct {
	From     EntityRef `json:"from"`
	To       string    `json:"to"`
	ToKey    string    `json:"to_key,omitempty"`
	Kind     Kind      `json:"kind"`
	External bool      `json:"external,omitempty"`
}

// TargetID is the node id of the target: the entity key, or
// "external:<name>" for unresolved targets.
func (r Relationship) TargetID() string {
	if r.External {
		return ExternalID(r.To)
	}
	return r.ToKey
}

// ExternalID is the node id used for an unresolved name
func ExternalID(name string) string {
	return "external:" + name
}

// ExternalNode is a referenced name that no entity of the run defines
type ExternalNode struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ReferencedBy int    `json:"referenced_by"`
}

// Graph is the merged dependency graph of a run
type Graph struct {
	Entities      []extract.Entity          `json:"entities"`
	Relationships []Relationship            `json:"relationships"`
	ByEntity      map[string][]Relationship `json:"-"`

	byKey map[string]extract.Entity
}

var identifierPattern = regexp.MustCompile(`[A-Za-z_]\w*`)

type builder struct {
	byName map[string][]extract.Entity
	seen   map[string]bool
	rels   []Relationship
}

// Build derives relationships from an extraction result. Names resolve to
// the first entity in path order; anything unresolved becomes an
// external target. Self-edges are dropped and edges deduplicated on
// (from, to, kind).
func Build(result *extract.Result) *Graph {
	g := &Graph{
		Entities:      []extract.Entity{},
		Relationships: []Relationship{},
		ByEntity:      make(map[string][]Relationship),
		byKey:         make(map[string]extract.Entity),
	}
	if result == nil {
		return g
	}

	b := &builder{
		byName: make(map[string][]extract.Entity),
		seen:   make(map[string]bool),
	}
	for _, e := range result.Entities {
		b.byName[e.Name] = append(b.byName[e.Name], e)
		g.byKey[e.Key()] = e
	}
	g.Entities = append(g.Entities, result.Entities...)

	for _, fr := range result.Files {
		targets := b.fileImports(fr)
		imported := make(map[string]bool, len(targets))
		for _, t := range targets {
			if t.key != "" {
				imported[t.key] = true
			}
		}

		for _, e := range fr.Entities {
			for _, parent := range e.ParentTypes {
				b.link(e, parent, Inherits)
			}

			for _, dep := range e.Angular.Dependencies() {
				b.link(e, dep, Injects)
			}

			if e.Kind == extract.KindModule && e.Angular != nil {
				for _, mod := range e.Angular.Imports {
					if !IsCoreAngularModule(mod) {
						b.link(e, mod, Imports)
					}
				}
			}

			for _, attr := range e.Attributes {
				for _, name := range identifierPattern.FindAllString(attr.Type, -1) {
					target, ok := b.resolve(name)
					if !ok {
						continue
					}
					if target.FilePath == e.FilePath || imported[target.Key()] {
						b.add(e, target.Name, target.Key(), Uses)
					}
				}
			}

			for _, t := range targets {
				b.add(e, t.name, t.key, Imports)
			}
		}
	}

	sort.Slice(b.rels, func(i, j int) bool {
		a, c := b.rels[i], b.rels[j]
		if a.From.Key != c.From.Key {
			return a.From.Key < c.From.Key
		}
		if a.TargetID() != c.TargetID() {
			return a.TargetID() < c.TargetID()
		}
		return a.Kind < c.Kind
	})
	g.Relationships = append(g.Relationships, b.rels...)

	for _, r := range g.Relationships {
		g.ByEntity[r.From.Key] = append(g.ByEntity[r.From.Key], r)
		if !r.External {
			g.ByEntity[r.ToKey] = append(g.ByEntity[r.ToKey], r)
		}
	}
	return g
}

// resolve returns the first entity named name in path order
func (b *builder) resolve(name string) (extract.Entity, bool) {
	if cands := b.byName[name]; len(cands) > 0 {
		return cands[0], true
	}
	return extract.Entity{}, false
}

// link adds an edge to the resolved entity or to an external node
func (b *builder) link(from extract.Entity, name string, kind Kind) {
	if target, ok := b.resolve(name); ok {
		b.add(from, target.Name, target.Key(), kind)
		return
	}
	b.add(from, name, "", kind)
}

func (b *builder) add(from extract.Entity, to, toKey string, kind Kind) {
	if to == "" || toKey == from.Key() {
		return
	}
	r := Relationship{
		From:     EntityRef{Key: from.Key(), Name: from.Name, FilePath: from.FilePath},
		To:       to,
		ToKey:    toKey,
		Kind:     kind,
		External: toKey == "",
	}
	id := r.From.Key + "|" + r.TargetID() + "|" + string(kind)
	if b.seen[id] {
		return
	}
	b.seen[id] = true
	b.rels = append(b.rels, r)
}

type importTarget struct {
	name string
	key  string
}

// fileImports resolves the internal imports of a file
func (b *builder) fileImports(fr extract.FileResult) []importTarget {
	var out []importTarget
	for _, imp := range fr.Imports {
		if !imp.Internal() {
			continue
		}
		mod := importModulePath(fr.Path, imp)

		if len(imp.Symbols) == 0 {
			matched := b.entitiesInModule(mod)
			for _, e := range matched {
				out = append(out, importTarget{name: e.Name, key: e.Key()})
			}
			if len(matched) == 0 {
				out = append(out, importTarget{name: lastPathSegment(mod)})
			}
			continue
		}

		for _, sym := range imp.Symbols {
			if e, ok := b.resolveIn(sym, mod); ok {
				out = append(out, importTarget{name: e.Name, key: e.Key()})
				continue
			}
			// "from pkg import module" names a submodule
			if matched := b.entitiesInModule(mod + "/" + sym); len(matched) > 0 {
				for _, e := range matched {
					out = append(out, importTarget{name: e.Name, key: e.Key()})
				}
				continue
			}
			out = append(out, importTarget{name: sym})
		}
	}
	return out
}

// resolveIn prefers a same-named entity from the imported module, then
// falls back to the first entity with that name.
func (b *builder) resolveIn(name, mod string) (extract.Entity, bool) {
	for _, e := range b.byName[name] {
		if moduleMatches(ModulePath(e.FilePath), mod) {
			return e, true
		}
	}
	return b.resolve(name)
}

func (b *builder) entitiesInModule(mod string) []extract.Entity {
	if mod == "" {
		return nil
	}
	var out []extract.Entity
	for _, cands := range b.byName {
		for _, e := range cands {
			if moduleMatches(ModulePath(e.FilePath), mod) {
				out = append(out, e)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// ModulePath converts a file path to a slash separated module path:
// "apps/billing/models.py" -> "apps/billing/models".
func ModulePath(filePath string) string {
	p := filePath
	for _, suffix := range []string{".py", ".ts"} {
		p = strings.TrimSuffix(p, suffix)
	}
	p = strings.TrimSuffix(p, "/__init__")
	p = strings.TrimSuffix(p, "/index")
	return p
}

// importModulePath normalizes an import to a slash separated module
// path, resolving relative imports against the importing file.
func importModulePath(fromFile string, imp extract.Import) string {
	mod := imp.Module
	dir := path.Dir(fromFile)

	switch {
	case strings.HasPrefix(mod, "./") || strings.HasPrefix(mod, "../"):
		return path.Join(dir, mod)
	case strings.HasPrefix(mod, "."):
		rest := strings.TrimLeft(mod, ".")
		for i := 1; i < len(mod)-len(rest); i++ {
			dir = path.Dir(dir)
		}
		if rest == "" {
			return dir
		}
		return path.Join(dir, strings.ReplaceAll(rest, ".", "/"))
	case strings.HasPrefix(mod, "@"):
		if idx := strings.Index(mod, "/"); idx >= 0 {
			return mod[idx+1:]
		}
		return mod
	case strings.Contains(mod, "/"):
		return mod
	}
	return strings.ReplaceAll(mod, ".", "/")
}

func moduleMatches(modPath, want string) bool {
	return modPath == want || strings.HasSuffix(modPath, "/"+want)
}

func lastPathSegment(p string) string {
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		return p[idx+1:]
	}
	return p
}

// Entity looks up an entity by key
func (g *Graph) Entity(key string) (extract.Entity, bool) {
	e, ok := g.byKey[key]
	return e, ok
}

// Outbound returns relationships originating at key
func (g *Graph) Outbound(key string) []Relationship {
	var out []Relationship
	for _, r := range g.ByEntity[key] {
		if r.From.Key == key {
			out = append(out, r)
		}
	}
	return out
}

// Inbound returns relationships targeting key
func (g *Graph) Inbound(key string) []Relationship {
	var out []Relationship
	for _, r := range g.ByEntity[key] {
		if r.ToKey == key {
			out = append(out, r)
		}
	}
	return out
}

// ExternalNodes lists unresolved targets sorted by name
func (g *Graph) ExternalNodes() []ExternalNode {
	counts := make(map[string]int)
	for _, r := range g.Relationships {
		if r.External {
			counts[r.To]++
		}
	}
	nodes := make([]ExternalNode, 0, len(counts))
	for name, n := range counts {
		nodes = append(nodes, ExternalNode{ID: ExternalID(name), Name: name, ReferencedBy: n})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes
}

// Stats summarizes the graph
type Stats struct {
	Entities      int          `json:"entities"`
	Relationships int          `json:"relationships"`
	ExternalNodes int          `json:"external_nodes"`
	ByKind        map[Kind]int `json:"by_kind"`
}

// Stats returns statistics about the graph.
func (g *Graph) Stats() Stats {
	stats := Stats{
		Entities:      len(g.Entities),
		Relationships: len(g.Relationships),
		ExternalNodes: len(g.ExternalNodes()),
		ByKind:        make(map[Kind]int),
	}
	for _, r := range g.Relationships {
		stats.ByKind[r.Kind]++
	}
	return stats
}
