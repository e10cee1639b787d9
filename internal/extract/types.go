// Package extract pulls structural facts out of Python and Angular
// TypeScript sources using pattern matching.
//
// Extraction is per file and side-effect free: every file yields an
// immutable FileResult and Run merges them in path order. A file that
// cannot be processed contributes nothing and is reported in
// Result.Failures.
package extract

import (
	"codemap/internal/source"
)

// EntityKind is the structural kind of an extracted entity
type EntityKind string

const (
	KindClass     EntityKind = "class"
	KindComponent EntityKind = "component"
	KindService   EntityKind = "service"
	KindModule    EntityKind = "module"
)

// Visibility of a method
type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

// DefaultType is used when no attribute type can be inferred
const DefaultType = "Any"

// Attribute is a named field of an entity
type Attribute struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// Method is a named callable of an entity
type Method struct {
	Name       string     `json:"name"`
	Visibility Visibility `json:"visibility"`
}

// Injection is one constructor or inject() dependency of an Angular class
type Injection struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// AngularMeta carries decorator metadata of Angular entities
type AngularMeta struct {
	Selector       string   `json:"selector,omitempty"`
	TemplateURL    string   `json:"template_url,omitempty"`
	InlineTemplate string   `json:"-"`
	StyleURLs      []string `json:"style_urls,omitempty"`

	ProvidedIn string `json:"provided_in,omitempty"`

	Declarations []string `json:"declarations,omitempty"`
	Imports      []string `json:"imports,omitempty"`
	Providers    []string `json:"providers,omitempty"`
	Exports      []string `json:"exports,omitempty"`
	Bootstrap    []string `json:"bootstrap,omitempty"`

	Injections []Injection `json:"injections,omitempty"`
}

// Template describes where the component template lives: the templateUrl,
// "inline" for an inline template, or "unknown".
func (m *AngularMeta) Template() string {
	switch {
	case m == nil:
		return "unknown"
	case m.TemplateURL != "":
		return m.TemplateURL
	case m.InlineTemplate != "":
		return "inline"
	}
	return "unknown"
}

// Dependencies returns the injected types in declaration order
func (m *AngularMeta) Dependencies() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.Injections))
	for _, inj := range m.Injections {
		out = append(out, inj.Type)
	}
	return out
}

// Entity is a class-like declaration found in a source file
type Entity struct {
	Name        string       `json:"name"`
	Kind        EntityKind   `json:"kind"`
	FilePath    string       `json:"file_path"`
	Attributes  []Attribute  `json:"attributes"`
	Methods     []Method     `json:"methods"`
	ParentTypes []string     `json:"parent_types,omitempty"`
	Angular     *AngularMeta `json:"angular,omitempty"`
}

// Key is the identity of an entity within a run
func (e Entity) Key() string {
	return EntityKey(e.FilePath, e.Name)
}

// EntityKey builds the "file_path::name" identity
func EntityKey(filePath, name string) string {
	return filePath + "::" + name
}

// ImportKind classifies an import statement
type ImportKind string

const (
	// ImportLocal is a relative import (./x, ../x, .x)
	ImportLocal ImportKind = "local"
	// ImportProject matches a known project prefix or alias
	ImportProject ImportKind = "project"
	// ImportStdlib is a language standard library module
	ImportStdlib ImportKind = "stdlib"
	// ImportExternal is anything else
	ImportExternal ImportKind = "external"
)

// Import is one import statement. Symbols is empty for whole-module
// imports. Aliases are already normalized to the original name.
type Import struct {
	Module  string     `json:"module"`
	Symbols []string   `json:"symbols,omitempty"`
	Kind    ImportKind `json:"kind"`
}

// Internal reports whether the import refers to project code
func (i Import) Internal() bool {
	return i.Kind == ImportLocal || i.Kind == ImportProject
}

// Route is a flattened Angular route definition
type Route struct {
	Path       string `json:"path"`
	FullPath   string `json:"full_path"`
	Component  string `json:"component,omitempty"`
	LazyModule string `json:"lazy_module,omitempty"`
	RedirectTo string `json:"redirect_to,omitempty"`
	FilePath   string `json:"file_path"`
}

// FileResult is what one extractor produced for one file
type FileResult struct {
	Path     string          `json:"path"`
	Language source.Language `json:"language"`
	Entities []Entity        `json:"entities"`
	Imports  []Import        `json:"imports,omitempty"`
	Routes   []Route         `json:"routes,omitempty"`
}

// Failure records a file that contributed nothing
type Failure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Result is the merged output of a run
type Result struct {
	Files    []FileResult `json:"files"`
	Entities []Entity     `json:"entities"`
	Routes   []Route      `json:"routes,omitempty"`
	Failures []Failure    `json:"failures,omitempty"`
}

// EntitiesOfKind filters entities by kind, preserving order
func (r *Result) EntitiesOfKind(kind EntityKind) []Entity {
	var out []Entity
	for _, e := range r.Entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// FailedPaths lists the paths of failed files
func (r *Result) FailedPaths() []string {
	out := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f.Path)
	}
	return out
}

// Extractor turns one file into a FileResult
type Extractor interface {
	Extract(path, content string) (*FileResult, error)
}

// Options configures import classification
type Options struct {
	// InternalPrefixes are top-level Python packages treated as project code
	InternalPrefixes []string
	// AliasPrefixes are TypeScript path aliases treated as project code
	AliasPrefixes []string
	// Manifest adds declared project packages
	Manifest *source.Manifest
}
