// Package modeldesc describes persistent data models independently of any
// ORM runtime. A persistence collaborator supplies the descriptions; the
// UML synthesizer turns them into class diagrams.
package modeldesc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	cmerrors "codemap/internal/errors"
)

// Relation kinds
const (
	RelationForeignKey = "foreign_key"
	RelationOneToOne   = "one_to_one"
	RelationManyToMany = "many_to_many"
)

// Field describes one model field
type Field struct {
	Name       string `json:"name" yaml:"name" toml:"name"`
	Type       string `json:"type" yaml:"type" toml:"type"`
	Nullable   bool   `json:"nullable,omitempty" yaml:"nullable" toml:"nullable"`
	PrimaryKey bool   `json:"primary_key,omitempty" yaml:"primary_key" toml:"primary_key"`

	// Relation names the target model of a relation field
	Relation     string `json:"relation,omitempty" yaml:"relation" toml:"relation"`
	RelationKind string `json:"relation_kind,omitempty" yaml:"relation_kind" toml:"relation_kind"`
}

// Model describes one persistent model
type Model struct {
	Name     string   `json:"name" yaml:"name" toml:"name"`
	App      string   `json:"app,omitempty" yaml:"app" toml:"app"`
	Base     string   `json:"base,omitempty" yaml:"base" toml:"base"`
	Abstract bool     `json:"abstract,omitempty" yaml:"abstract" toml:"abstract"`
	Fields   []Field  `json:"fields" yaml:"fields" toml:"fields"`
	Methods  []string `json:"methods,omitempty" yaml:"methods" toml:"methods"`
}

// Document is the on-disk shape of a description file
type Document struct {
	Models []Model `json:"models" yaml:"models" toml:"models"`
}

// Source supplies model descriptions
type Source interface {
	Models(ctx context.Context) ([]Model, error)
}

// StaticSource serves a fixed list
type StaticSource []Model

// Models implements Source
func (s StaticSource) Models(ctx context.Context) ([]Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Normalize(s)
}

// FileSource loads descriptions from a .yaml, .yml or .toml file
type FileSource struct {
	Path string
}

// Models implements Source
func (f *FileSource) Models(ctx context.Context) ([]Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Clean(f.Path))
	if err != nil {
		return nil, cmerrors.New(
			cmerrors.InputUnavailable,
			fmt.Sprintf("cannot read model descriptions %s", f.Path),
			err,
			[]cmerrors.FixAction{{Type: cmerrors.Configure, Description: "Point --models at an existing YAML or TOML description file"}},
		)
	}

	doc, err := Parse(f.Path, data)
	if err != nil {
		return nil, err
	}
	return Normalize(doc.Models)
}

// Parse decodes a description document, choosing the format by extension
func Parse(name string, data []byte) (*Document, error) {
	var doc Document
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML model descriptions: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("failed to parse TOML model descriptions: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported model description format %q", filepath.Ext(name))
	}
	return &doc, nil
}

// Normalize validates models and sorts them by name. Field order is kept.
func Normalize(models []Model) ([]Model, error) {
	out := make([]Model, 0, len(models))
	seen := make(map[string]bool, len(models))
	for i, m := range models {
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			return nil, fmt.Errorf("model %d has no name", i)
		}
		if seen[m.Name] {
			return nil, fmt.Errorf("duplicate model %q", m.Name)
		}
		seen[m.Name] = true

		fields := make([]Field, 0, len(m.Fields))
		for _, fd := range m.Fields {
			if fd.Name == "" {
				return nil, fmt.Errorf("model %q has a field with no name", m.Name)
			}
			if fd.Type == "" {
				fd.Type = "Any"
			}
			if fd.Relation != "" && fd.RelationKind == "" {
				fd.RelationKind = RelationForeignKey
			}
			fields = append(fields, fd)
		}
		m.Fields = fields
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// PrimaryKey returns the name of the primary key field, if any
func (m Model) PrimaryKey() string {
	for _, fd := range m.Fields {
		if fd.PrimaryKey {
			return fd.Name
		}
	}
	return ""
}
