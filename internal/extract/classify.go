package extract

import (
	"strings"

	"codemap/internal/source"
)

// DefaultInternalPrefixes are treated as project packages in Python code
var DefaultInternalPrefixes = []string{"apps", "src", "lib", "core", "services"}

// DefaultAliasPrefixes are treated as project paths in TypeScript code
var DefaultAliasPrefixes = []string{"@app/", "@core/", "@shared/", "src/"}

// importClassifier classifies import strings for one language
type importClassifier struct {
	language source.Language
	prefixes map[string]bool
	aliases  []string
}

func newImportClassifier(language source.Language, opts Options) *importClassifier {
	c := &importClassifier{
		language: language,
		prefixes: make(map[string]bool),
	}

	internal := opts.InternalPrefixes
	if len(internal) == 0 {
		internal = DefaultInternalPrefixes
	}
	for _, p := range internal {
		c.prefixes[strings.Trim(p, ". /")] = true
	}
	if opts.Manifest != nil {
		for _, p := range opts.Manifest.PythonPackages {
			c.prefixes[p] = true
		}
	}

	c.aliases = opts.AliasPrefixes
	if len(c.aliases) == 0 {
		c.aliases = DefaultAliasPrefixes
	}
	if opts.Manifest != nil && opts.Manifest.NodePackage != "" {
		c.aliases = append(append([]string{}, c.aliases...), opts.Manifest.NodePackage+"/")
	}
	return c
}

// classify returns the kind of an import string
func (c *importClassifier) classify(module string) ImportKind {
	switch c.language {
	case source.LanguagePython:
		return c.classifyPython(module)
	case source.LanguageTypeScript:
		return c.classifyNode(module)
	}
	return ImportExternal
}

func (c *importClassifier) classifyPython(module string) ImportKind {
	if strings.HasPrefix(module, ".") {
		return ImportLocal
	}
	head := module
	if idx := strings.Index(module, "."); idx >= 0 {
		head = module[:idx]
	}
	if c.prefixes[head] {
		return ImportProject
	}
	if isPythonStdlib(head) {
		return ImportStdlib
	}
	return ImportExternal
}

func (c *importClassifier) classifyNode(module string) ImportKind {
	if strings.HasPrefix(module, "./") || strings.HasPrefix(module, "../") {
		return ImportLocal
	}
	for _, alias := range c.aliases {
		if strings.HasPrefix(module, alias) {
			return ImportProject
		}
	}
	if isNodeBuiltin(module) {
		return ImportStdlib
	}
	return ImportExternal
}

// isPythonStdlib checks a top-level module against common stdlib names
func isPythonStdlib(head string) bool {
	// Not exhaustive
	stdlibModules := map[string]bool{
		"os": true, "sys": true, "re": true, "json": true, "math": true,
		"time": true, "datetime": true, "collections": true, "itertools": true,
		"functools": true, "pathlib": true, "typing": true, "asyncio": true,
		"subprocess": true, "threading": true, "multiprocessing": true,
		"socket": true, "http": true, "urllib": true, "email": true,
		"logging": true, "unittest": true, "pickle": true, "csv": true,
		"xml": true, "html": true, "sqlite3": true, "hashlib": true,
		"dataclasses": true, "enum": true, "abc": true, "uuid": true,
		"decimal": true, "contextlib": true, "copy": true, "io": true,
		"__future__": true,
	}
	return stdlibModules[head]
}

// isNodeBuiltin checks if an import is a Node.js builtin
func isNodeBuiltin(module string) bool {
	builtins := map[string]bool{
		"assert": true, "buffer": true, "child_process": true, "cluster": true,
		"crypto": true, "dgram": true, "dns": true, "events": true,
		"fs": true, "http": true, "http2": true, "https": true,
		"net": true, "os": true, "path": true, "perf_hooks": true,
		"process": true, "querystring": true, "readline": true, "stream": true,
		"string_decoder": true, "timers": true, "tls": true, "tty": true,
		"url": true, "util": true, "v8": true, "vm": true, "zlib": true,
	}
	if strings.HasPrefix(module, "node:") {
		return true
	}
	return builtins[module]
}
