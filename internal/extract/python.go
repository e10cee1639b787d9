package extract

import (
	"fmt"
	"regexp"
	"strings"

	"codemap/internal/source"
)

var (
	pyClassHeader = regexp.MustCompile(`(?m)^class[ \t]+(\w+)[ \t]*(\()?`)
	pyTopLevel    = regexp.MustCompile(`(?m)^(?:class\s|def\s|async\s+def\s|@)`)
	pyMethod      = regexp.MustCompile(`(?m)^[ \t]+(?:async[ \t]+)?def[ \t]+(\w+)[ \t]*\(`)
	pyInit        = regexp.MustCompile(`(?m)^([ \t]+)(?:async[ \t]+)?def[ \t]+__init__[ \t]*\(`)
	pyImport      = regexp.MustCompile(`(?m)^(?:from[ \t]+([\w.]+)[ \t]+)?import[ \t]+(.+)$`)
	pySelfAssign  = regexp.MustCompile(`(?m)^[ \t]*self\.(\w+)[ \t]*(?::[ \t]*([^=\n]+?))?[ \t]*=[ \t]*([^=\n].*)$`)
	pyAnnotated   = regexp.MustCompile(`^(\w+)[ \t]*:[ \t]*([^=#]+?)[ \t]*(?:=[ \t]*(.*))?$`)
	pyModelField  = regexp.MustCompile(`^(\w+)[ \t]*=[ \t]*(?:[\w.]*\.)?(\w*Field|ForeignKey|OneToOneField|ManyToManyField)[ \t]*\((.*)$`)
	pyRelTarget   = regexp.MustCompile(`^\s*['"]?([\w.]+)['"]?`)
	intLiteral    = regexp.MustCompile(`^-?\d+$`)
	floatLiteral  = regexp.MustCompile(`^-?(?:\d+\.\d*|\.\d+)$`)
)

var pyRelationFields = map[string]bool{
	"ForeignKey":      true,
	"OneToOneField":   true,
	"ManyToManyField": true,
}

// PythonExtractor extracts classes and imports from Python sources
type PythonExtractor struct {
	classifier *importClassifier
}

// NewPythonExtractor creates a Python extractor
func NewPythonExtractor(opts Options) *PythonExtractor {
	return &PythonExtractor{classifier: newImportClassifier(source.LanguagePython, opts)}
}

// Extract implements Extractor
func (p *PythonExtractor) Extract(path, content string) (*FileResult, error) {
	if err := checkText(content); err != nil {
		return nil, err
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")

	result := &FileResult{
		Path:     path,
		Language: source.LanguagePython,
		Imports:  p.extractImports(content),
	}

	for _, m := range pyClassHeader.FindAllStringSubmatchIndex(content, -1) {
		name := content[m[2]:m[3]]
		header, bodyStart, ok := pyClassSpan(content, m)
		if !ok {
			continue
		}

		bodyEnd := len(content)
		if loc := pyTopLevel.FindStringIndex(content[bodyStart:]); loc != nil {
			bodyEnd = bodyStart + loc[0]
		}
		body := content[bodyStart:bodyEnd]

		result.Entities = append(result.Entities, Entity{
			Name:        name,
			Kind:        KindClass,
			FilePath:    path,
			Attributes:  pythonAttributes(name, body),
			Methods:     pythonMethods(body),
			ParentTypes: pythonParents(header),
		})
	}

	return result, nil
}

// pyClassSpan returns the base list of a class header match and the
// offset its body starts at. The base list is bracket-matched so calls
// and subscripts inside it survive; an unclosed list runs to the end of
// the line.
func pyClassSpan(content string, m []int) (string, int, bool) {
	if m[4] < 0 {
		rest := strings.TrimLeft(content[m[1]:], " \t")
		if !strings.HasPrefix(rest, ":") {
			return "", 0, false
		}
		return "", len(content) - len(rest) + 1, true
	}

	open := m[4]
	end := matchBracket(content, open, '(', ')')
	if end < 0 {
		eol := strings.IndexByte(content[open:], '\n')
		if eol < 0 {
			return content[open+1:], len(content), true
		}
		return content[open+1 : open+eol], open + eol, true
	}

	header := content[open+1 : end]
	bodyStart := end + 1
	rest := strings.TrimLeft(content[bodyStart:], " \t")
	if strings.HasPrefix(rest, ":") {
		bodyStart = len(content) - len(rest) + 1
	}
	return header, bodyStart, true
}

func pythonMethods(body string) []Method {
	methods := []Method{}
	for _, m := range pyMethod.FindAllStringSubmatch(body, -1) {
		vis := Public
		if strings.HasPrefix(m[1], "_") {
			vis = Private
		}
		methods = append(methods, Method{Name: m[1], Visibility: vis})
	}
	return methods
}

// pythonParents splits a class header argument list. Keyword arguments
// are dropped and dotted names reduced to their last segment.
func pythonParents(header string) []string {
	var parents []string
	for _, part := range splitTopLevel(header, ',') {
		part = strings.TrimSpace(part)
		if part == "" || strings.Contains(part, "=") {
			continue
		}
		if idx := strings.IndexAny(part, "[("); idx >= 0 {
			part = strings.TrimSpace(part[:idx])
		}
		part = lastSegment(part, ".")
		if part == "" || part == "object" {
			continue
		}
		parents = append(parents, part)
	}
	return parents
}

type pyParam struct {
	hint       string
	defaultVal string
}

// pythonAttributes collects class-level fields first, then __init__
// assignments. The first occurrence of a name wins.
func pythonAttributes(className, body string) []Attribute {
	attrs := []Attribute{}
	seen := map[string]bool{}
	add := func(a Attribute) {
		if a.Name == "" || seen[a.Name] {
			return
		}
		seen[a.Name] = true
		attrs = append(attrs, a)
	}

	for _, a := range classLevelFields(className, body) {
		add(a)
	}

	loc := pyInit.FindStringSubmatchIndex(body)
	if loc == nil {
		return attrs
	}
	indent := len(body[loc[2]:loc[3]])
	open := loc[1] - 1
	closeIdx := matchBracket(body, open, '(', ')')
	if closeIdx < 0 {
		return attrs
	}
	params := parsePyParams(body[open+1 : closeIdx])
	span := pyBlock(body, closeIdx, indent)

	for _, m := range pySelfAssign.FindAllStringSubmatch(span, -1) {
		name, annotation, value := m[1], strings.TrimSpace(m[2]), stripPyComment(m[3])
		attr := Attribute{Name: name, Type: annotation, Required: true}

		param, fromParam := params[value]
		if attr.Type == "" && fromParam && param.hint != "" {
			attr.Type = param.hint
		}
		if attr.Type == "" {
			attr.Type = inferLiteralType(value)
		}
		if value == "None" || isOptionalType(attr.Type) || (fromParam && param.defaultVal == "None") {
			attr.Required = false
		}
		add(attr)
	}
	return attrs
}

// classLevelFields reads annotated fields and model field assignments
// declared directly in the class body.
func classLevelFields(className, body string) []Attribute {
	var attrs []Attribute
	lines := strings.Split(body, "\n")

	indent := -1
	inDocstring := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if n := strings.Count(line, `"""`) + strings.Count(line, `'''`); n > 0 {
			if n%2 == 1 {
				inDocstring = !inDocstring
			}
			continue
		}
		if inDocstring {
			continue
		}

		lineIndent := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 {
			indent = lineIndent
		}
		if lineIndent != indent {
			continue
		}

		if m := pyModelField.FindStringSubmatch(trimmed); m != nil {
			attrs = append(attrs, modelFieldAttribute(className, m[1], m[2], m[3]))
			continue
		}
		if m := pyAnnotated.FindStringSubmatch(trimmed); m != nil {
			typ := strings.TrimSpace(m[2])
			value := stripPyComment(m[3])
			attrs = append(attrs, Attribute{
				Name:     m[1],
				Type:     typ,
				Required: value != "None" && !isOptionalType(typ),
			})
		}
	}
	return attrs
}

// modelFieldAttribute maps "customer = models.ForeignKey(Customer, ...)".
// Relation fields take the target class as their type.
func modelFieldAttribute(className, name, field, args string) Attribute {
	attr := Attribute{Name: name, Type: field, Required: true}
	if pyRelationFields[field] {
		target := strings.TrimPrefix(strings.TrimSpace(args), "to=")
		if m := pyRelTarget.FindStringSubmatch(target); m != nil {
			target := lastSegment(m[1], ".")
			if target == "self" {
				target = className
			}
			attr.Type = target
		}
	}
	compact := strings.ReplaceAll(args, " ", "")
	if strings.Contains(compact, "null=True") || strings.Contains(compact, "blank=True") {
		attr.Required = false
	}
	return attr
}

func parsePyParams(sig string) map[string]pyParam {
	params := map[string]pyParam{}
	for _, raw := range splitTopLevel(sig, ',') {
		raw = strings.TrimSpace(raw)
		raw = strings.TrimLeft(raw, "*")
		if raw == "" || raw == "self" || raw == "/" {
			continue
		}
		var p pyParam
		name := raw
		if idx := indexTopLevel(raw, '='); idx >= 0 {
			p.defaultVal = strings.TrimSpace(raw[idx+1:])
			name = raw[:idx]
		}
		if idx := strings.Index(name, ":"); idx >= 0 {
			p.hint = strings.TrimSpace(name[idx+1:])
			name = name[:idx]
		}
		params[strings.TrimSpace(name)] = p
	}
	return params
}

// pyBlock returns the text after pos up to the first non-blank line
// indented at or below indent.
func pyBlock(s string, pos, indent int) string {
	start := strings.IndexByte(s[pos:], '\n')
	if start < 0 {
		return ""
	}
	start += pos + 1
	end := start
	for end < len(s) {
		next := strings.IndexByte(s[end:], '\n')
		lineEnd := len(s)
		if next >= 0 {
			lineEnd = end + next
		}
		line := s[end:lineEnd]
		if strings.TrimSpace(line) != "" {
			lineIndent := len(line) - len(strings.TrimLeft(line, " \t"))
			if lineIndent <= indent {
				break
			}
		}
		if next < 0 {
			end = len(s)
			break
		}
		end = lineEnd + 1
	}
	return s[start:end]
}

func (p *PythonExtractor) extractImports(content string) []Import {
	var imports []Import
	for _, m := range pyImport.FindAllStringSubmatchIndex(content, -1) {
		var from string
		if m[2] >= 0 {
			from = content[m[2]:m[3]]
		}
		items := stripPyComment(content[m[4]:m[5]])

		if strings.HasPrefix(items, "(") {
			if idx := strings.Index(items, ")"); idx >= 0 {
				items = items[1:idx]
			} else if idx := strings.Index(content[m[5]:], ")"); idx >= 0 {
				items = items[1:] + content[m[5]:m[5]+idx]
			} else {
				items = items[1:]
			}
		}

		names := splitImportNames(items)
		if from != "" {
			var symbols []string
			for _, n := range names {
				if n != "*" {
					symbols = append(symbols, n)
				}
			}
			imports = append(imports, Import{Module: from, Symbols: symbols, Kind: p.classifier.classify(from)})
			continue
		}
		for _, n := range names {
			imports = append(imports, Import{Module: n, Kind: p.classifier.classify(n)})
		}
	}
	return imports
}

// splitImportNames splits "a, b as c" into ["a", "b"]
func splitImportNames(items string) []string {
	var out []string
	for _, line := range strings.Split(items, "\n") {
		line = stripPyComment(line)
		for _, item := range strings.Split(line, ",") {
			item = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(item), "\\"))
			if idx := strings.Index(item, " as "); idx >= 0 {
				item = strings.TrimSpace(item[:idx])
			}
			if item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// inferLiteralType guesses a type from the shape of an assigned value
func inferLiteralType(value string) string {
	v := strings.TrimSpace(value)
	switch {
	case v == "":
		return DefaultType
	case isStringLiteral(v):
		return "str"
	case strings.HasPrefix(v, "["):
		return "list"
	case strings.HasPrefix(v, "{"):
		return "dict"
	case v == "True" || v == "False":
		return "bool"
	case intLiteral.MatchString(v):
		return "int"
	case floatLiteral.MatchString(v):
		return "float"
	}
	return DefaultType
}

func isStringLiteral(v string) bool {
	v = strings.TrimLeft(v, "rbfuRBFU")
	return strings.HasPrefix(v, `"`) || strings.HasPrefix(v, "'")
}

func isOptionalType(t string) bool {
	t = strings.ReplaceAll(t, " ", "")
	return strings.HasPrefix(t, "Optional[") ||
		strings.HasSuffix(t, "|None") ||
		strings.HasPrefix(t, "None|")
}

// stripPyComment drops a trailing "# ..." outside of string literals
func stripPyComment(s string) string {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '#':
			return strings.TrimSpace(s[:i])
		}
	}
	return strings.TrimSpace(s)
}

func lastSegment(s, sep string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndex(s, sep); idx >= 0 {
		return s[idx+len(sep):]
	}
	return s
}

// checkText rejects content that is clearly not source text
func checkText(content string) error {
	if strings.IndexByte(content, 0) >= 0 {
		return fmt.Errorf("binary content")
	}
	if !isValidUTF8(content) {
		return fmt.Errorf("content is not valid UTF-8")
	}
	return nil
}
