package extract

import (
	"regexp"
	"strings"

	"codemap/internal/source"
)

var (
	ngDecorator     = regexp.MustCompile(`@(Component|Injectable|NgModule)\s*\(`)
	ngLeadDecorator = regexp.MustCompile(`^\s*@\w+\s*\(`)
	tsClassDecl     = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(\w+)([^{]*)\{`)
	tsExtends       = regexp.MustCompile(`\bextends\s+([\w.]+)`)
	tsConstructor   = regexp.MustCompile(`\bconstructor\s*\(`)
	tsParam         = regexp.MustCompile(`^(?:@\w+\s*\([^)]*\)\s*)*(?:(?:private|public|protected|readonly|override)\s+)*(\w+)\s*\??\s*:\s*(\w+)`)
	tsInjectField   = regexp.MustCompile(`(#?\w+)\s*(?::\s*[\w<>\[\]., ]+?\s*)?=\s*inject\s*(?:<[^>]*>)?\s*\(\s*(\w+)`)
	tsDecoratorCall = regexp.MustCompile(`^@\w+\s*\(\s*\)\s*`)
	tsMethodDecl    = regexp.MustCompile(`^(?:(public|private|protected)\s+)?(?:static\s+)?(?:override\s+)?(?:async\s+)?(?:get\s+|set\s+)?(#?\w+)\s*(?:<[^>]*>)?\s*\(\)\s*(?::\s*[^{=]+)?\{\}$`)
	tsPropertyDecl  = regexp.MustCompile(`^(?:(public|private|protected)\s+)?(?:static\s+)?(?:readonly\s+)?(?:declare\s+)?(#?\w+)\s*([?!])?\s*(?::\s*([^=]+?))?\s*(?:=\s*(.+?))?;?$`)

	tsNamedImport     = regexp.MustCompile(`import\s+(?:type\s+)?\{([^}]*)\}\s*from\s*['"]([^'"]+)['"]`)
	tsDefaultImport   = regexp.MustCompile(`import\s+(\w+)\s*(?:,\s*\{[^}]*\})?\s*from\s*['"]([^'"]+)['"]`)
	tsNamespaceImport = regexp.MustCompile(`import\s*\*\s*as\s+\w+\s+from\s*['"]([^'"]+)['"]`)

	ngIdentifier = regexp.MustCompile(`\b[A-Z]\w+\b`)
	ngQuoted     = regexp.MustCompile(`['"]([^'"]+)['"]`)

	ngRouteArrays = []*regexp.Regexp{
		regexp.MustCompile(`RouterModule\.for(?:Root|Child)\s*\(\s*\[`),
		regexp.MustCompile(`\bRoutes\s*=\s*\[`),
		regexp.MustCompile(`\bprovideRouter\s*\(\s*\[`),
	}
	ngRouteChildren = regexp.MustCompile(`\bchildren\s*:\s*\[`)
	ngRouteComp     = regexp.MustCompile(`\bcomponent\s*:\s*(\w+)`)
	ngRouteLazy     = regexp.MustCompile(`\bload(?:Children|Component)\s*:\s*\(\s*\)\s*=>\s*import\s*\(\s*['"]([^'"]+)['"]`)
)

var tsPrimitiveTypes = map[string]bool{
	"string": true, "number": true, "boolean": true, "any": true,
	"void": true, "unknown": true, "object": true,
}

var tsKeywords = map[string]bool{
	"constructor": true, "if": true, "for": true, "while": true,
	"switch": true, "return": true, "catch": true, "function": true,
}

// AngularExtractor extracts Angular components, services, modules and
// routes from TypeScript sources.
type AngularExtractor struct {
	classifier *importClassifier
}

// NewAngularExtractor creates an Angular extractor
func NewAngularExtractor(opts Options) *AngularExtractor {
	return &AngularExtractor{classifier: newImportClassifier(source.LanguageTypeScript, opts)}
}

// Extract implements Extractor. The file suffix decides which
// decorators are looked for.
func (a *AngularExtractor) Extract(path, content string) (*FileResult, error) {
	if err := checkText(content); err != nil {
		return nil, err
	}
	code := stripComments(strings.ReplaceAll(content, "\r\n", "\n"))

	result := &FileResult{
		Path:     path,
		Language: source.LanguageTypeScript,
		Imports:  a.extractImports(code),
	}

	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".component.ts"):
		result.Entities = decoratedEntities(path, code, "Component")
	case strings.HasSuffix(lower, ".service.ts"):
		result.Entities = decoratedEntities(path, code, "Injectable")
	case strings.HasSuffix(lower, ".module.ts"):
		result.Entities = decoratedEntities(path, code, "NgModule")
	case isRoutingFile(lower):
		// routes only
	default:
		result.Entities = decoratedEntities(path, code, "Injectable")
	}
	// app-routing.module.ts is both a module and a route table
	if isRoutingFile(lower) {
		result.Routes = extractRoutes(path, code)
	}
	if result.Entities == nil {
		result.Entities = []Entity{}
	}
	return result, nil
}

func isRoutingFile(lowerPath string) bool {
	return strings.Contains(lowerPath, "routing") || strings.HasSuffix(lowerPath, ".routes.ts")
}

// decoratedEntities finds "@Decorator({...}) export class X" declarations
func decoratedEntities(path, code, decorator string) []Entity {
	var entities []Entity
	for _, m := range ngDecorator.FindAllStringSubmatchIndex(code, -1) {
		if code[m[2]:m[3]] != decorator {
			continue
		}
		openParen := m[1] - 1
		closeParen := matchBracket(code, openParen, '(', ')')
		if closeParen < 0 {
			continue
		}

		args := code[openParen+1 : closeParen]
		var metadata string
		if brace := strings.IndexByte(args, '{'); brace >= 0 {
			if end := matchBracket(args, brace, '{', '}'); end > brace {
				metadata = args[brace+1 : end]
			}
		}

		rest := skipDecorators(code[closeParen+1:])
		decl := tsClassDecl.FindStringSubmatchIndex(rest)
		if decl == nil {
			continue
		}
		name := rest[decl[2]:decl[3]]
		heritage := rest[decl[4]:decl[5]]
		bodyOpen := decl[1] - 1
		bodyClose := matchBracket(rest, bodyOpen, '{', '}')
		body := ""
		if bodyClose > bodyOpen {
			body = rest[bodyOpen+1 : bodyClose]
		}

		entity := Entity{
			Name:     name,
			FilePath: path,
			Angular:  &AngularMeta{Injections: injections(body)},
		}
		if em := tsExtends.FindStringSubmatch(heritage); em != nil {
			entity.ParentTypes = []string{lastSegment(em[1], ".")}
		}
		entity.Attributes, entity.Methods = classMembers(body, entity.Angular.Injections)

		view := topLevelView(metadata)
		switch decorator {
		case "Component":
			entity.Kind = KindComponent
			entity.Angular.Selector = stringProp(view, "selector")
			entity.Angular.TemplateURL = stringProp(view, "templateUrl")
			entity.Angular.InlineTemplate = stringProp(view, "template")
			entity.Angular.StyleURLs = styleURLs(metadata, view)
		case "Injectable":
			entity.Kind = KindService
			entity.Angular.ProvidedIn = stringProp(view, "providedIn")
			if entity.Angular.ProvidedIn == "" {
				entity.Angular.ProvidedIn = "root"
			}
		case "NgModule":
			entity.Kind = KindModule
			entity.Angular.Declarations = arrayIdentifiers(metadata, "declarations")
			entity.Angular.Imports = arrayIdentifiers(metadata, "imports")
			entity.Angular.Providers = arrayIdentifiers(metadata, "providers")
			entity.Angular.Exports = arrayIdentifiers(metadata, "exports")
			entity.Angular.Bootstrap = arrayIdentifiers(metadata, "bootstrap")
		}

		entities = append(entities, entity)
	}
	return entities
}

// skipDecorators drops further decorators between the matched one and
// the class keyword.
func skipDecorators(s string) string {
	for {
		loc := ngLeadDecorator.FindStringIndex(s)
		if loc == nil {
			return s
		}
		end := matchBracket(s, loc[1]-1, '(', ')')
		if end < 0 {
			return s
		}
		s = s[end+1:]
	}
}

// stringProp reads `key: 'value'` from a top-level view of an object
// literal. Any quote style is accepted.
func stringProp(view, key string) string {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(key) + `\s*:\s*`)
	loc := re.FindStringIndex(view)
	if loc == nil || loc[1] >= len(view) || !isQuote(view[loc[1]]) {
		return ""
	}
	end := skipString(view, loc[1])
	if end-1 <= loc[1] {
		return ""
	}
	return view[loc[1]+1 : end-1]
}

func styleURLs(metadata, view string) []string {
	if single := stringProp(view, "styleUrl"); single != "" {
		return []string{single}
	}
	body, ok := arrayBody(metadata, "styleUrls")
	if !ok {
		return nil
	}
	var out []string
	for _, m := range ngQuoted.FindAllStringSubmatch(body, -1) {
		out = append(out, m[1])
	}
	return out
}

func arrayBody(s, key string) (string, bool) {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(key) + `\s*:\s*\[`)
	loc := re.FindStringIndex(s)
	if loc == nil {
		return "", false
	}
	open := loc[1] - 1
	end := matchBracket(s, open, '[', ']')
	if end < 0 {
		return "", false
	}
	return s[open+1 : end], true
}

// arrayIdentifiers lists capitalized identifiers of an NgModule array,
// deduplicated in order of appearance.
func arrayIdentifiers(metadata, key string) []string {
	body, ok := arrayBody(metadata, key)
	if !ok {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	for _, id := range ngIdentifier.FindAllString(body, -1) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// injections reads constructor parameters and inject() field initializers
func injections(body string) []Injection {
	var out []Injection
	seen := map[string]bool{}
	add := func(name, typ string) {
		if tsPrimitiveTypes[typ] || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, Injection{Name: name, Type: typ})
	}

	if loc := tsConstructor.FindStringIndex(body); loc != nil {
		open := loc[1] - 1
		if end := matchBracket(body, open, '(', ')'); end > open {
			for _, param := range splitTopLevel(body[open+1:end], ',') {
				if m := tsParam.FindStringSubmatch(strings.TrimSpace(param)); m != nil {
					add(m[1], m[2])
				}
			}
		}
	}
	for _, m := range tsInjectField.FindAllStringSubmatch(body, -1) {
		add(m[1], m[2])
	}
	return out
}

// classMembers reads methods and properties declared at the top level of
// a class body.
func classMembers(body string, injected []Injection) ([]Attribute, []Method) {
	attrs := []Attribute{}
	methods := []Method{}

	injectedType := map[string]string{}
	for _, inj := range injected {
		injectedType[inj.Name] = inj.Type
	}

	view := topLevelView(body)
	statements := strings.FieldsFunc(view, func(r rune) bool { return r == '\n' || r == ';' })
	seen := map[string]bool{}
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		for {
			loc := tsDecoratorCall.FindStringIndex(stmt)
			if loc == nil {
				break
			}
			stmt = stmt[loc[1]:]
		}
		if stmt == "" {
			continue
		}

		if m := tsMethodDecl.FindStringSubmatch(stmt); m != nil {
			name := m[2]
			if tsKeywords[name] || seen["m:"+name] {
				continue
			}
			seen["m:"+name] = true
			methods = append(methods, Method{Name: name, Visibility: tsVisibility(m[1], name)})
			continue
		}

		if m := tsPropertyDecl.FindStringSubmatch(stmt); m != nil {
			name, marker, typ, value := m[2], m[3], strings.TrimSpace(m[4]), strings.TrimSpace(m[5])
			if typ == "" && value == "" || tsKeywords[name] || seen["a:"+name] {
				continue
			}
			seen["a:"+name] = true
			if typ == "" {
				if t, ok := injectedType[name]; ok {
					typ = t
				} else {
					typ = inferTSLiteral(value)
				}
			}
			attrs = append(attrs, Attribute{
				Name:     name,
				Type:     typ,
				Required: marker != "?" && value != "null" && value != "undefined",
			})
		}
	}
	return attrs, methods
}

func tsVisibility(modifier, name string) Visibility {
	if modifier == "private" || strings.HasPrefix(name, "#") || strings.HasPrefix(name, "_") {
		return Private
	}
	return Public
}

func inferTSLiteral(value string) string {
	switch {
	case value == "":
		return DefaultType
	case isQuote(value[0]):
		return "string"
	case strings.HasPrefix(value, "["):
		return "array"
	case strings.HasPrefix(value, "{"):
		return "object"
	case value == "true" || value == "false":
		return "boolean"
	case intLiteral.MatchString(value) || floatLiteral.MatchString(value):
		return "number"
	case strings.HasPrefix(value, "new "):
		name := strings.TrimSpace(value[len("new "):])
		if i := strings.IndexAny(name, "<( \t"); i >= 0 {
			name = name[:i]
		}
		if name = lastSegment(name, "."); name != "" {
			return name
		}
	}
	return DefaultType
}

// extractRoutes reads every route array in a routing file
func extractRoutes(path, code string) []Route {
	var routes []Route
	for _, re := range ngRouteArrays {
		for _, loc := range re.FindAllStringIndex(code, -1) {
			open := loc[1] - 1
			end := matchBracket(code, open, '[', ']')
			if end < 0 {
				continue
			}
			routes = append(routes, parseRouteArray(path, code[open+1:end], "")...)
		}
	}
	return routes
}

// parseRouteArray flattens route objects, joining child paths onto
// their parent's full path.
func parseRouteArray(filePath, array, parent string) []Route {
	var routes []Route
	for i := 0; i < len(array); i++ {
		c := array[i]
		if isQuote(c) {
			i = skipString(array, i) - 1
			continue
		}
		if c != '{' {
			continue
		}
		end := matchBracket(array, i, '{', '}')
		if end < 0 {
			break
		}
		obj := array[i+1 : end]
		i = end

		own := obj
		var children string
		if loc := ngRouteChildren.FindStringIndex(obj); loc != nil {
			open := loc[1] - 1
			if cend := matchBracket(obj, open, '[', ']'); cend > open {
				children = obj[open+1 : cend]
				own = obj[:loc[0]] + obj[cend+1:]
			}
		}

		view := topLevelView(own)
		routePath := stringProp(view, "path")
		if routePath == "" && !strings.Contains(view, "path") {
			continue
		}
		route := Route{
			Path:       routePath,
			FullPath:   joinRoute(parent, routePath),
			RedirectTo: stringProp(view, "redirectTo"),
			FilePath:   filePath,
		}
		if m := ngRouteComp.FindStringSubmatch(view); m != nil {
			route.Component = m[1]
		}
		if m := ngRouteLazy.FindStringSubmatch(own); m != nil {
			route.LazyModule = m[1]
		}
		routes = append(routes, route)

		if children != "" {
			routes = append(routes, parseRouteArray(filePath, children, route.FullPath)...)
		}
	}
	return routes
}

func joinRoute(parent, path string) string {
	var parts []string
	for _, p := range []string{parent, path} {
		if p = strings.Trim(p, "/"); p != "" {
			parts = append(parts, p)
		}
	}
	return "/" + strings.Join(parts, "/")
}

func (a *AngularExtractor) extractImports(code string) []Import {
	var imports []Import
	for _, m := range tsNamedImport.FindAllStringSubmatch(code, -1) {
		var symbols []string
		for _, item := range strings.Split(m[1], ",") {
			item = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(item), "type "))
			if idx := strings.Index(item, " as "); idx >= 0 {
				item = strings.TrimSpace(item[:idx])
			}
			if item != "" {
				symbols = append(symbols, item)
			}
		}
		imports = append(imports, Import{Module: m[2], Symbols: symbols, Kind: a.classifier.classify(m[2])})
	}
	for _, m := range tsDefaultImport.FindAllStringSubmatch(code, -1) {
		imports = append(imports, Import{Module: m[2], Symbols: []string{m[1]}, Kind: a.classifier.classify(m[2])})
	}
	for _, m := range tsNamespaceImport.FindAllStringSubmatch(code, -1) {
		imports = append(imports, Import{Module: m[1], Kind: a.classifier.classify(m[1])})
	}
	return imports
}
