// docgen emits a YAML reference of all module configuration options and the
// experiment parameter document schema. Run from the repository root.
package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/beamtime/hyperion/pkg/api"
	"github.com/beamtime/hyperion/pkg/health"
	"github.com/beamtime/hyperion/pkg/ispyb"
	"github.com/beamtime/hyperion/pkg/logging"
	"github.com/beamtime/hyperion/pkg/otel"
	"github.com/beamtime/hyperion/pkg/params"
	"github.com/beamtime/hyperion/pkg/runner"
	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"
)

const yamlIndent = 2

type output struct {
	Modules []moduleDoc `yaml:"modules"`
	Schema  []schemaDoc `yaml:"parameterSchema"`
}

type moduleDoc struct {
	Category    string     `yaml:"category"`
	Type        string     `yaml:"type"`
	Package     string     `yaml:"package"`
	ConfigPath  string     `yaml:"configPath"`
	Description string     `yaml:"description,omitempty"`
	Fields      []fieldDoc `yaml:"fields,omitempty"`
}

type fieldDoc struct {
	Key         string `yaml:"key"`
	Type        string `yaml:"type"`
	Default     string `yaml:"default,omitempty"`
	Enum        string `yaml:"enum,omitempty"`
	Required    bool   `yaml:"required,omitempty"`
	EnvVar      string `yaml:"envVar,omitempty"`
	Description string `yaml:"description,omitempty"`
}

type schemaDoc struct {
	Name        string     `yaml:"name"`
	Package     string     `yaml:"package"`
	Description string     `yaml:"description,omitempty"`
	Fields      []fieldDoc `yaml:"fields,omitempty"`
}

func main() {
	modulePath, err := parseModulePath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse go.mod: %v\n", err)
		os.Exit(1)
	}

	moduleConfigs := []any{
		api.NewDefaultConfig(),
		ispyb.NewDefaultConfig(),
		logging.NewDefaultConfig(),
		otel.NewDefaultConfig(),
		health.NewDefaultConfig(),
		runner.NewDefaultConfig(),
	}

	schemaTypes := []any{
		params.ExperimentConfig{},
		params.HyperionParams{},
		params.DetectorParams{},
		params.IspybParams{},
		params.GridScanParams{},
		params.RotationScanParams{},
	}

	var out output
	for _, cfg := range moduleConfigs {
		out.Modules = append(out.Modules, processModuleConfig(cfg, modulePath))
	}
	for _, typ := range schemaTypes {
		out.Schema = append(out.Schema, processSchemaType(typ, modulePath))
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(yamlIndent)
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode yaml: %v\n", err)
		os.Exit(1)
	}
}

func processModuleConfig(cfg any, modulePath string) moduleDoc {
	t := reflect.TypeOf(cfg)
	v := reflect.ValueOf(cfg)
	pkgPath := t.PkgPath()

	category, modType := inferCategoryAndType(pkgPath)

	comments := extractComments(pkgPath, modulePath, "Config")

	doc := moduleDoc{
		Category:    category,
		Type:        modType,
		Package:     pkgPath,
		ConfigPath:  fmt.Sprintf("modules.%s.%s.<name>", category, modType),
		Description: comments.structDoc,
	}

	for f := range t.Fields() {
		if !f.IsExported() {
			continue
		}

		koanfTag := f.Tag.Get("koanf")
		if koanfTag == "" || koanfTag == "-" || koanfTag == ",remain" {
			continue
		}

		doc.Fields = append(doc.Fields, fieldDoc{
			Key:         koanfTag,
			Type:        formatType(f.Type),
			Default:     defaultValue(v.FieldByName(f.Name)),
			Enum:        f.Tag.Get("enum"),
			Required:    f.Tag.Get("required") == "true",
			EnvVar:      envVarName(doc.ConfigPath, koanfTag),
			Description: comments.fields[f.Name],
		})
	}

	return doc
}

func processSchemaType(typ any, modulePath string) schemaDoc {
	t := reflect.TypeOf(typ)

	comments := extractComments(t.PkgPath(), modulePath, t.Name())

	doc := schemaDoc{
		Name:        t.Name(),
		Package:     t.PkgPath(),
		Description: comments.structDoc,
	}

	for f := range t.Fields() {
		if !f.IsExported() {
			continue
		}

		jsonTag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if jsonTag == "" || jsonTag == "-" {
			continue
		}

		doc.Fields = append(doc.Fields, fieldDoc{
			Key:         jsonTag,
			Type:        formatType(f.Type),
			Description: comments.fields[f.Name],
		})
	}

	return doc
}

// defaultValue returns a string representation of a field's value,
// or empty string if the value is the zero value for its type.
func defaultValue(v reflect.Value) string {
	if !v.IsValid() || v.IsZero() {
		return ""
	}
	return fmt.Sprintf("%v", v.Interface())
}

// envVarName builds the environment variable name for a config field.
// configPath is e.g. "modules.http.api.<name>", key is e.g. "port".
// Result: HYPERION_MODULES_HTTP_API_<NAME>_PORT
func envVarName(configPath, key string) string {
	return "HYPERION_" + strings.ToUpper(strings.ReplaceAll(configPath+"."+key, ".", "_"))
}

// inferCategoryAndType extracts category and type from a package path like
// "github.com/beamtime/hyperion/pkg/ispyb" -> ("db", "ispyb")
// "github.com/beamtime/hyperion/pkg/api" -> ("http", "api")
func inferCategoryAndType(pkgPath string) (string, string) {
	_, rest, found := strings.Cut(pkgPath, "/pkg/")
	if !found {
		return pkgPath, pkgPath
	}

	modType := rest
	if idx := strings.LastIndex(rest, "/"); idx >= 0 {
		modType = rest[idx+1:]
	}

	// Categories follow the config path layout, not the package layout.
	switch modType {
	case "ispyb":
		return "db", modType
	case "api":
		return "http", modType
	case "logging":
		return "logging", "tint"
	case "runner":
		return "engine", modType
	default:
		return modType, modType
	}
}

func formatType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Ptr:
		return "*" + formatType(t.Elem())
	case reflect.Slice:
		return "[]" + formatType(t.Elem())
	case reflect.Array:
		return fmt.Sprintf("[%d]%s", t.Len(), formatType(t.Elem()))
	case reflect.Map:
		return "map[" + formatType(t.Key()) + "]" + formatType(t.Elem())
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return "any"
		}
		name := t.Name()
		if name == "" {
			return "interface{}"
		}
		pkg := t.PkgPath()
		if pkg != "" {
			return pkgAlias(pkg) + "." + name
		}
		return name
	default:
		name := t.Name()
		pkg := t.PkgPath()
		if pkg != "" && !isBuiltin(name) {
			return pkgAlias(pkg) + "." + name
		}
		return name
	}
}

// pkgAlias returns a human-friendly package alias, skipping version suffixes
// like "v3" or "v2" to use the actual package name instead.
// For hyphenated names like "health-go", returns the part before the hyphen.
func pkgAlias(pkg string) string {
	parts := strings.Split(pkg, "/")
	last := parts[len(parts)-1]
	if len(parts) >= 2 && len(last) >= 2 && last[0] == 'v' && last[1] >= '0' && last[1] <= '9' {
		last = parts[len(parts)-2]
	}
	if idx := strings.Index(last, "-"); idx > 0 {
		last = last[:idx]
	}
	return last
}

func isBuiltin(name string) bool {
	switch name {
	case "bool", "string",
		"int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64",
		"float32", "float64",
		"complex64", "complex128",
		"byte", "rune", "error":
		return true
	}
	return false
}

type sourceComments struct {
	structDoc string
	fields    map[string]string
}

// extractComments parses the Go source for a package and extracts doc
// comments from the named struct type and its fields.
func extractComments(pkgPath, modulePath, typeName string) sourceComments {
	sc := sourceComments{
		fields: make(map[string]string),
	}

	// Resolve package path to filesystem directory
	rel, found := strings.CutPrefix(pkgPath, modulePath+"/")
	if !found {
		return sc
	}
	dir := filepath.Join(".", rel)

	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, dir, nil, parser.ParseComments)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not parse %s: %v\n", dir, err)
		return sc
	}

	for _, pkg := range pkgs {
		for _, file := range pkg.Files {
			for _, decl := range file.Decls {
				if d, ok := decl.(*ast.GenDecl); ok {
					extractStructComments(d, typeName, &sc)
				}
			}
		}
	}

	return sc
}

func extractStructComments(decl *ast.GenDecl, typeName string, sc *sourceComments) {
	if decl.Tok != token.TYPE {
		return
	}
	for _, spec := range decl.Specs {
		ts, ok := spec.(*ast.TypeSpec)
		if !ok || ts.Name.Name != typeName {
			continue
		}
		st, ok := ts.Type.(*ast.StructType)
		if !ok {
			continue
		}

		if decl.Doc != nil {
			sc.structDoc = cleanComment(decl.Doc.Text())
		}

		for _, field := range st.Fields.List {
			if len(field.Names) == 0 || !field.Names[0].IsExported() {
				continue
			}
			name := field.Names[0].Name
			// Prefer doc comment (above), fall back to inline comment
			switch {
			case field.Doc != nil:
				sc.fields[name] = cleanComment(field.Doc.Text())
			case field.Comment != nil:
				sc.fields[name] = cleanComment(field.Comment.Text())
			}
		}
	}
}

// cleanComment trims whitespace and trailing periods from a doc comment.
func cleanComment(s string) string {
	s = strings.TrimSpace(s)
	// Take only the first line for brevity
	if i := strings.IndexByte(s, '\n'); i > 0 {
		s = s[:i]
	}
	// Strip conventional "TypeName ..." prefix
	if idx := strings.Index(s, " "); idx > 0 {
		prefix := s[:idx]
		if len(prefix) > 0 && prefix[0] >= 'A' && prefix[0] <= 'Z' {
			s = s[idx+1:]
		}
	}
	// Lowercase first letter, trim trailing period
	if len(s) > 0 && s[0] >= 'A' && s[0] <= 'Z' {
		s = strings.ToLower(s[:1]) + s[1:]
	}
	s = strings.TrimRight(s, ".")
	return s
}

func parseModulePath() (string, error) {
	data, err := os.ReadFile("go.mod")
	if err != nil {
		return "", fmt.Errorf("reading go.mod: %w", err)
	}

	f, err := modfile.Parse("go.mod", data, nil)
	if err != nil {
		return "", fmt.Errorf("parsing go.mod: %w", err)
	}

	return f.Module.Mod.Path, nil
}
