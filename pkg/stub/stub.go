// Package stub rewrites Go source so that every function returns random values.
//
// The rewritten file keeps every signature, type and package-level
// declaration; only function bodies change. It is handed to go test through
// an overlay, so the file on disk is never touched.
package stub

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/tools/go/ast/astutil"
)

const (
	randAlias  = "autogradestub"
	randPath   = "math/rand/v2"
	stringFunc = "autogradeStubString"
)

const helper = `

func ` + stringFunc + `() string {
	b := make([]byte, 4+` + randAlias + `.IntN(12))
	for i := range b {
		b[i] = byte('a' + ` + randAlias + `.IntN(26))
	}
	return string(b)
}
`

// Rewrite returns src with every top-level function and method body
// replaced by a return of fresh random values. init functions are kept.
//
// Struct types declared in src get random values in their fields of
// basic type. Anything without a random form here, such as a type
// parameter, an array, a channel or a type from another package, is
// returned as its zero value.
func Rewrite(filename string, src []byte) ([]byte, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}

	rw := &rewriter{fset: fset, src: src, named: make(map[string]ast.Expr), building: make(map[string]bool)}
	rw.collectTypes(file)

	type edit struct {
		start, end int
		text       string
	}
	var edits []edit
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil || (fn.Recv == nil && fn.Name.Name == "init") {
			continue
		}
		edits = append(edits, edit{
			start: rw.offset(fn.Body.Lbrace),
			end:   rw.offset(fn.Body.Rbrace) + 1,
			text:  rw.body(fn.Type),
		})
	}
	slices.SortFunc(edits, func(a, b edit) int { return b.start - a.start })

	out := slices.Clone(src)
	for _, e := range edits {
		out = slices.Concat(out[:e.start], []byte(e.text), out[e.end:])
	}
	out = append(out, helper...)

	return finish(filename, out)
}

// finish prunes imports the removed bodies used and adds the rand import.
func finish(filename string, src []byte) ([]byte, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("reparsing stubbed %s: %w", filename, err)
	}
	for _, spec := range slices.Clone(file.Imports) {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		name := ""
		if spec.Name != nil {
			name = spec.Name.Name
		}
		if name == "_" || name == "." {
			continue
		}
		local := name
		if local == "" {
			local = importName(path)
		}
		if !uses(file, local) {
			astutil.DeleteNamedImport(fset, file, name, path)
		}
	}
	astutil.AddNamedImport(fset, file, randAlias, randPath)

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return nil, fmt.Errorf("formatting stubbed %s: %w", filename, err)
	}
	return buf.Bytes(), nil
}

var majorVersion = regexp.MustCompile(`^v[0-9]+$`)

// importName guesses the package name of an unnamed import.
func importName(path string) string {
	parts := strings.Split(path, "/")
	name := parts[len(parts)-1]
	if majorVersion.MatchString(name) && len(parts) > 1 {
		name = parts[len(parts)-2]
	}
	if i := strings.Index(name, ".v"); i > 0 {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "go-")
	return strings.ReplaceAll(name, "-", "_")
}

// uses reports whether any selector in file is qualified by name.
func uses(file *ast.File, name string) bool {
	found := false
	ast.Inspect(file, func(n ast.Node) bool {
		if found {
			return false
		}
		if sel, ok := n.(*ast.SelectorExpr); ok {
			if id, ok := sel.X.(*ast.Ident); ok && id.Name == name {
				found = true
			}
		}
		return true
	})
	return found
}

type rewriter struct {
	fset     *token.FileSet
	src      []byte
	named    map[string]ast.Expr
	building map[string]bool // struct literals being built
}

func (rw *rewriter) collectTypes(file *ast.File) {
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts := spec.(*ast.TypeSpec)
			if ts.TypeParams == nil && !ts.Assign.IsValid() {
				rw.named[ts.Name.Name] = ts.Type
			}
		}
	}
}

func (rw *rewriter) offset(p token.Pos) int {
	return rw.fset.Position(p).Offset
}

// text returns the source of node n.
func (rw *rewriter) text(n ast.Node) string {
	return string(rw.src[rw.offset(n.Pos()):rw.offset(n.End())])
}

func (rw *rewriter) body(ft *ast.FuncType) string {
	if ft.Results == nil || len(ft.Results.List) == 0 {
		return "{}"
	}
	var values []string
	for _, field := range ft.Results.List {
		v := rw.value(field.Type)
		for range max(1, len(field.Names)) {
			values = append(values, v)
		}
	}
	return "{\n\treturn " + strings.Join(values, ", ") + "\n}"
}

// value returns an expression producing a random value of type t.
func (rw *rewriter) value(t ast.Expr) string {
	switch t := t.(type) {
	case *ast.ParenExpr:
		return rw.value(t.X)
	case *ast.Ident:
		if v, ok := basic(t.Name); ok {
			return v
		}
		switch under := rw.named[t.Name].(type) {
		case *ast.Ident:
			if v, ok := basic(under.Name); ok && under.Name != "error" && under.Name != "any" {
				return t.Name + "(" + v + ")"
			}
		case *ast.StructType:
			if !rw.building[t.Name] {
				return rw.structValue(t.Name, under)
			}
		}
	case *ast.StarExpr:
		return "new(" + rw.text(t.X) + ")"
	case *ast.ArrayType:
		if t.Len == nil {
			return "make(" + rw.text(t) + ", " + randAlias + ".IntN(4))"
		}
	case *ast.MapType:
		return rw.text(t) + "{}"
	case *ast.InterfaceType:
		if t.Methods == nil || len(t.Methods.List) == 0 {
			return randAlias + ".Float64()"
		}
	}
	return "*new(" + rw.text(t) + ")"
}

// structValue returns a literal of struct type name with random values in
// every named field that has one.
func (rw *rewriter) structValue(name string, st *ast.StructType) string {
	rw.building[name] = true
	defer delete(rw.building, name)

	var fields []string
	for _, field := range st.Fields.List {
		v := rw.value(field.Type)
		if strings.HasPrefix(v, "*new(") {
			continue
		}
		for _, id := range field.Names {
			if id.Name != "_" {
				fields = append(fields, id.Name+": "+v)
			}
		}
	}
	return name + "{" + strings.Join(fields, ", ") + "}"
}

// basic returns a random value expression for a predeclared type name.
func basic(name string) (string, bool) {
	switch name {
	case "bool":
		return randAlias + ".IntN(2) == 0", true
	case "string":
		return stringFunc + "()", true
	case "int", "int8", "int16", "int32", "int64", "rune":
		return name + "(" + randAlias + ".Int64())", true
	case "uint", "uint8", "uint16", "uint32", "uint64", "uintptr", "byte":
		return name + "(" + randAlias + ".Uint64())", true
	case "float32", "float64":
		return name + "(" + randAlias + ".NormFloat64() * 1000)", true
	case "complex64", "complex128":
		return name + "(complex(" + randAlias + ".Float64(), " + randAlias + ".Float64()))", true
	case "error":
		return "nil", true
	case "any":
		return randAlias + ".Float64()", true
	}
	return "", false
}
