// Package audit inspects student source for code the autograder forbids
// and counts constructs an assignment may require or restrict.
package audit

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/tools/go/ast/inspector"
)

// ForbiddenImports are packages student code may not import. An entry also
// forbids every package beneath it.
var ForbiddenImports = []string{
	// Network connections
	"net",
	"crypto/tls",
	// Process and OS access
	"os/exec",
	"os/signal",
	"syscall",
	"golang.org/x/sys",
	"plugin",
	"unsafe",
	// Test harness access
	"testing",
	"runtime/debug",
	"github.com/dkoosis/autograde",
}

// ForbiddenCalls are package functions student code may not call.
var ForbiddenCalls = []Call{
	{"os", "StartProcess"},
	{"os", "Chdir"},
	{"os", "Setenv"},
	{"os", "Unsetenv"},
	{"os", "Clearenv"},
	{"os", "RemoveAll"},
	{"runtime", "Goexit"},
	{"runtime", "SetFinalizer"},
}

// Call names a package-level function by import path.
type Call struct {
	Path string
	Name string
}

func (c Call) String() string { return c.Path + "." + c.Name }

// Rule identifiers of violations.
const (
	RuleImport = "forbidden-import"
	RuleCall   = "forbidden-call"
)

// Rules describes each rule ID.
var Rules = map[string]string{
	RuleImport: "Student code imports a forbidden package.",
	RuleCall:   "Student code calls a forbidden function.",
}

// Violation is one forbidden use.
type Violation struct {
	Pos     token.Position
	Rule    string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s:%d:%d %s", v.Pos.Filename, v.Pos.Line, v.Pos.Column, v.Message)
}

// Check reports the forbidden imports and calls in the given files. Test
// files are skipped since they import testing by necessity.
func Check(files ...string) ([]Violation, error) {
	var out []Violation
	for _, path := range files {
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			continue
		}
		fset := token.NewFileSet()
		f, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		out = append(out, checkFile(fset, f)...)
	}
	return out, nil
}

func checkFile(fset *token.FileSet, f *ast.File) []Violation {
	var out []Violation
	locals := map[string]string{} // local name -> import path
	for _, spec := range f.Imports {
		path, _ := strconv.Unquote(spec.Path.Value)
		if forbiddenImport(path) {
			out = append(out, Violation{fset.Position(spec.Pos()), RuleImport, "imports " + path})
		}
		locals[localName(spec, path)] = path
	}

	in := inspector.New([]*ast.File{f})
	in.Preorder([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node) {
		path, name, ok := qualified(n.(*ast.CallExpr).Fun, locals)
		if !ok {
			return
		}
		for _, c := range ForbiddenCalls {
			if c.Path == path && c.Name == name {
				out = append(out, Violation{fset.Position(n.Pos()), RuleCall, "calls " + c.String() + "()"})
			}
		}
	})
	return out
}

func forbiddenImport(path string) bool {
	for _, p := range ForbiddenImports {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func localName(spec *ast.ImportSpec, path string) string {
	if spec.Name != nil {
		return spec.Name.Name
	}
	return path[strings.LastIndex(path, "/")+1:]
}

// qualified resolves pkg.Func to its import path.
func qualified(fun ast.Expr, locals map[string]string) (path, name string, ok bool) {
	sel, ok := fun.(*ast.SelectorExpr)
	if !ok {
		return "", "", false
	}
	x, ok := sel.X.(*ast.Ident)
	if !ok {
		return "", "", false
	}
	path, ok = locals[x.Name]
	return path, sel.Sel.Name, ok
}

// AssertNoForbidden fails t when any of the files use forbidden code.
func AssertNoForbidden(t testing.TB, files ...string) {
	t.Helper()
	vs, err := Check(files...)
	if err != nil {
		t.Fatal(err)
		return
	}
	if len(vs) == 0 {
		return
	}
	var sb strings.Builder
	sb.WriteString("forbidden code:\n")
	for _, v := range vs {
		sb.WriteString("  " + v.String() + "\n")
	}
	t.Error(sb.String())
}

func parse(filename string) (*ast.File, error) {
	f, err := parser.ParseFile(token.NewFileSet(), filename, nil, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	return f, nil
}

// CountCalls counts calls of fn in filename. fn is either a bare name
// ("len", "helper") or an import path and function ("fmt.Println",
// "math/rand.IntN"), matched through the file's import names.
func CountCalls(filename, fn string) (int, error) {
	f, err := parse(filename)
	if err != nil {
		return 0, err
	}
	locals := map[string]string{}
	for _, spec := range f.Imports {
		path, _ := strconv.Unquote(spec.Path.Value)
		locals[localName(spec, path)] = path
	}

	wantPath, wantName := "", fn
	if i := strings.LastIndex(fn, "."); i >= 0 {
		wantPath, wantName = fn[:i], fn[i+1:]
	}

	count := 0
	inspector.New([]*ast.File{f}).Preorder([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node) {
		fun := n.(*ast.CallExpr).Fun
		if wantPath == "" {
			if id, ok := fun.(*ast.Ident); ok && id.Name == wantName {
				count++
			}
			return
		}
		if path, name, ok := qualified(fun, locals); ok && path == wantPath && name == wantName {
			count++
		}
	})
	return count, nil
}

// CountNodes maps AST node type names ("ForStmt", "IfStmt", ...) to the
// number of times they occur in filename.
func CountNodes(filename string) (map[string]int, error) {
	f, err := parse(filename)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	ast.Inspect(f, func(n ast.Node) bool {
		if n != nil {
			counts[reflect.TypeOf(n).Elem().Name()]++
		}
		return true
	})
	return counts, nil
}

// CountLoops counts for and range statements in filename.
func CountLoops(filename string) (int, error) {
	counts, err := CountNodes(filename)
	if err != nil {
		return 0, err
	}
	return counts["ForStmt"] + counts["RangeStmt"], nil
}

// CountMatches counts matches of pattern in filename, ignoring comments
// when stripComments is set.
func CountMatches(filename, pattern string, stripComments bool) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("pattern %q: %w", pattern, err)
	}
	src, err := os.ReadFile(filename)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", filename, err)
	}
	if stripComments {
		src = RemoveComments(src)
	}
	return len(re.FindAll(src, -1)), nil
}

// RemoveComments blanks every comment in src, keeping newlines so line
// numbers are unchanged.
func RemoveComments(src []byte) []byte {
	out := append([]byte(nil), src...)
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))
	var s scanner.Scanner
	s.Init(file, src, nil, scanner.ScanComments)
	for {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		}
		if tok != token.COMMENT {
			continue
		}
		start := file.Offset(pos)
		for i := start; i < start+len(lit) && i < len(out); i++ {
			if out[i] != '\n' {
				out[i] = ' '
			}
		}
	}
	return out
}
