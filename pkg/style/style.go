// Package style checks that student code is formatted, vetted and
// documented.
package style

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// Result lists the files that fail a check along with their issues.
type Result struct {
	Files  []string
	Issues []string
}

// OK reports whether the check found nothing.
func (r *Result) OK() bool {
	return len(r.Files) == 0 && len(r.Issues) == 0
}

// render formats the result as a heading followed by indented issues.
func (r *Result) render(heading string) string {
	var sb strings.Builder
	sb.WriteString(heading)
	sb.WriteString(":\n")
	for _, issue := range r.Issues {
		sb.WriteString("  ")
		sb.WriteString(issue)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Unformatted reports the files whose contents differ from gofmt's output.
func Unformatted(files ...string) (*Result, error) {
	r := &Result{}
	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		formatted, err := format.Source(src)
		if err != nil {
			r.Files = append(r.Files, path)
			r.Issues = append(r.Issues, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			continue
		}
		if !bytes.Equal(src, formatted) {
			r.Files = append(r.Files, path)
			r.Issues = append(r.Issues, fmt.Sprintf("%s:%d: needs gofmt", filepath.Base(path), firstDiff(src, formatted)))
		}
	}
	return r, nil
}

// firstDiff returns the first line where a and b differ.
func firstDiff(a, b []byte) int {
	al := bytes.Split(a, []byte("\n"))
	bl := bytes.Split(b, []byte("\n"))
	for i := 0; i < len(al) && i < len(bl); i++ {
		if !bytes.Equal(al[i], bl[i]) {
			return i + 1
		}
	}
	return min(len(al), len(bl)) + 1
}

// AssertFormatted fails t when any file is not gofmt-clean.
func AssertFormatted(t testing.TB, files ...string) {
	t.Helper()
	r, err := Unformatted(files...)
	if err != nil {
		t.Fatal(err)
		return
	}
	if !r.OK() {
		t.Error(r.render("gofmt issues"))
	}
}

// Undocumented reports exported declarations without doc comments.
func Undocumented(files ...string) (*Result, error) {
	r := &Result{}
	for _, path := range files {
		fset := token.NewFileSet()
		f, err := parser.ParseFile(fset, path, nil, parser.ParseComments|parser.SkipObjectResolution)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		issues := undocumented(fset, f)
		if len(issues) > 0 {
			r.Files = append(r.Files, path)
			r.Issues = append(r.Issues, issues...)
		}
	}
	return r, nil
}

func undocumented(fset *token.FileSet, f *ast.File) []string {
	var issues []string
	report := func(pos token.Pos, kind, name string) {
		p := fset.Position(pos)
		issues = append(issues, fmt.Sprintf("%s:%d: exported %s %s should have a comment",
			filepath.Base(p.Filename), p.Line, kind, name))
	}
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if !d.Name.IsExported() || d.Doc != nil {
				continue
			}
			if d.Recv == nil {
				report(d.Pos(), "function", d.Name.Name)
			} else if recv := receiverName(d.Recv.List[0].Type); ast.IsExported(recv) {
				report(d.Pos(), "method", recv+"."+d.Name.Name)
			}
		case *ast.GenDecl:
			if d.Doc != nil && d.Lparen == token.NoPos {
				continue
			}
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					if s.Name.IsExported() && s.Doc == nil && d.Doc == nil {
						report(s.Pos(), "type", s.Name.Name)
					}
				case *ast.ValueSpec:
					if s.Doc != nil || d.Doc != nil {
						continue
					}
					for _, n := range s.Names {
						if n.IsExported() {
							report(n.Pos(), d.Tok.String(), n.Name)
							break
						}
					}
				}
			}
		}
	}
	return issues
}

func receiverName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.StarExpr:
		return receiverName(e.X)
	case *ast.IndexExpr:
		return receiverName(e.X)
	case *ast.IndexListExpr:
		return receiverName(e.X)
	case *ast.Ident:
		return e.Name
	}
	return ""
}

// AssertDocs fails t when any file has exported declarations without doc
// comments.
func AssertDocs(t testing.TB, files ...string) {
	t.Helper()
	r, err := Undocumented(files...)
	if err != nil {
		t.Fatal(err)
		return
	}
	if !r.OK() {
		t.Error(r.render("doc comment issues"))
	}
}

// Vet runs go vet on the packages in dir and collects its findings with
// dir's path removed.
func Vet(ctx context.Context, dir string, packages ...string) (*Result, error) {
	if len(packages) == 0 {
		packages = []string{"."}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	cmd := exec.CommandContext(ctx, "go", append([]string{"vet"}, packages...)...)
	cmd.Dir = abs
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	var exitErr *exec.ExitError
	if err := cmd.Run(); err != nil && !errors.As(err, &exitErr) {
		return nil, fmt.Errorf("running go vet: %w", err)
	}
	return ParseVet(&stderr, abs), nil
}

// ParseVet reads go vet output, keeping finding lines and dropping the
// package headers vet prints before them.
func ParseVet(r io.Reader, dir string) *Result {
	res := &Result{}
	seen := map[string]bool{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "# ") {
			continue
		}
		line = strings.ReplaceAll(line, dir+string(filepath.Separator), "")
		if file, _, ok := strings.Cut(line, ":"); ok && strings.HasSuffix(file, ".go") && !seen[file] {
			seen[file] = true
			res.Files = append(res.Files, file)
		}
		res.Issues = append(res.Issues, line)
	}
	return res
}

// AssertVet fails t when go vet reports problems in dir.
func AssertVet(t testing.TB, dir string) {
	t.Helper()
	r, err := Vet(t.Context(), dir)
	if err != nil {
		t.Fatal(err)
		return
	}
	if !r.OK() {
		t.Error(r.render("go vet issues"))
	}
}
