package stub

import (
	"encoding/json"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const circle = `package circle

import (
	"math"
	"strings"
)

// Celsius is a temperature.
type Celsius float64

type Shape struct{ R float64 }

var registry = map[string]int{}

func init() {
	registry["circle"] = 1
}

// Area returns the area of a circle.
func Area(r float64) float64 {
	// pi r squared
	return math.Pi * r * r
}

func Describe(name string) (label string, ok bool) {
	return strings.ToUpper(name), true
}

func Parse(s string) (int, error) {
	return len(s), nil
}

func Warm() Celsius { return 30 }

func Names() []string { return []string{"a"} }

func Lookup() map[string]int { return registry }

func New() *Shape { return &Shape{R: 1} }

func (s Shape) Scale(k float64) Shape { return Shape{R: s.R * k} }

func Log(msg string) { println(msg) }

func First[T any](xs []T) T { return xs[0] }

func Anything() any { return 1 }
`

func parse(t *testing.T, src []byte) *ast.File {
	t.Helper()
	file, err := parser.ParseFile(token.NewFileSet(), "circle.go", src, parser.ParseComments)
	require.NoError(t, err)
	return file
}

func imports(file *ast.File) map[string]string {
	out := make(map[string]string)
	for _, spec := range file.Imports {
		path, _ := strconv.Unquote(spec.Path.Value)
		name := ""
		if spec.Name != nil {
			name = spec.Name.Name
		}
		out[path] = name
	}
	return out
}

func TestRewrite_ReplacesBodies(t *testing.T) {
	out, err := Rewrite("circle.go", []byte(circle))
	require.NoError(t, err)
	src := string(out)

	assert.Contains(t, src, "return float64(autogradestub.NormFloat64() * 1000)")
	assert.Contains(t, src, "return autogradeStubString(), autogradestub.IntN(2) == 0")
	assert.Contains(t, src, "return int(autogradestub.Int64()), nil")
	assert.Contains(t, src, "return Celsius(float64(autogradestub.NormFloat64() * 1000))")
	assert.Contains(t, src, "return make([]string, autogradestub.IntN(4))")
	assert.Contains(t, src, "return map[string]int{}")
	assert.Contains(t, src, "return new(Shape)")
	assert.Contains(t, src, "return Shape{R: float64(autogradestub.NormFloat64() * 1000)}")
	assert.Contains(t, src, "return *new(T)")
	assert.Contains(t, src, "return autogradestub.Float64()")
	assert.Contains(t, src, `registry["circle"] = 1`, "init is kept")
	assert.Contains(t, src, "// Area returns the area of a circle.")
	assert.NotContains(t, src, "pi r squared")
	assert.NotContains(t, src, "println(msg)")
}

func TestRewrite_PrunesUnusedImports(t *testing.T) {
	out, err := Rewrite("circle.go", []byte(circle))
	require.NoError(t, err)

	got := imports(parse(t, out))
	assert.Equal(t, map[string]string{"math/rand/v2": "autogradestub"}, got)
}

func TestRewrite_KeepsImportsUsedBySignatures(t *testing.T) {
	src := `package timer

import (
	"fmt"
	"time"
	yaml "gopkg.in/yaml.v3"
	_ "embed"
)

func Wait(d time.Duration) time.Duration {
	fmt.Println(d)
	return d
}

func Node() *yaml.Node { return nil }
`
	out, err := Rewrite("timer.go", []byte(src))
	require.NoError(t, err)

	got := imports(parse(t, out))
	assert.Contains(t, got, "time")
	assert.Contains(t, got, "gopkg.in/yaml.v3")
	assert.Contains(t, got, "embed")
	assert.NotContains(t, got, "fmt")
}

func TestRewrite_OutputTypeChecks(t *testing.T) {
	if testing.Short() {
		t.Skip("type-checks the standard library from source")
	}
	out, err := Rewrite("circle.go", []byte(circle))
	require.NoError(t, err)

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "circle.go", out, 0)
	require.NoError(t, err)

	conf := types.Config{Importer: importer.ForCompiler(fset, "source", nil)}
	_, err = conf.Check("circle", fset, []*ast.File{file}, nil)
	require.NoError(t, err, string(out))
}

func TestRewrite_StructFieldsAreRandom(t *testing.T) {
	src := `package geo

import "time"

type Point struct {
	X, Y  float64
	Label string
	_     int
	At    time.Time
	Next  *Point
	Tags  []string
	Box   Box
}

type Box struct {
	Min, Max Point
	Open     bool
}

func Origin() Point { return Point{} }

func Bounds() Box { return Box{} }
`
	out, err := Rewrite("geo.go", []byte(src))
	require.NoError(t, err)
	got := string(out)

	f := "float64(autogradestub.NormFloat64() * 1000)"
	box := "Box{Min: Point{X: " + f + ", Y: " + f
	assert.Contains(t, got, "return Point{X: "+f+", Y: "+f+", Label: autogradeStubString(), Next: new(Point)")
	assert.Contains(t, got, "Tags: make([]string, autogradestub.IntN(4)), Box: Box{Open: autogradestub.IntN(2) == 0}}")
	assert.Contains(t, got, "return "+box)
	assert.NotContains(t, got, "At:")
	assert.Contains(t, imports(parse(t, out)), "time")

	if testing.Short() {
		return
	}
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "geo.go", out, 0)
	require.NoError(t, err)
	conf := types.Config{Importer: importer.ForCompiler(fset, "source", nil)}
	_, err = conf.Check("geo", fset, []*ast.File{file}, nil)
	require.NoError(t, err, string(out))
}

func TestRewrite_SyntaxError(t *testing.T) {
	_, err := Rewrite("bad.go", []byte("package bad\nfunc {"))
	assert.Error(t, err)
}

func TestImportName(t *testing.T) {
	tests := map[string]string{
		"strings":                         "strings",
		"math/rand/v2":                    "rand",
		"gopkg.in/yaml.v3":                "yaml",
		"github.com/mattn/go-runewidth":   "runewidth",
		"github.com/google/go-cmp/cmp":    "cmp",
		"github.com/charmbracelet/x/ansi": "ansi",
	}
	for path, want := range tests {
		assert.Equal(t, want, importName(path), path)
	}
}

func TestWriteOverlay(t *testing.T) {
	srcDir := t.TempDir()
	target := filepath.Join(srcDir, "circle.go")
	require.NoError(t, os.WriteFile(target, []byte(circle), 0o644))

	dir := t.TempDir()
	overlayPath, err := WriteOverlay(dir, target)
	require.NoError(t, err)

	data, err := os.ReadFile(overlayPath)
	require.NoError(t, err)
	var ov Overlay
	require.NoError(t, json.Unmarshal(data, &ov))
	require.Contains(t, ov.Replace, target)

	stubbed, err := os.ReadFile(ov.Replace[target])
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(stubbed), "autogradestub"))

	original, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, circle, string(original), "source must be untouched")
}
