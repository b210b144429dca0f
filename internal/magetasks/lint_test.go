package magetasks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoFiles_SkipsHiddenAndTestdata(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"main.go",
		"pkg/a/a.go",
		"pkg/a/a_test.go",
		"pkg/a/testdata/fixture.go",
		"_examples/x/x.go",
		".git/hooks/h.go",
		"README.md",
	} {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("package x\n"), 0o644))
	}

	files, err := GoFiles(root)
	require.NoError(t, err)

	want := []string{
		filepath.Join(root, "main.go"),
		filepath.Join(root, "pkg/a/a.go"),
		filepath.Join(root, "pkg/a/a_test.go"),
	}
	assert.ElementsMatch(t, want, files)
}

func TestLintFormat(t *testing.T) {
	captureOut(t)
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile("ok.go", []byte("package x\n\nfunc F() {}\n"), 0o644))
	assert.NoError(t, LintFormat())

	require.NoError(t, os.WriteFile("bad.go", []byte("package x\nfunc  G( ) {\n}\n"), 0o644))
	assert.ErrorContains(t, LintFormat(), "1 files need gofmt")
}
