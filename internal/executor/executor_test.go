package executor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/autograde/pkg/session"
	"github.com/dkoosis/autograde/pkg/testjson"
)

func TestOptions_Args(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "defaults",
			want: []string{"test", "-json", "-count=1", "."},
		},
		{
			name: "stub child",
			opts: Options{Run: "^(TestA|TestB)$", Overlay: "/tmp/overlay.json"},
			want: []string{"test", "-json", "-count=1", "-run", "^(TestA|TestB)$", "-overlay", "/tmp/overlay.json", "."},
		},
		{
			name: "coverage",
			opts: Options{CoverProfile: "c.out", Packages: []string{"./circle"}},
			want: []string{"test", "-json", "-count=1", "-covermode=count", "-coverprofile", "c.out", "./circle"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.Args())
		})
	}
}

// fakeGo writes a script that prints the given events and exits with code.
func fakeGo(t *testing.T, events string, code int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in for go needs a POSIX shell")
	}
	dir := t.TempDir()
	data := filepath.Join(dir, "events.json")
	require.NoError(t, os.WriteFile(data, []byte(events), 0o644))
	script := filepath.Join(dir, "go")
	body := "#!/bin/sh\ncat '" + data + "'\necho 'go: some warning' >&2\nexit " + strconv.Itoa(code) + "\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script
}

func TestRun_FeedsSession(t *testing.T) {
	goBin := fakeGo(t, `{"Action":"run","Package":"p","Test":"TestA"}
{"Action":"output","Package":"p","Test":"TestA","Output":"##autograde {\"kind\":\"declare\",\"test\":\"TestA\",\"weight\":2}\n"}
{"Action":"pass","Package":"p","Test":"TestA"}
{"Action":"run","Package":"p","Test":"TestB"}
{"Action":"fail","Package":"p","Test":"TestB"}
{"Action":"fail","Package":"p"}
`, 1)

	s := session.New()
	require.NoError(t, s.Start(session.ModeNormal, filepath.Join(t.TempDir(), "results.json")))
	in := testjson.NewIngester(s)

	res, err := Run(context.Background(), Options{GoBin: goBin}, in, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, res.Stderr, "some warning")
	assert.Equal(t, 2, res.Summary.Tests)

	doc, err := s.Finalize()
	require.NoError(t, err)
	require.Len(t, doc.Tests, 2)
	assert.Equal(t, 2.0, doc.Score)
}

func TestRun_MissingGoIsCollectionFailure(t *testing.T) {
	s := session.New()
	require.NoError(t, s.Start(session.ModeNormal, filepath.Join(t.TempDir(), "results.json")))
	in := testjson.NewIngester(s)

	_, err := Run(context.Background(), Options{GoBin: filepath.Join(t.TempDir(), "no-such-go")}, in, nil)
	require.Error(t, err)

	doc, err := s.Finalize()
	require.NoError(t, err)
	require.Len(t, doc.Tests, 1)
	assert.Equal(t, ". [build failed]", doc.Tests[0].Name)
	assert.Contains(t, doc.Tests[0].Output, "could not run")
	assert.Empty(t, doc.Tests[0].Status)
}
