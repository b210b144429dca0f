package testjson

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ctx context.Context, r io.Reader) ([]TestEvent, int, error) {
	t.Helper()
	var events []TestEvent
	malformed, err := Stream(ctx, r, func(e TestEvent) {
		events = append(events, e)
	})
	return events, malformed, err
}

func TestStream_DecodesEachLine(t *testing.T) {
	input := strings.Join([]string{
		`{"Action":"run","Package":"shapes","Test":"TestArea"}`,
		`{"Action":"output","Package":"shapes","Test":"TestArea","Output":"##autograde {\"kind\":\"declare\",\"test\":\"TestArea\",\"weight\":3}\n"}`,
		``,
		`{"Action":"pass","Package":"shapes","Test":"TestArea","Elapsed":0.01}`,
		`{"Action":"pass","Package":"shapes","Elapsed":0.5}`,
	}, "\n") + "\n"

	events, malformed, err := collect(t, context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Zero(t, malformed)
	require.Len(t, events, 4)
	assert.Equal(t, "run", events[0].Action)
	assert.Contains(t, events[1].Output, "##autograde")
	assert.Equal(t, "TestArea", events[2].Test)
	assert.Empty(t, events[3].Test)
}

func TestStream_CountsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		`# shapes`,
		`{"Action":"run","Package":"shapes","Test":"TestArea"}`,
		`{truncated`,
		`{"Action":"fail","Package":"shapes","Test":"TestArea","Elapsed":0.1}`,
	}, "\n")

	events, malformed, err := collect(t, context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, malformed)
	assert.Len(t, events, 2)
}

func TestStream_StopsWhenCancelled(t *testing.T) {
	input := strings.Repeat(`{"Action":"run","Package":"shapes","Test":"TestArea"}`+"\n", 10)

	ctx, cancel := context.WithCancel(context.Background())
	var seen int
	_, err := Stream(ctx, strings.NewReader(input), func(TestEvent) {
		seen++
		cancel()
	})
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, 1, seen)
}

// stalledReader blocks in Read until closed, like a pipe whose writer hangs.
type stalledReader struct {
	closed chan struct{}
}

func (s *stalledReader) Read([]byte) (int, error) {
	<-s.closed
	return 0, io.EOF
}

func (s *stalledReader) Close() error {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	return nil
}

func TestStream_CancelClosesStalledReader(t *testing.T) {
	r := &stalledReader{closed: make(chan struct{})}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, _, err := collect(t, ctx, r)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("Stream still blocked on its reader after the deadline")
	}
}
