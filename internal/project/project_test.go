package project

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChooser struct {
	calls   int
	pick    string
	seen    []Project
	block   chan struct{}
	entered chan struct{}
	result  *Project
}

func (f *fakeChooser) Choose(ctx context.Context, candidates []Project) (Project, error) {
	f.calls++
	f.seen = candidates
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return Project{}, ctx.Err()
		}
	}
	if f.result != nil {
		return *f.result, nil
	}
	for _, c := range candidates {
		if c.Name() == f.pick {
			return c, nil
		}
	}
	return Project{}, errNoChoice
}

func projects(roots ...string) []Project {
	ps := make([]Project, len(roots))
	for i, r := range roots {
		ps[i] = Project{Root: filepath.Join("/ws", r)}
	}
	return ps
}

func TestSelectNone(t *testing.T) {
	chooser := &fakeChooser{}
	s := NewSelector(chooser)

	_, err := s.Select(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoProjects)
	assert.Zero(t, chooser.calls)

	_, ok := s.Current()
	assert.False(t, ok)
}

func TestSelectSingleSkipsChooser(t *testing.T) {
	chooser := &fakeChooser{}
	s := NewSelector(chooser)

	p, err := s.Select(context.Background(), projects("A"))
	require.NoError(t, err)
	assert.Equal(t, "A", p.Name())
	assert.Zero(t, chooser.calls)

	cur, ok := s.Current()
	assert.True(t, ok)
	assert.Equal(t, p, cur)
}

func TestSelectMany(t *testing.T) {
	chooser := &fakeChooser{pick: "B"}
	s := NewSelector(chooser)
	candidates := projects("A", "B")

	p, err := s.Select(context.Background(), candidates)
	require.NoError(t, err)
	assert.Equal(t, 1, chooser.calls)
	assert.Equal(t, candidates, chooser.seen)
	assert.Equal(t, filepath.Join("/ws", "B"), p.Root)

	cur, _ := s.Current()
	assert.Equal(t, p, cur)
}

func TestSelectOverwritesCurrent(t *testing.T) {
	chooser := &fakeChooser{pick: "B"}
	s := NewSelector(chooser)

	_, err := s.Select(context.Background(), projects("A", "B"))
	require.NoError(t, err)
	_, err = s.Select(context.Background(), projects("C"))
	require.NoError(t, err)

	cur, _ := s.Current()
	assert.Equal(t, "C", cur.Name())
}

func TestSelectRejectsForeignChoice(t *testing.T) {
	chooser := &fakeChooser{result: &Project{Root: "/elsewhere"}}
	s := NewSelector(chooser)

	_, err := s.Select(context.Background(), projects("A", "B"))
	assert.ErrorIs(t, err, errNotACandidate)
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestSelectSingleInFlight(t *testing.T) {
	block := make(chan struct{})
	entered := make(chan struct{})
	chooser := &fakeChooser{pick: "A", block: block, entered: entered}
	s := NewSelector(chooser)

	done := make(chan error, 1)
	go func() {
		_, err := s.Select(context.Background(), projects("A", "B"))
		done <- err
	}()

	<-entered

	_, err := s.Select(context.Background(), projects("A", "B"))
	assert.ErrorIs(t, err, ErrSelectionInProgress)

	close(block)
	assert.NoError(t, <-done)
}

func TestSelectContextCancelled(t *testing.T) {
	chooser := &fakeChooser{block: make(chan struct{})}
	s := NewSelector(chooser)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.Select(ctx, projects("A", "B"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPromptByNumberAndName(t *testing.T) {
	candidates := projects("A", "B")

	var out bytes.Buffer
	p := &Prompt{In: strings.NewReader("2\n"), Out: &out}
	chosen, err := p.Choose(context.Background(), candidates)
	require.NoError(t, err)
	assert.Equal(t, candidates[1], chosen)
	assert.Contains(t, out.String(), "1) A")
	assert.Contains(t, out.String(), "2) B")

	p = &Prompt{In: strings.NewReader(" A \n"), Out: io.Discard}
	chosen, err = p.Choose(context.Background(), candidates)
	require.NoError(t, err)
	assert.Equal(t, candidates[0], chosen)
}

func TestPromptAsksAgain(t *testing.T) {
	candidates := projects("A", "B")
	var out bytes.Buffer
	p := &Prompt{In: strings.NewReader("0\nC\n\n3\nB\n"), Out: &out}

	chosen, err := p.Choose(context.Background(), candidates)
	require.NoError(t, err)
	assert.Equal(t, candidates[1], chosen)
	assert.Equal(t, 4, strings.Count(out.String(), "pick a number between 1 and 2"))
}

func TestPromptInputClosed(t *testing.T) {
	p := &Prompt{In: strings.NewReader("nope\n"), Out: io.Discard}
	_, err := p.Choose(context.Background(), projects("A", "B"))
	assert.ErrorIs(t, err, errNoChoice)
}

func TestPromptContextDone(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &Prompt{In: r, Out: io.Discard}
	_, err := p.Choose(ctx, projects("A", "B"))
	assert.ErrorIs(t, err, context.Canceled)
}

type countingReader struct {
	r     io.Reader
	reads atomic.Int32
}

func (c *countingReader) Read(b []byte) (int, error) {
	c.reads.Add(1)
	return c.r.Read(b)
}

func TestPromptStopsReadingAfterAnswer(t *testing.T) {
	r, w := io.Pipe()
	t.Cleanup(func() { w.Close() })
	in := &countingReader{r: r}
	go w.Write([]byte("1\n"))

	candidates := projects("A", "B")
	p := &Prompt{In: in, Out: io.Discard}
	chosen, err := p.Choose(context.Background(), candidates)
	require.NoError(t, err)
	assert.Equal(t, candidates[0], chosen)

	// later input belongs to whoever reads stdin next
	assert.Never(t, func() bool { return in.reads.Load() > 1 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestMatchDuplicateNames(t *testing.T) {
	candidates := []Project{{Root: "/one/app"}, {Root: "/two/app"}}
	_, ok := match("app", candidates)
	assert.False(t, ok)

	p, ok := match("2", candidates)
	assert.True(t, ok)
	assert.Equal(t, "/two/app", p.Root)
}

func TestFromRoots(t *testing.T) {
	ps, err := FromRoots([]string{"/ws/a", "/ws/b/", "/ws/a"})
	require.NoError(t, err)
	assert.Equal(t, []Project{{Root: filepath.Clean("/ws/a")}, {Root: filepath.Clean("/ws/b")}}, ps)
}

func TestDiscover(t *testing.T) {
	base := t.TempDir()
	for _, dir := range []string{"libs/core", "libs/net", "apps/cli", "docs"} {
		require.NoError(t, os.MkdirAll(filepath.Join(base, dir), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(base, "libs", "README"), nil, 0o644))

	ps, err := Discover(base, []string{"libs/*", "apps/*"})
	require.NoError(t, err)

	var names []string
	for _, p := range ps {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"cli", "core", "net"}, names)
}

func TestGitRoot(t *testing.T) {
	root := t.TempDir()
	_, err := git.PlainInit(root, false)
	require.NoError(t, err)
	sub := filepath.Join(root, "src", "deep")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	got, err := GitRoot(sub)
	require.NoError(t, err)

	want, _ := filepath.EvalSymlinks(root)
	got, _ = filepath.EvalSymlinks(got)
	assert.Equal(t, want, got)
}

func TestCandidatesPrecedence(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "p", "one"), 0o755))

	explicit, err := Candidates(base, []string{"/x"}, []string{"p/*"})
	require.NoError(t, err)
	assert.Equal(t, []Project{{Root: filepath.Clean("/x")}}, explicit)

	globbed, err := Candidates(base, nil, []string{"p/*"})
	require.NoError(t, err)
	require.Len(t, globbed, 1)
	assert.Equal(t, "one", globbed[0].Name())

	none, err := Candidates(base, nil, []string{"q/*"})
	require.NoError(t, err)
	assert.Empty(t, none)
}
