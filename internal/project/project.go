// Package project discovers the project roots of a workspace and selects the one a build
// runs in.
package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-git/v6"
	"golang.org/x/sync/semaphore"
)

var (
	ErrNoProjects          = errors.New("no projects to build")
	ErrSelectionInProgress = errors.New("a project selection is already in progress")
	errNotACandidate       = errors.New("chosen project is not one of the candidates")
)

type Project struct {
	Root string
}

// Name is what the user picks the project by
func (p Project) Name() string { return filepath.Base(p.Root) }

// Chooser asks the user to pick exactly one of the candidates
type Chooser interface {
	Choose(ctx context.Context, candidates []Project) (Project, error)
}

// Selector remembers the current project. Only one selection waits on the user at a time.
type Selector struct {
	chooser Chooser
	sem     *semaphore.Weighted

	mu      sync.Mutex
	current *Project
}

func NewSelector(chooser Chooser) *Selector {
	return &Selector{chooser: chooser, sem: semaphore.NewWeighted(1)}
}

// Select picks the project to build. A single candidate is selected without asking; with
// more than one the chooser is consulted and Select blocks until it answers or ctx is done.
func (s *Selector) Select(ctx context.Context, candidates []Project) (Project, error) {
	switch len(candidates) {
	case 0:
		return Project{}, ErrNoProjects
	case 1:
		s.set(candidates[0])
		return candidates[0], nil
	}

	if !s.sem.TryAcquire(1) {
		return Project{}, ErrSelectionInProgress
	}
	defer s.sem.Release(1)

	chosen, err := s.chooser.Choose(ctx, candidates)
	if err != nil {
		return Project{}, err
	}
	if !slices.Contains(candidates, chosen) {
		return Project{}, fmt.Errorf("%w: %s", errNotACandidate, chosen.Root)
	}
	s.set(chosen)
	return chosen, nil
}

func (s *Selector) set(p Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &p
}

// Current returns the last selected project
func (s *Selector) Current() (Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Project{}, false
	}
	return *s.current, true
}

// FromRoots turns directories into projects with absolute, de-duplicated roots, keeping
// their order
func FromRoots(roots []string) ([]Project, error) {
	projects := make([]Project, 0, len(roots))
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		p := Project{Root: filepath.Clean(abs)}
		if !slices.Contains(projects, p) {
			projects = append(projects, p)
		}
	}
	return projects, nil
}

// Discover returns every directory under base matching one of the doublestar patterns,
// sorted by path
func Discover(base string, patterns []string) ([]Project, error) {
	fsys := os.DirFS(base)
	var roots []string
	for _, pat := range patterns {
		matches, err := doublestar.Glob(fsys, pat)
		if err != nil {
			return nil, fmt.Errorf("workspace pattern %q: %w", pat, err)
		}
		for _, match := range matches {
			path := filepath.Join(base, filepath.FromSlash(match))
			if stat, err := os.Stat(path); err == nil && stat.IsDir() {
				roots = append(roots, path)
			}
		}
	}
	slices.Sort(roots)
	return FromRoots(roots)
}

// GitRoot returns the top level of the git worktree containing dir
func GitRoot(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	return wt.Filesystem.Root(), nil
}

// Candidates resolves the workspace projects: explicit roots win, then the workspace
// patterns relative to dir, then the git worktree around dir, then dir itself.
func Candidates(dir string, roots, patterns []string) ([]Project, error) {
	if len(roots) > 0 {
		return FromRoots(roots)
	}
	if len(patterns) > 0 {
		return Discover(dir, patterns)
	}
	if root, err := GitRoot(dir); err == nil {
		return FromRoots([]string{root})
	}
	return FromRoots([]string{dir})
}
