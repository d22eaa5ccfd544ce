// Package action runs the triggered actions: compile (and maybe launch) a source file, or
// select a project and build it with make. One action runs at a time and every outcome is
// reported through a notifier.
package action

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/qobs-build/qrun/internal/build"
	"github.com/qobs-build/qrun/internal/compile"
	"github.com/qobs-build/qrun/internal/config"
	"github.com/qobs-build/qrun/internal/launch"
	"github.com/qobs-build/qrun/internal/msg"
	"github.com/qobs-build/qrun/internal/notify"
	"github.com/qobs-build/qrun/internal/project"
	"github.com/qobs-build/qrun/internal/toolchain"
	"golang.org/x/sync/semaphore"
)

type Orchestrator struct {
	cfg      *config.Config
	launcher launch.Launcher
	notifier notify.Notifier
	selector *project.Selector
	builder  *build.Runner
	tempDir  string

	// slot serializes actions in this process, lock across processes
	slot *semaphore.Weighted
	lock *flock.Flock
}

type Options struct {
	Config   *config.Config
	Launcher launch.Launcher
	Notifier notify.Notifier
	Selector *project.Selector
	Builder  *build.Runner
	// TempDir receives binaries when compile_to_tmpdir is set
	TempDir string
	// LockPath is a file every qrun process sharing it locks while an action runs. Empty
	// means actions are only serialized within this Orchestrator.
	LockPath string
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		cfg:      opts.Config,
		launcher: opts.Launcher,
		notifier: opts.Notifier,
		selector: opts.Selector,
		builder:  opts.Builder,
		tempDir:  opts.TempDir,
		slot:     semaphore.NewWeighted(1),
	}
	if opts.LockPath != "" {
		o.lock = flock.New(opts.LockPath)
	}
	return o
}

// action is one triggered action, its id ties the notifications together
type action struct {
	o  *Orchestrator
	id string
}

func (o *Orchestrator) begin() (*action, error) {
	if !o.slot.TryAcquire(1) {
		return nil, o.refuse(ErrBusy)
	}
	if o.lock != nil {
		locked, err := o.lock.TryLock()
		if err != nil || !locked {
			o.slot.Release(1)
			if err != nil {
				return nil, o.refuse(fmt.Errorf("locking %s: %w", o.lock.Path(), err))
			}
			return nil, o.refuse(ErrBusy)
		}
	}
	return &action{o: o, id: uuid.NewString()}, nil
}

// refuse reports an action that never started
func (o *Orchestrator) refuse(err error) error {
	o.notifier.Notify(notify.Notification{Level: notify.LevelError, Message: err.Error()})
	return err
}

func (a *action) end() {
	if a.o.lock != nil {
		if err := a.o.lock.Unlock(); err != nil {
			msg.Debug("action %s: unlocking %s: %v", a.id, a.o.lock.Path(), err)
		}
	}
	a.o.slot.Release(1)
}

func (a *action) notify(level notify.Level, format string, args ...any) {
	a.o.notifier.Notify(notify.Notification{
		Level:    level,
		Message:  fmt.Sprintf(format, args...),
		ActionID: a.id,
	})
}

func (a *action) fail(err error) error {
	a.notify(notify.LevelError, "%s", err.Error())
	return err
}

// Compile compiles req.SourcePath and, unless disabled, launches the result. The outcome
// is returned for every compiler run that got started; the error is set whenever the
// action ended in an error notification.
func (o *Orchestrator) Compile(req compile.Request) (compile.Outcome, error) {
	a, err := o.begin()
	if err != nil {
		return compile.Outcome{}, err
	}
	defer a.end()
	msg.Debug("action %s: compile %s", a.id, req.SourcePath)

	src, err := sourceFile(req.SourcePath)
	if err != nil {
		return compile.Outcome{}, a.fail(err)
	}
	if req.Language == "" {
		return compile.Outcome{}, a.fail(fmt.Errorf("%w: %s", ErrNoLanguageDetected, filepath.Base(src)))
	}
	tc, err := toolchain.Resolve(o.cfg, req.Language)
	if err != nil {
		return compile.Outcome{}, a.fail(fmt.Errorf("%w: %s", ErrUnsupportedLanguage, req.Language))
	}
	tc.Options = append(slices.Clone(tc.Options), req.ExtraArgs...)

	out := compile.OutputPath(src, o.cfg.CompileToTmpdir, o.tempDir)
	args := tc.Args(src, out, req.Debug)
	msg.Debug("action %s: %s %v", a.id, tc.Command, args)

	outcome, err := compile.Run(tc.Command, args)
	if err != nil {
		return compile.Outcome{}, a.fail(spawnError(tc, err))
	}

	switch outcome.Classification {
	case compile.Error:
		return outcome, a.fail(&CompileError{Outcome: outcome})
	case compile.SuccessWithWarning:
		if o.cfg.ShowWarnings {
			a.notify(notify.LevelWarning, "%s", outcome.Stderr)
		}
	}
	msg.Debug("action %s: compiled %s", a.id, out)

	if o.cfg.RunAfterCompile {
		if err := o.launcher.Launch(launch.Target{BinaryPath: out, Debug: req.Debug}); err != nil {
			a.notify(notify.LevelWarning, "%v", err)
		}
	}
	return outcome, nil
}

func sourceFile(path string) (string, error) {
	if path == "" {
		return "", ErrNoFileOpen
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoFileOpen, err)
	}
	stat, err := os.Stat(abs)
	if err != nil || stat.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNoFileOpen, path)
	}
	return abs, nil
}

func spawnError(tc toolchain.Toolchain, err error) error {
	var spawnErr *compile.SpawnError
	if !errors.As(err, &spawnErr) {
		return err
	}
	if alt := toolchain.FindCompiler(tc.Language); alt != "" && alt != tc.Command {
		return fmt.Errorf("%w: %w (found %s on PATH, set it in the config)", ErrCompilerSpawn, err, alt)
	}
	return fmt.Errorf("%w: %w", ErrCompilerSpawn, err)
}

// Build selects one of candidates and runs make for target in it
func (o *Orchestrator) Build(ctx context.Context, candidates []project.Project, target string) error {
	a, err := o.begin()
	if err != nil {
		return err
	}
	defer a.end()
	msg.Debug("action %s: build %q, %d candidate projects", a.id, target, len(candidates))

	p, err := o.selector.Select(ctx, candidates)
	if err != nil {
		if errors.Is(err, project.ErrNoProjects) {
			return a.fail(fmt.Errorf("%w: nothing to build", err))
		}
		return a.fail(err)
	}

	if err := o.builder.Build(build.Request{Project: p, Target: target}); err != nil {
		var failure *build.Failure
		if errors.As(err, &failure) {
			return a.fail(&BuildError{Project: p, Err: failure})
		}
		return a.fail(err)
	}

	a.notify(notify.LevelInfo, "built %s", p.Name())
	return nil
}
