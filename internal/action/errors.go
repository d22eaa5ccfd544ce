package action

import (
	"errors"
	"fmt"

	"github.com/qobs-build/qrun/internal/build"
	"github.com/qobs-build/qrun/internal/compile"
	"github.com/qobs-build/qrun/internal/project"
)

var (
	ErrNoFileOpen          = errors.New("cannot find file")
	ErrNoLanguageDetected  = errors.New("no language detected for file")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrCompilerSpawn       = errors.New("compiler could not be started")
	ErrCompile             = errors.New("compilation failed")
	ErrNoProjectsToBuild   = project.ErrNoProjects
	ErrNoMakefile          = build.ErrNoMakefile
	ErrMakeNotFound        = build.ErrMakeNotFound
	ErrBuildFailure        = errors.New("build failed")

	// ErrBusy is returned while another compile or build holds the action slot
	ErrBusy = errors.New("another compile or build is still running")
)

// CompileError is a compiler that exited nonzero. Its message is the compiler's stderr.
type CompileError struct {
	Outcome compile.Outcome
}

func (e *CompileError) Error() string {
	if e.Outcome.Stderr == "" {
		return fmt.Sprintf("compiler exited with status %d", e.Outcome.ExitCode)
	}
	return e.Outcome.Stderr
}

func (e *CompileError) Unwrap() error { return ErrCompile }

// BuildError is a make process that exited nonzero
type BuildError struct {
	Project project.Project
	Err     *build.Failure
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("building %s: %v", e.Project.Name(), e.Err)
}

func (e *BuildError) Unwrap() []error { return []error{ErrBuildFailure, e.Err} }
