// Package build runs make inside a project root.
package build

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/qobs-build/qrun/internal/msg"
	"github.com/qobs-build/qrun/internal/project"
)

// MakefileName is the only build descriptor recognized
const MakefileName = "Makefile"

var (
	ErrNoMakefile   = errors.New("no " + MakefileName + " in project root")
	ErrMakeNotFound = errors.New("make not found")
)

// Failure is a make process that exited nonzero
type Failure struct {
	ExitCode int
}

func (f *Failure) Error() string {
	return fmt.Sprintf("make exited with status %d", f.ExitCode)
}

// Request builds Target (the default target when empty) in Project
type Request struct {
	Project project.Project
	Target  string
}

// MakeCommand is the name make goes by on goos
func MakeCommand(goos string) string {
	if goos == "windows" {
		return "mingw32-make"
	}
	return "make"
}

type Runner struct {
	// Make is the make command to invoke
	Make string
	// Output receives make's stdout and stderr, indented. Discarded when nil.
	Output io.Writer

	command func(name string, args ...string) *exec.Cmd
}

func NewRunner(goos string) *Runner {
	return &Runner{Make: MakeCommand(goos), Output: os.Stdout}
}

func (r *Runner) cmd(name string, args ...string) *exec.Cmd {
	if r.command != nil {
		return r.command(name, args...)
	}
	return exec.Command(name, args...)
}

// HasMakefile reports whether dir directly contains a file named exactly Makefile
func HasMakefile(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Name() == MakefileName && !e.IsDir() {
			return true, nil
		}
	}
	return false, nil
}

// Available probes for the make command by asking it for its version
func (r *Runner) Available() bool {
	probe := r.cmd(r.Make, "--version")
	probe.Stdout = io.Discard
	probe.Stderr = io.Discard
	return probe.Run() == nil
}

// Build runs make in the project root. Each step stops the build on failure: a missing
// Makefile, a missing make, or make exiting nonzero. Output is streamed, never captured.
func (r *Runner) Build(req Request) error {
	root := req.Project.Root
	ok, err := HasMakefile(root)
	if err != nil {
		return fmt.Errorf("reading project root: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoMakefile, root)
	}

	if !r.Available() {
		return fmt.Errorf("%w: %q", ErrMakeNotFound, r.Make)
	}

	var args []string
	if req.Target != "" {
		args = append(args, req.Target)
	}
	cmd := r.cmd(r.Make, args...)
	cmd.Dir = root
	if r.Output != nil {
		w := &msg.IndentWriter{Indent: "    ", W: r.Output}
		cmd.Stdout = w
		cmd.Stderr = w
	}

	msg.Debug("running %s in %s", strings.Join(cmd.Args, " "), root)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &Failure{ExitCode: exitErr.ExitCode()}
		}
		return fmt.Errorf("running %s: %w", r.Make, err)
	}
	return nil
}
