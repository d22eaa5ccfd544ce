// Package compile runs a compiler as a child process and classifies how it went.
package compile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Request is a single compile of one source file
type Request struct {
	SourcePath string
	Language   string
	Debug      bool
	ExtraArgs  []string
}

type Classification int

const (
	Success Classification = iota
	SuccessWithWarning
	Error
)

func (c Classification) String() string {
	switch c {
	case Success:
		return "success"
	case SuccessWithWarning:
		return "success with warnings"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Classification(%d)", int(c))
	}
}

// Outcome is what a finished compiler process left behind
type Outcome struct {
	ExitCode       int
	Stderr         string
	Classification Classification
}

// Succeeded reports whether the binary was produced
func (o Outcome) Succeeded() bool { return o.Classification != Error }

// Classify buckets an exit code and the captured stderr: a nonzero exit is an error, a zero
// exit with stderr output is a success with warnings.
func Classify(exitCode int, stderr string) Classification {
	switch {
	case exitCode != 0:
		return Error
	case stderr != "":
		return SuccessWithWarning
	default:
		return Success
	}
}

// SpawnError means the compiler could not be started at all
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("could not run compiler %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Run spawns command with args and waits for it to exit. Everything the process writes to
// stderr is accumulated in order; stdout goes to the null device. Once started the process
// is never cancelled.
func Run(command string, args []string) (Outcome, error) {
	var stderr bytes.Buffer
	cmd := exec.Command(command, args...)
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return Outcome{}, &SpawnError{Command: command, Err: err}
	}

	var exitErr *exec.ExitError
	if err := cmd.Wait(); err != nil && !errors.As(err, &exitErr) {
		return Outcome{}, fmt.Errorf("waiting for %s: %w", command, err)
	}

	code := cmd.ProcessState.ExitCode()
	text := stderr.String()
	return Outcome{
		ExitCode:       code,
		Stderr:         text,
		Classification: Classify(code, text),
	}, nil
}

// OutputPath is the binary produced from src: src without its extension, moved into tmpDir
// when toTmp is set.
func OutputPath(src string, toTmp bool, tmpDir string) string {
	out := strings.TrimSuffix(src, filepath.Ext(src))
	if toTmp {
		out = filepath.Join(tmpDir, filepath.Base(out))
	}
	return out
}

// TempDir returns the directory binaries are compiled into. Windows reads TEMP then TMP,
// falling back to os.TempDir when neither is set. Everything else uses /tmp.
func TempDir(goos string, getenv func(string) string) string {
	if goos != "windows" {
		return "/tmp"
	}
	for _, key := range []string{"TEMP", "TMP"} {
		if dir := getenv(key); dir != "" {
			return dir
		}
	}
	return os.TempDir()
}
