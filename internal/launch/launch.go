// Package launch starts compiled programs in a terminal of their own.
package launch

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/qobs-build/qrun/internal/config"
	"github.com/qobs-build/qrun/internal/msg"
)

var ErrUnsupportedPlatform = errors.New("launching programs is not supported on this platform")

// Target is a compiled binary to start
type Target struct {
	BinaryPath string
	Debug      bool
}

// Launcher starts a target without waiting for it. The returned error only covers
// starting the terminal.
type Launcher interface {
	Launch(t Target) error
}

// ForPlatform picks the launcher for goos
func ForPlatform(goos string, cfg *config.Config) Launcher {
	switch goos {
	case "windows":
		return &Windows{Debugger: cfg.Debugger}
	case "linux":
		return &Linux{Terminal: cfg.LinuxTerminal, Debugger: cfg.Debugger}
	default:
		return Unsupported{GOOS: goos}
	}
}

func program(t Target, debugger string) []string {
	if t.Debug {
		return []string{debugger, t.BinaryPath}
	}
	return []string{t.BinaryPath}
}

func start(cmd *exec.Cmd) error {
	msg.Debug("launching %s", strings.Join(cmd.Args, " "))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", cmd.Path, err)
	}
	// reap the terminal whenever it goes away, nobody waits for the result
	go cmd.Wait()
	return nil
}

// Windows opens a new console window. Without a debugger the console pauses after the
// program exits so its output stays visible.
type Windows struct {
	Debugger string
}

func (w *Windows) Command(t Target) *exec.Cmd {
	if t.Debug {
		return exec.Command("cmd", append([]string{"/C", "start", "cmd", "/C"}, program(t, w.Debugger)...)...)
	}
	return exec.Command("cmd", "/C", "start", "cmd", "/C", t.BinaryPath+" & pause")
}

func (w *Windows) Launch(t Target) error { return start(w.Command(t)) }

// Linux runs the target inside a terminal emulator
type Linux struct {
	Terminal config.Terminal
	Debugger string
}

func (l *Linux) Command(t Target) *exec.Cmd {
	prog := program(t, l.Debugger)
	switch l.Terminal {
	case config.TerminalDefault:
		return exec.Command("x-terminal-emulator", append([]string{"-e"}, prog...)...)
	case config.TerminalGnome:
		return exec.Command("gnome-terminal", append([]string{"--"}, prog...)...)
	case config.TerminalKonsole:
		return exec.Command("konsole", append([]string{"-e"}, prog...)...)
	case config.TerminalXfce:
		return exec.Command("xfce4-terminal", append([]string{"-x"}, prog...)...)
	case config.TerminalPantheon:
		// pantheon-terminal takes the whole command as one string
		return exec.Command("pantheon-terminal", "-e", strings.Join(prog, " "))
	default:
		return exec.Command("xterm", append([]string{"-e"}, prog...)...)
	}
}

func (l *Linux) Launch(t Target) error { return start(l.Command(t)) }

// Unsupported is used on platforms with no known terminal mechanism
type Unsupported struct {
	GOOS string
}

func (u Unsupported) Launch(Target) error {
	return fmt.Errorf("%w (%s)", ErrUnsupportedPlatform, u.GOOS)
}
