package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pelletier/go-toml/v2"
)

const (
	// LocalFilename is looked up in the current directory
	LocalFilename = "Qrun.toml"
	appName       = "qrun"
)

// Terminal is a terminal emulator the Linux launcher knows how to drive
type Terminal string

const (
	TerminalDefault  Terminal = "Default"
	TerminalGnome    Terminal = "GNOME Terminal"
	TerminalKonsole  Terminal = "Konsole"
	TerminalXfce     Terminal = "xfce4-terminal"
	TerminalPantheon Terminal = "pantheon-terminal"
	TerminalXTerm    Terminal = "XTerm"
)

// Terminals lists every accepted linux_terminal value
var Terminals = []Terminal{
	TerminalDefault,
	TerminalGnome,
	TerminalKonsole,
	TerminalXfce,
	TerminalPantheon,
	TerminalXTerm,
}

func (t Terminal) Valid() bool { return slices.Contains(Terminals, t) }

var errEmptyCompiler = errors.New("compiler command must not be empty")

type Config struct {
	CCompiler          string   `toml:"c_compiler"`
	CppCompiler        string   `toml:"cpp_compiler"`
	CCompilerOptions   string   `toml:"c_compiler_options"`
	CppCompilerOptions string   `toml:"cpp_compiler_options"`
	RunAfterCompile    bool     `toml:"run_after_compile"`
	ShowWarnings       bool     `toml:"show_warnings"`
	CompileToTmpdir    bool     `toml:"compile_to_tmpdir"`
	LinuxTerminal      Terminal `toml:"linux_terminal"`
	Debugger           string   `toml:"debugger"`
	DebugFlag          string   `toml:"debug_flag"`
	Workspace          []string `toml:"workspace"` // doublestar globs matching project roots
}

// Default returns the built-in configuration. CC and CXX from getenv replace the default
// compilers when set.
func Default(getenv func(string) string) Config {
	cfg := Config{
		CCompiler:       "gcc",
		CppCompiler:     "g++",
		RunAfterCompile: true,
		ShowWarnings:    true,
		CompileToTmpdir: true,
		LinuxTerminal:   TerminalXTerm,
		Debugger:        "gdb",
		DebugFlag:       "-g",
	}
	if getenv == nil {
		return cfg
	}
	if cc := getenv("CC"); cc != "" {
		cfg.CCompiler = cc
	}
	if cxx := getenv("CXX"); cxx != "" {
		cfg.CppCompiler = cxx
	}
	return cfg
}

// Validate reports the first configuration value that can't be used
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CCompiler) == "" {
		return fmt.Errorf("c_compiler: %w", errEmptyCompiler)
	}
	if strings.TrimSpace(c.CppCompiler) == "" {
		return fmt.Errorf("cpp_compiler: %w", errEmptyCompiler)
	}
	if !c.LinuxTerminal.Valid() {
		names := make([]string, len(Terminals))
		for i, t := range Terminals {
			names[i] = string(t)
		}
		return fmt.Errorf("linux_terminal: unknown terminal %q, must be one of: %s", c.LinuxTerminal, strings.Join(names, ", "))
	}
	return nil
}

func (c *Config) Marshal() (string, error) {
	b, err := toml.Marshal(c)
	return string(b), err
}

var placeholder = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluator runs config expressions against one Env. Programs are compiled once per
// source text, conditions separately since they must yield a bool.
type evaluator struct {
	env        Env
	values     map[string]*vm.Program
	conditions map[string]*vm.Program
}

func newEvaluator(env Env) *evaluator {
	return &evaluator{
		env:        env,
		values:     make(map[string]*vm.Program),
		conditions: make(map[string]*vm.Program),
	}
}

func (ev *evaluator) run(cache map[string]*vm.Program, src string, opts ...expr.Option) (any, error) {
	program, ok := cache[src]
	if !ok {
		var err error
		program, err = expr.Compile(src, append([]expr.Option{expr.Env(ev.env)}, opts...)...)
		if err != nil {
			return nil, err
		}
		cache[src] = program
	}
	return expr.Run(program, ev.env)
}

// isCondition reports whether a table key is a boolean expression over Env
func (ev *evaluator) isCondition(key string) bool {
	_, err := expr.Compile(key, expr.Env(ev.env), expr.AsBool())
	return err == nil
}

func (ev *evaluator) holds(condition string) (bool, error) {
	result, err := ev.run(ev.conditions, condition, expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("condition [%q]: %w", condition, err)
	}
	matched, _ := result.(bool)
	return matched, nil
}

// interpolate replaces every {{ expression }} in s by its value
func (ev *evaluator) interpolate(s string) (string, error) {
	var firstErr error
	out := placeholder.ReplaceAllStringFunc(s, func(m string) string {
		if firstErr != nil {
			return m
		}
		src := strings.TrimSpace(placeholder.FindStringSubmatch(m)[1])
		value, err := ev.run(ev.values, src)
		if err != nil {
			firstErr = fmt.Errorf("{{ %s }}: %w", src, err)
			return m
		}
		return fmt.Sprint(value)
	})
	return out, firstErr
}

// expand interpolates every string value of a decoded document in place. Table keys are
// left alone, they may be conditions.
func (ev *evaluator) expand(node any) (any, error) {
	var err error
	switch v := node.(type) {
	case string:
		return ev.interpolate(v)
	case []any:
		for i := range v {
			if v[i], err = ev.expand(v[i]); err != nil {
				return nil, err
			}
		}
	case map[string]any:
		keys := slices.Sorted(maps.Keys(v))
		for _, k := range keys {
			if v[k], err = ev.expand(v[k]); err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
		}
	}
	return node, nil
}

// decodeInto re-encodes a part of the document and decodes it on top of cfg, so only the
// keys it holds change
func decodeInto(table map[string]any, cfg *Config) error {
	b, err := toml.Marshal(table)
	if err != nil {
		return err
	}
	return toml.Unmarshal(b, cfg)
}

// Apply decodes a config document from rdr on top of cfg. Only the keys present in the
// document change. Tables keyed by an expression, like ['target_os == "windows"'], are
// applied afterwards in key order when the expression is true.
func Apply(rdr io.Reader, env Env, cfg *Config) error {
	var doc map[string]any
	if err := toml.NewDecoder(rdr).Decode(&doc); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			return errors.New(derr.String())
		}
		return err
	}

	ev := newEvaluator(env)
	if _, err := ev.expand(doc); err != nil {
		return fmt.Errorf("config expression: %w", err)
	}

	base := make(map[string]any)
	var conditions []string
	for key, val := range doc {
		if _, isTable := val.(map[string]any); isTable && ev.isCondition(key) {
			conditions = append(conditions, key)
			continue
		}
		base[key] = val
	}

	if len(base) > 0 {
		if err := decodeInto(base, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	}

	slices.Sort(conditions)
	for _, condition := range conditions {
		ok, err := ev.holds(condition)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := decodeInto(doc[condition].(map[string]any), cfg); err != nil {
			return fmt.Errorf("failed to parse conditional section [%q]: %w", condition, err)
		}
	}
	return nil
}

// ApplyFile applies the config file at path on top of cfg. A missing file is not an error.
func ApplyFile(path string, env Env, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	if err := Apply(bufio.NewReader(f), env, cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Load builds the effective configuration from the defaults and the given files, in order
func Load(env Env, paths ...string) (*Config, error) {
	cfg := Default(env.getenv)
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := ApplyFile(path, env, &cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultPaths returns the user config file followed by the local one
func DefaultPaths() []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, appName, "config.toml"))
	}
	return append(paths, LocalFilename)
}

// Env is what config expressions can see
type Env struct {
	TargetOS   string            `expr:"target_os"`
	TargetArch string            `expr:"target_arch"`
	Environ    map[string]string `expr:"environ"`
}

func NewEnv() Env {
	environ := make(map[string]string)
	for _, e := range os.Environ() {
		if i := strings.Index(e, "="); i >= 0 {
			environ[e[:i]] = e[i+1:]
		}
	}

	return Env{
		TargetOS:   runtime.GOOS,
		TargetArch: runtime.GOARCH,
		Environ:    environ,
	}
}

func (env Env) getenv(key string) string { return env.Environ[key] }
