package toolchain

import (
	"errors"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/qobs-build/qrun/internal/config"
)

// Language tags, as an editor grammar would name them
const (
	LangC   = "C"
	LangCpp = "C++"
)

// DefaultDebugFlag asks the compiler for debug symbols
const DefaultDebugFlag = "-g"

var ErrNotSupported = errors.New("language not supported")

// Toolchain is a compiler command plus the user's extra flags for one language
type Toolchain struct {
	Language  string
	Command   string
	Options   []string
	DebugFlag string
}

// Resolve maps a language tag to its configured toolchain. Only "C" and "C++" are supported.
func Resolve(cfg *config.Config, lang string) (Toolchain, error) {
	tc := Toolchain{Language: lang, DebugFlag: cfg.DebugFlag}
	switch lang {
	case LangC:
		tc.Command = cfg.CCompiler
		tc.Options = SplitOptions(cfg.CCompilerOptions)
	case LangCpp:
		tc.Command = cfg.CppCompiler
		tc.Options = SplitOptions(cfg.CppCompilerOptions)
	default:
		return Toolchain{}, ErrNotSupported
	}
	if tc.DebugFlag == "" {
		tc.DebugFlag = DefaultDebugFlag
	}
	return tc, nil
}

// SplitOptions splits an options string on single spaces. Quoting and escaping are not
// honored; empty tokens from repeated spaces are dropped later by BuildArgs.
func SplitOptions(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, " ")
}

// Args returns the argument vector compiling src into out with this toolchain
func (tc Toolchain) Args(src, out string, debug bool) []string {
	flag := ""
	if debug {
		flag = tc.DebugFlag
	}
	return buildArgs(src, out, flag, tc.Options)
}

// BuildArgs returns [src, -o, out, (-g), extra...] with empty tokens removed
func BuildArgs(src, out string, debug bool, extra []string) []string {
	flag := ""
	if debug {
		flag = DefaultDebugFlag
	}
	return buildArgs(src, out, flag, extra)
}

func buildArgs(src, out, debugFlag string, extra []string) []string {
	args := make([]string, 0, len(extra)+4)
	for _, arg := range append([]string{src, "-o", out, debugFlag}, extra...) {
		if arg != "" {
			args = append(args, arg)
		}
	}
	return args
}

// languagePatterns maps file name patterns to language tags. Only C and C++ compile, the
// others exist so their files report as unsupported instead of undetected.
var languagePatterns = []struct {
	pattern string
	lang    string
}{
	{"*.c", LangC},
	{"*.{cpp,cc,cxx,c++,C}", LangCpp},
	{"*.go", "Go"},
	{"*.rs", "Rust"},
	{"*.py", "Python"},
	{"*.{js,mjs}", "JavaScript"},
	{"*.java", "Java"},
	{"*.zig", "Zig"},
}

// DetectLanguage returns the language tag for path, or "" if none is known
func DetectLanguage(path string) string {
	base := filepath.Base(path)
	for _, lp := range languagePatterns {
		if ok, _ := doublestar.Match(lp.pattern, base); ok {
			return lp.lang
		}
	}
	return ""
}

var (
	commonCCompilers   = []string{"clang", "gcc", "icx", "icc", "tcc", "cl"}
	commonCxxCompilers = []string{"clang++", "g++", "clang", "gcc", "icpx", "icx", "icpc", "icc", "cl"}
)

// FindCompiler looks for a common compiler for lang on PATH, returning "" if there's none
func FindCompiler(lang string) string {
	var compilersToTry []string
	switch lang {
	case LangC:
		compilersToTry = commonCCompilers
	case LangCpp:
		compilersToTry = commonCxxCompilers
	default:
		return ""
	}

	for _, compiler := range compilersToTry {
		if _, err := exec.LookPath(compiler); err == nil {
			return compiler
		}
	}
	return ""
}
