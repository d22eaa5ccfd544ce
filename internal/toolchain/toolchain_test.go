package toolchain

import (
	"testing"

	"github.com/qobs-build/qrun/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSupported(t *testing.T) {
	cfg := config.Default(nil)
	cfg.CCompilerOptions = "-Wall -O2"
	cfg.CppCompilerOptions = "-std=c++20"

	c, err := Resolve(&cfg, LangC)
	require.NoError(t, err)
	assert.Equal(t, "gcc", c.Command)
	assert.Equal(t, []string{"-Wall", "-O2"}, c.Options)

	cpp, err := Resolve(&cfg, LangCpp)
	require.NoError(t, err)
	assert.Equal(t, "g++", cpp.Command)
	assert.Equal(t, []string{"-std=c++20"}, cpp.Options)
}

func TestResolveUnsupported(t *testing.T) {
	cfg := config.Default(nil)
	for _, lang := range []string{"", "c", "c++", "Go", "Python", "C#", "Objective-C"} {
		_, err := Resolve(&cfg, lang)
		assert.ErrorIs(t, err, ErrNotSupported, lang)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	cfg := config.Default(nil)
	cfg.CCompilerOptions = "-lm"
	first, err := Resolve(&cfg, LangC)
	require.NoError(t, err)
	second, err := Resolve(&cfg, LangC)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSplitOptions(t *testing.T) {
	assert.Equal(t, []string{}, SplitOptions(""))
	assert.Equal(t, []string{"-Wall"}, SplitOptions("-Wall"))
	assert.Equal(t, []string{"-DNAME=\"a", "b\""}, SplitOptions(`-DNAME="a b"`))
	assert.Equal(t, []string{"-a", "", "-b"}, SplitOptions("-a  -b"))
}

func TestBuildArgs(t *testing.T) {
	assert.Equal(t, []string{"/tmp/x.c", "-o", "/tmp/x"}, BuildArgs("/tmp/x.c", "/tmp/x", false, nil))
	assert.Equal(t, []string{"/tmp/x.c", "-o", "/tmp/x"}, BuildArgs("/tmp/x.c", "/tmp/x", false, []string{}))
	assert.Equal(t, []string{"/tmp/x.c", "-o", "/tmp/x", "-g"}, BuildArgs("/tmp/x.c", "/tmp/x", true, nil))
	assert.Equal(t,
		[]string{"a.cpp", "-o", "a", "-g", "-Wall", "-lm"},
		BuildArgs("a.cpp", "a", true, []string{"-Wall", "", "-lm"}),
	)
}

func TestBuildArgsDebugFlagOnce(t *testing.T) {
	args := BuildArgs("x.c", "x", true, []string{"-O2"})
	count := 0
	for _, a := range args {
		assert.NotEmpty(t, a)
		if a == DefaultDebugFlag {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestToolchainArgs(t *testing.T) {
	cfg := config.Default(nil)
	cfg.DebugFlag = "-ggdb3"
	cfg.CppCompilerOptions = "-Wall  -Wextra"
	tc, err := Resolve(&cfg, LangCpp)
	require.NoError(t, err)

	assert.Equal(t, []string{"m.cpp", "-o", "m", "-ggdb3", "-Wall", "-Wextra"}, tc.Args("m.cpp", "m", true))
	assert.Equal(t, []string{"m.cpp", "-o", "m", "-Wall", "-Wextra"}, tc.Args("m.cpp", "m", false))
	assert.Equal(t, tc.Args("m.cpp", "m", true), tc.Args("m.cpp", "m", true))
}

func TestDetectLanguage(t *testing.T) {
	cases := map[string]string{
		"/src/main.c":     LangC,
		"/src/main.cpp":   LangCpp,
		"main.cc":         LangCpp,
		"main.cxx":        LangCpp,
		"main.c++":        LangCpp,
		"main.C":          LangCpp,
		"main.go":         "Go",
		"script.py":       "Python",
		"Makefile":        "",
		"/src/noext":      "",
		"/src/notes.txt":  "",
		"/src/dir.c/main": "",
	}
	for path, want := range cases {
		assert.Equal(t, want, DetectLanguage(path), path)
	}
}
