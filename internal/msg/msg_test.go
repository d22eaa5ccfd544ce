package msg

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevNoColor := Output, color.NoColor
	Output, color.NoColor = &buf, true
	t.Cleanup(func() { Output, color.NoColor = prevOut, prevNoColor })
	return &buf
}

func TestLevels(t *testing.T) {
	buf := capture(t)

	Info("compiled %s", "x.c")
	Warn("unused variable")
	Error("exit status %d", 1)

	assert.Equal(t, "info: compiled x.c\nwarn: unused variable\nerror: exit status 1\n", buf.String())
}

func TestDebugNeedsVerbose(t *testing.T) {
	buf := capture(t)

	Verbose = false
	Debug("hidden")
	assert.Empty(t, buf.String())

	Verbose = true
	t.Cleanup(func() { Verbose = false })
	Debug("shown")
	assert.Equal(t, "debug: shown\n", buf.String())
}

func TestIndentWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &IndentWriter{Indent: "  ", W: &buf}

	w.Write([]byte("make: Entering\nCC main"))
	w.Write([]byte(".c\ndone\n"))

	assert.Equal(t, "  make: Entering\n  CC main.c\n  done\n", buf.String())
}
