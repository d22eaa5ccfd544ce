package build

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

var (
	targetPattern  = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_.-]*)\s*:(?:[^=]|$)`)
	defaultPattern = regexp.MustCompile(`^\.DEFAULT_GOAL\s*[:?]?=\s*(\S+)`)
)

// Targets lists the explicit targets of the Makefile in dir, in file order. Internal
// targets (leading . or _) are skipped; the default goal comes first.
func Targets(dir string) ([]string, error) {
	f, err := os.Open(filepath.Join(dir, MakefileName))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var targets []string
	var defaultGoal string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if m := defaultPattern.FindStringSubmatch(line); m != nil {
			defaultGoal = m[1]
			continue
		}
		m := targetPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := m[1]
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		if !slices.Contains(targets, name) {
			targets = append(targets, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if i := slices.Index(targets, defaultGoal); i > 0 {
		targets = slices.Insert(slices.Delete(targets, i, i+1), 0, defaultGoal)
	}
	return targets, nil
}
