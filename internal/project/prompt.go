package project

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

var errNoChoice = errors.New("input closed before a project was chosen")

// Prompt lists the candidates on Out and reads the answer from In, asking again until the
// answer names exactly one candidate by number or by name.
type Prompt struct {
	In  io.Reader
	Out io.Writer
}

func (p *Prompt) Choose(ctx context.Context, candidates []Project) (Project, error) {
	fmt.Fprintf(p.Out, "%s a project to build:\n", color.HiCyanString("Choose"))
	for i, c := range candidates {
		fmt.Fprintf(p.Out, "  %d) %s  %s\n", i+1, c.Name(), color.HiBlackString(c.Root))
	}

	// the reader scans one line per request, so nothing past the accepted answer is read
	want := make(chan struct{})
	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(p.In)
		for {
			select {
			case want <- struct{}{}:
			case <-done:
				return
			}
			if !scanner.Scan() {
				return
			}
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	for {
		fmt.Fprint(p.Out, "> ")
		select {
		case <-ctx.Done():
			return Project{}, ctx.Err()
		case <-want:
		}
		select {
		case <-ctx.Done():
			return Project{}, ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return Project{}, errNoChoice
			}
			if chosen, ok := match(strings.TrimSpace(line), candidates); ok {
				return chosen, nil
			}
			fmt.Fprintf(p.Out, "pick a number between 1 and %d\n", len(candidates))
		}
	}
}

// match resolves an answer to a single candidate. Names shared by several candidates
// can only be picked by number.
func match(answer string, candidates []Project) (Project, bool) {
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(candidates) {
			return candidates[n-1], true
		}
		return Project{}, false
	}

	var found []Project
	for _, c := range candidates {
		if c.Name() == answer {
			found = append(found, c)
		}
	}
	if len(found) == 1 {
		return found[0], true
	}
	return Project{}, false
}
