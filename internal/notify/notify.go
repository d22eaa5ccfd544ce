// Package notify delivers user-facing notifications about triggered actions.
package notify

import (
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/qobs-build/qrun/internal/msg"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a single message shown to the user
type Notification struct {
	Level   Level
	Message string
	// ActionID identifies the triggered action this belongs to, may be empty
	ActionID string
}

const lineBreak = "<br />"

// Markup converts s into its display-safe form: every literal newline becomes an explicit
// line-break marker.
func Markup(s string) string {
	return strings.ReplaceAll(s, "\n", lineBreak)
}

// Markup returns the display-safe form of the notification message
func (n Notification) Markup() string { return Markup(n.Message) }

type Notifier interface {
	Notify(n Notification)
}

// Console prints notifications through the msg package. Multi-line messages are indented
// below the level prefix.
type Console struct{}

func (Console) Notify(n Notification) {
	text := strings.TrimRight(n.Message, "\n")
	first, rest, multiline := strings.Cut(text, "\n")
	if multiline {
		var sb strings.Builder
		w := &msg.IndentWriter{Indent: "    ", W: &sb}
		io.WriteString(w, rest)
		first += "\n" + sb.String()
	}

	switch n.Level {
	case LevelError:
		msg.Error("%s", first)
	case LevelWarning:
		msg.Warn("%s", first)
	default:
		msg.Info("%s", first)
	}
}

// JSON writes one JSON object per notification, carrying the display-safe text. This is
// the format editor hosts consume. A failed write is kept and returned by Err.
type JSON struct {
	mu  sync.Mutex
	W   io.Writer
	err error
}

type jsonNotification struct {
	Level  Level  `json:"level"`
	Text   string `json:"text"`
	Action string `json:"action,omitempty"`
}

func (j *JSON) Notify(n Notification) {
	j.mu.Lock()
	defer j.mu.Unlock()
	err := json.NewEncoder(j.W).Encode(jsonNotification{
		Level:  n.Level,
		Text:   n.Markup(),
		Action: n.ActionID,
	})
	if err != nil {
		msg.Debug("writing %s notification: %v", n.Level, err)
		if j.err == nil {
			j.err = err
		}
	}
}

// Err returns the first error writing a notification
func (j *JSON) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Recorder keeps every notification in memory
type Recorder struct {
	mu            sync.Mutex
	Notifications []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notifications = append(r.Notifications, n)
}

// Levels returns the levels of all recorded notifications, in order
func (r *Recorder) Levels() []Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	levels := make([]Level, len(r.Notifications))
	for i, n := range r.Notifications {
		levels[i] = n.Level
	}
	return levels
}
