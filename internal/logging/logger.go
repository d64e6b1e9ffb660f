// Package logging sets up stuckpick's stderr logger and the optional
// feedback decision trace.
//
// Operational output goes through a leveled slog.Logger. When the level is
// debug or trace, every feedback decision is also appended as one JSON line
// to decisions.jsonl in the state directory, so score drift can be replayed
// after the fact.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// LevelTrace sits below Debug and adds per-item score changes to the log.
const LevelTrace = slog.LevelDebug - 4

// DecisionsFile is the name of the JSONL trace inside the state directory.
const DecisionsFile = "decisions.jsonl"

// ParseLevel maps "warn", "info", "debug" or "trace" (any case) to a level.
// Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a text logger writing to w at the given level.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything. Used as the default when
// callers pass a nil logger.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ScoreChange is one item's score before and after a feedback call.
type ScoreChange struct {
	Name   string  `json:"name"`
	Before float64 `json:"before"`
	After  float64 `json:"after"`
}

// Decision is one feedback event as written to the trace.
type Decision struct {
	Time    time.Time     `json:"time"`
	Session string        `json:"session,omitempty"`
	Mode    string        `json:"mode"`
	Tag     string        `json:"tag,omitempty"`
	Item    string        `json:"item"`
	Liked   bool          `json:"liked"`
	Changes []ScoreChange `json:"changes,omitempty"`
	Files   []string      `json:"files,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// DecisionLogger appends Decisions to a JSONL file. It is safe for
// concurrent use, and every method is a no-op on a nil receiver.
type DecisionLogger struct {
	mu   sync.Mutex
	file *os.File
	now  func() time.Time
}

// NewDecisionLogger opens dir/decisions.jsonl for append when level is debug
// or trace. At any other level, or if the file cannot be opened, it returns
// nil.
func NewDecisionLogger(dir string, level string) *DecisionLogger {
	if ParseLevel(level) > slog.LevelDebug {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, DecisionsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}
	return &DecisionLogger{file: f, now: time.Now}
}

// Log writes d as a single line. A zero Time is filled with the current time.
func (dl *DecisionLogger) Log(d Decision) {
	if dl == nil {
		return
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.file == nil {
		return
	}

	if d.Time.IsZero() {
		d.Time = dl.now().UTC()
	}
	data, err := json.Marshal(d)
	if err != nil {
		return
	}
	_, _ = dl.file.Write(append(data, '\n'))
}

// Close closes the trace file.
func (dl *DecisionLogger) Close() {
	if dl == nil {
		return
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.file != nil {
		dl.file.Close()
		dl.file = nil
	}
}
