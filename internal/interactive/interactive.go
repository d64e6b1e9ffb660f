// Package interactive runs the line-based picker menus on a reader and a
// writer: choose a list, react to suggestions, and create or edit lists.
package interactive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nvandessel/stuckpick/internal/engine"
	"github.com/nvandessel/stuckpick/internal/logging"
	"github.com/nvandessel/stuckpick/internal/metrics"
	"github.com/nvandessel/stuckpick/internal/session"
)

// errInputClosed ends every loop when the reader is exhausted.
var errInputClosed = errors.New("input closed")

// Options configures a Session.
type Options struct {
	// Styles defaults to NewStyles(out).
	Styles *Styles

	// Metrics, when set, feeds the summary printed on exit.
	Metrics *metrics.Recorder

	Logger *slog.Logger
}

// Session is one interactive run over an Engine.
type Session struct {
	eng     *engine.Engine
	in      *bufio.Scanner
	out     io.Writer
	styles  Styles
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// New creates a Session reading commands from in and writing to out.
func New(eng *engine.Engine, in io.Reader, out io.Writer, opts Options) *Session {
	styles := NewStyles(out)
	if opts.Styles != nil {
		styles = *opts.Styles
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Session{
		eng:     eng,
		in:      bufio.NewScanner(in),
		out:     out,
		styles:  styles,
		metrics: opts.Metrics,
		logger:  logger,
	}
}

func (s *Session) say(style lipgloss.Style, format string, args ...any) {
	fmt.Fprintln(s.out, style.Render(fmt.Sprintf(format, args...)))
}

func (s *Session) plain(format string, args ...any) {
	fmt.Fprintf(s.out, format+"\n", args...)
}

func (s *Session) warn(format string, args ...any) {
	s.say(s.styles.Error, "→ "+format, args...)
}

// ask prints prompt without a newline and reads one trimmed line.
func (s *Session) ask(prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(s.out, s.styles.Prompt.Render(prompt))
	}
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", err
		}
		return "", errInputClosed
	}
	return strings.TrimSpace(s.in.Text()), nil
}

// finish maps the end of input to a clean return.
func finish(err error) error {
	if errors.Is(err, errInputClosed) {
		return nil
	}
	return err
}

// Run shows the main file menu until the user types exit or input ends.
func (s *Session) Run(ctx context.Context) error {
	err := s.mainMenu(ctx)
	s.Summary()
	return finish(err)
}

func (s *Session) mainMenu(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		files := s.eng.Files()

		s.plain("")
		s.say(s.styles.Title, "=== Stuck-Picker App ===")
		s.say(s.styles.Dim, "[Type a number to choose a file]   [manage = create/edit lists]   [exit]")
		s.plain("Available files:")
		for i, f := range files {
			s.plain("  [%d] %s", i+1, f)
		}
		input, err := s.ask(">> ")
		if err != nil {
			return err
		}

		switch {
		case strings.EqualFold(input, "exit"):
			s.plain("Goodbye!")
			return nil
		case strings.EqualFold(input, "manage"):
			if err := s.manage(ctx); err != nil {
				return err
			}
			continue
		}

		chosen, ok := chooseFile(files, input)
		if !ok {
			s.warn("Invalid selection. Please enter a number or filename.")
			continue
		}
		if err := s.pickLoop(ctx, session.FileScope(chosen)); err != nil {
			return err
		}
	}
}

// chooseFile resolves a 1-based number or an exact file name.
func chooseFile(files []string, input string) (string, bool) {
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(files) {
			return files[n-1], true
		}
		return "", false
	}
	for _, f := range files {
		if f == input {
			return f, true
		}
	}
	return "", false
}

// PickFile runs the suggestion loop for one list file.
func (s *Session) PickFile(ctx context.Context, file string) error {
	return finish(s.pickLoop(ctx, session.FileScope(file)))
}

// PickTag runs the suggestion loop over every item carrying tag.
func (s *Session) PickTag(ctx context.Context, tag string) error {
	return finish(s.pickLoop(ctx, session.TagScope(tag)))
}

// pickLoop suggests items from scope until the user accepts one, goes back
// or every item has been skipped. Skips are forgotten on entry.
func (s *Session) pickLoop(ctx context.Context, scope session.Scope) error {
	noun := "file"
	if scope.Kind == "tag" {
		noun = "tag"
	}

	s.plain("")
	s.plain("You selected %s: %s", noun, scope.Name)
	s.say(s.styles.Dim, "Type 'back' at any time to return to %s list.", noun)

	if len(s.eng.ItemsFor(scope)) == 0 {
		s.warn("No items in this %s.", noun)
		return nil
	}
	s.eng.Session().Reset(scope)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		it, err := s.eng.Pick(scope)
		if errors.Is(err, engine.ErrNoOptions) {
			s.say(s.styles.Notice, "No more options available in this %s.", noun)
			return nil
		}
		if err != nil {
			return err
		}
		name := it.Name

		s.plain("")
		s.say(s.styles.Suggest, "Suggested: %s", name)
		s.say(s.styles.Dim, "Options: [y = like]  [n = dislike]  [s = skip]  [back = return]")
		input, err := s.ask("")
		if err != nil {
			return err
		}

		var liked bool
		switch strings.ToLower(input) {
		case "back":
			return nil
		case "s":
			s.eng.Skip(scope, name)
			s.plain("Skipping '%s'. Picking another...", name)
			continue
		case "y":
			liked = true
		case "n":
			liked = false
		default:
			s.warn("Please type 'y', 'n', 's', or 'back'.")
			continue
		}

		if _, err := s.eng.Feedback(ctx, scope, name, liked); err != nil {
			s.warn("Failed to save scores: %v", err)
		}
		if !liked {
			s.plain("Marked '%s' as disliked. Picking another...", name)
			continue
		}

		s.plain("You liked it. Accept or skip? (accept/skip)   [back to return]")
		decision, err := s.ask("")
		if err != nil {
			return err
		}
		switch strings.ToLower(decision) {
		case "back":
			return nil
		case "accept":
			s.say(s.styles.Success, "Great! Enjoy: %s", name)
			return nil
		case "skip":
			s.eng.Skip(scope, name)
			s.plain("Skipping '%s' after liking. Picking another...", name)
		default:
			s.warn("Please type 'accept', 'skip', or 'back'.")
		}
	}
}

// Summary prints what this process did, when metrics are available.
func (s *Session) Summary() {
	if s.metrics == nil {
		return
	}
	picks := s.metrics.Total("stuckpick_picks_total")
	if picks == 0 {
		return
	}
	likes := s.metrics.Sum("stuckpick_feedback_total", map[string]string{"outcome": "like"})
	dislikes := s.metrics.Sum("stuckpick_feedback_total", map[string]string{"outcome": "dislike"})
	s.say(s.styles.Dim, "Session: %d suggestions, %d liked, %d disliked.", int(picks), int(likes), int(dislikes))
}
