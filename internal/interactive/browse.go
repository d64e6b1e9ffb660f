package interactive

import (
	"context"
	"errors"
	"strings"

	"github.com/nvandessel/stuckpick/internal/engine"
	"github.com/nvandessel/stuckpick/internal/session"
	"github.com/nvandessel/stuckpick/internal/store"
)

// BrowseTag lets the user rate items of one tag by name. Ratings here only
// change the named item; nothing propagates to its peers.
func (s *Session) BrowseTag(ctx context.Context, tag string) error {
	return finish(s.browseTag(ctx, tag))
}

func (s *Session) browseTag(ctx context.Context, tag string) error {
	scope := session.TagScope(tag)
	if !s.eng.HasScope(scope) {
		s.warn("No items tagged %s.", tag)
		return nil
	}
	s.eng.Session().Reset(scope)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.plain("")
		s.say(s.styles.Title, "=== Category: %s ===", tag)
		for _, it := range s.eng.ItemsFor(scope) {
			s.plain("  - %s (score=%s)", it.Name, store.FormatScore(it.Score))
		}
		s.say(s.styles.Dim, "[item name = rate it]   [pick = suggest one]   [back]")
		input, err := s.ask(">> ")
		if err != nil {
			return err
		}

		switch {
		case input == "":
			continue
		case strings.EqualFold(input, "back"):
			return nil
		case strings.EqualFold(input, "pick"):
			if err := s.suggestInTag(ctx, tag); err != nil {
				return err
			}
		default:
			if err := s.rate(ctx, tag, input); err != nil {
				return err
			}
		}
	}
}

// rate asks like or dislike for name and applies it to that item only.
func (s *Session) rate(ctx context.Context, tag, name string) error {
	answer, err := s.ask("Like it? (y/n): ")
	if err != nil {
		return err
	}
	var liked bool
	switch strings.ToLower(answer) {
	case "y":
		liked = true
	case "n":
	default:
		s.warn("Please type 'y' or 'n'.")
		return nil
	}
	return s.applyRating(ctx, tag, name, liked)
}

func (s *Session) applyRating(ctx context.Context, tag, name string, liked bool) error {
	res, err := s.eng.CategoryFeedback(ctx, tag, name, liked)
	if err != nil {
		s.warn("Failed to save scores: %v", err)
	}
	if !res.Found {
		s.warn("No item named '%s' in %s.", name, tag)
		return nil
	}
	c := res.Changes[0]
	s.plain("'%s' is now %s (was %s).", res.Item, store.FormatScore(c.After), store.FormatScore(c.Before))
	return nil
}

// suggestInTag picks one item of the tag and offers y/n/s for it.
func (s *Session) suggestInTag(ctx context.Context, tag string) error {
	scope := session.TagScope(tag)
	it, err := s.eng.Pick(scope)
	if errors.Is(err, engine.ErrNoOptions) {
		s.say(s.styles.Notice, "No more options available in this tag.")
		return nil
	}
	if err != nil {
		return err
	}

	s.say(s.styles.Suggest, "Suggested: %s", it.Name)
	answer, err := s.ask("[y = like]  [n = dislike]  [s = skip]: ")
	if err != nil {
		return err
	}
	switch strings.ToLower(answer) {
	case "y":
		return s.applyRating(ctx, tag, it.Name, true)
	case "n":
		return s.applyRating(ctx, tag, it.Name, false)
	case "s":
		s.eng.Skip(scope, it.Name)
		s.plain("Skipping '%s'.", it.Name)
	default:
		s.warn("Please type 'y', 'n', or 's'.")
	}
	return nil
}
