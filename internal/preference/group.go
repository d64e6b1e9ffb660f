package preference

import (
	"strings"

	"github.com/nvandessel/stuckpick/internal/models"
	"github.com/nvandessel/stuckpick/internal/selection"
)

// TagGroup is the set of items carrying one tag, in load order.
// Members are shared with the owning Store; the group never owns them.
type TagGroup struct {
	Tag     string
	Members []*models.Item
}

// Select draws one member weighted by score.
func (g *TagGroup) Select(sel *selection.Selector) (*models.Item, error) {
	return sel.Select(g.Members)
}

// Find returns the first member whose name matches name ignoring case.
func (g *TagGroup) Find(name string) (*models.Item, bool) {
	for _, it := range g.Members {
		if strings.EqualFold(it.Name, name) {
			return it, true
		}
	}
	return nil, false
}
