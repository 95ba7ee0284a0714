package shape

import "github.com/paulmach/orb"

// Group is the ordered staging collection of an editing session.
// It is not safe for concurrent use; the session manager serializes access.
type Group struct {
	shapes []Shape
}

// NewGroup returns an empty group.
func NewGroup() *Group {
	return &Group{}
}

// Add appends a shape. Duplicates are not checked.
func (g *Group) Add(s Shape) {
	g.shapes = append(g.shapes, s)
}

// Remove drops every shape with the given id and reports whether any matched.
func (g *Group) Remove(id string) bool {
	kept := g.shapes[:0]
	removed := false
	for _, s := range g.shapes {
		if s.ID() == id {
			removed = true
			continue
		}
		kept = append(kept, s)
	}
	for i := len(kept); i < len(g.shapes); i++ {
		g.shapes[i] = nil
	}
	g.shapes = kept
	return removed
}

// Replace swaps every shape sharing s's id for s, keeping its position.
func (g *Group) Replace(s Shape) bool {
	replaced := false
	for i, cur := range g.shapes {
		if cur.ID() == s.ID() {
			g.shapes[i] = s
			replaced = true
		}
	}
	return replaced
}

// Get returns the first shape with the given id.
func (g *Group) Get(id string) (Shape, bool) {
	for _, s := range g.shapes {
		if s.ID() == id {
			return s, true
		}
	}
	return nil, false
}

// Len returns the number of staged shapes.
func (g *Group) Len() int {
	return len(g.shapes)
}

// Shapes returns a copy of the staged shapes in insertion order.
func (g *Group) Shapes() []Shape {
	out := make([]Shape, len(g.shapes))
	copy(out, g.shapes)
	return out
}

// Bound returns the combined bounds of all staged shapes.
// ok is false when the group is empty.
func (g *Group) Bound() (b orb.Bound, ok bool) {
	for i, s := range g.shapes {
		if i == 0 {
			b = s.Bound()
			continue
		}
		b = b.Union(s.Bound())
	}
	return b, len(g.shapes) > 0
}

// Clear empties the group and returns what it held.
func (g *Group) Clear() []Shape {
	out := g.shapes
	g.shapes = nil
	return out
}
