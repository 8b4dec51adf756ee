package fonts

// Group is the ordered fallback list of Fonts for a Style. It is immutable
// once built and its last entry covers every rune.
type Group struct {
	style Style
	fonts []*Font
}

// Style returns the style the group was resolved for.
func (g *Group) Style() Style { return g.style }

// Fonts returns the fallback list, primary first. The slice must not be
// modified.
func (g *Group) Fonts() []*Font { return g.fonts }

// Len returns the number of fonts in the group.
func (g *Group) Len() int { return len(g.fonts) }

// Primary returns the first font of the group.
func (g *Group) Primary() *Font { return g.fonts[0] }

// FontFor returns the first font covering r, or the last entry when none
// does. It never returns nil.
func (g *Group) FontFor(r rune) *Font {
	for _, f := range g.fonts[:len(g.fonts)-1] {
		if f.Covers(r) {
			return f
		}
	}
	return g.fonts[len(g.fonts)-1]
}

func (g *Group) release() {
	for _, f := range g.fonts {
		f.release()
	}
}
