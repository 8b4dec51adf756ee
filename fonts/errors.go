package fonts

import (
	"errors"
	"fmt"
)

// Sentinel errors for the fonts package.
var (
	// ErrEmptyFontData is returned when font data is empty.
	ErrEmptyFontData = errors.New("fonts: empty font data")

	// ErrTemplateDropped is returned when a Font is built on a template whose
	// last reference has already been released.
	ErrTemplateDropped = errors.New("fonts: template data dropped")

	// ErrClosed is returned by a Context after Close.
	ErrClosed = errors.New("fonts: context closed")
)

// ShapingError reports that the shaping capability failed on a run.
// Shaping failures never escape Font.Shape; they are logged and the run is
// replaced by .notdef glyphs.
type ShapingError struct {
	Text   string
	Font   Descriptor
	Reason string
}

func (e *ShapingError) Error() string {
	return fmt.Sprintf("fonts: shaping %q with %s: %s", e.Text, e.Font.Family, e.Reason)
}
