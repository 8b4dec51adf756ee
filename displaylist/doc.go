// Package displaylist models the paint commands produced by layout.
//
// A DisplayList is an immutable tree of stacking contexts kept in an arena
// (Contexts[0] is the root) plus flat clip and transform tables that items
// reference by id. Lists are assembled with a Builder, which resolves every
// pushed clip and transform to world space and assigns the finished list
// the next Epoch from a Sequencer.
//
// Painting consumes a list through Flatten, which resolves items against a
// device transform in back-to-front order. Damage compares two flattened
// lists and reports the regions whose pixels may have changed.
package displaylist
