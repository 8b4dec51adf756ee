// Package fonts resolves font descriptors to concrete fonts and shapes text.
//
// The pieces, leaves first:
//
//   - Template: immutable, reference-counted font file bytes plus static
//     metrics. Templates are created by a resolver (normally the font cache
//     service) and shared read-only by every Font built on them.
//   - GlyphStore: per-Font lazy tables of glyph metrics, rune coverage,
//     outlines and rasterized coverage masks.
//   - Font: one family/weight/slant/size instance with a bounded shaping
//     cache of TextRuns.
//   - Group: the ordered fallback list of Fonts for a Style. The last entry
//     is the last-resort font, which covers every rune.
//   - Context: per-worker cache of Fonts and Groups talking to a Resolver.
//
// A Context and everything it hands out belong to one goroutine. Templates
// are the only values shared between goroutines.
package fonts
