package fonts

// coverageMap is a sparse rune → bool map using 2 bits per rune:
// (checked, covered). Each block covers 256 runes and is allocated on the
// first query in its range.
//
// coverageMap is owned by one GlyphStore and is not safe for concurrent use.
type coverageMap struct {
	blocks map[uint32]*coverageBlock // keyed by rune >> 8
}

type coverageBlock struct {
	bits [8]uint64 // 256 runes × 2 bits
}

func newCoverageMap() coverageMap {
	return coverageMap{blocks: make(map[uint32]*coverageBlock)}
}

func coveragePos(r rune) (blockIdx, wordIdx, bitPos uint32) {
	bitIdx := (uint32(r) & 0xFF) * 2
	return uint32(r) >> 8, bitIdx / 64, bitIdx % 64
}

// get returns (covered, checked). checked is false for runes never set.
func (m *coverageMap) get(r rune) (covered, checked bool) {
	bi, wi, pos := coveragePos(r)
	b, ok := m.blocks[bi]
	if !ok {
		return false, false
	}
	word := b.bits[wi]
	return (word>>(pos+1))&1 != 0, (word>>pos)&1 != 0
}

// set records whether r is covered and marks it checked.
func (m *coverageMap) set(r rune, covered bool) {
	bi, wi, pos := coveragePos(r)
	b, ok := m.blocks[bi]
	if !ok {
		b = &coverageBlock{}
		m.blocks[bi] = b
	}
	b.bits[wi] |= 1 << pos
	if covered {
		b.bits[wi] |= 1 << (pos + 1)
	} else {
		b.bits[wi] &^= 1 << (pos + 1)
	}
}

func (m *coverageMap) clear() {
	m.blocks = make(map[uint32]*coverageBlock)
}
