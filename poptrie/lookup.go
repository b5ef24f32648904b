package poptrie

import "github.com/netroute/poptrie/internal/bitops"

// Lookup answers the longest-prefix match for key, returning the fib
// index of the winning prefix. The hot path never allocates, never
// branches on a type tag beyond the single direct-pointing leaf test,
// and reads only p.n, p.l and p.d.
//
// Callers must build with a default route (see ErrNoDefaultRoute);
// otherwise a key with no covering prefix walks to an unspecified index.
func (p *Poptrie) Lookup(key uint32) uint32 {
	var index int
	if p.s == 0 {
		index = 0
	} else {
		index = int(bitops.Extract(key, 0, p.s))
	}

	direct := p.d[index]
	if direct.isLeaf() {
		return direct.fibIndex()
	}
	index = direct.nIndex()

	offset := p.s
	vector := p.n[index].vector
	v := uint8(bitops.Extract(key, offset, 6))

	for vector&(uint64(1)<<v) != 0 {
		bc := bitops.PopcountInclusive(vector, v)
		index = p.n[index].base1 + bc - 1
		vector = p.n[index].vector
		offset += 6
		v = uint8(bitops.Extract(key, offset, 6))
	}

	bc := bitops.PopcountInclusive(p.n[index].leafVec, v)
	return p.l[p.n[index].base0+bc-1].fibIndex
}
