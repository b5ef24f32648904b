package mtrie

import "github.com/netroute/poptrie/internal/bitops"

// Builder accumulates prefix/length/next-hop tuples into a multiway
// trie. Build order is insert-only; compilation (package poptrie) reads
// the finished tree and never mutates it.
type Builder struct {
	root          *Node
	internalCount int
	leafCount     int
	hasDefault    bool
}

// New returns an empty builder rooted at level 0.
func New() *Builder {
	return &Builder{root: newInternal(0, 0), internalCount: 1}
}

// Root returns the builder's root node.
func (b *Builder) Root() *Node { return b.root }

// HasDefaultRoute reports whether a /0 prefix has been inserted.
func (b *Builder) HasDefaultRoute() bool { return b.hasDefault }

// InternalCount and LeafCount are diagnostic counters of the trie's
// internal and leaf nodes. The compiled N array has exactly
// InternalCount entries; LeafCount is an upper bound on the compiled L
// array, which merges runs of equal next hops. Overwriting a leaf in
// place changes neither count; promoting a leaf to internal moves one
// from LeafCount to InternalCount.
func (b *Builder) InternalCount() int { return b.internalCount }
func (b *Builder) LeafCount() int     { return b.leafCount }

// Insert adds a (prefix, length, next-hop) tuple to the trie. ip's host
// bits (the bits beyond prefixLen) are masked to zero before anything
// else happens — see bitops.MaskToPrefixLen for why the rest of the
// builder depends on that.
func (b *Builder) Insert(ip uint32, prefixLen uint8, fibIndex uint32) {
	if prefixLen == 0 {
		b.hasDefault = true
	}
	ip = bitops.MaskToPrefixLen(ip, prefixLen)
	b.insert(b.root, ip, prefixLen, fibIndex, 0)
}

// insert walks from current, which lives at depth offset (offset is
// always a multiple of Stride), toward the slot that should hold
// (ip, prefixLen, fibIndex).
func (b *Builder) insert(current *Node, ip uint32, prefixLen uint8, fibIndex uint32, offset uint8) {
	level := offset + Stride
	idx := uint8(bitops.Extract(ip, offset, Stride))

	switch {
	case prefixLen == level:
		b.insertAtNaturalSlot(current, ip, prefixLen, fibIndex, idx, level)

	case prefixLen < level:
		// The prefix ends inside this node's own stride: expand it
		// horizontally over a sub-range of current's children, with no
		// navigation into a child first.
		b.holepunch(current, ip, prefixLen, fibIndex, offset)

	default: // prefixLen > level, deeper
		b.descend(current, ip, prefixLen, fibIndex, idx, level)
	}
}

// insertAtNaturalSlot handles the case where the prefix terminates
// exactly at this stride boundary: current.Children[idx] is the
// natural leaf slot for it.
func (b *Builder) insertAtNaturalSlot(current *Node, ip uint32, prefixLen uint8, fibIndex uint32, idx, level uint8) {
	prefixValue := bitops.Extract(ip, 0, level)

	switch child := current.Children[idx]; {
	case child == nil:
		current.setChild(idx, newLeaf(ip, prefixLen, fibIndex, level, prefixValue))
		b.leafCount++

	case child.Leaf:
		// Exact collision: last writer wins. The reference data sets
		// never exercise this path, but overwriting in place keeps the
		// node's identity stable for anyone holding a pointer to it.
		*child = *newLeaf(ip, prefixLen, fibIndex, level, prefixValue)

	default:
		// An internal subtree already lives here even though this
		// shorter-or-equal prefix terminates at this exact slot: flood
		// every still-open descendant with this prefix's next hop so
		// its coverage survives underneath the more specific routes.
		b.holepunch(child, ip, prefixLen, fibIndex, level)
	}
}

// descend handles prefixLen deeper than this stride, promoting a leaf
// to internal (preserving its coverage via holepunch) when necessary,
// then recursing one stride further.
func (b *Builder) descend(current *Node, ip uint32, prefixLen uint8, fibIndex uint32, idx, level uint8) {
	prefixValue := bitops.Extract(ip, 0, level)

	switch child := current.Children[idx]; {
	case child == nil:
		next := newInternal(level, prefixValue)
		current.setChild(idx, next)
		b.internalCount++
		b.insert(next, ip, prefixLen, fibIndex, level)

	case child.Leaf:
		oldIP, oldLen, oldFib := child.IP, child.PrefixLen, child.FIBIndex
		child.resetInternal(level, prefixValue)
		b.internalCount++
		b.leafCount--
		// the leaf's own coverage must survive the promotion
		b.holepunch(child, oldIP, oldLen, oldFib, level)
		b.insert(child, ip, prefixLen, fibIndex, level)

	default:
		b.insert(child, ip, prefixLen, fibIndex, level)
	}
}

// holepunch pushes (ip, prefixLen, fibIndex) into every open descendant
// slot of current, which lives at depth offset. If prefixLen still
// lies within [offset, offset+Stride) only the matching sub-range of
// current's own children is touched; otherwise the whole node is.
func (b *Builder) holepunch(current *Node, ip uint32, prefixLen uint8, fibIndex uint32, offset uint8) {
	level := offset + Stride
	kbits := uint32(bitops.Extract(ip, offset, Stride))
	prefix := bitops.Extract(ip, 0, level)

	var lowest, span uint8
	if prefixLen >= offset {
		span = level - prefixLen
		lowest = uint8(bitops.Extract(ip, prefixLen, span))
	} else {
		span = Stride
		lowest = uint8(bitops.Extract(ip, offset, span))
		// ip's bits past prefixLen are zero, so a descendant slot's own
		// address bits come from current's position, not from ip.
		prefix = current.PrefixValue << Stride
	}
	highest := lowest | uint8(1<<span-1)

	for i := lowest; i <= highest; i++ {
		b.fillSlot(current, uint8(kbits)+i, ip, prefixLen, fibIndex, level, prefix|uint32(i))
	}
}

// fillSlot applies the "empty / shorter leaf / internal" rule shared by
// every holepunch call site to a single child slot.
func (b *Builder) fillSlot(current *Node, idx uint8, ip uint32, prefixLen uint8, fibIndex uint32, level uint8, prefixValue uint32) {
	switch child := current.Children[idx]; {
	case child == nil:
		current.setChild(idx, newLeaf(ip, prefixLen, fibIndex, level, prefixValue))
		b.leafCount++

	case child.Leaf:
		if child.PrefixLen < prefixLen {
			*child = *newLeaf(ip, prefixLen, fibIndex, level, prefixValue)
		}
		// equal-or-longer existing prefix wins; leave it alone.

	default:
		b.holepunch(child, ip, prefixLen, fibIndex, level)
	}
}
