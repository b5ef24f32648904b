package poptrie

import (
	"errors"
	"math/bits"
	"math/rand"
	"testing"
)

func ip(a, b, c, d byte) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
}

// Scenario A: default route overridden by a more specific /8.
func TestScenarioA(t *testing.T) {
	t.Parallel()

	b := New()
	b.Insert(0, 0, 0)              // 0.0.0.0/0 -> X (fib 0)
	b.Insert(ip(10, 0, 0, 0), 8, 1) // 10.0.0.0/8 -> Y (fib 1)

	pt, err := b.BuildPoptrie(12)
	if err != nil {
		t.Fatalf("BuildPoptrie: %v", err)
	}

	if got := pt.Lookup(ip(10, 1, 2, 3)); got != 1 {
		t.Fatalf("Lookup(10.1.2.3) = %d, want 1", got)
	}
	if got := pt.Lookup(ip(11, 0, 0, 0)); got != 0 {
		t.Fatalf("Lookup(11.0.0.0) = %d, want 0", got)
	}
}

// Scenario B: a /16 overridden by a /24.
func TestScenarioB(t *testing.T) {
	t.Parallel()

	b := New()
	b.Insert(0, 0, 0)
	b.Insert(ip(192, 168, 0, 0), 16, 1) // A
	b.Insert(ip(192, 168, 1, 0), 24, 2) // B

	pt, err := b.BuildPoptrie(12)
	if err != nil {
		t.Fatalf("BuildPoptrie: %v", err)
	}

	if got := pt.Lookup(ip(192, 168, 1, 77)); got != 2 {
		t.Fatalf("Lookup(192.168.1.77) = %d, want 2 (B)", got)
	}
	if got := pt.Lookup(ip(192, 168, 2, 1)); got != 1 {
		t.Fatalf("Lookup(192.168.2.1) = %d, want 1 (A)", got)
	}
}

// Scenario C: a non-stride-aligned /7. A default route is added only so
// the build succeeds; only the addresses the /7 covers are asserted.
func TestScenarioC(t *testing.T) {
	t.Parallel()

	b := New()
	b.Insert(0, 0, 0)                // give the build a default route so it compiles
	b.Insert(ip(10, 0, 0, 0), 7, 1)   // 10.0.0.0/7 -> P (fib 1)

	pt, err := b.BuildPoptrie(12)
	if err != nil {
		t.Fatalf("BuildPoptrie: %v", err)
	}

	if got := pt.Lookup(ip(10, 255, 255, 255)); got != 1 {
		t.Fatalf("Lookup(10.255.255.255) = %d, want 1 (P)", got)
	}
	if got := pt.Lookup(ip(11, 255, 255, 255)); got != 1 {
		t.Fatalf("Lookup(11.255.255.255) = %d, want 1 (P)", got)
	}
}

// Scenario D: a /24 plus a default route.
func TestScenarioD(t *testing.T) {
	t.Parallel()

	b := New()
	b.Insert(ip(41, 206, 16, 0), 24, 1) // R
	b.Insert(0, 0, 0)                   // D (default), fib 0

	pt, err := b.BuildPoptrie(12)
	if err != nil {
		t.Fatalf("BuildPoptrie: %v", err)
	}

	if got := pt.Lookup(ip(41, 206, 16, 5)); got != 1 {
		t.Fatalf("Lookup(41.206.16.5) = %d, want 1 (R)", got)
	}
}

// Scenario E: direct_bits=12, a batch of disjoint /16 prefixes each
// queried at their own network address.
func TestScenarioE(t *testing.T) {
	t.Parallel()

	b := New()
	b.Insert(0, 0, 0)

	rng := rand.New(rand.NewSource(1))
	seen := map[byte]bool{}
	var prefixes []uint32
	for len(prefixes) < 100 {
		first := byte(1 + rng.Intn(200))
		if seen[first] {
			continue
		}
		seen[first] = true
		prefixes = append(prefixes, ip(first, byte(rng.Intn(256)), 0, 0))
	}

	for i, addr := range prefixes {
		b.Insert(addr&0xFFFF0000, 16, uint32(i+1))
	}

	pt, err := b.BuildPoptrie(12)
	if err != nil {
		t.Fatalf("BuildPoptrie: %v", err)
	}

	for i, addr := range prefixes {
		net := addr & 0xFFFF0000
		if got := pt.Lookup(net); got != uint32(i+1) {
			t.Fatalf("Lookup(%#x) = %d, want %d", net, got, i+1)
		}
	}
}

// Scenario F: direct_bits=0, same inserts as scenario A.
func TestScenarioF(t *testing.T) {
	t.Parallel()

	b := New()
	b.Insert(0, 0, 0)
	b.Insert(ip(10, 0, 0, 0), 8, 1)

	pt, err := b.BuildPoptrie(0)
	if err != nil {
		t.Fatalf("BuildPoptrie: %v", err)
	}

	if got := pt.Lookup(ip(10, 1, 2, 3)); got != 1 {
		t.Fatalf("Lookup(10.1.2.3) = %d, want 1", got)
	}
}

func TestBuildWithoutDefaultRouteFails(t *testing.T) {
	t.Parallel()

	b := New()
	b.Insert(ip(10, 0, 0, 0), 8, 1)

	_, err := b.BuildPoptrie(12)
	if !errors.Is(err, ErrNoDefaultRoute) {
		t.Fatalf("BuildPoptrie error = %v, want ErrNoDefaultRoute", err)
	}
}

func TestInvariantPopcountMatchesChildRuns(t *testing.T) {
	t.Parallel()

	b := New()
	b.Insert(0, 0, 0)
	b.Insert(ip(192, 168, 0, 0), 16, 1)
	b.Insert(ip(192, 168, 1, 0), 24, 2)
	b.Insert(ip(10, 0, 0, 0), 8, 3)

	pt, err := b.BuildPoptrie(12)
	if err != nil {
		t.Fatalf("BuildPoptrie: %v", err)
	}

	// Children of consecutive N-entries occupy consecutive runs: each
	// node's internal children start at base1 and number
	// popcount(vector); its leaf runs start at base0 and number
	// popcount(leafVec).
	nextN, nextL := 1, 0
	for i, e := range pt.n {
		if e.base1 >= 0 {
			if e.base1 >= len(pt.n) {
				t.Fatalf("base1 %d out of range (N has %d entries)", e.base1, len(pt.n))
			}
			if e.base1 != nextN {
				t.Fatalf("N[%d].base1 = %d, want %d", i, e.base1, nextN)
			}
		}
		if e.base0 >= 0 {
			if e.base0 >= len(pt.l) {
				t.Fatalf("base0 %d out of range (L has %d entries)", e.base0, len(pt.l))
			}
			if e.base0 != nextL {
				t.Fatalf("N[%d].base0 = %d, want %d", i, e.base0, nextL)
			}
		}
		nextN += bits.OnesCount64(e.vector)
		nextL += bits.OnesCount64(e.leafVec)
	}
	if nextN != len(pt.n) || nextL != len(pt.l) {
		t.Fatalf("popcounts account for %d N / %d L entries, arrays hold %d / %d", nextN, nextL, len(pt.n), len(pt.l))
	}
}

func TestBuildDeterministic(t *testing.T) {
	t.Parallel()

	build := func() *Poptrie {
		b := New()
		b.Insert(0, 0, 0)
		b.Insert(ip(192, 168, 0, 0), 16, 1)
		b.Insert(ip(192, 168, 1, 0), 24, 2)
		b.Insert(ip(10, 0, 0, 0), 8, 3)
		pt, err := b.BuildPoptrie(12)
		if err != nil {
			t.Fatalf("BuildPoptrie: %v", err)
		}
		return pt
	}

	a, c := build(), build()
	if a.Stats() != c.Stats() {
		t.Fatalf("two builds from identical input produced different shapes: %+v vs %+v", a.Stats(), c.Stats())
	}
	for i := range a.n {
		if a.n[i] != c.n[i] {
			t.Fatalf("N[%d] differs across identical builds: %+v vs %+v", i, a.n[i], c.n[i])
		}
	}
}

func TestDirectBitsZeroMatchesNonzero(t *testing.T) {
	t.Parallel()

	build := func(s uint8) *Poptrie {
		b := New()
		b.Insert(0, 0, 0)
		b.Insert(ip(192, 168, 0, 0), 16, 1)
		b.Insert(ip(192, 168, 1, 0), 24, 2)
		pt, err := b.BuildPoptrie(s)
		if err != nil {
			t.Fatalf("BuildPoptrie: %v", err)
		}
		return pt
	}

	withDirect := build(12)
	without := build(0)

	keys := []uint32{
		ip(192, 168, 1, 1), ip(192, 168, 2, 1), ip(1, 2, 3, 4), ip(255, 255, 255, 255),
	}
	for _, k := range keys {
		if withDirect.Lookup(k) != without.Lookup(k) {
			t.Fatalf("Lookup(%#x) disagrees between s=12 (%d) and s=0 (%d)", k, withDirect.Lookup(k), without.Lookup(k))
		}
	}
}
