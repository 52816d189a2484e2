package malloc

import (
	"math"
	"testing"
	"unsafe"

	"github.com/cznic/mathutil"
)

const testHeapSize = 1 << 24 // 16 MiB, plenty for these scenarios

// TestScenario1SingleAllocFree allocates one small block, frees it, and
// expects the heap to check out clean.
func TestScenario1SingleAllocFree(t *testing.T) {
	a := newTestAllocator(t, testHeapSize)

	p := a.Malloc(1)
	if p == nil {
		t.Fatal("Malloc(1) returned nil")
	}
	if uintptr(p)%dwordSize != 0 {
		t.Fatalf("pointer %p is not 8-byte aligned", p)
	}
	a.Free(p)

	if err := a.Check(false); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

// TestScenario2PairwiseCoalesce frees two adjacent allocations and
// expects them to merge into a single free block.
func TestScenario2PairwiseCoalesce(t *testing.T) {
	a := newTestAllocator(t, testHeapSize)

	pa := a.Malloc(16)
	pb := a.Malloc(16)
	a.Free(pa)
	a.Free(pb)

	if err := a.Check(false); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

// TestScenario3HeapExtension allocates two 4000-byte blocks back to
// back; the second one must force a heap extension past the initial
// CHUNKSIZE, and both pointers must still be non-nil.
func TestScenario3HeapExtension(t *testing.T) {
	a := newTestAllocator(t, testHeapSize)

	before := a.extends
	pa := a.Malloc(4000)
	pb := a.Malloc(4000)
	if pa == nil || pb == nil {
		t.Fatal("expected both large allocations to succeed")
	}
	if a.extends <= before {
		t.Fatalf("expected at least one additional heap extension, extends=%d", a.extends)
	}
	if err := a.Check(false); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

// TestScenario4ThreeWayCoalesce allocates three blocks, frees them out
// of order, and expects them to merge into one free block.
func TestScenario4ThreeWayCoalesce(t *testing.T) {
	a := newTestAllocator(t, testHeapSize)

	pa := a.Malloc(24)
	pb := a.Malloc(24)
	pc := a.Malloc(24)
	a.Free(pa)
	a.Free(pc)
	a.Free(pb)

	if err := a.Check(false); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

// TestScenario5ReallocCopyFidelity verifies Realloc preserves the
// original contents when growing an allocation.
func TestScenario5ReallocCopyFidelity(t *testing.T) {
	a := newTestAllocator(t, testHeapSize)

	pa := a.Malloc(100)
	buf := (*[100]byte)(pa)
	for i := range buf {
		buf[i] = 0xAB
	}

	pb := a.Realloc(pa, 200)
	if pb == nil {
		t.Fatal("Realloc(100 -> 200) returned nil")
	}
	grown := (*[200]byte)(pb)
	for i := 0; i < 100; i++ {
		if grown[i] != 0xAB {
			t.Fatalf("byte %d = %#02x, want 0xab", i, grown[i])
		}
	}

	if err := a.Check(false); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

// TestScenario6CallocZeroes verifies Calloc returns zeroed memory.
func TestScenario6CallocZeroes(t *testing.T) {
	a := newTestAllocator(t, testHeapSize)

	p := a.Calloc(10, 8)
	if p == nil {
		t.Fatal("Calloc(10, 8) returned nil")
	}
	buf := (*[80]byte)(p)
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %d = %#02x, want 0", i, b)
		}
	}
}

// TestReallocSamesizeReturnsSamePointer verifies that reallocating to
// the same effective block size returns the original pointer unchanged.
func TestReallocSamesizeReturnsSamePointer(t *testing.T) {
	a := newTestAllocator(t, testHeapSize)

	p := a.Malloc(40)
	if q := a.Realloc(p, 40); q != p {
		t.Fatalf("Realloc(p, size(p)) = %p, want %p", q, p)
	}
}

// TestReallocZeroSizeFrees covers the "realloc(p, 0) behaves as free"
// decision recorded in DESIGN.md.
func TestReallocZeroSizeFrees(t *testing.T) {
	a := newTestAllocator(t, testHeapSize)

	before := a.allocs
	p := a.Malloc(40)
	if q := a.Realloc(p, 0); q != nil {
		t.Fatalf("Realloc(p, 0) = %p, want nil", q)
	}
	if a.allocs != before {
		t.Fatalf("allocs = %d after alloc+realloc(0), want %d", a.allocs, before)
	}
}

// TestMallocZeroReturnsNil verifies Malloc(0) returns nil without
// touching the heap.
func TestMallocZeroReturnsNil(t *testing.T) {
	a := newTestAllocator(t, testHeapSize)
	if p := a.Malloc(0); p != nil {
		t.Fatalf("Malloc(0) = %p, want nil", p)
	}
}

// TestFreeNilIsNoop verifies Free(nil) is a no-op.
func TestFreeNilIsNoop(t *testing.T) {
	a := newTestAllocator(t, testHeapSize)
	a.Free(nil) // must not panic
	if err := a.Check(false); err != nil {
		t.Fatalf("Check after Free(nil): %v", err)
	}
}

// TestCallocOverflowReturnsNil covers the multiplication-overflow
// hardening decision recorded in DESIGN.md.
func TestCallocOverflowReturnsNil(t *testing.T) {
	a := newTestAllocator(t, testHeapSize)
	if p := a.Calloc(math.MaxInt, 2); p != nil {
		t.Fatalf("Calloc(overflowing) = %p, want nil", p)
	}
}

// TestRandomTrace drives a deterministic allocate/verify/free cycle with
// a seeded PRNG, calling Check after every operation to catch any
// invariant violation immediately.
func TestRandomTrace(t *testing.T) {
	a := newTestAllocator(t, 64<<20)

	const quota = 4 << 20
	const maxSize = 2048

	rng, err := mathutil.NewFC32(0, math.MaxInt32, true)
	if err != nil {
		t.Fatal(err)
	}
	rng.Seed(42)
	pos := rng.Pos()

	type block struct {
		p    unsafe.Pointer
		size int
	}
	var blocks []block
	rem := quota
	for rem > 0 {
		size := rng.Next()%maxSize + 1
		rem -= size
		p := a.Malloc(size)
		if p == nil {
			t.Fatal("Malloc failed under quota")
		}
		fillPattern(p, size, rng)
		blocks = append(blocks, block{p: p, size: size})
		if err := a.Check(false); err != nil {
			t.Fatalf("Check after Malloc: %v", err)
		}
	}

	rng.Seek(pos)
	for _, b := range blocks {
		if g, e := b.size, rng.Next()%maxSize+1; g != e {
			t.Fatalf("size mismatch: got %d want %d", g, e)
		}
		checkPattern(t, b.p, b.size, rng)
	}

	for _, b := range blocks {
		a.Free(b.p)
		if err := a.Check(false); err != nil {
			t.Fatalf("Check after Free: %v", err)
		}
	}
}

func fillPattern(p unsafe.Pointer, size int, rng *mathutil.FC32) {
	b := payloadBytes(p, size)
	for i := range b {
		b[i] = byte(rng.Next())
	}
}

func checkPattern(t *testing.T, p unsafe.Pointer, size int, rng *mathutil.FC32) {
	t.Helper()
	b := payloadBytes(p, size)
	for i, g := range b {
		if e := byte(rng.Next()); g != e {
			t.Fatalf("byte %d at %p: got %#02x want %#02x", i, p, g, e)
		}
	}
}

func payloadBytes(p unsafe.Pointer, size int) []byte {
	if intBits > 32 {
		return (*[1 << 49]byte)(p)[:size:size]
	}
	return (*[1 << 31]byte)(p)[:size:size]
}
