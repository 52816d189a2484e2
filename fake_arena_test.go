package malloc

import "unsafe"

// fakeArena is a PageProvider backed by a plain Go slice instead of a raw
// OS mapping, so the unit tests below exercise the engine's block
// layout, free list, coalescing, and placement logic without depending
// on mmap behavior, operating directly on Allocator internals rather
// than through a syscall layer.
type fakeArena struct {
	mem  []byte
	base unsafe.Pointer
	size int
	brk  int
}

func newFakeArena(size int) *fakeArena {
	b := make([]byte, size)
	return &fakeArena{mem: b, base: unsafe.Pointer(&b[0]), size: size}
}

func (f *fakeArena) Sbrk(n int) (unsafe.Pointer, error) {
	if n < 0 {
		panic("fakeArena: negative Sbrk request")
	}
	if f.brk+n > f.size {
		return nil, errArenaExhausted
	}
	p := ptrAdd(f.base, uintptr(f.brk))
	f.brk += n
	return p, nil
}

func (f *fakeArena) Break() unsafe.Pointer {
	return ptrAdd(f.base, uintptr(f.brk))
}

func newTestAllocator(t interface{ Fatal(...interface{}) }, size int) *Allocator {
	a, err := New(newFakeArena(size))
	if err != nil {
		t.Fatal(err)
	}
	return a
}
