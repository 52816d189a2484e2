// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import (
	"errors"
	"unsafe"
)

// arenaReserve is the size of the single anonymous mapping the default
// PageProvider reserves up front. Anonymous pages are demand-paged by
// the OS, so reserving address space here costs no physical memory
// until the engine actually touches it by extending the heap into it.
const arenaReserve = 1 << 32 // 4 GiB of reserved, lazily-committed address space

var errArenaExhausted = errors.New("malloc: arena reservation exhausted")

// arena is the default PageProvider: a classic sbrk(2) emulation over a
// single large mapping obtained once at construction time. Sbrk hands
// out contiguous extensions by bumping brk; nothing is ever unmapped
// except by Close — memory is never shrunk or returned to the operating
// system during the engine's lifetime.
type arena struct {
	mem  []byte
	base unsafe.Pointer
	size int
	brk  int
}

// newArena reserves arenaReserve bytes of anonymous memory and returns a
// PageProvider ready for use by New.
func newArena() (*arena, error) {
	b, err := mmapReserve(arenaReserve)
	if err != nil {
		return nil, err
	}
	return &arena{mem: b, base: unsafe.Pointer(&b[0]), size: len(b)}, nil
}

func (r *arena) Sbrk(n int) (unsafe.Pointer, error) {
	if n < 0 {
		panic("malloc: negative Sbrk request")
	}
	if r.brk+n > r.size {
		return nil, errArenaExhausted
	}
	p := ptrAdd(r.base, uintptr(r.brk))
	r.brk += n
	return p, nil
}

func (r *arena) Break() unsafe.Pointer {
	return ptrAdd(r.base, uintptr(r.brk))
}

// Close releases the reservation. It is not necessary to Close an arena
// before process exit.
func (r *arena) Close() error {
	if r.mem == nil {
		return nil
	}
	err := munmapRegion(r.base, r.size)
	r.mem = nil
	return err
}

// NewArena constructs an Allocator backed by the default mmap-based
// PageProvider, for callers that don't need to supply their own.
func NewArena() (*Allocator, error) {
	r, err := newArena()
	if err != nil {
		return nil, err
	}
	a, err := New(r)
	if err != nil {
		r.Close()
		return nil, err
	}
	return a, nil
}
