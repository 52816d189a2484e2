// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import (
	"math"
	"unsafe"
)

// intBits is the bit width of a native int on the host platform. On
// 32-bit hosts, indexing through a [1<<49]byte array type would itself
// overflow the address space, so copyBytes/zeroBytes switch array
// widths on it.
const intBits = 32 << (^uint(0) >> 63)

// Malloc returns nil for a zero-byte request or when the provider
// refuses to grant more memory; otherwise it returns an 8-byte-aligned
// payload pointer.
func (a *Allocator) Malloc(size int) unsafe.Pointer {
	trace("Malloc(%d)", size)
	if size == 0 {
		return nil
	}

	asize := adjustedSize(size)

	if bp := a.firstFit(asize); bp != nil {
		bp = a.place(bp, asize)
		a.allocs++
		trace("Malloc(%d) -> %p (first fit)", size, bp)
		return bp
	}

	grow := asize
	if grow < CHUNKSIZE {
		grow = CHUNKSIZE
	}
	bp, err := a.extendBytes(grow)
	if err != nil {
		trace("Malloc(%d) -> out of memory", size)
		return nil
	}

	bp = a.place(bp, asize)
	a.allocs++
	trace("Malloc(%d) -> %p (after extend)", size, bp)
	return bp
}

// Free releases p, which must be a pointer previously returned by
// Malloc, Calloc, or Realloc, or nil (a no-op). Passing any other
// pointer is undefined behavior; the core does not defensively detect it.
func (a *Allocator) Free(p unsafe.Pointer) {
	trace("Free(%p)", p)
	if p == nil {
		return
	}

	size := blockSize(p)
	putTags(p, size, false)
	a.coalesce(p)
	a.allocs--
}

// Realloc resizes the allocation at p to size bytes, preserving its
// contents up to the smaller of the old and new sizes.
func (a *Allocator) Realloc(p unsafe.Pointer, size int) unsafe.Pointer {
	trace("Realloc(%p, %d)", p, size)
	if p == nil {
		return a.Malloc(size)
	}
	if size == 0 {
		a.Free(p)
		return nil
	}

	old := blockSize(p)
	asize := adjustedSize(size)

	if old == asize {
		return p
	}

	if asize < old {
		if old-asize <= MINIMUM {
			// A remainder of at most MINIMUM bytes is not split off.
			return p
		}

		putTags(p, asize, true)
		next := nextBlkp(p)
		putTags(next, old-asize, false)
		a.coalesce(next)
		return p
	}

	q := a.Malloc(size)
	if q == nil {
		return nil
	}

	n := size
	if old-dwordSize < n {
		n = old - dwordSize
	}
	copyBytes(q, p, n)
	a.Free(p)
	return q
}

// Calloc allocates space for nmemb objects of size bytes each and
// zeroes it. It null-checks the allocation before zeroing, and guards
// against nmemb*size overflow rather than performing an unchecked
// multiplication.
func (a *Allocator) Calloc(nmemb, size int) unsafe.Pointer {
	trace("Calloc(%d, %d)", nmemb, size)
	if nmemb == 0 || size == 0 {
		return nil
	}
	if nmemb > math.MaxInt/size {
		return nil
	}

	total := nmemb * size
	p := a.Malloc(total)
	if p == nil {
		return nil
	}

	zeroBytes(p, total)
	return p
}

func copyBytes(dst, src unsafe.Pointer, n int) {
	if n <= 0 {
		return
	}
	switch {
	case intBits > 32:
		copy((*[1 << 49]byte)(dst)[:n:n], (*[1 << 49]byte)(src)[:n:n])
	default:
		copy((*[1 << 31]byte)(dst)[:n:n], (*[1 << 31]byte)(src)[:n:n])
	}
}

func zeroBytes(p unsafe.Pointer, n int) {
	if n <= 0 {
		return
	}
	switch {
	case intBits > 32:
		b := (*[1 << 49]byte)(p)[:n:n]
		for i := range b {
			b[i] = 0
		}
	default:
		b := (*[1 << 31]byte)(p)[:n:n]
		for i := range b {
			b[i] = 0
		}
	}
}
