// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import "unsafe"

// coalesce merges the already-free block bp with any physically adjacent
// free neighbors and threads the result into the free list, covering the
// four alloc/free combinations of the two neighbors. bp must already
// carry a free header and footer (callers mark a block free before
// invoking this). It returns the payload pointer of the resulting
// (possibly merged) block.
func (a *Allocator) coalesce(bp unsafe.Pointer) unsafe.Pointer {
	prevBp, degenerate := prevBlkp(bp)
	// A zero size in the previous footer aliases the previous-block
	// computation to bp itself; treat that case as prev-allocated rather
	// than dereferencing the alias.
	prevAlloc := degenerate || blockAlloc(prevBp)
	nextBp := nextBlkp(bp)
	nextAlloc := blockAlloc(nextBp)
	size := blockSize(bp)

	switch {
	case prevAlloc && nextAlloc:
		a.freeListInsert(bp)
		return bp

	case prevAlloc && !nextAlloc:
		a.freeListRemove(nextBp)
		size += blockSize(nextBp)
		putTags(bp, size, false)
		a.freeListInsert(bp)
		return bp

	case !prevAlloc && nextAlloc:
		a.freeListRemove(prevBp)
		size += blockSize(prevBp)
		putTags(prevBp, size, false)
		a.freeListInsert(prevBp)
		return prevBp

	default: // !prevAlloc && !nextAlloc
		a.freeListRemove(prevBp)
		a.freeListRemove(nextBp)
		size += blockSize(prevBp) + blockSize(nextBp)
		putTags(prevBp, size, false)
		a.freeListInsert(prevBp)
		return prevBp
	}
}
