// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import "unsafe"

// firstFit walks the free list from its head via successor links and
// returns the first block whose size is at least asize. Termination is
// guaranteed by the prologue, which is permanently allocated and
// therefore terminal in this walk; reaching it is reported as a miss (nil).
func (a *Allocator) firstFit(asize int) unsafe.Pointer {
	for bp := a.freeHead; bp != a.prologue; bp = getSucc(bp) {
		if blockSize(bp) >= asize {
			return bp
		}
	}
	return nil
}

// place claims free block bp (of size >= asize) for an allocation of
// asize bytes, splitting off and coalescing the remainder when it would
// itself meet MINIMUM. It returns bp, now tagged allocated.
func (a *Allocator) place(bp unsafe.Pointer, asize int) unsafe.Pointer {
	csize := blockSize(bp)
	a.freeListRemove(bp)

	if csize-asize >= MINIMUM {
		putTags(bp, asize, true)
		remainder := nextBlkp(bp)
		putTags(remainder, csize-asize, false)
		a.coalesce(remainder)
	} else {
		putTags(bp, csize, true)
	}
	return bp
}
