// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import (
	"fmt"
	"unsafe"
)

// Check walks the heap in address order and verifies the boundary-tag
// and free-list invariants, returning the first violation found wrapped
// in ErrCorrupt. It is a debug aid, meant to be invoked between
// operations by a test or a driver; it never attempts to repair
// anything it finds.
//
// When verbose is true it also logs every visited block's address,
// size, and allocation state via the package trace switch.
func (a *Allocator) Check(verbose bool) error {
	if blockSize(a.prologue) != MINIMUM || !blockAlloc(a.prologue) {
		return fmt.Errorf("%w: prologue corrupt at %p", ErrCorrupt, a.prologue)
	}
	if ep := getWord(a.epilogueHdr); unpackSize(ep) != 0 || !unpackAlloc(ep) {
		return fmt.Errorf("%w: epilogue corrupt at %p", ErrCorrupt, a.epilogueHdr)
	}

	freeSeen := map[unsafe.Pointer]bool{}
	for bp := a.freeHead; bp != a.prologue; bp = getSucc(bp) {
		if blockAlloc(bp) {
			return fmt.Errorf("%w: free list contains allocated block %p", ErrCorrupt, bp)
		}
		pred := getPred(bp)
		if pred != nil && getSucc(pred) != bp {
			return fmt.Errorf("%w: asymmetric free-list link at %p", ErrCorrupt, bp)
		}
		succ := getSucc(bp)
		if getPred(succ) != bp {
			return fmt.Errorf("%w: asymmetric free-list link at %p", ErrCorrupt, bp)
		}
		freeSeen[bp] = true
	}

	prevFree := false
	for bp := a.prologue; ; bp = nextBlkp(bp) {
		size := blockSize(bp)
		alloc := blockAlloc(bp)

		if size == 0 {
			if bp != ptrAdd(a.epilogueHdr, wordSize) {
				return fmt.Errorf("%w: zero-sized block at %p is not the epilogue", ErrCorrupt, bp)
			}
			break
		}

		if size%dwordSize != 0 || size < MINIMUM {
			return fmt.Errorf("%w: block at %p has invalid size %d", ErrCorrupt, bp, size)
		}
		if uintptr(bp)%dwordSize != 0 {
			return fmt.Errorf("%w: block at %p is misaligned", ErrCorrupt, bp)
		}
		if getWord(hdrp(bp)) != getWord(ftrp(bp, size)) {
			return fmt.Errorf("%w: header/footer mismatch at %p", ErrCorrupt, bp)
		}
		if !alloc && prevFree {
			return fmt.Errorf("%w: two adjacent free blocks at %p", ErrCorrupt, bp)
		}
		if !alloc && !freeSeen[bp] && bp != a.prologue {
			return fmt.Errorf("%w: free block %p missing from free list", ErrCorrupt, bp)
		}
		delete(freeSeen, bp)

		if verbose {
			trace("check: block %p size=%d alloc=%v", bp, size, alloc)
		}

		prevFree = !alloc && bp != a.prologue
	}

	if len(freeSeen) != 0 {
		for bp := range freeSeen {
			return fmt.Errorf("%w: free-list entry %p not reachable by address traversal", ErrCorrupt, bp)
		}
	}

	return nil
}
