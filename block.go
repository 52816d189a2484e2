// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import "unsafe"

// wordSize is the 4-byte header/footer tag word; dwordSize is the
// pointer-wide (8-byte) double-word used for alignment and the free-block
// predecessor/successor slots.
const (
	wordSize  = 4
	dwordSize = 8

	// MINIMUM is the smallest permitted block size: header(4) + pred(8) +
	// succ(8) + footer(4), the space needed for a free block to carry its
	// own free-list linkage.
	MINIMUM = 24

	// CHUNKSIZE is the minimum increment by which the heap is grown.
	CHUNKSIZE = 4096

	allocBit = uint32(1)
)

func ptrAdd(p unsafe.Pointer, off uintptr) unsafe.Pointer {
	return unsafe.Pointer(uintptr(p) + off)
}

func ptrSub(p unsafe.Pointer, off uintptr) unsafe.Pointer {
	return unsafe.Pointer(uintptr(p) - off)
}

func getWord(p unsafe.Pointer) uint32    { return *(*uint32)(p) }
func putWord(p unsafe.Pointer, v uint32) { *(*uint32)(p) = v }

func packTag(size int, alloc bool) uint32 {
	v := uint32(size)
	if alloc {
		v |= allocBit
	}
	return v
}

func unpackSize(tag uint32) int  { return int(tag &^ allocBit) }
func unpackAlloc(tag uint32) bool { return tag&allocBit != 0 }

// hdrp returns the address of bp's header word, one word below the payload.
func hdrp(bp unsafe.Pointer) unsafe.Pointer { return ptrSub(bp, wordSize) }

// blockSize reads the size encoded in bp's header.
func blockSize(bp unsafe.Pointer) int { return unpackSize(getWord(hdrp(bp))) }

// blockAlloc reads the allocation bit encoded in bp's header.
func blockAlloc(bp unsafe.Pointer) bool { return unpackAlloc(getWord(hdrp(bp))) }

// ftrp returns the address of the footer word of a block of the given size
// starting at bp. It does not read bp's current header, so it can be used
// to lay down a footer before (or while) the header is being rewritten.
func ftrp(bp unsafe.Pointer, size int) unsafe.Pointer {
	return ptrAdd(bp, uintptr(size-dwordSize))
}

// putHeader and putFooter stamp matching boundary tags for a block of
// the given size and allocation state starting at bp.
func putHeader(bp unsafe.Pointer, size int, alloc bool) {
	putWord(hdrp(bp), packTag(size, alloc))
}

func putFooter(bp unsafe.Pointer, size int, alloc bool) {
	putWord(ftrp(bp, size), packTag(size, alloc))
}

func putTags(bp unsafe.Pointer, size int, alloc bool) {
	putHeader(bp, size, alloc)
	putFooter(bp, size, alloc)
}

// nextBlkp returns the payload pointer of the block physically following bp.
func nextBlkp(bp unsafe.Pointer) unsafe.Pointer {
	return ptrAdd(bp, uintptr(blockSize(bp)))
}

// prevFooterWord is the footer word of the block physically preceding bp,
// found one double-word below bp's payload (bp - DWORD).
func prevFooterWord(bp unsafe.Pointer) uint32 {
	return getWord(ptrSub(bp, dwordSize))
}

// prevBlkp returns the payload pointer of the block physically preceding
// bp, and whether that computation is degenerate: the pathological
// case where reading the previous block's footer yields a zero size and
// the arithmetic would alias bp itself. Callers
// must treat a degenerate result as "previous block is allocated" without
// dereferencing the returned pointer.
func prevBlkp(bp unsafe.Pointer) (p unsafe.Pointer, degenerate bool) {
	size := unpackSize(prevFooterWord(bp))
	if size == 0 {
		return bp, true
	}
	return ptrSub(bp, uintptr(size)), false
}

// predSlot and succSlot are the free-block overlay's predecessor and
// successor link slots: offset 0 and offset DWORD of the payload.
func predSlot(bp unsafe.Pointer) *unsafe.Pointer {
	return (*unsafe.Pointer)(bp)
}

func succSlot(bp unsafe.Pointer) *unsafe.Pointer {
	return (*unsafe.Pointer)(ptrAdd(bp, dwordSize))
}

func getPred(bp unsafe.Pointer) unsafe.Pointer { return *predSlot(bp) }
func getSucc(bp unsafe.Pointer) unsafe.Pointer { return *succSlot(bp) }

func setPred(bp, v unsafe.Pointer) { *predSlot(bp) = v }
func setSucc(bp, v unsafe.Pointer) { *succSlot(bp) = v }

// alignUp8 rounds n up to the next multiple of 8 (DWORD alignment).
func alignUp8(n int) int { return (n + dwordSize - 1) &^ (dwordSize - 1) }

// adjustedSize computes the total block size needed to satisfy a payload
// request of s bytes, including header/footer overhead, rounded up to the
// block-size minimum.
func adjustedSize(s int) int {
	asize := alignUp8(s) + dwordSize
	if asize < MINIMUM {
		asize = MINIMUM
	}
	return asize
}
