// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrOutOfMemory is returned when the page provider declines to grant
// additional bytes.
var ErrOutOfMemory = errors.New("malloc: out of memory")

// ErrCorrupt is returned by Check when a heap invariant is violated.
var ErrCorrupt = errors.New("malloc: heap corrupt")

// PageProvider is the external, sbrk-like page-granting primitive the
// engine depends on. Sbrk(n) extends the mapped region by n bytes and
// returns a pointer to the
// start of the newly granted, contiguous, zero-or-garbage-filled bytes.
// Break reports the current high watermark (the address immediately
// past the last byte ever granted).
type PageProvider interface {
	Sbrk(n int) (unsafe.Pointer, error)
	Break() unsafe.Pointer
}

// Allocator is the heap-engine value: the block layout, free list,
// placement policy, and coalescing engine, encapsulated so a driver can
// own exactly one instance instead of relying on global state.
type Allocator struct {
	provider PageProvider

	prologue     unsafe.Pointer // prologue's payload pointer; permanent free-list tail sentinel
	epilogueHdr  unsafe.Pointer // address of the current epilogue header word
	freeHead     unsafe.Pointer // current free-list head

	allocs  int // outstanding allocation count, for diagnostics
	bytes   int // bytes requested by heap extensions (init's request not counted)
	extends int // number of heap-extension calls
}

// New lays down the padding/prologue/epilogue, then extends the heap
// once by CHUNKSIZE to produce the initial free block. It fails if
// either page request is refused by p.
func New(p PageProvider) (*Allocator, error) {
	a := &Allocator{provider: p}
	if err := a.init(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Allocator) init() error {
	trace("init")
	base, err := a.provider.Sbrk(2 * MINIMUM)
	if err != nil {
		return fmt.Errorf("%w: initial heap request: %v", ErrOutOfMemory, err)
	}

	prologueBp := ptrAdd(base, 2*wordSize)
	putTags(prologueBp, MINIMUM, true)
	a.prologue = prologueBp
	a.freeHead = prologueBp
	setSucc(prologueBp, nil)
	setPred(prologueBp, nil)

	a.epilogueHdr = hdrp(nextBlkp(prologueBp))
	putWord(a.epilogueHdr, packTag(0, true))

	if _, err := a.extend(CHUNKSIZE / wordSize); err != nil {
		return err
	}
	return nil
}

// extend grows the heap. words is a word count; it is rounded up to an
// even number of words and further up to MINIMUM bytes, so the granted
// byte count is always a multiple of DWORD. The new region is requested
// from the provider and stamped as one free block of exactly that size,
// starting where the prior epilogue's header stood, with a fresh
// epilogue placed one word past the block's end; this keeps header
// offsets on the same alignment class across every extension, at the
// cost of stranding a few trailing bytes of slack (left ungranted to
// any block) whenever the provider's break runs ahead of the block's
// true end. The new block is then coalesced with whatever free block
// precedes it.
func (a *Allocator) extend(words int) (unsafe.Pointer, error) {
	if words%2 != 0 {
		words++
	}
	bytes := words * wordSize
	if bytes < MINIMUM {
		bytes = MINIMUM
	}

	if _, err := a.provider.Sbrk(bytes); err != nil {
		return nil, fmt.Errorf("%w: extend by %d bytes: %v", ErrOutOfMemory, bytes, err)
	}

	oldEpilogue := a.epilogueHdr
	bp := ptrAdd(oldEpilogue, wordSize)
	putTags(bp, bytes, false)

	a.epilogueHdr = hdrp(nextBlkp(bp))
	putWord(a.epilogueHdr, packTag(0, true))

	a.bytes += bytes
	a.extends++
	trace("extend(%d words) -> %d bytes, new epilogue %p", words, bytes, a.epilogueHdr)
	return a.coalesce(bp), nil
}

// extendBytes is extend with a byte-count input, for call sites (the
// allocation miss path) that think in terms of "at least this many
// bytes" rather than a word count.
func (a *Allocator) extendBytes(minBytes int) (unsafe.Pointer, error) {
	words := (minBytes + wordSize - 1) / wordSize
	return a.extend(words)
}
