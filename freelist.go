// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import "unsafe"

// freeListInsert splices bp onto the head of the free list. bp must
// already carry a free header/footer.
func (a *Allocator) freeListInsert(bp unsafe.Pointer) {
	head := a.freeHead
	setSucc(bp, head)
	setPred(head, bp)
	setPred(bp, nil)
	a.freeHead = bp
}

// freeListRemove splices bp out of the free list. It relies on the
// prologue acting as a permanent non-null terminal
// successor so that the unconditional write into bp's successor's
// predecessor slot always targets valid memory, even when bp is the last
// real entry before the prologue.
func (a *Allocator) freeListRemove(bp unsafe.Pointer) {
	pred := getPred(bp)
	succ := getSucc(bp)
	if pred != nil {
		setSucc(pred, succ)
	} else {
		a.freeHead = succ
	}
	setPred(succ, pred)
}
