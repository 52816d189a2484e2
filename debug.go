// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import (
	"fmt"
	"os"
)

// Trace, when set, makes Malloc, Free, Realloc, and Calloc log their
// arguments to stderr, and Malloc also its result; Check(true) logs the
// blocks it visits only while Trace is set. It is a runtime var rather
// than a build-time const so cmd/malloctrace can flip it with -verbose.
var Trace bool

func trace(format string, args ...interface{}) {
	if !Trace {
		return
	}
	fmt.Fprintf(os.Stderr, "malloc: "+format+"\n", args...)
}
