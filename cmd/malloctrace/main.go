// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command malloctrace replays a line-oriented allocation trace against
// a single Allocator, modeled on the flag+log-driven replay loop in
// cznic/exp/lldb's lab tools.
//
// Trace line format, one operation per line:
//
//	a <id> <size>        allocate <size> bytes, remember the result as <id>
//	f <id>               free the block remembered as <id>
//	r <id> <size>        reallocate <id> to <size> bytes, re-remember the result
//	c <id> <nmemb> <size> calloc(nmemb, size), remember the result as <id>
//
// Blank lines and lines starting with # are ignored.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"github.com/willdarling/mallocproject"
)

func main() {
	tracePath := flag.String("trace", "", "path to an allocation trace file")
	verbose := flag.Bool("verbose", false, "run the consistency checker after every operation and enable malloc.Trace")
	flag.Parse()

	if *tracePath == "" {
		log.Fatal("malloctrace: -trace is required")
	}

	malloc.Trace = *verbose

	f, err := os.Open(*tracePath)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	a, err := malloc.NewArena()
	if err != nil {
		log.Fatalf("malloctrace: init: %v", err)
	}

	live := map[string]unsafe.Pointer{}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if err := replay(a, live, fields); err != nil {
			log.Fatalf("malloctrace: line %d: %v", lineNo, err)
		}

		if *verbose {
			if err := a.Check(true); err != nil {
				log.Fatalf("malloctrace: line %d: %v", lineNo, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatal(err)
	}

	if err := a.Check(*verbose); err != nil {
		log.Fatalf("malloctrace: final check: %v", err)
	}
	fmt.Println("malloctrace: trace replayed cleanly")
}

func replay(a *malloc.Allocator, live map[string]unsafe.Pointer, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	if len(fields) < 2 {
		return fmt.Errorf("malformed line %q: missing id", strings.Join(fields, " "))
	}

	op, id := fields[0], fields[1]
	switch op {
	case "a":
		if len(fields) < 3 {
			return fmt.Errorf("malformed %q line: want \"a <id> <size>\"", op)
		}
		size, err := strconv.Atoi(fields[2])
		if err != nil {
			return err
		}
		live[id] = a.Malloc(size)

	case "f":
		a.Free(live[id])
		delete(live, id)

	case "r":
		if len(fields) < 3 {
			return fmt.Errorf("malformed %q line: want \"r <id> <size>\"", op)
		}
		size, err := strconv.Atoi(fields[2])
		if err != nil {
			return err
		}
		live[id] = a.Realloc(live[id], size)

	case "c":
		if len(fields) < 4 {
			return fmt.Errorf("malformed %q line: want \"c <id> <nmemb> <size>\"", op)
		}
		nmemb, err := strconv.Atoi(fields[2])
		if err != nil {
			return err
		}
		size, err := strconv.Atoi(fields[3])
		if err != nil {
			return err
		}
		live[id] = a.Calloc(nmemb, size)

	default:
		return fmt.Errorf("unknown op %q", op)
	}
	return nil
}
