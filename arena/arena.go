/*
 * Copyright 2025 The Prism Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package arena implements page-organized, reference-counted string storage.
//
// Strings produced during expression evaluation are interned into an Arena
// and addressed by lightweight handles (page, offset, length). Pages are
// append-only and never compacted; a page's memory is released once every
// handle referencing a byte range inside it has been released. Interning
// deduplicates by content, so re-interning an existing string returns the
// existing handle with its reference count bumped.
package arena

import (
	"strings"
	"sync"

	"github.com/dchest/siphash"
)

// DefaultPageSize is the capacity in bytes of a single arena page.
const DefaultPageSize = 4096

// Keys for the intern-table hash. Fixed keys keep interning deterministic
// across runs; the hash is an index key, not a security boundary.
const (
	hashKey0 = 0x707269736d2d6b30
	hashKey1 = 0x707269736d2d6b31
)

// Handle addresses an interned string as a (page, offset, length) triple.
// A string longer than one page occupies consecutive pages starting at
// offset 0 of its first page.
type Handle struct {
	page int32
	off  int32
	len  int32
}

// Ref is a handle bound to its owning arena. The zero Ref resolves to "".
type Ref struct {
	a *Arena
	h Handle
}

type page struct {
	buf  []byte
	used int
	refs int // live handle references into this page
}

type internEntry struct {
	hash   uint64
	handle Handle
}

// Arena is an append-only paged string store with per-page reference counts
// and a content-addressed intern table.
type Arena struct {
	mu       sync.Mutex
	pageSize int
	pages    []*page
	fill     int // index of the page currently accepting short strings, -1 if none
	intern   map[uint64][]Handle
	byPage   map[int32][]internEntry // for unindexing when a page is freed
}

// New creates an arena with the default page size.
func New() *Arena {
	return NewWithPageSize(DefaultPageSize)
}

// NewWithPageSize creates an arena whose pages hold size bytes each.
func NewWithPageSize(size int) *Arena {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Arena{
		pageSize: size,
		fill:     -1,
		intern:   make(map[uint64][]Handle),
		byPage:   make(map[int32][]internEntry),
	}
}

// Intern stores s in the arena and returns a Ref owning one reference.
// Interning a string that is already stored returns the existing handle
// with its reference count incremented.
func (a *Arena) Intern(s string) Ref {
	a.mu.Lock()
	defer a.mu.Unlock()

	hash := siphash.Hash(hashKey0, hashKey1, []byte(s))
	for _, h := range a.intern[hash] {
		if a.resolveLocked(h) == s {
			a.retainLocked(h)
			return Ref{a: a, h: h}
		}
	}

	h := a.allocLocked(s)
	a.intern[hash] = append(a.intern[hash], h)
	a.byPage[h.page] = append(a.byPage[h.page], internEntry{hash: hash, handle: h})
	a.retainLocked(h)
	return Ref{a: a, h: h}
}

// allocLocked copies s into page storage and returns its handle.
func (a *Arena) allocLocked(s string) Handle {
	n := len(s)
	if n <= a.pageSize {
		// A string that exceeds the fill page's remaining capacity spills
		// into a fresh page rather than splitting.
		if a.fill < 0 || a.pages[a.fill].buf == nil || a.pages[a.fill].used+n > a.pageSize {
			a.fill = a.newPageLocked()
		}
		p := a.pages[a.fill]
		off := p.used
		copy(p.buf[off:], s)
		p.used += n
		return Handle{page: int32(a.fill), off: int32(off), len: int32(n)}
	}

	// Long string: occupies consecutive fresh pages.
	first := -1
	rest := s
	for len(rest) > 0 {
		idx := a.newPageLocked()
		if first < 0 {
			first = idx
		}
		p := a.pages[idx]
		chunk := len(rest)
		if chunk > a.pageSize {
			chunk = a.pageSize
		}
		copy(p.buf, rest[:chunk])
		p.used = chunk
		rest = rest[chunk:]
	}
	return Handle{page: int32(first), off: 0, len: int32(n)}
}

func (a *Arena) newPageLocked() int {
	a.pages = append(a.pages, &page{buf: make([]byte, a.pageSize)})
	return len(a.pages) - 1
}

// spanLocked returns the page indices h occupies.
func (a *Arena) spanLocked(h Handle) (first, last int32) {
	first = h.page
	if int(h.len) <= a.pageSize {
		return first, first
	}
	n := (int(h.len) + a.pageSize - 1) / a.pageSize
	return first, first + int32(n-1)
}

func (a *Arena) retainLocked(h Handle) {
	first, last := a.spanLocked(h)
	for i := first; i <= last; i++ {
		a.pages[i].refs++
	}
}

func (a *Arena) releaseLocked(h Handle) {
	first, last := a.spanLocked(h)
	for i := first; i <= last; i++ {
		p := a.pages[i]
		p.refs--
		if p.refs <= 0 && p.buf != nil {
			a.freePageLocked(i)
		}
	}
}

// freePageLocked drops a page's buffer and unindexes handles rooted in it.
func (a *Arena) freePageLocked(idx int32) {
	p := a.pages[idx]
	p.buf = nil
	p.used = 0
	p.refs = 0
	if int(idx) == a.fill {
		a.fill = -1
	}
	for _, e := range a.byPage[idx] {
		bucket := a.intern[e.hash]
		for i, h := range bucket {
			if h == e.handle {
				a.intern[e.hash] = append(bucket[:i], bucket[i+1:]...)
				break
			}
		}
		if len(a.intern[e.hash]) == 0 {
			delete(a.intern, e.hash)
		}
	}
	delete(a.byPage, idx)
}

func (a *Arena) resolveLocked(h Handle) string {
	if h.len == 0 {
		return ""
	}
	if int(h.len) <= a.pageSize {
		p := a.pages[h.page]
		if p.buf == nil {
			return ""
		}
		return string(p.buf[h.off : h.off+h.len])
	}
	var b strings.Builder
	b.Grow(int(h.len))
	remaining := int(h.len)
	for i := h.page; remaining > 0; i++ {
		p := a.pages[i]
		if p.buf == nil {
			return ""
		}
		chunk := remaining
		if chunk > a.pageSize {
			chunk = a.pageSize
		}
		b.Write(p.buf[:chunk])
		remaining -= chunk
	}
	return b.String()
}

// PageCount reports how many pages have been allocated in total.
func (a *Arena) PageCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pages)
}

// LivePages reports how many pages still hold referenced data.
func (a *Arena) LivePages() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, p := range a.pages {
		if p.buf != nil && p.refs > 0 {
			n++
		}
	}
	return n
}

// String resolves the referenced bytes, reassembling page-spanning strings
// in order. The zero Ref resolves to "".
func (r Ref) String() string {
	if r.a == nil {
		return ""
	}
	r.a.mu.Lock()
	defer r.a.mu.Unlock()
	return r.a.resolveLocked(r.h)
}

// Len returns the referenced string's byte length without resolving it.
func (r Ref) Len() int {
	return int(r.h.len)
}

// IsZero reports whether the Ref is unbound.
func (r Ref) IsZero() bool {
	return r.a == nil
}

// Retain adds a reference and returns the same Ref for chaining.
func (r Ref) Retain() Ref {
	if r.a != nil {
		r.a.mu.Lock()
		r.a.retainLocked(r.h)
		r.a.mu.Unlock()
	}
	return r
}

// Release drops one reference. Releasing the last reference into a page
// frees the page.
func (r Ref) Release() {
	if r.a != nil {
		r.a.mu.Lock()
		r.a.releaseLocked(r.h)
		r.a.mu.Unlock()
	}
}

// Equal compares two refs by content. Refs into the same arena with the
// same handle are equal without resolving.
func Equal(x, y Ref) bool {
	if x.a == y.a && x.h == y.h {
		return true
	}
	if x.h.len != y.h.len {
		return false
	}
	return x.String() == y.String()
}
