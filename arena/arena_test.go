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

package arena

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternRoundTrip(t *testing.T) {
	a := New()
	ref := a.Intern("hello")
	assert.Equal(t, "hello", ref.String())
	assert.Equal(t, 5, ref.Len())
	assert.False(t, ref.IsZero())
}

func TestInternDeduplicates(t *testing.T) {
	a := New()
	x := a.Intern("shared")
	y := a.Intern("shared")
	assert.True(t, Equal(x, y))
	assert.Equal(t, 1, a.PageCount())

	// Two references were handed out; releasing one keeps the page alive.
	x.Release()
	assert.Equal(t, "shared", y.String())
	assert.Equal(t, 1, a.LivePages())
	y.Release()
	assert.Equal(t, 0, a.LivePages())
}

func TestLongStringSpansPages(t *testing.T) {
	a := NewWithPageSize(64)
	long := strings.Repeat("abcdefgh", 100) // 800 bytes across 13 pages
	ref := a.Intern(long)
	assert.Equal(t, long, ref.String())
	assert.GreaterOrEqual(t, a.PageCount(), 13)
}

func TestManyDistinctLongStrings(t *testing.T) {
	a := NewWithPageSize(256)
	const n = 16
	refs := make([]Ref, n)
	want := make([]string, n)
	for i := 0; i < n; i++ {
		want[i] = strings.Repeat(string(rune('a'+i)), 640)
		refs[i] = a.Intern(want[i])
	}
	for i := 0; i < n; i++ {
		assert.Equal(t, want[i], refs[i].String(), "string %d", i)
	}
}

func TestShortStringSpillsToFreshPage(t *testing.T) {
	a := NewWithPageSize(16)
	first := a.Intern("0123456789ab") // 12 of 16 bytes used
	second := a.Intern("xyzxyz")      // does not fit the remainder
	assert.Equal(t, "0123456789ab", first.String())
	assert.Equal(t, "xyzxyz", second.String())
	assert.Equal(t, 2, a.PageCount())
}

func TestReleaseFreesPagesAndUnindexes(t *testing.T) {
	a := NewWithPageSize(32)
	ref := a.Intern("ephemeral")
	ref.Release()
	require.Equal(t, 0, a.LivePages())

	// Interning the same content after the page died must allocate fresh
	// storage, not resolve a stale handle.
	again := a.Intern("ephemeral")
	assert.Equal(t, "ephemeral", again.String())
}

func TestRetainKeepsPageAlive(t *testing.T) {
	a := NewWithPageSize(32)
	ref := a.Intern("pinned")
	ref.Retain()
	ref.Release()
	assert.Equal(t, "pinned", ref.String())
	assert.Equal(t, 1, a.LivePages())
	ref.Release()
	assert.Equal(t, 0, a.LivePages())
}

func TestEqualComparesByContent(t *testing.T) {
	left := New()
	right := NewWithPageSize(8) // different page geometry
	x := left.Intern("same content here")
	y := right.Intern("same content here")
	z := right.Intern("different")
	assert.True(t, Equal(x, y))
	assert.False(t, Equal(x, z))
}

func TestZeroRefResolvesEmpty(t *testing.T) {
	var r Ref
	assert.True(t, r.IsZero())
	assert.Equal(t, "", r.String())
}
