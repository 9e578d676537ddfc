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

package functions

import (
	"regexp"
	"time"

	"github.com/prismview/prism/arena"
)

// Context is the per-evaluation-pass execution environment handed to every
// function. One Context lives for exactly one recomputation pass: Now is
// fixed at pass start so today()/now() are stable across rows, and every
// string interned through the context is tracked so the evaluator can
// release pass-scratch references when the pass ends.
type Context struct {
	// Arena receives strings produced during this pass.
	Arena *arena.Arena
	// Now is the pass timestamp used by today() and now().
	Now time.Time

	regexps map[string]*regexp.Regexp
	scratch []arena.Ref
}

// NewContext creates a pass context writing strings into a.
func NewContext(a *arena.Arena) *Context {
	return &Context{
		Arena:   a,
		Now:     time.Now().UTC(),
		regexps: make(map[string]*regexp.Regexp),
	}
}

// Intern stores s in the pass arena and tracks the reference as pass
// scratch. References that outlive the pass (output column cells) must be
// retained by their new owner before ReleaseScratch runs.
func (c *Context) Intern(s string) arena.Ref {
	ref := c.Arena.Intern(s)
	c.scratch = append(c.scratch, ref)
	return ref
}

// Regexp returns the compiled pattern, caching compilations for the pass.
// Patterns are validated at compile time, so failures here are programming
// errors surfaced as evaluation errors by the caller.
func (c *Context) Regexp(pattern string) (*regexp.Regexp, error) {
	if re, ok := c.regexps[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	c.regexps[pattern] = re
	return re, nil
}

// ReleaseScratch drops every pass-scratch string reference. Output columns
// retained their cells, so only superseded intermediates are freed.
func (c *Context) ReleaseScratch() {
	for _, ref := range c.scratch {
		ref.Release()
	}
	c.scratch = c.scratch[:0]
}
