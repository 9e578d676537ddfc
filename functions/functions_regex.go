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
	"fmt"
	"regexp"

	"github.com/prismview/prism/types"
)

// Regex patterns must be string literals so they are validated and
// compiled before any row executes.
func wantPattern(name string, idx int, a Arg) error {
	if a.StrLiteral == nil {
		return fmt.Errorf("function %s: argument %d must be a string literal pattern", name, idx+1)
	}
	if _, err := regexp.Compile(*a.StrLiteral); err != nil {
		return fmt.Errorf("function %s: invalid pattern: %v", name, err)
	}
	return nil
}

// MatchFunction tests whether a pattern matches anywhere in the string.
type MatchFunction struct {
	*BaseFunction
}

func NewMatchFunction() *MatchFunction {
	return &MatchFunction{NewBaseFunction("match", TypeRegex, "partial regex match", 2, 2)}
}

func (f *MatchFunction) Check(args []Arg) (types.Type, error) {
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	if err := wantString(f.Name(), 0, args[0]); err != nil {
		return types.Unknown, err
	}
	if err := wantPattern(f.Name(), 1, args[1]); err != nil {
		return types.Unknown, err
	}
	return types.Boolean, nil
}

func (f *MatchFunction) Execute(ctx *Context, args []types.Value) (types.Value, error) {
	if args[0].Null {
		return types.NewNull(types.Boolean), nil
	}
	re, err := ctx.Regexp(args[1].Str())
	if err != nil {
		return types.NewNull(types.Boolean), err
	}
	return types.NewBool(re.MatchString(args[0].Str())), nil
}

// MatchAllFunction tests whether a pattern matches the entire string.
type MatchAllFunction struct {
	*BaseFunction
}

func NewMatchAllFunction() *MatchAllFunction {
	return &MatchAllFunction{NewBaseFunction("match_all", TypeRegex, "full-string regex match", 2, 2)}
}

func (f *MatchAllFunction) Check(args []Arg) (types.Type, error) {
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	if err := wantString(f.Name(), 0, args[0]); err != nil {
		return types.Unknown, err
	}
	if err := wantPattern(f.Name(), 1, args[1]); err != nil {
		return types.Unknown, err
	}
	return types.Boolean, nil
}

func (f *MatchAllFunction) Execute(ctx *Context, args []types.Value) (types.Value, error) {
	if args[0].Null {
		return types.NewNull(types.Boolean), nil
	}
	re, err := ctx.Regexp("^(?:" + args[1].Str() + ")$")
	if err != nil {
		return types.NewNull(types.Boolean), err
	}
	return types.NewBool(re.MatchString(args[0].Str())), nil
}

// SearchFunction returns the first capture group of the first match, or
// the whole match when the pattern has no groups; null when there is no
// match.
type SearchFunction struct {
	*BaseFunction
}

func NewSearchFunction() *SearchFunction {
	return &SearchFunction{NewBaseFunction("search", TypeRegex, "extract first regex capture group", 2, 2)}
}

func (f *SearchFunction) Check(args []Arg) (types.Type, error) {
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	if err := wantString(f.Name(), 0, args[0]); err != nil {
		return types.Unknown, err
	}
	if err := wantPattern(f.Name(), 1, args[1]); err != nil {
		return types.Unknown, err
	}
	return types.String, nil
}

func (f *SearchFunction) Execute(ctx *Context, args []types.Value) (types.Value, error) {
	if args[0].Null {
		return types.NewNull(types.String), nil
	}
	re, err := ctx.Regexp(args[1].Str())
	if err != nil {
		return types.NewNull(types.String), err
	}
	m := re.FindStringSubmatch(args[0].Str())
	if m == nil {
		return types.NewNull(types.String), nil
	}
	if len(m) > 1 {
		return types.NewString(ctx.Intern(m[1])), nil
	}
	return types.NewString(ctx.Intern(m[0])), nil
}

// IndexofFunction finds the first match of a pattern and writes the match
// bounds (start index, inclusive end index) of the first capture group into
// a two-element output array, returning whether a match was found. The
// array-population half is wired by the virtual machine, which owns local
// array storage; Execute reports the match result.
type IndexofFunction struct {
	*BaseFunction
}

func NewIndexofFunction() *IndexofFunction {
	return &IndexofFunction{NewBaseFunction("indexof", TypeRegex, "find match bounds of a pattern", 3, 3)}
}

func (f *IndexofFunction) Check(args []Arg) (types.Type, error) {
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	if err := wantString(f.Name(), 0, args[0]); err != nil {
		return types.Unknown, err
	}
	if err := wantPattern(f.Name(), 1, args[1]); err != nil {
		return types.Unknown, err
	}
	// args[2] is the output array; the compiler validates it is a declared
	// local array before code generation.
	return types.Boolean, nil
}

// Bounds locates the first match and returns the start and inclusive end
// of the first capture group (or of the whole match for group-less
// patterns).
func (f *IndexofFunction) Bounds(ctx *Context, s, pattern string) (start, end int, ok bool, err error) {
	re, err := ctx.Regexp(pattern)
	if err != nil {
		return 0, 0, false, err
	}
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return 0, 0, false, nil
	}
	if len(loc) > 2 && loc[2] >= 0 {
		return loc[2], loc[3] - 1, true, nil
	}
	return loc[0], loc[1] - 1, true, nil
}

func (f *IndexofFunction) Execute(ctx *Context, args []types.Value) (types.Value, error) {
	if args[0].Null {
		return types.NewNull(types.Boolean), nil
	}
	_, _, ok, err := f.Bounds(ctx, args[0].Str(), args[1].Str())
	if err != nil {
		return types.NewNull(types.Boolean), err
	}
	return types.NewBool(ok), nil
}

// checkReplacement rejects non-string replacement arguments at compile
// time: a numeric, temporal or null replacement is a type error, not a
// runtime null.
func checkReplacement(name string, a Arg) error {
	if a.NullLiteral || a.Type != types.String {
		return fmt.Errorf("function %s: replacement argument must be a string", name)
	}
	return nil
}

// ReplaceFunction substitutes the first occurrence of a pattern.
type ReplaceFunction struct {
	*BaseFunction
}

func NewReplaceFunction() *ReplaceFunction {
	return &ReplaceFunction{NewBaseFunction("replace", TypeRegex, "replace first pattern occurrence", 3, 3)}
}

func (f *ReplaceFunction) Check(args []Arg) (types.Type, error) {
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	if err := wantString(f.Name(), 0, args[0]); err != nil {
		return types.Unknown, err
	}
	if err := wantPattern(f.Name(), 1, args[1]); err != nil {
		return types.Unknown, err
	}
	if err := checkReplacement(f.Name(), args[2]); err != nil {
		return types.Unknown, err
	}
	return types.String, nil
}

func (f *ReplaceFunction) Execute(ctx *Context, args []types.Value) (types.Value, error) {
	if anyNull(args) {
		return types.NewNull(types.String), nil
	}
	re, err := ctx.Regexp(args[1].Str())
	if err != nil {
		return types.NewNull(types.String), err
	}
	s := args[0].Str()
	loc := re.FindStringIndex(s)
	if loc == nil {
		return types.NewString(ctx.Intern(s)), nil
	}
	return types.NewString(ctx.Intern(s[:loc[0]] + args[2].Str() + s[loc[1]:])), nil
}

// ReplaceAllFunction substitutes every occurrence of a pattern.
type ReplaceAllFunction struct {
	*BaseFunction
}

func NewReplaceAllFunction() *ReplaceAllFunction {
	return &ReplaceAllFunction{NewBaseFunction("replace_all", TypeRegex, "replace all pattern occurrences", 3, 3)}
}

func (f *ReplaceAllFunction) Check(args []Arg) (types.Type, error) {
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	if err := wantString(f.Name(), 0, args[0]); err != nil {
		return types.Unknown, err
	}
	if err := wantPattern(f.Name(), 1, args[1]); err != nil {
		return types.Unknown, err
	}
	if err := checkReplacement(f.Name(), args[2]); err != nil {
		return types.Unknown, err
	}
	return types.String, nil
}

func (f *ReplaceAllFunction) Execute(ctx *Context, args []types.Value) (types.Value, error) {
	if anyNull(args) {
		return types.NewNull(types.String), nil
	}
	re, err := ctx.Regexp(args[1].Str())
	if err != nil {
		return types.NewNull(types.String), err
	}
	return types.NewString(ctx.Intern(re.ReplaceAllLiteralString(args[0].Str(), args[2].Str()))), nil
}
