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
	"strings"

	"github.com/prismview/prism/types"
)

// UpperFunction converts a string to upper case.
type UpperFunction struct {
	*BaseFunction
}

func NewUpperFunction() *UpperFunction {
	return &UpperFunction{NewBaseFunction("upper", TypeString, "upper-case a string", 1, 1)}
}

func (f *UpperFunction) Check(args []Arg) (types.Type, error) {
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	if err := wantString(f.Name(), 0, args[0]); err != nil {
		return types.Unknown, err
	}
	return types.String, nil
}

func (f *UpperFunction) Execute(ctx *Context, args []types.Value) (types.Value, error) {
	if anyNull(args) {
		return types.NewNull(types.String), nil
	}
	return types.NewString(ctx.Intern(strings.ToUpper(args[0].Str()))), nil
}

// LowerFunction converts a string to lower case.
type LowerFunction struct {
	*BaseFunction
}

func NewLowerFunction() *LowerFunction {
	return &LowerFunction{NewBaseFunction("lower", TypeString, "lower-case a string", 1, 1)}
}

func (f *LowerFunction) Check(args []Arg) (types.Type, error) {
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	if err := wantString(f.Name(), 0, args[0]); err != nil {
		return types.Unknown, err
	}
	return types.String, nil
}

func (f *LowerFunction) Execute(ctx *Context, args []types.Value) (types.Value, error) {
	if anyNull(args) {
		return types.NewNull(types.String), nil
	}
	return types.NewString(ctx.Intern(strings.ToLower(args[0].Str()))), nil
}

// LengthFunction returns a string's byte length. The result is float, like
// every arithmetic-producing builtin.
type LengthFunction struct {
	*BaseFunction
}

func NewLengthFunction() *LengthFunction {
	return &LengthFunction{NewBaseFunction("length", TypeString, "string length", 1, 1)}
}

func (f *LengthFunction) Check(args []Arg) (types.Type, error) {
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	if err := wantString(f.Name(), 0, args[0]); err != nil {
		return types.Unknown, err
	}
	return types.Float, nil
}

func (f *LengthFunction) Execute(_ *Context, args []types.Value) (types.Value, error) {
	if anyNull(args) {
		return types.NewNull(types.Float), nil
	}
	return types.NewFloat(float64(args[0].S.Len())), nil
}

// ConcatFunction concatenates its string arguments in order. Inputs that
// span multiple arena pages are reassembled before the result is interned.
type ConcatFunction struct {
	*BaseFunction
}

func NewConcatFunction() *ConcatFunction {
	return &ConcatFunction{NewBaseFunction("concat", TypeString, "concatenate strings", 1, -1)}
}

func (f *ConcatFunction) Check(args []Arg) (types.Type, error) {
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	for i, a := range args {
		if err := wantString(f.Name(), i, a); err != nil {
			return types.Unknown, err
		}
	}
	return types.String, nil
}

func (f *ConcatFunction) Execute(ctx *Context, args []types.Value) (types.Value, error) {
	if anyNull(args) {
		return types.NewNull(types.String), nil
	}
	var b strings.Builder
	for _, a := range args {
		b.WriteString(a.Str())
	}
	return types.NewString(ctx.Intern(b.String())), nil
}

// SubstringFunction extracts s[start : start+length] (byte positions).
//
// Rules: a null input yields null; an explicit zero length yields "" even
// when start is out of range; a negative length, a start beyond the string,
// or a window extending past the end yields null. The two-argument form
// takes the remainder of the string and yields null when start is at or
// past the end.
type SubstringFunction struct {
	*BaseFunction
}

func NewSubstringFunction() *SubstringFunction {
	return &SubstringFunction{NewBaseFunction("substring", TypeString, "extract a substring", 2, 3)}
}

func (f *SubstringFunction) Check(args []Arg) (types.Type, error) {
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	if err := wantString(f.Name(), 0, args[0]); err != nil {
		return types.Unknown, err
	}
	for i := 1; i < len(args); i++ {
		if err := wantNumeric(f.Name(), i, args[i]); err != nil {
			return types.Unknown, err
		}
	}
	return types.String, nil
}

func (f *SubstringFunction) Execute(ctx *Context, args []types.Value) (types.Value, error) {
	if anyNull(args) {
		return types.NewNull(types.String), nil
	}
	s := args[0].Str()
	start := int(args[1].Num())

	if len(args) == 3 {
		length := int(args[2].Num())
		if length == 0 {
			return types.NewString(ctx.Intern("")), nil
		}
		if length < 0 || start < 0 || start >= len(s) || start+length > len(s) {
			return types.NewNull(types.String), nil
		}
		return types.NewString(ctx.Intern(s[start : start+length])), nil
	}

	if start < 0 || start >= len(s) {
		return types.NewNull(types.String), nil
	}
	return types.NewString(ctx.Intern(s[start:])), nil
}
