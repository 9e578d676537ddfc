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

	"github.com/prismview/prism/types"
)

// BaseFunction carries the shared metadata of a builtin: name, category,
// description and arity bounds.
type BaseFunction struct {
	name        string
	fnType      FunctionType
	description string
	minArgs     int
	maxArgs     int // -1 means variable arity
}

// NewBaseFunction creates the shared metadata embed.
func NewBaseFunction(name string, fnType FunctionType, description string, minArgs, maxArgs int) *BaseFunction {
	return &BaseFunction{
		name:        name,
		fnType:      fnType,
		description: description,
		minArgs:     minArgs,
		maxArgs:     maxArgs,
	}
}

func (bf *BaseFunction) Name() string {
	return bf.name
}

func (bf *BaseFunction) Type() FunctionType {
	return bf.fnType
}

func (bf *BaseFunction) Description() string {
	return bf.description
}

func (bf *BaseFunction) MinArgs() int {
	return bf.minArgs
}

func (bf *BaseFunction) MaxArgs() int {
	return bf.maxArgs
}

// ValidateArgCount checks an argument count against the arity bounds.
func (bf *BaseFunction) ValidateArgCount(count int) error {
	if count < bf.minArgs {
		return fmt.Errorf("function %s requires at least %d arguments, got %d", bf.name, bf.minArgs, count)
	}
	if bf.maxArgs != -1 && count > bf.maxArgs {
		return fmt.Errorf("function %s accepts at most %d arguments, got %d", bf.name, bf.maxArgs, count)
	}
	return nil
}

// anyNull reports whether any runtime argument is null.
func anyNull(args []types.Value) bool {
	for _, a := range args {
		if a.Null {
			return true
		}
	}
	return false
}

// wantString validates that the argument at position idx is string-typed.
func wantString(name string, idx int, a Arg) error {
	if a.Type != types.String {
		return fmt.Errorf("function %s: argument %d must be a string, got %s", name, idx+1, a.Type)
	}
	return nil
}

// wantNumeric validates that the argument at position idx is numeric.
func wantNumeric(name string, idx int, a Arg) error {
	if !a.Type.IsNumeric() {
		return fmt.Errorf("function %s: argument %d must be numeric, got %s", name, idx+1, a.Type)
	}
	return nil
}

// wantTemporal validates that the argument at position idx is a date or
// datetime.
func wantTemporal(name string, idx int, a Arg) error {
	if !a.Type.IsTemporal() {
		return fmt.Errorf("function %s: argument %d must be a date or datetime, got %s", name, idx+1, a.Type)
	}
	return nil
}

// Unify resolves the common type of two branch arguments: an untyped null
// adopts the other branch's type, matching types stay, and mixed numerics
// widen to float.
func Unify(a, b Arg) (types.Type, error) {
	switch {
	case a.NullLiteral && b.NullLiteral:
		return types.Float, nil
	case a.NullLiteral:
		return promoteLiteralBranch(b.Type), nil
	case b.NullLiteral:
		return promoteLiteralBranch(a.Type), nil
	case a.Type == b.Type:
		return a.Type, nil
	case a.Type.IsNumeric() && b.Type.IsNumeric():
		return types.Float, nil
	default:
		return types.Unknown, fmt.Errorf("branch types %s and %s are incompatible", a.Type, b.Type)
	}
}

// promoteLiteralBranch widens integer to float when one branch is a null
// literal, so `cond ? null : 1` infers float.
func promoteLiteralBranch(t types.Type) types.Type {
	if t == types.Integer {
		return types.Float
	}
	return t
}
