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

// IfFunction is the functional form of the ternary: if(cond, then, else).
// Both branches must unify to one type; an untyped null branch adopts the
// other branch's type.
type IfFunction struct {
	*BaseFunction
}

func NewIfFunction() *IfFunction {
	return &IfFunction{NewBaseFunction("if", TypeConditional, "select between two branches", 3, 3)}
}

func (f *IfFunction) Check(args []Arg) (types.Type, error) {
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	if args[0].Type != types.Boolean && !args[0].Type.IsNumeric() {
		return types.Unknown, fmt.Errorf("function if: condition must be boolean or numeric, got %s", args[0].Type)
	}
	return Unify(args[1], args[2])
}

func (f *IfFunction) Execute(_ *Context, args []types.Value) (types.Value, error) {
	cond := args[0]
	if cond.Null {
		return pickBranchType(args[1], args[2]), nil
	}
	var chosen types.Value
	if truthy(cond) {
		chosen = args[1]
	} else {
		chosen = args[2]
	}
	// Mixed numeric branches widen to float.
	if chosen.Type == types.Integer {
		other := args[1]
		if truthy(cond) {
			other = args[2]
		}
		if other.Type == types.Float {
			if chosen.Null {
				return types.NewNull(types.Float), nil
			}
			return types.NewFloat(chosen.Num()), nil
		}
	}
	return chosen, nil
}

func truthy(v types.Value) bool {
	if v.Type == types.Boolean {
		return v.B
	}
	return v.Num() != 0
}

// pickBranchType yields a null carrying the branches' unified type.
func pickBranchType(a, b types.Value) types.Value {
	t := a.Type
	if t == types.Unknown {
		t = b.Type
	}
	if t == types.Integer && (a.Type == types.Float || b.Type == types.Float) {
		t = types.Float
	}
	return types.NewNull(t)
}

// IsNullFunction tests a value for null. It never propagates null: a null
// input is exactly what it reports on.
type IsNullFunction struct {
	*BaseFunction
}

func NewIsNullFunction() *IsNullFunction {
	return &IsNullFunction{NewBaseFunction("is_null", TypeConditional, "true when the value is null", 1, 1)}
}

func (f *IsNullFunction) Check(args []Arg) (types.Type, error) {
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	return types.Boolean, nil
}

func (f *IsNullFunction) Execute(_ *Context, args []types.Value) (types.Value, error) {
	return types.NewBool(args[0].Null), nil
}

// IsNotNullFunction is the complement of is_null.
type IsNotNullFunction struct {
	*BaseFunction
}

func NewIsNotNullFunction() *IsNotNullFunction {
	return &IsNotNullFunction{NewBaseFunction("is_not_null", TypeConditional, "true when the value is present", 1, 1)}
}

func (f *IsNotNullFunction) Check(args []Arg) (types.Type, error) {
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	return types.Boolean, nil
}

func (f *IsNotNullFunction) Execute(_ *Context, args []types.Value) (types.Value, error) {
	return types.NewBool(!args[0].Null), nil
}
