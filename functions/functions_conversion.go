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
	"math"

	"github.com/prismview/prism/types"
)

// The casts are "generic" functions: their return type depends on having at
// least one argument, so a zero-argument call cannot be resolved and is a
// compile error naming the function.
func zeroArityError(name string) error {
	return fmt.Errorf("Zero parameter call to generic function: %s not allowed", name)
}

// IntegerFunction truncates numerics to integer; dates cast to their day
// count, datetimes to their millisecond epoch.
type IntegerFunction struct {
	*BaseFunction
}

func NewIntegerFunction() *IntegerFunction {
	return &IntegerFunction{NewBaseFunction("integer", TypeConversion, "cast to integer", 1, 1)}
}

func (f *IntegerFunction) Check(args []Arg) (types.Type, error) {
	if len(args) == 0 {
		return types.Unknown, zeroArityError(f.Name())
	}
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	a := args[0]
	if !a.Type.IsNumeric() && !a.Type.IsTemporal() && a.Type != types.Boolean {
		return types.Unknown, fmt.Errorf("function integer: cannot cast %s", a.Type)
	}
	return types.Integer, nil
}

func (f *IntegerFunction) Execute(_ *Context, args []types.Value) (types.Value, error) {
	v := args[0]
	if v.Null {
		return types.NewNull(types.Integer), nil
	}
	switch v.Type {
	case types.Integer, types.Date, types.Datetime:
		return types.NewInt(v.I), nil
	case types.Float:
		return types.NewInt(int64(math.Trunc(v.F))), nil
	case types.Boolean:
		if v.B {
			return types.NewInt(1), nil
		}
		return types.NewInt(0), nil
	default:
		return types.NewNull(types.Integer), nil
	}
}

// FloatFunction widens numerics to float; dates cast to their day count,
// datetimes to their millisecond epoch.
type FloatFunction struct {
	*BaseFunction
}

func NewFloatFunction() *FloatFunction {
	return &FloatFunction{NewBaseFunction("float", TypeConversion, "cast to float", 1, 1)}
}

func (f *FloatFunction) Check(args []Arg) (types.Type, error) {
	if len(args) == 0 {
		return types.Unknown, zeroArityError(f.Name())
	}
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	a := args[0]
	if !a.Type.IsNumeric() && !a.Type.IsTemporal() && a.Type != types.Boolean {
		return types.Unknown, fmt.Errorf("function float: cannot cast %s", a.Type)
	}
	return types.Float, nil
}

func (f *FloatFunction) Execute(_ *Context, args []types.Value) (types.Value, error) {
	v := args[0]
	if v.Null {
		return types.NewNull(types.Float), nil
	}
	return types.NewFloat(v.Num()), nil
}

// StringFunction formats any value as text: dates as YYYY-MM-DD, datetimes
// with millisecond precision, floats with six significant digits, booleans
// lowercase.
type StringFunction struct {
	*BaseFunction
}

func NewStringFunction() *StringFunction {
	return &StringFunction{NewBaseFunction("string", TypeConversion, "cast to string", 1, 1)}
}

func (f *StringFunction) Check(args []Arg) (types.Type, error) {
	if len(args) == 0 {
		return types.Unknown, zeroArityError(f.Name())
	}
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	return types.String, nil
}

func (f *StringFunction) Execute(ctx *Context, args []types.Value) (types.Value, error) {
	v := args[0]
	if v.Null {
		return types.NewNull(types.String), nil
	}
	return types.NewString(ctx.Intern(v.Format())), nil
}

// BooleanFunction casts numerics to boolean (nonzero is true).
type BooleanFunction struct {
	*BaseFunction
}

func NewBooleanFunction() *BooleanFunction {
	return &BooleanFunction{NewBaseFunction("boolean", TypeConversion, "cast to boolean", 1, 1)}
}

func (f *BooleanFunction) Check(args []Arg) (types.Type, error) {
	if len(args) == 0 {
		return types.Unknown, zeroArityError(f.Name())
	}
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	a := args[0]
	if !a.Type.IsNumeric() && a.Type != types.Boolean {
		return types.Unknown, fmt.Errorf("function boolean: cannot cast %s", a.Type)
	}
	return types.Boolean, nil
}

func (f *BooleanFunction) Execute(_ *Context, args []types.Value) (types.Value, error) {
	v := args[0]
	if v.Null {
		return types.NewNull(types.Boolean), nil
	}
	if v.Type == types.Boolean {
		return v, nil
	}
	return types.NewBool(v.Num() != 0), nil
}

// DateFunction constructs a date from year, month, day components.
type DateFunction struct {
	*BaseFunction
}

func NewDateFunction() *DateFunction {
	return &DateFunction{NewBaseFunction("date", TypeDateTime, "construct a date from (year, month, day)", 3, 3)}
}

func (f *DateFunction) Check(args []Arg) (types.Type, error) {
	if len(args) == 0 {
		return types.Unknown, zeroArityError(f.Name())
	}
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	for i, a := range args {
		if err := wantNumeric(f.Name(), i, a); err != nil {
			return types.Unknown, err
		}
	}
	return types.Date, nil
}

func (f *DateFunction) Execute(_ *Context, args []types.Value) (types.Value, error) {
	if anyNull(args) {
		return types.NewNull(types.Date), nil
	}
	y := int(args[0].Num())
	m := int(args[1].Num())
	d := int(args[2].Num())
	return types.NewDate(types.DaysFromCivil(y, m, d)), nil
}

// DatetimeFunction constructs a datetime from a millisecond epoch.
type DatetimeFunction struct {
	*BaseFunction
}

func NewDatetimeFunction() *DatetimeFunction {
	return &DatetimeFunction{NewBaseFunction("datetime", TypeDateTime, "construct a datetime from epoch milliseconds", 1, 1)}
}

func (f *DatetimeFunction) Check(args []Arg) (types.Type, error) {
	if len(args) == 0 {
		return types.Unknown, zeroArityError(f.Name())
	}
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	if err := wantNumeric(f.Name(), 0, args[0]); err != nil {
		return types.Unknown, err
	}
	return types.Datetime, nil
}

func (f *DatetimeFunction) Execute(_ *Context, args []types.Value) (types.Value, error) {
	if anyNull(args) {
		return types.NewNull(types.Datetime), nil
	}
	return types.NewDatetime(int64(args[0].Num())), nil
}
