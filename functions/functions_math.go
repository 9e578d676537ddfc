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
	"math"

	"github.com/prismview/prism/types"
)

// The scalar math builtins share one shape: numeric arguments, float
// result, null in means null out. mathFunction factors that shape so each
// builtin is just its name, arity and float kernel.
type mathFunction struct {
	*BaseFunction
	kernel func(args []float64) float64
}

func newMathFunction(name, description string, minArgs, maxArgs int, kernel func(args []float64) float64) *mathFunction {
	return &mathFunction{
		BaseFunction: NewBaseFunction(name, TypeMath, description, minArgs, maxArgs),
		kernel:       kernel,
	}
}

func (f *mathFunction) Check(args []Arg) (types.Type, error) {
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	for i, a := range args {
		if err := wantNumeric(f.Name(), i, a); err != nil {
			return types.Unknown, err
		}
	}
	return types.Float, nil
}

func (f *mathFunction) Execute(_ *Context, args []types.Value) (types.Value, error) {
	if anyNull(args) {
		return types.NewNull(types.Float), nil
	}
	nums := make([]float64, len(args))
	for i, a := range args {
		nums[i] = a.Num()
	}
	return types.NewFloat(f.kernel(nums)), nil
}

func NewAbsFunction() Function {
	return newMathFunction("abs", "absolute value", 1, 1, func(args []float64) float64 {
		return math.Abs(args[0])
	})
}

func NewSqrtFunction() Function {
	return newMathFunction("sqrt", "square root", 1, 1, func(args []float64) float64 {
		return math.Sqrt(args[0])
	})
}

func NewFloorFunction() Function {
	return newMathFunction("floor", "round down to an integer value", 1, 1, func(args []float64) float64 {
		return math.Floor(args[0])
	})
}

func NewCeilFunction() Function {
	return newMathFunction("ceil", "round up to an integer value", 1, 1, func(args []float64) float64 {
		return math.Ceil(args[0])
	})
}

func NewRoundFunction() Function {
	return newMathFunction("round", "round half away from zero", 1, 1, func(args []float64) float64 {
		return math.Round(args[0])
	})
}

func NewPowFunction() Function {
	return newMathFunction("pow", "raise to a power", 2, 2, func(args []float64) float64 {
		return math.Pow(args[0], args[1])
	})
}

func NewMinFunction() Function {
	return newMathFunction("min", "smallest argument", 1, -1, func(args []float64) float64 {
		m := args[0]
		for _, v := range args[1:] {
			if v < m {
				m = v
			}
		}
		return m
	})
}

func NewMaxFunction() Function {
	return newMathFunction("max", "largest argument", 1, -1, func(args []float64) float64 {
		m := args[0]
		for _, v := range args[1:] {
			if v > m {
				m = v
			}
		}
		return m
	})
}
