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

package expr

import (
	"fmt"
	"math"

	"github.com/prismview/prism/functions"
	"github.com/prismview/prism/types"
)

// ColumnSource provides row access to the input columns a program
// references. Column indexes follow Program.Columns order.
type ColumnSource interface {
	// NumRows returns the row count of the source.
	NumRows() int
	// Value returns the value of referenced column col at row.
	Value(col, row int) types.Value
}

// evalChunkSize bounds how many rows run between cooperative chunk
// boundaries.
const evalChunkSize = 1024

// indexofBounds resolves match bounds for OpIndexOf.
var indexofBounds = functions.NewIndexofFunction()

// Run evaluates the program over rows [start, end) of src, calling out
// once per row with the result value. Locals are re-initialized for every
// row: the whole instruction sequence, declarations included, runs per
// row, so no state leaks across rows or passes.
func (p *Program) Run(ctx *functions.Context, src ColumnSource, start, end int, out func(row int, v types.Value) error) error {
	consts := make([]types.Value, len(p.consts))
	for i, k := range p.consts {
		consts[i] = p.materialize(ctx, k)
	}

	regs := make([]types.Value, p.numRegs)
	arrays := make([][]types.Value, len(p.arrays))
	for i, def := range p.arrays {
		arrays[i] = make([]types.Value, def.Size)
	}
	argBuf := make([]types.Value, 0, 8)

	for base := start; base < end; base += evalChunkSize {
		limit := base + evalChunkSize
		if limit > end {
			limit = end
		}
		for row := base; row < limit; row++ {
			v, err := p.runRow(ctx, src, row, regs, arrays, consts, &argBuf)
			if err != nil {
				return err
			}
			if err := out(row, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Program) materialize(ctx *functions.Context, k constant) types.Value {
	if k.null {
		return types.NewNull(k.typ)
	}
	switch k.typ {
	case types.Integer:
		return types.NewInt(k.i)
	case types.Float:
		return types.NewFloat(k.f)
	case types.Boolean:
		return types.NewBool(k.b)
	case types.String:
		return types.NewString(ctx.Intern(k.s))
	case types.Date:
		return types.NewDate(k.i)
	case types.Datetime:
		return types.NewDatetime(k.i)
	default:
		return types.NewNull(k.typ)
	}
}

func (p *Program) runRow(ctx *functions.Context, src ColumnSource, row int, regs []types.Value, arrays [][]types.Value, consts []types.Value, argBuf *[]types.Value) (types.Value, error) {
	code := p.code
	for pc := 0; pc < len(code); pc++ {
		in := &code[pc]
		switch in.Op {
		case OpConst:
			regs[in.Dst] = consts[in.A]
		case OpColumn:
			regs[in.Dst] = src.Value(in.A, row)
		case OpMove:
			regs[in.Dst] = regs[in.A]
		case OpCast:
			regs[in.Dst] = castValue(regs[in.A], types.Type(in.B))

		case OpAdd:
			a, b := regs[in.A], regs[in.B]
			if a.Type == types.String || b.Type == types.String {
				if a.Null || b.Null {
					regs[in.Dst] = types.NewNull(types.String)
				} else {
					regs[in.Dst] = types.NewString(ctx.Intern(a.Str() + b.Str()))
				}
				break
			}
			regs[in.Dst] = arith(a, b, func(x, y float64) float64 { return x + y })
		case OpSub:
			regs[in.Dst] = arith(regs[in.A], regs[in.B], func(x, y float64) float64 { return x - y })
		case OpMul:
			regs[in.Dst] = arith(regs[in.A], regs[in.B], func(x, y float64) float64 { return x * y })
		case OpDiv:
			regs[in.Dst] = arith(regs[in.A], regs[in.B], func(x, y float64) float64 { return x / y })
		case OpMod:
			regs[in.Dst] = arith(regs[in.A], regs[in.B], math.Mod)
		case OpPow:
			regs[in.Dst] = arith(regs[in.A], regs[in.B], math.Pow)
		case OpNeg:
			a := regs[in.A]
			if a.Null {
				regs[in.Dst] = types.NewNull(types.Float)
			} else {
				regs[in.Dst] = types.NewFloat(-a.Num())
			}

		case OpEq:
			regs[in.Dst] = equality(regs[in.A], regs[in.B], false)
		case OpNe:
			regs[in.Dst] = equality(regs[in.A], regs[in.B], true)
		case OpLt:
			regs[in.Dst] = ordered(regs[in.A], regs[in.B], func(c int) bool { return c < 0 })
		case OpLe:
			regs[in.Dst] = ordered(regs[in.A], regs[in.B], func(c int) bool { return c <= 0 })
		case OpGt:
			regs[in.Dst] = ordered(regs[in.A], regs[in.B], func(c int) bool { return c > 0 })
		case OpGe:
			regs[in.Dst] = ordered(regs[in.A], regs[in.B], func(c int) bool { return c >= 0 })
		case OpNullTest:
			isNull := regs[in.A].Null
			want := in.B == 1
			if isNull == want {
				regs[in.Dst] = types.NewFloat(1)
			} else {
				regs[in.Dst] = types.NewFloat(0)
			}

		case OpAnd:
			regs[in.Dst] = logical(regs[in.A], regs[in.B], func(x, y bool) bool { return x && y })
		case OpOr:
			regs[in.Dst] = logical(regs[in.A], regs[in.B], func(x, y bool) bool { return x || y })
		case OpNot:
			a := regs[in.A]
			if a.Null {
				regs[in.Dst] = types.NewNull(types.Boolean)
			} else {
				regs[in.Dst] = types.NewBool(!a.B)
			}

		case OpCall:
			buf := (*argBuf)[:0]
			for _, r := range in.Args {
				buf = append(buf, regs[r])
			}
			*argBuf = buf
			v, err := p.funcs[in.A].Execute(ctx, buf)
			if err != nil {
				return types.Value{}, fmt.Errorf("expression %q: %w", p.alias, err)
			}
			regs[in.Dst] = v

		case OpIndexOf:
			subject := regs[in.A]
			if subject.Null {
				regs[in.Dst] = types.NewNull(types.Boolean)
				break
			}
			s, e, ok, err := indexofBounds.Bounds(ctx, subject.Str(), regs[in.B].Str())
			if err != nil {
				return types.Value{}, fmt.Errorf("expression %q: %w", p.alias, err)
			}
			if ok {
				arr := arrays[in.C]
				arr[0] = types.NewFloat(float64(s))
				arr[1] = types.NewFloat(float64(e))
			}
			regs[in.Dst] = types.NewBool(ok)

		case OpArrayInit:
			arr := arrays[in.A]
			elem := types.NewNull(p.arrays[in.A].Type)
			for i := range arr {
				arr[i] = elem
			}
		case OpLoadIndex:
			arr := arrays[in.A]
			i := int(regs[in.B].Num())
			if i < 0 || i >= len(arr) {
				return types.Value{}, fmt.Errorf("expression %q: array index %d out of range", p.alias, i)
			}
			regs[in.Dst] = arr[i]
		case OpStoreIndex:
			arr := arrays[in.A]
			i := int(regs[in.B].Num())
			if i < 0 || i >= len(arr) {
				return types.Value{}, fmt.Errorf("expression %q: array index %d out of range", p.alias, i)
			}
			arr[i] = regs[in.C]

		case OpJump:
			pc = in.A - 1
		case OpJumpIfFalse:
			if !truthy(regs[in.A]) {
				pc = in.B - 1
			}

		default:
			return types.Value{}, fmt.Errorf("expression %q: bad opcode %d", p.alias, in.Op)
		}
	}

	result := regs[p.resultReg]
	if result.Type != p.resultType {
		result = castValue(result, p.resultType)
	}
	return result, nil
}

func truthy(v types.Value) bool {
	if v.Null {
		return false
	}
	if v.Type == types.Boolean {
		return v.B
	}
	return v.Num() != 0
}

func arith(a, b types.Value, f func(x, y float64) float64) types.Value {
	if a.Null || b.Null {
		return types.NewNull(types.Float)
	}
	return types.NewFloat(f(a.Num(), b.Num()))
}

// equality compares by content. A null string operand compares unequal to
// everything rather than propagating null; other null operands propagate.
func equality(a, b types.Value, negate bool) types.Value {
	if a.Null || b.Null {
		if a.Type == types.String || b.Type == types.String {
			return types.NewBool(negate)
		}
		return types.NewNull(types.Boolean)
	}
	eq := a.Equal(b)
	if negate {
		eq = !eq
	}
	return types.NewBool(eq)
}

func ordered(a, b types.Value, f func(c int) bool) types.Value {
	if a.Null || b.Null {
		return types.NewNull(types.Boolean)
	}
	return types.NewBool(f(a.Compare(b)))
}

func logical(a, b types.Value, f func(x, y bool) bool) types.Value {
	if a.Null || b.Null {
		return types.NewNull(types.Boolean)
	}
	return types.NewBool(f(a.B, b.B))
}

func castValue(v types.Value, t types.Type) types.Value {
	if v.Null {
		return types.NewNull(t)
	}
	switch t {
	case types.Float:
		return types.NewFloat(v.Num())
	case types.Integer:
		return types.NewInt(int64(v.Num()))
	default:
		v.Type = t
		return v
	}
}
