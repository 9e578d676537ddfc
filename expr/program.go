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
	"github.com/prismview/prism/functions"
	"github.com/prismview/prism/types"
)

// Op is one virtual-machine opcode. Programs are flat instruction
// sequences over a scratch-register array sized at compile time; locals
// occupy dedicated registers, declared arrays live in separate per-pass
// element storage.
type Op uint8

const (
	// OpConst loads consts[A] into Dst.
	OpConst Op = iota
	// OpColumn loads the current row of referenced column A into Dst.
	OpColumn
	// OpMove copies register A into Dst.
	OpMove
	// OpCast converts register A to the type coded in B.
	OpCast

	// Arithmetic over registers A and B into Dst. Null operands yield null.
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	// OpNeg negates register A into Dst.
	OpNeg

	// Comparisons over registers A and B into Dst, boolean result.
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	// OpNullTest writes float 1/0 into Dst: whether register A is null
	// (B=1) or non-null (B=0).
	OpNullTest

	// Logical operators, boolean registers.
	OpAnd
	OpOr
	OpNot

	// OpCall invokes funcs[A] over the Args registers into Dst.
	OpCall
	// OpIndexOf finds the first match of pattern register B in string
	// register A, writes the match bounds into array C, and stores whether
	// a match was found into Dst.
	OpIndexOf

	// OpArrayInit resets every element of array A to a null of the array's
	// element type.
	OpArrayInit
	// OpLoadIndex loads array A element [register B] into Dst.
	OpLoadIndex
	// OpStoreIndex stores register C into array A element [register B].
	OpStoreIndex

	// OpJump sets the instruction pointer to A.
	OpJump
	// OpJumpIfFalse jumps to B when register A is false or null.
	OpJumpIfFalse
)

// Instr is one instruction. Args is used by OpCall only.
type Instr struct {
	Op   Op
	Dst  int
	A    int
	B    int
	C    int
	Args []int
}

// constant is one compile-time literal. String constants keep their Go
// text and are interned into the pass arena when evaluation starts, so a
// Program holds no arena references itself.
type constant struct {
	typ  types.Type
	null bool
	i    int64
	f    float64
	b    bool
	s    string
}

// LocalVar describes one declared scalar local.
type LocalVar struct {
	Name string
	Type types.Type
}

// ArrayVar describes one declared fixed-size local array.
type ArrayVar struct {
	Name string
	Size int
	Type types.Type
}

// Program is an immutable compiled expression: the result type, the
// ordered referenced input columns, the declared locals, and a flat
// instruction sequence.
type Program struct {
	alias      string
	source     string
	resultType types.Type
	columns    []string
	locals     []LocalVar
	arrays     []ArrayVar
	consts     []constant
	funcs      []functions.Function
	code       []Instr
	numRegs    int
	resultReg  int
}

// Alias returns the expression's externally visible column name.
func (p *Program) Alias() string { return p.alias }

// Source returns the expression source text as supplied by the caller.
func (p *Program) Source() string { return p.source }

// ResultType returns the statically inferred output type.
func (p *Program) ResultType() types.Type { return p.resultType }

// Columns returns the referenced input column names in first-use order.
func (p *Program) Columns() []string { return p.columns }

// Locals returns the declared scalar locals in declaration order.
func (p *Program) Locals() []LocalVar { return p.locals }
