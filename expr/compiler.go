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

// Compile turns an expression source into an executable Program against a
// known column set. The alias comes from a leading //-comment line or
// defaults to the trimmed source; error positions address the expression
// body only.
func Compile(source string, columns map[string]types.Type) (*Program, *ParseError) {
	alias, body := ExtractAlias(source)
	tokens, err := Tokenize(body)
	if err != nil {
		return nil, err
	}
	stmts, err := parse(body, tokens)
	if err != nil {
		return nil, err
	}

	c := &compiler{
		body:        body,
		columnTypes: columns,
		prog:        &Program{alias: alias, source: source},
		colIndex:    make(map[string]int),
		scalars:     make(map[string]*scalarLocal),
		arrayIdx:    make(map[string]int),
	}
	var last operand
	for _, stmt := range stmts {
		op, err := c.compileStmt(stmt)
		if err != nil {
			return nil, err
		}
		last = op
	}

	c.prog.resultType = last.typ
	if last.nullLit || c.prog.resultType == types.Unknown {
		c.prog.resultType = types.Float
	}
	c.prog.resultReg = last.reg
	c.prog.numRegs = c.nextReg
	return c.prog, nil
}

// ScanColumns tokenizes a source and returns the column names it
// references, in order of first appearance. It is used to resolve
// inter-expression dependencies before full compilation.
func ScanColumns(source string) ([]string, *ParseError) {
	_, body := ExtractAlias(source)
	tokens, err := Tokenize(body)
	if err != nil {
		return nil, err
	}
	var names []string
	seen := make(map[string]bool)
	for _, t := range tokens {
		if t.Type == TokenColumn && !seen[t.Value] {
			seen[t.Value] = true
			names = append(names, t.Value)
		}
	}
	return names, nil
}

// operand is the compile-time description of a subexpression's result: the
// register it lives in, its inferred type, and literal facts used by
// function signature checks.
type operand struct {
	reg     int
	typ     types.Type
	nullLit bool
	strLit  *string
}

type scalarLocal struct {
	reg int
	typ types.Type
}

type compiler struct {
	body        string
	columnTypes map[string]types.Type
	prog        *Program
	colIndex    map[string]int
	scalars     map[string]*scalarLocal
	arrayIdx    map[string]int
	nextReg     int
}

func (c *compiler) newReg() int {
	r := c.nextReg
	c.nextReg++
	return r
}

func (c *compiler) emit(in Instr) int {
	c.prog.code = append(c.prog.code, in)
	return len(c.prog.code) - 1
}

func (c *compiler) addConst(k constant) int {
	c.prog.consts = append(c.prog.consts, k)
	return len(c.prog.consts) - 1
}

func (c *compiler) loadConst(k constant) operand {
	reg := c.newReg()
	c.emit(Instr{Op: OpConst, Dst: reg, A: c.addConst(k)})
	return operand{reg: reg, typ: k.typ, nullLit: k.null && k.typ == types.Unknown}
}

func (c *compiler) errAt(pos int, format string, args ...interface{}) *ParseError {
	return errorAt(c.body, pos, format, args...)
}

func (c *compiler) compileStmt(stmt Stmt) (operand, *ParseError) {
	switch s := stmt.(type) {
	case *VarDeclStmt:
		if _, exists := c.scalars[s.Name]; exists {
			return operand{}, c.errAt(s.Pos(), "variable %q already declared", s.Name)
		}
		if _, exists := c.arrayIdx[s.Name]; exists {
			return operand{}, c.errAt(s.Pos(), "variable %q already declared", s.Name)
		}
		init, err := c.compileNode(s.Init)
		if err != nil {
			return operand{}, err
		}
		typ := init.typ
		if init.nullLit {
			typ = types.Float
		}
		reg := c.newReg()
		c.emit(Instr{Op: OpMove, Dst: reg, A: init.reg})
		c.scalars[s.Name] = &scalarLocal{reg: reg, typ: typ}
		c.prog.locals = append(c.prog.locals, LocalVar{Name: s.Name, Type: typ})
		return operand{reg: reg, typ: typ}, nil

	case *ArrayDeclStmt:
		if _, exists := c.scalars[s.Name]; exists {
			return operand{}, c.errAt(s.Pos(), "variable %q already declared", s.Name)
		}
		if _, exists := c.arrayIdx[s.Name]; exists {
			return operand{}, c.errAt(s.Pos(), "variable %q already declared", s.Name)
		}
		idx := len(c.prog.arrays)
		c.prog.arrays = append(c.prog.arrays, ArrayVar{Name: s.Name, Size: s.Size, Type: types.Float})
		c.arrayIdx[s.Name] = idx
		c.emit(Instr{Op: OpArrayInit, A: idx})
		// A bare array declaration has no scalar value.
		return c.loadConst(constant{typ: types.Float, null: true}), nil

	case *AssignStmt:
		if s.Index != nil {
			return c.compileIndexAssign(s)
		}
		local, ok := c.scalars[s.Name]
		if !ok {
			return operand{}, c.errAt(s.Pos(), "assignment to undeclared variable %q", s.Name)
		}
		value, err := c.compileNode(s.Value)
		if err != nil {
			return operand{}, err
		}
		src, err := c.coerce(value, local.typ, s.Value.Pos())
		if err != nil {
			return operand{}, err
		}
		c.emit(Instr{Op: OpMove, Dst: local.reg, A: src})
		return operand{reg: local.reg, typ: local.typ}, nil

	case *ExprStmt:
		return c.compileNode(s.Expr)

	default:
		return operand{}, c.errAt(stmt.Pos(), "unsupported statement")
	}
}

func (c *compiler) compileIndexAssign(s *AssignStmt) (operand, *ParseError) {
	idx, ok := c.arrayIdx[s.Name]
	if !ok {
		return operand{}, c.errAt(s.Pos(), "assignment to undeclared array %q", s.Name)
	}
	index, err := c.compileNode(s.Index)
	if err != nil {
		return operand{}, err
	}
	if !index.typ.IsNumeric() {
		return operand{}, c.errAt(s.Index.Pos(), "array index must be numeric, got %s", index.typ)
	}
	value, err := c.compileNode(s.Value)
	if err != nil {
		return operand{}, err
	}
	def := &c.prog.arrays[idx]
	if !value.nullLit && value.typ != def.Type {
		if value.typ.IsNumeric() && def.Type.IsNumeric() {
			// Numeric stores share the float element type.
		} else if def.Type == types.Float {
			// First non-numeric store fixes the element type.
			def.Type = value.typ
		} else {
			return operand{}, c.errAt(s.Value.Pos(), "cannot store %s in array %q of %s", value.typ, s.Name, def.Type)
		}
	}
	src := value.reg
	if value.typ == types.Integer && def.Type == types.Float {
		src, err = c.coerce(value, types.Float, s.Value.Pos())
		if err != nil {
			return operand{}, err
		}
	}
	c.emit(Instr{Op: OpStoreIndex, A: idx, B: index.reg, C: src})
	return operand{reg: src, typ: def.Type}, nil
}

// coerce returns a register holding the operand as the wanted type,
// inserting a cast for numeric widening or a typed null.
func (c *compiler) coerce(op operand, want types.Type, pos int) (int, *ParseError) {
	if op.typ == want {
		return op.reg, nil
	}
	if op.nullLit || (op.typ.IsNumeric() && want.IsNumeric()) {
		reg := c.newReg()
		c.emit(Instr{Op: OpCast, Dst: reg, A: op.reg, B: int(want)})
		return reg, nil
	}
	return 0, c.errAt(pos, "expected %s, got %s", want, op.typ)
}

func (c *compiler) compileNode(n Node) (operand, *ParseError) {
	switch node := n.(type) {
	case *NumberNode:
		// Numeric literals are float: arithmetic widens anyway, and a bare
		// literal column is a float column.
		return c.loadConst(constant{typ: types.Float, f: node.Value}), nil

	case *StringNode:
		op := c.loadConst(constant{typ: types.String, s: node.Value})
		lit := node.Value
		op.strLit = &lit
		return op, nil

	case *BoolNode:
		return c.loadConst(constant{typ: types.Boolean, b: node.Value}), nil

	case *NullNode:
		return c.loadConst(constant{typ: types.Unknown, null: true}), nil

	case *ColumnNode:
		typ, ok := c.columnTypes[node.Name]
		if !ok {
			return operand{}, c.errAt(node.Pos(), "Value Error - Input column %q does not exist.", node.Name)
		}
		slot, seen := c.colIndex[node.Name]
		if !seen {
			slot = len(c.prog.columns)
			c.colIndex[node.Name] = slot
			c.prog.columns = append(c.prog.columns, node.Name)
		}
		reg := c.newReg()
		c.emit(Instr{Op: OpColumn, Dst: reg, A: slot})
		return operand{reg: reg, typ: typ}, nil

	case *VarNode:
		local, ok := c.scalars[node.Name]
		if !ok {
			return operand{}, c.errAt(node.Pos(), "unknown variable %q", node.Name)
		}
		return operand{reg: local.reg, typ: local.typ}, nil

	case *IndexNode:
		idx, ok := c.arrayIdx[node.Name]
		if !ok {
			return operand{}, c.errAt(node.Pos(), "unknown array %q", node.Name)
		}
		index, err := c.compileNode(node.Index)
		if err != nil {
			return operand{}, err
		}
		if !index.typ.IsNumeric() {
			return operand{}, c.errAt(node.Index.Pos(), "array index must be numeric, got %s", index.typ)
		}
		reg := c.newReg()
		c.emit(Instr{Op: OpLoadIndex, Dst: reg, A: idx, B: index.reg})
		return operand{reg: reg, typ: c.prog.arrays[idx].Type}, nil

	case *UnaryNode:
		return c.compileUnary(node)

	case *BinaryNode:
		return c.compileBinary(node)

	case *TernaryNode:
		return c.compileTernary(node)

	case *CallNode:
		return c.compileCall(node)

	default:
		return operand{}, c.errAt(n.Pos(), "unsupported expression")
	}
}

func (c *compiler) compileUnary(node *UnaryNode) (operand, *ParseError) {
	op, err := c.compileNode(node.Operand)
	if err != nil {
		return operand{}, err
	}
	switch node.Op {
	case "-":
		if !op.typ.IsNumeric() {
			return operand{}, c.errAt(node.Pos(), "operator - requires a numeric operand, got %s", op.typ)
		}
		reg := c.newReg()
		c.emit(Instr{Op: OpNeg, Dst: reg, A: op.reg})
		return operand{reg: reg, typ: types.Float}, nil
	case "not":
		if op.typ != types.Boolean {
			return operand{}, c.errAt(node.Pos(), "operator not requires a boolean operand, got %s", op.typ)
		}
		reg := c.newReg()
		c.emit(Instr{Op: OpNot, Dst: reg, A: op.reg})
		return operand{reg: reg, typ: types.Boolean}, nil
	default:
		return operand{}, c.errAt(node.Pos(), "unknown operator %q", node.Op)
	}
}

var arithOps = map[string]Op{
	"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv, "%": OpMod, "^": OpPow,
}

var compareOps = map[string]Op{
	"==": OpEq, "!=": OpNe, "<": OpLt, "<=": OpLe, ">": OpGt, ">=": OpGe,
}

func (c *compiler) compileBinary(node *BinaryNode) (operand, *ParseError) {
	// Equality against the null literal compiles to a float-valued null
	// test rather than a boolean comparison.
	if node.Op == "==" || node.Op == "!=" {
		if _, isNull := node.Right.(*NullNode); isNull {
			return c.compileNullTest(node.Left, node.Op)
		}
		if _, isNull := node.Left.(*NullNode); isNull {
			return c.compileNullTest(node.Right, node.Op)
		}
	}

	left, err := c.compileNode(node.Left)
	if err != nil {
		return operand{}, err
	}
	right, err := c.compileNode(node.Right)
	if err != nil {
		return operand{}, err
	}

	if op, ok := arithOps[node.Op]; ok {
		if node.Op == "+" && left.typ == types.String && right.typ == types.String {
			reg := c.newReg()
			c.emit(Instr{Op: OpAdd, Dst: reg, A: left.reg, B: right.reg})
			return operand{reg: reg, typ: types.String}, nil
		}
		if !left.typ.IsNumeric() || !right.typ.IsNumeric() {
			return operand{}, c.errAt(node.Pos(), "operator %s requires numeric operands, got %s and %s", node.Op, left.typ, right.typ)
		}
		reg := c.newReg()
		c.emit(Instr{Op: op, Dst: reg, A: left.reg, B: right.reg})
		return operand{reg: reg, typ: types.Float}, nil
	}

	if op, ok := compareOps[node.Op]; ok {
		if !comparable(left.typ, right.typ) {
			return operand{}, c.errAt(node.Pos(), "cannot compare %s and %s", left.typ, right.typ)
		}
		reg := c.newReg()
		c.emit(Instr{Op: op, Dst: reg, A: left.reg, B: right.reg})
		return operand{reg: reg, typ: types.Boolean}, nil
	}

	if node.Op == "and" || node.Op == "or" {
		if left.typ != types.Boolean || right.typ != types.Boolean {
			return operand{}, c.errAt(node.Pos(), "operator %s requires boolean operands, got %s and %s", node.Op, left.typ, right.typ)
		}
		op := OpAnd
		if node.Op == "or" {
			op = OpOr
		}
		reg := c.newReg()
		c.emit(Instr{Op: op, Dst: reg, A: left.reg, B: right.reg})
		return operand{reg: reg, typ: types.Boolean}, nil
	}

	return operand{}, c.errAt(node.Pos(), "unknown operator %q", node.Op)
}

func comparable(a, b types.Type) bool {
	if a == b {
		return true
	}
	if a.IsNumeric() && b.IsNumeric() {
		return true
	}
	if a.IsTemporal() && b.IsTemporal() {
		return true
	}
	return false
}

func (c *compiler) compileNullTest(n Node, op string) (operand, *ParseError) {
	val, err := c.compileNode(n)
	if err != nil {
		return operand{}, err
	}
	wantNull := 1
	if op == "!=" {
		wantNull = 0
	}
	reg := c.newReg()
	c.emit(Instr{Op: OpNullTest, Dst: reg, A: val.reg, B: wantNull})
	return operand{reg: reg, typ: types.Float}, nil
}

func (c *compiler) compileTernary(node *TernaryNode) (operand, *ParseError) {
	cond, err := c.compileNode(node.Cond)
	if err != nil {
		return operand{}, err
	}
	if cond.typ != types.Boolean && !cond.typ.IsNumeric() {
		return operand{}, c.errAt(node.Cond.Pos(), "ternary condition must be boolean or numeric, got %s", cond.typ)
	}

	dst := c.newReg()
	jmpElse := c.emit(Instr{Op: OpJumpIfFalse, A: cond.reg})

	then, err := c.compileNode(node.Then)
	if err != nil {
		return operand{}, err
	}
	thenMove := c.emit(Instr{Op: OpMove, Dst: dst, A: then.reg})
	jmpEnd := c.emit(Instr{Op: OpJump})

	c.prog.code[jmpElse].B = len(c.prog.code)
	els, err := c.compileNode(node.Else)
	if err != nil {
		return operand{}, err
	}
	elseMove := c.emit(Instr{Op: OpMove, Dst: dst, A: els.reg})
	c.prog.code[jmpEnd].A = len(c.prog.code)

	typ, uerr := functions.Unify(
		functions.Arg{Type: then.typ, NullLiteral: then.nullLit},
		functions.Arg{Type: els.typ, NullLiteral: els.nullLit},
	)
	if uerr != nil {
		return operand{}, c.errAt(node.Pos(), "%v", uerr)
	}
	// Branch values that need widening (or a typed null) go through a cast
	// instead of a plain move.
	if then.typ != typ {
		c.prog.code[thenMove] = Instr{Op: OpCast, Dst: dst, A: then.reg, B: int(typ)}
	}
	if els.typ != typ {
		c.prog.code[elseMove] = Instr{Op: OpCast, Dst: dst, A: els.reg, B: int(typ)}
	}
	return operand{reg: dst, typ: typ}, nil
}

func (c *compiler) compileCall(node *CallNode) (operand, *ParseError) {
	fn, ok := functions.Get(node.Name)
	if !ok {
		return operand{}, c.errAt(node.Pos(), "unknown function %q", node.Name)
	}

	if fn.Name() == "indexof" {
		return c.compileIndexOf(node, fn)
	}

	ops := make([]operand, len(node.Args))
	args := make([]functions.Arg, len(node.Args))
	for i, argNode := range node.Args {
		op, err := c.compileNode(argNode)
		if err != nil {
			return operand{}, err
		}
		ops[i] = op
		args[i] = functions.Arg{Type: op.typ, NullLiteral: op.nullLit, StrLiteral: op.strLit}
	}

	typ, checkErr := fn.Check(args)
	if checkErr != nil {
		// Arity errors for type-generic functions point just past the
		// closing parenthesis.
		pos := node.Pos()
		if len(node.Args) == 0 {
			pos = node.RParen
		}
		return operand{}, c.errAt(pos, "%v", checkErr)
	}

	fnIdx := len(c.prog.funcs)
	c.prog.funcs = append(c.prog.funcs, fn)
	argRegs := make([]int, len(ops))
	for i, op := range ops {
		argRegs[i] = op.reg
	}
	reg := c.newReg()
	c.emit(Instr{Op: OpCall, Dst: reg, A: fnIdx, Args: argRegs})
	return operand{reg: reg, typ: typ}, nil
}

// compileIndexOf wires the third argument, a declared local array, as the
// destination for the match bounds.
func (c *compiler) compileIndexOf(node *CallNode, fn functions.Function) (operand, *ParseError) {
	if len(node.Args) != 3 {
		return operand{}, c.errAt(node.Pos(), "function indexof requires 3 arguments, got %d", len(node.Args))
	}
	subject, err := c.compileNode(node.Args[0])
	if err != nil {
		return operand{}, err
	}
	pattern, err := c.compileNode(node.Args[1])
	if err != nil {
		return operand{}, err
	}
	target, ok := node.Args[2].(*VarNode)
	if !ok {
		return operand{}, c.errAt(node.Args[2].Pos(), "function indexof: third argument must be a declared array")
	}
	arrIdx, declared := c.arrayIdx[target.Name]
	if !declared {
		return operand{}, c.errAt(target.Pos(), "unknown array %q", target.Name)
	}
	if c.prog.arrays[arrIdx].Size < 2 {
		return operand{}, c.errAt(target.Pos(), "function indexof: array %q must hold at least 2 elements", target.Name)
	}

	args := []functions.Arg{
		{Type: subject.typ, NullLiteral: subject.nullLit, StrLiteral: subject.strLit},
		{Type: pattern.typ, NullLiteral: pattern.nullLit, StrLiteral: pattern.strLit},
		{Type: types.Unknown},
	}
	if _, checkErr := fn.Check(args); checkErr != nil {
		return operand{}, c.errAt(node.Pos(), "%v", checkErr)
	}

	reg := c.newReg()
	c.emit(Instr{Op: OpIndexOf, Dst: reg, A: subject.reg, B: pattern.reg, C: arrIdx})
	return operand{reg: reg, typ: types.Boolean}, nil
}
