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

// Node is one parsed expression tree node. Pos returns the node's byte
// offset into the expression body for error addressing.
type Node interface {
	Pos() int
}

// NumberNode is a numeric literal. Integer-shaped literals keep their
// integer value alongside the float form.
type NumberNode struct {
	pos   int
	Value float64
	IsInt bool
	Int   int64
}

func (n *NumberNode) Pos() int { return n.pos }

// StringNode is a single-quoted string literal.
type StringNode struct {
	pos   int
	Value string
}

func (n *StringNode) Pos() int { return n.pos }

// BoolNode is a true/false literal.
type BoolNode struct {
	pos   int
	Value bool
}

func (n *BoolNode) Pos() int { return n.pos }

// NullNode is the untyped null literal.
type NullNode struct {
	pos int
}

func (n *NullNode) Pos() int { return n.pos }

// ColumnNode is a double-quoted input column reference.
type ColumnNode struct {
	pos  int
	Name string
}

func (n *ColumnNode) Pos() int { return n.pos }

// VarNode references a declared local variable.
type VarNode struct {
	pos  int
	Name string
}

func (n *VarNode) Pos() int { return n.pos }

// IndexNode reads one element of a declared local array.
type IndexNode struct {
	pos   int
	Name  string
	Index Node
}

func (n *IndexNode) Pos() int { return n.pos }

// UnaryNode is a prefix operator application ("-", "not").
type UnaryNode struct {
	pos     int
	Op      string
	Operand Node
}

func (n *UnaryNode) Pos() int { return n.pos }

// BinaryNode is an infix operator application.
type BinaryNode struct {
	pos         int
	Op          string
	Left, Right Node
}

func (n *BinaryNode) Pos() int { return n.pos }

// TernaryNode is cond ? then : else.
type TernaryNode struct {
	pos              int
	Cond, Then, Else Node
}

func (n *TernaryNode) Pos() int { return n.pos }

// CallNode is a builtin function call. RParen is the offset just past the
// closing parenthesis, where arity errors for type-generic functions are
// addressed.
type CallNode struct {
	pos    int
	Name   string
	Args   []Node
	RParen int
}

func (n *CallNode) Pos() int { return n.pos }

// Stmt is one statement of an expression body. The body's value is the
// value of its final statement.
type Stmt interface {
	Pos() int
}

// VarDeclStmt declares a scalar local: var name := expr.
type VarDeclStmt struct {
	pos  int
	Name string
	Init Node
}

func (s *VarDeclStmt) Pos() int { return s.pos }

// ArrayDeclStmt declares a fixed-size local array: var name[N].
type ArrayDeclStmt struct {
	pos  int
	Name string
	Size int
}

func (s *ArrayDeclStmt) Pos() int { return s.pos }

// AssignStmt reassigns a declared local, optionally at an array index.
type AssignStmt struct {
	pos   int
	Name  string
	Index Node // nil for a scalar target
	Value Node
}

func (s *AssignStmt) Pos() int { return s.pos }

// ExprStmt is a bare expression statement.
type ExprStmt struct {
	Expr Node
}

func (s *ExprStmt) Pos() int { return s.Expr.Pos() }
