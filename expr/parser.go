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

import "strconv"

// parser is a recursive-descent parser over a token stream. Statements
// separate on semicolons; the conventional precedence ladder runs
// ternary > or > and > not > comparison > additive > multiplicative >
// unary minus > power > primary.
type parser struct {
	body   string
	tokens []Token
	pos    int
}

func parse(body string, tokens []Token) ([]Stmt, *ParseError) {
	p := &parser{body: body, tokens: tokens}
	var stmts []Stmt
	for !p.at(TokenEOF) {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if p.at(TokenSemicolon) {
			p.next()
			continue
		}
		if !p.at(TokenEOF) {
			return nil, p.errHere("expected ';' or end of expression, got %q", p.peek().Value)
		}
	}
	if len(stmts) == 0 {
		return nil, errorAt(body, 0, "empty expression")
	}
	return stmts, nil
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	t := p.tokens[p.pos]
	if t.Type != TokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) at(t TokenType) bool {
	return p.peek().Type == t
}

func (p *parser) atOp(op string) bool {
	t := p.peek()
	return t.Type == TokenOperator && t.Value == op
}

func (p *parser) atIdent(name string) bool {
	t := p.peek()
	return t.Type == TokenIdent && t.Value == name
}

func (p *parser) expect(t TokenType, what string) (Token, *ParseError) {
	if !p.at(t) {
		return Token{}, p.errHere("expected %s, got %q", what, p.peek().Value)
	}
	return p.next(), nil
}

func (p *parser) errHere(format string, args ...interface{}) *ParseError {
	return errorAt(p.body, p.peek().Pos, format, args...)
}

func (p *parser) parseStmt() (Stmt, *ParseError) {
	if p.atIdent("var") {
		return p.parseVarDecl()
	}

	// Reassignment of a declared local: name := e or name[i] := e. Anything
	// else starting with an identifier is an expression statement.
	if p.at(TokenIdent) {
		save := p.pos
		name := p.next()
		if p.atOp(":=") {
			p.next()
			value, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			return &AssignStmt{pos: name.Pos, Name: name.Value, Value: value}, nil
		}
		if p.at(TokenLeftBracket) {
			p.next()
			index, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenRightBracket, "']'"); err != nil {
				return nil, err
			}
			if p.atOp(":=") {
				p.next()
				value, err := p.parseTernary()
				if err != nil {
					return nil, err
				}
				return &AssignStmt{pos: name.Pos, Name: name.Value, Index: index, Value: value}, nil
			}
		}
		p.pos = save
	}

	node, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &ExprStmt{Expr: node}, nil
}

func (p *parser) parseVarDecl() (Stmt, *ParseError) {
	kw := p.next() // var
	name, err := p.expect(TokenIdent, "variable name")
	if err != nil {
		return nil, err
	}

	if p.at(TokenLeftBracket) {
		p.next()
		sizeTok, err := p.expect(TokenNumber, "array size")
		if err != nil {
			return nil, err
		}
		size, convErr := strconv.Atoi(sizeTok.Value)
		if convErr != nil || size <= 0 {
			return nil, errorAt(p.body, sizeTok.Pos, "invalid array size %q", sizeTok.Value)
		}
		if _, err := p.expect(TokenRightBracket, "']'"); err != nil {
			return nil, err
		}
		return &ArrayDeclStmt{pos: kw.Pos, Name: name.Value, Size: size}, nil
	}

	if !p.atOp(":=") {
		return nil, p.errHere("expected ':=' after variable name")
	}
	p.next()
	init, perr := p.parseTernary()
	if perr != nil {
		return nil, perr
	}
	return &VarDeclStmt{pos: kw.Pos, Name: name.Value, Init: init}, nil
}

func (p *parser) parseTernary() (Node, *ParseError) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.atOp("?") {
		return cond, nil
	}
	p.next()
	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if !p.atOp(":") {
		return nil, p.errHere("expected ':' in ternary expression")
	}
	p.next()
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &TernaryNode{pos: cond.Pos(), Cond: cond, Then: then, Else: els}, nil
}

func (p *parser) parseOr() (Node, *ParseError) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.atIdent("or") || p.atOp("||") {
		op := p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{pos: op.Pos, Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, *ParseError) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.atIdent("and") || p.atOp("&&") {
		op := p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{pos: op.Pos, Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Node, *ParseError) {
	if p.atIdent("not") || p.atOp("!") {
		op := p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryNode{pos: op.Pos, Op: "not", Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Node, *ParseError) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.atOp("==") || p.atOp("!=") || p.atOp("<") || p.atOp("<=") || p.atOp(">") || p.atOp(">=") {
		op := p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{pos: op.Pos, Op: op.Value, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAdditive() (Node, *ParseError) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.atOp("+") || p.atOp("-") {
		op := p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{pos: op.Pos, Op: op.Value, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Node, *ParseError) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.atOp("*") || p.atOp("/") || p.atOp("%") {
		op := p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{pos: op.Pos, Op: op.Value, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Node, *ParseError) {
	if p.atOp("-") {
		op := p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// Fold a negated numeric literal.
		if num, ok := operand.(*NumberNode); ok {
			return &NumberNode{pos: op.Pos, Value: -num.Value, IsInt: num.IsInt, Int: -num.Int}, nil
		}
		return &UnaryNode{pos: op.Pos, Op: "-", Operand: operand}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (Node, *ParseError) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.atOp("^") {
		op := p.next()
		// Right associative.
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &BinaryNode{pos: op.Pos, Op: "^", Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parsePrimary() (Node, *ParseError) {
	tok := p.peek()
	switch tok.Type {
	case TokenNumber:
		p.next()
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, errorAt(p.body, tok.Pos, "invalid number %q", tok.Value)
		}
		node := &NumberNode{pos: tok.Pos, Value: f}
		if i, err := strconv.ParseInt(tok.Value, 10, 64); err == nil {
			node.IsInt = true
			node.Int = i
		}
		return node, nil

	case TokenString:
		p.next()
		return &StringNode{pos: tok.Pos, Value: tok.Value}, nil

	case TokenColumn:
		p.next()
		return &ColumnNode{pos: tok.Pos, Name: tok.Value}, nil

	case TokenIdent:
		switch tok.Value {
		case "true", "false":
			p.next()
			return &BoolNode{pos: tok.Pos, Value: tok.Value == "true"}, nil
		case "null":
			p.next()
			return &NullNode{pos: tok.Pos}, nil
		}
		p.next()
		if p.at(TokenLeftParen) {
			return p.parseCall(tok)
		}
		if p.at(TokenLeftBracket) {
			p.next()
			index, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenRightBracket, "']'"); err != nil {
				return nil, err
			}
			return &IndexNode{pos: tok.Pos, Name: tok.Value, Index: index}, nil
		}
		return &VarNode{pos: tok.Pos, Name: tok.Value}, nil

	case TokenLeftParen:
		p.next()
		node, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if _, perr := p.expect(TokenRightParen, "')'"); perr != nil {
			return nil, perr
		}
		return node, nil

	default:
		return nil, p.errHere("unexpected token %q", tok.Value)
	}
}

func (p *parser) parseCall(name Token) (Node, *ParseError) {
	p.next() // (
	var args []Node
	if !p.at(TokenRightParen) {
		for {
			arg, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.at(TokenComma) {
				p.next()
				continue
			}
			break
		}
	}
	rparen, err := p.expect(TokenRightParen, "')'")
	if err != nil {
		return nil, err
	}
	return &CallNode{pos: name.Pos, Name: name.Value, Args: args, RParen: rparen.End}, nil
}
