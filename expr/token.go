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
	"strings"
)

// TokenType identifies a lexical token class.
type TokenType int

const (
	// TokenNumber is a numeric literal.
	TokenNumber TokenType = iota
	// TokenString is a single-quoted string literal (value unescaped).
	TokenString
	// TokenColumn is a double-quoted column reference (value unquoted).
	TokenColumn
	// TokenIdent is an identifier: keyword, function name or local variable.
	TokenIdent
	// TokenOperator is an arithmetic, comparison, logical or assignment
	// operator.
	TokenOperator
	// TokenLeftParen is "(".
	TokenLeftParen
	// TokenRightParen is ")".
	TokenRightParen
	// TokenLeftBracket is "[".
	TokenLeftBracket
	// TokenRightBracket is "]".
	TokenRightBracket
	// TokenComma is ",".
	TokenComma
	// TokenSemicolon is ";".
	TokenSemicolon
	// TokenEOF terminates every token stream.
	TokenEOF
)

// Token is one lexical token with its byte offsets into the expression
// body. End is the offset just past the token, used for error positions
// that point after a construct (a call's closing paren).
type Token struct {
	Type  TokenType
	Value string
	Pos   int
	End   int
}

// ExtractAlias splits an expression source into its alias and body. A line
// comment on the first non-blank line declares the alias explicitly and is
// excluded from the body; otherwise the alias is the trimmed source and the
// body is the source itself.
func ExtractAlias(source string) (alias, body string) {
	trimmed := strings.TrimLeft(source, " \t\r\n")
	if strings.HasPrefix(trimmed, "//") {
		rest := trimmed[2:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			return strings.TrimSpace(rest[:nl]), rest[nl+1:]
		}
		return strings.TrimSpace(rest), ""
	}
	return strings.TrimSpace(source), source
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

// twoByteOps are matched before single-byte operators.
var twoByteOps = []string{"==", "!=", "<=", ">=", ":=", "&&", "||"}

// Tokenize breaks an expression body into tokens. Line comments past the
// alias line are skipped; string literals keep raw newlines and unescape
// \' and \\ only.
func Tokenize(body string) ([]Token, *ParseError) {
	var tokens []Token
	i := 0
	for i < len(body) {
		c := body[i]

		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			i++
			continue
		}

		if c == '/' && i+1 < len(body) && body[i+1] == '/' {
			for i < len(body) && body[i] != '\n' {
				i++
			}
			continue
		}

		if c == '\'' {
			start := i
			i++
			var b strings.Builder
			for i < len(body) && body[i] != '\'' {
				if body[i] == '\\' && i+1 < len(body) {
					switch body[i+1] {
					case '\'', '\\':
						b.WriteByte(body[i+1])
					default:
						b.WriteByte('\\')
						b.WriteByte(body[i+1])
					}
					i += 2
					continue
				}
				b.WriteByte(body[i])
				i++
			}
			if i >= len(body) {
				return nil, errorAt(body, start, "unterminated string literal")
			}
			i++
			tokens = append(tokens, Token{TokenString, b.String(), start, i})
			continue
		}

		if c == '"' {
			start := i
			i++
			var b strings.Builder
			for i < len(body) && body[i] != '"' {
				if body[i] == '\\' && i+1 < len(body) && body[i+1] == '"' {
					b.WriteByte('"')
					i += 2
					continue
				}
				b.WriteByte(body[i])
				i++
			}
			if i >= len(body) {
				return nil, errorAt(body, start, "unterminated column reference")
			}
			i++
			tokens = append(tokens, Token{TokenColumn, b.String(), start, i})
			continue
		}

		if isDigit(c) || (c == '.' && i+1 < len(body) && isDigit(body[i+1])) {
			start := i
			for i < len(body) && isDigit(body[i]) {
				i++
			}
			if i < len(body) && body[i] == '.' {
				i++
				for i < len(body) && isDigit(body[i]) {
					i++
				}
			}
			tokens = append(tokens, Token{TokenNumber, body[start:i], start, i})
			continue
		}

		if isIdentStart(c) {
			start := i
			for i < len(body) && isIdentPart(body[i]) {
				i++
			}
			tokens = append(tokens, Token{TokenIdent, body[start:i], start, i})
			continue
		}

		if i+1 < len(body) {
			two := body[i : i+2]
			matched := false
			for _, op := range twoByteOps {
				if two == op {
					tokens = append(tokens, Token{TokenOperator, op, i, i + 2})
					i += 2
					matched = true
					break
				}
			}
			if matched {
				continue
			}
		}

		switch c {
		case '(':
			tokens = append(tokens, Token{TokenLeftParen, "(", i, i + 1})
		case ')':
			tokens = append(tokens, Token{TokenRightParen, ")", i, i + 1})
		case '[':
			tokens = append(tokens, Token{TokenLeftBracket, "[", i, i + 1})
		case ']':
			tokens = append(tokens, Token{TokenRightBracket, "]", i, i + 1})
		case ',':
			tokens = append(tokens, Token{TokenComma, ",", i, i + 1})
		case ';':
			tokens = append(tokens, Token{TokenSemicolon, ";", i, i + 1})
		case '+', '-', '*', '/', '%', '^', '<', '>', '?', ':', '!', '=':
			tokens = append(tokens, Token{TokenOperator, string(c), i, i + 1})
		default:
			return nil, errorAt(body, i, "unexpected character %q", string(c))
		}
		i++
	}
	tokens = append(tokens, Token{TokenEOF, "", len(body), len(body)})
	return tokens, nil
}
