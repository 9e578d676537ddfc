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

import "fmt"

// ParseError is the compile-time error record: a message addressed by a
// 0-indexed line and column into the expression body. An explicit alias
// comment line is not part of the body, so it never shifts positions.
type ParseError struct {
	Message  string
	Line     int
	Column   int
	Position int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (line %d, column %d)", e.Message, e.Line, e.Column)
}

// errorAt builds a ParseError for a byte offset into the body, translating
// the offset to line and column.
func errorAt(body string, pos int, format string, args ...interface{}) *ParseError {
	if pos > len(body) {
		pos = len(body)
	}
	if pos < 0 {
		pos = 0
	}
	line, col := 0, 0
	for i := 0; i < pos; i++ {
		if body[i] == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}
	return &ParseError{
		Message:  fmt.Sprintf(format, args...),
		Line:     line,
		Column:   col,
		Position: pos,
	}
}
