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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismview/prism/types"
)

var testColumns = map[string]types.Type{
	"a": types.Integer,
	"b": types.Integer,
	"x": types.Float,
	"s": types.String,
	"f": types.Boolean,
	"d": types.Date,
	"t": types.Datetime,
}

func compileOK(t *testing.T, source string) *Program {
	t.Helper()
	prog, err := Compile(source, testColumns)
	require.Nil(t, err, "compile %q: %v", source, err)
	return prog
}

func compileErr(t *testing.T, source string) *ParseError {
	t.Helper()
	prog, err := Compile(source, testColumns)
	require.NotNil(t, err, "expected error compiling %q, got type %v", source, prog)
	return err
}

func TestExtractAlias(t *testing.T) {
	alias, body := ExtractAlias(`"a" + "b"`)
	assert.Equal(t, `"a" + "b"`, alias)
	assert.Equal(t, `"a" + "b"`, body)

	alias, body = ExtractAlias("// my alias\n\"a\" * 2")
	assert.Equal(t, "my alias", alias)
	assert.Equal(t, "\"a\" * 2", body)

	alias, body = ExtractAlias("  \n// padded \n1 + 2")
	assert.Equal(t, "padded", alias)
	assert.Equal(t, "1 + 2", body)
}

func TestCompileArithmeticWidensToFloat(t *testing.T) {
	prog := compileOK(t, `"a" + "b"`)
	assert.Equal(t, types.Float, prog.ResultType())
	assert.Equal(t, []string{"a", "b"}, prog.Columns())
}

func TestCompileBareColumnKeepsType(t *testing.T) {
	assert.Equal(t, types.Integer, compileOK(t, `"a"`).ResultType())
	assert.Equal(t, types.String, compileOK(t, `"s"`).ResultType())
	assert.Equal(t, types.Date, compileOK(t, `"d"`).ResultType())
}

func TestCompileComparisonsYieldBoolean(t *testing.T) {
	assert.Equal(t, types.Boolean, compileOK(t, `"a" > 2`).ResultType())
	assert.Equal(t, types.Boolean, compileOK(t, `"s" == 'abc'`).ResultType())
	assert.Equal(t, types.Boolean, compileOK(t, `"d" < "t"`).ResultType())
}

func TestCompileNullComparisonYieldsFloat(t *testing.T) {
	// Equality against the untyped null literal is the engine's float
	// null test, not a boolean comparison.
	assert.Equal(t, types.Float, compileOK(t, `"a" == null`).ResultType())
	assert.Equal(t, types.Float, compileOK(t, `null != "s"`).ResultType())
}

func TestCompileStringConcatOperator(t *testing.T) {
	assert.Equal(t, types.String, compileOK(t, `"s" + 'suffix'`).ResultType())
}

func TestCompileRejectsMixedConcat(t *testing.T) {
	err := compileErr(t, `"s" + 1`)
	assert.Contains(t, err.Message, "numeric")
}

func TestCompileUnknownColumn(t *testing.T) {
	err := compileErr(t, `"zzz" + 1`)
	assert.Equal(t, `Value Error - Input column "zzz" does not exist.`, err.Message)
	assert.Equal(t, 0, err.Line)
	assert.Equal(t, 0, err.Column)
}

func TestCompileUnknownColumnPosition(t *testing.T) {
	err := compileErr(t, "1 + \n\"zzz\"")
	assert.Equal(t, `Value Error - Input column "zzz" does not exist.`, err.Message)
	assert.Equal(t, 1, err.Line)
	assert.Equal(t, 0, err.Column)
}

func TestAliasCommentDoesNotShiftPositions(t *testing.T) {
	err := compileErr(t, "// computed\n\"zzz\"")
	assert.Equal(t, 0, err.Line)
	assert.Equal(t, 0, err.Column)
}

func TestCompileZeroParameterGenericCall(t *testing.T) {
	err := compileErr(t, "date()")
	assert.Equal(t, "Zero parameter call to generic function: date not allowed", err.Message)
	// The error addresses the offset just past the closing parenthesis.
	assert.Equal(t, 6, err.Position)
	assert.Equal(t, 6, err.Column)
}

func TestCompileUnknownFunction(t *testing.T) {
	err := compileErr(t, "frobnicate(1)")
	assert.Contains(t, err.Message, "frobnicate")
}

func TestCompileMalformedSyntax(t *testing.T) {
	for _, source := range []string{
		`"a" +`,
		`(1 + 2`,
		`'unterminated`,
		`1 ? 2`,
		`var := 3`,
	} {
		compileErr(t, source)
	}
}

func TestCompileTernaryUnifiesBranches(t *testing.T) {
	assert.Equal(t, types.Float, compileOK(t, `"a" > 2 ? 1 : 2`).ResultType())
	assert.Equal(t, types.String, compileOK(t, `"a" > 2 ? 'x' : 'y'`).ResultType())
	// A null branch adopts the other branch's type, integers widening.
	assert.Equal(t, types.String, compileOK(t, `"a" > 2 ? "s" : null`).ResultType())
	assert.Equal(t, types.Float, compileOK(t, `"a" > 2 ? "a" : null`).ResultType())

	err := compileErr(t, `"a" > 2 ? 's' : 1`)
	assert.Contains(t, err.Message, "incompatible")
}

func TestCompileLocals(t *testing.T) {
	prog := compileOK(t, "var y := \"a\" * 2; y + 1")
	assert.Equal(t, types.Float, prog.ResultType())
	require.Len(t, prog.Locals(), 1)
	assert.Equal(t, "y", prog.Locals()[0].Name)
	assert.Equal(t, types.Float, prog.Locals()[0].Type)
}

func TestCompileUndeclaredVariable(t *testing.T) {
	err := compileErr(t, "y + 1")
	assert.Contains(t, err.Message, "y")
}

func TestCompileArrayDeclAndIndex(t *testing.T) {
	compileOK(t, "var v[4]; v[0] := 1; v[0] + v[1]")
	compileErr(t, "v[0]")                // undeclared
	compileErr(t, "var v[4]; v['a']")    // non-numeric index
	compileErr(t, "var v[0]; v[0] := 1") // zero size
}

func TestCompileRegexRequiresLiteralPattern(t *testing.T) {
	compileOK(t, `match("s", 'a+')`)
	err := compileErr(t, `match("s", "s")`)
	assert.Contains(t, err.Message, "literal")
	err = compileErr(t, `match("s", '(unclosed')`)
	assert.Contains(t, err.Message, "pattern")
}

func TestCompileBucketUnitFixesResultType(t *testing.T) {
	assert.Equal(t, types.Date, compileOK(t, `bucket("t", 'W')`).ResultType())
	assert.Equal(t, types.Datetime, compileOK(t, `bucket("t", 's')`).ResultType())
	compileErr(t, `bucket("t", 'q')`)
	compileErr(t, `bucket("a", 'D')`)
}

func TestCompileLogicalOperators(t *testing.T) {
	assert.Equal(t, types.Boolean, compileOK(t, `"f" and "a" > 2`).ResultType())
	assert.Equal(t, types.Boolean, compileOK(t, `not "f" or "f"`).ResultType())
	compileErr(t, `"a" and "f"`)
}

func TestScanColumns(t *testing.T) {
	cols, err := ScanColumns(`"a" + "b" * "a"`)
	require.Nil(t, err)
	assert.Equal(t, []string{"a", "b"}, cols)

	cols, err = ScanColumns("// alias\n\"x\"")
	require.Nil(t, err)
	assert.Equal(t, []string{"x"}, cols)
}

func TestCompileStatementSequenceValue(t *testing.T) {
	// The expression's value is the final statement's value.
	prog := compileOK(t, "var u := 10; var w := 20; u * w")
	assert.Equal(t, types.Float, prog.ResultType())
}

func TestTokenizeStringEscapes(t *testing.T) {
	tokens, err := Tokenize(`'it\'s' + '\\'`)
	require.Nil(t, err)
	require.GreaterOrEqual(t, len(tokens), 3)
	assert.Equal(t, "it's", tokens[0].Value)
	assert.Equal(t, `\`, tokens[2].Value)
}

func TestTokenizeComments(t *testing.T) {
	tokens, err := Tokenize("1 + // trailing\n2")
	require.Nil(t, err)
	// 1, +, 2, EOF
	require.Len(t, tokens, 4)
	assert.Equal(t, "2", tokens[2].Value)
}
