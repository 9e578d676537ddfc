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

package prism

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismview/prism/types"
)

func TestValidateExpressions(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	result := table.ValidateExpressions(
		`"a" + "b"`,
		"// named\n\"a\" * 2",
	)
	assert.Empty(t, result.Errors)
	assert.Equal(t, types.Float, result.ExpressionSchema[`"a" + "b"`])
	assert.Equal(t, types.Float, result.ExpressionSchema["named"])
	assert.Equal(t, `"a" + "b"`, result.ExpressionAlias[`"a" + "b"`])
	assert.Equal(t, "// named\n\"a\" * 2", result.ExpressionAlias["named"])
}

func TestValidateExpressionsReportsErrors(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	result := table.ValidateExpressions(`"zzz"`, `"a" + 1`)
	require.Contains(t, result.Errors, `"zzz"`)
	e := result.Errors[`"zzz"`]
	assert.Equal(t, `Value Error - Input column "zzz" does not exist.`, e.ErrorMessage)
	assert.Equal(t, 0, e.Line)
	assert.Equal(t, 0, e.Column)

	// A failed expression is not in the schema; the good one is.
	assert.NotContains(t, result.ExpressionSchema, `"zzz"`)
	assert.Equal(t, types.Float, result.ExpressionSchema[`"a" + 1`])
}

func TestValidateNamedExpressions(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	result := table.ValidateNamedExpressions(map[string]string{
		"double": `"a" * 2`,
		"quad":   `"double" * 2`, // depends on another alias
	})
	assert.Empty(t, result.Errors)
	assert.Equal(t, types.Float, result.ExpressionSchema["double"])
	assert.Equal(t, types.Float, result.ExpressionSchema["quad"])
}

func TestValidateCycleSurfacesError(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	result := table.ValidateNamedExpressions(map[string]string{
		"x": `"y" + 1`,
		"y": `"x" + 1`,
	})
	// Neither side of the cycle can resolve its input.
	assert.Len(t, result.Errors, 2)
	assert.Empty(t, result.ExpressionSchema)
}

func TestValidateZeroArityError(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	result := table.ValidateExpressions("date()")
	require.Contains(t, result.Errors, "date()")
	e := result.Errors["date()"]
	assert.Equal(t, "Zero parameter call to generic function: date not allowed", e.ErrorMessage)
	assert.Equal(t, 6, e.Column)
}

func TestValidateDoesNotMutateTable(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	table.ValidateExpressions(`"a" + "b"`)
	assert.Equal(t, 0, table.NumViews())
	assert.Equal(t, 4, table.Size())
}
