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

func newNumericTable(t *testing.T) *Table {
	t.Helper()
	table, err := FromColumns(map[string][]interface{}{
		"a": {int64(1), int64(2), int64(3), int64(4)},
		"b": {int64(5), int64(6), int64(7), int64(8)},
	})
	require.NoError(t, err)
	return table
}

// read dumps a table through an unconfigured view.
func read(t *testing.T, table *Table) map[string][]interface{} {
	t.Helper()
	view, err := table.View()
	require.NoError(t, err)
	defer view.Delete()
	return view.ToColumns()
}

func TestFromColumnsInfersSchema(t *testing.T) {
	table, err := FromColumns(map[string][]interface{}{
		"i": {int64(1)},
		"f": {1.5},
		"s": {"x"},
		"b": {true},
		"n": {nil}, // no non-null cell: defaults to float
	})
	require.NoError(t, err)
	defer table.Close()

	schema := table.Schema()
	assert.Equal(t, types.Integer, schema["i"])
	assert.Equal(t, types.Float, schema["f"])
	assert.Equal(t, types.String, schema["s"])
	assert.Equal(t, types.Boolean, schema["b"])
	assert.Equal(t, types.Float, schema["n"])
	assert.Equal(t, 1, table.Size())
}

func TestColumnNamesSorted(t *testing.T) {
	table, err := NewTable(map[string]types.Type{
		"zebra": types.Integer, "apple": types.Integer, "mango": types.Integer,
	})
	require.NoError(t, err)
	defer table.Close()
	assert.Equal(t, []string{"apple", "mango", "zebra"}, table.ColumnNames())
}

func TestUpdateAppends(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	require.NoError(t, table.Update(map[string][]interface{}{
		"a": {int64(5)},
		"b": {int64(9)},
	}))
	assert.Equal(t, 5, table.Size())

	cols := read(t, table)
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(3), int64(4), int64(5)}, cols["a"])
}

func TestUpdateMissingColumnFillsNulls(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	require.NoError(t, table.Update(map[string][]interface{}{
		"a": {int64(9)},
	}))
	cols := read(t, table)
	assert.Equal(t, int64(9), cols["a"][4])
	assert.Nil(t, cols["b"][4])
}

func TestUpdateRejectsBadBatches(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	err := table.Update(map[string][]interface{}{"nope": {int64(1)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")

	err = table.Update(map[string][]interface{}{
		"a": {int64(1), int64(2)},
		"b": {int64(1)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ragged")

	// A failed batch mutates nothing.
	assert.Equal(t, 4, table.Size())
}

func TestUpdateConversionError(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()
	err := table.Update(map[string][]interface{}{"a": {"not a number"}})
	require.Error(t, err)
	assert.Equal(t, 4, table.Size())
}

func TestUpdateRows(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	require.NoError(t, table.UpdateRows([]map[string]interface{}{
		{"a": int64(10), "b": int64(20)},
		{"a": int64(11)}, // b null
	}))
	cols := read(t, table)
	assert.Equal(t, int64(10), cols["a"][4])
	assert.Equal(t, int64(20), cols["b"][4])
	assert.Equal(t, int64(11), cols["a"][5])
	assert.Nil(t, cols["b"][5])
}

func TestReplace(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	require.NoError(t, table.Replace(map[string][]interface{}{
		"a": {int64(100)},
		"b": {int64(200)},
	}))
	assert.Equal(t, 1, table.Size())
	cols := read(t, table)
	assert.Equal(t, []interface{}{int64(100)}, cols["a"])
}

func TestClearPreservesSchema(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	require.NoError(t, table.Clear())
	assert.Equal(t, 0, table.Size())
	assert.Equal(t, types.Integer, table.Schema()["a"])

	cols := read(t, table)
	assert.Len(t, cols["a"], 0)
	assert.Len(t, cols["b"], 0)

	// The table stays usable after clearing.
	require.NoError(t, table.Update(map[string][]interface{}{
		"a": {int64(1)}, "b": {int64(2)},
	}))
	assert.Equal(t, 1, table.Size())
}

func TestIndexUpserts(t *testing.T) {
	table, err := FromColumns(map[string][]interface{}{
		"id":  {int64(1), int64(2)},
		"val": {int64(10), int64(20)},
	}, WithIndex("id"))
	require.NoError(t, err)
	defer table.Close()

	// An existing key overwrites in place; a new key appends.
	require.NoError(t, table.Update(map[string][]interface{}{
		"id":  {int64(2), int64(3)},
		"val": {int64(99), int64(30)},
	}))
	assert.Equal(t, 3, table.Size())

	cols := read(t, table)
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(3)}, cols["id"])
	assert.Equal(t, []interface{}{int64(10), int64(99), int64(30)}, cols["val"])
}

func TestIndexColumnMustExist(t *testing.T) {
	_, err := NewTable(map[string]types.Type{"a": types.Integer}, WithIndex("nope"))
	require.Error(t, err)
}

func TestLimitRingBuffer(t *testing.T) {
	table, err := NewTable(map[string]types.Type{"val": types.Integer}, WithLimit(3))
	require.NoError(t, err)
	defer table.Close()

	require.NoError(t, table.Update(map[string][]interface{}{
		"val": {int64(1), int64(2), int64(3), int64(4), int64(5)},
	}))
	assert.Equal(t, 3, table.Size())

	// Rows 4 and 5 overwrote the two oldest physical slots.
	cols := read(t, table)
	assert.Equal(t, []interface{}{int64(4), int64(5), int64(3)}, cols["val"])
}

func TestIndexAndLimitMutuallyExclusive(t *testing.T) {
	_, err := NewTable(map[string]types.Type{"a": types.Integer},
		WithIndex("a"), WithLimit(10))
	require.Error(t, err)
}

func TestCloseDeletesViews(t *testing.T) {
	table := newNumericTable(t)
	view, err := table.View()
	require.NoError(t, err)
	assert.Equal(t, 1, table.NumViews())

	table.Close()
	assert.Equal(t, 0, table.NumViews())
	assert.Error(t, table.Update(map[string][]interface{}{"a": {int64(1)}}))

	// Deleting an already-deleted view is a no-op.
	view.Delete()
}

func TestEmptySchemaRejected(t *testing.T) {
	_, err := NewTable(nil)
	require.Error(t, err)
}
