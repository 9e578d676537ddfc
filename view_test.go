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
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismview/prism/aggregator"
	"github.com/prismview/prism/types"
)

func TestViewComputedColumn(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	view, err := table.View(WithExpression("computed", `"a" + "b"`))
	require.NoError(t, err)
	defer view.Delete()

	assert.Equal(t, map[string]types.Type{"computed": types.Float},
		view.ExpressionSchema())

	cols := view.ToColumns()
	assert.Equal(t, []interface{}{6.0, 8.0, 10.0, 12.0}, cols["computed"])
	// Real columns stay readable alongside.
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(3), int64(4)}, cols["a"])
}

func TestViewDateExpression(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	view, err := table.View(WithExpression("d", "date(2020, 5, 30)"))
	require.NoError(t, err)
	defer view.Delete()

	assert.Equal(t, types.Date, view.Schema()["d"])
	cols := view.ToColumns()
	for _, cell := range cols["d"] {
		assert.Equal(t, int64(1590796800000), cell)
	}
}

func TestViewAliasFromComment(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	view, err := table.View(WithExpressions("// doubled\n\"a\" * 2"))
	require.NoError(t, err)
	defer view.Delete()

	cols := view.ToColumns()
	assert.Equal(t, []interface{}{2.0, 4.0, 6.0, 8.0}, cols["doubled"])
}

func TestViewLastAliasDeclarationWins(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	view, err := table.View(
		WithExpression("c", `"a" + 1`),
		WithExpression("c", `"a" + 100`),
	)
	require.NoError(t, err)
	defer view.Delete()

	cols := view.ToColumns()
	assert.Equal(t, []interface{}{101.0, 102.0, 103.0, 104.0}, cols["c"])
}

func TestViewRejectsColumnShadowing(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	_, err := table.View(WithExpression("a", "1 + 1"))
	require.Error(t, err)
	assert.Equal(t, `expression "a" cannot overwrite an existing column.`, err.Error())
	// Failed construction leaves no partial registration.
	assert.Equal(t, 0, table.NumViews())
}

func TestViewRejectsBadExpression(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	_, err := table.View(WithExpression("bad", `"zzz" + 1`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `Input column "zzz" does not exist.`)
	assert.Equal(t, 0, table.NumViews())
}

func TestViewExpressionDependsOnExpression(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	// Declaration order does not matter; dependencies compile first.
	view, err := table.View(
		WithExpression("quad", `"double" * 2`),
		WithExpression("double", `"a" * 2`),
	)
	require.NoError(t, err)
	defer view.Delete()

	cols := view.ToColumns()
	assert.Equal(t, []interface{}{4.0, 8.0, 12.0, 16.0}, cols["quad"])
}

func TestViewRejectsDependencyCycle(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	_, err := table.View(
		WithExpression("x", `"y" + 1`),
		WithExpression("y", `"x" + 1`),
	)
	require.Error(t, err)
	assert.Equal(t, 0, table.NumViews())
}

func TestViewStreamingAppend(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	view, err := table.View(WithExpression("computed", `"a" + "b"`))
	require.NoError(t, err)
	defer view.Delete()

	require.NoError(t, table.Update(map[string][]interface{}{
		"a": {int64(5), int64(6)},
		"b": {int64(9), int64(10)},
	}))

	cols := view.ToColumns()
	assert.Equal(t, []interface{}{6.0, 8.0, 10.0, 12.0, 14.0, 16.0}, cols["computed"])
	assert.Equal(t, 6, view.NumRows())
}

func TestViewReplaceRecomputes(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	view, err := table.View(WithExpression("computed", `"a" + "b"`))
	require.NoError(t, err)
	defer view.Delete()

	require.NoError(t, table.Replace(map[string][]interface{}{
		"a": {int64(100)},
		"b": {int64(1)},
	}))
	assert.Equal(t, []interface{}{101.0}, view.ToColumns()["computed"])
}

func TestViewNoOpReplaceRoundTrip(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	view, err := table.View(WithExpression("computed", `"a" + "b"`))
	require.NoError(t, err)
	defer view.Delete()

	before := view.ToColumns()
	require.NoError(t, table.Replace(map[string][]interface{}{
		"a": {int64(1), int64(2), int64(3), int64(4)},
		"b": {int64(5), int64(6), int64(7), int64(8)},
	}))
	assert.Equal(t, before, view.ToColumns())
}

func TestViewClear(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	view, err := table.View(WithExpression("computed", `"a" + "b"`))
	require.NoError(t, err)
	defer view.Delete()

	require.NoError(t, table.Clear())
	cols := view.ToColumns()
	assert.Len(t, cols["computed"], 0)
	assert.Len(t, cols["a"], 0)
	assert.Equal(t, 0, view.NumRows())
	// Schema survives the clear.
	assert.Equal(t, types.Float, view.Schema()["computed"])
}

func TestViewAliasIsolation(t *testing.T) {
	table, err := FromColumns(map[string][]interface{}{
		"s": {"Hello", "World"},
	})
	require.NoError(t, err)
	defer table.Close()

	v1, err := table.View(WithExpression("c", `upper("s")`))
	require.NoError(t, err)
	defer v1.Delete()
	v2, err := table.View(WithExpression("c", `lower("s")`))
	require.NoError(t, err)
	defer v2.Delete()

	assert.Equal(t, []interface{}{"HELLO", "WORLD"}, v1.ToColumns()["c"])
	assert.Equal(t, []interface{}{"hello", "world"}, v2.ToColumns()["c"])

	// Deleting one view leaves the other's storage intact.
	v1.Delete()
	assert.Equal(t, []interface{}{"hello", "world"}, v2.ToColumns()["c"])
}

func TestViewLongStringConcat(t *testing.T) {
	table, err := FromColumns(map[string][]interface{}{
		"s": {"x"},
	})
	require.NoError(t, err)
	defer table.Close()

	part := strings.Repeat("ab", 320) // 640 bytes, spans arena pages
	source := "var p := '" + part + "'; p + p + p + p"
	view, err := table.View(WithExpression("big", source))
	require.NoError(t, err)
	defer view.Delete()

	cols := view.ToColumns()
	require.Len(t, cols["big"], 1)
	assert.Equal(t, strings.Repeat(part, 4), cols["big"][0])
}

func TestViewProjection(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	view, err := table.View(
		WithColumns("b", "computed"),
		WithExpression("computed", `"a" + "b"`),
	)
	require.NoError(t, err)
	defer view.Delete()

	cols := view.ToColumns()
	assert.Len(t, cols, 2)
	assert.Contains(t, cols, "b")
	assert.Contains(t, cols, "computed")
	assert.NotContains(t, cols, "a")

	// Projection also bounds Schema, but not ExpressionSchema.
	assert.Len(t, view.Schema(), 2)
}

func TestViewEmptyProjection(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	view, err := table.View(
		WithColumns(),
		WithExpression("computed", `"a" + "b"`),
	)
	require.NoError(t, err)
	defer view.Delete()

	assert.Empty(t, view.ToColumns())
	assert.Equal(t, map[string]types.Type{"computed": types.Float},
		view.ExpressionSchema())
}

func TestViewFilter(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	view, err := table.View(WithFilter("a", ">", int64(2)))
	require.NoError(t, err)
	defer view.Delete()

	assert.Equal(t, 2, view.NumRows())
	cols := view.ToColumns()
	assert.Equal(t, []interface{}{int64(3), int64(4)}, cols["a"])
}

func TestViewFilterOnExpression(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	view, err := table.View(
		WithExpression("computed", `"a" + "b"`),
		WithFilter("computed", ">=", 10.0),
	)
	require.NoError(t, err)
	defer view.Delete()

	cols := view.ToColumns()
	assert.Equal(t, []interface{}{10.0, 12.0}, cols["computed"])
}

func TestViewFilterUnknownColumnRejected(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()
	_, err := table.View(WithFilter("nope", "==", 1))
	require.Error(t, err)
}

func TestViewSort(t *testing.T) {
	table, err := FromColumns(map[string][]interface{}{
		"v": {int64(3), int64(1), int64(2)},
	})
	require.NoError(t, err)
	defer table.Close()

	asc, err := table.View(WithSort("v", "asc"))
	require.NoError(t, err)
	defer asc.Delete()
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(3)}, asc.ToColumns()["v"])

	desc, err := table.View(WithSort("v", "desc"))
	require.NoError(t, err)
	defer desc.Delete()
	assert.Equal(t, []interface{}{int64(3), int64(2), int64(1)}, desc.ToColumns()["v"])
}

func groupedTable(t *testing.T) *Table {
	t.Helper()
	table, err := FromColumns(map[string][]interface{}{
		"cat": {"a", "a", "b"},
		"val": {int64(1), int64(2), int64(10)},
	})
	require.NoError(t, err)
	return table
}

func TestViewGroupBy(t *testing.T) {
	table := groupedTable(t)
	defer table.Close()

	view, err := table.View(
		WithColumns("val"),
		WithGroupBy("cat"),
	)
	require.NoError(t, err)
	defer view.Delete()

	cols := view.ToColumns()
	// Root first, then siblings ascending by key.
	assert.Equal(t, []interface{}{
		[]interface{}{},
		[]interface{}{"a"},
		[]interface{}{"b"},
	}, cols[RowPathColumn])
	assert.Equal(t, []interface{}{int64(13), int64(3), int64(10)}, cols["val"])
	assert.Equal(t, 3, view.NumRows())
}

func TestViewGroupByAggregateOverride(t *testing.T) {
	table := groupedTable(t)
	defer table.Close()

	view, err := table.View(
		WithColumns("val"),
		WithGroupBy("cat"),
		WithAggregate("val", aggregator.Avg),
	)
	require.NoError(t, err)
	defer view.Delete()

	cols := view.ToColumns()
	assert.InDelta(t, 13.0/3.0, cols["val"][0].(float64), 1e-12)
	assert.Equal(t, 1.5, cols["val"][1])
	assert.Equal(t, 10.0, cols["val"][2])
}

func TestViewGroupByTwoLevels(t *testing.T) {
	table, err := FromColumns(map[string][]interface{}{
		"region": {"east", "east", "west"},
		"cat":    {"a", "b", "a"},
		"val":    {int64(1), int64(2), int64(4)},
	})
	require.NoError(t, err)
	defer table.Close()

	view, err := table.View(
		WithColumns("val"),
		WithGroupBy("region", "cat"),
	)
	require.NoError(t, err)
	defer view.Delete()

	cols := view.ToColumns()
	assert.Equal(t, []interface{}{
		[]interface{}{},
		[]interface{}{"east"},
		[]interface{}{"east", "a"},
		[]interface{}{"east", "b"},
		[]interface{}{"west"},
		[]interface{}{"west", "a"},
	}, cols[RowPathColumn])
	assert.Equal(t, []interface{}{
		int64(7), int64(3), int64(1), int64(2), int64(4), int64(4),
	}, cols["val"])
}

func TestViewGroupedClearKeepsRootRow(t *testing.T) {
	table := groupedTable(t)
	defer table.Close()

	view, err := table.View(WithColumns("val"), WithGroupBy("cat"))
	require.NoError(t, err)
	defer view.Delete()

	require.NoError(t, table.Clear())
	cols := view.ToColumns()
	require.Len(t, cols[RowPathColumn], 1)
	assert.Equal(t, []interface{}{}, cols[RowPathColumn][0])
	assert.Equal(t, []interface{}{nil}, cols["val"])
}

func TestViewWeightedMean(t *testing.T) {
	table, err := FromColumns(map[string][]interface{}{
		"price":  {10.0, 20.0},
		"volume": {1.0, 3.0},
	})
	require.NoError(t, err)
	defer table.Close()

	view, err := table.View(
		WithColumns("price"),
		WithGroupBy("price"), // any grouping; check the root row
		WithWeightedMean("price", "volume"),
	)
	require.NoError(t, err)
	defer view.Delete()

	cols := view.ToColumns()
	assert.Equal(t, 17.5, cols["price"][0])
}

func TestViewSplitBy(t *testing.T) {
	table, err := FromColumns(map[string][]interface{}{
		"cat": {"x", "y"},
		"val": {int64(1), int64(2)},
	})
	require.NoError(t, err)
	defer table.Close()

	view, err := table.View(
		WithColumns("val"),
		WithSplitBy("cat"),
	)
	require.NoError(t, err)
	defer view.Delete()

	cols := view.ToColumns()
	assert.Equal(t, []interface{}{int64(1), nil}, cols["x|val"])
	assert.Equal(t, []interface{}{nil, int64(2)}, cols["y|val"])
}

func TestViewGroupBySplitBy(t *testing.T) {
	table, err := FromColumns(map[string][]interface{}{
		"region": {"east", "east", "west"},
		"cat":    {"x", "y", "x"},
		"val":    {int64(1), int64(2), int64(4)},
	})
	require.NoError(t, err)
	defer table.Close()

	view, err := table.View(
		WithColumns("val"),
		WithGroupBy("region"),
		WithSplitBy("cat"),
	)
	require.NoError(t, err)
	defer view.Delete()

	cols := view.ToColumns()
	assert.Equal(t, []interface{}{
		[]interface{}{},
		[]interface{}{"east"},
		[]interface{}{"west"},
	}, cols[RowPathColumn])
	assert.Equal(t, []interface{}{int64(5), int64(1), int64(4)}, cols["x|val"])
	assert.Equal(t, []interface{}{int64(2), int64(2), nil}, cols["y|val"])
}

func TestViewConcurrentReadDuringUpdate(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	view, err := table.View(WithExpression("computed", `"a" + "b"`))
	require.NoError(t, err)
	defer view.Delete()

	// Mutations hold the table write lock while views recompute; reads
	// must take the table lock before the view lock or the two wedge
	// against each other.
	const writes = 200
	var wg sync.WaitGroup
	for i := 0; i < writes; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, table.Update(map[string][]interface{}{
				"a": {int64(1)},
				"b": {int64(2)},
			}))
		}()
		go func() {
			defer wg.Done()
			view.ToColumns()
			view.NumRows()
		}()
	}
	wg.Wait()

	cols := view.ToColumns()
	require.Len(t, cols["computed"], 4+writes)
	for _, cell := range cols["computed"][4:] {
		assert.Equal(t, 3.0, cell)
	}
}

func TestViewGroupedSchemaReportsAggregateTypes(t *testing.T) {
	table, err := FromColumns(map[string][]interface{}{
		"cat": {"a", "b"},
		"val": {int64(1), int64(2)},
	})
	require.NoError(t, err)
	defer table.Close()

	view, err := table.View(WithGroupBy("cat"))
	require.NoError(t, err)
	defer view.Delete()

	// Default aggregates: integer sum stays integer, last keeps the
	// column type.
	schema := view.Schema()
	assert.Equal(t, types.Integer, schema["val"])
	assert.Equal(t, types.String, schema["cat"])

	counted, err := table.View(
		WithGroupBy("cat"),
		WithAggregate("val", aggregator.Count),
		WithAggregate("cat", aggregator.Avg),
	)
	require.NoError(t, err)
	defer counted.Delete()

	schema = counted.Schema()
	assert.Equal(t, types.Integer, schema["val"])
	assert.Equal(t, types.Float, schema["cat"])

	// Ungrouped views keep reporting leaf types.
	flat, err := table.View()
	require.NoError(t, err)
	defer flat.Delete()
	assert.Equal(t, types.Integer, flat.Schema()["val"])
}

func TestViewDeleteStopsUpdates(t *testing.T) {
	table := newNumericTable(t)
	defer table.Close()

	view, err := table.View(WithExpression("computed", `"a" + "b"`))
	require.NoError(t, err)
	assert.Equal(t, 1, table.NumViews())

	view.Delete()
	assert.Equal(t, 0, table.NumViews())

	// Mutations after deletion no longer reach the view.
	require.NoError(t, table.Update(map[string][]interface{}{
		"a": {int64(1)}, "b": {int64(1)},
	}))
}

func TestViewOnIndexedTable(t *testing.T) {
	table, err := FromColumns(map[string][]interface{}{
		"id":  {int64(1), int64(2)},
		"val": {int64(10), int64(20)},
	}, WithIndex("id"))
	require.NoError(t, err)
	defer table.Close()

	view, err := table.View(WithExpression("doubled", `"val" * 2`))
	require.NoError(t, err)
	defer view.Delete()

	require.NoError(t, table.Update(map[string][]interface{}{
		"id":  {int64(2)},
		"val": {int64(50)},
	}))
	cols := view.ToColumns()
	assert.Equal(t, []interface{}{20.0, 100.0}, cols["doubled"])
}

func TestViewSubstringExpression(t *testing.T) {
	table, err := FromColumns(map[string][]interface{}{
		"s": {"hello world", "ab"},
	})
	require.NoError(t, err)
	defer table.Close()

	view, err := table.View(WithExpression("sub", `substring("s", 0, 5)`))
	require.NoError(t, err)
	defer view.Delete()

	cols := view.ToColumns()
	assert.Equal(t, "hello", cols["sub"][0])
	// Out-of-range extraction is null.
	assert.Nil(t, cols["sub"][1])
}
