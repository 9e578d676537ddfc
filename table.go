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
	"fmt"
	"sort"
	"sync"

	"github.com/prismview/prism/arena"
	"github.com/prismview/prism/logger"
	"github.com/prismview/prism/types"
)

// mutationKind tells dependent views how much of their state a table
// mutation invalidated.
type mutationKind int

const (
	// mutAppend appended rows at the end; views recompute the new range only.
	mutAppend mutationKind = iota
	// mutFull invalidated arbitrary rows (replace, upsert, ring wrap).
	mutFull
	// mutClear removed every row.
	mutClear
)

// Table is an ordered set of typed columns with streaming ingestion and
// dependent views. Mutations are serialized: a view never observes a
// partially applied update, and every dependent view is fully recomputed
// before a mutation call returns.
type Table struct {
	mu     sync.RWMutex
	arena  *arena.Arena
	names  []string
	schema map[string]types.Type
	cols   map[string][]types.Value

	index   string
	keyRows map[interface{}]int
	limit   int
	next    int
	wrapped bool

	viewsMu sync.RWMutex
	views   map[string]*View

	closed bool
}

// NewTable creates an empty table with the given column types.
func NewTable(schema map[string]types.Type, opts ...TableOption) (*Table, error) {
	if len(schema) == 0 {
		return nil, fmt.Errorf("table: empty schema")
	}
	t := &Table{
		arena:  arena.New(),
		schema: make(map[string]types.Type, len(schema)),
		cols:   make(map[string][]types.Value, len(schema)),
		views:  make(map[string]*View),
	}
	for name, typ := range schema {
		t.names = append(t.names, name)
		t.schema[name] = typ
		t.cols[name] = nil
	}
	sort.Strings(t.names)
	for _, opt := range opts {
		opt(t)
	}
	if t.index != "" {
		if _, ok := t.schema[t.index]; !ok {
			return nil, fmt.Errorf("table: index column %q does not exist", t.index)
		}
		t.keyRows = make(map[interface{}]int)
	}
	if t.limit < 0 {
		return nil, fmt.Errorf("table: negative row limit %d", t.limit)
	}
	if t.index != "" && t.limit > 0 {
		return nil, fmt.Errorf("table: index and limit are mutually exclusive")
	}
	return t, nil
}

// FromColumns creates a table whose schema is inferred from the data and
// loads the data as the first update.
func FromColumns(data map[string][]interface{}, opts ...TableOption) (*Table, error) {
	schema := make(map[string]types.Type, len(data))
	for name, cells := range data {
		typ := types.Unknown
		for _, cell := range cells {
			if cell == nil {
				continue
			}
			inferred, ok := types.InferType(cell)
			if !ok {
				return nil, fmt.Errorf("table: cannot infer type of column %q", name)
			}
			typ = inferred
			break
		}
		if typ == types.Unknown {
			typ = types.Float
		}
		schema[name] = typ
	}
	t, err := NewTable(schema, opts...)
	if err != nil {
		return nil, err
	}
	if err := t.Update(data); err != nil {
		return nil, err
	}
	return t, nil
}

// Size returns the current row count.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sizeLocked()
}

func (t *Table) sizeLocked() int {
	return len(t.cols[t.names[0]])
}

// Schema returns a copy of the column type map.
func (t *Table) Schema() map[string]types.Type {
	t.mu.RLock()
	defer t.mu.RUnlock()
	schema := make(map[string]types.Type, len(t.schema))
	for name, typ := range t.schema {
		schema[name] = typ
	}
	return schema
}

// ColumnNames returns the column names in output order.
func (t *Table) ColumnNames() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, len(t.names))
	copy(names, t.names)
	return names
}

// Update appends columnar data. Columns omitted from the batch fill with
// nulls; provided columns must share one length. On an indexed table, rows
// whose key already exists overwrite the existing row.
func (t *Table) Update(data map[string][]interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("table: closed")
	}

	batch, n, err := t.convertBatch(data)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	oldSize := t.sizeLocked()
	kind := mutAppend

	for row := 0; row < n; row++ {
		switch {
		case t.index != "":
			if t.upsertRowLocked(batch, row) {
				kind = mutFull
			}
		case t.limit > 0 && t.sizeLocked() >= t.limit:
			t.overwriteRowLocked(batch, row, t.next)
			t.next = (t.next + 1) % t.limit
			t.wrapped = true
			kind = mutFull
		default:
			t.appendRowLocked(batch, row)
		}
	}
	releaseBatch(batch)

	t.notifyLocked(kind, oldSize, t.sizeLocked())
	return nil
}

// UpdateRows appends row-oriented data.
func (t *Table) UpdateRows(rows []map[string]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	data := make(map[string][]interface{})
	for i, row := range rows {
		for name, cell := range row {
			cells, ok := data[name]
			if !ok {
				cells = make([]interface{}, len(rows))
				data[name] = cells
			}
			cells[i] = cell
		}
	}
	return t.Update(data)
}

// Replace swaps the table contents wholesale. Every dependent view
// recomputes all expression columns over the new row set.
func (t *Table) Replace(data map[string][]interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("table: closed")
	}

	batch, n, err := t.convertBatch(data)
	if err != nil {
		return err
	}

	oldSize := t.sizeLocked()
	t.dropRowsLocked()
	for row := 0; row < n; row++ {
		t.appendRowLocked(batch, row)
	}
	releaseBatch(batch)

	t.notifyLocked(mutFull, oldSize, t.sizeLocked())
	return nil
}

// Clear removes every row. Schema and dependent views are preserved.
func (t *Table) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("table: closed")
	}
	oldSize := t.sizeLocked()
	t.dropRowsLocked()
	t.notifyLocked(mutClear, oldSize, 0)
	return nil
}

// Close deletes every dependent view and drops the table's storage.
func (t *Table) Close() {
	t.viewsMu.RLock()
	views := make([]*View, 0, len(t.views))
	for _, v := range t.views {
		views = append(views, v)
	}
	t.viewsMu.RUnlock()
	for _, v := range views {
		v.Delete()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropRowsLocked()
	t.closed = true
}

// convertBatch validates one mutation batch against the schema and
// converts it to typed values. Interned string cells belong to the batch
// until rows adopt them.
func (t *Table) convertBatch(data map[string][]interface{}) (map[string][]types.Value, int, error) {
	n := -1
	for name, cells := range data {
		if _, ok := t.schema[name]; !ok {
			return nil, 0, fmt.Errorf("table: unknown column %q", name)
		}
		if n == -1 {
			n = len(cells)
		} else if len(cells) != n {
			return nil, 0, fmt.Errorf("table: ragged update: column %q has %d rows, want %d", name, len(cells), n)
		}
	}
	if n <= 0 {
		return nil, 0, nil
	}

	batch := make(map[string][]types.Value, len(t.names))
	for _, name := range t.names {
		typ := t.schema[name]
		col := make([]types.Value, n)
		cells, provided := data[name]
		for row := 0; row < n; row++ {
			if !provided {
				col[row] = types.NewNull(typ)
				continue
			}
			v, err := types.Convert(cells[row], typ, t.arena)
			if err != nil {
				releaseBatch(batch)
				releaseColumn(col[:row])
				return nil, 0, fmt.Errorf("table: column %q row %d: %w", name, row, err)
			}
			col[row] = v
		}
		batch[name] = col
	}
	return batch, n, nil
}

func (t *Table) appendRowLocked(batch map[string][]types.Value, row int) {
	for _, name := range t.names {
		v := batch[name][row]
		if v.Type == types.String && !v.Null {
			v.S = v.S.Retain()
		}
		t.cols[name] = append(t.cols[name], v)
	}
	if t.keyRows != nil {
		key := batch[t.index][row].Export()
		t.keyRows[key] = t.sizeLocked() - 1
	}
}

// upsertRowLocked applies one row of an indexed update. Returns true when
// an existing row was overwritten.
func (t *Table) upsertRowLocked(batch map[string][]types.Value, row int) bool {
	key := batch[t.index][row].Export()
	at, exists := t.keyRows[key]
	if !exists {
		t.appendRowLocked(batch, row)
		return false
	}
	t.overwriteRowLocked(batch, row, at)
	return true
}

func (t *Table) overwriteRowLocked(batch map[string][]types.Value, row, at int) {
	if t.keyRows != nil {
		old := t.cols[t.index][at].Export()
		delete(t.keyRows, old)
	}
	for _, name := range t.names {
		old := t.cols[name][at]
		if old.Type == types.String && !old.Null {
			old.S.Release()
		}
		v := batch[name][row]
		if v.Type == types.String && !v.Null {
			v.S = v.S.Retain()
		}
		t.cols[name][at] = v
	}
	if t.keyRows != nil {
		t.keyRows[batch[t.index][row].Export()] = at
	}
}

func (t *Table) dropRowsLocked() {
	for _, name := range t.names {
		releaseColumn(t.cols[name])
		t.cols[name] = nil
	}
	if t.keyRows != nil {
		t.keyRows = make(map[interface{}]int)
	}
	t.next = 0
	t.wrapped = false
}

// notifyLocked fans a mutation out to every live view. Views share only
// the immutable table snapshot, so they recompute in parallel; the barrier
// join keeps the mutation atomic for readers.
func (t *Table) notifyLocked(kind mutationKind, oldSize, newSize int) {
	t.viewsMu.RLock()
	views := make([]*View, 0, len(t.views))
	for _, v := range t.views {
		views = append(views, v)
	}
	t.viewsMu.RUnlock()
	if len(views) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, v := range views {
		wg.Add(1)
		go func(v *View) {
			defer wg.Done()
			v.apply(kind, oldSize, newSize)
		}(v)
	}
	wg.Wait()
	logger.Debug("table: mutation kind=%d rows=%d views=%d", kind, newSize, len(views))
}

func (t *Table) registerView(v *View) {
	t.viewsMu.Lock()
	defer t.viewsMu.Unlock()
	t.views[v.id] = v
}

func (t *Table) unregisterView(id string) {
	t.viewsMu.Lock()
	defer t.viewsMu.Unlock()
	delete(t.views, id)
}

// NumViews reports the live dependent-view count.
func (t *Table) NumViews() int {
	t.viewsMu.RLock()
	defer t.viewsMu.RUnlock()
	return len(t.views)
}

func releaseBatch(batch map[string][]types.Value) {
	for _, col := range batch {
		releaseColumn(col)
	}
}

func releaseColumn(col []types.Value) {
	for _, v := range col {
		if v.Type == types.String && !v.Null {
			v.S.Release()
		}
	}
}
