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
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/prismview/prism/aggregator"
	"github.com/prismview/prism/arena"
	"github.com/prismview/prism/condition"
	"github.com/prismview/prism/expr"
	"github.com/prismview/prism/functions"
	"github.com/prismview/prism/logger"
	"github.com/prismview/prism/types"
)

// RowPathColumn is the reserved output column carrying each grouped row's
// key path from root to leaf. The root aggregate row has an empty path.
const RowPathColumn = "__ROW_PATH__"

// View is one independently configured window over a table: its own
// expression set, projection, grouping, pivot, filter and sort. Expression
// outputs live in a per-view arena, so identical aliases or locals on two
// views never share storage.
type View struct {
	id    string
	table *Table
	arena *arena.Arena
	cfg   viewConfig

	programs  []*expr.Program // topologically ordered
	exprOrder []string        // declaration order, aliases deduped
	exprTypes map[string]types.Type

	filter *condition.Filter

	// mu guards outputs and deleted. Lock order: the table lock always
	// comes before mu. Mutations hold the table write lock while apply
	// takes mu; readers take the table read lock first for the same
	// reason.
	mu      sync.Mutex
	outputs map[string][]types.Value
	deleted bool
}

// View builds a view over the table. Construction compiles every declared
// expression, rejects alias collisions with projected real columns, runs
// the initial full recomputation, and registers the view as a dependent of
// the table. A failed construction leaves no partial registration.
func (t *Table) View(opts ...ViewOption) (*View, error) {
	var cfg viewConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, fmt.Errorf("view: table is closed")
	}

	v := &View{
		id:        uuid.NewString(),
		table:     t,
		arena:     arena.New(),
		cfg:       cfg,
		exprTypes: make(map[string]types.Type),
		outputs:   make(map[string][]types.Value),
	}

	sources, err := v.resolveAliases()
	if err != nil {
		return nil, err
	}
	if err := v.compilePrograms(sources); err != nil {
		return nil, err
	}
	if err := v.validateConfig(); err != nil {
		return nil, err
	}

	filter, err := condition.Compile(cfg.filters)
	if err != nil {
		return nil, err
	}
	v.filter = filter

	v.recompute(0, t.sizeLocked())
	t.registerView(v)
	logger.Debug("view %s: created with %d expressions", v.id, len(v.programs))
	return v, nil
}

// resolveAliases flattens the declared expressions to one source per
// alias, last declaration winning, and rejects aliases that would shadow a
// projected real column.
func (v *View) resolveAliases() (map[string]string, error) {
	sources := make(map[string]string)
	for _, src := range v.cfg.exprs {
		alias := src.Alias
		if alias == "" {
			alias, _ = expr.ExtractAlias(src.Source)
		}
		if _, seen := sources[alias]; !seen {
			v.exprOrder = append(v.exprOrder, alias)
		}
		sources[alias] = src.Source
	}

	projected := v.projectedRealColumns()
	for _, alias := range v.exprOrder {
		for _, name := range projected {
			if alias == name {
				return nil, fmt.Errorf("expression %q cannot overwrite an existing column.", alias)
			}
		}
	}
	return sources, nil
}

func (v *View) projectedRealColumns() []string {
	if !v.cfg.columnsSet {
		return v.table.names
	}
	var projected []string
	for _, name := range v.cfg.columns {
		if _, ok := v.table.schema[name]; ok {
			projected = append(projected, name)
		}
	}
	return projected
}

// compilePrograms orders the expression set by alias dependencies and
// compiles each program with earlier aliases visible as input columns. A
// dependency cycle is a construction error.
func (v *View) compilePrograms(sources map[string]string) error {
	deps := make(map[string][]string, len(sources))
	for alias, source := range sources {
		refs, perr := expr.ScanColumns(source)
		if perr != nil {
			return fmt.Errorf("expression %q: %s", alias, perr.Message)
		}
		for _, ref := range refs {
			if _, isExpr := sources[ref]; isExpr && ref != alias {
				deps[alias] = append(deps[alias], ref)
			} else if ref == alias {
				return fmt.Errorf("expression %q: dependency cycle", alias)
			}
		}
	}

	order, ok := topoSort(v.exprOrder, deps)
	if !ok {
		return fmt.Errorf("expression dependency cycle")
	}

	columnTypes := make(map[string]types.Type, len(v.table.schema)+len(sources))
	for name, typ := range v.table.schema {
		columnTypes[name] = typ
	}
	for _, alias := range order {
		prog, perr := expr.Compile(sources[alias], columnTypes)
		if perr != nil {
			return fmt.Errorf("expression %q: %s", alias, perr.Error())
		}
		// Explicit aliases override the source-derived one.
		if prog.Alias() != alias {
			prog = renameProgram(prog, alias, sources[alias], columnTypes)
		}
		v.programs = append(v.programs, prog)
		v.exprTypes[alias] = prog.ResultType()
		columnTypes[alias] = prog.ResultType()
	}
	return nil
}

// renameProgram recompiles under an alias comment so the program carries
// the explicit alias.
func renameProgram(p *expr.Program, alias, source string, columnTypes map[string]types.Type) *expr.Program {
	_, body := expr.ExtractAlias(source)
	prog, err := expr.Compile("// "+alias+"\n"+body, columnTypes)
	if err != nil {
		return p
	}
	return prog
}

// topoSort orders aliases so every dependency precedes its dependents.
func topoSort(order []string, deps map[string][]string) ([]string, bool) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	state := make(map[string]int, len(order))
	var sorted []string
	var visit func(alias string) bool
	visit = func(alias string) bool {
		switch state[alias] {
		case gray:
			return false
		case black:
			return true
		}
		state[alias] = gray
		for _, dep := range deps[alias] {
			if !visit(dep) {
				return false
			}
		}
		state[alias] = black
		sorted = append(sorted, alias)
		return true
	}
	for _, alias := range order {
		if !visit(alias) {
			return nil, false
		}
	}
	return sorted, true
}

// validateConfig checks that every configured column reference names a
// real column or a declared expression alias.
func (v *View) validateConfig() error {
	check := func(kind, name string) error {
		if _, ok := v.columnType(name); !ok {
			return fmt.Errorf("view: %s column %q does not exist", kind, name)
		}
		return nil
	}
	for _, name := range v.cfg.groupBy {
		if err := check("group_by", name); err != nil {
			return err
		}
	}
	for _, name := range v.cfg.splitBy {
		if err := check("split_by", name); err != nil {
			return err
		}
	}
	for _, s := range v.cfg.sorts {
		if err := check("sort", s.Column); err != nil {
			return err
		}
	}
	for _, f := range v.cfg.filters {
		if err := check("filter", f.Column); err != nil {
			return err
		}
	}
	for col, weight := range v.cfg.weights {
		if err := check("aggregate", col); err != nil {
			return err
		}
		if err := check("weight", weight); err != nil {
			return err
		}
	}
	return nil
}

func (v *View) columnType(name string) (types.Type, bool) {
	if typ, ok := v.table.schema[name]; ok {
		return typ, true
	}
	typ, ok := v.exprTypes[name]
	return typ, ok
}

// columnValue reads one cell from a real column or a computed expression
// output. Caller holds the table read lock or the write lock of an
// in-flight mutation.
func (v *View) columnValue(name string, row int) types.Value {
	if col, ok := v.table.cols[name]; ok {
		return col[row]
	}
	return v.outputs[name][row]
}

// programSource adapts the view's column storage to the VM's input
// contract for one program.
type programSource struct {
	view  *View
	names []string
}

func (s programSource) NumRows() int {
	return s.view.table.sizeLocked()
}

func (s programSource) Value(col, row int) types.Value {
	return s.view.columnValue(s.names[col], row)
}

// apply reacts to one table mutation. Called with the table write lock
// held by the mutating goroutine; per view, all recomputation finishes
// before the mutation returns.
func (v *View) apply(kind mutationKind, oldSize, newSize int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.deleted {
		return
	}
	switch kind {
	case mutAppend:
		v.recompute(oldSize, newSize)
	case mutFull:
		v.invalidate()
		v.recompute(0, newSize)
	case mutClear:
		v.invalidate()
	}
}

// invalidate drops every computed expression cell.
func (v *View) invalidate() {
	for alias, out := range v.outputs {
		releaseColumn(out)
		v.outputs[alias] = nil
	}
}

// recompute runs every program over rows [start, end) in dependency
// order. String results are retained into the view's output columns; the
// pass scratch is released afterwards, so superseded intermediates free
// their arena pages.
func (v *View) recompute(start, end int) {
	if start >= end {
		return
	}
	ctx := functions.NewContext(v.arena)
	defer ctx.ReleaseScratch()

	for _, prog := range v.programs {
		alias := prog.Alias()
		out := v.outputs[alias]
		if len(out) > end {
			releaseColumn(out[end:])
			out = out[:end]
		}
		for len(out) < end {
			out = append(out, types.NewNull(prog.ResultType()))
		}
		src := programSource{view: v, names: prog.Columns()}
		err := prog.Run(ctx, src, start, end, func(row int, val types.Value) error {
			if val.Type == types.String && !val.Null {
				val.S = val.S.Retain()
			}
			old := out[row]
			if old.Type == types.String && !old.Null {
				old.S.Release()
			}
			out[row] = val
			return nil
		})
		if err != nil {
			logger.Error("view %s: expression %q: %v", v.id, alias, err)
		}
		v.outputs[alias] = out
	}
}

// Delete synchronously unregisters the view from its table and releases
// every arena reference held by its computed outputs. Later table
// mutations no longer reach the view.
func (v *View) Delete() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.deleted {
		return
	}
	v.deleted = true
	v.table.unregisterView(v.id)
	v.invalidate()
	logger.Debug("view %s: deleted", v.id)
}

// Schema returns the output column types after projection: projected real
// columns plus this view's expression columns. Grouped views report each
// column's aggregate result type instead of its leaf type.
func (v *View) Schema() map[string]types.Type {
	v.mu.Lock()
	defer v.mu.Unlock()
	grouped := len(v.cfg.groupBy) > 0
	schema := make(map[string]types.Type)
	for _, name := range v.outputColumns() {
		typ, ok := v.columnType(name)
		if !ok {
			continue
		}
		if grouped {
			typ = aggregator.ResultType(v.aggregateTypeOf(name), typ)
		}
		schema[name] = typ
	}
	return schema
}

// ExpressionSchema returns every declared expression's result type,
// regardless of projection.
func (v *View) ExpressionSchema() map[string]types.Type {
	v.mu.Lock()
	defer v.mu.Unlock()
	schema := make(map[string]types.Type, len(v.exprTypes))
	for alias, typ := range v.exprTypes {
		schema[alias] = typ
	}
	return schema
}

// outputColumns lists the projected output column names in order.
func (v *View) outputColumns() []string {
	if v.cfg.columnsSet {
		var names []string
		for _, name := range v.cfg.columns {
			if _, ok := v.columnType(name); ok {
				names = append(names, name)
			}
		}
		return names
	}
	names := make([]string, 0, len(v.table.names)+len(v.exprOrder))
	names = append(names, v.table.names...)
	names = append(names, v.exprOrder...)
	return names
}

// NumRows reports the view's current output row count after filtering and
// grouping.
func (v *View) NumRows() int {
	v.table.mu.RLock()
	defer v.table.mu.RUnlock()
	v.mu.Lock()
	defer v.mu.Unlock()

	rows := v.filteredRows()
	if len(v.cfg.groupBy) == 0 {
		return len(rows)
	}
	root := v.buildTree(rows)
	return countNodes(root)
}

// ToColumns reads the view in columnar form: output column name to
// ordered exported values, nulls as nil. Grouped views lead with the
// reserved row-path column, root first, siblings in ascending key order.
func (v *View) ToColumns() map[string][]interface{} {
	v.table.mu.RLock()
	defer v.table.mu.RUnlock()
	v.mu.Lock()
	defer v.mu.Unlock()

	columns := v.outputColumns()
	if len(columns) == 0 {
		return map[string][]interface{}{}
	}

	rows := v.filteredRows()
	if len(v.cfg.groupBy) > 0 {
		return v.readGrouped(rows, columns)
	}
	if len(v.cfg.splitBy) > 0 {
		return v.readSplit(rows, columns)
	}
	rows = v.sortRows(rows)

	out := make(map[string][]interface{}, len(columns))
	for _, name := range columns {
		cells := make([]interface{}, len(rows))
		for i, row := range rows {
			cells[i] = v.columnValue(name, row).Export()
		}
		out[name] = cells
	}
	return out
}

// filteredRows returns the leaf row indexes passing the view filter.
func (v *View) filteredRows() []int {
	size := v.table.sizeLocked()
	rows := make([]int, 0, size)
	for row := 0; row < size; row++ {
		if v.filter != nil {
			r := row
			cols := v.filter.Columns()
			if !v.filter.Matches(func(clause int) interface{} {
				return v.columnValue(cols[clause], r).Export()
			}) {
				continue
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func (v *View) sortRows(rows []int) []int {
	if len(v.cfg.sorts) == 0 {
		return rows
	}
	sorted := make([]int, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		for _, key := range v.cfg.sorts {
			a := v.columnValue(key.Column, sorted[i])
			b := v.columnValue(key.Column, sorted[j])
			c := a.Compare(b)
			if key.Descending {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
	return sorted
}

// groupNode is one node of the grouping tree. Children key on the
// formatted group value; emit order sorts them ascending by value.
type groupNode struct {
	key      types.Value
	hasKey   bool
	rows     []int
	children map[string]*groupNode
}

func newGroupNode() *groupNode {
	return &groupNode{children: make(map[string]*groupNode)}
}

func (v *View) buildTree(rows []int) *groupNode {
	root := newGroupNode()
	for _, row := range rows {
		root.rows = append(root.rows, row)
		node := root
		for _, keyCol := range v.cfg.groupBy {
			key := v.columnValue(keyCol, row)
			id := key.Format()
			child, ok := node.children[id]
			if !ok {
				child = newGroupNode()
				child.key = key
				child.hasKey = true
				node.children[id] = child
			}
			child.rows = append(child.rows, row)
			node = child
		}
	}
	return root
}

func countNodes(n *groupNode) int {
	count := 1
	for _, child := range n.children {
		count += countNodes(child)
	}
	return count
}

// flatten emits the tree root-first with ascending sibling keys.
func flatten(n *groupNode, path []interface{}, emit func(node *groupNode, path []interface{})) {
	emit(n, path)
	keys := make([]*groupNode, 0, len(n.children))
	for _, child := range n.children {
		keys = append(keys, child)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].key.Compare(keys[j].key) < 0
	})
	for _, child := range keys {
		flatten(child, append(path, child.key.Export()), emit)
	}
}

func (v *View) readGrouped(rows []int, columns []string) map[string][]interface{} {
	splitKeys := v.splitKeys(rows)

	out := make(map[string][]interface{})
	out[RowPathColumn] = nil

	outputCols := v.groupedOutputColumns(columns, splitKeys)
	for _, c := range outputCols {
		out[c.name] = nil
	}

	empty := v.table.sizeLocked() == 0 || len(rows) == 0
	flatten(v.buildTree(rows), nil, func(node *groupNode, path []interface{}) {
		pathCopy := make([]interface{}, len(path))
		copy(pathCopy, path)
		out[RowPathColumn] = append(out[RowPathColumn], pathCopy)
		for _, c := range outputCols {
			if empty {
				// A cleared table still reports the root aggregate row,
				// with null aggregates.
				out[c.name] = append(out[c.name], nil)
				continue
			}
			out[c.name] = append(out[c.name], v.aggregate(node.rows, c))
		}
	})
	return out
}

// outputColumn is one aggregated output column: a source column, an
// optional pivot restriction, and the prototype accumulator cloned per
// group.
type outputColumn struct {
	name     string
	source   string
	splitKey string // "" when the view has no split_by
	proto    aggregator.AggregatorFunction
}

func (v *View) groupedOutputColumns(columns []string, splitKeys []string) []outputColumn {
	var cols []outputColumn
	if len(v.cfg.splitBy) == 0 {
		for _, name := range columns {
			cols = append(cols, outputColumn{name: name, source: name, proto: v.aggregatorFor(name)})
		}
		return cols
	}
	for _, key := range splitKeys {
		for _, name := range columns {
			cols = append(cols, outputColumn{name: key + "|" + name, source: name, splitKey: key, proto: v.aggregatorFor(name)})
		}
	}
	return cols
}

// aggregateTypeOf resolves which aggregate applies to an output column:
// the configured override, or the column type's default.
func (v *View) aggregateTypeOf(source string) aggregator.AggregateType {
	if aggType, ok := v.cfg.aggregates[source]; ok {
		return aggType
	}
	typ, _ := v.columnType(source)
	return aggregator.DefaultFor(typ)
}

// aggregatorFor builds the prototype accumulator for one source column.
func (v *View) aggregatorFor(source string) aggregator.AggregatorFunction {
	agg := aggregator.Create(v.aggregateTypeOf(source))
	if agg == nil {
		typ, _ := v.columnType(source)
		agg = aggregator.Create(aggregator.DefaultFor(typ))
	}
	return agg
}

// splitKeys lists the distinct pivot keys over the given rows, ascending.
func (v *View) splitKeys(rows []int) []string {
	if len(v.cfg.splitBy) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var keys []string
	for _, row := range rows {
		key := v.splitKeyOf(row)
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (v *View) splitKeyOf(row int) string {
	parts := make([]string, len(v.cfg.splitBy))
	for i, name := range v.cfg.splitBy {
		parts[i] = v.columnValue(name, row).Format()
	}
	return strings.Join(parts, "|")
}

// aggregate folds the column's leaf values for one group into a single
// exported value, cloning a fresh accumulator from the column's prototype.
func (v *View) aggregate(rows []int, c outputColumn) interface{} {
	agg := c.proto.New()
	weighted, _ := agg.(aggregator.WeightedAggregator)
	weightCol := v.cfg.weights[c.source]

	for _, row := range rows {
		if c.splitKey != "" && v.splitKeyOf(row) != c.splitKey {
			continue
		}
		val := v.columnValue(c.source, row)
		if weighted != nil && weightCol != "" {
			weighted.AddWeighted(val, v.columnValue(weightCol, row))
		} else {
			agg.Add(val)
		}
	}
	return agg.Result().Export()
}

// readSplit reads an ungrouped pivoted view: every output column fans out
// per distinct pivot key, and each leaf row carries values only under its
// own key.
func (v *View) readSplit(rows []int, columns []string) map[string][]interface{} {
	rows = v.sortRows(rows)
	splitKeys := v.splitKeys(rows)

	out := make(map[string][]interface{})
	for _, key := range splitKeys {
		for _, name := range columns {
			out[key+"|"+name] = make([]interface{}, len(rows))
		}
	}
	for i, row := range rows {
		key := v.splitKeyOf(row)
		for _, name := range columns {
			out[key+"|"+name][i] = v.columnValue(name, row).Export()
		}
	}
	return out
}
