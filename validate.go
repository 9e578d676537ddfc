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
	"sort"

	"github.com/prismview/prism/expr"
	"github.com/prismview/prism/types"
)

// ExpressionError is one failed expression's compile error, addressed by a
// 0-indexed line and column into the expression body.
type ExpressionError struct {
	Line         int
	Column       int
	ErrorMessage string
}

// ValidationResult reports a validate-only compilation batch. Every
// attempted alias appears in ExpressionAlias; failed aliases appear in
// Errors and are omitted from ExpressionSchema.
type ValidationResult struct {
	ExpressionSchema map[string]types.Type
	ExpressionAlias  map[string]string
	Errors           map[string]ExpressionError
}

// ValidateExpressions compiles each source independently against the
// table's schema without mutating any table or view state. Aliases come
// from a leading //-comment line or default to the trimmed source.
func (t *Table) ValidateExpressions(sources ...string) *ValidationResult {
	named := make(map[string]string, len(sources))
	order := make([]string, 0, len(sources))
	for _, source := range sources {
		alias, _ := expr.ExtractAlias(source)
		if _, seen := named[alias]; !seen {
			order = append(order, alias)
		}
		named[alias] = source
	}
	return t.validate(order, named)
}

// ValidateNamedExpressions is ValidateExpressions with explicit aliases.
func (t *Table) ValidateNamedExpressions(exprs map[string]string) *ValidationResult {
	order := make([]string, 0, len(exprs))
	for alias := range exprs {
		order = append(order, alias)
	}
	sort.Strings(order)
	return t.validate(order, exprs)
}

func (t *Table) validate(order []string, named map[string]string) *ValidationResult {
	result := &ValidationResult{
		ExpressionSchema: make(map[string]types.Type),
		ExpressionAlias:  make(map[string]string),
		Errors:           make(map[string]ExpressionError),
	}

	t.mu.RLock()
	columnTypes := make(map[string]types.Type, len(t.schema)+len(named))
	for name, typ := range t.schema {
		columnTypes[name] = typ
	}
	t.mu.RUnlock()

	for _, alias := range order {
		result.ExpressionAlias[alias] = named[alias]
	}

	// Expressions may read other aliases as input columns, so compile in
	// dependency order: repeatedly compile every expression whose alias
	// dependencies are already resolved. Whatever survives the fixpoint is
	// part of a cycle and compiles once more to surface its error.
	pending := append([]string(nil), order...)
	for len(pending) > 0 {
		var deferred []string
		progress := false
		for _, alias := range pending {
			if !aliasDepsReady(named[alias], named, columnTypes) {
				deferred = append(deferred, alias)
				continue
			}
			progress = true
			t.compileOne(alias, named[alias], columnTypes, result)
		}
		if !progress {
			for _, alias := range deferred {
				t.compileOne(alias, named[alias], columnTypes, result)
			}
			break
		}
		pending = deferred
	}
	return result
}

// aliasDepsReady reports whether every pending-alias column the source
// references has already compiled.
func aliasDepsReady(source string, named map[string]string, columnTypes map[string]types.Type) bool {
	refs, err := expr.ScanColumns(source)
	if err != nil {
		return true // surface the tokenizer error from Compile
	}
	for _, ref := range refs {
		if _, ok := columnTypes[ref]; ok {
			continue
		}
		if _, isAlias := named[ref]; isAlias {
			return false
		}
	}
	return true
}

func (t *Table) compileOne(alias, source string, columnTypes map[string]types.Type, result *ValidationResult) {
	prog, perr := expr.Compile(source, columnTypes)
	if perr != nil {
		result.Errors[alias] = ExpressionError{
			Line:         perr.Line,
			Column:       perr.Column,
			ErrorMessage: perr.Message,
		}
		return
	}
	result.ExpressionSchema[alias] = prog.ResultType()
	columnTypes[alias] = prog.ResultType()
}
