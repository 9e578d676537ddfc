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

// Package condition compiles view filter clauses into executable row
// predicates.
package condition

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Clause is one [column, operator, value] filter term. Clauses of a filter
// combine with logical AND.
type Clause struct {
	Column string
	Op     string
	Value  interface{}
}

// Filter is a compiled row predicate over exported column values.
type Filter struct {
	program *vm.Program
	columns []string
	values  []interface{}
}

// Compile builds a predicate from filter clauses. Column names and clause
// values bind as numbered environment variables, so arbitrary column names
// (spaces, quotes, operators) never reach the predicate source text.
func Compile(clauses []Clause) (*Filter, error) {
	if len(clauses) == 0 {
		return nil, nil
	}

	f := &Filter{
		columns: make([]string, len(clauses)),
		values:  make([]interface{}, len(clauses)),
	}
	terms := make([]string, len(clauses))
	for i, clause := range clauses {
		f.columns[i] = clause.Column
		f.values[i] = clause.Value
		term, err := renderClause(i, clause)
		if err != nil {
			return nil, err
		}
		terms[i] = term
	}

	source := strings.Join(terms, " && ")
	program, err := expr.Compile(source,
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	f.program = program
	return f, nil
}

func renderClause(i int, clause Clause) (string, error) {
	col := fmt.Sprintf("c%d", i)
	val := fmt.Sprintf("v%d", i)
	switch strings.ToLower(clause.Op) {
	case "==", "=":
		return col + " == " + val, nil
	case "!=":
		return col + " != " + val, nil
	case "<", "<=", ">", ">=":
		return col + " " + clause.Op + " " + val, nil
	case "contains":
		return col + " contains " + val, nil
	case "begins with":
		return col + " startsWith " + val, nil
	case "ends with":
		return col + " endsWith " + val, nil
	case "in":
		return col + " in " + val, nil
	case "not in":
		return "!(" + col + " in " + val + ")", nil
	case "is null":
		return col + " == nil", nil
	case "is not null":
		return col + " != nil", nil
	default:
		return "", fmt.Errorf("filter: unknown operator %q", clause.Op)
	}
}

// Columns returns the column each clause reads, in clause order.
func (f *Filter) Columns() []string {
	return f.columns
}

// Matches evaluates the predicate for one row. row maps a clause index to
// that clause's column value in exported form (nil for null). Runtime
// evaluation errors, such as ordering a null, fail the filter rather than
// the read.
func (f *Filter) Matches(row func(clause int) interface{}) bool {
	env := make(map[string]interface{}, len(f.columns)*2)
	for i := range f.columns {
		env[fmt.Sprintf("c%d", i)] = row(i)
		env[fmt.Sprintf("v%d", i)] = f.values[i]
	}
	result, err := expr.Run(f.program, env)
	if err != nil {
		return false
	}
	b, ok := result.(bool)
	return ok && b
}
