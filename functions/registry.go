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

// Package functions implements the closed builtin function library of the
// expression language. Every function declares its arity and a typed
// signature checked at compile time; execution operates on runtime values
// and follows the engine's null-propagation rules.
package functions

import (
	"fmt"
	"strings"
	"sync"

	"github.com/prismview/prism/types"
)

// FunctionType categorizes builtin functions.
type FunctionType string

const (
	// TypeConversion are the type casts (integer, float, string, ...).
	TypeConversion FunctionType = "conversion"
	// TypeString are plain string operations.
	TypeString FunctionType = "string"
	// TypeRegex are regular-expression operations.
	TypeRegex FunctionType = "regex"
	// TypeDateTime are date/time constructors, bucketing and extraction.
	TypeDateTime FunctionType = "datetime"
	// TypeMath are scalar numeric functions.
	TypeMath FunctionType = "math"
	// TypeConditional are null tests and branching helpers.
	TypeConditional FunctionType = "conditional"
)

// Arg describes one argument position at compile time.
type Arg struct {
	// Type is the inferred type of the argument expression.
	Type types.Type
	// NullLiteral is set when the argument is the untyped null literal.
	NullLiteral bool
	// StrLiteral is non-nil when the argument is a string literal; regex
	// patterns and bucket units require it so the return type and the
	// compiled pattern are known before execution.
	StrLiteral *string
}

// Function is one entry of the builtin library.
type Function interface {
	// Name returns the function name as written in expressions.
	Name() string
	// Type returns the function category.
	Type() FunctionType
	// MinArgs returns the minimum accepted argument count.
	MinArgs() int
	// MaxArgs returns the maximum accepted argument count, -1 if variable.
	MaxArgs() int
	// Check validates argument types at compile time and returns the
	// result type.
	Check(args []Arg) (types.Type, error)
	// Execute runs the function over one row's argument values.
	Execute(ctx *Context, args []types.Value) (types.Value, error)
	// Description returns a short human-readable summary.
	Description() string
}

// Registry holds the closed builtin function table.
type Registry struct {
	mu         sync.RWMutex
	functions  map[string]Function
	categories map[FunctionType][]Function
}

var globalRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		functions:  make(map[string]Function),
		categories: make(map[FunctionType][]Function),
	}
}

// Register adds a function to the registry.
func (r *Registry) Register(fn Function) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.ToLower(fn.Name())
	if _, exists := r.functions[name]; exists {
		return fmt.Errorf("function %s already registered", name)
	}
	r.functions[name] = fn
	r.categories[fn.Type()] = append(r.categories[fn.Type()], fn)
	return nil
}

// Get looks up a function by name.
func (r *Registry) Get(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, exists := r.functions[strings.ToLower(name)]
	return fn, exists
}

// GetByType lists the functions of one category.
func (r *Registry) GetByType(fnType FunctionType) []Function {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.categories[fnType]
}

// ListAll returns a copy of the full function table.
func (r *Registry) ListAll() map[string]Function {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]Function, len(r.functions))
	for name, fn := range r.functions {
		result[name] = fn
	}
	return result
}

// Get looks up a builtin in the global registry.
func Get(name string) (Function, bool) {
	return globalRegistry.Get(name)
}

// GetByType lists the global registry's functions of one category.
func GetByType(fnType FunctionType) []Function {
	return globalRegistry.GetByType(fnType)
}

// ListAll returns the global registry's full function table.
func ListAll() map[string]Function {
	return globalRegistry.ListAll()
}

func mustRegister(fn Function) {
	if err := globalRegistry.Register(fn); err != nil {
		panic(err)
	}
}

func init() {
	// conversion
	mustRegister(NewIntegerFunction())
	mustRegister(NewFloatFunction())
	mustRegister(NewStringFunction())
	mustRegister(NewBooleanFunction())
	mustRegister(NewDateFunction())
	mustRegister(NewDatetimeFunction())

	// string
	mustRegister(NewUpperFunction())
	mustRegister(NewLowerFunction())
	mustRegister(NewLengthFunction())
	mustRegister(NewConcatFunction())
	mustRegister(NewSubstringFunction())

	// regex
	mustRegister(NewMatchFunction())
	mustRegister(NewMatchAllFunction())
	mustRegister(NewSearchFunction())
	mustRegister(NewIndexofFunction())
	mustRegister(NewReplaceFunction())
	mustRegister(NewReplaceAllFunction())

	// datetime
	mustRegister(NewTodayFunction())
	mustRegister(NewNowFunction())
	mustRegister(NewBucketFunction())
	mustRegister(NewDayOfWeekFunction())
	mustRegister(NewMonthOfYearFunction())

	// math
	mustRegister(NewAbsFunction())
	mustRegister(NewSqrtFunction())
	mustRegister(NewFloorFunction())
	mustRegister(NewCeilFunction())
	mustRegister(NewRoundFunction())
	mustRegister(NewPowFunction())
	mustRegister(NewMinFunction())
	mustRegister(NewMaxFunction())

	// conditional
	mustRegister(NewIfFunction())
	mustRegister(NewIsNullFunction())
	mustRegister(NewIsNotNullFunction())
}
