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

// Package aggregator implements the per-column aggregate functions used by
// grouped and pivoted views. Aggregators consume leaf values one at a time
// and report a single value per group; nulls are skipped on input and an
// empty group reports null.
package aggregator

import (
	"math"
	"sort"
	"sync"

	"github.com/prismview/prism/types"
)

// AggregateType names a built-in aggregate.
type AggregateType string

const (
	Sum           AggregateType = "sum"
	Count         AggregateType = "count"
	Avg           AggregateType = "avg"
	Mean          AggregateType = "mean"
	Min           AggregateType = "min"
	Max           AggregateType = "max"
	Low           AggregateType = "low"
	High          AggregateType = "high"
	First         AggregateType = "first"
	Last          AggregateType = "last"
	Unique        AggregateType = "unique"
	Median        AggregateType = "median"
	StdDev        AggregateType = "stddev"
	DistinctCount AggregateType = "distinct count"
	WeightedMean  AggregateType = "weighted mean"
)

// AggregatorFunction accumulates leaf values into one group result.
type AggregatorFunction interface {
	// New returns a fresh accumulator of the same kind.
	New() AggregatorFunction
	// Add feeds one leaf value. Null values are skipped.
	Add(v types.Value)
	// Result reports the aggregate; null when no non-null value was added.
	Result() types.Value
}

// WeightedAggregator is implemented by aggregates that pair each leaf value
// with a weight from another column.
type WeightedAggregator interface {
	AggregatorFunction
	AddWeighted(v, weight types.Value)
}

var (
	registry   = make(map[string]func() AggregatorFunction)
	registryMu sync.RWMutex
)

// Register adds a custom aggregator constructor to the global table.
func Register(name string, constructor func() AggregatorFunction) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = constructor
}

// Create builds an accumulator for the named aggregate. Unknown names
// return nil.
func Create(aggType AggregateType) AggregatorFunction {
	registryMu.RLock()
	constructor, exists := registry[string(aggType)]
	registryMu.RUnlock()
	if exists {
		return constructor()
	}

	switch aggType {
	case Sum:
		return &SumAggregator{}
	case Count:
		return &CountAggregator{}
	case Avg, Mean:
		return &AvgAggregator{}
	case Min, Low:
		return &MinAggregator{}
	case Max, High:
		return &MaxAggregator{}
	case First:
		return &FirstAggregator{}
	case Last:
		return &LastAggregator{}
	case Unique:
		return &UniqueAggregator{}
	case Median:
		return &MedianAggregator{}
	case StdDev:
		return &StdDevAggregator{}
	case DistinctCount:
		return &DistinctCountAggregator{}
	case WeightedMean:
		return &WeightedMeanAggregator{}
	default:
		return nil
	}
}

// DefaultFor picks the default aggregate for a column type: sum for
// numeric columns, last for everything else.
func DefaultFor(t types.Type) AggregateType {
	if t.IsNumeric() {
		return Sum
	}
	return Last
}

// ResultType reports the output type of an aggregate applied to a column
// of type t.
func ResultType(aggType AggregateType, t types.Type) types.Type {
	switch aggType {
	case Count, DistinctCount:
		return types.Integer
	case Avg, Mean, Median, StdDev, WeightedMean:
		return types.Float
	case Sum:
		if t == types.Integer {
			return types.Integer
		}
		return types.Float
	default:
		return t
	}
}

// SumAggregator totals numeric leaves. An all-integer input keeps the
// integer type.
type SumAggregator struct {
	intSum   int64
	floatSum float64
	allInt   bool
	seen     bool
}

func (s *SumAggregator) New() AggregatorFunction { return &SumAggregator{} }

func (s *SumAggregator) Add(v types.Value) {
	if v.Null {
		return
	}
	if !s.seen {
		s.allInt = true
	}
	s.seen = true
	if v.Type == types.Integer {
		s.intSum += v.I
	} else {
		s.allInt = false
	}
	s.floatSum += v.Num()
}

func (s *SumAggregator) Result() types.Value {
	if !s.seen {
		return types.NewNull(types.Float)
	}
	if s.allInt {
		return types.NewInt(s.intSum)
	}
	return types.NewFloat(s.floatSum)
}

// CountAggregator counts non-null leaves.
type CountAggregator struct {
	count int64
}

func (c *CountAggregator) New() AggregatorFunction { return &CountAggregator{} }

func (c *CountAggregator) Add(v types.Value) {
	if v.Null {
		return
	}
	c.count++
}

func (c *CountAggregator) Result() types.Value {
	return types.NewInt(c.count)
}

// AvgAggregator is the arithmetic mean.
type AvgAggregator struct {
	sum   float64
	count int64
}

func (a *AvgAggregator) New() AggregatorFunction { return &AvgAggregator{} }

func (a *AvgAggregator) Add(v types.Value) {
	if v.Null {
		return
	}
	a.sum += v.Num()
	a.count++
}

func (a *AvgAggregator) Result() types.Value {
	if a.count == 0 {
		return types.NewNull(types.Float)
	}
	return types.NewFloat(a.sum / float64(a.count))
}

// MinAggregator keeps the smallest leaf by value ordering.
type MinAggregator struct {
	best types.Value
	seen bool
}

func (m *MinAggregator) New() AggregatorFunction { return &MinAggregator{} }

func (m *MinAggregator) Add(v types.Value) {
	if v.Null {
		return
	}
	if !m.seen || v.Compare(m.best) < 0 {
		m.best = v
		m.seen = true
	}
}

func (m *MinAggregator) Result() types.Value {
	if !m.seen {
		return types.NewNull(types.Float)
	}
	return m.best
}

// MaxAggregator keeps the largest leaf by value ordering.
type MaxAggregator struct {
	best types.Value
	seen bool
}

func (m *MaxAggregator) New() AggregatorFunction { return &MaxAggregator{} }

func (m *MaxAggregator) Add(v types.Value) {
	if v.Null {
		return
	}
	if !m.seen || v.Compare(m.best) > 0 {
		m.best = v
		m.seen = true
	}
}

func (m *MaxAggregator) Result() types.Value {
	if !m.seen {
		return types.NewNull(types.Float)
	}
	return m.best
}

// FirstAggregator keeps the first non-null leaf in arrival order.
type FirstAggregator struct {
	value types.Value
	seen  bool
}

func (f *FirstAggregator) New() AggregatorFunction { return &FirstAggregator{} }

func (f *FirstAggregator) Add(v types.Value) {
	if v.Null || f.seen {
		return
	}
	f.value = v
	f.seen = true
}

func (f *FirstAggregator) Result() types.Value {
	if !f.seen {
		return types.NewNull(types.Float)
	}
	return f.value
}

// LastAggregator keeps the last non-null leaf in arrival order.
type LastAggregator struct {
	value types.Value
	seen  bool
}

func (l *LastAggregator) New() AggregatorFunction { return &LastAggregator{} }

func (l *LastAggregator) Add(v types.Value) {
	if v.Null {
		return
	}
	l.value = v
	l.seen = true
}

func (l *LastAggregator) Result() types.Value {
	if !l.seen {
		return types.NewNull(types.Float)
	}
	return l.value
}

// UniqueAggregator reports the single distinct leaf value, or null when
// the group mixes values.
type UniqueAggregator struct {
	value types.Value
	seen  bool
	mixed bool
}

func (u *UniqueAggregator) New() AggregatorFunction { return &UniqueAggregator{} }

func (u *UniqueAggregator) Add(v types.Value) {
	if v.Null {
		return
	}
	if !u.seen {
		u.value = v
		u.seen = true
		return
	}
	if !u.value.Equal(v) {
		u.mixed = true
	}
}

func (u *UniqueAggregator) Result() types.Value {
	if !u.seen || u.mixed {
		return types.NewNull(types.Float)
	}
	return u.value
}

// MedianAggregator reports the middle leaf (lower of the two middles for
// even-sized groups).
type MedianAggregator struct {
	values []float64
}

func (m *MedianAggregator) New() AggregatorFunction { return &MedianAggregator{} }

func (m *MedianAggregator) Add(v types.Value) {
	if v.Null {
		return
	}
	m.values = append(m.values, v.Num())
}

func (m *MedianAggregator) Result() types.Value {
	if len(m.values) == 0 {
		return types.NewNull(types.Float)
	}
	sorted := make([]float64, len(m.values))
	copy(sorted, m.values)
	sort.Float64s(sorted)
	return types.NewFloat(sorted[(len(sorted)-1)/2])
}

// StdDevAggregator is the population standard deviation.
type StdDevAggregator struct {
	values []float64
}

func (s *StdDevAggregator) New() AggregatorFunction { return &StdDevAggregator{} }

func (s *StdDevAggregator) Add(v types.Value) {
	if v.Null {
		return
	}
	s.values = append(s.values, v.Num())
}

func (s *StdDevAggregator) Result() types.Value {
	n := len(s.values)
	if n == 0 {
		return types.NewNull(types.Float)
	}
	var sum float64
	for _, v := range s.values {
		sum += v
	}
	mean := sum / float64(n)
	var sq float64
	for _, v := range s.values {
		sq += (v - mean) * (v - mean)
	}
	return types.NewFloat(math.Sqrt(sq / float64(n)))
}

// DistinctCountAggregator counts distinct non-null leaves. Values are
// keyed by their external representation, so string leaves from different
// arenas compare by content.
type DistinctCountAggregator struct {
	seen map[interface{}]struct{}
}

func (d *DistinctCountAggregator) New() AggregatorFunction { return &DistinctCountAggregator{} }

func (d *DistinctCountAggregator) Add(v types.Value) {
	if v.Null {
		return
	}
	if d.seen == nil {
		d.seen = make(map[interface{}]struct{})
	}
	d.seen[v.Export()] = struct{}{}
}

func (d *DistinctCountAggregator) Result() types.Value {
	return types.NewInt(int64(len(d.seen)))
}

// WeightedMeanAggregator averages leaves weighted by a second column. A
// null value or null weight skips the row.
type WeightedMeanAggregator struct {
	weightedSum float64
	weightSum   float64
	seen        bool
}

func (w *WeightedMeanAggregator) New() AggregatorFunction { return &WeightedMeanAggregator{} }

// Add treats unweighted input as weight 1.
func (w *WeightedMeanAggregator) Add(v types.Value) {
	w.AddWeighted(v, types.NewFloat(1))
}

func (w *WeightedMeanAggregator) AddWeighted(v, weight types.Value) {
	if v.Null || weight.Null {
		return
	}
	w.weightedSum += v.Num() * weight.Num()
	w.weightSum += weight.Num()
	w.seen = true
}

func (w *WeightedMeanAggregator) Result() types.Value {
	if !w.seen || w.weightSum == 0 {
		return types.NewNull(types.Float)
	}
	return types.NewFloat(w.weightedSum / w.weightSum)
}
