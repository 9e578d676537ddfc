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
	"github.com/prismview/prism/aggregator"
	"github.com/prismview/prism/condition"
	"github.com/prismview/prism/logger"
)

// TableOption configures a Table at construction.
type TableOption func(*Table)

// WithIndex designates a primary-key column. Updates carrying an existing
// key overwrite that key's row in place instead of appending.
func WithIndex(column string) TableOption {
	return func(t *Table) {
		t.index = column
	}
}

// WithLimit caps the table at n rows. Once full, new rows overwrite the
// oldest slots in arrival order.
func WithLimit(n int) TableOption {
	return func(t *Table) {
		t.limit = n
	}
}

// WithLogger sets the process-wide logger.
func WithLogger(log logger.Logger) TableOption {
	return func(t *Table) {
		logger.SetDefault(log)
	}
}

// WithLogLevel adjusts the process-wide logger's level.
func WithLogLevel(level logger.Level) TableOption {
	return func(t *Table) {
		logger.GetDefault().SetLevel(level)
	}
}

// ViewOption configures a View at construction.
type ViewOption func(*viewConfig)

// viewConfig collects the recognized view configuration before
// construction validates and compiles it.
type viewConfig struct {
	columns    []string
	columnsSet bool
	exprs      []exprSource
	groupBy    []string
	splitBy    []string
	aggregates map[string]aggregator.AggregateType
	weights    map[string]string
	filters    []condition.Clause
	sorts      []sortKey
}

// exprSource is one declared expression before compilation. An empty
// Alias defers to the source's own alias (leading //-comment or trimmed
// text).
type exprSource struct {
	Alias  string
	Source string
}

type sortKey struct {
	Column     string
	Descending bool
}

// WithColumns sets the output projection. An explicit empty projection
// produces empty reads while expressions still compile and register.
func WithColumns(columns ...string) ViewOption {
	return func(c *viewConfig) {
		c.columns = columns
		c.columnsSet = true
	}
}

// WithExpressions declares expressions from bare source strings; each
// takes its alias from a leading //-comment line or its trimmed source.
func WithExpressions(sources ...string) ViewOption {
	return func(c *viewConfig) {
		for _, s := range sources {
			c.exprs = append(c.exprs, exprSource{Source: s})
		}
	}
}

// WithExpression declares one expression under an explicit alias. A later
// declaration of the same alias wins.
func WithExpression(alias, source string) ViewOption {
	return func(c *viewConfig) {
		c.exprs = append(c.exprs, exprSource{Alias: alias, Source: source})
	}
}

// WithGroupBy sets the row-grouping path columns, outermost first.
func WithGroupBy(columns ...string) ViewOption {
	return func(c *viewConfig) {
		c.groupBy = columns
	}
}

// WithSplitBy sets the column-pivot keys.
func WithSplitBy(columns ...string) ViewOption {
	return func(c *viewConfig) {
		c.splitBy = columns
	}
}

// WithAggregate overrides the aggregate for one output column. The
// defaults are sum for numeric columns and last for everything else.
func WithAggregate(column string, agg aggregator.AggregateType) ViewOption {
	return func(c *viewConfig) {
		if c.aggregates == nil {
			c.aggregates = make(map[string]aggregator.AggregateType)
		}
		c.aggregates[column] = agg
	}
}

// WithWeightedMean aggregates column as a mean weighted by the weight
// column's values.
func WithWeightedMean(column, weight string) ViewOption {
	return func(c *viewConfig) {
		if c.aggregates == nil {
			c.aggregates = make(map[string]aggregator.AggregateType)
		}
		if c.weights == nil {
			c.weights = make(map[string]string)
		}
		c.aggregates[column] = aggregator.WeightedMean
		c.weights[column] = weight
	}
}

// WithFilter adds one [column, operator, value] filter clause. Clauses
// combine with AND.
func WithFilter(column, op string, value interface{}) ViewOption {
	return func(c *viewConfig) {
		c.filters = append(c.filters, condition.Clause{Column: column, Op: op, Value: value})
	}
}

// WithSort adds a sort key; direction is "asc" or "desc".
func WithSort(column, direction string) ViewOption {
	return func(c *viewConfig) {
		c.sorts = append(c.sorts, sortKey{Column: column, Descending: direction == "desc"})
	}
}
