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

// Package prism is a columnar analytics engine: tables of typed columns
// with streaming ingestion, and lightweight views that attach user-authored
// scalar expressions as virtual columns, recomputed incrementally as the
// table mutates.
//
// A minimal round trip:
//
//	table, _ := prism.FromColumns(map[string][]interface{}{
//		"a": {int64(1), int64(2), int64(3), int64(4)},
//		"b": {int64(5), int64(6), int64(7), int64(8)},
//	})
//	view, _ := table.View(
//		prism.WithExpression("computed", `"a" + "b"`),
//	)
//	cols := view.ToColumns() // cols["computed"] == [6.0, 8.0, 10.0, 12.0]
//	view.Delete()
//
// Expressions are compiled once per view into flat register programs (see
// the expr package), execute against column storage in chunks, and write
// string results into a per-view reference-counted arena. Views may group,
// pivot, filter and sort their output; grouped reads lead with the
// reserved __ROW_PATH__ column.
package prism
