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

package types

import (
	"strconv"
	"strings"
	"time"

	"github.com/prismview/prism/arena"
)

// Value is the runtime tagged union. Null is a first-class state for every
// type: a null Value keeps its Type so downstream stages know the column
// type it belongs to.
//
// Representation: Integer in I; Float in F; Boolean in B; String as an
// arena Ref in S; Date as days since the Unix epoch in I; Datetime as
// milliseconds since the Unix epoch in I.
type Value struct {
	Type Type
	Null bool
	I    int64
	F    float64
	B    bool
	S    arena.Ref
}

// NewNull returns a null value of the given type.
func NewNull(t Type) Value {
	return Value{Type: t, Null: true}
}

// NewInt returns an integer value.
func NewInt(i int64) Value {
	return Value{Type: Integer, I: i}
}

// NewFloat returns a float value.
func NewFloat(f float64) Value {
	return Value{Type: Float, F: f}
}

// NewBool returns a boolean value.
func NewBool(b bool) Value {
	return Value{Type: Boolean, B: b}
}

// NewString returns a string value holding the given arena reference.
func NewString(r arena.Ref) Value {
	return Value{Type: String, S: r}
}

// NewDate returns a date value from days since the Unix epoch.
func NewDate(days int64) Value {
	return Value{Type: Date, I: days}
}

// NewDatetime returns a datetime value from milliseconds since the Unix epoch.
func NewDatetime(ms int64) Value {
	return Value{Type: Datetime, I: ms}
}

// Num coerces a non-null numeric or temporal value to float64. Dates
// coerce to their day count, datetimes to their epoch milliseconds.
func (v Value) Num() float64 {
	switch v.Type {
	case Integer, Date, Datetime:
		return float64(v.I)
	case Float:
		return v.F
	case Boolean:
		if v.B {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// Str resolves a string value's content. Returns "" for non-strings.
func (v Value) Str() string {
	if v.Type != String || v.Null {
		return ""
	}
	return v.S.String()
}

// Time converts a date or datetime value to a UTC time.Time.
func (v Value) Time() time.Time {
	switch v.Type {
	case Date:
		return time.Unix(v.I*86400, 0).UTC()
	case Datetime:
		return time.UnixMilli(v.I).UTC()
	default:
		return time.Time{}
	}
}

// EpochMs returns the millisecond-epoch representation of a temporal value.
func (v Value) EpochMs() int64 {
	if v.Type == Date {
		return v.I * 86400000
	}
	return v.I
}

// Export converts a value to its external Go representation, as returned
// by columnar reads: nil for null, int64, float64, string, bool, and
// millisecond epoch int64 for date and datetime.
func (v Value) Export() interface{} {
	if v.Null {
		return nil
	}
	switch v.Type {
	case Integer:
		return v.I
	case Float:
		return v.F
	case String:
		return v.S.String()
	case Boolean:
		return v.B
	case Date, Datetime:
		return v.EpochMs()
	default:
		return nil
	}
}

// Format renders the value the way the string() cast does: dates as
// YYYY-MM-DD, datetimes as YYYY-MM-DD HH:MM:SS.mmm, floats with six
// significant digits, booleans lowercase.
func (v Value) Format() string {
	if v.Null {
		return ""
	}
	switch v.Type {
	case Integer:
		return strconv.FormatInt(v.I, 10)
	case Float:
		return FormatFloat(v.F)
	case String:
		return v.S.String()
	case Boolean:
		if v.B {
			return "true"
		}
		return "false"
	case Date:
		return v.Time().Format("2006-01-02")
	case Datetime:
		return v.Time().Format("2006-01-02 15:04:05.000")
	default:
		return ""
	}
}

// FormatFloat renders a float with six significant digits, trailing zeros
// trimmed, matching the engine's string cast for float columns.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', 6, 64)
	// FormatFloat 'g' may emit exponent notation for large magnitudes;
	// keep it, the cast contract only fixes precision.
	return s
}

// Equal compares two values by content. Null never equals anything,
// including another null.
func (v Value) Equal(o Value) bool {
	if v.Null || o.Null {
		return false
	}
	if v.Type == String && o.Type == String {
		return arena.Equal(v.S, o.S)
	}
	if v.Type.IsNumeric() && o.Type.IsNumeric() {
		return v.Num() == o.Num()
	}
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case Boolean:
		return v.B == o.B
	case Date, Datetime:
		return v.I == o.I
	default:
		return false
	}
}

// Compare orders two values of compatible types: -1, 0 or 1. Nulls sort
// before everything.
func (v Value) Compare(o Value) int {
	if v.Null && o.Null {
		return 0
	}
	if v.Null {
		return -1
	}
	if o.Null {
		return 1
	}
	if v.Type == String && o.Type == String {
		return strings.Compare(v.S.String(), o.S.String())
	}
	if v.Type == Boolean && o.Type == Boolean {
		if v.B == o.B {
			return 0
		}
		if !v.B {
			return -1
		}
		return 1
	}
	a, b := v.Num(), o.Num()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
