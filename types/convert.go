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
	"fmt"
	"time"

	"github.com/spf13/cast"

	"github.com/prismview/prism/arena"
)

// Ingestion boundary: caller-supplied interface{} cells are converted into
// typed values here. String content is interned into the arena owning the
// destination column.

// InferType guesses the column type for a caller-supplied Go value.
func InferType(v interface{}) (Type, bool) {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Integer, true
	case float32, float64:
		return Float, true
	case string:
		return String, true
	case bool:
		return Boolean, true
	case time.Time:
		return Datetime, true
	case nil:
		return Unknown, false
	default:
		return Unknown, false
	}
}

// Convert casts a caller-supplied cell to a value of the column type t,
// interning strings into a. A nil cell becomes a typed null.
func Convert(v interface{}, t Type, a *arena.Arena) (Value, error) {
	if v == nil {
		return NewNull(t), nil
	}
	switch t {
	case Integer:
		i, err := cast.ToInt64E(v)
		if err != nil {
			return NewNull(t), fmt.Errorf("cannot convert %v to integer: %w", v, err)
		}
		return NewInt(i), nil
	case Float:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return NewNull(t), fmt.Errorf("cannot convert %v to float: %w", v, err)
		}
		return NewFloat(f), nil
	case String:
		s, err := cast.ToStringE(v)
		if err != nil {
			return NewNull(t), fmt.Errorf("cannot convert %v to string: %w", v, err)
		}
		return NewString(a.Intern(s)), nil
	case Boolean:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return NewNull(t), fmt.Errorf("cannot convert %v to boolean: %w", v, err)
		}
		return NewBool(b), nil
	case Date:
		tm, err := toTime(v)
		if err != nil {
			return NewNull(t), fmt.Errorf("cannot convert %v to date: %w", v, err)
		}
		return DateFromTime(tm), nil
	case Datetime:
		tm, err := toTime(v)
		if err != nil {
			return NewNull(t), fmt.Errorf("cannot convert %v to datetime: %w", v, err)
		}
		return DatetimeFromTime(tm), nil
	default:
		return Value{}, fmt.Errorf("cannot convert into unknown type")
	}
}

// toTime accepts time.Time, millisecond epoch numbers, and the string
// formats the engine itself emits.
func toTime(v interface{}) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case int, int32, int64, uint, uint32, uint64:
		return time.UnixMilli(cast.ToInt64(x)).UTC(), nil
	case float32, float64:
		return time.UnixMilli(int64(cast.ToFloat64(x))).UTC(), nil
	case string:
		for _, layout := range []string{
			"2006-01-02 15:04:05.000",
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05Z07:00",
			"2006-01-02",
		} {
			if tm, err := time.ParseInLocation(layout, x, time.UTC); err == nil {
				return tm, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized time format %q", x)
	default:
		return cast.ToTimeE(v)
	}
}
