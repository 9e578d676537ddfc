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

import "time"

// Calendar arithmetic for the date/datetime value model. Everything is UTC;
// a Date's day count and a Datetime's epoch milliseconds are timezone-free.

// DaysFromCivil converts a calendar date to days since the Unix epoch.
func DaysFromCivil(year, month, day int) int64 {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Unix() / 86400
}

// DateFromTime truncates t to its UTC calendar day.
func DateFromTime(t time.Time) Value {
	u := t.UTC()
	return NewDate(DaysFromCivil(u.Year(), int(u.Month()), u.Day()))
}

// DatetimeFromTime converts t to a datetime value.
func DatetimeFromTime(t time.Time) Value {
	return NewDatetime(t.UnixMilli())
}

// BucketUnit identifies a truncation unit for the bucket() builtin.
// Sub-day units produce datetimes, day-and-larger units produce dates.
type BucketUnit byte

const (
	BucketSecond BucketUnit = 's'
	BucketMinute BucketUnit = 'm'
	BucketHour   BucketUnit = 'h'
	BucketDay    BucketUnit = 'D'
	BucketWeek   BucketUnit = 'W'
	BucketMonth  BucketUnit = 'M'
	BucketYear   BucketUnit = 'Y'
)

// ResultType returns the column type a bucket by this unit produces.
func (u BucketUnit) ResultType() (Type, bool) {
	switch u {
	case BucketSecond, BucketMinute, BucketHour:
		return Datetime, true
	case BucketDay, BucketWeek, BucketMonth, BucketYear:
		return Date, true
	default:
		return Unknown, false
	}
}

// Bucket truncates a temporal value to the start of the containing unit.
func Bucket(v Value, u BucketUnit) Value {
	if v.Null {
		t, _ := u.ResultType()
		return NewNull(t)
	}
	t := v.Time()
	switch u {
	case BucketSecond:
		return NewDatetime(t.Truncate(time.Second).UnixMilli())
	case BucketMinute:
		return NewDatetime(t.Truncate(time.Minute).UnixMilli())
	case BucketHour:
		return NewDatetime(t.Truncate(time.Hour).UnixMilli())
	case BucketDay:
		return DateFromTime(t)
	case BucketWeek:
		// Weeks start on Monday.
		offset := (int(t.Weekday()) + 6) % 7
		return DateFromTime(t.AddDate(0, 0, -offset))
	case BucketMonth:
		return NewDate(DaysFromCivil(t.Year(), int(t.Month()), 1))
	case BucketYear:
		return NewDate(DaysFromCivil(t.Year(), 1, 1))
	default:
		return NewNull(Date)
	}
}
