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

package functions

import (
	"fmt"

	"github.com/prismview/prism/types"
)

// TodayFunction returns the current UTC calendar day. The value is fixed at
// the start of the evaluation pass, so every row of one pass sees the same
// day.
type TodayFunction struct {
	*BaseFunction
}

func NewTodayFunction() *TodayFunction {
	return &TodayFunction{NewBaseFunction("today", TypeDateTime, "current date", 0, 0)}
}

func (f *TodayFunction) Check(args []Arg) (types.Type, error) {
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	return types.Date, nil
}

func (f *TodayFunction) Execute(ctx *Context, _ []types.Value) (types.Value, error) {
	return types.DateFromTime(ctx.Now), nil
}

// NowFunction returns the pass timestamp as a datetime.
type NowFunction struct {
	*BaseFunction
}

func NewNowFunction() *NowFunction {
	return &NowFunction{NewBaseFunction("now", TypeDateTime, "current datetime", 0, 0)}
}

func (f *NowFunction) Check(args []Arg) (types.Type, error) {
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	return types.Datetime, nil
}

func (f *NowFunction) Execute(ctx *Context, _ []types.Value) (types.Value, error) {
	return types.DatetimeFromTime(ctx.Now), nil
}

// BucketFunction truncates a temporal value to the start of a unit. The
// unit must be a string literal so the result column type ('s'/'m'/'h'
// produce datetimes, 'D'/'W'/'M'/'Y' produce dates) is known at compile
// time.
type BucketFunction struct {
	*BaseFunction
}

func NewBucketFunction() *BucketFunction {
	return &BucketFunction{NewBaseFunction("bucket", TypeDateTime, "truncate a temporal value to a unit", 2, 2)}
}

func (f *BucketFunction) Check(args []Arg) (types.Type, error) {
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	if err := wantTemporal(f.Name(), 0, args[0]); err != nil {
		return types.Unknown, err
	}
	unit, err := bucketUnit(args[1])
	if err != nil {
		return types.Unknown, err
	}
	t, _ := unit.ResultType()
	return t, nil
}

func (f *BucketFunction) Execute(_ *Context, args []types.Value) (types.Value, error) {
	unit := types.BucketUnit(args[1].Str()[0])
	return types.Bucket(args[0], unit), nil
}

func bucketUnit(a Arg) (types.BucketUnit, error) {
	if a.StrLiteral == nil {
		return 0, fmt.Errorf("function bucket: unit must be a string literal")
	}
	s := *a.StrLiteral
	if len(s) != 1 {
		return 0, fmt.Errorf("function bucket: unknown unit %q", s)
	}
	unit := types.BucketUnit(s[0])
	if _, ok := unit.ResultType(); !ok {
		return 0, fmt.Errorf("function bucket: unknown unit %q", s)
	}
	return unit, nil
}

// DayOfWeekFunction names the weekday of a temporal value, prefixed with a
// 1-based ordinal (Sunday first) so string sorts follow calendar order.
type DayOfWeekFunction struct {
	*BaseFunction
}

func NewDayOfWeekFunction() *DayOfWeekFunction {
	return &DayOfWeekFunction{NewBaseFunction("day_of_week", TypeDateTime, "weekday name of a temporal value", 1, 1)}
}

func (f *DayOfWeekFunction) Check(args []Arg) (types.Type, error) {
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	if err := wantTemporal(f.Name(), 0, args[0]); err != nil {
		return types.Unknown, err
	}
	return types.String, nil
}

func (f *DayOfWeekFunction) Execute(ctx *Context, args []types.Value) (types.Value, error) {
	if anyNull(args) {
		return types.NewNull(types.String), nil
	}
	wd := args[0].Time().Weekday()
	return types.NewString(ctx.Intern(fmt.Sprintf("%d %s", int(wd)+1, wd))), nil
}

// MonthOfYearFunction names the month of a temporal value, prefixed with a
// zero-padded ordinal so string sorts follow calendar order.
type MonthOfYearFunction struct {
	*BaseFunction
}

func NewMonthOfYearFunction() *MonthOfYearFunction {
	return &MonthOfYearFunction{NewBaseFunction("month_of_year", TypeDateTime, "month name of a temporal value", 1, 1)}
}

func (f *MonthOfYearFunction) Check(args []Arg) (types.Type, error) {
	if err := f.ValidateArgCount(len(args)); err != nil {
		return types.Unknown, err
	}
	if err := wantTemporal(f.Name(), 0, args[0]); err != nil {
		return types.Unknown, err
	}
	return types.String, nil
}

func (f *MonthOfYearFunction) Execute(ctx *Context, args []types.Value) (types.Value, error) {
	if anyNull(args) {
		return types.NewNull(types.String), nil
	}
	m := args[0].Time().Month()
	return types.NewString(ctx.Intern(fmt.Sprintf("%02d %s", int(m), m))), nil
}
