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

// Package types defines the column types and the tagged-union value model
// shared by the table, the expression compiler and the virtual machine.
package types

import "fmt"

// Type enumerates the column types supported by a table.
type Type int

const (
	// Unknown marks an unresolved type, e.g. an untyped null literal
	// during type inference. It is never a valid column type.
	Unknown Type = iota
	// Integer is a 64-bit signed integer.
	Integer
	// Float is a 64-bit IEEE float.
	Float
	// String is arena-interned text.
	String
	// Boolean is true/false.
	Boolean
	// Date is a calendar day, stored as days since the Unix epoch (UTC).
	Date
	// Datetime is an instant, stored as milliseconds since the Unix epoch.
	Datetime
)

// String returns the external name of the type, as reported by schemas.
func (t Type) String() string {
	switch t {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case String:
		return "string"
	case Boolean:
		return "boolean"
	case Date:
		return "date"
	case Datetime:
		return "datetime"
	default:
		return "unknown"
	}
}

// ParseType resolves an external type name.
func ParseType(name string) (Type, error) {
	switch name {
	case "integer":
		return Integer, nil
	case "float":
		return Float, nil
	case "string":
		return String, nil
	case "boolean":
		return Boolean, nil
	case "date":
		return Date, nil
	case "datetime":
		return Datetime, nil
	default:
		return Unknown, fmt.Errorf("unknown column type %q", name)
	}
}

// IsNumeric reports whether t participates in arithmetic.
func (t Type) IsNumeric() bool {
	return t == Integer || t == Float
}

// IsTemporal reports whether t is date or datetime.
func (t Type) IsTemporal() bool {
	return t == Date || t == Datetime
}
