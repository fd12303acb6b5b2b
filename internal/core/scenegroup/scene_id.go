// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package scenegroup partitions a project's ordered scene list into contiguous
// "location" groups and keeps that partition valid as users link and unlink
// neighbouring scenes and as the scene list itself changes.
//
// A Grouping is a list of Groups. After Normalize (and therefore after every
// operation in this package that returns a Grouping) the following holds for
// the scene order it was normalized against:
//
//  1. every scene in the order appears in exactly one group;
//  2. no group is empty;
//  3. members of a group are sorted by their position in the order;
//  4. groups are sorted by the position of their first member;
//  5. no scene id appears twice.
//
// Scene ids arrive loosely typed (JSON numbers, strings, BigQuery STRING
// columns), so every comparison goes through SceneID.Key.
package scenegroup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// SceneID identifies one scene within a project. It is either numeric or an
// opaque string; the zero value is the empty string id.
type SceneID struct {
	num     int64
	str     string
	numeric bool
}

// IntID returns the numeric scene id n.
func IntID(n int) SceneID {
	return SceneID{num: int64(n), numeric: true}
}

// NormalizeID converts v to its canonical SceneID. Values that convert to an
// integer without loss (any Go integer type, integral floats, json.Number and
// base-10 integer strings, surrounding whitespace ignored) become numeric ids.
// Named types are converted by their underlying kind. Any other value is
// printed with fmt.Sprint and then read like a string, so nothing that prints
// as an integer ends up opaque. NormalizeID is idempotent.
func NormalizeID(v any) SceneID {
	switch t := v.(type) {
	case SceneID:
		return t
	case *SceneID:
		if t == nil {
			return opaque(fmt.Sprint(nil))
		}
		return *t
	case int:
		return SceneID{num: int64(t), numeric: true}
	case int8:
		return SceneID{num: int64(t), numeric: true}
	case int16:
		return SceneID{num: int64(t), numeric: true}
	case int32:
		return SceneID{num: int64(t), numeric: true}
	case int64:
		return SceneID{num: t, numeric: true}
	case uint:
		return fromUint(uint64(t))
	case uint8:
		return fromUint(uint64(t))
	case uint16:
		return fromUint(uint64(t))
	case uint32:
		return fromUint(uint64(t))
	case uint64:
		return fromUint(t)
	case float32:
		return fromFloat(float64(t))
	case float64:
		return fromFloat(t)
	case json.Number:
		return fromString(string(t))
	case string:
		return fromString(t)
	case nil:
		return opaque(fmt.Sprint(nil))
	}
	return fromKind(reflect.ValueOf(v))
}

func fromKind(rv reflect.Value) SceneID {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return SceneID{num: rv.Int(), numeric: true}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return fromUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return fromFloat(rv.Float())
	case reflect.String:
		return fromString(rv.String())
	default:
		return fromString(fmt.Sprint(rv.Interface()))
	}
}

// Key returns the canonical string form of v's SceneID.
func Key(v any) string {
	return NormalizeID(v).Key()
}

func opaque(s string) SceneID {
	return SceneID{str: s}
}

func fromUint(u uint64) SceneID {
	if u > math.MaxInt64 {
		return opaque(strconv.FormatUint(u, 10))
	}
	return SceneID{num: int64(u), numeric: true}
}

func fromFloat(f float64) SceneID {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return opaque(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return SceneID{num: int64(f), numeric: true}
}

func fromString(s string) SceneID {
	trimmed := strings.TrimSpace(s)
	if trimmed != "" {
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return SceneID{num: n, numeric: true}
		}
	}
	return opaque(s)
}

// Key returns the canonical comparison key. Two ids name the same scene iff
// their keys are equal. An opaque key never collides with a numeric one: every
// input that reads as an int64, whatever its Go type, is normalized to a
// number. Integer-looking opaque keys only come from values outside the int64
// range.
func (id SceneID) Key() string {
	if id.numeric {
		return strconv.FormatInt(id.num, 10)
	}
	return id.str
}

// String implements fmt.Stringer.
func (id SceneID) String() string {
	return id.Key()
}

// IsNumeric reports whether the id holds an integer.
func (id SceneID) IsNumeric() bool {
	return id.numeric
}

// Int returns the integer value of a numeric id.
func (id SceneID) Int() (int64, bool) {
	return id.num, id.numeric
}

// Equal compares two ids by key.
func (id SceneID) Equal(other SceneID) bool {
	return id.Key() == other.Key()
}

// MarshalJSON writes numeric ids as JSON numbers and string ids as JSON strings.
func (id SceneID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(strconv.FormatInt(id.num, 10)), nil
	}
	return json.Marshal(id.str)
}

// UnmarshalJSON accepts a JSON number or string and normalizes it.
func (id *SceneID) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("scene id: %w", err)
	}
	if v == nil {
		return fmt.Errorf("scene id: null is not a valid id")
	}
	*id = NormalizeID(v)
	return nil
}

// Sequence returns the numeric ids 1..n.
func Sequence(n int) []SceneID {
	if n <= 0 {
		return []SceneID{}
	}
	out := make([]SceneID, n)
	for i := range out {
		out[i] = IntID(i + 1)
	}
	return out
}

// IDs normalizes every element of values.
func IDs[T any](values ...T) []SceneID {
	out := make([]SceneID, len(values))
	for i, v := range values {
		out[i] = NormalizeID(v)
	}
	return out
}
