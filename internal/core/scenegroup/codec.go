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

package scenegroup

import (
	"bytes"
	"encoding/json"
)

// RecordField is the field name every encoded group record is written under.
const RecordField = "scenes"

// idListFields lists, in match priority, the field names that have held a
// group's id list in persisted project documents. New names go here and
// nowhere else.
var idListFields = []string{
	RecordField,
	"sceneIds",
	"scene_ids",
}

// Group is an ordered list of scene ids sharing a location.
type Group []SceneID

// Grouping is a partition of a scene order into groups.
type Grouping []Group

// Record is the storage shape of one group. Document stores and BigQuery
// both reject directly nested arrays, so each group is wrapped in an object.
type Record struct {
	Scenes []SceneID `json:"scenes"`
}

// UnmarshalJSON accepts every historical record shape: an object with any of
// the idListFields, or a bare id list. Anything else leaves Scenes nil, which
// Decode treats as a dropped entry.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	r.Scenes = nil
	if ids, ok := decodeEntry(v); ok {
		r.Scenes = ids
	}
	return nil
}

// Decode reads any historical storage shape of a grouping:
//
//   - nil or anything that is not a list yields an empty result;
//   - a list of lists (the pre-migration nested-array shape);
//   - a list of objects holding an id list under one of the idListFields;
//   - typed Go values (Grouping, []Record, [][]int, ...) and raw JSON bytes.
//
// Entries of any other shape are dropped. Ids are converted with NormalizeID
// but membership is not checked; that is Normalize's job.
func Decode(raw any) [][]SceneID {
	out := make([][]SceneID, 0)
	switch t := raw.(type) {
	case nil:
		return out
	case []byte:
		return decodeJSON(t)
	case json.RawMessage:
		return decodeJSON(t)
	case Grouping:
		for _, g := range t {
			out = append(out, cloneIDs(g))
		}
	case []Group:
		for _, g := range t {
			out = append(out, cloneIDs(g))
		}
	case [][]SceneID:
		for _, g := range t {
			out = append(out, cloneIDs(g))
		}
	case []Record:
		for _, r := range t {
			if r.Scenes != nil {
				out = append(out, cloneIDs(r.Scenes))
			}
		}
	case []*Record:
		for _, r := range t {
			if r != nil && r.Scenes != nil {
				out = append(out, cloneIDs(r.Scenes))
			}
		}
	case [][]int:
		for _, g := range t {
			out = append(out, IDs(g...))
		}
	case [][]int64:
		for _, g := range t {
			out = append(out, IDs(g...))
		}
	case [][]string:
		for _, g := range t {
			out = append(out, IDs(g...))
		}
	case []map[string]any:
		for _, m := range t {
			if ids, ok := fromObject(m); ok {
				out = append(out, ids)
			}
		}
	case []any:
		for _, entry := range t {
			if ids, ok := decodeEntry(entry); ok {
				out = append(out, ids)
			}
		}
	}
	return out
}

// Encode converts a grouping to its storage shape, dropping empty groups.
func Encode(groups Grouping) []Record {
	out := make([]Record, 0, len(groups))
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		out = append(out, Record{Scenes: cloneIDs(g)})
	}
	return out
}

// DecodeRecords reads any shape accepted by Decode into the storage shape
// without checking membership. Stores use it to migrate legacy documents on
// read.
func DecodeRecords(raw any) []Record {
	decoded := Decode(raw)
	groups := make(Grouping, len(decoded))
	for i, ids := range decoded {
		groups[i] = ids
	}
	return Encode(groups)
}

func decodeJSON(data []byte) [][]SceneID {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return make([][]SceneID, 0)
	}
	return Decode(v)
}

func decodeEntry(entry any) ([]SceneID, bool) {
	switch t := entry.(type) {
	case map[string]any:
		return fromObject(t)
	case Record:
		return cloneIDs(t.Scenes), t.Scenes != nil
	case *Record:
		if t == nil || t.Scenes == nil {
			return nil, false
		}
		return cloneIDs(t.Scenes), true
	default:
		return idList(entry)
	}
}

func fromObject(m map[string]any) ([]SceneID, bool) {
	for _, field := range idListFields {
		v, ok := m[field]
		if !ok {
			continue
		}
		if ids, ok := idList(v); ok {
			return ids, true
		}
	}
	return nil, false
}

func idList(v any) ([]SceneID, bool) {
	switch t := v.(type) {
	case []any:
		return IDs(t...), true
	case []SceneID:
		return cloneIDs(t), true
	case Group:
		return cloneIDs(t), true
	case []int:
		return IDs(t...), true
	case []int64:
		return IDs(t...), true
	case []float64:
		return IDs(t...), true
	case []string:
		return IDs(t...), true
	case []json.Number:
		return IDs(t...), true
	default:
		return nil, false
	}
}

func cloneIDs(ids []SceneID) []SceneID {
	out := make([]SceneID, len(ids))
	copy(out, ids)
	return out
}
