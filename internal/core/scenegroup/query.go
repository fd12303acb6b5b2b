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

import "strings"

// Info describes a scene's place in its group. Child scenes inherit the
// leader's selected asset.
type Info struct {
	Leader  SceneID `json:"leader"`
	IsChild bool    `json:"is_child"`
	Group   Group   `json:"group"`
}

// AreLinked reports whether a and b are the same scene or share a group.
// groups is read as-is, without normalization.
func AreLinked(groups Grouping, a, b SceneID) bool {
	ka, kb := a.Key(), b.Key()
	if ka == kb {
		return true
	}
	for _, g := range groups {
		var hasA, hasB bool
		for _, id := range g {
			switch id.Key() {
			case ka:
				hasA = true
			case kb:
				hasB = true
			}
		}
		if hasA && hasB {
			return true
		}
	}
	return false
}

// GroupInfo returns the leader and group of sceneID after normalizing groups
// against order. A scene that is in no group is reported as its own leader.
func GroupInfo(groups Grouping, sceneID SceneID, order []SceneID) Info {
	current := Normalize(groups, order)
	i := indexOfGroup(current, sceneID.Key())
	if i < 0 {
		return Info{Leader: sceneID, Group: Group{sceneID}}
	}
	g := current[i]
	return Info{
		Leader:  g[0],
		IsChild: g[0].Key() != sceneID.Key(),
		Group:   g,
	}
}

// Signature encodes groups and their order as a string, e.g. "1,2|3". Equal
// signatures mean there is nothing new to persist.
func Signature(groups Grouping) string {
	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteByte('|')
		}
		for j, id := range g {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(id.Key())
		}
	}
	return b.String()
}
