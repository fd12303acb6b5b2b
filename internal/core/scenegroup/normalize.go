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
	"errors"
	"fmt"
	"sort"
)

// Errors reported by Validate, one per grouping invariant.
var (
	ErrMissingScene   = errors.New("scene is not in any group")
	ErrEmptyGroup     = errors.New("group is empty")
	ErrUnsortedGroup  = errors.New("group members are out of scene order")
	ErrUnsortedGroups = errors.New("groups are out of scene order")
	ErrDuplicateScene = errors.New("scene appears more than once")
	ErrUnknownScene   = errors.New("scene is not in the scene order")
)

// Normalize repairs raw (any shape accepted by Decode) into a valid Grouping
// for order:
//
//   - ids that are not in order are dropped;
//   - an id seen earlier, in this group or a previous one, is dropped;
//   - members are sorted by scene order and empty groups are dropped;
//   - every scene missing from the result gets its own singleton group, which
//     also covers raw data that yielded no groups at all;
//   - groups are sorted by the position of their first member.
//
// An empty order yields an empty Grouping. If order repeats an id, the first
// position wins.
func Normalize(raw any, order []SceneID) Grouping {
	if len(order) == 0 {
		return Grouping{}
	}
	index := orderIndex(order)
	seen := make(map[string]bool, len(index))

	out := make(Grouping, 0, len(index))
	for _, ids := range Decode(raw) {
		g := make(Group, 0, len(ids))
		for _, id := range ids {
			k := id.Key()
			if _, ok := index[k]; !ok || seen[k] {
				continue
			}
			seen[k] = true
			g = append(g, id)
		}
		if len(g) == 0 {
			continue
		}
		sortMembers(g, index)
		out = append(out, g)
	}

	for _, id := range order {
		k := id.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, Group{id})
	}

	sortGroups(out, index)
	return out
}

// Validate reports the first invariant g violates for order, or nil.
func Validate(groups Grouping, order []SceneID) error {
	index := orderIndex(order)
	seen := make(map[string]bool, len(index))
	last := -1
	for i, g := range groups {
		if len(g) == 0 {
			return fmt.Errorf("group %d: %w", i, ErrEmptyGroup)
		}
		prev := -1
		for _, id := range g {
			k := id.Key()
			pos, ok := index[k]
			if !ok {
				return fmt.Errorf("scene %s: %w", k, ErrUnknownScene)
			}
			if seen[k] {
				return fmt.Errorf("scene %s: %w", k, ErrDuplicateScene)
			}
			seen[k] = true
			if pos < prev {
				return fmt.Errorf("group %d: %w", i, ErrUnsortedGroup)
			}
			prev = pos
		}
		first := index[g[0].Key()]
		if first < last {
			return fmt.Errorf("group %d: %w", i, ErrUnsortedGroups)
		}
		last = first
	}
	for _, id := range order {
		if !seen[id.Key()] {
			return fmt.Errorf("scene %s: %w", id.Key(), ErrMissingScene)
		}
	}
	return nil
}

func orderIndex(order []SceneID) map[string]int {
	index := make(map[string]int, len(order))
	for i, id := range order {
		k := id.Key()
		if _, dup := index[k]; !dup {
			index[k] = i
		}
	}
	return index
}

func sortMembers(g Group, index map[string]int) {
	sort.SliceStable(g, func(i, j int) bool {
		return index[g[i].Key()] < index[g[j].Key()]
	})
}

// sortGroups orders groups by their leading member. Members must already be
// sorted.
func sortGroups(groups Grouping, index map[string]int) {
	sort.SliceStable(groups, func(i, j int) bool {
		return index[groups[i][0].Key()] < index[groups[j][0].Key()]
	})
}

func indexOfGroup(groups Grouping, key string) int {
	for i, g := range groups {
		for _, id := range g {
			if id.Key() == key {
				return i
			}
		}
	}
	return -1
}
