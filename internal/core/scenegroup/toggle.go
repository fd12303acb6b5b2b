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

// ToggleLink flips the link between scenes a and b.
//
// When a and b are in different groups the two groups are merged. When they
// are already in the same group, that group is cut after whichever of the two
// comes first in order: members up to it stay, the rest form a new group. For
// adjacent scenes this undoes a merge exactly; for members further apart it
// still separates them, so toggling a pair twice never leaves it stuck. A
// scene toggled with itself, or an id that cannot be found, leaves the
// grouping unchanged.
//
// The input is normalized first and never modified. Compare Signature of the
// input and output to detect a no-op.
func ToggleLink(groups Grouping, a, b SceneID, order []SceneID) Grouping {
	current := Normalize(groups, order)
	ka, kb := a.Key(), b.Key()
	ga, gb := indexOfGroup(current, ka), indexOfGroup(current, kb)
	if ga < 0 || gb < 0 || ka == kb {
		return current
	}

	index := orderIndex(order)
	if ga != gb {
		merged := make(Group, 0, len(current[ga])+len(current[gb]))
		merged = append(merged, current[ga]...)
		merged = append(merged, current[gb]...)
		sortMembers(merged, index)

		next := make(Grouping, 0, len(current)-1)
		for i, g := range current {
			if i != ga && i != gb {
				next = append(next, g)
			}
		}
		next = append(next, merged)
		sortGroups(next, index)
		return next
	}

	boundary := min(index[ka], index[kb])
	var left, right Group
	for _, id := range current[ga] {
		if index[id.Key()] <= boundary {
			left = append(left, id)
		} else {
			right = append(right, id)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return current
	}

	next := make(Grouping, 0, len(current)+1)
	for i, g := range current {
		if i != ga {
			next = append(next, g)
		}
	}
	next = append(next, left, right)
	sortGroups(next, index)
	return next
}
