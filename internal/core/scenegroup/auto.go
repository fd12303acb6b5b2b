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

// Locations is a convenience for building the optional location count
// accepted by AutoGroup.
func Locations(n int) *int {
	return &n
}

// AutoGroup splits scenes 1..sceneCount into contiguous runs, one per
// location. A nil locationCount means every scene is its own location;
// otherwise the count is clamped to [1, sceneCount]. Runs differ in size by at
// most one and the longer runs come first, so 7 scenes over 3 locations gives
// [[1 2 3] [4 5] [6 7]].
//
// The result is not normalized; callers normalize against the project's real
// scene order before storing it.
func AutoGroup(sceneCount int, locationCount *int) Grouping {
	if sceneCount <= 0 {
		return Grouping{}
	}

	effective := sceneCount
	if locationCount != nil {
		effective = min(max(*locationCount, 1), sceneCount)
	}

	ids := Sequence(sceneCount)
	if effective >= sceneCount {
		out := make(Grouping, sceneCount)
		for i, id := range ids {
			out[i] = Group{id}
		}
		return out
	}
	if effective == 1 {
		return Grouping{Group(ids)}
	}

	base, remainder := sceneCount/effective, sceneCount%effective
	out := make(Grouping, 0, effective)
	next := 0
	for i := 0; i < effective; i++ {
		size := base
		if i < remainder {
			size++
		}
		out = append(out, Group(cloneIDs(ids[next:next+size])))
		next += size
	}
	return out
}
