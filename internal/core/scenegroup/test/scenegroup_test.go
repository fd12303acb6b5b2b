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

// Package scenegroup_test exercises the grouping engine: decoding stored
// shapes, normalization, auto grouping, link toggling and the read helpers.
package scenegroup_test

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/jaycherian/gcp-go-video-wizard/internal/core/scenegroup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(v ...int) []scenegroup.SceneID {
	return scenegroup.IDs(v...)
}

func grouping(groups ...[]int) scenegroup.Grouping {
	out := make(scenegroup.Grouping, 0, len(groups))
	for _, g := range groups {
		out = append(out, scenegroup.Group(ids(g...)))
	}
	return out
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "3", scenegroup.NormalizeID(3).Key())
	assert.Equal(t, "3", scenegroup.NormalizeID("3").Key())
	assert.Equal(t, "7", scenegroup.NormalizeID(" 7 ").Key())
	assert.Equal(t, "4", scenegroup.NormalizeID(4.0).Key())
	assert.Equal(t, "12", scenegroup.NormalizeID(json.Number("12")).Key())
	assert.True(t, scenegroup.NormalizeID("3").IsNumeric())

	opaque := scenegroup.NormalizeID("intro")
	assert.False(t, opaque.IsNumeric())
	assert.Equal(t, "intro", opaque.Key())

	assert.False(t, scenegroup.NormalizeID(2.5).IsNumeric())
	assert.False(t, scenegroup.NormalizeID("").IsNumeric())

	// Named types go by their underlying kind.
	type position int
	type label string
	assert.True(t, scenegroup.NormalizeID(position(5)).IsNumeric())
	assert.True(t, scenegroup.NormalizeID(position(5)).Equal(scenegroup.IntID(5)))
	assert.True(t, scenegroup.NormalizeID(label("5")).IsNumeric())
	assert.Equal(t, "intro", scenegroup.NormalizeID(label("intro")).Key())
	assert.Equal(t, "<nil>", scenegroup.NormalizeID(nil).Key())

	// Idempotent.
	once := scenegroup.NormalizeID("42")
	assert.Equal(t, once, scenegroup.NormalizeID(once))
	assert.True(t, scenegroup.NormalizeID(42).Equal(scenegroup.NormalizeID("42")))
}

func TestSceneIDJSON(t *testing.T) {
	data, err := json.Marshal([]scenegroup.SceneID{scenegroup.IntID(1), scenegroup.NormalizeID("intro")})
	require.NoError(t, err)
	assert.Equal(t, `[1,"intro"]`, string(data))

	var back []scenegroup.SceneID
	require.NoError(t, json.Unmarshal([]byte(`[1,"2","intro"]`), &back))
	assert.Equal(t, "1,2,intro", scenegroup.Signature(scenegroup.Grouping{back}))

	var bad scenegroup.SceneID
	assert.Error(t, json.Unmarshal([]byte(`null`), &bad))
}

func TestDecodeShapes(t *testing.T) {
	nested := []any{[]any{1, 2}, []any{3}}
	assert.Equal(t, 2, len(scenegroup.Decode(nested)))

	wrapped := []any{
		map[string]any{"scenes": []any{1, 2}},
		map[string]any{"sceneIds": []any{"3"}},
		map[string]any{"scene_ids": []any{4}},
		map[string]any{"other": []any{5}},
		"junk",
		7,
	}
	decoded := scenegroup.Decode(wrapped)
	require.Len(t, decoded, 3)
	assert.Equal(t, "1,2|3|4", scenegroup.Signature(toGrouping(decoded)))

	assert.Equal(t, 0, len(scenegroup.Decode(nil)))
	assert.Equal(t, 0, len(scenegroup.Decode("not a list")))
	// A Go string is never parsed, even when it holds JSON.
	assert.Equal(t, 0, len(scenegroup.Decode(`[{"scenes":[1,2]}]`)))
	assert.Equal(t, 0, len(scenegroup.Decode(map[string]any{"scenes": []any{1}})))

	raw := []byte(`[{"scenes":[1,2]},{"sceneIds":[3]}]`)
	assert.Equal(t, "1,2|3", scenegroup.Signature(toGrouping(scenegroup.Decode(raw))))
	assert.Equal(t, 0, len(scenegroup.Decode([]byte(`{broken`))))
}

func toGrouping(in [][]scenegroup.SceneID) scenegroup.Grouping {
	out := make(scenegroup.Grouping, len(in))
	for i, g := range in {
		out[i] = g
	}
	return out
}

func TestEncodeRoundTrip(t *testing.T) {
	order := scenegroup.Sequence(6)
	groups := scenegroup.Normalize(grouping([]int{1, 2}, []int{3}, []int{4, 5, 6}), order)

	records := scenegroup.Encode(groups)
	require.Len(t, records, 3)

	data, err := json.Marshal(records)
	require.NoError(t, err)
	assert.Equal(t, `[{"scenes":[1,2]},{"scenes":[3]},{"scenes":[4,5,6]}]`, string(data))

	assert.Equal(t, scenegroup.Signature(groups), scenegroup.Signature(scenegroup.Normalize(data, order)))
	assert.Equal(t, scenegroup.Signature(groups), scenegroup.Signature(scenegroup.Normalize(records, order)))

	assert.Equal(t, 0, len(scenegroup.Encode(scenegroup.Grouping{{}, nil})))
}

func TestNormalizeRepairs(t *testing.T) {
	order := scenegroup.Sequence(5)
	raw := []any{
		[]any{3, 1, 99},
		[]any{1, 4},
		[]any{},
	}
	groups := scenegroup.Normalize(raw, order)
	assert.Equal(t, "1,3|2|4|5", scenegroup.Signature(groups))
	assert.NoError(t, scenegroup.Validate(groups, order))

	assert.Equal(t, "1|2|3|4|5", scenegroup.Signature(scenegroup.Normalize(nil, order)))
	assert.Equal(t, 0, len(scenegroup.Normalize(raw, nil)))
}

func TestNormalizeStringIDs(t *testing.T) {
	order := scenegroup.Sequence(3)
	raw := []any{map[string]any{"scenes": []any{"2", "1"}}}
	assert.Equal(t, "1,2|3", scenegroup.Signature(scenegroup.Normalize(raw, order)))
}

func TestNormalizeFollowsReorderedScenes(t *testing.T) {
	order := ids(3, 1, 2)
	groups := scenegroup.Normalize(grouping([]int{1, 2}, []int{3}), order)
	assert.Equal(t, "3|1,2", scenegroup.Signature(groups))
	assert.NoError(t, scenegroup.Validate(groups, order))
}

func TestNormalizeDropsDeletedScenes(t *testing.T) {
	order := ids(1, 3)
	groups := scenegroup.Normalize(grouping([]int{1, 2}, []int{3}), order)
	assert.Equal(t, "1|3", scenegroup.Signature(groups))
}

func TestNormalizeIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		order, raw := randomInput(rng)
		once := scenegroup.Normalize(raw, order)
		twice := scenegroup.Normalize(once, order)
		assert.Equal(t, scenegroup.Signature(once), scenegroup.Signature(twice))
	}
}

func TestNormalizePartitionInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		order, raw := randomInput(rng)
		groups := scenegroup.Normalize(raw, order)
		require.NoError(t, scenegroup.Validate(groups, order))
	}
}

// randomInput builds a shuffled scene order and a messy raw grouping that
// mixes shapes, unknown ids and duplicates.
func randomInput(rng *rand.Rand) ([]scenegroup.SceneID, []any) {
	n := rng.Intn(12)
	order := scenegroup.Sequence(n)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	raw := make([]any, 0)
	for g := rng.Intn(6); g > 0; g-- {
		members := make([]any, 0)
		for m := rng.Intn(5); m > 0; m-- {
			id := rng.Intn(n+3) + 1
			if rng.Intn(2) == 0 {
				members = append(members, id)
			} else {
				members = append(members, json.Number(scenegroup.IntID(id).Key()))
			}
		}
		switch rng.Intn(3) {
		case 0:
			raw = append(raw, members)
		case 1:
			raw = append(raw, map[string]any{"scenes": members})
		default:
			raw = append(raw, map[string]any{"scene_ids": members})
		}
	}
	return order, raw
}

func TestAutoGroupBalanced(t *testing.T) {
	groups := scenegroup.AutoGroup(7, scenegroup.Locations(3))
	assert.Equal(t, "1,2,3|4,5|6,7", scenegroup.Signature(groups))

	assert.Equal(t, "1|2|3|4", scenegroup.Signature(scenegroup.AutoGroup(4, nil)))
	assert.Equal(t, "1,2,3,4", scenegroup.Signature(scenegroup.AutoGroup(4, scenegroup.Locations(1))))
	assert.Equal(t, "1,2,3,4", scenegroup.Signature(scenegroup.AutoGroup(4, scenegroup.Locations(0))))
	assert.Equal(t, "1|2|3", scenegroup.Signature(scenegroup.AutoGroup(3, scenegroup.Locations(10))))
	assert.Equal(t, 0, len(scenegroup.AutoGroup(0, scenegroup.Locations(2))))
}

func TestAutoGroupCoverage(t *testing.T) {
	for n := 1; n <= 20; n++ {
		for k := 1; k <= n+1; k++ {
			groups := scenegroup.AutoGroup(n, scenegroup.Locations(k))
			require.NoError(t, scenegroup.Validate(groups, scenegroup.Sequence(n)))

			smallest, largest := n, 0
			for _, g := range groups {
				smallest = min(smallest, len(g))
				largest = max(largest, len(g))
			}
			assert.True(t, largest-smallest <= 1)
			assert.Equal(t, min(k, n), len(groups))

			// Contiguous runs in increasing order.
			next := int64(1)
			for _, g := range groups {
				for _, id := range g {
					v, ok := id.Int()
					require.True(t, ok)
					assert.Equal(t, next, v)
					next++
				}
			}
		}
	}
}

func TestToggleLinkMerge(t *testing.T) {
	order := scenegroup.Sequence(3)
	groups := grouping([]int{1}, []int{2}, []int{3})
	merged := scenegroup.ToggleLink(groups, scenegroup.IntID(1), scenegroup.IntID(2), order)
	assert.Equal(t, "1,2|3", scenegroup.Signature(merged))

	// Non-adjacent groups still merge.
	wide := scenegroup.ToggleLink(groups, scenegroup.IntID(1), scenegroup.IntID(3), order)
	assert.Equal(t, "1,3|2", scenegroup.Signature(wide))

	// Input is left alone.
	assert.Equal(t, "1|2|3", scenegroup.Signature(groups))
}

func TestToggleLinkSplit(t *testing.T) {
	order := scenegroup.Sequence(4)
	groups := grouping([]int{1, 2, 3, 4})
	split := scenegroup.ToggleLink(groups, scenegroup.IntID(3), scenegroup.IntID(2), order)
	assert.Equal(t, "1,2|3,4", scenegroup.Signature(split))
}

func TestToggleLinkNoOps(t *testing.T) {
	order := scenegroup.Sequence(4)
	groups := grouping([]int{1, 2, 3}, []int{4})
	want := scenegroup.Signature(groups)

	same := scenegroup.ToggleLink(groups, scenegroup.IntID(2), scenegroup.IntID(2), order)
	assert.Equal(t, want, scenegroup.Signature(same))

	unknown := scenegroup.ToggleLink(groups, scenegroup.IntID(1), scenegroup.IntID(9), order)
	assert.Equal(t, want, scenegroup.Signature(unknown))
}

func TestToggleLinkSplitsDistantMembers(t *testing.T) {
	order := scenegroup.Sequence(4)
	groups := grouping([]int{1, 2, 3}, []int{4})
	split := scenegroup.ToggleLink(groups, scenegroup.IntID(3), scenegroup.IntID(1), order)
	assert.Equal(t, "1|2,3|4", scenegroup.Signature(split))
	assert.False(t, scenegroup.AreLinked(split, scenegroup.IntID(1), scenegroup.IntID(3)))
}

func TestToggleLinkUndoesDistantMerge(t *testing.T) {
	order := scenegroup.Sequence(3)
	start := grouping([]int{1}, []int{2}, []int{3})
	merged := scenegroup.ToggleLink(start, scenegroup.IntID(1), scenegroup.IntID(3), order)
	require.Equal(t, "1,3|2", scenegroup.Signature(merged))

	restored := scenegroup.ToggleLink(merged, scenegroup.IntID(1), scenegroup.IntID(3), order)
	assert.Equal(t, "1|2|3", scenegroup.Signature(restored))
}

func TestToggleLinkInverse(t *testing.T) {
	order := scenegroup.Sequence(6)
	start := scenegroup.Normalize(grouping([]int{1, 2}, []int{3}, []int{4, 5}, []int{6}), order)
	for i := 0; i+1 < len(order); i++ {
		a, b := order[i], order[i+1]
		if scenegroup.AreLinked(start, a, b) {
			continue
		}
		merged := scenegroup.ToggleLink(start, a, b, order)
		assert.True(t, scenegroup.AreLinked(merged, a, b))

		// a and b straddle the old boundary, so the split lands back on it.
		restored := scenegroup.ToggleLink(merged, a, b, order)
		assert.Equal(t, scenegroup.Signature(start), scenegroup.Signature(restored))
	}
}

func TestToggleLinkKeepsPartition(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 300; i++ {
		order, raw := randomInput(rng)
		if len(order) < 2 {
			continue
		}
		groups := scenegroup.Normalize(raw, order)
		a := order[rng.Intn(len(order))]
		b := order[rng.Intn(len(order))]
		next := scenegroup.ToggleLink(groups, a, b, order)
		require.NoError(t, scenegroup.Validate(next, order))

		// Deterministic.
		again := scenegroup.ToggleLink(groups, a, b, order)
		assert.Equal(t, scenegroup.Signature(next), scenegroup.Signature(again))
	}
}

func TestAreLinked(t *testing.T) {
	groups := grouping([]int{1, 2}, []int{3})
	assert.True(t, scenegroup.AreLinked(groups, scenegroup.IntID(1), scenegroup.IntID(2)))
	assert.True(t, scenegroup.AreLinked(groups, scenegroup.IntID(3), scenegroup.NormalizeID("3")))
	assert.False(t, scenegroup.AreLinked(groups, scenegroup.IntID(2), scenegroup.IntID(3)))
	assert.False(t, scenegroup.AreLinked(groups, scenegroup.IntID(1), scenegroup.IntID(8)))
}

func TestGroupInfo(t *testing.T) {
	order := scenegroup.Sequence(4)
	groups := grouping([]int{1, 2, 3}, []int{4})

	info := scenegroup.GroupInfo(groups, scenegroup.IntID(3), order)
	assert.Equal(t, "1", info.Leader.Key())
	assert.True(t, info.IsChild)
	assert.Equal(t, 3, len(info.Group))

	leader := scenegroup.GroupInfo(groups, scenegroup.IntID(4), order)
	assert.Equal(t, "4", leader.Leader.Key())
	assert.False(t, leader.IsChild)

	missing := scenegroup.GroupInfo(groups, scenegroup.IntID(9), order)
	assert.Equal(t, "9", missing.Leader.Key())
	assert.False(t, missing.IsChild)
	assert.Equal(t, 1, len(missing.Group))
}

func TestMergeThenGroupInfo(t *testing.T) {
	order := scenegroup.Sequence(3)
	merged := scenegroup.ToggleLink(grouping([]int{1}, []int{2}, []int{3}), scenegroup.IntID(1), scenegroup.IntID(2), order)
	assert.Equal(t, "1,2|3", scenegroup.Signature(merged))

	info := scenegroup.GroupInfo(merged, scenegroup.IntID(2), order)
	assert.Equal(t, "1", info.Leader.Key())
	assert.True(t, info.IsChild)
	assert.Equal(t, "1,2", scenegroup.Signature(scenegroup.Grouping{info.Group}))
}

func TestGroupInfoLeaderConsistency(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 100; i++ {
		order, raw := randomInput(rng)
		groups := scenegroup.Normalize(raw, order)
		for _, g := range groups {
			for _, id := range g {
				info := scenegroup.GroupInfo(groups, id, order)
				assert.Equal(t, g[0].Key(), info.Leader.Key())
				assert.Equal(t, id.Key() != g[0].Key(), info.IsChild)
			}
		}
	}
}

func TestValidateReportsViolations(t *testing.T) {
	order := scenegroup.Sequence(3)
	assert.ErrorIs(t, scenegroup.Validate(grouping([]int{1, 2}), order), scenegroup.ErrMissingScene)
	assert.ErrorIs(t, scenegroup.Validate(grouping([]int{1, 2, 3}, []int{}), order), scenegroup.ErrEmptyGroup)
	assert.ErrorIs(t, scenegroup.Validate(grouping([]int{2, 1}, []int{3}), order), scenegroup.ErrUnsortedGroup)
	assert.ErrorIs(t, scenegroup.Validate(grouping([]int{3}, []int{1, 2}), order), scenegroup.ErrUnsortedGroups)
	assert.ErrorIs(t, scenegroup.Validate(grouping([]int{1, 2}, []int{2, 3}), order), scenegroup.ErrDuplicateScene)
	assert.ErrorIs(t, scenegroup.Validate(grouping([]int{1, 2, 3, 4}), order), scenegroup.ErrUnknownScene)
}
