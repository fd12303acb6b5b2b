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

package commands_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-wizard/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/model"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/scenegroup"
	"github.com/zeebo/assert"
)

func newContext(in any) cor.Context {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.Add(cor.CtxIn, in)
	return chCtx
}

func TestSceneOrderTrigger(t *testing.T) {
	trigger := commands.NewSceneOrderTrigger("trigger", "repair")

	chCtx := newContext(`{"project_id": " p1 "}`)
	trigger.Execute(chCtx)
	assert.False(t, chCtx.HasErrors())
	out := chCtx.Get(cor.CtxOut).(*model.SceneOrderChanged)
	assert.Equal(t, "p1", out.ProjectId)
	assert.Equal(t, "repair", out.Reason)

	chCtx = newContext(`{"project_id": "p1", "reason": "scene_deleted"}`)
	trigger.Execute(chCtx)
	assert.Equal(t, "scene_deleted", chCtx.Get(cor.CtxOut).(*model.SceneOrderChanged).Reason)

	for _, in := range []any{`{}`, `[]`, `{"project_id": 7}`, 42} {
		chCtx = newContext(in)
		trigger.Execute(chCtx)
		assert.True(t, chCtx.HasErrors())
	}
}

func TestSceneGroupRepairCommand(t *testing.T) {
	update := &model.SceneGroupUpdate{
		ProjectId:  "p1",
		SceneOrder: scenegroup.IDs(1, 2, 3),
		Before:     []scenegroup.Record{{Scenes: scenegroup.IDs(2, 2, 1)}, {Scenes: nil}},
	}
	chCtx := newContext(update)
	commands.NewSceneGroupRepair("repair").Execute(chCtx)

	assert.False(t, chCtx.HasErrors())
	assert.Equal(t, "1,2|3", update.AfterSignature)
	assert.Equal(t, 2, len(update.After))
}

func TestSceneGroupSeedKeepsLinkedGrouping(t *testing.T) {
	update := &model.SceneGroupUpdate{
		ProjectId:  "p1",
		SceneOrder: scenegroup.IDs(1, 2, 3, 4),
		Before:     []scenegroup.Record{{Scenes: scenegroup.IDs(2, 3)}},
	}
	chCtx := newContext(update)
	chCtx.Add(commands.LocationPlanParam, &model.LocationPlan{LocationCount: 1})
	commands.NewSceneGroupSeed("seed").Execute(chCtx)
	assert.Equal(t, "1|2,3|4", update.AfterSignature)

	update = &model.SceneGroupUpdate{ProjectId: "p2", SceneOrder: scenegroup.IDs(1, 2, 3, 4)}
	chCtx = newContext(update)
	chCtx.Add(commands.LocationPlanParam, &model.LocationPlan{LocationCount: 1})
	commands.NewSceneGroupSeed("seed").Execute(chCtx)
	assert.Equal(t, "1,2,3,4", update.AfterSignature)
}

func TestArchiveObjectName(t *testing.T) {
	update := &model.SceneGroupUpdate{
		ProjectId: "p1",
		Reason:    "repair",
		UpdatedAt: time.Date(2024, 5, 1, 12, 30, 0, 5, time.UTC),
	}
	name := commands.ArchiveObjectName(update)
	assert.True(t, strings.HasPrefix(name, "scene-groups/p1/20240501T123000."))
	assert.True(t, strings.HasSuffix(name, "-repair.json"))
}
