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

package workflow_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-video-wizard/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/model"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/scenegroup"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/services"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(projectID string) string {
	return fmt.Sprintf(`{"project_id": %q}`, projectID)
}

func storedSignature(t *testing.T, store services.ProjectStore, id string) string {
	t.Helper()
	p, err := store.Get(ctx, id)
	require.NoError(t, err)
	return scenegroup.Signature(p.Groups())
}

func TestSceneGroupRepairWorkflow(t *testing.T) {
	store := services.NewMemoryProjectStore()
	groups := services.NewSceneGroupService(store, services.NewLocalLocker(), nil)
	archive := newMemoryObjects()
	pipeline := workflow.NewSceneGroupRepairPipeline(config, store, groups, archive)

	p := model.NewProject("Repair", 4)
	p.SceneGroup = []scenegroup.Record{
		{Scenes: scenegroup.IDs(2, 1)},
		{Scenes: scenegroup.IDs(9)},
	}
	seed(t, store, p)

	chCtx := run(pipeline, message(p.Id))
	require.NoError(t, chCtx.Err())

	update, ok := chCtx.Get(cor.CtxIn).(*model.SceneGroupUpdate)
	require.True(t, ok)
	assert.True(t, update.Committed)
	assert.Equal(t, services.ReasonRepair, update.Reason)
	assert.Equal(t, "2,1|9", update.BeforeSignature)
	assert.Equal(t, "1,2|3|4", update.AfterSignature)
	assert.Equal(t, "1,2|3|4", storedSignature(t, store, p.Id))

	names := archive.names()
	require.Len(t, names, 1)
	assert.True(t, strings.HasPrefix(names[0], "gs://scene-group-archive/scene-groups/"+p.Id+"/"))

	var archived model.SceneGroupUpdate
	require.NoError(t, json.Unmarshal(archive.objects[names[0]], &archived))
	assert.Equal(t, update.AfterSignature, archived.AfterSignature)
}

func TestSceneGroupRepairWorkflowNoChange(t *testing.T) {
	store := services.NewMemoryProjectStore()
	groups := services.NewSceneGroupService(store, services.NewLocalLocker(), nil)
	archive := newMemoryObjects()
	pipeline := workflow.NewSceneGroupRepairPipeline(config, store, groups, archive)

	p := model.NewProject("Clean", 3)
	seed(t, store, p)

	chCtx := run(pipeline, message(p.Id))
	require.NoError(t, chCtx.Err())
	update := chCtx.Get(cor.CtxIn).(*model.SceneGroupUpdate)
	assert.False(t, update.Committed)
	assert.Empty(t, archive.names())
	assert.Equal(t, int64(0), groups.Stats()[services.CounterWrites])
}

func TestSceneGroupRepairWorkflowFailures(t *testing.T) {
	store := services.NewMemoryProjectStore()
	groups := services.NewSceneGroupService(store, services.NewLocalLocker(), nil)
	pipeline := workflow.NewSceneGroupRepairPipeline(config, store, groups, nil)

	chCtx := run(pipeline, message("missing"))
	assert.ErrorIs(t, chCtx.Err(), services.ErrProjectNotFound)

	chCtx = run(pipeline, `not json`)
	assert.Error(t, chCtx.Err())

	chCtx = run(pipeline, `{"project_id": "  "}`)
	assert.Error(t, chCtx.Err())
}

func TestSceneGroupRepairWorkflowConcurrentEdit(t *testing.T) {
	store := &racingStore{MemoryProjectStore: services.NewMemoryProjectStore()}
	groups := services.NewSceneGroupService(store, services.NewLocalLocker(), nil)
	pipeline := workflow.NewSceneGroupRepairPipeline(config, store, groups, nil)

	p := model.NewProject("Race", 3)
	p.SceneGroup = []scenegroup.Record{{Scenes: scenegroup.IDs(3, 1)}}
	seed(t, store, p)

	chCtx := run(pipeline, message(p.Id))
	require.Error(t, chCtx.Err())
	assert.True(t, errors.Is(chCtx.Err(), services.ErrConcurrentUpdate))
	assert.Equal(t, int64(1), groups.Stats()[services.CounterConflicts])

	// The editor's write is kept.
	stored, err := store.MemoryProjectStore.Get(ctx, p.Id)
	require.NoError(t, err)
	assert.Equal(t, "", stored.StoredSignature())
}

func TestSceneGroupSeedWorkflowUsesPlan(t *testing.T) {
	store := services.NewMemoryProjectStore()
	publisher := &capturingPublisher{}
	groups := services.NewSceneGroupService(store, services.NewLocalLocker(), publisher)
	planner := &fixedPlanner{plan: model.GetExampleLocationPlan()}
	pipeline := workflow.NewSceneGroupSeedPipeline(config, store, groups, planner, newMemoryObjects())

	p := model.NewProject("Seed", 6)
	seed(t, store, p)

	chCtx := run(pipeline, message(p.Id))
	require.NoError(t, chCtx.Err())
	assert.Equal(t, 1, planner.calls)
	assert.Equal(t, "1,2|3,4,5|6", storedSignature(t, store, p.Id))

	require.Len(t, publisher.events, 1)
	assert.Equal(t, services.ReasonSeed, publisher.events[0].Reason)
}

func TestSceneGroupSeedWorkflowFallsBackToLocationCount(t *testing.T) {
	store := services.NewMemoryProjectStore()
	groups := services.NewSceneGroupService(store, services.NewLocalLocker(), nil)
	planner := &fixedPlanner{err: errModelDown}
	pipeline := workflow.NewSceneGroupSeedPipeline(config, store, groups, planner, nil)

	p := model.NewProject("Fallback", 5)
	p.LocationCount = scenegroup.Locations(2)
	seed(t, store, p)

	chCtx := run(pipeline, message(p.Id))
	require.NoError(t, chCtx.Err())
	assert.Equal(t, errModelDown, chCtx.Get(commands.PlanErrorParam))
	assert.Equal(t, "1,2,3|4,5", storedSignature(t, store, p.Id))
}

func TestSceneGroupSeedWorkflowKeepsUserLinks(t *testing.T) {
	store := services.NewMemoryProjectStore()
	groups := services.NewSceneGroupService(store, services.NewLocalLocker(), nil)
	planner := &fixedPlanner{plan: &model.LocationPlan{LocationCount: 1}}
	pipeline := workflow.NewSceneGroupSeedPipeline(config, store, groups, planner, nil)

	p := model.NewProject("Edited", 4)
	p.SceneGroup = []scenegroup.Record{{Scenes: scenegroup.IDs(3, 4)}}
	seed(t, store, p)

	chCtx := run(pipeline, message(p.Id))
	require.NoError(t, chCtx.Err())
	assert.Equal(t, "1|2|3,4", storedSignature(t, store, p.Id))
}

func TestSceneGroupSeedWorkflowWithoutPlanner(t *testing.T) {
	store := services.NewMemoryProjectStore()
	groups := services.NewSceneGroupService(store, services.NewLocalLocker(), nil)
	pipeline := workflow.NewSceneGroupSeedPipeline(config, store, groups, nil, nil)

	p := model.NewProject("No planner", 3)
	p.SceneGroup = nil
	seed(t, store, p)

	chCtx := run(pipeline, message(p.Id))
	require.NoError(t, chCtx.Err())
	assert.Equal(t, "1|2|3", storedSignature(t, store, p.Id))
}

func TestSceneGroupSweepWorkflow(t *testing.T) {
	store := services.NewMemoryProjectStore()
	groups := services.NewSceneGroupService(store, services.NewLocalLocker(), nil)
	sweep := workflow.NewSceneGroupSweepWorkflow(config, store, groups)

	broken := model.NewProject("Broken", 3)
	broken.SceneGroup = []scenegroup.Record{{Scenes: scenegroup.IDs(3, 1, 7)}}
	seed(t, store, broken)
	clean := model.NewProject("Clean", 2)
	seed(t, store, clean)

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	sweep.Execute(chCtx)

	require.NoError(t, chCtx.Err())
	assert.Equal(t, 1, chCtx.Get(cor.CtxOut))
	assert.Equal(t, "1,3|2", storedSignature(t, store, broken.Id))
	assert.Equal(t, "1|2", storedSignature(t, store, clean.Id))
}
