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

package workflow

import (
	"github.com/jaycherian/gcp-go-video-wizard/internal/cloud"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/services"
)

// SceneGroupSeedWorkflow proposes the first grouping for a project whose
// script has just been generated. It asks the language model which scenes
// share a location and falls back to an even split over the project's
// location count when the model cannot help.
//
// A project the user has already grouped by hand is only repaired.
type SceneGroupSeedWorkflow struct {
	cor.BaseCommand
	store         services.ProjectStore
	groups        *services.SceneGroupService
	planner       commands.LocationPlanSource
	archiveWriter cloud.ObjectWriter
	archiveBucket string
	chain         cor.Chain
}

func (m *SceneGroupSeedWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}

func (m *SceneGroupSeedWorkflow) initializeChain() {
	out := cor.NewBaseChain(m.GetName())
	out.AddCommand(commands.NewSceneOrderTrigger("scenes-ready-trigger", services.ReasonSeed))
	out.AddCommand(commands.NewProjectLoader("load-project", m.store))
	if m.planner != nil {
		out.AddCommand(commands.NewLocationPlan("plan-locations", m.planner))
	}
	out.AddCommand(commands.NewSceneGroupSeed("seed-scene-group"))
	out.AddCommand(commands.NewSceneGroupCommit("commit-scene-group", m.groups))
	out.AddCommand(commands.NewSceneGroupArchive("archive-scene-group", m.archiveWriter, m.archiveBucket))
	m.chain = out
}

// NewSceneGroupSeedPipeline builds the seed workflow.
//
// Inputs:
//   - config: supplies the archive bucket.
//   - store, groups: the project store and the grouping service writing to it.
//   - planner: the location planner; nil skips planning.
//   - archiveWriter: where committed changes are archived; may be nil.
func NewSceneGroupSeedPipeline(
	config *cloud.Config,
	store services.ProjectStore,
	groups *services.SceneGroupService,
	planner commands.LocationPlanSource,
	archiveWriter cloud.ObjectWriter) *SceneGroupSeedWorkflow {

	pipeline := &SceneGroupSeedWorkflow{
		BaseCommand:   *cor.NewBaseCommand("scene-group-seed-pipeline"),
		store:         store,
		groups:        groups,
		planner:       planner,
		archiveWriter: archiveWriter,
		archiveBucket: config.Storage.ArchiveBucket,
	}
	pipeline.initializeChain()
	return pipeline
}
