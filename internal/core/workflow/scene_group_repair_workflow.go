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

// Package workflow combines commands into the pipelines run by the Pub/Sub
// listeners. This file implements the repair pipeline that keeps a project's
// scene grouping consistent after its scenes change.
package workflow

import (
	"github.com/jaycherian/gcp-go-video-wizard/internal/cloud"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/services"
)

// SceneGroupRepairWorkflow reacts to a scene-order-changed message. It loads
// the project, normalizes the stored grouping against the current scene
// order and commits the result if it differs from what is stored.
//
// The commit is a compare-and-swap, so an edit made through the API while
// the workflow runs fails the message instead of being overwritten.
type SceneGroupRepairWorkflow struct {
	cor.BaseCommand
	store         services.ProjectStore
	groups        *services.SceneGroupService
	archiveWriter cloud.ObjectWriter
	archiveBucket string
	chain         cor.Chain
}

// Execute runs the pipeline on a context whose CtxIn holds the raw message
// text.
func (m *SceneGroupRepairWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}

func (m *SceneGroupRepairWorkflow) initializeChain() {
	out := cor.NewBaseChain(m.GetName())

	// Step 1: Parse the message into a SceneOrderChanged event.
	out.AddCommand(commands.NewSceneOrderTrigger("scene-order-trigger", services.ReasonRepair))

	// Step 2: Load the project and capture its stored grouping.
	out.AddCommand(commands.NewProjectLoader("load-project", m.store))

	// Step 3: Normalize against the current scene order.
	out.AddCommand(commands.NewSceneGroupRepair("repair-scene-group"))

	// Step 4: Write back if anything changed.
	out.AddCommand(commands.NewSceneGroupCommit("commit-scene-group", m.groups))

	// Step 5: Keep a copy of the change for auditing.
	out.AddCommand(commands.NewSceneGroupArchive("archive-scene-group", m.archiveWriter, m.archiveBucket))

	m.chain = out
}

// NewSceneGroupRepairPipeline builds the repair workflow. archiveWriter may
// be nil, in which case changes are not archived.
func NewSceneGroupRepairPipeline(
	config *cloud.Config,
	store services.ProjectStore,
	groups *services.SceneGroupService,
	archiveWriter cloud.ObjectWriter) *SceneGroupRepairWorkflow {

	pipeline := &SceneGroupRepairWorkflow{
		BaseCommand:   *cor.NewBaseCommand("scene-group-repair-pipeline"),
		store:         store,
		groups:        groups,
		archiveWriter: archiveWriter,
		archiveBucket: config.Storage.ArchiveBucket,
	}
	pipeline.initializeChain()
	return pipeline
}
