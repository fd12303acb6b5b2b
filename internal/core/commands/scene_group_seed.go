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

package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-video-wizard/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/model"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/scenegroup"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/services"
)

// SceneGroupSeed proposes the first grouping of a freshly written script.
// A project whose grouping already links scenes was edited by a user and is
// only repaired, never reseeded.
type SceneGroupSeed struct {
	cor.BaseCommand
}

func NewSceneGroupSeed(name string) *SceneGroupSeed {
	return &SceneGroupSeed{BaseCommand: *cor.NewBaseCommand(name)}
}

func (c *SceneGroupSeed) Execute(context cor.Context) {
	update := context.Get(c.GetInputParam()).(*model.SceneGroupUpdate)
	current := scenegroup.Normalize(update.Before, update.SceneOrder)

	next := current
	switch {
	case hasLinks(current):
		slog.InfoContext(context.GetContext(), "project already grouped, not reseeding", "project_id", update.ProjectId)
	default:
		plan, _ := context.Get(LocationPlanParam).(*model.LocationPlan)
		if plan == nil {
			plan = &model.LocationPlan{}
			if p, ok := context.Get(ProjectParam).(*model.Project); ok && p.LocationCount != nil {
				plan.LocationCount = *p.LocationCount
			}
		}
		next = services.PlanGrouping(plan, update.SceneOrder)
	}

	update.After = scenegroup.Encode(next)
	update.AfterSignature = scenegroup.Signature(next)
	c.Succeed(context)
	context.Add(c.GetOutputParam(), update)
}

func hasLinks(groups scenegroup.Grouping) bool {
	for _, g := range groups {
		if len(g) > 1 {
			return true
		}
	}
	return false
}
