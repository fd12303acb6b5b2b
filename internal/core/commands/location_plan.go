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
	"context"
	"fmt"

	"github.com/jaycherian/gcp-go-video-wizard/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/model"
)

// LocationPlanParam is the context key holding the *model.LocationPlan.
const LocationPlanParam = "__location_plan__"

// LocationPlanSource proposes locations for a project.
type LocationPlanSource interface {
	Plan(ctx context.Context, p *model.Project) (*model.LocationPlan, error)
}

// LocationPlan asks the planner for a location plan. A planner failure is
// logged into the context as a warning value, not an error, so seeding can
// fall back to an even split.
type LocationPlan struct {
	cor.BaseCommand
	planner LocationPlanSource
}

func NewLocationPlan(name string, planner LocationPlanSource) *LocationPlan {
	return &LocationPlan{BaseCommand: *cor.NewBaseCommand(name), planner: planner}
}

// PlanErrorParam holds the planner error, if any.
const PlanErrorParam = "__location_plan_error__"

func (c *LocationPlan) Execute(context cor.Context) {
	update := context.Get(c.GetInputParam()).(*model.SceneGroupUpdate)
	p, ok := context.Get(ProjectParam).(*model.Project)
	if !ok {
		c.Fail(context, fmt.Errorf("no project loaded for %s", update.ProjectId))
		return
	}

	plan, err := c.planner.Plan(context.GetContext(), p)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.Add(PlanErrorParam, err)
	} else {
		c.Succeed(context)
		context.Add(LocationPlanParam, plan)
	}
	context.Add(c.GetOutputParam(), update)
}
