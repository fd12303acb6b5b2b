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
	"fmt"
	"time"

	"github.com/jaycherian/gcp-go-video-wizard/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/model"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/services"
)

// ProjectParam is the context key holding the loaded *model.Project.
const ProjectParam = "__project__"

// ProjectLoader loads the project named by a SceneOrderChanged event and
// starts a SceneGroupUpdate from its stored grouping.
type ProjectLoader struct {
	cor.BaseCommand
	store services.ProjectStore
}

func NewProjectLoader(name string, store services.ProjectStore) *ProjectLoader {
	return &ProjectLoader{BaseCommand: *cor.NewBaseCommand(name), store: store}
}

func (c *ProjectLoader) Execute(context cor.Context) {
	event := context.Get(c.GetInputParam()).(*model.SceneOrderChanged)

	p, err := c.store.Get(context.GetContext(), event.ProjectId)
	if err != nil {
		c.Fail(context, fmt.Errorf("loading project: %w", err))
		return
	}

	update := &model.SceneGroupUpdate{
		ProjectId:       p.Id,
		Reason:          event.Reason,
		SceneOrder:      p.SceneOrder(),
		Before:          p.SceneGroup,
		BeforeSignature: p.StoredSignature(),
		UpdatedAt:       time.Now().UTC(),
	}

	c.Succeed(context)
	context.Add(ProjectParam, p)
	context.Add(c.GetOutputParam(), update)
}
