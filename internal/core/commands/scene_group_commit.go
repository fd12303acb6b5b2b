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
	"time"

	"github.com/jaycherian/gcp-go-video-wizard/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/model"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/scenegroup"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/services"
)

// SceneGroupCommit stores update.After if the project still holds
// update.Before. A concurrent edit fails the command, so the triggering
// message is redelivered and recomputed from fresh data.
type SceneGroupCommit struct {
	cor.BaseCommand
	groups *services.SceneGroupService
}

func NewSceneGroupCommit(name string, groups *services.SceneGroupService) *SceneGroupCommit {
	return &SceneGroupCommit{BaseCommand: *cor.NewBaseCommand(name), groups: groups}
}

func (c *SceneGroupCommit) Execute(context cor.Context) {
	update := context.Get(c.GetInputParam()).(*model.SceneGroupUpdate)

	if update.AfterSignature == update.BeforeSignature {
		c.Succeed(context)
		context.Add(c.GetOutputParam(), update)
		return
	}

	next := scenegroup.Normalize(update.After, update.SceneOrder)
	if _, err := c.groups.Commit(context.GetContext(), update.ProjectId, update.BeforeSignature, next, update.Reason); err != nil {
		c.Fail(context, err)
		return
	}
	update.Committed = true
	update.UpdatedAt = time.Now().UTC()

	c.Succeed(context)
	context.Add(c.GetOutputParam(), update)
}
