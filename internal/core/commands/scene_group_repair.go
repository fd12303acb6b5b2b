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
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/model"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/scenegroup"
)

// SceneGroupRepair normalizes the stored grouping against the current scene
// order. Scenes that were added get their own group; deleted scenes drop out.
type SceneGroupRepair struct {
	cor.BaseCommand
}

func NewSceneGroupRepair(name string) *SceneGroupRepair {
	return &SceneGroupRepair{BaseCommand: *cor.NewBaseCommand(name)}
}

func (c *SceneGroupRepair) Execute(context cor.Context) {
	update := context.Get(c.GetInputParam()).(*model.SceneGroupUpdate)

	next := scenegroup.Normalize(update.Before, update.SceneOrder)
	update.After = scenegroup.Encode(next)
	update.AfterSignature = scenegroup.Signature(next)

	c.Succeed(context)
	context.Add(c.GetOutputParam(), update)
}
