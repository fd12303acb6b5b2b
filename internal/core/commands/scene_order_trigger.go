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

// Package commands contains the individual steps of the scene group
// workflows. Every command embeds cor.BaseCommand and reads its input from,
// and writes its output to, the chain context.
package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-video-wizard/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/model"
)

// SceneOrderTrigger decodes a Pub/Sub payload into a SceneOrderChanged
// event.
type SceneOrderTrigger struct {
	cor.BaseCommand
	defaultReason string
}

// NewSceneOrderTrigger creates the command. defaultReason is used when the
// message does not carry one.
func NewSceneOrderTrigger(name, defaultReason string) *SceneOrderTrigger {
	return &SceneOrderTrigger{BaseCommand: *cor.NewBaseCommand(name), defaultReason: defaultReason}
}

func (c *SceneOrderTrigger) Execute(context cor.Context) {
	in, ok := context.Get(c.GetInputParam()).(string)
	if !ok {
		c.Fail(context, fmt.Errorf("expected a string message, got %T", context.Get(c.GetInputParam())))
		return
	}

	var out model.SceneOrderChanged
	if err := json.Unmarshal([]byte(in), &out); err != nil {
		c.Fail(context, fmt.Errorf("failed to unmarshal scene order message: %w", err))
		return
	}
	out.ProjectId = strings.TrimSpace(out.ProjectId)
	if out.ProjectId == "" {
		c.Fail(context, fmt.Errorf("scene order message has no project_id"))
		return
	}
	if out.Reason == "" {
		out.Reason = c.defaultReason
	}

	c.Succeed(context)
	context.Add(c.GetOutputParam(), &out)
}
