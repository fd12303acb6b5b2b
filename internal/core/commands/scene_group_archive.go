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
	"encoding/json"
	"fmt"

	"github.com/jaycherian/gcp-go-video-wizard/internal/cloud"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/model"
)

// SceneGroupArchive writes each committed update as a JSON object to the
// archive bucket, one object per change. Uncommitted updates are skipped.
type SceneGroupArchive struct {
	cor.BaseCommand
	writer cloud.ObjectWriter
	bucket string
}

func NewSceneGroupArchive(name string, writer cloud.ObjectWriter, bucket string) *SceneGroupArchive {
	return &SceneGroupArchive{BaseCommand: *cor.NewBaseCommand(name), writer: writer, bucket: bucket}
}

// ArchiveObjectName returns the object name an update is archived under.
func ArchiveObjectName(update *model.SceneGroupUpdate) string {
	return fmt.Sprintf("scene-groups/%s/%s-%s.json",
		update.ProjectId, update.UpdatedAt.UTC().Format("20060102T150405.000000000Z"), update.Reason)
}

func (c *SceneGroupArchive) Execute(context cor.Context) {
	update := context.Get(c.GetInputParam()).(*model.SceneGroupUpdate)
	if !update.Committed || c.writer == nil || c.bucket == "" {
		context.Add(c.GetOutputParam(), update)
		return
	}

	data, err := json.Marshal(update)
	if err != nil {
		c.Fail(context, fmt.Errorf("encoding scene group update: %w", err))
		return
	}
	obj := &cloud.GCSObject{Bucket: c.bucket, Name: ArchiveObjectName(update), MIMEType: "application/json"}
	if _, err := c.writer.WriteObject(context.GetContext(), obj, data); err != nil {
		c.Fail(context, fmt.Errorf("archiving scene group update: %w", err))
		return
	}

	c.Succeed(context)
	context.Add(c.GetOutputParam(), update)
}
