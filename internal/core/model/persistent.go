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

// Package model defines the core data structures for the application.
// This file, `persistent.go`, holds the project document: the objects that are
// written to and read back from the project store.
package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/scenegroup"
)

// Production stages a project moves through. Scene grouping is edited while a
// project is in StageScenes or StageAssets.
const (
	StageDraft   = "draft"
	StageScenes  = "scenes"
	StageAssets  = "assets"
	StageRender  = "render"
	StageArchive = "archive"
)

// Scene is a single narrated beat of a project. Scenes are shown in Index
// order; Id is stable across reorders.
type Scene struct {
	Id            scenegroup.SceneID `json:"id"`
	Index         int                `json:"index"`
	Narration     string             `json:"narration,omitempty"`
	ImagePrompt   string             `json:"image_prompt,omitempty"`
	ImageURL      string             `json:"image_url,omitempty"`
	CandidateURLs []string           `json:"candidate_urls,omitempty"`
}

// Project is the persisted document for one video. SceneGroup is kept in its
// storage shape and is only trusted after scenegroup.Normalize.
type Project struct {
	Id            string              `json:"id"`
	Title         string              `json:"title"`
	Topic         string              `json:"topic,omitempty"`
	Character     string              `json:"character,omitempty"`
	Stage         string              `json:"stage"`
	LocationCount *int                `json:"location_count,omitempty"`
	Scenes        []*Scene            `json:"scenes"`
	SceneGroup    []scenegroup.Record `json:"scene_group"`
	CreateDate    time.Time           `json:"create_date"`
	UpdateDate    time.Time           `json:"update_date"`
}

// NewProject creates a draft project with scenes 1..sceneCount, each its own
// group.
//
// Inputs:
//   - title: The working title of the video.
//   - sceneCount: Number of empty scenes to create.
//
// Outputs:
//   - *Project: A project with a random UUID id.
func NewProject(title string, sceneCount int) *Project {
	now := time.Now()
	p := &Project{
		Id:         uuid.NewString(),
		Title:      title,
		Stage:      StageDraft,
		Scenes:     make([]*Scene, 0, max(sceneCount, 0)),
		CreateDate: now,
		UpdateDate: now,
	}
	for i, id := range scenegroup.Sequence(sceneCount) {
		p.Scenes = append(p.Scenes, &Scene{Id: id, Index: i, CandidateURLs: []string{}})
	}
	p.SceneGroup = scenegroup.Encode(scenegroup.Normalize(nil, p.SceneOrder()))
	return p
}

// SceneOrder returns scene ids sorted by Index. Scenes sharing an index keep
// their slice order.
func (p *Project) SceneOrder() []scenegroup.SceneID {
	scenes := make([]*Scene, 0, len(p.Scenes))
	for _, s := range p.Scenes {
		if s != nil {
			scenes = append(scenes, s)
		}
	}
	sort.SliceStable(scenes, func(i, j int) bool {
		return scenes[i].Index < scenes[j].Index
	})
	out := make([]scenegroup.SceneID, len(scenes))
	for i, s := range scenes {
		out[i] = s.Id
	}
	return out
}

// Scene returns the scene with the given id, or nil.
func (p *Project) Scene(id scenegroup.SceneID) *Scene {
	for _, s := range p.Scenes {
		if s != nil && s.Id.Equal(id) {
			return s
		}
	}
	return nil
}

// Groups returns the stored grouping normalized against the current scene
// order.
func (p *Project) Groups() scenegroup.Grouping {
	return scenegroup.Normalize(p.SceneGroup, p.SceneOrder())
}

// StoredSignature is the signature of SceneGroup exactly as stored, without
// normalization. It differs from Signature(p.Groups()) when the stored value
// needs repair.
func (p *Project) StoredSignature() string {
	decoded := scenegroup.Decode(p.SceneGroup)
	groups := make(scenegroup.Grouping, len(decoded))
	for i, ids := range decoded {
		groups[i] = ids
	}
	return scenegroup.Signature(groups)
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := *p
	if p.LocationCount != nil {
		n := *p.LocationCount
		out.LocationCount = &n
	}
	out.Scenes = make([]*Scene, 0, len(p.Scenes))
	for _, s := range p.Scenes {
		if s == nil {
			continue
		}
		c := *s
		c.CandidateURLs = append([]string{}, s.CandidateURLs...)
		out.Scenes = append(out.Scenes, &c)
	}
	out.SceneGroup = make([]scenegroup.Record, len(p.SceneGroup))
	for i, r := range p.SceneGroup {
		out.SceneGroup[i] = scenegroup.Record{Scenes: append([]scenegroup.SceneID{}, r.Scenes...)}
	}
	return &out
}
