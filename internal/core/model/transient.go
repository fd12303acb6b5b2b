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
// This file, `transient.go`, contains the objects that only live in memory
// while a workflow runs or travel over Pub/Sub. They are never written to the
// project store as-is.
package model

import (
	"time"

	"github.com/jaycherian/gcp-go-video-wizard/internal/core/scenegroup"
)

// SceneOrderChanged is the Pub/Sub payload sent by the editor when scenes are
// added, removed or reordered, and when a script finishes generating.
type SceneOrderChanged struct {
	ProjectId string `json:"project_id"`
	Reason    string `json:"reason,omitempty"`
}

// SceneGroupChanged is published after a new grouping has been written.
type SceneGroupChanged struct {
	ProjectId string              `json:"project_id"`
	Reason    string              `json:"reason"`
	Signature string              `json:"signature"`
	Groups    []scenegroup.Record `json:"groups"`
	ChangedAt time.Time           `json:"changed_at"`
}

// SceneGroupUpdate carries a grouping change through a workflow. Before is
// captured when the project is loaded and doubles as the expected value for
// the compare-and-swap commit.
type SceneGroupUpdate struct {
	ProjectId       string               `json:"project_id"`
	Reason          string               `json:"reason"`
	SceneOrder      []scenegroup.SceneID `json:"scene_order"`
	Before          []scenegroup.Record  `json:"before"`
	BeforeSignature string               `json:"before_signature"`
	After           []scenegroup.Record  `json:"after"`
	AfterSignature  string               `json:"after_signature"`
	Committed       bool                 `json:"committed"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// Location is one place in a LocationPlan with the raw ids of the scenes set
// there. The ids come from a language model and are untrusted.
type Location struct {
	Name   string `json:"name"`
	Scenes []any  `json:"scenes"`
}

// LocationPlan is the model's proposal for how a script splits into
// locations.
type LocationPlan struct {
	LocationCount int         `json:"location_count"`
	Locations     []*Location `json:"locations"`
}

// RawGroups returns the plan's scene lists in the list-of-lists shape
// accepted by scenegroup.Normalize.
func (p *LocationPlan) RawGroups() []any {
	out := make([]any, 0, len(p.Locations))
	for _, l := range p.Locations {
		if l == nil {
			continue
		}
		out = append(out, l.Scenes)
	}
	return out
}
