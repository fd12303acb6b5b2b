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

// Package services. This file defines LocationPlanner, which asks a
// generative model how a script splits into locations and turns the answer
// into a valid scene grouping.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/jaycherian/gcp-go-video-wizard/internal/cloud"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/model"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/scenegroup"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// LocationPlanner proposes a location grouping for a project's script.
type LocationPlanner struct {
	model                    cloud.ContentGenerator
	template                 *template.Template
	geminiInputTokenCounter  metric.Int64Counter
	geminiOutputTokenCounter metric.Int64Counter
	geminiRetryCounter       metric.Int64Counter
}

// NewLocationPlanner parses promptTemplate and binds it to a model. The
// template receives TITLE, TOPIC, CHARACTER, LOCATION_COUNT, SCENES and
// EXAMPLE_JSON.
func NewLocationPlanner(generator cloud.ContentGenerator, promptTemplate string) (*LocationPlanner, error) {
	tmpl, err := template.New("location_plan").Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing location plan template: %w", err)
	}
	meter := otel.Meter("github.com/jaycherian/gcp-go-video-wizard/services")
	out := &LocationPlanner{model: generator, template: tmpl}
	out.geminiInputTokenCounter, _ = meter.Int64Counter("location_planner.gemini.token.input")
	out.geminiOutputTokenCounter, _ = meter.Int64Counter("location_planner.gemini.token.output")
	out.geminiRetryCounter, _ = meter.Int64Counter("location_planner.gemini.token.retry")
	return out, nil
}

// GenerateParams builds the template data for p.
func (l *LocationPlanner) GenerateParams(p *model.Project) map[string]interface{} {
	params := make(map[string]interface{})
	params["TITLE"] = p.Title
	params["TOPIC"] = p.Topic
	params["CHARACTER"] = p.Character
	params["LOCATION_COUNT"] = ""
	if p.LocationCount != nil {
		params["LOCATION_COUNT"] = fmt.Sprint(*p.LocationCount)
	}

	var scenes strings.Builder
	for _, id := range p.SceneOrder() {
		scene := p.Scene(id)
		fmt.Fprintf(&scenes, "Scene %s: %s\n", id.Key(), strings.TrimSpace(scene.Narration))
	}
	params["SCENES"] = scenes.String()

	exampleJSON, _ := json.Marshal(model.GetExampleLocationPlan())
	params["EXAMPLE_JSON"] = string(exampleJSON)
	return params
}

// Plan asks the model for a location plan.
func (l *LocationPlanner) Plan(ctx context.Context, p *model.Project) (*model.LocationPlan, error) {
	var buffer bytes.Buffer
	if err := l.template.Execute(&buffer, l.GenerateParams(p)); err != nil {
		return nil, fmt.Errorf("failed to execute prompt template: %w", err)
	}
	out, err := cloud.GenerateMultiModalResponse(ctx,
		l.geminiInputTokenCounter, l.geminiOutputTokenCounter, l.geminiRetryCounter,
		0, l.model, cloud.NewTextPart(buffer.String()))
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	return ParseLocationPlan(out)
}

// ParseLocationPlan decodes a model response, tolerating a markdown fence.
// A plan must name at least one location or a positive location count.
func ParseLocationPlan(text string) (*model.LocationPlan, error) {
	dec := json.NewDecoder(strings.NewReader(cloud.StripCodeFence(text)))
	dec.UseNumber()
	plan := &model.LocationPlan{}
	if err := dec.Decode(plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLocationPlan, err)
	}
	if plan.LocationCount <= 0 && len(plan.RawGroups()) == 0 {
		return nil, fmt.Errorf("%w: no locations", ErrInvalidLocationPlan)
	}
	return plan, nil
}

// PlanGrouping turns a plan into a grouping of order. The plan's scene lists
// are untrusted and always normalized. If none of them names a real scene,
// the scenes are split evenly over the plan's location count.
func PlanGrouping(plan *model.LocationPlan, order []scenegroup.SceneID) scenegroup.Grouping {
	raw := plan.RawGroups()
	known := make(map[string]bool, len(order))
	for _, id := range order {
		known[id.Key()] = true
	}
	for _, ids := range scenegroup.Decode(raw) {
		for _, id := range ids {
			if known[id.Key()] {
				return scenegroup.Normalize(raw, order)
			}
		}
	}
	if plan.LocationCount > 0 {
		count := plan.LocationCount
		return scenegroup.Normalize(mapPositions(scenegroup.AutoGroup(len(order), &count), order), order)
	}
	return scenegroup.Normalize(nil, order)
}
