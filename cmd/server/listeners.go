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

package main

import (
	"context"
	"log/slog"

	"github.com/jaycherian/gcp-go-video-wizard/internal/cloud"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/services"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/workflow"
)

// Subscription keys under [topic_subscriptions] in the configuration.
const (
	SceneOrderSubscription  = "scene-order"
	ScenesReadySubscription = "scenes-ready"
	LocationPlannerModel    = "location-planner"
)

// SetupListeners attaches the repair and seed workflows to their Pub/Sub
// subscriptions and starts receiving. Subscriptions missing from the
// configuration are skipped.
func SetupListeners(ctx context.Context, config *cloud.Config, cloudClients *cloud.ServiceClients, state *StateManager) {
	if cloudClients == nil {
		return
	}
	archive := objectStore(config, cloudClients)

	if listener, ok := cloudClients.PubSubListeners[SceneOrderSubscription]; ok {
		repair := workflow.NewSceneGroupRepairPipeline(config, state.store, state.groups, archive)
		listener.SetCommand(repair)
		listener.Listen(ctx)
	}

	if listener, ok := cloudClients.PubSubListeners[ScenesReadySubscription]; ok {
		seed := workflow.NewSceneGroupSeedPipeline(config, state.store, state.groups, newPlanner(config, cloudClients), archive)
		listener.SetCommand(seed)
		listener.Listen(ctx)
	}
}

// newPlanner returns nil, and seeding falls back to an even split, when no
// model or prompt is configured.
func newPlanner(config *cloud.Config, cloudClients *cloud.ServiceClients) commands.LocationPlanSource {
	model, ok := cloudClients.AgentModels[LocationPlannerModel]
	if !ok || config.PromptTemplates.LocationPlan == "" {
		slog.Warn("location planner disabled", "model", LocationPlannerModel)
		return nil
	}
	planner, err := services.NewLocationPlanner(model, config.PromptTemplates.LocationPlan)
	if err != nil {
		slog.Error("location planner disabled", "error", err)
		return nil
	}
	return planner
}
