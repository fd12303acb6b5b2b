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

package workflow

import (
	goctx "context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-video-wizard/internal/cloud"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/services"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// DefaultSweepBatchSize is how many of the most recently updated projects a
// sweep repairs.
const DefaultSweepBatchSize = 100

// SceneGroupSweepWorkflow is a background job that repairs the groupings of
// recently updated projects. It catches projects whose scene-order message
// was lost or went to the dead letter topic.
type SceneGroupSweepWorkflow struct {
	cor.BaseCommand
	store     services.ProjectStore
	groups    *services.SceneGroupService
	batchSize int
	interval  time.Duration
}

// NewSceneGroupSweepWorkflow creates the sweep. The interval comes from
// application.repair_sweep_seconds; zero disables StartTimer.
func NewSceneGroupSweepWorkflow(config *cloud.Config, store services.ProjectStore, groups *services.SceneGroupService) *SceneGroupSweepWorkflow {
	return &SceneGroupSweepWorkflow{
		BaseCommand: *cor.NewBaseCommand("scene-group-sweep"),
		store:       store,
		groups:      groups,
		batchSize:   DefaultSweepBatchSize,
		interval:    time.Duration(config.Application.RepairSweepSeconds) * time.Second,
	}
}

// IsExecutable always returns true; the sweep takes no input.
func (m *SceneGroupSweepWorkflow) IsExecutable(_ cor.Context) bool {
	return true
}

// Execute repairs every project of the batch. A project that fails is
// recorded and the sweep moves on. The number of rewritten groupings is left
// in the output parameter.
func (m *SceneGroupSweepWorkflow) Execute(context cor.Context) {
	projects, err := m.store.List(context.GetContext(), m.batchSize)
	if err != nil {
		m.Fail(context, fmt.Errorf("listing projects: %w", err))
		return
	}

	var failed []error
	repaired := 0
	for _, p := range projects {
		before := p.StoredSignature()
		view, err := m.groups.Repair(context.GetContext(), p.Id)
		if err != nil {
			if errors.Is(err, services.ErrProjectNotFound) {
				continue
			}
			failed = append(failed, fmt.Errorf("project %s: %w", p.Id, err))
			continue
		}
		if view.Signature != before {
			repaired++
		}
	}

	if len(failed) > 0 {
		m.Fail(context, errors.Join(failed...))
	} else {
		m.Succeed(context)
	}
	slog.InfoContext(context.GetContext(), "scene group sweep finished",
		"projects", len(projects), "repaired", repaired, "failed", len(failed))
	context.Add(m.GetOutputParam(), repaired)
}

// StartTimer runs Execute every interval until ctx is done.
func (m *SceneGroupSweepWorkflow) StartTimer(ctx goctx.Context) {
	if m.interval <= 0 {
		slog.Info("scene group sweep disabled")
		return
	}
	tracer := otel.Tracer("scene-group-sweep")
	ticker := time.NewTicker(m.interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				traceCtx, span := tracer.Start(ctx, "scene-group-sweep")
				chainCtx := cor.NewBaseContext()
				chainCtx.SetContext(traceCtx)

				m.Execute(chainCtx)

				if chainCtx.HasErrors() {
					span.SetStatus(codes.Error, "scene group sweep failed")
				} else {
					span.SetStatus(codes.Ok, "scene group sweep finished")
				}
				span.End()
				chainCtx.Close()
			case <-ctx.Done():
				return
			}
		}
	}()
}
