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

// Package services. This file defines SceneGroupService, which hosts the
// scene grouping engine: it loads a project, runs the engine against the
// project's current scene order, and persists and announces the result.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jaycherian/gcp-go-video-wizard/internal/core/model"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/scenegroup"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Reasons attached to SceneGroupChanged events.
const (
	ReasonAutoGroup = "auto_group"
	ReasonToggle    = "toggle_link"
	ReasonReplace   = "replace"
	ReasonRepair    = "repair"
	ReasonSeed      = "seed"
)

// Counter names, shared by Stats and the OpenTelemetry meter.
const (
	CounterToggles       = "scene_group.toggles"
	CounterMerges        = "scene_group.merges"
	CounterSplits        = "scene_group.splits"
	CounterAutoGroups    = "scene_group.auto_groups"
	CounterReplaces      = "scene_group.replaces"
	CounterRepairs       = "scene_group.repairs"
	CounterCommits       = "scene_group.commits"
	CounterConflicts     = "scene_group.conflicts"
	CounterWritesSkipped = "scene_group.writes_skipped"
	CounterWrites        = "scene_group.writes"
	CounterWriteFailures = "scene_group.write_failures"
	CounterStaleReads    = "scene_group.stale_reads"
)

var counterNames = []string{
	CounterToggles, CounterMerges, CounterSplits, CounterAutoGroups, CounterReplaces, CounterRepairs,
	CounterCommits, CounterConflicts, CounterWritesSkipped, CounterWrites, CounterWriteFailures, CounterStaleReads,
}

// EventPublisher announces grouping changes to other services.
type EventPublisher interface {
	Publish(ctx context.Context, event *model.SceneGroupChanged) error
}

// View is the grouping of a project as the editor shows it.
type View struct {
	ProjectId  string               `json:"project_id"`
	SceneOrder []scenegroup.SceneID `json:"scene_order"`
	Groups     scenegroup.Grouping  `json:"groups"`
	Signature  string               `json:"signature"`
	Stale      bool                 `json:"stale"`
}

func newView(projectID string, order []scenegroup.SceneID, groups scenegroup.Grouping) *View {
	return &View{
		ProjectId:  projectID,
		SceneOrder: order,
		Groups:     groups,
		Signature:  scenegroup.Signature(groups),
	}
}

func (v *View) clone() *View {
	out := *v
	out.SceneOrder = append([]scenegroup.SceneID{}, v.SceneOrder...)
	out.Groups = scenegroup.Normalize(v.Groups, v.SceneOrder)
	return &out
}

type counter struct {
	value atomic.Int64
	otel  metric.Int64Counter
}

// SceneGroupService applies grouping operations to stored projects. Writes
// to one project are serialized through Locker.
type SceneGroupService struct {
	Store     ProjectStore
	Locker    ProjectLocker
	Publisher EventPublisher // Optional.

	mu        sync.Mutex
	snapshots map[string]*View // Last known good view per project.
	counters  map[string]*counter
}

// NewSceneGroupService wires a service. publisher may be nil.
//
// Inputs:
//   - store: Where projects live.
//   - locker: Serializes writes per project.
//   - publisher: Receives SceneGroupChanged events.
//
// Outputs:
//   - *SceneGroupService: The service.
func NewSceneGroupService(store ProjectStore, locker ProjectLocker, publisher EventPublisher) *SceneGroupService {
	meter := otel.Meter("github.com/jaycherian/gcp-go-video-wizard/services")
	counters := make(map[string]*counter, len(counterNames))
	for _, name := range counterNames {
		c := &counter{}
		oc, err := meter.Int64Counter(name)
		if err != nil {
			slog.Warn("failed to create counter", "counter", name, "error", err)
		}
		c.otel = oc
		counters[name] = c
	}
	return &SceneGroupService{
		Store:     store,
		Locker:    locker,
		Publisher: publisher,
		snapshots: make(map[string]*View),
		counters:  counters,
	}
}

func (s *SceneGroupService) count(ctx context.Context, name string) {
	c, ok := s.counters[name]
	if !ok {
		return
	}
	c.value.Add(1)
	if c.otel != nil {
		c.otel.Add(ctx, 1)
	}
}

// Stats returns the current value of every counter.
func (s *SceneGroupService) Stats() map[string]int64 {
	out := make(map[string]int64, len(s.counters))
	for name, c := range s.counters {
		out[name] = c.value.Load()
	}
	return out
}

func (s *SceneGroupService) snapshot(id string) *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.snapshots[id]; ok {
		return v.clone()
	}
	return nil
}

func (s *SceneGroupService) setSnapshot(id string, v *View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v == nil {
		delete(s.snapshots, id)
		return
	}
	s.snapshots[id] = v.clone()
}

// Get returns the normalized grouping of a project. If the store cannot be
// read but a previous view is cached, that view is returned marked Stale.
func (s *SceneGroupService) Get(ctx context.Context, id string) (*View, error) {
	p, err := s.Store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrProjectNotFound) {
			if cached := s.snapshot(id); cached != nil {
				slog.WarnContext(ctx, "serving cached scene grouping", "project_id", id, "error", err)
				s.count(ctx, CounterStaleReads)
				cached.Stale = true
				return cached, nil
			}
		}
		return nil, err
	}
	order := p.SceneOrder()
	v := newView(id, order, scenegroup.Normalize(p.SceneGroup, order))
	s.setSnapshot(id, v)
	return v, nil
}

// GroupInfo returns the leader and group of one scene.
func (s *SceneGroupService) GroupInfo(ctx context.Context, id string, sceneID scenegroup.SceneID) (*scenegroup.Info, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, sid := range v.SceneOrder {
		if sid.Equal(sceneID) {
			info := scenegroup.GroupInfo(v.Groups, sceneID, v.SceneOrder)
			return &info, nil
		}
	}
	return nil, fmt.Errorf("%w: %s in project %s", ErrSceneNotFound, sceneID, id)
}

// AutoGroup splits the project's scenes evenly over locationCount locations
// and stores the count on the project. The engine's positions 1..n are
// mapped onto the project's actual scene order, so deleted or renumbered
// scenes are handled. The count is written only once the grouping is saved;
// if the count cannot be saved the previous grouping is put back.
func (s *SceneGroupService) AutoGroup(ctx context.Context, id string, locationCount *int) (*View, error) {
	s.count(ctx, CounterAutoGroups)
	compute := func(_ *model.Project, _ scenegroup.Grouping, order []scenegroup.SceneID) (scenegroup.Grouping, error) {
		return mapPositions(scenegroup.AutoGroup(len(order), locationCount), order), nil
	}
	saveCount := func(p *model.Project) error {
		if sameCount(p.LocationCount, locationCount) {
			return nil
		}
		return s.Store.UpdateLocationCount(ctx, id, locationCount)
	}
	return s.mutateThen(ctx, id, ReasonAutoGroup, compute, saveCount)
}

// ToggleLink links or unlinks scenes a and b.
func (s *SceneGroupService) ToggleLink(ctx context.Context, id string, a, b scenegroup.SceneID) (*View, error) {
	s.count(ctx, CounterToggles)
	return s.mutate(ctx, id, ReasonToggle, func(_ *model.Project, current scenegroup.Grouping, order []scenegroup.SceneID) (scenegroup.Grouping, error) {
		next := scenegroup.ToggleLink(current, a, b, order)
		if scenegroup.Signature(next) != scenegroup.Signature(current) {
			if scenegroup.AreLinked(next, a, b) {
				s.count(ctx, CounterMerges)
			} else {
				s.count(ctx, CounterSplits)
			}
		}
		return next, nil
	})
}

// Replace stores raw, in any shape the codec reads, after normalizing it.
func (s *SceneGroupService) Replace(ctx context.Context, id string, raw any) (*View, error) {
	s.count(ctx, CounterReplaces)
	return s.mutate(ctx, id, ReasonReplace, func(_ *model.Project, _ scenegroup.Grouping, order []scenegroup.SceneID) (scenegroup.Grouping, error) {
		return scenegroup.Normalize(raw, order), nil
	})
}

// Repair writes back the normalized grouping if the stored one differs.
func (s *SceneGroupService) Repair(ctx context.Context, id string) (*View, error) {
	s.count(ctx, CounterRepairs)
	return s.mutate(ctx, id, ReasonRepair, func(_ *model.Project, current scenegroup.Grouping, _ []scenegroup.SceneID) (scenegroup.Grouping, error) {
		return current, nil
	})
}

// Commit stores next only if the stored grouping still has
// expectedSignature (as returned by model.Project.StoredSignature).
// Otherwise it returns ErrConcurrentUpdate and changes nothing.
func (s *SceneGroupService) Commit(ctx context.Context, id, expectedSignature string, next scenegroup.Grouping, reason string) (*View, error) {
	s.count(ctx, CounterCommits)
	return s.mutate(ctx, id, reason, func(p *model.Project, _ scenegroup.Grouping, order []scenegroup.SceneID) (scenegroup.Grouping, error) {
		if p.StoredSignature() != expectedSignature {
			s.count(ctx, CounterConflicts)
			return nil, fmt.Errorf("%w: project %s", ErrConcurrentUpdate, id)
		}
		return scenegroup.Normalize(next, order), nil
	})
}

type computeFunc func(p *model.Project, current scenegroup.Grouping, order []scenegroup.SceneID) (scenegroup.Grouping, error)

// afterWriteFunc updates other project fields once the grouping is stored. p
// is the project as read before the write.
type afterWriteFunc func(p *model.Project) error

// mutate runs one locked read-compute-write cycle. The cached snapshot is
// updated before the write and rolled back if the write fails.
func (s *SceneGroupService) mutate(ctx context.Context, id, reason string, compute computeFunc) (*View, error) {
	return s.mutateThen(ctx, id, reason, compute, nil)
}

// mutateThen is mutate followed by after, still under the project lock. When
// after fails the stored grouping is restored to what was read, so the
// project is never left half updated.
func (s *SceneGroupService) mutateThen(ctx context.Context, id, reason string, compute computeFunc, after afterWriteFunc) (*View, error) {
	unlock, err := s.Locker.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	order := p.SceneOrder()
	current := scenegroup.Normalize(p.SceneGroup, order)

	next, err := compute(p, current, order)
	if err != nil {
		return nil, err
	}
	next = scenegroup.Normalize(next, order)
	view := newView(id, order, next)

	if view.Signature == p.StoredSignature() {
		if after != nil {
			if err := after(p); err != nil {
				return nil, err
			}
		}
		s.count(ctx, CounterWritesSkipped)
		s.setSnapshot(id, view)
		return view, nil
	}

	previous := s.snapshot(id)
	s.setSnapshot(id, view)
	records := scenegroup.Encode(next)
	if err := s.Store.UpdateSceneGroup(ctx, id, records); err != nil {
		s.setSnapshot(id, previous)
		s.count(ctx, CounterWriteFailures)
		return nil, fmt.Errorf("saving scene grouping of project %s: %w", id, err)
	}
	if after != nil {
		if err := after(p); err != nil {
			s.setSnapshot(id, previous)
			s.count(ctx, CounterWriteFailures)
			if rerr := s.Store.UpdateSceneGroup(ctx, id, p.SceneGroup); rerr != nil {
				slog.ErrorContext(ctx, "failed to restore scene grouping", "project_id", id, "error", rerr)
			}
			return nil, fmt.Errorf("saving project %s: %w", id, err)
		}
	}
	s.count(ctx, CounterWrites)
	slog.InfoContext(ctx, "scene grouping saved",
		"project_id", id, "reason", reason,
		"before", scenegroup.Signature(current), "after", view.Signature)

	s.publish(ctx, &model.SceneGroupChanged{
		ProjectId: id,
		Reason:    reason,
		Signature: view.Signature,
		Groups:    records,
		ChangedAt: time.Now().UTC(),
	})
	return view, nil
}

func (s *SceneGroupService) publish(ctx context.Context, event *model.SceneGroupChanged) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to publish scene group change", "project_id", event.ProjectId, "error", err)
	}
}

// mapPositions replaces the numeric positions 1..n produced by AutoGroup
// with the ids at those positions in order.
func mapPositions(groups scenegroup.Grouping, order []scenegroup.SceneID) scenegroup.Grouping {
	out := make(scenegroup.Grouping, 0, len(groups))
	for _, g := range groups {
		mapped := make(scenegroup.Group, 0, len(g))
		for _, pos := range g {
			if n, ok := pos.Int(); ok && n >= 1 && int(n) <= len(order) {
				mapped = append(mapped, order[n-1])
			}
		}
		out = append(out, mapped)
	}
	return out
}

func sameCount(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
