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

// Package services contains the business logic of the scene group service and
// the data access layer it runs on. This file defines the ProjectStore
// contract and the in-memory store used for local runs and tests.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jaycherian/gcp-go-video-wizard/internal/core/model"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/scenegroup"
)

// Sentinel errors returned by the services. Check them with errors.Is.
var (
	ErrProjectNotFound     = errors.New("project not found")
	ErrSceneNotFound       = errors.New("scene not found")
	ErrConcurrentUpdate    = errors.New("scene grouping was changed concurrently")
	ErrUnsupportedMedia    = errors.New("unsupported media type")
	ErrInvalidLocationPlan = errors.New("invalid location plan")
)

// ProjectStore persists project documents. Implementations must return
// ErrProjectNotFound (possibly wrapped) for unknown ids and must not share
// memory with the caller.
type ProjectStore interface {
	// Get loads one project.
	Get(ctx context.Context, id string) (*model.Project, error)
	// Create inserts a new project.
	Create(ctx context.Context, project *model.Project) error
	// UpdateSceneGroup replaces only the scene_group field.
	UpdateSceneGroup(ctx context.Context, id string, groups []scenegroup.Record) error
	// UpdateScene replaces one scene, matched by id.
	UpdateScene(ctx context.Context, id string, scene *model.Scene) error
	// UpdateLocationCount replaces the location count; nil clears it.
	UpdateLocationCount(ctx context.Context, id string, count *int) error
	// List returns up to limit projects, most recently updated first.
	List(ctx context.Context, limit int) ([]*model.Project, error)
}

// MemoryProjectStore keeps projects in a map. Every read and write copies
// the document.
type MemoryProjectStore struct {
	mu       sync.RWMutex
	projects map[string]*model.Project
}

// NewMemoryProjectStore returns an empty store.
func NewMemoryProjectStore() *MemoryProjectStore {
	return &MemoryProjectStore{projects: make(map[string]*model.Project)}
}

func (s *MemoryProjectStore) Get(_ context.Context, id string) (*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return p.Clone(), nil
}

func (s *MemoryProjectStore) Create(_ context.Context, project *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.projects[project.Id]; exists {
		return fmt.Errorf("project %s already exists", project.Id)
	}
	s.projects[project.Id] = project.Clone()
	return nil
}

func (s *MemoryProjectStore) update(id string, fn func(p *model.Project) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	next := p.Clone()
	if err := fn(next); err != nil {
		return err
	}
	next.UpdateDate = time.Now()
	s.projects[id] = next
	return nil
}

func (s *MemoryProjectStore) UpdateSceneGroup(_ context.Context, id string, groups []scenegroup.Record) error {
	return s.update(id, func(p *model.Project) error {
		p.SceneGroup = (&model.Project{SceneGroup: groups}).Clone().SceneGroup
		return nil
	})
}

func (s *MemoryProjectStore) UpdateScene(_ context.Context, id string, scene *model.Scene) error {
	return s.update(id, func(p *model.Project) error {
		for i, existing := range p.Scenes {
			if existing.Id.Equal(scene.Id) {
				p.Scenes[i] = (&model.Project{Scenes: []*model.Scene{scene}}).Clone().Scenes[0]
				return nil
			}
		}
		return fmt.Errorf("%w: %s in project %s", ErrSceneNotFound, scene.Id, id)
	})
}

func (s *MemoryProjectStore) UpdateLocationCount(_ context.Context, id string, count *int) error {
	return s.update(id, func(p *model.Project) error {
		p.LocationCount = nil
		if count != nil {
			n := *count
			p.LocationCount = &n
		}
		return nil
	})
}

func (s *MemoryProjectStore) List(_ context.Context, limit int) ([]*model.Project, error) {
	s.mu.RLock()
	out := make([]*model.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdateDate.Equal(out[j].UpdateDate) {
			return out[i].Id < out[j].Id
		}
		return out[i].UpdateDate.After(out[j].UpdateDate)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
