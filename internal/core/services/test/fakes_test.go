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

// Package services_test contains the test suite for the services package.
// This file holds the fakes shared by the other tests.
package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jaycherian/gcp-go-video-wizard/internal/cloud"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/model"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/scenegroup"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/services"
	"google.golang.org/genai"
)

var errStoreDown = errors.New("store unavailable")

// flakyStore wraps a memory store and can be told to fail reads, scene
// group writes or location count writes.
type flakyStore struct {
	*services.MemoryProjectStore
	mu         sync.Mutex
	failReads  bool
	failWrites bool
	failCounts bool
	failScenes bool
	writes     int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryProjectStore: services.NewMemoryProjectStore()}
}

func (f *flakyStore) set(reads, writes bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failReads, f.failWrites = reads, writes
}

func (f *flakyStore) Get(ctx context.Context, id string) (*model.Project, error) {
	f.mu.Lock()
	fail := f.failReads
	f.mu.Unlock()
	if fail {
		return nil, errStoreDown
	}
	return f.MemoryProjectStore.Get(ctx, id)
}

func (f *flakyStore) UpdateSceneGroup(ctx context.Context, id string, groups []scenegroup.Record) error {
	f.mu.Lock()
	fail := f.failWrites
	f.writes++
	f.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return f.MemoryProjectStore.UpdateSceneGroup(ctx, id, groups)
}

func (f *flakyStore) UpdateLocationCount(ctx context.Context, id string, count *int) error {
	f.mu.Lock()
	fail := f.failCounts
	f.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return f.MemoryProjectStore.UpdateLocationCount(ctx, id, count)
}

func (f *flakyStore) failLocationCounts(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failCounts = fail
}

func (f *flakyStore) UpdateScene(ctx context.Context, id string, scene *model.Scene) error {
	f.mu.Lock()
	fail := f.failScenes
	f.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return f.MemoryProjectStore.UpdateScene(ctx, id, scene)
}

func (f *flakyStore) failSceneUpdates(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failScenes = fail
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*model.SceneGroupChanged
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, event *model.SceneGroupChanged) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type memoryObjects struct {
	objects map[string][]byte
}

func (m *memoryObjects) WriteObject(_ context.Context, obj *cloud.GCSObject, data []byte) (string, error) {
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[obj.URI()] = data
	return obj.URI(), nil
}

func (m *memoryObjects) DeleteObject(_ context.Context, obj *cloud.GCSObject) error {
	delete(m.objects, obj.URI())
	return nil
}

func (m *memoryObjects) SignedURL(_ context.Context, obj *cloud.GCSObject, expires time.Duration) (string, error) {
	return fmt.Sprintf("https://signed.example/%s/%s?ttl=%d", obj.Bucket, obj.Name, int(expires.Seconds())), nil
}

// cannedModel answers every prompt with text.
type cannedModel struct {
	text    string
	prompts []string
}

func (c *cannedModel) GenerateContent(_ context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	for _, cn := range content {
		for _, p := range cn.Parts {
			c.prompts = append(c.prompts, p.Text)
		}
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: c.text}}}},
		},
	}, nil
}

func seedProject(store services.ProjectStore, scenes int) *model.Project {
	p := model.NewProject("Lighthouse", scenes)
	for _, s := range p.Scenes {
		s.Narration = "Narration for scene " + s.Id.Key()
	}
	if err := store.Create(context.Background(), p); err != nil {
		panic(err)
	}
	return p
}
