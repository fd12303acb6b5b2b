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

package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-wizard/internal/core/scenegroup"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func newAssetService(store services.ProjectStore, objects *memoryObjects) *services.AssetService {
	return &services.AssetService{
		Store:       store,
		Locker:      services.NewLocalLocker(),
		Writer:      objects,
		Signer:      objects,
		AssetBucket: "scene-assets",
		URLExpiry:   time.Minute,
	}
}

// TestAssetUploadGoesToLeader uploads to a child scene and checks the leader
// receives the asset while the child inherits it.
func TestAssetUploadGoesToLeader(t *testing.T) {
	ctx := context.Background()
	store := services.NewMemoryProjectStore()
	p := seedProject(store, 3)
	groups, _ := newService(store)
	_, err := groups.ToggleLink(ctx, p.Id, scenegroup.IntID(1), scenegroup.IntID(2))
	require.NoError(t, err)

	objects := &memoryObjects{}
	assets := newAssetService(store, objects)

	leader, err := assets.Upload(ctx, p.Id, scenegroup.IntID(2), "frame.png", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "1", leader.Id.Key())
	assert.True(t, strings.HasPrefix(leader.ImageURL, "gs://scene-assets/projects/"+p.Id+"/scenes/1/"))
	assert.True(t, strings.HasSuffix(leader.ImageURL, ".png"))
	assert.Equal(t, []string{leader.ImageURL}, leader.CandidateURLs)
	assert.Len(t, objects.objects, 1)

	resolved, err := assets.Resolve(ctx, p.Id, scenegroup.IntID(2))
	require.NoError(t, err)
	assert.True(t, resolved.Inherited)
	assert.Equal(t, "1", resolved.Leader.Key())
	assert.Equal(t, leader.ImageURL, resolved.ImageURL)
	assert.Contains(t, resolved.SignedURL, "https://signed.example/scene-assets/projects/")
	assert.Contains(t, resolved.SignedURL, "ttl=60")

	own, err := assets.Resolve(ctx, p.Id, scenegroup.IntID(3))
	require.NoError(t, err)
	assert.False(t, own.Inherited)
	assert.Empty(t, own.ImageURL)
	assert.Empty(t, own.SignedURL)
}

// TestAssetUploadRemovesObjectOnFailedUpdate checks nothing is left in the
// bucket when the scene cannot be updated.
func TestAssetUploadRemovesObjectOnFailedUpdate(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	p := seedProject(store, 2)
	objects := &memoryObjects{}
	assets := newAssetService(store, objects)

	store.failSceneUpdates(true)
	_, err := assets.Upload(ctx, p.Id, scenegroup.IntID(1), "frame.png", pngHeader)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, objects.objects)

	stored, err := store.Get(ctx, p.Id)
	require.NoError(t, err)
	assert.Empty(t, stored.Scene(scenegroup.IntID(1)).ImageURL)
}

func TestAssetUploadRejectsUnknownContent(t *testing.T) {
	store := services.NewMemoryProjectStore()
	p := seedProject(store, 1)
	assets := newAssetService(store, &memoryObjects{})

	_, err := assets.Upload(context.Background(), p.Id, scenegroup.IntID(1), "notes.txt", []byte("just some text"))
	assert.ErrorIs(t, err, services.ErrUnsupportedMedia)
}

func TestAssetResolveUnknownScene(t *testing.T) {
	store := services.NewMemoryProjectStore()
	p := seedProject(store, 1)
	assets := newAssetService(store, &memoryObjects{})

	_, err := assets.Resolve(context.Background(), p.Id, scenegroup.IntID(5))
	assert.ErrorIs(t, err, services.ErrSceneNotFound)
	_, err = assets.Resolve(context.Background(), "nope", scenegroup.IntID(1))
	assert.ErrorIs(t, err, services.ErrProjectNotFound)
}

// TestAssetResolveExternalURL leaves non-storage URLs unsigned.
func TestAssetResolveExternalURL(t *testing.T) {
	ctx := context.Background()
	store := services.NewMemoryProjectStore()
	p := seedProject(store, 1)
	scene := p.Scene(scenegroup.IntID(1))
	scene.ImageURL = "https://cdn.example/frame.jpg"
	require.NoError(t, store.UpdateScene(ctx, p.Id, scene))

	resolved, err := newAssetService(store, &memoryObjects{}).Resolve(ctx, p.Id, scenegroup.IntID(1))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/frame.jpg", resolved.ImageURL)
	assert.Empty(t, resolved.SignedURL)
}
