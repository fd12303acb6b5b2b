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

// Package services. This file defines AssetService, which resolves the
// image a scene displays and stores uploaded scene assets. Scenes linked
// into a group display their leader's asset.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-video-wizard/internal/cloud"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/model"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/scenegroup"
)

// ResolvedAsset is the asset shown for a scene.
type ResolvedAsset struct {
	ProjectId string             `json:"project_id"`
	SceneId   scenegroup.SceneID `json:"scene_id"`
	Leader    scenegroup.SceneID `json:"leader"`
	Inherited bool               `json:"inherited"`
	ImageURL  string             `json:"image_url"`
	SignedURL string             `json:"signed_url,omitempty"`
}

// AssetService reads and writes scene assets.
type AssetService struct {
	Store       ProjectStore
	Locker      ProjectLocker
	Writer      cloud.ObjectWriter // Stores uploads; also used to delete them if it is a cloud.ObjectDeleter.
	Signer      cloud.URLSigner    // Optional; without it no signed URLs are produced.
	AssetBucket string
	URLExpiry   time.Duration
}

// Resolve returns the asset displayed for sceneID: the leader's image,
// inherited when sceneID is a child. gs:// and storage URLs are signed.
//
// Inputs:
//   - ctx: The request context.
//   - projectID: The project.
//   - sceneID: The scene being displayed.
//
// Outputs:
//   - *ResolvedAsset: The leader and its asset URLs.
//   - error: ErrProjectNotFound, ErrSceneNotFound or a signing failure.
func (s *AssetService) Resolve(ctx context.Context, projectID string, sceneID scenegroup.SceneID) (*ResolvedAsset, error) {
	p, err := s.Store.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.Scene(sceneID) == nil {
		return nil, fmt.Errorf("%w: %s in project %s", ErrSceneNotFound, sceneID, projectID)
	}
	info := scenegroup.GroupInfo(p.Groups(), sceneID, p.SceneOrder())
	leader := p.Scene(info.Leader)

	out := &ResolvedAsset{
		ProjectId: projectID,
		SceneId:   sceneID,
		Leader:    info.Leader,
		Inherited: info.IsChild,
		ImageURL:  leader.ImageURL,
	}
	if out.ImageURL == "" || s.Signer == nil {
		return out, nil
	}
	obj, err := cloud.ParseGCSURI(out.ImageURL)
	if err != nil {
		// Not a storage URL; it is served as-is.
		return out, nil
	}
	if out.SignedURL, err = s.Signer.SignedURL(ctx, obj, s.expiry()); err != nil {
		return nil, fmt.Errorf("signing asset of scene %s: %w", info.Leader, err)
	}
	return out, nil
}

func (s *AssetService) expiry() time.Duration {
	if s.URLExpiry <= 0 {
		return 15 * time.Minute
	}
	return s.URLExpiry
}

// Upload stores an image or video for a scene and selects it. The asset is
// attached to the leader of the scene's group, because that is the asset
// every member of the group displays.
//
// Inputs:
//   - ctx: The request context.
//   - projectID, sceneID: The target scene.
//   - filename: The client's file name, for logging.
//   - content: The file bytes.
//
// Outputs:
//   - *model.Scene: The updated leader scene.
//   - error: ErrUnsupportedMedia for anything that is not an image or video.
func (s *AssetService) Upload(ctx context.Context, projectID string, sceneID scenegroup.SceneID, filename string, content []byte) (*model.Scene, error) {
	if !filetype.IsImage(content) && !filetype.IsVideo(content) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, filename)
	}
	kind, err := filetype.Match(content)
	if err != nil || kind == filetype.Unknown {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, filename)
	}

	unlock, err := s.Locker.Lock(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := s.Store.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.Scene(sceneID) == nil {
		return nil, fmt.Errorf("%w: %s in project %s", ErrSceneNotFound, sceneID, projectID)
	}
	info := scenegroup.GroupInfo(p.Groups(), sceneID, p.SceneOrder())
	leader := p.Scene(info.Leader)

	obj := &cloud.GCSObject{
		Bucket:   s.AssetBucket,
		Name:     fmt.Sprintf("projects/%s/scenes/%s/%s.%s", projectID, info.Leader.Key(), uuid.NewString(), kind.Extension),
		MIMEType: kind.MIME.Value,
	}
	uri, err := s.Writer.WriteObject(ctx, obj, content)
	if err != nil {
		return nil, fmt.Errorf("storing asset for scene %s: %w", info.Leader, err)
	}

	leader.CandidateURLs = model.DedupeURLs(append(leader.CandidateURLs, uri))
	leader.ImageURL = uri
	if err := s.Store.UpdateScene(ctx, projectID, leader); err != nil {
		s.discard(ctx, obj)
		return nil, err
	}
	slog.InfoContext(ctx, "scene asset uploaded",
		"project_id", projectID, "scene_id", sceneID.Key(), "leader", info.Leader.Key(),
		"file", filename, "uri", uri, "mime", kind.MIME.Value)
	return leader, nil
}

// discard removes an uploaded object that no scene refers to. If it cannot be
// removed its URI is logged so it can be cleaned up by hand.
func (s *AssetService) discard(ctx context.Context, obj *cloud.GCSObject) {
	deleter, ok := s.Writer.(cloud.ObjectDeleter)
	if !ok {
		slog.WarnContext(ctx, "orphaned scene asset", "uri", obj.URI())
		return
	}
	if err := deleter.DeleteObject(ctx, obj); err != nil {
		slog.WarnContext(ctx, "orphaned scene asset", "uri", obj.URI(), "error", err)
	}
}
