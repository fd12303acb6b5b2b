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

package cloud_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-video-wizard/internal/cloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"google.golang.org/genai"
)

func TestLoadConfigOverlaysRuntime(t *testing.T) {
	dir := t.TempDir()
	base := `
[application]
name = "scene-group-server"
http_addr = ":9000"
log_level = "info"

[project_store]
kind = "sqlite"
sqlite_path = "base.db"

[topic_subscriptions.scene-order]
name = "scene-order-sub"
`
	runtime := `
[application]
log_level = "debug"

[project_store]
sqlite_path = "runtime.db"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte(base), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.unit.toml"), []byte(runtime), 0o600))
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "unit")

	config := cloud.NewConfig()
	require.NoError(t, cloud.LoadConfig(config))
	assert.Equal(t, "scene-group-server", config.Application.Name)
	assert.Equal(t, ":9000", config.Application.HttpAddr)
	assert.Equal(t, "debug", config.Application.LogLevel)
	assert.Equal(t, cloud.StoreSQLite, config.ProjectStore.Kind)
	assert.Equal(t, "runtime.db", config.ProjectStore.SQLitePath)
	assert.Equal(t, cloud.LockLocal, config.Locks.Kind)
	assert.Equal(t, "scene-order-sub", config.TopicSubscriptions["scene-order"].Name)
}

func TestLoadConfigMissingFilesKeepDefaults(t *testing.T) {
	t.Setenv(cloud.EnvConfigFilePrefix, t.TempDir())
	t.Setenv(cloud.EnvConfigRuntime, "")

	config := cloud.NewConfig()
	require.NoError(t, cloud.LoadConfig(config))
	assert.Equal(t, cloud.StoreMemory, config.ProjectStore.Kind)
	assert.Equal(t, ":8080", config.Application.HttpAddr)
	assert.Equal(t, 30, config.Locks.TTLSeconds)
}

func TestLoadConfigRejectsBadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte("[application\n"), 0o600))
	t.Setenv(cloud.EnvConfigFilePrefix, dir)

	assert.Error(t, cloud.LoadConfig(cloud.NewConfig()))
}

func TestParseGCSURI(t *testing.T) {
	for in, want := range map[string]cloud.GCSObject{
		"gs://bucket/a/b.png": {Bucket: "bucket", Name: "a/b.png"},
		"https://storage.googleapis.com/bucket/scene.jpg":     {Bucket: "bucket", Name: "scene.jpg"},
		"https://storage.mtls.cloud.google.com/bucket/x/y.mp4": {Bucket: "bucket", Name: "x/y.mp4"},
	} {
		got, err := cloud.ParseGCSURI(in)
		require.NoError(t, err, in)
		assert.Equal(t, want.Bucket, got.Bucket, in)
		assert.Equal(t, want.Name, got.Name, in)
	}

	for _, in := range []string{"", "gs://bucket", "gs://bucket/", "https://example.com/bucket/a.png", "/local/file.png"} {
		_, err := cloud.ParseGCSURI(in)
		assert.Error(t, err, in)
	}

	obj := &cloud.GCSObject{Bucket: "b", Name: "projects/p/scene.png"}
	assert.Equal(t, "gs://b/projects/p/scene.png", obj.URI())
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cloud.StripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cloud.StripCodeFence("```\n{\"a\":1}\n```  "))
	assert.Equal(t, `{"a":1}`, cloud.StripCodeFence(`  {"a":1} `))
}

type scriptedModel struct {
	failures int
	calls    int
	text     string
}

func (s *scriptedModel) GenerateContent(_ context.Context, _ []*genai.Content) (*genai.GenerateContentResponse, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, errors.New("resource exhausted")
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(s.text, genai.RoleModel)},
		},
	}, nil
}

func TestGenerateMultiModalResponseRetries(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	counter, err := meter.Int64Counter("test.counter")
	require.NoError(t, err)
	ctx := context.Background()

	model := &scriptedModel{failures: 2, text: "```json\n{\"location_count\": 2}\n```"}
	out, err := cloud.GenerateMultiModalResponse(ctx, counter, counter, counter, 0, model, cloud.NewTextPart("plan"))
	require.NoError(t, err)
	assert.Equal(t, `{"location_count": 2}`, out)
	assert.Equal(t, 3, model.calls)

	model = &scriptedModel{failures: cloud.MaxRetries + 1}
	_, err = cloud.GenerateMultiModalResponse(ctx, counter, counter, counter, 0, model, cloud.NewTextPart("plan"))
	assert.Error(t, err)
	assert.Equal(t, cloud.MaxRetries+1, model.calls)
}
