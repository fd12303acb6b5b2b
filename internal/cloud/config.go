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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files, together with the Google Cloud clients and adapters
// the services are built on.
//
// This file centralizes all configuration-related structs.
//
// Structs:
//   - Storage: Buckets for uploaded scene assets and grouping archives.
//   - ProjectStoreConfig: Which project store backs the service and where.
//   - LockConfig: How per-project writes are serialized.
//   - VertexAiLLMModel: Settings for a generative model.
//   - TopicSubscription: A Pub/Sub subscription that triggers a workflow.
//   - Config: The root of the configuration tree.
package cloud

import "google.golang.org/genai"

// Project store kinds.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StoreBigQuery = "bigquery"
)

// Lock kinds.
const (
	LockLocal = "local"
	LockRedis = "redis"
)

// DefaultSafetySettings is applied to every agent model. Scene narrations are
// user supplied fiction, so blocking is left to the caller's own review.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// ProjectStoreConfig selects and locates the project store.
type ProjectStoreConfig struct {
	Kind         string `toml:"kind"`          // One of memory, sqlite or bigquery.
	SQLitePath   string `toml:"sqlite_path"`   // Database file for the sqlite store.
	DatasetName  string `toml:"dataset"`       // BigQuery dataset.
	ProjectTable string `toml:"project_table"` // BigQuery table holding project documents.
}

// LockConfig selects the per-project lock implementation.
type LockConfig struct {
	Kind       string `toml:"kind"`        // local or redis.
	RedisAddr  string `toml:"redis_addr"`  // host:port of the redis server.
	TTLSeconds int    `toml:"ttl_seconds"` // Lease length of a redis lock.
}

// Topics names the Pub/Sub topics the service publishes to.
type Topics struct {
	SceneGroupChanged string `toml:"scene_group_changed"`
}

// PromptTemplates holds the text/template sources for model prompts.
type PromptTemplates struct {
	LocationPlan string `toml:"location_plan"`
}

// VertexAiLLMModel holds the settings of one generative model.
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The name of the Vertex AI LLM.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the LLM.
	Temperature        float32 `toml:"temperature"`         // The temperature parameter for the LLM.
	TopP               float32 `toml:"top_p"`               // The top_p parameter for the LLM.
	TopK               float32 `toml:"top_k"`               // The top_k parameter for the LLM.
	MaxTokens          int32   `toml:"max_tokens"`          // The maximum number of tokens for the LLM output.
	OutputFormat       string  `toml:"output_format"`       // The desired response MIME type.
	RateLimit          int     `toml:"rate_limit"`          // Requests per second.
}

// TopicSubscription names a Pub/Sub subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`               // The name of the Pub/Sub subscription.
	DeadLetterTopic  string `toml:"dead_letter_topic"`  // The name of the dead-letter topic for the subscription.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // The timeout for one message in seconds.
}

// Storage names the GCS buckets used by the service.
type Storage struct {
	AssetBucket   string `toml:"asset_bucket"`   // Uploaded scene images and clips.
	ArchiveBucket string `toml:"archive_bucket"` // JSON history of grouping changes.
}

// Config is the root configuration object.
type Config struct {
	Application struct {
		Name                      string `toml:"name"`                         // The name of the application.
		GoogleProjectId           string `toml:"google_project_id"`            // The Google Cloud project ID.
		GoogleLocation            string `toml:"location"`                     // The Google Cloud location.
		ThreadPoolSize            int    `toml:"thread_pool_size"`             // Concurrent messages handled per subscription.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"` // The service account email used for signing GCS URLs.
		HttpAddr                  string `toml:"http_addr"`                    // Listen address of the HTTP server.
		LogLevel                  string `toml:"log_level"`                    // debug, info, warn or error.
		LogFile                   string `toml:"log_file"`                     // Optional file that receives a copy of the logs.
		RepairSweepSeconds        int    `toml:"repair_sweep_seconds"`         // Interval of the background repair sweep; 0 disables it.
	} `toml:"application"`
	Storage            Storage                      `toml:"storage"`             // Storage configuration.
	ProjectStore       ProjectStoreConfig           `toml:"project_store"`       // Project store configuration.
	Locks              LockConfig                   `toml:"locks"`               // Lock configuration.
	Topics             Topics                       `toml:"topics"`              // Topics the service publishes to.
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`    // Prompt templates configuration.
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"` // Pub/Sub subscriptions keyed by logical name (e.g. "scene-order").
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"`        // Vertex AI models keyed by logical name (e.g. "location-planner").
}

// NewConfig returns a Config with the defaults a local run needs.
//
// Outputs:
//   - *Config: A config with all maps initialized.
func NewConfig() *Config {
	c := &Config{
		ProjectStore:       ProjectStoreConfig{Kind: StoreMemory},
		Locks:              LockConfig{Kind: LockLocal, TTLSeconds: 30},
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
	}
	c.Application.HttpAddr = ":8080"
	c.Application.LogLevel = "info"
	c.Application.ThreadPoolSize = 4
	return c
}
